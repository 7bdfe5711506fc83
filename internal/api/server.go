// Package api wires the HTTP surface: system, auth, directory, search, and
// stats endpoints, backed by the Scheduler, Search Service, Directory
// Registry, and Key Service.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/radhakrish-venkat/desktop-search/internal/auth"
	"github.com/radhakrish-venkat/desktop-search/internal/config"
	"github.com/radhakrish-venkat/desktop-search/internal/logging"
	"github.com/radhakrish-venkat/desktop-search/internal/registry"
	"github.com/radhakrish-venkat/desktop-search/internal/scheduler"
	"github.com/radhakrish-venkat/desktop-search/internal/search"
	"github.com/radhakrish-venkat/desktop-search/internal/store"
)

// Version is the server's release version, surfaced by /api/info.
const Version = "0.1.0"

// Server holds every dependency the route table needs and exposes the
// assembled router to an http.Server.
type Server struct {
	cfg       config.Config
	router    chi.Router
	log       *logging.Logger
	registry  *registry.Registry
	scheduler *scheduler.Scheduler
	search    *search.Service
	keys      *auth.KeyService
	chunks    *store.ChunkStore
	rateGate  *auth.RateGate
	jwtSecret []byte
}

// Deps collects the components New wires into the route table.
type Deps struct {
	Config    config.Config
	Registry  *registry.Registry
	Scheduler *scheduler.Scheduler
	Search    *search.Service
	Keys      *auth.KeyService
	Chunks    *store.ChunkStore
}

// New assembles the router and returns a ready-to-serve Server.
func New(deps Deps) *Server {
	s := &Server{
		cfg:       deps.Config,
		log:       logging.New("api"),
		registry:  deps.Registry,
		scheduler: deps.Scheduler,
		search:    deps.Search,
		keys:      deps.Keys,
		chunks:    deps.Chunks,
		rateGate: auth.NewRateGate(auth.RateLimits{
			Global: deps.Config.Rate.GlobalPerMinute,
			Search: deps.Config.Rate.SearchPerMinute,
			Index:  deps.Config.Rate.IndexPerMinute,
		}),
		jwtSecret: []byte(deps.Config.JWTSecret),
	}
	s.setupRouter()
	return s
}

// Handler returns the assembled http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRouter() {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Use(s.rateGate.Middleware(auth.ClassGlobal))

	r.Get("/health", s.handleHealth)
	r.Get("/api/info", s.handleInfo)

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Post("/validate-key", s.handleValidateKey)
		r.Post("/login", s.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAdminKey(s.cfg.AdminKey))
			r.Use(auth.Middleware(s.jwtSecret, s.keys))
			r.Use(auth.RequirePermission("admin"))
			r.Post("/create-key", s.handleCreateKey)
			r.Get("/list-keys", s.handleListKeys)
			r.Delete("/revoke-key/{key_id}", s.handleRevokeKey)
		})
	})

	r.Route("/api/v1/directories", func(r chi.Router) {
		r.Use(auth.Middleware(s.jwtSecret, s.keys))
		r.Use(auth.RequirePermission("index"))
		r.Use(s.rateGate.Middleware(auth.ClassIndex))

		r.Post("/add", s.handleAddDirectory)
		r.Get("/list", s.handleListDirectories)
		// Directory paths contain slashes, so these take the rest of the URL
		// as a wildcard rather than chi's single-segment {param} syntax.
		r.Get("/status/*", s.handleDirectoryStatus)
		r.Post("/refresh/*", s.handleRefreshDirectory)
		r.Delete("/remove/*", s.handleRemoveDirectory)
	})

	r.Route("/api/v1/searcher", func(r chi.Router) {
		r.Use(auth.Middleware(s.jwtSecret, s.keys))
		r.Use(auth.RequirePermission("search"))
		r.Use(s.rateGate.Middleware(auth.ClassSearch))

		r.Post("/search", s.handleSearch)
	})

	r.Route("/api/v1/stats", func(r chi.Router) {
		r.Use(auth.Middleware(s.jwtSecret, s.keys))
		r.Use(auth.RequirePermission("read"))

		r.Get("/system", s.handleStats)
	})

	s.router = r
}
