package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/radhakrish-venkat/desktop-search/internal/auth"
	"github.com/radhakrish-venkat/desktop-search/internal/chunk"
	"github.com/radhakrish-venkat/desktop-search/internal/config"
	"github.com/radhakrish-venkat/desktop-search/internal/embed"
	"github.com/radhakrish-venkat/desktop-search/internal/embed/hashing"
	"github.com/radhakrish-venkat/desktop-search/internal/embed/ollama"
	"github.com/radhakrish-venkat/desktop-search/internal/extract"
	"github.com/radhakrish-venkat/desktop-search/internal/index"
	"github.com/radhakrish-venkat/desktop-search/internal/ledger"
	"github.com/radhakrish-venkat/desktop-search/internal/logging"
	"github.com/radhakrish-venkat/desktop-search/internal/registry"
	"github.com/radhakrish-venkat/desktop-search/internal/scheduler"
	"github.com/radhakrish-venkat/desktop-search/internal/search"
	"github.com/radhakrish-venkat/desktop-search/internal/store"
)

// components bundles every wired dependency a subcommand might need.
type components struct {
	cfg       config.Config
	db        *store.DB
	registry  *registry.Registry
	chunks    *store.ChunkStore
	lexical   *index.LexicalIndex
	ledger    *ledger.Ledger
	keys      *auth.KeyService
	scheduler *scheduler.Scheduler
	search    *search.Service
}

// bootstrap loads config and wires every component. It never fails purely
// because the embedding backend is unreachable: it degrades to a
// deterministic hashing embedder so keyword search always stays available.
func bootstrap() (*components, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidConfig, err)
	}

	log := logging.New("bootstrap")

	db, err := store.Open(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	chunks, err := store.NewChunkStore(db)
	if err != nil {
		return nil, fmt.Errorf("open chunk store: %w", err)
	}
	lexical := index.New(db)
	if err := lexical.Load(context.Background()); err != nil {
		return nil, fmt.Errorf("load lexical index: %w", err)
	}
	led := ledger.New(db)
	reg := registry.New(filepath.Join(cfg.DataDir, "registry.json"))
	if err := reg.Load(); err != nil {
		return nil, fmt.Errorf("load directory registry: %w", err)
	}
	keys := auth.NewKeyService(store.NewApiKeyStore(db))

	embedder := resolveEmbedder(cfg, log)

	sched := scheduler.New(scheduler.Config{
		DB:             db,
		Registry:       reg,
		Ledger:         led,
		Chunks:         chunks,
		Lexical:        lexical,
		Extractor:      extract.NewRegistry(cfg.Index.MaxFileSizeBytes),
		Embedder:       embedder,
		Chunker:        chunk.New(chunk.WithSize(cfg.Index.ChunkSize), chunk.WithOverlap(cfg.Index.ChunkOverlap)),
		WorkerPoolSize: cfg.Index.WorkerPoolSize,
	})
	svc := search.New(lexical, chunks, embedder)

	return &components{
		cfg:       cfg,
		db:        db,
		registry:  reg,
		chunks:    chunks,
		lexical:   lexical,
		ledger:    led,
		keys:      keys,
		scheduler: sched,
		search:    svc,
	}, nil
}

// resolveEmbedder pings the configured Ollama backend and falls back to a
// deterministic feature-hashing embedder if it's unreachable, so a machine
// without Ollama running still gets keyword and (degraded) semantic search
// instead of a hard startup failure.
func resolveEmbedder(cfg config.Config, log *logging.Logger) embed.Embedder {
	oe := ollama.New(ollama.Config{
		BaseURL:    cfg.Ollama.BaseURL,
		Model:      cfg.Ollama.Model,
		Timeout:    cfg.Ollama.Timeout,
		Dimensions: cfg.Ollama.Dimensions,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := oe.Ping(ctx); err != nil {
		log.Warn("ollama unreachable, falling back to hashing embedder", "err", err)
		return hashing.New(cfg.Ollama.Dimensions)
	}
	return oe
}
