package auth

import (
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RouteClass buckets endpoints so each class can carry its own budget.
type RouteClass string

const (
	ClassGlobal RouteClass = "global"
	ClassSearch RouteClass = "search"
	ClassIndex  RouteClass = "index"
)

// RateLimits maps a route class to its sustained requests-per-minute budget.
type RateLimits struct {
	Global int
	Search int
	Index  int
}

func (l RateLimits) forClass(class RouteClass) int {
	switch class {
	case ClassSearch:
		return l.Search
	case ClassIndex:
		return l.Index
	default:
		return l.Global
	}
}

// RateGate enforces one token-bucket limiter per (identity, route class)
// pair, identity being the authenticated API key id or, failing that, the
// caller's IP. Limiters are created lazily and kept for the process
// lifetime; a long-running server would want an eviction policy for
// identities that stop appearing, but a desktop-scale key set never grows
// large enough to make that worthwhile.
type RateGate struct {
	limits RateLimits

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewRateGate builds a RateGate from limits.
func NewRateGate(limits RateLimits) *RateGate {
	return &RateGate{limits: limits, limiters: make(map[string]*rate.Limiter)}
}

// Allow reports whether identity may proceed under class's budget right now,
// consuming a token if so.
func (g *RateGate) Allow(identity string, class RouteClass) bool {
	return g.limiterFor(identity, class).Allow()
}

// Reserve reports whether identity may proceed under class's budget right
// now, consuming a token if so. When denied, it also returns how long the
// caller should wait before the next token becomes available, for a
// Retry-After header.
func (g *RateGate) Reserve(identity string, class RouteClass) (allowed bool, retryAfter time.Duration) {
	res := g.limiterFor(identity, class).ReserveN(time.Now(), 1)
	if !res.OK() {
		return false, 0
	}
	if delay := res.Delay(); delay > 0 {
		res.Cancel()
		return false, delay
	}
	return true, 0
}

func (g *RateGate) limiterFor(identity string, class RouteClass) *rate.Limiter {
	key := string(class) + "|" + identity

	g.mu.Lock()
	defer g.mu.Unlock()
	if l, ok := g.limiters[key]; ok {
		return l
	}

	perMinute := g.limits.forClass(class)
	if perMinute <= 0 {
		perMinute = 60
	}
	l := rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), perMinute)
	g.limiters[key] = l
	return l
}

// Middleware rate-limits requests in class, keyed by the authenticated
// subject when present and by remote address otherwise.
func (g *RateGate) Middleware(class RouteClass) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := SubjectFromContext(r.Context())
			if identity == "" {
				identity = r.RemoteAddr
			}
			if allowed, retryAfter := g.Reserve(identity, class); !allowed {
				writeTooManyRequests(w, "rate limit exceeded, try again shortly", retryAfter)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
