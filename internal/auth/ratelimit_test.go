package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRateGateAllowsWithinBurstThenBlocks(t *testing.T) {
	g := NewRateGate(RateLimits{Global: 60, Search: 60, Index: 60})
	for i := 0; i < 60; i++ {
		require.True(t, g.Allow("key-1", ClassGlobal), "request %d should be within burst", i)
	}
	require.False(t, g.Allow("key-1", ClassGlobal), "burst exhausted, next request should be denied")
}

func TestRateGateTracksIdentitiesIndependently(t *testing.T) {
	g := NewRateGate(RateLimits{Global: 1, Search: 1, Index: 1})
	require.True(t, g.Allow("key-1", ClassGlobal))
	require.False(t, g.Allow("key-1", ClassGlobal))
	require.True(t, g.Allow("key-2", ClassGlobal), "a different identity has its own budget")
}

func TestRateGateTracksRouteClassesIndependently(t *testing.T) {
	g := NewRateGate(RateLimits{Global: 1, Search: 1, Index: 1})
	require.True(t, g.Allow("key-1", ClassSearch))
	require.False(t, g.Allow("key-1", ClassSearch))
	require.True(t, g.Allow("key-1", ClassIndex), "a different route class has its own budget")
}

func TestRateGateMiddlewareRejectsWithTooManyRequests(t *testing.T) {
	g := NewRateGate(RateLimits{Global: 1})
	handler := g.Middleware(ClassGlobal)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:1234"

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestRateGateReserveReportsRetryAfterOnDenial(t *testing.T) {
	g := NewRateGate(RateLimits{Global: 60})
	allowed, _ := g.Reserve("key-1", ClassGlobal)
	require.True(t, allowed)

	allowed, retryAfter := g.Reserve("key-1", ClassGlobal)
	require.False(t, allowed)
	require.Greater(t, retryAfter.Seconds(), 0.0)
}
