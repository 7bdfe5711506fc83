package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/radhakrish-venkat/desktop-search/internal/domain"
)

var testSecret = []byte("test-secret-do-not-use-in-prod")

func TestSignAndParseAccessTokenRoundTrips(t *testing.T) {
	key := domain.ApiKey{ID: "key-1", Permissions: []domain.Permission{domain.PermSearch, domain.PermRead}}
	tok, expiresAt, err := SignAccessToken(key, testSecret)
	require.NoError(t, err)
	require.WithinDuration(t, time.Now().Add(AccessTokenTTL), expiresAt, time.Second)

	sub, perms, err := ParseAccessToken(tok, testSecret)
	require.NoError(t, err)
	require.Equal(t, "key-1", sub)
	require.ElementsMatch(t, []domain.Permission{domain.PermSearch, domain.PermRead}, perms)
}

func TestParseAccessTokenRejectsWrongSecret(t *testing.T) {
	key := domain.ApiKey{ID: "key-1", Permissions: []domain.Permission{domain.PermRead}}
	tok, _, err := SignAccessToken(key, testSecret)
	require.NoError(t, err)

	_, _, err = ParseAccessToken(tok, []byte("a-different-secret"))
	require.Error(t, err)
}

func TestMiddlewareRejectsMissingAndInvalidTokens(t *testing.T) {
	keys := newTestKeyService(t)
	handler := Middleware(testSecret, keys)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMiddlewareAcceptsValidTokenAndRequirePermissionEnforces(t *testing.T) {
	keys := newTestKeyService(t)
	key := domain.ApiKey{ID: "key-1", Permissions: []domain.Permission{domain.PermSearch}}
	tok, _, err := SignAccessToken(key, testSecret)
	require.NoError(t, err)

	handler := Middleware(testSecret, keys)(RequirePermission(domain.PermIndex)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code, "key lacks index permission")

	handler = Middleware(testSecret, keys)(RequirePermission(domain.PermSearch)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRequirePermissionAdminSatisfiesEverything(t *testing.T) {
	keys := newTestKeyService(t)
	key := domain.ApiKey{ID: "key-1", Permissions: []domain.Permission{domain.PermAdmin}}
	tok, _, err := SignAccessToken(key, testSecret)
	require.NoError(t, err)

	handler := Middleware(testSecret, keys)(RequirePermission(domain.PermIndex)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestMiddlewareAcceptsRawApiKeyWithoutJWTExchange(t *testing.T) {
	keys := newTestKeyService(t)
	plaintext, _, err := keys.Create(context.Background(), CreateKeyRequest{
		Name:        "raw-key-caller",
		Permissions: []domain.Permission{domain.PermSearch},
	})
	require.NoError(t, err)

	handler := Middleware(testSecret, keys)(RequirePermission(domain.PermSearch)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("Authorization", "Bearer "+plaintext)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestMiddlewareRejectsRevokedRawApiKey(t *testing.T) {
	keys := newTestKeyService(t)
	plaintext, key, err := keys.Create(context.Background(), CreateKeyRequest{
		Name:        "revoked-key-caller",
		Permissions: []domain.Permission{domain.PermSearch},
	})
	require.NoError(t, err)
	require.NoError(t, keys.Revoke(context.Background(), key.ID))

	handler := Middleware(testSecret, keys)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("Authorization", "Bearer "+plaintext)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
