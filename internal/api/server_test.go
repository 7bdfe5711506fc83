package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/radhakrish-venkat/desktop-search/internal/auth"
	"github.com/radhakrish-venkat/desktop-search/internal/chunk"
	"github.com/radhakrish-venkat/desktop-search/internal/config"
	"github.com/radhakrish-venkat/desktop-search/internal/domain"
	"github.com/radhakrish-venkat/desktop-search/internal/embed/hashing"
	"github.com/radhakrish-venkat/desktop-search/internal/extract"
	"github.com/radhakrish-venkat/desktop-search/internal/index"
	"github.com/radhakrish-venkat/desktop-search/internal/ledger"
	"github.com/radhakrish-venkat/desktop-search/internal/registry"
	"github.com/radhakrish-venkat/desktop-search/internal/scheduler"
	"github.com/radhakrish-venkat/desktop-search/internal/search"
	"github.com/radhakrish-venkat/desktop-search/internal/store"
)

func newTestServer(t *testing.T) (*Server, *auth.KeyService) {
	t.Helper()
	return newTestServerWithAdminKey(t, "test-admin-secret")
}

func newTestServerWithAdminKey(t *testing.T, adminKey string) (*Server, *auth.KeyService) {
	t.Helper()
	dir := t.TempDir()

	db, err := store.Open(dir)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	chunks, err := store.NewChunkStore(db)
	require.NoError(t, err)
	lexical := index.New(db)
	reg := registry.New(dir + "/registry.json")
	led := ledger.New(db)
	embedder := hashing.New(16)

	sched := scheduler.New(scheduler.Config{
		DB:        db,
		Registry:  reg,
		Ledger:    led,
		Chunks:    chunks,
		Lexical:   lexical,
		Extractor: extract.NewRegistry(50 * 1024 * 1024),
		Embedder:  embedder,
		Chunker:   chunk.New(),
	})
	svc := search.New(lexical, chunks, embedder)
	keys := auth.NewKeyService(store.NewApiKeyStore(db))

	cfg := config.Default()
	cfg.JWTSecret = "test-secret"
	cfg.AdminKey = adminKey

	srv := New(Deps{
		Config:    cfg,
		Registry:  reg,
		Scheduler: sched,
		Search:    svc,
		Keys:      keys,
		Chunks:    chunks,
	})
	return srv, keys
}

func TestHealthAndInfoAreUnauthenticated(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/info", nil)
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestSearchRequiresAuthentication(t *testing.T) {
	srv, _ := newTestServer(t)

	body, _ := json.Marshal(searchRequest{Query: "hello"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/searcher/search", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginThenSearchSucceedsWithSearchPermission(t *testing.T) {
	srv, keys := newTestServer(t)

	plaintext, _, err := keys.Create(context.Background(), auth.CreateKeyRequest{
		Name:        "searcher",
		Permissions: []domain.Permission{domain.PermSearch},
	})
	require.NoError(t, err)

	loginBody, _ := json.Marshal(validateKeyRequest{ApiKey: plaintext})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(loginBody))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var loginResp envelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&loginResp))
	data := loginResp.Data.(map[string]any)
	token := data["access_token"].(string)
	require.NotEmpty(t, token)

	searchBody, _ := json.Marshal(searchRequest{Query: "hello", SearchType: "keyword"})
	req = httptest.NewRequest(http.MethodPost, "/api/v1/searcher/search", bytes.NewReader(searchBody))
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateKeyRequiresAdminPermission(t *testing.T) {
	srv, keys := newTestServer(t)

	plaintext, _, err := keys.Create(context.Background(), auth.CreateKeyRequest{
		Name:        "non-admin",
		Permissions: []domain.Permission{domain.PermSearch},
	})
	require.NoError(t, err)

	loginBody, _ := json.Marshal(validateKeyRequest{ApiKey: plaintext})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(loginBody))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	var loginResp envelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&loginResp))
	token := loginResp.Data.(map[string]any)["access_token"].(string)

	createBody, _ := json.Marshal(createKeyRequest{Name: "new-key", Permissions: []string{"read"}})
	req = httptest.NewRequest(http.MethodPost, "/api/v1/auth/create-key", bytes.NewReader(createBody))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set(auth.AdminKeyHeader, "test-admin-secret")
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCreateKeyRejectsMissingAdminKeyHeader(t *testing.T) {
	srv, keys := newTestServer(t)

	plaintext, _, err := keys.Create(context.Background(), auth.CreateKeyRequest{
		Name:        "admin-caller",
		Permissions: []domain.Permission{domain.PermAdmin},
	})
	require.NoError(t, err)

	loginBody, _ := json.Marshal(validateKeyRequest{ApiKey: plaintext})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(loginBody))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	var loginResp envelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&loginResp))
	token := loginResp.Data.(map[string]any)["access_token"].(string)

	createBody, _ := json.Marshal(createKeyRequest{Name: "new-key", Permissions: []string{"read"}})
	req = httptest.NewRequest(http.MethodPost, "/api/v1/auth/create-key", bytes.NewReader(createBody))
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code, "no X-Admin-Key header presented")

	req.Header.Set(auth.AdminKeyHeader, "wrong-secret")
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code, "wrong X-Admin-Key header")
}

func TestCreateKeyDisabledWhenNoAdminKeyConfigured(t *testing.T) {
	srv, keys := newTestServerWithAdminKey(t, "")

	plaintext, _, err := keys.Create(context.Background(), auth.CreateKeyRequest{
		Name:        "admin-caller",
		Permissions: []domain.Permission{domain.PermAdmin},
	})
	require.NoError(t, err)

	loginBody, _ := json.Marshal(validateKeyRequest{ApiKey: plaintext})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(loginBody))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	var loginResp envelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&loginResp))
	token := loginResp.Data.(map[string]any)["access_token"].(string)

	createBody, _ := json.Marshal(createKeyRequest{Name: "new-key", Permissions: []string{"read"}})
	req = httptest.NewRequest(http.MethodPost, "/api/v1/auth/create-key", bytes.NewReader(createBody))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set(auth.AdminKeyHeader, "anything")
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAddDirectoryEnqueuesIndexingTask(t *testing.T) {
	srv, keys := newTestServer(t)
	dir := t.TempDir()

	plaintext, _, err := keys.Create(context.Background(), auth.CreateKeyRequest{
		Name:        "indexer",
		Permissions: []domain.Permission{domain.PermIndex},
	})
	require.NoError(t, err)

	loginBody, _ := json.Marshal(validateKeyRequest{ApiKey: plaintext})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(loginBody))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	var loginResp envelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&loginResp))
	token := loginResp.Data.(map[string]any)["access_token"].(string)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/directories/add?path="+dir, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusAccepted, rec.Code)
}
