package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/radhakrish-venkat/desktop-search/internal/apperr"
	"github.com/radhakrish-venkat/desktop-search/internal/domain"
)

func newTestApiKeyStore(t *testing.T) *ApiKeyStore {
	t.Helper()

	db, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewApiKeyStore(db)
}

func testApiKey(id, name, hashedSecret string) domain.ApiKey {
	return domain.ApiKey{
		ID:           id,
		Name:         name,
		Description:  "test key",
		CreatedAt:    time.Now().UTC().Truncate(time.Second),
		Permissions:  []domain.Permission{domain.PermSearch, domain.PermRead},
		Active:       true,
		HashedSecret: hashedSecret,
	}
}

func TestCreateAndGetRoundTripsApiKey(t *testing.T) {
	s := newTestApiKeyStore(t)
	ctx := context.Background()

	key := testApiKey("k1", "ci-key", "hash1")
	require.NoError(t, s.Create(ctx, key))

	got, err := s.Get(ctx, "k1")
	require.NoError(t, err)
	require.Equal(t, key.Name, got.Name)
	require.Equal(t, key.Description, got.Description)
	require.True(t, got.Active)
	require.ElementsMatch(t, key.Permissions, got.Permissions)
	require.Nil(t, got.ExpiresAt)
}

func TestCreateRejectsDuplicateName(t *testing.T) {
	s := newTestApiKeyStore(t)
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, testApiKey("k1", "dup-name", "hash1")))
	err := s.Create(ctx, testApiKey("k2", "dup-name", "hash2"))
	require.ErrorIs(t, err, apperr.ErrConflict)
}

func TestCreatePersistsExpiresAt(t *testing.T) {
	s := newTestApiKeyStore(t)
	ctx := context.Background()

	expires := time.Now().Add(24 * time.Hour).UTC().Truncate(time.Second)
	key := testApiKey("k1", "expiring", "hash1")
	key.ExpiresAt = &expires
	require.NoError(t, s.Create(ctx, key))

	got, err := s.Get(ctx, "k1")
	require.NoError(t, err)
	require.NotNil(t, got.ExpiresAt)
	require.WithinDuration(t, expires, *got.ExpiresAt, time.Second)
}

func TestGetByHashedSecretFindsMatchingKey(t *testing.T) {
	s := newTestApiKeyStore(t)
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, testApiKey("k1", "findme", "unique-hash")))

	got, err := s.GetByHashedSecret(ctx, "unique-hash")
	require.NoError(t, err)
	require.Equal(t, "k1", got.ID)
}

func TestGetByHashedSecretNotFound(t *testing.T) {
	s := newTestApiKeyStore(t)

	_, err := s.GetByHashedSecret(context.Background(), "no-such-hash")
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestGetNotFound(t *testing.T) {
	s := newTestApiKeyStore(t)

	_, err := s.Get(context.Background(), "no-such-id")
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestListOrdersMostRecentFirst(t *testing.T) {
	s := newTestApiKeyStore(t)
	ctx := context.Background()

	older := testApiKey("k1", "older", "h1")
	older.CreatedAt = time.Now().Add(-time.Hour).UTC().Truncate(time.Second)
	require.NoError(t, s.Create(ctx, older))

	newer := testApiKey("k2", "newer", "h2")
	newer.CreatedAt = time.Now().UTC().Truncate(time.Second)
	require.NoError(t, s.Create(ctx, newer))

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "k2", list[0].ID)
	require.Equal(t, "k1", list[1].ID)
}

func TestRevokeDeactivatesKey(t *testing.T) {
	s := newTestApiKeyStore(t)
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, testApiKey("k1", "revokeme", "h1")))
	require.NoError(t, s.Revoke(ctx, "k1"))

	got, err := s.Get(ctx, "k1")
	require.NoError(t, err)
	require.False(t, got.Active)
}

func TestRevokeMissingKeyReturnsNotFound(t *testing.T) {
	s := newTestApiKeyStore(t)

	err := s.Revoke(context.Background(), "does-not-exist")
	require.ErrorIs(t, err, apperr.ErrNotFound)
}
