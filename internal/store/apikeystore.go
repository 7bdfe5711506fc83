package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/radhakrish-venkat/desktop-search/internal/apperr"
	"github.com/radhakrish-venkat/desktop-search/internal/domain"
)

// ApiKeyStore persists API key records.
type ApiKeyStore struct {
	db *DB
}

// NewApiKeyStore wraps db.
func NewApiKeyStore(db *DB) *ApiKeyStore {
	return &ApiKeyStore{db: db}
}

// Create inserts a new key. Returns apperr.ErrConflict if the name is taken.
func (s *ApiKeyStore) Create(ctx context.Context, key domain.ApiKey) error {
	perms := permissionsToString(key.Permissions)
	_, err := s.db.Conn.ExecContext(ctx, `
		INSERT INTO api_keys (id, name, description, created_at, expires_at, permissions, active, hashed_secret)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, key.ID, key.Name, key.Description, key.CreatedAt, key.ExpiresAt, perms, boolToInt(key.Active), key.HashedSecret)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return apperr.ErrConflict
		}
		return fmt.Errorf("insert api key: %w", err)
	}
	return nil
}

// GetByHashedSecret looks up an active-or-not key by its secret hash.
func (s *ApiKeyStore) GetByHashedSecret(ctx context.Context, hashed string) (domain.ApiKey, error) {
	row := s.db.Conn.QueryRowContext(ctx, `
		SELECT id, name, description, created_at, expires_at, permissions, active, hashed_secret
		FROM api_keys WHERE hashed_secret = ?`, hashed)
	return scanApiKey(row)
}

// Get looks up a key by id.
func (s *ApiKeyStore) Get(ctx context.Context, id string) (domain.ApiKey, error) {
	row := s.db.Conn.QueryRowContext(ctx, `
		SELECT id, name, description, created_at, expires_at, permissions, active, hashed_secret
		FROM api_keys WHERE id = ?`, id)
	return scanApiKey(row)
}

// List returns every key, most recently created first.
func (s *ApiKeyStore) List(ctx context.Context) ([]domain.ApiKey, error) {
	rows, err := s.db.Conn.QueryContext(ctx, `
		SELECT id, name, description, created_at, expires_at, permissions, active, hashed_secret
		FROM api_keys ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ApiKey
	for rows.Next() {
		k, err := scanApiKeyRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, rows.Err()
}

// Revoke soft-deletes a key by setting active=false.
func (s *ApiKeyStore) Revoke(ctx context.Context, id string) error {
	res, err := s.db.Conn.ExecContext(ctx, `UPDATE api_keys SET active = 0 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("revoke api key: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func permissionsToString(perms []domain.Permission) string {
	parts := make([]string, len(perms))
	for i, p := range perms {
		parts[i] = string(p)
	}
	return strings.Join(parts, ",")
}

func permissionsFromString(s string) []domain.Permission {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]domain.Permission, len(parts))
	for i, p := range parts {
		out[i] = domain.Permission(p)
	}
	return out
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanApiKey(row *sql.Row) (domain.ApiKey, error) {
	k, err := scanApiKeyGeneric(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ApiKey{}, apperr.ErrNotFound
	}
	return k, err
}

func scanApiKeyRows(rows *sql.Rows) (domain.ApiKey, error) {
	return scanApiKeyGeneric(rows)
}

func scanApiKeyGeneric(s rowScanner) (domain.ApiKey, error) {
	var k domain.ApiKey
	var description sql.NullString
	var expiresAt sql.NullTime
	var perms string
	var active int

	if err := s.Scan(&k.ID, &k.Name, &description, &k.CreatedAt, &expiresAt, &perms, &active, &k.HashedSecret); err != nil {
		return domain.ApiKey{}, err
	}

	k.Description = description.String
	if expiresAt.Valid {
		t := expiresAt.Time
		k.ExpiresAt = &t
	}
	k.Permissions = permissionsFromString(perms)
	k.Active = active != 0
	return k, nil
}
