// Package auth issues and validates API keys, exchanges them for short-lived
// JWTs, and enforces per-key rate limits on the API surface.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"

	"github.com/radhakrish-venkat/desktop-search/internal/apperr"
	"github.com/radhakrish-venkat/desktop-search/internal/domain"
	"github.com/radhakrish-venkat/desktop-search/internal/store"
)

const (
	keyPrefix       = "ds_"
	secretByteLen   = 32
	base62Alphabet  = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
)

// KeyService issues and validates API keys backed by store.ApiKeyStore.
type KeyService struct {
	keys *store.ApiKeyStore
}

// NewKeyService wraps keys.
func NewKeyService(keys *store.ApiKeyStore) *KeyService {
	return &KeyService{keys: keys}
}

// CreateKeyRequest describes a new key.
type CreateKeyRequest struct {
	Name         string
	Description  string
	ExpiresDays  int
	Permissions  []domain.Permission
}

// Create generates a new key, stores only its hash, and returns the
// plaintext secret alongside the stored record. The plaintext is never
// recoverable after this call returns.
func (s *KeyService) Create(ctx context.Context, req CreateKeyRequest) (plaintext string, key domain.ApiKey, err error) {
	if req.Name == "" {
		return "", domain.ApiKey{}, fmt.Errorf("%w: name is required", apperr.ErrInvalidInput)
	}
	if len(req.Permissions) == 0 {
		return "", domain.ApiKey{}, fmt.Errorf("%w: at least one permission is required", apperr.ErrInvalidInput)
	}

	secret, err := generateSecret()
	if err != nil {
		return "", domain.ApiKey{}, fmt.Errorf("generate api key secret: %w", err)
	}
	plaintext = keyPrefix + secret

	var expiresAt *time.Time
	if req.ExpiresDays > 0 {
		t := time.Now().AddDate(0, 0, req.ExpiresDays)
		expiresAt = &t
	}

	key = domain.ApiKey{
		ID:           uuid.NewString(),
		Name:         req.Name,
		Description:  req.Description,
		CreatedAt:    time.Now(),
		ExpiresAt:    expiresAt,
		Permissions:  req.Permissions,
		Active:       true,
		HashedSecret: hashSecret(plaintext),
	}

	if err := s.keys.Create(ctx, key); err != nil {
		return "", domain.ApiKey{}, err
	}
	return plaintext, key, nil
}

// Validate looks up the key behind plaintext and checks it is active and
// unexpired. Returns apperr.ErrUnauthenticated for any failure mode so
// callers can't distinguish "wrong secret" from "expired" from "revoked".
func (s *KeyService) Validate(ctx context.Context, plaintext string) (domain.ApiKey, error) {
	key, err := s.keys.GetByHashedSecret(ctx, hashSecret(plaintext))
	if err != nil {
		if err == apperr.ErrNotFound {
			return domain.ApiKey{}, apperr.ErrUnauthenticated
		}
		return domain.ApiKey{}, err
	}
	if !key.Active {
		return domain.ApiKey{}, apperr.ErrUnauthenticated
	}
	if key.Expired(time.Now()) {
		return domain.ApiKey{}, apperr.ErrUnauthenticated
	}
	return key, nil
}

// List returns every stored key (never their secrets).
func (s *KeyService) List(ctx context.Context) ([]domain.ApiKey, error) {
	return s.keys.List(ctx)
}

// Revoke deactivates a key by id.
func (s *KeyService) Revoke(ctx context.Context, id string) error {
	return s.keys.Revoke(ctx, id)
}

func hashSecret(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}

// generateSecret produces a cryptographically random base62 string, mirroring
// the crypto/rand-backed token generation used elsewhere for one-time secrets.
func generateSecret() (string, error) {
	raw := make([]byte, secretByteLen)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return base62Encode(raw), nil
}

func base62Encode(raw []byte) string {
	n := new(big.Int).SetBytes(raw)
	if n.Sign() == 0 {
		return string(base62Alphabet[0])
	}
	base := big.NewInt(int64(len(base62Alphabet)))
	mod := new(big.Int)
	var out []byte
	for n.Sign() > 0 {
		n.DivMod(n, base, mod)
		out = append(out, base62Alphabet[mod.Int64()])
	}
	// reverse in place
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return string(out)
}
