package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/radhakrish-venkat/desktop-search/internal/apperr"
	"github.com/radhakrish-venkat/desktop-search/internal/domain"
)

// AccessTokenTTL is how long a JWT issued by Login stays valid.
const AccessTokenTTL = 30 * time.Minute

type subjectKey struct{}
type permissionsKey struct{}

// SignAccessToken issues a JWT carrying the key's id as subject and its
// permissions as a claim, signed with secret.
func SignAccessToken(key domain.ApiKey, secret []byte) (string, time.Time, error) {
	expiresAt := time.Now().Add(AccessTokenTTL)
	perms := make([]string, len(key.Permissions))
	for i, p := range key.Permissions {
		perms[i] = string(p)
	}
	claims := jwt.MapClaims{
		"sub":         key.ID,
		"exp":         expiresAt.Unix(),
		"permissions": perms,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign access token: %w", err)
	}
	return signed, expiresAt, nil
}

// ParseAccessToken validates tok against secret and returns the subject
// (key id) and permissions it carries.
func ParseAccessToken(tok string, secret []byte) (subject string, permissions []domain.Permission, err error) {
	parsed, err := jwt.Parse(tok, func(t *jwt.Token) (interface{}, error) { return secret, nil })
	if err != nil || !parsed.Valid {
		return "", nil, apperr.ErrUnauthenticated
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return "", nil, apperr.ErrUnauthenticated
	}
	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", nil, apperr.ErrUnauthenticated
	}
	if raw, ok := claims["permissions"].([]interface{}); ok {
		for _, r := range raw {
			if s, ok := r.(string); ok {
				permissions = append(permissions, domain.Permission(s))
			}
		}
	}
	return sub, permissions, nil
}

// Middleware validates a Bearer credential on every request, rejecting
// requests without one, and stashes the subject and permissions in the
// request context for downstream handlers and RequirePermission to
// consult. JWT exchange via Login is optional: the credential may be
// either an exchanged JWT or a raw "ds_"-prefixed API key presented
// directly, so keys is validated against whenever the prefix matches.
func Middleware(secret []byte, keys *KeyService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok := extractBearerToken(r)
			if tok == "" {
				writeUnauthorized(w, "missing bearer token")
				return
			}

			var sub string
			var perms []domain.Permission

			if strings.HasPrefix(tok, keyPrefix) {
				key, err := keys.Validate(r.Context(), tok)
				if err != nil {
					writeUnauthorized(w, "invalid or expired api key")
					return
				}
				sub, perms = key.ID, key.Permissions
			} else {
				var err error
				sub, perms, err = ParseAccessToken(tok, secret)
				if err != nil {
					writeUnauthorized(w, "invalid or expired token")
					return
				}
			}

			ctx := context.WithValue(r.Context(), subjectKey{}, sub)
			ctx = context.WithValue(ctx, permissionsKey{}, perms)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequirePermission rejects any request whose token doesn't carry perm
// (admin implicitly satisfies every permission).
func RequirePermission(perm domain.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			perms, _ := r.Context().Value(permissionsKey{}).([]domain.Permission)
			if !hasPermission(perms, perm) && !hasPermission(perms, domain.PermAdmin) {
				writeForbidden(w, fmt.Sprintf("missing required permission: %s", perm))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// SubjectFromContext returns the API key id embedded in a validated token.
func SubjectFromContext(ctx context.Context) string {
	sub, _ := ctx.Value(subjectKey{}).(string)
	return sub
}

func hasPermission(perms []domain.Permission, want domain.Permission) bool {
	for _, p := range perms {
		if p == want {
			return true
		}
	}
	return false
}

func extractBearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}
