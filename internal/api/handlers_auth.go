package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/radhakrish-venkat/desktop-search/internal/auth"
	"github.com/radhakrish-venkat/desktop-search/internal/domain"
)

type createKeyRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	ExpiresDays int      `json:"expires_days"`
	Permissions []string `json:"permissions"`
}

type apiKeyView struct {
	ID          string    `json:"key_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Permissions []string  `json:"permissions"`
	Active      bool      `json:"active"`
	CreatedAt   string    `json:"created_at"`
	ExpiresAt   *string   `json:"expires_at,omitempty"`
}

func toKeyView(k domain.ApiKey) apiKeyView {
	perms := make([]string, len(k.Permissions))
	for i, p := range k.Permissions {
		perms[i] = string(p)
	}
	v := apiKeyView{
		ID:          k.ID,
		Name:        k.Name,
		Description: k.Description,
		Permissions: perms,
		Active:      k.Active,
		CreatedAt:   k.CreatedAt.Format(timeFormat),
	}
	if k.ExpiresAt != nil {
		s := k.ExpiresAt.Format(timeFormat)
		v.ExpiresAt = &s
	}
	return v
}

const timeFormat = "2006-01-02T15:04:05Z07:00"

func (s *Server) handleCreateKey(w http.ResponseWriter, r *http.Request) {
	var req createKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	perms := make([]domain.Permission, len(req.Permissions))
	for i, p := range req.Permissions {
		perms[i] = domain.Permission(p)
	}

	plaintext, key, err := s.keys.Create(r.Context(), auth.CreateKeyRequest{
		Name:        req.Name,
		Description: req.Description,
		ExpiresDays: req.ExpiresDays,
		Permissions: perms,
	})
	if err != nil {
		writeErr(w, asAppErr(err))
		return
	}

	writeData(w, http.StatusCreated, map[string]any{
		"api_key":  plaintext,
		"key_info": toKeyView(key),
	})
}

func (s *Server) handleListKeys(w http.ResponseWriter, r *http.Request) {
	keys, err := s.keys.List(r.Context())
	if err != nil {
		writeErr(w, asAppErr(err))
		return
	}
	views := make([]apiKeyView, len(keys))
	for i, k := range keys {
		views[i] = toKeyView(k)
	}
	writeData(w, http.StatusOK, map[string]any{"keys": views})
}

func (s *Server) handleRevokeKey(w http.ResponseWriter, r *http.Request) {
	keyID := chi.URLParam(r, "key_id")
	if err := s.keys.Revoke(r.Context(), keyID); err != nil {
		writeErr(w, asAppErr(err))
		return
	}
	writeData(w, http.StatusOK, map[string]bool{"ok": true})
}

type validateKeyRequest struct {
	ApiKey string `json:"api_key"`
}

func (s *Server) handleValidateKey(w http.ResponseWriter, r *http.Request) {
	var req validateKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	key, err := s.keys.Validate(r.Context(), req.ApiKey)
	if err != nil {
		writeErr(w, asAppErr(err))
		return
	}
	writeData(w, http.StatusOK, map[string]any{"key_info": toKeyView(key)})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req validateKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	key, err := s.keys.Validate(r.Context(), req.ApiKey)
	if err != nil {
		writeErr(w, asAppErr(err))
		return
	}

	token, expiresAt, err := auth.SignAccessToken(key, s.jwtSecret)
	if err != nil {
		writeErr(w, asAppErr(err))
		return
	}

	writeData(w, http.StatusOK, map[string]any{
		"access_token": token,
		"token_type":   "bearer",
		"expires_in":   int(time.Until(expiresAt).Seconds()),
	})
}
