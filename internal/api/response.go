package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/radhakrish-venkat/desktop-search/internal/apperr"
)

// envelope is the shape of every JSON response, success or failure.
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

func writeOK(w http.ResponseWriter, message string, data any) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: message, Data: data})
}

func writeErr(w http.ResponseWriter, err error) {
	status := apperr.HTTPStatus(err)
	writeJSON(w, status, envelope{Success: false, Message: err.Error(), Error: err.Error()})
}

func writeBadRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, envelope{Success: false, Message: message, Error: message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// asAppErr unwraps err to one of apperr's sentinels when possible, falling
// back to apperr.ErrInternal so handlers never leak raw storage errors.
func asAppErr(err error) error {
	for _, sentinel := range []error{
		apperr.ErrNotFound, apperr.ErrAlreadyExists, apperr.ErrInvalidInput,
		apperr.ErrUnsupportedType, apperr.ErrTooLarge, apperr.ErrContentRejected,
		apperr.ErrEmbedderUnavailable, apperr.ErrChunkStoreUnavailable,
		apperr.ErrUnauthenticated, apperr.ErrForbidden, apperr.ErrConflict,
		apperr.ErrRateLimited,
	} {
		if errors.Is(err, sentinel) {
			return err
		}
	}
	return apperr.ErrInternal
}
