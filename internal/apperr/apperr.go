// Package apperr defines the sentinel error taxonomy shared by the
// indexing pipeline and the API surface, and maps it to HTTP status codes.
package apperr

import (
	"errors"
	"net/http"
)

var (
	ErrNotFound             = errors.New("not found")
	ErrAlreadyExists        = errors.New("already exists")
	ErrInvalidInput         = errors.New("invalid input")
	ErrNotImplemented       = errors.New("not implemented")
	ErrUnsupportedType      = errors.New("unsupported type")
	ErrTooLarge             = errors.New("file too large")
	ErrContentRejected      = errors.New("content rejected by policy")
	ErrEmbedderUnavailable  = errors.New("embedding service unavailable")
	ErrChunkStoreUnavailable = errors.New("chunk store unavailable")
	ErrUnauthenticated      = errors.New("unauthenticated")
	ErrForbidden            = errors.New("forbidden")
	ErrConflict             = errors.New("conflict")
	ErrRateLimited          = errors.New("rate limited")
	ErrInternal             = errors.New("internal error")
)

// HTTPStatus maps an error kind to the status code prescribed for the API
// surface. Unrecognised errors map to 500.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrUnsupportedType):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict), errors.Is(err, ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrEmbedderUnavailable), errors.Is(err, ErrChunkStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
