package auth

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"
)

type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	writeEnvelope(w, http.StatusUnauthorized, message)
}

func writeForbidden(w http.ResponseWriter, message string) {
	writeEnvelope(w, http.StatusForbidden, message)
}

func writeTooManyRequests(w http.ResponseWriter, message string, retryAfter time.Duration) {
	seconds := int(retryAfter.Round(time.Second).Seconds())
	if seconds < 1 {
		seconds = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(seconds))
	writeEnvelope(w, http.StatusTooManyRequests, message)
}

func writeServiceUnavailable(w http.ResponseWriter, message string) {
	writeEnvelope(w, http.StatusServiceUnavailable, message)
}

func writeEnvelope(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(envelope{Success: false, Message: message, Error: message})
}
