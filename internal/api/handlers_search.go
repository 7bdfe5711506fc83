package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/radhakrish-venkat/desktop-search/internal/domain"
)

type searchRequest struct {
	Query      string  `json:"query"`
	SearchType string  `json:"search_type"`
	Limit      int     `json:"limit"`
	Threshold  float64 `json:"threshold"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	if req.Query == "" {
		writeBadRequest(w, "query is required")
		return
	}
	if req.Limit <= 0 {
		req.Limit = 10
	}
	if req.Threshold <= 0 {
		req.Threshold = 0.3
	}

	kind := domain.SearchKind(req.SearchType)
	switch kind {
	case domain.SearchKeyword, domain.SearchSemantic, domain.SearchHybrid:
	default:
		kind = domain.SearchKeyword
	}

	started := time.Now()
	results, err := s.search.Search(r.Context(), req.Query, kind, req.Limit, req.Threshold)
	if err != nil {
		writeErr(w, asAppErr(err))
		return
	}

	writeData(w, http.StatusOK, map[string]any{
		"query":           req.Query,
		"search_type":     kind,
		"results":         results,
		"total_results":   len(results),
		"search_time_ms":  time.Since(started).Milliseconds(),
	})
}
