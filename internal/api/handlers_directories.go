package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleAddDirectory(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		writeBadRequest(w, "path query parameter is required")
		return
	}

	entry, err := s.registry.Add(path)
	if err != nil {
		writeErr(w, asAppErr(err))
		return
	}

	taskID, err := s.scheduler.Enqueue(r.Context(), entry.Path)
	if err != nil {
		writeErr(w, asAppErr(err))
		return
	}

	writeData(w, http.StatusAccepted, map[string]any{
		"path":    entry.Path,
		"status":  entry.Status,
		"task_id": taskID,
	})
}

func (s *Server) handleListDirectories(w http.ResponseWriter, r *http.Request) {
	writeData(w, http.StatusOK, map[string]any{"directories": s.registry.List()})
}

func (s *Server) handleDirectoryStatus(w http.ResponseWriter, r *http.Request) {
	path := chi.URLParam(r, "*")
	entry, err := s.registry.Get(path)
	if err != nil {
		writeErr(w, asAppErr(err))
		return
	}

	resp := map[string]any{
		"path":          entry.Path,
		"status":        entry.Status,
		"progress":      entry.Progress,
		"total_files":   entry.TotalFiles,
		"indexed_files": entry.IndexedFiles,
	}
	if entry.LastTaskID != "" {
		resp["task_id"] = entry.LastTaskID
	}
	if entry.LastError != "" {
		resp["message"] = entry.LastError
	}
	writeData(w, http.StatusOK, resp)
}

func (s *Server) handleRefreshDirectory(w http.ResponseWriter, r *http.Request) {
	path := chi.URLParam(r, "*")
	if _, err := s.registry.Get(path); err != nil {
		writeErr(w, asAppErr(err))
		return
	}

	taskID, err := s.scheduler.Enqueue(r.Context(), path)
	if err != nil {
		writeErr(w, asAppErr(err))
		return
	}
	writeData(w, http.StatusAccepted, map[string]string{"task_id": taskID})
}

func (s *Server) handleRemoveDirectory(w http.ResponseWriter, r *http.Request) {
	path := chi.URLParam(r, "*")
	if _, err := s.registry.Get(path); err != nil {
		writeErr(w, asAppErr(err))
		return
	}

	if err := s.scheduler.Purge(r.Context(), path); err != nil {
		writeErr(w, asAppErr(err))
		return
	}
	if err := s.registry.Remove(path); err != nil {
		writeErr(w, asAppErr(err))
		return
	}
	writeData(w, http.StatusOK, map[string]bool{"ok": true})
}
