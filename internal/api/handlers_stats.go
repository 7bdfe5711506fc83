package api

import "net/http"

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	chunkStats, err := s.chunks.Stats(r.Context())
	if err != nil {
		writeErr(w, asAppErr(err))
		return
	}

	dirs := s.registry.List()
	var indexed, indexing, errored, totalFiles int
	for _, d := range dirs {
		totalFiles += d.TotalFiles
		switch d.Status {
		case "indexed":
			indexed++
		case "indexing":
			indexing++
		case "error":
			errored++
		}
	}

	writeData(w, http.StatusOK, map[string]any{
		"total_chunks":         chunkStats.TotalChunks,
		"vector_dimension":     chunkStats.Dimension,
		"directories_total":    len(dirs),
		"directories_indexed":  indexed,
		"directories_indexing": indexing,
		"directories_error":    errored,
		"total_files":          totalFiles,
	})
}
