package api

import (
	"context"
	"encoding/json"
	"net/http"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReport triggers one full aggregator run, unless a fresh cached
// report exists. A timed-out run still returns the partial report the
// aggregator assembled, so the handler always answers 200.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	if report, ok := s.cache.get(); ok {
		writeJSON(w, http.StatusOK, report)
		return
	}

	ctx := r.Context()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	report := s.builder.BuildReport(ctx, s.accounts)
	s.cache.put(report)
	writeJSON(w, http.StatusOK, report)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
