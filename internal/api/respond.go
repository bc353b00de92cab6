package api

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"
)

type envelope struct {
	Success bool           `json:"success"`
	Data    any            `json:"data"`
	Meta    map[string]any `json:"meta"`
}

type errorBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    int    `json:"code"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("api: encode response", zap.Error(err))
	}
}

// meta starts the meta block with the timestamp and elapsed query time.
func meta(start time.Time) map[string]any {
	return map[string]any{
		"timestamp":     time.Now().UTC().Format(time.RFC3339),
		"query_time_ms": time.Since(start).Milliseconds(),
	}
}

func writeOK(w http.ResponseWriter, data any, m map[string]any) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: data, Meta: m})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg, Code: status})
}

// dbError logs a failed research query and answers 500.
func (s *Server) dbError(w http.ResponseWriter, r *http.Request, err error) {
	s.log.Error("api: query failed",
		zap.String("path", r.URL.Path),
		zap.String("request_id", RequestIDFrom(r.Context())),
		zap.Error(err),
	)
	writeError(w, http.StatusInternalServerError, "Database error")
}
