// SPDX-License-Identifier: MIT

// Package api serves the daemon's REST surface: device and meter state,
// reading history, refresh control and the health probes.
package api

import (
	"encoding/json"
	"net/http"

	xlog "github.com/neggles/eagle3d/internal/log"
)

// errorResponse is the JSON error envelope every handler uses.
type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		l := xlog.WithComponentFromContext(r.Context(), "api")
		l.Error().Err(err).Str(xlog.FieldEvent, "api.encode_error").Msg("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, errorResponse{
		Error:     msg,
		RequestID: xlog.RequestIDFromContext(r.Context()),
	})
}
