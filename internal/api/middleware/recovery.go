// SPDX-License-Identifier: MIT

package middleware

import (
	"encoding/json"
	"net/http"
	"runtime"

	xlog "github.com/neggles/eagle3d/internal/log"
)

// Recoverer keeps panics in downstream handlers from crashing the daemon.
// The panic is logged with its stack and the client gets a 500 JSON body.
func Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				buf := make([]byte, 8192)
				n := runtime.Stack(buf, false)

				reqID := xlog.RequestIDFromContext(r.Context())
				logger := xlog.WithComponentFromContext(r.Context(), "panic-recovery")
				logger.Error().
					Str(xlog.FieldEvent, "panic.recovered").
					Str("method", r.Method).
					Str(xlog.FieldPath, r.URL.Path).
					Str("remote_addr", r.RemoteAddr).
					Str(xlog.FieldRequestID, reqID).
					Interface("panic_value", rec).
					Str("stack_trace", string(buf[:n])).
					Msg("panic recovered in HTTP handler")

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_ = json.NewEncoder(w).Encode(map[string]any{
					"error":      "internal server error",
					"request_id": reqID,
				})
			}
		}()

		next.ServeHTTP(w, r)
	})
}
