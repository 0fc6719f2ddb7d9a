// SPDX-License-Identifier: MIT

// Package middleware provides HTTP middleware for the API server.
package middleware

import (
	"net/http"

	"github.com/google/uuid"

	xlog "github.com/neggles/eagle3d/internal/log"
)

// HeaderRequestID is the request correlation header honored and emitted by
// the API.
const HeaderRequestID = "X-Request-Id"

// RequestID attaches a correlation ID to every request: an incoming header
// is reused, otherwise a fresh uuid is generated. The ID is echoed in the
// response and stored in the request context for logging.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get(HeaderRequestID)
		if reqID == "" {
			reqID = uuid.New().String()
		}
		w.Header().Set(HeaderRequestID, reqID)
		ctx := xlog.ContextWithRequestID(r.Context(), reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
