// SPDX-License-Identifier: MIT

package daemon

import (
	"net/http"

	"github.com/rs/zerolog"
)

// Deps contains the dependencies the daemon Manager serves. Keeping them
// in one struct makes wiring explicit and tests cheap.
type Deps struct {
	// Logger is the structured logger for the daemon.
	Logger zerolog.Logger

	// APIHandler serves the REST API and the health probes.
	APIHandler http.Handler

	// MetricsHandler serves Prometheus metrics on its own listener.
	// Nil disables the metrics server.
	MetricsHandler http.Handler

	// MetricsAddr is the metrics listener address. Empty disables the
	// metrics server even when a handler is set.
	MetricsAddr string
}

// Validate checks that the required dependencies are present.
func (d Deps) Validate() error {
	if d.APIHandler == nil {
		return ErrMissingAPIHandler
	}
	return nil
}
