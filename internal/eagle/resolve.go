// SPDX-License-Identifier: MIT

package eagle

import (
	"context"
	"net"
	"strings"

	xlog "github.com/neggles/eagle3d/internal/log"
)

// LookupFunc resolves a hostname to addresses. It matches the signature of
// net.DefaultResolver.LookupHost so tests can inject a fake.
type LookupFunc func(ctx context.Context, host string) ([]string, error)

// hubSuffixes are tried in order when a bare hub name does not resolve.
var hubSuffixes = []string{"", ".local", ".lan", ".home"}

// ResolveHost resolves a hub hostname, retrying with common LAN suffixes when
// the bare name fails. It returns the name that resolved and its first
// address; when nothing resolves it returns the input host and an empty
// address so callers can still attempt a direct connection.
func ResolveHost(ctx context.Context, host string, lookup LookupFunc) (string, string) {
	if lookup == nil {
		lookup = net.DefaultResolver.LookupHost
	}
	logger := xlog.WithComponentFromContext(ctx, "eagle")

	// An IP literal needs no resolution.
	if ip := net.ParseIP(host); ip != nil {
		return host, host
	}

	// A dotted name is tried as-is first; on failure fall back to the bare
	// first label plus suffixes.
	base := host
	if strings.Contains(host, ".") {
		if addrs, err := lookup(ctx, host); err == nil && len(addrs) > 0 {
			return host, addrs[0]
		}
		logger.Warn().
			Str(xlog.FieldHost, host).
			Msg("hostname did not resolve, trying LAN suffixes")
		base = strings.SplitN(host, ".", 2)[0]
	}

	for _, suffix := range hubSuffixes {
		candidate := base + suffix
		if addrs, err := lookup(ctx, candidate); err == nil && len(addrs) > 0 {
			logger.Info().
				Str(xlog.FieldHost, candidate).
				Str("addr", addrs[0]).
				Msg("resolved hub host")
			return candidate, addrs[0]
		}
	}

	logger.Warn().
		Str(xlog.FieldHost, host).
		Msg("hub host did not resolve with any suffix")
	return host, ""
}
