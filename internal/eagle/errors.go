// SPDX-License-Identifier: MIT

package eagle

import (
	"errors"
	"fmt"
)

var (
	// Sentinel errors for errors.Is checks at the boundary.
	ErrUnavailable = errors.New("hub: host unreachable or transport failure")
	ErrAuth        = errors.New("hub: authentication rejected")
	ErrBadResponse = errors.New("hub: invalid response format or malformed data")
	ErrTimeout     = errors.New("hub: request timed out")
	ErrNotFound    = errors.New("hub: device not found")
)

// HubError is a rich error type that wraps the sentinel errors with context.
type HubError struct {
	Sentinel error
	Command  string
	Status   int
	Body     string
	Err      error // nested lower-level error (e.g. net.Error)
}

func (e *HubError) Error() string {
	msg := fmt.Sprintf("eagle: %s: %v", e.Command, e.Sentinel)
	if e.Status > 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.Status)
	}
	if e.Body != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Body)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *HubError) Unwrap() error {
	return e.Sentinel
}
