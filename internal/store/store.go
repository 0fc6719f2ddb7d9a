// SPDX-License-Identifier: MIT

// Package store persists the last known device state across restarts.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/neggles/eagle3d/internal/eagle"
)

// ErrNotFound is returned when no record exists for an address.
var ErrNotFound = errors.New("store: record not found")

// DeviceRecord is the persisted snapshot of one device.
type DeviceRecord struct {
	Device    eagle.Device     `json:"device"`
	Variables []eagle.Variable `json:"variables,omitempty"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// StateStore persists device records keyed by hardware address.
type StateStore interface {
	Put(ctx context.Context, rec DeviceRecord) error
	Get(ctx context.Context, address string) (DeviceRecord, error)
	List(ctx context.Context) ([]DeviceRecord, error)
	Delete(ctx context.Context, address string) error
	Close() error
}

// Open creates a StateStore for the configured backend.
func Open(backend, path string) (StateStore, error) {
	switch backend {
	case "", "memory":
		return NewMemoryStore(), nil
	case "badger":
		return OpenBadgerStore(path)
	default:
		return nil, fmt.Errorf("store: unknown backend %q", backend)
	}
}
