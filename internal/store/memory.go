// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is an in-process StateStore. State does not survive restarts;
// it exists for development and as the default backend.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]DeviceRecord
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]DeviceRecord)}
}

func (s *MemoryStore) Put(_ context.Context, rec DeviceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.Device.HardwareAddress] = rec
	return nil
}

func (s *MemoryStore) Get(_ context.Context, address string) (DeviceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[address]
	if !ok {
		return DeviceRecord{}, ErrNotFound
	}
	return rec, nil
}

func (s *MemoryStore) List(_ context.Context) ([]DeviceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]DeviceRecord, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Device.HardwareAddress < out[j].Device.HardwareAddress
	})
	return out, nil
}

func (s *MemoryStore) Delete(_ context.Context, address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[address]; !ok {
		return ErrNotFound
	}
	delete(s.records, address)
	return nil
}

func (s *MemoryStore) Close() error { return nil }
