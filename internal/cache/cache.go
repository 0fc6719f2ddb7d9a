// SPDX-License-Identifier: MIT

// Package cache keeps the latest meter readings available with a TTL, so
// API reads do not depend on poll timing or hub availability.
package cache

import (
	"sync"
	"time"
)

// Readings is one meter's latest readings snapshot.
type Readings struct {
	Address   string             `json:"address"`
	Values    map[string]float64 `json:"values"`
	Units     map[string]string  `json:"units,omitempty"`
	Timestamp time.Time          `json:"timestamp"`
}

// Cache stores per-meter readings with expiration.
type Cache interface {
	// Get returns the readings for a meter. The second return is false when
	// nothing is cached or the entry expired.
	Get(address string) (Readings, bool)
	// Set stores readings with the given TTL.
	Set(r Readings, ttl time.Duration)
	// Delete removes a meter's readings.
	Delete(address string)
	// Clear removes everything.
	Clear()
	// Stats returns cache statistics.
	Stats() Stats
	// Close releases backend resources.
	Close() error
}

// Stats holds cache performance counters.
type Stats struct {
	Hits        int64 `json:"hits"`
	Misses      int64 `json:"misses"`
	Sets        int64 `json:"sets"`
	Evictions   int64 `json:"evictions"`
	CurrentSize int   `json:"current_size"`
}

type entry struct {
	readings   Readings
	expiration time.Time
}

func (e *entry) isExpired() bool {
	return time.Now().After(e.expiration)
}

// memoryCache is the in-process Cache backend.
type memoryCache struct {
	mu      sync.RWMutex
	entries map[string]*entry
	stats   Stats
	janitor *janitor
}

// NewMemoryCache creates an in-memory cache. With a positive
// cleanupInterval a background janitor removes expired entries.
func NewMemoryCache(cleanupInterval time.Duration) Cache {
	c := &memoryCache{entries: make(map[string]*entry)}
	if cleanupInterval > 0 {
		c.janitor = &janitor{
			interval: cleanupInterval,
			stop:     make(chan struct{}),
		}
		go c.janitor.run(c)
	}
	return c
}

func (c *memoryCache) Get(address string) (Readings, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, found := c.entries[address]
	if !found || e.isExpired() {
		c.stats.Misses++
		return Readings{}, false
	}
	c.stats.Hits++
	return e.readings, true
}

func (c *memoryCache) Set(r Readings, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[r.Address] = &entry{
		readings:   r,
		expiration: time.Now().Add(ttl),
	}
	c.stats.Sets++
}

func (c *memoryCache) Delete(address string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, address)
}

func (c *memoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*entry)
}

func (c *memoryCache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	stats := c.stats
	stats.CurrentSize = len(c.entries)
	return stats
}

func (c *memoryCache) Close() error {
	if c.janitor != nil {
		c.janitor.stop <- struct{}{}
	}
	return nil
}

func (c *memoryCache) deleteExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	count := 0
	for address, e := range c.entries {
		if e.isExpired() {
			delete(c.entries, address)
			count++
		}
	}
	c.stats.Evictions += int64(count)
	return count
}

// janitor periodically removes expired entries.
type janitor struct {
	interval time.Duration
	stop     chan struct{}
}

func (j *janitor) run(c *memoryCache) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.deleteExpired()
		case <-j.stop:
			return
		}
	}
}
