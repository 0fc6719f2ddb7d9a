// SPDX-License-Identifier: MIT

package cache

import (
	"fmt"
	"time"
)

const defaultCleanupInterval = time.Minute

// New creates a Cache for the configured backend.
func New(backend string, redisCfg RedisConfig) (Cache, error) {
	switch backend {
	case "", "memory":
		return NewMemoryCache(defaultCleanupInterval), nil
	case "redis":
		return NewRedisCache(redisCfg)
	default:
		return nil, fmt.Errorf("cache: unknown backend %q", backend)
	}
}
