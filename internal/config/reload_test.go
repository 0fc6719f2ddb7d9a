// SPDX-License-Identifier: MIT

package config

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHolderReloadSwapsConfig(t *testing.T) {
	validEnv(t)
	path := writeConfig(t, "poll:\n  interval: 10s\n")
	loader := NewLoader(path, "test")

	initial, err := loader.Load()
	require.NoError(t, err)
	holder := NewHolder(initial, loader, path)

	require.NoError(t, os.WriteFile(path, []byte("poll:\n  interval: 20s\n"), 0o600))
	require.NoError(t, holder.Reload(context.Background()))
	assert.Equal(t, 20*time.Second, holder.Get().Poll.Interval)
}

func TestHolderReloadKeepsOldConfigOnError(t *testing.T) {
	validEnv(t)
	path := writeConfig(t, "poll:\n  interval: 10s\n")
	loader := NewLoader(path, "test")

	initial, err := loader.Load()
	require.NoError(t, err)
	holder := NewHolder(initial, loader, path)

	// Interval below the floor fails validation; the old config stays.
	require.NoError(t, os.WriteFile(path, []byte("poll:\n  interval: 1s\n"), 0o600))
	require.Error(t, holder.Reload(context.Background()))
	assert.Equal(t, 10*time.Second, holder.Get().Poll.Interval)
}

func TestHolderNotifiesListeners(t *testing.T) {
	validEnv(t)
	path := writeConfig(t, "poll:\n  interval: 10s\n")
	loader := NewLoader(path, "test")

	initial, err := loader.Load()
	require.NoError(t, err)
	holder := NewHolder(initial, loader, path)

	ch := make(chan AppConfig, 1)
	holder.RegisterListener(ch)

	require.NoError(t, os.WriteFile(path, []byte("poll:\n  interval: 15s\n"), 0o600))
	require.NoError(t, holder.Reload(context.Background()))

	select {
	case cfg := <-ch:
		assert.Equal(t, 15*time.Second, cfg.Poll.Interval)
	case <-time.After(time.Second):
		t.Fatal("expected listener notification")
	}
}

func TestHolderWatcherReloadsOnWrite(t *testing.T) {
	validEnv(t)
	path := writeConfig(t, "poll:\n  interval: 10s\n")
	loader := NewLoader(path, "test")

	initial, err := loader.Load()
	require.NoError(t, err)
	holder := NewHolder(initial, loader, path)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, holder.StartWatcher(ctx))
	defer holder.Stop()

	require.NoError(t, os.WriteFile(path, []byte("poll:\n  interval: 25s\n"), 0o600))

	require.Eventually(t, func() bool {
		return holder.Get().Poll.Interval == 25*time.Second
	}, 5*time.Second, 50*time.Millisecond)
}

func TestHolderWatcherDisabledWithoutPath(t *testing.T) {
	holder := NewHolder(defaults(), NewLoader("", "test"), "")
	require.NoError(t, holder.StartWatcher(context.Background()))
	holder.Stop()
}
