// SPDX-License-Identifier: MIT

package eagle

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func fakeLookup(table map[string][]string) LookupFunc {
	return func(_ context.Context, host string) ([]string, error) {
		if addrs, ok := table[host]; ok {
			return addrs, nil
		}
		return nil, errors.New("no such host")
	}
}

func TestResolveHostIPLiteral(t *testing.T) {
	name, addr := ResolveHost(context.Background(), "192.168.1.50", fakeLookup(nil))
	assert.Equal(t, "192.168.1.50", name)
	assert.Equal(t, "192.168.1.50", addr)
}

func TestResolveHostBareName(t *testing.T) {
	lookup := fakeLookup(map[string][]string{
		"eagle-00abcd": {"192.168.1.50"},
	})
	name, addr := ResolveHost(context.Background(), "eagle-00abcd", lookup)
	assert.Equal(t, "eagle-00abcd", name)
	assert.Equal(t, "192.168.1.50", addr)
}

func TestResolveHostSuffixFallback(t *testing.T) {
	lookup := fakeLookup(map[string][]string{
		"eagle-00abcd.lan": {"192.168.1.50"},
	})
	name, addr := ResolveHost(context.Background(), "eagle-00abcd", lookup)
	assert.Equal(t, "eagle-00abcd.lan", name)
	assert.Equal(t, "192.168.1.50", addr)
}

func TestResolveHostDottedNamePreferred(t *testing.T) {
	lookup := fakeLookup(map[string][]string{
		"eagle-00abcd.example.net": {"10.0.0.7"},
		"eagle-00abcd.local":       {"192.168.1.50"},
	})
	name, addr := ResolveHost(context.Background(), "eagle-00abcd.example.net", lookup)
	assert.Equal(t, "eagle-00abcd.example.net", name)
	assert.Equal(t, "10.0.0.7", addr)
}

func TestResolveHostDottedNameFallsBackToBareLabel(t *testing.T) {
	lookup := fakeLookup(map[string][]string{
		"eagle-00abcd.local": {"192.168.1.50"},
	})
	name, addr := ResolveHost(context.Background(), "eagle-00abcd.example.net", lookup)
	assert.Equal(t, "eagle-00abcd.local", name)
	assert.Equal(t, "192.168.1.50", addr)
}

func TestResolveHostNothingResolves(t *testing.T) {
	name, addr := ResolveHost(context.Background(), "eagle-00abcd", fakeLookup(nil))
	assert.Equal(t, "eagle-00abcd", name)
	assert.Empty(t, addr)
}
