// SPDX-License-Identifier: MIT

package manifest

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultValidates(t *testing.T) {
	require.NoError(t, Default.Validate())
	require.NotEmpty(t, Default.Overrides)
}

func TestDefaultMatchesManifestFiles(t *testing.T) {
	for _, path := range []string{
		"manifest.json",
		"0xd8d5b90000012345/manifest.json",
		"devices/0xd8d5b90000012345/manifest.json",
	} {
		opts, ok := Default.Match(path)
		require.True(t, ok, path)
		assert.True(t, opts.RecursiveSort)
		assert.Contains(t, opts.Plugins, PluginSortJSON)
	}

	_, ok := Default.Match("0xd8d5b90000012345/readings.json")
	assert.False(t, ok)
}

func TestMatchLastRuleWins(t *testing.T) {
	cfg := Config{Overrides: []Override{
		{Files: []string{"**/*.json"}, Options: Options{RecursiveSort: false}},
		{Files: []string{"**/manifest.json"}, Options: Options{RecursiveSort: true}},
	}}
	require.NoError(t, cfg.Validate())

	opts, ok := cfg.Match("a/manifest.json")
	require.True(t, ok)
	assert.True(t, opts.RecursiveSort)

	opts, ok = cfg.Match("a/other.json")
	require.True(t, ok)
	assert.False(t, opts.RecursiveSort)
}

func TestValidateRejectsMalformedConfigs(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"no overrides", Config{}},
		{"no patterns", Config{Overrides: []Override{{}}}},
		{"empty pattern", Config{Overrides: []Override{{Files: []string{""}}}}},
		{"bad glob", Config{Overrides: []Override{{Files: []string{"[unclosed"}}}}},
		{"unknown mode", Config{Overrides: []Override{{
			Files:   []string{"*.json"},
			Options: Options{SortOrder: []KeyRule{{Key: "a", Mode: "sideways"}}},
		}}}},
		{"key after wildcard", Config{Overrides: []Override{{
			Files: []string{"*.json"},
			Options: Options{SortOrder: []KeyRule{
				{Key: Wildcard, Mode: ModeNumeric},
				{Key: "late", Mode: ModeNone},
			}},
		}}}},
		{"double wildcard", Config{Overrides: []Override{{
			Files: []string{"*.json"},
			Options: Options{SortOrder: []KeyRule{
				{Key: Wildcard, Mode: ModeNumeric},
				{Key: Wildcard, Mode: ModeNone},
			}},
		}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.cfg.Validate())
		})
	}
}

func defaultOptions(t *testing.T) Options {
	t.Helper()
	opts, ok := Default.Match("x/manifest.json")
	require.True(t, ok)
	return opts
}

func TestMarshalExplicitKeysFirst(t *testing.T) {
	doc := map[string]any{
		"requirements": []string{"eagle200-reader"},
		"name":         "Rainforest Eagle",
		"10":           "ten",
		"domain":       "rainforest_eagle",
		"2":            "two",
		"config_flow":  true,
	}
	out, err := Marshal(defaultOptions(t), doc)
	require.NoError(t, err)

	want := `{
  "domain": "rainforest_eagle",
  "name": "Rainforest Eagle",
  "2": "two",
  "10": "ten",
  "config_flow": true,
  "requirements": [
    "eagle200-reader"
  ]
}
`
	assert.Equal(t, want, string(out))
}

func TestMarshalRecursesIntoNestedObjects(t *testing.T) {
	doc := map[string]any{
		"domain": "rainforest_eagle",
		"meters": map[string]any{
			"zzz":  1,
			"name": "main",
			"3":    true,
			"21":   false,
		},
	}
	out, err := Marshal(defaultOptions(t), doc)
	require.NoError(t, err)

	want := `{
  "domain": "rainforest_eagle",
  "meters": {
    "name": "main",
    "3": true,
    "21": false,
    "zzz": 1
  }
}
`
	assert.Equal(t, want, string(out))
}

func TestMarshalWithoutRecursionLeavesNestedKeysLexical(t *testing.T) {
	opts := Options{SortOrder: []KeyRule{
		{Key: "name", Mode: ModeNone},
		{Key: Wildcard, Mode: ModeNumeric},
	}}
	doc := map[string]any{
		"name":   "x",
		"nested": map[string]any{"10": 1, "2": 2},
	}
	out, err := Marshal(opts, doc)
	require.NoError(t, err)

	// Top level honors the order; the nested object falls back to plain
	// lexical order because RecursiveSort is off.
	want := `{
  "name": "x",
  "nested": {
    "10": 1,
    "2": 2
  }
}
`
	assert.Equal(t, want, string(out))
}

func TestMarshalPreservesNumberPrecision(t *testing.T) {
	out, err := Apply(defaultOptions(t), []byte(`{"b": 19520.761000, "a": 1}`))
	require.NoError(t, err)
	assert.Contains(t, string(out), "19520.761000")
}

func TestApplyRejectsGarbage(t *testing.T) {
	_, err := Apply(defaultOptions(t), []byte("{not json"))
	require.Error(t, err)

	_, err = Apply(defaultOptions(t), []byte(`{"a":1} {"b":2}`))
	require.Error(t, err)
}

func TestMarshalRoundTripsValidJSON(t *testing.T) {
	doc := map[string]any{
		"domain": "rainforest_eagle",
		"name":   "Rainforest Eagle",
		"list":   []any{map[string]any{"b": 1, "a": 2}, nil, "s"},
		"empty":  map[string]any{},
		"none":   nil,
	}
	out, err := Marshal(defaultOptions(t), doc)
	require.NoError(t, err)

	var back map[string]any
	require.NoError(t, json.Unmarshal(out, &back))
	assert.Equal(t, "rainforest_eagle", back["domain"])
}
