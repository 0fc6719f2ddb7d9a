// SPDX-License-Identifier: MIT

// Package manifest defines the formatting rules for exported device
// manifest files: which files they apply to, and how JSON keys are
// ordered when a manifest is rendered.
package manifest

import (
	"errors"
	"fmt"

	"github.com/bmatcuk/doublestar/v4"
)

// SortMode selects how keys under a sort-order entry are arranged.
type SortMode string

const (
	// ModeNone keeps explicitly listed keys in their listed order.
	ModeNone SortMode = "none"
	// ModeNumeric sorts keys numerically when both compare as numbers,
	// lexically otherwise.
	ModeNumeric SortMode = "numeric"
)

// Wildcard matches every key not named explicitly in a sort order.
const Wildcard = "*"

// KeyRule is one entry of an ordered sort specification.
type KeyRule struct {
	Key  string   `json:"key" yaml:"key"`
	Mode SortMode `json:"mode" yaml:"mode"`
}

// Options are the formatting options an override rule activates.
type Options struct {
	// Plugins names the formatting plugins the rule activates. The list is
	// declarative data for external tooling; rendering here only needs the
	// sort settings.
	Plugins []string `json:"plugins,omitempty" yaml:"plugins,omitempty"`

	// RecursiveSort requests key ordering inside nested objects and the
	// elements of arrays, not just at the top level.
	RecursiveSort bool `json:"jsonRecursiveSort" yaml:"jsonRecursiveSort"`

	// SortOrder lists explicit keys first, in order, optionally followed by
	// a Wildcard entry giving the mode for all remaining keys.
	SortOrder []KeyRule `json:"jsonSortOrder,omitempty" yaml:"jsonSortOrder,omitempty"`
}

// Override pairs file glob patterns with the options to apply to files
// they match.
type Override struct {
	Files   []string `json:"files" yaml:"files"`
	Options Options  `json:"options" yaml:"options"`
}

// Config is an ordered collection of override rules. Later rules win when
// several match the same path.
type Config struct {
	Overrides []Override `json:"overrides" yaml:"overrides"`
}

// PluginSortJSON identifies the JSON key-sorting plugin activated for
// manifest files.
const PluginSortJSON = "prettier-plugin-sort-json"

// Default is the stock formatting configuration: device manifest files keep
// "domain" and "name" first, with all remaining keys sorted numerically
// where they compare as numbers, recursively.
var Default = Config{
	Overrides: []Override{
		{
			Files: []string{"**/manifest.json"},
			Options: Options{
				Plugins:       []string{PluginSortJSON},
				RecursiveSort: true,
				SortOrder: []KeyRule{
					{Key: "domain", Mode: ModeNone},
					{Key: "name", Mode: ModeNone},
					{Key: Wildcard, Mode: ModeNumeric},
				},
			},
		},
	},
}

// Match returns the options of the last override whose glob set matches
// path. The second return is false when no override matches.
func (c Config) Match(path string) (Options, bool) {
	var (
		out Options
		hit bool
	)
	for _, o := range c.Overrides {
		for _, pattern := range o.Files {
			if ok, err := doublestar.Match(pattern, path); err == nil && ok {
				out = o.Options
				hit = true
				break
			}
		}
	}
	return out, hit
}

// Validate checks structural well-formedness: a non-empty override list,
// each entry with at least one valid glob and a coherent sort order.
func (c Config) Validate() error {
	if len(c.Overrides) == 0 {
		return errors.New("manifest: no override rules defined")
	}
	for i, o := range c.Overrides {
		if len(o.Files) == 0 {
			return fmt.Errorf("manifest: override %d has no file patterns", i)
		}
		for _, pattern := range o.Files {
			if pattern == "" {
				return fmt.Errorf("manifest: override %d has an empty file pattern", i)
			}
			if !doublestar.ValidatePattern(pattern) {
				return fmt.Errorf("manifest: override %d has malformed pattern %q", i, pattern)
			}
		}
		if err := o.Options.validate(); err != nil {
			return fmt.Errorf("manifest: override %d: %w", i, err)
		}
	}
	return nil
}

func (o Options) validate() error {
	seenWildcard := false
	for _, r := range o.SortOrder {
		if r.Key == "" {
			return errors.New("sort order entry has an empty key")
		}
		switch r.Mode {
		case ModeNone, ModeNumeric:
		default:
			return fmt.Errorf("sort order key %q has unknown mode %q", r.Key, r.Mode)
		}
		if r.Key == Wildcard {
			if seenWildcard {
				return errors.New("sort order has more than one wildcard entry")
			}
			seenWildcard = true
		} else if seenWildcard {
			return fmt.Errorf("sort order key %q listed after the wildcard", r.Key)
		}
	}
	return nil
}

// wildcardMode returns the sort mode for keys not named explicitly.
// Without a wildcard entry remaining keys sort lexically.
func (o Options) wildcardMode() SortMode {
	for _, r := range o.SortOrder {
		if r.Key == Wildcard {
			return r.Mode
		}
	}
	return ModeNone
}

// explicitKeys returns the non-wildcard keys in their listed order.
func (o Options) explicitKeys() []string {
	keys := make([]string, 0, len(o.SortOrder))
	for _, r := range o.SortOrder {
		if r.Key != Wildcard {
			keys = append(keys, r.Key)
		}
	}
	return keys
}
