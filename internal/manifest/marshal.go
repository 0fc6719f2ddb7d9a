// SPDX-License-Identifier: MIT

package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

const indentStep = "  "

// Marshal renders v as an indented JSON document with object keys ordered
// per opts: explicitly listed keys first, then remaining keys per the
// wildcard mode. Nested objects and arrays are reordered too when
// RecursiveSort is set.
func Marshal(opts Options, v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("manifest: encode: %w", err)
	}
	return Apply(opts, raw)
}

// Apply reorders the keys of an existing JSON document per opts and
// re-indents it. The document must be a single valid JSON value.
func Apply(opts Options, doc []byte) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(doc))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("manifest: parse: %w", err)
	}
	if dec.More() {
		return nil, fmt.Errorf("manifest: trailing data after JSON document")
	}

	var buf bytes.Buffer
	if err := writeValue(&buf, opts, v, "", true); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// writeValue renders one JSON value. sorted tells whether objects at this
// level get the configured key ordering; it stays true below the top level
// only when RecursiveSort is set.
func writeValue(buf *bytes.Buffer, opts Options, v any, indent string, sorted bool) error {
	switch val := v.(type) {
	case map[string]any:
		return writeObject(buf, opts, val, indent, sorted)
	case []any:
		return writeArray(buf, opts, val, indent, sorted)
	default:
		raw, err := json.Marshal(val)
		if err != nil {
			return fmt.Errorf("manifest: encode value: %w", err)
		}
		buf.Write(raw)
		return nil
	}
}

func writeObject(buf *bytes.Buffer, opts Options, obj map[string]any, indent string, sorted bool) error {
	if len(obj) == 0 {
		buf.WriteString("{}")
		return nil
	}

	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	if sorted {
		orderKeys(opts, keys)
	} else {
		sort.Strings(keys)
	}

	inner := indent + indentStep
	buf.WriteString("{\n")
	for i, k := range keys {
		if i > 0 {
			buf.WriteString(",\n")
		}
		buf.WriteString(inner)
		name, err := json.Marshal(k)
		if err != nil {
			return fmt.Errorf("manifest: encode key: %w", err)
		}
		buf.Write(name)
		buf.WriteString(": ")
		if err := writeValue(buf, opts, obj[k], inner, sorted && opts.RecursiveSort); err != nil {
			return err
		}
	}
	buf.WriteString("\n" + indent + "}")
	return nil
}

func writeArray(buf *bytes.Buffer, opts Options, arr []any, indent string, sorted bool) error {
	if len(arr) == 0 {
		buf.WriteString("[]")
		return nil
	}
	inner := indent + indentStep
	buf.WriteString("[\n")
	for i, el := range arr {
		if i > 0 {
			buf.WriteString(",\n")
		}
		buf.WriteString(inner)
		if err := writeValue(buf, opts, el, inner, sorted && opts.RecursiveSort); err != nil {
			return err
		}
	}
	buf.WriteString("\n" + indent + "]")
	return nil
}

// orderKeys sorts keys in place: explicit keys first in their listed order,
// then the rest per the wildcard mode.
func orderKeys(opts Options, keys []string) {
	rank := make(map[string]int, len(opts.SortOrder))
	for i, k := range opts.explicitKeys() {
		rank[k] = i
	}
	numeric := opts.wildcardMode() == ModeNumeric

	sort.SliceStable(keys, func(i, j int) bool {
		ri, iExplicit := rank[keys[i]]
		rj, jExplicit := rank[keys[j]]
		switch {
		case iExplicit && jExplicit:
			return ri < rj
		case iExplicit:
			return true
		case jExplicit:
			return false
		}
		if numeric {
			return numericLess(keys[i], keys[j])
		}
		return keys[i] < keys[j]
	})
}

// numericLess compares two keys numerically when both parse as numbers,
// lexically otherwise. Numbers order before non-numbers.
func numericLess(a, b string) bool {
	fa, aErr := strconv.ParseFloat(strings.TrimSpace(a), 64)
	fb, bErr := strconv.ParseFloat(strings.TrimSpace(b), 64)
	switch {
	case aErr == nil && bErr == nil:
		if fa != fb {
			return fa < fb
		}
		return a < b
	case aErr == nil:
		return true
	case bErr == nil:
		return false
	default:
		return a < b
	}
}
