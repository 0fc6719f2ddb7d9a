// SPDX-License-Identifier: MIT

package log

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigureWritesServiceField(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Level: "debug", Output: &buf, Service: "eagle3d-test", Version: "v0.0.0-test"})

	l := WithComponent("unit")
	l.Info().Msg("hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "eagle3d-test", entry["service"])
	assert.Equal(t, "v0.0.0-test", entry["version"])
	assert.Equal(t, "unit", entry["component"])
	assert.Equal(t, "hello", entry["message"])
}

func TestContextCorrelationFields(t *testing.T) {
	ctx := ContextWithRequestID(context.Background(), "req-1")
	ctx = ContextWithPollID(ctx, "poll-7")

	assert.Equal(t, "req-1", RequestIDFromContext(ctx))
	assert.Equal(t, "poll-7", PollIDFromContext(ctx))

	var buf bytes.Buffer
	Configure(Config{Level: "debug", Output: &buf, Service: "eagle3d-test"})

	l := WithComponentFromContext(ctx, "unit")
	l.Info().Msg("correlated")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "req-1", entry[FieldRequestID])
	assert.Equal(t, "poll-7", entry[FieldPollID])
}

func TestDeriveAttachesFields(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Level: "debug", Output: &buf, Service: "eagle3d-test"})

	logger := Derive(func(c *zerolog.Context) {
		*c = c.Str(FieldComponent, "daemon").Str("listen_addr", ":8099")
	})
	logger.Info().Msg("derived")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "daemon", entry[FieldComponent])
	assert.Equal(t, ":8099", entry["listen_addr"])

	// A nil builder is the plain base logger.
	buf.Reset()
	plain := Derive(nil)
	plain.Info().Msg("plain")
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "eagle3d-test", entry["service"])
}

func TestRequestIDFromNilContext(t *testing.T) {
	assert.Equal(t, "", RequestIDFromContext(nil)) //nolint:staticcheck // nil context is the case under test
}
