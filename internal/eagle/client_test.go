// SPDX-License-Identifier: MIT

package eagle

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/neggles/eagle3d/internal/telemetry"
)

func testClient(t *testing.T, m *MockHub) *Client {
	t.Helper()
	cloudID, install := m.Credentials()
	return NewClient(m.Hostname(), cloudID, install, Options{
		MinSpacing: time.Millisecond,
	})
}

func TestClientDeviceList(t *testing.T) {
	m := NewMockHub()
	defer m.Close()
	c := testClient(t, m)

	devices, err := c.DeviceList(context.Background())
	require.NoError(t, err)
	require.Len(t, devices, 2)
	assert.True(t, c.Online())
	assert.Equal(t, []string{CmdDeviceList}, m.Requests())
}

func TestClientQueryDevice(t *testing.T) {
	m := NewMockHub()
	defer m.Close()
	c := testClient(t, m)

	resp, err := c.QueryDevice(context.Background(), "0xd8d5b90000012345")
	require.NoError(t, err)
	assert.Equal(t, "0xd8d5b90000012345", resp.Details.HardwareAddress)
	assert.True(t, resp.Details.Connected())

	v, ok := resp.Variable(VarPowerDemand)
	require.True(t, ok)
	f, ok := v.Value.Float64()
	require.True(t, ok)
	assert.InDelta(t, 1.414, f, 1e-9)
}

func TestClientQueryDeviceSelectedVariables(t *testing.T) {
	m := NewMockHub()
	defer m.Close()
	c := testClient(t, m)

	resp, err := c.QueryDevice(context.Background(), "0xd8d5b90000012345", VarPowerDemand)
	require.NoError(t, err)
	assert.Len(t, resp.Variables(true), 1)
}

func TestClientQueryUnknownDevice(t *testing.T) {
	m := NewMockHub()
	defer m.Close()
	c := testClient(t, m)

	_, err := c.QueryDevice(context.Background(), "0xdeadbeef00000000")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClientBadCredentials(t *testing.T) {
	m := NewMockHub()
	defer m.Close()

	c := NewClient(m.Hostname(), "00abcd", "wrong-code", Options{MinSpacing: time.Millisecond})
	_, err := c.DeviceList(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAuth)
	assert.False(t, c.Online())
}

func TestClientServerFailure(t *testing.T) {
	m := NewMockHub()
	defer m.Close()
	c := testClient(t, m)

	m.FailNext(CmdDeviceList, 1)
	_, err := c.DeviceList(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)

	var hubErr *HubError
	require.ErrorAs(t, err, &hubErr)
	assert.Equal(t, CmdDeviceList, hubErr.Command)
	assert.Equal(t, 500, hubErr.Status)
}

func TestClientOnlineTransitions(t *testing.T) {
	m := NewMockHub()
	defer m.Close()
	c := testClient(t, m)

	assert.False(t, c.Online())

	_, err := c.DeviceList(context.Background())
	require.NoError(t, err)
	assert.True(t, c.Online())

	m.FailNext(CmdDeviceList, 1)
	_, err = c.DeviceList(context.Background())
	require.Error(t, err)
	assert.False(t, c.Online())

	_, err = c.DeviceList(context.Background())
	require.NoError(t, err)
	assert.True(t, c.Online())
}

func TestClientContextCancellation(t *testing.T) {
	m := NewMockHub()
	defer m.Close()
	c := testClient(t, m)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.DeviceList(ctx)
	require.Error(t, err)
}

func TestClientUnreachableHub(t *testing.T) {
	// Reserved TEST-NET-1 address, nothing listens there.
	c := NewClient("192.0.2.1:1", "00abcd", "0123456789abcdef", Options{
		Timeout:    200 * time.Millisecond,
		MinSpacing: time.Millisecond,
	})
	_, err := c.DeviceList(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestClientSpanTagsHubErrors(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})

	m := NewMockHub()
	defer m.Close()
	c := testClient(t, m)

	m.FailNext(CmdDeviceList, 1)
	_, err := c.DeviceList(context.Background())
	require.Error(t, err)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	span := spans[0]
	assert.Equal(t, "hub."+CmdDeviceList, span.Name)

	attrs := make(map[attribute.Key]attribute.Value, len(span.Attributes))
	for _, kv := range span.Attributes {
		attrs[kv.Key] = kv.Value
	}
	assert.Equal(t, CmdDeviceList, attrs[attribute.Key(telemetry.HubCommandKey)].AsString())
	assert.True(t, attrs[attribute.Key(telemetry.ErrorKey)].AsBool())
	assert.Equal(t, ErrUnavailable.Error(), attrs[attribute.Key(telemetry.ErrorTypeKey)].AsString())
}

func TestDefaultHostname(t *testing.T) {
	assert.Equal(t, "eagle-00abcd", DefaultHostname("00ABCD"))
	c := NewClient("", "00ABCD", "x", Options{})
	assert.Equal(t, "eagle-00abcd", c.Host())
}
