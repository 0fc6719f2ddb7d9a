// SPDX-License-Identifier: MIT

package eagle

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMeterAddress = "0xd8d5b90000012345"

func testHub(t *testing.T) (*Hub, *MockHub) {
	t.Helper()
	m := NewMockHub()
	t.Cleanup(m.Close)
	return NewHub(testClient(t, m)), m
}

func TestHubRefreshDiscoversMeter(t *testing.T) {
	h, _ := testHub(t)

	require.NoError(t, h.RefreshDevices(context.Background()))

	assert.Len(t, h.Devices(), 2)

	meters := h.Meters()
	require.Len(t, meters, 1)
	assert.Equal(t, testMeterAddress, meters[0].Address())
	assert.Equal(t, "Power Meter", meters[0].Device.Name)

	demand, ok := meters[0].Reading(VarPowerDemand)
	require.True(t, ok)
	assert.InDelta(t, 1.414, demand, 1e-9)

	// The thermostat is tracked as a device but not as a meter.
	_, ok = h.Meter("0xffff000000000001")
	assert.False(t, ok)
}

func TestHubRefreshUpdatesReadings(t *testing.T) {
	h, m := testHub(t)
	ctx := context.Background()

	require.NoError(t, h.RefreshDevices(ctx))
	m.SetVariable(testMeterAddress, VarPowerDemand, "2.718000")
	require.NoError(t, h.RefreshDevice(ctx, testMeterAddress))

	meter, ok := h.Meter(testMeterAddress)
	require.True(t, ok)
	demand, ok := meter.Reading(VarPowerDemand)
	require.True(t, ok)
	assert.InDelta(t, 2.718, demand, 1e-9)
}

func TestHubRefreshUnknownDevice(t *testing.T) {
	h, _ := testHub(t)

	err := h.RefreshDevice(context.Background(), "0xdeadbeef00000000")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestHubMeterSnapshotIsStable(t *testing.T) {
	h, m := testHub(t)
	ctx := context.Background()

	require.NoError(t, h.RefreshDevices(ctx))
	snap, ok := h.Meter(testMeterAddress)
	require.True(t, ok)
	before, _ := snap.Reading(VarPowerDemand)

	m.SetVariable(testMeterAddress, VarPowerDemand, "9.999000")
	require.NoError(t, h.RefreshDevice(ctx, testMeterAddress))

	// A snapshot taken earlier does not change under later refreshes.
	after, _ := snap.Reading(VarPowerDemand)
	assert.Equal(t, before, after)
}

func TestHubRefreshPropagatesFailure(t *testing.T) {
	h, m := testHub(t)

	m.FailNext(CmdDeviceList, 1)
	err := h.RefreshDevices(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.False(t, h.Online())
}

func TestMeterUpdateKeepsLivenessFields(t *testing.T) {
	h, _ := testHub(t)
	ctx := context.Background()

	require.NoError(t, h.RefreshDevices(ctx))
	meter, ok := h.Meter(testMeterAddress)
	require.True(t, ok)
	assert.Equal(t, time.Unix(0x68b00000, 0).UTC(), meter.LastContact())
	assert.True(t, meter.Device.Connected())
}

func TestNewMeterRejectsNonMeter(t *testing.T) {
	_, err := NewMeter(Device{HardwareAddress: "0x01", ModelID: "thermostat"})
	require.Error(t, err)
}

func TestNormalizeName(t *testing.T) {
	// NFD input (e + combining acute) folds to the precomposed form.
	assert.Equal(t, "Café Meter", NormalizeName("Café   Meter"))
	assert.Equal(t, "Power Meter", NormalizeName("  Power \t Meter "))
	assert.Equal(t, "", NormalizeName("   "))
}

func TestHubNormalizesDeviceNames(t *testing.T) {
	h, m := testHub(t)
	m.SetDeviceName(testMeterAddress, "  Power \t Meter ")

	require.NoError(t, h.RefreshDevices(context.Background()))
	d, ok := h.Device(testMeterAddress)
	require.True(t, ok)
	assert.Equal(t, "Power Meter", d.Name)
}
