// SPDX-License-Identifier: MIT

package eagle

import (
	"context"
	"fmt"
	"sort"
	"sync"

	xlog "github.com/neggles/eagle3d/internal/log"
	"github.com/rs/zerolog"
)

// Hub manufacturer/model identity, constant for this generation of hardware.
const (
	Manufacturer = "Rainforest Automation"
	Model        = "EAGLE-200"
)

// Hub tracks the devices and meters paired with one Eagle hub. It layers a
// registry over Client: RefreshDevices re-enumerates and re-queries
// everything, and readers get stable snapshots.
type Hub struct {
	client *Client
	logger zerolog.Logger

	mu      sync.RWMutex
	devices map[string]Device
	meters  map[string]*Meter
}

// NewHub creates a hub registry over the given client.
func NewHub(client *Client) *Hub {
	return &Hub{
		client:  client,
		logger:  xlog.WithComponent("hub"),
		devices: make(map[string]Device),
		meters:  make(map[string]*Meter),
	}
}

// Client returns the underlying transport client.
func (h *Hub) Client() *Client { return h.client }

// Online reports whether the last exchange with the hub succeeded.
func (h *Hub) Online() bool { return h.client.Online() }

// Devices returns a snapshot of known devices, sorted by hardware address.
func (h *Hub) Devices() []Device {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]Device, 0, len(h.devices))
	for _, d := range h.devices {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].HardwareAddress < out[j].HardwareAddress })
	return out
}

// Device returns one device by hardware address.
func (h *Hub) Device(address string) (Device, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	d, ok := h.devices[address]
	return d, ok
}

// Meters returns a snapshot of known electricity meters, sorted by address.
// Snapshots are value copies; component slices are never mutated after a
// refresh publishes them, so sharing them is safe.
func (h *Hub) Meters() []Meter {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]Meter, 0, len(h.meters))
	for _, m := range h.meters {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address() < out[j].Address() })
	return out
}

// Meter returns a snapshot of one meter by hardware address.
func (h *Hub) Meter(address string) (Meter, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	m, ok := h.meters[address]
	if !ok {
		return Meter{}, false
	}
	return *m, true
}

// RefreshDevice re-queries a single known device.
func (h *Hub) RefreshDevice(ctx context.Context, address string) error {
	h.mu.RLock()
	_, known := h.devices[address]
	h.mu.RUnlock()
	if !known {
		return &HubError{Sentinel: ErrNotFound, Command: CmdDeviceQuery, Body: address}
	}
	resp, err := h.client.QueryDevice(ctx, address)
	if err != nil {
		return err
	}
	h.absorb(address, resp)
	return nil
}

// RefreshDevices re-enumerates the hub's device list and queries every
// device. New electricity meters are registered as they are discovered.
func (h *Hub) RefreshDevices(ctx context.Context) error {
	logger := xlog.WithContext(ctx, h.logger)

	devices, err := h.client.DeviceList(ctx)
	if err != nil {
		return fmt.Errorf("device list: %w", err)
	}

	for _, d := range devices {
		resp, err := h.client.QueryDevice(ctx, d.HardwareAddress)
		if err != nil {
			return fmt.Errorf("query device %s: %w", d.HardwareAddress, err)
		}
		// The device_list entry has fields the query response may omit.
		if resp.Details.Name == "" {
			resp.Details.Name = d.Name
		}
		if resp.Details.ModelID == "" {
			resp.Details.ModelID = d.ModelID
		}
		if resp.Details.Manufacturer == "" {
			resp.Details.Manufacturer = d.Manufacturer
		}
		if resp.Details.Protocol == "" {
			resp.Details.Protocol = d.Protocol
		}

		isNew := h.absorb(d.HardwareAddress, resp)
		switch {
		case isNew && resp.Details.IsMeter():
			logger.Info().
				Str(xlog.FieldEvent, "hub.meter_discovered").
				Str(xlog.FieldDevice, resp.Details.Name).
				Str(xlog.FieldAddress, d.HardwareAddress).
				Msg("discovered new energy meter")
		case resp.Details.IsMeter():
			logger.Debug().
				Str(xlog.FieldDevice, resp.Details.Name).
				Str(xlog.FieldAddress, d.HardwareAddress).
				Msg("refreshed energy meter")
		default:
			logger.Debug().
				Str(xlog.FieldDevice, resp.Details.Name).
				Str(xlog.FieldAddress, d.HardwareAddress).
				Str(xlog.FieldModelID, resp.Details.ModelID).
				Msg("refreshed device")
		}
	}
	return nil
}

// absorb merges a query response into the registry. It reports whether the
// device was previously unknown.
func (h *Hub) absorb(address string, resp *DeviceQueryResponse) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	prev, known := h.devices[address]

	d := resp.Details
	d.HardwareAddress = address
	d.Name = NormalizeName(d.Name)
	// device_query omits LastContact on some firmware; keep what we had.
	if d.LastContact.IsZero() && known {
		d.LastContact = prev.LastContact
		if d.ConnectionStatus == "" {
			d.ConnectionStatus = prev.ConnectionStatus
		}
	}
	h.devices[address] = d

	if d.IsMeter() {
		m, ok := h.meters[address]
		if !ok {
			m = &Meter{Device: d}
			h.meters[address] = m
		}
		m.Device = d
		m.Update(resp)
	}
	return !known
}
