// SPDX-License-Identifier: MIT

package eagle

import (
	"fmt"
	"time"
)

// Electricity meter variables reported by the hub's zigbee bridge.
const (
	VarPowerDemand     = "zigbee:InstantaneousDemand"       // kW
	VarEnergyDelivered = "zigbee:CurrentSummationDelivered" // kWh
	VarEnergyReceived  = "zigbee:CurrentSummationReceived"  // kWh
)

// MeterVariables lists the readings exported for electricity meters.
var MeterVariables = []string{VarPowerDemand, VarEnergyDelivered, VarEnergyReceived}

// Meter is the electricity-meter view over a paired device. It holds the
// device description plus the components of the last device_query.
type Meter struct {
	Device     Device      `json:"device"`
	Components []Component `json:"components"`
}

// NewMeter wraps a device known to be an electricity meter.
func NewMeter(d Device) (*Meter, error) {
	if !d.IsMeter() {
		return nil, fmt.Errorf("device %s is not an electricity meter (model %q)", d.HardwareAddress, d.ModelID)
	}
	return &Meter{Device: d}, nil
}

// Address returns the meter's hardware address.
func (m *Meter) Address() string { return m.Device.HardwareAddress }

// LastContact returns when the hub last heard from the meter.
func (m *Meter) LastContact() time.Time { return m.Device.LastContact.Time }

// Update absorbs a device_query response. LastContact and the connection
// fields are only present in device_query responses, not device_details
// ones, so absent fields keep their previous values.
func (m *Meter) Update(resp *DeviceQueryResponse) {
	if resp == nil {
		return
	}
	details := resp.Details
	if !details.LastContact.IsZero() {
		m.Device.LastContact = details.LastContact
		m.Device.ConnectionStatus = details.ConnectionStatus
		m.Device.NetworkAddress = details.NetworkAddress
	}
	if details.Name != "" {
		m.Device.Name = NormalizeName(details.Name)
	}
	if len(resp.Components) > 0 {
		m.Components = resp.Components
	}
}

// Variable returns the named variable from the meter's components.
func (m *Meter) Variable(name string) (Variable, bool) {
	for _, c := range m.Components {
		for _, v := range c.Variables {
			if v.Name == name {
				return v, true
			}
		}
	}
	return Variable{}, false
}

// Reading returns the named variable coerced to a float, with ok=false when
// the variable is missing or not numeric.
func (m *Meter) Reading(name string) (float64, bool) {
	v, ok := m.Variable(name)
	if !ok {
		return 0, false
	}
	return v.Value.Float64()
}

// AllVariables flattens the component variables. Set includeNull to also
// return variables without a value.
func (m *Meter) AllVariables(includeNull bool) []Variable {
	var out []Variable
	for _, c := range m.Components {
		for _, v := range c.Variables {
			if includeNull || !v.Value.IsNull() {
				out = append(out, v)
			}
		}
	}
	return out
}
