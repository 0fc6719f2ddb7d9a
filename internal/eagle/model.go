// SPDX-License-Identifier: MIT

// Package eagle implements a client for the Rainforest Eagle local XML API.
//
// The hub accepts XML command documents on /cgi-bin/post_manager and answers
// with XML documents of its own. The wire format has a number of quirks the
// types in this package absorb: variable values arrive as strings and have to
// be coerced, timestamps are hex-encoded unix seconds, and several fields are
// only populated for some command types.
package eagle

import (
	"encoding/json"
	"encoding/xml"
	"strconv"
	"strings"
	"time"
)

// Well-known device model IDs.
const (
	ModelElectricMeter = "electric_meter"
)

// Value is a device variable value as reported by the hub. The hub always
// transmits strings; Value keeps the raw form and coerces on demand.
type Value struct {
	Raw     string
	present bool
}

// UnmarshalXML captures the element text verbatim.
func (v *Value) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	var s string
	if err := d.DecodeElement(&s, &start); err != nil {
		return err
	}
	v.Raw = strings.TrimSpace(s)
	v.present = true
	return nil
}

// IsNull reports whether the variable carried no value.
func (v Value) IsNull() bool {
	return !v.present || v.Raw == ""
}

// Bool interprets the value as a boolean ("true"/"false", case-insensitive).
func (v Value) Bool() (bool, bool) {
	switch strings.ToLower(v.Raw) {
	case "true":
		return true, true
	case "false":
		return false, true
	}
	return false, false
}

// Int64 interprets the value as a base-10 integer.
func (v Value) Int64() (int64, bool) {
	i, err := strconv.ParseInt(v.Raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return i, true
}

// Float64 interprets the value as a float.
func (v Value) Float64() (float64, bool) {
	f, err := strconv.ParseFloat(v.Raw, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// Any coerces the raw string in the hub's preferred order:
// bool, then integer, then float, falling back to the string itself.
// Null values coerce to nil.
func (v Value) Any() any {
	if v.IsNull() {
		return nil
	}
	if b, ok := v.Bool(); ok {
		return b
	}
	if i, ok := v.Int64(); ok {
		return i
	}
	if f, ok := v.Float64(); ok {
		return f
	}
	return v.Raw
}

// MarshalJSON emits the coerced value.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Any())
}

// UnmarshalJSON restores a value persisted by MarshalJSON.
func (v *Value) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		*v = Value{}
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		v.Raw = str
	} else {
		v.Raw = s
	}
	v.present = true
	return nil
}

// HexTime is a timestamp transmitted as hex-encoded unix seconds
// (e.g. "0x5da69fb0"). The zero value means absent.
type HexTime struct {
	time.Time
}

// UnmarshalXML parses the hex timestamp. Unparseable values are treated as
// absent rather than failing the whole document, matching hub behavior of
// omitting the field for some command types.
func (t *HexTime) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	var s string
	if err := d.DecodeElement(&s, &start); err != nil {
		return err
	}
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	if s == "" {
		return nil
	}
	secs, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return nil
	}
	t.Time = time.Unix(int64(secs), 0).UTC()
	return nil
}

// MarshalJSON emits RFC3339 or null when absent.
func (t HexTime) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time.Format(time.RFC3339))
}

// UnmarshalJSON restores a timestamp persisted by MarshalJSON.
func (t *HexTime) UnmarshalJSON(data []byte) error {
	if strings.TrimSpace(string(data)) == "null" {
		t.Time = time.Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return err
	}
	t.Time = parsed.UTC()
	return nil
}

// Variable is a single named reading on a device component.
type Variable struct {
	Name        string `xml:"Name" json:"name"`
	Value       Value  `xml:"Value" json:"value"`
	Description string `xml:"Description" json:"description,omitempty"`
	Units       string `xml:"Units" json:"units,omitempty"`
}

// Component groups the variables of one functional unit of a device.
type Component struct {
	Name      string     `xml:"Name" json:"name"`
	FixedID   string     `xml:"FixedId" json:"fixed_id"`
	Variables []Variable `xml:"Variables>Variable" json:"variables"`
}

// Device is the hub's description of a paired device.
type Device struct {
	Name             string  `xml:"Name" json:"name"`
	HardwareAddress  string  `xml:"HardwareAddress" json:"hardware_address"`
	Manufacturer     string  `xml:"Manufacturer" json:"manufacturer"`
	ModelID          string  `xml:"ModelId" json:"model_id"`
	Protocol         string  `xml:"Protocol" json:"protocol"`
	LastContact      HexTime `xml:"LastContact" json:"last_contact"`
	ConnectionStatus string  `xml:"ConnectionStatus" json:"connection_status,omitempty"`
	NetworkAddress   string  `xml:"NetworkAddress" json:"network_address,omitempty"`
}

// IsMeter reports whether the device is an electricity meter.
func (d Device) IsMeter() bool {
	return d.ModelID == ModelElectricMeter
}

// Connected reports whether the hub considers the device reachable.
func (d Device) Connected() bool {
	return d.ConnectionStatus == "Connected"
}

// DeviceList is the response document of the device_list command.
type DeviceList struct {
	XMLName xml.Name `xml:"DeviceList"`
	Devices []Device `xml:"Device"`
}

// DeviceQueryResponse is the response document of the device_query and
// device_details commands. LastContact and friends are only populated for
// device_query responses.
type DeviceQueryResponse struct {
	XMLName    xml.Name    `xml:"Device"`
	Details    Device      `xml:"DeviceDetails"`
	Components []Component `xml:"Components>Component"`
}

// Variables flattens all component variables carrying a value.
// Set includeNull to also return empty readings.
func (r *DeviceQueryResponse) Variables(includeNull bool) []Variable {
	var out []Variable
	for _, c := range r.Components {
		for _, v := range c.Variables {
			if includeNull || !v.Value.IsNull() {
				out = append(out, v)
			}
		}
	}
	return out
}

// Variable returns the named variable from any component.
func (r *DeviceQueryResponse) Variable(name string) (Variable, bool) {
	for _, c := range r.Components {
		for _, v := range c.Variables {
			if v.Name == name {
				return v, true
			}
		}
	}
	return Variable{}, false
}
