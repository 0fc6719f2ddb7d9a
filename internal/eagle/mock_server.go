// SPDX-License-Identifier: MIT

package eagle

import (
	"encoding/xml"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"time"
)

// MockHub provides a configurable fake Eagle hub for testing. It speaks the
// same XML command protocol on /cgi-bin/post_manager as real hardware.
type MockHub struct {
	*httptest.Server

	mu       sync.RWMutex
	cloudID  string
	install  string
	devices  map[string]mockDevice
	failures map[string]int           // remaining failures per command name
	delays   map[string]time.Duration // artificial delay per command name
	requests []string                 // command names, in arrival order
}

type mockDevice struct {
	device    Device
	variables map[string]mockVariable
}

type mockVariable struct {
	value string
	units string
	desc  string
}

// NewMockHub creates a mock hub with default test data: one connected
// electricity meter and one unknown device.
func NewMockHub() *MockHub {
	m := &MockHub{
		cloudID:  "00abcd",
		install:  "0123456789abcdef",
		devices:  make(map[string]mockDevice),
		failures: make(map[string]int),
		delays:   make(map[string]time.Duration),
	}
	m.SetDefaultData()

	mux := http.NewServeMux()
	mux.HandleFunc("/cgi-bin/post_manager", m.handleCommand)
	m.Server = httptest.NewServer(mux)
	return m
}

// Hostname returns the host:port the mock listens on, suitable for NewClient.
func (m *MockHub) Hostname() string {
	u, _ := url.Parse(m.URL)
	return u.Host
}

// Credentials returns the cloud ID and install code the mock accepts.
func (m *MockHub) Credentials() (string, string) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cloudID, m.install
}

// SetDefaultData resets the mock to its default device set.
func (m *MockHub) SetDefaultData() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.devices = map[string]mockDevice{
		"0xd8d5b90000012345": {
			device: Device{
				Name:             "Power Meter",
				HardwareAddress:  "0xd8d5b90000012345",
				Manufacturer:     "Generic",
				ModelID:          ModelElectricMeter,
				Protocol:         "Zigbee",
				ConnectionStatus: "Connected",
				NetworkAddress:   "0x9a54",
				LastContact:      HexTime{Time: time.Unix(0x68b00000, 0).UTC()},
			},
			variables: map[string]mockVariable{
				VarPowerDemand:     {value: "1.414000", units: "kW", desc: "Instantaneous Demand"},
				VarEnergyDelivered: {value: "19520.761000", units: "kWh", desc: "Total Delivered"},
				VarEnergyReceived:  {value: "0.000000", units: "kWh", desc: "Total Received"},
				"zigbee:Multiplier": {value: "1", units: "", desc: "Multiplier"},
			},
		},
		"0xffff000000000001": {
			device: Device{
				Name:            "Thermostat",
				HardwareAddress: "0xffff000000000001",
				Manufacturer:    "Acme",
				ModelID:         "thermostat",
				Protocol:        "Zigbee",
			},
			variables: map[string]mockVariable{},
		},
	}
}

// SetVariable overrides a variable value on a device.
func (m *MockHub) SetVariable(address, name, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d, ok := m.devices[address]; ok {
		v := d.variables[name]
		v.value = value
		d.variables[name] = v
	}
}

// SetDeviceName overrides a device's reported name.
func (m *MockHub) SetDeviceName(address, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d, ok := m.devices[address]; ok {
		d.device.Name = name
		m.devices[address] = d
	}
}

// FailNext makes the next n commands with the given name return HTTP 500.
func (m *MockHub) FailNext(command string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[command] = n
}

// Delay introduces an artificial delay before answering the given command.
func (m *MockHub) Delay(command string, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delays[command] = d
}

// Requests returns the command names received so far.
func (m *MockHub) Requests() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, len(m.requests))
	copy(out, m.requests)
	return out
}

func (m *MockHub) handleCommand(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "post_manager only accepts POST", http.StatusMethodNotAllowed)
		return
	}

	user, pass, ok := r.BasicAuth()
	m.mu.RLock()
	wantUser, wantPass := m.cloudID, m.install
	m.mu.RUnlock()
	if !ok || user != wantUser || pass != wantPass {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var cmd Command
	if err := xml.NewDecoder(r.Body).Decode(&cmd); err != nil {
		http.Error(w, "bad command document", http.StatusBadRequest)
		return
	}

	m.mu.Lock()
	m.requests = append(m.requests, cmd.Name)
	delay := m.delays[cmd.Name]
	fail := false
	if n := m.failures[cmd.Name]; n > 0 {
		m.failures[cmd.Name] = n - 1
		fail = true
	}
	m.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if fail {
		http.Error(w, "simulated failure", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/xml")
	switch cmd.Name {
	case CmdDeviceList:
		m.writeDeviceList(w)
	case CmdDeviceQuery, CmdDeviceDetails:
		if cmd.Details == nil {
			http.Error(w, "missing DeviceDetails", http.StatusBadRequest)
			return
		}
		var selected []string
		if cmd.Components != nil && cmd.Components.Component != nil {
			for _, ref := range cmd.Components.Component.Variables {
				selected = append(selected, ref.Name)
			}
		}
		m.writeDeviceQuery(w, cmd.Details.HardwareAddress, cmd.Name == CmdDeviceQuery, selected)
	default:
		http.Error(w, fmt.Sprintf("unknown command %q", cmd.Name), http.StatusBadRequest)
	}
}

func (m *MockHub) writeDeviceList(w http.ResponseWriter) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var sb strings.Builder
	sb.WriteString("<DeviceList>")
	for _, d := range m.devices {
		sb.WriteString("<Device>")
		writeElem(&sb, "Name", d.device.Name)
		writeElem(&sb, "HardwareAddress", d.device.HardwareAddress)
		writeElem(&sb, "Manufacturer", d.device.Manufacturer)
		writeElem(&sb, "ModelId", d.device.ModelID)
		writeElem(&sb, "Protocol", d.device.Protocol)
		if !d.device.LastContact.IsZero() {
			writeElem(&sb, "LastContact", fmt.Sprintf("0x%x", d.device.LastContact.Unix()))
		}
		writeElem(&sb, "ConnectionStatus", d.device.ConnectionStatus)
		writeElem(&sb, "NetworkAddress", d.device.NetworkAddress)
		sb.WriteString("</Device>")
	}
	sb.WriteString("</DeviceList>")
	_, _ = w.Write([]byte(sb.String()))
}

func (m *MockHub) writeDeviceQuery(w http.ResponseWriter, address string, includeStatus bool, selected []string) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	d, ok := m.devices[address]
	if !ok {
		http.Error(w, "no such device", http.StatusNotFound)
		return
	}

	var sb strings.Builder
	sb.WriteString("<Device><DeviceDetails>")
	writeElem(&sb, "Name", d.device.Name)
	writeElem(&sb, "HardwareAddress", d.device.HardwareAddress)
	writeElem(&sb, "Manufacturer", d.device.Manufacturer)
	writeElem(&sb, "ModelId", d.device.ModelID)
	writeElem(&sb, "Protocol", d.device.Protocol)
	if includeStatus {
		// device_details responses omit the liveness fields; device_query
		// responses carry them. Real firmware behaves the same way.
		if !d.device.LastContact.IsZero() {
			writeElem(&sb, "LastContact", fmt.Sprintf("0x%x", d.device.LastContact.Unix()))
		}
		writeElem(&sb, "ConnectionStatus", d.device.ConnectionStatus)
		writeElem(&sb, "NetworkAddress", d.device.NetworkAddress)
	}
	sb.WriteString("</DeviceDetails><Components><Component>")
	writeElem(&sb, "Name", "Main")
	writeElem(&sb, "FixedId", "0")
	sb.WriteString("<Variables>")
	include := func(name string) bool {
		if len(selected) == 0 {
			return true
		}
		for _, s := range selected {
			if s == name {
				return true
			}
		}
		return false
	}
	for name, v := range d.variables {
		if !include(name) {
			continue
		}
		sb.WriteString("<Variable>")
		writeElem(&sb, "Name", name)
		writeElem(&sb, "Value", v.value)
		writeElem(&sb, "Description", v.desc)
		writeElem(&sb, "Units", v.units)
		sb.WriteString("</Variable>")
	}
	sb.WriteString("</Variables></Component></Components></Device>")
	_, _ = w.Write([]byte(sb.String()))
}

func writeElem(sb *strings.Builder, name, value string) {
	if value == "" {
		return
	}
	sb.WriteString("<" + name + ">")
	_ = xml.EscapeText(sb, []byte(value))
	sb.WriteString("</" + name + ">")
}
