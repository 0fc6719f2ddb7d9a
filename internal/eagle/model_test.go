// SPDX-License-Identifier: MIT

package eagle

import (
	"encoding/json"
	"encoding/xml"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueCoercion(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want any
	}{
		{"bool true", "true", true},
		{"bool mixed case", "True", true},
		{"bool false", "false", false},
		{"integer", "42", int64(42)},
		{"negative integer", "-7", int64(-7)},
		{"float", "1.414000", 1.414},
		{"string", "Connected", "Connected"},
		{"hex stays string", "0x1f", "0x1f"},
		{"empty is nil", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Value{Raw: tt.raw, present: tt.raw != ""}
			assert.Equal(t, tt.want, v.Any())
		})
	}
}

func TestValueJSON(t *testing.T) {
	var doc struct {
		XMLName xml.Name `xml:"Variable"`
		Value   Value    `xml:"Value"`
	}
	require.NoError(t, xml.Unmarshal([]byte("<Variable><Value>19520.761000</Value></Variable>"), &doc))

	out, err := json.Marshal(doc.Value)
	require.NoError(t, err)
	assert.Equal(t, "19520.761", string(out))
}

func TestHexTimeParsing(t *testing.T) {
	var doc struct {
		XMLName     xml.Name `xml:"Device"`
		LastContact HexTime  `xml:"LastContact"`
	}
	require.NoError(t, xml.Unmarshal([]byte("<Device><LastContact>0x68b00000</LastContact></Device>"), &doc))

	want := time.Unix(0x68b00000, 0).UTC()
	assert.Equal(t, want, doc.LastContact.Time)

	out, err := json.Marshal(doc.LastContact)
	require.NoError(t, err)
	assert.Equal(t, `"`+want.Format(time.RFC3339)+`"`, string(out))
}

func TestHexTimeGarbageIsAbsent(t *testing.T) {
	var doc struct {
		XMLName     xml.Name `xml:"Device"`
		LastContact HexTime  `xml:"LastContact"`
	}
	require.NoError(t, xml.Unmarshal([]byte("<Device><LastContact>not-a-time</LastContact></Device>"), &doc))
	assert.True(t, doc.LastContact.IsZero())

	out, err := json.Marshal(doc.LastContact)
	require.NoError(t, err)
	assert.Equal(t, "null", string(out))
}

const deviceQueryXML = `
<Device>
  <DeviceDetails>
    <Name>Power Meter</Name>
    <HardwareAddress>0xd8d5b90000012345</HardwareAddress>
    <Manufacturer>Generic</Manufacturer>
    <ModelId>electric_meter</ModelId>
    <Protocol>Zigbee</Protocol>
    <LastContact>0x68b00000</LastContact>
    <ConnectionStatus>Connected</ConnectionStatus>
    <NetworkAddress>0x9a54</NetworkAddress>
  </DeviceDetails>
  <Components>
    <Component>
      <Name>Main</Name>
      <FixedId>0</FixedId>
      <Variables>
        <Variable>
          <Name>zigbee:InstantaneousDemand</Name>
          <Value>1.414000</Value>
          <Units>kW</Units>
        </Variable>
        <Variable>
          <Name>zigbee:Message</Name>
          <Value></Value>
        </Variable>
      </Variables>
    </Component>
  </Components>
</Device>`

func TestDeviceQueryResponseDecode(t *testing.T) {
	var resp DeviceQueryResponse
	require.NoError(t, xml.Unmarshal([]byte(deviceQueryXML), &resp))

	assert.Equal(t, "Power Meter", resp.Details.Name)
	assert.True(t, resp.Details.IsMeter())
	assert.True(t, resp.Details.Connected())
	require.Len(t, resp.Components, 1)
	require.Len(t, resp.Components[0].Variables, 2)

	v, ok := resp.Variable(VarPowerDemand)
	require.True(t, ok)
	f, ok := v.Value.Float64()
	require.True(t, ok)
	assert.InDelta(t, 1.414, f, 1e-9)
	assert.Equal(t, "kW", v.Units)

	// Null variables are skipped unless asked for.
	assert.Len(t, resp.Variables(false), 1)
	assert.Len(t, resp.Variables(true), 2)
}

func TestDeviceListDecodeSingleDevice(t *testing.T) {
	// A hub with one paired device still nests it in DeviceList.
	const doc = `<DeviceList><Device><Name>Meter</Name><HardwareAddress>0x01</HardwareAddress><ModelId>electric_meter</ModelId></Device></DeviceList>`
	var list DeviceList
	require.NoError(t, xml.Unmarshal([]byte(doc), &list))
	require.Len(t, list.Devices, 1)
	assert.Equal(t, "0x01", list.Devices[0].HardwareAddress)
}

func TestCommandMarshalShape(t *testing.T) {
	out, err := xml.Marshal(DeviceQueryCommand("0x01"))
	require.NoError(t, err)
	assert.Equal(t,
		"<Command><Name>device_query</Name><DeviceDetails><HardwareAddress>0x01</HardwareAddress></DeviceDetails><Components><All>Y</All></Components></Command>",
		string(out))

	out, err = xml.Marshal(DeviceQueryCommand("0x01", VarPowerDemand))
	require.NoError(t, err)
	assert.Contains(t, string(out), "<Component><Name>Main</Name><Variables><Variable><Name>zigbee:InstantaneousDemand</Name></Variable></Variables></Component>")

	out, err = xml.Marshal(DeviceListCommand())
	require.NoError(t, err)
	assert.Equal(t, "<Command><Name>device_list</Name></Command>", string(out))
}
