// SPDX-License-Identifier: MIT

package eagle

import "encoding/xml"

// Known hub command names.
const (
	CmdDeviceList    = "device_list"
	CmdDeviceDetails = "device_details"
	CmdDeviceQuery   = "device_query"
)

// Command is the XML document the hub expects on /cgi-bin/post_manager.
type Command struct {
	XMLName    xml.Name        `xml:"Command"`
	Name       string          `xml:"Name"`
	Details    *commandDetails `xml:"DeviceDetails,omitempty"`
	Components *componentSel   `xml:"Components,omitempty"`
}

type commandDetails struct {
	HardwareAddress string `xml:"HardwareAddress"`
}

// componentSel selects which variables a device-scoped command returns:
// either everything (All=Y) or an explicit list on the Main component.
type componentSel struct {
	All       string         `xml:"All,omitempty"`
	Component *componentList `xml:"Component,omitempty"`
}

type componentList struct {
	Name      string        `xml:"Name"`
	Variables []variableRef `xml:"Variables>Variable"`
}

type variableRef struct {
	Name string `xml:"Name"`
}

// DeviceListCommand builds the command that enumerates paired devices.
func DeviceListCommand() Command {
	return Command{Name: CmdDeviceList}
}

// DeviceQueryCommand builds a device_query command. With no variables the
// query requests all components and variables; otherwise only the named
// variables on the Main component.
func DeviceQueryCommand(hardwareAddress string, variables ...string) Command {
	cmd := Command{
		Name:    CmdDeviceQuery,
		Details: &commandDetails{HardwareAddress: hardwareAddress},
	}
	if len(variables) == 0 {
		cmd.Components = &componentSel{All: "Y"}
		return cmd
	}
	refs := make([]variableRef, 0, len(variables))
	for _, v := range variables {
		refs = append(refs, variableRef{Name: v})
	}
	cmd.Components = &componentSel{Component: &componentList{Name: "Main", Variables: refs}}
	return cmd
}

// DeviceDetailsCommand builds a device_details command for a single device.
func DeviceDetailsCommand(hardwareAddress string) Command {
	return Command{
		Name:    CmdDeviceDetails,
		Details: &commandDetails{HardwareAddress: hardwareAddress},
	}
}
