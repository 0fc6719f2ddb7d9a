// SPDX-License-Identifier: MIT

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Attribute keys used across the daemon's spans.
const (
	HTTPMethodKey     = "http.method"
	HTTPStatusCodeKey = "http.status_code"
	HTTPRouteKey      = "http.route"
	HTTPURLKey        = "http.url"

	HubHostKey    = "hub.host"
	HubCommandKey = "hub.command"

	DeviceAddressKey = "device.hardware_address"
	DeviceModelKey   = "device.model_id"

	PollDevicesKey  = "poll.devices"
	PollMetersKey   = "poll.meters"
	PollDurationKey = "poll.duration_ms"

	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// HTTPAttributes creates common HTTP span attributes.
func HTTPAttributes(method, route, url string, statusCode int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(HTTPMethodKey, method),
		attribute.String(HTTPRouteKey, route),
		attribute.String(HTTPURLKey, url),
		attribute.Int(HTTPStatusCodeKey, statusCode),
	}
}

// HubAttributes creates hub command span attributes.
func HubAttributes(host, command string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(HubHostKey, host),
		attribute.String(HubCommandKey, command),
	}
}

// DeviceAttributes creates device span attributes.
func DeviceAttributes(address, modelID string) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 2)
	if address != "" {
		attrs = append(attrs, attribute.String(DeviceAddressKey, address))
	}
	if modelID != "" {
		attrs = append(attrs, attribute.String(DeviceModelKey, modelID))
	}
	return attrs
}

// PollAttributes creates poll cycle span attributes.
func PollAttributes(devices, meters int, durationMS int64) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(PollDevicesKey, devices),
		attribute.Int(PollMetersKey, meters),
		attribute.Int64(PollDurationKey, durationMS),
	}
}

// ErrorAttributes creates error span attributes.
func ErrorAttributes(errorType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, errorType),
	}
}
