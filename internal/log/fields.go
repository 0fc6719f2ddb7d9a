// SPDX-License-Identifier: MIT

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldRequestID = "request_id"
	FieldPollID    = "poll_id"
	FieldCloudID   = "cloud_id"
	FieldAddress   = "hardware_address"

	// Process fields
	FieldEvent     = "event"
	FieldComponent = "component"

	// Device fields
	FieldDevice   = "device"
	FieldModelID  = "model_id"
	FieldVariable = "variable"

	// Path / host fields
	FieldPath = "path"
	FieldHost = "host"
)
