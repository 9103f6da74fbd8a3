// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldRequestID = "request_id"

	// Process fields
	FieldEvent     = "event"
	FieldComponent = "component"

	// Arbitration fields
	FieldSource     = "source"
	FieldCurrent    = "current_source"
	FieldActive     = "active"
	FieldWantActive = "want_active"
	FieldTunnelID   = "tunnel_id"
	FieldQueue      = "queue"
	FieldResult     = "result"

	// Connection fields
	FieldServiceName = "service_name"
	FieldConnectType = "connect_type"
	FieldGeneration  = "generation"
	FieldConnState   = "conn_state"
	FieldOp          = "op"
	FieldAttempt     = "attempt"

	// Event fields
	FieldMsgType = "msg_type"

	// State fields
	FieldOldState = "old_state"
	FieldNewState = "new_state"

	// Path fields
	FieldPath = "path"
)
