package models

import "time"

// EventMessage is the envelope broadcast to WebSocket clients.
type EventMessage struct {
	Type      string      `json:"type"` // telemetry | relay_changed | alert_created | alert_resolved | device_changed
	Payload   interface{} `json:"payload,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}
