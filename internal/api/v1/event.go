package v1

import (
	"fmt"
	"time"
)

// Event is the atomic unit of the system: one telemetry reading from one device.
type Event struct {
	// EventID is the unique immutable identifier provided by the client.
	// It MUST be globally unique to enforce idempotency; a second insert with
	// the same id is a duplicate, never an overwrite.
	EventID string `json:"event_id"`

	// DeviceID identifies the device that produced this event.
	// This is the primary dimension for alerting, streaming and aggregation.
	DeviceID string `json:"device_id"`

	// OccurredAt is when the reading was taken (client-side clock).
	// This distinguishes it from IngestedAt (server-side clock).
	OccurredAt time.Time `json:"timestamp"`

	// Metrics is the flat name → value map of readings carried by this event.
	Metrics map[string]float64 `json:"metrics"`

	// Tags is an ordered set of free-form labels used by tag search.
	Tags []string `json:"tags,omitempty"`

	// IngestedAt is when the server received the event (audit trail).
	// Set by the ingestion service, not the client.
	IngestedAt time.Time `json:"ingested_at,omitempty"`

	// IngestSeq is a monotonic sequence number assigned on ingestion.
	// Provides strict total ordering for cursor pagination.
	// Set by database (BIGSERIAL), not exposed in the public API.
	IngestSeq int64 `json:"-"`
}

// Validate ensures the event has all required envelope attributes.
func (e *Event) Validate() error {
	if e.EventID == "" {
		return fmt.Errorf("event_id is required")
	}

	if e.DeviceID == "" {
		return fmt.Errorf("device_id is required")
	}

	if e.OccurredAt.IsZero() {
		return fmt.Errorf("timestamp is required")
	}

	return nil
}

// AlertRule is a per-device threshold rule. Rules are immutable after
// registration and live for the process lifetime. There is no uniqueness
// constraint — identical rules coexist and all fire independently.
type AlertRule struct {
	DeviceID    string  `json:"device_id" yaml:"device_id"`
	Metric      string  `json:"metric" yaml:"metric"`
	Operator    string  `json:"operator" yaml:"operator"` // gt, lt, ge, le, eq
	Threshold   float64 `json:"threshold" yaml:"threshold"`
	CallbackURL string  `json:"callback_url,omitempty" yaml:"callback_url,omitempty"`
}

// Validate ensures the rule is well-formed enough to register via the API.
// Operator membership is checked separately at the boundary so the registry
// itself can stay append-only.
func (r *AlertRule) Validate() error {
	if r.DeviceID == "" {
		return fmt.Errorf("device_id is required")
	}

	if r.Metric == "" {
		return fmt.Errorf("metric is required")
	}

	if r.Operator == "" {
		return fmt.Errorf("operator is required")
	}

	return nil
}

// NotificationPayload is the transient record pushed to alert-stream
// subscribers. Constructed per triggered rule, consumed once, never stored.
type NotificationPayload struct {
	DeviceID string             `json:"device_id"`
	Metrics  map[string]float64 `json:"metrics"`
	Time     time.Time          `json:"time"`
}
