package storage

import (
	"context"
	"errors"
	"time"

	v1 "github.com/telematch-lab/telematch/internal/api/v1"
)

// ErrDuplicate is returned when an event with the same event_id already exists.
var ErrDuplicate = errors.New("event already exists")

// EventStore defines the interface for storing and retrieving telemetry events.
type EventStore interface {
	// SaveEvent persists one event. Returns ErrDuplicate on an event_id
	// conflict; any other error is a store failure.
	SaveEvent(ctx context.Context, event *v1.Event) error

	// RetrieveDeviceEventsInRange fetches events for one device with
	// occurred_at in [from, to], newest first, capped at limit.
	RetrieveDeviceEventsInRange(ctx context.Context, deviceID string, from, to time.Time, limit int) ([]*v1.Event, error)

	// RetrieveEventsByTag fetches events whose tag set contains tag, with
	// occurred_at in [from, to], capped at limit.
	RetrieveEventsByTag(ctx context.Context, tag string, from, to time.Time, limit int) ([]*v1.Event, error)

	// RetrieveDeviceEventsAfterCursor fetches device events with
	// ingest_seq > cursor and occurred_at in [from, to], in strict total order
	// (ingest_seq ASC). Used by the aggregation engine to stream the range in
	// pages without batch boundary data loss. cursor=0 means "from the beginning".
	RetrieveDeviceEventsAfterCursor(ctx context.Context, deviceID string, cursor int64, from, to time.Time, limit int) ([]*v1.Event, error)
}
