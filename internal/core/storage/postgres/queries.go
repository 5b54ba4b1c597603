package postgres

// SQL queries for telemetry event storage.

const (
	// querySaveEvent inserts an event keyed by its globally unique event_id.
	// RETURNING retrieves the auto-generated ingest_seq for cursor tracking.
	// ON CONFLICT DO NOTHING returns no rows (sql.ErrNoRows) for duplicates,
	// which the adapter maps to storage.ErrDuplicate.
	querySaveEvent = `
		INSERT INTO events (
			event_id, device_id, occurred_at, ingested_at, metrics, tags
		)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (event_id) DO NOTHING
		RETURNING ingest_seq
	`

	// queryDeviceEventsInRange serves the range query API: newest first.
	queryDeviceEventsInRange = `
		SELECT
			event_id, device_id, occurred_at, ingested_at, metrics, tags, ingest_seq
		FROM events
		WHERE device_id = $1
		  AND occurred_at >= $2
		  AND occurred_at <= $3
		ORDER BY occurred_at DESC
		LIMIT $4
	`

	// queryEventsByTag serves tag search via JSONB containment.
	// The GIN index on tags makes the @> probe cheap.
	queryEventsByTag = `
		SELECT
			event_id, device_id, occurred_at, ingested_at, metrics, tags, ingest_seq
		FROM events
		WHERE tags @> $1
		  AND occurred_at >= $2
		  AND occurred_at <= $3
		ORDER BY occurred_at DESC
		LIMIT $4
	`

	// queryDeviceEventsAfterCursor pages device events in strict total order.
	// Used by the aggregation engine to stream a time range through the
	// in-process reducer without loading it all at once.
	queryDeviceEventsAfterCursor = `
		SELECT
			event_id, device_id, occurred_at, ingested_at, metrics, tags, ingest_seq
		FROM events
		WHERE ingest_seq > $1
		  AND device_id = $2
		  AND occurred_at >= $3
		  AND occurred_at <= $4
		ORDER BY ingest_seq ASC
		LIMIT $5
	`
)
