package postgres

import (
	"encoding/json"
	"fmt"

	v1 "github.com/telematch-lab/telematch/internal/api/v1"
)

// marshalEventJSON marshals an event's metrics and tags to JSON for the JSONB
// columns. A nil tag list produces an empty JSON array rather than SQL NULL so
// the containment query always has something to probe.
func marshalEventJSON(event *v1.Event) (metricsJSON, tagsJSON []byte, err error) {
	metricsJSON, err = json.Marshal(event.Metrics)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal metrics: %w", err)
	}

	tags := event.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, err = json.Marshal(tags)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal tags: %w", err)
	}

	return metricsJSON, tagsJSON, nil
}

// tagProbe builds the JSONB containment probe for a single tag: ["<tag>"].
func tagProbe(tag string) ([]byte, error) {
	probe, err := json.Marshal([]string{tag})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tag probe: %w", err)
	}
	return probe, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

// scanEventRow scans a database row into an Event struct.
// Handles JSON unmarshalling for the metrics and tags columns.
// Compatible with both sql.Row (single) and sql.Rows (multiple).
func scanEventRow(row scanner) (*v1.Event, error) {
	var evt v1.Event
	var metricsJSON, tagsJSON []byte

	err := row.Scan(
		&evt.EventID,
		&evt.DeviceID,
		&evt.OccurredAt,
		&evt.IngestedAt,
		&metricsJSON,
		&tagsJSON,
		&evt.IngestSeq,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan event row: %w", err)
	}

	if err := json.Unmarshal(metricsJSON, &evt.Metrics); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metrics: %w", err)
	}

	if len(tagsJSON) > 0 {
		if err := json.Unmarshal(tagsJSON, &evt.Tags); err != nil {
			return nil, fmt.Errorf("failed to unmarshal tags: %w", err)
		}
	}

	return &evt, nil
}
