package query

import (
	"time"

	"github.com/telematch-lab/telematch/internal/aggregation"
	v1 "github.com/telematch-lab/telematch/internal/api/v1"
)

// DeviceEventsRequest represents the parameters for a device range query.
type DeviceEventsRequest struct {
	DeviceID string
	From     time.Time
	To       time.Time
	Limit    int
}

// DeviceEventsResponse represents the response for a device range query.
// Events are ordered newest first.
type DeviceEventsResponse struct {
	DeviceID string      `json:"device_id"`
	Count    int         `json:"count"`
	Events   []*v1.Event `json:"events"`
}

// TagSearchRequest represents the parameters for a tag containment search.
type TagSearchRequest struct {
	Tag   string
	From  time.Time
	To    time.Time
	Limit int
}

// TagSearchResponse represents the response for a tag search.
type TagSearchResponse struct {
	Tag    string      `json:"tag"`
	Count  int         `json:"count"`
	Events []*v1.Event `json:"events"`
}

// AggregateRequest represents the parameters for a bucketed metric aggregation.
type AggregateRequest struct {
	DeviceID string
	Metric   string
	From     time.Time
	To       time.Time
	Interval string // 1m | 1h | 1d
}

// AggregateResponse represents the response for an aggregate query.
// Buckets are ordered ascending by bucket_start; empty buckets are omitted.
type AggregateResponse struct {
	DeviceID string               `json:"device_id"`
	Metric   string               `json:"metric"`
	Interval string               `json:"interval"`
	Buckets  []aggregation.Bucket `json:"buckets"`
}
