package query

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/telematch-lab/telematch/internal/aggregation"
	"github.com/telematch-lab/telematch/internal/core/interval"
	"github.com/telematch-lab/telematch/internal/core/storage"
	"golang.org/x/sync/singleflight"
)

// ErrInvalidQuery marks request validation errors that should return HTTP 400.
var ErrInvalidQuery = errors.New("invalid query")

// Service implements the read API over the event store and the aggregation engine.
type Service struct {
	store        storage.EventStore
	engine       *aggregation.Engine
	defaultLimit int
	maxLimit     int

	aggGroup singleflight.Group // Dedupe identical concurrent aggregate scans
}

// NewService creates a new query service. Limits come from the query config
// section and bound how many events a single request may return.
func NewService(store storage.EventStore, engine *aggregation.Engine, defaultLimit, maxLimit int) *Service {
	if store == nil {
		panic("query: store must not be nil")
	}
	if engine == nil {
		panic("query: engine must not be nil")
	}
	if defaultLimit <= 0 {
		defaultLimit = 100
	}
	if maxLimit < defaultLimit {
		maxLimit = defaultLimit
	}
	return &Service{
		store:        store,
		engine:       engine,
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
	}
}

// DeviceEvents retrieves events for a device in a time range, newest first.
func (s *Service) DeviceEvents(ctx context.Context, req DeviceEventsRequest) (*DeviceEventsResponse, error) {
	if strings.TrimSpace(req.DeviceID) == "" {
		return nil, invalidQueryf("device_id is required")
	}
	limit, err := s.resolveLimit(req.Limit)
	if err != nil {
		return nil, err
	}
	if err := validateRange(req.From, req.To); err != nil {
		return nil, err
	}

	events, err := s.store.RetrieveDeviceEventsInRange(ctx, req.DeviceID, req.From, req.To, limit)
	if err != nil {
		return nil, fmt.Errorf("query device events: %w", err)
	}

	return &DeviceEventsResponse{
		DeviceID: req.DeviceID,
		Count:    len(events),
		Events:   events,
	}, nil
}

// SearchByTag retrieves events whose tag set contains the given tag.
func (s *Service) SearchByTag(ctx context.Context, req TagSearchRequest) (*TagSearchResponse, error) {
	if strings.TrimSpace(req.Tag) == "" {
		return nil, invalidQueryf("tag is required")
	}
	limit, err := s.resolveLimit(req.Limit)
	if err != nil {
		return nil, err
	}
	if err := validateRange(req.From, req.To); err != nil {
		return nil, err
	}

	events, err := s.store.RetrieveEventsByTag(ctx, req.Tag, req.From, req.To, limit)
	if err != nil {
		return nil, fmt.Errorf("query events by tag: %w", err)
	}

	return &TagSearchResponse{
		Tag:    req.Tag,
		Count:  len(events),
		Events: events,
	}, nil
}

// Aggregate computes time-bucketed statistics for one device metric.
// Identical concurrent requests share a single underlying scan.
func (s *Service) Aggregate(ctx context.Context, req AggregateRequest) (*AggregateResponse, error) {
	if strings.TrimSpace(req.DeviceID) == "" {
		return nil, invalidQueryf("device_id is required")
	}
	if strings.TrimSpace(req.Metric) == "" {
		return nil, invalidQueryf("metric is required")
	}
	if err := validateRange(req.From, req.To); err != nil {
		return nil, err
	}

	width, err := interval.Parse(req.Interval)
	if err != nil {
		return nil, invalidQueryf("%s", err.Error())
	}

	key := fmt.Sprintf("%s|%s|%d|%d|%s",
		req.DeviceID, req.Metric, req.From.UnixNano(), req.To.UnixNano(), req.Interval)

	result, err, _ := s.aggGroup.Do(key, func() (interface{}, error) {
		return s.engine.Aggregate(ctx, req.DeviceID, req.Metric, req.From, req.To, width)
	})
	if err != nil {
		return nil, fmt.Errorf("aggregate %s/%s: %w", req.DeviceID, req.Metric, err)
	}

	return &AggregateResponse{
		DeviceID: req.DeviceID,
		Metric:   req.Metric,
		Interval: req.Interval,
		Buckets:  result.([]aggregation.Bucket),
	}, nil
}

// resolveLimit applies the configured default and maximum. Zero means the
// caller omitted the parameter; negative or explicit zero is rejected upstream.
func (s *Service) resolveLimit(limit int) (int, error) {
	if limit == 0 {
		return s.defaultLimit, nil
	}
	if limit < 0 {
		return 0, invalidQueryf("limit must be > 0")
	}
	if limit > s.maxLimit {
		return s.maxLimit, nil
	}
	return limit, nil
}

func validateRange(from, to time.Time) error {
	if from.IsZero() || to.IsZero() {
		return invalidQueryf("from and to are required")
	}
	if from.After(to) {
		return invalidQueryf("from must not be after to")
	}
	return nil
}

func invalidQueryf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidQuery, fmt.Sprintf(format, args...))
}
