package aggregation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	v1 "github.com/telematch-lab/telematch/internal/api/v1"
)

// fakeEventStore is an in-memory EventStore for reducer tests. Only the
// cursor scan is exercised by the engine.
type fakeEventStore struct {
	events []*v1.Event
	err    error
}

func (f *fakeEventStore) SaveEvent(ctx context.Context, event *v1.Event) error {
	return errors.New("not implemented")
}

func (f *fakeEventStore) RetrieveDeviceEventsInRange(ctx context.Context, deviceID string, from, to time.Time, limit int) ([]*v1.Event, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeEventStore) RetrieveEventsByTag(ctx context.Context, tag string, from, to time.Time, limit int) ([]*v1.Event, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeEventStore) RetrieveDeviceEventsAfterCursor(ctx context.Context, deviceID string, cursor int64, from, to time.Time, limit int) ([]*v1.Event, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []*v1.Event
	for _, evt := range f.events {
		if evt.DeviceID != deviceID || evt.IngestSeq <= cursor {
			continue
		}
		if evt.OccurredAt.Before(from) || evt.OccurredAt.After(to) {
			continue
		}
		out = append(out, evt)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func storedEvent(seq int64, device string, at time.Time, metrics map[string]float64) *v1.Event {
	return &v1.Event{
		EventID:    fmt.Sprintf("evt-%d", seq),
		DeviceID:   device,
		OccurredAt: at,
		IngestedAt: at,
		Metrics:    metrics,
		IngestSeq:  seq,
	}
}

func requireDecimal(t *testing.T, want float64, got decimal.Decimal) {
	t.Helper()
	require.True(t, got.Equal(decimal.NewFromFloat(want)), "want %v, got %s", want, got)
}

func TestEngine_AggregateMinuteBuckets(t *testing.T) {
	t0 := time.Date(2026, 2, 8, 10, 0, 0, 0, time.UTC)
	store := &fakeEventStore{events: []*v1.Event{
		storedEvent(1, "dev-1", t0, map[string]float64{"m": 1}),
		storedEvent(2, "dev-1", t0.Add(30*time.Second), map[string]float64{"m": 3}),
		storedEvent(3, "dev-1", t0.Add(90*time.Second), map[string]float64{"m": 5}),
	}}

	buckets, err := NewEngine(store).Aggregate(context.Background(), "dev-1", "m", t0, t0.Add(5*time.Minute), time.Minute)
	require.NoError(t, err)
	require.Len(t, buckets, 2)

	require.Equal(t, t0, buckets[0].BucketStart)
	require.Equal(t, int64(2), buckets[0].Count)
	requireDecimal(t, 4, buckets[0].Sum)
	requireDecimal(t, 2, buckets[0].Avg)
	requireDecimal(t, 1, buckets[0].Min)
	requireDecimal(t, 3, buckets[0].Max)

	require.Equal(t, t0.Add(time.Minute), buckets[1].BucketStart)
	require.Equal(t, int64(1), buckets[1].Count)
	requireDecimal(t, 5, buckets[1].Sum)
	requireDecimal(t, 5, buckets[1].Avg)
	requireDecimal(t, 5, buckets[1].Min)
	requireDecimal(t, 5, buckets[1].Max)
}

func TestEngine_EventsWithoutMetricDoNotContribute(t *testing.T) {
	t0 := time.Date(2026, 2, 8, 10, 0, 0, 0, time.UTC)
	store := &fakeEventStore{events: []*v1.Event{
		storedEvent(1, "dev-1", t0, map[string]float64{"other": 9}),
		storedEvent(2, "dev-1", t0.Add(10*time.Second), map[string]float64{"m": 2}),
	}}

	buckets, err := NewEngine(store).Aggregate(context.Background(), "dev-1", "m", t0, t0.Add(time.Minute), time.Minute)
	require.NoError(t, err)
	require.Len(t, buckets, 1)
	require.Equal(t, int64(1), buckets[0].Count)
	requireDecimal(t, 2, buckets[0].Sum)
}

func TestEngine_NonFiniteValuesExcludedNotFatal(t *testing.T) {
	t0 := time.Date(2026, 2, 8, 10, 0, 0, 0, time.UTC)
	store := &fakeEventStore{events: []*v1.Event{
		storedEvent(1, "dev-1", t0, map[string]float64{"m": math.NaN()}),
		storedEvent(2, "dev-1", t0.Add(time.Second), map[string]float64{"m": math.Inf(1)}),
		storedEvent(3, "dev-1", t0.Add(2*time.Second), map[string]float64{"m": 7}),
	}}

	buckets, err := NewEngine(store).Aggregate(context.Background(), "dev-1", "m", t0, t0.Add(time.Minute), time.Minute)
	require.NoError(t, err)
	require.Len(t, buckets, 1)
	require.Equal(t, int64(1), buckets[0].Count)
	requireDecimal(t, 7, buckets[0].Sum)
}

func TestEngine_EmptyRangeOmitsBuckets(t *testing.T) {
	t0 := time.Date(2026, 2, 8, 10, 0, 0, 0, time.UTC)
	store := &fakeEventStore{}

	buckets, err := NewEngine(store).Aggregate(context.Background(), "dev-1", "m", t0, t0.Add(time.Hour), time.Minute)
	require.NoError(t, err)
	require.Empty(t, buckets)
}

func TestEngine_DayBucketsAreCalendarAligned(t *testing.T) {
	day1 := time.Date(2026, 2, 8, 23, 59, 0, 0, time.UTC)
	day2 := time.Date(2026, 2, 9, 0, 1, 0, 0, time.UTC)
	store := &fakeEventStore{events: []*v1.Event{
		storedEvent(1, "dev-1", day1, map[string]float64{"m": 1}),
		storedEvent(2, "dev-1", day2, map[string]float64{"m": 2}),
	}}

	buckets, err := NewEngine(store).Aggregate(context.Background(), "dev-1", "m", day1.Add(-time.Hour), day2.Add(time.Hour), 24*time.Hour)
	require.NoError(t, err)
	require.Len(t, buckets, 2)
	require.Equal(t, time.Date(2026, 2, 8, 0, 0, 0, 0, time.UTC), buckets[0].BucketStart)
	require.Equal(t, time.Date(2026, 2, 9, 0, 0, 0, 0, time.UTC), buckets[1].BucketStart)
}

func TestEngine_PagesThroughLargeRanges(t *testing.T) {
	t0 := time.Date(2026, 2, 8, 0, 0, 0, 0, time.UTC)

	events := make([]*v1.Event, 0, scanBatchSize+10)
	for i := 0; i < scanBatchSize+10; i++ {
		events = append(events, storedEvent(int64(i+1), "dev-1", t0.Add(time.Duration(i)*time.Millisecond), map[string]float64{"m": 1}))
	}
	store := &fakeEventStore{events: events}

	buckets, err := NewEngine(store).Aggregate(context.Background(), "dev-1", "m", t0, t0.Add(time.Hour), time.Minute)
	require.NoError(t, err)
	require.Len(t, buckets, 1)
	require.Equal(t, int64(scanBatchSize+10), buckets[0].Count)
}

func TestEngine_StoreErrorPropagates(t *testing.T) {
	store := &fakeEventStore{err: errors.New("connection refused")}

	_, err := NewEngine(store).Aggregate(context.Background(), "dev-1", "m", time.Now().Add(-time.Hour), time.Now(), time.Minute)
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to scan events for aggregation")
}
