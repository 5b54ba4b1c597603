package aggregation

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	v1 "github.com/telematch-lab/telematch/internal/api/v1"
	"github.com/telematch-lab/telematch/internal/core/interval"
	"github.com/telematch-lab/telematch/internal/core/storage"
)

const (
	scanBatchSize     = 5000
	maxScanIterations = 20 // Limit to prevent timeout/OOM on very large ranges
)

// Bucket is one row of an aggregate query result: the count/sum/avg/min/max
// of a metric over a calendar-aligned time interval. Computed on demand,
// never persisted.
type Bucket struct {
	BucketStart time.Time       `json:"bucket_start"`
	Count       int64           `json:"count"`
	Sum         decimal.Decimal `json:"sum"`
	Avg         decimal.Decimal `json:"avg"`
	Min         decimal.Decimal `json:"min"`
	Max         decimal.Decimal `json:"max"`
}

// Engine computes time-bucketed aggregations by streaming raw events from
// the event store through an in-process reducer. The contract is the output
// table; paging is an implementation detail bounded by maxScanIterations.
type Engine struct {
	store storage.EventStore
}

func NewEngine(store storage.EventStore) *Engine {
	if store == nil {
		panic("aggregation: store must not be nil")
	}
	return &Engine{store: store}
}

// accumulator folds metric values for one bucket. Sum/min/max are carried in
// decimal so accumulation order cannot perturb the result.
type accumulator struct {
	count int64
	sum   decimal.Decimal
	min   decimal.Decimal
	max   decimal.Decimal
}

func (a *accumulator) add(value float64) {
	d := decimal.NewFromFloat(value)
	if a.count == 0 {
		a.sum = d
		a.min = d
		a.max = d
		a.count = 1
		return
	}

	a.sum = a.sum.Add(d)
	if d.LessThan(a.min) {
		a.min = d
	}
	if d.GreaterThan(a.max) {
		a.max = d
	}
	a.count++
}

// Aggregate computes per-bucket count/sum/avg/min/max for one device metric
// over [from, to], ascending by bucket start. Only events that carry the
// metric contribute; a non-finite value is excluded from its bucket rather
// than failing the query. Buckets with no contributing events are omitted.
func (e *Engine) Aggregate(ctx context.Context, deviceID, metric string, from, to time.Time, bucketWidth time.Duration) ([]Bucket, error) {
	if bucketWidth <= 0 {
		bucketWidth = time.Minute
	}

	buckets := make(map[time.Time]*accumulator)

	cursor := int64(0)
	iterations := 0
	totalEvents := 0
	for {
		if iterations >= maxScanIterations {
			slog.Warn("Aggregation scan reached maximum iteration limit",
				"device_id", deviceID,
				"metric", metric,
				"iterations", iterations,
				"events_scanned", totalEvents,
			)
			return nil, fmt.Errorf("aggregation scan exceeded maximum iterations (%d batches, %d events) - narrow the time range",
				maxScanIterations, totalEvents)
		}

		events, err := e.store.RetrieveDeviceEventsAfterCursor(ctx, deviceID, cursor, from, to, scanBatchSize)
		if err != nil {
			return nil, fmt.Errorf("failed to scan events for aggregation: %w", err)
		}
		if len(events) == 0 {
			break
		}

		e.foldEvents(events, metric, bucketWidth, buckets)
		totalEvents += len(events)
		iterations++

		cursor = events[len(events)-1].IngestSeq
		if len(events) < scanBatchSize {
			break
		}
	}

	return flattenBuckets(buckets), nil
}

func (e *Engine) foldEvents(events []*v1.Event, metric string, bucketWidth time.Duration, buckets map[time.Time]*accumulator) {
	for _, evt := range events {
		value, ok := evt.Metrics[metric]
		if !ok {
			continue
		}
		if math.IsNaN(value) || math.IsInf(value, 0) {
			// Excluded from this bucket's aggregate, never fatal to the query.
			continue
		}

		start := interval.BucketFor(evt.OccurredAt, bucketWidth)
		acc, exists := buckets[start]
		if !exists {
			acc = &accumulator{}
			buckets[start] = acc
		}
		acc.add(value)
	}
}

func flattenBuckets(buckets map[time.Time]*accumulator) []Bucket {
	results := make([]Bucket, 0, len(buckets))
	for start, acc := range buckets {
		results = append(results, Bucket{
			BucketStart: start,
			Count:       acc.count,
			Sum:         acc.sum,
			Avg:         acc.sum.Div(decimal.NewFromInt(acc.count)),
			Min:         acc.min,
			Max:         acc.max,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].BucketStart.Before(results[j].BucketStart)
	})

	return results
}
