package query

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/telematch-lab/telematch/internal/aggregation"
	v1 "github.com/telematch-lab/telematch/internal/api/v1"
	httperr "github.com/telematch-lab/telematch/internal/core/errors"
)

func newTestRouter(store *fakeEventStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	svc := NewService(store, aggregation.NewEngine(store), 100, 1000)
	r := gin.New()
	svc.RegisterRoutes(r)
	return r
}

func doGet(t *testing.T, router *gin.Engine, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func requireErrorType(t *testing.T, resp *httptest.ResponseRecorder, errorType string) {
	t.Helper()
	var errResp httperr.ErrorResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &errResp))
	require.Equal(t, errorType, errResp.ErrorType)
}

func TestHandleDeviceEvents(t *testing.T) {
	store := &fakeEventStore{events: []*v1.Event{
		{EventID: "evt-2", DeviceID: "dev-1", OccurredAt: time.Date(2026, 2, 8, 10, 30, 0, 0, time.UTC)},
		{EventID: "evt-1", DeviceID: "dev-1", OccurredAt: time.Date(2026, 2, 8, 10, 0, 0, 0, time.UTC)},
	}}

	tests := []struct {
		name          string
		path          string
		wantStatus    int
		wantErrorType string
	}{
		{
			name:       "valid range query",
			path:       "/v1/devices/dev-1/events?from=2026-02-08T10:00:00Z&to=2026-02-08T11:00:00Z",
			wantStatus: http.StatusOK,
		},
		{
			name:          "missing time range",
			path:          "/v1/devices/dev-1/events",
			wantStatus:    http.StatusBadRequest,
			wantErrorType: httperr.HttpInvalidQueryError,
		},
		{
			name:          "inverted range",
			path:          "/v1/devices/dev-1/events?from=2026-02-08T11:00:00Z&to=2026-02-08T10:00:00Z",
			wantStatus:    http.StatusBadRequest,
			wantErrorType: httperr.HttpInvalidQueryError,
		},
		{
			name:          "zero limit",
			path:          "/v1/devices/dev-1/events?from=2026-02-08T10:00:00Z&to=2026-02-08T11:00:00Z&limit=0",
			wantStatus:    http.StatusBadRequest,
			wantErrorType: httperr.HttpInvalidQueryError,
		},
		{
			name:          "negative limit",
			path:          "/v1/devices/dev-1/events?from=2026-02-08T10:00:00Z&to=2026-02-08T11:00:00Z&limit=-5",
			wantStatus:    http.StatusBadRequest,
			wantErrorType: httperr.HttpInvalidQueryError,
		},
	}

	router := newTestRouter(store)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := doGet(t, router, tt.path)
			require.Equal(t, tt.wantStatus, resp.Code)
			if tt.wantErrorType != "" {
				requireErrorType(t, resp, tt.wantErrorType)
			}
		})
	}
}

func TestHandleDeviceEvents_ResponseShape(t *testing.T) {
	store := &fakeEventStore{events: []*v1.Event{
		{EventID: "evt-1", DeviceID: "dev-1", OccurredAt: time.Date(2026, 2, 8, 10, 0, 0, 0, time.UTC)},
	}}
	router := newTestRouter(store)

	resp := doGet(t, router, "/v1/devices/dev-1/events?from=2026-02-08T10:00:00Z&to=2026-02-08T11:00:00Z")
	require.Equal(t, http.StatusOK, resp.Code)

	var body DeviceEventsResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	require.Equal(t, "dev-1", body.DeviceID)
	require.Equal(t, 1, body.Count)
	require.Len(t, body.Events, 1)
	require.Equal(t, "evt-1", body.Events[0].EventID)
}

func TestHandleAggregate(t *testing.T) {
	t0 := time.Date(2026, 2, 8, 10, 0, 0, 0, time.UTC)
	store := &fakeEventStore{events: []*v1.Event{
		{EventID: "evt-1", DeviceID: "dev-1", OccurredAt: t0, Metrics: map[string]float64{"m": 3}, IngestSeq: 1},
	}}
	router := newTestRouter(store)

	tests := []struct {
		name          string
		path          string
		wantStatus    int
		wantErrorType string
	}{
		{
			name:       "valid aggregate",
			path:       "/v1/metrics/aggregate?device_id=dev-1&metric=m&from=2026-02-08T10:00:00Z&to=2026-02-08T11:00:00Z&interval=1m",
			wantStatus: http.StatusOK,
		},
		{
			name:          "unknown interval",
			path:          "/v1/metrics/aggregate?device_id=dev-1&metric=m&from=2026-02-08T10:00:00Z&to=2026-02-08T11:00:00Z&interval=7m",
			wantStatus:    http.StatusBadRequest,
			wantErrorType: httperr.HttpInvalidQueryError,
		},
		{
			name:          "missing metric",
			path:          "/v1/metrics/aggregate?device_id=dev-1&from=2026-02-08T10:00:00Z&to=2026-02-08T11:00:00Z&interval=1m",
			wantStatus:    http.StatusBadRequest,
			wantErrorType: httperr.HttpInvalidQueryError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := doGet(t, router, tt.path)
			require.Equal(t, tt.wantStatus, resp.Code)
			if tt.wantErrorType != "" {
				requireErrorType(t, resp, tt.wantErrorType)
			}
		})
	}
}

func TestHandleAggregate_ResponseShape(t *testing.T) {
	t0 := time.Date(2026, 2, 8, 10, 0, 0, 0, time.UTC)
	store := &fakeEventStore{events: []*v1.Event{
		{EventID: "evt-1", DeviceID: "dev-1", OccurredAt: t0, Metrics: map[string]float64{"m": 3}, IngestSeq: 1},
		{EventID: "evt-2", DeviceID: "dev-1", OccurredAt: t0.Add(10 * time.Second), Metrics: map[string]float64{"m": 5}, IngestSeq: 2},
	}}
	router := newTestRouter(store)

	resp := doGet(t, router, "/v1/metrics/aggregate?device_id=dev-1&metric=m&from=2026-02-08T10:00:00Z&to=2026-02-08T11:00:00Z&interval=1m")
	require.Equal(t, http.StatusOK, resp.Code)

	var body AggregateResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	require.Equal(t, "dev-1", body.DeviceID)
	require.Equal(t, "m", body.Metric)
	require.Len(t, body.Buckets, 1)
	require.Equal(t, int64(2), body.Buckets[0].Count)
}

func TestHandleTagSearch(t *testing.T) {
	store := &fakeEventStore{events: []*v1.Event{
		{EventID: "evt-1", DeviceID: "dev-1", Tags: []string{"indoor"}},
	}}
	router := newTestRouter(store)

	resp := doGet(t, router, "/v1/search?tag=indoor&from=2026-02-08T10:00:00Z&to=2026-02-08T11:00:00Z")
	require.Equal(t, http.StatusOK, resp.Code)

	var body TagSearchResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	require.Equal(t, "indoor", body.Tag)
	require.Equal(t, 1, body.Count)

	resp = doGet(t, router, "/v1/search?from=2026-02-08T10:00:00Z&to=2026-02-08T11:00:00Z")
	require.Equal(t, http.StatusBadRequest, resp.Code)
	requireErrorType(t, resp, httperr.HttpInvalidQueryError)
}
