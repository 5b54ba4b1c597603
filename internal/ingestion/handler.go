package ingestion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	v1 "github.com/telematch-lab/telematch/internal/api/v1"
	httperr "github.com/telematch-lab/telematch/internal/core/errors"
	"github.com/telematch-lab/telematch/internal/core/storage"
)

const (
	msgReadBodyFailed = "Failed to read request body"
	msgInvalidJSON    = "Invalid JSON body"
	msgPersistFailed  = "Failed to persist event"
	msgDuplicateEvent = "Event already exists"

	statusStored    = "stored"
	statusDuplicate = "duplicate"
)

// ingestionError carries the structured HTTP error shape from a helper back to the orchestrator.
// Helpers return this instead of writing to gin.Context directly, keeping them decoupled from HTTP.
type ingestionError struct {
	statusCode int
	errorType  string
	message    string
	details    interface{}
}

func (e *ingestionError) Error() string {
	return e.message
}

// BatchItemResult is the per-item outcome of a batch ingest.
type BatchItemResult struct {
	EventID string `json:"event_id"`
	Status  string `json:"status"` // stored | duplicate
}

// IngestHandler handles HTTP POST requests for single-event ingestion.
func (s *Service) IngestHandler(c *gin.Context) {
	body, err := s.readBody(c)
	if err != nil {
		writeError(c, err)
		return
	}

	var evt v1.Event
	if bindErr := json.Unmarshal(body, &evt); bindErr != nil {
		slog.Warn("Invalid JSON body received", "error", bindErr, "payload_size", len(body))
		writeError(c, &ingestionError{
			statusCode: http.StatusBadRequest,
			errorType:  httperr.HttpInvalidJsonError,
			message:    msgInvalidJSON,
		})
		return
	}

	if valErr := evt.Validate(); valErr != nil {
		slog.Warn("Envelope validation failed", "error", valErr, "event_id", evt.EventID)
		writeError(c, &ingestionError{
			statusCode: http.StatusBadRequest,
			errorType:  httperr.HttpInvalidJsonError,
			message:    valErr.Error(),
		})
		return
	}

	// set IngestedAt to be the time we receive the request
	evt.IngestedAt = time.Now().UTC()

	slog.Info("Received Event",
		"event_id", evt.EventID,
		"device_id", evt.DeviceID,
		"payload_size", len(body))

	if err := s.persistEvent(c.Request.Context(), &evt); err != nil {
		writeError(c, err)
		return
	}

	// Alerting is fire-and-forget: the caller learns whether the event was
	// stored regardless of evaluation or delivery outcomes.
	s.notifier.ProcessEvent(&evt)

	c.JSON(http.StatusAccepted, gin.H{"status": statusStored})
}

// IngestBatchHandler handles HTTP POST requests for batch ingestion.
// Per-item duplicates never abort the batch; a connection-level store failure
// does, since subsequent "stored" statuses could no longer be trusted.
func (s *Service) IngestBatchHandler(c *gin.Context) {
	body, err := s.readBody(c)
	if err != nil {
		writeError(c, err)
		return
	}

	var events []v1.Event
	if bindErr := json.Unmarshal(body, &events); bindErr != nil {
		slog.Warn("Invalid JSON batch received", "error", bindErr, "payload_size", len(body))
		writeError(c, &ingestionError{
			statusCode: http.StatusBadRequest,
			errorType:  httperr.HttpInvalidJsonError,
			message:    msgInvalidJSON,
		})
		return
	}

	for i := range events {
		if valErr := events[i].Validate(); valErr != nil {
			writeError(c, &ingestionError{
				statusCode: http.StatusBadRequest,
				errorType:  httperr.HttpInvalidJsonError,
				message:    valErr.Error(),
				details:    map[string]interface{}{"index": i},
			})
			return
		}
	}

	ingestedAt := time.Now().UTC()
	results := make([]BatchItemResult, 0, len(events))

	for i := range events {
		evt := &events[i]
		evt.IngestedAt = ingestedAt

		saveErr := s.store.SaveEvent(c.Request.Context(), evt)
		switch {
		case saveErr == nil:
			results = append(results, BatchItemResult{EventID: evt.EventID, Status: statusStored})
			s.notifier.ProcessEvent(evt)
		case errors.Is(saveErr, storage.ErrDuplicate):
			results = append(results, BatchItemResult{EventID: evt.EventID, Status: statusDuplicate})
		default:
			slog.Error("Batch ingest aborted on store failure",
				"error", saveErr,
				"event_id", evt.EventID,
				"stored_so_far", len(results))
			writeError(c, &ingestionError{
				statusCode: http.StatusInternalServerError,
				errorType:  httperr.HttpInternalError,
				message:    msgPersistFailed,
			})
			return
		}
	}

	slog.Info("Batch ingested", "count", len(results))
	c.JSON(http.StatusOK, results)
}

// readBody reads the raw request body, enforcing the configured maximum size.
func (s *Service) readBody(c *gin.Context) ([]byte, *ingestionError) {
	maxBytes := int64(s.maxBodySizeBytes)
	limitedBody := io.LimitReader(c.Request.Body, maxBytes+1) // +1 to detect oversized requests

	bodyBytes, err := io.ReadAll(limitedBody)
	if err != nil {
		slog.Error("Failed to read request body", "error", err)
		return nil, &ingestionError{
			statusCode: http.StatusInternalServerError,
			errorType:  httperr.HttpInternalError,
			message:    msgReadBodyFailed,
		}
	}

	if int64(len(bodyBytes)) > maxBytes {
		slog.Warn("Request body exceeds maximum size", "size", len(bodyBytes), "max", maxBytes)
		return nil, &ingestionError{
			statusCode: http.StatusRequestEntityTooLarge,
			errorType:  httperr.HttpInvalidJsonError,
			message:    "Request body exceeds maximum allowed size",
			details: map[string]interface{}{
				"max_size_mb": maxBytes / (1024 * 1024),
			},
		}
	}

	c.Request.Body = io.NopCloser(bytes.NewReader(bodyBytes))
	return bodyBytes, nil
}

// persistEvent saves the event to the backing store.
func (s *Service) persistEvent(ctx context.Context, evt *v1.Event) *ingestionError {
	if err := s.store.SaveEvent(ctx, evt); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			slog.Info("Duplicate event rejected", "event_id", evt.EventID, "device_id", evt.DeviceID)
			return &ingestionError{
				statusCode: http.StatusConflict,
				errorType:  httperr.HttpDuplicateEventError,
				message:    msgDuplicateEvent,
			}
		}

		slog.Error("Failed to persist event", "error", err, "event_id", evt.EventID)
		return &ingestionError{
			statusCode: http.StatusInternalServerError,
			errorType:  httperr.HttpInternalError,
			message:    msgPersistFailed,
		}
	}

	return nil
}

// writeError serializes an ingestionError as the JSON HTTP response.
func writeError(c *gin.Context, err *ingestionError) {
	c.JSON(err.statusCode, httperr.ErrorResponse{
		ErrorType: err.errorType,
		Message:   err.message,
		Details:   err.details,
	})
}
