package alerting

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	v1 "github.com/telematch-lab/telematch/internal/api/v1"
	httperr "github.com/telematch-lab/telematch/internal/core/errors"
)

// RegisterAlertHandler handles POST /v1/alerts.
// An unknown operator is rejected here rather than accepted as a rule that
// silently never fires; the registry itself stays append-only.
func (s *Service) RegisterAlertHandler(c *gin.Context) {
	var rule v1.AlertRule
	if err := c.ShouldBindJSON(&rule); err != nil {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidJsonError,
			Message:   "Invalid JSON body",
			Details:   err.Error(),
		})
		return
	}

	if err := rule.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidRuleError,
			Message:   err.Error(),
		})
		return
	}

	if !ValidOperator(rule.Operator) {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidRuleError,
			Message:   fmt.Sprintf("unsupported operator %q (must be gt, lt, ge, le or eq)", rule.Operator),
		})
		return
	}

	s.registry.Register(rule)

	slog.Info("Alert rule registered",
		"device_id", rule.DeviceID,
		"metric", rule.Metric,
		"operator", rule.Operator,
		"threshold", rule.Threshold)

	c.JSON(http.StatusOK, gin.H{"status": "alert registered"})
}

// StreamAlertsHandler handles GET /v1/alerts/stream?device_id=...
// It holds the connection open, emitting one SSE record per triggered alert,
// until the client disconnects. The subscription is deterministically removed
// on any exit path.
func (s *Service) StreamAlertsHandler(c *gin.Context) {
	deviceID := c.Query("device_id")
	if deviceID == "" {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidQueryError,
			Message:   "device_id is required",
		})
		return
	}

	sub := s.hub.Subscribe(deviceID)
	defer s.hub.Unsubscribe(deviceID, sub.ID)

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.WriteHeader(http.StatusOK)
	c.Writer.Flush()

	slog.Info("Alert stream opened", "device_id", deviceID, "subscription_id", sub.ID)

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			slog.Info("Alert stream closed by client", "device_id", deviceID, "subscription_id", sub.ID)
			return
		case payload, ok := <-sub.C:
			if !ok {
				return
			}
			data, err := json.Marshal(payload)
			if err != nil {
				slog.Error("Failed to marshal notification", "error", err, "device_id", deviceID)
				continue
			}
			fmt.Fprintf(c.Writer, "data: %s\n\n", data)
			c.Writer.Flush()
		}
	}
}
