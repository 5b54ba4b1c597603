package query

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	httperr "github.com/telematch-lab/telematch/internal/core/errors"
)

// RegisterRoutes registers all read API routes on the given router.
func (s *Service) RegisterRoutes(r gin.IRouter) {
	r.GET("/v1/devices/:device_id/events", s.HandleDeviceEvents)
	r.GET("/v1/metrics/aggregate", s.HandleAggregate)
	r.GET("/v1/search", s.HandleTagSearch)
}

// HandleDeviceEvents handles GET /v1/devices/:device_id/events
// Query parameters: from, to, limit
func (s *Service) HandleDeviceEvents(c *gin.Context) {
	var uri struct {
		DeviceID string `uri:"device_id" binding:"required"`
	}
	var params struct {
		From time.Time `form:"from" binding:"required" time_format:"2006-01-02T15:04:05Z07:00"`
		To   time.Time `form:"to" binding:"required" time_format:"2006-01-02T15:04:05Z07:00"`
	}

	if err := c.ShouldBindUri(&uri); err != nil {
		writeInvalidQuery(c, "Invalid path parameters", err.Error())
		return
	}
	if err := c.ShouldBindQuery(&params); err != nil {
		writeInvalidQuery(c, "Invalid query parameters", err.Error())
		return
	}
	limit, ok := parseLimit(c)
	if !ok {
		return
	}

	resp, err := s.DeviceEvents(c.Request.Context(), DeviceEventsRequest{
		DeviceID: uri.DeviceID,
		From:     params.From,
		To:       params.To,
		Limit:    limit,
	})
	if err != nil {
		writeQueryError(c, "Failed to query device events", err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// HandleAggregate handles GET /v1/metrics/aggregate
// Query parameters: device_id, metric, from, to, interval
func (s *Service) HandleAggregate(c *gin.Context) {
	var params struct {
		DeviceID string    `form:"device_id" binding:"required"`
		Metric   string    `form:"metric" binding:"required"`
		From     time.Time `form:"from" binding:"required" time_format:"2006-01-02T15:04:05Z07:00"`
		To       time.Time `form:"to" binding:"required" time_format:"2006-01-02T15:04:05Z07:00"`
		Interval string    `form:"interval" binding:"required"`
	}

	if err := c.ShouldBindQuery(&params); err != nil {
		writeInvalidQuery(c, "Invalid query parameters", err.Error())
		return
	}

	resp, err := s.Aggregate(c.Request.Context(), AggregateRequest{
		DeviceID: params.DeviceID,
		Metric:   params.Metric,
		From:     params.From,
		To:       params.To,
		Interval: params.Interval,
	})
	if err != nil {
		writeQueryError(c, "Failed to aggregate metric", err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// HandleTagSearch handles GET /v1/search
// Query parameters: tag, from, to, limit
func (s *Service) HandleTagSearch(c *gin.Context) {
	var params struct {
		Tag  string    `form:"tag" binding:"required"`
		From time.Time `form:"from" binding:"required" time_format:"2006-01-02T15:04:05Z07:00"`
		To   time.Time `form:"to" binding:"required" time_format:"2006-01-02T15:04:05Z07:00"`
	}

	if err := c.ShouldBindQuery(&params); err != nil {
		writeInvalidQuery(c, "Invalid query parameters", err.Error())
		return
	}
	limit, ok := parseLimit(c)
	if !ok {
		return
	}

	resp, err := s.SearchByTag(c.Request.Context(), TagSearchRequest{
		Tag:   params.Tag,
		From:  params.From,
		To:    params.To,
		Limit: limit,
	})
	if err != nil {
		writeQueryError(c, "Failed to search events by tag", err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// parseLimit reads the optional limit parameter. Zero means "use the default";
// an explicit non-positive or non-numeric value is rejected with 400.
func parseLimit(c *gin.Context) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		writeInvalidQuery(c, "Invalid query parameters", "limit must be a positive integer")
		return 0, false
	}
	return n, true
}

func writeInvalidQuery(c *gin.Context, message string, details interface{}) {
	c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
		ErrorType: httperr.HttpInvalidQueryError,
		Message:   message,
		Details:   details,
	})
}

func writeQueryError(c *gin.Context, message string, err error) {
	if errors.Is(err, ErrInvalidQuery) {
		writeInvalidQuery(c, message, err.Error())
		return
	}

	c.JSON(http.StatusInternalServerError, httperr.ErrorResponse{
		ErrorType: httperr.HttpInternalError,
		Message:   message,
		Details:   err.Error(),
	})
}
