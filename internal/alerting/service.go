package alerting

import (
	"github.com/gin-gonic/gin"
	v1 "github.com/telematch-lab/telematch/internal/api/v1"
	"github.com/telematch-lab/telematch/internal/streaming"
)

// Service ties the rule registry, the evaluator and the subscriber hub
// together: rule registration, the alert stream, and per-event processing on
// the ingestion path.
type Service struct {
	registry  *Registry
	evaluator *Evaluator
	hub       *streaming.Hub
}

func NewService(reg *Registry, hub *streaming.Hub) *Service {
	if reg == nil {
		panic("alerting: registry must not be nil")
	}
	if hub == nil {
		panic("alerting: hub must not be nil")
	}
	return &Service{
		registry:  reg,
		evaluator: NewEvaluator(reg),
		hub:       hub,
	}
}

// RegisterRoutes registers the alerting service routes.
func (s *Service) RegisterRoutes(r gin.IRouter) {
	r.POST("/v1/alerts", s.RegisterAlertHandler)
	r.GET("/v1/alerts/stream", s.StreamAlertsHandler)
}

// ProcessEvent evaluates a freshly stored event against the active rules and
// fans matching notifications out to subscribers. Best-effort by design: it
// never returns an error, so the ingestion response is independent of
// alerting and delivery outcomes.
func (s *Service) ProcessEvent(evt *v1.Event) {
	for _, payload := range s.evaluator.Evaluate(evt) {
		s.hub.Fanout(evt.DeviceID, payload)
	}
}
