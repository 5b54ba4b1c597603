package ingestion

import (
	"github.com/gin-gonic/gin"
	v1 "github.com/telematch-lab/telematch/internal/api/v1"
	"github.com/telematch-lab/telematch/internal/core/storage"
)

// Notifier is the alerting hook invoked after an event is stored.
// Implementations are best-effort and must never influence the ingest response.
type Notifier interface {
	ProcessEvent(evt *v1.Event)
}

type Service struct {
	store            storage.EventStore
	notifier         Notifier
	maxBodySizeBytes int
}

func NewService(store storage.EventStore, notifier Notifier, maxBodySizeMB int) *Service {
	if store == nil {
		panic("ingestion: store must not be nil")
	}
	if notifier == nil {
		panic("ingestion: notifier must not be nil")
	}
	if maxBodySizeMB <= 0 {
		maxBodySizeMB = 1 // default to 1MB
	}
	return &Service{
		store:            store,
		notifier:         notifier,
		maxBodySizeBytes: maxBodySizeMB * 1024 * 1024,
	}
}

// RegisterRoutes registers the ingestion service routes.
func (s *Service) RegisterRoutes(r gin.IRouter) {
	r.POST("/v1/events", s.IngestHandler)
	r.POST("/v1/events/batch", s.IngestBatchHandler)
}
