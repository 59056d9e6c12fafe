package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"projecthub-be/internal/dto"
	"projecthub-be/internal/entity"
	"projecthub-be/internal/pkg/logger"
	"projecthub-be/internal/repository/specification"
	"projecthub-be/internal/repository/unitofwork"
	"projecthub-be/pkg/events"
	pktNats "projecthub-be/pkg/nats" // Renamed to avoid collision

	"github.com/google/uuid"
)

// ActivityService turns every domain event on the bus into a durable audit
// row, and serves the activity feed.
type ActivityService struct {
	uowFactory unitofwork.RepositoryFactory
	subscriber *pktNats.Subscriber
	logger     logger.ILogger
}

func NewActivityService(uowFactory unitofwork.RepositoryFactory, sub *pktNats.Subscriber, log logger.ILogger) *ActivityService {
	return &ActivityService{
		uowFactory: uowFactory,
		subscriber: sub,
		logger:     log,
	}
}

// Start begins listening to the event bus.
func (s *ActivityService) Start() {
	err := s.subscriber.Subscribe("events.>", "activity-worker", s.handleEvent)
	if err != nil {
		s.logger.Error("ActivityService", "Failed to start activity subscriber", map[string]interface{}{"error": err})
		return
	}
	s.logger.Info("ActivityService", "Activity service started, listening to events.>", nil)
}

func (s *ActivityService) handleEvent(ctx context.Context, event events.Event) error {
	typeCode := strings.TrimPrefix(event.EventType(), "events.")
	payload := event.Payload()

	activity := entity.Activity{
		Id:        uuid.New(),
		EventType: typeCode,
		Payload:   payload,
		CreatedAt: event.Timestamp(),
	}
	if docStr, ok := payload["document_id"].(string); ok {
		if did, err := uuid.Parse(docStr); err == nil {
			activity.DocumentId = &did
		}
	}
	if uidStr, ok := payload["user_id"].(string); ok {
		if uid, err := uuid.Parse(uidStr); err == nil {
			activity.UserId = &uid
		}
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.ActivityRepository().Create(ctx, &activity); err != nil {
		s.logger.Error("ActivityService", fmt.Sprintf("Error saving activity for %s", typeCode), map[string]interface{}{"error": err})
		return err // NATS will retry if we return error
	}
	return nil
}

// List returns the most recent activity rows, optionally filtered by event
// type.
func (s *ActivityService) List(ctx context.Context, eventType string, limit int) ([]*dto.ActivityItem, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	specs := []specification.Specification{
		specification.OrderBy{Field: "created_at", Desc: true},
		specification.Pagination{Limit: limit},
	}
	if eventType != "" {
		specs = append(specs, specification.ByEventType{EventType: eventType})
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	rows, err := uow.ActivityRepository().FindAll(ctx, specs...)
	if err != nil {
		return nil, err
	}

	items := make([]*dto.ActivityItem, len(rows))
	for i, row := range rows {
		items[i] = &dto.ActivityItem{
			Id:         row.Id,
			EventType:  row.EventType,
			DocumentId: row.DocumentId,
			UserId:     row.UserId,
			Payload:    row.Payload,
			CreatedAt:  row.CreatedAt.Format(time.RFC3339),
		}
	}
	return items, nil
}
