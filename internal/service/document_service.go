package service

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"projecthub-be/internal/dto"
	"projecthub-be/internal/entity"
	"projecthub-be/internal/repository/specification"
	"projecthub-be/internal/repository/unitofwork"
	"projecthub-be/pkg/events"
	pktNats "projecthub-be/pkg/nats"
	"projecthub-be/pkg/syncengine"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IDocumentService interface {
	Create(ctx context.Context, userId uuid.UUID, req *dto.CreateDocumentRequest) (*dto.CreateDocumentResponse, error)
	Show(ctx context.Context, userId uuid.UUID, id uuid.UUID) (*dto.ShowDocumentResponse, error)
	List(ctx context.Context, userId uuid.UUID, docType string) ([]*dto.DocumentListItem, error)
	UpdateContent(ctx context.Context, userId uuid.UUID, req *dto.UpdateDocumentContentRequest) (*dto.UpdateDocumentContentResponse, error)
	Delete(ctx context.Context, userId uuid.UUID, id uuid.UUID) error
}

type documentService struct {
	uowFactory      unitofwork.RepositoryFactory
	invalidationBus IPublisherService
	eventPublisher  *pktNats.Publisher
}

func NewDocumentService(
	uowFactory unitofwork.RepositoryFactory,
	invalidationBus IPublisherService,
	eventPublisher *pktNats.Publisher,
) IDocumentService {
	return &documentService{
		uowFactory:      uowFactory,
		invalidationBus: invalidationBus,
		eventPublisher:  eventPublisher,
	}
}

func (s *documentService) Create(ctx context.Context, userId uuid.UUID, req *dto.CreateDocumentRequest) (*dto.CreateDocumentResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	doc := entity.Document{
		Id:           uuid.New(),
		Type:         req.Type,
		Title:        req.Title,
		Content:      req.Content,
		ContentState: []byte(req.Content),
		Version:      0,
		Meta:         req.Meta,
		UserId:       userId,
		CreatedAt:    time.Now(),
	}

	if err := uow.DocumentRepository().Create(ctx, &doc); err != nil {
		return nil, err
	}

	s.publishEvent(ctx, "DOCUMENT_CREATED", &doc, userId)

	return &dto.CreateDocumentResponse{
		Id:   doc.Id,
		Room: syncengine.NewRoomID(doc.Type, doc.Id).String(),
	}, nil
}

func (s *documentService) Show(ctx context.Context, userId uuid.UUID, id uuid.UUID) (*dto.ShowDocumentResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	doc, err := uow.DocumentRepository().FindOne(ctx,
		specification.ByID{ID: id},
		specification.UserOwnedBy{UserID: userId},
	)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, nil // Not found
	}

	return &dto.ShowDocumentResponse{
		Id:           doc.Id,
		Type:         doc.Type,
		Title:        doc.Title,
		Content:      doc.Content,
		ContentState: doc.ContentState,
		Version:      doc.Version,
		Meta:         doc.Meta,
		CreatedAt:    doc.CreatedAt,
		UpdatedAt:    doc.UpdatedAt,
	}, nil
}

func (s *documentService) List(ctx context.Context, userId uuid.UUID, docType string) ([]*dto.DocumentListItem, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	specs := []specification.Specification{
		specification.UserOwnedBy{UserID: userId},
		specification.OrderBy{Field: "updated_at", Desc: true},
	}
	if docType != "" {
		specs = append(specs, specification.ByDocumentType{Type: docType})
	}

	docs, err := uow.DocumentRepository().FindAll(ctx, specs...)
	if err != nil {
		return nil, err
	}

	items := make([]*dto.DocumentListItem, len(docs))
	for i, doc := range docs {
		items[i] = &dto.DocumentListItem{
			Id:        doc.Id,
			Type:      doc.Type,
			Title:     doc.Title,
			Version:   doc.Version,
			UpdatedAt: doc.UpdatedAt,
		}
	}
	return items, nil
}

// UpdateContent is the out-of-band write path: it replaces the authoritative
// content directly, so every open collaboration session on the room must be
// invalidated and forced to re-hydrate.
func (s *documentService) UpdateContent(ctx context.Context, userId uuid.UUID, req *dto.UpdateDocumentContentRequest) (*dto.UpdateDocumentContentResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	doc, err := uow.DocumentRepository().FindOne(ctx,
		specification.ByID{ID: req.Id},
		specification.UserOwnedBy{UserID: userId},
	)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, fiber.NewError(fiber.StatusNotFound, "document not found")
	}

	doc.Content = req.Content
	doc.ContentState = []byte(req.Content)
	doc.Version++
	if err := uow.DocumentRepository().Update(ctx, doc); err != nil {
		return nil, err
	}

	s.publishInvalidation(ctx, doc, "patch")
	s.publishEvent(ctx, "DOCUMENT_CONTENT_PATCHED", doc, userId)

	return &dto.UpdateDocumentContentResponse{
		Id:      doc.Id,
		Version: doc.Version,
	}, nil
}

func (s *documentService) Delete(ctx context.Context, userId uuid.UUID, id uuid.UUID) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	doc, err := uow.DocumentRepository().FindOne(ctx,
		specification.ByID{ID: id},
		specification.UserOwnedBy{UserID: userId},
	)
	if err != nil {
		return err
	}
	if doc == nil {
		return fiber.NewError(fiber.StatusNotFound, "document not found")
	}

	if err := uow.DocumentRepository().Delete(ctx, id); err != nil {
		return err
	}

	s.publishInvalidation(ctx, doc, "delete")
	s.publishEvent(ctx, "DOCUMENT_DELETED", doc, userId)
	return nil
}

func (s *documentService) publishInvalidation(ctx context.Context, doc *entity.Document, reason string) {
	msg := dto.InvalidationMessage{
		Room:   syncengine.NewRoomID(doc.Type, doc.Id).String(),
		Reason: reason,
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		log.Printf("[WARN] Failed to marshal invalidation message: %v", err)
		return
	}
	// Losing an invalidation would leave open sessions on stale content, so
	// this failure is loud; the request itself still succeeds.
	if err := s.invalidationBus.Publish(ctx, payload); err != nil {
		log.Printf("[WARN] Failed to publish invalidation for room %s: %v", msg.Room, err)
	}
}

func (s *documentService) publishEvent(ctx context.Context, eventType string, doc *entity.Document, userId uuid.UUID) {
	if s.eventPublisher == nil {
		return
	}
	evt := events.BaseEvent{
		Type: eventType,
		Data: map[string]interface{}{
			"document_id": doc.Id,
			"type":        doc.Type,
			"title":       doc.Title,
			"user_id":     userId,
		},
		OccurredAt: time.Now(),
	}
	// Log but don't fail the request; the audit trail is auxiliary.
	if err := s.eventPublisher.Publish(ctx, evt); err != nil {
		log.Printf("[WARN] Failed to publish %s event: %v", eventType, err)
	}
}
