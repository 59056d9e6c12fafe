package contract

import (
	"context"

	"projecthub-be/internal/entity"
	"projecthub-be/internal/repository/specification"

	"github.com/google/uuid"
)

type DocumentRepository interface {
	Create(ctx context.Context, doc *entity.Document) error
	Update(ctx context.Context, doc *entity.Document) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Document, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Document, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)

	// UpdateContentState persists the collaboration hub's room state without
	// touching the REST-facing content column or bumping the version.
	UpdateContentState(ctx context.Context, id uuid.UUID, state []byte) error
}
