package unitofwork

import (
	"context"

	"projecthub-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	DocumentRepository() contract.DocumentRepository
	ActivityRepository() contract.ActivityRepository
}
