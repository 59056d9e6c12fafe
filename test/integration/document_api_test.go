package integration

import (
	"context"
	"log"
	"os"
	"testing"

	"projecthub-be/internal/entity"
	"projecthub-be/internal/repository/specification"
	"projecthub-be/internal/repository/unitofwork"
	"projecthub-be/pkg/database"
	"projecthub-be/pkg/syncengine"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupFactory(t *testing.T) unitofwork.RepositoryFactory {
	t.Helper()

	// Load .env from root
	err := godotenv.Load("../../.env")
	if err != nil {
		log.Println("No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		t.Skip("Skipping integration test: DB_CONNECTION_STRING not set")
	}

	gormDB, err := database.NewGormDBFromDSN(dsn)
	if err != nil {
		t.Fatalf("Failed to connect to DB: %v", err)
	}
	return unitofwork.NewRepositoryFactory(gormDB)
}

func TestDocumentRepositoryRoundTrip(t *testing.T) {
	uowFactory := setupFactory(t)
	ctx := context.Background()
	uow := uowFactory.NewUnitOfWork(ctx)

	userId := uuid.New()
	doc := &entity.Document{
		Id:           uuid.New(),
		Type:         entity.DocumentTypeWiki,
		Title:        "Integration Test Page",
		Content:      "hello",
		ContentState: []byte("hello"),
		Version:      0,
		UserId:       userId,
	}
	require.NoError(t, uow.DocumentRepository().Create(ctx, doc))
	t.Cleanup(func() {
		_ = uow.DocumentRepository().Delete(ctx, doc.Id)
	})

	t.Run("FindOne by id and owner", func(t *testing.T) {
		found, err := uow.DocumentRepository().FindOne(ctx,
			specification.ByID{ID: doc.Id},
			specification.UserOwnedBy{UserID: userId},
		)
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, doc.Title, found.Title)
		assert.Equal(t, []byte("hello"), found.ContentState)
	})

	t.Run("Other users cannot see it", func(t *testing.T) {
		found, err := uow.DocumentRepository().FindOne(ctx,
			specification.ByID{ID: doc.Id},
			specification.UserOwnedBy{UserID: uuid.New()},
		)
		require.NoError(t, err)
		assert.Nil(t, found)
	})

	t.Run("UpdateContentState leaves version alone", func(t *testing.T) {
		require.NoError(t, uow.DocumentRepository().UpdateContentState(ctx, doc.Id, []byte("hello world")))

		found, err := uow.DocumentRepository().FindOne(ctx, specification.ByID{ID: doc.Id})
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, []byte("hello world"), found.ContentState)
		assert.Equal(t, uint64(0), found.Version)
	})

	t.Run("Content patch bumps version", func(t *testing.T) {
		found, err := uow.DocumentRepository().FindOne(ctx, specification.ByID{ID: doc.Id})
		require.NoError(t, err)
		require.NotNil(t, found)

		found.Content = "rewritten"
		found.ContentState = []byte("rewritten")
		found.Version++
		require.NoError(t, uow.DocumentRepository().Update(ctx, found))

		again, err := uow.DocumentRepository().FindOne(ctx, specification.ByID{ID: doc.Id})
		require.NoError(t, err)
		require.NotNil(t, again)
		assert.Equal(t, uint64(1), again.Version)
	})

	t.Run("Room id round trips through the document", func(t *testing.T) {
		room := syncengine.NewRoomID(doc.Type, doc.Id)
		parsed, err := syncengine.ParseRoomID(room.String())
		require.NoError(t, err)

		gotId, err := parsed.DocumentID()
		require.NoError(t, err)
		assert.Equal(t, doc.Id, gotId)
	})
}

func TestActivityRepositoryWrites(t *testing.T) {
	uowFactory := setupFactory(t)
	ctx := context.Background()
	uow := uowFactory.NewUnitOfWork(ctx)

	docId := uuid.New()
	activity := &entity.Activity{
		Id:         uuid.New(),
		EventType:  "DOCUMENT_CREATED",
		DocumentId: &docId,
		Payload:    map[string]interface{}{"title": "Integration Test Page"},
	}
	require.NoError(t, uow.ActivityRepository().Create(ctx, activity))

	count, err := uow.ActivityRepository().Count(ctx, specification.ByEventType{EventType: "DOCUMENT_CREATED"})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, count, int64(1))
}
