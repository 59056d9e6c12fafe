package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateDocumentRequest struct {
	Type    string                 `json:"type" validate:"required,oneof=wiki sprint_plan program_brief"`
	Title   string                 `json:"title" validate:"required"`
	Content string                 `json:"content"`
	Meta    map[string]interface{} `json:"meta"`
}

type CreateDocumentResponse struct {
	Id   uuid.UUID `json:"id"`
	Room string    `json:"room"`
}

type ShowDocumentResponse struct {
	Id           uuid.UUID              `json:"id"`
	Type         string                 `json:"type"`
	Title        string                 `json:"title"`
	Content      string                 `json:"content"`
	ContentState []byte                 `json:"content_state"`
	Version      uint64                 `json:"version"`
	Meta         map[string]interface{} `json:"meta"`
	CreatedAt    time.Time              `json:"created_at"`
	UpdatedAt    *time.Time             `json:"updated_at"`
}

type DocumentListItem struct {
	Id        uuid.UUID  `json:"id"`
	Type      string     `json:"type"`
	Title     string     `json:"title"`
	Version   uint64     `json:"version"`
	UpdatedAt *time.Time `json:"updated_at"`
}

type UpdateDocumentContentRequest struct {
	Id      uuid.UUID
	Content string `json:"content" validate:"required"`
}

type UpdateDocumentContentResponse struct {
	Id      uuid.UUID `json:"id"`
	Version uint64    `json:"version"`
}

// InvalidationMessage travels the in-process bus from the document service
// to the collaboration hub when content was mutated out-of-band.
type InvalidationMessage struct {
	Room   string `json:"room"`
	Reason string `json:"reason"` // "patch" | "delete"
}
