package dto

import "github.com/google/uuid"

type ActivityItem struct {
	Id         uuid.UUID              `json:"id"`
	EventType  string                 `json:"event_type"`
	DocumentId *uuid.UUID             `json:"document_id,omitempty"`
	UserId     *uuid.UUID             `json:"user_id,omitempty"`
	Payload    map[string]interface{} `json:"payload"`
	CreatedAt  string                 `json:"created_at"`
}
