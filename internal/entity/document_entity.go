package entity

import (
	"time"

	"github.com/google/uuid"
)

// Document types. The type participates in the collaboration room id, so
// two types with equal ids never share a room.
const (
	DocumentTypeWiki         = "wiki"
	DocumentTypeSprintPlan   = "sprint_plan"
	DocumentTypeProgramBrief = "program_brief"
)

type Document struct {
	Id           uuid.UUID
	Type         string
	Title        string
	Content      string
	ContentState []byte
	Version      uint64
	Meta         map[string]interface{}
	UserId       uuid.UUID
	CreatedAt    time.Time
	UpdatedAt    *time.Time
	DeletedAt    *time.Time
	IsDeleted    bool
}
