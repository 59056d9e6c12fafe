package entity

import (
	"time"

	"github.com/google/uuid"
)

// Activity is one audit row written by the event worker for every domain
// event on the bus.
type Activity struct {
	Id         uuid.UUID
	EventType  string
	DocumentId *uuid.UUID
	UserId     *uuid.UUID
	Payload    map[string]interface{}
	CreatedAt  time.Time
}
