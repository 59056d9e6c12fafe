package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Activity struct {
	Id         uuid.UUID         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	EventType  string            `gorm:"type:varchar(64);not null;index"`
	DocumentId *uuid.UUID        `gorm:"type:uuid;index"`
	UserId     *uuid.UUID        `gorm:"type:uuid;index"`
	Payload    datatypes.JSONMap `gorm:"type:jsonb"`
	CreatedAt  time.Time         `gorm:"autoCreateTime;index"`
}

func (Activity) TableName() string {
	return "activities"
}
