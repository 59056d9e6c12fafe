package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Document struct {
	Id           uuid.UUID         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Type         string            `gorm:"type:varchar(32);not null;index"`
	Title        string            `gorm:"type:varchar(255);not null"`
	Content      string            `gorm:"type:text"`
	ContentState []byte            `gorm:"type:bytea"`
	Version      uint64            `gorm:"not null;default:0"`
	Meta         datatypes.JSONMap `gorm:"type:jsonb"`
	UserId       uuid.UUID         `gorm:"type:uuid;not null;index"`
	CreatedAt    time.Time         `gorm:"autoCreateTime"`
	UpdatedAt    time.Time         `gorm:"autoUpdateTime"`
	DeletedAt    gorm.DeletedAt    `gorm:"index"`
}

func (Document) TableName() string {
	return "documents"
}
