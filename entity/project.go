package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Project struct {
	ID          uuid.UUID                      `json:"id" gorm:"type:uuid;primaryKey"`
	Title       string                         `json:"title" gorm:"type:varchar(255);not null"`
	Description string                         `json:"description" gorm:"type:text;not null"`
	PowerSource string                         `json:"power_source" gorm:"type:varchar(255);not null"`
	Category    string                         `json:"category" gorm:"type:varchar(255);not null;index"`
	MediaIDs    datatypes.JSONSlice[uuid.UUID] `json:"media_ids" gorm:"type:jsonb;not null"`
	CreatedAt   time.Time                      `json:"created_at" gorm:"not null;autoCreateTime"`
	UpdatedAt   time.Time                      `json:"updated_at" gorm:"autoUpdateTime"`

	// Resolved from MediaIDs on read, never persisted.
	Media []Media `json:"media" gorm:"-"`
}
