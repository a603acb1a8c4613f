package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type MediaType string

const (
	MediaTypeImage MediaType = "image"
	MediaTypeVideo MediaType = "video"
)

type Media struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Type        MediaType `json:"type" gorm:"type:varchar(16);not null"`
	URL         string    `json:"url" gorm:"type:varchar(2048);not null"`
	ObjectKey   string    `json:"object_key" gorm:"type:varchar(1024);not null"`
	ProjectID   uuid.UUID `json:"project_id" gorm:"type:uuid;not null;index"`
	Title       string    `json:"title" gorm:"type:varchar(512)"`
	ContentType string    `json:"content_type" gorm:"type:varchar(255)"`
	Size        int64     `json:"size" gorm:"not null"`
	CreatedAt   time.Time `json:"created_at" gorm:"not null;autoCreateTime"`
}

// MediaTypeFromMIME classifies anything that is not image/* as video.
func MediaTypeFromMIME(mime string) MediaType {
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(mime)), "image/") {
		return MediaTypeImage
	}
	return MediaTypeVideo
}
