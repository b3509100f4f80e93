package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hirelanka/marketplace-backend/pkg/enums"
)

// Notification stores in-app notification payloads addressed to a user.
type Notification struct {
	ID          uuid.UUID              `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      uuid.UUID              `gorm:"type:uuid;not null" json:"userId"`
	Type        enums.NotificationType `gorm:"type:notification_type;not null" json:"type"`
	Title       string                 `gorm:"type:text;not null" json:"title"`
	Message     string                 `gorm:"type:text;not null" json:"message"`
	Link        *string                `gorm:"type:text" json:"link,omitempty"`
	ReferenceID *uuid.UUID             `gorm:"type:uuid" json:"referenceId,omitempty"`
	ReadAt      *time.Time             `gorm:"type:timestamptz" json:"readAt,omitempty"`
	CreatedAt   time.Time              `gorm:"type:timestamptz;autoCreateTime" json:"createdAt"`
}

func (n *Notification) BeforeCreate(*gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}
