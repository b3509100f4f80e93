package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hirelanka/marketplace-backend/pkg/enums"
)

// Product is the catalog row read at checkout; Stock is the only column this service mutates.
type Product struct {
	ID        uuid.UUID           `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	OwnerID   uuid.UUID           `gorm:"column:owner_id;type:uuid;not null" json:"ownerId"`
	Name      string              `gorm:"column:name;not null" json:"name"`
	Price     decimal.Decimal     `gorm:"column:price;type:numeric(12,2);not null" json:"price"`
	Stock     int                 `gorm:"column:stock;not null;default:0" json:"stock"`
	Status    enums.ListingStatus `gorm:"column:status;type:listing_status;not null" json:"status"`
	CreatedAt time.Time           `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time           `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}
