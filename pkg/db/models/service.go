package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hirelanka/marketplace-backend/pkg/enums"
)

// Service is a bookable catalog listing. A nil CommissionRate falls back to the platform default.
type Service struct {
	ID             uuid.UUID           `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	ProviderID     uuid.UUID           `gorm:"column:provider_id;type:uuid;not null" json:"providerId"`
	Title          string              `gorm:"column:title;not null" json:"title"`
	Price          decimal.Decimal     `gorm:"column:price;type:numeric(12,2);not null" json:"price"`
	CommissionRate *decimal.Decimal    `gorm:"column:commission_rate;type:numeric(5,2)" json:"commissionRate,omitempty"`
	Status         enums.ListingStatus `gorm:"column:status;type:listing_status;not null" json:"status"`
	CreatedAt      time.Time           `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt      time.Time           `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}
