package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/hirelanka/marketplace-backend/pkg/enums"
)

// BuyerReview is left once by the buyer after the booking completes.
type BuyerReview struct {
	Rating     *int       `gorm:"column:rating" json:"rating,omitempty"`
	Comment    *string    `gorm:"column:comment" json:"comment,omitempty"`
	ReviewedAt *time.Time `gorm:"column:created_at" json:"createdAt,omitempty"`
}

// ServiceOrder is a booking. Provider, price and commission are frozen at creation.
type ServiceOrder struct {
	ID               uuid.UUID                  `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	OrderNumber      string                     `gorm:"column:order_number;not null;uniqueIndex" json:"orderNumber"`
	ServiceID        uuid.UUID                  `gorm:"column:service_id;type:uuid;not null" json:"serviceId"`
	BuyerID          uuid.UUID                  `gorm:"column:buyer_id;type:uuid;not null" json:"buyerId"`
	ProviderID       uuid.UUID                  `gorm:"column:provider_id;type:uuid;not null" json:"providerId"`
	Requirements     string                     `gorm:"column:requirements;not null;default:''" json:"requirements"`
	Price            decimal.Decimal            `gorm:"column:price;type:numeric(12,2);not null" json:"price"`
	CommissionRate   decimal.Decimal            `gorm:"column:commission_rate;type:numeric(5,2);not null" json:"commissionRate"`
	CommissionAmount decimal.Decimal            `gorm:"column:commission_amount;type:numeric(12,2);not null" json:"commissionAmount"`
	Status           enums.ServiceOrderStatus   `gorm:"column:status;type:service_order_status;not null" json:"status"`
	PaymentStatus    enums.ServicePaymentStatus `gorm:"column:payment_status;type:service_payment_status;not null" json:"paymentStatus"`
	DeliveryDate     *time.Time                 `gorm:"column:delivery_date" json:"deliveryDate,omitempty"`
	DeliveredAt      *time.Time                 `gorm:"column:delivered_at" json:"deliveredAt,omitempty"`
	CompletedAt      *time.Time                 `gorm:"column:completed_at" json:"completedAt,omitempty"`
	CancelledAt      *time.Time                 `gorm:"column:cancelled_at" json:"cancelledAt,omitempty"`
	Review           BuyerReview                `gorm:"embedded;embeddedPrefix:review_" json:"buyerReview"`
	CreatedAt        time.Time                  `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt        time.Time                  `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

func (o *ServiceOrder) BeforeCreate(*gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}
