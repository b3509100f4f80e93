package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/hirelanka/marketplace-backend/pkg/enums"
)

// GatewayRecord holds the correlation and echo fields exchanged with the hosted checkout.
type GatewayRecord struct {
	ExternalOrderID   string  `gorm:"column:external_order_id;not null;uniqueIndex" json:"externalOrderId"`
	ExternalPaymentID *string `gorm:"column:external_payment_id" json:"externalPaymentId,omitempty"`
	StatusCode        *int    `gorm:"column:status_code" json:"statusCode,omitempty"`
	Signature         *string `gorm:"column:signature" json:"-"`
	Method            *string `gorm:"column:method" json:"method,omitempty"`
	CardHolderName    *string `gorm:"column:card_holder_name" json:"cardHolderName,omitempty"`
	CardNo            *string `gorm:"column:card_no" json:"cardNo,omitempty"`
	CardExpiry        *string `gorm:"column:card_expiry" json:"cardExpiry,omitempty"`
}

// EscrowRecord is owned by the payment and only populated for service bookings.
type EscrowRecord struct {
	IsEscrow    bool       `gorm:"column:enabled;not null;default:false" json:"isEscrow"`
	ReleaseDate *time.Time `gorm:"column:release_date" json:"releaseDate,omitempty"`
	ReleasedAt  *time.Time `gorm:"column:released_at" json:"releasedAt,omitempty"`
	ReleasedBy  *uuid.UUID `gorm:"column:released_by;type:uuid" json:"releasedBy,omitempty"`
}

// RefundRecord is owned by the payment and written by operations tooling.
type RefundRecord struct {
	Amount     *decimal.Decimal `gorm:"column:amount;type:numeric(12,2)" json:"amount,omitempty"`
	Reason     *string          `gorm:"column:reason" json:"reason,omitempty"`
	RefundedAt *time.Time       `gorm:"column:issued_at" json:"refundedAt,omitempty"`
	RefundedBy *uuid.UUID       `gorm:"column:issued_by;type:uuid" json:"refundedBy,omitempty"`
}

// Payment references exactly one of ProductOrderID or ServiceOrderID.
type Payment struct {
	ID             uuid.UUID           `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	ProductOrderID *uuid.UUID          `gorm:"column:product_order_id;type:uuid" json:"productOrderId,omitempty"`
	ServiceOrderID *uuid.UUID          `gorm:"column:service_order_id;type:uuid" json:"serviceOrderId,omitempty"`
	PayerID        uuid.UUID           `gorm:"column:payer_id;type:uuid;not null" json:"payerId"`
	Amount         decimal.Decimal     `gorm:"column:amount;type:numeric(12,2);not null" json:"amount"`
	Currency       string              `gorm:"column:currency;not null" json:"currency"`
	PaymentMethod  enums.PaymentMethod `gorm:"column:payment_method;type:payment_method;not null" json:"paymentMethod"`
	Status         enums.PaymentStatus `gorm:"column:status;type:payment_status;not null" json:"status"`
	Gateway        GatewayRecord       `gorm:"embedded;embeddedPrefix:gateway_" json:"gateway"`
	Escrow         EscrowRecord        `gorm:"embedded;embeddedPrefix:escrow_" json:"escrow"`
	Refund         RefundRecord        `gorm:"embedded;embeddedPrefix:refund_" json:"refund"`
	CreatedAt      time.Time           `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt      time.Time           `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

func (p *Payment) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// IsServicePayment reports whether the payment settles a booking.
func (p *Payment) IsServicePayment() bool {
	return p != nil && p.ServiceOrderID != nil
}
