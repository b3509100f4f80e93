package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hirelanka/marketplace-backend/pkg/enums"
)

// OrderPlacedEvent is emitted when a product order reserves stock.
type OrderPlacedEvent struct {
	OrderID     uuid.UUID       `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	BuyerID     uuid.UUID       `json:"buyer_id"`
	SellerIDs   []uuid.UUID     `json:"seller_ids"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// OrderStatusChangedEvent is emitted for every accepted product order transition.
type OrderStatusChangedEvent struct {
	OrderID uuid.UUID                `json:"order_id"`
	From    enums.ProductOrderStatus `json:"from"`
	To      enums.ProductOrderStatus `json:"to"`
}

// ServiceBookedEvent carries the frozen commission snapshot of a new booking.
type ServiceBookedEvent struct {
	ServiceOrderID   uuid.UUID       `json:"service_order_id"`
	OrderNumber      string          `json:"order_number"`
	ServiceID        uuid.UUID       `json:"service_id"`
	BuyerID          uuid.UUID       `json:"buyer_id"`
	ProviderID       uuid.UUID       `json:"provider_id"`
	Price            decimal.Decimal `json:"price"`
	CommissionRate   decimal.Decimal `json:"commission_rate"`
	CommissionAmount decimal.Decimal `json:"commission_amount"`
}

// ServiceOrderStatusChangedEvent is emitted for every accepted booking transition.
type ServiceOrderStatusChangedEvent struct {
	ServiceOrderID uuid.UUID                `json:"service_order_id"`
	From           enums.ServiceOrderStatus `json:"from"`
	To             enums.ServiceOrderStatus `json:"to"`
}

// PaymentReceivedEvent is emitted when the gateway confirms a successful charge.
type PaymentReceivedEvent struct {
	PaymentID       uuid.UUID           `json:"payment_id"`
	ExternalOrderID string              `json:"external_order_id"`
	ProductOrderID  *uuid.UUID          `json:"product_order_id,omitempty"`
	ServiceOrderID  *uuid.UUID          `json:"service_order_id,omitempty"`
	Amount          decimal.Decimal     `json:"amount"`
	Currency        string              `json:"currency"`
	Status          enums.PaymentStatus `json:"status"`
}

// PaymentFailedEvent is emitted when the gateway reports a cancelled or failed charge.
type PaymentFailedEvent struct {
	PaymentID       uuid.UUID `json:"payment_id"`
	ExternalOrderID string    `json:"external_order_id"`
	StatusCode      string    `json:"status_code"`
}

// EscrowReleasedEvent is emitted once per payment when the buyer releases held funds.
type EscrowReleasedEvent struct {
	PaymentID        uuid.UUID       `json:"payment_id"`
	ServiceOrderID   uuid.UUID       `json:"service_order_id"`
	ProviderID       uuid.UUID       `json:"provider_id"`
	Amount           decimal.Decimal `json:"amount"`
	CommissionAmount decimal.Decimal `json:"commission_amount"`
	ReleasedAt       time.Time       `json:"released_at"`
	ReleasedBy       uuid.UUID       `json:"released_by"`
}
