package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/hirelanka/marketplace-backend/pkg/enums"
)

// ShippingAddress is snapshotted onto the order at checkout.
type ShippingAddress struct {
	Name       string `gorm:"column:name" json:"name"`
	Phone      string `gorm:"column:phone" json:"phone"`
	Street     string `gorm:"column:street" json:"street"`
	City       string `gorm:"column:city" json:"city"`
	Province   string `gorm:"column:province" json:"province"`
	PostalCode string `gorm:"column:postal_code" json:"postalCode"`
}

// ProductOrder is the append-only record of a physical goods purchase.
type ProductOrder struct {
	ID              uuid.UUID                `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	OrderNumber     string                   `gorm:"column:order_number;not null;uniqueIndex" json:"orderNumber"`
	BuyerID         uuid.UUID                `gorm:"column:buyer_id;type:uuid;not null" json:"buyerId"`
	TotalAmount     decimal.Decimal          `gorm:"column:total_amount;type:numeric(12,2);not null" json:"totalAmount"`
	Status          enums.ProductOrderStatus `gorm:"column:status;type:product_order_status;not null" json:"status"`
	PaymentStatus   enums.OrderPaymentStatus `gorm:"column:payment_status;type:order_payment_status;not null" json:"paymentStatus"`
	PaymentMethod   enums.PaymentMethod      `gorm:"column:payment_method;type:payment_method;not null" json:"paymentMethod"`
	ShippingAddress ShippingAddress          `gorm:"embedded;embeddedPrefix:shipping_" json:"shippingAddress"`
	Items           []ProductOrderItem       `gorm:"foreignKey:OrderID" json:"items"`
	CancelledAt     *time.Time               `gorm:"column:cancelled_at" json:"cancelledAt,omitempty"`
	CreatedAt       time.Time                `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt       time.Time                `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

func (o *ProductOrder) BeforeCreate(*gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// ProductOrderItem snapshots the product price and seller at purchase time.
type ProductOrderItem struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	OrderID   uuid.UUID       `gorm:"column:order_id;type:uuid;not null" json:"orderId"`
	ProductID uuid.UUID       `gorm:"column:product_id;type:uuid;not null" json:"productId"`
	SellerID  uuid.UUID       `gorm:"column:seller_id;type:uuid;not null" json:"sellerId"`
	Name      string          `gorm:"column:name;not null" json:"name"`
	Quantity  int             `gorm:"column:quantity;not null" json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null" json:"unitPrice"`
	LineTotal decimal.Decimal `gorm:"column:line_total;type:numeric(12,2);not null" json:"lineTotal"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
}

func (i *ProductOrderItem) BeforeCreate(*gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
