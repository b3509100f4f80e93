package orders

import (
	"github.com/google/uuid"

	"github.com/hirelanka/marketplace-backend/pkg/db/models"
	"github.com/hirelanka/marketplace-backend/pkg/enums"
)

// Actor is the authenticated principal performing an operation.
type Actor struct {
	UserID uuid.UUID
	Role   enums.UserRole
}

func (a Actor) IsAdmin() bool {
	return a.Role == enums.UserRoleAdmin
}

// LineItemInput is one requested product and quantity.
type LineItemInput struct {
	ProductID uuid.UUID `json:"productId" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,gt=0"`
}

// CreateOrderInput carries a checkout request for physical goods.
type CreateOrderInput struct {
	BuyerID         uuid.UUID
	Items           []LineItemInput
	PaymentMethod   enums.PaymentMethod
	ShippingAddress models.ShippingAddress
}

// UpdateOrderStatusInput moves a product order along its lifecycle.
type UpdateOrderStatusInput struct {
	OrderID uuid.UUID
	Status  enums.ProductOrderStatus
	Actor   Actor
}

// CreateBookingInput carries a booking request for a service.
type CreateBookingInput struct {
	BuyerID      uuid.UUID
	ServiceID    uuid.UUID
	Requirements string
}

// UpdateBookingStatusInput moves a booking along its lifecycle.
type UpdateBookingStatusInput struct {
	BookingID uuid.UUID
	Status    enums.ServiceOrderStatus
	Actor     Actor
}

// ReviewInput is the buyer's one-time review of a completed booking.
type ReviewInput struct {
	BookingID uuid.UUID
	BuyerID   uuid.UUID
	Rating    int
	Comment   string
}

// ListParams is a raw page request from a controller.
type ListParams struct {
	Limit  int
	Cursor string
}

// ProductOrderList is a page of product orders.
type ProductOrderList struct {
	Items  []models.ProductOrder `json:"items"`
	Cursor string                `json:"cursor"`
}

// ServiceOrderList is a page of bookings.
type ServiceOrderList struct {
	Items  []models.ServiceOrder `json:"items"`
	Cursor string                `json:"cursor"`
}
