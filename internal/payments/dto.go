package payments

import (
	"github.com/google/uuid"

	"github.com/hirelanka/marketplace-backend/pkg/db/models"
)

// Customer is the buyer contact block forwarded to the hosted checkout.
type Customer struct {
	FirstName string `json:"firstName" validate:"omitempty,max=100"`
	LastName  string `json:"lastName" validate:"omitempty,max=100"`
	Email     string `json:"email" validate:"required,email"`
	Phone     string `json:"phone" validate:"omitempty,max=32"`
	Address   string `json:"address" validate:"omitempty,max=255"`
	City      string `json:"city" validate:"omitempty,max=100"`
}

// InitiateInput starts a checkout for exactly one product order or booking.
type InitiateInput struct {
	PayerID        uuid.UUID
	ProductOrderID *uuid.UUID
	ServiceOrderID *uuid.UUID
	Customer       Customer
}

// CheckoutFields are posted verbatim by the client to the gateway.
type CheckoutFields struct {
	Sandbox    bool   `json:"sandbox"`
	MerchantID string `json:"merchant_id"`
	ReturnURL  string `json:"return_url"`
	CancelURL  string `json:"cancel_url"`
	NotifyURL  string `json:"notify_url"`
	OrderID    string `json:"order_id"`
	Items      string `json:"items"`
	Amount     string `json:"amount"`
	Currency   string `json:"currency"`
	Hash       string `json:"hash"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Address    string `json:"address"`
	City       string `json:"city"`
	Country    string `json:"country"`
}

// Checkout is returned to the client for the hosted-page redirect.
type Checkout struct {
	PaymentID    uuid.UUID      `json:"paymentId"`
	CheckoutURL  string         `json:"checkoutUrl"`
	CheckoutData CheckoutFields `json:"checkoutData"`
}

// HistoryParams is a raw page request.
type HistoryParams struct {
	Limit  int
	Cursor string
}

// History is a page of the caller's payments, newest first.
type History struct {
	Items  []models.Payment `json:"items"`
	Cursor string           `json:"cursor"`
}

// GatewaySettings are the merchant-level values stamped on every checkout.
type GatewaySettings struct {
	Currency  string
	Country   string
	ClientURL string
	ServerURL string
	Sandbox   bool
}
