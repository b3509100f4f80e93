package notifications

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hirelanka/marketplace-backend/pkg/db/models"
	"github.com/hirelanka/marketplace-backend/pkg/enums"
)

// Notice is a single message addressed to one user.
type Notice struct {
	UserID      uuid.UUID              `json:"userId"`
	Type        enums.NotificationType `json:"type"`
	Title       string                 `json:"title"`
	Message     string                 `json:"message"`
	Link        *string                `json:"link,omitempty"`
	ReferenceID *uuid.UUID             `json:"referenceId,omitempty"`
}

func (n Notice) validate() error {
	if n.UserID == uuid.Nil {
		return fmt.Errorf("notice recipient required")
	}
	if !n.Type.IsValid() {
		return fmt.Errorf("invalid notification type %q", n.Type)
	}
	if strings.TrimSpace(n.Title) == "" || strings.TrimSpace(n.Message) == "" {
		return fmt.Errorf("notice title and message required")
	}
	return nil
}

func (n Notice) toModel() *models.Notification {
	return &models.Notification{
		UserID:      n.UserID,
		Type:        n.Type,
		Title:       n.Title,
		Message:     n.Message,
		Link:        n.Link,
		ReferenceID: n.ReferenceID,
	}
}

func ref(id uuid.UUID) *uuid.UUID {
	return &id
}

func link(path string) *string {
	return &path
}

// OrderPlaced tells the buyer their product order exists.
func OrderPlaced(order *models.ProductOrder) Notice {
	return Notice{
		UserID:      order.BuyerID,
		Type:        enums.NotificationTypeOrderPlaced,
		Title:       "Order Placed",
		Message:     fmt.Sprintf("Your order #%s has been placed.", order.OrderNumber),
		Link:        link("/dashboard/orders"),
		ReferenceID: ref(order.ID),
	}
}

// OrderReceived tells a seller that an order contains their products.
func OrderReceived(sellerID uuid.UUID, order *models.ProductOrder) Notice {
	return Notice{
		UserID:      sellerID,
		Type:        enums.NotificationTypeOrderPlaced,
		Title:       "New Order",
		Message:     fmt.Sprintf("You received a new order #%s.", order.OrderNumber),
		Link:        link("/dashboard/sales"),
		ReferenceID: ref(order.ID),
	}
}

// ServiceBooked tells the provider about a new booking.
func ServiceBooked(order *models.ServiceOrder) Notice {
	return Notice{
		UserID:      order.ProviderID,
		Type:        enums.NotificationTypeServiceBooked,
		Title:       "New Booking",
		Message:     fmt.Sprintf("You have a new booking #%s.", order.OrderNumber),
		Link:        link("/dashboard/bookings"),
		ReferenceID: ref(order.ID),
	}
}

// PaymentReceived tells the payer the gateway confirmed their payment.
func PaymentReceived(payment *models.Payment) Notice {
	return Notice{
		UserID:      payment.PayerID,
		Type:        enums.NotificationTypePaymentReceived,
		Title:       "Payment Successful",
		Message:     fmt.Sprintf("Your payment of %s has been received.", FormatRupees(payment.Amount)),
		Link:        link("/dashboard/payments"),
		ReferenceID: ref(payment.ID),
	}
}

// PaymentReleased tells the provider that escrowed funds were released.
func PaymentReleased(providerID uuid.UUID, payment *models.Payment) Notice {
	return Notice{
		UserID:      providerID,
		Type:        enums.NotificationTypePaymentReleased,
		Title:       "Payment Released",
		Message:     fmt.Sprintf("Payment of %s has been released to your account.", FormatRupees(payment.Amount)),
		Link:        link("/dashboard/earnings"),
		ReferenceID: ref(payment.ID),
	}
}

// FormatRupees renders an amount as "Rs. 10,000" or "Rs. 1,250.50".
func FormatRupees(amount decimal.Decimal) string {
	sign := ""
	if amount.IsNegative() {
		sign = "-"
		amount = amount.Neg()
	}
	text := amount.StringFixed(2)
	whole, frac, _ := strings.Cut(text, ".")

	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if frac != "00" {
		b.WriteByte('.')
		b.WriteString(frac)
	}
	return "Rs. " + sign + b.String()
}
