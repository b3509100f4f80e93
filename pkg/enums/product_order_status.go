package enums

import "fmt"

// ProductOrderStatus tracks the fulfillment lifecycle of a product order.
type ProductOrderStatus string

const (
	ProductOrderStatusPending   ProductOrderStatus = "pending"
	ProductOrderStatusConfirmed ProductOrderStatus = "confirmed"
	ProductOrderStatusShipped   ProductOrderStatus = "shipped"
	ProductOrderStatusDelivered ProductOrderStatus = "delivered"
	ProductOrderStatusCancelled ProductOrderStatus = "cancelled"
)

var validProductOrderStatuses = []ProductOrderStatus{
	ProductOrderStatusPending,
	ProductOrderStatusConfirmed,
	ProductOrderStatusShipped,
	ProductOrderStatusDelivered,
	ProductOrderStatusCancelled,
}

// String implements fmt.Stringer.
func (s ProductOrderStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known ProductOrderStatus.
func (s ProductOrderStatus) IsValid() bool {
	for _, candidate := range validProductOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseProductOrderStatus converts raw input into a ProductOrderStatus.
func ParseProductOrderStatus(value string) (ProductOrderStatus, error) {
	for _, candidate := range validProductOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid product order status %q", value)
}

// IsTerminal reports whether no further transitions are allowed from the status.
func (s ProductOrderStatus) IsTerminal() bool {
	return s == ProductOrderStatusDelivered || s == ProductOrderStatusCancelled
}
