package enums

import "fmt"

// ServiceOrderStatus tracks a booking through the provider engagement lifecycle.
type ServiceOrderStatus string

const (
	ServiceOrderStatusPending    ServiceOrderStatus = "pending"
	ServiceOrderStatusAccepted   ServiceOrderStatus = "accepted"
	ServiceOrderStatusInProgress ServiceOrderStatus = "in_progress"
	ServiceOrderStatusDelivered  ServiceOrderStatus = "delivered"
	ServiceOrderStatusCompleted  ServiceOrderStatus = "completed"
	ServiceOrderStatusCancelled  ServiceOrderStatus = "cancelled"
	ServiceOrderStatusDisputed   ServiceOrderStatus = "disputed"
)

var validServiceOrderStatuses = []ServiceOrderStatus{
	ServiceOrderStatusPending,
	ServiceOrderStatusAccepted,
	ServiceOrderStatusInProgress,
	ServiceOrderStatusDelivered,
	ServiceOrderStatusCompleted,
	ServiceOrderStatusCancelled,
	ServiceOrderStatusDisputed,
}

// String implements fmt.Stringer.
func (s ServiceOrderStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known ServiceOrderStatus.
func (s ServiceOrderStatus) IsValid() bool {
	for _, candidate := range validServiceOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseServiceOrderStatus converts raw input into a ServiceOrderStatus.
func ParseServiceOrderStatus(value string) (ServiceOrderStatus, error) {
	for _, candidate := range validServiceOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid service order status %q", value)
}

// IsActive reports whether the booking is still in flight.
func (s ServiceOrderStatus) IsActive() bool {
	switch s {
	case ServiceOrderStatusPending, ServiceOrderStatusAccepted, ServiceOrderStatusInProgress, ServiceOrderStatusDelivered:
		return true
	}
	return false
}
