package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateProductOrder OutboxAggregateType = "product_order"
	AggregateServiceOrder OutboxAggregateType = "service_order"
	AggregatePayment      OutboxAggregateType = "payment"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateProductOrder,
	AggregateServiceOrder,
	AggregatePayment,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventOrderPlaced               OutboxEventType = "order_placed"
	EventOrderStatusChanged        OutboxEventType = "order_status_changed"
	EventServiceBooked             OutboxEventType = "service_booked"
	EventServiceOrderStatusChanged OutboxEventType = "service_order_status_changed"
	EventPaymentReceived           OutboxEventType = "payment_received"
	EventPaymentFailed             OutboxEventType = "payment_failed"
	EventEscrowReleased            OutboxEventType = "escrow_released"
)

var validOutboxEventTypes = []OutboxEventType{
	EventOrderPlaced,
	EventOrderStatusChanged,
	EventServiceBooked,
	EventServiceOrderStatusChanged,
	EventPaymentReceived,
	EventPaymentFailed,
	EventEscrowReleased,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
