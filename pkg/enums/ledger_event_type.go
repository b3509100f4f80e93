package enums

import "fmt"

// LedgerEventType maps to the ledger_event_type_enum enum in Postgres.
type LedgerEventType string

const (
	LedgerEventTypePaymentReceived LedgerEventType = "payment_received"
	LedgerEventTypePaymentFailed   LedgerEventType = "payment_failed"
	LedgerEventTypeEscrowHeld      LedgerEventType = "escrow_held"
	LedgerEventTypeEscrowReleased  LedgerEventType = "escrow_released"
	// RefundDue marks money captured for an order that was cancelled before payment landed.
	LedgerEventTypeRefundDue LedgerEventType = "refund_due"
)

var validLedgerEventTypes = []LedgerEventType{
	LedgerEventTypePaymentReceived,
	LedgerEventTypePaymentFailed,
	LedgerEventTypeEscrowHeld,
	LedgerEventTypeEscrowReleased,
	LedgerEventTypeRefundDue,
}

// IsValid reports whether the value is a known LedgerEventType.
func (t LedgerEventType) IsValid() bool {
	for _, candidate := range validLedgerEventTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseLedgerEventType converts raw input into LedgerEventType.
func ParseLedgerEventType(value string) (LedgerEventType, error) {
	for _, candidate := range validLedgerEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid ledger event type %q", value)
}
