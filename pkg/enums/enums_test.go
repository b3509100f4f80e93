package enums

import "testing"

func TestParseRoundTripsKnownValues(t *testing.T) {
	for _, raw := range []string{"pending", "confirmed", "shipped", "delivered", "cancelled"} {
		status, err := ParseProductOrderStatus(raw)
		if err != nil {
			t.Fatalf("parse %q: %v", raw, err)
		}
		if status.String() != raw {
			t.Fatalf("expected %q got %q", raw, status)
		}
	}
	if _, err := ParseServiceOrderStatus("in_progress"); err != nil {
		t.Fatalf("parse in_progress: %v", err)
	}
	if _, err := ParsePaymentMethod("payhere"); err != nil {
		t.Fatalf("parse payhere: %v", err)
	}
}

func TestParseRejectsUnknownValues(t *testing.T) {
	if _, err := ParseProductOrderStatus("returned"); err == nil {
		t.Fatalf("expected error for unknown product order status")
	}
	if _, err := ParsePaymentStatus("settled"); err == nil {
		t.Fatalf("expected error for unknown payment status")
	}
	if ServicePaymentStatus("held").IsValid() {
		t.Fatalf("held is not a service payment status")
	}
}

func TestServiceOrderStatusIsActive(t *testing.T) {
	active := map[ServiceOrderStatus]bool{
		ServiceOrderStatusPending:    true,
		ServiceOrderStatusAccepted:   true,
		ServiceOrderStatusInProgress: true,
		ServiceOrderStatusDelivered:  true,
		ServiceOrderStatusCompleted:  false,
		ServiceOrderStatusCancelled:  false,
		ServiceOrderStatusDisputed:   false,
	}
	for status, want := range active {
		if got := status.IsActive(); got != want {
			t.Fatalf("%s: expected active=%v got %v", status, want, got)
		}
	}
}

func TestProductOrderStatusIsTerminal(t *testing.T) {
	if !ProductOrderStatusDelivered.IsTerminal() || !ProductOrderStatusCancelled.IsTerminal() {
		t.Fatalf("delivered and cancelled must be terminal")
	}
	if ProductOrderStatusShipped.IsTerminal() {
		t.Fatalf("shipped is not terminal")
	}
}
