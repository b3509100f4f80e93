package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hirelanka/marketplace-backend/pkg/db/dbtest"
	"github.com/hirelanka/marketplace-backend/pkg/db/models"
	"github.com/hirelanka/marketplace-backend/pkg/enums"
)

func TestRepositoryExistsAndOrdering(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(dbtest.Open(t))
	paymentID := uuid.New()
	orderID := uuid.New()

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	for i, typ := range []enums.LedgerEventType{enums.LedgerEventTypeEscrowHeld, enums.LedgerEventTypeEscrowReleased} {
		err := repo.Create(ctx, &models.LedgerEvent{
			PaymentID:   paymentID,
			OrderID:     orderID,
			ActorUserID: uuid.New(),
			Type:        typ,
			Amount:      decimal.NewFromInt(1500),
			Currency:    "LKR",
			CreatedAt:   base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	held, err := repo.ExistsForPayment(ctx, paymentID, enums.LedgerEventTypeEscrowHeld)
	if err != nil || !held {
		t.Fatalf("expected held event, got %v %v", held, err)
	}
	other, err := repo.ExistsForPayment(ctx, uuid.New(), enums.LedgerEventTypeEscrowHeld)
	if err != nil || other {
		t.Fatalf("expected no event for unknown payment, got %v %v", other, err)
	}

	events, err := repo.ListByPaymentID(ctx, paymentID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(events) != 2 || events[0].Type != enums.LedgerEventTypeEscrowHeld || events[1].Type != enums.LedgerEventTypeEscrowReleased {
		t.Fatalf("unexpected ordering %+v", events)
	}
}
