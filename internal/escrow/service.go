// Package escrow releases held booking payments to the provider once the buyer signs off.
package escrow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hirelanka/marketplace-backend/internal/ledger"
	"github.com/hirelanka/marketplace-backend/internal/notifications"
	"github.com/hirelanka/marketplace-backend/internal/orders"
	"github.com/hirelanka/marketplace-backend/internal/payments"
	"github.com/hirelanka/marketplace-backend/pkg/db/models"
	"github.com/hirelanka/marketplace-backend/pkg/enums"
	pkgerrors "github.com/hirelanka/marketplace-backend/pkg/errors"
	"github.com/hirelanka/marketplace-backend/pkg/logger"
	"github.com/hirelanka/marketplace-backend/pkg/metrics"
	"github.com/hirelanka/marketplace-backend/pkg/outbox"
	"github.com/hirelanka/marketplace-backend/pkg/outbox/payloads"
)

// Denial reasons, used as metric labels.
const (
	ReasonNotEscrow    = "not_escrow"
	ReasonNotPayer     = "not_payer"
	ReasonNotCompleted = "not_completed"
	ReasonNotHeld      = "not_held"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type Service interface {
	Release(ctx context.Context, paymentID, actorID uuid.UUID) (*models.Payment, error)
}

type ServiceParams struct {
	Payments payments.Repository
	Orders   orders.Repository
	Ledger   ledger.Service
	Outbox   outbox.Emitter
	Tx       txRunner
	Notifier notifications.Notifier
	Metrics  *metrics.SettlementMetrics
	Logger   *logger.Logger
	Now      func() time.Time
}

type service struct {
	payments payments.Repository
	orders   orders.Repository
	ledger   ledger.Service
	outbox   outbox.Emitter
	tx       txRunner
	notifier notifications.Notifier
	metrics  *metrics.SettlementMetrics
	logg     *logger.Logger
	now      func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Payments == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Notifier == nil {
		return nil, fmt.Errorf("notifier required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		payments: params.Payments,
		orders:   params.Orders,
		ledger:   params.Ledger,
		outbox:   params.Outbox,
		tx:       params.Tx,
		notifier: params.Notifier,
		metrics:  params.Metrics,
		logg:     params.Logger,
		now:      now,
	}, nil
}

// Release pays out a held booking payment. Every precondition is checked inside
// the transaction and the final write is conditional, so a second caller racing
// the first sees the payment already released and changes nothing.
func (s *service) Release(ctx context.Context, paymentID, actorID uuid.UUID) (*models.Payment, error) {
	if paymentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment id required")
	}
	if actorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	ctx = s.logg.WithPaymentID(ctx, paymentID.String())

	var (
		released *models.Payment
		booking  *models.ServiceOrder
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		payment, err := s.payments.WithTx(tx).FindByID(ctx, paymentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "escrow payment not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
		}
		if !payment.Escrow.IsEscrow || payment.ServiceOrderID == nil {
			s.metrics.IncEscrowReleaseDenied(ReasonNotEscrow)
			return pkgerrors.New(pkgerrors.CodeNotFound, "escrow payment not found")
		}
		if payment.PayerID != actorID {
			s.metrics.IncEscrowReleaseDenied(ReasonNotPayer)
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "only the payer may release escrow")
		}

		booking, err = s.orders.WithTx(tx).FindServiceOrder(ctx, *payment.ServiceOrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "booking not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load booking")
		}
		if booking.Status != enums.ServiceOrderStatusCompleted {
			s.metrics.IncEscrowReleaseDenied(ReasonNotCompleted)
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "service must be completed before release").
				WithDetails(map[string]any{"bookingStatus": booking.Status})
		}
		if payment.Status != enums.PaymentStatusEscrow || payment.Escrow.ReleasedAt != nil {
			s.metrics.IncEscrowReleaseDenied(ReasonNotHeld)
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "payment is not held in escrow").
				WithDetails(map[string]any{"paymentStatus": payment.Status})
		}

		at := s.now().UTC()
		ok, err := s.payments.WithTx(tx).ReleaseEscrow(ctx, payment.ID, actorID, at)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "release escrow")
		}
		if !ok {
			s.metrics.IncEscrowReleaseDenied(ReasonNotHeld)
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "payment is not held in escrow")
		}
		if err := s.orders.WithTx(tx).UpdateServiceOrder(ctx, booking.ID, map[string]any{
			"payment_status": enums.ServicePaymentStatusReleased,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark booking released")
		}

		if _, err := s.ledger.WithTx(tx).RecordEvent(ctx, ledger.RecordLedgerEventInput{
			PaymentID:   payment.ID,
			OrderID:     booking.ID,
			ActorUserID: actorID,
			Type:        enums.LedgerEventTypeEscrowReleased,
			Amount:      payment.Amount,
			Currency:    payment.Currency,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record ledger event")
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventEscrowReleased,
			AggregateType: enums.AggregatePayment,
			AggregateID:   payment.ID,
			Actor:         &outbox.ActorRef{UserID: actorID, Role: string(enums.UserRoleUser)},
			Data: payloads.EscrowReleasedEvent{
				PaymentID:        payment.ID,
				ServiceOrderID:   booking.ID,
				ProviderID:       booking.ProviderID,
				Amount:           payment.Amount,
				CommissionAmount: booking.CommissionAmount,
				ReleasedAt:       at,
				ReleasedBy:       actorID,
			},
		}); err != nil {
			return err
		}

		payment.Status = enums.PaymentStatusCompleted
		payment.Escrow.ReleasedAt = &at
		payment.Escrow.ReleasedBy = &actorID
		released = payment
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncEscrowReleased()
	s.logg.Info(s.logg.WithField(ctx, "provider_id", booking.ProviderID.String()), "escrow released")
	s.notifier.Notify(ctx, notifications.PaymentReleased(booking.ProviderID, released))
	return released, nil
}
