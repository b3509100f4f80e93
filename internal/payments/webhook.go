package payments

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/hirelanka/marketplace-backend/internal/ledger"
	"github.com/hirelanka/marketplace-backend/internal/notifications"
	"github.com/hirelanka/marketplace-backend/pkg/db/models"
	"github.com/hirelanka/marketplace-backend/pkg/enums"
	pkgerrors "github.com/hirelanka/marketplace-backend/pkg/errors"
	"github.com/hirelanka/marketplace-backend/pkg/outbox"
	"github.com/hirelanka/marketplace-backend/pkg/outbox/payloads"
	"github.com/hirelanka/marketplace-backend/pkg/payhere"
)

// Webhook outcome labels, also used as metric values.
const (
	WebhookSucceeded        = "succeeded"
	WebhookFailed           = "failed"
	WebhookPending          = "pending"
	WebhookDuplicate        = "duplicate"
	WebhookInvalidSignature = "invalid_signature"
	WebhookUnknownPayment   = "unknown_payment"
	WebhookMismatch         = "mismatch"
)

// WebhookResult reports what a verified notification did.
type WebhookResult struct {
	PaymentID uuid.UUID           `json:"paymentId"`
	Status    enums.PaymentStatus `json:"status"`
	Outcome   string              `json:"outcome"`
}

// HandleNotification authenticates a gateway notification and only then applies it.
// Nothing is read or written before the signature matches.
func (s *service) HandleNotification(ctx context.Context, n payhere.Notification) (*WebhookResult, error) {
	n = trimNotification(n)
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"external_order_id": n.OrderID,
		"status_code":       string(n.StatusCode),
	})

	if !s.signer.Verify(n) {
		s.metrics.IncWebhook(WebhookInvalidSignature)
		s.logg.Warn(logCtx, "payment notification signature mismatch")
		return nil, pkgerrors.New(pkgerrors.CodeInvalidSignature, "invalid signature")
	}

	result, settled, err := s.apply(ctx, n)
	if err != nil {
		switch {
		case pkgerrors.Is(err, pkgerrors.CodeAlreadyProcessed):
			s.metrics.IncWebhook(WebhookDuplicate)
			s.logg.Info(logCtx, "payment notification already applied")
		case pkgerrors.Is(err, pkgerrors.CodeNotFound):
			s.metrics.IncWebhook(WebhookUnknownPayment)
			s.logg.Warn(logCtx, "payment notification for unknown payment")
		case pkgerrors.Is(err, pkgerrors.CodeValidation):
			s.metrics.IncWebhook(WebhookMismatch)
			s.logg.Warn(logCtx, "payment notification does not match stored payment")
		}
		return nil, err
	}

	s.metrics.IncWebhook(result.Outcome)
	s.logg.Info(s.logg.WithPaymentID(logCtx, result.PaymentID.String()), "payment notification applied")
	if result.Outcome == WebhookSucceeded && settled != nil {
		s.notifier.Notify(ctx, notifications.PaymentReceived(settled))
	}
	return result, nil
}

func (s *service) apply(ctx context.Context, n payhere.Notification) (*WebhookResult, *models.Payment, error) {
	var (
		result  *WebhookResult
		settled *models.Payment
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		payment, err := repo.FindByExternalOrderID(ctx, n.OrderID)
		if err != nil {
			return loadError(err, "payment")
		}
		if err := matchesPayment(payment, n); err != nil {
			return err
		}
		if payment.Status != enums.PaymentStatusPending {
			return pkgerrors.New(pkgerrors.CodeAlreadyProcessed, "payment already processed").
				WithDetails(map[string]any{"status": payment.Status})
		}

		updates := echoFields(n)
		var next enums.PaymentStatus
		outcome := WebhookPending
		switch n.StatusCode.Outcome() {
		case payhere.OutcomeSuccess:
			next = enums.PaymentStatusCompleted
			if payment.Escrow.IsEscrow {
				next = enums.PaymentStatusEscrow
			}
			outcome = WebhookSucceeded
		case payhere.OutcomeFailure:
			next = enums.PaymentStatusFailed
			outcome = WebhookFailed
		}
		if next != "" {
			updates["status"] = next
		}

		ok, err := repo.ApplyGatewayResult(ctx, payment.ID, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "apply payment notification")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeAlreadyProcessed, "payment already processed")
		}

		result = &WebhookResult{PaymentID: payment.ID, Status: enums.PaymentStatusPending, Outcome: outcome}
		if next == "" {
			return nil
		}
		payment.Status = next
		result.Status = next

		switch next {
		case enums.PaymentStatusFailed:
			err = s.settleFailure(ctx, tx, payment, n)
		default:
			err = s.settleSuccess(ctx, tx, payment)
		}
		if err != nil {
			return err
		}
		settled = payment
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return result, settled, nil
}

func (s *service) settleSuccess(ctx context.Context, tx *gorm.DB, payment *models.Payment) error {
	orderRepo := s.orders.WithTx(tx)
	ledgerSvc := s.ledger.WithTx(tx)
	orderID := referencedOrder(payment)
	refundDue := false

	if payment.ProductOrderID != nil {
		confirmed, err := orderRepo.TransitionProductOrder(ctx, *payment.ProductOrderID, enums.ProductOrderStatusPending, map[string]any{
			"status":         enums.ProductOrderStatusConfirmed,
			"payment_status": enums.OrderPaymentStatusPaid,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "confirm order")
		}
		if confirmed {
			if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventOrderStatusChanged,
				AggregateType: enums.AggregateProductOrder,
				AggregateID:   *payment.ProductOrderID,
				Data: payloads.OrderStatusChangedEvent{
					OrderID: *payment.ProductOrderID,
					From:    enums.ProductOrderStatusPending,
					To:      enums.ProductOrderStatusConfirmed,
				},
			}); err != nil {
				return err
			}
		} else {
			order, err := orderRepo.FindProductOrder(ctx, *payment.ProductOrderID)
			if err != nil {
				return loadError(err, "product order")
			}
			if err := orderRepo.UpdateProductOrder(ctx, order.ID, map[string]any{
				"payment_status": enums.OrderPaymentStatusPaid,
			}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark order paid")
			}
			// stock was already returned; the captured money has to go back too
			refundDue = order.Status == enums.ProductOrderStatusCancelled
		}
	}
	if payment.ServiceOrderID != nil {
		if err := orderRepo.UpdateServiceOrder(ctx, *payment.ServiceOrderID, map[string]any{
			"payment_status": enums.ServicePaymentStatusEscrow,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "hold booking payment")
		}
	}

	entries := []enums.LedgerEventType{enums.LedgerEventTypePaymentReceived}
	if payment.Escrow.IsEscrow {
		entries = append(entries, enums.LedgerEventTypeEscrowHeld)
	}
	if refundDue {
		entries = append(entries, enums.LedgerEventTypeRefundDue)
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"payment_id":        payment.ID.String(),
			"product_order_id":  orderID.String(),
			"external_order_id": payment.Gateway.ExternalOrderID,
			"amount":            payment.Amount.StringFixed(2),
		}), "payment captured for cancelled order, refund due")
	}
	for _, entry := range entries {
		if _, err := ledgerSvc.RecordEvent(ctx, ledger.RecordLedgerEventInput{
			PaymentID:   payment.ID,
			OrderID:     orderID,
			ActorUserID: payment.PayerID,
			Type:        entry,
			Amount:      payment.Amount,
			Currency:    payment.Currency,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record ledger event")
		}
	}

	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventPaymentReceived,
		AggregateType: enums.AggregatePayment,
		AggregateID:   payment.ID,
		Actor:         &outbox.ActorRef{UserID: payment.PayerID, Role: string(enums.UserRoleUser)},
		Data: payloads.PaymentReceivedEvent{
			PaymentID:       payment.ID,
			ExternalOrderID: payment.Gateway.ExternalOrderID,
			ProductOrderID:  payment.ProductOrderID,
			ServiceOrderID:  payment.ServiceOrderID,
			Amount:          payment.Amount,
			Currency:        payment.Currency,
			Status:          payment.Status,
		},
	})
}

func (s *service) settleFailure(ctx context.Context, tx *gorm.DB, payment *models.Payment, n payhere.Notification) error {
	orderRepo := s.orders.WithTx(tx)

	// a failed retry must not undo an earlier successful payment
	if payment.ProductOrderID != nil {
		order, err := orderRepo.FindProductOrder(ctx, *payment.ProductOrderID)
		if err != nil {
			return loadError(err, "order")
		}
		if order.PaymentStatus != enums.OrderPaymentStatusPaid {
			if err := orderRepo.UpdateProductOrder(ctx, order.ID, map[string]any{
				"payment_status": enums.OrderPaymentStatusFailed,
			}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark order payment failed")
			}
		}
	}
	if payment.ServiceOrderID != nil {
		booking, err := orderRepo.FindServiceOrder(ctx, *payment.ServiceOrderID)
		if err != nil {
			return loadError(err, "booking")
		}
		if booking.PaymentStatus == enums.ServicePaymentStatusPending {
			if err := orderRepo.UpdateServiceOrder(ctx, booking.ID, map[string]any{
				"payment_status": enums.ServicePaymentStatusFailed,
			}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark booking payment failed")
			}
		}
	}

	meta, _ := json.Marshal(map[string]string{"status_code": string(n.StatusCode)})
	if _, err := s.ledger.WithTx(tx).RecordEvent(ctx, ledger.RecordLedgerEventInput{
		PaymentID:   payment.ID,
		OrderID:     referencedOrder(payment),
		ActorUserID: payment.PayerID,
		Type:        enums.LedgerEventTypePaymentFailed,
		Amount:      payment.Amount,
		Currency:    payment.Currency,
		Metadata:    meta,
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record ledger event")
	}

	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventPaymentFailed,
		AggregateType: enums.AggregatePayment,
		AggregateID:   payment.ID,
		Data: payloads.PaymentFailedEvent{
			PaymentID:       payment.ID,
			ExternalOrderID: payment.Gateway.ExternalOrderID,
			StatusCode:      string(n.StatusCode),
		},
	})
}

// matchesPayment rejects notifications whose signed amount or currency differ from what was charged.
func matchesPayment(payment *models.Payment, n payhere.Notification) error {
	amount, err := decimal.NewFromString(n.Amount)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid notification amount")
	}
	if !amount.Equal(payment.Amount) || !strings.EqualFold(n.Currency, payment.Currency) {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification amount does not match payment").
			WithDetails(map[string]any{
				"expectedAmount":   payhere.FormatAmount(payment.Amount),
				"expectedCurrency": payment.Currency,
			})
	}
	return nil
}

func echoFields(n payhere.Notification) map[string]any {
	updates := map[string]any{
		"gateway_signature": n.MD5Sig,
	}
	if code, err := strconv.Atoi(string(n.StatusCode)); err == nil {
		updates["gateway_status_code"] = code
	}
	optional := map[string]string{
		"gateway_external_payment_id": n.PaymentID,
		"gateway_method":              n.Method,
		"gateway_card_holder_name":    n.CardHolderName,
		"gateway_card_no":             n.CardNo,
		"gateway_card_expiry":         n.CardExpiry,
	}
	for column, value := range optional {
		if value != "" {
			updates[column] = value
		}
	}
	return updates
}

func referencedOrder(payment *models.Payment) uuid.UUID {
	if payment.ProductOrderID != nil {
		return *payment.ProductOrderID
	}
	if payment.ServiceOrderID != nil {
		return *payment.ServiceOrderID
	}
	return uuid.Nil
}

func trimNotification(n payhere.Notification) payhere.Notification {
	n.MerchantID = strings.TrimSpace(n.MerchantID)
	n.OrderID = strings.TrimSpace(n.OrderID)
	n.PaymentID = strings.TrimSpace(n.PaymentID)
	n.Amount = strings.TrimSpace(n.Amount)
	n.Currency = strings.TrimSpace(n.Currency)
	n.StatusCode = payhere.StatusCode(strings.TrimSpace(string(n.StatusCode)))
	n.MD5Sig = strings.TrimSpace(n.MD5Sig)
	return n
}
