package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/hirelanka/marketplace-backend/internal/ledger"
	"github.com/hirelanka/marketplace-backend/internal/notifications"
	"github.com/hirelanka/marketplace-backend/internal/orders"
	"github.com/hirelanka/marketplace-backend/pkg/db"
	"github.com/hirelanka/marketplace-backend/pkg/db/models"
	"github.com/hirelanka/marketplace-backend/pkg/enums"
	pkgerrors "github.com/hirelanka/marketplace-backend/pkg/errors"
	"github.com/hirelanka/marketplace-backend/pkg/logger"
	"github.com/hirelanka/marketplace-backend/pkg/metrics"
	"github.com/hirelanka/marketplace-backend/pkg/outbox"
	"github.com/hirelanka/marketplace-backend/pkg/pagination"
	"github.com/hirelanka/marketplace-backend/pkg/payhere"
)

const (
	externalOrderIDIndex  = "ux_payments_external_order_id"
	externalOrderIDColumn = "gateway_external_order_id"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service covers checkout initiation, the gateway notification and payment history.
type Service interface {
	Initiate(ctx context.Context, input InitiateInput) (*Checkout, error)
	HandleNotification(ctx context.Context, n payhere.Notification) (*WebhookResult, error)
	History(ctx context.Context, payerID uuid.UUID, params HistoryParams) (*History, error)
}

type ServiceParams struct {
	Repository Repository
	Orders     orders.Repository
	Ledger     ledger.Service
	Outbox     outbox.Emitter
	Tx         txRunner
	Notifier   notifications.Notifier
	Signer     payhere.Signer
	Gateway    GatewaySettings
	Metrics    *metrics.SettlementMetrics
	Logger     *logger.Logger
	Now        func() time.Time
}

type service struct {
	repo     Repository
	orders   orders.Repository
	ledger   ledger.Service
	outbox   outbox.Emitter
	tx       txRunner
	notifier notifications.Notifier
	signer   payhere.Signer
	gateway  GatewaySettings
	metrics  *metrics.SettlementMetrics
	logg     *logger.Logger
	now      func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
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
	if params.Signer.MerchantID() == "" {
		return nil, fmt.Errorf("merchant id required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	gateway := params.Gateway
	if gateway.Currency == "" {
		gateway.Currency = "LKR"
	}
	if gateway.Country == "" {
		gateway.Country = "Sri Lanka"
	}
	gateway.Currency = strings.ToUpper(gateway.Currency)
	gateway.ClientURL = strings.TrimRight(gateway.ClientURL, "/")
	gateway.ServerURL = strings.TrimRight(gateway.ServerURL, "/")

	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:     params.Repository,
		orders:   params.Orders,
		ledger:   params.Ledger,
		outbox:   params.Outbox,
		tx:       params.Tx,
		notifier: params.Notifier,
		signer:   params.Signer,
		gateway:  gateway,
		metrics:  params.Metrics,
		logg:     params.Logger,
		now:      now,
	}, nil
}

// chargeable is what a checkout needs to know about the thing being paid for.
type chargeable struct {
	kind            string
	productOrderID  *uuid.UUID
	serviceOrderID  *uuid.UUID
	externalOrderID string
	amount          decimal.Decimal
	method          enums.PaymentMethod
	items           string
	escrow          bool
	address         string
	city            string
	contactName     string
	contactPhone    string
}

func (s *service) Initiate(ctx context.Context, input InitiateInput) (*Checkout, error) {
	if input.PayerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if (input.ProductOrderID == nil) == (input.ServiceOrderID == nil) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "exactly one of productOrderId or serviceOrderId is required")
	}
	if strings.TrimSpace(input.Customer.Email) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer email required")
	}

	var (
		target *chargeable
		err    error
	)
	if input.ProductOrderID != nil {
		target, err = s.productCharge(ctx, input.PayerID, *input.ProductOrderID)
	} else {
		target, err = s.bookingCharge(ctx, input.PayerID, *input.ServiceOrderID)
	}
	if err != nil {
		return nil, err
	}

	payment := &models.Payment{
		ProductOrderID: target.productOrderID,
		ServiceOrderID: target.serviceOrderID,
		PayerID:        input.PayerID,
		Amount:         target.amount,
		Currency:       s.gateway.Currency,
		PaymentMethod:  target.method,
		Status:         enums.PaymentStatusPending,
		Gateway:        models.GatewayRecord{ExternalOrderID: target.externalOrderID},
		Escrow:         models.EscrowRecord{IsEscrow: target.escrow},
	}
	if err := s.repo.Create(ctx, payment); err != nil {
		if db.IsUniqueViolationOn(err, externalOrderIDIndex, externalOrderIDColumn) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "checkout already started, retry")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment")
	}
	s.metrics.IncPaymentInitiated(target.kind)

	first, last := splitName(input.Customer.FirstName, input.Customer.LastName, target.contactName)
	fields := CheckoutFields{
		Sandbox:    s.gateway.Sandbox,
		MerchantID: s.signer.MerchantID(),
		ReturnURL:  s.gateway.ClientURL + "/payment/success",
		CancelURL:  s.gateway.ClientURL + "/payment/cancel",
		NotifyURL:  s.gateway.ServerURL + "/api/v1/payments/webhook",
		OrderID:    target.externalOrderID,
		Items:      target.items,
		Amount:     payhere.FormatAmount(target.amount),
		Currency:   s.gateway.Currency,
		Hash:       s.signer.CheckoutHash(target.externalOrderID, target.amount, s.gateway.Currency),
		FirstName:  first,
		LastName:   last,
		Email:      strings.TrimSpace(input.Customer.Email),
		Phone:      firstNonEmpty(input.Customer.Phone, target.contactPhone),
		Address:    firstNonEmpty(input.Customer.Address, target.address),
		City:       firstNonEmpty(input.Customer.City, target.city),
		Country:    s.gateway.Country,
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"payment_id":        payment.ID.String(),
		"external_order_id": target.externalOrderID,
	})
	s.logg.Info(logCtx, "checkout initiated")

	return &Checkout{
		PaymentID:    payment.ID,
		CheckoutURL:  payhere.CheckoutURL(s.gateway.Sandbox),
		CheckoutData: fields,
	}, nil
}

func (s *service) productCharge(ctx context.Context, payerID, orderID uuid.UUID) (*chargeable, error) {
	order, err := s.orders.FindProductOrder(ctx, orderID)
	if err != nil {
		return nil, loadError(err, "order")
	}
	if order.BuyerID != payerID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if order.PaymentStatus == enums.OrderPaymentStatusPaid {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "order already paid")
	}
	if order.Status == enums.ProductOrderStatusCancelled {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidTransition, "order is cancelled")
	}

	// recomputed from the snapshotted lines, never from client input
	amount := decimal.Zero
	for _, item := range order.Items {
		amount = amount.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	if !amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order has nothing to pay")
	}

	id := order.ID
	return &chargeable{
		kind:            metrics.KindProduct,
		productOrderID:  &id,
		externalOrderID: fmt.Sprintf("ORD-%s-%d", order.ID, s.now().UnixMilli()),
		amount:          amount,
		method:          order.PaymentMethod,
		items:           "Order #" + order.OrderNumber,
		address:         order.ShippingAddress.Street,
		city:            order.ShippingAddress.City,
		contactName:     order.ShippingAddress.Name,
		contactPhone:    order.ShippingAddress.Phone,
	}, nil
}

func (s *service) bookingCharge(ctx context.Context, payerID, bookingID uuid.UUID) (*chargeable, error) {
	booking, err := s.orders.FindServiceOrder(ctx, bookingID)
	if err != nil {
		return nil, loadError(err, "booking")
	}
	if booking.BuyerID != payerID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "booking not found")
	}
	switch booking.PaymentStatus {
	case enums.ServicePaymentStatusEscrow, enums.ServicePaymentStatusReleased:
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "booking already paid")
	}
	switch booking.Status {
	case enums.ServiceOrderStatusCancelled, enums.ServiceOrderStatusDisputed:
		return nil, pkgerrors.New(pkgerrors.CodeInvalidTransition, fmt.Sprintf("booking is %s", booking.Status))
	}
	if !booking.Price.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "booking has nothing to pay")
	}

	id := booking.ID
	return &chargeable{
		kind:            metrics.KindService,
		serviceOrderID:  &id,
		externalOrderID: fmt.Sprintf("SVC-%s-%d", booking.ID, s.now().UnixMilli()),
		amount:          booking.Price,
		method:          enums.PaymentMethodPayHere,
		items:           "Booking #" + booking.OrderNumber,
		escrow:          true,
	}, nil
}

func (s *service) History(ctx context.Context, payerID uuid.UUID, params HistoryParams) (*History, error) {
	if payerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, next, err := s.repo.ListByPayer(ctx, payerID, pagination.NormalizeLimit(params.Limit), cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payments")
	}
	if rows == nil {
		rows = []models.Payment{}
	}
	return &History{Items: rows, Cursor: next}, nil
}

func loadError(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, what+" not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load "+what)
}

func splitName(first, last, fallback string) (string, string) {
	first, last = strings.TrimSpace(first), strings.TrimSpace(last)
	if first != "" {
		return first, last
	}
	parts := strings.Fields(fallback)
	if len(parts) == 0 {
		return "", last
	}
	if last == "" {
		last = strings.Join(parts[1:], " ")
	}
	return parts[0], last
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
