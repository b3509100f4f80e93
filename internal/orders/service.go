package orders

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/hirelanka/marketplace-backend/internal/catalog"
	"github.com/hirelanka/marketplace-backend/internal/notifications"
	"github.com/hirelanka/marketplace-backend/pkg/commission"
	"github.com/hirelanka/marketplace-backend/pkg/db/models"
	"github.com/hirelanka/marketplace-backend/pkg/enums"
	pkgerrors "github.com/hirelanka/marketplace-backend/pkg/errors"
	"github.com/hirelanka/marketplace-backend/pkg/logger"
	"github.com/hirelanka/marketplace-backend/pkg/metrics"
	"github.com/hirelanka/marketplace-backend/pkg/ordernumber"
	"github.com/hirelanka/marketplace-backend/pkg/outbox"
	"github.com/hirelanka/marketplace-backend/pkg/outbox/payloads"
	"github.com/hirelanka/marketplace-backend/pkg/pagination"
)

const maxOrderNumberAttempts = 3

var errOrderNumberTaken = errors.New("order number already taken")

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type numberGenerator interface {
	Next(ctx context.Context, ns ordernumber.Namespace) (string, error)
}

// Service defines product order operations.
type Service interface {
	CreateOrder(ctx context.Context, input CreateOrderInput) (*models.ProductOrder, error)
	GetOrder(ctx context.Context, actor Actor, orderID uuid.UUID) (*models.ProductOrder, error)
	UpdateStatus(ctx context.Context, input UpdateOrderStatusInput) (*models.ProductOrder, error)
	ListBuyerOrders(ctx context.Context, buyerID uuid.UUID, params ListParams) (*ProductOrderList, error)
	ListSellerOrders(ctx context.Context, sellerID uuid.UUID, params ListParams) (*ProductOrderList, error)
}

// ServiceParams wires the collaborators shared by the order and booking services.
type ServiceParams struct {
	Repository Repository
	Catalog    catalog.Reader
	Tx         txRunner
	Outbox     outbox.Emitter
	Numbers    numberGenerator
	Notifier   notifications.Notifier
	Commission commission.Policy
	Metrics    *metrics.SettlementMetrics
	Logger     *logger.Logger
	Now        func() time.Time
}

func (p ServiceParams) validate() error {
	if p.Repository == nil {
		return fmt.Errorf("orders repository required")
	}
	if p.Catalog == nil {
		return fmt.Errorf("catalog reader required")
	}
	if p.Tx == nil {
		return fmt.Errorf("transaction runner required")
	}
	if p.Outbox == nil {
		return fmt.Errorf("outbox emitter required")
	}
	if p.Numbers == nil {
		return fmt.Errorf("order number generator required")
	}
	if p.Notifier == nil {
		return fmt.Errorf("notifier required")
	}
	if p.Logger == nil {
		return fmt.Errorf("logger required")
	}
	return nil
}

type service struct {
	repo     Repository
	catalog  catalog.Reader
	tx       txRunner
	outbox   outbox.Emitter
	numbers  numberGenerator
	notifier notifications.Notifier
	metrics  *metrics.SettlementMetrics
	logg     *logger.Logger
	now      func() time.Time
}

// NewService builds the product order service.
func NewService(params ServiceParams) (Service, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:     params.Repository,
		catalog:  params.Catalog,
		tx:       params.Tx,
		outbox:   params.Outbox,
		numbers:  params.Numbers,
		notifier: params.Notifier,
		metrics:  params.Metrics,
		logg:     params.Logger,
		now:      now,
	}, nil
}

func (s *service) CreateOrder(ctx context.Context, input CreateOrderInput) (*models.ProductOrder, error) {
	items, err := validateCreateOrder(input)
	if err != nil {
		return nil, err
	}

	for attempt := 1; attempt <= maxOrderNumberAttempts; attempt++ {
		number, err := s.numbers.Next(ctx, ordernumber.ProductOrders)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "generate order number")
		}

		order, err := s.createOrder(ctx, input, items, number)
		if errors.Is(err, errOrderNumberTaken) {
			s.logg.Warn(s.logg.WithField(ctx, "order_number", number), "order number collision, retrying")
			continue
		}
		if err != nil {
			if pkgerrors.Is(err, pkgerrors.CodeOutOfStock) {
				s.metrics.IncOutOfStock()
			}
			return nil, err
		}

		s.metrics.IncOrderCreated(metrics.KindProduct)
		notices := []notifications.Notice{notifications.OrderPlaced(order)}
		for _, sellerID := range sellerIDs(order) {
			notices = append(notices, notifications.OrderReceived(sellerID, order))
		}
		s.notifier.Notify(ctx, notices...)
		return order, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeConflict, "could not allocate a unique order number")
}

func (s *service) createOrder(ctx context.Context, input CreateOrderInput, items []LineItemInput, number string) (*models.ProductOrder, error) {
	var order *models.ProductOrder
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		reader := s.catalog.WithTx(tx)

		ids := make([]uuid.UUID, 0, len(items))
		for _, item := range items {
			ids = append(ids, item.ProductID)
		}
		products, err := reader.GetProducts(ctx, ids)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
		}

		total := decimal.Zero
		lines := make([]models.ProductOrderItem, 0, len(items))
		for _, item := range items {
			product, ok := products[item.ProductID]
			if !ok || product.Status != enums.ListingStatusApproved {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
					WithDetails(map[string]any{"productId": item.ProductID})
			}
			if product.Stock < item.Quantity {
				return outOfStock(item.ProductID, item.Quantity, &product.Stock)
			}
			lineTotal := product.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
			total = total.Add(lineTotal)
			lines = append(lines, models.ProductOrderItem{
				ProductID: product.ID,
				SellerID:  product.OwnerID,
				Name:      product.Name,
				Quantity:  item.Quantity,
				UnitPrice: product.Price,
				LineTotal: lineTotal,
			})
		}

		// fixed lock order keeps concurrent multi-item checkouts from deadlocking
		ordered := append([]LineItemInput(nil), items...)
		sort.Slice(ordered, func(i, j int) bool {
			return ordered[i].ProductID.String() < ordered[j].ProductID.String()
		})
		for _, item := range ordered {
			if err := reader.DecrementStock(ctx, item.ProductID, item.Quantity); err != nil {
				if errors.Is(err, catalog.ErrInsufficientStock) {
					return outOfStock(item.ProductID, item.Quantity, nil)
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserve stock")
			}
		}

		order = &models.ProductOrder{
			OrderNumber:     number,
			BuyerID:         input.BuyerID,
			TotalAmount:     total,
			Status:          enums.ProductOrderStatusPending,
			PaymentStatus:   enums.OrderPaymentStatusPending,
			PaymentMethod:   input.PaymentMethod,
			ShippingAddress: input.ShippingAddress,
			Items:           lines,
		}
		if err := s.repo.WithTx(tx).CreateProductOrder(ctx, order); err != nil {
			if isOrderNumberConflict(err, productOrderNumberIndex) {
				return errOrderNumberTaken
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create product order")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderPlaced,
			AggregateType: enums.AggregateProductOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: input.BuyerID, Role: string(enums.UserRoleUser)},
			Data: payloads.OrderPlacedEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				BuyerID:     order.BuyerID,
				SellerIDs:   sellerIDs(order),
				TotalAmount: order.TotalAmount,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *service) GetOrder(ctx context.Context, actor Actor, orderID uuid.UUID) (*models.ProductOrder, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindProductOrder(ctx, orderID)
	if err != nil {
		return nil, loadError(err, "order")
	}
	if !actor.IsAdmin() && order.BuyerID != actor.UserID && !isSeller(order, actor.UserID) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

func (s *service) UpdateStatus(ctx context.Context, input UpdateOrderStatusInput) (*models.ProductOrder, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.Actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}

	var updated *models.ProductOrder
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindProductOrder(ctx, input.OrderID)
		if err != nil {
			return loadError(err, "order")
		}
		if !input.Actor.IsAdmin() && !isSeller(order, input.Actor.UserID) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the seller or an admin may update this order")
		}

		from := order.Status
		if !CanTransitionProductOrder(from, input.Status) {
			return invalidTransition(string(from), string(input.Status))
		}

		now := s.now().UTC()
		updates := map[string]any{"status": input.Status}
		if input.Status == enums.ProductOrderStatusCancelled {
			updates["cancelled_at"] = now
		}
		ok, err := repo.TransitionProductOrder(ctx, order.ID, from, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "order status changed concurrently")
		}

		if input.Status == enums.ProductOrderStatusCancelled {
			reader := s.catalog.WithTx(tx)
			for _, item := range order.Items {
				if err := reader.IncrementStock(ctx, item.ProductID, item.Quantity); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "restock cancelled order")
				}
			}
			order.CancelledAt = &now
		}
		order.Status = input.Status
		updated = order

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateProductOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: input.Actor.UserID, Role: string(input.Actor.Role)},
			Data: payloads.OrderStatusChangedEvent{
				OrderID: order.ID,
				From:    from,
				To:      input.Status,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) ListBuyerOrders(ctx context.Context, buyerID uuid.UUID, params ListParams) (*ProductOrderList, error) {
	query, err := listQuery(buyerID, params)
	if err != nil {
		return nil, err
	}
	rows, next, err := s.repo.ListBuyerProductOrders(ctx, buyerID, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list buyer orders")
	}
	return &ProductOrderList{Items: nonNil(rows), Cursor: next}, nil
}

func (s *service) ListSellerOrders(ctx context.Context, sellerID uuid.UUID, params ListParams) (*ProductOrderList, error) {
	query, err := listQuery(sellerID, params)
	if err != nil {
		return nil, err
	}
	rows, next, err := s.repo.ListSellerProductOrders(ctx, sellerID, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list seller orders")
	}
	return &ProductOrderList{Items: nonNil(rows), Cursor: next}, nil
}

// validateCreateOrder rejects malformed input and folds repeated products into one line.
func validateCreateOrder(input CreateOrderInput) ([]LineItemInput, error) {
	if input.BuyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one item required")
	}
	if !input.PaymentMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}
	addr := input.ShippingAddress
	missing := []string{}
	for field, value := range map[string]string{"name": addr.Name, "phone": addr.Phone, "street": addr.Street, "city": addr.City} {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipping address incomplete").
			WithDetails(map[string]any{"missing": missing})
	}

	merged := make([]LineItemInput, 0, len(input.Items))
	index := map[uuid.UUID]int{}
	for _, item := range input.Items {
		if item.ProductID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
		}
		if item.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive").
				WithDetails(map[string]any{"productId": item.ProductID})
		}
		if i, ok := index[item.ProductID]; ok {
			merged[i].Quantity += item.Quantity
			continue
		}
		index[item.ProductID] = len(merged)
		merged = append(merged, item)
	}
	return merged, nil
}

func outOfStock(productID uuid.UUID, requested int, available *int) error {
	details := map[string]any{"productId": productID, "requested": requested}
	if available != nil {
		details["available"] = *available
	}
	return pkgerrors.New(pkgerrors.CodeOutOfStock, "insufficient stock").WithDetails(details)
}

func invalidTransition(from, to string) error {
	return pkgerrors.New(pkgerrors.CodeInvalidTransition, fmt.Sprintf("cannot move from %s to %s", from, to)).
		WithDetails(map[string]any{"from": from, "to": to})
}

func loadError(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, what+" not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load "+what)
}

func isSeller(order *models.ProductOrder, userID uuid.UUID) bool {
	for _, item := range order.Items {
		if item.SellerID == userID {
			return true
		}
	}
	return false
}

func sellerIDs(order *models.ProductOrder) []uuid.UUID {
	seen := map[uuid.UUID]struct{}{}
	out := []uuid.UUID{}
	for _, item := range order.Items {
		if _, ok := seen[item.SellerID]; ok {
			continue
		}
		seen[item.SellerID] = struct{}{}
		out = append(out, item.SellerID)
	}
	return out
}

func listQuery(ownerID uuid.UUID, params ListParams) (ListQuery, error) {
	if ownerID == uuid.Nil {
		return ListQuery{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return ListQuery{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	return ListQuery{Limit: pagination.NormalizeLimit(params.Limit), Cursor: cursor}, nil
}

func nonNil[T any](rows []T) []T {
	if rows == nil {
		return []T{}
	}
	return rows
}
