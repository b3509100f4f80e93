package orders

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
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
)

const (
	maxRequirementsLen = 5000
	maxReviewLen       = 2000
)

// BookingService defines service order operations.
type BookingService interface {
	CreateBooking(ctx context.Context, input CreateBookingInput) (*models.ServiceOrder, error)
	GetBooking(ctx context.Context, actor Actor, bookingID uuid.UUID) (*models.ServiceOrder, error)
	UpdateStatus(ctx context.Context, input UpdateBookingStatusInput) (*models.ServiceOrder, error)
	Review(ctx context.Context, input ReviewInput) (*models.ServiceOrder, error)
	ListBuyerBookings(ctx context.Context, buyerID uuid.UUID, params ListParams) (*ServiceOrderList, error)
	ListProviderBookings(ctx context.Context, providerID uuid.UUID, params ListParams) (*ServiceOrderList, error)
}

type bookingService struct {
	repo       Repository
	catalog    catalog.Reader
	tx         txRunner
	outbox     outbox.Emitter
	numbers    numberGenerator
	notifier   notifications.Notifier
	commission commission.Policy
	metrics    *metrics.SettlementMetrics
	logg       *logger.Logger
	now        func() time.Time
}

// NewBookingService builds the booking service.
func NewBookingService(params ServiceParams) (BookingService, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &bookingService{
		repo:       params.Repository,
		catalog:    params.Catalog,
		tx:         params.Tx,
		outbox:     params.Outbox,
		numbers:    params.Numbers,
		notifier:   params.Notifier,
		commission: params.Commission,
		metrics:    params.Metrics,
		logg:       params.Logger,
		now:        now,
	}, nil
}

func (s *bookingService) CreateBooking(ctx context.Context, input CreateBookingInput) (*models.ServiceOrder, error) {
	if input.BuyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.ServiceID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "service id required")
	}
	requirements := strings.TrimSpace(input.Requirements)
	if len(requirements) > maxRequirementsLen {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "requirements too long")
	}

	listing, err := s.catalog.GetService(ctx, input.ServiceID)
	if err != nil {
		return nil, loadError(err, "service")
	}
	if listing.Status != enums.ListingStatusApproved {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "service not found")
	}
	if listing.ProviderID == input.BuyerID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cannot book your own service")
	}

	rate, amount := s.commission.Quote(listing.Price, listing.CommissionRate)

	for attempt := 1; attempt <= maxOrderNumberAttempts; attempt++ {
		number, err := s.numbers.Next(ctx, ordernumber.ServiceOrders)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "generate order number")
		}

		booking := &models.ServiceOrder{
			OrderNumber:      number,
			ServiceID:        listing.ID,
			BuyerID:          input.BuyerID,
			ProviderID:       listing.ProviderID,
			Requirements:     requirements,
			Price:            listing.Price,
			CommissionRate:   rate,
			CommissionAmount: amount,
			Status:           enums.ServiceOrderStatusPending,
			PaymentStatus:    enums.ServicePaymentStatusPending,
		}
		err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			if err := s.repo.WithTx(tx).CreateServiceOrder(ctx, booking); err != nil {
				if isOrderNumberConflict(err, serviceOrderNumberIndex) {
					return errOrderNumberTaken
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create booking")
			}
			return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventServiceBooked,
				AggregateType: enums.AggregateServiceOrder,
				AggregateID:   booking.ID,
				Actor:         &outbox.ActorRef{UserID: input.BuyerID, Role: string(enums.UserRoleUser)},
				Data: payloads.ServiceBookedEvent{
					ServiceOrderID:   booking.ID,
					OrderNumber:      booking.OrderNumber,
					ServiceID:        booking.ServiceID,
					BuyerID:          booking.BuyerID,
					ProviderID:       booking.ProviderID,
					Price:            booking.Price,
					CommissionRate:   booking.CommissionRate,
					CommissionAmount: booking.CommissionAmount,
				},
			})
		})
		if errors.Is(err, errOrderNumberTaken) {
			s.logg.Warn(s.logg.WithField(ctx, "order_number", number), "order number collision, retrying")
			continue
		}
		if err != nil {
			return nil, err
		}

		s.metrics.IncOrderCreated(metrics.KindService)
		s.notifier.Notify(ctx, notifications.ServiceBooked(booking))
		return booking, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeConflict, "could not allocate a unique order number")
}

func (s *bookingService) GetBooking(ctx context.Context, actor Actor, bookingID uuid.UUID) (*models.ServiceOrder, error) {
	if bookingID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "booking id required")
	}
	booking, err := s.repo.FindServiceOrder(ctx, bookingID)
	if err != nil {
		return nil, loadError(err, "booking")
	}
	if !actor.IsAdmin() && partyOf(booking, actor.UserID) == PartyNone {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "booking not found")
	}
	return booking, nil
}

func (s *bookingService) UpdateStatus(ctx context.Context, input UpdateBookingStatusInput) (*models.ServiceOrder, error) {
	if input.BookingID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "booking id required")
	}
	if input.Actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid booking status")
	}

	var updated *models.ServiceOrder
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		booking, err := repo.FindServiceOrder(ctx, input.BookingID)
		if err != nil {
			return loadError(err, "booking")
		}

		party := partyOf(booking, input.Actor.UserID)
		if party == PartyNone {
			return pkgerrors.New(pkgerrors.CodeForbidden, "not a party to this booking")
		}
		from := booking.Status
		exists, permitted := BookingTransitionAllowed(from, input.Status, party)
		if !exists {
			return invalidTransition(string(from), string(input.Status))
		}
		if !permitted {
			return pkgerrors.New(pkgerrors.CodeForbidden, "transition not permitted for this party").
				WithDetails(map[string]any{"from": from, "to": input.Status})
		}

		now := s.now().UTC()
		updates := map[string]any{"status": input.Status}
		switch input.Status {
		case enums.ServiceOrderStatusDelivered:
			updates["delivered_at"] = now
			booking.DeliveredAt = &now
		case enums.ServiceOrderStatusCompleted:
			updates["completed_at"] = now
			booking.CompletedAt = &now
		case enums.ServiceOrderStatusCancelled:
			updates["cancelled_at"] = now
			booking.CancelledAt = &now
		}
		ok, err := repo.TransitionServiceOrder(ctx, booking.ID, from, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update booking status")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "booking status changed concurrently")
		}
		booking.Status = input.Status
		updated = booking

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventServiceOrderStatusChanged,
			AggregateType: enums.AggregateServiceOrder,
			AggregateID:   booking.ID,
			Actor:         &outbox.ActorRef{UserID: input.Actor.UserID, Role: string(input.Actor.Role)},
			Data: payloads.ServiceOrderStatusChangedEvent{
				ServiceOrderID: booking.ID,
				From:           from,
				To:             input.Status,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *bookingService) Review(ctx context.Context, input ReviewInput) (*models.ServiceOrder, error) {
	if input.BookingID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "booking id required")
	}
	if input.Rating < 1 || input.Rating > 5 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rating must be between 1 and 5")
	}
	comment := strings.TrimSpace(input.Comment)
	if len(comment) > maxReviewLen {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "review comment too long")
	}

	booking, err := s.repo.FindServiceOrder(ctx, input.BookingID)
	if err != nil {
		return nil, loadError(err, "booking")
	}
	if booking.BuyerID != input.BuyerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the buyer may review this booking")
	}
	if booking.Status != enums.ServiceOrderStatusCompleted {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidTransition, "booking is not completed")
	}
	if booking.Review.Rating != nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "booking already reviewed")
	}

	rating := input.Rating
	now := s.now().UTC()
	review := models.BuyerReview{Rating: &rating, ReviewedAt: &now}
	if comment != "" {
		review.Comment = &comment
	}
	ok, err := s.repo.SetServiceOrderReview(ctx, booking.ID, review)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store review")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "booking already reviewed")
	}
	booking.Review = review
	return booking, nil
}

func (s *bookingService) ListBuyerBookings(ctx context.Context, buyerID uuid.UUID, params ListParams) (*ServiceOrderList, error) {
	query, err := listQuery(buyerID, params)
	if err != nil {
		return nil, err
	}
	rows, next, err := s.repo.ListBuyerServiceOrders(ctx, buyerID, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list buyer bookings")
	}
	return &ServiceOrderList{Items: nonNil(rows), Cursor: next}, nil
}

func (s *bookingService) ListProviderBookings(ctx context.Context, providerID uuid.UUID, params ListParams) (*ServiceOrderList, error) {
	query, err := listQuery(providerID, params)
	if err != nil {
		return nil, err
	}
	rows, next, err := s.repo.ListProviderServiceOrders(ctx, providerID, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list provider bookings")
	}
	return &ServiceOrderList{Items: nonNil(rows), Cursor: next}, nil
}

func partyOf(booking *models.ServiceOrder, userID uuid.UUID) Party {
	switch userID {
	case booking.ProviderID:
		return PartyProvider
	case booking.BuyerID:
		return PartyBuyer
	default:
		return PartyNone
	}
}
