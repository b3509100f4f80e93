package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hirelanka/marketplace-backend/pkg/db/models"
	"github.com/hirelanka/marketplace-backend/pkg/enums"
	pkgerrors "github.com/hirelanka/marketplace-backend/pkg/errors"
)

func TestCreateBooking_FreezesCommission(t *testing.T) {
	f := newFixture(t)
	listing := f.seedService(t, 10000, nil)
	buyer := uuid.New()

	booking, err := f.bookings.CreateBooking(context.Background(), CreateBookingInput{BuyerID: buyer, ServiceID: listing.ID, Requirements: "  two concepts  "})
	require.NoError(t, err)

	assert.Regexp(t, `^HS-\d{8}-\d{6}$`, booking.OrderNumber)
	assert.Equal(t, listing.ProviderID, booking.ProviderID)
	assert.Equal(t, "two concepts", booking.Requirements)
	assert.Equal(t, enums.ServiceOrderStatusPending, booking.Status)
	assert.Equal(t, enums.ServicePaymentStatusPending, booking.PaymentStatus)
	assert.True(t, booking.CommissionRate.Equal(decimal.NewFromInt(15)))
	assert.True(t, booking.CommissionAmount.Equal(decimal.NewFromInt(1500)))
	assert.EqualValues(t, 1, f.outboxCount(t, enums.EventServiceBooked))

	provided := f.notifier.byType(enums.NotificationTypeServiceBooked)
	require.Len(t, provided, 1)
	assert.Equal(t, listing.ProviderID, provided[0].UserID)

	require.NoError(t, f.db.Model(&models.Service{}).Where("id = ?", listing.ID).
		Updates(map[string]any{"commission_rate": "25", "price": "20000"}).Error)
	stored, err := f.bookings.GetBooking(context.Background(), Actor{UserID: buyer}, booking.ID)
	require.NoError(t, err)
	assert.True(t, stored.Price.Equal(decimal.NewFromInt(10000)))
	assert.True(t, stored.CommissionAmount.Equal(decimal.NewFromInt(1500)))
}

func TestCreateBooking_UsesServiceRate(t *testing.T) {
	f := newFixture(t)
	rate := decimal.NewFromInt(20)
	listing := f.seedService(t, 10000, &rate)

	booking, err := f.bookings.CreateBooking(context.Background(), CreateBookingInput{BuyerID: uuid.New(), ServiceID: listing.ID})
	require.NoError(t, err)
	assert.True(t, booking.CommissionAmount.Equal(decimal.NewFromInt(2000)))
}

func TestCreateBooking_RetriesOnOrderNumberCollision(t *testing.T) {
	f := newFixture(t)
	listing := f.seedService(t, 10000, nil)
	ctx := context.Background()

	first, err := f.bookings.CreateBooking(ctx, CreateBookingInput{BuyerID: uuid.New(), ServiceID: listing.ID})
	require.NoError(t, err)
	assert.Equal(t, "HS-20260101-000001", first.OrderNumber)

	f.numbers.rewind()
	second, err := f.bookings.CreateBooking(ctx, CreateBookingInput{BuyerID: uuid.New(), ServiceID: listing.ID})
	require.NoError(t, err)
	assert.Equal(t, "HS-20260101-000002", second.OrderNumber)
	assert.EqualValues(t, 2, f.outboxCount(t, enums.EventServiceBooked))
}

func TestCreateBooking_ExhaustedOrderNumbersIsConflict(t *testing.T) {
	f := newFixture(t)
	listing := f.seedService(t, 10000, nil)
	ctx := context.Background()

	for i := 0; i < maxOrderNumberAttempts; i++ {
		_, err := f.bookings.CreateBooking(ctx, CreateBookingInput{BuyerID: uuid.New(), ServiceID: listing.ID})
		require.NoError(t, err)
	}

	f.numbers.rewind()
	_, err := f.bookings.CreateBooking(ctx, CreateBookingInput{BuyerID: uuid.New(), ServiceID: listing.ID})
	assertCode(t, err, pkgerrors.CodeConflict)

	var count int64
	require.NoError(t, f.db.Model(&models.ServiceOrder{}).Count(&count).Error)
	assert.EqualValues(t, maxOrderNumberAttempts, count)
}

func TestCreateBooking_Rejections(t *testing.T) {
	f := newFixture(t)
	listing := f.seedService(t, 5000, nil)
	hidden := f.seedService(t, 5000, nil)
	require.NoError(t, f.db.Model(&models.Service{}).Where("id = ?", hidden.ID).Update("status", enums.ListingStatusRejected).Error)

	_, err := f.bookings.CreateBooking(context.Background(), CreateBookingInput{BuyerID: uuid.New(), ServiceID: uuid.New()})
	assertCode(t, err, pkgerrors.CodeNotFound)

	_, err = f.bookings.CreateBooking(context.Background(), CreateBookingInput{BuyerID: uuid.New(), ServiceID: hidden.ID})
	assertCode(t, err, pkgerrors.CodeNotFound)

	_, err = f.bookings.CreateBooking(context.Background(), CreateBookingInput{BuyerID: listing.ProviderID, ServiceID: listing.ID})
	assertCode(t, err, pkgerrors.CodeValidation)

	_, err = f.bookings.CreateBooking(context.Background(), CreateBookingInput{ServiceID: listing.ID})
	assertCode(t, err, pkgerrors.CodeUnauthorized)
}

func TestBookingLifecycle_PartiesAndStamps(t *testing.T) {
	f := newFixture(t)
	listing := f.seedService(t, 8000, nil)
	buyerID := uuid.New()
	ctx := context.Background()

	booking, err := f.bookings.CreateBooking(ctx, CreateBookingInput{BuyerID: buyerID, ServiceID: listing.ID})
	require.NoError(t, err)

	buyer := Actor{UserID: buyerID, Role: enums.UserRoleUser}
	provider := Actor{UserID: listing.ProviderID, Role: enums.UserRoleUser}
	stranger := Actor{UserID: uuid.New(), Role: enums.UserRoleUser}
	move := func(actor Actor, to enums.ServiceOrderStatus) (*models.ServiceOrder, error) {
		return f.bookings.UpdateStatus(ctx, UpdateBookingStatusInput{BookingID: booking.ID, Status: to, Actor: actor})
	}

	_, err = move(buyer, enums.ServiceOrderStatusAccepted)
	assertCode(t, err, pkgerrors.CodeForbidden)
	_, err = move(stranger, enums.ServiceOrderStatusAccepted)
	assertCode(t, err, pkgerrors.CodeForbidden)
	_, err = move(provider, enums.ServiceOrderStatusDelivered)
	assertCode(t, err, pkgerrors.CodeInvalidTransition)

	_, err = move(provider, enums.ServiceOrderStatusAccepted)
	require.NoError(t, err)
	_, err = move(provider, enums.ServiceOrderStatusInProgress)
	require.NoError(t, err)
	delivered, err := move(provider, enums.ServiceOrderStatusDelivered)
	require.NoError(t, err)
	require.NotNil(t, delivered.DeliveredAt)

	completed, err := move(buyer, enums.ServiceOrderStatusCompleted)
	require.NoError(t, err)
	require.NotNil(t, completed.CompletedAt)

	_, err = move(provider, enums.ServiceOrderStatusCompleted)
	assertCode(t, err, pkgerrors.CodeInvalidTransition)

	stored, err := f.bookings.GetBooking(ctx, provider, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.ServiceOrderStatusCompleted, stored.Status)
	require.NotNil(t, stored.CompletedAt)
	assert.WithinDuration(t, *completed.CompletedAt, *stored.CompletedAt, time.Second)
	assert.EqualValues(t, 4, f.outboxCount(t, enums.EventServiceOrderStatusChanged))

	_, err = f.bookings.GetBooking(ctx, stranger, booking.ID)
	assertCode(t, err, pkgerrors.CodeNotFound)
}

func TestBookingLifecycle_DisputeAndCancel(t *testing.T) {
	f := newFixture(t)
	listing := f.seedService(t, 8000, nil)
	buyerID := uuid.New()
	ctx := context.Background()

	first, err := f.bookings.CreateBooking(ctx, CreateBookingInput{BuyerID: buyerID, ServiceID: listing.ID})
	require.NoError(t, err)
	cancelled, err := f.bookings.UpdateStatus(ctx, UpdateBookingStatusInput{BookingID: first.ID, Status: enums.ServiceOrderStatusCancelled, Actor: Actor{UserID: buyerID}})
	require.NoError(t, err)
	require.NotNil(t, cancelled.CancelledAt)

	second, err := f.bookings.CreateBooking(ctx, CreateBookingInput{BuyerID: buyerID, ServiceID: listing.ID})
	require.NoError(t, err)
	_, err = f.bookings.UpdateStatus(ctx, UpdateBookingStatusInput{BookingID: second.ID, Status: enums.ServiceOrderStatusAccepted, Actor: Actor{UserID: listing.ProviderID}})
	require.NoError(t, err)
	_, err = f.bookings.UpdateStatus(ctx, UpdateBookingStatusInput{BookingID: second.ID, Status: enums.ServiceOrderStatusCancelled, Actor: Actor{UserID: buyerID}})
	assertCode(t, err, pkgerrors.CodeForbidden)

	disputed, err := f.bookings.UpdateStatus(ctx, UpdateBookingStatusInput{BookingID: second.ID, Status: enums.ServiceOrderStatusDisputed, Actor: Actor{UserID: buyerID}})
	require.NoError(t, err)
	assert.Equal(t, enums.ServiceOrderStatusDisputed, disputed.Status)
}

func TestReview_OnlyOnceByBuyerAfterCompletion(t *testing.T) {
	f := newFixture(t)
	listing := f.seedService(t, 3000, nil)
	buyerID := uuid.New()
	ctx := context.Background()

	booking, err := f.bookings.CreateBooking(ctx, CreateBookingInput{BuyerID: buyerID, ServiceID: listing.ID})
	require.NoError(t, err)

	_, err = f.bookings.Review(ctx, ReviewInput{BookingID: booking.ID, BuyerID: buyerID, Rating: 5})
	assertCode(t, err, pkgerrors.CodeInvalidTransition)

	provider := Actor{UserID: listing.ProviderID}
	for _, to := range []enums.ServiceOrderStatus{
		enums.ServiceOrderStatusAccepted,
		enums.ServiceOrderStatusInProgress,
		enums.ServiceOrderStatusDelivered,
		enums.ServiceOrderStatusCompleted,
	} {
		_, err := f.bookings.UpdateStatus(ctx, UpdateBookingStatusInput{BookingID: booking.ID, Status: to, Actor: provider})
		require.NoError(t, err)
	}

	_, err = f.bookings.Review(ctx, ReviewInput{BookingID: booking.ID, BuyerID: buyerID, Rating: 6})
	assertCode(t, err, pkgerrors.CodeValidation)
	_, err = f.bookings.Review(ctx, ReviewInput{BookingID: booking.ID, BuyerID: listing.ProviderID, Rating: 4})
	assertCode(t, err, pkgerrors.CodeForbidden)

	reviewed, err := f.bookings.Review(ctx, ReviewInput{BookingID: booking.ID, BuyerID: buyerID, Rating: 4, Comment: "Quick turnaround"})
	require.NoError(t, err)
	require.NotNil(t, reviewed.Review.Rating)
	assert.Equal(t, 4, *reviewed.Review.Rating)

	_, err = f.bookings.Review(ctx, ReviewInput{BookingID: booking.ID, BuyerID: buyerID, Rating: 2})
	assertCode(t, err, pkgerrors.CodeConflict)
}

func TestListBookings_BuyerAndProvider(t *testing.T) {
	f := newFixture(t)
	listing := f.seedService(t, 3000, nil)
	buyerID := uuid.New()
	for i := 0; i < 3; i++ {
		_, err := f.bookings.CreateBooking(context.Background(), CreateBookingInput{BuyerID: buyerID, ServiceID: listing.ID})
		require.NoError(t, err)
	}

	mine, err := f.bookings.ListBuyerBookings(context.Background(), buyerID, ListParams{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, mine.Items, 2)
	assert.NotEmpty(t, mine.Cursor)

	theirs, err := f.bookings.ListProviderBookings(context.Background(), listing.ProviderID, ListParams{})
	require.NoError(t, err)
	assert.Len(t, theirs.Items, 3)
	assert.Empty(t, theirs.Cursor)

	none, err := f.bookings.ListBuyerBookings(context.Background(), uuid.New(), ListParams{})
	require.NoError(t, err)
	assert.NotNil(t, none.Items)
	assert.Empty(t, none.Items)
}
