package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/hirelanka/marketplace-backend/api/responses"
	"github.com/hirelanka/marketplace-backend/api/validators"
	"github.com/hirelanka/marketplace-backend/internal/orders"
	"github.com/hirelanka/marketplace-backend/pkg/enums"
	pkgerrors "github.com/hirelanka/marketplace-backend/pkg/errors"
	"github.com/hirelanka/marketplace-backend/pkg/logger"
)

type createBookingRequest struct {
	ServiceID    uuid.UUID `json:"serviceId" validate:"required"`
	Requirements string    `json:"requirements" validate:"max=5000"`
}

type bookingStatusRequest struct {
	Status enums.ServiceOrderStatus `json:"status" validate:"required,enum"`
}

type reviewRequest struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"max=2000"`
}

// CreateBooking books a service for the caller.
func CreateBooking(svc orders.BookingService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "bookings service unavailable"))
			return
		}
		buyerID, err := requireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body createBookingRequest
		if err := validators.DecodeJSONBody(w, r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		booking, err := svc.CreateBooking(r.Context(), orders.CreateBookingInput{
			BuyerID:      buyerID,
			ServiceID:    body.ServiceID,
			Requirements: body.Requirements,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, booking)
	}
}

func GetBooking(svc orders.BookingService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		bookingID, err := uuidParam(r, "bookingId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		booking, err := svc.GetBooking(r.Context(), actor, bookingID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, booking)
	}
}

// UpdateBookingStatus applies a lifecycle move for the buyer, provider or an admin.
func UpdateBookingStatus(svc orders.BookingService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		bookingID, err := uuidParam(r, "bookingId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body bookingStatusRequest
		if err := validators.DecodeJSONBody(w, r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		booking, err := svc.UpdateStatus(r.Context(), orders.UpdateBookingStatusInput{
			BookingID: bookingID,
			Status:    body.Status,
			Actor:     actor,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, booking)
	}
}

func ReviewBooking(svc orders.BookingService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		buyerID, err := requireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		bookingID, err := uuidParam(r, "bookingId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body reviewRequest
		if err := validators.DecodeJSONBody(w, r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		booking, err := svc.Review(r.Context(), orders.ReviewInput{
			BookingID: bookingID,
			BuyerID:   buyerID,
			Rating:    body.Rating,
			Comment:   body.Comment,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, booking)
	}
}

func ListMyBookings(svc orders.BookingService, logg *logger.Logger) http.HandlerFunc {
	return listPage(logg, svc.ListBuyerBookings)
}

// ListProvidedBookings pages through bookings of the caller's services.
func ListProvidedBookings(svc orders.BookingService, logg *logger.Logger) http.HandlerFunc {
	return listPage(logg, svc.ListProviderBookings)
}
