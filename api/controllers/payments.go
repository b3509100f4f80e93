package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/hirelanka/marketplace-backend/api/responses"
	"github.com/hirelanka/marketplace-backend/api/validators"
	"github.com/hirelanka/marketplace-backend/internal/escrow"
	"github.com/hirelanka/marketplace-backend/internal/payments"
	pkgerrors "github.com/hirelanka/marketplace-backend/pkg/errors"
	"github.com/hirelanka/marketplace-backend/pkg/logger"
)

type checkoutRequest struct {
	ProductOrderID *uuid.UUID        `json:"productOrderId"`
	ServiceOrderID *uuid.UUID        `json:"serviceOrderId"`
	Customer       payments.Customer `json:"customer" validate:"required"`
}

// InitiateCheckout creates a pending payment and returns the signed hosted-checkout payload.
func InitiateCheckout(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}
		payerID, err := requireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body checkoutRequest
		if err := validators.DecodeJSONBody(w, r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		checkout, err := svc.Initiate(r.Context(), payments.InitiateInput{
			PayerID:        payerID,
			ProductOrderID: body.ProductOrderID,
			ServiceOrderID: body.ServiceOrderID,
			Customer:       body.Customer,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, checkout)
	}
}

// PaymentHistory lists the caller's payments, newest first.
func PaymentHistory(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payerID, err := requireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, cursor, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		history, err := svc.History(r.Context(), payerID, payments.HistoryParams{Limit: limit, Cursor: cursor})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, history)
	}
}

// ReleaseEscrow pays out a held booking payment once the buyer signs off.
func ReleaseEscrow(svc escrow.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "escrow service unavailable"))
			return
		}
		actorID, err := requireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		paymentID, err := uuidParam(r, "paymentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		payment, err := svc.Release(r.Context(), paymentID, actorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, payment)
	}
}
