package controllers

import (
	"net/http"

	"github.com/hirelanka/marketplace-backend/api/responses"
	"github.com/hirelanka/marketplace-backend/api/validators"
	"github.com/hirelanka/marketplace-backend/internal/orders"
	"github.com/hirelanka/marketplace-backend/pkg/db/models"
	"github.com/hirelanka/marketplace-backend/pkg/enums"
	pkgerrors "github.com/hirelanka/marketplace-backend/pkg/errors"
	"github.com/hirelanka/marketplace-backend/pkg/logger"
)

type shippingAddressRequest struct {
	Name       string `json:"name" validate:"required,max=120"`
	Phone      string `json:"phone" validate:"required,max=32"`
	Street     string `json:"street" validate:"required,max=255"`
	City       string `json:"city" validate:"required,max=100"`
	Province   string `json:"province" validate:"omitempty,max=100"`
	PostalCode string `json:"postalCode" validate:"omitempty,max=20"`
}

type createOrderRequest struct {
	Items           []orders.LineItemInput `json:"items" validate:"required,min=1,max=50,dive"`
	PaymentMethod   enums.PaymentMethod    `json:"paymentMethod" validate:"required,enum"`
	ShippingAddress shippingAddressRequest `json:"shippingAddress" validate:"required"`
}

type orderStatusRequest struct {
	Status enums.ProductOrderStatus `json:"status" validate:"required,enum"`
}

// CreateOrder places a product order for the caller.
func CreateOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		buyerID, err := requireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body createOrderRequest
		if err := validators.DecodeJSONBody(w, r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.CreateOrder(r.Context(), orders.CreateOrderInput{
			BuyerID:       buyerID,
			Items:         body.Items,
			PaymentMethod: body.PaymentMethod,
			ShippingAddress: models.ShippingAddress{
				Name:       body.ShippingAddress.Name,
				Phone:      body.ShippingAddress.Phone,
				Street:     body.ShippingAddress.Street,
				City:       body.ShippingAddress.City,
				Province:   body.ShippingAddress.Province,
				PostalCode: body.ShippingAddress.PostalCode,
			},
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

// GetOrder returns an order visible to its buyer, a seller on it, or an admin.
func GetOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := uuidParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.GetOrder(r.Context(), actor, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// UpdateOrderStatus moves an order along its lifecycle on behalf of a seller or admin.
func UpdateOrderStatus(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := uuidParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body orderStatusRequest
		if err := validators.DecodeJSONBody(w, r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.UpdateStatus(r.Context(), orders.UpdateOrderStatusInput{
			OrderID: orderID,
			Status:  body.Status,
			Actor:   actor,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// ListMyOrders pages through the caller's purchases.
func ListMyOrders(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return listPage(logg, svc.ListBuyerOrders)
}

// ListSellingOrders pages through orders containing the caller's products.
func ListSellingOrders(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return listPage(logg, svc.ListSellerOrders)
}
