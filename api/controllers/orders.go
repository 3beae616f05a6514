package controllers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lumastore/storefront-backend/api/middleware"
	"github.com/lumastore/storefront-backend/api/responses"
	"github.com/lumastore/storefront-backend/api/validators"
	"github.com/lumastore/storefront-backend/internal/orders"
	"github.com/lumastore/storefront-backend/pkg/enums"
	pkgerrors "github.com/lumastore/storefront-backend/pkg/errors"
	"github.com/lumastore/storefront-backend/pkg/logger"
)

type orderItemRequest struct {
	ProductID        uuid.UUID `json:"product_id" validate:"required"`
	Quantity         int       `json:"quantity" validate:"required,min=1"`
	DisplayUnitPrice *string   `json:"display_unit_price"`
}

type createOrderRequest struct {
	Email        string             `json:"email" validate:"required,email"`
	FirstName    string             `json:"first_name" validate:"required"`
	LastName     string             `json:"last_name"`
	Phone        string             `json:"phone"`
	Company      string             `json:"company"`
	Country      string             `json:"country"`
	Language     string             `json:"language"`
	Currency     string             `json:"currency" validate:"required"`
	Origin       string             `json:"origin"`
	Items        []orderItemRequest `json:"items" validate:"required,min=1,dive"`
	DisplayTotal *string            `json:"display_total"`
}

// Order numbers travel as numeric strings so clients never lose digits to
// float parsing.
type createOrderResponse struct {
	OrderID          string `json:"order_id"`
	OrderNumber      string `json:"order_number"`
	Subtotal         string `json:"subtotal"`
	Total            string `json:"total"`
	Currency         string `json:"currency"`
	Status           string `json:"status"`
	HasSubscriptions bool   `json:"has_subscriptions"`
}

// CreateOrder is the headless order-creation path: the client supplies the
// contact fields and lines directly instead of going through the wizard.
func CreateOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createOrderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := orders.CreateOrderInput{
			TenantID:  middleware.TenantIDFromContext(r.Context()),
			Email:     req.Email,
			FirstName: req.FirstName,
			LastName:  req.LastName,
			Phone:     req.Phone,
			Company:   req.Company,
			Country:   req.Country,
			Language:  req.Language,
			Currency:  req.Currency,
			Origin:    req.Origin,
		}
		for _, item := range req.Items {
			in := orders.OrderItemInput{ProductID: item.ProductID, Quantity: item.Quantity}
			if item.DisplayUnitPrice != nil {
				price, err := decimal.NewFromString(*item.DisplayUnitPrice)
				if err != nil {
					responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid display unit price"))
					return
				}
				in.DisplayUnitPrice = &price
			}
			input.Items = append(input.Items, in)
		}
		if req.DisplayTotal != nil {
			total, err := decimal.NewFromString(*req.DisplayTotal)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid display total"))
				return
			}
			input.DisplayTotal = &total
		}

		result, err := svc.CreateOrder(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, createOrderResponse{
			OrderID:          result.OrderID.String(),
			OrderNumber:      strconv.FormatInt(result.Number, 10),
			Subtotal:         result.Subtotal.String(),
			Total:            result.Total.String(),
			Currency:         result.Currency.String(),
			Status:           result.FinancialStatus.String(),
			HasSubscriptions: result.HasSubscriptions,
		})
	}
}

type orderItemResponse struct {
	ProductID    string `json:"product_id"`
	Name         string `json:"name"`
	Quantity     int    `json:"quantity"`
	BillingCycle string `json:"billing_cycle"`
	UnitPrice    string `json:"unit_price"`
	TotalPrice   string `json:"total_price"`
}

type orderResponse struct {
	OrderID           string              `json:"order_id"`
	OrderNumber       string              `json:"order_number"`
	Currency          string              `json:"currency"`
	Subtotal          string              `json:"subtotal"`
	Total             string              `json:"total"`
	FinancialStatus   string              `json:"financial_status"`
	FulfillmentStatus string              `json:"fulfillment_status"`
	PaymentMethod     string              `json:"payment_method,omitempty"`
	HasSubscriptions  bool                `json:"has_subscriptions"`
	Items             []orderItemResponse `json:"items"`
}

// GetOrder returns an order with its lines.
func GetOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := uuid.Parse(chi.URLParam(r, "orderID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid order id"))
			return
		}

		order, items, err := svc.Get(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp := orderResponse{
			OrderID:           order.ID.String(),
			OrderNumber:       strconv.FormatInt(order.Number, 10),
			Currency:          order.Currency,
			Subtotal:          order.Subtotal.String(),
			Total:             order.Total.String(),
			FinancialStatus:   order.FinancialStatus.String(),
			FulfillmentStatus: order.FulfillmentStatus.String(),
			PaymentMethod:     order.PaymentMethod,
			HasSubscriptions:  order.HasSubscriptions,
		}
		for _, item := range items {
			resp.Items = append(resp.Items, orderItemResponse{
				ProductID:    item.ProductID.String(),
				Name:         item.Name,
				Quantity:     item.Quantity,
				BillingCycle: item.BillingCycle.String(),
				UnitPrice:    item.UnitPrice.String(),
				TotalPrice:   item.TotalPrice.String(),
			})
		}
		responses.WriteSuccess(w, resp)
	}
}

type updateOrderStatusRequest struct {
	Status        string          `json:"status" validate:"required"`
	PaymentMethod string          `json:"payment_method"`
	ChargePayload json.RawMessage `json:"charge_payload"`
}

// UpdateOrderStatus moves the order's financial status.
func UpdateOrderStatus(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := uuid.Parse(chi.URLParam(r, "orderID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid order id"))
			return
		}

		var req updateOrderStatusRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status, err := enums.ParseFinancialStatus(req.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, err.Error()))
			return
		}

		if err := svc.SetFinancialStatus(r.Context(), orderID, status, req.PaymentMethod, req.ChargePayload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{
			"order_id": orderID.String(),
			"status":   status.String(),
		})
	}
}
