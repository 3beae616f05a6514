package controllers

import (
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/lumastore/storefront-backend/api/middleware"
	"github.com/lumastore/storefront-backend/api/responses"
	"github.com/lumastore/storefront-backend/api/validators"
	"github.com/lumastore/storefront-backend/internal/wizard"
	pkgerrors "github.com/lumastore/storefront-backend/pkg/errors"
	"github.com/lumastore/storefront-backend/pkg/logger"
)

type wizardStateResponse struct {
	Step     int           `json:"step"`
	StepName string        `json:"step_name"`
	Fields   wizard.Fields `json:"fields"`
}

func wizardState(state *wizard.State) wizardStateResponse {
	return wizardStateResponse{
		Step:     int(state.Step),
		StepName: state.Step.String(),
		Fields:   state.Fields,
	}
}

// GetCheckout restores the wizard for the session.
func GetCheckout(svc wizard.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := middleware.SessionIDFromContext(r.Context())
		state, err := svc.Get(r.Context(), sessionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, wizardState(state))
	}
}

type advanceCheckoutRequest struct {
	Contact  wizard.ContactFields  `json:"contact"`
	Location wizard.LocationFields `json:"location"`
}

// AdvanceCheckout validates the current step's fields and moves forward.
func AdvanceCheckout(svc wizard.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req advanceCheckoutRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sessionID := middleware.SessionIDFromContext(r.Context())
		state, err := svc.Advance(r.Context(), sessionID, wizard.Fields{
			Contact:  req.Contact,
			Location: req.Location,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, wizardState(state))
	}
}

type jumpCheckoutRequest struct {
	Step int `json:"step"`
}

// JumpCheckout moves directly to an earlier step.
func JumpCheckout(svc wizard.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req jumpCheckoutRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sessionID := middleware.SessionIDFromContext(r.Context())
		state, err := svc.JumpTo(r.Context(), sessionID, wizard.Step(req.Step))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, wizardState(state))
	}
}

type submitCheckoutRequest struct {
	Currency     string  `json:"currency" validate:"required"`
	Language     string  `json:"language"`
	Origin       string  `json:"origin"`
	DisplayTotal *string `json:"display_total"`
}

type submitCheckoutResponse struct {
	OrderID          string `json:"order_id"`
	OrderNumber      string `json:"order_number"`
	Subtotal         string `json:"subtotal"`
	Total            string `json:"total"`
	Status           string `json:"status"`
	HasSubscriptions bool   `json:"has_subscriptions"`
	PendingPayment   bool   `json:"pending_payment"`
}

// SubmitCheckout turns the reviewed wizard state into an order.
func SubmitCheckout(svc wizard.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req submitCheckoutRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := wizard.SubmitInput{
			TenantID: middleware.TenantIDFromContext(r.Context()),
			Currency: req.Currency,
			Language: req.Language,
			Origin:   req.Origin,
		}
		if req.DisplayTotal != nil {
			total, err := decimal.NewFromString(*req.DisplayTotal)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid display total"))
				return
			}
			input.DisplayTotal = &total
		}

		sessionID := middleware.SessionIDFromContext(r.Context())
		result, err := svc.Submit(r.Context(), sessionID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, submitCheckoutResponse{
			OrderID:          result.OrderID,
			OrderNumber:      strconv.FormatInt(result.OrderNumber, 10),
			Subtotal:         result.Subtotal.String(),
			Total:            result.Total.String(),
			Status:           result.Status,
			HasSubscriptions: result.HasSubscriptions,
			PendingPayment:   result.PendingPayment,
		})
	}
}
