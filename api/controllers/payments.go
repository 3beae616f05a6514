package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/lumastore/storefront-backend/api/middleware"
	"github.com/lumastore/storefront-backend/api/responses"
	"github.com/lumastore/storefront-backend/api/validators"
	"github.com/lumastore/storefront-backend/internal/settlement"
	"github.com/lumastore/storefront-backend/pkg/logger"
)

// PaymentsConfig exposes the browser-safe gateway configuration.
func PaymentsConfig(svc settlement.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID := middleware.TenantIDFromContext(r.Context())
		cfg, err := svc.Config(r.Context(), tenantID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cfg)
	}
}

type buyerRequest struct {
	Email     string `json:"email" validate:"omitempty,email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
	Company   string `json:"company"`
}

func (b buyerRequest) toInput() settlement.BuyerInput {
	return settlement.BuyerInput{
		Email:     b.Email,
		FirstName: b.FirstName,
		LastName:  b.LastName,
		Phone:     b.Phone,
		Company:   b.Company,
	}
}

type chargeRequest struct {
	OrderID uuid.UUID    `json:"order_id" validate:"required"`
	Token   string       `json:"token" validate:"required"`
	Buyer   buyerRequest `json:"buyer"`
}

// Charge settles a one-time order with a single-use token.
func Charge(svc settlement.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req chargeRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		outcome, err := svc.ChargeOneTime(r.Context(), settlement.ChargeInput{
			TenantID: middleware.TenantIDFromContext(r.Context()),
			OrderID:  req.OrderID,
			Token:    req.Token,
			Buyer:    req.Buyer.toInput(),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, outcome)
	}
}

type subscriptionRequest struct {
	OrderID uuid.UUID    `json:"order_id" validate:"required"`
	Token   string       `json:"token" validate:"required"`
	Buyer   buyerRequest `json:"buyer"`
}

// Subscription completes a recurring order through the platform.
func Subscription(svc settlement.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req subscriptionRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		outcome, err := svc.CompleteSubscription(r.Context(), settlement.SubscriptionInput{
			TenantID: middleware.TenantIDFromContext(r.Context()),
			OrderID:  req.OrderID,
			Token:    req.Token,
			Buyer:    req.Buyer.toInput(),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, outcome)
	}
}
