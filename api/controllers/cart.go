package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/lumastore/storefront-backend/api/middleware"
	"github.com/lumastore/storefront-backend/api/responses"
	"github.com/lumastore/storefront-backend/api/validators"
	"github.com/lumastore/storefront-backend/internal/cart"
	"github.com/lumastore/storefront-backend/pkg/enums"
	pkgerrors "github.com/lumastore/storefront-backend/pkg/errors"
	"github.com/lumastore/storefront-backend/pkg/logger"
)

type cartResponse struct {
	Items     []cart.Item `json:"items"`
	Open      bool        `json:"open"`
	Hydrated  bool        `json:"hydrated"`
	ItemCount int         `json:"item_count"`
	Total     *string     `json:"total,omitempty"`
	Currency  string      `json:"currency,omitempty"`
}

// GetCart returns the session cart. With ?currency=XXX the response also
// carries the resolver-priced total.
func GetCart(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := middleware.SessionIDFromContext(r.Context())
		state, err := svc.Get(r.Context(), sessionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp := cartResponse{
			Items:     state.Items,
			Open:      state.Open,
			Hydrated:  state.Hydrated,
			ItemCount: len(state.Items),
		}

		if raw := strings.TrimSpace(r.URL.Query().Get("currency")); raw != "" {
			currency, err := enums.ParseCurrency(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, err.Error()))
				return
			}
			tenantID := middleware.TenantIDFromContext(r.Context())
			total, err := svc.Total(r.Context(), sessionID, tenantID, currency)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			rendered := total.String()
			resp.Total = &rendered
			resp.Currency = currency.String()
		}

		responses.WriteSuccess(w, resp)
	}
}

type addCartItemRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
}

// AddCartItem puts a product in the cart. Carts hold one line per distinct
// product, so the request carries no quantity.
func AddCartItem(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req addCartItemRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sessionID := middleware.SessionIDFromContext(r.Context())
		state, err := svc.AddItem(r.Context(), sessionID, req.ProductID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cartResponse{
			Items:     state.Items,
			Open:      state.Open,
			Hydrated:  state.Hydrated,
			ItemCount: len(state.Items),
		})
	}
}

func RemoveCartItem(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := uuid.Parse(chi.URLParam(r, "productID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid product id"))
			return
		}

		sessionID := middleware.SessionIDFromContext(r.Context())
		state, err := svc.RemoveItem(r.Context(), sessionID, productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cartResponse{
			Items:     state.Items,
			Open:      state.Open,
			Hydrated:  state.Hydrated,
			ItemCount: len(state.Items),
		})
	}
}

func ClearCart(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := middleware.SessionIDFromContext(r.Context())
		if err := svc.Clear(r.Context(), sessionID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"cleared": true})
	}
}

type setCartOpenRequest struct {
	Open bool `json:"open"`
}

func SetCartOpen(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req setCartOpenRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sessionID := middleware.SessionIDFromContext(r.Context())
		if err := svc.SetOpen(r.Context(), sessionID, req.Open); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"open": req.Open})
	}
}
