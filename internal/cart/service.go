// Package cart keeps the per-session shopping cart. The cart is
// presentation state: it lives in the client-state store, survives page
// reloads, and is discarded wholesale once an order is created.
package cart

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lumastore/storefront-backend/internal/catalog"
	"github.com/lumastore/storefront-backend/pkg/db/models"
	"github.com/lumastore/storefront-backend/pkg/enums"
	pkgerrors "github.com/lumastore/storefront-backend/pkg/errors"
)

const (
	slotItems = "items"
	slotOpen  = "open"
)

// Item is one cart line.
type Item struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
}

// State is the cart as seen by the storefront. Hydrated reports whether the
// items were restored from persistence rather than starting empty.
type State struct {
	Items    []Item `json:"items"`
	Open     bool   `json:"open"`
	Hydrated bool   `json:"hydrated"`
}

type stateStore interface {
	Save(ctx context.Context, sessionID, name string, v any) error
	Load(ctx context.Context, sessionID, name string, dst any) (bool, error)
	Delete(ctx context.Context, sessionID string, names ...string) error
}

type priceResolver interface {
	UnitPrice(ctx context.Context, product *models.Product, currency enums.Currency) (decimal.Decimal, error)
}

// Service defines cart operations.
type Service interface {
	Get(ctx context.Context, sessionID string) (*State, error)
	AddItem(ctx context.Context, sessionID string, productID uuid.UUID) (*State, error)
	RemoveItem(ctx context.Context, sessionID string, productID uuid.UUID) (*State, error)
	Clear(ctx context.Context, sessionID string) error
	SetOpen(ctx context.Context, sessionID string, open bool) error
	IsInCart(ctx context.Context, sessionID string, productID uuid.UUID) (bool, error)
	ItemCount(ctx context.Context, sessionID string) (int, error)
	Total(ctx context.Context, sessionID, tenantID string, currency enums.Currency) (decimal.Decimal, error)
}

// ServiceParams collects the cart dependencies.
type ServiceParams struct {
	Store   stateStore
	Catalog catalog.Repository
	Pricing priceResolver
}

type service struct {
	store   stateStore
	catalog catalog.Repository
	pricing priceResolver
}

// NewService validates dependencies and builds the cart service.
func NewService(params ServiceParams) (Service, error) {
	if params.Store == nil {
		return nil, fmt.Errorf("client state store is required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("catalog repository is required")
	}
	if params.Pricing == nil {
		return nil, fmt.Errorf("price resolver is required")
	}
	return &service{
		store:   params.Store,
		catalog: params.Catalog,
		pricing: params.Pricing,
	}, nil
}

// Get restores the cart for the session. A session with no stored cart gets
// an empty, unhydrated one.
func (s *service) Get(ctx context.Context, sessionID string) (*State, error) {
	var items []Item
	hydrated, err := s.store.Load(ctx, sessionID, slotItems, &items)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading cart")
	}
	var open bool
	if _, err := s.store.Load(ctx, sessionID, slotOpen, &open); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading cart flag")
	}
	if items == nil {
		items = []Item{}
	}
	return &State{Items: items, Open: open, Hydrated: hydrated}, nil
}

// AddItem appends a product to the cart with quantity 1: each distinct
// product occupies at most one line. Adding a product already in the cart is
// a no-op: the stored state is not rewritten and quantities do not bump.
func (s *service) AddItem(ctx context.Context, sessionID string, productID uuid.UUID) (*State, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}

	state, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	for _, item := range state.Items {
		if item.ProductID == productID {
			return state, nil
		}
	}

	state.Items = append(state.Items, Item{ProductID: productID, Quantity: 1})
	if err := s.store.Save(ctx, sessionID, slotItems, state.Items); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "saving cart")
	}
	state.Hydrated = true
	return state, nil
}

// RemoveItem drops a product from the cart; absent products are ignored.
func (s *service) RemoveItem(ctx context.Context, sessionID string, productID uuid.UUID) (*State, error) {
	state, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	kept := state.Items[:0]
	for _, item := range state.Items {
		if item.ProductID != productID {
			kept = append(kept, item)
		}
	}
	if len(kept) == len(state.Items) {
		return state, nil
	}
	state.Items = kept
	if err := s.store.Save(ctx, sessionID, slotItems, state.Items); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "saving cart")
	}
	return state, nil
}

// Clear removes the whole cart for the session.
func (s *service) Clear(ctx context.Context, sessionID string) error {
	if err := s.store.Delete(ctx, sessionID, slotItems, slotOpen); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clearing cart")
	}
	return nil
}

// SetOpen persists the open/closed presentation flag.
func (s *service) SetOpen(ctx context.Context, sessionID string, open bool) error {
	if err := s.store.Save(ctx, sessionID, slotOpen, open); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "saving cart flag")
	}
	return nil
}

// IsInCart reports whether the product is in the session's cart.
func (s *service) IsInCart(ctx context.Context, sessionID string, productID uuid.UUID) (bool, error) {
	state, err := s.Get(ctx, sessionID)
	if err != nil {
		return false, err
	}
	for _, item := range state.Items {
		if item.ProductID == productID {
			return true, nil
		}
	}
	return false, nil
}

// ItemCount returns the number of distinct lines in the cart.
func (s *service) ItemCount(ctx context.Context, sessionID string) (int, error) {
	state, err := s.Get(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	return len(state.Items), nil
}

// Total prices the cart in the requested currency. A product that vanished
// from the catalog since it was added fails the total, matching what order
// creation will do with the same cart.
func (s *service) Total(ctx context.Context, sessionID, tenantID string, currency enums.Currency) (decimal.Decimal, error) {
	state, err := s.Get(ctx, sessionID)
	if err != nil {
		return decimal.Zero, err
	}
	if len(state.Items) == 0 {
		return decimal.Zero, nil
	}

	ids := make([]uuid.UUID, 0, len(state.Items))
	for _, item := range state.Items {
		ids = append(ids, item.ProductID)
	}
	products, err := s.catalog.FindActiveByIDs(ctx, tenantID, ids)
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading cart products")
	}
	byID := make(map[uuid.UUID]*models.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}

	total := decimal.Zero
	for _, item := range state.Items {
		product := byID[item.ProductID]
		if product == nil {
			return decimal.Zero, pkgerrors.New(pkgerrors.CodeNotFound, "products not found").
				WithDetails(map[string]string{"product_id": item.ProductID.String()})
		}
		unit, err := s.pricing.UnitPrice(ctx, product, currency)
		if err != nil {
			return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "pricing cart item")
		}
		total = total.Add(unit.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total, nil
}
