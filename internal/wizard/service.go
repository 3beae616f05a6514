package wizard

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/lumastore/storefront-backend/internal/cart"
	"github.com/lumastore/storefront-backend/internal/orders"
	pkgerrors "github.com/lumastore/storefront-backend/pkg/errors"
	"github.com/lumastore/storefront-backend/pkg/logger"
)

const (
	slotFields = "fields"
	slotStep   = "step"
)

type stateStore interface {
	Save(ctx context.Context, sessionID, name string, v any) error
	Load(ctx context.Context, sessionID, name string, dst any) (bool, error)
	Delete(ctx context.Context, sessionID string, names ...string) error
}

type orderCreator interface {
	CreateOrder(ctx context.Context, input orders.CreateOrderInput) (*orders.CreateOrderResult, error)
}

type cartReader interface {
	Get(ctx context.Context, sessionID string) (*cart.State, error)
	Clear(ctx context.Context, sessionID string) error
}

type paymentConfigChecker interface {
	Configured(ctx context.Context, tenantID string) (bool, error)
}

// SubmitInput carries the request-scoped values Submit needs on top of the
// persisted wizard fields.
type SubmitInput struct {
	TenantID     string
	Currency     string
	Language     string
	Origin       string
	DisplayTotal *decimal.Decimal
}

// SubmitResult is handed back to the storefront after order creation.
type SubmitResult struct {
	OrderID          string
	OrderNumber      int64
	Subtotal         decimal.Decimal
	Total            decimal.Decimal
	Status           string
	HasSubscriptions bool
	PendingPayment   bool
}

// Service defines the wizard operations.
type Service interface {
	Get(ctx context.Context, sessionID string) (*State, error)
	Advance(ctx context.Context, sessionID string, fields Fields) (*State, error)
	JumpTo(ctx context.Context, sessionID string, target Step) (*State, error)
	Submit(ctx context.Context, sessionID string, input SubmitInput) (*SubmitResult, error)
}

// ServiceParams collects the wizard dependencies.
type ServiceParams struct {
	Store    stateStore
	Cart     cartReader
	Orders   orderCreator
	Payments paymentConfigChecker
	Logger   *logger.Logger
}

type service struct {
	store    stateStore
	cart     cartReader
	orders   orderCreator
	payments paymentConfigChecker
	logg     *logger.Logger
	validate *validator.Validate
}

// NewService validates dependencies and builds the wizard service.
func NewService(params ServiceParams) (Service, error) {
	if params.Store == nil {
		return nil, fmt.Errorf("client state store is required")
	}
	if params.Cart == nil {
		return nil, fmt.Errorf("cart service is required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("order service is required")
	}
	if params.Payments == nil {
		return nil, fmt.Errorf("payment config checker is required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &service{
		store:    params.Store,
		cart:     params.Cart,
		orders:   params.Orders,
		payments: params.Payments,
		logg:     params.Logger,
		validate: validator.New(),
	}, nil
}

// Get restores the wizard, clamping the step so a session that died on
// Payment resumes at Review.
func (s *service) Get(ctx context.Context, sessionID string) (*State, error) {
	var fields Fields
	if _, err := s.store.Load(ctx, sessionID, slotFields, &fields); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading wizard fields")
	}
	var step Step
	if _, err := s.store.Load(ctx, sessionID, slotStep, &step); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading wizard step")
	}
	return &State{Step: step.Clamp(), Fields: fields}, nil
}

// Advance validates the current step's fields and moves forward one step.
// Review is terminal for Advance: Payment is entered only through a
// successful Submit.
func (s *service) Advance(ctx context.Context, sessionID string, fields Fields) (*State, error) {
	state, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if state.Step >= StepReview {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			"review completes by submitting the order, not by advancing")
	}

	if err := s.validateStep(state.Step, fields); err != nil {
		return nil, err
	}

	state.Fields = fields
	state.Step++

	if err := s.store.Save(ctx, sessionID, slotFields, state.Fields); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "saving wizard fields")
	}
	if err := s.store.Save(ctx, sessionID, slotStep, state.Step); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "saving wizard step")
	}
	return state, nil
}

// JumpTo moves directly to an earlier (or current) step without validation.
func (s *service) JumpTo(ctx context.Context, sessionID string, target Step) (*State, error) {
	state, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !state.Step.CanJumpTo(target) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("cannot jump from %s to %s", state.Step, target))
	}
	if target == state.Step {
		return state, nil
	}
	state.Step = target
	if err := s.store.Save(ctx, sessionID, slotStep, state.Step); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "saving wizard step")
	}
	return state, nil
}

// Submit turns the wizard into an order. It only fires from Review; the cart
// and wizard state are cleared on success, and the buyer is told whether
// payment is still pending (no gateway configured for one-time purchases).
func (s *service) Submit(ctx context.Context, sessionID string, input SubmitInput) (*SubmitResult, error) {
	state, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if state.Step != StepReview {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("submit requires the review step, wizard is on %s", state.Step))
	}

	cartState, err := s.cart.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if len(cartState.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	items := make([]orders.OrderItemInput, 0, len(cartState.Items))
	for _, item := range cartState.Items {
		items = append(items, orders.OrderItemInput{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		})
	}

	result, err := s.orders.CreateOrder(ctx, orders.CreateOrderInput{
		TenantID:     input.TenantID,
		Email:        state.Fields.Contact.Email,
		FirstName:    state.Fields.Contact.FirstName,
		LastName:     state.Fields.Contact.LastName,
		Phone:        state.Fields.Contact.Phone,
		Company:      state.Fields.Location.Company,
		Country:      state.Fields.Location.Country,
		Language:     input.Language,
		Currency:     input.Currency,
		Origin:       input.Origin,
		Items:        items,
		DisplayTotal: input.DisplayTotal,
	})
	if err != nil {
		return nil, err
	}

	pendingPayment := false
	if !result.HasSubscriptions {
		configured, err := s.payments.Configured(ctx, input.TenantID)
		if err != nil {
			s.logg.Error(ctx, "checking gateway configuration", err)
		} else if !configured {
			pendingPayment = true
		}
	}

	// The order exists; cleanup failures must not fail the submission.
	if err := s.cart.Clear(ctx, sessionID); err != nil {
		s.logg.Error(ctx, "clearing cart after submit", err)
	}
	if err := s.store.Delete(ctx, sessionID, slotFields, slotStep); err != nil {
		s.logg.Error(ctx, "clearing wizard after submit", err)
	}

	return &SubmitResult{
		OrderID:          result.OrderID.String(),
		OrderNumber:      result.Number,
		Subtotal:         result.Subtotal,
		Total:            result.Total,
		Status:           result.FinancialStatus.String(),
		HasSubscriptions: result.HasSubscriptions,
		PendingPayment:   pendingPayment,
	}, nil
}

func (s *service) validateStep(step Step, fields Fields) error {
	var err error
	switch step {
	case StepContact:
		err = s.validate.Struct(fields.Contact)
	case StepLocation:
		err = s.validate.Struct(fields.Location)
	case StepReview:
		// Review re-checks everything gathered so far.
		if err = s.validate.Struct(fields.Contact); err == nil {
			err = s.validate.Struct(fields.Location)
		}
	}
	if err == nil {
		return nil
	}

	details := map[string]string{}
	if verrs, ok := err.(validator.ValidationErrors); ok {
		for _, ve := range verrs {
			details[strings.ToLower(ve.Field())] = ve.Tag()
		}
	}
	return pkgerrors.New(pkgerrors.CodeValidation,
		fmt.Sprintf("%s step is incomplete", step)).WithDetails(details)
}
