// Package settlement turns a pending order into a paid one. One-time orders
// spend the single-use token against the tenant's card gateway; orders with
// subscription items go through the platform (card vault + subscription).
// Once money has moved, bookkeeping failures never fail the buyer: they are
// queued for reconciliation and the charge is reported as a success.
package settlement

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lumastore/storefront-backend/internal/tokenbridge"
	"github.com/lumastore/storefront-backend/pkg/config"
	"github.com/lumastore/storefront-backend/pkg/db/models"
	"github.com/lumastore/storefront-backend/pkg/enums"
	pkgerrors "github.com/lumastore/storefront-backend/pkg/errors"
	"github.com/lumastore/storefront-backend/pkg/gateway"
	"github.com/lumastore/storefront-backend/pkg/logger"
	"github.com/lumastore/storefront-backend/pkg/metrics"
	"github.com/lumastore/storefront-backend/pkg/platform"
)

const (
	pathOneTime      = "one_time"
	pathSubscription = "subscription"

	outcomeSuccess  = "success"
	outcomeDeclined = "declined"
	outcomeError    = "error"
	outcomePending  = "pending_payment"
)

// Payment method markers stored on the settled order.
const (
	methodGateway  = "gateway"
	methodPlatform = "platform"
)

type orderStore interface {
	Get(ctx context.Context, orderID uuid.UUID) (*models.Order, []models.OrderItem, error)
	SetFinancialStatus(ctx context.Context, orderID uuid.UUID, status enums.FinancialStatus, paymentMethod string, chargePayload json.RawMessage) error
	MarkAwaitingPayment(ctx context.Context, orderID uuid.UUID) error
}

type reconcileEnqueuer interface {
	Enqueue(ctx context.Context, orderID uuid.UUID, target enums.FinancialStatus, paymentMethod string, chargePayload json.RawMessage) error
}

// TokenSource produces a single-use card token when the settlement request
// does not carry one, e.g. an embedded checkout driving the hosted-fields
// bridge server-side. *tokenbridge.Bridge satisfies it.
type TokenSource interface {
	RequestToken(ctx context.Context) (string, error)
}

var _ TokenSource = (*tokenbridge.Bridge)(nil)

type notifier interface {
	OrderPaid(ctx context.Context, order *models.Order) error
	AwaitingPayment(ctx context.Context, order *models.Order) error
}

type platformClient interface {
	LocationID() string
	CreateCustomer(ctx context.Context, params platform.CustomerCreateParams) (*platform.CustomerResult, error)
	CreateCard(ctx context.Context, params platform.CardCreateParams) (*platform.CardResult, error)
	CreateSubscription(ctx context.Context, params platform.SubscriptionCreateParams) (*platform.SubscriptionResult, error)
}

// Service is the settlement surface.
type Service interface {
	Config(ctx context.Context, tenantID string) (*GatewayConfig, error)
	Configured(ctx context.Context, tenantID string) (bool, error)
	ChargeOneTime(ctx context.Context, input ChargeInput) (*ChargeOutcome, error)
	CompleteSubscription(ctx context.Context, input SubscriptionInput) (*SubscriptionOutcome, error)
}

// ServiceParams collects the settlement dependencies. Platform, Notify and
// Tokens are optional: a deployment without a Square account simply cannot
// settle subscription orders, and without a token source every request must
// carry its own token.
type ServiceParams struct {
	Accounts  Repository
	Orders    orderStore
	Gateway   gateway.Charger
	Platform  platformClient
	Reconcile reconcileEnqueuer
	Notify    notifier
	Tokens    TokenSource
	Metrics   *metrics.PaymentMetrics
	Plan      config.PlatformConfig
	Logger    *logger.Logger
}

type service struct {
	accounts  Repository
	orders    orderStore
	gateway   gateway.Charger
	platform  platformClient
	reconcile reconcileEnqueuer
	notify    notifier
	tokens    TokenSource
	metrics   *metrics.PaymentMetrics
	plan      config.PlatformConfig
	logg      *logger.Logger
}

// NewService validates dependencies and builds the settlement service.
func NewService(params ServiceParams) (Service, error) {
	if params.Accounts == nil {
		return nil, fmt.Errorf("gateway accounts repository is required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("order store is required")
	}
	if params.Gateway == nil {
		return nil, fmt.Errorf("gateway charger is required")
	}
	if params.Reconcile == nil {
		return nil, fmt.Errorf("reconcile enqueuer is required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &service{
		accounts:  params.Accounts,
		orders:    params.Orders,
		gateway:   params.Gateway,
		platform:  params.Platform,
		reconcile: params.Reconcile,
		notify:    params.Notify,
		tokens:    params.Tokens,
		metrics:   params.Metrics,
		plan:      params.Plan,
		logg:      params.Logger,
	}, nil
}

// Config returns the browser-safe gateway configuration for a tenant. A
// tenant without an active account gets {configured: false}, not an error.
func (s *service) Config(ctx context.Context, tenantID string) (*GatewayConfig, error) {
	account, err := s.accounts.FindActiveByTenant(ctx, tenantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &GatewayConfig{Configured: false}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading gateway account")
	}
	return &GatewayConfig{
		Configured: true,
		Terminal:   account.Terminal,
		PublicKey:  account.PublicKey,
		Sandbox:    account.Sandbox,
	}, nil
}

// Configured reports whether the tenant can take immediate card payments.
func (s *service) Configured(ctx context.Context, tenantID string) (bool, error) {
	cfg, err := s.Config(ctx, tenantID)
	if err != nil {
		return false, err
	}
	return cfg.Configured, nil
}

// ChargeOneTime spends the token against the tenant's terminal. An already
// paid order is a no-op success; a missing gateway account marks the order
// awaiting payment and reports a pending-payment success.
func (s *service) ChargeOneTime(ctx context.Context, input ChargeInput) (*ChargeOutcome, error) {
	started := time.Now()
	defer func() { s.metrics.ObserveDuration(pathOneTime, time.Since(started)) }()

	order, items, err := s.orders.Get(ctx, input.OrderID)
	if err != nil {
		return nil, err
	}
	ctx = s.logg.WithOrderID(ctx, order.ID.String())

	if order.HasSubscriptions {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			"subscription orders settle through the platform")
	}
	if order.FinancialStatus == enums.FinancialStatusPaid {
		s.logg.Info(ctx, "order already paid, charge skipped")
		return &ChargeOutcome{
			OrderID:     order.ID,
			OrderNumber: order.Number,
			Amount:      order.Total,
			Currency:    order.Currency,
			AlreadyPaid: true,
		}, nil
	}

	account, err := s.accounts.FindActiveByTenant(ctx, input.TenantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return s.deferToPaymentLink(ctx, order)
		}
		s.metrics.IncAttempt(pathOneTime, outcomeError)
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading gateway account")
	}

	token, err := s.resolveToken(ctx, input.Token)
	if err != nil {
		s.metrics.IncAttempt(pathOneTime, chargeOutcomeLabel(err))
		return nil, err
	}

	result, err := s.gateway.Charge(ctx, gateway.ChargeRequest{
		Terminal:    account.Terminal,
		Sandbox:     account.Sandbox,
		Token:       token,
		OrderNumber: order.Number,
		Amount:      order.Total,
		Currency:    order.Currency,
		Buyer:       buyerFor(input.Buyer),
		Items:       chargeItems(items),
	})
	if err != nil {
		s.metrics.IncAttempt(pathOneTime, chargeOutcomeLabel(err))
		return nil, err
	}
	s.metrics.IncAttempt(pathOneTime, outcomeSuccess)

	payload, err := json.Marshal(map[string]any{
		"provider":       "gateway",
		"payment_id":     result.PaymentID,
		"auth_number":    result.AuthNumber,
		"receipt_doc_id": result.ReceiptDocID,
		"receipt_number": result.ReceiptNumber,
		"receipt_url":    result.ReceiptURL,
	})
	if err != nil {
		payload = nil
	}

	s.recordPaid(ctx, order, methodGateway, payload)

	return &ChargeOutcome{
		OrderID:     order.ID,
		OrderNumber: order.Number,
		Amount:      order.Total,
		Currency:    order.Currency,
		PaymentID:   result.PaymentID,
		ReceiptURL:  result.ReceiptURL,
	}, nil
}

// CompleteSubscription vaults the card from the token and starts the
// platform subscription for a recurring order.
func (s *service) CompleteSubscription(ctx context.Context, input SubscriptionInput) (*SubscriptionOutcome, error) {
	started := time.Now()
	defer func() { s.metrics.ObserveDuration(pathSubscription, time.Since(started)) }()

	if s.platform == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "subscription platform is not configured")
	}
	token, err := s.resolveToken(ctx, input.Token)
	if err != nil {
		return nil, err
	}

	order, _, err := s.orders.Get(ctx, input.OrderID)
	if err != nil {
		return nil, err
	}
	ctx = s.logg.WithOrderID(ctx, order.ID.String())

	if !order.HasSubscriptions {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			"one-time orders settle through the card gateway")
	}
	if order.FinancialStatus == enums.FinancialStatusPaid {
		s.logg.Info(ctx, "order already paid, subscription skipped")
		return &SubscriptionOutcome{
			OrderID:     order.ID,
			OrderNumber: order.Number,
			AlreadyPaid: true,
		}, nil
	}

	customer, err := s.platform.CreateCustomer(ctx, platform.CustomerCreateParams{
		Email:       input.Buyer.Email,
		PhoneNumber: input.Buyer.Phone,
		GivenName:   input.Buyer.FirstName,
		FamilyName:  input.Buyer.LastName,
		CompanyName: input.Buyer.Company,
		ReferenceID: order.ID.String(),
	})
	if err != nil {
		s.metrics.IncAttempt(pathSubscription, chargeOutcomeLabel(err))
		return nil, err
	}

	card, err := s.platform.CreateCard(ctx, platform.CardCreateParams{
		CustomerID:     customer.ID,
		SourceID:       token,
		CardholderName: strings.TrimSpace(input.Buyer.FirstName + " " + input.Buyer.LastName),
		ReferenceID:    order.ID.String(),
	})
	if err != nil {
		s.metrics.IncAttempt(pathSubscription, chargeOutcomeLabel(err))
		return nil, err
	}

	subscription, err := s.platform.CreateSubscription(ctx, platform.SubscriptionCreateParams{
		LocationID:      s.platform.LocationID(),
		PlanVariationID: s.plan.SquarePlanVariation,
		CustomerID:      customer.ID,
		CardID:          card.ID,
	})
	if err != nil {
		s.metrics.IncAttempt(pathSubscription, chargeOutcomeLabel(err))
		return nil, err
	}
	s.metrics.IncAttempt(pathSubscription, outcomeSuccess)

	payload, err := json.Marshal(map[string]any{
		"provider":        "platform",
		"customer_id":     customer.ID,
		"card_id":         card.ID,
		"subscription_id": subscription.ID,
	})
	if err != nil {
		payload = nil
	}

	s.recordPaid(ctx, order, methodPlatform, payload)

	return &SubscriptionOutcome{
		OrderID:        order.ID,
		OrderNumber:    order.Number,
		CustomerID:     customer.ID,
		SubscriptionID: subscription.ID,
	}, nil
}

// resolveToken returns the request's token, falling back to the configured
// token source when the request carries none.
func (s *service) resolveToken(ctx context.Context, provided string) (string, error) {
	token := strings.TrimSpace(provided)
	if token != "" {
		return token, nil
	}
	if s.tokens == nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "payment token is required")
	}
	return s.tokens.RequestToken(ctx)
}

// recordPaid moves the order to paid. The charge already settled, so a
// failed update is queued for reconciliation instead of surfacing.
func (s *service) recordPaid(ctx context.Context, order *models.Order, method string, payload json.RawMessage) {
	if err := s.orders.SetFinancialStatus(ctx, order.ID, enums.FinancialStatusPaid, method, payload); err != nil {
		s.logg.Error(ctx, "post-charge order update failed, queuing reconciliation", err)
		if qErr := s.reconcile.Enqueue(ctx, order.ID, enums.FinancialStatusPaid, method, payload); qErr != nil {
			s.logg.Error(ctx, "queuing reconciliation task failed", qErr)
		}
	}
	if s.notify != nil {
		if err := s.notify.OrderPaid(ctx, order); err != nil {
			s.logg.Error(ctx, "order paid notification failed", err)
		}
	}
}

// deferToPaymentLink keeps the order alive for a manual payment link when no
// gateway is configured.
func (s *service) deferToPaymentLink(ctx context.Context, order *models.Order) (*ChargeOutcome, error) {
	s.metrics.IncAttempt(pathOneTime, outcomePending)
	if err := s.orders.MarkAwaitingPayment(ctx, order.ID); err != nil {
		s.logg.Error(ctx, "marking order awaiting payment failed", err)
	}
	if s.notify != nil {
		if err := s.notify.AwaitingPayment(ctx, order); err != nil {
			s.logg.Error(ctx, "awaiting payment notification failed", err)
		}
	}
	s.logg.Info(ctx, "gateway not configured, order awaiting payment link")
	return &ChargeOutcome{
		OrderID:        order.ID,
		OrderNumber:    order.Number,
		Amount:         order.Total,
		Currency:       order.Currency,
		PendingPayment: true,
	}, nil
}

func chargeOutcomeLabel(err error) string {
	if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodePaymentDeclined {
		return outcomeDeclined
	}
	return outcomeError
}

func buyerFor(input BuyerInput) gateway.Buyer {
	return gateway.Buyer{
		Name:  strings.TrimSpace(input.FirstName + " " + input.LastName),
		Email: input.Email,
		Phone: input.Phone,
	}
}

func chargeItems(items []models.OrderItem) []gateway.ChargeItem {
	out := make([]gateway.ChargeItem, 0, len(items))
	for _, item := range items {
		out = append(out, gateway.ChargeItem{
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}
	return out
}
