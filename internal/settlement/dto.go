package settlement

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// GatewayConfig is the public, browser-safe view of the tenant's gateway
// account. The terminal's public key boots the hosted-fields tokenizer.
type GatewayConfig struct {
	Configured bool   `json:"configured"`
	Terminal   string `json:"terminal,omitempty"`
	PublicKey  string `json:"public_key,omitempty"`
	Sandbox    bool   `json:"sandbox"`
}

// BuyerInput identifies the cardholder for receipts and platform records.
type BuyerInput struct {
	Email     string
	FirstName string
	LastName  string
	Phone     string
	Company   string
}

// ChargeInput settles a one-time order from a single-use token.
type ChargeInput struct {
	TenantID string
	OrderID  uuid.UUID
	Token    string
	Buyer    BuyerInput
}

// ChargeOutcome reports the buyer-visible result of a one-time settlement.
type ChargeOutcome struct {
	OrderID        uuid.UUID       `json:"order_id"`
	OrderNumber    int64           `json:"order_number"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
	PaymentID      string          `json:"payment_id,omitempty"`
	ReceiptURL     string          `json:"receipt_url,omitempty"`
	AlreadyPaid    bool            `json:"already_paid,omitempty"`
	PendingPayment bool            `json:"pending_payment,omitempty"`
}

// SubscriptionInput completes a recurring order through the platform.
type SubscriptionInput struct {
	TenantID string
	OrderID  uuid.UUID
	Token    string
	Buyer    BuyerInput
}

// SubscriptionOutcome reports the created platform subscription.
type SubscriptionOutcome struct {
	OrderID        uuid.UUID `json:"order_id"`
	OrderNumber    int64     `json:"order_number"`
	CustomerID     string    `json:"customer_id"`
	SubscriptionID string    `json:"subscription_id"`
	AlreadyPaid    bool      `json:"already_paid,omitempty"`
}
