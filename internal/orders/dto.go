package orders

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lumastore/storefront-backend/pkg/enums"
)

// OrderItemInput is one cart line submitted at checkout. DisplayUnitPrice is
// the price the buyer saw; when present it wins over the resolver's value.
type OrderItemInput struct {
	ProductID        uuid.UUID
	Quantity         int
	DisplayUnitPrice *decimal.Decimal
}

// CreateOrderInput carries everything the wizard gathered before Submit.
type CreateOrderInput struct {
	TenantID     string
	Email        string
	FirstName    string
	LastName     string
	Phone        string
	Company      string
	Country      string
	Language     string
	Currency     string
	Origin       string
	Items        []OrderItemInput
	DisplayTotal *decimal.Decimal
}

// CreateOrderResult is returned to the wizard on success.
type CreateOrderResult struct {
	OrderID          uuid.UUID
	Number           int64
	Subtotal         decimal.Decimal
	Total            decimal.Decimal
	Currency         enums.Currency
	FinancialStatus  enums.FinancialStatus
	HasSubscriptions bool
}
