package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lumastore/storefront-backend/pkg/enums"
)

// Order is the committed result of a checkout submission. Number is the
// buyer-facing sequential identifier, unique within a tenant.
type Order struct {
	ID                uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TenantID          string                  `gorm:"column:tenant_id;not null;uniqueIndex:idx_orders_tenant_number,priority:1"`
	Number            int64                   `gorm:"column:number;not null;uniqueIndex:idx_orders_tenant_number,priority:2"`
	ContactID         uuid.UUID               `gorm:"column:contact_id;type:uuid;not null;index"`
	Currency          string                  `gorm:"column:currency;not null"`
	Subtotal          decimal.Decimal         `gorm:"column:subtotal;type:numeric(12,2);not null"`
	Total             decimal.Decimal         `gorm:"column:total;type:numeric(12,2);not null"`
	FinancialStatus   enums.FinancialStatus   `gorm:"column:financial_status;not null;default:'pending'"`
	PaymentMethod     string                  `gorm:"column:payment_method"`
	FulfillmentStatus enums.FulfillmentStatus `gorm:"column:fulfillment_status;not null;default:'fulfilled'"`
	HasSubscriptions  bool                    `gorm:"column:has_subscriptions;not null;default:false"`
	Metadata          json.RawMessage         `gorm:"column:metadata;type:jsonb"`
	CreatedAt         time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}

// OrderMetadata is the shape serialized into Order.Metadata.
type OrderMetadata struct {
	Origin          string `json:"origin,omitempty"`
	Country         string `json:"country,omitempty"`
	Company         string `json:"company,omitempty"`
	Language        string `json:"language,omitempty"`
	AwaitingPayment bool   `json:"awaiting_payment,omitempty"`
}
