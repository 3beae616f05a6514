package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lumastore/storefront-backend/pkg/enums"
)

// Product is a sellable catalog entry. BasePrice is expressed in the tenant's
// reference currency; PriceOverrides holds explicit per-currency display
// prices that win over converted values.
type Product struct {
	ID             uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TenantID       string             `gorm:"column:tenant_id;not null;index"`
	Name           string             `gorm:"column:name;not null"`
	Active         bool               `gorm:"column:active;not null;default:true"`
	BillingCycle   enums.BillingCycle `gorm:"column:billing_cycle;not null;default:'one_time'"`
	BasePrice      decimal.Decimal    `gorm:"column:base_price;type:numeric(12,2);not null"`
	PriceOverrides json.RawMessage    `gorm:"column:price_overrides;type:jsonb"`
	CreatedAt      time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
