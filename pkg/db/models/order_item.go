package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lumastore/storefront-backend/pkg/enums"
)

// OrderItem captures the snapshot of each purchased product at checkout time.
type OrderItem struct {
	ID           uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID      uuid.UUID          `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID    uuid.UUID          `gorm:"column:product_id;type:uuid;not null"`
	Name         string             `gorm:"column:name;not null"`
	Quantity     int                `gorm:"column:quantity;not null"`
	BillingCycle enums.BillingCycle `gorm:"column:billing_cycle;not null;default:'one_time'"`
	UnitPrice    decimal.Decimal    `gorm:"column:unit_price;type:numeric(12,2);not null"`
	TotalPrice   decimal.Decimal    `gorm:"column:total_price;type:numeric(12,2);not null"`
	Currency     string             `gorm:"column:currency;not null"`
	CreatedAt    time.Time          `gorm:"column:created_at;autoCreateTime"`
}
