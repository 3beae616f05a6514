package models

import (
	"time"

	"github.com/google/uuid"
)

// GatewayAccount holds a tenant's card-gateway terminal configuration. A
// tenant without an active row cannot take immediate card payments; checkout
// then falls back to the payment-link follow-up path.
type GatewayAccount struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TenantID  string    `gorm:"column:tenant_id;not null;uniqueIndex"`
	Terminal  string    `gorm:"column:terminal;not null"`
	PublicKey string    `gorm:"column:public_key;not null"`
	Sandbox   bool      `gorm:"column:sandbox;not null;default:false"`
	Active    bool      `gorm:"column:active;not null;default:true"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
