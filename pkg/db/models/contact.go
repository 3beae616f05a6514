package models

import (
	"time"

	"github.com/google/uuid"
)

// Contact is a buyer identity scoped to a tenant. Email is stored lowercased
// and unique per tenant; repeat checkouts reuse the existing row.
type Contact struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TenantID  string    `gorm:"column:tenant_id;not null;uniqueIndex:idx_contacts_tenant_email,priority:1"`
	Email     string    `gorm:"column:email;not null;uniqueIndex:idx_contacts_tenant_email,priority:2"`
	FirstName string    `gorm:"column:first_name;not null"`
	LastName  string    `gorm:"column:last_name"`
	Phone     string    `gorm:"column:phone"`
	Source    string    `gorm:"column:source;not null;default:'checkout'"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
