package models

// OrderCounter allocates sequential buyer-facing order numbers per tenant.
// The row is locked FOR UPDATE inside the order-creation transaction so
// concurrent checkouts cannot observe the same value.
type OrderCounter struct {
	TenantID   string `gorm:"column:tenant_id;primaryKey"`
	NextNumber int64  `gorm:"column:next_number;not null"`
}
