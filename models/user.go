package models

import (
	"time"
)

// User is a tenant: a registered shop. Every other per-tenant row is scoped
// by UserId. Natural keys (email, mobile) are intentionally not globally
// unique; legacy databases that still carry a global UNIQUE get it dropped by
// the schema migrations.
type User struct {
	UserId    int       `gorm:"column:user_id;primaryKey;autoIncrement" json:"user_id"`
	Name      string    `gorm:"size:100" json:"name"`
	ShopName  string    `gorm:"size:100" json:"shop_name"`
	Email     string    `gorm:"size:100;index" json:"email"`
	Mobile    string    `gorm:"size:20;index" json:"mobile"`
	IsActive  *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
