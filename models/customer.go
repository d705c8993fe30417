package models

import (
	"time"
)

// Customer is scoped per tenant. IsActive is a soft-delete presentation flag;
// reconciliation runs for enrolled customers regardless of it.
type Customer struct {
	CustomerId int       `gorm:"column:customer_id;primaryKey;autoIncrement" json:"customer_id"`
	UserId     int       `gorm:"column:user_id;index;not null" json:"user_id"`
	Name       string    `gorm:"size:100;not null" json:"name"`
	Email      string    `gorm:"size:100" json:"email"`
	Mobile     string    `gorm:"size:20" json:"mobile"`
	Address    string    `gorm:"type:text" json:"address"`
	IsActive   *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
