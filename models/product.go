package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ProductId   int             `gorm:"column:product_id;primaryKey;autoIncrement" json:"product_id"`
	UserId      int             `gorm:"column:user_id;index:idx_products_user_barcode,priority:1;not null" json:"user_id"`
	ProductName string          `gorm:"size:100;not null" json:"product_name"`
	Price       decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"price"`
	Barcode     string          `gorm:"size:64;index:idx_products_user_barcode,priority:2" json:"barcode"`
	IsActive    *bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}
