package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Bill is an immutable ledger row. The migrator reads bills to rebuild
// loyalty aggregates; it never writes them.
type Bill struct {
	BillId      int             `gorm:"column:bill_id;primaryKey;autoIncrement" json:"bill_id"`
	UserId      int             `gorm:"column:user_id;index;not null" json:"user_id"`
	CustomerId  int             `gorm:"column:customer_id;index;not null" json:"customer_id"`
	BillNumber  string          `gorm:"size:50" json:"bill_number"`
	TotalAmount decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"total_amount"`
	BillDate    time.Time       `gorm:"not null" json:"bill_date"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type BillItem struct {
	BillItemId int             `gorm:"column:bill_item_id;primaryKey;autoIncrement" json:"bill_item_id"`
	BillId     int             `gorm:"column:bill_id;index;not null" json:"bill_id"`
	UserId     int             `gorm:"column:user_id;index;not null" json:"user_id"`
	ProductId  int             `gorm:"column:product_id" json:"product_id"`
	ItemName   string          `gorm:"size:100" json:"item_name"`
	Quantity   int             `gorm:"not null;default:1" json:"quantity"`
	Price      decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"price"`
	Notes      string          `gorm:"type:text" json:"notes"`
	CreatedAt  time.Time       `gorm:"autoCreateTime" json:"created_at"`
}
