package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type ExpenseCategory struct {
	CategoryId   int       `gorm:"column:category_id;primaryKey;autoIncrement" json:"category_id"`
	UserId       int       `gorm:"column:user_id;uniqueIndex:idx_expense_categories_user_name,priority:1;not null" json:"user_id"`
	CategoryName string    `gorm:"size:100;uniqueIndex:idx_expense_categories_user_name,priority:2;not null" json:"category_name"`
	Description  string    `gorm:"size:255" json:"description"`
	IsActive     *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
}

type Expense struct {
	ExpenseId     int             `gorm:"column:expense_id;primaryKey;autoIncrement" json:"expense_id"`
	UserId        int             `gorm:"column:user_id;index;not null" json:"user_id"`
	CategoryId    int             `gorm:"column:category_id;index;not null" json:"category_id"`
	ExpenseDate   time.Time       `gorm:"type:date;not null" json:"expense_date"`
	Amount        decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"amount"`
	Description   string          `gorm:"type:text" json:"description"`
	PaymentMethod string          `gorm:"size:20;not null;default:'Cash'" json:"payment_method"`
	ReceiptUrl    string          `gorm:"size:255" json:"receipt_url"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
}
