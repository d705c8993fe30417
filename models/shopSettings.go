package models

import (
	"time"
)

type PaymentMode string

const (
	PaymentModeAdvance PaymentMode = "advance"
	PaymentModeFull    PaymentMode = "full"
)

// ShopSettings holds per-tenant presentation and workflow settings.
// Invariant: exactly one row per tenant; the backfill stage creates missing
// rows with the documented defaults.
type ShopSettings struct {
	SettingsId                int         `gorm:"column:settings_id;primaryKey;autoIncrement" json:"settings_id"`
	UserId                    int         `gorm:"column:user_id;uniqueIndex;not null" json:"user_id"`
	ShopName                  string      `gorm:"size:100;not null" json:"shop_name"`
	ShopMobile                string      `gorm:"size:20" json:"shop_mobile"`
	CurrencyCode              string      `gorm:"size:3;not null;default:'AED'" json:"currency_code"`
	CurrencySymbol            string      `gorm:"size:8;not null" json:"currency_symbol"`
	Timezone                  string      `gorm:"size:64;not null;default:'Asia/Dubai'" json:"timezone"`
	DateFormat                string      `gorm:"size:20;not null;default:'DD/MM/YYYY'" json:"date_format"`
	TimeFormat                string      `gorm:"size:8;not null;default:'24h'" json:"time_format"`
	EnableTrialDate           *bool       `gorm:"not null;default:true" json:"enable_trial_date"`
	EnableDeliveryDate        *bool       `gorm:"not null;default:true" json:"enable_delivery_date"`
	EnableAdvancePayment      *bool       `gorm:"not null;default:true" json:"enable_advance_payment"`
	EnableCustomerNotes       *bool       `gorm:"not null;default:true" json:"enable_customer_notes"`
	EnableEmployeeAssignment  *bool       `gorm:"not null;default:true" json:"enable_employee_assignment"`
	DefaultTrialDays          int         `gorm:"not null;default:3" json:"default_trial_days"`
	DefaultDeliveryDays       int         `gorm:"not null;default:3" json:"default_delivery_days"`
	UseDynamicInvoiceTemplate *bool       `gorm:"not null;default:true" json:"use_dynamic_invoice_template"`
	PaymentMode               PaymentMode `gorm:"size:10;not null;default:'advance'" json:"payment_mode"`
	CreatedAt                 time.Time   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt                 time.Time   `gorm:"autoUpdateTime" json:"updated_at"`
}

func (ShopSettings) TableName() string {
	return "shop_settings"
}
