package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type LoyaltyRewardType string

const (
	LoyaltyRewardTypeDelivery LoyaltyRewardType = "delivery"
	LoyaltyRewardTypeDiscount LoyaltyRewardType = "discount"
	LoyaltyRewardTypeProduct  LoyaltyRewardType = "product"
	LoyaltyRewardTypeService  LoyaltyRewardType = "service"
	LoyaltyRewardTypeGift     LoyaltyRewardType = "gift"
)

type LoyaltyTransactionType string

const (
	LoyaltyTransactionTypeEarn   LoyaltyTransactionType = "earn"
	LoyaltyTransactionTypeRedeem LoyaltyTransactionType = "redeem"
	LoyaltyTransactionTypeExpire LoyaltyTransactionType = "expire"
	LoyaltyTransactionTypeAdjust LoyaltyTransactionType = "adjust"
)

// LoyaltyTier is a per-tenant spend threshold. Ordering by PointsThreshold
// ascending defines tier assignment.
type LoyaltyTier struct {
	TierId          int             `gorm:"column:tier_id;primaryKey;autoIncrement" json:"tier_id"`
	UserId          int             `gorm:"column:user_id;uniqueIndex:idx_loyalty_tiers_user_level,priority:1;not null" json:"user_id"`
	TierLevel       string          `gorm:"size:20;uniqueIndex:idx_loyalty_tiers_user_level,priority:2;not null" json:"tier_level"`
	PointsThreshold decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"points_threshold"`
	Multiplier      decimal.Decimal `gorm:"type:decimal(4,2);not null;default:1" json:"multiplier"`
	Description     string          `gorm:"size:255" json:"description"`
	IsActive        *bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

type LoyaltyReward struct {
	RewardId       int               `gorm:"column:reward_id;primaryKey;autoIncrement" json:"reward_id"`
	UserId         int               `gorm:"column:user_id;uniqueIndex:idx_loyalty_rewards_user_name,priority:1;not null" json:"user_id"`
	RewardName     string            `gorm:"size:100;uniqueIndex:idx_loyalty_rewards_user_name,priority:2;not null" json:"reward_name"`
	Description    string            `gorm:"size:255" json:"description"`
	PointsRequired int               `gorm:"not null" json:"points_required"`
	RewardType     LoyaltyRewardType `gorm:"size:20;not null" json:"reward_type"`
	IsActive       *bool             `gorm:"not null;default:true" json:"is_active"`
	CreatedAt      time.Time         `gorm:"autoCreateTime" json:"created_at"`
}

// CustomerLoyalty is the denormalized aggregate row for one enrolled
// customer. TotalSpent, TotalPurchases and AvailablePoints are functions of
// the bill and loyalty-transaction ledgers; the reconciler restores them.
type CustomerLoyalty struct {
	LoyaltyId       int             `gorm:"column:loyalty_id;primaryKey;autoIncrement" json:"loyalty_id"`
	UserId          int             `gorm:"column:user_id;uniqueIndex:idx_customer_loyalty_user_customer,priority:1;not null" json:"user_id"`
	CustomerId      int             `gorm:"column:customer_id;uniqueIndex:idx_customer_loyalty_user_customer,priority:2;not null" json:"customer_id"`
	TierLevel       string          `gorm:"size:20" json:"tier_level"`
	AvailablePoints int             `gorm:"not null;default:0" json:"available_points"`
	TotalPoints     int             `gorm:"not null;default:0" json:"total_points"`
	TotalPurchases  int             `gorm:"not null;default:0" json:"total_purchases"`
	TotalSpent      decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"total_spent"`
	JoinDate        *time.Time      `gorm:"type:date" json:"join_date"`
	EnrollmentDate  *time.Time      `gorm:"type:date" json:"enrollment_date"`
	IsActive        *bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (CustomerLoyalty) TableName() string {
	return "customer_loyalty"
}

// LoyaltyTransaction is append-only: earn rows carry positive points, redeem
// and expire rows negative.
type LoyaltyTransaction struct {
	TransactionId   int                    `gorm:"column:transaction_id;primaryKey;autoIncrement" json:"transaction_id"`
	UserId          int                    `gorm:"column:user_id;index;not null" json:"user_id"`
	CustomerId      int                    `gorm:"column:customer_id;index;not null" json:"customer_id"`
	TransactionType LoyaltyTransactionType `gorm:"size:10;not null" json:"transaction_type"`
	PointsAmount    int                    `gorm:"not null" json:"points_amount"`
	Description     string                 `gorm:"size:255" json:"description"`
	CreatedAt       time.Time              `gorm:"autoCreateTime" json:"created_at"`
}
