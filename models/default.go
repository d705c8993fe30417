package models

import (
	"github.com/darzisoft/tailorpos-migrator/utils"
	"github.com/shopspring/decimal"
)

// Documented per-tenant defaults. The backfill stage inserts these for every
// tenant missing them; it never overwrites rows that already exist.

// DefaultShopSettings builds the settings row for a tenant that has none.
// ShopName and ShopMobile fall back to the tenant's own values.
func DefaultShopSettings(user User) ShopSettings {
	return ShopSettings{
		UserId:                    user.UserId,
		ShopName:                  utils.FirstNonEmpty(user.ShopName, "My Shop"),
		ShopMobile:                user.Mobile,
		CurrencyCode:              "AED",
		CurrencySymbol:            "د.إ",
		Timezone:                  "Asia/Dubai",
		DateFormat:                "DD/MM/YYYY",
		TimeFormat:                "24h",
		EnableTrialDate:           utils.NewTrue(),
		EnableDeliveryDate:        utils.NewTrue(),
		EnableAdvancePayment:      utils.NewTrue(),
		EnableCustomerNotes:       utils.NewTrue(),
		EnableEmployeeAssignment:  utils.NewTrue(),
		DefaultTrialDays:          3,
		DefaultDeliveryDays:       3,
		UseDynamicInvoiceTemplate: utils.NewTrue(),
		PaymentMode:               PaymentModeAdvance,
	}
}

func DefaultExpenseCategories(userId int) []ExpenseCategory {
	type cat struct{ name, description string }
	cats := []cat{
		{"Rent", "Shop rent and related charges"},
		{"Utilities", "Electricity, water and internet"},
		{"Supplies", "Threads, needles, buttons and other consumables"},
		{"Marketing", "Advertising and promotions"},
		{"Transportation", "Delivery and pickup transport"},
		{"Insurance", "Shop and liability insurance"},
		{"Maintenance", "Machine servicing and shop upkeep"},
		{"Other", "Anything uncategorized"},
	}
	out := make([]ExpenseCategory, 0, len(cats))
	for _, c := range cats {
		out = append(out, ExpenseCategory{
			UserId:       userId,
			CategoryName: c.name,
			Description:  c.description,
			IsActive:     utils.NewTrue(),
		})
	}
	return out
}

// DefaultLoyaltyTiers returns the four tiers in ascending seed order. The
// slice order doubles as the tie-break when two tiers share a threshold.
func DefaultLoyaltyTiers(userId int) []LoyaltyTier {
	type tier struct {
		level      string
		threshold  int64
		multiplier string
	}
	tiers := []tier{
		{"Bronze", 0, "1.0"},
		{"Silver", 1000, "1.2"},
		{"Gold", 5000, "1.5"},
		{"Platinum", 15000, "2.0"},
	}
	out := make([]LoyaltyTier, 0, len(tiers))
	for _, t := range tiers {
		out = append(out, LoyaltyTier{
			UserId:          userId,
			TierLevel:       t.level,
			PointsThreshold: decimal.NewFromInt(t.threshold),
			Multiplier:      decimal.RequireFromString(t.multiplier),
			Description:     t.level + " tier",
			IsActive:        utils.NewTrue(),
		})
	}
	return out
}

// TierSeedRank orders tier levels as declared in the seed set
// (Bronze < Silver < Gold < Platinum). Unknown levels sort first.
func TierSeedRank(level string) int {
	switch level {
	case "Bronze":
		return 1
	case "Silver":
		return 2
	case "Gold":
		return 3
	case "Platinum":
		return 4
	}
	return 0
}

func DefaultLoyaltyRewards(userId int) []LoyaltyReward {
	type reward struct {
		name        string
		description string
		points      int
		kind        LoyaltyRewardType
	}
	rewards := []reward{
		{"Free Home Delivery", "One free delivery of a finished order", 100, LoyaltyRewardTypeDelivery},
		{"AED 25 Off", "AED 25 off the next bill", 500, LoyaltyRewardTypeDiscount},
		{"Free Accessory", "One accessory item free of charge", 1000, LoyaltyRewardTypeProduct},
		{"Free Alteration", "One alteration service free of charge", 2000, LoyaltyRewardTypeService},
		{"Premium Gift Set", "Premium gift hamper", 5000, LoyaltyRewardTypeGift},
	}
	out := make([]LoyaltyReward, 0, len(rewards))
	for _, r := range rewards {
		out = append(out, LoyaltyReward{
			UserId:         userId,
			RewardName:     r.name,
			Description:    r.description,
			PointsRequired: r.points,
			RewardType:     r.kind,
			IsActive:       utils.NewTrue(),
		})
	}
	return out
}

// DefaultCityAreas maps each seeded city to its area names.
// (city_id, area_name) is unique.
func DefaultCityAreas() map[string][]string {
	return map[string][]string{
		"Dubai": {
			"Deira", "Bur Dubai", "Al Karama", "Al Qusais", "Jumeirah",
			"Al Barsha", "International City", "Dubai Marina",
		},
		"Abu Dhabi": {
			"Al Zahiyah", "Khalidiya", "Mussafah", "Al Khalidiyah", "Madinat Zayed",
		},
		"Sharjah": {
			"Al Nahda", "Al Majaz", "Rolla", "Al Qasimia", "Muwaileh",
		},
		"Ajman": {
			"Al Nuaimiya", "Al Rashidiya", "Al Jurf",
		},
		"Ras Al Khaimah": {
			"Al Nakheel", "Al Dhait", "Julphar",
		},
		"Fujairah": {
			"Al Faseel", "Sakamkam", "Dibba",
		},
		"Umm Al Quwain": {
			"Al Salamah", "Al Raas",
		},
	}
}

// DefaultCityNames returns the closed set of seeded cities in a stable order.
func DefaultCityNames() []string {
	return []string{
		"Dubai", "Abu Dhabi", "Sharjah", "Ajman",
		"Ras Al Khaimah", "Fujairah", "Umm Al Quwain",
	}
}
