package models

// ManagedModels lists every entity whose presence and shape the migrator is
// authoritative for. The baseline schema migration AutoMigrates this set; the
// surrounding application owns the row contents.
func ManagedModels() []any {
	return []any{
		&User{},
		&ShopSettings{},
		&ExpenseCategory{}, &Expense{},
		&Customer{},
		&Bill{}, &BillItem{},
		&Product{},
		&LoyaltyTier{}, &LoyaltyReward{}, &CustomerLoyalty{}, &LoyaltyTransaction{},
		&City{}, &CityArea{},
	}
}

// ManagedTableNames lists the table names ManagedModels materializes, in the
// same order. Kept in lockstep by TestManagedTableNamesCoverManagedModels.
func ManagedTableNames() []string {
	return []string{
		"users",
		"shop_settings",
		"expense_categories", "expenses",
		"customers",
		"bills", "bill_items",
		"products",
		"loyalty_tiers", "loyalty_rewards", "customer_loyalty", "loyalty_transactions",
		"cities", "city_areas",
	}
}
