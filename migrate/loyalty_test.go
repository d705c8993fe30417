package migrate

import (
	"context"
	"testing"
	"time"

	"github.com/darzisoft/tailorpos-migrator/models"
	"github.com/darzisoft/tailorpos-migrator/utils"
	"github.com/shopspring/decimal"
)

func seedLoyaltyFixture(t *testing.T, s *Session) (models.User, models.Customer) {
	t.Helper()
	migrateBaseline(t, s)
	user := seedUser(t, s, "fatima", "Fatima Fashion")
	customer := models.Customer{UserId: user.UserId, Name: "Walk-in Regular"}
	if err := s.DB().Create(&customer).Error; err != nil {
		t.Fatalf("seed customer: %v", err)
	}
	for _, tier := range models.DefaultLoyaltyTiers(user.UserId) {
		tier := tier
		if err := s.DB().Create(&tier).Error; err != nil {
			t.Fatalf("seed tier %s: %v", tier.TierLevel, err)
		}
	}
	return user, customer
}

func seedTransaction(t *testing.T, s *Session, userId, customerId int, kind models.LoyaltyTransactionType, points int) {
	t.Helper()
	txn := models.LoyaltyTransaction{
		UserId:          userId,
		CustomerId:      customerId,
		TransactionType: kind,
		PointsAmount:    points,
	}
	if err := s.DB().Create(&txn).Error; err != nil {
		t.Fatalf("seed %s transaction: %v", kind, err)
	}
}

func TestReconcileRebuildsAggregatesFromLedgers(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	s := newTestSession(t, db)
	user, customer := seedLoyaltyFixture(t, s)

	firstBill := time.Date(2025, 1, 10, 14, 30, 0, 0, time.UTC)
	amounts := []int64{1000, 1250, 1500, 1250, 1250} // 6250 across 5 bills
	for i, amount := range amounts {
		seedBill(t, s, 0, user.UserId, customer.CustomerId, amount, firstBill.AddDate(0, 0, i*7))
	}

	seedTransaction(t, s, user.UserId, customer.CustomerId, models.LoyaltyTransactionTypeEarn, 6000)
	// Stored positive by a buggy app version; normalization must subtract it.
	seedTransaction(t, s, user.UserId, customer.CustomerId, models.LoyaltyTransactionTypeRedeem, 250)

	// Drifted aggregate row with no dates.
	enrollment := models.CustomerLoyalty{
		UserId:     user.UserId,
		CustomerId: customer.CustomerId,
		TierLevel:  "Bronze",
	}
	if err := s.DB().Create(&enrollment).Error; err != nil {
		t.Fatalf("seed enrollment: %v", err)
	}

	report, err := NewLoyaltyReconciler(s, testLogger()).Run(ctx)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if report.Status != StageOK || report.Updated != 1 || report.Failed != 0 {
		t.Fatalf("unexpected report: %+v", report)
	}

	var got models.CustomerLoyalty
	if err := db.Where("user_id = ? AND customer_id = ?", user.UserId, customer.CustomerId).First(&got).Error; err != nil {
		t.Fatalf("read enrollment: %v", err)
	}
	if !got.TotalSpent.Equal(decimal.NewFromInt(6250)) {
		t.Fatalf("total spent: expected 6250, got %s", got.TotalSpent)
	}
	if got.TotalPurchases != 5 {
		t.Fatalf("total purchases: expected 5, got %d", got.TotalPurchases)
	}
	if got.AvailablePoints != 5750 {
		t.Fatalf("available points: expected 5750, got %d", got.AvailablePoints)
	}
	if got.TierLevel != "Gold" {
		t.Fatalf("tier: expected Gold for 6250 spent, got %s", got.TierLevel)
	}
	if got.JoinDate == nil || !utils.DateOnly(*got.JoinDate).Equal(utils.DateOnly(firstBill)) {
		t.Fatalf("join date should backfill from the first bill, got %v", got.JoinDate)
	}
	if got.EnrollmentDate == nil || !utils.DateOnly(*got.EnrollmentDate).Equal(utils.DateOnly(firstBill)) {
		t.Fatalf("enrollment date should default to the join date, got %v", got.EnrollmentDate)
	}

	// A converged row is skipped on the next run.
	report, err = NewLoyaltyReconciler(s, testLogger()).Run(ctx)
	if err != nil {
		t.Fatalf("second reconcile: %v", err)
	}
	if report.Updated != 0 || report.Skipped != 1 {
		t.Fatalf("second run should skip the converged row: %+v", report)
	}
}

func TestReconcileBackfillsJoinDateWithoutBills(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	s := newTestSession(t, db)
	user, customer := seedLoyaltyFixture(t, s)

	enrollment := models.CustomerLoyalty{UserId: user.UserId, CustomerId: customer.CustomerId}
	if err := s.DB().Create(&enrollment).Error; err != nil {
		t.Fatalf("seed enrollment: %v", err)
	}

	lr := NewLoyaltyReconciler(s, testLogger())
	fixed := time.Date(2025, 3, 4, 15, 45, 0, 0, time.UTC)
	lr.now = func() time.Time { return fixed }

	report, err := lr.Run(ctx)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if report.Updated != 1 {
		t.Fatalf("expected one update, got %+v", report)
	}

	var got models.CustomerLoyalty
	if err := db.Where("user_id = ?", user.UserId).First(&got).Error; err != nil {
		t.Fatalf("read enrollment: %v", err)
	}
	want := time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC)
	if got.JoinDate == nil || !utils.DateOnly(*got.JoinDate).Equal(want) {
		t.Fatalf("join date: expected %s, got %v", want, got.JoinDate)
	}
	if got.EnrollmentDate == nil || !utils.DateOnly(*got.EnrollmentDate).Equal(want) {
		t.Fatalf("enrollment date: expected %s, got %v", want, got.EnrollmentDate)
	}
	if got.TierLevel != "Bronze" {
		t.Fatalf("zero spend maps to the lowest tier, got %s", got.TierLevel)
	}
}

func TestReconcileBlockedBeforeMigrate(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	s := newTestSession(t, db)

	report, err := NewLoyaltyReconciler(s, testLogger()).Run(ctx)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if report.Status != StagePartial {
		t.Fatalf("expected partial on unmigrated database, got %s", report.Status)
	}
}

func TestTierAssignmentTieBreak(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	s := newTestSession(t, db)
	migrateBaseline(t, s)
	user := seedUser(t, s, "tiebreak", "Tie Break")

	// Bronze and Silver collide at threshold 0; the later seed entry wins.
	for _, tier := range []models.LoyaltyTier{
		{UserId: user.UserId, TierLevel: "Silver", PointsThreshold: decimal.Zero, Multiplier: decimal.New(12, -1), IsActive: utils.NewTrue()},
		{UserId: user.UserId, TierLevel: "Bronze", PointsThreshold: decimal.Zero, Multiplier: decimal.New(10, -1), IsActive: utils.NewTrue()},
	} {
		tier := tier
		if err := s.DB().Create(&tier).Error; err != nil {
			t.Fatalf("seed tier %s: %v", tier.TierLevel, err)
		}
	}

	lr := NewLoyaltyReconciler(s, testLogger())
	tiers, err := lr.tenantTiers(ctx, user.UserId)
	if err != nil {
		t.Fatalf("tenantTiers: %v", err)
	}
	if len(tiers) != 2 || tiers[0].TierLevel != "Bronze" || tiers[1].TierLevel != "Silver" {
		t.Fatalf("unexpected tier order: %+v", tiers)
	}
	if got := assignTier(tiers, decimal.Zero); got != "Silver" {
		t.Fatalf("tie at threshold 0: expected Silver, got %s", got)
	}
	if got := assignTier(tiers, decimal.NewFromInt(-1)); got != "Bronze" {
		t.Fatalf("spend below every threshold maps to the lowest tier, got %s", got)
	}
}

func TestReconcileDryRunPersistsNothing(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	s := newTestSession(t, db)
	user, customer := seedLoyaltyFixture(t, s)

	seedBill(t, s, 0, user.UserId, customer.CustomerId, 2000, time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC))
	enrollment := models.CustomerLoyalty{UserId: user.UserId, CustomerId: customer.CustomerId, TierLevel: "Bronze"}
	if err := s.DB().Create(&enrollment).Error; err != nil {
		t.Fatalf("seed enrollment: %v", err)
	}

	dry := newTestSession(t, db, WithDryRun(true))
	report, err := NewLoyaltyReconciler(dry, testLogger()).Run(ctx)
	if err != nil {
		t.Fatalf("dry reconcile: %v", err)
	}
	if report.Updated != 1 {
		t.Fatalf("dry run should still plan the update, got %+v", report)
	}

	var got models.CustomerLoyalty
	if err := db.Where("user_id = ?", user.UserId).First(&got).Error; err != nil {
		t.Fatalf("read enrollment: %v", err)
	}
	if !got.TotalSpent.Equal(decimal.Zero) || got.TotalPurchases != 0 || got.TierLevel != "Bronze" {
		t.Fatalf("dry run persisted changes: %+v", got)
	}
}
