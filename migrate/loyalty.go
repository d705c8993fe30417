package migrate

import (
	"context"
	"sort"
	"time"

	"github.com/darzisoft/tailorpos-migrator/models"
	"github.com/darzisoft/tailorpos-migrator/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const stageReconcileLoyalty = "reconcile-loyalty"

// LoyaltyReconciler rebuilds each enrolled customer's aggregates from the
// bill ledger and the loyalty-transaction ledger. It recomputes from sources
// on every run, so it converges regardless of what drift application bugs
// introduced; the ledgers themselves are never written.
type LoyaltyReconciler struct {
	session *Session
	logger  *logrus.Logger
	now     func() time.Time
}

func NewLoyaltyReconciler(s *Session, logger *logrus.Logger) *LoyaltyReconciler {
	return &LoyaltyReconciler{session: s, logger: logger, now: time.Now}
}

func (lr *LoyaltyReconciler) Run(ctx context.Context) (*StageReport, error) {
	report := newStageReport(stageReconcileLoyalty)
	defer report.finish()

	for _, table := range []string{"customer_loyalty", "bills", "loyalty_transactions", "loyalty_tiers"} {
		ok, err := lr.session.Catalog().TableExists(ctx, lr.session, table)
		if err != nil {
			report.escalate(StageFailed)
			report.addError(WrapError(stageReconcileLoyalty, table, err))
			return report, nil
		}
		if !ok {
			report.escalate(StagePartial)
			why := preconditionErr(stageReconcileLoyalty, table, "required table %s is absent; run migrate first", table)
			report.addError(why)
			report.detailf("skipped-blocked: %s", why.Message)
			return report, nil
		}
	}

	var tenantIds []int
	if err := lr.session.Query(ctx, &tenantIds,
		`SELECT DISTINCT user_id FROM customer_loyalty ORDER BY user_id`); err != nil {
		report.escalate(StageFailed)
		report.addError(WrapError(stageReconcileLoyalty, "customer_loyalty", err))
		return report, nil
	}

	for _, userId := range tenantIds {
		if err := ctx.Err(); err != nil {
			report.escalate(StagePartial)
			report.detailf("tenant %d: cancelled before start", userId)
			return report, nil
		}
		lr.reconcileTenant(ctx, userId, report)
	}
	return report, nil
}

// reconcileTenant processes one tenant's enrolled customers against one
// cursor; tenants are never held in memory together.
func (lr *LoyaltyReconciler) reconcileTenant(ctx context.Context, userId int, report *StageReport) {
	tiers, err := lr.tenantTiers(ctx, userId)
	if err != nil {
		report.escalate(StageFailed)
		report.addError(WrapError(stageReconcileLoyalty, rowRef("loyalty_tiers", userId), err))
		return
	}

	var enrolled []models.CustomerLoyalty
	if err := lr.session.Query(ctx, &enrolled,
		`SELECT * FROM customer_loyalty WHERE user_id = ? ORDER BY customer_id`, userId); err != nil {
		report.escalate(StageFailed)
		report.addError(WrapError(stageReconcileLoyalty, rowRef("customer_loyalty", userId), err))
		return
	}

	for _, row := range enrolled {
		row := row
		if err := lr.reconcileCustomer(ctx, tiers, row, report); err != nil {
			report.Failed++
			report.addError(WrapError(stageReconcileLoyalty, rowRef("customer_loyalty", row.CustomerId), err))
		}
	}
}

// tenantTiers returns the tenant's tiers ordered by threshold ascending,
// ties broken by the seed-set ordering (Bronze < Silver < Gold < Platinum)
// so the later entry wins when thresholds collide.
func (lr *LoyaltyReconciler) tenantTiers(ctx context.Context, userId int) ([]models.LoyaltyTier, error) {
	var tiers []models.LoyaltyTier
	if err := lr.session.Query(ctx, &tiers,
		`SELECT * FROM loyalty_tiers WHERE user_id = ?`, userId); err != nil {
		return nil, err
	}
	sort.SliceStable(tiers, func(i, j int) bool {
		if !tiers[i].PointsThreshold.Equal(tiers[j].PointsThreshold) {
			return tiers[i].PointsThreshold.LessThan(tiers[j].PointsThreshold)
		}
		return models.TierSeedRank(tiers[i].TierLevel) < models.TierSeedRank(tiers[j].TierLevel)
	})
	return tiers, nil
}

type customerAggregates struct {
	totalSpent      decimal.Decimal
	totalPurchases  int
	availablePoints int
	firstBillDate   *time.Time
}

func (lr *LoyaltyReconciler) aggregates(ctx context.Context, s *Session, userId, customerId int) (customerAggregates, error) {
	var agg customerAggregates

	var bills struct {
		Total     decimal.Decimal `gorm:"column:total"`
		Purchases int             `gorm:"column:purchases"`
	}
	if err := s.Query(ctx, &bills, `
		SELECT COALESCE(SUM(total_amount), 0) AS total, COUNT(*) AS purchases
		FROM bills WHERE user_id = ? AND customer_id = ?
	`, userId, customerId); err != nil {
		return agg, err
	}
	agg.totalSpent = bills.Total
	agg.totalPurchases = bills.Purchases

	// Normalize signs so both storage conventions sum correctly: earn is
	// always positive, redeem/expire always negative, adjust as stored.
	var points struct {
		Available int `gorm:"column:available"`
	}
	if err := s.Query(ctx, &points, `
		SELECT COALESCE(SUM(CASE
			WHEN transaction_type = 'earn' THEN ABS(points_amount)
			WHEN transaction_type IN ('redeem', 'expire') THEN -ABS(points_amount)
			ELSE points_amount
		END), 0) AS available
		FROM loyalty_transactions WHERE user_id = ? AND customer_id = ?
	`, userId, customerId); err != nil {
		return agg, err
	}
	agg.availablePoints = points.Available

	// Select the column rather than MIN() so the file dialect keeps the
	// declared column type and scans into time.Time.
	var firstBill []struct {
		BillDate time.Time `gorm:"column:bill_date"`
	}
	if err := s.Query(ctx, &firstBill, `
		SELECT bill_date FROM bills
		WHERE user_id = ? AND customer_id = ?
		ORDER BY bill_date ASC LIMIT 1
	`, userId, customerId); err != nil {
		return agg, err
	}
	if len(firstBill) > 0 && !firstBill[0].BillDate.IsZero() {
		d := utils.DateOnly(firstBill[0].BillDate)
		agg.firstBillDate = &d
	}
	return agg, nil
}

func (lr *LoyaltyReconciler) reconcileCustomer(ctx context.Context, tiers []models.LoyaltyTier, row models.CustomerLoyalty, report *StageReport) error {
	return lr.session.WithTxRetry(ctx, func(tx *Session) error {
		agg, err := lr.aggregates(ctx, tx, row.UserId, row.CustomerId)
		if err != nil {
			return err
		}

		tierLevel := assignTier(tiers, agg.totalSpent)

		joinDate := row.JoinDate
		if joinDate == nil {
			if agg.firstBillDate != nil {
				joinDate = agg.firstBillDate
			} else {
				joinDate = utils.NewTime(utils.DateOnly(lr.now().UTC()))
			}
		}
		enrollmentDate := row.EnrollmentDate
		if enrollmentDate == nil {
			enrollmentDate = joinDate
		}

		if row.TotalSpent.Equal(agg.totalSpent) &&
			row.TotalPurchases == agg.totalPurchases &&
			row.AvailablePoints == agg.availablePoints &&
			row.TierLevel == tierLevel &&
			sameDate(row.JoinDate, joinDate) &&
			sameDate(row.EnrollmentDate, enrollmentDate) {
			report.Skipped++
			return nil
		}

		if err := tx.Exec(ctx, `
			UPDATE customer_loyalty
			SET total_spent = ?, total_purchases = ?, available_points = ?,
			    tier_level = ?, join_date = ?, enrollment_date = ?, updated_at = ?
			WHERE loyalty_id = ?
		`, agg.totalSpent, agg.totalPurchases, agg.availablePoints,
			tierLevel, joinDate, enrollmentDate, lr.now().UTC(), row.LoyaltyId); err != nil {
			return err
		}

		// Invariant check: the persisted row must equal the recomputation.
		var persisted models.CustomerLoyalty
		if err := tx.Query(ctx, &persisted,
			`SELECT * FROM customer_loyalty WHERE loyalty_id = ?`, row.LoyaltyId); err != nil {
			return err
		}
		if !persisted.TotalSpent.Equal(agg.totalSpent) ||
			persisted.TotalPurchases != agg.totalPurchases ||
			persisted.AvailablePoints != agg.availablePoints ||
			persisted.TierLevel != tierLevel {
			return NewError(KindIntegrity, stageReconcileLoyalty, rowRef("customer_loyalty", row.CustomerId),
				"aggregates do not match recomputation after write", nil)
		}

		report.Updated++
		lr.logger.WithFields(logrus.Fields{
			"user_id":          row.UserId,
			"customer_id":      row.CustomerId,
			"total_spent":      agg.totalSpent.String(),
			"total_purchases":  agg.totalPurchases,
			"available_points": agg.availablePoints,
			"tier_level":       tierLevel,
		}).Info("loyalty aggregates reconciled")
		return nil
	})
}

// assignTier picks the highest tier whose threshold does not exceed spent.
// The tiers slice is already in ascending threshold (and seed) order; spend
// below every threshold maps to the lowest tier.
func assignTier(tiers []models.LoyaltyTier, spent decimal.Decimal) string {
	if len(tiers) == 0 {
		return ""
	}
	assigned := tiers[0].TierLevel
	for _, t := range tiers {
		if t.PointsThreshold.LessThanOrEqual(spent) {
			assigned = t.TierLevel
		}
	}
	return assigned
}

func sameDate(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return utils.DateOnly(*a).Equal(utils.DateOnly(*b))
}
