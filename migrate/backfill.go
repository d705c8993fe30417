package migrate

import (
	"context"
	"strconv"

	"github.com/darzisoft/tailorpos-migrator/models"
	"github.com/sirupsen/logrus"
)

const stageBackfillTenants = "backfill-tenants"

// TenantBackfiller ensures every tenant has its required per-tenant rows:
// one shop_settings row, the default expense categories, loyalty tiers and
// rewards, plus the shared city areas. It only ever inserts; existing rows
// are never touched.
type TenantBackfiller struct {
	session *Session
	logger  *logrus.Logger
}

func NewTenantBackfiller(s *Session, logger *logrus.Logger) *TenantBackfiller {
	return &TenantBackfiller{session: s, logger: logger}
}

var backfillTables = []string{
	"users", "shop_settings", "expense_categories",
	"loyalty_tiers", "loyalty_rewards", "cities", "city_areas",
}

func (b *TenantBackfiller) Run(ctx context.Context) (*StageReport, error) {
	report := newStageReport(stageBackfillTenants)
	defer report.finish()

	for _, table := range backfillTables {
		ok, err := b.session.Catalog().TableExists(ctx, b.session, table)
		if err != nil {
			report.escalate(StageFailed)
			report.addError(WrapError(stageBackfillTenants, table, err))
			return report, nil
		}
		if !ok {
			report.escalate(StagePartial)
			why := preconditionErr(stageBackfillTenants, table, "required table %s is absent; run migrate first", table)
			report.addError(why)
			report.detailf("skipped-blocked: %s", why.Message)
			return report, nil
		}
	}

	b.backfillShopSettings(ctx, report)
	b.seedTenantReferenceData(ctx, report)
	b.seedCityAreas(ctx, report)
	return report, nil
}

func (b *TenantBackfiller) backfillShopSettings(ctx context.Context, report *StageReport) {
	var missing []models.User
	err := b.session.Query(ctx, &missing, `
		SELECT u.* FROM users u
		LEFT JOIN shop_settings s ON s.user_id = u.user_id
		WHERE s.user_id IS NULL
		ORDER BY u.user_id
	`)
	if err != nil {
		report.escalate(StageFailed)
		report.addError(WrapError(stageBackfillTenants, "shop_settings", err))
		return
	}
	report.detailf("shop_settings: %d tenants missing a row", len(missing))

	for _, user := range missing {
		user := user
		err := b.session.WithTxRetry(ctx, func(tx *Session) error {
			row := models.DefaultShopSettings(user)
			return tx.DB().Create(&row).Error
		})
		if err != nil {
			report.Failed++
			report.addError(WrapError(stageBackfillTenants, rowRef("shop_settings", user.UserId), err))
			if Classify(err) != KindConstraint {
				report.escalate(StageFailed)
			}
			continue
		}
		report.Created++
	}
}

func (b *TenantBackfiller) seedTenantReferenceData(ctx context.Context, report *StageReport) {
	var tenants []models.User
	if err := b.session.Query(ctx, &tenants, `SELECT * FROM users ORDER BY user_id`); err != nil {
		report.escalate(StageFailed)
		report.addError(WrapError(stageBackfillTenants, "users", err))
		return
	}

	for _, tenant := range tenants {
		if err := ctx.Err(); err != nil {
			report.escalate(StagePartial)
			report.detailf("tenant %d: cancelled before start", tenant.UserId)
			return
		}
		tenant := tenant
		err := b.session.WithTxRetry(ctx, func(tx *Session) error {
			b.seedExpenseCategories(ctx, tx, tenant.UserId, report)
			b.seedLoyaltyTiers(ctx, tx, tenant.UserId, report)
			b.seedLoyaltyRewards(ctx, tx, tenant.UserId, report)
			return nil
		})
		if err != nil {
			report.escalate(StageFailed)
			report.addError(WrapError(stageBackfillTenants, rowRef("users", tenant.UserId), err))
		}
	}
}

func (b *TenantBackfiller) seedExpenseCategories(ctx context.Context, tx *Session, userId int, report *StageReport) {
	for _, row := range models.DefaultExpenseCategories(userId) {
		row := row
		var count int64
		if err := tx.Query(ctx, &count,
			`SELECT COUNT(*) FROM expense_categories WHERE user_id = ? AND category_name = ?`,
			userId, row.CategoryName); err != nil {
			report.Failed++
			report.addError(WrapError(stageBackfillTenants, rowRef("expense_categories", userId), err))
			continue
		}
		if count > 0 {
			report.Skipped++
			continue
		}
		if err := tx.DB().Create(&row).Error; err != nil {
			report.Failed++
			report.addError(WrapError(stageBackfillTenants, rowRef("expense_categories", userId), err))
			continue
		}
		report.Created++
	}
}

func (b *TenantBackfiller) seedLoyaltyTiers(ctx context.Context, tx *Session, userId int, report *StageReport) {
	var existing []models.LoyaltyTier
	if err := tx.Query(ctx, &existing,
		`SELECT * FROM loyalty_tiers WHERE user_id = ?`, userId); err != nil {
		report.Failed++
		report.addError(WrapError(stageBackfillTenants, rowRef("loyalty_tiers", userId), err))
		return
	}
	byLevel := make(map[string]models.LoyaltyTier, len(existing))
	for _, t := range existing {
		byLevel[t.TierLevel] = t
	}

	for _, row := range models.DefaultLoyaltyTiers(userId) {
		row := row
		if current, ok := byLevel[row.TierLevel]; ok {
			// Earlier ad-hoc scripts seeded slightly different defaults.
			// Flag the drift for operator review instead of overwriting.
			if !current.PointsThreshold.Equal(row.PointsThreshold) || !current.Multiplier.Equal(row.Multiplier) {
				b.logger.WithFields(logrus.Fields{
					"user_id":            userId,
					"tier":               row.TierLevel,
					"existing_threshold": current.PointsThreshold.String(),
					"seed_threshold":     row.PointsThreshold.String(),
				}).Warn("loyalty tier differs from documented defaults; left unchanged")
				report.detailf("tenant %d tier %s diverges from seed defaults", userId, row.TierLevel)
			}
			report.Skipped++
			continue
		}
		if err := tx.DB().Create(&row).Error; err != nil {
			report.Failed++
			report.addError(WrapError(stageBackfillTenants, rowRef("loyalty_tiers", userId), err))
			continue
		}
		report.Created++
	}
}

func (b *TenantBackfiller) seedLoyaltyRewards(ctx context.Context, tx *Session, userId int, report *StageReport) {
	for _, row := range models.DefaultLoyaltyRewards(userId) {
		row := row
		var count int64
		if err := tx.Query(ctx, &count,
			`SELECT COUNT(*) FROM loyalty_rewards WHERE user_id = ? AND reward_name = ?`,
			userId, row.RewardName); err != nil {
			report.Failed++
			report.addError(WrapError(stageBackfillTenants, rowRef("loyalty_rewards", userId), err))
			continue
		}
		if count > 0 {
			report.Skipped++
			continue
		}
		if err := tx.DB().Create(&row).Error; err != nil {
			report.Failed++
			report.addError(WrapError(stageBackfillTenants, rowRef("loyalty_rewards", userId), err))
			continue
		}
		report.Created++
	}
}

func (b *TenantBackfiller) seedCityAreas(ctx context.Context, report *StageReport) {
	areasByCity := models.DefaultCityAreas()
	for _, cityName := range models.DefaultCityNames() {
		cityName := cityName
		err := b.session.WithTxRetry(ctx, func(tx *Session) error {
			var cityIds []int
			if err := tx.Query(ctx, &cityIds,
				`SELECT city_id FROM cities WHERE city_name = ?`, cityName); err != nil {
				return err
			}
			if len(cityIds) == 0 {
				report.Skipped++
				report.detailf("city %s: skipped-missing (not seeded)", cityName)
				return nil
			}
			cityId := cityIds[0]

			for _, areaName := range areasByCity[cityName] {
				var count int64
				if err := tx.Query(ctx, &count,
					`SELECT COUNT(*) FROM city_areas WHERE city_id = ? AND area_name = ?`,
					cityId, areaName); err != nil {
					return err
				}
				if count > 0 {
					report.Skipped++
					continue
				}
				row := models.CityArea{CityId: cityId, AreaName: areaName}
				if err := tx.DB().Create(&row).Error; err != nil {
					report.Failed++
					report.addError(WrapError(stageBackfillTenants, rowRef("city_areas", cityId), err))
					continue
				}
				report.Created++
			}
			return nil
		})
		if err != nil {
			report.escalate(StageFailed)
			report.addError(WrapError(stageBackfillTenants, "city_areas", err))
		}
	}
}

func rowRef(table string, id int) string {
	return table + "/" + strconv.Itoa(id)
}
