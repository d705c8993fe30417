package migrate

import (
	"context"

	"github.com/darzisoft/tailorpos-migrator/models"
	"github.com/sirupsen/logrus"
)

// Registry returns the authoritative, ordered migration set. Schema-additive
// migrations come first, data migrations last; names are never renamed.
//
// Every Apply is idempotent on its own, not just via the ledger: the ad-hoc
// scripts this tool replaced may have already made any one of these changes.
func Registry() []Migration {
	return []Migration{
		{
			Name:          "0001_baseline_schema",
			Description:   "create all managed tables",
			CreatesTables: models.ManagedTableNames(),
			Apply: func(ctx context.Context, s *Session) error {
				if s.DryRun() {
					s.logger.Info("[dry-run] baseline AutoMigrate skipped")
					return nil
				}
				if err := s.DB().WithContext(ctx).AutoMigrate(models.ManagedModels()...); err != nil {
					return err
				}
				s.Catalog().Reset()
				return nil
			},
		},
		{
			Name:        "0002_customers_is_active",
			Description: "add customers.is_active soft-delete flag",
			Apply: func(ctx context.Context, s *Session) error {
				_, err := s.AddColumnIfMissing(ctx, "customers", "is_active", ColumnSpec{
					Type:    "BOOLEAN",
					NotNull: true,
					Default: "TRUE",
				})
				return err
			},
		},
		{
			Name:        "0003_bill_items_notes",
			Description: "add bill_items.notes free-text column",
			Apply: func(ctx context.Context, s *Session) error {
				_, err := s.AddColumnIfMissing(ctx, "bill_items", "notes", ColumnSpec{
					Type:    "TEXT",
					Default: "''",
				})
				return err
			},
		},
		{
			Name:        "0004_products_barcode",
			Description: "add products.barcode with per-tenant lookup index",
			Apply: func(ctx context.Context, s *Session) error {
				if _, err := s.AddColumnIfMissing(ctx, "products", "barcode", ColumnSpec{
					Type: "VARCHAR(64)",
				}); err != nil {
					return err
				}
				_, err := s.CreateIndexIfMissing(ctx, "products", "idx_products_user_barcode", "user_id", "barcode")
				return err
			},
		},
		{
			Name:        "0005_users_scoped_natural_keys",
			Description: "drop global unique constraints on users.email and users.mobile",
			Apply: func(ctx context.Context, s *Session) error {
				return dropGlobalUniques(ctx, s, "users")
			},
		},
		{
			Name:        "0006_customers_scoped_natural_keys",
			Description: "drop global unique constraints on customers.email and customers.mobile",
			Apply: func(ctx context.Context, s *Session) error {
				return dropGlobalUniques(ctx, s, "customers")
			},
		},
		{
			Name:               "0007_seed_cities",
			Description:        "seed the closed set of seven cities",
			RequiresTables:     []string{"cities"},
			RequiresMigrations: []string{"0001_baseline_schema"},
			Apply: func(ctx context.Context, s *Session) error {
				for _, name := range models.DefaultCityNames() {
					var count int64
					if err := s.Query(ctx, &count,
						`SELECT COUNT(*) FROM cities WHERE city_name = ?`, name); err != nil {
						return err
					}
					if count > 0 {
						continue
					}
					if err := s.Exec(ctx,
						`INSERT INTO cities (city_name, created_at) VALUES (?, CURRENT_TIMESTAMP)`, name); err != nil {
						return err
					}
				}
				return nil
			},
		},
	}
}

// dropGlobalUniques removes single-column unique constraints on the tenant
// natural keys. Tenant scoping makes (email) and (mobile) unique only within
// a user_id, never globally.
func dropGlobalUniques(ctx context.Context, s *Session, table string) error {
	for _, column := range []string{"email", "mobile"} {
		dropped, err := s.DropUniqueIfExists(ctx, table, column)
		if err != nil {
			return err
		}
		for _, name := range dropped {
			s.logger.WithFields(logrus.Fields{
				"table":      table,
				"constraint": name,
			}).Info("dropped global unique constraint")
		}
	}
	return nil
}
