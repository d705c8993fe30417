package migrate

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/darzisoft/tailorpos-migrator/appctx"
	"github.com/darzisoft/tailorpos-migrator/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// TableColumn names one required column for a data migration's precondition.
type TableColumn struct {
	Table  string
	Column string
}

// Migration is one named, idempotent, forward-only change. Names are stable
// forever and sorted lexicographically to define order; a data migration
// declares what it needs instead of trusting that earlier migrations ran.
type Migration struct {
	Name               string
	Description        string
	CreatesTables      []string
	RequiresTables     []string
	RequiresColumns    []TableColumn
	RequiresMigrations []string
	Apply              func(ctx context.Context, s *Session) error
}

// Checksum fingerprints the migration's declaration. Apply is code, so the
// checksum covers the declared surface only; it exists to catch renamed or
// repurposed entries, not edited SQL.
func (m Migration) Checksum() string {
	var b strings.Builder
	b.WriteString(m.Name)
	b.WriteString("|")
	b.WriteString(m.Description)
	for _, t := range m.CreatesTables {
		b.WriteString("|creates:" + t)
	}
	for _, t := range m.RequiresTables {
		b.WriteString("|table:" + t)
	}
	for _, c := range m.RequiresColumns {
		b.WriteString("|column:" + c.Table + "." + c.Column)
	}
	for _, r := range m.RequiresMigrations {
		b.WriteString("|migration:" + r)
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

const stageMigrate = "migrate"

// Runner executes the registry against one session. Per migration: begin,
// skip if already in the ledger, check preconditions, apply, record, commit.
// A failure rolls back that migration only; dependents become
// skipped-blocked and the pipeline moves on.
type Runner struct {
	session   *Session
	logger    *logrus.Logger
	appliedBy string
}

func NewRunner(s *Session, logger *logrus.Logger) *Runner {
	appliedBy := strings.TrimSpace(os.Getenv("USER"))
	if appliedBy == "" {
		appliedBy = "operator-" + uuid.NewString()[:8]
	}
	return &Runner{session: s, logger: logger, appliedBy: appliedBy}
}

func (r *Runner) Run(ctx context.Context, registry []Migration) (*StageReport, error) {
	report := newStageReport(stageMigrate)
	defer report.finish()

	if actor, ok := appctx.GetString(ctx, appctx.ContextKeyActor); ok && actor != "" {
		r.appliedBy = actor
	}
	runId, _ := appctx.GetString(ctx, appctx.ContextKeyRunId)
	dryRun, _ := appctx.GetBool(ctx, appctx.ContextKeyDryRun)
	r.logger.WithFields(logrus.Fields{
		"run_id":     runId,
		"dry_run":    dryRun,
		"applied_by": r.appliedBy,
	}).Debug("migration runner starting")

	migrations := make([]Migration, len(registry))
	copy(migrations, registry)
	sort.Slice(migrations, func(i, j int) bool { return migrations[i].Name < migrations[j].Name })

	ledgerReady, err := r.ensureLedger(ctx)
	if err != nil {
		report.escalate(StageFailed)
		report.addError(WrapError(stageMigrate, "migration_ledgers", err))
		return report, err
	}

	applied, err := r.appliedSet(ctx, ledgerReady)
	if err != nil {
		report.escalate(StageFailed)
		report.addError(WrapError(stageMigrate, "migration_ledgers", err))
		return report, err
	}

	blocked := make(map[string]bool)
	planned := make(map[string]bool)
	for _, m := range migrations {
		if err := ctx.Err(); err != nil {
			report.escalate(StagePartial)
			report.detailf("%s: cancelled before start", m.Name)
			report.Skipped++
			continue
		}

		if applied[m.Name] {
			r.logger.WithField("migration", m.Name).Debug("already applied")
			report.Skipped++
			continue
		}

		why, viaPlan := r.blockedBy(ctx, m, blocked, planned)
		if why != nil {
			blocked[m.Name] = true
			report.escalate(StagePartial)
			report.Skipped++
			report.detailf("%s: skipped-blocked (%s)", m.Name, why.Message)
			report.addError(why)
			r.logger.WithField("migration", m.Name).Warn(why.Message)
			continue
		}

		if r.session.DryRun() && viaPlan {
			// The schema this migration needs would only come into existence
			// earlier in this same run. Plan it without executing so the
			// dry-run report matches what a real run would do.
			for _, table := range m.CreatesTables {
				planned[table] = true
			}
			report.Created++
			report.detailf("%s: applied", m.Name)
			r.logger.WithField("migration", m.Name).Info("[dry-run] planned")
			continue
		}

		if err := r.applyOne(ctx, m, ledgerReady); err != nil {
			blocked[m.Name] = true
			report.escalate(StageFailed)
			report.Failed++
			report.addError(WrapError(stageMigrate, m.Name, err))
			r.logger.WithFields(logrus.Fields{"migration": m.Name}).Error(err.Error())
			continue
		}

		for _, table := range m.CreatesTables {
			planned[table] = true
		}
		report.Created++
		report.detailf("%s: applied", m.Name)
		r.logger.WithField("migration", m.Name).Info("applied")
	}
	return report, nil
}

func (r *Runner) applyOne(ctx context.Context, m Migration, ledgerReady bool) error {
	return r.session.WithTxRetry(ctx, func(tx *Session) error {
		// Re-check inside the transaction: the same registry may run from a
		// second operator shell.
		if ledgerReady {
			var count int64
			if err := tx.Query(ctx, &count,
				`SELECT COUNT(*) FROM migration_ledgers WHERE name = ?`, m.Name); err != nil {
				return err
			}
			if count > 0 {
				return nil
			}
		}

		if err := m.Apply(ctx, tx); err != nil {
			return err
		}

		if !ledgerReady {
			// Dry-run against a database that has never seen the migrator:
			// the ledger table was not created, so there is nothing to record.
			return nil
		}
		record := models.MigrationLedger{
			Name:      m.Name,
			AppliedAt: time.Now().UTC(),
			Checksum:  m.Checksum(),
			AppliedBy: r.appliedBy,
		}
		return tx.DB().Create(&record).Error
	})
}

// blockedBy returns the precondition error keeping m from running, if any,
// and whether any requirement is satisfied only by a table that an earlier
// migration in this run will create.
func (r *Runner) blockedBy(ctx context.Context, m Migration, blocked, planned map[string]bool) (*Error, bool) {
	viaPlan := false
	for _, dep := range m.RequiresMigrations {
		if blocked[dep] {
			return preconditionErr(stageMigrate, m.Name, "depends on blocked migration %s", dep), false
		}
	}
	catalog := r.session.Catalog()
	for _, table := range m.RequiresTables {
		ok, err := catalog.TableExists(ctx, r.session, table)
		if err != nil {
			return WrapError(stageMigrate, m.Name, err), false
		}
		if !ok {
			if planned[table] {
				viaPlan = true
				continue
			}
			return preconditionErr(stageMigrate, m.Name, "required table %s is absent", table), false
		}
	}
	for _, col := range m.RequiresColumns {
		ok, err := catalog.ColumnExists(ctx, r.session, col.Table, col.Column)
		if err != nil {
			return WrapError(stageMigrate, m.Name, err), false
		}
		if !ok {
			// A planned table carries its full baseline shape.
			if planned[col.Table] {
				viaPlan = true
				continue
			}
			return preconditionErr(stageMigrate, m.Name, "required column %s.%s is absent", col.Table, col.Column), false
		}
	}
	return nil, viaPlan
}

// ensureLedger bootstraps migration_ledgers. Returns whether the ledger is
// usable; under dry-run against a virgin database it is not, and the runner
// degrades to plan-only behavior.
func (r *Runner) ensureLedger(ctx context.Context) (bool, error) {
	exists, err := r.session.Dialect().TableExists(ctx, r.session, "migration_ledgers")
	if err != nil {
		return false, err
	}
	if exists {
		return true, nil
	}
	if r.session.DryRun() {
		r.logger.Info("[dry-run] migration_ledgers would be created")
		return false, nil
	}
	if err := r.session.DB().WithContext(ctx).AutoMigrate(&models.MigrationLedger{}); err != nil {
		return false, err
	}
	r.session.Catalog().InvalidateTable("migration_ledgers")
	return true, nil
}

func (r *Runner) appliedSet(ctx context.Context, ledgerReady bool) (map[string]bool, error) {
	applied := make(map[string]bool)
	if !ledgerReady {
		return applied, nil
	}
	var names []string
	if err := r.session.Query(ctx, &names, `SELECT name FROM migration_ledgers`); err != nil {
		return nil, err
	}
	for _, n := range names {
		applied[n] = true
	}
	return applied, nil
}

// AppliedMigrations lists ledger rows for operator inspection.
func AppliedMigrations(ctx context.Context, s *Session) ([]models.MigrationLedger, error) {
	var rows []models.MigrationLedger
	err := s.Query(ctx, &rows, `SELECT * FROM migration_ledgers ORDER BY name`)
	return rows, err
}
