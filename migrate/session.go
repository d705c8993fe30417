package migrate

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// DefaultQueryTimeout bounds every statement issued through a Session.
// Override with SESSION_QUERY_TIMEOUT via NewSession options.
const DefaultQueryTimeout = 30 * time.Second

// Session is the only supported way to talk to the target database. It owns
// the dialect, the per-query deadline, and the dry-run discipline:
//
//   - DDL and generator mutations go through ExecDDL, which logs and skips
//     the statement under dry-run (the server dialect auto-commits DDL, so
//     rollback is not an option there).
//   - DML runs inside WithTx; under dry-run the transaction always rolls
//     back, so row counts are real but nothing persists.
//   - Reads always execute.
type Session struct {
	db           *gorm.DB
	dialect      Dialect
	catalog      *Catalog
	logger       *logrus.Logger
	dryRun       bool
	inTx         bool
	queryTimeout time.Duration
}

type SessionOption func(*Session)

func WithDryRun(dryRun bool) SessionOption {
	return func(s *Session) { s.dryRun = dryRun }
}

func WithQueryTimeout(d time.Duration) SessionOption {
	return func(s *Session) {
		if d > 0 {
			s.queryTimeout = d
		}
	}
}

func NewSession(db *gorm.DB, logger *logrus.Logger, opts ...SessionOption) (*Session, error) {
	dialect, err := DialectFor(db)
	if err != nil {
		return nil, err
	}
	s := &Session{
		db:           db,
		dialect:      dialect,
		logger:       logger,
		queryTimeout: DefaultQueryTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.catalog = NewCatalog()
	return s, nil
}

func (s *Session) Dialect() Dialect { return s.dialect }

func (s *Session) Catalog() *Catalog { return s.catalog }

func (s *Session) DryRun() bool { return s.dryRun }

// DB exposes the underlying handle for gorm model operations. Statements run
// through it bypass the dry-run guard, so mutations belong inside WithTx.
func (s *Session) DB() *gorm.DB { return s.db }

func (s *Session) deadline(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.queryTimeout)
}

// Exec runs a mutating DML statement. Outside a transaction under dry-run it
// is logged and suppressed; inside WithTx it executes for real and the
// enclosing rollback undoes it.
func (s *Session) Exec(ctx context.Context, sql string, args ...any) error {
	if s.dryRun && !s.inTx {
		s.logger.WithField("sql", sql).Info("[dry-run] exec skipped")
		return nil
	}
	qctx, cancel := s.deadline(ctx)
	defer cancel()
	return s.db.WithContext(qctx).Exec(sql, args...).Error
}

// ExecDDL runs a schema or generator mutation. Under dry-run it is always
// logged and suppressed, regardless of transaction state.
func (s *Session) ExecDDL(ctx context.Context, sql string, args ...any) error {
	if s.dryRun {
		s.logger.WithField("sql", sql).Info("[dry-run] ddl skipped")
		return nil
	}
	qctx, cancel := s.deadline(ctx)
	defer cancel()
	return s.db.WithContext(qctx).Exec(sql, args...).Error
}

// Query scans a read into dest.
func (s *Session) Query(ctx context.Context, dest any, sql string, args ...any) error {
	qctx, cancel := s.deadline(ctx)
	defer cancel()
	return s.db.WithContext(qctx).Raw(sql, args...).Scan(dest).Error
}

// WithTx runs fn inside a transaction. Under dry-run the transaction is
// rolled back even on success, and fn's returned error is still surfaced.
// A panic in fn rolls back before propagating, so the connection is never
// left holding an open transaction.
func (s *Session) WithTx(ctx context.Context, fn func(tx *Session) error) error {
	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return tx.Error
	}

	txSession := &Session{
		db:           tx,
		dialect:      s.dialect,
		catalog:      s.catalog,
		logger:       s.logger,
		dryRun:       s.dryRun,
		inTx:         true,
		queryTimeout: s.queryTimeout,
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(txSession); err != nil {
		tx.Rollback()
		return err
	}
	if s.dryRun {
		tx.Rollback()
		return nil
	}
	return tx.Commit().Error
}

// WithTxRetry is WithTx with bounded re-runs on transient failures (lock
// waits, deadlocks). fn must be safe to run again from scratch.
func (s *Session) WithTxRetry(ctx context.Context, fn func(tx *Session) error) error {
	return retryTransient(ctx, s.logger, func() error { return s.WithTx(ctx, fn) })
}

// retryTransient runs fn, re-running it while the error is retryable, up to
// transientRetries attempts with linear backoff.
func retryTransient(ctx context.Context, logger *logrus.Logger, fn func() error) error {
	var err error
	for attempt := 1; attempt <= transientRetries; attempt++ {
		err = fn()
		if err == nil || !IsRetryable(err) || ctx.Err() != nil {
			return err
		}
		if attempt < transientRetries {
			logger.WithFields(logrus.Fields{
				"attempt": attempt,
				"error":   err.Error(),
			}).Warn("transient database error, retrying")
			time.Sleep(time.Duration(attempt) * 100 * time.Millisecond)
		}
	}
	return err
}

// DDL helpers. These are the only supported way to change schema: every one
// is guarded, so migrations stay idempotent even before the ledger exists.

// AddColumnIfMissing returns true when it added the column.
func (s *Session) AddColumnIfMissing(ctx context.Context, table, column string, spec ColumnSpec) (bool, error) {
	exists, err := s.catalog.ColumnExists(ctx, s, table, column)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}
	if err := s.dialect.AddColumn(ctx, s, table, column, spec); err != nil {
		return false, err
	}
	s.catalog.InvalidateTable(table)
	return true, nil
}

// DropUniqueIfExists drops every unique constraint on table that covers
// exactly the given columns. Returns the names dropped.
func (s *Session) DropUniqueIfExists(ctx context.Context, table string, columns ...string) ([]string, error) {
	constraints, err := s.catalog.UniqueConstraints(ctx, s, table)
	if err != nil {
		return nil, err
	}
	var dropped []string
	for _, uc := range constraints {
		if !sameColumns(uc.Columns, columns) {
			continue
		}
		if err := s.dialect.DropUnique(ctx, s, table, uc); err != nil {
			return dropped, err
		}
		dropped = append(dropped, uc.Name)
	}
	if len(dropped) > 0 {
		s.catalog.InvalidateTable(table)
	}
	return dropped, nil
}

// CreateIndexIfMissing returns true when it created the index.
func (s *Session) CreateIndexIfMissing(ctx context.Context, table, name string, columns ...string) (bool, error) {
	exists, err := s.dialect.IndexExists(ctx, s, table, name)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}
	if err := s.dialect.CreateIndex(ctx, s, table, name, columns); err != nil {
		return false, err
	}
	s.catalog.InvalidateTable(table)
	return true, nil
}

func sameColumns(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
