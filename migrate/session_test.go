package migrate

import (
	"context"
	"errors"
	"testing"

	"github.com/mattn/go-sqlite3"
)

func TestWithTxRetryRecoversFromTransientErrors(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	s := newTestSession(t, db)
	if err := db.Exec(`CREATE TABLE markers (marker_id integer PRIMARY KEY AUTOINCREMENT, label varchar(20))`).Error; err != nil {
		t.Fatalf("create markers table: %v", err)
	}

	attempts := 0
	err := s.WithTxRetry(ctx, func(tx *Session) error {
		attempts++
		if attempts < 3 {
			return sqlite3.Error{Code: sqlite3.ErrBusy}
		}
		return tx.Exec(ctx, `INSERT INTO markers (label) VALUES ('ok')`)
	})
	if err != nil {
		t.Fatalf("expected the transient error to be retried away, got %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
	if got := countRows(t, db, "markers"); got != 1 {
		t.Fatalf("expected the retried transaction to commit, got %d rows", got)
	}
}

func TestWithTxRetryGivesUpAfterBoundedAttempts(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	s := newTestSession(t, db)

	attempts := 0
	err := s.WithTxRetry(ctx, func(tx *Session) error {
		attempts++
		return sqlite3.Error{Code: sqlite3.ErrLocked}
	})
	if err == nil {
		t.Fatalf("expected the transient error to surface after retries")
	}
	if attempts != transientRetries {
		t.Fatalf("expected %d attempts, got %d", transientRetries, attempts)
	}
}

func TestWithTxRetryDoesNotRetryPermanentErrors(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	s := newTestSession(t, db)

	boom := errors.New("boom")
	attempts := 0
	err := s.WithTxRetry(ctx, func(tx *Session) error {
		attempts++
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected the original error back, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("permanent errors must not be retried, got %d attempts", attempts)
	}
}

func TestWithTxRollsBackOnPanic(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	s := newTestSession(t, db)
	if err := db.Exec(`CREATE TABLE markers (marker_id integer PRIMARY KEY AUTOINCREMENT, label varchar(20))`).Error; err != nil {
		t.Fatalf("create markers table: %v", err)
	}

	func() {
		defer func() {
			if r := recover(); r == nil {
				t.Fatalf("panic must propagate out of WithTx")
			}
		}()
		_ = s.WithTx(ctx, func(tx *Session) error {
			if err := tx.Exec(ctx, `INSERT INTO markers (label) VALUES ('doomed')`); err != nil {
				return err
			}
			panic("mid-transaction failure")
		})
	}()

	if got := countRows(t, db, "markers"); got != 0 {
		t.Fatalf("panicking transaction left %d rows behind", got)
	}

	// The connection must be usable again: a leaked open transaction on the
	// file-backed database would make this write fail with a lock error.
	if err := s.WithTx(ctx, func(tx *Session) error {
		return tx.Exec(ctx, `INSERT INTO markers (label) VALUES ('after')`)
	}); err != nil {
		t.Fatalf("write after recovered panic: %v", err)
	}
	if got := countRows(t, db, "markers"); got != 1 {
		t.Fatalf("expected one committed row, got %d", got)
	}
}
