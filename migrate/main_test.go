package migrate

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "migrator_test.db")
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite test database: %v", err)
	}
	return db
}

func newTestSession(t *testing.T, db *gorm.DB, opts ...SessionOption) *Session {
	t.Helper()
	s, err := NewSession(db, testLogger(), opts...)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	return s
}

// migrateBaseline runs the full registry and fails the test on anything but
// a clean apply.
func migrateBaseline(t *testing.T, s *Session) {
	t.Helper()
	report, err := NewRunner(s, testLogger()).Run(context.Background(), Registry())
	if err != nil {
		t.Fatalf("run registry: %v", err)
	}
	if report.Status != StageOK || report.Failed != 0 {
		t.Fatalf("registry did not apply cleanly: status=%s failed=%d errors=%v",
			report.Status, report.Failed, report.Errors)
	}
}

func countRows(t *testing.T, db *gorm.DB, table string) int64 {
	t.Helper()
	var count int64
	if err := db.Raw("SELECT COUNT(*) FROM " + table).Scan(&count).Error; err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return count
}
