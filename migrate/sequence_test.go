package migrate

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/darzisoft/tailorpos-migrator/models"
	"github.com/shopspring/decimal"
)

func seedBill(t *testing.T, s *Session, billId, userId, customerId int, amount int64, date time.Time) {
	t.Helper()
	bill := models.Bill{
		BillId:      billId,
		UserId:      userId,
		CustomerId:  customerId,
		TotalAmount: decimal.NewFromInt(amount),
		BillDate:    date,
	}
	if err := s.DB().Create(&bill).Error; err != nil {
		t.Fatalf("seed bill %d: %v", billId, err)
	}
}

func TestSequenceRepairAfterImportedIds(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	s := newTestSession(t, db)
	migrateBaseline(t, s)

	// A data import wrote explicit ids 1, 2 and 100, then the generator was
	// left pointing at 2, as a restored dump does.
	now := time.Now()
	seedBill(t, s, 1, 1, 1, 100, now)
	seedBill(t, s, 2, 1, 1, 100, now)
	seedBill(t, s, 100, 1, 1, 100, now)
	if err := db.Exec(`UPDATE sqlite_sequence SET seq = 2 WHERE name = 'bills'`).Error; err != nil {
		t.Fatalf("force lagging generator: %v", err)
	}

	report, err := NewSequenceRepairer(s, testLogger()).Run(ctx, SequenceRegistry())
	if err != nil {
		t.Fatalf("repair: %v", err)
	}
	if report.Status != StageOK || report.Failed != 0 {
		t.Fatalf("repair status: %s, errors: %v", report.Status, report.Errors)
	}
	if report.Updated != 1 {
		t.Fatalf("only the bills generator lags, expected 1 update, got %d", report.Updated)
	}

	next, err := s.Dialect().SequenceValue(ctx, s, "bills")
	if err != nil {
		t.Fatalf("SequenceValue: %v", err)
	}
	if next != 101 {
		t.Fatalf("expected next id 101 after repair, got %d", next)
	}

	found := false
	for _, d := range report.Details {
		if strings.Contains(d, "bills: 3 -> 101") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected the before/after detail, got %v", report.Details)
	}
}

func TestSequenceRepairNeverLowers(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	s := newTestSession(t, db)
	migrateBaseline(t, s)

	seedBill(t, s, 1, 1, 1, 100, time.Now())
	if err := db.Exec(`UPDATE sqlite_sequence SET seq = 500 WHERE name = 'bills'`).Error; err != nil {
		t.Fatalf("raise generator: %v", err)
	}

	report, err := NewSequenceRepairer(s, testLogger()).Run(ctx, SequenceRegistry())
	if err != nil {
		t.Fatalf("repair: %v", err)
	}
	if report.Updated != 0 {
		t.Fatalf("an ahead generator must be left alone, got %d updates", report.Updated)
	}

	next, err := s.Dialect().SequenceValue(ctx, s, "bills")
	if err != nil {
		t.Fatalf("SequenceValue: %v", err)
	}
	if next != 501 {
		t.Fatalf("generator moved from 501 to %d", next)
	}
}

func TestSequenceRepairSkipsMissingTablesAndGenerators(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	s := newTestSession(t, db)

	// Virgin database: every target is skipped-missing and nothing fails.
	report, err := NewSequenceRepairer(s, testLogger()).Run(ctx, SequenceRegistry())
	if err != nil {
		t.Fatalf("repair: %v", err)
	}
	if report.Status != StageOK || report.Failed != 0 || report.Updated != 0 {
		t.Fatalf("unexpected report on virgin database: %+v", report)
	}
	if report.Skipped != len(SequenceRegistry()) {
		t.Fatalf("expected every target skipped, got %d of %d", report.Skipped, len(SequenceRegistry()))
	}
}

func TestSequenceRepairDryRunLeavesGeneratorAlone(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	s := newTestSession(t, db)
	migrateBaseline(t, s)

	seedBill(t, s, 100, 1, 1, 100, time.Now())
	if err := db.Exec(`UPDATE sqlite_sequence SET seq = 2 WHERE name = 'bills'`).Error; err != nil {
		t.Fatalf("force lagging generator: %v", err)
	}

	dry := newTestSession(t, db, WithDryRun(true))
	report, err := NewSequenceRepairer(dry, testLogger()).Run(ctx, SequenceRegistry())
	if err != nil {
		t.Fatalf("dry repair: %v", err)
	}
	if report.Updated != 1 {
		t.Fatalf("dry run should still plan the update, got %d", report.Updated)
	}

	next, err := s.Dialect().SequenceValue(ctx, s, "bills")
	if err != nil {
		t.Fatalf("SequenceValue: %v", err)
	}
	if next != 3 {
		t.Fatalf("dry run moved the generator to %d", next)
	}
}
