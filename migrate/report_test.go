package migrate

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestReportExitCodeFolding(t *testing.T) {
	r := NewReport("default", false)
	ok := newStageReport("migrate")
	ok.finish()
	r.addStage(ok)
	if r.ExitCode() != 0 {
		t.Fatalf("all ok should exit 0, got %d", r.ExitCode())
	}

	partial := newStageReport("backfill-tenants")
	partial.escalate(StagePartial)
	partial.finish()
	r.addStage(partial)
	if r.ExitCode() != 2 {
		t.Fatalf("partial should exit 2, got %d", r.ExitCode())
	}

	failed := newStageReport("reconcile-loyalty")
	failed.escalate(StageFailed)
	failed.finish()
	r.addStage(failed)
	if r.ExitCode() != 3 {
		t.Fatalf("failure should exit 3, got %d", r.ExitCode())
	}
}

func TestStageStatusNeverImproves(t *testing.T) {
	sr := newStageReport("migrate")
	sr.escalate(StageFailed)
	sr.escalate(StagePartial)
	if sr.Status != StageFailed {
		t.Fatalf("failed must stick, got %s", sr.Status)
	}

	sr = newStageReport("migrate")
	sr.escalate(StagePartial)
	if sr.Status != StagePartial {
		t.Fatalf("ok escalates to partial, got %s", sr.Status)
	}
}

func TestReportSummarySumsStageCounts(t *testing.T) {
	r := NewReport("default", true)
	a := newStageReport("migrate")
	a.Created, a.Skipped = 3, 1
	a.finish()
	b := newStageReport("repair-sequences")
	b.Updated, b.Failed = 2, 1
	b.finish()
	r.addStage(a)
	r.addStage(b)

	if r.Summary.Created != 3 || r.Summary.Updated != 2 || r.Summary.Skipped != 1 || r.Summary.Failed != 1 {
		t.Fatalf("unexpected summary: %+v", r.Summary)
	}
}

func TestReportWriteJSONShape(t *testing.T) {
	r := NewReport("staging", true)
	sr := newStageReport("migrate")
	sr.Created = 2
	sr.detailf("0001_baseline_schema: applied")
	sr.finish()
	r.addStage(sr)
	r.finish()

	var buf bytes.Buffer
	if err := r.WriteJSON(&buf); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("report is not valid JSON: %v", err)
	}
	for _, key := range []string{"run_id", "database", "dry_run", "stages", "summary"} {
		if _, ok := decoded[key]; !ok {
			t.Fatalf("report JSON missing %q: %s", key, buf.String())
		}
	}
	if decoded["database"] != "staging" || decoded["dry_run"] != true {
		t.Fatalf("unexpected header fields: %s", buf.String())
	}
}
