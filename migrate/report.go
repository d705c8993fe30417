package migrate

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type StageStatus string

const (
	StageOK      StageStatus = "ok"
	StagePartial StageStatus = "partial" // some work skipped-blocked
	StageFailed  StageStatus = "failed"
	StageSkipped StageStatus = "skipped" // not reached (cancellation)
)

// StageReport is one pipeline stage's outcome plus its row counts.
type StageReport struct {
	Name       string      `json:"name"`
	Status     StageStatus `json:"status"`
	StartedAt  time.Time   `json:"started_at"`
	FinishedAt time.Time   `json:"finished_at"`
	DurationMs int64       `json:"duration_ms"`
	Details    []string    `json:"details,omitempty"`
	Errors     []string    `json:"errors,omitempty"`
	Created    int         `json:"created"`
	Updated    int         `json:"updated"`
	Skipped    int         `json:"skipped"`
	Failed     int         `json:"failed"`
}

func newStageReport(name string) *StageReport {
	return &StageReport{Name: name, Status: StageOK, StartedAt: time.Now().UTC()}
}

func (sr *StageReport) finish() {
	sr.FinishedAt = time.Now().UTC()
	sr.DurationMs = sr.FinishedAt.Sub(sr.StartedAt).Milliseconds()
}

func (sr *StageReport) detailf(format string, args ...any) {
	sr.Details = append(sr.Details, fmt.Sprintf(format, args...))
}

// escalate worsens the stage status, never improves it: failed sticks.
func (sr *StageReport) escalate(status StageStatus) {
	if sr.Status == StageFailed {
		return
	}
	if status == StageFailed || sr.Status == StageOK {
		sr.Status = status
	}
}

func (sr *StageReport) addError(err error) {
	sr.Errors = append(sr.Errors, err.Error())
}

type Summary struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// Report is the machine-readable run summary emitted by the driver.
type Report struct {
	RunId      string         `json:"run_id"`
	Database   string         `json:"database"`
	DryRun     bool           `json:"dry_run"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Stages     []*StageReport `json:"stages"`
	Summary    Summary        `json:"summary"`
}

func NewReport(database string, dryRun bool) *Report {
	return &Report{
		RunId:     uuid.NewString(),
		Database:  database,
		DryRun:    dryRun,
		StartedAt: time.Now().UTC(),
	}
}

func (r *Report) addStage(sr *StageReport) {
	r.Stages = append(r.Stages, sr)
	r.Summary.Created += sr.Created
	r.Summary.Updated += sr.Updated
	r.Summary.Skipped += sr.Skipped
	r.Summary.Failed += sr.Failed
}

func (r *Report) finish() {
	r.FinishedAt = time.Now().UTC()
}

// ExitCode folds stage outcomes into the process exit code:
// 0 success, 2 partial (skipped-blocked work), 3 failure.
func (r *Report) ExitCode() int {
	code := 0
	for _, sr := range r.Stages {
		switch sr.Status {
		case StageFailed:
			return 3
		case StagePartial, StageSkipped:
			code = 2
		}
	}
	return code
}

func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// Log streams the report through logrus for the human-facing mode.
func (r *Report) Log(logger *logrus.Logger) {
	for _, sr := range r.Stages {
		entry := logger.WithFields(logrus.Fields{
			"run_id":   r.RunId,
			"stage":    sr.Name,
			"status":   sr.Status,
			"created":  sr.Created,
			"updated":  sr.Updated,
			"skipped":  sr.Skipped,
			"failed":   sr.Failed,
			"duration": sr.DurationMs,
		})
		for _, d := range sr.Details {
			entry.Info(d)
		}
		for _, e := range sr.Errors {
			entry.Error(e)
		}
		entry.Info("stage finished")
	}
	logger.WithFields(logrus.Fields{
		"run_id":  r.RunId,
		"created": r.Summary.Created,
		"updated": r.Summary.Updated,
		"skipped": r.Summary.Skipped,
		"failed":  r.Summary.Failed,
		"dry_run": r.DryRun,
	}).Info("run finished")
}
