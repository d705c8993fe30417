package migrate

import (
	"context"
	"time"

	"github.com/darzisoft/tailorpos-migrator/appctx"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Stage names, in strict pipeline order for the "all" subcommand.
var AllStages = []string{
	stageMigrate,
	stageRepairSequences,
	stageBackfillTenants,
	stageReconcileLoyalty,
}

const transientRetries = 3

// Options configure one pipeline invocation.
type Options struct {
	Database     string
	Actor        string
	DryRun       bool
	QueryTimeout time.Duration
}

// Pipeline composes the stages against a single session. Stages run in
// strict order; a stage that fails is recorded and the pipeline moves on,
// because later stages recover independently and the operator can re-run.
type Pipeline struct {
	session *Session
	logger  *logrus.Logger
	report  *Report
	actor   string
}

func NewPipeline(db *gorm.DB, logger *logrus.Logger, opts Options) (*Pipeline, error) {
	session, err := NewSession(db, logger,
		WithDryRun(opts.DryRun),
		WithQueryTimeout(opts.QueryTimeout),
	)
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		session: session,
		logger:  logger,
		report:  NewReport(opts.Database, opts.DryRun),
		actor:   opts.Actor,
	}, nil
}

func (p *Pipeline) Session() *Session { return p.session }

// Run executes the named stages and returns the run report. Cancellation is
// honored at stage boundaries; an in-flight transaction rolls back on its
// own when the context dies.
func (p *Pipeline) Run(ctx context.Context, stages []string) *Report {
	ctx = appctx.Set(ctx, appctx.ContextKeyRunId, p.report.RunId)
	ctx = appctx.Set(ctx, appctx.ContextKeyDryRun, p.report.DryRun)
	if p.actor != "" {
		ctx = appctx.Set(ctx, appctx.ContextKeyActor, p.actor)
	}

	for _, name := range stages {
		if ctx.Err() != nil {
			sr := newStageReport(name)
			sr.Status = StageSkipped
			sr.detailf("cancelled before stage start")
			sr.finish()
			p.report.addStage(sr)
			continue
		}

		p.logger.WithFields(logrus.Fields{
			"run_id": p.report.RunId,
			"stage":  name,
		}).Info("stage starting")

		sr := p.runStageWithRetry(ctx, name)
		p.report.addStage(sr)
	}

	p.report.finish()
	return p.report
}

func (p *Pipeline) Report() *Report { return p.report }

// runStageWithRetry re-runs a stage whose stage-level error was transient
// (deadlock, lock timeout). Every stage is idempotent, so a retry repeats
// only the work the failed attempt did not commit.
func (p *Pipeline) runStageWithRetry(ctx context.Context, name string) *StageReport {
	var sr *StageReport
	var err error
	for attempt := 1; attempt <= transientRetries; attempt++ {
		sr, err = p.runStage(ctx, name)
		if err == nil || !IsRetryable(err) || ctx.Err() != nil {
			break
		}
		p.logger.WithFields(logrus.Fields{
			"stage":   name,
			"attempt": attempt,
		}).Warn("transient stage error; retrying")
		time.Sleep(time.Duration(attempt) * time.Second)
	}
	if err != nil {
		sr.escalate(StageFailed)
		sr.addError(WrapError(name, "", err))
	}
	return sr
}

func (p *Pipeline) runStage(ctx context.Context, name string) (*StageReport, error) {
	switch name {
	case stageMigrate:
		return NewRunner(p.session, p.logger).Run(ctx, Registry())
	case stageRepairSequences:
		return NewSequenceRepairer(p.session, p.logger).Run(ctx, SequenceRegistry())
	case stageBackfillTenants:
		return NewTenantBackfiller(p.session, p.logger).Run(ctx)
	case stageReconcileLoyalty:
		return NewLoyaltyReconciler(p.session, p.logger).Run(ctx)
	}
	sr := newStageReport(name)
	sr.finish()
	sr.escalate(StageFailed)
	return sr, NewError(KindConfig, name, "", "unknown stage", nil)
}

// StagesFor maps a driver subcommand to the stage list it runs.
func StagesFor(subcommand string) ([]string, bool) {
	switch subcommand {
	case "all":
		return AllStages, true
	case stageMigrate, stageRepairSequences, stageBackfillTenants, stageReconcileLoyalty:
		return []string{subcommand}, true
	}
	return nil, false
}
