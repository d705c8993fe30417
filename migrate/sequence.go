package migrate

import (
	"context"

	"github.com/sirupsen/logrus"
)

const stageRepairSequences = "repair-sequences"

// SequenceTarget names one identity generator the repairer is allowed to
// touch. In both dialects the generator is keyed by the table name.
type SequenceTarget struct {
	Table    string
	IdColumn string
	Sequence string
}

// SequenceRegistry is the declared set of repairable generators. Data
// imports write explicit ids and leave these lagging; the bug only surfaces
// on the next insert.
func SequenceRegistry() []SequenceTarget {
	return []SequenceTarget{
		{Table: "users", IdColumn: "user_id", Sequence: "users"},
		{Table: "customers", IdColumn: "customer_id", Sequence: "customers"},
		{Table: "products", IdColumn: "product_id", Sequence: "products"},
		{Table: "bills", IdColumn: "bill_id", Sequence: "bills"},
		{Table: "bill_items", IdColumn: "bill_item_id", Sequence: "bill_items"},
		{Table: "expenses", IdColumn: "expense_id", Sequence: "expenses"},
		{Table: "expense_categories", IdColumn: "category_id", Sequence: "expense_categories"},
		{Table: "loyalty_transactions", IdColumn: "transaction_id", Sequence: "loyalty_transactions"},
	}
}

// SequenceRepairer aligns each registered generator to MAX(id)+1. The only
// component allowed to mutate identity generators; it never lowers one, so
// re-running is always safe. Assumes no concurrent writers (operator
// contract).
type SequenceRepairer struct {
	session *Session
	logger  *logrus.Logger
}

func NewSequenceRepairer(s *Session, logger *logrus.Logger) *SequenceRepairer {
	return &SequenceRepairer{session: s, logger: logger}
}

func (sr *SequenceRepairer) Run(ctx context.Context, targets []SequenceTarget) (*StageReport, error) {
	report := newStageReport(stageRepairSequences)
	defer report.finish()

	dialect := sr.session.Dialect()
	catalog := sr.session.Catalog()

	for _, t := range targets {
		if err := ctx.Err(); err != nil {
			report.escalate(StagePartial)
			report.detailf("%s: cancelled before start", t.Table)
			report.Skipped++
			continue
		}

		tableOK, err := catalog.TableExists(ctx, sr.session, t.Table)
		if err != nil {
			report.escalate(StageFailed)
			report.Failed++
			report.addError(WrapError(stageRepairSequences, t.Table, err))
			continue
		}
		if !tableOK {
			report.Skipped++
			report.detailf("%s: skipped-missing (no table)", t.Table)
			continue
		}

		seqOK, err := dialect.SequenceExists(ctx, sr.session, t.Sequence)
		if err != nil {
			report.escalate(StageFailed)
			report.Failed++
			report.addError(WrapError(stageRepairSequences, t.Sequence, err))
			continue
		}
		if !seqOK {
			report.Skipped++
			report.detailf("%s: skipped-missing (no sequence)", t.Sequence)
			continue
		}

		next, err := dialect.SequenceValue(ctx, sr.session, t.Sequence)
		if err != nil {
			report.escalate(StageFailed)
			report.Failed++
			report.addError(WrapError(stageRepairSequences, t.Sequence, err))
			continue
		}
		maxId, err := catalog.MaxId(ctx, sr.session, t.Table, t.IdColumn)
		if err != nil {
			report.escalate(StageFailed)
			report.Failed++
			report.addError(WrapError(stageRepairSequences, t.Table, err))
			continue
		}

		if next > maxId {
			report.Skipped++
			report.detailf("%s: aligned (next=%d > max=%d)", t.Sequence, next, maxId)
			continue
		}

		err = retryTransient(ctx, sr.logger, func() error {
			return dialect.SetSequence(ctx, sr.session, t.Sequence, maxId+1)
		})
		if err != nil {
			report.escalate(StageFailed)
			report.Failed++
			report.addError(WrapError(stageRepairSequences, t.Sequence, err))
			continue
		}
		report.Updated++
		report.detailf("%s: %d -> %d", t.Sequence, next, maxId+1)
		sr.logger.WithFields(logrus.Fields{
			"table":  t.Table,
			"before": next,
			"after":  maxId + 1,
		}).Info("sequence repaired")
	}
	return report, nil
}
