package migrate

import (
	"context"
	"fmt"
	"strings"
)

// sqliteDialect serves the development/file engine. Identity generators live
// in the sqlite_sequence bookkeeping table, which only exists once an
// AUTOINCREMENT table has seen an insert.
type sqliteDialect struct{}

func (sqliteDialect) Name() string { return "sqlite" }

func (sqliteDialect) TableExists(ctx context.Context, s *Session, table string) (bool, error) {
	var count int64
	err := s.Query(ctx, &count,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, table)
	return count > 0, err
}

func (d sqliteDialect) ColumnExists(ctx context.Context, s *Session, table, column string) (bool, error) {
	cols, err := d.tableInfo(ctx, s, table)
	if err != nil {
		return false, err
	}
	for _, c := range cols {
		if c == column {
			return true, nil
		}
	}
	return false, nil
}

func (sqliteDialect) tableInfo(ctx context.Context, s *Session, table string) ([]string, error) {
	if err := checkIdent(table); err != nil {
		return nil, err
	}
	var rows []struct {
		Name string `gorm:"column:name"`
	}
	if err := s.Query(ctx, &rows, fmt.Sprintf("PRAGMA table_info(`%s`)", table)); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Name)
	}
	return out, nil
}

func (sqliteDialect) UniqueConstraints(ctx context.Context, s *Session, table string) ([]UniqueConstraint, error) {
	if err := checkIdent(table); err != nil {
		return nil, err
	}
	var indexes []struct {
		Name   string `gorm:"column:name"`
		Unique int    `gorm:"column:unique"`
		Origin string `gorm:"column:origin"`
	}
	if err := s.Query(ctx, &indexes, fmt.Sprintf("PRAGMA index_list(`%s`)", table)); err != nil {
		return nil, err
	}

	var out []UniqueConstraint
	for _, idx := range indexes {
		if idx.Unique == 0 || idx.Origin == "pk" {
			continue
		}
		if err := checkIdent(idx.Name); err != nil {
			continue
		}
		var cols []struct {
			Name string `gorm:"column:name"`
		}
		if err := s.Query(ctx, &cols, fmt.Sprintf("PRAGMA index_info(`%s`)", idx.Name)); err != nil {
			return nil, err
		}
		uc := UniqueConstraint{
			Name: idx.Name,
			// origin 'c' = CREATE UNIQUE INDEX, droppable;
			// origin 'u' = inline UNIQUE constraint, needs a table rebuild.
			FromIndex: idx.Origin == "c",
		}
		for _, c := range cols {
			uc.Columns = append(uc.Columns, c.Name)
		}
		out = append(out, uc)
	}
	return out, nil
}

func (d sqliteDialect) SequenceExists(ctx context.Context, s *Session, table string) (bool, error) {
	hasSeqTable, err := d.TableExists(ctx, s, "sqlite_sequence")
	if err != nil || !hasSeqTable {
		return false, err
	}
	var count int64
	err = s.Query(ctx, &count, `SELECT COUNT(*) FROM sqlite_sequence WHERE name = ?`, table)
	return count > 0, err
}

func (sqliteDialect) SequenceValue(ctx context.Context, s *Session, table string) (int64, error) {
	// sqlite_sequence.seq holds the last issued value; the next insert gets
	// seq + 1.
	var seq int64
	if err := s.Query(ctx, &seq, `SELECT seq FROM sqlite_sequence WHERE name = ?`, table); err != nil {
		return 0, err
	}
	return seq + 1, nil
}

func (d sqliteDialect) SetSequence(ctx context.Context, s *Session, table string, next int64) error {
	if s.DryRun() {
		s.logger.WithField("sql", fmt.Sprintf("UPDATE sqlite_sequence SET seq = %d WHERE name = '%s'", next-1, table)).
			Info("[dry-run] ddl skipped")
		return nil
	}
	exists, err := d.SequenceExists(ctx, s, table)
	if err != nil {
		return err
	}
	if exists {
		return s.ExecDDL(ctx, `UPDATE sqlite_sequence SET seq = ? WHERE name = ?`, next-1, table)
	}
	return s.ExecDDL(ctx, `INSERT INTO sqlite_sequence (name, seq) VALUES (?, ?)`, table, next-1)
}

func (sqliteDialect) AddColumn(ctx context.Context, s *Session, table, column string, spec ColumnSpec) error {
	if err := checkIdent(table, column); err != nil {
		return err
	}
	return s.ExecDDL(ctx, fmt.Sprintf("ALTER TABLE `%s` ADD COLUMN `%s` %s", table, column, renderColumn(spec)))
}

func (sqliteDialect) DropUnique(ctx context.Context, s *Session, table string, uc UniqueConstraint) error {
	if err := checkIdent(uc.Name); err != nil {
		return err
	}
	if !uc.FromIndex {
		return NewError(KindDialect, "", table,
			fmt.Sprintf("unique constraint %q is declared in the table definition; sqlite needs a table rebuild to drop it", uc.Name), nil)
	}
	return s.ExecDDL(ctx, fmt.Sprintf("DROP INDEX `%s`", uc.Name))
}

func (sqliteDialect) IndexExists(ctx context.Context, s *Session, table, name string) (bool, error) {
	var count int64
	err := s.Query(ctx, &count,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'index' AND tbl_name = ? AND name = ?`, table, name)
	return count > 0, err
}

func (sqliteDialect) CreateIndex(ctx context.Context, s *Session, table, name string, columns []string) error {
	if err := checkIdent(append([]string{table, name}, columns...)...); err != nil {
		return err
	}
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = "`" + c + "`"
	}
	return s.ExecDDL(ctx, fmt.Sprintf("CREATE INDEX IF NOT EXISTS `%s` ON `%s` (%s)", name, table, strings.Join(quoted, ", ")))
}
