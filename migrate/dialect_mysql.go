package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// mysqlDialect introspects through information_schema. The connection is
// opened with information_schema_stats_expiry=0 so AUTO_INCREMENT reads are
// live (see config.ConnectDatabaseWithRetry).
type mysqlDialect struct{}

func (mysqlDialect) Name() string { return "mysql" }

func (mysqlDialect) TableExists(ctx context.Context, s *Session, table string) (bool, error) {
	var count int64
	err := s.Query(ctx, &count, `
		SELECT COUNT(*) FROM information_schema.TABLES
		WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ?
	`, table)
	return count > 0, err
}

func (mysqlDialect) ColumnExists(ctx context.Context, s *Session, table, column string) (bool, error) {
	var count int64
	err := s.Query(ctx, &count, `
		SELECT COUNT(*) FROM information_schema.COLUMNS
		WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ? AND COLUMN_NAME = ?
	`, table, column)
	return count > 0, err
}

func (mysqlDialect) UniqueConstraints(ctx context.Context, s *Session, table string) ([]UniqueConstraint, error) {
	var rows []struct {
		IndexName  string `gorm:"column:INDEX_NAME"`
		ColumnName string `gorm:"column:COLUMN_NAME"`
	}
	err := s.Query(ctx, &rows, `
		SELECT INDEX_NAME, COLUMN_NAME
		FROM information_schema.STATISTICS
		WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ? AND NON_UNIQUE = 0
		  AND INDEX_NAME <> 'PRIMARY'
		ORDER BY INDEX_NAME, SEQ_IN_INDEX
	`, table)
	if err != nil {
		return nil, err
	}

	var out []UniqueConstraint
	for _, row := range rows {
		if n := len(out); n > 0 && out[n-1].Name == row.IndexName {
			out[n-1].Columns = append(out[n-1].Columns, row.ColumnName)
			continue
		}
		out = append(out, UniqueConstraint{
			Name:    row.IndexName,
			Columns: []string{row.ColumnName},
			// MySQL implements every UNIQUE as an index, droppable as one.
			FromIndex: true,
		})
	}
	return out, nil
}

func (d mysqlDialect) SequenceExists(ctx context.Context, s *Session, table string) (bool, error) {
	next, err := d.autoIncrement(ctx, s, table)
	if err != nil {
		return false, err
	}
	return next.Valid, nil
}

func (d mysqlDialect) SequenceValue(ctx context.Context, s *Session, table string) (int64, error) {
	next, err := d.autoIncrement(ctx, s, table)
	if err != nil {
		return 0, err
	}
	if !next.Valid {
		return 0, NewError(KindDialect, "", table, "table has no AUTO_INCREMENT counter", nil)
	}
	return next.Int64, nil
}

func (mysqlDialect) autoIncrement(ctx context.Context, s *Session, table string) (sql.NullInt64, error) {
	var next sql.NullInt64
	err := s.Query(ctx, &next, `
		SELECT AUTO_INCREMENT FROM information_schema.TABLES
		WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ?
	`, table)
	return next, err
}

func (mysqlDialect) SetSequence(ctx context.Context, s *Session, table string, next int64) error {
	if err := checkIdent(table); err != nil {
		return err
	}
	// "not yet consumed" semantics: AUTO_INCREMENT stores the next value to
	// issue.
	return s.ExecDDL(ctx, fmt.Sprintf("ALTER TABLE `%s` AUTO_INCREMENT = %d", table, next))
}

func (mysqlDialect) AddColumn(ctx context.Context, s *Session, table, column string, spec ColumnSpec) error {
	if err := checkIdent(table, column); err != nil {
		return err
	}
	return s.ExecDDL(ctx, fmt.Sprintf("ALTER TABLE `%s` ADD COLUMN `%s` %s", table, column, renderColumnMySQL(spec)))
}

// renderColumnMySQL renders TEXT/BLOB-family defaults in the parenthesized
// expression form. MySQL rejects a literal default on those types with
// error 1101; only the expression form is accepted, and only on 8.0.13+.
func renderColumnMySQL(spec ColumnSpec) string {
	if spec.Default == "" || !mysqlNeedsExprDefault(spec.Type) {
		return renderColumn(spec)
	}
	out := spec.Type
	if spec.NotNull {
		out += " NOT NULL"
	}
	return out + " DEFAULT (" + spec.Default + ")"
}

func mysqlNeedsExprDefault(columnType string) bool {
	base := strings.ToUpper(columnType)
	if i := strings.IndexByte(base, '('); i >= 0 {
		base = base[:i]
	}
	switch strings.TrimSpace(base) {
	case "TEXT", "TINYTEXT", "MEDIUMTEXT", "LONGTEXT",
		"BLOB", "TINYBLOB", "MEDIUMBLOB", "LONGBLOB",
		"JSON", "GEOMETRY":
		return true
	}
	return false
}

func (mysqlDialect) DropUnique(ctx context.Context, s *Session, table string, uc UniqueConstraint) error {
	if err := checkIdent(table, uc.Name); err != nil {
		return err
	}
	return s.ExecDDL(ctx, fmt.Sprintf("ALTER TABLE `%s` DROP INDEX `%s`", table, uc.Name))
}

func (mysqlDialect) IndexExists(ctx context.Context, s *Session, table, name string) (bool, error) {
	var count int64
	err := s.Query(ctx, &count, `
		SELECT COUNT(*) FROM information_schema.STATISTICS
		WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ? AND INDEX_NAME = ?
	`, table, name)
	return count > 0, err
}

func (mysqlDialect) CreateIndex(ctx context.Context, s *Session, table, name string, columns []string) error {
	if err := checkIdent(append([]string{table, name}, columns...)...); err != nil {
		return err
	}
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = "`" + c + "`"
	}
	return s.ExecDDL(ctx, fmt.Sprintf("CREATE INDEX `%s` ON `%s` (%s)", name, table, strings.Join(quoted, ", ")))
}
