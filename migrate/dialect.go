package migrate

import (
	"context"
	"fmt"
	"regexp"

	"gorm.io/gorm"
)

// Dialect hides the differences between the server engine (MySQL) and the
// file engine (SQLite). Placeholder syntax is gorm's problem; identity
// generators, introspection and guarded DDL are this interface's. Callers
// never inspect the variant.
type Dialect interface {
	Name() string

	TableExists(ctx context.Context, s *Session, table string) (bool, error)
	ColumnExists(ctx context.Context, s *Session, table, column string) (bool, error)
	UniqueConstraints(ctx context.Context, s *Session, table string) ([]UniqueConstraint, error)

	// SequenceExists reports whether table has a live identity generator.
	SequenceExists(ctx context.Context, s *Session, table string) (bool, error)
	// SequenceValue returns the next value the generator will issue.
	SequenceValue(ctx context.Context, s *Session, table string) (int64, error)
	// SetSequence makes next the generator's next issued value. Sequence
	// repair is the only caller and never passes a lower value.
	SetSequence(ctx context.Context, s *Session, table string, next int64) error

	AddColumn(ctx context.Context, s *Session, table, column string, spec ColumnSpec) error
	DropUnique(ctx context.Context, s *Session, table string, uc UniqueConstraint) error
	IndexExists(ctx context.Context, s *Session, table, name string) (bool, error)
	CreateIndex(ctx context.Context, s *Session, table, name string, columns []string) error
}

// ColumnSpec is the dialect-neutral shape of a new column.
type ColumnSpec struct {
	Type    string // dialect-portable: TEXT, VARCHAR(n), INTEGER, BOOLEAN, DECIMAL(p,s), DATE
	NotNull bool
	Default string // rendered literally; quote string defaults yourself
}

// UniqueConstraint is a structured view of one unique constraint or unique
// index. FromIndex is true when it was created as a standalone index, which
// is the only form SQLite can drop without a table rebuild.
type UniqueConstraint struct {
	Name      string
	Columns   []string
	FromIndex bool
}

// DialectFor picks the variant from the gorm connection.
func DialectFor(db *gorm.DB) (Dialect, error) {
	switch db.Dialector.Name() {
	case "mysql":
		return mysqlDialect{}, nil
	case "sqlite", "sqlite3":
		return sqliteDialect{}, nil
	}
	return nil, NewError(KindDialect, "", "", fmt.Sprintf("unsupported dialect %q", db.Dialector.Name()), nil)
}

var identPattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// checkIdent rejects identifiers that cannot be safely interpolated into DDL.
// Parameters cannot carry identifiers, so this is the guard instead.
func checkIdent(names ...string) error {
	for _, n := range names {
		if !identPattern.MatchString(n) {
			return NewError(KindSyntax, "", n, "invalid identifier", nil)
		}
	}
	return nil
}

func renderColumn(spec ColumnSpec) string {
	out := spec.Type
	if spec.NotNull {
		out += " NOT NULL"
	}
	if spec.Default != "" {
		out += " DEFAULT " + spec.Default
	}
	return out
}
