package migrate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/mattn/go-sqlite3"
)

// Kind classifies migrator errors. Propagation policy: per-row errors are
// recovered within their stage and summarized; per-migration errors abort
// their transaction but not the pipeline; config errors abort the process.
type Kind string

const (
	KindConfig        Kind = "config"
	KindConnection    Kind = "connection"
	KindDialect       Kind = "dialect"
	KindSyntax        Kind = "syntax"
	KindConstraint    Kind = "constraint"
	KindSerialization Kind = "serialization"
	KindTimeout       Kind = "timeout"
	KindPrecondition  Kind = "precondition-unmet"
	KindIntegrity     Kind = "integrity"
	KindUnknown       Kind = "unknown"
)

// Error carries the stage and object (table, row or migration) an operation
// failed on, so the report can point the operator at the right thing.
type Error struct {
	Kind    Kind
	Stage   string
	Object  string
	Message string
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Stage != "" {
		b.WriteString(" stage=" + e.Stage)
	}
	if e.Object != "" {
		b.WriteString(" object=" + e.Object)
	}
	if e.Message != "" {
		b.WriteString(": " + e.Message)
	}
	if e.Err != nil {
		b.WriteString(": " + e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewError(kind Kind, stage, object, message string, err error) *Error {
	return &Error{Kind: kind, Stage: stage, Object: object, Message: message, Err: err}
}

// WrapError classifies err and attaches stage/object. An already-typed error
// keeps its kind.
func WrapError(stage, object string, err error) *Error {
	var typed *Error
	if errors.As(err, &typed) {
		return &Error{Kind: typed.Kind, Stage: stage, Object: object, Err: err}
	}
	return &Error{Kind: Classify(err), Stage: stage, Object: object, Err: err}
}

// Classify maps driver and context errors onto the migrator's taxonomy.
func Classify(err error) Kind {
	if err == nil {
		return KindUnknown
	}

	var typed *Error
	if errors.As(err, &typed) {
		return typed.Kind
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	if errors.Is(err, context.Canceled) {
		return KindTimeout
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case 1062, 1169, 1452: // duplicate entry, unique violation, FK violation
			return KindConstraint
		case 1213: // deadlock
			return KindSerialization
		case 1205: // lock wait timeout
			return KindTimeout
		case 1064: // SQL syntax
			return KindSyntax
		case 1044, 1045: // access denied
			return KindConnection
		}
		return KindUnknown
	}
	if errors.Is(err, mysql.ErrInvalidConn) {
		return KindConnection
	}

	var sqErr sqlite3.Error
	if errors.As(err, &sqErr) {
		switch sqErr.Code {
		case sqlite3.ErrConstraint:
			return KindConstraint
		case sqlite3.ErrBusy, sqlite3.ErrLocked:
			return KindSerialization
		case sqlite3.ErrError:
			return KindSyntax
		case sqlite3.ErrCantOpen, sqlite3.ErrNotADB:
			return KindConnection
		}
		return KindUnknown
	}

	// gorm's sqlite driver sometimes surfaces constraint failures as plain
	// strings.
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "unique constraint"), strings.Contains(msg, "duplicate"):
		return KindConstraint
	case strings.Contains(msg, "database is locked"):
		return KindSerialization
	}
	return KindUnknown
}

// IsRetryable reports whether the error is transient. The pipeline retries
// these up to three times within a stage.
func IsRetryable(err error) bool {
	switch Classify(err) {
	case KindTimeout, KindSerialization:
		return true
	}
	return false
}

// ErrPreconditionUnmet is wrapped into precondition errors so runners can
// test for them with errors.Is.
var ErrPreconditionUnmet = errors.New("precondition unmet")

func preconditionErr(stage, object, format string, args ...any) *Error {
	return &Error{
		Kind:    KindPrecondition,
		Stage:   stage,
		Object:  object,
		Message: fmt.Sprintf(format, args...),
		Err:     ErrPreconditionUnmet,
	}
}
