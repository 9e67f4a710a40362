package dberr

import (
	"errors"
	"fmt"
	"strings"
)

// SyntaxError reports a statement that matched none of the known shapes.
type SyntaxError struct {
	Statement string // the offending statement text
	Reason    string // optional detail (unexpected token, etc.)
}

func (e *SyntaxError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("syntax error: %s: could not parse %q", e.Reason, e.Statement)
	}
	return fmt.Sprintf("syntax error: could not parse %q", e.Statement)
}

// TableNotFoundError is returned when a statement references an unknown table.
type TableNotFoundError struct {
	Table string
}

func (e *TableNotFoundError) Error() string {
	return fmt.Sprintf("table '%s' does not exist", e.Table)
}

// ValidationError covers schema/shape mismatches: a row whose key set does
// not match the column list, adding an existing column, renaming to a taken
// name, and similar.
type ValidationError struct {
	Table  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Table != "" {
		return fmt.Sprintf("validation failed for table '%s': %s", e.Table, e.Reason)
	}
	return fmt.Sprintf("validation failed: %s", e.Reason)
}

// ConstraintKind distinguishes the two constraint-violation categories.
type ConstraintKind string

const (
	ConstraintDuplicateKey ConstraintKind = "duplicate_key"
	ConstraintUnique       ConstraintKind = "unique"
)

// ConstraintError represents a violation of a uniqueness constraint, either
// on the primary key (duplicate_key) or on a declared-unique column.
type ConstraintError struct {
	Table  string
	Column string
	Value  interface{} // offending value (may be nil)
	Kind   ConstraintKind
}

func (e *ConstraintError) Error() string {
	parts := []string{fmt.Sprintf("constraint violation in %s.%s", e.Table, e.Column)}
	parts = append(parts, fmt.Sprintf("(%s)", e.Kind))
	if e.Value != nil {
		parts = append(parts, fmt.Sprintf("value=%v", e.Value))
	}
	return strings.Join(parts, " - ")
}

// TypeMismatchError reports a value that does not match a column's declared type.
type TypeMismatchError struct {
	Table    string
	Column   string
	Expected string // declared type: "int" or "str"
	Value    interface{}
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("type mismatch for column '%s' in table '%s': expected %s, got %T",
		e.Column, e.Table, e.Expected, e.Value)
}

// SchemaError reports an operation on a protected schema element, such as
// dropping the primary-key column.
type SchemaError struct {
	Table  string
	Reason string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema error for table '%s': %s", e.Table, e.Reason)
}

// BusyError is returned when a table lock cannot be acquired before the
// configured timeout elapses.
type BusyError struct {
	Table   string
	Timeout string
}

func (e *BusyError) Error() string {
	return fmt.Sprintf("could not acquire lock on table '%s' after %s, database is busy",
		e.Table, e.Timeout)
}

// IsConstraintViolation reports whether err is a duplicate-key or unique
// constraint violation.
func IsConstraintViolation(err error) bool {
	var ce *ConstraintError
	return errors.As(err, &ce)
}
