package table

import (
	"fmt"

	"github.com/leengari/minidb/internal/dberr"
)

// Column types a schema may declare. Untyped columns are unconstrained.
const (
	TypeInt = "int"
	TypeStr = "str"
)

// Schema describes one table: ordered column list (order is positional for
// INSERT ... VALUES), the primary-key column, declared types, uniqueness
// constraints and informational foreign-key references.
type Schema struct {
	Columns       []string          `json:"columns"`
	PrimaryKey    string            `json:"primary_key"`
	ColumnTypes   map[string]string `json:"column_types"`
	UniqueColumns []string          `json:"unique_columns"`
	ForeignKeys   map[string]string `json:"foreign_keys"` // local column -> "table.column"
}

// NewSchema normalizes and validates a schema definition. The primary key
// defaults to the first column when unspecified.
func NewSchema(columns []string, primaryKey string, columnTypes map[string]string, uniqueColumns []string, foreignKeys map[string]string) (*Schema, error) {
	if len(columns) == 0 {
		return nil, &dberr.ValidationError{Reason: "table must have at least one column"}
	}

	seen := make(map[string]bool, len(columns))
	for _, col := range columns {
		if seen[col] {
			return nil, &dberr.ValidationError{Reason: fmt.Sprintf("duplicate column name '%s'", col)}
		}
		seen[col] = true
	}

	if primaryKey == "" {
		primaryKey = columns[0]
	}
	if !seen[primaryKey] {
		return nil, &dberr.ValidationError{
			Reason: fmt.Sprintf("primary key column '%s' is not in the column list", primaryKey),
		}
	}

	if columnTypes == nil {
		columnTypes = make(map[string]string)
	}
	if foreignKeys == nil {
		foreignKeys = make(map[string]string)
	}

	return &Schema{
		Columns:       columns,
		PrimaryKey:    primaryKey,
		ColumnTypes:   columnTypes,
		UniqueColumns: uniqueColumns,
		ForeignKeys:   foreignKeys,
	}, nil
}

// HasColumn reports whether name is in the column list.
func (s *Schema) HasColumn(name string) bool {
	for _, col := range s.Columns {
		if col == name {
			return true
		}
	}
	return false
}

// IsUnique reports whether name carries a uniqueness constraint.
func (s *Schema) IsUnique(name string) bool {
	for _, col := range s.UniqueColumns {
		if col == name {
			return true
		}
	}
	return false
}

// Copy returns a deep copy, safe to hand to callers.
func (s *Schema) Copy() *Schema {
	dup := &Schema{
		Columns:       append([]string(nil), s.Columns...),
		PrimaryKey:    s.PrimaryKey,
		ColumnTypes:   make(map[string]string, len(s.ColumnTypes)),
		UniqueColumns: append([]string(nil), s.UniqueColumns...),
		ForeignKeys:   make(map[string]string, len(s.ForeignKeys)),
	}
	for k, v := range s.ColumnTypes {
		dup.ColumnTypes[k] = v
	}
	for k, v := range s.ForeignKeys {
		dup.ForeignKeys[k] = v
	}
	return dup
}
