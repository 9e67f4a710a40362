package table

import (
	"fmt"
	"log/slog"

	"github.com/leengari/minidb/internal/data"
	"github.com/leengari/minidb/internal/dberr"
)

// AddColumn appends a column to the schema, back-fills every existing row
// with a type-appropriate default (0 for int, "" for str, null otherwise)
// and rewrites the row log.
func (t *Table) AddColumn(name, columnType string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.Schema.HasColumn(name) {
		return &dberr.ValidationError{Table: t.Name, Reason: fmt.Sprintf("column '%s' already exists", name)}
	}

	var defaultValue interface{}
	switch columnType {
	case TypeInt:
		defaultValue = int64(0)
	case TypeStr:
		defaultValue = ""
	default:
		defaultValue = nil
	}

	old := t.rows
	oldSchema := t.Schema
	next := t.Schema.Copy()
	next.Columns = append(next.Columns, name)
	if columnType != "" {
		next.ColumnTypes[name] = columnType
	}

	newRows := copyRowsWith(t.rows, func(m map[string]interface{}) {
		m[name] = defaultValue
	})

	t.Schema = next
	t.rows = newRows
	if err := t.persistLocked(); err != nil {
		t.Schema = oldSchema
		t.rows = old
		return err
	}

	slog.Info("column added", "table", t.Name, "column", name, "type", columnType)
	return nil
}

// DropColumn removes a column from the schema, constraint sets and every
// row. The primary key must never be dropped.
func (t *Table) DropColumn(name string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if name == t.Schema.PrimaryKey {
		return &dberr.SchemaError{Table: t.Name, Reason: fmt.Sprintf("cannot drop primary key column '%s'", name)}
	}
	if !t.Schema.HasColumn(name) {
		return &dberr.ValidationError{Table: t.Name, Reason: fmt.Sprintf("column '%s' does not exist", name)}
	}

	old := t.rows
	oldSchema := t.Schema
	next := t.Schema.Copy()
	next.Columns = removeString(next.Columns, name)
	next.UniqueColumns = removeString(next.UniqueColumns, name)
	delete(next.ColumnTypes, name)
	delete(next.ForeignKeys, name)

	newRows := copyRowsWith(t.rows, func(m map[string]interface{}) {
		delete(m, name)
	})

	t.Schema = next
	t.rows = newRows
	if err := t.persistLocked(); err != nil {
		t.Schema = oldSchema
		t.rows = old
		return err
	}

	slog.Info("column dropped", "table", t.Name, "column", name)
	return nil
}

// RenameColumn renames a column across the schema, constraint maps and every
// row. Renaming the primary key updates the primary-key pointer; the index
// is rebuilt by the rewrite either way.
func (t *Table) RenameColumn(oldName, newName string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.Schema.HasColumn(oldName) {
		return &dberr.ValidationError{Table: t.Name, Reason: fmt.Sprintf("column '%s' does not exist", oldName)}
	}
	if t.Schema.HasColumn(newName) {
		return &dberr.ValidationError{Table: t.Name, Reason: fmt.Sprintf("column '%s' already exists", newName)}
	}

	old := t.rows
	oldSchema := t.Schema
	next := t.Schema.Copy()
	for i, col := range next.Columns {
		if col == oldName {
			next.Columns[i] = newName
		}
	}
	for i, col := range next.UniqueColumns {
		if col == oldName {
			next.UniqueColumns[i] = newName
		}
	}
	if typ, ok := next.ColumnTypes[oldName]; ok {
		delete(next.ColumnTypes, oldName)
		next.ColumnTypes[newName] = typ
	}
	if ref, ok := next.ForeignKeys[oldName]; ok {
		delete(next.ForeignKeys, oldName)
		next.ForeignKeys[newName] = ref
	}
	if next.PrimaryKey == oldName {
		next.PrimaryKey = newName
	}

	newRows := copyRowsWith(t.rows, func(m map[string]interface{}) {
		if val, ok := m[oldName]; ok {
			delete(m, oldName)
			m[newName] = val
		}
	})

	t.Schema = next
	t.rows = newRows
	if err := t.persistLocked(); err != nil {
		t.Schema = oldSchema
		t.rows = old
		return err
	}

	slog.Info("column renamed", "table", t.Name, "from", oldName, "to", newName)
	return nil
}

// copyRowsWith deep-copies the row list, applying mutate to each copy.
func copyRowsWith(rows []data.Row, mutate func(map[string]interface{})) []data.Row {
	out := data.CopyRows(rows)
	for i := range out {
		mutate(out[i].Data)
	}
	return out
}

func removeString(list []string, name string) []string {
	out := list[:0:0]
	for _, s := range list {
		if s != name {
			out = append(out, s)
		}
	}
	return out
}
