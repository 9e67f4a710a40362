package table

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/leengari/minidb/internal/data"
	"github.com/leengari/minidb/internal/dberr"
	"github.com/leengari/minidb/internal/index"
)

// Insert validates a row against the schema and constraints, then appends it
// to the row log, the index and the in-memory list. Every check runs before
// any disk write, so a rejected insert never partially mutates the log.
func (t *Table) Insert(row data.Row) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.validateShape(row); err != nil {
		return err
	}
	if err := t.validateTypes(row); err != nil {
		return err
	}
	if err := t.checkPrimaryKey(row); err != nil {
		return err
	}
	if err := t.checkUnique(row); err != nil {
		return err
	}

	stored := row.Copy()
	if err := t.appendLocked(stored); err != nil {
		return err
	}
	t.rows = append(t.rows, stored)

	slog.Debug("row inserted", "table", t.Name, "rows", len(t.rows))
	return nil
}

// SelectAll returns up to limit rows (all rows when limit < 0).
func (t *Table) SelectAll(limit int) []data.Row {
	t.mu.RLock()
	defer t.mu.RUnlock()

	n := len(t.rows)
	if limit >= 0 && limit < n {
		n = limit
	}
	return data.CopyRows(t.rows[:n])
}

// SelectWhere returns rows matching column <op> value. Equality on an
// integer primary key takes the O(log N) indexed path: binary search the
// index file, then seek directly to the row's offset in the log. Everything
// else is a linear scan of the in-memory list. For op "IN", value must be a
// []interface{} of candidate values.
func (t *Table) SelectWhere(column, op string, value interface{}, limit int) ([]data.Row, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if !t.Schema.HasColumn(column) {
		return nil, &dberr.ValidationError{Table: t.Name, Reason: fmt.Sprintf("unknown column '%s'", column)}
	}

	if column == t.Schema.PrimaryKey && op == "=" {
		if key, ok := asInt(value); ok && index.Indexable(key) {
			return t.selectByIndex(key)
		}
	}

	var result []data.Row
	for _, row := range t.rows {
		if matches(row.Data[column], op, value) {
			result = append(result, row.Copy())
			if limit >= 0 && len(result) >= limit {
				break
			}
		}
	}
	return result, nil
}

// selectByIndex resolves an integer primary-key equality through the disk
// index. Callers hold at least the read mutex.
func (t *Table) selectByIndex(key int64) ([]data.Row, error) {
	if err := t.locks.Acquire(t.Name); err != nil {
		return nil, err
	}
	defer t.locks.Release(t.Name)

	offset, found, err := t.idx.Find(key)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}

	f, err := os.Open(t.logPath())
	if err != nil {
		return nil, fmt.Errorf("open row log for table '%s': %w", t.Name, err)
	}
	defer f.Close()

	if _, err := f.Seek(offset, 0); err != nil {
		return nil, fmt.Errorf("seek row log for table '%s': %w", t.Name, err)
	}
	line, err := bufio.NewReader(f).ReadBytes('\n')
	if err != nil && len(line) == 0 {
		return nil, fmt.Errorf("read row log for table '%s' at offset %d: %w", t.Name, offset, err)
	}

	var row data.Row
	if err := json.Unmarshal(line, &row); err != nil {
		return nil, fmt.Errorf("corrupt row at offset %d in table '%s': %w", offset, t.Name, err)
	}

	slog.Debug("indexed lookup", "table", t.Name, "key", key, "offset", offset)
	return []data.Row{row}, nil
}

// DeleteWhere removes matching rows, persists the remaining list via a full
// atomic rewrite and rebuilds the index. Returns the number removed.
func (t *Table) DeleteWhere(column, op string, value interface{}) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.Schema.HasColumn(column) {
		return 0, &dberr.ValidationError{Table: t.Name, Reason: fmt.Sprintf("unknown column '%s'", column)}
	}

	kept := t.rows[:0:0]
	deleted := 0
	for _, row := range t.rows {
		if matches(row.Data[column], op, value) {
			deleted++
		} else {
			kept = append(kept, row)
		}
	}

	if deleted == 0 {
		return 0, nil
	}

	old := t.rows
	t.rows = kept
	if err := t.persistLocked(); err != nil {
		t.rows = old
		return 0, err
	}

	slog.Debug("rows deleted", "table", t.Name, "count", deleted)
	return deleted, nil
}

// UpdateWhere sets targetColumn = targetValue on every matching row, then
// persists via a full atomic rewrite. Updating the primary key forces the
// same index rebuild every full rewrite performs.
func (t *Table) UpdateWhere(condColumn, op string, condValue interface{}, targetColumn string, targetValue interface{}) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.Schema.HasColumn(condColumn) {
		return 0, &dberr.ValidationError{Table: t.Name, Reason: fmt.Sprintf("unknown column '%s'", condColumn)}
	}
	if !t.Schema.HasColumn(targetColumn) {
		return 0, &dberr.ValidationError{Table: t.Name, Reason: fmt.Sprintf("unknown column '%s'", targetColumn)}
	}
	if err := t.validateValueType(targetColumn, targetValue); err != nil {
		return 0, err
	}

	updated := 0
	touched := make([]int, 0)
	for i, row := range t.rows {
		if matches(row.Data[condColumn], op, condValue) {
			touched = append(touched, i)
			updated++
		}
	}
	if updated == 0 {
		return 0, nil
	}

	// Apply on copies so a failed persist leaves the cache untouched.
	old := t.rows
	next := data.CopyRows(t.rows)
	for _, i := range touched {
		next[i].Data[targetColumn] = targetValue
	}
	t.rows = next
	if err := t.persistLocked(); err != nil {
		t.rows = old
		return 0, err
	}

	slog.Debug("rows updated", "table", t.Name, "count", updated)
	return updated, nil
}

// validateShape requires the row's key set to equal the column list exactly.
func (t *Table) validateShape(row data.Row) error {
	var missing, extra []string
	for _, col := range t.Schema.Columns {
		if _, ok := row.Data[col]; !ok {
			missing = append(missing, col)
		}
	}
	for key := range row.Data {
		if !t.Schema.HasColumn(key) {
			extra = append(extra, key)
		}
	}
	if len(missing) == 0 && len(extra) == 0 {
		return nil
	}

	sort.Strings(missing)
	sort.Strings(extra)
	var parts []string
	if len(missing) > 0 {
		parts = append(parts, fmt.Sprintf("missing columns: %s", strings.Join(missing, ", ")))
	}
	if len(extra) > 0 {
		parts = append(parts, fmt.Sprintf("unexpected columns: %s", strings.Join(extra, ", ")))
	}
	return &dberr.ValidationError{Table: t.Name, Reason: strings.Join(parts, "; ")}
}

func (t *Table) validateTypes(row data.Row) error {
	for col, declared := range t.Schema.ColumnTypes {
		val, ok := row.Data[col]
		if !ok {
			continue
		}
		if err := t.checkValueType(col, declared, val); err != nil {
			return err
		}
	}
	return nil
}

func (t *Table) validateValueType(column string, value interface{}) error {
	declared, ok := t.Schema.ColumnTypes[column]
	if !ok {
		return nil
	}
	return t.checkValueType(column, declared, value)
}

func (t *Table) checkValueType(column, declared string, value interface{}) error {
	switch declared {
	case TypeInt:
		if _, ok := asInt(value); !ok {
			return &dberr.TypeMismatchError{Table: t.Name, Column: column, Expected: TypeInt, Value: value}
		}
	case TypeStr:
		if _, ok := value.(string); !ok {
			return &dberr.TypeMismatchError{Table: t.Name, Column: column, Expected: TypeStr, Value: value}
		}
	}
	return nil
}

// checkPrimaryKey rejects a duplicate primary-key value. Integer keys are
// checked through the disk index; everything else scans the cached rows.
func (t *Table) checkPrimaryKey(row data.Row) error {
	pk := t.Schema.PrimaryKey
	val := row.Data[pk]

	if key, ok := asInt(val); ok && index.Indexable(key) {
		if err := t.locks.Acquire(t.Name); err != nil {
			return err
		}
		_, found, err := t.idx.Find(key)
		t.locks.Release(t.Name)
		if err != nil {
			return err
		}
		if found {
			return &dberr.ConstraintError{Table: t.Name, Column: pk, Value: val, Kind: dberr.ConstraintDuplicateKey}
		}
		return nil
	}

	for _, existing := range t.rows {
		if data.Equal(existing.Data[pk], val) {
			return &dberr.ConstraintError{Table: t.Name, Column: pk, Value: val, Kind: dberr.ConstraintDuplicateKey}
		}
	}
	return nil
}

func (t *Table) checkUnique(row data.Row) error {
	for _, col := range t.Schema.UniqueColumns {
		if col == t.Schema.PrimaryKey {
			continue // already enforced as the primary key
		}
		val := row.Data[col]
		for _, existing := range t.rows {
			if data.Equal(existing.Data[col], val) {
				return &dberr.ConstraintError{Table: t.Name, Column: col, Value: val, Kind: dberr.ConstraintUnique}
			}
		}
	}
	return nil
}

// ValidateStagedInsert validates a row for insertion against an arbitrary
// row list instead of the table's own cache. Used inside transactions, where
// the staging area is the visible state; the disk index is not consulted
// since it only reflects committed rows.
func (t *Table) ValidateStagedInsert(row data.Row, existing []data.Row) error {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if err := t.validateShape(row); err != nil {
		return err
	}
	if err := t.validateTypes(row); err != nil {
		return err
	}

	pk := t.Schema.PrimaryKey
	pkVal := row.Data[pk]
	for _, r := range existing {
		if data.Equal(r.Data[pk], pkVal) {
			return &dberr.ConstraintError{Table: t.Name, Column: pk, Value: pkVal, Kind: dberr.ConstraintDuplicateKey}
		}
	}
	for _, col := range t.Schema.UniqueColumns {
		if col == pk {
			continue
		}
		val := row.Data[col]
		for _, r := range existing {
			if data.Equal(r.Data[col], val) {
				return &dberr.ConstraintError{Table: t.Name, Column: col, Value: val, Kind: dberr.ConstraintUnique}
			}
		}
	}
	return nil
}

// CheckValueType validates a value against a column's declared type, if any.
func (t *Table) CheckValueType(column string, value interface{}) error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.validateValueType(column, value)
}

// MatchValue evaluates one predicate against a cell with the same coercion
// semantics SelectWhere's scan uses.
func MatchValue(rowValue interface{}, op string, target interface{}) bool {
	return matches(rowValue, op, target)
}

// FilterRows applies column <op> value over an arbitrary row list, copying
// matches up to limit (no limit when negative). The transaction layer uses
// this to query staged rows with the same semantics as SelectWhere's scan.
func FilterRows(rows []data.Row, column, op string, value interface{}, limit int) []data.Row {
	var result []data.Row
	for _, row := range rows {
		if matches(row.Data[column], op, value) {
			result = append(result, row.Copy())
			if limit >= 0 && len(result) >= limit {
				break
			}
		}
	}
	return result
}

// matches evaluates one predicate against a cell. "IN" expects a slice of
// candidate values and matches if any candidate equals the cell.
func matches(rowValue interface{}, op string, target interface{}) bool {
	if op == "IN" {
		candidates, ok := target.([]interface{})
		if !ok {
			return false
		}
		for _, c := range candidates {
			if data.Equal(rowValue, c) {
				return true
			}
		}
		return false
	}
	return data.Matches(rowValue, op, target)
}
