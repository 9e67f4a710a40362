package table

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/leengari/minidb/internal/data"
	"github.com/leengari/minidb/internal/index"
	"github.com/leengari/minidb/internal/lock"
	"github.com/leengari/minidb/internal/storage"
)

// Table owns one table's schema, its in-memory working copy of rows and its
// on-disk artifacts: the append-ordered row log (one JSON record per line),
// the derived primary-key index and the advisory lock marker.
//
// The row log is ground truth. The in-memory list is a write-through cache
// rebuilt from disk on load; the index is rebuilt whenever offsets change.
// The embedded mutex serializes threads within this process; the lock
// manager's marker file coordinates cooperating processes.
type Table struct {
	mu     sync.RWMutex
	Name   string
	Schema *Schema

	dataDir string
	rows    []data.Row
	locks   *lock.Manager
	idx     *index.Indexer
}

// Open loads (or creates) a table from its row log in dataDir.
func Open(name string, schema *Schema, dataDir string, locks *lock.Manager) (*Table, error) {
	t := &Table{
		Name:    name,
		Schema:  schema,
		dataDir: dataDir,
		locks:   locks,
		idx:     index.New(filepath.Join(dataDir, name+".idx")),
	}
	if err := t.load(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Table) logPath() string {
	return filepath.Join(t.dataDir, t.Name+".jsonl")
}

// load rebuilds the in-memory row list and the disk index from the row log.
func (t *Table) load() error {
	if err := t.locks.Acquire(t.Name); err != nil {
		return err
	}
	defer t.locks.Release(t.Name)

	f, err := os.Open(t.logPath())
	if err != nil {
		if os.IsNotExist(err) {
			t.rows = nil
			return t.rebuildIndex(nil)
		}
		return fmt.Errorf("open row log for table '%s': %w", t.Name, err)
	}
	defer f.Close()

	var rows []data.Row
	var entries []index.Entry
	offset := int64(0)

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		lineLen := int64(len(line)) + 1 // trailing newline
		if len(bytes.TrimSpace(line)) == 0 {
			offset += lineLen
			continue
		}

		var row data.Row
		if err := json.Unmarshal(line, &row); err != nil {
			return fmt.Errorf("corrupt row log for table '%s' at offset %d: %w", t.Name, offset, err)
		}
		rows = append(rows, row)
		if key, ok := t.pkInt(row); ok {
			entries = append(entries, index.Entry{Key: key, Offset: offset})
		}
		offset += lineLen
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read row log for table '%s': %w", t.Name, err)
	}

	t.rows = rows
	if err := t.rebuildIndex(entries); err != nil {
		return err
	}

	slog.Debug("table loaded", "table", t.Name, "rows", len(rows), "indexed", len(entries))
	return nil
}

func (t *Table) rebuildIndex(entries []index.Entry) error {
	if err := t.idx.Rebuild(entries); err != nil {
		return fmt.Errorf("rebuild index for table '%s': %w", t.Name, err)
	}
	return nil
}

// persistLocked rewrites the whole row log atomically and rebuilds the index
// from the new offsets. Callers must hold the write mutex.
func (t *Table) persistLocked() error {
	if err := t.locks.Acquire(t.Name); err != nil {
		return err
	}
	defer t.locks.Release(t.Name)

	var buf bytes.Buffer
	var entries []index.Entry
	for _, row := range t.rows {
		line, err := json.Marshal(row)
		if err != nil {
			return fmt.Errorf("marshal row for table '%s': %w", t.Name, err)
		}
		if key, ok := t.pkInt(row); ok {
			entries = append(entries, index.Entry{Key: key, Offset: int64(buf.Len())})
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}

	if err := storage.WriteAtomic(t.logPath(), buf.Bytes()); err != nil {
		return fmt.Errorf("persist table '%s': %w", t.Name, err)
	}

	return t.rebuildIndex(entries)
}

// appendLocked appends one row to the log and inserts its index entry.
// Callers must hold the write mutex; the row must already be validated.
func (t *Table) appendLocked(row data.Row) error {
	if err := t.locks.Acquire(t.Name); err != nil {
		return err
	}
	defer t.locks.Release(t.Name)

	line, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("marshal row for table '%s': %w", t.Name, err)
	}

	f, err := os.OpenFile(t.logPath(), os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open row log for table '%s': %w", t.Name, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat row log for table '%s': %w", t.Name, err)
	}
	offset := info.Size()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("append to row log for table '%s': %w", t.Name, err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync row log for table '%s': %w", t.Name, err)
	}

	if key, ok := t.pkInt(row); ok {
		if err := t.idx.Append(key, offset); err != nil {
			return fmt.Errorf("index append for table '%s': %w", t.Name, err)
		}
	}

	return nil
}

// pkInt extracts the primary-key value as an indexable integer. Non-integer
// primary keys are not indexed and fall back to linear scans.
func (t *Table) pkInt(row data.Row) (int64, bool) {
	val, ok := row.Data[t.Schema.PrimaryKey]
	if !ok {
		return 0, false
	}
	key, ok := asInt(val)
	if !ok || !index.Indexable(key) {
		return 0, false
	}
	return key, true
}

// asInt normalizes the integer representations a value can carry: int64 from
// the parser, float64 with integral value after a JSON reload.
func asInt(v interface{}) (int64, bool) {
	switch val := v.(type) {
	case int:
		return int64(val), true
	case int64:
		return val, true
	case float64:
		if val == float64(int64(val)) {
			return int64(val), true
		}
	}
	return 0, false
}

// Rows returns a deep copy of the current row list. Used by the transaction
// manager to seed a staging area.
func (t *Table) Rows() []data.Row {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return data.CopyRows(t.rows)
}

// ReplaceRows swaps in a new authoritative row list and persists it via the
// full-rewrite path. Used by transaction commit.
func (t *Table) ReplaceRows(rows []data.Row) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	old := t.rows
	t.rows = rows
	if err := t.persistLocked(); err != nil {
		t.rows = old
		return err
	}
	return nil
}

// Rename moves the table's on-disk artifacts to the new name and updates the
// table's identity. The caller (engine) guards the registry side.
func (t *Table) Rename(newName string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.locks.Acquire(t.Name); err != nil {
		return err
	}
	oldName := t.Name
	oldLog := t.logPath()

	if _, err := os.Stat(oldLog); err == nil {
		newLog := filepath.Join(t.dataDir, newName+".jsonl")
		if err := os.Rename(oldLog, newLog); err != nil {
			t.locks.Release(oldName)
			return fmt.Errorf("rename row log '%s' -> '%s': %w", oldName, newName, err)
		}
	}

	// The index is derived; drop it and rebuild under the new name.
	if err := t.idx.Clear(); err != nil {
		t.locks.Release(oldName)
		return err
	}

	t.Name = newName
	t.idx = index.New(filepath.Join(t.dataDir, newName+".idx"))
	t.locks.Release(oldName)

	if err := t.persistLocked(); err != nil {
		return err
	}

	slog.Info("table renamed", "from", oldName, "to", newName)
	return nil
}

// Drop removes the table's on-disk artifacts: row log, index and lock marker.
func (t *Table) Drop() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.locks.Acquire(t.Name); err != nil {
		return err
	}
	defer t.locks.Release(t.Name)

	if err := os.Remove(t.logPath()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove row log for table '%s': %w", t.Name, err)
	}
	if err := t.idx.Clear(); err != nil {
		return err
	}
	t.rows = nil

	slog.Info("table dropped", "table", t.Name)
	return nil
}
