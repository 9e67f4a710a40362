package txn

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/leengari/minidb/internal/data"
)

// staged is one table's buffered copy of rows inside an open transaction.
type staged struct {
	rows     []data.Row
	modified bool
}

// Manager implements multi-statement transactions with a per-table staging
// area: idle -> Begin -> active -> Commit/Rollback -> idle. While active,
// writes mutate lazily created deep copies of each touched table's rows, and
// reads of a touched table observe the staged copy. The staging area protects
// in-memory visibility; durable writes happen only at commit, through each
// table's own persistence path.
type Manager struct {
	mu      sync.Mutex
	active  bool
	id      string
	started time.Time
	tables  map[string]*staged
}

func NewManager() *Manager {
	return &Manager{}
}

// Begin opens a transaction. Nested transactions are not supported.
func (m *Manager) Begin() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active {
		return fmt.Errorf("transaction already in progress")
	}
	m.active = true
	m.id = uuid.New().String()
	m.started = time.Now()
	m.tables = make(map[string]*staged)

	slog.Debug("transaction started", "tx_id", m.id)
	return nil
}

// Active reports whether a transaction is open.
func (m *Manager) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// ID returns the open transaction's identifier ("" when idle).
func (m *Manager) ID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.active {
		return ""
	}
	return m.id
}

// Stage returns the mutable staged row list for a table, deep-copying the
// supplied current rows on first touch. Callers mutate the returned slice's
// rows in place and must flag writes with MarkModified or SetStaged.
func (m *Manager) Stage(table string, current []data.Row) []data.Row {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.active {
		return nil
	}
	st, ok := m.tables[table]
	if !ok {
		st = &staged{rows: data.CopyRows(current)}
		m.tables[table] = st
		slog.Debug("table staged", "tx_id", m.id, "table", table, "rows", len(st.rows))
	}
	return st.rows
}

// SetStaged replaces a table's staged rows (delete/update build new lists)
// and marks it modified.
func (m *Manager) SetStaged(table string, rows []data.Row) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.active {
		return
	}
	st, ok := m.tables[table]
	if !ok {
		st = &staged{}
		m.tables[table] = st
	}
	st.rows = rows
	st.modified = true
}

// MarkModified flags a staged table as dirty so commit flushes it.
func (m *Manager) MarkModified(table string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if st, ok := m.tables[table]; ok {
		st.modified = true
	}
}

// StagedRows returns the staged row list for a table, if it was touched in
// the open transaction. Reads inside the transaction must prefer this view
// over the table's on-disk state.
func (m *Manager) StagedRows(table string) ([]data.Row, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.active {
		return nil, false
	}
	st, ok := m.tables[table]
	if !ok {
		return nil, false
	}
	return st.rows, true
}

// Commit flushes every modified table's staged rows through the supplied
// flush function, then clears the staging area. If a flush fails the
// transaction stays active so the caller can retry commit or roll back:
// a partial commit must not silently lose the transaction's intent.
func (m *Manager) Commit(flush func(table string, rows []data.Row) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.active {
		return fmt.Errorf("no transaction in progress")
	}

	for name, st := range m.tables {
		if !st.modified {
			continue
		}
		if err := flush(name, st.rows); err != nil {
			slog.Error("commit flush failed, transaction remains active",
				"tx_id", m.id, "table", name, "error", err)
			return fmt.Errorf("commit failed for table '%s': %w", name, err)
		}
		st.modified = false
	}

	slog.Info("transaction committed", "tx_id", m.id, "duration", time.Since(m.started))
	m.reset()
	return nil
}

// Rollback discards the staging area unconditionally and returns to idle.
func (m *Manager) Rollback() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.active {
		return fmt.Errorf("no transaction in progress")
	}

	slog.Info("transaction rolled back", "tx_id", m.id, "tables_discarded", len(m.tables))
	m.reset()
	return nil
}

func (m *Manager) reset() {
	m.active = false
	m.id = ""
	m.tables = nil
}
