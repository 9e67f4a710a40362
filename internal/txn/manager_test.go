package txn

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/leengari/minidb/internal/data"
)

func rowsWithIDs(ids ...int64) []data.Row {
	out := make([]data.Row, len(ids))
	for i, id := range ids {
		out[i] = data.NewRow(map[string]interface{}{"id": id})
	}
	return out
}

func TestBeginCommitLifecycle(t *testing.T) {
	m := NewManager()
	require.False(t, m.Active())
	require.Empty(t, m.ID())

	require.NoError(t, m.Begin())
	require.True(t, m.Active())
	require.NotEmpty(t, m.ID())

	require.Error(t, m.Begin(), "nested transactions are rejected")

	require.NoError(t, m.Commit(func(string, []data.Row) error { return nil }))
	require.False(t, m.Active())
}

func TestCommitWithoutBegin(t *testing.T) {
	m := NewManager()
	require.Error(t, m.Commit(func(string, []data.Row) error { return nil }))
	require.Error(t, m.Rollback())
}

func TestStageCopiesOnFirstTouch(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.Begin())

	current := rowsWithIDs(1, 2)
	staged := m.Stage("users", current)
	require.Len(t, staged, 2)

	// Mutating the staged copy never reaches the original rows.
	staged[0].Data["id"] = int64(99)
	require.Equal(t, int64(1), current[0].Data["id"])

	// Second touch returns the same staging area, not a fresh copy.
	again := m.Stage("users", rowsWithIDs(7, 8, 9))
	require.Len(t, again, 2)
	require.Equal(t, int64(99), again[0].Data["id"])
}

func TestCommitFlushesOnlyModifiedTables(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.Begin())

	m.Stage("read_only", rowsWithIDs(1))
	m.SetStaged("written", rowsWithIDs(1, 2, 3))

	flushed := make(map[string]int)
	require.NoError(t, m.Commit(func(table string, rows []data.Row) error {
		flushed[table] = len(rows)
		return nil
	}))

	require.Equal(t, map[string]int{"written": 3}, flushed)
}

func TestCommitFailureKeepsTransactionActive(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.Begin())
	m.SetStaged("users", rowsWithIDs(1))

	err := m.Commit(func(table string, rows []data.Row) error {
		return fmt.Errorf("disk full")
	})
	require.Error(t, err)
	require.True(t, m.Active(), "failed commit leaves the transaction open")

	// A later rollback still discards cleanly.
	require.NoError(t, m.Rollback())
	require.False(t, m.Active())
}

func TestRollbackDiscardsStagedState(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.Begin())
	m.SetStaged("users", rowsWithIDs(1, 2))

	require.NoError(t, m.Rollback())

	_, ok := m.StagedRows("users")
	require.False(t, ok)

	// A new transaction starts from a clean slate.
	require.NoError(t, m.Begin())
	_, ok = m.StagedRows("users")
	require.False(t, ok)
}

func TestStagedRowsVisibility(t *testing.T) {
	m := NewManager()

	_, ok := m.StagedRows("users")
	require.False(t, ok, "no staged view outside a transaction")

	require.NoError(t, m.Begin())
	_, ok = m.StagedRows("users")
	require.False(t, ok, "untouched tables have no staged view")

	m.Stage("users", rowsWithIDs(1))
	rows, ok := m.StagedRows("users")
	require.True(t, ok)
	require.Len(t, rows, 1)
}

func TestMarkModified(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.Begin())

	staged := m.Stage("users", rowsWithIDs(1))
	staged[0].Data["id"] = int64(2)
	m.MarkModified("users")

	flushed := false
	require.NoError(t, m.Commit(func(table string, rows []data.Row) error {
		flushed = true
		require.Equal(t, int64(2), rows[0].Data["id"])
		return nil
	}))
	require.True(t, flushed)
}
