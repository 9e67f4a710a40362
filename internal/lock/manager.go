package lock

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/leengari/minidb/internal/dberr"
)

// Defaults mirror the cooperative locking protocol's original parameters.
const (
	DefaultTimeout       = 2 * time.Second
	DefaultRetryInterval = 100 * time.Millisecond
	DefaultStaleAge      = 5 * time.Minute
)

// Manager implements advisory cross-process locking with one marker file per
// table in the data directory. The file's existence is the lock state; its
// mtime drives staleness detection. This only constrains processes that
// follow the same protocol.
type Manager struct {
	dataDir       string
	timeout       time.Duration
	retryInterval time.Duration
}

func NewManager(dataDir string, timeout, retryInterval time.Duration) *Manager {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if retryInterval <= 0 {
		retryInterval = DefaultRetryInterval
	}
	return &Manager{dataDir: dataDir, timeout: timeout, retryInterval: retryInterval}
}

func (m *Manager) lockPath(table string) string {
	return filepath.Join(m.dataDir, table+".lock")
}

// Acquire takes the exclusive lock for a table, retrying at a fixed interval
// until the timeout elapses. Failure is always surfaced as *dberr.BusyError,
// never silently ignored.
func (m *Manager) Acquire(table string) error {
	path := m.lockPath(table)
	deadline := time.Now().Add(m.timeout)

	for {
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if err == nil {
			// Content is diagnostic only, never machine-read.
			fmt.Fprintf(f, "Locked at %s\nPID: %d\n", time.Now().Format(time.RFC3339), os.Getpid())
			f.Close()
			return nil
		}
		if !errors.Is(err, os.ErrExist) {
			return fmt.Errorf("create lock for table '%s': %w", table, err)
		}

		if time.Now().After(deadline) {
			slog.Warn("lock acquisition timed out", "table", table, "timeout", m.timeout)
			return &dberr.BusyError{Table: table, Timeout: m.timeout.String()}
		}
		time.Sleep(m.retryInterval)
	}
}

// Release removes the marker if present. Idempotent: a lock already removed
// by another party is not an error.
func (m *Manager) Release(table string) {
	if err := os.Remove(m.lockPath(table)); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to release lock", "table", table, "error", err)
	}
}

// IsLocked reports whether the marker file for a table exists.
func (m *Manager) IsLocked(table string) bool {
	_, err := os.Stat(m.lockPath(table))
	return err == nil
}

// CleanupStale removes marker files whose mtime is older than maxAge and
// returns the table names cleaned. Recovery mechanism for holders that
// crashed without releasing.
func (m *Manager) CleanupStale(maxAge time.Duration) []string {
	entries, err := os.ReadDir(m.dataDir)
	if err != nil {
		return nil
	}

	var cleaned []string
	now := time.Now()
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasSuffix(name, ".lock") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if now.Sub(info.ModTime()) <= maxAge {
			continue
		}
		if err := os.Remove(filepath.Join(m.dataDir, name)); err != nil {
			// Another process may have beaten us to it
			continue
		}
		table := strings.TrimSuffix(name, ".lock")
		cleaned = append(cleaned, table)
		slog.Info("removed stale lock", "table", table, "age", now.Sub(info.ModTime()))
	}
	return cleaned
}
