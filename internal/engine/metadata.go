package engine

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/leengari/minidb/internal/storage"
	"github.com/leengari/minidb/internal/table"
)

const metadataFile = "metadata.json"

// loadMetadata reconstructs the table registry from the metadata store.
// Callers hold the engine mutex (or are inside New).
func (e *Engine) loadMetadata() error {
	path := filepath.Join(e.cfg.DataDir, metadataFile)
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read metadata: %w", err)
	}

	var records map[string]*table.Schema
	if err := json.Unmarshal(raw, &records); err != nil {
		return fmt.Errorf("corrupt metadata store %s: %w", path, err)
	}

	for name, schema := range records {
		normalized, err := table.NewSchema(schema.Columns, schema.PrimaryKey,
			schema.ColumnTypes, schema.UniqueColumns, schema.ForeignKeys)
		if err != nil {
			return fmt.Errorf("invalid schema for table '%s': %w", name, err)
		}
		t, err := table.Open(name, normalized, e.cfg.DataDir, e.locks)
		if err != nil {
			return fmt.Errorf("load table '%s': %w", name, err)
		}
		e.tables[name] = t
	}

	slog.Info("metadata loaded", "tables", len(e.tables))
	return nil
}

// saveMetadata rewrites the metadata store after a successful DDL statement.
// Callers hold the engine mutex.
func (e *Engine) saveMetadata() error {
	records := make(map[string]*table.Schema, len(e.tables))
	for name, t := range e.tables {
		records[name] = t.Schema
	}

	raw, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	if err := storage.WriteAtomic(filepath.Join(e.cfg.DataDir, metadataFile), raw); err != nil {
		return fmt.Errorf("save metadata: %w", err)
	}
	return nil
}
