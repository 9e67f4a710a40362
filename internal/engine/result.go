package engine

import (
	"fmt"

	"github.com/leengari/minidb/internal/data"
	"github.com/leengari/minidb/internal/table"
)

// Result is the outcome of one statement. Exactly one shape is populated:
// Rows (with Columns when known), a success Message, a schema Description,
// or an Err string prefixed with "Error: ". Callers distinguish outcomes by
// shape and prefix, never by error type, since the statement interface is
// textual.
type Result struct {
	Columns     []string
	Rows        []data.Row
	Message     string
	Description *table.Schema
	Err         string
}

// IsError reports whether the statement failed.
func (r Result) IsError() bool {
	return r.Err != ""
}

func errorResult(err error) Result {
	return Result{Err: "Error: " + err.Error()}
}

func messageResult(format string, args ...interface{}) Result {
	return Result{Message: fmt.Sprintf(format, args...)}
}
