package repl

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/chzyer/readline"

	"github.com/leengari/minidb/internal/engine"
)

// Start runs the interactive shell until the user quits or stdin closes.
func Start(eng *engine.Engine) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "minidb> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("start readline: %w", err)
	}
	defer rl.Close()

	fmt.Println("Welcome to minidb")
	fmt.Println("Type 'exit' or '\\q' to quit.")

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			fmt.Println("^C")
			continue
		}
		if err != nil {
			// EOF
			fmt.Println()
			return nil
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" || line == "\\q" {
			return nil
		}

		for _, res := range eng.Execute(line) {
			PrintResult(rl.Stdout(), res)
		}
	}
}

// PrintResult renders one statement result: errors and messages as single
// lines, schemas as a column table, row sets as a tab-aligned grid.
func PrintResult(w io.Writer, res engine.Result) {
	if res.IsError() {
		fmt.Fprintln(w, res.Err)
		return
	}
	if res.Message != "" {
		fmt.Fprintln(w, res.Message)
		return
	}
	if res.Description != nil {
		printSchema(w, res)
		return
	}
	printRows(w, res)
}

func printSchema(w io.Writer, res engine.Result) {
	schema := res.Description
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "column\ttype\tconstraints")
	fmt.Fprintln(tw, "---\t---\t---")
	for _, col := range schema.Columns {
		typ := schema.ColumnTypes[col]
		if typ == "" {
			typ = "-"
		}
		var parts []string
		if col == schema.PrimaryKey {
			parts = append(parts, "primary key")
		}
		if schema.IsUnique(col) {
			parts = append(parts, "unique")
		}
		if ref, ok := schema.ForeignKeys[col]; ok {
			parts = append(parts, "references "+ref)
		}
		constraints := strings.Join(parts, ", ")
		if constraints == "" {
			constraints = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", col, typ, constraints)
	}
	tw.Flush()
}

func printRows(w io.Writer, res engine.Result) {
	columns := res.Columns
	if columns == nil && len(res.Rows) > 0 {
		// Fall back to sorted keys of the first row (joins may widen rows).
		for key := range res.Rows[0].Data {
			columns = append(columns, key)
		}
		sort.Strings(columns)
	}
	if len(columns) == 0 {
		fmt.Fprintln(w, "(0 rows)")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(columns, "\t"))

	sep := make([]string, len(columns))
	for i := range sep {
		sep[i] = "---"
	}
	fmt.Fprintln(tw, strings.Join(sep, "\t"))

	for _, row := range res.Rows {
		cells := make([]string, len(columns))
		for i, col := range columns {
			val, ok := row.Data[col]
			if !ok || val == nil {
				cells[i] = "NULL"
			} else {
				cells[i] = fmt.Sprintf("%v", val)
			}
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	tw.Flush()

	fmt.Fprintf(w, "(%d rows)\n", len(res.Rows))
}
