package engine

import (
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/leengari/minidb/internal/config"
	"github.com/leengari/minidb/internal/data"
	"github.com/leengari/minidb/internal/dberr"
	"github.com/leengari/minidb/internal/lock"
	"github.com/leengari/minidb/internal/parser"
	"github.com/leengari/minidb/internal/parser/ast"
	"github.com/leengari/minidb/internal/table"
	"github.com/leengari/minidb/internal/txn"
)

// Engine owns the table registry, the parser and the transaction manager,
// and routes parsed statements to the matching subsystem. It is a
// synchronous in-process library: cross-process safety comes from the file
// lock protocol, in-process safety from the engine mutex plus each table's
// own mutex.
type Engine struct {
	mu     sync.Mutex
	cfg    *config.Config
	tables map[string]*table.Table
	locks  *lock.Manager
	tx     *txn.Manager
}

// New creates an engine over cfg.DataDir, cleaning up stale locks and
// reconstructing the table registry from the schema metadata store.
func New(cfg *config.Config) (*Engine, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("create data directory %s: %w", cfg.DataDir, err)
	}

	e := &Engine{
		cfg:    cfg,
		tables: make(map[string]*table.Table),
		locks:  lock.NewManager(cfg.DataDir, cfg.Lock.Timeout, cfg.Lock.RetryInterval),
		tx:     txn.NewManager(),
	}

	if cleaned := e.locks.CleanupStale(cfg.Lock.StaleAge); len(cleaned) > 0 {
		slog.Warn("removed stale locks at startup", "tables", cleaned)
	}

	if err := e.loadMetadata(); err != nil {
		return nil, err
	}
	return e, nil
}

// Open is New with default configuration over the given data directory.
func Open(dataDir string) (*Engine, error) {
	cfg := config.Default()
	cfg.DataDir = dataDir
	return New(cfg)
}

// Execute runs one or more ';'-separated statements sequentially and returns
// one Result per statement. A failure in one statement does not abort later
// ones; callers needing all-or-nothing batches use BEGIN/COMMIT/ROLLBACK.
func (e *Engine) Execute(input string) []Result {
	var results []Result
	for _, stmt := range splitStatements(input) {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		results = append(results, e.executeOne(stmt))
	}
	return results
}

// ExecuteOne runs a single statement.
func (e *Engine) ExecuteOne(text string) Result {
	return e.executeOne(text)
}

// ListTables returns the sorted table names in the registry.
func (e *Engine) ListTables() []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	names := make([]string, 0, len(e.tables))
	for name := range e.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Describe returns a copy of a table's schema.
func (e *Engine) Describe(name string) (*table.Schema, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	t, err := e.getTable(name)
	if err != nil {
		return nil, err
	}
	return t.Schema.Copy(), nil
}

// executeOne parses and dispatches one statement, converting every failure
// (including unexpected ones) into an error-shaped Result.
func (e *Engine) executeOne(text string) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("unexpected failure during statement execution", "panic", r)
			res = Result{Err: fmt.Sprintf("Unexpected Error: %v", r)}
		}
	}()

	stmt, err := parser.Parse(text)
	if err != nil {
		return errorResult(err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	switch s := stmt.(type) {
	case *ast.CreateTableStatement:
		return e.createTable(s)
	case *ast.DescribeStatement:
		return e.describe(s)
	case *ast.DropTableStatement:
		return e.dropTable(s)
	case *ast.AddColumnStatement:
		return e.addColumn(s)
	case *ast.DropColumnStatement:
		return e.dropColumn(s)
	case *ast.RenameColumnStatement:
		return e.renameColumn(s)
	case *ast.RenameTableStatement:
		return e.renameTable(s)
	case *ast.InsertStatement:
		return e.insert(s)
	case *ast.SelectStatement:
		return e.selectRows(s)
	case *ast.JoinStatement:
		return e.join(s)
	case *ast.UpdateStatement:
		return e.update(s)
	case *ast.DeleteStatement:
		return e.deleteRows(s)
	case *ast.BeginStatement:
		if err := e.tx.Begin(); err != nil {
			return errorResult(err)
		}
		return messageResult("Transaction started.")
	case *ast.CommitStatement:
		return e.commit()
	case *ast.RollbackStatement:
		if err := e.tx.Rollback(); err != nil {
			return errorResult(err)
		}
		return messageResult("Transaction rolled back.")
	case *ast.ShowTablesStatement:
		return e.showTables()
	default:
		return errorResult(fmt.Errorf("unsupported statement type %T", stmt))
	}
}

func (e *Engine) getTable(name string) (*table.Table, error) {
	t, ok := e.tables[name]
	if !ok {
		return nil, &dberr.TableNotFoundError{Table: name}
	}
	return t, nil
}

func (e *Engine) createTable(s *ast.CreateTableStatement) Result {
	if _, exists := e.tables[s.Table]; exists {
		return errorResult(fmt.Errorf("table '%s' already exists", s.Table))
	}

	schema, err := table.NewSchema(s.Columns, "", s.ColumnTypes, s.UniqueColumns, s.ForeignKeys)
	if err != nil {
		return errorResult(err)
	}
	t, err := table.Open(s.Table, schema, e.cfg.DataDir, e.locks)
	if err != nil {
		return errorResult(err)
	}

	e.tables[s.Table] = t
	if err := e.saveMetadata(); err != nil {
		delete(e.tables, s.Table)
		return errorResult(err)
	}

	slog.Info("table created", "table", s.Table, "columns", len(s.Columns))
	return messageResult("Table '%s' created with columns %v.", s.Table, s.Columns)
}

func (e *Engine) describe(s *ast.DescribeStatement) Result {
	t, err := e.getTable(s.Table)
	if err != nil {
		return errorResult(err)
	}
	return Result{Description: t.Schema.Copy()}
}

func (e *Engine) dropTable(s *ast.DropTableStatement) Result {
	t, err := e.getTable(s.Table)
	if err != nil {
		return errorResult(err)
	}
	if err := t.Drop(); err != nil {
		return errorResult(err)
	}
	delete(e.tables, s.Table)
	if err := e.saveMetadata(); err != nil {
		return errorResult(err)
	}
	return messageResult("Table '%s' dropped.", s.Table)
}

func (e *Engine) renameTable(s *ast.RenameTableStatement) Result {
	t, err := e.getTable(s.Table)
	if err != nil {
		return errorResult(err)
	}
	if _, exists := e.tables[s.NewName]; exists {
		return errorResult(fmt.Errorf("table '%s' already exists", s.NewName))
	}

	if err := t.Rename(s.NewName); err != nil {
		return errorResult(err)
	}
	delete(e.tables, s.Table)
	e.tables[s.NewName] = t
	if err := e.saveMetadata(); err != nil {
		return errorResult(err)
	}
	return messageResult("Table '%s' renamed to '%s'.", s.Table, s.NewName)
}

func (e *Engine) addColumn(s *ast.AddColumnStatement) Result {
	t, err := e.getTable(s.Table)
	if err != nil {
		return errorResult(err)
	}
	if err := t.AddColumn(s.Column, s.ColumnType); err != nil {
		return errorResult(err)
	}
	if err := e.saveMetadata(); err != nil {
		return errorResult(err)
	}
	return messageResult("Column '%s' added to table '%s'.", s.Column, s.Table)
}

func (e *Engine) dropColumn(s *ast.DropColumnStatement) Result {
	t, err := e.getTable(s.Table)
	if err != nil {
		return errorResult(err)
	}
	if err := t.DropColumn(s.Column); err != nil {
		return errorResult(err)
	}
	if err := e.saveMetadata(); err != nil {
		return errorResult(err)
	}
	return messageResult("Column '%s' dropped from table '%s'.", s.Column, s.Table)
}

func (e *Engine) renameColumn(s *ast.RenameColumnStatement) Result {
	t, err := e.getTable(s.Table)
	if err != nil {
		return errorResult(err)
	}
	if err := t.RenameColumn(s.OldName, s.NewName); err != nil {
		return errorResult(err)
	}
	if err := e.saveMetadata(); err != nil {
		return errorResult(err)
	}
	return messageResult("Column '%s' renamed to '%s' in table '%s'.", s.OldName, s.NewName, s.Table)
}

func (e *Engine) insert(s *ast.InsertStatement) Result {
	t, err := e.getTable(s.Table)
	if err != nil {
		return errorResult(err)
	}

	columns := t.Schema.Columns
	if len(s.Values) != len(columns) {
		return errorResult(&dberr.ValidationError{
			Table:  s.Table,
			Reason: fmt.Sprintf("expected %d values, got %d", len(columns), len(s.Values)),
		})
	}

	row := data.NewRow(make(map[string]interface{}, len(columns)))
	for i, col := range columns {
		row.Data[col] = s.Values[i]
	}

	if e.tx.Active() {
		staged := e.tx.Stage(s.Table, t.Rows())
		if err := t.ValidateStagedInsert(row, staged); err != nil {
			return errorResult(err)
		}
		e.tx.SetStaged(s.Table, append(staged, row))
	} else {
		if err := t.Insert(row); err != nil {
			return errorResult(err)
		}
	}

	return messageResult("Row inserted into '%s'.", s.Table)
}

func (e *Engine) selectRows(s *ast.SelectStatement) Result {
	rows, columns, err := e.runSelect(s)
	if err != nil {
		return errorResult(err)
	}
	return Result{Columns: columns, Rows: rows}
}

// runSelect executes a SELECT, observing staged rows when a transaction has
// touched the table. Also used to resolve IN subqueries.
func (e *Engine) runSelect(s *ast.SelectStatement) ([]data.Row, []string, error) {
	t, err := e.getTable(s.Table)
	if err != nil {
		return nil, nil, err
	}

	cond := s.Where
	if cond != nil {
		resolved, err := e.resolveCondition(cond, t)
		if err != nil {
			return nil, nil, err
		}
		cond = resolved
	}

	var rows []data.Row
	if staged, ok := e.tx.StagedRows(s.Table); ok {
		if cond == nil {
			rows = data.CopyRows(staged)
			if s.Limit >= 0 && s.Limit < len(rows) {
				rows = rows[:s.Limit]
			}
		} else {
			if !t.Schema.HasColumn(cond.Column) {
				return nil, nil, &dberr.ValidationError{Table: s.Table, Reason: fmt.Sprintf("unknown column '%s'", cond.Column)}
			}
			rows = table.FilterRows(staged, cond.Column, cond.Operator, conditionValue(cond), s.Limit)
		}
	} else if cond == nil {
		rows = t.SelectAll(s.Limit)
	} else {
		rows, err = t.SelectWhere(cond.Column, cond.Operator, conditionValue(cond), s.Limit)
		if err != nil {
			return nil, nil, err
		}
	}

	return e.project(t, s.Fields, rows)
}

// project narrows rows to the requested field list ("*" when nil).
func (e *Engine) project(t *table.Table, fields []string, rows []data.Row) ([]data.Row, []string, error) {
	if fields == nil {
		return rows, append([]string(nil), t.Schema.Columns...), nil
	}

	for _, f := range fields {
		if !t.Schema.HasColumn(f) {
			return nil, nil, &dberr.ValidationError{Table: t.Name, Reason: fmt.Sprintf("unknown column '%s'", f)}
		}
	}

	projected := make([]data.Row, len(rows))
	for i, row := range rows {
		out := data.NewRow(make(map[string]interface{}, len(fields)))
		for _, f := range fields {
			out.Data[f] = row.Data[f]
		}
		projected[i] = out
	}
	return projected, append([]string(nil), fields...), nil
}

// resolveCondition executes an IN subquery and substitutes its values.
// Subqueries must project exactly one column; multi-column subqueries are an
// error rather than being positionally flattened.
func (e *Engine) resolveCondition(cond *ast.Condition, t *table.Table) (*ast.Condition, error) {
	if cond.Operator != "IN" || cond.Subquery == nil {
		return cond, nil
	}

	sub := cond.Subquery
	subTable, err := e.getTable(sub.Table)
	if err != nil {
		return nil, err
	}

	var column string
	switch {
	case len(sub.Fields) == 1:
		column = sub.Fields[0]
	case sub.Fields == nil && len(subTable.Schema.Columns) == 1:
		column = subTable.Schema.Columns[0]
	default:
		return nil, &dberr.ValidationError{
			Table:  sub.Table,
			Reason: "IN subquery must select exactly one column",
		}
	}

	rows, _, err := e.runSelect(&ast.SelectStatement{
		Table:  sub.Table,
		Fields: []string{column},
		Where:  sub.Where,
		Limit:  sub.Limit,
	})
	if err != nil {
		return nil, err
	}

	values := make([]interface{}, 0, len(rows))
	for _, row := range rows {
		values = append(values, row.Data[column])
	}

	return &ast.Condition{Column: cond.Column, Operator: "IN", Values: values}, nil
}

// conditionValue adapts a resolved condition to the predicate value shape
// SelectWhere expects: a plain value, or a candidate slice for IN.
func conditionValue(cond *ast.Condition) interface{} {
	if cond.Operator == "IN" {
		return cond.Values
	}
	return cond.Value
}

func (e *Engine) update(s *ast.UpdateStatement) Result {
	t, err := e.getTable(s.Table)
	if err != nil {
		return errorResult(err)
	}

	cond, err := e.resolveCondition(s.Where, t)
	if err != nil {
		return errorResult(err)
	}

	if e.tx.Active() {
		if !t.Schema.HasColumn(cond.Column) || !t.Schema.HasColumn(s.TargetColumn) {
			return errorResult(&dberr.ValidationError{Table: s.Table, Reason: "unknown column in UPDATE"})
		}
		if err := t.CheckValueType(s.TargetColumn, s.TargetValue); err != nil {
			return errorResult(err)
		}
		staged := e.tx.Stage(s.Table, t.Rows())
		count := 0
		for i := range staged {
			if table.MatchValue(staged[i].Data[cond.Column], cond.Operator, conditionValue(cond)) {
				staged[i].Data[s.TargetColumn] = s.TargetValue
				count++
			}
		}
		if count > 0 {
			e.tx.MarkModified(s.Table)
		}
		return messageResult("Updated %d row(s) in '%s'.", count, s.Table)
	}

	count, err := t.UpdateWhere(cond.Column, cond.Operator, conditionValue(cond), s.TargetColumn, s.TargetValue)
	if err != nil {
		return errorResult(err)
	}
	return messageResult("Updated %d row(s) in '%s'.", count, s.Table)
}

func (e *Engine) deleteRows(s *ast.DeleteStatement) Result {
	t, err := e.getTable(s.Table)
	if err != nil {
		return errorResult(err)
	}

	cond, err := e.resolveCondition(s.Where, t)
	if err != nil {
		return errorResult(err)
	}

	if e.tx.Active() {
		if !t.Schema.HasColumn(cond.Column) {
			return errorResult(&dberr.ValidationError{Table: s.Table, Reason: fmt.Sprintf("unknown column '%s'", cond.Column)})
		}
		staged := e.tx.Stage(s.Table, t.Rows())
		kept := staged[:0:0]
		deleted := 0
		for _, row := range staged {
			if table.MatchValue(row.Data[cond.Column], cond.Operator, conditionValue(cond)) {
				deleted++
			} else {
				kept = append(kept, row)
			}
		}
		if deleted > 0 {
			e.tx.SetStaged(s.Table, kept)
		}
		return messageResult("Deleted %d row(s) from '%s'.", deleted, s.Table)
	}

	count, err := t.DeleteWhere(cond.Column, cond.Operator, conditionValue(cond))
	if err != nil {
		return errorResult(err)
	}
	return messageResult("Deleted %d row(s) from '%s'.", count, s.Table)
}

func (e *Engine) join(s *ast.JoinStatement) Result {
	left, err := e.getTable(s.LeftTable)
	if err != nil {
		return errorResult(err)
	}
	right, err := e.getTable(s.RightTable)
	if err != nil {
		return errorResult(err)
	}
	if !left.Schema.HasColumn(s.LeftColumn) {
		return errorResult(&dberr.ValidationError{Table: s.LeftTable, Reason: fmt.Sprintf("unknown column '%s'", s.LeftColumn)})
	}
	if !right.Schema.HasColumn(s.RightColumn) {
		return errorResult(&dberr.ValidationError{Table: s.RightTable, Reason: fmt.Sprintf("unknown column '%s'", s.RightColumn)})
	}

	leftRows := e.rowsFor(left)
	rightRows := e.rowsFor(right)

	var rows []data.Row
	if e.cfg.JoinAlgorithm == config.JoinNestedLoop {
		rows = nestedLoopJoin(leftRows, rightRows, s.LeftColumn, s.RightColumn, s.RightTable)
	} else {
		rows = hashJoin(leftRows, rightRows, s.LeftColumn, s.RightColumn, s.RightTable)
	}

	return Result{Columns: joinColumns(left.Schema, right.Schema, s.RightTable), Rows: rows}
}

// rowsFor returns the transaction's staged view of a table when one exists,
// the committed rows otherwise.
func (e *Engine) rowsFor(t *table.Table) []data.Row {
	if staged, ok := e.tx.StagedRows(t.Name); ok {
		return staged
	}
	return t.SelectAll(-1)
}

// joinColumns derives the merged header: left columns first, then right
// columns with collisions renamed the same way mergeRows stores them.
func joinColumns(left, right *table.Schema, rightTable string) []string {
	columns := append([]string(nil), left.Columns...)
	taken := make(map[string]bool, len(columns))
	for _, c := range columns {
		taken[c] = true
	}
	for _, c := range right.Columns {
		if taken[c] {
			columns = append(columns, rightTable+"_"+c)
		} else {
			columns = append(columns, c)
		}
	}
	return columns
}

func (e *Engine) commit() Result {
	err := e.tx.Commit(func(name string, rows []data.Row) error {
		t, ok := e.tables[name]
		if !ok {
			return &dberr.TableNotFoundError{Table: name}
		}
		return t.ReplaceRows(rows)
	})
	if err != nil {
		return errorResult(err)
	}
	return messageResult("Transaction committed.")
}

func (e *Engine) showTables() Result {
	names := make([]string, 0, len(e.tables))
	for name := range e.tables {
		names = append(names, name)
	}
	sort.Strings(names)

	rows := make([]data.Row, len(names))
	for i, name := range names {
		rows[i] = data.NewRow(map[string]interface{}{"table": name})
	}
	return Result{Columns: []string{"table"}, Rows: rows}
}

// splitStatements splits a batch on ';' while respecting quoted literals.
func splitStatements(input string) []string {
	var stmts []string
	var sb strings.Builder
	var quote byte

	for i := 0; i < len(input); i++ {
		ch := input[i]
		switch {
		case quote != 0:
			if ch == quote {
				quote = 0
			}
			sb.WriteByte(ch)
		case ch == '\'' || ch == '"':
			quote = ch
			sb.WriteByte(ch)
		case ch == ';':
			stmts = append(stmts, sb.String())
			sb.Reset()
		default:
			sb.WriteByte(ch)
		}
	}
	if sb.Len() > 0 {
		stmts = append(stmts, sb.String())
	}
	return stmts
}
