package ast

// Statement is the tagged command produced by the parser; one implementation
// per recognized statement shape.
type Statement interface {
	statementNode()
}

// Condition is a single WHERE predicate: column <op> value.
// Operator is one of =, !=, >, <, >=, <= or IN. For IN, either Values holds
// a literal list or Subquery holds a single-column SELECT the engine
// executes and substitutes before evaluation.
type Condition struct {
	Column   string
	Operator string
	Value    interface{}
	Values   []interface{}
	Subquery *SelectStatement
}

// CreateTableStatement: CREATE TABLE t (col [type] [UNIQUE], ..., FOREIGN KEY (col) REFERENCES t2(c))
type CreateTableStatement struct {
	Table         string
	Columns       []string
	ColumnTypes   map[string]string
	UniqueColumns []string
	ForeignKeys   map[string]string // local column -> "table.column"
}

// DescribeStatement: DESCRIBE t / DESC t
type DescribeStatement struct {
	Table string
}

// DropTableStatement: DROP TABLE t
type DropTableStatement struct {
	Table string
}

// AddColumnStatement: ALTER TABLE t ADD col [type]
type AddColumnStatement struct {
	Table      string
	Column     string
	ColumnType string // "" when untyped
}

// DropColumnStatement: ALTER TABLE t DROP COLUMN col
type DropColumnStatement struct {
	Table  string
	Column string
}

// RenameColumnStatement: ALTER TABLE t RENAME COLUMN old TO new
type RenameColumnStatement struct {
	Table   string
	OldName string
	NewName string
}

// RenameTableStatement: ALTER TABLE t RENAME TO new
type RenameTableStatement struct {
	Table   string
	NewName string
}

// InsertStatement: INSERT INTO t VALUES (v1, v2, ...)
// Values are positional against the table's column order.
type InsertStatement struct {
	Table  string
	Values []interface{}
}

// SelectStatement: SELECT */collist FROM t [WHERE cond] [LIMIT n]
type SelectStatement struct {
	Table  string
	Fields []string // nil means *
	Where  *Condition
	Limit  int // -1 when absent
}

// JoinStatement: SELECT * FROM a [INNER] JOIN b ON a.x = b.y
type JoinStatement struct {
	LeftTable   string
	RightTable  string
	LeftColumn  string
	RightColumn string
}

// UpdateStatement: UPDATE t SET col = v WHERE cond
type UpdateStatement struct {
	Table        string
	TargetColumn string
	TargetValue  interface{}
	Where        *Condition
}

// DeleteStatement: DELETE FROM t WHERE cond
type DeleteStatement struct {
	Table string
	Where *Condition
}

// BeginStatement: BEGIN [TRANSACTION]
type BeginStatement struct{}

// CommitStatement: COMMIT
type CommitStatement struct{}

// RollbackStatement: ROLLBACK
type RollbackStatement struct{}

// ShowTablesStatement: SHOW TABLES
type ShowTablesStatement struct{}

func (*CreateTableStatement) statementNode()  {}
func (*DescribeStatement) statementNode()     {}
func (*DropTableStatement) statementNode()    {}
func (*AddColumnStatement) statementNode()    {}
func (*DropColumnStatement) statementNode()   {}
func (*RenameColumnStatement) statementNode() {}
func (*RenameTableStatement) statementNode()  {}
func (*InsertStatement) statementNode()       {}
func (*SelectStatement) statementNode()       {}
func (*JoinStatement) statementNode()         {}
func (*UpdateStatement) statementNode()       {}
func (*DeleteStatement) statementNode()       {}
func (*BeginStatement) statementNode()        {}
func (*CommitStatement) statementNode()       {}
func (*RollbackStatement) statementNode()     {}
func (*ShowTablesStatement) statementNode()   {}
