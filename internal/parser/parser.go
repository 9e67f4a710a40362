package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/leengari/minidb/internal/dberr"
	"github.com/leengari/minidb/internal/parser/ast"
	"github.com/leengari/minidb/internal/parser/lexer"
)

// Parse tokenizes and parses a single statement. Failures come back as
// *dberr.SyntaxError naming the offending statement text.
func Parse(text string) (ast.Statement, error) {
	trimmed := strings.TrimSpace(text)
	tokens, err := lexer.Tokenize(trimmed)
	if err != nil {
		return nil, &dberr.SyntaxError{Statement: trimmed, Reason: err.Error()}
	}
	if len(tokens) == 0 {
		return nil, &dberr.SyntaxError{Statement: trimmed, Reason: "empty statement"}
	}

	p := New(tokens)
	stmt, err := p.ParseStatement()
	if err != nil {
		return nil, &dberr.SyntaxError{Statement: trimmed, Reason: err.Error()}
	}

	// Optional trailing semicolon, then nothing else. A statement that
	// leaves tokens behind matched no shape completely.
	if p.curTok.Type == lexer.SEMICOLON {
		p.nextToken()
	}
	if p.curTok.Type != lexer.EOF {
		return nil, &dberr.SyntaxError{
			Statement: trimmed,
			Reason:    fmt.Sprintf("unexpected %q after statement", p.curTok.Literal),
		}
	}

	return stmt, nil
}

type Parser struct {
	tokens  []lexer.Token
	curPos  int
	curTok  lexer.Token
	peekTok lexer.Token
}

func New(tokens []lexer.Token) *Parser {
	p := &Parser{tokens: tokens, curPos: 0}
	// Read two tokens to set curTok and peekTok
	p.nextToken()
	p.nextToken()
	return p
}

func (p *Parser) nextToken() {
	p.curTok = p.peekTok
	if p.curPos < len(p.tokens) {
		p.peekTok = p.tokens[p.curPos]
		p.curPos++
	} else {
		p.peekTok = lexer.Token{Type: lexer.EOF}
	}
}

// ParseStatement dispatches on the leading keyword. Ordering mirrors the
// fixed statement set; each shape is fully consumed or rejected.
func (p *Parser) ParseStatement() (ast.Statement, error) {
	switch p.curTok.Type {
	case lexer.SELECT:
		return p.parseSelect()
	case lexer.INSERT:
		return p.parseInsert()
	case lexer.CREATE:
		return p.parseCreateTable()
	case lexer.DROP:
		return p.parseDropTable()
	case lexer.ALTER:
		return p.parseAlter()
	case lexer.UPDATE:
		return p.parseUpdate()
	case lexer.DELETE:
		return p.parseDelete()
	case lexer.DESCRIBE:
		return p.parseDescribe()
	case lexer.SHOW:
		return p.parseShowTables()
	case lexer.BEGIN:
		p.nextToken()
		if p.curTok.Type == lexer.TRANSACTION {
			p.nextToken()
		}
		return &ast.BeginStatement{}, nil
	case lexer.COMMIT:
		p.nextToken()
		return &ast.CommitStatement{}, nil
	case lexer.ROLLBACK:
		p.nextToken()
		return &ast.RollbackStatement{}, nil
	default:
		return nil, fmt.Errorf("unexpected token %q at start of statement", p.curTok.Literal)
	}
}

func (p *Parser) expectIdentifier(what string) (string, error) {
	if p.curTok.Type != lexer.IDENTIFIER {
		return "", fmt.Errorf("expected %s, got %q", what, p.curTok.Literal)
	}
	name := p.curTok.Literal
	p.nextToken()
	return name, nil
}

func (p *Parser) expect(t lexer.TokenType, what string) error {
	if p.curTok.Type != t {
		return fmt.Errorf("expected %s, got %q", what, p.curTok.Literal)
	}
	p.nextToken()
	return nil
}

func (p *Parser) parseSelect() (ast.Statement, error) {
	p.nextToken() // SELECT

	// Projection: * or column list
	var fields []string
	if p.curTok.Type == lexer.ASTERISK {
		p.nextToken()
	} else {
		for {
			col, err := p.expectIdentifier("column name")
			if err != nil {
				return nil, err
			}
			fields = append(fields, col)
			if p.curTok.Type != lexer.COMMA {
				break
			}
			p.nextToken()
		}
	}

	if err := p.expect(lexer.FROM, "FROM"); err != nil {
		return nil, err
	}
	tableName, err := p.expectIdentifier("table name")
	if err != nil {
		return nil, err
	}

	// Join form: SELECT * FROM a [INNER] JOIN b ON a.x = b.y
	if p.curTok.Type == lexer.JOIN || p.curTok.Type == lexer.INNER {
		if fields != nil {
			return nil, fmt.Errorf("JOIN requires SELECT *")
		}
		return p.parseJoin(tableName)
	}

	stmt := &ast.SelectStatement{Table: tableName, Fields: fields, Limit: -1}

	if p.curTok.Type == lexer.WHERE {
		p.nextToken()
		cond, err := p.parseCondition()
		if err != nil {
			return nil, err
		}
		stmt.Where = cond
	}

	if p.curTok.Type == lexer.LIMIT {
		p.nextToken()
		if p.curTok.Type != lexer.NUMBER {
			return nil, fmt.Errorf("expected row count after LIMIT, got %q", p.curTok.Literal)
		}
		n, err := strconv.Atoi(p.curTok.Literal)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid LIMIT value %q", p.curTok.Literal)
		}
		stmt.Limit = n
		p.nextToken()
	}

	return stmt, nil
}

func (p *Parser) parseJoin(leftTable string) (*ast.JoinStatement, error) {
	if p.curTok.Type == lexer.INNER {
		p.nextToken()
	}
	if err := p.expect(lexer.JOIN, "JOIN"); err != nil {
		return nil, err
	}

	rightTable, err := p.expectIdentifier("table name")
	if err != nil {
		return nil, err
	}
	if err := p.expect(lexer.ON, "ON"); err != nil {
		return nil, err
	}

	lt, lc, err := p.parseQualifiedColumn()
	if err != nil {
		return nil, err
	}
	if err := p.expect(lexer.EQUALS, "="); err != nil {
		return nil, err
	}
	rt, rc, err := p.parseQualifiedColumn()
	if err != nil {
		return nil, err
	}

	// The ON sides may come in either order; normalize to left/right tables.
	stmt := &ast.JoinStatement{LeftTable: leftTable, RightTable: rightTable}
	switch {
	case lt == leftTable && rt == rightTable:
		stmt.LeftColumn, stmt.RightColumn = lc, rc
	case lt == rightTable && rt == leftTable:
		stmt.LeftColumn, stmt.RightColumn = rc, lc
	default:
		return nil, fmt.Errorf("join condition references unknown table %q or %q", lt, rt)
	}

	return stmt, nil
}

func (p *Parser) parseQualifiedColumn() (table, column string, err error) {
	table, err = p.expectIdentifier("table name")
	if err != nil {
		return "", "", err
	}
	if err = p.expect(lexer.DOT, "."); err != nil {
		return "", "", err
	}
	column, err = p.expectIdentifier("column name")
	if err != nil {
		return "", "", err
	}
	return table, column, nil
}

func (p *Parser) parseInsert() (*ast.InsertStatement, error) {
	p.nextToken() // INSERT
	if err := p.expect(lexer.INTO, "INTO"); err != nil {
		return nil, err
	}
	tableName, err := p.expectIdentifier("table name")
	if err != nil {
		return nil, err
	}
	if err := p.expect(lexer.VALUES, "VALUES"); err != nil {
		return nil, err
	}
	if err := p.expect(lexer.PAREN_OPEN, "("); err != nil {
		return nil, err
	}

	var values []interface{}
	for {
		val, err := p.parseLiteral()
		if err != nil {
			return nil, err
		}
		values = append(values, val)
		if p.curTok.Type != lexer.COMMA {
			break
		}
		p.nextToken()
	}

	if err := p.expect(lexer.PAREN_CLOSE, ")"); err != nil {
		return nil, err
	}

	return &ast.InsertStatement{Table: tableName, Values: values}, nil
}

func (p *Parser) parseCreateTable() (*ast.CreateTableStatement, error) {
	p.nextToken() // CREATE
	if err := p.expect(lexer.TABLE, "TABLE"); err != nil {
		return nil, err
	}
	tableName, err := p.expectIdentifier("table name")
	if err != nil {
		return nil, err
	}
	if err := p.expect(lexer.PAREN_OPEN, "("); err != nil {
		return nil, err
	}

	stmt := &ast.CreateTableStatement{
		Table:       tableName,
		ColumnTypes: make(map[string]string),
		ForeignKeys: make(map[string]string),
	}

	for {
		if p.curTok.Type == lexer.FOREIGN {
			local, ref, err := p.parseForeignKey()
			if err != nil {
				return nil, err
			}
			stmt.ForeignKeys[local] = ref
		} else {
			if err := p.parseColumnDef(stmt); err != nil {
				return nil, err
			}
		}

		if p.curTok.Type != lexer.COMMA {
			break
		}
		p.nextToken()
	}

	if err := p.expect(lexer.PAREN_CLOSE, ")"); err != nil {
		return nil, err
	}

	return stmt, nil
}

// parseColumnDef consumes one "name [type] [UNIQUE]" clause.
func (p *Parser) parseColumnDef(stmt *ast.CreateTableStatement) error {
	name, err := p.expectIdentifier("column name")
	if err != nil {
		return err
	}
	for _, existing := range stmt.Columns {
		if existing == name {
			return fmt.Errorf("duplicate column name %q", name)
		}
	}
	stmt.Columns = append(stmt.Columns, name)

	for {
		switch {
		case p.curTok.Type == lexer.UNIQUE:
			stmt.UniqueColumns = append(stmt.UniqueColumns, name)
			p.nextToken()
		case p.curTok.Type == lexer.IDENTIFIER && isColumnType(p.curTok.Literal):
			stmt.ColumnTypes[name] = strings.ToLower(p.curTok.Literal)
			p.nextToken()
		default:
			return nil
		}
	}
}

func isColumnType(lit string) bool {
	switch strings.ToLower(lit) {
	case "int", "str":
		return true
	}
	return false
}

// parseForeignKey consumes FOREIGN KEY (col) REFERENCES table(col).
func (p *Parser) parseForeignKey() (local, ref string, err error) {
	p.nextToken() // FOREIGN
	if err = p.expect(lexer.KEY, "KEY"); err != nil {
		return "", "", err
	}
	if err = p.expect(lexer.PAREN_OPEN, "("); err != nil {
		return "", "", err
	}
	local, err = p.expectIdentifier("column name")
	if err != nil {
		return "", "", err
	}
	if err = p.expect(lexer.PAREN_CLOSE, ")"); err != nil {
		return "", "", err
	}
	if err = p.expect(lexer.REFERENCES, "REFERENCES"); err != nil {
		return "", "", err
	}
	refTable, err := p.expectIdentifier("referenced table")
	if err != nil {
		return "", "", err
	}
	if err = p.expect(lexer.PAREN_OPEN, "("); err != nil {
		return "", "", err
	}
	refColumn, err := p.expectIdentifier("referenced column")
	if err != nil {
		return "", "", err
	}
	if err = p.expect(lexer.PAREN_CLOSE, ")"); err != nil {
		return "", "", err
	}
	return local, refTable + "." + refColumn, nil
}

func (p *Parser) parseDropTable() (*ast.DropTableStatement, error) {
	p.nextToken() // DROP
	if err := p.expect(lexer.TABLE, "TABLE"); err != nil {
		return nil, err
	}
	tableName, err := p.expectIdentifier("table name")
	if err != nil {
		return nil, err
	}
	return &ast.DropTableStatement{Table: tableName}, nil
}

func (p *Parser) parseAlter() (ast.Statement, error) {
	p.nextToken() // ALTER
	if err := p.expect(lexer.TABLE, "TABLE"); err != nil {
		return nil, err
	}
	tableName, err := p.expectIdentifier("table name")
	if err != nil {
		return nil, err
	}

	switch p.curTok.Type {
	case lexer.ADD:
		p.nextToken()
		column, err := p.expectIdentifier("column name")
		if err != nil {
			return nil, err
		}
		stmt := &ast.AddColumnStatement{Table: tableName, Column: column}
		if p.curTok.Type == lexer.IDENTIFIER && isColumnType(p.curTok.Literal) {
			stmt.ColumnType = strings.ToLower(p.curTok.Literal)
			p.nextToken()
		}
		return stmt, nil

	case lexer.DROP:
		p.nextToken()
		if err := p.expect(lexer.COLUMN, "COLUMN"); err != nil {
			return nil, err
		}
		column, err := p.expectIdentifier("column name")
		if err != nil {
			return nil, err
		}
		return &ast.DropColumnStatement{Table: tableName, Column: column}, nil

	case lexer.RENAME:
		p.nextToken()
		if p.curTok.Type == lexer.COLUMN {
			p.nextToken()
			oldName, err := p.expectIdentifier("column name")
			if err != nil {
				return nil, err
			}
			if err := p.expect(lexer.TO, "TO"); err != nil {
				return nil, err
			}
			newName, err := p.expectIdentifier("new column name")
			if err != nil {
				return nil, err
			}
			return &ast.RenameColumnStatement{Table: tableName, OldName: oldName, NewName: newName}, nil
		}
		if err := p.expect(lexer.TO, "TO"); err != nil {
			return nil, err
		}
		newName, err := p.expectIdentifier("new table name")
		if err != nil {
			return nil, err
		}
		return &ast.RenameTableStatement{Table: tableName, NewName: newName}, nil

	default:
		return nil, fmt.Errorf("expected ADD, DROP COLUMN or RENAME after ALTER TABLE, got %q", p.curTok.Literal)
	}
}

func (p *Parser) parseUpdate() (*ast.UpdateStatement, error) {
	p.nextToken() // UPDATE
	tableName, err := p.expectIdentifier("table name")
	if err != nil {
		return nil, err
	}
	if err := p.expect(lexer.SET, "SET"); err != nil {
		return nil, err
	}
	column, err := p.expectIdentifier("column name")
	if err != nil {
		return nil, err
	}
	if err := p.expect(lexer.EQUALS, "="); err != nil {
		return nil, err
	}
	value, err := p.parseLiteral()
	if err != nil {
		return nil, err
	}
	if err := p.expect(lexer.WHERE, "WHERE"); err != nil {
		return nil, err
	}
	cond, err := p.parseCondition()
	if err != nil {
		return nil, err
	}
	return &ast.UpdateStatement{
		Table:        tableName,
		TargetColumn: column,
		TargetValue:  value,
		Where:        cond,
	}, nil
}

func (p *Parser) parseDelete() (*ast.DeleteStatement, error) {
	p.nextToken() // DELETE
	if err := p.expect(lexer.FROM, "FROM"); err != nil {
		return nil, err
	}
	tableName, err := p.expectIdentifier("table name")
	if err != nil {
		return nil, err
	}
	if err := p.expect(lexer.WHERE, "WHERE"); err != nil {
		return nil, err
	}
	cond, err := p.parseCondition()
	if err != nil {
		return nil, err
	}
	return &ast.DeleteStatement{Table: tableName, Where: cond}, nil
}

func (p *Parser) parseDescribe() (*ast.DescribeStatement, error) {
	p.nextToken() // DESCRIBE / DESC
	tableName, err := p.expectIdentifier("table name")
	if err != nil {
		return nil, err
	}
	return &ast.DescribeStatement{Table: tableName}, nil
}

func (p *Parser) parseShowTables() (*ast.ShowTablesStatement, error) {
	p.nextToken() // SHOW
	if err := p.expect(lexer.TABLES, "TABLES"); err != nil {
		return nil, err
	}
	return &ast.ShowTablesStatement{}, nil
}

// parseCondition consumes "column <op> literal" or "column IN (...)" where
// the parenthesized form is a literal list or a nested SELECT.
func (p *Parser) parseCondition() (*ast.Condition, error) {
	column, err := p.expectIdentifier("column name")
	if err != nil {
		return nil, err
	}

	if p.curTok.Type == lexer.IN {
		p.nextToken()
		if err := p.expect(lexer.PAREN_OPEN, "("); err != nil {
			return nil, err
		}

		cond := &ast.Condition{Column: column, Operator: "IN"}

		if p.curTok.Type == lexer.SELECT {
			sub, err := p.parseSelect()
			if err != nil {
				return nil, err
			}
			sel, ok := sub.(*ast.SelectStatement)
			if !ok {
				return nil, fmt.Errorf("joins are not allowed in IN subqueries")
			}
			cond.Subquery = sel
		} else {
			for {
				val, err := p.parseLiteral()
				if err != nil {
					return nil, err
				}
				cond.Values = append(cond.Values, val)
				if p.curTok.Type != lexer.COMMA {
					break
				}
				p.nextToken()
			}
		}

		if err := p.expect(lexer.PAREN_CLOSE, ")"); err != nil {
			return nil, err
		}
		return cond, nil
	}

	op, err := p.parseOperator()
	if err != nil {
		return nil, err
	}
	value, err := p.parseLiteral()
	if err != nil {
		return nil, err
	}
	return &ast.Condition{Column: column, Operator: op, Value: value}, nil
}

func (p *Parser) parseOperator() (string, error) {
	switch p.curTok.Type {
	case lexer.EQUALS, lexer.NOT_EQUALS, lexer.GT, lexer.LT, lexer.GTE, lexer.LTE:
		op := p.curTok.Literal
		p.nextToken()
		return op, nil
	}
	return "", fmt.Errorf("expected comparison operator, got %q", p.curTok.Literal)
}

// parseLiteral converts a value token: quoted strings are unquoted, numbers
// become int64 unless they contain a '.', anything else stays a bare string.
func (p *Parser) parseLiteral() (interface{}, error) {
	switch p.curTok.Type {
	case lexer.STRING:
		val := p.curTok.Literal
		p.nextToken()
		return val, nil
	case lexer.NUMBER:
		lit := p.curTok.Literal
		p.nextToken()
		if strings.Contains(lit, ".") {
			f, err := strconv.ParseFloat(lit, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid number %q", lit)
			}
			return f, nil
		}
		i, err := strconv.ParseInt(lit, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", lit)
		}
		return i, nil
	case lexer.IDENTIFIER:
		// Unquoted non-numeric token: kept as a bare string value
		val := p.curTok.Literal
		p.nextToken()
		return val, nil
	default:
		return nil, fmt.Errorf("expected value, got %q", p.curTok.Literal)
	}
}
