package parser

import (
	"testing"

	"github.com/leengari/minidb/internal/dberr"
	"github.com/leengari/minidb/internal/parser/ast"
)

func TestParseSelect(t *testing.T) {
	stmt, err := Parse("SELECT id, name FROM users WHERE id = 1;")
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}

	sel, ok := stmt.(*ast.SelectStatement)
	if !ok {
		t.Fatalf("Expected SelectStatement, got %T", stmt)
	}
	if len(sel.Fields) != 2 || sel.Fields[0] != "id" || sel.Fields[1] != "name" {
		t.Errorf("Expected fields [id name], got %v", sel.Fields)
	}
	if sel.Table != "users" {
		t.Errorf("Expected table users, got %s", sel.Table)
	}
	if sel.Where == nil {
		t.Fatal("Expected Where clause, got nil")
	}
	if sel.Where.Column != "id" || sel.Where.Operator != "=" {
		t.Errorf("Expected condition id = 1, got %s %s", sel.Where.Column, sel.Where.Operator)
	}
	if v, ok := sel.Where.Value.(int64); !ok || v != 1 {
		t.Errorf("Expected value int64(1), got %v (%T)", sel.Where.Value, sel.Where.Value)
	}
	if sel.Limit != -1 {
		t.Errorf("Expected no limit (-1), got %d", sel.Limit)
	}
}

func TestParseSelectStar(t *testing.T) {
	stmt, err := Parse("SELECT * FROM users")
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	sel := stmt.(*ast.SelectStatement)
	if sel.Fields != nil {
		t.Errorf("Expected nil fields for *, got %v", sel.Fields)
	}
	if sel.Where != nil {
		t.Errorf("Expected no Where clause, got %+v", sel.Where)
	}
}

func TestParseSelectLimit(t *testing.T) {
	stmt, err := Parse("SELECT * FROM users LIMIT 5")
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	sel := stmt.(*ast.SelectStatement)
	if sel.Limit != 5 {
		t.Errorf("Expected limit 5, got %d", sel.Limit)
	}
}

func TestParseSelectInList(t *testing.T) {
	stmt, err := Parse("SELECT * FROM users WHERE id IN (1, 2, 3)")
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	sel := stmt.(*ast.SelectStatement)
	if sel.Where.Operator != "IN" {
		t.Fatalf("Expected IN operator, got %s", sel.Where.Operator)
	}
	if len(sel.Where.Values) != 3 {
		t.Fatalf("Expected 3 candidate values, got %d", len(sel.Where.Values))
	}
	if v := sel.Where.Values[1].(int64); v != 2 {
		t.Errorf("Expected second candidate 2, got %v", v)
	}
}

func TestParseSelectInSubquery(t *testing.T) {
	stmt, err := Parse("SELECT * FROM orders WHERE user_id IN (SELECT id FROM users WHERE age > 30)")
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	sel := stmt.(*ast.SelectStatement)
	if sel.Where.Subquery == nil {
		t.Fatal("Expected subquery, got nil")
	}
	sub := sel.Where.Subquery
	if sub.Table != "users" {
		t.Errorf("Expected subquery table users, got %s", sub.Table)
	}
	if len(sub.Fields) != 1 || sub.Fields[0] != "id" {
		t.Errorf("Expected subquery fields [id], got %v", sub.Fields)
	}
	if sub.Where == nil || sub.Where.Operator != ">" {
		t.Errorf("Expected subquery condition age > 30, got %+v", sub.Where)
	}
}

func TestParseJoin(t *testing.T) {
	stmt, err := Parse("SELECT * FROM students JOIN courses ON students.id = courses.student_id")
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	join, ok := stmt.(*ast.JoinStatement)
	if !ok {
		t.Fatalf("Expected JoinStatement, got %T", stmt)
	}
	if join.LeftTable != "students" || join.RightTable != "courses" {
		t.Errorf("Expected students/courses, got %s/%s", join.LeftTable, join.RightTable)
	}
	if join.LeftColumn != "id" || join.RightColumn != "student_id" {
		t.Errorf("Expected id/student_id, got %s/%s", join.LeftColumn, join.RightColumn)
	}
}

func TestParseJoinReversedOnClause(t *testing.T) {
	stmt, err := Parse("SELECT * FROM students INNER JOIN courses ON courses.student_id = students.id")
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	join := stmt.(*ast.JoinStatement)
	if join.LeftColumn != "id" || join.RightColumn != "student_id" {
		t.Errorf("ON sides not normalized: got %s/%s", join.LeftColumn, join.RightColumn)
	}
}

func TestParseInsert(t *testing.T) {
	stmt, err := Parse("INSERT INTO users VALUES (1, 'alice', 3.5)")
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	ins, ok := stmt.(*ast.InsertStatement)
	if !ok {
		t.Fatalf("Expected InsertStatement, got %T", stmt)
	}
	if ins.Table != "users" {
		t.Errorf("Expected table users, got %s", ins.Table)
	}
	if len(ins.Values) != 3 {
		t.Fatalf("Expected 3 values, got %d", len(ins.Values))
	}
	if v := ins.Values[0].(int64); v != 1 {
		t.Errorf("Expected int64(1), got %v", ins.Values[0])
	}
	if v := ins.Values[1].(string); v != "alice" {
		t.Errorf("Expected 'alice', got %v", ins.Values[1])
	}
	if v := ins.Values[2].(float64); v != 3.5 {
		t.Errorf("Expected 3.5, got %v", ins.Values[2])
	}
}

func TestParseCreateTable(t *testing.T) {
	stmt, err := Parse("CREATE TABLE users (id int, name str, email str UNIQUE)")
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	create, ok := stmt.(*ast.CreateTableStatement)
	if !ok {
		t.Fatalf("Expected CreateTableStatement, got %T", stmt)
	}
	if len(create.Columns) != 3 {
		t.Fatalf("Expected 3 columns, got %d", len(create.Columns))
	}
	if create.ColumnTypes["id"] != "int" || create.ColumnTypes["name"] != "str" {
		t.Errorf("Column types wrong: %v", create.ColumnTypes)
	}
	if len(create.UniqueColumns) != 1 || create.UniqueColumns[0] != "email" {
		t.Errorf("Expected unique [email], got %v", create.UniqueColumns)
	}
}

func TestParseCreateTableForeignKey(t *testing.T) {
	stmt, err := Parse("CREATE TABLE orders (id int, user_id int, FOREIGN KEY (user_id) REFERENCES users(id))")
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	create := stmt.(*ast.CreateTableStatement)
	if create.ForeignKeys["user_id"] != "users.id" {
		t.Errorf("Expected foreign key user_id -> users.id, got %v", create.ForeignKeys)
	}
}

func TestParseCreateTableDuplicateColumn(t *testing.T) {
	if _, err := Parse("CREATE TABLE t (id, id)"); err == nil {
		t.Fatal("Expected error for duplicate column, got nil")
	}
}

func TestParseUpdate(t *testing.T) {
	stmt, err := Parse("UPDATE users SET name = 'bob' WHERE id = 2")
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	upd, ok := stmt.(*ast.UpdateStatement)
	if !ok {
		t.Fatalf("Expected UpdateStatement, got %T", stmt)
	}
	if upd.TargetColumn != "name" || upd.TargetValue.(string) != "bob" {
		t.Errorf("Expected SET name = 'bob', got %s = %v", upd.TargetColumn, upd.TargetValue)
	}
	if upd.Where == nil {
		t.Fatal("Expected Where clause, got nil")
	}
}

func TestParseUpdateRequiresWhere(t *testing.T) {
	if _, err := Parse("UPDATE users SET name = 'bob'"); err == nil {
		t.Fatal("Expected error for UPDATE without WHERE, got nil")
	}
}

func TestParseDelete(t *testing.T) {
	stmt, err := Parse("DELETE FROM users WHERE id != 3")
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	del, ok := stmt.(*ast.DeleteStatement)
	if !ok {
		t.Fatalf("Expected DeleteStatement, got %T", stmt)
	}
	if del.Where.Operator != "!=" {
		t.Errorf("Expected operator !=, got %s", del.Where.Operator)
	}
}

func TestParseDeleteRequiresWhere(t *testing.T) {
	if _, err := Parse("DELETE FROM users"); err == nil {
		t.Fatal("Expected error for DELETE without WHERE, got nil")
	}
}

func TestParseAlter(t *testing.T) {
	cases := []struct {
		input string
		check func(t *testing.T, stmt ast.Statement)
	}{
		{
			"ALTER TABLE users ADD age int",
			func(t *testing.T, stmt ast.Statement) {
				add := stmt.(*ast.AddColumnStatement)
				if add.Column != "age" || add.ColumnType != "int" {
					t.Errorf("Expected ADD age int, got %s %s", add.Column, add.ColumnType)
				}
			},
		},
		{
			"ALTER TABLE users DROP COLUMN age",
			func(t *testing.T, stmt ast.Statement) {
				drop := stmt.(*ast.DropColumnStatement)
				if drop.Column != "age" {
					t.Errorf("Expected DROP COLUMN age, got %s", drop.Column)
				}
			},
		},
		{
			"ALTER TABLE users RENAME COLUMN name TO full_name",
			func(t *testing.T, stmt ast.Statement) {
				ren := stmt.(*ast.RenameColumnStatement)
				if ren.OldName != "name" || ren.NewName != "full_name" {
					t.Errorf("Expected RENAME name TO full_name, got %s TO %s", ren.OldName, ren.NewName)
				}
			},
		},
		{
			"ALTER TABLE users RENAME TO people",
			func(t *testing.T, stmt ast.Statement) {
				ren := stmt.(*ast.RenameTableStatement)
				if ren.NewName != "people" {
					t.Errorf("Expected RENAME TO people, got %s", ren.NewName)
				}
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.input, func(t *testing.T) {
			stmt, err := Parse(tc.input)
			if err != nil {
				t.Fatalf("Parse error: %v", err)
			}
			tc.check(t, stmt)
		})
	}
}

func TestParseTransactionStatements(t *testing.T) {
	for input, want := range map[string]interface{}{
		"BEGIN":             &ast.BeginStatement{},
		"BEGIN TRANSACTION": &ast.BeginStatement{},
		"COMMIT":            &ast.CommitStatement{},
		"ROLLBACK":          &ast.RollbackStatement{},
	} {
		stmt, err := Parse(input)
		if err != nil {
			t.Fatalf("Parse(%q) error: %v", input, err)
		}
		if stmtType, wantType := typeName(stmt), typeName(want); stmtType != wantType {
			t.Errorf("Parse(%q): expected %s, got %s", input, wantType, stmtType)
		}
	}
}

func typeName(v interface{}) string {
	switch v.(type) {
	case *ast.BeginStatement:
		return "begin"
	case *ast.CommitStatement:
		return "commit"
	case *ast.RollbackStatement:
		return "rollback"
	default:
		return "other"
	}
}

func TestParseDescribeAndShow(t *testing.T) {
	stmt, err := Parse("DESCRIBE users")
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if _, ok := stmt.(*ast.DescribeStatement); !ok {
		t.Fatalf("Expected DescribeStatement, got %T", stmt)
	}

	stmt, err = Parse("DESC users")
	if err != nil {
		t.Fatalf("Parse error for DESC: %v", err)
	}
	if _, ok := stmt.(*ast.DescribeStatement); !ok {
		t.Fatalf("Expected DescribeStatement for DESC, got %T", stmt)
	}

	stmt, err = Parse("SHOW TABLES")
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if _, ok := stmt.(*ast.ShowTablesStatement); !ok {
		t.Fatalf("Expected ShowTablesStatement, got %T", stmt)
	}
}

func TestParseSyntaxErrorType(t *testing.T) {
	_, err := Parse("SELEKT * FROM users")
	if err == nil {
		t.Fatal("Expected error, got nil")
	}
	se, ok := err.(*dberr.SyntaxError)
	if !ok {
		t.Fatalf("Expected *dberr.SyntaxError, got %T", err)
	}
	if se.Statement == "" {
		t.Error("Expected error to carry the statement text")
	}
}

func TestParseTrailingGarbage(t *testing.T) {
	if _, err := Parse("SELECT * FROM users garbage extra"); err == nil {
		t.Fatal("Expected error for trailing tokens, got nil")
	}
}
