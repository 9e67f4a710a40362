package lexer

import "testing"

func TestNextTokenBasic(t *testing.T) {
	input := "SELECT * FROM users WHERE id >= 10;"

	expected := []struct {
		typ     TokenType
		literal string
	}{
		{SELECT, "SELECT"},
		{ASTERISK, "*"},
		{FROM, "FROM"},
		{IDENTIFIER, "users"},
		{WHERE, "WHERE"},
		{IDENTIFIER, "id"},
		{GTE, ">="},
		{NUMBER, "10"},
		{SEMICOLON, ";"},
		{EOF, ""},
	}

	l := New(input)
	for i, exp := range expected {
		tok := l.NextToken()
		if tok.Type != exp.typ {
			t.Fatalf("token %d: expected type %d, got %d (%q)", i, exp.typ, tok.Type, tok.Literal)
		}
		if tok.Literal != exp.literal {
			t.Errorf("token %d: expected literal %q, got %q", i, exp.literal, tok.Literal)
		}
	}
}

func TestKeywordsCaseInsensitive(t *testing.T) {
	tokens, err := Tokenize("select From WHERE insert")
	if err != nil {
		t.Fatalf("Tokenize error: %v", err)
	}
	want := []TokenType{SELECT, FROM, WHERE, INSERT}
	if len(tokens) != len(want) {
		t.Fatalf("expected %d tokens, got %d", len(want), len(tokens))
	}
	for i, typ := range want {
		if tokens[i].Type != typ {
			t.Errorf("token %d: expected type %d, got %d", i, typ, tokens[i].Type)
		}
	}
}

func TestDescAliasesDescribe(t *testing.T) {
	tokens, err := Tokenize("DESC users")
	if err != nil {
		t.Fatalf("Tokenize error: %v", err)
	}
	if tokens[0].Type != DESCRIBE {
		t.Errorf("expected DESC to lex as DESCRIBE, got %d", tokens[0].Type)
	}
}

func TestStringLiterals(t *testing.T) {
	tokens, err := Tokenize(`'single' "double"`)
	if err != nil {
		t.Fatalf("Tokenize error: %v", err)
	}
	if len(tokens) != 2 {
		t.Fatalf("expected 2 tokens, got %d", len(tokens))
	}
	if tokens[0].Type != STRING || tokens[0].Literal != "single" {
		t.Errorf("expected STRING 'single', got %d %q", tokens[0].Type, tokens[0].Literal)
	}
	if tokens[1].Type != STRING || tokens[1].Literal != "double" {
		t.Errorf("expected STRING 'double', got %d %q", tokens[1].Type, tokens[1].Literal)
	}
}

func TestNumbers(t *testing.T) {
	tokens, err := Tokenize("42 -7 3.14")
	if err != nil {
		t.Fatalf("Tokenize error: %v", err)
	}
	want := []string{"42", "-7", "3.14"}
	if len(tokens) != len(want) {
		t.Fatalf("expected %d tokens, got %d", len(want), len(tokens))
	}
	for i, lit := range want {
		if tokens[i].Type != NUMBER {
			t.Errorf("token %d: expected NUMBER, got %d", i, tokens[i].Type)
		}
		if tokens[i].Literal != lit {
			t.Errorf("token %d: expected %q, got %q", i, lit, tokens[i].Literal)
		}
	}
}

func TestOperators(t *testing.T) {
	tokens, err := Tokenize("= != > < >= <=")
	if err != nil {
		t.Fatalf("Tokenize error: %v", err)
	}
	want := []TokenType{EQUALS, NOT_EQUALS, GT, LT, GTE, LTE}
	if len(tokens) != len(want) {
		t.Fatalf("expected %d tokens, got %d", len(want), len(tokens))
	}
	for i, typ := range want {
		if tokens[i].Type != typ {
			t.Errorf("token %d: expected type %d, got %d (%q)", i, typ, tokens[i].Type, tokens[i].Literal)
		}
	}
}

func TestIllegalCharacter(t *testing.T) {
	if _, err := Tokenize("SELECT @ FROM t"); err == nil {
		t.Fatal("expected error for illegal character, got nil")
	}
}
