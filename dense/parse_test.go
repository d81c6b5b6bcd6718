package dense

import (
	"errors"
	"strings"
	"testing"
)

// ============================================================
// Lexer Tests
// ============================================================

func TestLexer_BasicTokens(t *testing.T) {
	tests := []struct {
		input    string
		expected []TokenType
	}{
		{"123", []TokenType{TokenInt, TokenEOF}},
		{"-456", []TokenType{TokenInt, TokenEOF}},
		{"3.14", []TokenType{TokenFloat, TokenEOF}},
		{"-2.5e10", []TokenType{TokenFloat, TokenEOF}},
		{`"hello"`, []TokenType{TokenString, TokenEOF}},
		{"hello_world", []TokenType{TokenBare, TokenEOF}},
		{"a.b.c", []TokenType{TokenBare, TokenEOF}},
		{":", []TokenType{TokenColon, TokenEOF}},
		{"=", []TokenType{TokenEquals, TokenEOF}},
		{">", []TokenType{TokenGT, TokenEOF}},
		{"|", []TokenType{TokenPipe, TokenEOF}},
		{"%", []TokenType{TokenPercent, TokenEOF}},
		{"@", []TokenType{TokenAt, TokenEOF}},
		{"!", []TokenType{TokenBang, TokenEOF}},
		{"?", []TokenType{TokenQuestion, TokenEOF}},
		{"+", []TokenType{TokenPlus, TokenEOF}},
		{"-", []TokenType{TokenMinus, TokenEOF}},
		{"_", []TokenType{TokenDitto, TokenEOF}},
		{"#", []TokenType{TokenHash, TokenEOF}},
		{"_x", []TokenType{TokenBare, TokenEOF}},
		{"a:1", []TokenType{TokenBare, TokenColon, TokenInt, TokenEOF}},
		{"a>x|y", []TokenType{TokenBare, TokenGT, TokenBare, TokenPipe, TokenBare, TokenEOF}},
		{"id%i", []TokenType{TokenBare, TokenPercent, TokenBare, TokenEOF}},
		{"a:1\nb:2", []TokenType{TokenBare, TokenColon, TokenInt, TokenNewline, TokenBare, TokenColon, TokenInt, TokenEOF}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			tokens, err := NewLexer(tt.input).Tokenize()
			if err != nil {
				t.Fatalf("Tokenize failed: %v", err)
			}
			if len(tokens) != len(tt.expected) {
				t.Fatalf("expected %d tokens, got %d: %v", len(tt.expected), len(tokens), tokens)
			}
			for i, tok := range tokens {
				if tok.Type != tt.expected[i] {
					t.Errorf("token %d: expected %s, got %s", i, tt.expected[i], tok.Type)
				}
			}
		})
	}
}

func TestLexer_StringEscapes(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{`"hello world"`, "hello world"},
		{`"line\nbreak"`, "line\nbreak"},
		{`"tab\there"`, "tab\there"},
		{`"quote \" inside"`, `quote " inside`},
		{`"back\\slash"`, `back\slash`},
		{`"pipe \| char"`, "pipe | char"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			tokens, err := NewLexer(tt.input).Tokenize()
			if err != nil {
				t.Fatalf("Tokenize failed: %v", err)
			}
			if tokens[0].Type != TokenString {
				t.Fatalf("expected STRING, got %s", tokens[0].Type)
			}
			if tokens[0].Value != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, tokens[0].Value)
			}
		})
	}
}

func TestLexer_UnterminatedString(t *testing.T) {
	_, err := NewLexer(`key:"no closing quote`).Tokenize()
	if err == nil {
		t.Fatal("expected error for unterminated string")
	}
}

func TestLexer_Positions(t *testing.T) {
	tokens, err := NewLexer("a:1\nbb:2").Tokenize()
	if err != nil {
		t.Fatalf("Tokenize failed: %v", err)
	}
	// Token after the newline starts at line 2, column 1.
	var second Token
	for i, tok := range tokens {
		if tok.Type == TokenNewline {
			second = tokens[i+1]
			break
		}
	}
	if second.Pos.Line != 2 || second.Pos.Column != 1 {
		t.Errorf("expected line 2 col 1, got line %d col %d", second.Pos.Line, second.Pos.Column)
	}
}

// ============================================================
// Parser Tests
// ============================================================

func TestParse_BasicScalars(t *testing.T) {
	v, err := ParseString("name:Alice\nage:30\nactive:+\n")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	name, err := v.Get("name").AsString()
	if err != nil || name != "Alice" {
		t.Errorf("name: expected Alice, got %q (%v)", name, err)
	}
	age, err := v.Get("age").AsInt()
	if err != nil || age != 30 {
		t.Errorf("age: expected 30, got %d (%v)", age, err)
	}
	active, err := v.Get("active").AsBool()
	if err != nil || !active {
		t.Errorf("active: expected true, got %v (%v)", active, err)
	}
}

func TestParse_ScalarKinds(t *testing.T) {
	tests := []struct {
		name  string
		input string
		check func(t *testing.T, v *Value)
	}{
		{"float", "pi:3.14", func(t *testing.T, v *Value) {
			f, err := v.Get("pi").AsFloat()
			if err != nil || f != 3.14 {
				t.Errorf("expected 3.14, got %v (%v)", f, err)
			}
		}},
		{"negative int", "temp:-40", func(t *testing.T, v *Value) {
			n, err := v.Get("temp").AsInt()
			if err != nil || n != -40 {
				t.Errorf("expected -40, got %v (%v)", n, err)
			}
		}},
		{"exponent float", "big:1.5e6", func(t *testing.T, v *Value) {
			f, err := v.Get("big").AsFloat()
			if err != nil || f != 1.5e6 {
				t.Errorf("expected 1.5e6, got %v (%v)", f, err)
			}
		}},
		{"false shorthand", "deleted:-", func(t *testing.T, v *Value) {
			b, err := v.Get("deleted").AsBool()
			if err != nil || b {
				t.Errorf("expected false, got %v (%v)", b, err)
			}
		}},
		{"quoted string", `msg:"hello there"`, func(t *testing.T, v *Value) {
			s, err := v.Get("msg").AsString()
			if err != nil || s != "hello there" {
				t.Errorf("expected 'hello there', got %q (%v)", s, err)
			}
		}},
		{"bang true", "enabled!", func(t *testing.T, v *Value) {
			b, err := v.Get("enabled").AsBool()
			if err != nil || !b {
				t.Errorf("expected true, got %v (%v)", b, err)
			}
		}},
		{"question null", "missing?", func(t *testing.T, v *Value) {
			if !v.Get("missing").IsNull() {
				t.Error("expected null")
			}
		}},
		{"explicit null value", "gone:?", func(t *testing.T, v *Value) {
			if !v.Get("gone").IsNull() {
				t.Error("expected null")
			}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := ParseString(tt.input)
			if err != nil {
				t.Fatalf("Parse failed: %v", err)
			}
			tt.check(t, v)
		})
	}
}

func TestParse_DottedKeys(t *testing.T) {
	v, err := ParseString("server.host:localhost\nserver.port:8080\nserver.tls.enabled:+\n")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	server := v.Get("server")
	if server.Kind() != KindObject {
		t.Fatalf("expected object, got %s", server.Kind())
	}
	host, _ := server.Get("host").AsString()
	if host != "localhost" {
		t.Errorf("host: expected localhost, got %q", host)
	}
	port, _ := server.Get("port").AsInt()
	if port != 8080 {
		t.Errorf("port: expected 8080, got %d", port)
	}
	enabled, _ := server.Get("tls").Get("enabled").AsBool()
	if !enabled {
		t.Error("tls.enabled: expected true")
	}
}

func TestParse_DottedKeyConflict(t *testing.T) {
	_, err := ParseString("a:1\na.b:2\n")
	if err == nil {
		t.Fatal("expected error nesting under a scalar")
	}
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *ParseError, got %T", err)
	}
}

func TestParse_DuplicateKeyOverwrites(t *testing.T) {
	v, err := ParseString("x:1\ny:2\nx:3\n")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	n, _ := v.Get("x").AsInt()
	if n != 3 {
		t.Errorf("expected 3, got %d", n)
	}
	// Overwrite keeps the original position.
	fields, _ := v.AsObject()
	if fields[0].Key != "x" || fields[1].Key != "y" {
		t.Errorf("expected key order [x y], got [%s %s]", fields[0].Key, fields[1].Key)
	}
}

func TestParse_StreamArray(t *testing.T) {
	v, err := ParseString("tags>alpha|beta|gamma\n")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	tags := v.Get("tags")
	if tags.Kind() != KindArray || !tags.IsStream() {
		t.Fatalf("expected stream array, got %s (stream=%v)", tags.Kind(), tags.IsStream())
	}
	if tags.Len() != 3 {
		t.Fatalf("expected 3 elements, got %d", tags.Len())
	}
	first, _ := tags.Index(0)
	s, _ := first.AsString()
	if s != "alpha" {
		t.Errorf("expected alpha, got %q", s)
	}
}

func TestParse_InlineArray(t *testing.T) {
	v, err := ParseString("nums:1|2|3\n")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	nums := v.Get("nums")
	if nums.Kind() != KindArray || nums.IsStream() {
		t.Fatalf("expected non-stream array, got %s (stream=%v)", nums.Kind(), nums.IsStream())
	}
	if nums.Len() != 3 {
		t.Fatalf("expected 3 elements, got %d", nums.Len())
	}
}

func TestParse_MixedArray(t *testing.T) {
	v, err := ParseString(`vals:1|2.5|"three"|+|?` + "\n")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	vals, _ := v.Get("vals").AsArray()
	kinds := []Kind{KindInt, KindFloat, KindString, KindBool, KindNull}
	for i, k := range kinds {
		if vals[i].Kind() != k {
			t.Errorf("element %d: expected %s, got %s", i, k, vals[i].Kind())
		}
	}
}

func TestParse_Table(t *testing.T) {
	input := "users=id%i name%s active%b\n1 Alice +\n2 Bob -\n"
	v, err := ParseString(input)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	tbl, err := v.Get("users").AsTable()
	if err != nil {
		t.Fatalf("AsTable failed: %v", err)
	}
	if len(tbl.Columns) != 3 {
		t.Fatalf("expected 3 columns, got %d", len(tbl.Columns))
	}
	if tbl.Columns[0].Name != "id" || tbl.Columns[0].Type != ColInt {
		t.Errorf("column 0: got %s%%%c", tbl.Columns[0].Name, tbl.Columns[0].Type)
	}
	if len(tbl.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(tbl.Rows))
	}

	id, _ := tbl.Rows[0][0].AsInt()
	name, _ := tbl.Rows[0][1].AsString()
	active, _ := tbl.Rows[0][2].AsBool()
	if id != 1 || name != "Alice" || !active {
		t.Errorf("row 0: got %d %q %v", id, name, active)
	}
	active2, _ := tbl.Rows[1][2].AsBool()
	if active2 {
		t.Error("row 1: expected active=false")
	}
}

func TestParse_TableArityMismatch(t *testing.T) {
	input := "users=id%i name%s\n1 Alice\n2\n"
	_, err := ParseString(input)
	if err == nil {
		t.Fatal("expected arity error")
	}
	var mismatch *TableColumnMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected *TableColumnMismatchError, got %T: %v", err, err)
	}
	if mismatch.Expected != 2 || mismatch.Actual != 1 {
		t.Errorf("expected 2/1, got %d/%d", mismatch.Expected, mismatch.Actual)
	}
	if mismatch.Line != 3 {
		t.Errorf("expected line 3, got %d", mismatch.Line)
	}
}

func TestParse_TableDitto(t *testing.T) {
	input := "events=city%s kind%s\nParis open\n_ close\n"
	v, err := ParseString(input)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	tbl, _ := v.Get("events").AsTable()
	city, _ := tbl.Rows[1][0].AsString()
	if city != "Paris" {
		t.Errorf("ditto: expected Paris, got %q", city)
	}
}

func TestParse_TableDittoFirstRow(t *testing.T) {
	_, err := ParseString("events=city%s\n_\n")
	if err == nil {
		t.Fatal("expected error for ditto in first row")
	}
}

func TestParse_TableAutoIncrement(t *testing.T) {
	input := "items=id%# name%s\nfoo\nbar\nbaz\n"
	v, err := ParseString(input)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	tbl, _ := v.Get("items").AsTable()
	if len(tbl.Rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(tbl.Rows))
	}
	for i, row := range tbl.Rows {
		id, _ := row[0].AsInt()
		if id != int64(i+1) {
			t.Errorf("row %d: expected id %d, got %d", i, i+1, id)
		}
	}
}

func TestParse_TableUnknownColumnType(t *testing.T) {
	_, err := ParseString("users=id%z\n")
	if err == nil {
		t.Fatal("expected error for unknown column type")
	}
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *ParseError, got %T", err)
	}
	if len(pe.Suggestions) == 0 {
		t.Error("expected a suggestion listing valid types")
	}
}

func TestParse_TableFollowedByKey(t *testing.T) {
	input := "users=id%i\n1\n2\ncount:2\n"
	v, err := ParseString(input)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	tbl, _ := v.Get("users").AsTable()
	if len(tbl.Rows) != 2 {
		t.Errorf("expected 2 rows, got %d", len(tbl.Rows))
	}
	count, _ := v.Get("count").AsInt()
	if count != 2 {
		t.Errorf("expected count 2, got %d", count)
	}
}

func TestParse_TableBlankLineTerminates(t *testing.T) {
	input := "a=x%i\n1\n\nb=y%i\n2\n"
	v, err := ParseString(input)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	ta, _ := v.Get("a").AsTable()
	tb, _ := v.Get("b").AsTable()
	if len(ta.Rows) != 1 || len(tb.Rows) != 1 {
		t.Errorf("expected 1 row each, got %d and %d", len(ta.Rows), len(tb.Rows))
	}
}

func TestParse_References(t *testing.T) {
	input := "author:Alice\nbook.writer:@author\n"
	v, err := ParseString(input)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	writer := v.Get("book").Get("writer")
	if writer.Kind() != KindRef {
		t.Fatalf("expected ref, got %s", writer.Kind())
	}
	id, _ := writer.AsRef()
	if id != "author" {
		t.Errorf("expected @author, got @%s", id)
	}
}

func TestParse_UndefinedReference(t *testing.T) {
	_, err := ParseString("book.writer:@nobody\n")
	if err == nil {
		t.Fatal("expected undefined reference error")
	}
	var undef *UndefinedRefError
	if !errors.As(err, &undef) {
		t.Fatalf("expected *UndefinedRefError, got %T: %v", err, err)
	}
	if undef.ID != "nobody" {
		t.Errorf("expected id nobody, got %q", undef.ID)
	}
}

func TestParse_ForwardReferenceRejected(t *testing.T) {
	// References only resolve backward, so self and forward refs fail.
	_, err := ParseString("a:@a\n")
	if err == nil {
		t.Fatal("expected error for self-reference before definition")
	}
}

func TestParse_ErrorPositions(t *testing.T) {
	_, err := ParseString("good:1\nbad\n")
	if err == nil {
		t.Fatal("expected error")
	}
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *ParseError, got %T", err)
	}
	if pe.Pos.Line != 2 {
		t.Errorf("expected line 2, got %d", pe.Pos.Line)
	}
	if pe.Snippet == "" {
		t.Error("expected a snippet")
	}
}

func TestParse_SnippetTruncated(t *testing.T) {
	_, err := ParseString("key:" + strings.Repeat("x", 200) + " %\n")
	if err == nil {
		t.Fatal("expected error")
	}
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *ParseError, got %T", err)
	}
	if len(pe.Snippet) > 50 {
		t.Errorf("snippet is %d chars, want <= 50", len(pe.Snippet))
	}
}

func TestParse_InputTooLarge(t *testing.T) {
	// Checked before lexing, so a synthetic length is enough to verify
	// the guard without allocating 100MB.
	if MaxInputSize != 100*1024*1024 {
		t.Errorf("expected 100MB input limit, got %d", MaxInputSize)
	}
}

func TestParse_EmptyInput(t *testing.T) {
	v, err := ParseString("")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if v.Kind() != KindObject || v.Len() != 0 {
		t.Errorf("expected empty object, got %s with %d entries", v.Kind(), v.Len())
	}
}

func TestParse_BlankLinesIgnored(t *testing.T) {
	v, err := ParseString("\n\na:1\n\n\nb:2\n\n")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if v.Len() != 2 {
		t.Errorf("expected 2 keys, got %d", v.Len())
	}
}

func TestParse_QuotedKey(t *testing.T) {
	v, err := ParseString("\"a.b\":1\n")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	// Quoted key is literal: no nesting.
	n, err := v.Get("a.b").AsInt()
	if err != nil || n != 1 {
		t.Errorf("expected literal key a.b = 1, got %v (%v)", n, err)
	}
}
