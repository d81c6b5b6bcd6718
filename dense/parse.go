package dense

import (
	"fmt"
	"strconv"
	"strings"
)

// Parse parses wire-format text into a Value tree. The result is always
// an object; top-level keys double as anchor ids for @ references.
func Parse(data []byte) (*Value, error) {
	return ParseString(string(data))
}

// ParseString is Parse for callers that already hold a string.
func ParseString(input string) (*Value, error) {
	if len(input) > MaxInputSize {
		return nil, &InputTooLargeError{Size: len(input), Max: MaxInputSize}
	}

	lexer := NewLexer(input)
	tokens, err := lexer.Tokenize()
	if err != nil {
		pos := Position{Line: 1, Column: 1}
		if n := len(tokens); n > 0 {
			pos = tokens[n-1].Pos
		}
		return nil, &ParseError{
			Message: err.Error(),
			Pos:     pos,
			Snippet: extractSnippet(input, pos.Offset),
		}
	}

	p := &parser{
		input:   input,
		ts:      NewTokenStream(tokens),
		anchors: make(map[string]bool),
	}
	return p.parseDocument()
}

// parser holds state for a single Parse call.
type parser struct {
	input   string
	ts      *TokenStream
	anchors map[string]bool // top-level keys seen so far
}

func (p *parser) parseDocument() (*Value, error) {
	root := Object()

	for !p.ts.AtEnd() {
		if p.ts.Match(TokenNewline) {
			continue
		}

		if err := p.parseLine(root); err != nil {
			return nil, err
		}
	}

	return root, nil
}

// parseLine parses one top-level statement: a key assignment, a shorthand,
// a stream array, or a table (which consumes its row lines too).
func (p *parser) parseLine(root *Value) error {
	keyTok := p.ts.Peek()
	if keyTok.Type != TokenBare && keyTok.Type != TokenString {
		return p.errorf(keyTok.Pos, "expected key, got %s", keyTok)
	}
	p.ts.Advance()

	op := p.ts.Peek()
	switch op.Type {
	case TokenColon:
		p.ts.Advance()
		val, err := p.parseValue()
		if err != nil {
			return err
		}
		val.SetPos(keyTok.Pos)
		return p.assign(root, keyTok, val)

	case TokenBang:
		// key! is shorthand for key:true
		p.ts.Advance()
		return p.assign(root, keyTok, Bool(true))

	case TokenQuestion:
		// key? is shorthand for key:null
		p.ts.Advance()
		return p.assign(root, keyTok, Null())

	case TokenGT:
		p.ts.Advance()
		val, err := p.parseStreamArray()
		if err != nil {
			return err
		}
		val.SetPos(keyTok.Pos)
		return p.assign(root, keyTok, val)

	case TokenEquals:
		p.ts.Advance()
		tbl, err := p.parseTable(keyTok)
		if err != nil {
			return err
		}
		val := TableValue(tbl)
		val.SetPos(keyTok.Pos)
		return p.assign(root, keyTok, val)

	default:
		return p.errorWithSuggestions(op.Pos,
			fmt.Sprintf("expected ':', '!', '?', '>' or '=' after key %q, got %s", keyTok.Value, op),
			[]string{
				fmt.Sprintf("%s:value for a scalar", keyTok.Value),
				fmt.Sprintf("%s! for true, %s? for null", keyTok.Value, keyTok.Value),
				fmt.Sprintf("%s>a|b|c for a stream", keyTok.Value),
			})
	}
}

// assign places a value under a possibly-dotted key, building intermediate
// objects as needed, and registers the top-level segment as an anchor.
func (p *parser) assign(root *Value, keyTok Token, val *Value) error {
	segments := []string{keyTok.Value}
	if keyTok.Type == TokenBare {
		// Only bare keys nest; a quoted key is a single literal segment.
		segments = strings.Split(keyTok.Value, ".")
	}
	if len(segments) > MaxDepth {
		return &DepthExceededError{Depth: len(segments), Max: MaxDepth}
	}
	for _, seg := range segments {
		if seg == "" {
			return p.errorf(keyTok.Pos, "empty segment in key %q", keyTok.Value)
		}
	}

	p.anchors[segments[0]] = true

	cur := root
	for _, seg := range segments[:len(segments)-1] {
		next := cur.Get(seg)
		if next == nil {
			next = Object()
			next.SetPos(keyTok.Pos)
			cur.Set(seg, next)
		} else if next.Kind() != KindObject {
			return p.errorf(keyTok.Pos,
				"cannot nest under %q in key %q: already holds a %s", seg, keyTok.Value, next.Kind())
		}
		cur = next
	}

	last := segments[len(segments)-1]
	cur.Set(last, val)
	return nil
}

// parseValue parses the value part of key:value. A pipe after the first
// scalar turns it into a (non-stream) array.
func (p *parser) parseValue() (*Value, error) {
	first, err := p.parseScalar()
	if err != nil {
		return nil, err
	}

	if p.ts.Peek().Type != TokenPipe {
		return first, nil
	}

	arr := Array(first)
	for p.ts.Match(TokenPipe) {
		elem, err := p.parseScalar()
		if err != nil {
			return nil, err
		}
		arr.Append(elem)
	}
	return arr, nil
}

// parseStreamArray parses the pipe-separated elements after key>.
// A bare `key>` at end of line is an empty stream.
func (p *parser) parseStreamArray() (*Value, error) {
	arr := StreamArray()
	if t := p.ts.Peek().Type; t == TokenNewline || t == TokenEOF {
		return arr, nil
	}
	for {
		elem, err := p.parseScalar()
		if err != nil {
			return nil, err
		}
		arr.Append(elem)
		if !p.ts.Match(TokenPipe) {
			break
		}
	}
	return arr, nil
}

// parseScalar parses a single scalar value token.
func (p *parser) parseScalar() (*Value, error) {
	tok := p.ts.Peek()
	switch tok.Type {
	case TokenInt:
		p.ts.Advance()
		n, err := strconv.ParseInt(tok.Value, 10, 64)
		if err != nil {
			return nil, p.errorf(tok.Pos, "invalid integer %q", tok.Value)
		}
		return Int(n), nil

	case TokenFloat:
		p.ts.Advance()
		f, err := strconv.ParseFloat(tok.Value, 64)
		if err != nil {
			return nil, p.errorf(tok.Pos, "invalid number %q", tok.Value)
		}
		return Float(f), nil

	case TokenString:
		p.ts.Advance()
		return Str(tok.Value), nil

	case TokenBare:
		p.ts.Advance()
		return Str(tok.Value), nil

	case TokenPlus:
		p.ts.Advance()
		return Bool(true), nil

	case TokenMinus:
		p.ts.Advance()
		return Bool(false), nil

	case TokenQuestion:
		p.ts.Advance()
		return Null(), nil

	case TokenAt:
		p.ts.Advance()
		id := p.ts.Peek()
		if id.Type != TokenBare && id.Type != TokenInt {
			return nil, p.errorf(id.Pos, "expected reference id after '@', got %s", id)
		}
		p.ts.Advance()
		if !p.anchors[id.Value] {
			return nil, &UndefinedRefError{ID: id.Value, Pos: id.Pos}
		}
		return Ref(id.Value), nil

	default:
		return nil, p.errorf(tok.Pos, "expected value, got %s", tok)
	}
}

// Table type tags used in schema declarations.
const (
	ColString = 's'
	ColInt    = 'i'
	ColFloat  = 'f'
	ColBool   = 'b'
	ColAuto   = '#' // auto-increment: cell omitted from rows, filled 1,2,3,...
)

func validColumnType(t byte) bool {
	switch t {
	case ColString, ColInt, ColFloat, ColBool, ColAuto:
		return true
	}
	return false
}

// parseTable parses a table schema line plus its row lines. Rows end at
// a blank line, at EOF, or at a line that starts a new key statement.
func (p *parser) parseTable(nameTok Token) (*Table, error) {
	cols, err := p.parseSchema()
	if err != nil {
		return nil, err
	}

	tbl := &Table{Name: nameTok.Value, Columns: cols}

	// Count non-auto columns: rows carry exactly that many cells.
	expected := 0
	for _, c := range cols {
		if c.Type != ColAuto {
			expected++
		}
	}

	autoCounter := int64(0)
	var prevRow []*Value

	for {
		if !p.ts.Match(TokenNewline) {
			break // EOF or stray token; the caller will report it
		}
		if p.ts.Peek().Type == TokenNewline || p.ts.AtEnd() {
			break // blank line terminates the table
		}
		if p.startsKeyLine() {
			break
		}

		rowPos := p.ts.Peek().Pos
		cells, err := p.parseRowCells()
		if err != nil {
			return nil, err
		}
		if len(cells) != expected {
			return nil, &TableColumnMismatchError{
				Table:    tbl.Name,
				Expected: expected,
				Actual:   len(cells),
				Line:     rowPos.Line,
			}
		}

		autoCounter++
		row := make([]*Value, 0, len(cols))
		ci := 0
		for colIdx, col := range cols {
			if col.Type == ColAuto {
				row = append(row, Int(autoCounter))
				continue
			}
			cell := cells[ci]
			ci++

			if cell == nil { // ditto
				if prevRow == nil {
					return nil, p.errorf(rowPos,
						"'_' in first row of table %q: no previous value for column %q", tbl.Name, col.Name)
				}
				row = append(row, prevRow[colIdx])
				continue
			}

			typed, err := coerceCell(cell, col)
			if err != nil {
				return nil, p.errorf(rowPos, "table %q column %q: %v", tbl.Name, col.Name, err)
			}
			row = append(row, typed)
		}

		if len(tbl.Rows) >= MaxTableRows {
			return nil, &TableTooLargeError{Table: tbl.Name, Rows: len(tbl.Rows) + 1, Max: MaxTableRows}
		}
		tbl.Rows = append(tbl.Rows, row)
		prevRow = row
	}

	return tbl, nil
}

// parseSchema parses col%t pairs up to end of line.
func (p *parser) parseSchema() ([]Column, error) {
	var cols []Column
	for {
		tok := p.ts.Peek()
		if tok.Type == TokenNewline || tok.Type == TokenEOF {
			break
		}
		if tok.Type != TokenBare {
			return nil, p.errorf(tok.Pos, "expected column name, got %s", tok)
		}
		p.ts.Advance()

		if !p.ts.Match(TokenPercent) {
			return nil, p.errorf(p.ts.Peek().Pos, "expected '%%' after column name %q", tok.Value)
		}

		typeTok := p.ts.Peek()
		var typeTag byte
		switch {
		case typeTok.Type == TokenHash:
			typeTag = ColAuto
		case typeTok.Type == TokenBare && len(typeTok.Value) == 1:
			typeTag = typeTok.Value[0]
		default:
			return nil, p.errorf(typeTok.Pos, "expected column type after '%%', got %s", typeTok)
		}
		p.ts.Advance()

		if !validColumnType(typeTag) {
			return nil, p.errorWithSuggestions(typeTok.Pos,
				fmt.Sprintf("unknown column type %q in schema", string(typeTag)),
				[]string{"valid types: s (string), i (int), f (float), b (bool), # (auto-increment)"})
		}

		cols = append(cols, Column{Name: tok.Value, Type: typeTag})
	}
	if len(cols) == 0 {
		return nil, p.errorf(p.ts.Peek().Pos, "table schema has no columns")
	}
	return cols, nil
}

// parseRowCells reads one row line. A nil entry marks a ditto cell.
func (p *parser) parseRowCells() ([]*Value, error) {
	var cells []*Value
	for {
		tok := p.ts.Peek()
		if tok.Type == TokenNewline || tok.Type == TokenEOF {
			break
		}
		if tok.Type == TokenDitto {
			p.ts.Advance()
			cells = append(cells, nil)
			continue
		}
		cell, err := p.parseScalar()
		if err != nil {
			return nil, err
		}
		cells = append(cells, cell)
	}
	return cells, nil
}

// coerceCell checks a parsed cell against its column type, converting
// where the grammar allows it (int literals in float columns).
func coerceCell(cell *Value, col Column) (*Value, error) {
	switch col.Type {
	case ColString:
		if cell.Kind() == KindString {
			return cell, nil
		}
		// Numbers and booleans in a string column keep their literal text.
		switch cell.Kind() {
		case KindInt:
			n, _ := cell.AsInt()
			return Str(strconv.FormatInt(n, 10)), nil
		case KindFloat:
			f, _ := cell.AsFloat()
			return Str(strconv.FormatFloat(f, 'g', -1, 64)), nil
		}
		return nil, fmt.Errorf("expected string, got %s", cell.Kind())

	case ColInt:
		if cell.Kind() == KindInt {
			return cell, nil
		}
		if cell.Kind() == KindString {
			if s, _ := cell.AsString(); s != "" {
				if n, err := strconv.ParseInt(s, 10, 64); err == nil {
					return Int(n), nil
				}
			}
		}
		return nil, fmt.Errorf("expected int, got %s", cell.Kind())

	case ColFloat:
		switch cell.Kind() {
		case KindFloat:
			return cell, nil
		case KindInt:
			n, _ := cell.AsInt()
			return Float(float64(n)), nil
		}
		return nil, fmt.Errorf("expected float, got %s", cell.Kind())

	case ColBool:
		if cell.Kind() == KindBool {
			return cell, nil
		}
		return nil, fmt.Errorf("expected bool (+ or -), got %s", cell.Kind())
	}
	return nil, fmt.Errorf("unknown column type %q", string(col.Type))
}

// startsKeyLine reports whether the cursor sits at the start of a new
// key statement rather than a table row: a key token followed directly
// by one of the statement operators.
func (p *parser) startsKeyLine() bool {
	first := p.ts.Peek()
	if first.Type != TokenBare && first.Type != TokenString {
		return false
	}
	switch p.ts.PeekN(1).Type {
	case TokenColon, TokenEquals, TokenGT, TokenBang, TokenQuestion:
		return true
	}
	return false
}

func (p *parser) errorf(pos Position, format string, args ...any) error {
	return &ParseError{
		Message: fmt.Sprintf(format, args...),
		Pos:     pos,
		Snippet: extractSnippet(p.input, pos.Offset),
	}
}

func (p *parser) errorWithSuggestions(pos Position, msg string, suggestions []string) error {
	return &ParseError{
		Message:     msg,
		Pos:         pos,
		Snippet:     extractSnippet(p.input, pos.Offset),
		Suggestions: suggestions,
	}
}
