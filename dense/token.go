package dense

import (
	"fmt"
	"strings"
)

// TokenType identifies a lexer token in the wire grammar.
type TokenType uint8

const (
	TokenEOF TokenType = iota
	TokenError

	TokenNewline // \n (significant: the grammar is line-oriented)

	// Literals
	TokenInt    // 123, -456
	TokenFloat  // 1.23, -4.56e7
	TokenString // "quoted string"
	TokenBare   // bare_word, dotted.key, Alice

	// Operators
	TokenColon    // :
	TokenEquals   // =
	TokenGT       // >
	TokenPipe     // |
	TokenPercent  // %
	TokenAt       // @
	TokenBang     // !  (implicit true)
	TokenQuestion // ?  (implicit null)
	TokenPlus     // +  (boolean true shorthand)
	TokenMinus    // -  (boolean false shorthand)
	TokenDitto    // _  (repeat cell above in table rows)
	TokenHash     // #  (auto-increment column type)
)

// String returns the token type name.
func (t TokenType) String() string {
	switch t {
	case TokenEOF:
		return "EOF"
	case TokenError:
		return "ERROR"
	case TokenNewline:
		return "NEWLINE"
	case TokenInt:
		return "INT"
	case TokenFloat:
		return "FLOAT"
	case TokenString:
		return "STRING"
	case TokenBare:
		return "BARE"
	case TokenColon:
		return ":"
	case TokenEquals:
		return "="
	case TokenGT:
		return ">"
	case TokenPipe:
		return "|"
	case TokenPercent:
		return "%"
	case TokenAt:
		return "@"
	case TokenBang:
		return "!"
	case TokenQuestion:
		return "?"
	case TokenPlus:
		return "+"
	case TokenMinus:
		return "-"
	case TokenDitto:
		return "_"
	case TokenHash:
		return "#"
	default:
		return "UNKNOWN"
	}
}

// Token is a single lexer token.
type Token struct {
	Type  TokenType
	Value string
	Pos   Position
}

// String returns a debug representation of the token.
func (t Token) String() string {
	if t.Value == "" {
		return t.Type.String()
	}
	return fmt.Sprintf("%s(%q)", t.Type, t.Value)
}

// Lexer tokenizes wire-grammar text.
type Lexer struct {
	input string
	pos   int
	line  int // 1-based
	col   int // 1-based
	err   error
}

// NewLexer creates a lexer for the given input.
func NewLexer(input string) *Lexer {
	return &Lexer{input: input, line: 1, col: 1}
}

// Tokenize returns all tokens from the input.
func (l *Lexer) Tokenize() ([]Token, error) {
	var tokens []Token
	for {
		tok := l.nextToken()
		tokens = append(tokens, tok)
		if tok.Type == TokenEOF || tok.Type == TokenError {
			break
		}
	}
	return tokens, l.err
}

func (l *Lexer) nextToken() Token {
	l.skipSpaces()

	if l.pos >= len(l.input) {
		return Token{Type: TokenEOF, Pos: l.currentPos()}
	}

	startPos := l.currentPos()
	ch := l.peek()

	switch ch {
	case '\n':
		l.advance()
		return Token{Type: TokenNewline, Value: "\n", Pos: startPos}
	case ':':
		l.advance()
		return Token{Type: TokenColon, Value: ":", Pos: startPos}
	case '=':
		l.advance()
		return Token{Type: TokenEquals, Value: "=", Pos: startPos}
	case '>':
		l.advance()
		return Token{Type: TokenGT, Value: ">", Pos: startPos}
	case '|':
		l.advance()
		return Token{Type: TokenPipe, Value: "|", Pos: startPos}
	case '%':
		l.advance()
		return Token{Type: TokenPercent, Value: "%", Pos: startPos}
	case '@':
		l.advance()
		return Token{Type: TokenAt, Value: "@", Pos: startPos}
	case '!':
		l.advance()
		return Token{Type: TokenBang, Value: "!", Pos: startPos}
	case '?':
		l.advance()
		return Token{Type: TokenQuestion, Value: "?", Pos: startPos}
	case '#':
		l.advance()
		return Token{Type: TokenHash, Value: "#", Pos: startPos}
	case '+':
		l.advance()
		return Token{Type: TokenPlus, Value: "+", Pos: startPos}
	case '"':
		return l.scanString()
	}

	// Minus: negative number or boolean-false shorthand.
	if ch == '-' {
		if l.pos+1 < len(l.input) && isDigit(l.input[l.pos+1]) {
			return l.scanNumber()
		}
		l.advance()
		return Token{Type: TokenMinus, Value: "-", Pos: startPos}
	}

	// Lone underscore is the table-row ditto operator.
	if ch == '_' && !l.nextIsBareChar() {
		l.advance()
		return Token{Type: TokenDitto, Value: "_", Pos: startPos}
	}

	if isDigit(ch) {
		return l.scanNumber()
	}

	if isBareStart(ch) {
		return l.scanBare()
	}

	l.advance()
	l.err = fmt.Errorf("unexpected character %q at %s", ch, startPos)
	return Token{Type: TokenError, Value: string(ch), Pos: startPos}
}

// scanString scans a quoted string, processing escape sequences.
func (l *Lexer) scanString() Token {
	startPos := l.currentPos()
	l.advance() // opening "

	var sb strings.Builder
	for {
		if l.pos >= len(l.input) {
			l.err = fmt.Errorf("unterminated string at %s", startPos)
			return Token{Type: TokenError, Value: sb.String(), Pos: startPos}
		}

		ch := l.peek()
		if ch == '"' {
			l.advance()
			break
		}
		if ch == '\n' {
			l.err = fmt.Errorf("unterminated string at %s", startPos)
			return Token{Type: TokenError, Value: sb.String(), Pos: startPos}
		}

		if ch == '\\' {
			l.advance()
			if l.pos >= len(l.input) {
				l.err = fmt.Errorf("unterminated escape at %s", l.currentPos())
				return Token{Type: TokenError, Value: sb.String(), Pos: startPos}
			}
			escaped := l.peek()
			l.advance()
			switch escaped {
			case 'n':
				sb.WriteByte('\n')
			case 'r':
				sb.WriteByte('\r')
			case 't':
				sb.WriteByte('\t')
			case '\\':
				sb.WriteByte('\\')
			case '"':
				sb.WriteByte('"')
			case '|':
				sb.WriteByte('|')
			default:
				l.err = fmt.Errorf("invalid escape sequence \\%c at %s", escaped, l.currentPos())
				return Token{Type: TokenError, Value: sb.String(), Pos: startPos}
			}
		} else {
			sb.WriteByte(ch)
			l.advance()
		}
	}

	return Token{Type: TokenString, Value: sb.String(), Pos: startPos}
}

// scanNumber scans an integer or float, including exponent forms.
func (l *Lexer) scanNumber() Token {
	startPos := l.currentPos()
	start := l.pos

	if l.peek() == '-' {
		l.advance()
	}
	for l.pos < len(l.input) && isDigit(l.peek()) {
		l.advance()
	}

	isFloat := false
	if l.pos < len(l.input) && l.peek() == '.' {
		next := l.pos + 1
		if next < len(l.input) && isDigit(l.input[next]) {
			isFloat = true
			l.advance()
			for l.pos < len(l.input) && isDigit(l.peek()) {
				l.advance()
			}
		}
	}
	if l.pos < len(l.input) && (l.peek() == 'e' || l.peek() == 'E') {
		isFloat = true
		l.advance()
		if l.pos < len(l.input) && (l.peek() == '+' || l.peek() == '-') {
			l.advance()
		}
		for l.pos < len(l.input) && isDigit(l.peek()) {
			l.advance()
		}
	}

	// A number running straight into bare characters is a bare token
	// (e.g. version strings like 2a or 1b3).
	if l.pos < len(l.input) && isBareChar(l.peek()) {
		for l.pos < len(l.input) && isBareChar(l.peek()) {
			l.advance()
		}
		return Token{Type: TokenBare, Value: l.input[start:l.pos], Pos: startPos}
	}

	value := l.input[start:l.pos]
	if isFloat {
		return Token{Type: TokenFloat, Value: value, Pos: startPos}
	}
	return Token{Type: TokenInt, Value: value, Pos: startPos}
}

// scanBare scans an unquoted bare token.
func (l *Lexer) scanBare() Token {
	startPos := l.currentPos()
	start := l.pos

	for l.pos < len(l.input) && isBareChar(l.peek()) {
		l.advance()
	}

	return Token{Type: TokenBare, Value: l.input[start:l.pos], Pos: startPos}
}

// skipSpaces skips spaces, tabs, and carriage returns, but not newlines:
// the grammar is line-oriented.
func (l *Lexer) skipSpaces() {
	for l.pos < len(l.input) {
		ch := l.peek()
		if ch == ' ' || ch == '\t' || ch == '\r' {
			l.advance()
			continue
		}
		break
	}
}

func (l *Lexer) peek() byte {
	if l.pos >= len(l.input) {
		return 0
	}
	return l.input[l.pos]
}

func (l *Lexer) nextIsBareChar() bool {
	return l.pos+1 < len(l.input) && isBareChar(l.input[l.pos+1])
}

func (l *Lexer) advance() {
	if l.pos < len(l.input) {
		if l.input[l.pos] == '\n' {
			l.line++
			l.col = 1
		} else {
			l.col++
		}
		l.pos++
	}
}

func (l *Lexer) currentPos() Position {
	return Position{Line: l.line, Column: l.col, Offset: l.pos}
}

// Character classification

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isBareStart(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '_' || ch >= 0x80
}

func isBareChar(ch byte) bool {
	return isBareStart(ch) || isDigit(ch) || ch == '.' || ch == '-' || ch == '/'
}

// isValidBareString reports whether a string can be emitted without quotes
// and re-parsed as the same string value.
func isValidBareString(s string) bool {
	if len(s) == 0 {
		return false
	}
	if !isBareStart(s[0]) {
		return false
	}
	for i := 1; i < len(s); i++ {
		if !isBareChar(s[i]) {
			return false
		}
	}
	// A lone underscore would re-parse as a ditto cell; a leading digit
	// disguise is already excluded by isBareStart.
	if s == "_" {
		return false
	}
	// Avoid emitting something that re-parses as a number.
	if looksNumeric(s) {
		return false
	}
	return true
}

func looksNumeric(s string) bool {
	i := 0
	if s[0] == '-' {
		i = 1
	}
	if i >= len(s) || !isDigit(s[i]) {
		return false
	}
	for ; i < len(s); i++ {
		ch := s[i]
		if !isDigit(ch) && ch != '.' && ch != 'e' && ch != 'E' && ch != '+' && ch != '-' {
			return false
		}
	}
	return true
}

// TokenStream provides a cursor over tokens.
type TokenStream struct {
	tokens []Token
	pos    int
}

// NewTokenStream creates a token stream.
func NewTokenStream(tokens []Token) *TokenStream {
	return &TokenStream{tokens: tokens}
}

// Peek returns the current token without advancing.
func (ts *TokenStream) Peek() Token {
	if ts.pos >= len(ts.tokens) {
		return Token{Type: TokenEOF}
	}
	return ts.tokens[ts.pos]
}

// PeekN returns the token n positions ahead.
func (ts *TokenStream) PeekN(n int) Token {
	idx := ts.pos + n
	if idx >= len(ts.tokens) {
		return Token{Type: TokenEOF}
	}
	return ts.tokens[idx]
}

// Advance moves to the next token and returns the current one.
func (ts *TokenStream) Advance() Token {
	tok := ts.Peek()
	if ts.pos < len(ts.tokens) {
		ts.pos++
	}
	return tok
}

// Match advances and returns true if the current token matches.
func (ts *TokenStream) Match(typ TokenType) bool {
	if ts.Peek().Type == typ {
		ts.Advance()
		return true
	}
	return false
}

// AtEnd reports whether the stream is exhausted.
func (ts *TokenStream) AtEnd() bool {
	return ts.Peek().Type == TokenEOF
}

// Position returns the cursor position for later Reset.
func (ts *TokenStream) Position() int {
	return ts.pos
}

// Reset rewinds to a previously saved cursor position.
func (ts *TokenStream) Reset(pos int) {
	ts.pos = pos
}
