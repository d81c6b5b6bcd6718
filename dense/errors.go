package dense

import (
	"fmt"
	"strings"
)

// Position is a source location. Line and Column are 1-indexed.
type Position struct {
	Line   int
	Column int
	Offset int
}

// String returns position as "line:column".
func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Default resource limits. The parser rejects oversized or over-deep input
// deterministically rather than running unbounded.
const (
	MaxInputSize = 100 * 1024 * 1024
	MaxDepth     = 1000
	MaxTableRows = 10_000_000
)

// maxSnippetLen bounds the input excerpt attached to parse errors.
const maxSnippetLen = 50

// ParseError is a structural parse error with location, an offending
// snippet, and optional remediation suggestions.
type ParseError struct {
	Message     string
	Pos         Position
	Snippet     string
	Suggestions []string
}

func (e *ParseError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "parse error at %s: %s", e.Pos, e.Message)
	if e.Snippet != "" {
		fmt.Fprintf(&sb, "\n  --> %s", e.Snippet)
	}
	for _, s := range e.Suggestions {
		fmt.Fprintf(&sb, "\n  hint: %s", s)
	}
	return sb.String()
}

// TableColumnMismatchError reports a row whose cell count differs from the
// declared column count. Fatal for the row's table; never truncated or
// padded silently.
type TableColumnMismatchError struct {
	Table    string
	Expected int
	Actual   int
	Line     int
}

func (e *TableColumnMismatchError) Error() string {
	return fmt.Sprintf("table %q row at line %d: expected %d columns, got %d",
		e.Table, e.Line, e.Expected, e.Actual)
}

// UndefinedRefError reports a @id reference whose anchor was never defined
// earlier in the input. References are back-references only, which is also
// what keeps reference chains acyclic.
type UndefinedRefError struct {
	ID  string
	Pos Position
}

func (e *UndefinedRefError) Error() string {
	return fmt.Sprintf("undefined reference @%s at %s", e.ID, e.Pos)
}

// InputTooLargeError is returned before any parsing begins.
type InputTooLargeError struct {
	Size int
	Max  int
}

func (e *InputTooLargeError) Error() string {
	return fmt.Sprintf("input too large: %d bytes exceeds maximum of %d bytes", e.Size, e.Max)
}

// DepthExceededError reports nesting beyond the configured maximum.
type DepthExceededError struct {
	Depth int
	Max   int
}

func (e *DepthExceededError) Error() string {
	return fmt.Sprintf("recursion depth %d exceeds maximum of %d", e.Depth, e.Max)
}

// TableTooLargeError reports a table exceeding the configured row cap.
type TableTooLargeError struct {
	Table string
	Rows  int
	Max   int
}

func (e *TableTooLargeError) Error() string {
	return fmt.Sprintf("table %q too large: %d rows exceeds maximum of %d rows", e.Table, e.Rows, e.Max)
}

// TokenizerError wraps an oracle failure during compaction. The compactor
// itself never fails on well-formed text otherwise.
type TokenizerError struct {
	Variant string
	Err     error
}

func (e *TokenizerError) Error() string {
	return fmt.Sprintf("tokenizer %q: %v", e.Variant, e.Err)
}

func (e *TokenizerError) Unwrap() error { return e.Err }

// extractSnippet returns up to maxSnippetLen characters centered on offset,
// with control characters stripped.
func extractSnippet(input string, offset int) string {
	if input == "" {
		return ""
	}
	if offset >= len(input) {
		offset = len(input) - 1
	}
	if offset < 0 {
		offset = 0
	}

	half := maxSnippetLen / 2
	start := offset - half
	if start < 0 {
		start = 0
	}
	end := offset + half
	if end > len(input) {
		end = len(input)
	}

	var sb strings.Builder
	for _, r := range input[start:end] {
		if r < 0x20 && r != ' ' && r != '\t' {
			continue
		}
		sb.WriteRune(r)
	}
	snippet := sb.String()
	if strings.TrimSpace(snippet) == "" && end > start {
		return fmt.Sprintf("<%d bytes>", end-start)
	}
	return snippet
}
