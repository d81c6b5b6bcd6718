package dense

import (
	"errors"
	"strings"
	"testing"
)

func TestFormatHuman_KeyAlignment(t *testing.T) {
	v, err := ParseString("name:Alice\nage:30\nactive:+\n")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	out, err := FormatHuman(v)
	if err != nil {
		t.Fatalf("FormatHuman failed: %v", err)
	}

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d: %q", len(lines), out)
	}
	// Colons align to the widest key ("active").
	colon := strings.Index(lines[0], ":")
	for i, line := range lines {
		if strings.Index(line, ":") != colon {
			t.Errorf("line %d colon misaligned: %q", i, line)
		}
	}
}

func TestFormatHuman_UnicodeBooleans(t *testing.T) {
	v, _ := ParseString("active:+\ndeleted:-\n")

	out, err := FormatHuman(v)
	if err != nil {
		t.Fatalf("FormatHuman failed: %v", err)
	}
	if !strings.Contains(out, "✓") {
		t.Errorf("expected ✓ for true, got %q", out)
	}
	if !strings.Contains(out, "✗") {
		t.Errorf("expected ✗ for false, got %q", out)
	}
}

func TestFormatHuman_ASCIIBooleans(t *testing.T) {
	v, _ := ParseString("active:+\ndeleted:-\n")

	opts := DefaultHumanOptions()
	opts.Unicode = false
	out, err := FormatHumanWithOptions(v, opts)
	if err != nil {
		t.Fatalf("FormatHuman failed: %v", err)
	}
	if !strings.Contains(out, "yes") || !strings.Contains(out, "no") {
		t.Errorf("expected yes/no, got %q", out)
	}
	if strings.Contains(out, "✓") {
		t.Errorf("unexpected ✓ in ASCII mode: %q", out)
	}
}

func TestFormatHuman_TableColumnWidths(t *testing.T) {
	input := "users=id%i name%s active%b\n1 Alexandra +\n2 Bo -\n"
	v, err := ParseString(input)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	out, err := FormatHuman(v)
	if err != nil {
		t.Fatalf("FormatHuman failed: %v", err)
	}

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	// key line, header, rule, two rows
	if len(lines) != 5 {
		t.Fatalf("expected 5 lines, got %d: %q", len(lines), out)
	}
	header := lines[1]
	if !strings.Contains(header, "id") || !strings.Contains(header, "name") {
		t.Errorf("header missing column names: %q", header)
	}
	// name column is as wide as its longest cell ("Alexandra").
	nameStart := strings.Index(header, "name")
	row1 := lines[3]
	if !strings.Contains(row1, "Alexandra") {
		t.Errorf("row missing cell: %q", row1)
	}
	if got := strings.Index(row1, "Alexandra"); got != nameStart {
		t.Errorf("name column misaligned: header at %d, cell at %d", nameStart, got)
	}
}

func TestFormatHuman_BoxDrawing(t *testing.T) {
	v, _ := ParseString("users=id%i name%s\n1 Alice\n")

	opts := DefaultHumanOptions()
	opts.BoxDrawing = true
	out, err := FormatHumanWithOptions(v, opts)
	if err != nil {
		t.Fatalf("FormatHuman failed: %v", err)
	}
	if !strings.Contains(out, "│") || !strings.Contains(out, "─") {
		t.Errorf("expected box-drawing characters, got %q", out)
	}
}

func TestFormatHuman_NestedIndent(t *testing.T) {
	v, _ := ParseString("server.host:localhost\nserver.port:8080\n")

	out, err := FormatHuman(v)
	if err != nil {
		t.Fatalf("FormatHuman failed: %v", err)
	}
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if lines[0] != "server:" {
		t.Errorf("expected 'server:', got %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "  ") {
		t.Errorf("expected indented child, got %q", lines[1])
	}
}

func TestFormatHuman_DepthLimit(t *testing.T) {
	root := Object()
	cur := root
	for i := 0; i < MaxDepth+10; i++ {
		next := Object()
		cur.Set("n", next)
		cur = next
	}
	cur.Set("leaf", Int(1))

	_, err := FormatHuman(root)
	var de *DepthExceededError
	if !errors.As(err, &de) {
		t.Fatalf("expected DepthExceededError, got %v", err)
	}
}

func TestFormatHuman_Arrays(t *testing.T) {
	v, _ := ParseString("nums:1|2|3\ntags>a|b\n")

	out, err := FormatHuman(v)
	if err != nil {
		t.Fatalf("FormatHuman failed: %v", err)
	}
	if !strings.Contains(out, "[1, 2, 3]") {
		t.Errorf("expected bracketed array, got %q", out)
	}
	if !strings.Contains(out, "a | b") {
		t.Errorf("expected piped stream, got %q", out)
	}
}

func TestFormatHuman_NullAndRef(t *testing.T) {
	v, _ := ParseString("a:1\nmissing?\nlink:@a\n")

	out, err := FormatHuman(v)
	if err != nil {
		t.Fatalf("FormatHuman failed: %v", err)
	}
	if !strings.Contains(out, "null") {
		t.Errorf("expected null, got %q", out)
	}
	if !strings.Contains(out, "@a") {
		t.Errorf("expected @a, got %q", out)
	}
}

func TestFormatHuman_ColorProducesANSI(t *testing.T) {
	v, _ := ParseString("active:+\n")

	opts := DefaultHumanOptions()
	opts.Color = true
	out, err := FormatHumanWithOptions(v, opts)
	if err != nil {
		t.Fatalf("FormatHuman failed: %v", err)
	}
	// lipgloss may strip styling when no terminal is detected, so only
	// check the content survived.
	if !strings.Contains(out, "active") {
		t.Errorf("expected key in output, got %q", out)
	}
}
