package dense

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
)

// HumanOptions controls the display-only pretty renderer.
type HumanOptions struct {
	// Unicode renders booleans as ✓/✗; off renders yes/no.
	Unicode bool
	// BoxDrawing draws table rules and separators with box characters.
	BoxDrawing bool
	// KeyPadding aligns the ':' of sibling keys.
	KeyPadding bool
	// Color styles output with ANSI escapes.
	Color bool
	// Indent is the number of spaces per nesting level.
	Indent int
}

// DefaultHumanOptions returns the renderer defaults: Unicode symbols,
// aligned keys, two-space indent, no color.
func DefaultHumanOptions() HumanOptions {
	return HumanOptions{Unicode: true, KeyPadding: true, Indent: 2}
}

// FormatHuman renders a Value tree in the pretty display form using
// default options. The output is for people, not for parsing.
func FormatHuman(v *Value) (string, error) {
	return FormatHumanWithOptions(v, DefaultHumanOptions())
}

// FormatHumanWithOptions renders with explicit options.
func FormatHumanWithOptions(v *Value, opts HumanOptions) (string, error) {
	if opts.Indent <= 0 {
		opts.Indent = 2
	}
	r := newHumanRenderer(opts)
	if err := r.render(v, 0); err != nil {
		return "", err
	}
	return r.sb.String(), nil
}

type humanRenderer struct {
	opts HumanOptions
	sb   strings.Builder

	keyStyle   lipgloss.Style
	trueStyle  lipgloss.Style
	falseStyle lipgloss.Style
	nullStyle  lipgloss.Style
	ruleStyle  lipgloss.Style
	headStyle  lipgloss.Style
}

func newHumanRenderer(opts HumanOptions) *humanRenderer {
	r := &humanRenderer{opts: opts}
	if opts.Color {
		r.keyStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
		r.trueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
		r.falseStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
		r.nullStyle = lipgloss.NewStyle().Faint(true)
		r.ruleStyle = lipgloss.NewStyle().Faint(true)
		r.headStyle = lipgloss.NewStyle().Bold(true)
	}
	return r
}

func (r *humanRenderer) render(v *Value, depth int) error {
	if depth > MaxDepth {
		return &DepthExceededError{Depth: depth, Max: MaxDepth}
	}

	switch v.Kind() {
	case KindObject:
		return r.renderObject(v, depth)
	case KindTable:
		tbl, _ := v.AsTable()
		r.renderTable(tbl, depth)
		return nil
	default:
		r.indent(depth)
		r.sb.WriteString(r.scalarText(v))
		r.sb.WriteByte('\n')
		return nil
	}
}

func (r *humanRenderer) renderObject(obj *Value, depth int) error {
	fields, _ := obj.AsObject()

	keyWidth := 0
	if r.opts.KeyPadding {
		for _, f := range fields {
			if w := utf8.RuneCountInString(f.Key); w > keyWidth {
				keyWidth = w
			}
		}
	}

	for _, f := range fields {
		switch f.Value.Kind() {
		case KindObject:
			r.indent(depth)
			r.sb.WriteString(r.styleKey(f.Key))
			r.sb.WriteString(":\n")
			// Through render so the depth guard applies at every level.
			if err := r.render(f.Value, depth+1); err != nil {
				return err
			}

		case KindTable:
			r.indent(depth)
			r.sb.WriteString(r.styleKey(f.Key))
			r.sb.WriteString(":\n")
			if err := r.render(f.Value, depth+1); err != nil {
				return err
			}

		default:
			r.indent(depth)
			r.sb.WriteString(r.padKey(f.Key, keyWidth))
			r.sb.WriteString(": ")
			r.sb.WriteString(r.scalarText(f.Value))
			r.sb.WriteByte('\n')
		}
	}
	return nil
}

// renderTable lays out a table with column widths sized to the wider of
// the header and the longest cell, a rule under the header, then rows.
func (r *humanRenderer) renderTable(tbl *Table, depth int) {
	ncols := len(tbl.Columns)
	widths := make([]int, ncols)
	for i, col := range tbl.Columns {
		widths[i] = utf8.RuneCountInString(col.Name)
	}

	cells := make([][]string, len(tbl.Rows))
	for ri, row := range tbl.Rows {
		cells[ri] = make([]string, ncols)
		for ci := 0; ci < ncols && ci < len(row); ci++ {
			text := r.scalarPlain(row[ci])
			cells[ri][ci] = text
			if w := utf8.RuneCountInString(text); w > widths[ci] {
				widths[ci] = w
			}
		}
	}

	sep := "  "
	ruleChar := "-"
	if r.opts.BoxDrawing {
		sep = " │ "
		ruleChar = "─"
	}

	// Header
	r.indent(depth)
	for i, col := range tbl.Columns {
		if i > 0 {
			r.sb.WriteString(sep)
		}
		r.sb.WriteString(r.styleHead(pad(col.Name, widths[i])))
	}
	r.sb.WriteByte('\n')

	// Rule
	r.indent(depth)
	ruleWidth := 0
	for i, w := range widths {
		if i > 0 {
			ruleWidth += utf8.RuneCountInString(sep)
		}
		ruleWidth += w
	}
	r.sb.WriteString(r.styleRule(strings.Repeat(ruleChar, ruleWidth)))
	r.sb.WriteByte('\n')

	// Rows
	for ri, row := range cells {
		r.indent(depth)
		for ci := range row {
			if ci > 0 {
				r.sb.WriteString(sep)
			}
			text := pad(row[ci], widths[ci])
			if ri < len(tbl.Rows) && ci < len(tbl.Rows[ri]) && tbl.Rows[ri][ci].Kind() == KindBool {
				text = r.styleBoolPadded(tbl.Rows[ri][ci], widths[ci])
			}
			r.sb.WriteString(text)
		}
		r.sb.WriteByte('\n')
	}
}

// scalarText renders a scalar with color styling applied.
func (r *humanRenderer) scalarText(v *Value) string {
	switch v.Kind() {
	case KindBool:
		return r.styleBool(v)
	case KindNull:
		if r.opts.Color {
			return r.nullStyle.Render("null")
		}
		return "null"
	case KindArray:
		elems, _ := v.AsArray()
		parts := make([]string, len(elems))
		for i, e := range elems {
			parts[i] = r.scalarText(e)
		}
		if v.IsStream() {
			return strings.Join(parts, " | ")
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return r.scalarPlain(v)
	}
}

// scalarPlain renders a scalar without styling, for width measurement.
func (r *humanRenderer) scalarPlain(v *Value) string {
	switch v.Kind() {
	case KindNull:
		return "null"
	case KindBool:
		b, _ := v.AsBool()
		return r.boolText(b)
	case KindInt:
		n, _ := v.AsInt()
		return strconv.FormatInt(n, 10)
	case KindFloat:
		f, _ := v.AsFloat()
		return strconv.FormatFloat(f, 'g', -1, 64)
	case KindString:
		s, _ := v.AsString()
		return s
	case KindRef:
		id, _ := v.AsRef()
		return "@" + id
	case KindArray:
		elems, _ := v.AsArray()
		parts := make([]string, len(elems))
		for i, e := range elems {
			parts[i] = r.scalarPlain(e)
		}
		if v.IsStream() {
			return strings.Join(parts, " | ")
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return fmt.Sprintf("<%s>", v.Kind())
	}
}

func (r *humanRenderer) boolText(b bool) string {
	if r.opts.Unicode {
		if b {
			return "✓"
		}
		return "✗"
	}
	if b {
		return "yes"
	}
	return "no"
}

func (r *humanRenderer) styleBool(v *Value) string {
	b, _ := v.AsBool()
	text := r.boolText(b)
	if !r.opts.Color {
		return text
	}
	if b {
		return r.trueStyle.Render(text)
	}
	return r.falseStyle.Render(text)
}

// styleBoolPadded pads to the cell width before styling so ANSI escapes
// do not skew the column layout.
func (r *humanRenderer) styleBoolPadded(v *Value, width int) string {
	b, _ := v.AsBool()
	text := pad(r.boolText(b), width)
	if !r.opts.Color {
		return text
	}
	if b {
		return r.trueStyle.Render(text)
	}
	return r.falseStyle.Render(text)
}

func (r *humanRenderer) styleKey(key string) string {
	if r.opts.Color {
		return r.keyStyle.Render(key)
	}
	return key
}

func (r *humanRenderer) styleHead(s string) string {
	if r.opts.Color {
		return r.headStyle.Render(s)
	}
	return s
}

func (r *humanRenderer) styleRule(s string) string {
	if r.opts.Color {
		return r.ruleStyle.Render(s)
	}
	return s
}

// padKey pads a key to the sibling key width, with color applied to the
// key text only.
func (r *humanRenderer) padKey(key string, width int) string {
	padding := ""
	if w := utf8.RuneCountInString(key); w < width {
		padding = strings.Repeat(" ", width-w)
	}
	return r.styleKey(key) + padding
}

func (r *humanRenderer) indent(depth int) {
	if depth > 0 {
		r.sb.WriteString(strings.Repeat(" ", depth*r.opts.Indent))
	}
}

func pad(s string, width int) string {
	if w := utf8.RuneCountInString(s); w < width {
		return s + strings.Repeat(" ", width-w)
	}
	return s
}
