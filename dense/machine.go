package dense

import (
	"strconv"
	"strings"
)

// EmitMachine renders a Value tree as canonical wire text. Nested objects
// flatten into dotted keys; ParseString(EmitMachine(v)) reproduces v.
//
// A non-object root renders as a bare scalar, which is useful for debugging
// but is not itself valid wire text.
func EmitMachine(v *Value) string {
	e := &machineEmitter{}
	if v.Kind() != KindObject {
		e.writeScalar(v)
		return e.sb.String()
	}
	e.writeObject(nil, v)
	return e.sb.String()
}

// MachineOption adjusts FormatMachine behavior.
type MachineOption func(*machineConfig)

type machineConfig struct {
	compactor *Compactor
}

// WithCompactor applies a dictionary compaction pass to the canonical
// output. The result is the compact LLM form; feed it through
// (*Compactor).Expand before re-parsing.
func WithCompactor(c *Compactor) MachineOption {
	return func(cfg *machineConfig) { cfg.compactor = c }
}

// FormatMachine normalizes wire text to its canonical form. The input must
// parse; the output re-parses to the same tree unless a compactor pass is
// requested via WithCompactor.
func FormatMachine(text string, opts ...MachineOption) ([]byte, error) {
	var cfg machineConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	v, err := ParseString(text)
	if err != nil {
		return nil, err
	}

	out := EmitMachine(v)
	if cfg.compactor != nil {
		out, err = cfg.compactor.Compact(out)
		if err != nil {
			return nil, err
		}
	}
	return []byte(out), nil
}

type machineEmitter struct {
	sb strings.Builder
}

// writeObject emits each field under the given key path. Scalar-bearing
// intermediate objects flatten into dotted keys.
func (e *machineEmitter) writeObject(path []string, obj *Value) {
	fields, _ := obj.AsObject()
	for _, f := range fields {
		keyPath := append(path, f.Key)
		if f.Value.Kind() == KindObject {
			e.writeObject(keyPath, f.Value)
			continue
		}
		e.writeEntry(keyPath, f.Value)
	}
}

func (e *machineEmitter) writeEntry(path []string, v *Value) {
	key := strings.Join(path, ".")

	switch v.Kind() {
	case KindNull:
		e.sb.WriteString(key)
		e.sb.WriteString("?\n")

	case KindTable:
		tbl, _ := v.AsTable()
		e.writeTable(key, tbl)

	case KindArray:
		elems, _ := v.AsArray()
		e.sb.WriteString(key)
		if v.IsStream() || len(elems) == 0 {
			// Empty arrays only have a stream wire form.
			e.sb.WriteByte('>')
		} else {
			e.sb.WriteByte(':')
		}
		for i, elem := range elems {
			if i > 0 {
				e.sb.WriteByte('|')
			}
			e.writeScalar(elem)
		}
		e.sb.WriteByte('\n')

	default:
		e.sb.WriteString(key)
		e.sb.WriteByte(':')
		e.writeScalar(v)
		e.sb.WriteByte('\n')
	}
}

// writeTable emits the schema line, the rows, and a terminating blank line.
// Auto-increment columns appear in the schema only.
func (e *machineEmitter) writeTable(key string, tbl *Table) {
	e.sb.WriteString(key)
	e.sb.WriteByte('=')
	for i, col := range tbl.Columns {
		if i > 0 {
			e.sb.WriteByte(' ')
		}
		e.sb.WriteString(col.Name)
		e.sb.WriteByte('%')
		e.sb.WriteByte(col.Type)
	}
	e.sb.WriteByte('\n')

	for _, row := range tbl.Rows {
		first := true
		for ci, cell := range row {
			if tbl.Columns[ci].Type == ColAuto {
				continue
			}
			if !first {
				e.sb.WriteByte(' ')
			}
			first = false
			e.writeScalar(cell)
		}
		e.sb.WriteByte('\n')
	}
	e.sb.WriteByte('\n')
}

func (e *machineEmitter) writeScalar(v *Value) {
	switch v.Kind() {
	case KindNull:
		e.sb.WriteByte('?')
	case KindBool:
		b, _ := v.AsBool()
		if b {
			e.sb.WriteByte('+')
		} else {
			e.sb.WriteByte('-')
		}
	case KindInt:
		n, _ := v.AsInt()
		e.sb.WriteString(strconv.FormatInt(n, 10))
	case KindFloat:
		f, _ := v.AsFloat()
		e.sb.WriteString(formatFloat(f))
	case KindString:
		s, _ := v.AsString()
		e.sb.WriteString(quoteIfNeeded(s))
	case KindRef:
		id, _ := v.AsRef()
		e.sb.WriteByte('@')
		e.sb.WriteString(id)
	default:
		// Arrays, objects, and tables never sit in scalar position.
		e.sb.WriteString("?")
	}
}

// formatFloat renders a float so it re-parses as a float, not an int.
func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

// quoteIfNeeded emits a string bare when the lexer would read it back as
// the same string, quoted otherwise.
func quoteIfNeeded(s string) string {
	if isValidBareString(s) {
		return s
	}
	return quoteString(s)
}

func quoteString(s string) string {
	var sb strings.Builder
	sb.Grow(len(s) + 2)
	sb.WriteByte('"')
	for i := 0; i < len(s); i++ {
		switch ch := s[i]; ch {
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\t':
			sb.WriteString(`\t`)
		case '\\':
			sb.WriteString(`\\`)
		case '"':
			sb.WriteString(`\"`)
		case '|':
			sb.WriteString(`\|`)
		default:
			sb.WriteByte(ch)
		}
	}
	sb.WriteByte('"')
	return sb.String()
}
