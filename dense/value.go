package dense

import (
	"fmt"
	"math"
)

// Kind identifies the variant held by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindArray
	KindObject
	KindTable
	KindRef // Weak back-reference: @id
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	case KindTable:
		return "table"
	case KindRef:
		return "ref"
	default:
		return "unknown"
	}
}

// Value is a DENSE value: a tagged union over the kinds above.
type Value struct {
	kind Kind

	// Scalars (only one valid based on kind)
	boolVal  bool
	intVal   int64
	floatVal float64
	strVal   string
	refVal   string

	// Containers
	arrVal    []*Value
	arrStream bool
	objVal    []Field
	tblVal    *Table

	// Source location for error reporting
	pos Position
}

// Field is a key-value pair inside an object. Insertion order is
// significant for rendering; keys are unique within an object.
type Field struct {
	Key   string
	Value *Value
}

// Column is one table column: a name plus a single-letter type tag
// (s=string, i=int, f=float, b=bool, #=auto-increment).
type Column struct {
	Name string
	Type byte
}

// Table holds a declared column schema and positional rows. Every row has
// exactly len(Columns) cells; AddRow enforces this.
type Table struct {
	Name    string
	Columns []Column
	Rows    [][]*Value
}

// AddRow appends a row after checking its arity against the schema.
func (t *Table) AddRow(row []*Value) error {
	if len(row) != len(t.Columns) {
		return &TableColumnMismatchError{
			Table:    t.Name,
			Expected: len(t.Columns),
			Actual:   len(row),
		}
	}
	t.Rows = append(t.Rows, row)
	return nil
}

// ============================================================
// Constructors
// ============================================================

// Null creates a null value.
func Null() *Value {
	return &Value{kind: KindNull}
}

// Bool creates a boolean value.
func Bool(v bool) *Value {
	return &Value{kind: KindBool, boolVal: v}
}

// Int creates an integer value.
func Int(v int64) *Value {
	return &Value{kind: KindInt, intVal: v}
}

// Float creates a float value.
func Float(v float64) *Value {
	return &Value{kind: KindFloat, floatVal: v}
}

// Str creates a string value.
func Str(v string) *Value {
	return &Value{kind: KindString, strVal: v}
}

// Ref creates a reference value. The id is an opaque lookup key into the
// anchor table of whichever component defined it; a Ref never owns the
// value it names.
func Ref(id string) *Value {
	return &Value{kind: KindRef, refVal: id}
}

// Array creates a multi-line array value.
func Array(values ...*Value) *Value {
	return &Value{kind: KindArray, arrVal: values}
}

// StreamArray creates an array marked for single-line rendering
// (> prefix, |-separated).
func StreamArray(values ...*Value) *Value {
	return &Value{kind: KindArray, arrVal: values, arrStream: true}
}

// Object creates an object value from fields.
func Object(fields ...Field) *Value {
	return &Value{kind: KindObject, objVal: fields}
}

// NewTable creates a table value with the given schema and no rows.
func NewTable(name string, cols ...Column) *Value {
	return &Value{kind: KindTable, tblVal: &Table{Name: name, Columns: cols}}
}

// Table.Value wraps an existing Table in a Value.
func TableValue(t *Table) *Value {
	return &Value{kind: KindTable, tblVal: t}
}

// F creates a Field for use in Object construction.
func F(key string, value *Value) Field {
	return Field{Key: key, Value: value}
}

// ============================================================
// Accessors
// ============================================================

// Kind returns the value kind. A nil *Value reads as null.
func (v *Value) Kind() Kind {
	if v == nil {
		return KindNull
	}
	return v.kind
}

// IsNull reports whether this is a null value.
func (v *Value) IsNull() bool {
	return v == nil || v.kind == KindNull
}

// AsBool returns the boolean value.
func (v *Value) AsBool() (bool, error) {
	if v == nil {
		return false, fmt.Errorf("dense: nil value")
	}
	if v.kind != KindBool {
		return false, fmt.Errorf("dense: expected bool, got %s", v.kind)
	}
	return v.boolVal, nil
}

// AsInt returns the integer value.
func (v *Value) AsInt() (int64, error) {
	if v == nil {
		return 0, fmt.Errorf("dense: nil value")
	}
	if v.kind != KindInt {
		return 0, fmt.Errorf("dense: expected int, got %s", v.kind)
	}
	return v.intVal, nil
}

// AsFloat returns the float value.
func (v *Value) AsFloat() (float64, error) {
	if v == nil {
		return 0, fmt.Errorf("dense: nil value")
	}
	if v.kind != KindFloat {
		return 0, fmt.Errorf("dense: expected float, got %s", v.kind)
	}
	return v.floatVal, nil
}

// AsString returns the string value.
func (v *Value) AsString() (string, error) {
	if v == nil {
		return "", fmt.Errorf("dense: nil value")
	}
	if v.kind != KindString {
		return "", fmt.Errorf("dense: expected string, got %s", v.kind)
	}
	return v.strVal, nil
}

// AsRef returns the reference id.
func (v *Value) AsRef() (string, error) {
	if v == nil {
		return "", fmt.Errorf("dense: nil value")
	}
	if v.kind != KindRef {
		return "", fmt.Errorf("dense: expected ref, got %s", v.kind)
	}
	return v.refVal, nil
}

// AsArray returns the array elements.
func (v *Value) AsArray() ([]*Value, error) {
	if v == nil {
		return nil, fmt.Errorf("dense: nil value")
	}
	if v.kind != KindArray {
		return nil, fmt.Errorf("dense: expected array, got %s", v.kind)
	}
	return v.arrVal, nil
}

// IsStream reports whether an array is marked for single-line rendering.
// Non-arrays report false.
func (v *Value) IsStream() bool {
	return v != nil && v.kind == KindArray && v.arrStream
}

// AsObject returns the object fields in insertion order.
func (v *Value) AsObject() ([]Field, error) {
	if v == nil {
		return nil, fmt.Errorf("dense: nil value")
	}
	if v.kind != KindObject {
		return nil, fmt.Errorf("dense: expected object, got %s", v.kind)
	}
	return v.objVal, nil
}

// AsTable returns the table.
func (v *Value) AsTable() (*Table, error) {
	if v == nil {
		return nil, fmt.Errorf("dense: nil value")
	}
	if v.kind != KindTable {
		return nil, fmt.Errorf("dense: expected table, got %s", v.kind)
	}
	return v.tblVal, nil
}

// Len returns the element count of an array, object, or table.
func (v *Value) Len() int {
	if v == nil {
		return 0
	}
	switch v.kind {
	case KindArray:
		return len(v.arrVal)
	case KindObject:
		return len(v.objVal)
	case KindTable:
		return len(v.tblVal.Rows)
	default:
		return 0
	}
}

// Get returns a field value by key from an object, or nil.
func (v *Value) Get(key string) *Value {
	if v == nil || v.kind != KindObject {
		return nil
	}
	for _, f := range v.objVal {
		if f.Key == key {
			return f.Value
		}
	}
	return nil
}

// Index returns the i-th element of an array.
func (v *Value) Index(i int) (*Value, error) {
	if v == nil || v.kind != KindArray {
		return nil, fmt.Errorf("dense: not an array")
	}
	if i < 0 || i >= len(v.arrVal) {
		return nil, fmt.Errorf("dense: index %d out of bounds (len=%d)", i, len(v.arrVal))
	}
	return v.arrVal[i], nil
}

// Pos returns the source position of this value.
func (v *Value) Pos() Position {
	if v == nil {
		return Position{}
	}
	return v.pos
}

// SetPos sets the source position.
func (v *Value) SetPos(pos Position) {
	v.pos = pos
}

// ============================================================
// Mutators
// ============================================================

// Set assigns a field on an object. Re-insertion overwrites in place,
// preserving the key's original position.
func (v *Value) Set(key string, val *Value) {
	if v.kind != KindObject {
		panic("dense: cannot set on non-object")
	}
	for i := range v.objVal {
		if v.objVal[i].Key == key {
			v.objVal[i].Value = val
			return
		}
	}
	v.objVal = append(v.objVal, Field{Key: key, Value: val})
}

// Append adds a value to an array.
func (v *Value) Append(val *Value) {
	if v.kind != KindArray {
		panic("dense: cannot append to non-array")
	}
	v.arrVal = append(v.arrVal, val)
}

// ============================================================
// Numeric Coercion Helpers
// ============================================================

// Number returns a numeric value as float64 if int or float.
func (v *Value) Number() (float64, bool) {
	if v == nil {
		return 0, false
	}
	switch v.kind {
	case KindInt:
		return float64(v.intVal), true
	case KindFloat:
		return v.floatVal, true
	default:
		return 0, false
	}
}

// IsNumeric reports whether the value is int or float.
func (v *Value) IsNumeric() bool {
	return v != nil && (v.kind == KindInt || v.kind == KindFloat)
}

// ============================================================
// Equivalence
// ============================================================

// numTolerance is the relative error allowed when comparing an int to a
// float of the same magnitude.
const numTolerance = 1e-10

// Equal reports deep structural equivalence. Ints and floats representing
// the same magnitude compare equal within a small relative tolerance, so a
// tree that round-tripped through a representation that widened an integer
// still compares equal to its source.
func (v *Value) Equal(o *Value) bool {
	if v.IsNull() && o.IsNull() {
		return true
	}
	if v == nil || o == nil {
		return false
	}

	// Numeric cross-kind comparison with tolerance.
	if v.IsNumeric() && o.IsNumeric() {
		a, _ := v.Number()
		b, _ := o.Number()
		if a == b {
			return true
		}
		scale := math.Max(math.Abs(a), math.Abs(b))
		return math.Abs(a-b) <= numTolerance*scale
	}

	if v.kind != o.kind {
		return false
	}

	switch v.kind {
	case KindBool:
		return v.boolVal == o.boolVal
	case KindString:
		return v.strVal == o.strVal
	case KindRef:
		return v.refVal == o.refVal
	case KindArray:
		if len(v.arrVal) != len(o.arrVal) || v.arrStream != o.arrStream {
			return false
		}
		for i := range v.arrVal {
			if !v.arrVal[i].Equal(o.arrVal[i]) {
				return false
			}
		}
		return true
	case KindObject:
		if len(v.objVal) != len(o.objVal) {
			return false
		}
		for i := range v.objVal {
			if v.objVal[i].Key != o.objVal[i].Key || !v.objVal[i].Value.Equal(o.objVal[i].Value) {
				return false
			}
		}
		return true
	case KindTable:
		a, b := v.tblVal, o.tblVal
		if a.Name != b.Name || len(a.Columns) != len(b.Columns) || len(a.Rows) != len(b.Rows) {
			return false
		}
		for i := range a.Columns {
			if a.Columns[i] != b.Columns[i] {
				return false
			}
		}
		for i := range a.Rows {
			for j := range a.Rows[i] {
				if !a.Rows[i][j].Equal(b.Rows[i][j]) {
					return false
				}
			}
		}
		return true
	}
	return false
}
