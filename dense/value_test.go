package dense

import (
	"errors"
	"testing"
)

func TestValue_Constructors(t *testing.T) {
	tests := []struct {
		name string
		v    *Value
		kind Kind
	}{
		{"null", Null(), KindNull},
		{"bool", Bool(true), KindBool},
		{"int", Int(42), KindInt},
		{"float", Float(3.14), KindFloat},
		{"string", Str("x"), KindString},
		{"ref", Ref("a"), KindRef},
		{"array", Array(Int(1)), KindArray},
		{"stream", StreamArray(Int(1)), KindArray},
		{"object", Object(F("k", Int(1))), KindObject},
		{"table", NewTable("t", Column{Name: "c", Type: ColInt}), KindTable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.v.Kind() != tt.kind {
				t.Errorf("expected %s, got %s", tt.kind, tt.v.Kind())
			}
		})
	}
}

func TestValue_AccessorMismatch(t *testing.T) {
	if _, err := Int(1).AsString(); err == nil {
		t.Error("AsString on int should fail")
	}
	if _, err := Str("x").AsInt(); err == nil {
		t.Error("AsInt on string should fail")
	}
	if _, err := Null().AsBool(); err == nil {
		t.Error("AsBool on null should fail")
	}
	if _, err := Object().AsArray(); err == nil {
		t.Error("AsArray on object should fail")
	}
}

func TestValue_NilReadsAsNull(t *testing.T) {
	var v *Value
	if v.Kind() != KindNull || !v.IsNull() {
		t.Error("nil *Value should read as null")
	}
	if v.Len() != 0 {
		t.Error("nil *Value Len should be 0")
	}
}

func TestValue_SetOverwritesInPlace(t *testing.T) {
	obj := Object(F("a", Int(1)), F("b", Int(2)))
	obj.Set("a", Int(10))

	fields, _ := obj.AsObject()
	if len(fields) != 2 {
		t.Fatalf("expected 2 fields, got %d", len(fields))
	}
	if fields[0].Key != "a" {
		t.Errorf("overwrite moved the key: %q", fields[0].Key)
	}
	n, _ := fields[0].Value.AsInt()
	if n != 10 {
		t.Errorf("expected 10, got %d", n)
	}
}

func TestValue_MutatorPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Append on non-array should panic")
		}
	}()
	Int(1).Append(Int(2))
}

func TestValue_SetPanicsOnNonObject(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Set on non-object should panic")
		}
	}()
	Str("x").Set("k", Int(1))
}

func TestTable_AddRowArity(t *testing.T) {
	tbl := &Table{
		Name:    "t",
		Columns: []Column{{Name: "a", Type: ColInt}, {Name: "b", Type: ColString}},
	}
	if err := tbl.AddRow([]*Value{Int(1), Str("x")}); err != nil {
		t.Fatalf("valid row rejected: %v", err)
	}
	err := tbl.AddRow([]*Value{Int(1)})
	if err == nil {
		t.Fatal("expected arity error")
	}
	var mismatch *TableColumnMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected *TableColumnMismatchError, got %T", err)
	}
	if mismatch.Expected != 2 || mismatch.Actual != 1 {
		t.Errorf("expected 2/1, got %d/%d", mismatch.Expected, mismatch.Actual)
	}
}

func TestValue_Equal(t *testing.T) {
	tests := []struct {
		name string
		a, b *Value
		want bool
	}{
		{"same ints", Int(5), Int(5), true},
		{"different ints", Int(5), Int(6), false},
		{"int float same magnitude", Int(5), Float(5.0), true},
		{"int float within tolerance", Float(5.0), Float(5.0 + 1e-12), true},
		{"int float outside tolerance", Float(5.0), Float(5.001), false},
		{"strings", Str("a"), Str("a"), true},
		{"nulls", Null(), Null(), true},
		{"bool vs int", Bool(true), Int(1), false},
		{"stream flag matters", Array(Int(1)), StreamArray(Int(1)), false},
		{"refs", Ref("x"), Ref("x"), true},
		{"different refs", Ref("x"), Ref("y"), false},
		{
			"objects ordered",
			Object(F("a", Int(1)), F("b", Int(2))),
			Object(F("a", Int(1)), F("b", Int(2))),
			true,
		},
		{
			"object order matters",
			Object(F("a", Int(1)), F("b", Int(2))),
			Object(F("b", Int(2)), F("a", Int(1))),
			false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Equal(tt.b); got != tt.want {
				t.Errorf("Equal = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValue_GetMissingKey(t *testing.T) {
	obj := Object(F("a", Int(1)))
	if obj.Get("zzz") != nil {
		t.Error("expected nil for missing key")
	}
}

func TestValue_Index(t *testing.T) {
	arr := Array(Int(1), Int(2))
	if _, err := arr.Index(2); err == nil {
		t.Error("expected out of bounds error")
	}
	if _, err := arr.Index(-1); err == nil {
		t.Error("expected out of bounds error")
	}
	v, err := arr.Index(1)
	if err != nil {
		t.Fatalf("Index failed: %v", err)
	}
	n, _ := v.AsInt()
	if n != 2 {
		t.Errorf("expected 2, got %d", n)
	}
}
