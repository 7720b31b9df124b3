package expr

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Kind is the dynamic type of a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindList
	KindMap
	KindRecord
	KindFunc
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	case KindRecord:
		return "record"
	case KindFunc:
		return "function"
	}
	return "unknown"
}

// Func is a host function callable from an expression.
type Func func(args []Value) (Value, error)

// Value is an immutable expression value.
//
// Records are named, closed field sets that may carry a native Go value for
// host functions (for example the item a predicate reads). Expressions can
// read a record's fields but never reach the native value.
type Value struct {
	kind   Kind
	b      bool
	n      float64
	s      string
	list   []Value
	fields map[string]Value
	native any
	fn     Func
}

// Null returns the null value.
func Null() Value { return Value{} }

// Bool wraps a bool.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Number wraps a float64.
func Number(n float64) Value { return Value{kind: KindNumber, n: n} }

// Int wraps an int as a number.
func Int(n int) Value { return Number(float64(n)) }

// String wraps a string.
func String(s string) Value { return Value{kind: KindString, s: s} }

// List wraps a list of values.
func List(items ...Value) Value { return Value{kind: KindList, list: items} }

// Strings builds a list of strings.
func Strings(items []string) Value {
	vs := make([]Value, len(items))
	for i, s := range items {
		vs[i] = String(s)
	}
	return List(vs...)
}

// Map wraps a string-keyed map.
func Map(m map[string]Value) Value {
	if m == nil {
		m = map[string]Value{}
	}
	return Value{kind: KindMap, fields: m}
}

// NumberMap builds a map value from string -> float64 entries.
func NumberMap(m map[string]float64) Value {
	fields := make(map[string]Value, len(m))
	for k, v := range m {
		fields[k] = Number(v)
	}
	return Map(fields)
}

// Record builds a record with a fixed field set and an optional native value.
// The name is used in error messages.
func Record(name string, native any, fields map[string]Value) Value {
	if fields == nil {
		fields = map[string]Value{}
	}
	return Value{kind: KindRecord, s: name, native: native, fields: fields}
}

// Function wraps a host function. The name is used in error messages.
func Function(name string, fn Func) Value {
	return Value{kind: KindFunc, s: name, fn: fn}
}

// Kind returns the dynamic type.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Native returns the native value carried by a record, or nil.
func (v Value) Native() any {
	if v.kind != KindRecord {
		return nil
	}
	return v.native
}

// AsNumber returns the numeric value of a number or bool.
func (v Value) AsNumber() (float64, bool) {
	switch v.kind {
	case KindNumber:
		return v.n, true
	case KindBool:
		if v.b {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

// AsString returns the string content of a string value.
func (v Value) AsString() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.s, true
}

// Truthy reports whether v counts as true. null, false, 0, "" and empty
// containers are false.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindNull:
		return false
	case KindBool:
		return v.b
	case KindNumber:
		return v.n != 0 && !math.IsNaN(v.n)
	case KindString:
		return v.s != ""
	case KindList:
		return len(v.list) > 0
	case KindMap:
		return len(v.fields) > 0
	}
	return true
}

// Equal reports structural equality. Numbers and bools compare numerically.
func (v Value) Equal(o Value) bool {
	if a, ok := v.AsNumber(); ok {
		b, ok := o.AsNumber()
		return ok && a == b
	}
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindString:
		return v.s == o.s
	case KindList:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(o.list[i]) {
				return false
			}
		}
		return true
	case KindMap, KindRecord:
		if len(v.fields) != len(o.fields) {
			return false
		}
		for k, fv := range v.fields {
			ov, ok := o.fields[k]
			if !ok || !fv.Equal(ov) {
				return false
			}
		}
		return true
	}
	return false
}

// String renders the value for diagnostics.
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "None"
	case KindBool:
		if v.b {
			return "True"
		}
		return "False"
	case KindNumber:
		return strconv.FormatFloat(v.n, 'g', -1, 64)
	case KindString:
		return strconv.Quote(v.s)
	case KindList:
		parts := make([]string, len(v.list))
		for i, e := range v.list {
			parts[i] = e.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case KindMap:
		keys := make([]string, 0, len(v.fields))
		for k := range v.fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = strconv.Quote(k) + ": " + v.fields[k].String()
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case KindRecord:
		return fmt.Sprintf("<%s>", v.s)
	case KindFunc:
		return fmt.Sprintf("<function %s>", v.s)
	}
	return "?"
}

// describe names the value in error messages.
func (v Value) describe() string {
	switch v.kind {
	case KindRecord, KindFunc:
		return v.String()
	}
	return v.kind.String()
}
