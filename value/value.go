// Package value defines the VM's tagged Value union: nil, boolean, double,
// or a reference to a heap object.
package value

import "fmt"

// Kind tags which variant of Value is active.
type Kind uint8

const (
	KindNil Kind = iota
	KindBool
	KindNumber
	KindObj
)

// Object is satisfied by every heap object variant (object.String,
// object.Function, object.Closure, object.Upvalue, object.List,
// object.Native). Declared here, rather than imported from package object,
// so that value has no dependency on object — object depends on value
// instead, matching the layering of a heap object holding Values, not the
// reverse.
type Object interface {
	// ObjType returns a short, stable name for the object's variant, used
	// in error messages and the disassembler.
	ObjType() string
}

// Value is a uniform tagged union over the four kinds a lumen expression
// may evaluate to.
type Value struct {
	Kind   Kind
	Bool   bool
	Number float64
	Obj    Object
}

// Nil is the singular nil Value.
var Nil = Value{Kind: KindNil}

// Bool returns a boolean Value.
func Bool(b bool) Value {
	return Value{Kind: KindBool, Bool: b}
}

// Number returns a numeric Value.
func Number(n float64) Value {
	return Value{Kind: KindNumber, Number: n}
}

// FromObject wraps a heap object reference as a Value.
func FromObject(o Object) Value {
	return Value{Kind: KindObj, Obj: o}
}

// IsNil reports whether v is the nil Value.
func (v Value) IsNil() bool { return v.Kind == KindNil }

// IsBool reports whether v holds a boolean.
func (v Value) IsBool() bool { return v.Kind == KindBool }

// IsNumber reports whether v holds a number.
func (v Value) IsNumber() bool { return v.Kind == KindNumber }

// IsObj reports whether v holds a heap object reference.
func (v Value) IsObj() bool { return v.Kind == KindObj }

// Falsy implements the language's falsiness rule: nil and false are falsy,
// every other value -- including 0, "", and an empty list -- is truthy.
func (v Value) Falsy() bool {
	switch v.Kind {
	case KindNil:
		return true
	case KindBool:
		return !v.Bool
	default:
		return false
	}
}

// Truthy is the negation of Falsy.
func (v Value) Truthy() bool {
	return !v.Falsy()
}

// Equal implements the language's equality rule: same kind and same
// payload. Two Obj values are equal iff they reference the same heap
// object, which for strings is sound only because strings are interned.
func Equal(a, b Value) bool {
	if a.Kind != b.Kind {
		return false
	}

	switch a.Kind {
	case KindNil:
		return true
	case KindBool:
		return a.Bool == b.Bool
	case KindNumber:
		return a.Number == b.Number
	case KindObj:
		return a.Obj == b.Obj
	default:
		return false
	}
}

// String renders a Value for diagnostics. Heap objects that implement
// fmt.Stringer (every variant in package object does) are delegated to;
// otherwise a best-effort form is used.
func (v Value) String() string {
	switch v.Kind {
	case KindNil:
		return "nil"
	case KindBool:
		if v.Bool {
			return "true"
		}
		return "false"
	case KindNumber:
		return formatNumber(v.Number)
	case KindObj:
		if s, ok := v.Obj.(fmt.Stringer); ok {
			return s.String()
		}
		return fmt.Sprintf("<%s>", v.Obj.ObjType())
	default:
		return "<invalid value>"
	}
}

func formatNumber(n float64) string {
	if n == float64(int64(n)) {
		return fmt.Sprintf("%d", int64(n))
	}
	return fmt.Sprintf("%g", n)
}
