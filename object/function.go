package object

import (
	"fmt"

	"lumen/bytecode"
	"lumen/value"
)

// Function is produced by the compiler: a fixed arity, the number of
// upvalues its body closes over, an optional name for diagnostics, and the
// compiled chunk. Once the compiler finishes with it, a Function is
// read-only for the rest of the program's life.
type Function struct {
	Header
	Name         *String
	Arity        int
	UpvalueCount int
	Chunk        *bytecode.Chunk
}

func (f *Function) String() string {
	if f.Name != nil {
		return fmt.Sprintf("<fn %s>", f.Name.Chars)
	}
	return "<script>"
}

func (f *Function) Inspect() string { return f.String() }

// Closure pairs a Function with the Upvalues captured at the instant of
// its creation. The Upvalues slice is written once, by OP_CLOSURE; the
// Upvalues themselves may still mutate after that.
type Closure struct {
	Header
	Function *Function
	Upvalues []*Upvalue
}

func (c *Closure) String() string  { return c.Function.String() }
func (c *Closure) Inspect() string { return c.String() }

// Upvalue is a shared, mutable cell referencing a captured local. While
// Open is true, StackIndex names its slot in the live VM value stack; once
// closed, StackIndex is meaningless and Closed holds the promoted value.
// The transition from open to closed is one-way. Storing an index rather
// than a raw pointer into the stack keeps this package independent of the
// VM's stack representation.
type Upvalue struct {
	Header
	Open       bool
	StackIndex int
	Closed     value.Value
	// NextOpen links this Upvalue into the VM's openUpvalues list, which is
	// kept sorted by descending stack slot -- distinct from Header.Next,
	// which links it into the VM's general allocation list.
	NextOpen *Upvalue
}

// IsOpen reports whether the upvalue still aims into the live stack.
func (u *Upvalue) IsOpen() bool { return u.Open }

// Get reads the current value, dereferencing through stack if still open.
func (u *Upvalue) Get(stack []value.Value) value.Value {
	if u.Open {
		return stack[u.StackIndex]
	}
	return u.Closed
}

// Set writes through to the live stack slot if still open, or to the
// promoted storage once closed.
func (u *Upvalue) Set(stack []value.Value, v value.Value) {
	if u.Open {
		stack[u.StackIndex] = v
		return
	}
	u.Closed = v
}

// Close promotes the upvalue from open to closed, copying the current
// stack value into its own storage. Calling Close on an already-closed
// upvalue is a no-op.
func (u *Upvalue) Close(stack []value.Value) {
	if !u.Open {
		return
	}
	u.Closed = stack[u.StackIndex]
	u.Open = false
}

func (u *Upvalue) String() string  { return fmt.Sprintf("<upvalue %s>", u.Closed.String()) }
func (u *Upvalue) Inspect() string { return u.String() }
