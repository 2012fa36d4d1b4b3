package vm

import (
	"lumen/bytecode"
	"lumen/object"
)

// Frame is one entry in the VM's call stack: which closure is running,
// where execution is in its chunk, and where its locals begin on the value
// stack.
type Frame struct {
	Closure *object.Closure
	ip      int
	// slots is the index into the VM's value stack of this frame's slot 0
	// -- conventionally the closure being called itself, followed by its
	// arguments and then its own locals.
	slots int
}

// NewFrame returns a Frame for closure with its locals region starting at
// stack index slots.
func NewFrame(closure *object.Closure, slots int) *Frame {
	return &Frame{Closure: closure, ip: 0, slots: slots}
}

// Chunk returns the compiled code this frame is executing.
func (f *Frame) Chunk() *bytecode.Chunk {
	return f.Closure.Function.Chunk
}
