package object

import "lumen/value"

// NativeFn is the FFI contract every built-in function implements: given
// the arguments passed at the call site, it returns either a result value
// or an error value plus isError set, which the VM surfaces as a runtime
// error attributed to the call site rather than to the native itself.
type NativeFn func(args []value.Value) (result value.Value, isError bool)

// Native wraps a Go function so it can be stored in a Value and called from
// lumen code like any other callable.
type Native struct {
	Header
	Name  string
	Arity int
	Fn    NativeFn
}

func (n *Native) String() string  { return "<native fn " + n.Name + ">" }
func (n *Native) Inspect() string { return n.String() }
