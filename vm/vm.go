// Package vm implements the stack-based executor that runs chunks produced
// by package compiler: the value stack, call-frame stack, upvalue capture
// and closing, and the native function registry.
package vm

import (
	"fmt"
	"io"
	"os"

	"lumen/bytecode"
	"lumen/compiler"
	"lumen/internal/telemetry"
	"lumen/object"
	"lumen/value"
)

const (
	// StackMax bounds the value stack. Small on purpose, per the reference
	// design -- see SPEC_FULL.md for the tradeoff.
	StackMax = 256
	// FramesMax bounds call-frame nesting depth.
	FramesMax = 64
)

// RuntimeError is returned by Interpret when execution fails after
// compiling successfully. Its message and the accompanying stack trace
// have already been written to the VM's diagnostic stream by the time the
// caller sees it.
type RuntimeError struct {
	Message string
}

func (e *RuntimeError) Error() string { return e.Message }

// VM owns the value stack, frame stack, globals table, string interner and
// heap object list for the lifetime of a process (or a REPL session).
// Interpret may be called repeatedly against the same VM: globals persist
// across calls the way a REPL expects, and a runtime error in one call
// leaves no residue for the next (Testable Property 6).
type VM struct {
	Heap    *object.Heap
	Intern  *object.Interner
	Globals *object.Table

	stack    [StackMax]value.Value
	stackTop int

	frames     [FramesMax]*Frame
	frameCount int

	openUpvalues *object.Upvalue

	Stderr io.Writer
	Stdout io.Writer

	log *telemetry.Logger
}

// New returns a VM with empty globals and the native function registry
// installed, writing runtime output and diagnostics to stdout/stderr.
func New() *VM {
	heap := object.NewHeap()
	intern := object.NewInterner(heap)

	vm := &VM{
		Heap:    heap,
		Intern:  intern,
		Globals: object.NewTable(),
		Stderr:  os.Stderr,
		Stdout:  os.Stdout,
		log:     telemetry.Disabled(),
	}

	registerNatives(vm)
	return vm
}

// SetTrace enables or disables per-instruction tracing via zerolog,
// independent of the runtime error/stack-trace output below.
func (vm *VM) SetTrace(enabled bool) {
	if enabled {
		vm.log = telemetry.New(vm.Stderr)
	} else {
		vm.log = telemetry.Disabled()
	}
}

// Interpret compiles source and, on success, runs it to completion. A
// compile failure is returned as *compiler.CompileError without touching
// VM state; a runtime failure is returned as *RuntimeError after its
// message and stack trace have been written to Stderr and VM state reset.
func (vm *VM) Interpret(source string) error {
	comp := compiler.New(source, vm.Heap, vm.Intern)
	fn, err := comp.Compile()
	if err != nil {
		return err
	}

	closure := vm.Heap.NewClosure(fn, fn.UpvalueCount)

	if err := vm.push(value.FromObject(closure)); err != nil {
		return err
	}
	vm.callClosure(closure, 0)

	return vm.run()
}

func (vm *VM) run() error {
	frame := vm.currentFrame()
	ins := frame.Chunk().Code
	ip := frame.ip

	refreshFrame := func() {
		frame = vm.currentFrame()
		ins = frame.Chunk().Code
		ip = frame.ip
	}

	readByte := func() byte {
		b := ins[ip]
		ip++
		return b
	}
	readUint16 := func() uint16 {
		hi, lo := ins[ip], ins[ip+1]
		ip += 2
		return uint16(hi)<<8 | uint16(lo)
	}
	readConstant := func() value.Value {
		idx := readByte()
		return frame.Chunk().Constants[idx].(value.Value)
	}

	for {
		vm.log.Instruction(frame.Chunk(), ip)

		op := bytecode.Opcode(readByte())

		switch op {
		case bytecode.OpConstant:
			if err := vm.push(readConstant()); err != nil {
				frame.ip = ip
				return vm.runtimeError(err.Error())
			}

		case bytecode.OpNil:
			if err := vm.push(value.Nil); err != nil {
				frame.ip = ip
				return err
			}
		case bytecode.OpTrue:
			if err := vm.push(value.Bool(true)); err != nil {
				frame.ip = ip
				return err
			}
		case bytecode.OpFalse:
			if err := vm.push(value.Bool(false)); err != nil {
				frame.ip = ip
				return err
			}
		case bytecode.OpPop:
			vm.pop()
		case bytecode.OpDup:
			if err := vm.push(vm.peek(0)); err != nil {
				frame.ip = ip
				return err
			}

		case bytecode.OpGetLocal:
			slot := int(readByte())
			if err := vm.push(vm.stack[frame.slots+slot]); err != nil {
				frame.ip = ip
				return err
			}
		case bytecode.OpSetLocal:
			slot := int(readByte())
			vm.stack[frame.slots+slot] = vm.peek(0)

		case bytecode.OpGetGlobal:
			name := readConstant().Obj.(*object.String)
			val, ok := vm.Globals.Get(name)
			if !ok {
				frame.ip = ip
				return vm.runtimeError(fmt.Sprintf("Undefined variable '%s'.", name.Chars))
			}
			if err := vm.push(val); err != nil {
				frame.ip = ip
				return err
			}
		case bytecode.OpDefineGlobal:
			name := readConstant().Obj.(*object.String)
			vm.Globals.Set(name, vm.peek(0))
			vm.pop()
		case bytecode.OpSetGlobal:
			name := readConstant().Obj.(*object.String)
			if vm.Globals.Set(name, vm.peek(0)) {
				vm.Globals.Delete(name)
				frame.ip = ip
				return vm.runtimeError(fmt.Sprintf("Undefined variable '%s'.", name.Chars))
			}

		case bytecode.OpGetUpvalue:
			slot := int(readByte())
			if err := vm.push(frame.Closure.Upvalues[slot].Get(vm.stack[:])); err != nil {
				frame.ip = ip
				return err
			}
		case bytecode.OpSetUpvalue:
			slot := int(readByte())
			frame.Closure.Upvalues[slot].Set(vm.stack[:], vm.peek(0))

		case bytecode.OpEqual:
			b, a := vm.pop(), vm.pop()
			vm.push(value.Bool(value.Equal(a, b)))
		case bytecode.OpGreater, bytecode.OpLess:
			b, a := vm.pop(), vm.pop()
			if !a.IsNumber() || !b.IsNumber() {
				frame.ip = ip
				return vm.runtimeError("Operands must be numbers.")
			}
			if op == bytecode.OpGreater {
				vm.push(value.Bool(a.Number > b.Number))
			} else {
				vm.push(value.Bool(a.Number < b.Number))
			}

		case bytecode.OpAdd:
			b, a := vm.pop(), vm.pop()
			switch {
			case a.IsNumber() && b.IsNumber():
				vm.push(value.Number(a.Number + b.Number))
			case isString(a) && isString(b):
				concatenated := a.Obj.(*object.String).Chars + b.Obj.(*object.String).Chars
				vm.push(value.FromObject(vm.Intern.CopyString(concatenated)))
			default:
				frame.ip = ip
				return vm.runtimeError("Operands must be numbers.")
			}
		case bytecode.OpSubtract, bytecode.OpMultiply, bytecode.OpDivide:
			b, a := vm.pop(), vm.pop()
			if !a.IsNumber() || !b.IsNumber() {
				frame.ip = ip
				return vm.runtimeError("Operands must be numbers.")
			}
			switch op {
			case bytecode.OpSubtract:
				vm.push(value.Number(a.Number - b.Number))
			case bytecode.OpMultiply:
				vm.push(value.Number(a.Number * b.Number))
			case bytecode.OpDivide:
				vm.push(value.Number(a.Number / b.Number))
			}

		case bytecode.OpNot:
			vm.push(value.Bool(vm.pop().Falsy()))
		case bytecode.OpNegate:
			a := vm.pop()
			if !a.IsNumber() {
				frame.ip = ip
				return vm.runtimeError("Operand must be a number.")
			}
			vm.push(value.Number(-a.Number))

		case bytecode.OpPrint:
			fmt.Fprintln(vm.Stdout, vm.pop().String())

		case bytecode.OpJump:
			offset := readUint16()
			ip += int(offset)
		case bytecode.OpJumpIfFalse:
			offset := readUint16()
			if vm.peek(0).Falsy() {
				ip += int(offset)
			}
		case bytecode.OpLoop:
			offset := readUint16()
			ip -= int(offset)

		case bytecode.OpCall:
			argCount := int(readByte())
			frame.ip = ip
			if err := vm.callValue(vm.peek(argCount), argCount); err != nil {
				return err
			}
			refreshFrame()

		case bytecode.OpClosure:
			fnIdx := readByte()
			fn := frame.Chunk().Constants[fnIdx].(value.Value).Obj.(*object.Function)
			upvalueCount := int(readByte())

			closure := vm.Heap.NewClosure(fn, upvalueCount)
			for i := 0; i < upvalueCount; i++ {
				isLocal := readByte()
				index := int(readByte())
				if isLocal == 1 {
					closure.Upvalues[i] = vm.captureUpvalue(frame.slots + index)
				} else {
					closure.Upvalues[i] = frame.Closure.Upvalues[index]
				}
			}
			vm.push(value.FromObject(closure))

		case bytecode.OpCloseUpvalue:
			vm.closeUpvalues(vm.stackTop - 1)
			vm.pop()

		case bytecode.OpBuildList:
			n := int(readByte())
			list := vm.Heap.NewList()
			for i := 0; i < n; i++ {
				list.Append(vm.stack[vm.stackTop-n+i])
			}
			vm.stackTop -= n
			vm.push(value.FromObject(list))

		case bytecode.OpIndexSubscr:
			idxVal, listVal := vm.pop(), vm.pop()
			list, ok := listVal.Obj.(*object.List)
			if !ok {
				frame.ip = ip
				return vm.runtimeError("Only lists can be subscripted.")
			}
			if !idxVal.IsNumber() {
				frame.ip = ip
				return vm.runtimeError("List index must be a number.")
			}
			elem, ok := list.Get(int(idxVal.Number))
			if !ok {
				frame.ip = ip
				return vm.runtimeError("List index out of range.")
			}
			vm.push(elem)

		case bytecode.OpStoreSubscr:
			val, idxVal, listVal := vm.pop(), vm.pop(), vm.pop()
			list, ok := listVal.Obj.(*object.List)
			if !ok {
				frame.ip = ip
				return vm.runtimeError("Only lists can be subscripted.")
			}
			if !idxVal.IsNumber() {
				frame.ip = ip
				return vm.runtimeError("List index must be a number.")
			}
			if !list.Set(int(idxVal.Number), val) {
				frame.ip = ip
				return vm.runtimeError("List index out of range.")
			}
			vm.push(val)

		case bytecode.OpReturn:
			result := vm.pop()
			vm.closeUpvalues(frame.slots)
			vm.frameCount--

			if vm.frameCount == 0 {
				vm.pop()
				return nil
			}

			vm.stackTop = frame.slots
			vm.push(result)
			refreshFrame()

		default:
			frame.ip = ip
			return vm.runtimeError(fmt.Sprintf("Unknown opcode %d.", op))
		}
	}
}

func isString(v value.Value) bool {
	if !v.IsObj() {
		return false
	}
	_, ok := v.Obj.(*object.String)
	return ok
}

// --- stack ---

func (vm *VM) push(v value.Value) error {
	if vm.stackTop >= StackMax {
		return vm.runtimeError("Stack overflow.")
	}
	vm.stack[vm.stackTop] = v
	vm.stackTop++
	return nil
}

func (vm *VM) pop() value.Value {
	vm.stackTop--
	return vm.stack[vm.stackTop]
}

func (vm *VM) peek(distance int) value.Value {
	return vm.stack[vm.stackTop-1-distance]
}

// --- frames ---

func (vm *VM) currentFrame() *Frame {
	return vm.frames[vm.frameCount-1]
}

func (vm *VM) callValue(callee value.Value, argCount int) error {
	if !callee.IsObj() {
		return vm.runtimeError("Can only call functions.")
	}

	switch fn := callee.Obj.(type) {
	case *object.Closure:
		return vm.callClosure(fn, argCount)
	case *object.Native:
		return vm.callNative(fn, argCount)
	default:
		return vm.runtimeError("Can only call functions.")
	}
}

func (vm *VM) callClosure(closure *object.Closure, argCount int) error {
	if argCount != closure.Function.Arity {
		return vm.runtimeError(fmt.Sprintf(
			"Expected %d arguments but got %d.", closure.Function.Arity, argCount,
		))
	}
	if vm.frameCount == FramesMax {
		return vm.runtimeError("Stack overflow.")
	}

	frame := NewFrame(closure, vm.stackTop-argCount-1)
	vm.frames[vm.frameCount] = frame
	vm.frameCount++
	return nil
}

func (vm *VM) callNative(native *object.Native, argCount int) error {
	if native.Arity != -1 && native.Arity != argCount {
		return vm.runtimeError(fmt.Sprintf(
			"Expected %d arguments but got %d.", native.Arity, argCount,
		))
	}

	args := make([]value.Value, argCount)
	copy(args, vm.stack[vm.stackTop-argCount:vm.stackTop])

	result, isError := native.Fn(args)
	if isError {
		return vm.runtimeError("Native error: " + result.String())
	}

	vm.stackTop -= argCount + 1
	return vm.push(result)
}

// --- upvalues ---

func (vm *VM) captureUpvalue(stackIndex int) *object.Upvalue {
	var prev *object.Upvalue
	cur := vm.openUpvalues

	for cur != nil && cur.StackIndex > stackIndex {
		prev = cur
		cur = cur.NextOpen
	}

	if cur != nil && cur.StackIndex == stackIndex {
		return cur
	}

	created := vm.Heap.NewUpvalue(stackIndex)
	created.NextOpen = cur

	if prev == nil {
		vm.openUpvalues = created
	} else {
		prev.NextOpen = created
	}

	return created
}

func (vm *VM) closeUpvalues(last int) {
	for vm.openUpvalues != nil && vm.openUpvalues.StackIndex >= last {
		u := vm.openUpvalues
		u.Close(vm.stack[:])
		vm.openUpvalues = u.NextOpen
		u.NextOpen = nil
	}
}

// --- errors ---

func (vm *VM) runtimeError(message string) error {
	fmt.Fprintln(vm.Stderr, message)

	for i := vm.frameCount - 1; i >= 0; i-- {
		frame := vm.frames[i]
		line := frame.Chunk().GetLine(frame.ip - 1)
		if frame.Closure.Function.Name != nil {
			fmt.Fprintf(vm.Stderr, "[line %d] in %s()\n", line, frame.Closure.Function.Name.Chars)
		} else {
			fmt.Fprintf(vm.Stderr, "[line %d] in script\n", line)
		}
	}

	vm.resetStacks()
	return &RuntimeError{Message: message}
}

func (vm *VM) resetStacks() {
	vm.stackTop = 0
	vm.frameCount = 0
	vm.openUpvalues = nil
}
