package vm

import (
	"fmt"
	"os"
	"time"

	"github.com/pkg/errors"

	"lumen/object"
	"lumen/value"
)

// maxReadFileBytes caps what the readFile native will load into memory, so
// a careless script can't exhaust host memory reading one huge file.
const maxReadFileBytes = 8 << 20 // 8 MiB

func registerNatives(vm *VM) {
	vm.defineNative("clock", 0, vm.nativeClock)
	vm.defineNative("readFile", 1, vm.nativeReadFile)
	vm.defineNative("println", -1, vm.nativePrintln)
	vm.defineNative("append", 2, vm.nativeAppend)
	vm.defineNative("delete", 2, vm.nativeDelete)
	vm.defineNative("len", 1, vm.nativeLen)
	vm.defineNative("type", 1, vm.nativeType)
}

func (vm *VM) defineNative(name string, arity int, fn object.NativeFn) {
	native := vm.Heap.NewNative(name, arity, fn)
	key := vm.Intern.CopyString(name)
	vm.Globals.Set(key, value.FromObject(native))
}

// nativeErrorf interns its message so error strings are indistinguishable
// from any other lumen string -- including under ==.
func (vm *VM) nativeErrorf(format string, args ...interface{}) (value.Value, bool) {
	return value.FromObject(vm.Intern.CopyString(fmt.Sprintf(format, args...))), true
}

func (vm *VM) nativeClock(args []value.Value) (value.Value, bool) {
	return value.Number(float64(time.Now().UnixNano()) / 1e9), false
}

func (vm *VM) nativeReadFile(args []value.Value) (value.Value, bool) {
	path, ok := args[0].Obj.(*object.String)
	if !ok {
		return vm.nativeErrorf("readFile expects a string path")
	}

	info, err := os.Stat(path.Chars)
	if err != nil {
		return vm.nativeErrorf("%s", errors.Wrap(err, "readFile"))
	}
	if info.Size() > maxReadFileBytes {
		return vm.nativeErrorf("readFile: %s exceeds the %d byte limit", path.Chars, maxReadFileBytes)
	}

	contents, err := os.ReadFile(path.Chars)
	if err != nil {
		return vm.nativeErrorf("%s", errors.Wrap(err, "readFile"))
	}

	return value.FromObject(vm.Intern.TakeString(string(contents))), false
}

func (vm *VM) nativePrintln(args []value.Value) (value.Value, bool) {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.String()
	}
	fmt.Fprintln(vm.Stdout, joinSpace(parts))
	return value.Nil, false
}

func joinSpace(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += " "
		}
		out += p
	}
	return out
}

func (vm *VM) nativeAppend(args []value.Value) (value.Value, bool) {
	list, ok := args[0].Obj.(*object.List)
	if !ok {
		return vm.nativeErrorf("append expects a list as its first argument")
	}
	list.Append(args[1])
	return value.Nil, false
}

func (vm *VM) nativeDelete(args []value.Value) (value.Value, bool) {
	list, ok := args[0].Obj.(*object.List)
	if !ok {
		return vm.nativeErrorf("delete expects a list as its first argument")
	}
	if !args[1].IsNumber() {
		return vm.nativeErrorf("delete expects a numeric index")
	}
	if !list.Delete(int(args[1].Number)) {
		return vm.nativeErrorf("delete: index out of range")
	}
	return value.Nil, false
}

func (vm *VM) nativeLen(args []value.Value) (value.Value, bool) {
	switch obj := args[0].Obj.(type) {
	case *object.List:
		return value.Number(float64(obj.Len())), false
	case *object.String:
		return value.Number(float64(obj.Len())), false
	default:
		return vm.nativeErrorf("len expects a list or string")
	}
}

func (vm *VM) nativeType(args []value.Value) (value.Value, bool) {
	v := args[0]
	switch {
	case v.IsNil():
		return value.FromObject(vm.Intern.CopyString("nil")), false
	case v.IsBool():
		return value.FromObject(vm.Intern.CopyString("bool")), false
	case v.IsNumber():
		return value.FromObject(vm.Intern.CopyString("number")), false
	case v.IsObj():
		return value.FromObject(vm.Intern.CopyString(v.Obj.ObjType())), false
	default:
		return value.FromObject(vm.Intern.CopyString("unknown")), false
	}
}
