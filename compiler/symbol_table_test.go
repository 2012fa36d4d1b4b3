package compiler

import "testing"

func TestDefine(t *testing.T) {
	global := NewSymbolTable()

	a := global.Define("a")
	if a.Scope != GlobalScope || a.Index != 0 {
		t.Errorf("expected global a at index 0, got=%+v", a)
	}

	b := global.Define("b")
	if b.Scope != GlobalScope || b.Index != 1 {
		t.Errorf("expected global b at index 1, got=%+v", b)
	}

	local := NewEnclosedSymbolTable(global)
	c := local.Define("c")
	if c.Scope != LocalScope || c.Index != 0 {
		t.Errorf("expected local c at index 0, got=%+v", c)
	}

	d := local.Define("d")
	if d.Scope != LocalScope || d.Index != 1 {
		t.Errorf("expected local d at index 1, got=%+v", d)
	}
}

func TestResolveGlobal(t *testing.T) {
	global := NewSymbolTable()
	global.Define("a")
	global.Define("b")

	sym, ok := global.Resolve("a")
	if !ok || sym.Scope != GlobalScope || sym.Index != 0 {
		t.Errorf("unexpected resolution for a: %+v ok=%v", sym, ok)
	}

	if _, ok := global.Resolve("missing"); ok {
		t.Errorf("expected missing to be unresolved")
	}
}

func TestResolveLocal(t *testing.T) {
	global := NewSymbolTable()
	global.Define("a")

	local := NewEnclosedSymbolTable(global)
	local.Define("b")
	local.Define("c")

	sym, ok := local.Resolve("a")
	if !ok || sym.Scope != GlobalScope {
		t.Errorf("expected a to resolve as global, got=%+v", sym)
	}

	sym, ok = local.Resolve("b")
	if !ok || sym.Scope != LocalScope || sym.Index != 0 {
		t.Errorf("expected local b at index 0, got=%+v", sym)
	}
}

func TestResolveFree(t *testing.T) {
	global := NewSymbolTable()
	global.Define("g")

	outer := NewEnclosedSymbolTable(global)
	outer.Define("a")
	outer.Define("b")

	inner := NewEnclosedSymbolTable(outer)
	inner.Define("c")

	sym, ok := inner.Resolve("a")
	if !ok || sym.Scope != FreeScope || sym.Index != 0 {
		t.Errorf("expected a to resolve as free 0, got=%+v", sym)
	}

	sym, ok = inner.Resolve("b")
	if !ok || sym.Scope != FreeScope || sym.Index != 1 {
		t.Errorf("expected b to resolve as free 1, got=%+v", sym)
	}

	if len(inner.Upvalues) != 2 {
		t.Fatalf("expected 2 upvalues, got=%d", len(inner.Upvalues))
	}
	if !inner.Upvalues[0].IsLocal || inner.Upvalues[0].Index != 0 {
		t.Errorf("expected upvalue 0 to capture outer local 0, got=%+v", inner.Upvalues[0])
	}

	if !outer.IsCaptured(0) || !outer.IsCaptured(1) {
		t.Errorf("expected outer locals a and b to be marked captured")
	}

	sym, ok = inner.Resolve("g")
	if !ok || sym.Scope != GlobalScope {
		t.Errorf("expected g to resolve as global without an upvalue, got=%+v", sym)
	}
}

func TestResolveNestedFree(t *testing.T) {
	global := NewSymbolTable()

	outer := NewEnclosedSymbolTable(global)
	outer.Define("a")

	middle := NewEnclosedSymbolTable(outer)
	middle.Define("b")

	inner := NewEnclosedSymbolTable(middle)

	sym, ok := inner.Resolve("a")
	if !ok || sym.Scope != FreeScope {
		t.Errorf("expected a to resolve as free in the innermost scope, got=%+v", sym)
	}

	if len(middle.Upvalues) != 1 || !middle.Upvalues[0].IsLocal {
		t.Fatalf("expected middle to capture a as a local upvalue, got=%+v", middle.Upvalues)
	}
	if len(inner.Upvalues) != 1 || inner.Upvalues[0].IsLocal {
		t.Fatalf("expected inner to capture a as a non-local (upvalue-of-upvalue), got=%+v", inner.Upvalues)
	}
}

func TestBlockScopePopsLocals(t *testing.T) {
	fn := NewEnclosedSymbolTable(NewSymbolTable())
	fn.Define("a")

	fn.BeginScope()
	fn.Define("b")
	fn.Define("c")

	popped := fn.EndScope()
	if len(popped) != 2 {
		t.Fatalf("expected 2 locals popped, got=%d", len(popped))
	}
	if popped[0].Name != "c" || popped[1].Name != "b" {
		t.Errorf("expected popped locals deepest-first, got=%+v", popped)
	}

	if _, ok := fn.Resolve("b"); ok {
		t.Errorf("expected b to no longer resolve after its scope ended")
	}
	if _, ok := fn.Resolve("a"); !ok {
		t.Errorf("expected a to still resolve after the inner scope ended")
	}
}

func TestDefineFunctionName(t *testing.T) {
	global := NewSymbolTable()
	local := NewEnclosedSymbolTable(global)
	local.DefineFunctionName("fib")

	sym, ok := local.Resolve("fib")
	if !ok || sym.Scope != FunctionScope {
		t.Errorf("expected fib to resolve in its own scope, got=%+v", sym)
	}
}
