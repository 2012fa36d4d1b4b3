package vm

import (
	"bytes"
	"strings"
	"testing"
)

// run compiles and interprets source against a fresh VM, returning
// everything written to stdout.
func run(t *testing.T, source string) (string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	machine := New()
	machine.Stdout = &stdout
	machine.Stderr = &stderr

	err := machine.Interpret(source)
	if err != nil {
		return stdout.String(), err
	}
	return stdout.String(), nil
}

// Concrete scenario 1: recursive fibonacci.
func TestFibonacciRecursion(t *testing.T) {
	source := `
		func fib(n) {
			if (n < 2) return n;
			return fib(n - 2) + fib(n - 1);
		}
		println(fib(10));
	`

	out, err := run(t, source)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if out != "55\n" {
		t.Errorf("expected 55\\n, got=%q", out)
	}
}

// Concrete scenario 2: closures sharing a captured local.
func TestCounterClosureSharesUpvalue(t *testing.T) {
	source := `
		func makeCounter() {
			let c = 0;
			return fun() {
				c = c + 1;
				return c;
			};
		}
		let k = makeCounter();
		println(k());
		println(k());
		println(k());
	`

	out, err := run(t, source)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if out != "1\n2\n3\n" {
		t.Errorf("expected 1\\n2\\n3\\n, got=%q", out)
	}
}

// Two closures created in the same enclosing frame both observe writes to
// the local they share once it's closed (Testable Property 2).
func TestSiblingClosuresShareUpvalueAfterClose(t *testing.T) {
	source := `
		func makePair() {
			let c = 0;
			let get = fun() { return c; };
			let set = fun(v) { c = v; };
			return [get, set];
		}
		let pair = makePair();
		let get = pair[0];
		let set = pair[1];
		set(42);
		println(get());
	`

	out, err := run(t, source)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if out != "42\n" {
		t.Errorf("expected 42\\n, got=%q", out)
	}
}

// Concrete scenario 3: list append/delete.
func TestListAppendAndDelete(t *testing.T) {
	source := `
		let xs = [10, 20, 30];
		append(xs, 40);
		delete(xs, 0);
		println(xs[0]);
		println(xs[2]);
	`

	out, err := run(t, source)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if out != "20\n40\n" {
		t.Errorf("expected 20\\n40\\n, got=%q", out)
	}
}

// Testable Property 5: subscript assignment round-trips as an expression.
func TestSubscriptRoundTrip(t *testing.T) {
	source := `
		let xs = [1, 2, 3];
		println(xs[0] = 99);
		println(xs[0]);
	`

	out, err := run(t, source)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if out != "99\n99\n" {
		t.Errorf("expected 99\\n99\\n, got=%q", out)
	}
}

// Testable Property 1: string interning makes equal-content strings
// compare equal.
func TestStringConcatEquality(t *testing.T) {
	out, err := run(t, `println("foo" + "bar" == "foobar");`)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if out != "true\n" {
		t.Errorf("expected true\\n, got=%q", out)
	}
}

// Testable Property 4: falsiness law.
func TestFalsinessLaw(t *testing.T) {
	out, err := run(t, `println(!nil); println(!false); println(!0); println(!""); println(![]);`)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if out != "true\ntrue\nfalse\nfalse\nfalse\n" {
		t.Errorf("unexpected falsiness results, got=%q", out)
	}
}

// Concrete scenario 5: `let a;` declares a without ever binding it in the
// globals table, so reading it is an undefined-global-read runtime error.
func TestUndefinedGlobalRead(t *testing.T) {
	_, err := run(t, `let a; println(a);`)
	if err == nil {
		t.Fatalf("expected a runtime error for undefined global a")
	}
	if !strings.Contains(err.Error(), "a") {
		t.Errorf("expected error message to mention a, got=%q", err.Error())
	}
}

// Concrete scenario 6: unbounded recursion overflows the frame stack.
func TestStackOverflowOnDeepRecursion(t *testing.T) {
	_, err := run(t, `func f() { f(); } f();`)
	if err == nil {
		t.Fatalf("expected a stack overflow error")
	}
	if err.Error() != "Stack overflow." {
		t.Errorf("expected \"Stack overflow.\", got=%q", err.Error())
	}
}

// Testable Property 3 & 6: after a runtime error, the VM's stacks are
// reset and a subsequent well-formed program runs cleanly.
func TestErrorIsolationAcrossInterpretCalls(t *testing.T) {
	var stdout, stderr bytes.Buffer
	machine := New()
	machine.Stdout = &stdout
	machine.Stderr = &stderr

	if err := machine.Interpret(`println(undefinedThing);`); err == nil {
		t.Fatalf("expected the first program to fail")
	}

	stdout.Reset()
	if err := machine.Interpret(`println(1 + 1);`); err != nil {
		t.Fatalf("expected second interpret call to succeed, got=%s", err)
	}
	if stdout.String() != "2\n" {
		t.Errorf("expected 2\\n, got=%q", stdout.String())
	}
	if machine.stackTop != 0 || machine.frameCount != 0 {
		t.Errorf("expected clean stack/frame state, got stackTop=%d frameCount=%d", machine.stackTop, machine.frameCount)
	}
}

func TestWhileLoop(t *testing.T) {
	source := `
		let i = 0;
		let sum = 0;
		while (i < 5) {
			sum = sum + i;
			i = i + 1;
		}
		println(sum);
	`

	out, err := run(t, source)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if out != "10\n" {
		t.Errorf("expected 10\\n, got=%q", out)
	}
}

func TestNativeLenAndType(t *testing.T) {
	source := `
		println(len("hello"));
		println(len([1, 2, 3]));
		println(type(1));
		println(type("s"));
		println(type(nil));
	`

	out, err := run(t, source)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if out != "5\n3\nnumber\nstring\nnil\n" {
		t.Errorf("unexpected output, got=%q", out)
	}
}
