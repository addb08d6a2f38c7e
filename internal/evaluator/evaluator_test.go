package evaluator

import (
	"bytes"
	"strings"
	"testing"

	"github.com/lumelang/lume/internal/analyzer"
	"github.com/lumelang/lume/internal/lexer"
	"github.com/lumelang/lume/internal/parser"
	"github.com/lumelang/lume/internal/pipeline"
)

func evalSource(t *testing.T, input string) Object {
	t.Helper()
	e := New()
	e.Out = &bytes.Buffer{}
	return evalWith(t, e, input)
}

func evalWith(t *testing.T, e *Evaluator, input string) Object {
	t.Helper()
	ctx := pipeline.NewContext(input, "eval_test.lume")
	program := parser.New(lexer.New(input), ctx).ParseProgram()
	if len(ctx.Errors) > 0 {
		t.Fatalf("parse errors: %v", ctx.Errors)
	}
	analyzer.New("eval_test.lume").Analyze(program)
	return e.Eval(program, NewEnvironment())
}

func wantInteger(t *testing.T, obj Object, expected int64) {
	t.Helper()
	result, ok := obj.(*Integer)
	if !ok {
		t.Fatalf("object is %T (%s), want *Integer", obj, obj.Inspect())
	}
	if result.Value != expected {
		t.Errorf("value = %d, want %d", result.Value, expected)
	}
}

func wantError(t *testing.T, obj Object, fragment string) {
	t.Helper()
	err, ok := obj.(*Error)
	if !ok {
		t.Fatalf("object is %T (%s), want *Error", obj, obj.Inspect())
	}
	if !strings.Contains(err.Message, fragment) {
		t.Errorf("error %q does not mention %q", err.Message, fragment)
	}
}

func TestIntegerExpressions(t *testing.T) {
	tests := []struct {
		input    string
		expected int64
	}{
		{"5", 5},
		{"-5", -5},
		{"2 + 3 * 4", 14},
		{"(2 + 3) * 4", 20},
		{"17 % 5", 2},
		{"10 / 3", 3},
	}
	for _, tt := range tests {
		wantInteger(t, evalSource(t, tt.input), tt.expected)
	}
}

func TestBooleanAndComparison(t *testing.T) {
	tests := []struct {
		input    string
		expected bool
	}{
		{"true", true},
		{"1 < 2", true},
		{"2 <= 1", false},
		{"1 == 1.0", true},
		{"\"a\" != \"b\"", true},
		{"true && false", false},
		{"false || true", true},
		{"!nil", true},
		{"[1, 2] == [1, 2]", true},
		{"[1, 2] == [2, 1]", false},
	}
	for _, tt := range tests {
		result, ok := evalSource(t, tt.input).(*Boolean)
		if !ok {
			t.Fatalf("%q: not a boolean", tt.input)
		}
		if result.Value != tt.expected {
			t.Errorf("%q = %v, want %v", tt.input, result.Value, tt.expected)
		}
	}
}

func TestShortCircuitSkipsRightSide(t *testing.T) {
	// The right operand would be an unknown identifier error if evaluated.
	result := evalSource(t, "false && boom")
	if b, ok := result.(*Boolean); !ok || b.Value {
		t.Errorf("got %s, want false", result.Inspect())
	}
	result = evalSource(t, "true || boom")
	if b, ok := result.(*Boolean); !ok || !b.Value {
		t.Errorf("got %s, want true", result.Inspect())
	}
}

func TestLetAndIdentifiers(t *testing.T) {
	wantInteger(t, evalSource(t, "let a = 5\nlet b = a * 2\na + b"), 15)
	wantError(t, evalSource(t, "missing"), "identifier not found")
}

func TestIfExpressions(t *testing.T) {
	wantInteger(t, evalSource(t, "if 1 < 2 { 10 } else { 20 }"), 10)
	wantInteger(t, evalSource(t, "if 1 > 2 { 10 } else { 20 }"), 20)
	if evalSource(t, "if false { 10 }") != NIL {
		t.Error("if without else should produce nil")
	}
}

func TestStringsAndConcat(t *testing.T) {
	result, ok := evalSource(t, `"foo" ++ "bar"`).(*String)
	if !ok || result.Value != "foobar" {
		t.Fatalf("got %v, want foobar", result)
	}
}

func TestListsAndIndexing(t *testing.T) {
	wantInteger(t, evalSource(t, "[1, 2, 3][1]"), 2)
	wantInteger(t, evalSource(t, "([1] ++ [2, 3])[2]"), 3)
	wantError(t, evalSource(t, "[1][5]"), "out of range")
	wantError(t, evalSource(t, `[1]["x"]`), "must be Int")
}

func TestRecords(t *testing.T) {
	wantInteger(t, evalSource(t, "let p = {x: 1, y: 2}\np.x + p.y"), 3)
	wantInteger(t, evalSource(t, `let p = {x: 7}
p["x"]`), 7)
	if evalSource(t, `let p = {x: 1}
p["missing"]`) != NIL {
		t.Error("missing record key should produce nil")
	}
}

func TestRecordFieldShadowsMethod(t *testing.T) {
	// A record field named like a universal method wins over dispatch.
	result, ok := evalSource(t, `let r = {show: 42}
r.show`).(*Integer)
	if !ok || result.Value != 42 {
		t.Error("record field did not take precedence over the method table")
	}
}

func TestFunctionsAndClosures(t *testing.T) {
	wantInteger(t, evalSource(t, "fun add(a, b) {\n a + b\n}\nadd(2, 3)"), 5)
	wantInteger(t, evalSource(t, `fun makeAdder(a) {
	fn(b) { a + b }
}
let add2 = makeAdder(2)
add2(40)`), 42)
}

func TestReturnStatement(t *testing.T) {
	wantInteger(t, evalSource(t, `fun f(x) {
	if x > 0 {
		return 1
	}
	return 0 - 1
}
f(5)`), 1)
}

func TestPartialApplication(t *testing.T) {
	wantInteger(t, evalSource(t, "fun add(a, b) {\n a + b\n}\nlet inc = add(1)\ninc(41)"), 42)
	wantInteger(t, evalSource(t, `fun add3(a, b, c) {
	a + b + c
}
add3(1)(2)(3)`), 6)
}

func TestOversaturatedCall(t *testing.T) {
	// Extra arguments apply to whatever the saturated call returned.
	wantInteger(t, evalSource(t, `fun makeAdder(a) {
	fn(b) { a + b }
}
makeAdder(1, 2)`), 3)
	wantError(t, evalSource(t, "fun one() {\n 1\n}\none(9, 9)"), "not a function")
}

func TestOversaturatedBuiltin(t *testing.T) {
	e := New()
	adder := &Builtin{Name: "adder", Arity: 1, Fn: func(e *Evaluator, args ...Object) Object {
		base := args[0].(*Integer).Value
		return &Builtin{Name: "add", Arity: 1, Fn: func(e *Evaluator, args ...Object) Object {
			return &Integer{Value: base + args[0].(*Integer).Value}
		}}
	}}

	// Fixed-arity builtins split the same way user functions do.
	wantInteger(t, e.ApplyFunction(adder, []Object{&Integer{Value: 40}, &Integer{Value: 2}}), 42)

	// A saturated call that yields a non-callable still fails on the remainder.
	wantError(t, e.ApplyFunction(Builtins["length"], []Object{&String{Value: "ab"}, &Integer{Value: 1}}), "not a function")

	// Undersaturation stays an arity error for host functions.
	wantError(t, e.ApplyFunction(Builtins["length"], nil), "wrong number of arguments")
}

func TestBuiltins(t *testing.T) {
	wantInteger(t, evalSource(t, `length("hello")`), 5)
	wantInteger(t, evalSource(t, "length([1, 2, 3])"), 3)
	wantInteger(t, evalSource(t, "length(range(1, 10))"), 10)
	result, ok := evalSource(t, "show([1, 2])").(*String)
	if !ok || result.Value != "[1, 2]" {
		t.Errorf("show([1, 2]) = %v", result)
	}
}

func TestPrintlnWritesToOut(t *testing.T) {
	var out bytes.Buffer
	e := New()
	e.Out = &out
	evalWith(t, e, `println("hello", 42)`)
	if out.String() != "hello 42\n" {
		t.Errorf("output = %q", out.String())
	}
}

func TestBuiltinMethods(t *testing.T) {
	wantInteger(t, evalSource(t, "[1, 2, 3].length()"), 3)
	wantInteger(t, evalSource(t, "[1, 2, 3].sum()"), 6)
	wantInteger(t, evalSource(t, "[5, 6].head()"), 5)
	wantInteger(t, evalSource(t, "[1, 2, 3].tail().length()"), 2)
	wantInteger(t, evalSource(t, "[1, 2, 3].map(fn(x) { x * 10 }).sum()"), 60)
	wantInteger(t, evalSource(t, "range(1, 10).filter(fn(x) { x % 2 == 0 }).length()"), 5)
	str, ok := evalSource(t, `"abc".upper()`).(*String)
	if !ok || str.Value != "ABC" {
		t.Errorf("upper = %v", str)
	}
}

func TestSupertypeDispatch(t *testing.T) {
	// abs is registered on Number; Int resolves through its supertype chain.
	wantInteger(t, evalSource(t, "(0 - 9).abs()"), 9)
	f, ok := evalSource(t, "(0.0 - 2.5).abs()").(*Float)
	if !ok || f.Value != 2.5 {
		t.Errorf("Float abs = %v", f)
	}
}

func TestUniversalShowMethod(t *testing.T) {
	str, ok := evalSource(t, "true.show()").(*String)
	if !ok || str.Value != "true" {
		t.Errorf("true.show() = %v", str)
	}
}

func TestExtensionMethod(t *testing.T) {
	wantInteger(t, evalSource(t, `fun (n: Int) double() {
	n * 2
}
21.double()`), 42)
}

func TestExtensionMethodRedefinition(t *testing.T) {
	// Redefining bumps the epoch, so the same call site sees the new body.
	e := New()
	e.Out = &bytes.Buffer{}
	env := NewEnvironment()

	run := func(src string) Object {
		t.Helper()
		ctx := pipeline.NewContext(src, "eval_test.lume")
		program := parser.New(lexer.New(src), ctx).ParseProgram()
		if len(ctx.Errors) > 0 {
			t.Fatalf("parse errors: %v", ctx.Errors)
		}
		analyzer.New("eval_test.lume").Analyze(program)
		return e.Eval(program, env)
	}

	run("fun (n: Int) scale() {\n n * 2\n}")
	wantInteger(t, run("10.scale()"), 20)
	run("fun (n: Int) scale() {\n n * 3\n}")
	wantInteger(t, run("10.scale()"), 30)
}

func TestMethodNotFound(t *testing.T) {
	wantError(t, evalSource(t, "5.frobnicate()"), "no method")
}

func TestDataFlowErrors(t *testing.T) {
	wantError(t, evalSource(t, "1 / 0"), "division by zero")
	wantError(t, evalSource(t, `1 + "x"`), "type mismatch")
	// Errors propagate through enclosing expressions.
	wantError(t, evalSource(t, "let x = 1 / 0\nx + 1"), "division by zero")
}

func TestDepthLimit(t *testing.T) {
	e := New()
	e.Out = &bytes.Buffer{}
	e.MaxDepth = 100
	result := evalWith(t, e, `fun f(n) {
	1 + f(n + 1)
}
f(0)`)
	wantError(t, result, "maximum evaluation depth")
}

func TestTailRecursionRunsFlat(t *testing.T) {
	// Far more iterations than MaxDepth allows for plain recursion.
	e := New()
	e.Out = &bytes.Buffer{}
	e.MaxDepth = 100
	result := evalWith(t, e, `fun sum(n, acc) {
	if n == 0 {
		acc
	} else {
		sum(n - 1, acc + n)
	}
}
sum(100000, 0)`)
	wantInteger(t, result, 5000050000)
}

func TestTailRecursiveSumLarge(t *testing.T) {
	if testing.Short() {
		t.Skip("hundred-million-iteration sum skipped in short mode")
	}
	result := evalSource(t, `fun sum(n, acc) {
	if n == 0 {
		acc
	} else {
		sum(n - 1, acc + n)
	}
}
sum(100000000, 0)`)
	wantInteger(t, result, 5000000050000000)
}

func TestMutualTailRecursion(t *testing.T) {
	result := evalSource(t, `fun even(n) {
	if n == 0 { true } else { odd(n - 1) }
}
fun odd(n) {
	if n == 0 { false } else { even(n - 1) }
}
even(100000)`)
	b, ok := result.(*Boolean)
	if !ok || !b.Value {
		t.Errorf("even(100000) = %s, want true", result.Inspect())
	}
}

func TestTailCallNeverEscapes(t *testing.T) {
	result := evalSource(t, `fun f(n) {
	g(n)
}
fun g(n) {
	n + 1
}
f(1)`)
	if result.Type() == TAIL_CALL_OBJ {
		t.Fatal("tail-call completion leaked as a value")
	}
	wantInteger(t, result, 2)
}
