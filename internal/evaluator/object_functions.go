package evaluator

import (
	"fmt"
	"strings"

	"github.com/lumelang/lume/internal/ast"
	"github.com/lumelang/lume/internal/dispatch"
	"github.com/lumelang/lume/internal/ident"
)

// Function is a user-defined function closing over its definition
// environment. DeclID is the stable identity of the declaring node.
type Function struct {
	Name       string
	Parameters []*ast.Parameter
	Body       *ast.BlockStatement
	Env        *Environment
	DeclID     ident.ID
	Line       int
	Column     int
}

func (f *Function) Type() ObjectType          { return FUNCTION_OBJ }
func (f *Function) TypeKey() dispatch.TypeKey { return TypeFunction }
func (f *Function) Inspect() string {
	params := make([]string, len(f.Parameters))
	for i, p := range f.Parameters {
		params[i] = p.String()
	}
	name := f.Name
	if name == "" {
		name = "fn"
	}
	return fmt.Sprintf("%s(%s)", name, strings.Join(params, ", "))
}

// BuiltinFunction receives the running evaluator so builtins can call back
// into user code (map, filter) and write to the configured output.
type BuiltinFunction func(e *Evaluator, args ...Object) Object

type Builtin struct {
	Name  string
	Arity int // -1 for variadic
	Fn    BuiltinFunction
}

func (b *Builtin) Type() ObjectType          { return BUILTIN_OBJ }
func (b *Builtin) Inspect() string           { return "builtin " + b.Name }
func (b *Builtin) TypeKey() dispatch.TypeKey { return TypeFunction }

// PartialApplication is an undersaturated call: the callable plus the
// arguments applied so far. Applying more arguments resumes the call.
type PartialApplication struct {
	Callable    Object
	AppliedArgs []Object
	Remaining   int
}

func (pa *PartialApplication) Type() ObjectType          { return PARTIAL_APP_OBJ }
func (pa *PartialApplication) TypeKey() dispatch.TypeKey { return TypeFunction }
func (pa *PartialApplication) Inspect() string {
	return fmt.Sprintf("partial %s (%d more)", pa.Callable.Inspect(), pa.Remaining)
}

// BoundMethod pairs a resolved method with its receiver. Applying it
// prepends the receiver to the argument list.
type BoundMethod struct {
	Receiver Object
	Method   Object
	Name     string
}

func (bm *BoundMethod) Type() ObjectType          { return BOUND_METHOD_OBJ }
func (bm *BoundMethod) TypeKey() dispatch.TypeKey { return TypeFunction }
func (bm *BoundMethod) Inspect() string {
	return fmt.Sprintf("%s.%s", bm.Receiver.TypeKey(), bm.Name)
}

// TailCall is the completion a call in tail position evaluates to. The
// trampoline in ApplyFunction unwraps it instead of growing the Go stack.
type TailCall struct {
	Func   Object
	Args   []Object
	Name   string
	File   string
	Line   int
	Column int
}

func (tc *TailCall) Type() ObjectType          { return TAIL_CALL_OBJ }
func (tc *TailCall) Inspect() string           { return "tail call " + tc.Name }
func (tc *TailCall) TypeKey() dispatch.TypeKey { return TypeFunction }
