package evaluator

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/lumelang/lume/internal/ast"
	"github.com/lumelang/lume/internal/dispatch"
	"github.com/lumelang/lume/internal/ident"
	"github.com/lumelang/lume/internal/instrument"
)

const DefaultMaxEvalDepth = 5000

var (
	NIL   = &Nil{}
	TRUE  = &Boolean{Value: true}
	FALSE = &Boolean{Value: false}
)

// Evaluator executes an analyzed program tree. Method calls resolve through
// the dispatch cache against the registry; observers see every identified
// expression through a snapshot taken at its evaluation boundary.
type Evaluator struct {
	Context     context.Context
	Out         io.Writer
	Registry    *MethodRegistry
	Dispatch    *dispatch.Cache[ident.ID, Object]
	Observers   *instrument.Chain[Object]
	MaxDepth    int
	CurrentFile string

	callStack []CallFrame
	evalDepth int
}

func New() *Evaluator {
	return NewWith(NewRuntimeRegistry())
}

// NewRuntimeRegistry builds a method registry seeded with the builtin
// methods. Hold one and pass it to several evaluators when they must see
// the same method table and epoch.
func NewRuntimeRegistry() *MethodRegistry {
	registry := NewMethodRegistry(nil)
	registerBuiltinMethods(registry)
	return registry
}

// NewWith builds an evaluator over an existing registry. The registry and
// its epoch may be shared across evaluators; the dispatch cache and observer
// chain are always private, and stale dispatch entries re-resolve through
// the shared epoch after any registry mutation.
func NewWith(registry *MethodRegistry) *Evaluator {
	return &Evaluator{
		Out:       os.Stdout,
		Registry:  registry,
		Dispatch:  dispatch.NewCache[ident.ID, Object](registry, registry.Epoch()),
		Observers: instrument.NewChain[Object](),
		MaxDepth:  DefaultMaxEvalDepth,
	}
}

func (e *Evaluator) PushCall(name, file string, line, column int) {
	e.callStack = append(e.callStack, CallFrame{Name: name, File: file, Line: line, Column: column})
}

func (e *Evaluator) PopCall() {
	if len(e.callStack) > 0 {
		e.callStack = e.callStack[:len(e.callStack)-1]
	}
}

// replaceCall swaps the top frame in place so tail chains keep a flat stack.
func (e *Evaluator) replaceCall(frame CallFrame) {
	if len(e.callStack) == 0 {
		e.callStack = append(e.callStack, frame)
		return
	}
	e.callStack[len(e.callStack)-1] = frame
}

func (e *Evaluator) snapshotStack() []CallFrame {
	return append([]CallFrame(nil), e.callStack...)
}

func newError(format string, args ...interface{}) *Error {
	return &Error{Message: fmt.Sprintf(format, args...)}
}

func isError(obj Object) bool {
	if obj == nil {
		return false
	}
	return obj.Type() == ERROR_OBJ
}

func (e *Evaluator) Eval(node ast.Node, env *Environment) Object {
	e.evalDepth++
	defer func() { e.evalDepth-- }()
	if e.evalDepth > e.MaxDepth {
		return newError("maximum evaluation depth exceeded (%d)", e.MaxDepth)
	}
	if e.Context != nil {
		select {
		case <-e.Context.Done():
			return newError("evaluation cancelled: %s", e.Context.Err())
		default:
		}
	}

	expr, isExpr := node.(ast.Expression)
	if isExpr && e.Observers != nil && !expr.ID().IsZero() {
		if probe := e.Observers.Snapshot(); probe.Active() {
			return e.evalObserved(expr, env, probe)
		}
	}
	return e.withPosition(node, e.evalCore(node, env))
}

// evalObserved runs one expression under an observer snapshot. An onEnter
// override short-circuits evaluation and is reported as a cached result;
// otherwise the computed value is reported through onReturn. Control-flow
// completions are not values and are never reported.
func (e *Evaluator) evalObserved(expr ast.Expression, env *Environment, probe instrument.Probe[Object]) Object {
	id := expr.ID()
	if val, ok := probe.Enter(id); ok {
		probe.CachedResult(id, val)
		return val
	}
	start := time.Now()
	result := e.withPosition(expr, e.evalCore(expr, env))
	switch result.(type) {
	case *TailCall, *ReturnValue:
	default:
		probe.Return(id, result, time.Since(start), isError(result))
	}
	return result
}

// withPosition backfills source coordinates on fresh error values.
func (e *Evaluator) withPosition(node ast.Node, result Object) Object {
	if err, ok := result.(*Error); ok && err.Line == 0 {
		if tp, ok := node.(ast.TokenProvider); ok {
			tok := tp.GetToken()
			err.Line = tok.Line
			err.Column = tok.Column
		}
	}
	return result
}

func (e *Evaluator) evalCore(node ast.Node, env *Environment) Object {
	switch node := node.(type) {
	case *ast.Program:
		return e.evalProgram(node, env)
	case *ast.ExpressionStatement:
		return e.Eval(node.Expression, env)
	case *ast.BlockStatement:
		return e.evalBlockStatement(node, env)
	case *ast.LetStatement:
		val := e.Eval(node.Value, env)
		if isError(val) {
			return val
		}
		env.Set(node.Name.Value, val)
		return NIL
	case *ast.FunctionStatement:
		return e.evalFunctionStatement(node, env)
	case *ast.ReturnStatement:
		if node.Value == nil {
			return &ReturnValue{Value: NIL}
		}
		val := e.Eval(node.Value, env)
		if isError(val) {
			return val
		}
		return &ReturnValue{Value: val}

	case *ast.IntegerLiteral:
		return &Integer{Value: node.Value}
	case *ast.FloatLiteral:
		return &Float{Value: node.Value}
	case *ast.StringLiteral:
		return &String{Value: node.Value}
	case *ast.BooleanLiteral:
		return nativeBool(node.Value)
	case *ast.NilLiteral:
		return NIL
	case *ast.Identifier:
		return e.evalIdentifier(node, env)
	case *ast.ListLiteral:
		elements := e.evalExpressions(node.Elements, env)
		if len(elements) == 1 && isError(elements[0]) {
			return elements[0]
		}
		return &List{Elements: elements}
	case *ast.RecordLiteral:
		return e.evalRecordLiteral(node, env)
	case *ast.FunctionLiteral:
		return &Function{
			Parameters: node.Parameters,
			Body:       node.Body,
			Env:        env,
			DeclID:     node.ID(),
			Line:       node.Token.Line,
			Column:     node.Token.Column,
		}

	case *ast.PrefixExpression:
		right := e.Eval(node.Right, env)
		if isError(right) {
			return right
		}
		return evalPrefixExpression(node.Operator, right)
	case *ast.InfixExpression:
		return e.evalInfixNode(node, env)
	case *ast.IfExpression:
		return e.evalIfExpression(node, env)
	case *ast.IndexExpression:
		return e.evalIndexExpression(node, env)
	case *ast.MemberExpression:
		return e.evalMemberExpression(node, env)
	case *ast.CallExpression:
		return e.evalCallExpression(node, env)
	}
	return newError("unknown node type: %T", node)
}

func (e *Evaluator) evalProgram(program *ast.Program, env *Environment) Object {
	var result Object = NIL
	for _, stmt := range program.Statements {
		result = e.Eval(stmt, env)
		switch result := result.(type) {
		case *ReturnValue:
			return result.Value
		case *Error:
			return result
		}
	}
	return result
}

func (e *Evaluator) evalBlockStatement(block *ast.BlockStatement, env *Environment) Object {
	var result Object = NIL
	for _, stmt := range block.Statements {
		result = e.Eval(stmt, env)
		if result != nil {
			switch result.Type() {
			case RETURN_VALUE_OBJ, ERROR_OBJ, TAIL_CALL_OBJ:
				return result
			}
		}
	}
	return result
}

func (e *Evaluator) evalFunctionStatement(node *ast.FunctionStatement, env *Environment) Object {
	params := node.Parameters
	if node.Receiver != nil {
		params = append([]*ast.Parameter{node.Receiver}, node.Parameters...)
	}
	fn := &Function{
		Name:       node.Name.Value,
		Parameters: params,
		Body:       node.Body,
		Env:        env,
		DeclID:     node.Name.ID(),
		Line:       node.Token.Line,
		Column:     node.Token.Column,
	}
	if node.Receiver != nil {
		// Extension method: installs into the method table instead of the
		// lexical scope, invalidating cached call sites.
		e.Registry.Register(node.Name.Value, dispatch.TypeKey(node.Receiver.TypeName), fn)
		return NIL
	}
	env.Set(node.Name.Value, fn)
	return NIL
}

func (e *Evaluator) evalIdentifier(node *ast.Identifier, env *Environment) Object {
	if val, ok := env.Get(node.Value); ok {
		return val
	}
	if builtin, ok := Builtins[node.Value]; ok {
		return builtin
	}
	return newError("identifier not found: %s", node.Value)
}

func (e *Evaluator) evalExpressions(exprs []ast.Expression, env *Environment) []Object {
	result := make([]Object, 0, len(exprs))
	for _, expr := range exprs {
		evaluated := e.Eval(expr, env)
		if isError(evaluated) {
			return []Object{evaluated}
		}
		result = append(result, evaluated)
	}
	return result
}

func (e *Evaluator) evalRecordLiteral(node *ast.RecordLiteral, env *Environment) Object {
	fields := make(map[string]Object, len(node.Fields))
	order := make([]string, 0, len(node.Fields))
	for _, field := range node.Fields {
		val := e.Eval(field.Value, env)
		if isError(val) {
			return val
		}
		if _, seen := fields[field.Key]; !seen {
			order = append(order, field.Key)
		}
		fields[field.Key] = val
	}
	return &Record{Fields: fields, Order: order}
}

func (e *Evaluator) evalInfixNode(node *ast.InfixExpression, env *Environment) Object {
	// && and || short-circuit, so the right side is only evaluated on demand.
	if node.Operator == "&&" || node.Operator == "||" {
		left := e.Eval(node.Left, env)
		if isError(left) {
			return left
		}
		if node.Operator == "&&" && !isTruthy(left) {
			return FALSE
		}
		if node.Operator == "||" && isTruthy(left) {
			return TRUE
		}
		right := e.Eval(node.Right, env)
		if isError(right) {
			return right
		}
		return nativeBool(isTruthy(right))
	}
	left := e.Eval(node.Left, env)
	if isError(left) {
		return left
	}
	right := e.Eval(node.Right, env)
	if isError(right) {
		return right
	}
	return evalInfixExpression(node.Operator, left, right)
}

func (e *Evaluator) evalIfExpression(node *ast.IfExpression, env *Environment) Object {
	condition := e.Eval(node.Condition, env)
	if isError(condition) {
		return condition
	}
	if isTruthy(condition) {
		return e.Eval(node.Consequence, env)
	}
	if node.Alternative != nil {
		return e.Eval(node.Alternative, env)
	}
	return NIL
}

func (e *Evaluator) evalIndexExpression(node *ast.IndexExpression, env *Environment) Object {
	left := e.Eval(node.Left, env)
	if isError(left) {
		return left
	}
	index := e.Eval(node.Index, env)
	if isError(index) {
		return index
	}
	switch left := left.(type) {
	case *List:
		idx, ok := index.(*Integer)
		if !ok {
			return newError("list index must be Int, got %s", index.TypeKey())
		}
		if idx.Value < 0 || idx.Value >= int64(len(left.Elements)) {
			return newError("list index out of range: %d (length %d)", idx.Value, len(left.Elements))
		}
		return left.Elements[idx.Value]
	case *String:
		idx, ok := index.(*Integer)
		if !ok {
			return newError("string index must be Int, got %s", index.TypeKey())
		}
		runes := []rune(left.Value)
		if idx.Value < 0 || idx.Value >= int64(len(runes)) {
			return newError("string index out of range: %d (length %d)", idx.Value, len(runes))
		}
		return &String{Value: string(runes[idx.Value])}
	case *Record:
		key, ok := index.(*String)
		if !ok {
			return newError("record index must be String, got %s", index.TypeKey())
		}
		if val, found := left.Fields[key.Value]; found {
			return val
		}
		return NIL
	}
	return newError("index operator not supported on %s", left.TypeKey())
}

// evalMemberExpression resolves obj.prop: record fields win over methods;
// anything else goes through the dispatch cache keyed by this site's
// expression id.
func (e *Evaluator) evalMemberExpression(node *ast.MemberExpression, env *Environment) Object {
	receiver := e.Eval(node.Object, env)
	if isError(receiver) {
		return receiver
	}
	name := node.Property.Value
	if record, ok := receiver.(*Record); ok {
		if val, found := record.Fields[name]; found {
			return val
		}
	}
	method, err := e.Dispatch.Resolve(node.ID(), name, receiver.TypeKey())
	if err != nil {
		return e.methodNotFound(err, receiver, name)
	}
	return &BoundMethod{Receiver: receiver, Method: method, Name: name}
}

// methodNotFound converts the typed dispatch failure into a data-flow error.
func (e *Evaluator) methodNotFound(err error, receiver Object, name string) *Error {
	if mnf, ok := err.(*dispatch.MethodNotFoundError); ok {
		errObj := newError("no method %q on %s", mnf.Symbol, mnf.Receiver)
		errObj.StackTrace = e.snapshotStack()
		return errObj
	}
	errObj := newError("method resolution failed for %s.%s: %s", receiver.TypeKey(), name, err)
	errObj.StackTrace = e.snapshotStack()
	return errObj
}

func nativeBool(v bool) *Boolean {
	if v {
		return TRUE
	}
	return FALSE
}

func isTruthy(obj Object) bool {
	switch obj {
	case NIL, FALSE:
		return false
	case TRUE:
		return true
	}
	switch obj := obj.(type) {
	case *Boolean:
		return obj.Value
	case *Nil:
		return false
	}
	return true
}
