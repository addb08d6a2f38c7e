package evaluator

import (
	"github.com/lumelang/lume/internal/ast"
)

func (e *Evaluator) evalCallExpression(node *ast.CallExpression, env *Environment) Object {
	fn := e.resolveCallee(node, env)
	if isError(fn) {
		return fn
	}
	args := e.evalExpressions(node.Arguments, env)
	if len(args) == 1 && isError(args[0]) {
		return args[0]
	}

	if e.Observers != nil {
		if probe := e.Observers.Snapshot(); probe.Active() {
			if val, ok := probe.Call(node.ID(), fn, args); ok {
				return val
			}
		}
	}

	tok := node.GetToken()
	if node.IsTail {
		// The enclosing ApplyFunction trampoline unwinds this instead of
		// growing the Go stack.
		return &TailCall{
			Func:   fn,
			Args:   args,
			Name:   callableName(fn),
			File:   e.CurrentFile,
			Line:   tok.Line,
			Column: tok.Column,
		}
	}

	e.PushCall(callableName(fn), e.CurrentFile, tok.Line, tok.Column)
	result := e.ApplyFunction(fn, args)
	e.PopCall()
	return result
}

// resolveCallee evaluates the callee position. Member callees resolve through
// the member path so dispatch caching and record-field precedence apply.
func (e *Evaluator) resolveCallee(node *ast.CallExpression, env *Environment) Object {
	return e.Eval(node.Function, env)
}

// ApplyFunction applies a callable to already-evaluated arguments. Exact-arity
// user functions enter the trampoline loop; undersaturation yields a partial
// application and oversaturation applies the declared arity first, then the
// remainder to whatever came back.
func (e *Evaluator) ApplyFunction(fn Object, args []Object) Object {
	switch fn := fn.(type) {
	case *Function:
		arity := len(fn.Parameters)
		if len(args) < arity {
			if len(args) == 0 && arity > 0 {
				return newError("wrong number of arguments: expected %d, got 0", arity)
			}
			return &PartialApplication{Callable: fn, AppliedArgs: args, Remaining: arity - len(args)}
		}
		if len(args) > arity {
			head := e.ApplyFunction(fn, args[:arity])
			if isError(head) {
				return head
			}
			return e.ApplyFunction(head, args[arity:])
		}
		return e.trampoline(fn, args)

	case *Builtin:
		if fn.Arity >= 0 {
			if len(args) < fn.Arity {
				return newError("wrong number of arguments to %s: expected %d, got %d", fn.Name, fn.Arity, len(args))
			}
			if len(args) > fn.Arity {
				// Same split as user functions: saturate the declared arity,
				// then apply the remainder to whatever came back.
				head := fn.Fn(e, args[:fn.Arity]...)
				if isError(head) {
					return head
				}
				return e.ApplyFunction(head, args[fn.Arity:])
			}
		}
		return fn.Fn(e, args...)

	case *BoundMethod:
		withReceiver := make([]Object, 0, len(args)+1)
		withReceiver = append(withReceiver, fn.Receiver)
		withReceiver = append(withReceiver, args...)
		return e.ApplyFunction(fn.Method, withReceiver)

	case *PartialApplication:
		combined := make([]Object, 0, len(fn.AppliedArgs)+len(args))
		combined = append(combined, fn.AppliedArgs...)
		combined = append(combined, args...)
		return e.ApplyFunction(fn.Callable, combined)

	case *Error:
		return fn
	}
	return newError("not a function: %s", fn.TypeKey())
}

// trampoline runs an exact-arity function body, then keeps re-entering as
// long as the body completes with a tail call to another exact-arity
// function. Each bounce reuses the flat loop, so tail recursion runs in
// constant Go stack space.
func (e *Evaluator) trampoline(fn *Function, args []Object) Object {
	body := fn.Body
	env := bindParameters(fn, args)
	for {
		result := e.Eval(body, env)
		result = unwrapReturnValue(result)

		tc, ok := result.(*TailCall)
		if !ok {
			if err, ok := result.(*Error); ok && err.StackTrace == nil {
				err.StackTrace = e.snapshotStack()
			}
			return result
		}

		e.replaceCall(CallFrame{Name: tc.Name, File: tc.File, Line: tc.Line, Column: tc.Column})
		next, isFn := tc.Func.(*Function)
		if !isFn || len(tc.Args) != len(next.Parameters) {
			// Builtins, partials, bound methods and mis-saturated calls go
			// back through the general path; only exact-arity user functions
			// stay on the trampoline.
			res := e.ApplyFunction(tc.Func, tc.Args)
			if tcNext, again := res.(*TailCall); again {
				res = e.ApplyFunction(tcNext.Func, tcNext.Args)
			}
			return unwrapReturnValue(res)
		}
		body = next.Body
		env = bindParameters(next, tc.Args)
	}
}

func bindParameters(fn *Function, args []Object) *Environment {
	env := NewEnclosedEnvironment(fn.Env)
	for i, param := range fn.Parameters {
		env.Set(param.Name.Value, args[i])
	}
	if fn.Name != "" {
		// Self-reference for recursion from anonymous contexts.
		if _, exists := env.Get(fn.Name); !exists {
			env.Set(fn.Name, fn)
		}
	}
	return env
}

func unwrapReturnValue(obj Object) Object {
	if rv, ok := obj.(*ReturnValue); ok {
		return rv.Value
	}
	return obj
}

func callableName(fn Object) string {
	switch fn := fn.(type) {
	case *Function:
		if fn.Name != "" {
			return fn.Name
		}
		return "<anonymous>"
	case *Builtin:
		return fn.Name
	case *BoundMethod:
		return fn.Inspect()
	case *PartialApplication:
		return callableName(fn.Callable)
	}
	return "<value>"
}
