package evaluator

import (
	"fmt"
	"strings"
)

// Builtins are the global functions available without import.
var Builtins map[string]*Builtin

func init() {
	Builtins = map[string]*Builtin{
		"println": {Name: "println", Arity: -1, Fn: builtinPrintln},
		"print":   {Name: "print", Arity: -1, Fn: builtinPrint},
		"show":    {Name: "show", Arity: 1, Fn: builtinShow},
		"length":  {Name: "length", Arity: 1, Fn: builtinLength},
		"range":   {Name: "range", Arity: 2, Fn: builtinRange},
	}
}

func builtinPrintln(e *Evaluator, args ...Object) Object {
	builtinPrint(e, args...)
	fmt.Fprintln(e.Out)
	return NIL
}

func builtinPrint(e *Evaluator, args ...Object) Object {
	parts := make([]string, len(args))
	for i, arg := range args {
		parts[i] = arg.Inspect()
	}
	fmt.Fprint(e.Out, strings.Join(parts, " "))
	return NIL
}

func builtinShow(e *Evaluator, args ...Object) Object {
	return &String{Value: args[0].Inspect()}
}

func builtinLength(e *Evaluator, args ...Object) Object {
	switch arg := args[0].(type) {
	case *String:
		return &Integer{Value: int64(len([]rune(arg.Value)))}
	case *List:
		return &Integer{Value: int64(len(arg.Elements))}
	case *Record:
		return &Integer{Value: int64(len(arg.Fields))}
	}
	return newError("length not supported on %s", args[0].TypeKey())
}

func builtinRange(e *Evaluator, args ...Object) Object {
	from, ok := args[0].(*Integer)
	if !ok {
		return newError("range bounds must be Int, got %s", args[0].TypeKey())
	}
	to, ok := args[1].(*Integer)
	if !ok {
		return newError("range bounds must be Int, got %s", args[1].TypeKey())
	}
	if to.Value < from.Value {
		return &List{Elements: []Object{}}
	}
	elements := make([]Object, 0, to.Value-from.Value+1)
	for i := from.Value; i <= to.Value; i++ {
		elements = append(elements, &Integer{Value: i})
	}
	return &List{Elements: elements}
}

// registerBuiltinMethods seeds the method table. Receivers arrive as the
// first argument, matching how extension methods bind their receiver
// parameter.
func registerBuiltinMethods(r *MethodRegistry) {
	method := func(name string, arity int, fn BuiltinFunction) *Builtin {
		return &Builtin{Name: name, Arity: arity, Fn: fn}
	}

	r.Register("show", AnyReceiver, method("show", 1, func(e *Evaluator, args ...Object) Object {
		return &String{Value: args[0].Inspect()}
	}))
	r.Register("type", AnyReceiver, method("type", 1, func(e *Evaluator, args ...Object) Object {
		return &String{Value: string(args[0].TypeKey())}
	}))

	r.Register("abs", TypeNumber, method("abs", 1, func(e *Evaluator, args ...Object) Object {
		switch n := args[0].(type) {
		case *Integer:
			if n.Value < 0 {
				return &Integer{Value: -n.Value}
			}
			return n
		case *Float:
			if n.Value < 0 {
				return &Float{Value: -n.Value}
			}
			return n
		}
		return newError("abs not supported on %s", args[0].TypeKey())
	}))
	r.Register("toFloat", TypeNumber, method("toFloat", 1, func(e *Evaluator, args ...Object) Object {
		return &Float{Value: toFloat(args[0])}
	}))

	r.Register("length", TypeList, method("length", 1, func(e *Evaluator, args ...Object) Object {
		return &Integer{Value: int64(len(args[0].(*List).Elements))}
	}))
	r.Register("head", TypeList, method("head", 1, func(e *Evaluator, args ...Object) Object {
		list := args[0].(*List)
		if len(list.Elements) == 0 {
			return NIL
		}
		return list.Elements[0]
	}))
	r.Register("tail", TypeList, method("tail", 1, func(e *Evaluator, args ...Object) Object {
		list := args[0].(*List)
		if len(list.Elements) == 0 {
			return &List{Elements: []Object{}}
		}
		return &List{Elements: append([]Object(nil), list.Elements[1:]...)}
	}))
	r.Register("reverse", TypeList, method("reverse", 1, func(e *Evaluator, args ...Object) Object {
		list := args[0].(*List)
		elements := make([]Object, len(list.Elements))
		for i, el := range list.Elements {
			elements[len(elements)-1-i] = el
		}
		return &List{Elements: elements}
	}))
	r.Register("push", TypeList, method("push", 2, func(e *Evaluator, args ...Object) Object {
		list := args[0].(*List)
		elements := make([]Object, 0, len(list.Elements)+1)
		elements = append(elements, list.Elements...)
		elements = append(elements, args[1])
		return &List{Elements: elements}
	}))
	r.Register("sum", TypeList, method("sum", 1, func(e *Evaluator, args ...Object) Object {
		list := args[0].(*List)
		var intSum int64
		var floatSum float64
		sawFloat := false
		for _, el := range list.Elements {
			switch n := el.(type) {
			case *Integer:
				intSum += n.Value
			case *Float:
				sawFloat = true
				floatSum += n.Value
			default:
				return newError("sum requires numeric elements, got %s", el.TypeKey())
			}
		}
		if sawFloat {
			return &Float{Value: floatSum + float64(intSum)}
		}
		return &Integer{Value: intSum}
	}))
	r.Register("map", TypeList, method("map", 2, func(e *Evaluator, args ...Object) Object {
		list := args[0].(*List)
		elements := make([]Object, 0, len(list.Elements))
		for _, el := range list.Elements {
			mapped := e.ApplyFunction(args[1], []Object{el})
			if isError(mapped) {
				return mapped
			}
			elements = append(elements, unwrapReturnValue(mapped))
		}
		return &List{Elements: elements}
	}))
	r.Register("filter", TypeList, method("filter", 2, func(e *Evaluator, args ...Object) Object {
		list := args[0].(*List)
		elements := make([]Object, 0, len(list.Elements))
		for _, el := range list.Elements {
			keep := e.ApplyFunction(args[1], []Object{el})
			if isError(keep) {
				return keep
			}
			if isTruthy(unwrapReturnValue(keep)) {
				elements = append(elements, el)
			}
		}
		return &List{Elements: elements}
	}))

	r.Register("length", TypeString, method("length", 1, func(e *Evaluator, args ...Object) Object {
		return &Integer{Value: int64(len([]rune(args[0].(*String).Value)))}
	}))
	r.Register("upper", TypeString, method("upper", 1, func(e *Evaluator, args ...Object) Object {
		return &String{Value: strings.ToUpper(args[0].(*String).Value)}
	}))
	r.Register("lower", TypeString, method("lower", 1, func(e *Evaluator, args ...Object) Object {
		return &String{Value: strings.ToLower(args[0].(*String).Value)}
	}))
	r.Register("contains", TypeString, method("contains", 2, func(e *Evaluator, args ...Object) Object {
		needle, ok := args[1].(*String)
		if !ok {
			return newError("contains expects a String argument, got %s", args[1].TypeKey())
		}
		return nativeBool(strings.Contains(args[0].(*String).Value, needle.Value))
	}))
	r.Register("reverse", TypeString, method("reverse", 1, func(e *Evaluator, args ...Object) Object {
		runes := []rune(args[0].(*String).Value)
		for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
			runes[i], runes[j] = runes[j], runes[i]
		}
		return &String{Value: string(runes)}
	}))
}
