package evaluator

import "math"

func evalPrefixExpression(operator string, right Object) Object {
	switch operator {
	case "!":
		return nativeBool(!isTruthy(right))
	case "-":
		switch right := right.(type) {
		case *Integer:
			return &Integer{Value: -right.Value}
		case *Float:
			return &Float{Value: -right.Value}
		}
		return newError("unknown operator: -%s", right.TypeKey())
	}
	return newError("unknown operator: %s%s", operator, right.TypeKey())
}

func evalInfixExpression(operator string, left, right Object) Object {
	switch {
	case left.Type() == INTEGER_OBJ && right.Type() == INTEGER_OBJ:
		return evalIntegerInfix(operator, left.(*Integer), right.(*Integer))
	case isNumeric(left) && isNumeric(right):
		return evalFloatInfix(operator, toFloat(left), toFloat(right))
	case left.Type() == STRING_OBJ && right.Type() == STRING_OBJ:
		return evalStringInfix(operator, left.(*String), right.(*String))
	case operator == "++" && left.Type() == LIST_OBJ && right.Type() == LIST_OBJ:
		l := left.(*List)
		r := right.(*List)
		elements := make([]Object, 0, len(l.Elements)+len(r.Elements))
		elements = append(elements, l.Elements...)
		elements = append(elements, r.Elements...)
		return &List{Elements: elements}
	case operator == "==":
		return nativeBool(objectEquals(left, right))
	case operator == "!=":
		return nativeBool(!objectEquals(left, right))
	case left.Type() != right.Type():
		return newError("type mismatch: %s %s %s", left.TypeKey(), operator, right.TypeKey())
	}
	return newError("unknown operator: %s %s %s", left.TypeKey(), operator, right.TypeKey())
}

func evalIntegerInfix(operator string, left, right *Integer) Object {
	switch operator {
	case "+":
		return &Integer{Value: left.Value + right.Value}
	case "-":
		return &Integer{Value: left.Value - right.Value}
	case "*":
		return &Integer{Value: left.Value * right.Value}
	case "/":
		if right.Value == 0 {
			return newError("division by zero")
		}
		return &Integer{Value: left.Value / right.Value}
	case "%":
		if right.Value == 0 {
			return newError("division by zero")
		}
		return &Integer{Value: left.Value % right.Value}
	case "<":
		return nativeBool(left.Value < right.Value)
	case ">":
		return nativeBool(left.Value > right.Value)
	case "<=":
		return nativeBool(left.Value <= right.Value)
	case ">=":
		return nativeBool(left.Value >= right.Value)
	case "==":
		return nativeBool(left.Value == right.Value)
	case "!=":
		return nativeBool(left.Value != right.Value)
	}
	return newError("unknown operator: Int %s Int", operator)
}

func evalFloatInfix(operator string, left, right float64) Object {
	switch operator {
	case "+":
		return &Float{Value: left + right}
	case "-":
		return &Float{Value: left - right}
	case "*":
		return &Float{Value: left * right}
	case "/":
		if right == 0 {
			return newError("division by zero")
		}
		return &Float{Value: left / right}
	case "%":
		if right == 0 {
			return newError("division by zero")
		}
		return &Float{Value: math.Mod(left, right)}
	case "<":
		return nativeBool(left < right)
	case ">":
		return nativeBool(left > right)
	case "<=":
		return nativeBool(left <= right)
	case ">=":
		return nativeBool(left >= right)
	case "==":
		return nativeBool(left == right)
	case "!=":
		return nativeBool(left != right)
	}
	return newError("unknown operator: Float %s Float", operator)
}

func evalStringInfix(operator string, left, right *String) Object {
	switch operator {
	case "++":
		return &String{Value: left.Value + right.Value}
	case "==":
		return nativeBool(left.Value == right.Value)
	case "!=":
		return nativeBool(left.Value != right.Value)
	case "<":
		return nativeBool(left.Value < right.Value)
	case ">":
		return nativeBool(left.Value > right.Value)
	case "<=":
		return nativeBool(left.Value <= right.Value)
	case ">=":
		return nativeBool(left.Value >= right.Value)
	}
	return newError("unknown operator: String %s String", operator)
}

func isNumeric(obj Object) bool {
	return obj.Type() == INTEGER_OBJ || obj.Type() == FLOAT_OBJ
}

func toFloat(obj Object) float64 {
	switch obj := obj.(type) {
	case *Integer:
		return float64(obj.Value)
	case *Float:
		return obj.Value
	}
	return 0
}

func objectEquals(left, right Object) bool {
	switch left := left.(type) {
	case *Integer:
		if r, ok := right.(*Integer); ok {
			return left.Value == r.Value
		}
		if r, ok := right.(*Float); ok {
			return float64(left.Value) == r.Value
		}
	case *Float:
		if r, ok := right.(*Float); ok {
			return left.Value == r.Value
		}
		if r, ok := right.(*Integer); ok {
			return left.Value == float64(r.Value)
		}
	case *String:
		if r, ok := right.(*String); ok {
			return left.Value == r.Value
		}
	case *Boolean:
		if r, ok := right.(*Boolean); ok {
			return left.Value == r.Value
		}
	case *Nil:
		_, ok := right.(*Nil)
		return ok
	case *List:
		r, ok := right.(*List)
		if !ok || len(left.Elements) != len(r.Elements) {
			return false
		}
		for i := range left.Elements {
			if !objectEquals(left.Elements[i], r.Elements[i]) {
				return false
			}
		}
		return true
	case *Record:
		r, ok := right.(*Record)
		if !ok || len(left.Fields) != len(r.Fields) {
			return false
		}
		for k, v := range left.Fields {
			rv, found := r.Fields[k]
			if !found || !objectEquals(v, rv) {
				return false
			}
		}
		return true
	}
	return left == right
}
