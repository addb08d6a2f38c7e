package evaluator

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/lumelang/lume/internal/dispatch"
)

type ObjectType string

const (
	INTEGER_OBJ      = "INTEGER"
	FLOAT_OBJ        = "FLOAT"
	BOOLEAN_OBJ      = "BOOLEAN"
	STRING_OBJ       = "STRING"
	NIL_OBJ          = "NIL"
	LIST_OBJ         = "LIST"
	RECORD_OBJ       = "RECORD"
	ERROR_OBJ        = "ERROR"
	FUNCTION_OBJ     = "FUNCTION"
	BUILTIN_OBJ      = "BUILTIN"
	BOUND_METHOD_OBJ = "BOUND_METHOD"
	PARTIAL_APP_OBJ  = "PARTIAL_APPLICATION"
	RETURN_VALUE_OBJ = "RETURN_VALUE"
	TAIL_CALL_OBJ    = "TAIL_CALL"
)

// Dispatch type keys (canonical runtime type names).
const (
	TypeInt      dispatch.TypeKey = "Int"
	TypeFloat    dispatch.TypeKey = "Float"
	TypeNumber   dispatch.TypeKey = "Number"
	TypeBool     dispatch.TypeKey = "Bool"
	TypeString   dispatch.TypeKey = "String"
	TypeList     dispatch.TypeKey = "List"
	TypeRecord   dispatch.TypeKey = "Record"
	TypeNil      dispatch.TypeKey = "Nil"
	TypeFunction dispatch.TypeKey = "Function"
	TypeError    dispatch.TypeKey = "Error"

	// AnyReceiver registers a method as the universal fallback.
	AnyReceiver = dispatch.AnyType
)

type Object interface {
	Type() ObjectType
	Inspect() string
	// TypeKey returns the runtime dispatch type of the object.
	TypeKey() dispatch.TypeKey
}

type Integer struct {
	Value int64
}

func (i *Integer) Type() ObjectType           { return INTEGER_OBJ }
func (i *Integer) Inspect() string            { return strconv.FormatInt(i.Value, 10) }
func (i *Integer) TypeKey() dispatch.TypeKey  { return TypeInt }

type Float struct {
	Value float64
}

func (f *Float) Type() ObjectType          { return FLOAT_OBJ }
func (f *Float) Inspect() string           { return strconv.FormatFloat(f.Value, 'g', -1, 64) }
func (f *Float) TypeKey() dispatch.TypeKey { return TypeFloat }

type Boolean struct {
	Value bool
}

func (b *Boolean) Type() ObjectType          { return BOOLEAN_OBJ }
func (b *Boolean) Inspect() string           { return strconv.FormatBool(b.Value) }
func (b *Boolean) TypeKey() dispatch.TypeKey { return TypeBool }

type String struct {
	Value string
}

func (s *String) Type() ObjectType          { return STRING_OBJ }
func (s *String) Inspect() string           { return s.Value }
func (s *String) TypeKey() dispatch.TypeKey { return TypeString }

type Nil struct{}

func (n *Nil) Type() ObjectType          { return NIL_OBJ }
func (n *Nil) Inspect() string           { return "nil" }
func (n *Nil) TypeKey() dispatch.TypeKey { return TypeNil }

type List struct {
	Elements []Object
}

func (l *List) Type() ObjectType          { return LIST_OBJ }
func (l *List) TypeKey() dispatch.TypeKey { return TypeList }
func (l *List) Inspect() string {
	elems := make([]string, len(l.Elements))
	for i, el := range l.Elements {
		elems[i] = inspectQuoted(el)
	}
	return "[" + strings.Join(elems, ", ") + "]"
}

// Record is an immutable field bag. Order preserves literal field order for
// printing.
type Record struct {
	Fields map[string]Object
	Order  []string
}

func NewRecord(fields map[string]Object, order []string) *Record {
	if order == nil {
		order = make([]string, 0, len(fields))
		for k := range fields {
			order = append(order, k)
		}
		sort.Strings(order)
	}
	return &Record{Fields: fields, Order: order}
}

func (r *Record) Type() ObjectType          { return RECORD_OBJ }
func (r *Record) TypeKey() dispatch.TypeKey { return TypeRecord }
func (r *Record) Inspect() string {
	fields := make([]string, 0, len(r.Order))
	for _, k := range r.Order {
		fields = append(fields, k+": "+inspectQuoted(r.Fields[k]))
	}
	return "{" + strings.Join(fields, ", ") + "}"
}

// inspectQuoted renders nested strings with quotes so container output stays
// unambiguous.
func inspectQuoted(obj Object) string {
	if s, ok := obj.(*String); ok {
		return "\"" + s.Value + "\""
	}
	return obj.Inspect()
}

// CallFrame is one entry of the evaluator's call stack, reported in error
// stack traces.
type CallFrame struct {
	Name   string
	File   string
	Line   int
	Column int
}

// Error is a data-flow error value: failures travel through the program like
// any other value instead of unwinding the Go stack.
type Error struct {
	Message    string
	Line       int
	Column     int
	StackTrace []CallFrame
}

func (e *Error) Type() ObjectType          { return ERROR_OBJ }
func (e *Error) TypeKey() dispatch.TypeKey { return TypeError }
func (e *Error) Inspect() string {
	var out strings.Builder
	out.WriteString("ERROR: ")
	out.WriteString(e.Message)
	if e.Line > 0 {
		fmt.Fprintf(&out, " (line %d, column %d)", e.Line, e.Column)
	}
	for i := len(e.StackTrace) - 1; i >= 0; i-- {
		f := e.StackTrace[i]
		fmt.Fprintf(&out, "\n  at %s (%s:%d:%d)", f.Name, f.File, f.Line, f.Column)
	}
	return out.String()
}

// ReturnValue wraps a value travelling up from a return statement.
type ReturnValue struct {
	Value Object
}

func (rv *ReturnValue) Type() ObjectType          { return RETURN_VALUE_OBJ }
func (rv *ReturnValue) Inspect() string           { return rv.Value.Inspect() }
func (rv *ReturnValue) TypeKey() dispatch.TypeKey { return rv.Value.TypeKey() }
