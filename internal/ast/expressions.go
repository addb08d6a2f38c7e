package ast

import (
	"strings"

	"github.com/lumelang/lume/internal/token"
)

// Identifier refers to a bound name.
type Identifier struct {
	exprID
	Token token.Token
	Value string
}

func (i *Identifier) expressionNode()      {}
func (i *Identifier) TokenLiteral() string { return i.Token.Literal }
func (i *Identifier) GetToken() token.Token {
	if i == nil {
		return token.Token{}
	}
	return i.Token
}
func (i *Identifier) String() string { return i.Value }

type IntegerLiteral struct {
	exprID
	Token token.Token
	Value int64
}

func (il *IntegerLiteral) expressionNode()       {}
func (il *IntegerLiteral) TokenLiteral() string  { return il.Token.Literal }
func (il *IntegerLiteral) GetToken() token.Token { return il.Token }
func (il *IntegerLiteral) String() string        { return il.Token.Literal }

type FloatLiteral struct {
	exprID
	Token token.Token
	Value float64
}

func (fl *FloatLiteral) expressionNode()       {}
func (fl *FloatLiteral) TokenLiteral() string  { return fl.Token.Literal }
func (fl *FloatLiteral) GetToken() token.Token { return fl.Token }
func (fl *FloatLiteral) String() string        { return fl.Token.Literal }

type StringLiteral struct {
	exprID
	Token token.Token
	Value string
}

func (sl *StringLiteral) expressionNode()       {}
func (sl *StringLiteral) TokenLiteral() string  { return sl.Token.Literal }
func (sl *StringLiteral) GetToken() token.Token { return sl.Token }
func (sl *StringLiteral) String() string        { return "\"" + sl.Value + "\"" }

type BooleanLiteral struct {
	exprID
	Token token.Token
	Value bool
}

func (bl *BooleanLiteral) expressionNode()       {}
func (bl *BooleanLiteral) TokenLiteral() string  { return bl.Token.Literal }
func (bl *BooleanLiteral) GetToken() token.Token { return bl.Token }
func (bl *BooleanLiteral) String() string        { return bl.Token.Literal }

type NilLiteral struct {
	exprID
	Token token.Token
}

func (nl *NilLiteral) expressionNode()       {}
func (nl *NilLiteral) TokenLiteral() string  { return nl.Token.Literal }
func (nl *NilLiteral) GetToken() token.Token { return nl.Token }
func (nl *NilLiteral) String() string        { return "nil" }

// ListLiteral represents [a, b, c].
type ListLiteral struct {
	exprID
	Token    token.Token // the '[' token
	Elements []Expression
}

func (ll *ListLiteral) expressionNode()       {}
func (ll *ListLiteral) TokenLiteral() string  { return ll.Token.Literal }
func (ll *ListLiteral) GetToken() token.Token { return ll.Token }
func (ll *ListLiteral) String() string {
	elems := make([]string, len(ll.Elements))
	for i, el := range ll.Elements {
		elems[i] = el.String()
	}
	return "[" + strings.Join(elems, ", ") + "]"
}

// RecordField is one key: value pair of a record literal.
type RecordField struct {
	Key   string
	Value Expression
}

// RecordLiteral represents {x: 1, y: 2}. Field order is preserved.
type RecordLiteral struct {
	exprID
	Token  token.Token // the '{' token
	Fields []*RecordField
}

func (rl *RecordLiteral) expressionNode()       {}
func (rl *RecordLiteral) TokenLiteral() string  { return rl.Token.Literal }
func (rl *RecordLiteral) GetToken() token.Token { return rl.Token }
func (rl *RecordLiteral) String() string {
	fields := make([]string, len(rl.Fields))
	for i, f := range rl.Fields {
		fields[i] = f.Key + ": " + f.Value.String()
	}
	return "{" + strings.Join(fields, ", ") + "}"
}

type PrefixExpression struct {
	exprID
	Token    token.Token // the operator token
	Operator string
	Right    Expression
}

func (pe *PrefixExpression) expressionNode()       {}
func (pe *PrefixExpression) TokenLiteral() string  { return pe.Token.Literal }
func (pe *PrefixExpression) GetToken() token.Token { return pe.Token }
func (pe *PrefixExpression) String() string {
	return "(" + pe.Operator + pe.Right.String() + ")"
}

type InfixExpression struct {
	exprID
	Token    token.Token // the operator token
	Operator string
	Left     Expression
	Right    Expression
}

func (ie *InfixExpression) expressionNode()       {}
func (ie *InfixExpression) TokenLiteral() string  { return ie.Token.Literal }
func (ie *InfixExpression) GetToken() token.Token { return ie.Token }
func (ie *InfixExpression) String() string {
	return "(" + ie.Left.String() + " " + ie.Operator + " " + ie.Right.String() + ")"
}

// IfExpression is an expression: if (cond) { ... } else { ... }.
// Alternative may be nil, in which case the else value is nil.
type IfExpression struct {
	exprID
	Token       token.Token // the 'if' token
	Condition   Expression
	Consequence *BlockStatement
	Alternative *BlockStatement
}

func (ie *IfExpression) expressionNode()       {}
func (ie *IfExpression) TokenLiteral() string  { return ie.Token.Literal }
func (ie *IfExpression) GetToken() token.Token { return ie.Token }
func (ie *IfExpression) String() string {
	out := "if " + ie.Condition.String() + " " + ie.Consequence.String()
	if ie.Alternative != nil {
		out += " else " + ie.Alternative.String()
	}
	return out
}

// FunctionLiteral is a lambda: fn(x, y) { ... }
type FunctionLiteral struct {
	exprID
	Token      token.Token // the 'fn' token
	Parameters []*Parameter
	Body       *BlockStatement
}

func (fl *FunctionLiteral) expressionNode()       {}
func (fl *FunctionLiteral) TokenLiteral() string  { return fl.Token.Literal }
func (fl *FunctionLiteral) GetToken() token.Token { return fl.Token }
func (fl *FunctionLiteral) String() string {
	params := make([]string, len(fl.Parameters))
	for i, p := range fl.Parameters {
		params[i] = p.String()
	}
	return "fn(" + strings.Join(params, ", ") + ") " + fl.Body.String()
}

// CallExpression represents f(a, b) or recv.name(a, b) when Function is a
// MemberExpression. IsTail is set by the analyzer when the call sits in tail
// position of a function body.
type CallExpression struct {
	exprID
	Token     token.Token // the '(' token
	Function  Expression
	Arguments []Expression
	IsTail    bool
}

func (ce *CallExpression) expressionNode()       {}
func (ce *CallExpression) TokenLiteral() string  { return ce.Token.Literal }
func (ce *CallExpression) GetToken() token.Token { return ce.Token }
func (ce *CallExpression) String() string {
	args := make([]string, len(ce.Arguments))
	for i, a := range ce.Arguments {
		args[i] = a.String()
	}
	return ce.Function.String() + "(" + strings.Join(args, ", ") + ")"
}

// MemberExpression represents recv.name. When it is the callee of a
// CallExpression the name is resolved through the dispatch cache against the
// receiver's runtime type; otherwise it is record field access.
type MemberExpression struct {
	exprID
	Token    token.Token // the '.' token
	Object   Expression
	Property *Identifier
}

func (me *MemberExpression) expressionNode()       {}
func (me *MemberExpression) TokenLiteral() string  { return me.Token.Literal }
func (me *MemberExpression) GetToken() token.Token { return me.Token }
func (me *MemberExpression) String() string {
	return me.Object.String() + "." + me.Property.Value
}

// IndexExpression represents xs[i].
type IndexExpression struct {
	exprID
	Token token.Token // the '[' token
	Left  Expression
	Index Expression
}

func (ie *IndexExpression) expressionNode()       {}
func (ie *IndexExpression) TokenLiteral() string  { return ie.Token.Literal }
func (ie *IndexExpression) GetToken() token.Token { return ie.Token }
func (ie *IndexExpression) String() string {
	return "(" + ie.Left.String() + "[" + ie.Index.String() + "])"
}
