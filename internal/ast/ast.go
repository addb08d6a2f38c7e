package ast

import (
	"strings"

	"github.com/lumelang/lume/internal/ident"
	"github.com/lumelang/lume/internal/token"
)

// TokenProvider is an interface for any AST node that can provide its primary
// token. Used for error reporting.
type TokenProvider interface {
	GetToken() token.Token
}

// Node is the base interface for all AST nodes.
type Node interface {
	TokenLiteral() string
	String() string
}

// Statement is a Node that represents a statement.
type Statement interface {
	Node
	statementNode()
	GetToken() token.Token
}

// Expression is a Node that represents an expression.
// Every expression carries a stable identity assigned after parsing;
// ident.Zero means no identity was assigned (e.g. synthetic nodes).
type Expression interface {
	Node
	expressionNode()
	GetToken() token.Token
	ID() ident.ID
	SetID(ident.ID)
}

// exprID is embedded by all expression nodes to hold the stable identity.
type exprID struct {
	id ident.ID
}

func (e *exprID) ID() ident.ID      { return e.id }
func (e *exprID) SetID(id ident.ID) { e.id = id }

// Program is the root node of every AST the parser produces.
type Program struct {
	File       string // source unit path
	Statements []Statement
}

func (p *Program) TokenLiteral() string {
	if len(p.Statements) > 0 {
		return p.Statements[0].TokenLiteral()
	}
	return ""
}

func (p *Program) String() string {
	var out strings.Builder
	for _, s := range p.Statements {
		out.WriteString(s.String())
		out.WriteString("\n")
	}
	return out.String()
}

// LetStatement represents a binding: let x = expr
type LetStatement struct {
	Token token.Token // the 'let' token
	Name  *Identifier
	Value Expression
}

func (ls *LetStatement) statementNode()       {}
func (ls *LetStatement) TokenLiteral() string { return ls.Token.Literal }
func (ls *LetStatement) GetToken() token.Token {
	if ls == nil {
		return token.Token{}
	}
	return ls.Token
}
func (ls *LetStatement) String() string {
	return "let " + ls.Name.String() + " = " + ls.Value.String()
}

// Parameter is a function parameter. TypeName is set only for extension
// method receivers (fun (xs: List) sum() { ... }).
type Parameter struct {
	Name     *Identifier
	TypeName string
}

func (p *Parameter) String() string {
	if p.TypeName != "" {
		return p.Name.Value + ": " + p.TypeName
	}
	return p.Name.Value
}

// FunctionStatement represents a named function declaration, optionally with
// a typed receiver making it an extension method:
//
//	fun name(a, b) { ... }
//	fun (recv: Int) double() { ... }
type FunctionStatement struct {
	Token      token.Token // the 'fun' token
	Name       *Identifier
	Receiver   *Parameter // nil for plain functions
	Parameters []*Parameter
	Body       *BlockStatement
}

func (fs *FunctionStatement) statementNode()       {}
func (fs *FunctionStatement) TokenLiteral() string { return fs.Token.Literal }
func (fs *FunctionStatement) GetToken() token.Token {
	if fs == nil {
		return token.Token{}
	}
	return fs.Token
}
func (fs *FunctionStatement) String() string {
	var out strings.Builder
	out.WriteString("fun ")
	if fs.Receiver != nil {
		out.WriteString("(" + fs.Receiver.String() + ") ")
	}
	out.WriteString(fs.Name.Value)
	out.WriteString("(")
	params := make([]string, len(fs.Parameters))
	for i, p := range fs.Parameters {
		params[i] = p.String()
	}
	out.WriteString(strings.Join(params, ", "))
	out.WriteString(") ")
	out.WriteString(fs.Body.String())
	return out.String()
}

// ReturnStatement represents: return expr
type ReturnStatement struct {
	Token token.Token
	Value Expression
}

func (rs *ReturnStatement) statementNode()       {}
func (rs *ReturnStatement) TokenLiteral() string { return rs.Token.Literal }
func (rs *ReturnStatement) GetToken() token.Token {
	if rs == nil {
		return token.Token{}
	}
	return rs.Token
}
func (rs *ReturnStatement) String() string {
	if rs.Value == nil {
		return "return"
	}
	return "return " + rs.Value.String()
}

// ExpressionStatement wraps an expression used as a statement.
type ExpressionStatement struct {
	Token      token.Token // first token of the expression
	Expression Expression
}

func (es *ExpressionStatement) statementNode()       {}
func (es *ExpressionStatement) TokenLiteral() string { return es.Token.Literal }
func (es *ExpressionStatement) GetToken() token.Token {
	if es == nil {
		return token.Token{}
	}
	return es.Token
}
func (es *ExpressionStatement) String() string {
	if es.Expression == nil {
		return ""
	}
	return es.Expression.String()
}

// BlockStatement is a braced sequence of statements.
type BlockStatement struct {
	Token      token.Token // the '{' token
	Statements []Statement
}

func (bs *BlockStatement) statementNode()       {}
func (bs *BlockStatement) TokenLiteral() string { return bs.Token.Literal }
func (bs *BlockStatement) GetToken() token.Token {
	if bs == nil {
		return token.Token{}
	}
	return bs.Token
}
func (bs *BlockStatement) String() string {
	var out strings.Builder
	out.WriteString("{ ")
	for _, s := range bs.Statements {
		out.WriteString(s.String())
		out.WriteString("; ")
	}
	out.WriteString("}")
	return out.String()
}
