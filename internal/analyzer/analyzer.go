// Package analyzer runs post-parse passes: stable identity assignment for
// every expression position and tail-call marking for function bodies.
package analyzer

import (
	"strconv"

	"github.com/lumelang/lume/internal/ast"
	"github.com/lumelang/lume/internal/ident"
	"github.com/lumelang/lume/internal/pipeline"
)

type Analyzer struct {
	unit string
}

func New(unit string) *Analyzer {
	return &Analyzer{unit: unit}
}

// Analyze assigns ids and marks tail positions in place.
func (a *Analyzer) Analyze(program *ast.Program) {
	for i, stmt := range program.Statements {
		a.walkStatement(stmt, a.statementPath(stmt, i))
	}
}

// statementPath names a top-level statement. Named declarations are keyed by
// name rather than position, so ids inside them survive statement insertion
// above them; anonymous statements fall back to their index.
func (a *Analyzer) statementPath(stmt ast.Statement, idx int) string {
	switch s := stmt.(type) {
	case *ast.FunctionStatement:
		if s.Receiver != nil {
			return "fun " + s.Receiver.TypeName + "." + s.Name.Value
		}
		return "fun " + s.Name.Value
	case *ast.LetStatement:
		return "let " + s.Name.Value
	default:
		return strconv.Itoa(idx)
	}
}

func (a *Analyzer) walkStatement(stmt ast.Statement, path string) {
	switch s := stmt.(type) {
	case *ast.LetStatement:
		a.walkExpression(s.Value, path+"/value")
	case *ast.FunctionStatement:
		// The name carries the declaration's identity, referenced by call
		// descriptors.
		s.Name.SetID(ident.Derive(a.unit, path))
		a.walkBlock(s.Body, path+"/body")
		markTailBlock(s.Body)
	case *ast.ReturnStatement:
		if s.Value != nil {
			a.walkExpression(s.Value, path+"/return")
		}
	case *ast.ExpressionStatement:
		a.walkExpression(s.Expression, path)
	case *ast.BlockStatement:
		a.walkBlock(s, path)
	}
}

func (a *Analyzer) walkBlock(block *ast.BlockStatement, path string) {
	if block == nil {
		return
	}
	for i, stmt := range block.Statements {
		a.walkStatement(stmt, path+"/"+strconv.Itoa(i))
	}
}

func (a *Analyzer) walkExpression(expr ast.Expression, path string) {
	if expr == nil {
		return
	}
	expr.SetID(ident.Derive(a.unit, path))

	switch e := expr.(type) {
	case *ast.PrefixExpression:
		a.walkExpression(e.Right, path+"/r")
	case *ast.InfixExpression:
		a.walkExpression(e.Left, path+"/l")
		a.walkExpression(e.Right, path+"/r")
	case *ast.IfExpression:
		a.walkExpression(e.Condition, path+"/cond")
		a.walkBlock(e.Consequence, path+"/then")
		a.walkBlock(e.Alternative, path+"/else")
	case *ast.ListLiteral:
		for i, el := range e.Elements {
			a.walkExpression(el, path+"/"+strconv.Itoa(i))
		}
	case *ast.RecordLiteral:
		for _, f := range e.Fields {
			a.walkExpression(f.Value, path+"/"+f.Key)
		}
	case *ast.CallExpression:
		a.walkExpression(e.Function, path+"/fn")
		for i, arg := range e.Arguments {
			a.walkExpression(arg, path+"/arg"+strconv.Itoa(i))
		}
	case *ast.MemberExpression:
		a.walkExpression(e.Object, path+"/obj")
	case *ast.IndexExpression:
		a.walkExpression(e.Left, path+"/l")
		a.walkExpression(e.Index, path+"/i")
	case *ast.FunctionLiteral:
		a.walkBlock(e.Body, path+"/lambda")
		markTailBlock(e.Body)
	}
}

// markTailBlock marks calls in tail position of a function body, so the
// apply loop can run them iteratively instead of growing the stack.
func markTailBlock(block *ast.BlockStatement) {
	if block == nil || len(block.Statements) == 0 {
		return
	}
	switch last := block.Statements[len(block.Statements)-1].(type) {
	case *ast.ExpressionStatement:
		markTailExpression(last.Expression)
	case *ast.ReturnStatement:
		markTailExpression(last.Value)
	}
}

func markTailExpression(expr ast.Expression) {
	switch e := expr.(type) {
	case *ast.CallExpression:
		e.IsTail = true
	case *ast.IfExpression:
		// Both branches are in tail position.
		markTailBlock(e.Consequence)
		markTailBlock(e.Alternative)
	}
}

// Processor is the pipeline stage running the analyzer over the parsed AST.
type Processor struct{}

func (ap *Processor) Process(ctx *pipeline.Context) *pipeline.Context {
	if ctx.AstRoot == nil {
		return ctx
	}
	New(ctx.FilePath).Analyze(ctx.AstRoot)
	return ctx
}
