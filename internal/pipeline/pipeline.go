// Package pipeline wires the compilation stages (lex, parse, analyze) around
// a shared context that accumulates the AST and positioned diagnostics.
package pipeline

import (
	"fmt"

	"github.com/lumelang/lume/internal/ast"
	"github.com/lumelang/lume/internal/token"
)

// Diagnostic is a positioned compilation error.
type Diagnostic struct {
	Code    string
	Message string
	File    string
	Line    int
	Column  int
}

func (d *Diagnostic) Error() string {
	if d.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s", d.File, d.Line, d.Column, d.Message)
	}
	return fmt.Sprintf("%s: %s", d.File, d.Message)
}

// NewError builds a diagnostic positioned at tok.
func NewError(code string, tok token.Token, format string, args ...interface{}) *Diagnostic {
	return &Diagnostic{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Line:    tok.Line,
		Column:  tok.Column,
	}
}

// Context carries the state of one compilation through the pipeline.
type Context struct {
	Source   string
	FilePath string
	AstRoot  *ast.Program
	Errors   []*Diagnostic
}

func NewContext(source, filePath string) *Context {
	return &Context{Source: source, FilePath: filePath}
}

// Processor is a single pipeline stage.
type Processor interface {
	Process(ctx *Context) *Context
}

// Pipeline represents a sequence of processing stages.
type Pipeline struct {
	processors []Processor
}

func New(processors ...Processor) *Pipeline {
	return &Pipeline{processors: processors}
}

// Run executes the pipeline. Stages run even after errors so diagnostics
// from all stages are collected.
func (p *Pipeline) Run(ctx *Context) *Context {
	for _, processor := range p.processors {
		ctx = processor.Process(ctx)
	}
	// Ensure all errors carry the file path.
	for _, err := range ctx.Errors {
		if err.File == "" {
			err.File = ctx.FilePath
		}
	}
	return ctx
}
