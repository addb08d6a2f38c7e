package parser

import (
	"github.com/lumelang/lume/internal/lexer"
	"github.com/lumelang/lume/internal/pipeline"
)

// Processor is the pipeline stage that turns source into an AST.
type Processor struct{}

func (pp *Processor) Process(ctx *pipeline.Context) *pipeline.Context {
	l := lexer.New(ctx.Source)
	p := New(l, ctx)
	ctx.AstRoot = p.ParseProgram()
	ctx.AstRoot.File = ctx.FilePath
	return ctx
}
