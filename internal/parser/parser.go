package parser

import (
	"github.com/lumelang/lume/internal/ast"
	"github.com/lumelang/lume/internal/lexer"
	"github.com/lumelang/lume/internal/pipeline"
	"github.com/lumelang/lume/internal/token"
)

// Operator precedence levels.
const (
	_ int = iota
	LOWEST
	LOGIC_OR    // ||
	LOGIC_AND   // &&
	EQUALS      // == !=
	LESSGREATER // < > <= >=
	SUM         // + - ++
	PRODUCT     // * / %
	PREFIX      // -x !x
	CALL        // f(x) x.y x[i]
)

// MaxRecursionDepth bounds nesting in parseExpression to keep malformed
// input from overflowing the Go stack.
const MaxRecursionDepth = 500

var precedences = map[token.TokenType]int{
	token.OR:       LOGIC_OR,
	token.AND:      LOGIC_AND,
	token.EQ:       EQUALS,
	token.NOT_EQ:   EQUALS,
	token.LT:       LESSGREATER,
	token.GT:       LESSGREATER,
	token.LTE:      LESSGREATER,
	token.GTE:      LESSGREATER,
	token.PLUS:     SUM,
	token.MINUS:    SUM,
	token.CONCAT:   SUM,
	token.ASTERISK: PRODUCT,
	token.SLASH:    PRODUCT,
	token.PERCENT:  PRODUCT,
	token.LPAREN:   CALL,
	token.DOT:      CALL,
	token.LBRACKET: CALL,
}

type (
	prefixParseFn func() ast.Expression
	infixParseFn  func(ast.Expression) ast.Expression
)

type Parser struct {
	l   *lexer.Lexer
	ctx *pipeline.Context

	curToken  token.Token
	peekToken token.Token

	depth int

	prefixParseFns map[token.TokenType]prefixParseFn
	infixParseFns  map[token.TokenType]infixParseFn
}

func New(l *lexer.Lexer, ctx *pipeline.Context) *Parser {
	p := &Parser{l: l, ctx: ctx}

	p.prefixParseFns = map[token.TokenType]prefixParseFn{
		token.IDENT:    p.parseIdentifier,
		token.INT:      p.parseIntegerLiteral,
		token.FLOAT:    p.parseFloatLiteral,
		token.STRING:   p.parseStringLiteral,
		token.TRUE:     p.parseBooleanLiteral,
		token.FALSE:    p.parseBooleanLiteral,
		token.NIL:      p.parseNilLiteral,
		token.BANG:     p.parsePrefixExpression,
		token.MINUS:    p.parsePrefixExpression,
		token.LPAREN:   p.parseGroupedExpression,
		token.LBRACKET: p.parseListLiteral,
		token.LBRACE:   p.parseRecordLiteral,
		token.IF:       p.parseIfExpression,
		token.FN:       p.parseFunctionLiteral,
	}
	p.infixParseFns = map[token.TokenType]infixParseFn{
		token.PLUS:     p.parseInfixExpression,
		token.MINUS:    p.parseInfixExpression,
		token.ASTERISK: p.parseInfixExpression,
		token.SLASH:    p.parseInfixExpression,
		token.PERCENT:  p.parseInfixExpression,
		token.CONCAT:   p.parseInfixExpression,
		token.EQ:       p.parseInfixExpression,
		token.NOT_EQ:   p.parseInfixExpression,
		token.LT:       p.parseInfixExpression,
		token.GT:       p.parseInfixExpression,
		token.LTE:      p.parseInfixExpression,
		token.GTE:      p.parseInfixExpression,
		token.AND:      p.parseInfixExpression,
		token.OR:       p.parseInfixExpression,
		token.LPAREN:   p.parseCallExpression,
		token.DOT:      p.parseMemberExpression,
		token.LBRACKET: p.parseIndexExpression,
	}

	// Read two tokens so curToken and peekToken are both set.
	p.nextToken()
	p.nextToken()
	return p
}

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.l.NextToken()
}

func (p *Parser) curTokenIs(t token.TokenType) bool  { return p.curToken.Type == t }
func (p *Parser) peekTokenIs(t token.TokenType) bool { return p.peekToken.Type == t }

func (p *Parser) expectPeek(t token.TokenType) bool {
	if p.peekTokenIs(t) {
		p.nextToken()
		return true
	}
	p.peekError(t)
	return false
}

func (p *Parser) peekError(t token.TokenType) {
	p.ctx.Errors = append(p.ctx.Errors, pipeline.NewError(
		"P001", p.peekToken,
		"expected next token to be %s, got %s", t, p.peekToken.Type,
	))
}

func (p *Parser) noPrefixParseFnError(t token.TokenType) {
	p.ctx.Errors = append(p.ctx.Errors, pipeline.NewError(
		"P002", p.curToken,
		"unexpected token %s", t,
	))
}

func (p *Parser) peekPrecedence() int {
	if prec, ok := precedences[p.peekToken.Type]; ok {
		return prec
	}
	return LOWEST
}

func (p *Parser) curPrecedence() int {
	if prec, ok := precedences[p.curToken.Type]; ok {
		return prec
	}
	return LOWEST
}

// skipNewlines advances past statement separators.
func (p *Parser) skipNewlines() {
	for p.curTokenIs(token.NEWLINE) || p.curTokenIs(token.SEMICOLON) {
		p.nextToken()
	}
}

// skipToStatementBoundary recovers from a parse error by discarding tokens
// up to the next statement separator.
func (p *Parser) skipToStatementBoundary() {
	for !p.curTokenIs(token.NEWLINE) && !p.curTokenIs(token.SEMICOLON) &&
		!p.curTokenIs(token.RBRACE) && !p.curTokenIs(token.EOF) {
		p.nextToken()
	}
}

func (p *Parser) ParseProgram() *ast.Program {
	program := &ast.Program{}

	p.skipNewlines()
	for !p.curTokenIs(token.EOF) {
		before := len(p.ctx.Errors)
		stmt := p.parseStatement()
		if stmt != nil {
			program.Statements = append(program.Statements, stmt)
		} else if len(p.ctx.Errors) > before {
			p.skipToStatementBoundary()
		}
		p.nextToken()
		p.skipNewlines()
	}

	return program
}
