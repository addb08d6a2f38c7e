package parser

import (
	"strconv"
	"strings"

	"github.com/lumelang/lume/internal/ast"
	"github.com/lumelang/lume/internal/pipeline"
	"github.com/lumelang/lume/internal/token"
)

func (p *Parser) parseExpression(precedence int) ast.Expression {
	p.depth++
	defer func() { p.depth-- }()

	if p.depth > MaxRecursionDepth {
		p.ctx.Errors = append(p.ctx.Errors, pipeline.NewError(
			"P004", p.curToken,
			"expression too complex: recursion depth limit exceeded",
		))
		p.skipToStatementBoundary()
		return nil
	}

	prefix := p.prefixParseFns[p.curToken.Type]
	if prefix == nil {
		p.noPrefixParseFnError(p.curToken.Type)
		return nil
	}
	leftExp := prefix()

	for leftExp != nil && precedence < p.peekPrecedence() {
		infix := p.infixParseFns[p.peekToken.Type]
		if infix == nil {
			return leftExp
		}
		p.nextToken()
		leftExp = infix(leftExp)
	}

	return leftExp
}

func (p *Parser) parseIdentifier() ast.Expression {
	return &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal}
}

func (p *Parser) parseIntegerLiteral() ast.Expression {
	lit := &ast.IntegerLiteral{Token: p.curToken}

	// Underscore digit separators are lexed but not understood by strconv.
	raw := strings.ReplaceAll(p.curToken.Literal, "_", "")
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		p.ctx.Errors = append(p.ctx.Errors, pipeline.NewError(
			"P005", p.curToken, "could not parse %q as integer", p.curToken.Literal,
		))
		return nil
	}
	lit.Value = value
	return lit
}

func (p *Parser) parseFloatLiteral() ast.Expression {
	lit := &ast.FloatLiteral{Token: p.curToken}

	raw := strings.ReplaceAll(p.curToken.Literal, "_", "")
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		p.ctx.Errors = append(p.ctx.Errors, pipeline.NewError(
			"P005", p.curToken, "could not parse %q as float", p.curToken.Literal,
		))
		return nil
	}
	lit.Value = value
	return lit
}

func (p *Parser) parseStringLiteral() ast.Expression {
	return &ast.StringLiteral{Token: p.curToken, Value: p.curToken.Literal}
}

func (p *Parser) parseBooleanLiteral() ast.Expression {
	return &ast.BooleanLiteral{Token: p.curToken, Value: p.curTokenIs(token.TRUE)}
}

func (p *Parser) parseNilLiteral() ast.Expression {
	return &ast.NilLiteral{Token: p.curToken}
}

func (p *Parser) parsePrefixExpression() ast.Expression {
	expression := &ast.PrefixExpression{
		Token:    p.curToken,
		Operator: p.curToken.Literal,
	}
	p.nextToken()
	expression.Right = p.parseExpression(PREFIX)
	if expression.Right == nil {
		return nil
	}
	return expression
}

func (p *Parser) parseInfixExpression(left ast.Expression) ast.Expression {
	expression := &ast.InfixExpression{
		Token:    p.curToken,
		Operator: p.curToken.Literal,
		Left:     left,
	}
	precedence := p.curPrecedence()
	p.nextToken()
	expression.Right = p.parseExpression(precedence)
	if expression.Right == nil {
		return nil
	}
	return expression
}

func (p *Parser) parseGroupedExpression() ast.Expression {
	p.nextToken()
	exp := p.parseExpression(LOWEST)
	if !p.expectPeek(token.RPAREN) {
		return nil
	}
	return exp
}

func (p *Parser) parseListLiteral() ast.Expression {
	lit := &ast.ListLiteral{Token: p.curToken}
	lit.Elements = p.parseExpressionList(token.RBRACKET)
	return lit
}

// parseExpressionList parses a comma separated list up to end. Newlines
// inside the list are allowed.
func (p *Parser) parseExpressionList(end token.TokenType) []ast.Expression {
	list := []ast.Expression{}

	for p.peekTokenIs(token.NEWLINE) {
		p.nextToken()
	}
	if p.peekTokenIs(end) {
		p.nextToken()
		return list
	}

	p.nextToken()
	elem := p.parseExpression(LOWEST)
	if elem == nil {
		return nil
	}
	list = append(list, elem)

	for p.peekTokenIs(token.COMMA) {
		p.nextToken()
		for p.peekTokenIs(token.NEWLINE) {
			p.nextToken()
		}
		p.nextToken()
		elem = p.parseExpression(LOWEST)
		if elem == nil {
			return nil
		}
		list = append(list, elem)
	}

	for p.peekTokenIs(token.NEWLINE) {
		p.nextToken()
	}
	if !p.expectPeek(end) {
		return nil
	}
	return list
}

// parseRecordLiteral parses {key: value, ...}. An empty {} is an empty
// record.
func (p *Parser) parseRecordLiteral() ast.Expression {
	lit := &ast.RecordLiteral{Token: p.curToken}

	for p.peekTokenIs(token.NEWLINE) {
		p.nextToken()
	}
	if p.peekTokenIs(token.RBRACE) {
		p.nextToken()
		return lit
	}

	for {
		if !p.expectPeek(token.IDENT) {
			return nil
		}
		field := &ast.RecordField{Key: p.curToken.Literal}
		if !p.expectPeek(token.COLON) {
			return nil
		}
		p.nextToken()
		field.Value = p.parseExpression(LOWEST)
		if field.Value == nil {
			return nil
		}
		lit.Fields = append(lit.Fields, field)

		if !p.peekTokenIs(token.COMMA) {
			break
		}
		p.nextToken()
		for p.peekTokenIs(token.NEWLINE) {
			p.nextToken()
		}
	}

	for p.peekTokenIs(token.NEWLINE) {
		p.nextToken()
	}
	if !p.expectPeek(token.RBRACE) {
		return nil
	}
	return lit
}

func (p *Parser) parseIfExpression() ast.Expression {
	expression := &ast.IfExpression{Token: p.curToken}

	p.nextToken()
	expression.Condition = p.parseExpression(LOWEST)
	if expression.Condition == nil {
		return nil
	}

	if !p.expectPeek(token.LBRACE) {
		return nil
	}
	expression.Consequence = p.parseBlockStatement()

	if p.peekTokenIs(token.ELSE) {
		p.nextToken()
		if p.peekTokenIs(token.IF) {
			// else if: wrap the nested if in a synthetic block so the
			// alternative is always a block.
			p.nextToken()
			nested := p.parseIfExpression()
			if nested == nil {
				return nil
			}
			expression.Alternative = &ast.BlockStatement{
				Token: p.curToken,
				Statements: []ast.Statement{
					&ast.ExpressionStatement{Token: p.curToken, Expression: nested},
				},
			}
			return expression
		}
		if !p.expectPeek(token.LBRACE) {
			return nil
		}
		expression.Alternative = p.parseBlockStatement()
	}
	return expression
}

func (p *Parser) parseFunctionLiteral() ast.Expression {
	lit := &ast.FunctionLiteral{Token: p.curToken}

	if !p.expectPeek(token.LPAREN) {
		return nil
	}
	lit.Parameters = p.parseParameters()
	if lit.Parameters == nil {
		return nil
	}

	if !p.expectPeek(token.LBRACE) {
		return nil
	}
	lit.Body = p.parseBlockStatement()
	return lit
}

func (p *Parser) parseCallExpression(function ast.Expression) ast.Expression {
	exp := &ast.CallExpression{Token: p.curToken, Function: function}
	exp.Arguments = p.parseExpressionList(token.RPAREN)
	if exp.Arguments == nil {
		return nil
	}
	return exp
}

func (p *Parser) parseMemberExpression(obj ast.Expression) ast.Expression {
	exp := &ast.MemberExpression{Token: p.curToken, Object: obj}

	if !p.expectPeek(token.IDENT) {
		return nil
	}
	exp.Property = &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal}
	return exp
}

func (p *Parser) parseIndexExpression(left ast.Expression) ast.Expression {
	exp := &ast.IndexExpression{Token: p.curToken, Left: left}

	p.nextToken()
	exp.Index = p.parseExpression(LOWEST)
	if exp.Index == nil {
		return nil
	}
	if !p.expectPeek(token.RBRACKET) {
		return nil
	}
	return exp
}
