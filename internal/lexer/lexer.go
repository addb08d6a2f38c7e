package lexer

import (
	"unicode"
	"unicode/utf8"

	"github.com/lumelang/lume/internal/token"
)

type Lexer struct {
	input        string
	position     int  // current position in input (points to current char)
	readPosition int  // current reading position in input (after current char)
	ch           rune // current char under examination
	line         int  // current line number
	column       int  // current column number
}

func New(input string) *Lexer {
	l := &Lexer{input: input, line: 1, column: 0}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.column = 0
	}

	if l.readPosition >= len(l.input) {
		l.ch = 0
		l.position = l.readPosition
		l.readPosition++
		l.column++
		return
	}

	r, w := utf8.DecodeRuneInString(l.input[l.readPosition:])
	l.ch = r
	l.position = l.readPosition
	l.readPosition += w
	l.column++
}

func (l *Lexer) peekChar() rune {
	if l.readPosition >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.readPosition:])
	return r
}

func (l *Lexer) NextToken() token.Token {
	var tok token.Token

	l.skipWhitespace()
	l.skipComment()

	switch l.ch {
	case '\n':
		tok = l.newToken(token.NEWLINE, "\\n")
	case '=':
		if l.peekChar() == '=' {
			l.readChar()
			tok = l.newToken(token.EQ, "==")
		} else {
			tok = l.newToken(token.ASSIGN, "=")
		}
	case '+':
		if l.peekChar() == '+' {
			l.readChar()
			tok = l.newToken(token.CONCAT, "++")
		} else {
			tok = l.newToken(token.PLUS, "+")
		}
	case '-':
		tok = l.newToken(token.MINUS, "-")
	case '*':
		tok = l.newToken(token.ASTERISK, "*")
	case '/':
		tok = l.newToken(token.SLASH, "/")
	case '%':
		tok = l.newToken(token.PERCENT, "%")
	case '!':
		if l.peekChar() == '=' {
			l.readChar()
			tok = l.newToken(token.NOT_EQ, "!=")
		} else {
			tok = l.newToken(token.BANG, "!")
		}
	case '<':
		if l.peekChar() == '=' {
			l.readChar()
			tok = l.newToken(token.LTE, "<=")
		} else {
			tok = l.newToken(token.LT, "<")
		}
	case '>':
		if l.peekChar() == '=' {
			l.readChar()
			tok = l.newToken(token.GTE, ">=")
		} else {
			tok = l.newToken(token.GT, ">")
		}
	case '&':
		if l.peekChar() == '&' {
			l.readChar()
			tok = l.newToken(token.AND, "&&")
		} else {
			tok = l.newToken(token.ILLEGAL, string(l.ch))
		}
	case '|':
		if l.peekChar() == '|' {
			l.readChar()
			tok = l.newToken(token.OR, "||")
		} else {
			tok = l.newToken(token.ILLEGAL, string(l.ch))
		}
	case ',':
		tok = l.newToken(token.COMMA, ",")
	case ';':
		tok = l.newToken(token.SEMICOLON, ";")
	case ':':
		tok = l.newToken(token.COLON, ":")
	case '.':
		tok = l.newToken(token.DOT, ".")
	case '(':
		tok = l.newToken(token.LPAREN, "(")
	case ')':
		tok = l.newToken(token.RPAREN, ")")
	case '{':
		tok = l.newToken(token.LBRACE, "{")
	case '}':
		tok = l.newToken(token.RBRACE, "}")
	case '[':
		tok = l.newToken(token.LBRACKET, "[")
	case ']':
		tok = l.newToken(token.RBRACKET, "]")
	case '"':
		line, col := l.line, l.column
		lit := l.readString()
		tok = token.Token{Type: token.STRING, Literal: lit, Line: line, Column: col}
	case 0:
		tok = token.Token{Type: token.EOF, Literal: "", Line: l.line, Column: l.column}
	default:
		if isLetter(l.ch) {
			line, col := l.line, l.column
			lit := l.readIdentifier()
			return token.Token{Type: token.LookupIdent(lit), Literal: lit, Line: line, Column: col}
		}
		if unicode.IsDigit(l.ch) {
			return l.readNumber()
		}
		tok = l.newToken(token.ILLEGAL, string(l.ch))
	}

	l.readChar()
	return tok
}

func (l *Lexer) newToken(t token.TokenType, literal string) token.Token {
	return token.Token{Type: t, Literal: literal, Line: l.line, Column: l.column}
}

func (l *Lexer) skipWhitespace() {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\r' {
		l.readChar()
	}
}

// skipComment skips a # line comment up to (not including) the newline, then
// any whitespace/comment runs that follow.
func (l *Lexer) skipComment() {
	for l.ch == '#' {
		for l.ch != '\n' && l.ch != 0 {
			l.readChar()
		}
		l.skipWhitespace()
	}
}

func (l *Lexer) readIdentifier() string {
	start := l.position
	for isLetter(l.ch) || unicode.IsDigit(l.ch) {
		l.readChar()
	}
	return l.input[start:l.position]
}

func (l *Lexer) readNumber() token.Token {
	line, col := l.line, l.column
	start := l.position
	isFloat := false
	for unicode.IsDigit(l.ch) || l.ch == '_' {
		l.readChar()
	}
	// A '.' is part of the number only when followed by a digit; otherwise it
	// is a member access (1.show is valid).
	if l.ch == '.' && unicode.IsDigit(l.peekChar()) {
		isFloat = true
		l.readChar()
		for unicode.IsDigit(l.ch) {
			l.readChar()
		}
	}
	lit := l.input[start:l.position]
	if isFloat {
		return token.Token{Type: token.FLOAT, Literal: lit, Line: line, Column: col}
	}
	return token.Token{Type: token.INT, Literal: lit, Line: line, Column: col}
}

func (l *Lexer) readString() string {
	var out []rune
	for {
		l.readChar()
		if l.ch == '"' || l.ch == 0 {
			break
		}
		if l.ch == '\\' {
			switch l.peekChar() {
			case 'n':
				out = append(out, '\n')
				l.readChar()
				continue
			case 't':
				out = append(out, '\t')
				l.readChar()
				continue
			case '"':
				out = append(out, '"')
				l.readChar()
				continue
			case '\\':
				out = append(out, '\\')
				l.readChar()
				continue
			}
		}
		out = append(out, l.ch)
	}
	return string(out)
}

func isLetter(ch rune) bool {
	return unicode.IsLetter(ch) || ch == '_'
}
