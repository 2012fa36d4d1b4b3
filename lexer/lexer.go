// Define the lexer object
package lexer

import (
	"bytes"
	"fmt"

	"lumen/token"
)

const eof byte = 0

// A Lexer is an object that transforms the input text
// into tokens until reaching an EOF.
type Lexer struct {
	Input   string // The source code text.
	pos     int    // The current character position in the text.
	readPos int    // The position of the next character.
	ch      byte   // The currently highlighted character.
	line    int    // The current source line, starting at 1.
}

// Create a new lexer object that will tokenize the given
// input text.
func New(input string) *Lexer {
	l := &Lexer{
		Input: input,
		line:  1,
	}

	if len(input) == 0 {
		l.ch = eof
		return l
	}

	l.pos = 0
	l.readPos = 1
	l.ch = l.Input[l.pos]

	return l
}

// Read bytes from input until a complete token is formed.
// Return the newly created token.
func (l *Lexer) NextToken() token.Token {
	var tok token.Token

	l.skipWhitespace()

	tok.Line = l.line

	switch {
	case l.ch == '(':
		tok.Type = token.LPAREN
		tok.Literal = string(l.ch)
		l.readChar()
	case l.ch == ')':
		tok.Type = token.RPAREN
		tok.Literal = string(l.ch)
		l.readChar()
	case l.ch == '{':
		tok.Type = token.LBRACE
		tok.Literal = string(l.ch)
		l.readChar()
	case l.ch == '}':
		tok.Type = token.RBRACE
		tok.Literal = string(l.ch)
		l.readChar()
	case l.ch == '[':
		tok.Type = token.LBRACKET
		tok.Literal = string(l.ch)
		l.readChar()
	case l.ch == ']':
		tok.Type = token.RBRACKET
		tok.Literal = string(l.ch)
		l.readChar()
	case l.ch == ',':
		tok.Type = token.COMMA
		tok.Literal = string(l.ch)
		l.readChar()
	case l.ch == ';':
		tok.Type = token.SEMI
		tok.Literal = string(l.ch)
		l.readChar()
	case l.ch == '+':
		tok.Type = token.PLUS
		tok.Literal = string(l.ch)
		l.readChar()
	case l.ch == '-':
		tok.Type = token.MINUS
		tok.Literal = string(l.ch)
		l.readChar()
	case l.ch == '*':
		tok.Type = token.STAR
		tok.Literal = string(l.ch)
		l.readChar()
	case l.ch == '/':
		tok.Type = token.SLASH
		tok.Literal = string(l.ch)
		l.readChar()
	case l.ch == '=':
		if l.peekChar() == '=' {
			l.readChar()
			l.readChar()
			tok.Type = token.EQ
			tok.Literal = "=="
		} else {
			tok.Type = token.ASSIGN
			tok.Literal = "="
			l.readChar()
		}
	case l.ch == '!':
		if l.peekChar() == '=' {
			l.readChar()
			l.readChar()
			tok.Type = token.NOT_EQ
			tok.Literal = "!="
		} else {
			tok.Type = token.BANG
			tok.Literal = "!"
			l.readChar()
		}
	case l.ch == '<':
		if l.peekChar() == '=' {
			l.readChar()
			l.readChar()
			tok.Type = token.LT_EQ
			tok.Literal = "<="
		} else {
			tok.Type = token.LT
			tok.Literal = "<"
			l.readChar()
		}
	case l.ch == '>':
		if l.peekChar() == '=' {
			l.readChar()
			l.readChar()
			tok.Type = token.GT_EQ
			tok.Literal = ">="
		} else {
			tok.Type = token.GT
			tok.Literal = ">"
			l.readChar()
		}
	case l.ch == '"':
		line := tok.Line
		tok = l.readString()
		tok.Line = line
	case isDigit(l.ch):
		tok = l.readNumber()
		tok.Line = l.line
	case isValidIdentChar(l.ch):
		tok = l.readIdent()
		tok.Line = l.line
	case l.ch == eof:
		tok.Type = token.EOF
		tok.Literal = ""
	default:
		tok.Type = token.ILLEGAL
		tok.Literal = string(l.ch)
		l.readChar()
	}

	return tok
}

// Update the position, read position, and
// the current character fields in the lexer.
//
// If the read position is beyond the end of
// the input, return EOF.
func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
	}

	l.pos++
	l.readPos = l.pos + 1

	if l.readPos >= len(l.Input)+1 {
		l.ch = eof
	} else {
		l.ch = l.Input[l.pos]
	}
}

// See the next character in the input.
//
// If the read position is beyond the end of
// the input, return EOF.
func (l *Lexer) peekChar() byte {
	if l.readPos >= len(l.Input) {
		return eof
	}

	return l.Input[l.readPos]
}

// Read digits, and an optional single '.', until reaching a character that
// can't be part of a number literal.
func (l *Lexer) readNumber() token.Token {
	start := l.pos

	for isDigit(l.ch) {
		l.readChar()
	}

	if l.ch == '.' && isDigit(l.peekChar()) {
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
	}

	return token.Token{
		Type:    token.NUMBER,
		Literal: l.Input[start:l.pos],
	}
}

// Read letters and underscores until reaching any other character (digits
// included). Return
// a Token of type identifier (or a keyword type, per token.LookupIdent)
// with the literal value of the scanned characters.
func (l *Lexer) readIdent() token.Token {
	start := l.pos

	for isValidIdentChar(l.ch) {
		l.readChar()
	}

	literal := l.Input[start:l.pos]

	return token.Token{
		Type:    token.LookupIdent(literal),
		Literal: literal,
	}
}

// Read characters until reaching a terminating `"`.
// Return a Token of type STRING with the literal value of the
// characters between the quotes.
func (l *Lexer) readString() token.Token {
	l.readChar()

	var output bytes.Buffer

	for l.ch != '"' {
		if l.ch == eof {
			return token.Token{
				Type:    token.ILLEGAL,
				Literal: fmt.Sprintf("unterminated string: \"%s", output.String()),
			}
		}
		output.WriteByte(l.ch)
		l.readChar()
	}
	l.readChar()

	return token.Token{
		Type:    token.STRING,
		Literal: output.String(),
	}
}

func (l *Lexer) skipWhitespace() {
	for isWhitespace(l.ch) {
		l.readChar()
	}
}

func isValidIdentChar(ch byte) bool {
	return isLetter(ch) || ch == '_'
}

func isLetter(ch byte) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z'
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}

func isWhitespace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r'
}
