package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"lumen/token"
)

func TestLexer(t *testing.T) {
	input := `
    let xs = [10, 20, 30];
    func add(a, b) {
        return a + b;
    }
    if (a <= b) { println("hi"); } else { println("bye"); }
    a != b; a == b; a >= b;`

	expected := []token.Token{
		{Type: token.LET, Literal: "let"},
		{Type: token.IDENT, Literal: "xs"},
		{Type: token.ASSIGN, Literal: "="},
		{Type: token.LBRACKET, Literal: "["},
		{Type: token.NUMBER, Literal: "10"},
		{Type: token.COMMA, Literal: ","},
		{Type: token.NUMBER, Literal: "20"},
		{Type: token.COMMA, Literal: ","},
		{Type: token.NUMBER, Literal: "30"},
		{Type: token.RBRACKET, Literal: "]"},
		{Type: token.SEMI, Literal: ";"},
		{Type: token.FUNC, Literal: "func"},
		{Type: token.IDENT, Literal: "add"},
		{Type: token.LPAREN, Literal: "("},
		{Type: token.IDENT, Literal: "a"},
		{Type: token.COMMA, Literal: ","},
		{Type: token.IDENT, Literal: "b"},
		{Type: token.RPAREN, Literal: ")"},
		{Type: token.LBRACE, Literal: "{"},
		{Type: token.RETURN, Literal: "return"},
		{Type: token.IDENT, Literal: "a"},
		{Type: token.PLUS, Literal: "+"},
		{Type: token.IDENT, Literal: "b"},
		{Type: token.SEMI, Literal: ";"},
		{Type: token.RBRACE, Literal: "}"},
		{Type: token.IF, Literal: "if"},
		{Type: token.LPAREN, Literal: "("},
		{Type: token.IDENT, Literal: "a"},
		{Type: token.LT_EQ, Literal: "<="},
		{Type: token.IDENT, Literal: "b"},
		{Type: token.RPAREN, Literal: ")"},
		{Type: token.LBRACE, Literal: "{"},
		{Type: token.IDENT, Literal: "println"},
	}

	l := New(input)

	for i, exp := range expected {
		tok := l.NextToken()
		assert.Equalf(t, exp.Type, tok.Type, "token[%d] - wrong type", i)
		assert.Equalf(t, exp.Literal, tok.Literal, "token[%d] - wrong literal", i)
	}
}

func TestLexerLineTracking(t *testing.T) {
	input := "let a = 1;\nlet b = 2;\n"

	l := New(input)

	var lines []int
	for {
		tok := l.NextToken()
		if tok.Type == token.EOF {
			break
		}
		lines = append(lines, tok.Line)
	}

	assert.Equal(t, []int{1, 1, 1, 1, 1, 2, 2, 2, 2, 2}, lines)
}
