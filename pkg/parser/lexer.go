package parser

import (
	"strings"

	"relstore/pkg/dberr"
)

// lex splits a statement into tokens. Identifiers and keywords are one
// token kind; the parser decides which identifiers are keywords.
// Strings are single-quoted with '' as the escaped quote.
func lex(input string) ([]Token, error) {
	var tokens []Token
	i := 0
	n := len(input)

	for i < n {
		c := input[i]
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			i++

		case c == '(':
			tokens = append(tokens, Token{Kind: TokenLParen, Pos: i})
			i++
		case c == ')':
			tokens = append(tokens, Token{Kind: TokenRParen, Pos: i})
			i++
		case c == ',':
			tokens = append(tokens, Token{Kind: TokenComma, Pos: i})
			i++
		case c == '.':
			tokens = append(tokens, Token{Kind: TokenDot, Pos: i})
			i++
		case c == '*':
			tokens = append(tokens, Token{Kind: TokenStar, Pos: i})
			i++
		case c == '=':
			tokens = append(tokens, Token{Kind: TokenEquals, Pos: i})
			i++
		case c == ';':
			tokens = append(tokens, Token{Kind: TokenSemicolon, Pos: i})
			i++

		case c == '\'':
			text, next, err := lexString(input, i)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, Token{Kind: TokenString, Text: text, Pos: i})
			i = next

		case c >= '0' && c <= '9' || c == '-' && i+1 < n && input[i+1] >= '0' && input[i+1] <= '9':
			start := i
			i++
			for i < n && (input[i] >= '0' && input[i] <= '9' || input[i] == '.' ||
				input[i] == 'e' || input[i] == 'E' ||
				(input[i] == '-' || input[i] == '+') && (input[i-1] == 'e' || input[i-1] == 'E')) {
				i++
			}
			tokens = append(tokens, Token{Kind: TokenNumber, Text: input[start:i], Pos: start})

		case isIdentChar(c):
			start := i
			for i < n && isIdentChar(input[i]) {
				i++
			}
			tokens = append(tokens, Token{Kind: TokenIdent, Text: input[start:i], Pos: start})

		default:
			return nil, dberr.MalformedInput("unexpected character %q at position %d", c, i).
				WithComponent("Lexer")
		}
	}

	tokens = append(tokens, Token{Kind: TokenEOF, Pos: n})
	return tokens, nil
}

func lexString(input string, start int) (string, int, error) {
	var b strings.Builder
	i := start + 1
	n := len(input)

	for i < n {
		c := input[i]
		if c == '\'' {
			if i+1 < n && input[i+1] == '\'' {
				b.WriteByte('\'')
				i += 2
				continue
			}
			return b.String(), i + 1, nil
		}
		b.WriteByte(c)
		i++
	}
	return "", 0, dberr.MalformedInput("unterminated string starting at position %d", start).
		WithComponent("Lexer")
}

func isIdentChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' ||
		c >= '0' && c <= '9' || c == '_'
}
