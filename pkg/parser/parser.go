// Package parser is the recursive-descent SQL front end. It produces
// tagged statement values; execution lives in the engine.
package parser

import (
	"strconv"
	"strings"

	"relstore/pkg/dberr"
	"relstore/pkg/tuple"
	"relstore/pkg/types"
)

type parser struct {
	tokens []Token
	pos    int
}

// Parse turns one SQL statement into its Statement variant.
func Parse(input string) (Statement, error) {
	tokens, err := lex(input)
	if err != nil {
		return nil, err
	}

	p := &parser{tokens: tokens}
	stmt, err := p.parseStatement()
	if err != nil {
		return nil, err
	}

	// Allow one trailing semicolon, nothing else.
	if p.peek().Kind == TokenSemicolon {
		p.next()
	}
	if p.peek().Kind != TokenEOF {
		return nil, dberr.MalformedInput("unexpected %s after statement", p.peek()).
			WithComponent("Parser")
	}
	return stmt, nil
}

func (p *parser) parseStatement() (Statement, error) {
	switch keyword := strings.ToUpper(p.peekIdent()); keyword {
	case "CREATE":
		p.next()
		switch strings.ToUpper(p.peekIdent()) {
		case "TABLE":
			p.next()
			return p.parseCreateTable()
		case "INDEX":
			p.next()
			return p.parseCreateIndex()
		default:
			return nil, dberr.MalformedInput("expected TABLE or INDEX after CREATE, got %s", p.peek()).
				WithComponent("Parser")
		}
	case "DROP":
		p.next()
		if err := p.expectKeyword("TABLE"); err != nil {
			return nil, err
		}
		name, err := p.expectIdent("table name")
		if err != nil {
			return nil, err
		}
		return &DropTable{Name: name}, nil
	case "INSERT":
		p.next()
		return p.parseInsert()
	case "SELECT":
		p.next()
		return p.parseSelect()
	case "BEGIN":
		p.next()
		return &Begin{}, nil
	case "COMMIT":
		p.next()
		return &Commit{}, nil
	case "ROLLBACK":
		p.next()
		return &Rollback{}, nil
	case "CHECKPOINT":
		p.next()
		return &Checkpoint{}, nil
	case "UPDATE", "DELETE":
		return nil, dberr.MalformedInput("%s is not supported", keyword).
			WithComponent("Parser")
	default:
		return nil, dberr.MalformedInput("unrecognized statement starting with %s", p.peek()).
			WithComponent("Parser")
	}
}

// parseCreateTable parses: name (col type[(n)], ...).
func (p *parser) parseCreateTable() (Statement, error) {
	name, err := p.expectIdent("table name")
	if err != nil {
		return nil, err
	}
	if err := p.expect(TokenLParen); err != nil {
		return nil, err
	}

	var columns []tuple.Column
	for {
		colName, err := p.expectIdent("column name")
		if err != nil {
			return nil, err
		}
		colType, declared, err := p.parseDataType()
		if err != nil {
			return nil, err
		}
		columns = append(columns, tuple.Column{Name: colName, Type: colType, DeclaredSize: declared})

		if p.peek().Kind == TokenComma {
			p.next()
			continue
		}
		break
	}

	if err := p.expect(TokenRParen); err != nil {
		return nil, err
	}
	return &CreateTable{Name: name, Columns: columns}, nil
}

// parseDataType accepts int/integer, varchar[(n)], bool/boolean, and
// double/float.
func (p *parser) parseDataType() (types.Type, uint32, error) {
	typeName, err := p.expectIdent("data type")
	if err != nil {
		return 0, 0, err
	}

	switch strings.ToUpper(typeName) {
	case "INT", "INTEGER":
		return types.IntType, 0, nil
	case "BOOL", "BOOLEAN":
		return types.BoolType, 0, nil
	case "DOUBLE", "FLOAT":
		return types.FloatType, 0, nil
	case "VARCHAR":
		var declared uint32
		if p.peek().Kind == TokenLParen {
			p.next()
			tok := p.peek()
			if tok.Kind != TokenNumber {
				return 0, 0, dberr.MalformedInput("expected size after VARCHAR(, got %s", tok).
					WithComponent("Parser")
			}
			p.next()
			size, perr := strconv.ParseUint(tok.Text, 10, 32)
			if perr != nil {
				return 0, 0, dberr.MalformedInput("invalid VARCHAR size %q", tok.Text).
					WithComponent("Parser")
			}
			declared = uint32(size)
			if err := p.expect(TokenRParen); err != nil {
				return 0, 0, err
			}
		}
		return types.VarcharType, declared, nil
	default:
		return 0, 0, dberr.MalformedInput("unknown data type %q", typeName).
			WithComponent("Parser")
	}
}

// parseInsert parses: INTO table VALUES (v1, ...).
func (p *parser) parseInsert() (Statement, error) {
	if err := p.expectKeyword("INTO"); err != nil {
		return nil, err
	}
	table, err := p.expectIdent("table name")
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("VALUES"); err != nil {
		return nil, err
	}
	if err := p.expect(TokenLParen); err != nil {
		return nil, err
	}

	var values []types.Field
	for {
		value, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		values = append(values, value)

		if p.peek().Kind == TokenComma {
			p.next()
			continue
		}
		break
	}

	if err := p.expect(TokenRParen); err != nil {
		return nil, err
	}
	return &Insert{Table: table, Values: values}, nil
}

// parseSelect parses: * | col, ... FROM table [WHERE col = value].
func (p *parser) parseSelect() (Statement, error) {
	var columns []string
	if p.peek().Kind == TokenStar {
		p.next()
	} else {
		for {
			col, err := p.expectIdent("column name")
			if err != nil {
				return nil, err
			}
			columns = append(columns, col)
			if p.peek().Kind == TokenComma {
				p.next()
				continue
			}
			break
		}
	}

	if err := p.expectKeyword("FROM"); err != nil {
		return nil, err
	}
	table, err := p.expectIdent("table name")
	if err != nil {
		return nil, err
	}

	stmt := &Select{Table: table, Columns: columns}

	if strings.ToUpper(p.peekIdent()) == "WHERE" {
		p.next()
		col, err := p.expectIdent("column name")
		if err != nil {
			return nil, err
		}
		if err := p.expect(TokenEquals); err != nil {
			return nil, err
		}
		value, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		stmt.Where = &Condition{Column: col, Value: value}
	}

	return stmt, nil
}

// parseCreateIndex parses: table.column.
func (p *parser) parseCreateIndex() (Statement, error) {
	table, err := p.expectIdent("table name")
	if err != nil {
		return nil, err
	}
	if err := p.expect(TokenDot); err != nil {
		return nil, err
	}
	column, err := p.expectIdent("column name")
	if err != nil {
		return nil, err
	}
	return &CreateIndex{Table: table, Column: column}, nil
}

// parseValue turns a literal token into a typed field: numbers with a
// decimal point or an exponent become DOUBLE, other numbers INTEGER,
// quoted strings VARCHAR, and true/false BOOLEAN.
func (p *parser) parseValue() (types.Field, error) {
	tok := p.peek()
	switch tok.Kind {
	case TokenNumber:
		p.next()
		if strings.ContainsAny(tok.Text, ".eE") {
			v, err := strconv.ParseFloat(tok.Text, 64)
			if err != nil {
				return nil, dberr.MalformedInput("invalid number %q", tok.Text).
					WithComponent("Parser")
			}
			return types.NewFloat64Field(v), nil
		}
		v, err := strconv.ParseInt(tok.Text, 10, 32)
		if err != nil {
			return nil, dberr.MalformedInput("integer %q out of range", tok.Text).
				WithComponent("Parser")
		}
		return types.NewIntField(int32(v)), nil

	case TokenString:
		p.next()
		return types.NewStringField(tok.Text), nil

	case TokenIdent:
		switch strings.ToUpper(tok.Text) {
		case "TRUE":
			p.next()
			return types.NewBoolField(true), nil
		case "FALSE":
			p.next()
			return types.NewBoolField(false), nil
		}
	}
	return nil, dberr.MalformedInput("expected a literal value, got %s", tok).
		WithComponent("Parser")
}

func (p *parser) peek() Token {
	return p.tokens[p.pos]
}

func (p *parser) peekIdent() string {
	if tok := p.peek(); tok.Kind == TokenIdent {
		return tok.Text
	}
	return ""
}

func (p *parser) next() Token {
	tok := p.tokens[p.pos]
	if tok.Kind != TokenEOF {
		p.pos++
	}
	return tok
}

func (p *parser) expect(kind TokenKind) error {
	if tok := p.peek(); tok.Kind != kind {
		return dberr.MalformedInput("expected %s, got %s", kind, tok).
			WithComponent("Parser")
	}
	p.next()
	return nil
}

func (p *parser) expectKeyword(keyword string) error {
	if !strings.EqualFold(p.peekIdent(), keyword) {
		return dberr.MalformedInput("expected %s, got %s", keyword, p.peek()).
			WithComponent("Parser")
	}
	p.next()
	return nil
}

func (p *parser) expectIdent(what string) (string, error) {
	tok := p.peek()
	if tok.Kind != TokenIdent {
		return "", dberr.MalformedInput("expected %s, got %s", what, tok).
			WithComponent("Parser")
	}
	p.next()
	return tok.Text, nil
}
