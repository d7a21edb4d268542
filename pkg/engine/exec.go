package engine

import (
	"fmt"
	"sync/atomic"

	"relstore/pkg/parser"
	"relstore/pkg/tuple"
)

// ExecuteQuery parses and runs one SQL statement, counting it in the
// engine statistics.
func (e *Engine) ExecuteQuery(sql string) (*Result, error) {
	atomic.AddInt64(&e.queries, 1)

	result, err := e.execute(sql)
	if err != nil {
		atomic.AddInt64(&e.errors, 1)
	}
	return result, err
}

func (e *Engine) execute(sql string) (*Result, error) {
	stmt, err := parser.Parse(sql)
	if err != nil {
		return nil, err
	}

	switch s := stmt.(type) {
	case *parser.CreateTable:
		schema, err := tuple.NewSchema(s.Columns)
		if err != nil {
			return nil, err
		}
		if err := e.CreateTable(s.Name, schema); err != nil {
			return nil, err
		}
		return &Result{Message: fmt.Sprintf("table %s created", s.Name)}, nil

	case *parser.DropTable:
		if err := e.DropTable(s.Name); err != nil {
			return nil, err
		}
		return &Result{Message: fmt.Sprintf("table %s dropped", s.Name)}, nil

	case *parser.Insert:
		if err := e.Insert(s.Table, s.Values); err != nil {
			return nil, err
		}
		return &Result{RowsAffected: 1, Message: "1 row inserted"}, nil

	case *parser.Select:
		schema, err := e.Schema(s.Table)
		if err != nil {
			return nil, err
		}
		var tuples []*tuple.Tuple
		if s.Where != nil {
			tuples, err = e.SelectWhere(s.Table, s.Where.Column, s.Where.Value)
		} else {
			tuples, err = e.SelectAll(s.Table)
		}
		if err != nil {
			return nil, err
		}
		return resultFromTuples(schema, tuples, s.Columns)

	case *parser.CreateIndex:
		if err := e.CreateIndex(s.Table, s.Column); err != nil {
			return nil, err
		}
		return &Result{Message: fmt.Sprintf("index created on %s.%s", s.Table, s.Column)}, nil

	case *parser.Begin:
		if err := e.Begin(); err != nil {
			return nil, err
		}
		return &Result{Message: "transaction started"}, nil

	case *parser.Commit:
		if err := e.Commit(); err != nil {
			return nil, err
		}
		return &Result{Message: "transaction committed"}, nil

	case *parser.Rollback:
		if err := e.Rollback(); err != nil {
			return nil, err
		}
		return &Result{Message: "transaction rolled back"}, nil

	case *parser.Checkpoint:
		if err := e.Checkpoint(); err != nil {
			return nil, err
		}
		return &Result{Message: "checkpoint complete"}, nil

	default:
		return nil, fmt.Errorf("unhandled statement type %T", stmt)
	}
}
