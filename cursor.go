package adsql

import (
	"context"
	"database/sql"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/jakoblorz/adsql/x/util"
)

type ColumnDescription struct {
	Name      string
	TypeName  string
	TypeCode  TypeCode
	Length    int64
	Precision int64
	Scale     int64
	Nullable  bool
}

// Cursor holds the execution context of one query and its result set.
// It is not safe for concurrent use.
type Cursor struct {
	q        Querier
	typeCode func(string) TypeCode

	rows     *sql.Rows
	cols     []ColumnDescription
	rowCount int64
	closed   bool
}

func NewCursor(q Querier) *Cursor {
	return &Cursor{q: q, typeCode: TypeCodeOf, rowCount: -1}
}

// returnsRows reports whether query produces a result set.
func returnsRows(query string) bool {
	q := strings.TrimLeft(query, " \t\r\n(")
	i := strings.IndexAny(q, " \t\r\n(")
	if i > 0 {
		q = q[:i]
	}
	switch strings.ToUpper(q) {
	case "SELECT", "WITH", "EXECUTE", "VALUES":
		return true
	}
	return false
}

func (c *Cursor) reset() error {
	c.cols = nil
	c.rowCount = -1
	if c.rows == nil {
		return nil
	}
	err := c.rows.Close()
	c.rows = nil
	return err
}

// Execute runs query. Result sets are kept on the cursor until the next
// Execute or Close.
func (c *Cursor) Execute(ctx context.Context, query string, args ...interface{}) error {
	if c.closed {
		return ErrCursorClosed
	}
	if err := c.reset(); err != nil {
		return err
	}

	if !returnsRows(query) {
		res, err := c.q.ExecContext(ctx, query, args...)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err == nil {
			c.rowCount = n
		}
		return nil
	}

	rows, err := c.q.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	types, err := rows.ColumnTypes()
	if err != nil {
		return multierr.Append(err, rows.Close())
	}
	c.cols = c.describe(types)
	c.rows = rows
	return nil
}

// ExecuteMany runs query once per argument set. An empty set list is a
// no-op.
func (c *Cursor) ExecuteMany(ctx context.Context, query string, argSets [][]interface{}) (err error) {
	if c.closed {
		return ErrCursorClosed
	}
	if err := c.reset(); err != nil {
		return err
	}
	if len(argSets) == 0 {
		return nil
	}

	stmt, err := c.q.PrepareContext(ctx, query)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, stmt.Close()) }()

	var total int64
	for _, args := range argSets {
		res, err := stmt.ExecContext(ctx, args...)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err == nil {
			total += n
		}
	}
	c.rowCount = total
	return nil
}

func (c *Cursor) describe(types []*sql.ColumnType) []ColumnDescription {
	cols := make([]ColumnDescription, len(types))
	for i, t := range types {
		d := ColumnDescription{
			Name:     t.Name(),
			TypeName: t.DatabaseTypeName(),
		}
		d.TypeCode = c.typeCode(d.TypeName)
		if l, ok := t.Length(); ok {
			d.Length = l
		}
		if p, s, ok := t.DecimalSize(); ok {
			d.Precision, d.Scale = p, s
		}
		if n, ok := t.Nullable(); ok {
			d.Nullable = n
		}
		cols[i] = d
	}
	return cols
}

// Description returns the columns of the current result set, or nil
// when the last statement produced none.
func (c *Cursor) Description() []ColumnDescription {
	return c.cols
}

// RowCount returns the rows affected by the last statement, or -1 when
// unknown.
func (c *Cursor) RowCount() int64 {
	return c.rowCount
}

// FetchOne returns the next row, or nil when the result set is exhausted.
func (c *Cursor) FetchOne() ([]interface{}, error) {
	if c.closed {
		return nil, ErrCursorClosed
	}
	if c.rows == nil {
		return nil, nil
	}
	if !c.rows.Next() {
		err := multierr.Append(c.rows.Err(), c.rows.Close())
		c.rows = nil
		return nil, err
	}
	return util.ScanRow(c.rows, len(c.cols))
}

// FetchMany returns up to n rows. It returns an empty, non-nil slice
// when the result set is exhausted.
func (c *Cursor) FetchMany(n int) ([][]interface{}, error) {
	out := [][]interface{}{}
	for len(out) < n {
		row, err := c.FetchOne()
		if err != nil {
			return nil, err
		}
		if row == nil {
			break
		}
		out = append(out, row)
	}
	return out, nil
}

func (c *Cursor) FetchAll() ([][]interface{}, error) {
	out := [][]interface{}{}
	for {
		row, err := c.FetchOne()
		if err != nil {
			return nil, err
		}
		if row == nil {
			return out, nil
		}
		out = append(out, row)
	}
}

// Iterate streams the remaining rows until they run out or ctx is
// cancelled. Callers that stop reading early must cancel ctx.
func (c *Cursor) Iterate(ctx context.Context) (<-chan []interface{}, <-chan error) {
	if c.closed || c.rows == nil {
		valCh := make(chan []interface{})
		errCh := make(chan error, 1)
		if c.closed {
			errCh <- ErrCursorClosed
		}
		close(valCh)
		close(errCh)
		return valCh, errCh
	}
	return util.IterateRows(ctx, c.rows)
}

// Close releases the result set. The cursor is unusable afterwards.
func (c *Cursor) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	return errors.Wrap(c.reset(), "closing cursor")
}
