package adsql

import (
	"context"
	"database/sql/driver"
)

// Stmt is a native prepared statement whose errors are relabelled and
// whose result rows are converted.
type Stmt struct {
	d *Driver
	c *Conn
	s driver.Stmt
}

var (
	_ driver.StmtExecContext  = (*Stmt)(nil)
	_ driver.StmtQueryContext = (*Stmt)(nil)
)

func newStmt(c *Conn, s driver.Stmt) driver.Stmt {
	return &Stmt{c.d, c, s}
}

func (s *Stmt) Close() error {
	return s.s.Close()
}

func (s *Stmt) NumInput() int {
	return s.s.NumInput()
}

func (s *Stmt) Exec(args []driver.Value) (driver.Result, error) {
	return s.ExecContext(context.Background(), valuesToNamed(args))
}

func (s *Stmt) Query(args []driver.Value) (driver.Rows, error) {
	return s.QueryContext(context.Background(), valuesToNamed(args))
}

func (s *Stmt) ExecContext(ctx context.Context, args []driver.NamedValue) (driver.Result, error) {
	res, err := stmtExec(ctx, s.s, args)
	if err != nil {
		s.d.metrics.ExecFail.Inc(1)
		return nil, s.d.classifier.classify(err)
	}
	s.d.metrics.Exec.Inc(1)
	return autoincResult{res, s.c}, nil
}

func (s *Stmt) QueryContext(ctx context.Context, args []driver.NamedValue) (driver.Rows, error) {
	rows, err := stmtQuery(ctx, s.s, args)
	if err != nil {
		s.d.metrics.QueryFail.Inc(1)
		return nil, s.d.classifier.classify(err)
	}
	s.d.metrics.Query.Inc(1)
	return newRows(s.d, rows, nil), nil
}

func valuesToNamed(args []driver.Value) []driver.NamedValue {
	named := make([]driver.NamedValue, len(args))
	for i, v := range args {
		named[i] = driver.NamedValue{Ordinal: i + 1, Value: v}
	}
	return named
}
