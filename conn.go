package adsql

import (
	"context"
	"database/sql"
	"database/sql/driver"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// Conn is a native connection seen through the adapter. Query execution
// and preparation are intercepted; everything else is forwarded.
type Conn struct {
	d *Driver
	c driver.Conn
}

var (
	_ driver.Conn               = (*Conn)(nil)
	_ driver.ConnPrepareContext = (*Conn)(nil)
	_ driver.ConnBeginTx        = (*Conn)(nil)
	_ driver.QueryerContext     = (*Conn)(nil)
	_ driver.ExecerContext      = (*Conn)(nil)
	_ driver.Pinger             = (*Conn)(nil)
	_ driver.Validator          = (*Conn)(nil)
	_ driver.SessionResetter    = (*Conn)(nil)
	_ driver.NamedValueChecker  = (*Conn)(nil)
)

func newConn(d *Driver, c driver.Conn) *Conn {
	return &Conn{d, c}
}

func (c *Conn) Native() driver.Conn {
	return c.c
}

func (c *Conn) prepareNative(ctx context.Context, query string) (driver.Stmt, error) {
	if pc, ok := c.c.(driver.ConnPrepareContext); ok {
		return pc.PrepareContext(ctx, query)
	}
	return c.c.Prepare(query)
}

func (c *Conn) Prepare(query string) (driver.Stmt, error) {
	return c.PrepareContext(context.Background(), query)
}

func (c *Conn) PrepareContext(ctx context.Context, query string) (driver.Stmt, error) {
	q, err := c.d.rewrite(query)
	if err != nil {
		return nil, err
	}
	s, err := c.prepareNative(ctx, q)
	if err != nil {
		return nil, c.d.classifier.classify(err)
	}
	return newStmt(c, s), nil
}

func (c *Conn) QueryContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	q, err := c.d.rewriteN(query, len(args))
	if err != nil {
		return nil, err
	}
	rows, err := c.doQuery(ctx, q, args)
	if err != nil {
		if err != driver.ErrSkip {
			c.d.metrics.QueryFail.Inc(1)
		}
		return nil, c.d.classifier.classify(err)
	}
	c.d.metrics.Query.Inc(1)
	return rows, nil
}

func (c *Conn) doQuery(ctx context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	if qc, ok := c.c.(driver.QueryerContext); ok {
		rows, err := qc.QueryContext(ctx, query, args)
		if err != nil {
			return nil, err
		}
		return newRows(c.d, rows, nil), nil
	}

	s, err := c.prepareNative(ctx, query)
	if err != nil {
		return nil, err
	}
	rows, err := stmtQuery(ctx, s, args)
	if err != nil {
		return nil, multierr.Append(err, s.Close())
	}
	return newRows(c.d, rows, s), nil
}

func (c *Conn) ExecContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	q, err := c.d.rewriteN(query, len(args))
	if err != nil {
		return nil, err
	}
	res, err := c.doExec(ctx, q, args)
	if err != nil {
		if err != driver.ErrSkip {
			c.d.metrics.ExecFail.Inc(1)
		}
		return nil, c.d.classifier.classify(err)
	}
	c.d.metrics.Exec.Inc(1)
	return autoincResult{res, c}, nil
}

func (c *Conn) doExec(ctx context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	if ec, ok := c.c.(driver.ExecerContext); ok {
		return ec.ExecContext(ctx, query, args)
	}

	s, err := c.prepareNative(ctx, query)
	if err != nil {
		return nil, err
	}
	res, err := stmtExec(ctx, s, args)
	if cerr := s.Close(); err == nil && cerr != nil {
		return nil, cerr
	}
	return res, err
}

// autoincResult reads LASTAUTOINC when the native result cannot report
// the generated id.
type autoincResult struct {
	driver.Result
	c *Conn
}

func (r autoincResult) LastInsertId() (int64, error) {
	id, err := r.Result.LastInsertId()
	if err == nil {
		return id, nil
	}
	return r.c.lastAutoInc(context.Background())
}

func (c *Conn) lastAutoInc(ctx context.Context) (id int64, err error) {
	rows, err := c.doQuery(ctx, LastAutoIncSQL, nil)
	if err != nil {
		return 0, c.d.classifier.classify(err)
	}
	defer func() { err = multierr.Append(err, rows.Close()) }()

	dest := make([]driver.Value, len(rows.Columns()))
	if len(dest) == 0 {
		return 0, errors.New("adsql: LASTAUTOINC returned no columns")
	}
	if err := rows.Next(dest); err != nil {
		return 0, errors.Wrap(err, "reading LASTAUTOINC")
	}
	return toInt64(dest[0])
}

func (c *Conn) Close() error {
	return c.c.Close()
}

func (c *Conn) Begin() (driver.Tx, error) {
	return c.BeginTx(context.Background(), driver.TxOptions{})
}

func (c *Conn) BeginTx(ctx context.Context, opts driver.TxOptions) (driver.Tx, error) {
	var (
		tx  driver.Tx
		err error
	)
	if bc, ok := c.c.(driver.ConnBeginTx); ok {
		tx, err = bc.BeginTx(ctx, opts)
	} else {
		if opts.Isolation != driver.IsolationLevel(sql.LevelDefault) || opts.ReadOnly {
			return nil, &Error{Kind: KindNotSupported, Message: "isolation levels and read-only transactions"}
		}
		tx, err = c.c.Begin() //nolint:staticcheck
	}
	if err != nil {
		return nil, c.d.classifier.classify(err)
	}
	return &Tx{d: c.d, tx: tx}, nil
}

func (c *Conn) Ping(ctx context.Context) error {
	if p, ok := c.c.(driver.Pinger); ok {
		return c.d.classifier.classify(p.Ping(ctx))
	}
	return nil
}

func (c *Conn) IsValid() bool {
	if v, ok := c.c.(driver.Validator); ok {
		return v.IsValid()
	}
	return true
}

func (c *Conn) ResetSession(ctx context.Context) error {
	if r, ok := c.c.(driver.SessionResetter); ok {
		return r.ResetSession(ctx)
	}
	return nil
}

func (c *Conn) CheckNamedValue(nv *driver.NamedValue) error {
	if nc, ok := c.c.(driver.NamedValueChecker); ok {
		return nc.CheckNamedValue(nv)
	}
	return driver.ErrSkip
}

// Tx relabels errors of a native transaction.
type Tx struct {
	d  *Driver
	tx driver.Tx
}

func (t *Tx) Commit() error {
	return t.d.classifier.classify(t.tx.Commit())
}

func (t *Tx) Rollback() error {
	return t.d.classifier.classify(t.tx.Rollback())
}

func namedValueToValue(named []driver.NamedValue) ([]driver.Value, error) {
	args := make([]driver.Value, len(named))
	for i, nv := range named {
		if nv.Name != "" {
			return nil, errors.New("adsql: native driver does not support named parameters")
		}
		args[i] = nv.Value
	}
	return args, nil
}

func stmtQuery(ctx context.Context, s driver.Stmt, args []driver.NamedValue) (driver.Rows, error) {
	if sc, ok := s.(driver.StmtQueryContext); ok {
		return sc.QueryContext(ctx, args)
	}
	dargs, err := namedValueToValue(args)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.Query(dargs) //nolint:staticcheck
}

func stmtExec(ctx context.Context, s driver.Stmt, args []driver.NamedValue) (driver.Result, error) {
	if sc, ok := s.(driver.StmtExecContext); ok {
		return sc.ExecContext(ctx, args)
	}
	dargs, err := namedValueToValue(args)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.Exec(dargs) //nolint:staticcheck
}
