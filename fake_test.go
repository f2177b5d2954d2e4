package adsql

import (
	"context"
	"database/sql/driver"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/uber-go/tally/v4"
)

// fakeError is raised by the fake native driver.
type fakeError struct {
	code int
	kind Kind
	msg  string
}

func (e *fakeError) Error() string    { return e.msg }
func (e *fakeError) NativeCode() int  { return e.code }
func (e *fakeError) NativeKind() Kind { return e.kind }

// fakeResponse scripts the answer to one query.
type fakeResponse struct {
	cols     []string
	types    []string
	rows     [][]driver.Value
	affected int64
	err      error
}

// fakeDriver is a native driver answering from scripted responses.
// Unscripted statements affect one row.
type fakeDriver struct {
	mu        sync.Mutex
	responses map[string]fakeResponse
	queries   []string
	args      [][]driver.Value
	dsns      []string
	opens     int
	pingErr   error

	commits     int
	rollbacks   int
	rollbackErr error
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{responses: map[string]fakeResponse{}}
}

func (d *fakeDriver) on(query string, r fakeResponse) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.responses[query] = r
}

func (d *fakeDriver) failPing(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pingErr = err
}

func (d *fakeDriver) seen() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.queries...)
}

func (d *fakeDriver) lastArgs() []driver.Value {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.args) == 0 {
		return nil
	}
	return d.args[len(d.args)-1]
}

func (d *fakeDriver) respond(query string, args []driver.Value) fakeResponse {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.queries = append(d.queries, query)
	d.args = append(d.args, args)
	r, ok := d.responses[query]
	if !ok {
		r = fakeResponse{affected: 1}
	}
	return r
}

func (d *fakeDriver) Open(name string) (driver.Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.opens++
	d.dsns = append(d.dsns, name)
	return &fakeConn{d: d}, nil
}

type fakeConn struct {
	d *fakeDriver
}

func (c *fakeConn) Prepare(query string) (driver.Stmt, error) {
	return &fakeStmt{c: c, query: query}, nil
}

func (c *fakeConn) Close() error { return nil }

func (c *fakeConn) Begin() (driver.Tx, error) {
	return &fakeTx{d: c.d}, nil
}

func (c *fakeConn) Ping(ctx context.Context) error {
	c.d.mu.Lock()
	defer c.d.mu.Unlock()
	err := c.d.pingErr
	c.d.pingErr = nil
	return err
}

func values(named []driver.NamedValue) []driver.Value {
	vals := make([]driver.Value, len(named))
	for i, nv := range named {
		vals[i] = nv.Value
	}
	return vals
}

func (c *fakeConn) QueryContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	return c.query(query, values(args))
}

func (c *fakeConn) ExecContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	return c.exec(query, values(args))
}

func (c *fakeConn) query(query string, args []driver.Value) (driver.Rows, error) {
	r := c.d.respond(query, args)
	if r.err != nil {
		return nil, r.err
	}
	return &fakeRows{r: r}, nil
}

func (c *fakeConn) exec(query string, args []driver.Value) (driver.Result, error) {
	r := c.d.respond(query, args)
	if r.err != nil {
		return nil, r.err
	}
	return driver.RowsAffected(r.affected), nil
}

type fakeStmt struct {
	c     *fakeConn
	query string
}

func (s *fakeStmt) Close() error  { return nil }
func (s *fakeStmt) NumInput() int { return -1 }

func (s *fakeStmt) Exec(args []driver.Value) (driver.Result, error) {
	return s.c.exec(s.query, args)
}

func (s *fakeStmt) Query(args []driver.Value) (driver.Rows, error) {
	return s.c.query(s.query, args)
}

type fakeTx struct {
	d *fakeDriver
}

func (t *fakeTx) Commit() error {
	t.d.mu.Lock()
	defer t.d.mu.Unlock()
	t.d.commits++
	return nil
}

func (t *fakeTx) Rollback() error {
	t.d.mu.Lock()
	defer t.d.mu.Unlock()
	t.d.rollbacks++
	return t.d.rollbackErr
}

type fakeRows struct {
	r fakeResponse
	i int
}

func (r *fakeRows) Columns() []string { return r.r.cols }
func (r *fakeRows) Close() error      { return nil }

func (r *fakeRows) Next(dest []driver.Value) error {
	if r.i >= len(r.r.rows) {
		return io.EOF
	}
	copy(dest, r.r.rows[r.i])
	r.i++
	return nil
}

func (r *fakeRows) ColumnTypeDatabaseTypeName(index int) string {
	if index < len(r.r.types) {
		return r.r.types[index]
	}
	return ""
}

func (r *fakeRows) ColumnTypeNullable(index int) (bool, bool) {
	return true, true
}

var fakeSeq int64

func registerFake(opts ...Option) (string, *fakeDriver) {
	name := fmt.Sprintf("adsql-fake-%d", atomic.AddInt64(&fakeSeq, 1))
	fd := newFakeDriver()
	Register(name, fd, opts...)
	return name, fd
}

func newFakeBackend(t *testing.T, settings Settings, opts ...Option) (*Backend, *fakeDriver) {
	name, fd := registerFake(opts...)
	settings.Driver = name
	if settings.Name == "" {
		settings.Name = "/data/app.add"
	}
	b := New(settings)
	t.Cleanup(func() { assert.NoError(t, b.Close()) })
	return b, fd
}

func counterValue(scope tally.TestScope, name string, tags map[string]string) int64 {
	var total int64
	for _, c := range scope.Snapshot().Counters() {
		if c.Name() != name || len(c.Tags()) != len(tags) {
			continue
		}
		match := true
		for k, v := range tags {
			if c.Tags()[k] != v {
				match = false
			}
		}
		if match {
			total += c.Value()
		}
	}
	return total
}
