package adsql

import (
	"context"
	"database/sql"
	"encoding/hex"

	"github.com/pkg/errors"
	uuid "github.com/satori/go.uuid"
	log "github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

// Backend owns the connection to one Advantage database and the helpers
// the ORM uses to talk to it. At most one native connection is live per
// Backend; it is established lazily and re-established when found
// invalid.
//
// Backend is *not* goroutine safe.
type Backend struct {
	Settings Settings
	Features Features

	Ops           *Operations
	Introspection *Introspection
	Creation      *Creation
	Validation    *Validation
	Client        *Client

	db        *sql.DB
	conn      *sql.Conn
	tx        *sql.Tx
	onConnect []func(ctx context.Context, b *Backend) error
}

// New returns a Backend for settings. No connection is made until the
// first cursor is requested.
func New(settings Settings) *Backend {
	b := &Backend{
		Settings: settings,
		Features: DefaultFeatures(),
		Ops:      &Operations{},
	}
	b.Introspection = &Introspection{b: b}
	b.Creation = &Creation{b: b, DataTypes: DefaultDataTypes()}
	b.Validation = &Validation{b: b}
	b.Client = &Client{b: b}
	return b
}

// OnConnect registers fn to run every time a native connection is made.
func (b *Backend) OnConnect(fn func(ctx context.Context, b *Backend) error) {
	b.onConnect = append(b.onConnect, fn)
}

func (b *Backend) logger() *log.Entry {
	return log.WithFields(log.Fields{
		"driver":      b.Settings.Driver,
		"data_source": b.Settings.Name,
	})
}

func (b *Backend) wrapped() (*Driver, bool) {
	if b.db == nil {
		return nil, false
	}
	d, ok := b.db.Driver().(*Driver)
	return d, ok
}

func (b *Backend) validConnection(ctx context.Context) bool {
	if b.conn == nil {
		return false
	}
	if err := b.conn.PingContext(ctx); err != nil {
		b.logger().WithError(err).Warn("Advantage connection is no longer valid")
		if d, ok := b.wrapped(); ok {
			d.metrics.ConnectReset.Inc(1)
		}
		if cerr := b.closeConn(); cerr != nil {
			b.logger().WithError(cerr).Debug("Closing invalid connection failed")
		}
		return false
	}
	return true
}

func (b *Backend) connect(ctx context.Context) error {
	db, err := sql.Open(b.Settings.Driver, b.Settings.DataSourceName())
	if err != nil {
		return errors.Wrapf(err, "opening %s", b.Settings.Driver)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	conn, err := db.Conn(ctx)
	if err != nil {
		return multierr.Append(errors.Wrap(err, "connecting to Advantage"), db.Close())
	}
	b.db, b.conn = db, conn
	b.logger().Debug("Advantage connection created")

	for _, fn := range b.onConnect {
		if err := fn(ctx, b); err != nil {
			return multierr.Append(errors.Wrap(err, "connection created hook"), b.closeConn())
		}
	}
	return nil
}

func (b *Backend) closeConn() error {
	var err error
	if b.tx != nil {
		err = multierr.Append(err, ignoreDone(b.tx.Rollback()))
		b.tx = nil
	}
	if b.conn != nil {
		err = multierr.Append(err, b.conn.Close())
		b.conn = nil
	}
	if b.db != nil {
		err = multierr.Append(err, b.db.Close())
		b.db = nil
	}
	return err
}

func ignoreDone(err error) error {
	if err == sql.ErrTxDone || err == sql.ErrConnDone {
		return nil
	}
	return err
}

func (b *Backend) querier() Querier {
	if b.tx != nil {
		return b.tx
	}
	return b.conn
}

// Cursor returns a cursor on the live connection, connecting first when
// there is none or the current one is invalid.
func (b *Backend) Cursor(ctx context.Context) (*Cursor, error) {
	q, err := b.Querier(ctx)
	if err != nil {
		return nil, err
	}
	c := NewCursor(q)
	if d, ok := b.wrapped(); ok {
		c.typeCode = d.typeCode
	}
	return c, nil
}

// Querier returns the live connection, or the open transaction on it.
func (b *Backend) Querier(ctx context.Context) (Querier, error) {
	if b.tx == nil && !b.validConnection(ctx) {
		if err := b.connect(ctx); err != nil {
			return nil, err
		}
	}
	return b.querier(), nil
}

// DB returns the pool holding the live connection, or nil before the
// first cursor. The pool is limited to that one connection.
func (b *Backend) DB() *sql.DB {
	return b.db
}

// Begin starts a transaction. Cursors created afterwards run inside it.
func (b *Backend) Begin(ctx context.Context) error {
	if b.tx != nil {
		return errors.New("adsql: transaction already in progress")
	}
	if !b.validConnection(ctx) {
		if err := b.connect(ctx); err != nil {
			return err
		}
	}
	tx, err := b.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	b.tx = tx
	return nil
}

func (b *Backend) InTransaction() bool {
	return b.tx != nil
}

func (b *Backend) Commit() error {
	if b.tx == nil {
		return nil
	}
	tx := b.tx
	b.tx = nil
	return tx.Commit()
}

// Rollback rolls back the open transaction, if any. Tables that do not
// support transactions make the native rollback fail with a not
// supported error, which is ignored.
func (b *Backend) Rollback() error {
	if b.tx == nil {
		return nil
	}
	tx := b.tx
	b.tx = nil
	err := tx.Rollback()
	if errors.Is(err, ErrNotSupported) {
		b.logger().WithError(err).Debug("Rollback not supported, ignoring")
		return nil
	}
	return err
}

func (b *Backend) execOps(ctx context.Context, query string) error {
	c, err := b.Cursor(ctx)
	if err != nil {
		return err
	}
	return multierr.Append(c.Execute(ctx, query), c.Close())
}

// Savepoint creates a savepoint and returns its id. It does nothing and
// returns "" unless the backend uses savepoints.
func (b *Backend) Savepoint(ctx context.Context) (string, error) {
	if !b.Features.UsesSavepoints {
		return "", nil
	}
	id, err := uuid.NewV4()
	if err != nil {
		return "", errors.Wrap(err, "generating savepoint id")
	}
	sid := "s" + hex.EncodeToString(id.Bytes())
	if err := b.execOps(ctx, b.Ops.SavepointCreateSQL(sid)); err != nil {
		return "", err
	}
	return sid, nil
}

func (b *Backend) SavepointCommit(ctx context.Context, sid string) error {
	if !b.Features.UsesSavepoints || sid == "" {
		return nil
	}
	return b.execOps(ctx, b.Ops.SavepointCommitSQL(sid))
}

func (b *Backend) SavepointRollback(ctx context.Context, sid string) error {
	if !b.Features.UsesSavepoints || sid == "" {
		return nil
	}
	return b.execOps(ctx, b.Ops.SavepointRollbackSQL(sid))
}

func (b *Backend) Close() error {
	return b.closeConn()
}
