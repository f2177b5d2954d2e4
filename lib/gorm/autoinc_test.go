package gormads

import (
	"context"
	"database/sql/driver"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/jakoblorz/adsql"
)

// autoincDriver behaves like the Advantage client: exec results cannot
// report the generated id, LASTAUTOINC can.
type autoincDriver struct {
	mu      sync.Mutex
	next    int64
	queries []string
}

func (d *autoincDriver) Open(string) (driver.Conn, error) { return &autoincConn{d}, nil }

func (d *autoincDriver) record(query string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.queries = append(d.queries, query)
}

type autoincConn struct{ d *autoincDriver }

func (c *autoincConn) Prepare(string) (driver.Stmt, error) { return nil, errors.New("no statements") }
func (c *autoincConn) Close() error                        { return nil }
func (c *autoincConn) Begin() (driver.Tx, error)           { return autoincTx{}, nil }

func (c *autoincConn) ExecContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	c.d.record(query)
	if strings.HasPrefix(query, "INSERT") {
		c.d.mu.Lock()
		c.d.next++
		c.d.mu.Unlock()
	}
	return driver.RowsAffected(1), nil
}

func (c *autoincConn) QueryContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	c.d.record(query)
	c.d.mu.Lock()
	defer c.d.mu.Unlock()
	return &autoincRows{id: c.d.next}, nil
}

type autoincTx struct{}

func (autoincTx) Commit() error   { return nil }
func (autoincTx) Rollback() error { return nil }

type autoincRows struct {
	id   int64
	done bool
}

func (r *autoincRows) Columns() []string { return []string{"id"} }
func (r *autoincRows) Close() error      { return nil }

func (r *autoincRows) Next(dest []driver.Value) error {
	if r.done {
		return io.EOF
	}
	r.done = true
	dest[0] = r.id
	return nil
}

type Animal struct {
	ID   int64 `gorm:"primaryKey"`
	Name string
}

func TestCreateReadsLastAutoInc(t *testing.T) {
	native := &autoincDriver{next: 40}
	adsql.Register("gormads-autoinc", native, adsql.WithPlaceholders(adsql.PlaceholderQMark))

	db, err := gorm.Open(Open(adsql.Settings{Driver: "gormads-autoinc", Name: "/data/zoo.add"}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	a := Animal{Name: "rex"}
	require.NoError(t, db.Create(&a).Error)
	assert.EqualValues(t, 41, a.ID)

	b := Animal{Name: "tom"}
	require.NoError(t, db.Create(&b).Error)
	assert.EqualValues(t, 42, b.ID)

	native.mu.Lock()
	defer native.mu.Unlock()
	assert.Equal(t, []string{
		`INSERT INTO "animals" ("name") VALUES (?)`,
		adsql.LastAutoIncSQL,
		`INSERT INTO "animals" ("name") VALUES (?)`,
		adsql.LastAutoIncSQL,
	}, native.queries)
}
