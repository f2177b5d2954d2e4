package adsql

import (
	"context"
	"database/sql/driver"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateTruncSQL(t *testing.T) {
	ops := &Operations{}
	assert.Equal(t,
		`CREATETIMESTAMP( EXTRACT(year FROM "d"),1,1,0,0,0, 0 )`,
		ops.DateTruncSQL("year", `"d"`))
	assert.Equal(t,
		`CREATETIMESTAMP( EXTRACT(year FROM "d"),EXTRACT(month FROM "d"),EXTRACT(day FROM "d"),0,0,0, 0 )`,
		ops.DateTruncSQL("day", `"d"`))
	assert.Equal(t, `"d"`, ops.DateTruncSQL("fortnight", `"d"`))

	// always six components plus milliseconds
	for _, unit := range truncUnits {
		sql := ops.DateTruncSQL(unit, "f")
		assert.Regexp(t, `^CREATETIMESTAMP\( ([^,]+,){6} 0 \)$`, sql, unit)
	}
}

func TestDateExtractSQL(t *testing.T) {
	ops := &Operations{}
	assert.Equal(t, `YEAR("d")`, ops.DateExtractSQL("year", `"d"`))
	assert.Equal(t, `DAYOFMONTH("d")`, ops.DateExtractSQL("day", `"d"`))
	assert.Equal(t, `DAYOFWEEK("d")`, ops.DateExtractSQL("week_day", `"d"`))
}

func TestQuoteName(t *testing.T) {
	ops := &Operations{}
	assert.Equal(t, `"person"`, ops.QuoteName("person"))
	assert.Equal(t, `"person"`, ops.QuoteName(ops.QuoteName("person")))

	assert.Equal(t, `'person'`, ops.SQuoteName("person"))
	assert.Equal(t, `'o''brien'`, ops.SQuoteName("o'brien"))
	assert.Equal(t, `'person'`, ops.SQuoteName(ops.SQuoteName("person")))
}

func TestLimitOffsetSQL(t *testing.T) {
	ops := &Operations{}
	assert.Equal(t, "TOP 10", ops.LimitOffsetSQL(10, 0))
	assert.Equal(t, "TOP 10 START AT 21", ops.LimitOffsetSQL(10, 20))
	assert.Equal(t, "TOP 2147483647 START AT 6", ops.LimitOffsetSQL(-1, 5))
	assert.Equal(t, "", ops.LimitOffsetSQL(-1, 0))
}

func TestSQLFlush(t *testing.T) {
	ops := &Operations{}
	assert.Nil(t, ops.SQLFlush(nil, nil, nil))
	assert.Equal(t, []string{
		`DELETE FROM "person";`,
		`EXECUTE PROCEDURE sp_PackTable( 'person' );`,
		`DELETE FROM "pet";`,
		`EXECUTE PROCEDURE sp_PackTable( 'pet' );`,
	}, ops.SQLFlush(PlainStyle{}, []string{"person", "pet"}, []string{"ignored"}))
}

func TestValueToDB(t *testing.T) {
	ops := &Operations{}

	v, err := ops.ValueToDBDatetime(nil)
	require.NoError(t, err)
	assert.Nil(t, v)

	ts := time.Date(2021, 3, 4, 5, 6, 7, 0, time.Local)
	v, err = ops.ValueToDBDatetime(&ts)
	require.NoError(t, err)
	assert.Equal(t, "2021-03-04 05:06:07", v)

	ts = time.Date(2021, 3, 4, 5, 6, 7, 8000, time.UTC)
	v, err = ops.ValueToDBDatetime(&ts)
	require.NoError(t, err)
	assert.Equal(t, "2021-03-04 05:06:07.000008", v)

	v, err = ops.ValueToDBTime(&ts)
	require.NoError(t, err)
	assert.Equal(t, "05:06:07.000008", v)

	zoned := time.Date(2021, 3, 4, 5, 6, 7, 0, time.FixedZone("CET", 3600))
	_, err = ops.ValueToDBDatetime(&zoned)
	assert.True(t, errors.Is(err, ErrTimezoneAware))
	_, err = ops.ValueToDBTime(&zoned)
	assert.True(t, errors.Is(err, ErrTimezoneAware))
}

func TestUnsupportedLookups(t *testing.T) {
	ops := &Operations{}
	_, err := ops.RegexLookup("regex")
	assert.True(t, errors.Is(err, ErrNotSupported))

	op, err := ops.Operator("icontains")
	require.NoError(t, err)
	assert.Equal(t, `LIKE %s ESCAPE '\'`, op)
	_, err = ops.Operator("near")
	assert.Error(t, err)

	assert.Equal(t, "CONTAINS(\"body\", %s)", ops.FulltextSearchSQL(`"body"`))
	assert.Equal(t, "", ops.DropForeignKeySQL())
	assert.Nil(t, ops.ForceNoOrdering())
	_, ok := ops.NoLimitValue()
	assert.False(t, ok)
}

func TestLastInsertID(t *testing.T) {
	ctx := context.Background()
	b, fd := newFakeBackend(t, Settings{})
	fd.on(LastAutoIncSQL, fakeResponse{
		cols:  []string{"id"},
		types: []string{"INTEGER"},
		rows:  [][]driver.Value{{int64(42)}},
	})

	cur, err := b.Cursor(ctx)
	require.NoError(t, err)
	defer cur.Close()

	id, err := b.Ops.LastInsertID(ctx, cur, "person", "id")
	require.NoError(t, err)
	assert.EqualValues(t, 42, id)
}

func TestDefaultFeatures(t *testing.T) {
	f := DefaultFeatures()
	assert.NotNil(t, f.EmptyFetchManyValue)
	assert.Empty(t, f.EmptyFetchManyValue)
	assert.True(t, f.InterpretsEmptyStringsAsNulls)
	assert.True(t, f.SupportsTransactions)
	assert.False(t, f.UsesSavepoints)
	assert.False(t, f.AllowsGroupByPK)
	assert.Equal(t, f, New(Settings{}).Features)
}
