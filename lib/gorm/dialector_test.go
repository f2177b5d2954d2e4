package gormads

import (
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/jakoblorz/adsql"
	adssqlite "github.com/jakoblorz/adsql/lib/go-sqlite3"
)

type Person struct {
	ID     int64  `gorm:"primaryKey;autoIncrement:false"`
	First  string `gorm:"size:20;uniqueIndex:first_last"`
	Last   string `gorm:"size:20;uniqueIndex:first_last"`
	Rank   int16
	Bio    string
	Active bool
}

func openDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(Open(adsql.Settings{Driver: adssqlite.QMarkDriverName, Name: ":memory:"}), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// one in-memory database per connection
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { assert.NoError(t, sqlDB.Close()) })
	return db
}

func TestDataTypes(t *testing.T) {
	db := openDB(t)
	stmt := &gorm.Statement{DB: db}
	require.NoError(t, stmt.Parse(&Person{}))

	types := map[string]string{}
	for _, f := range stmt.Schema.Fields {
		types[f.DBName] = db.Dialector.DataTypeOf(f)
	}
	assert.Equal(t, map[string]string{
		"id":     "integer",
		"first":  "nvarchar(20)",
		"last":   "nvarchar(20)",
		"rank":   "short",
		"bio":    "nmemo",
		"active": "logical",
	}, types)
}

func TestLimitOffsetBecomesTop(t *testing.T) {
	db := openDB(t)
	dry := db.Session(&gorm.Session{DryRun: true})

	stmt := dry.Limit(5).Offset(10).Find(&[]Person{}).Statement
	assert.Equal(t, `SELECT TOP 5 START AT 11 * FROM "people"`, strings.TrimSpace(stmt.SQL.String()))

	stmt = dry.Distinct("first").Limit(1).Find(&[]Person{}).Statement
	assert.Equal(t, `SELECT DISTINCT TOP 1 "first" FROM "people"`, strings.TrimSpace(stmt.SQL.String()))

	stmt = dry.Where("first = ?", "Ada").Find(&[]Person{}).Statement
	assert.Equal(t, `SELECT * FROM "people" WHERE first = ?`, stmt.SQL.String())
}

func TestCreateAndDuplicate(t *testing.T) {
	db := openDB(t)
	require.NoError(t, db.Migrator().CreateTable(&Person{}))

	require.NoError(t, db.Create(&Person{ID: 1, First: "Ada", Last: "Lovelace"}).Error)
	require.NoError(t, db.Create(&Person{ID: 2, First: "Ada", Last: "Byron", Active: true}).Error)

	err := db.Create(&Person{ID: 3, First: "Ada", Last: "Lovelace"}).Error
	assert.True(t, errors.Is(err, gorm.ErrDuplicatedKey), "got %v", err)

	var people []Person
	require.NoError(t, db.Where(`"last" = ?`, "Byron").Find(&people).Error)
	require.Len(t, people, 1)
	assert.EqualValues(t, 2, people[0].ID)
	assert.True(t, people[0].Active)
}

func TestMigratorReadsSystemTables(t *testing.T) {
	db := openDB(t)
	require.NoError(t, db.Migrator().CreateTable(&Person{}))

	// stand-in for the Advantage catalog
	require.NoError(t, db.Exec(`ATTACH DATABASE ':memory:' AS system`).Error)
	require.NoError(t, db.Exec(`CREATE TABLE system.tables (name TEXT)`).Error)
	require.NoError(t, db.Exec(`CREATE TABLE system.columns (parent TEXT, name TEXT)`).Error)
	require.NoError(t, db.Exec(`CREATE TABLE system.indexes (parent TEXT, name TEXT)`).Error)
	require.NoError(t, db.Exec(`INSERT INTO system.tables VALUES ('people')`).Error)
	require.NoError(t, db.Exec(`INSERT INTO system.columns VALUES ('people', 'first'), ('people', 'last')`).Error)
	require.NoError(t, db.Exec(`INSERT INTO system.indexes VALUES ('people', 'first_last')`).Error)

	m := db.Migrator()
	assert.True(t, m.HasTable(&Person{}))
	assert.True(t, m.HasTable("people"))
	assert.False(t, m.HasTable("animals"))

	assert.True(t, m.HasColumn(&Person{}, "First"))
	assert.False(t, m.HasColumn(&Person{}, "bio"))

	assert.True(t, m.HasIndex(&Person{}, "first_last"))
	assert.False(t, m.HasIndex(&Person{}, "idx_people_bio"))

	tables, err := m.GetTables()
	require.NoError(t, err)
	assert.Equal(t, []string{"people"}, tables)
}

func TestTranslate(t *testing.T) {
	d := Dialector{}
	integrity := &adsql.Error{Kind: adsql.KindIntegrity, Code: 1048, Message: "duplicate"}
	assert.Equal(t, gorm.ErrDuplicatedKey, d.Translate(integrity))
	assert.Equal(t, gorm.ErrNotImplemented, d.Translate(errors.Wrap(adsql.ErrNotSupported, "regex")))

	other := errors.New("boom")
	assert.Equal(t, other, d.Translate(other))
}

func TestQuoteTo(t *testing.T) {
	db := openDB(t)
	assert.Equal(t, `"people"."first"`, db.Statement.Quote("people.first"))
	assert.Equal(t, `"people"`, db.Statement.Quote(`"people"`))
}
