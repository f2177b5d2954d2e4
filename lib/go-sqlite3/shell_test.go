package sqlite3

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/jakoblorz/adsql"
)

type ShellTestSuite struct {
	suite.Suite

	ctx context.Context
	b   *adsql.Backend
}

func TestShellTestSuite(t *testing.T) {
	suite.Run(t, new(ShellTestSuite))
}

func (suite *ShellTestSuite) SetupTest() {
	suite.ctx = context.Background()
	suite.b = adsql.New(adsql.Settings{Driver: DriverName, Name: ":memory:"})

	m := testModel
	m.Fields = append([]adsql.Field{}, testModel.Fields...)
	m.Fields[2].DBIndex = true

	stmts, err := suite.b.Creation.CreateModelSQL(m, nil)
	suite.NoError(err)
	stmts = append(stmts, suite.b.Creation.IndexesForModelSQL(m, nil)...)

	cur, err := suite.b.Cursor(suite.ctx)
	suite.NoError(err)
	defer cur.Close()
	for _, stmt := range stmts {
		suite.NoError(cur.Execute(suite.ctx, stmt), stmt)
	}
	suite.NoError(cur.ExecuteMany(suite.ctx,
		`INSERT INTO "person" ("id", "first", "last") VALUES (%s, %s, %s)`,
		[][]interface{}{{1, "Ada", "Lovelace"}, {2, "Alan", "Turing"}}))
}

func (suite *ShellTestSuite) TearDownTest() {
	suite.NoError(suite.b.Close())
}

func (suite *ShellTestSuite) TestIndexes() {
	cur, err := suite.b.Cursor(suite.ctx)
	suite.NoError(err)
	defer cur.Close()

	indexes, err := suite.b.Introspection.Indexes(suite.ctx, cur, "person")
	suite.NoError(err)
	suite.Equal(adsql.IndexInfo{Unique: true}, indexes["first;last"])
	suite.Equal(adsql.IndexInfo{}, indexes["last"])
}

func (suite *ShellTestSuite) TestSelect() {
	var out bytes.Buffer
	in := strings.NewReader(`SELECT "first", "last" FROM "person" WHERE "last" LIKE 'T%' ORDER BY "id";`)

	suite.NoError(suite.b.Client.RunShell(suite.ctx, in, &out))
	suite.Contains(out.String(), "Alan")
	suite.NotContains(out.String(), "Lovelace")
	suite.Contains(out.String(), "1 row(s)\n")
}

func (suite *ShellTestSuite) TestDeleteThenCount() {
	var out bytes.Buffer
	in := strings.NewReader(strings.Join([]string{
		`DELETE FROM "person"`,
		`WHERE "first" = 'Ada';`,
		`SELECT COUNT(*) AS n FROM "person";`,
		`exit;`,
	}, "\n"))

	suite.NoError(suite.b.Client.RunShell(suite.ctx, in, &out))
	suite.Contains(out.String(), "1 row(s) affected\n")
	suite.Contains(out.String(), "| n |")
}

func (suite *ShellTestSuite) TestErrorsDoNotEndSession() {
	var out bytes.Buffer
	in := strings.NewReader(strings.Join([]string{
		`SELECT * FROM "nobody";`,
		`SELECT COUNT(*) AS n FROM "person";`,
	}, "\n"))

	suite.NoError(suite.b.Client.RunShell(suite.ctx, in, &out))
	suite.Contains(out.String(), "error: ")
	suite.Contains(out.String(), "| 2 |")
}

func (suite *ShellTestSuite) TestPercentOnQMarkDriver() {
	b := adsql.New(adsql.Settings{Driver: QMarkDriverName, Name: ":memory:"})
	defer func() { suite.NoError(b.Close()) }()

	var out bytes.Buffer
	in := strings.NewReader(strings.Join([]string{
		`CREATE TABLE "p" ("last" nvarchar(10));`,
		`INSERT INTO "p" ("last") VALUES ('50%');`,
		`SELECT "last" FROM "p" WHERE "last" = '50%';`,
	}, "\n"))

	suite.NoError(b.Client.RunShell(suite.ctx, in, &out))
	suite.NotContains(out.String(), "error: ")
	suite.Contains(out.String(), " 50% ")
	suite.NotContains(out.String(), "50%%")
	suite.Contains(out.String(), "1 row(s)\n")
}
