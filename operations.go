package adsql

import (
	"context"
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// ErrTimezoneAware is returned for time values carrying a zone other than
// the local or UTC one. Advantage stores wall-clock values only.
var ErrTimezoneAware = errors.New("adsql: Advantage does not support timezone-aware datetimes")

// Operators maps ORM lookup types to the SQL applied to the right-hand
// side placeholder.
var Operators = map[string]string{
	"exact":       "= %s",
	"iexact":      "= %s",
	"contains":    `LIKE %s ESCAPE '\'`,
	"icontains":   `LIKE %s ESCAPE '\'`,
	"regex":       "REGEXP %s",
	"iregex":      "REGEXP %s",
	"gt":          "> %s",
	"gte":         ">= %s",
	"lt":          "< %s",
	"lte":         "<= %s",
	"startswith":  `LIKE %s ESCAPE '\'`,
	"istartswith": `LIKE %s ESCAPE '\'`,
	"endswith":    `LIKE %s ESCAPE '\'`,
	"iendswith":   `LIKE %s ESCAPE '\'`,
}

const MaxTableNameLength = 255

// Operations renders the SQL fragments that differ on Advantage.
type Operations struct{}

// LastAutoIncSQL reads the last autoinc value generated on the connection.
const LastAutoIncSQL = "SELECT LASTAUTOINC( connection ) from system.iota"

// DateExtractSQL returns SQL extracting lookupType ("year", "month",
// "day", "week_day", "hour", ...) from field.
func (o *Operations) DateExtractSQL(lookupType, field string) string {
	switch lookupType {
	case "week_day":
		// 1-7, Sunday=1
		return fmt.Sprintf("DAYOFWEEK(%s)", field)
	case "day":
		return fmt.Sprintf("DAYOFMONTH(%s)", field)
	}
	return fmt.Sprintf("%s(%s)", strings.ToUpper(lookupType), field)
}

var truncUnits = []string{"year", "month", "day", "hour", "minute", "second"}

// truncDefaults fill the units below the requested granularity.
var truncDefaults = []string{"0", "1", "1", "0", "0", "0"}

// DateTruncSQL returns SQL truncating field to lookupType. Units above
// and including the granularity are extracted from the field, the rest
// take their zero value. Unknown granularities return field unchanged.
func (o *Operations) DateTruncSQL(lookupType, field string) string {
	n := -1
	for i, u := range truncUnits {
		if u == lookupType {
			n = i + 1
			break
		}
	}
	if n < 0 {
		return field
	}

	parts := make([]string, len(truncUnits))
	for i, u := range truncUnits {
		if i < n {
			parts[i] = fmt.Sprintf("EXTRACT(%s FROM %s)", u, field)
		} else {
			parts[i] = truncDefaults[i]
		}
	}
	// milliseconds are not provided, always zero
	return fmt.Sprintf("CREATETIMESTAMP( %s, 0 )", strings.Join(parts, ","))
}

// DropForeignKeySQL is empty: foreign keys are never created.
func (o *Operations) DropForeignKeySQL() string {
	return ""
}

// ForceNoOrdering returns no ordering; Advantage returns records in
// natural order.
func (o *Operations) ForceNoOrdering() []string {
	return nil
}

// FulltextSearchSQL returns a WHERE fragment with a "%s" placeholder for
// the searched value.
func (o *Operations) FulltextSearchSQL(field string) string {
	return fmt.Sprintf("CONTAINS(%s, %%s)", field)
}

// LastInsertID returns the autoinc value generated by the last insert on
// the cursor's connection.
func (o *Operations) LastInsertID(ctx context.Context, c *Cursor, table, pk string) (int64, error) {
	if err := c.Execute(ctx, LastAutoIncSQL); err != nil {
		return 0, errors.Wrapf(err, "reading last autoinc of %s.%s", table, pk)
	}
	row, err := c.FetchOne()
	if err != nil {
		return 0, err
	}
	if len(row) == 0 {
		return 0, errors.Errorf("adsql: no autoinc value for %s.%s", table, pk)
	}
	return toInt64(row[0])
}

// MaxNameLength is the longest column name; table names may be longer.
func (o *Operations) MaxNameLength() int {
	return 128
}

// NoLimitValue reports that the limit clause can be omitted instead of
// passing an infinite limit.
func (o *Operations) NoLimitValue() (int64, bool) {
	return 0, false
}

// LimitOffsetSQL returns the select-list prefix that limits a result
// set. A negative limit means no limit.
func (o *Operations) LimitOffsetSQL(limit, offset int64) string {
	var parts []string
	if limit >= 0 {
		parts = append(parts, fmt.Sprintf("TOP %d", limit))
	}
	if offset > 0 {
		if limit < 0 {
			// START AT requires TOP
			parts = append(parts, fmt.Sprintf("TOP %d", int64(^uint32(0)>>1)))
		}
		parts = append(parts, fmt.Sprintf("START AT %d", offset+1))
	}
	return strings.Join(parts, " ")
}

func (o *Operations) PrepForIexactQuery(x string) string {
	return x
}

// QuoteName double quotes a table, index or column name unless it is
// already quoted.
func (o *Operations) QuoteName(name string) string {
	if strings.HasPrefix(name, `"`) && strings.HasSuffix(name, `"`) {
		return name
	}
	return `"` + name + `"`
}

// SQuoteName single quotes a name for use as a system procedure
// argument unless it is already quoted.
func (o *Operations) SQuoteName(name string) string {
	if strings.HasPrefix(name, "'") && strings.HasSuffix(name, "'") {
		return name
	}
	return "'" + strings.Replace(name, "'", "''", -1) + "'"
}

// RegexLookup always fails: Advantage has no regular expressions.
func (o *Operations) RegexLookup(lookupType string) (string, error) {
	return "", errors.Wrapf(ErrNotSupported, "%s lookup: Advantage does not support regular expressions", lookupType)
}

func (o *Operations) RandomFunctionSQL() string {
	return "RAND()"
}

func (o *Operations) SavepointCreateSQL(sid string) string {
	return "SAVEPOINT " + sid
}

// SavepointCommitSQL commits the whole transaction; Advantage cannot
// release a single savepoint.
func (o *Operations) SavepointCommitSQL(sid string) string {
	return "COMMIT"
}

func (o *Operations) SavepointRollbackSQL(sid string) string {
	return "ROLLBACK TO SAVEPOINT " + sid
}

// SQLFlush returns the statements removing every row from tables while
// keeping the tables. Packing the emptied table resets autoinc values.
func (o *Operations) SQLFlush(style Style, tables, sequences []string) []string {
	if len(tables) == 0 {
		return nil
	}
	if style == nil {
		style = PlainStyle{}
	}
	stmts := make([]string, 0, 2*len(tables))
	for _, t := range tables {
		stmts = append(stmts,
			fmt.Sprintf("%s %s %s;", style.Keyword("DELETE"), style.Keyword("FROM"), style.Table(o.QuoteName(t))),
			fmt.Sprintf("%s %s( %s );", style.Keyword("EXECUTE PROCEDURE"), "sp_PackTable", style.Table(o.SQuoteName(t))),
		)
	}
	return stmts
}

func zoneAware(t time.Time) bool {
	loc := t.Location()
	return loc != time.Local && loc != time.UTC
}

func formatMicros(t time.Time, layout string) string {
	s := t.Format(layout)
	if us := t.Nanosecond() / 1000; us != 0 {
		s += fmt.Sprintf(".%06d", us)
	}
	return s
}

// ValueToDBDatetime renders t for a TIMESTAMP column. A nil t is NULL.
func (o *Operations) ValueToDBDatetime(t *time.Time) (driver.Value, error) {
	if t == nil {
		return nil, nil
	}
	if zoneAware(*t) {
		return nil, errors.Wrapf(ErrTimezoneAware, "zone %s", t.Location())
	}
	return formatMicros(*t, "2006-01-02 15:04:05"), nil
}

func (o *Operations) ValueToDBTime(t *time.Time) (driver.Value, error) {
	if t == nil {
		return nil, nil
	}
	if zoneAware(*t) {
		return nil, errors.Wrapf(ErrTimezoneAware, "zone %s", t.Location())
	}
	return formatMicros(*t, "15:04:05"), nil
}

func (o *Operations) Operator(lookupType string) (string, error) {
	op, ok := Operators[lookupType]
	if !ok {
		return "", errors.Errorf("adsql: unknown lookup type %q", lookupType)
	}
	return op, nil
}

func toInt64(v interface{}) (int64, error) {
	switch x := v.(type) {
	case int64:
		return x, nil
	case int32:
		return int64(x), nil
	case int:
		return int64(x), nil
	case float64:
		return int64(x), nil
	case []byte:
		return strconv.ParseInt(strings.TrimSpace(string(x)), 10, 64)
	case string:
		return strconv.ParseInt(strings.TrimSpace(x), 10, 64)
	}
	return 0, errors.Errorf("adsql: unexpected value %T for an integer", v)
}
