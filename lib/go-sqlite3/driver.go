// Package sqlite3 serves the Advantage adapter from SQLite for local
// development and tests.
package sqlite3

import (
	"strings"

	"github.com/jakoblorz/adsql"
	sqlite3 "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

const (
	// DriverName is the adapter taking %s placeholders.
	DriverName = "adsql-sqlite3"
	// QMarkDriverName is the adapter taking ? placeholders, for GORM.
	QMarkDriverName = "adsql-sqlite3-qmark"
)

func init() {
	Register(DriverName)
	Register(QMarkDriverName, adsql.WithPlaceholders(adsql.PlaceholderQMark))
}

func Register(name string, opts ...adsql.Option) *adsql.Driver {
	return adsql.Register(name, &sqlite3.SQLiteDriver{}, Options(opts...)...)
}

// TypeNames are SQLite declared types that Advantage does not know.
var TypeNames = map[string]adsql.TypeCode{
	"TEXT":     adsql.TypeLongVarchar,
	"REAL":     adsql.TypeDouble,
	"DATETIME": adsql.TypeTimestamp,
	"BOOLEAN":  adsql.TypeBit,
	"BOOL":     adsql.TypeBit,
	"INT":      adsql.TypeInt,
}

// Options configure an adsql.Driver wrapping SQLite.
func Options(extra ...adsql.Option) []adsql.Option {
	return append([]adsql.Option{
		adsql.WithErrorCoder(ErrorCoder),
		adsql.WithTypeNames(TypeNames),
		adsql.WithConnString(ConnString),
		adsql.WithCatalog(Catalog),
	}, extra...)
}

// ErrorCoder reports SQLite errors the way the Advantage client does:
// violated constraints surface as operational errors with code 1048.
func ErrorCoder(err error) (int, adsql.Kind, bool) {
	var se sqlite3.Error
	if !errors.As(err, &se) {
		return 0, adsql.KindDatabase, false
	}
	switch se.Code {
	case sqlite3.ErrConstraint:
		return adsql.IntegrityErrorCodes[0], adsql.KindOperational, true
	case sqlite3.ErrMismatch, sqlite3.ErrTooBig, sqlite3.ErrRange:
		return int(se.ExtendedCode), adsql.KindData, true
	case sqlite3.ErrError, sqlite3.ErrMisuse:
		return int(se.ExtendedCode), adsql.KindProgramming, true
	case sqlite3.ErrInternal, sqlite3.ErrCorrupt, sqlite3.ErrNomem:
		return int(se.ExtendedCode), adsql.KindInternal, true
	}
	return int(se.ExtendedCode), adsql.KindOperational, true
}

// ConnString extracts the database file from an Advantage connection
// string. Plain SQLite DSNs are returned as is.
func ConnString(dsn string) string {
	if !strings.Contains(strings.ToLower(dsn), "datasource=") {
		return dsn
	}
	for _, part := range strings.Split(dsn, ";") {
		k, v, ok := strings.Cut(part, "=")
		if ok && strings.EqualFold(strings.TrimSpace(k), "DataSource") {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
