// Package gormads lets GORM talk to Advantage through an adsql driver.
// The driver must be registered with adsql.PlaceholderQMark since GORM
// binds with ?.
package gormads

import (
	"database/sql"
	"strings"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/callbacks"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/migrator"
	"gorm.io/gorm/schema"

	"github.com/jakoblorz/adsql"
)

// maxCharLength is the longest nvarchar Advantage creates.
const maxCharLength = 65000

// Dialector implements gorm.Dialector for Advantage.
type Dialector struct {
	Settings adsql.Settings
	// Conn, when set, is used instead of opening Settings.
	Conn gorm.ConnPool

	backend *adsql.Backend
}

var (
	_ gorm.Dialector       = (*Dialector)(nil)
	_ gorm.ErrorTranslator = (*Dialector)(nil)
)

func Open(settings adsql.Settings) gorm.Dialector {
	return New(settings, nil)
}

func New(settings adsql.Settings, conn gorm.ConnPool) gorm.Dialector {
	return &Dialector{Settings: settings, Conn: conn, backend: adsql.New(settings)}
}

func (d Dialector) adapter() *adsql.Backend {
	if d.backend == nil {
		return adsql.New(d.Settings)
	}
	return d.backend
}

func (d Dialector) Name() string {
	return "ads"
}

func (d Dialector) Initialize(db *gorm.DB) (err error) {
	callbacks.RegisterDefaultCallbacks(db, &callbacks.Config{})
	// relations are never created on Advantage
	db.Config.DisableForeignKeyConstraintWhenMigrating = true

	if d.Conn != nil {
		db.ConnPool = d.Conn
	} else {
		db.ConnPool, err = sql.Open(d.Settings.Driver, d.Settings.DataSourceName())
		if err != nil {
			return errors.Wrapf(err, "opening %s", d.Settings.Driver)
		}
	}

	db.ClauseBuilders["SELECT"] = d.buildSelect
	// written by buildSelect
	db.ClauseBuilders["LIMIT"] = func(clause.Clause, clause.Builder) {}
	return nil
}

// buildSelect moves LIMIT and OFFSET into the select list, where
// Advantage expects them as TOP and START AT.
func (d Dialector) buildSelect(c clause.Clause, builder clause.Builder) {
	builder.WriteString("SELECT ")

	expr := c.Expression
	if sel, ok := expr.(clause.Select); ok && sel.Distinct {
		builder.WriteString("DISTINCT ")
		sel.Distinct = false
		expr = sel
	}
	if stmt, ok := builder.(*gorm.Statement); ok {
		if lc, ok := stmt.Clauses["LIMIT"]; ok {
			if limit, ok := lc.Expression.(clause.Limit); ok {
				n := int64(-1)
				if limit.Limit != nil {
					n = int64(*limit.Limit)
				}
				if top := d.adapter().Ops.LimitOffsetSQL(n, int64(limit.Offset)); top != "" {
					builder.WriteString(top)
					builder.WriteByte(' ')
				}
			}
		}
	}
	if expr != nil {
		expr.Build(builder)
	} else {
		builder.WriteByte('*')
	}
}

func (d Dialector) Migrator(db *gorm.DB) gorm.Migrator {
	return Migrator{
		Migrator: migrator.Migrator{Config: migrator.Config{
			DB:                          db,
			Dialector:                   d,
			CreateIndexAfterCreateTable: true,
		}},
		Dialector: d,
	}
}

// DataTypeOf maps a GORM field onto the column types used for models.
func (d Dialector) DataTypeOf(field *schema.Field) string {
	f := adsql.Field{
		Name:          field.DBName,
		MaxLength:     field.Size,
		MaxDigits:     field.Precision,
		DecimalPlaces: field.Scale,
	}
	switch field.DataType {
	case schema.Bool:
		f.Type = adsql.BooleanField
	case schema.Int, schema.Uint:
		switch {
		case field.AutoIncrement:
			f.Type = adsql.AutoField
		case field.Size > 0 && field.Size <= 16:
			f.Type = adsql.SmallIntegerField
		default:
			f.Type = adsql.IntegerField
		}
	case schema.Float:
		if field.Precision > 0 {
			f.Type = adsql.DecimalField
		} else {
			f.Type = adsql.FloatField
		}
	case schema.String:
		if field.Size > 0 && field.Size <= maxCharLength {
			f.Type = adsql.CharField
		} else {
			f.Type = adsql.TextField
		}
	case schema.Time:
		f.Type = adsql.DateTimeField
	case schema.Bytes:
		f.Type = adsql.BlobField
	default:
		return string(field.DataType)
	}
	t, _ := d.adapter().Creation.ColumnType(f)
	return t
}

func (d Dialector) DefaultValueOf(field *schema.Field) clause.Expression {
	return clause.Expr{SQL: "DEFAULT"}
}

func (d Dialector) BindVarTo(writer clause.Writer, stmt *gorm.Statement, v interface{}) {
	writer.WriteByte('?')
}

func (d Dialector) QuoteTo(writer clause.Writer, str string) {
	for i, part := range strings.Split(str, ".") {
		if i > 0 {
			writer.WriteByte('.')
		}
		writer.WriteString(d.adapter().Ops.QuoteName(part))
	}
}

func (d Dialector) Explain(sql string, vars ...interface{}) string {
	return logger.ExplainSQL(sql, nil, `'`, vars...)
}

// Translate maps adapter errors onto GORM's.
func (d Dialector) Translate(err error) error {
	switch {
	case adsql.IsIntegrity(err):
		return gorm.ErrDuplicatedKey
	case errors.Is(err, adsql.ErrNotSupported):
		return gorm.ErrNotImplemented
	}
	return err
}
