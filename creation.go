package adsql

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

// DefaultDataTypes maps field types to Advantage column types. Templates
// are interpolated with the field's %(max_length)s, %(max_digits)s and
// %(decimal_places)s. Char types use nvarchar so that Advantage trims
// trailing spaces.
func DefaultDataTypes() map[FieldType]string {
	return map[FieldType]string{
		AutoField:                  "autoinc",
		BooleanField:               "logical",
		NullBooleanField:           "logical",
		CharField:                  "nvarchar(%(max_length)s)",
		CommaSeparatedIntegerField: "nvarchar(%(max_length)s)",
		DateField:                  "date",
		DateTimeField:              "timestamp",
		DecimalField:               "numeric(%(max_digits)s, %(decimal_places)s)",
		FileField:                  "nvarchar(%(max_length)s)",
		FilePathField:              "nvarchar(%(max_length)s)",
		FloatField:                 "double",
		IntegerField:               "integer",
		BigIntegerField:            "integer",
		IPAddressField:             "nvarchar(15)",
		OneToOneField:              "integer",
		ForeignKey:                 "integer",
		PhoneNumberField:           "nvarchar(20)",
		PositiveIntegerField:       "integer",
		PositiveSmallIntegerField:  "short",
		SlugField:                  "nvarchar(%(max_length)s)",
		SmallIntegerField:          "short",
		TextField:                  "nmemo",
		TimeField:                  "time",
		USStateField:               "nvarchar(2)",
		BlobField:                  "blob",
	}
}

// adsDataFileExts are the files making up Advantage tables, memos,
// indexes and data dictionaries.
var adsDataFileExts = map[string]bool{
	".adt": true,
	".adm": true,
	".adi": true,
	".add": true,
	".ai":  true,
	".am":  true,
}

// Creation generates DDL and manages the test database.
type Creation struct {
	b *Backend

	DataTypes map[FieldType]string

	oldName string
}

// ColumnType returns the column type of f. ok is false for fields
// without a column.
func (c *Creation) ColumnType(f Field) (string, bool) {
	tmpl, ok := c.DataTypes[f.Type]
	if !ok {
		return "", false
	}
	r := strings.NewReplacer(
		"%(max_length)s", strconv.Itoa(f.MaxLength),
		"%(max_digits)s", strconv.Itoa(f.MaxDigits),
		"%(decimal_places)s", strconv.Itoa(f.DecimalPlaces),
	)
	return r.Replace(tmpl), true
}

type tableDef struct {
	table string
	lines []string
}

func (t *tableDef) render(style Style) string {
	var b strings.Builder
	b.WriteString(style.Keyword("CREATE TABLE") + " " + t.table + " (\n")
	for i, line := range t.lines {
		b.WriteString("    " + line)
		if i < len(t.lines)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	b.WriteString(")\n;")
	return b.String()
}

func (c *Creation) uniqueColumns(m Model, names []string) ([]string, error) {
	cols := make([]string, len(names))
	for i, n := range names {
		f, ok := m.Field(n)
		if !ok {
			return nil, errors.Errorf("adsql: unique together on %s names unknown field %q", m.Table, n)
		}
		cols[i] = f.ColumnName()
	}
	return cols, nil
}

func (c *Creation) uniqueConstraint(cols []string, style Style) string {
	qn := c.b.Ops.QuoteName
	quoted := make([]string, len(cols))
	for i, col := range cols {
		quoted[i] = style.Field(qn(col))
	}
	return style.Keyword("UNIQUE") + " (" + strings.Join(quoted, ", ") + ")"
}

// baseTableDef lays the table out the way a generic SQL backend would,
// with inline UNIQUE constraints. Foreign keys are never inlined.
func (c *Creation) baseTableDef(m Model, style Style) (*tableDef, error) {
	qn := c.b.Ops.QuoteName
	def := &tableDef{table: style.Table(qn(m.Table))}

	for _, f := range m.Fields {
		colType, ok := c.ColumnType(f)
		if !ok {
			continue
		}
		parts := []string{style.Field(qn(f.ColumnName())), style.ColType(colType)}
		if !f.Null {
			parts = append(parts, style.Keyword("NOT NULL"))
		}
		if f.PrimaryKey {
			parts = append(parts, style.Keyword("PRIMARY KEY"))
		} else if f.Unique {
			parts = append(parts, style.Keyword("UNIQUE"))
		}
		def.lines = append(def.lines, strings.Join(parts, " "))
	}

	for _, group := range m.UniqueTogether {
		cols, err := c.uniqueColumns(m, group)
		if err != nil {
			return nil, err
		}
		def.lines = append(def.lines, c.uniqueConstraint(cols, style))
	}
	return def, nil
}

// uniqueSwap drops the UNIQUE constraint over cols from def and returns
// the unique index replacing it. Advantage has no multi-column UNIQUE
// constraints.
func (c *Creation) uniqueSwap(def *tableDef, table string, cols []string, style Style) (string, bool) {
	constraint := c.uniqueConstraint(cols, style)
	for i, line := range def.lines {
		if line != constraint {
			continue
		}
		def.lines = append(def.lines[:i], def.lines[i+1:]...)

		qn := c.b.Ops.QuoteName
		quoted := make([]string, len(cols))
		for j, col := range cols {
			quoted[j] = style.Field(qn(col))
		}
		return fmt.Sprintf("%s %s %s %s (%s);",
			style.Keyword("CREATE UNIQUE INDEX"),
			style.Field(qn(strings.Join(cols, "_"))),
			style.Keyword("ON"),
			style.Table(qn(table)),
			strings.Join(quoted, ", ")), true
	}
	return "", false
}

// CreateModelSQL returns the statements creating the table of m and the
// unique indexes standing in for unique constraints.
func (c *Creation) CreateModelSQL(m Model, style Style) ([]string, error) {
	if style == nil {
		style = PlainStyle{}
	}
	qn := c.b.Ops.QuoteName

	fields := make([]Field, len(m.Fields))
	copy(fields, m.Fields)
	var uniqueNullable []Field
	for i := range fields {
		if c.b.Settings.IsADT() {
			// ADT columns are always created nullable
			fields[i].Null = true
		}
		if fields[i].Unique && fields[i].Null {
			uniqueNullable = append(uniqueNullable, fields[i])
			fields[i].Unique = false
		}
	}
	local := m
	local.Fields = fields

	def, err := c.baseTableDef(local, style)
	if err != nil {
		return nil, err
	}

	var indexes []string
	for _, group := range m.UniqueTogether {
		cols, err := c.uniqueColumns(local, group)
		if err != nil {
			return nil, err
		}
		if idx, ok := c.uniqueSwap(def, m.Table, cols, style); ok {
			indexes = append(indexes, idx)
		}
	}

	out := []string{def.render(style)}
	for _, f := range uniqueNullable {
		// primary keys get a unique index of their own
		if f.PrimaryKey {
			continue
		}
		out = append(out, fmt.Sprintf("CREATE UNIQUE INDEX %s_%s_UNIQUE on %s(%s);",
			m.Table, f.ColumnName(), qn(m.Table), qn(f.ColumnName())))
	}
	return append(out, indexes...), nil
}

func (c *Creation) IndexesForModelSQL(m Model, style Style) []string {
	if style == nil {
		style = PlainStyle{}
	}
	qn := c.b.Ops.QuoteName
	var out []string
	for _, f := range m.Fields {
		if !f.DBIndex || f.Unique || f.PrimaryKey {
			continue
		}
		if _, ok := c.ColumnType(f); !ok {
			continue
		}
		out = append(out, fmt.Sprintf("%s %s %s %s (%s);",
			style.Keyword("CREATE INDEX"),
			style.Table(qn(m.Table+"_"+f.ColumnName())),
			style.Keyword("ON"),
			style.Table(qn(m.Table)),
			style.Field(qn(f.ColumnName()))))
	}
	return out
}

func (c *Creation) DestroyModelSQL(m Model, style Style) []string {
	if style == nil {
		style = PlainStyle{}
	}
	return []string{fmt.Sprintf("%s %s;", style.Keyword("DROP TABLE"), style.Table(c.b.Ops.QuoteName(m.Table)))}
}

// InlineManyToManyReferences returns the column lines of an
// auto-created join table between m and the target of f.
func (c *Creation) InlineManyToManyReferences(m Model, f Field, style Style) []string {
	if style == nil {
		style = PlainStyle{}
	}
	if f.Rel == nil {
		return nil
	}
	qn := c.b.Ops.QuoteName
	colType, _ := c.ColumnType(Field{Type: ForeignKey})
	return []string{
		fmt.Sprintf("    %s %s,", style.Field(qn(m.Table+"_id")), style.ColType(colType)),
		fmt.Sprintf("    %s %s,", style.Field(qn(f.Rel.Table+"_id")), style.ColType(colType)),
	}
}

// ManyToManyFieldSQL returns nothing: relations are not created on
// Advantage.
func (c *Creation) ManyToManyFieldSQL(m Model, f Field, style Style) []string {
	return nil
}

// PendingReferencesSQL returns nothing: Advantage tables get no foreign
// key constraints.
func (c *Creation) PendingReferencesSQL(m Model, style Style) []string {
	return nil
}

func (c *Creation) RemoveTableConstraintsSQL(m Model, style Style) []string {
	return nil
}

// CreateTestDB wipes the Advantage files in the data directory, creates
// a fresh data dictionary there and points the backend at it.
func (c *Creation) CreateTestDB(ctx context.Context) (string, error) {
	name := c.b.Settings.TestName
	if name == "" {
		name = DefaultTestName
	}
	dir := c.b.Settings.Name
	logger := log.WithFields(log.Fields{"dir": dir, "test_db": name})

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", errors.Wrapf(err, "reading data directory %s", dir)
	}
	for _, e := range entries {
		if e.IsDir() || !adsDataFileExts[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		if err := os.Remove(filepath.Join(dir, e.Name())); err != nil {
			return "", errors.Wrapf(err, "removing %s", e.Name())
		}
	}

	cur, err := c.b.Cursor(ctx)
	if err != nil {
		return "", err
	}
	err = cur.Execute(ctx, fmt.Sprintf("CREATE DATABASE [%s];", name))
	if err = multierr.Append(err, cur.Close()); err != nil {
		logger.WithError(err).Error("Got an error creating the test database")
		return "", errors.Wrap(err, "creating test database")
	}

	if err := c.b.Close(); err != nil {
		return "", err
	}
	c.oldName = dir
	c.b.Settings.Name = filepath.Join(dir, name)
	logger.Info("Created test database")
	return name, nil
}

// DestroyTestDB disconnects from the test database and points the
// backend back at the original data source.
func (c *Creation) DestroyTestDB(ctx context.Context, name string) error {
	err := c.b.Close()
	if c.oldName != "" {
		c.b.Settings.Name = c.oldName
		c.oldName = ""
	}
	log.WithField("test_db", name).Info("Destroyed test database")
	return err
}

// RollbackWorks reports whether rolled back inserts are undone, which
// depends on the table type.
func (c *Creation) RollbackWorks(ctx context.Context) (ok bool, err error) {
	exec := func(query string) error {
		cur, err := c.b.Cursor(ctx)
		if err != nil {
			return err
		}
		return multierr.Append(cur.Execute(ctx, query), cur.Close())
	}

	if err := exec("CREATE TABLE ROLLBACK_TEST (X INTEGER)"); err != nil {
		return false, err
	}
	defer func() {
		err = multierr.Append(err, exec("DROP TABLE ROLLBACK_TEST"))
	}()

	if err := c.b.Begin(ctx); err != nil {
		return false, err
	}
	if err := exec("INSERT INTO ROLLBACK_TEST (X) VALUES (8)"); err != nil {
		return false, multierr.Append(err, c.b.Rollback())
	}
	if err := c.b.Rollback(); err != nil {
		return false, err
	}

	cur, err := c.b.Cursor(ctx)
	if err != nil {
		return false, err
	}
	defer func() { err = multierr.Append(err, cur.Close()) }()
	if err := cur.Execute(ctx, "SELECT COUNT(X) FROM ROLLBACK_TEST"); err != nil {
		return false, err
	}
	row, err := cur.FetchOne()
	if err != nil {
		return false, err
	}
	if len(row) == 0 {
		return false, errors.New("adsql: no row counting ROLLBACK_TEST")
	}
	n, err := toInt64(row[0])
	if err != nil {
		return false, err
	}
	return n == 0, nil
}
