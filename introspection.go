package adsql

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

const selectTableNamesSQL = "SELECT name FROM system.tables"

const selectIndexesSQL = `
SELECT ix.name,
       ix.index_expression,
       IIF( ix.index_options & 1 = 1, 1, 0 ) as unq,
       (SELECT IIF( table_primary_key = ix.name, 1, 0 )
          FROM system.tables
         WHERE name = %[1]s) as pk
  FROM system.indexes ix WHERE parent = %[1]s`

// Catalog holds the schema queries run by Introspection. DescribeSQL is
// formatted with the quoted table name, IndexesSQL with the single
// quoted one. Index rows are name, column expression, unique (0/1) and
// primary key (0/1).
type Catalog struct {
	TableNamesSQL string
	DescribeSQL   string
	IndexesSQL    string
}

// DefaultCatalog reads the Advantage system tables.
func DefaultCatalog() Catalog {
	return Catalog{
		TableNamesSQL: selectTableNamesSQL,
		DescribeSQL:   "SELECT TOP 1 * FROM %s",
		IndexesSQL:    selectIndexesSQL,
	}
}

type FieldType string

const (
	AutoField                  FieldType = "AutoField"
	BooleanField               FieldType = "BooleanField"
	NullBooleanField           FieldType = "NullBooleanField"
	CharField                  FieldType = "CharField"
	CommaSeparatedIntegerField FieldType = "CommaSeparatedIntegerField"
	DateField                  FieldType = "DateField"
	DateTimeField              FieldType = "DateTimeField"
	DecimalField               FieldType = "DecimalField"
	FileField                  FieldType = "FileField"
	FilePathField              FieldType = "FilePathField"
	FloatField                 FieldType = "FloatField"
	IntegerField               FieldType = "IntegerField"
	BigIntegerField            FieldType = "BigIntegerField"
	IPAddressField             FieldType = "IPAddressField"
	OneToOneField              FieldType = "OneToOneField"
	ForeignKey                 FieldType = "ForeignKey"
	PhoneNumberField           FieldType = "PhoneNumberField"
	PositiveIntegerField       FieldType = "PositiveIntegerField"
	PositiveSmallIntegerField  FieldType = "PositiveSmallIntegerField"
	SlugField                  FieldType = "SlugField"
	SmallIntegerField          FieldType = "SmallIntegerField"
	TextField                  FieldType = "TextField"
	TimeField                  FieldType = "TimeField"
	USStateField               FieldType = "USStateField"
	BlobField                  FieldType = "BlobField"
)

// DataTypesReverse maps native column types to the field type an
// inspected column is modelled with.
var DataTypesReverse = map[TypeCode]FieldType{
	TypeDate:         DateField,
	TypeTime:         TimeField,
	TypeTimestamp:    DateTimeField,
	TypeVarchar:      CharField,
	TypeFixchar:      CharField,
	TypeLongVarchar:  TextField,
	TypeString:       CharField,
	TypeDouble:       FloatField,
	TypeFloat:        FloatField,
	TypeDecimal:      DecimalField,
	TypeInt:          IntegerField,
	TypeSmallInt:     IntegerField,
	TypeBinary:       BlobField,
	TypeLongBinary:   BlobField,
	TypeTinyInt:      IntegerField,
	TypeBigInt:       BigIntegerField,
	TypeUnsInt:       IntegerField,
	TypeUnsSmallInt:  IntegerField,
	TypeUnsBigInt:    BigIntegerField,
	TypeBit:          NullBooleanField,
	TypeLongNVarchar: TextField,
	TypeNString:      CharField,
	TypeNFixchar:     CharField,
	TypeNVarchar:     CharField,
}

type IndexInfo struct {
	PrimaryKey bool
	Unique     bool
}

type Relation struct {
	OtherColumn int
	OtherTable  string
}

// Introspection reads the schema from the Advantage system tables.
type Introspection struct {
	b *Backend
}

func (i *Introspection) catalog() Catalog {
	if d, ok := i.b.wrapped(); ok {
		return d.Catalog()
	}
	return DefaultCatalog()
}

func (i *Introspection) query(ctx context.Context, c *Cursor, query string) ([][]interface{}, error) {
	if err := c.Execute(ctx, query); err != nil {
		return nil, err
	}
	return c.FetchAll()
}

func (i *Introspection) TableNames(ctx context.Context, c *Cursor) ([]string, error) {
	rows, err := i.query(ctx, c, i.catalog().TableNamesSQL)
	if err != nil {
		return nil, errors.Wrap(err, "listing tables")
	}
	names := make([]string, 0, len(rows))
	for _, row := range rows {
		names = append(names, strings.TrimSpace(asString(row[0])))
	}
	return names, nil
}

func (i *Introspection) TableDescription(ctx context.Context, c *Cursor, table string) ([]ColumnDescription, error) {
	query := fmt.Sprintf(i.catalog().DescribeSQL, i.b.Ops.QuoteName(table))
	if err := c.Execute(ctx, query); err != nil {
		return nil, errors.Wrapf(err, "describing %s", table)
	}
	return c.Description(), nil
}

func (i *Introspection) NameToIndex(ctx context.Context, c *Cursor, table string) (map[string]int, error) {
	desc, err := i.TableDescription(ctx, c, table)
	if err != nil {
		return nil, err
	}
	idx := make(map[string]int, len(desc))
	for n, d := range desc {
		idx[d.Name] = n
	}
	return idx, nil
}

// Relations is not supported: relations are never created on Advantage.
func (i *Introspection) Relations(ctx context.Context, c *Cursor, table string) (map[int]Relation, error) {
	return nil, errors.Wrapf(ErrNotSupported, "relations of %s", table)
}

// Indexes maps each indexed column expression of table to its index
// attributes.
func (i *Introspection) Indexes(ctx context.Context, c *Cursor, table string) (map[string]IndexInfo, error) {
	rows, err := i.query(ctx, c, fmt.Sprintf(i.catalog().IndexesSQL, i.b.Ops.SQuoteName(table)))
	if err != nil {
		return nil, errors.Wrapf(err, "listing indexes of %s", table)
	}

	indexes := make(map[string]IndexInfo, len(rows))
	for _, row := range rows {
		if len(row) < 4 {
			return nil, errors.Errorf("adsql: index row has %d columns", len(row))
		}
		unique, uerr := toInt64(row[2])
		pk, perr := toInt64(row[3])
		if err := multierr.Combine(uerr, perr); err != nil {
			return nil, errors.Wrapf(err, "reading index %s", asString(row[0]))
		}
		indexes[strings.TrimSpace(asString(row[1]))] = IndexInfo{
			PrimaryKey: pk == 1,
			Unique:     unique == 1,
		}
	}
	return indexes, nil
}

func (i *Introspection) FieldType(col ColumnDescription) (FieldType, error) {
	ft, ok := DataTypesReverse[col.TypeCode]
	if !ok {
		return "", errors.Errorf("adsql: no field type for column %s of type %q", col.Name, col.TypeName)
	}
	return ft, nil
}

func asString(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	}
	return fmt.Sprint(v)
}
