package adsql

import (
	"database/sql/driver"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

type TypeCode int

const (
	TypeNoType TypeCode = iota
	TypeDate
	TypeTime
	TypeTimestamp
	TypeVarchar
	TypeFixchar
	TypeLongVarchar
	TypeString
	TypeDouble
	TypeFloat
	TypeDecimal
	TypeInt
	TypeSmallInt
	TypeBinary
	TypeLongBinary
	TypeTinyInt
	TypeBigInt
	TypeUnsInt
	TypeUnsSmallInt
	TypeUnsBigInt
	TypeBit
	TypeLongNVarchar
	TypeNString
	TypeNFixchar
	TypeNVarchar
)

// typeNames maps the SQL type names reported by the Advantage client to
// their type code.
var typeNames = map[string]TypeCode{
	"DATE":       TypeDate,
	"TIME":       TypeTime,
	"TIMESTAMP":  TypeTimestamp,
	"MODTIME":    TypeTimestamp,
	"VARCHAR":    TypeVarchar,
	"VARCHARFOX": TypeVarchar,
	"CHAR":       TypeFixchar,
	"CICHAR":     TypeFixchar,
	"MEMO":       TypeLongVarchar,
	"STRING":     TypeString,
	"DOUBLE":     TypeDouble,
	"CURDOUBLE":  TypeDouble,
	"FLOAT":      TypeFloat,
	"NUMERIC":    TypeDecimal,
	"DECIMAL":    TypeDecimal,
	"MONEY":      TypeDecimal,
	"INTEGER":    TypeInt,
	"AUTOINC":    TypeInt,
	"SHORT":      TypeSmallInt,
	"SHORTINT":   TypeSmallInt,
	"SMALLINT":   TypeSmallInt,
	"BINARY":     TypeBinary,
	"RAW":        TypeBinary,
	"VARBINARY":  TypeBinary,
	"BLOB":       TypeLongBinary,
	"IMAGE":      TypeLongBinary,
	"TINYINT":    TypeTinyInt,
	"BIGINT":     TypeBigInt,
	"ROWVERSION": TypeBigInt,
	"LOGICAL":    TypeBit,
	"BIT":        TypeBit,
	"NMEMO":      TypeLongNVarchar,
	"NSTRING":    TypeNString,
	"NCHAR":      TypeNFixchar,
	"NVARCHAR":   TypeNVarchar,
}

// TypeCodeOf returns the type code for a database type name, or
// TypeNoType when the name is unknown.
func TypeCodeOf(name string) TypeCode {
	return typeCodeIn(typeNames, name)
}

func typeCodeIn(names map[string]TypeCode, name string) TypeCode {
	name = strings.ToUpper(strings.TrimSpace(name))
	if i := strings.IndexByte(name, '('); i >= 0 {
		name = strings.TrimSpace(name[:i])
	}
	if code, ok := names[name]; ok {
		return code
	}
	return TypeNoType
}

// Converter turns a value read from the native driver into the value
// handed to database/sql.
type Converter func(v driver.Value) (driver.Value, error)

var (
	timestampLayouts = []string{"2006-01-02 15:04:05", "2006-01-02T15:04:05", "2006-01-02"}
	dateLayouts      = []string{"2006-01-02", "01/02/2006"}
	timeLayouts      = []string{"15:04:05", "15:04"}
)

func defaultConverters() map[TypeCode]Converter {
	return map[TypeCode]Converter{
		TypeTimestamp: ConvertTimestamp,
		TypeDate:      ConvertDate,
		TypeTime:      ConvertTime,
		TypeDecimal:   ConvertDecimal,
		TypeBit:       ConvertBit,
	}
}

func parseWallTime(v driver.Value, layouts []string) (driver.Value, error) {
	var s string
	switch x := v.(type) {
	case nil, time.Time:
		return v, nil
	case string:
		s = x
	case []byte:
		s = string(x)
	default:
		return v, nil
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return nil, errors.Errorf("adsql: cannot parse %q as a date/time value", s)
}

func ConvertTimestamp(v driver.Value) (driver.Value, error) {
	return parseWallTime(v, timestampLayouts)
}

func ConvertDate(v driver.Value) (driver.Value, error) {
	return parseWallTime(v, dateLayouts)
}

func ConvertTime(v driver.Value) (driver.Value, error) {
	return parseWallTime(v, timeLayouts)
}

// ConvertDecimal keeps the exact textual representation of a decimal.
func ConvertDecimal(v driver.Value) (driver.Value, error) {
	switch x := v.(type) {
	case []byte:
		return strings.TrimSpace(string(x)), nil
	case string:
		return strings.TrimSpace(x), nil
	}
	return v, nil
}

func ConvertBit(v driver.Value) (driver.Value, error) {
	switch x := v.(type) {
	case bool, nil:
		return v, nil
	case int64:
		return x != 0, nil
	case float64:
		return x != 0, nil
	case []byte:
		return parseBit(string(x))
	case string:
		return parseBit(x)
	}
	return v, nil
}

func parseBit(s string) (driver.Value, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "F", "N":
		return false, nil
	case "T", "Y":
		return true, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return nil, errors.Wrapf(err, "adsql: cannot parse %q as a logical value", s)
	}
	return b, nil
}
