package adsql

import (
	"database/sql/driver"
	"io"
	"reflect"

	"go.uber.org/multierr"
)

// Rows applies the registered converters to every value read from the
// native result set.
type Rows struct {
	d    *Driver
	r    driver.Rows
	stmt driver.Stmt

	convs []Converter
}

var (
	_ driver.RowsColumnTypeDatabaseTypeName = (*Rows)(nil)
	_ driver.RowsColumnTypeLength           = (*Rows)(nil)
	_ driver.RowsColumnTypeNullable         = (*Rows)(nil)
	_ driver.RowsColumnTypePrecisionScale   = (*Rows)(nil)
	_ driver.RowsColumnTypeScanType         = (*Rows)(nil)
)

// newRows wraps r. stmt, when set, is closed together with the rows.
func newRows(d *Driver, r driver.Rows, stmt driver.Stmt) *Rows {
	rows := &Rows{d: d, r: r, stmt: stmt}
	rows.convs = make([]Converter, len(r.Columns()))
	for i := range rows.convs {
		rows.convs[i] = d.converters[d.typeCode(rows.ColumnTypeDatabaseTypeName(i))]
	}
	return rows
}

func (r *Rows) Columns() []string {
	return r.r.Columns()
}

func (r *Rows) Close() error {
	err := r.r.Close()
	if r.stmt != nil {
		err = multierr.Append(err, r.stmt.Close())
		r.stmt = nil
	}
	return err
}

func (r *Rows) Next(dest []driver.Value) error {
	if err := r.r.Next(dest); err != nil {
		if err == io.EOF {
			return err
		}
		return r.d.classifier.classify(err)
	}
	for i, conv := range r.convs {
		if conv == nil || i >= len(dest) {
			continue
		}
		v, err := conv(dest[i])
		if err != nil {
			return err
		}
		dest[i] = v
	}
	return nil
}

func (r *Rows) ColumnTypeDatabaseTypeName(index int) string {
	if t, ok := r.r.(driver.RowsColumnTypeDatabaseTypeName); ok {
		return t.ColumnTypeDatabaseTypeName(index)
	}
	return ""
}

func (r *Rows) ColumnTypeLength(index int) (int64, bool) {
	if t, ok := r.r.(driver.RowsColumnTypeLength); ok {
		return t.ColumnTypeLength(index)
	}
	return 0, false
}

func (r *Rows) ColumnTypeNullable(index int) (bool, bool) {
	if t, ok := r.r.(driver.RowsColumnTypeNullable); ok {
		return t.ColumnTypeNullable(index)
	}
	return false, false
}

func (r *Rows) ColumnTypePrecisionScale(index int) (int64, int64, bool) {
	if t, ok := r.r.(driver.RowsColumnTypePrecisionScale); ok {
		return t.ColumnTypePrecisionScale(index)
	}
	return 0, 0, false
}

var anyType = reflect.TypeOf((*interface{})(nil)).Elem()

func (r *Rows) ColumnTypeScanType(index int) reflect.Type {
	if r.convs[index] != nil {
		return anyType
	}
	if t, ok := r.r.(driver.RowsColumnTypeScanType); ok {
		return t.ColumnTypeScanType(index)
	}
	return anyType
}
