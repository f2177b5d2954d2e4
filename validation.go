package adsql

import (
	"fmt"

	"go.uber.org/multierr"
)

// ValidationError reports a model definition Advantage cannot store.
type ValidationError struct {
	Table string
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", e.Table, e.Msg)
	}
	return fmt.Sprintf("%s.%s: %s", e.Table, e.Field, e.Msg)
}

// Validation checks models against the limits of Advantage.
type Validation struct {
	b *Backend
}

// ValidateModel returns every problem found in m, combined.
func (v *Validation) ValidateModel(m Model) error {
	var err error
	if len(m.Table) > MaxTableNameLength {
		err = multierr.Append(err, &ValidationError{
			Table: m.Table,
			Msg:   fmt.Sprintf("table name is longer than %d characters", MaxTableNameLength),
		})
	}
	if _, ok := m.PrimaryKey(); !ok {
		err = multierr.Append(err, &ValidationError{Table: m.Table, Msg: "model has no primary key"})
	}
	for _, f := range m.Fields {
		err = multierr.Append(err, v.ValidateField(m, f))
	}
	for _, group := range m.UniqueTogether {
		for _, name := range group {
			if _, ok := m.Field(name); !ok {
				err = multierr.Append(err, &ValidationError{
					Table: m.Table,
					Field: name,
					Msg:   "unique together names an unknown field",
				})
			}
		}
	}
	return err
}

func (v *Validation) ValidateField(m Model, f Field) error {
	fail := func(format string, args ...interface{}) error {
		return &ValidationError{Table: m.Table, Field: f.Name, Msg: fmt.Sprintf(format, args...)}
	}

	var err error
	if n := len(f.ColumnName()); n > v.b.Ops.MaxNameLength() {
		err = multierr.Append(err, fail("column name is longer than %d characters", v.b.Ops.MaxNameLength()))
	}
	switch f.Type {
	case CharField, CommaSeparatedIntegerField, SlugField, FileField, FilePathField:
		if f.MaxLength <= 0 {
			err = multierr.Append(err, fail("%s requires a positive max length", f.Type))
		}
	case DecimalField:
		if f.MaxDigits <= 0 {
			err = multierr.Append(err, fail("decimal requires positive max digits"))
		}
		if f.DecimalPlaces < 0 || f.DecimalPlaces > f.MaxDigits {
			err = multierr.Append(err, fail("decimal places must be between 0 and max digits"))
		}
	}
	if f.PrimaryKey && f.Null && !v.b.Settings.IsADT() {
		err = multierr.Append(err, fail("primary key cannot be null"))
	}
	if f.Rel != nil && f.Rel.Table == "" {
		err = multierr.Append(err, fail("relation has no target table"))
	}
	return err
}
