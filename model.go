package adsql

// ManyToManyField has no column of its own.
const ManyToManyField FieldType = "ManyToManyField"

// Rel describes the target of a relation field.
type Rel struct {
	Table  string `yaml:"table"`
	Column string `yaml:"column"`
}

type Field struct {
	Name string `yaml:"name"`
	// Column defaults to Name.
	Column string    `yaml:"column"`
	Type   FieldType `yaml:"type"`

	MaxLength     int `yaml:"max_length"`
	MaxDigits     int `yaml:"max_digits"`
	DecimalPlaces int `yaml:"decimal_places"`

	Null       bool `yaml:"null"`
	Unique     bool `yaml:"unique"`
	PrimaryKey bool `yaml:"primary_key"`
	DBIndex    bool `yaml:"db_index"`

	Rel *Rel `yaml:"rel"`
}

func (f Field) ColumnName() string {
	if f.Column != "" {
		return f.Column
	}
	return f.Name
}

// Model describes the table backing an ORM model.
type Model struct {
	Table  string  `yaml:"table"`
	Fields []Field `yaml:"fields"`
	// UniqueTogether lists groups of field names whose combined values
	// must be unique.
	UniqueTogether [][]string `yaml:"unique_together"`
}

// Field looks a field up by name, then by column.
func (m Model) Field(name string) (Field, bool) {
	for _, f := range m.Fields {
		if f.Name == name {
			return f, true
		}
	}
	for _, f := range m.Fields {
		if f.ColumnName() == name {
			return f, true
		}
	}
	return Field{}, false
}

func (m Model) PrimaryKey() (Field, bool) {
	for _, f := range m.Fields {
		if f.PrimaryKey {
			return f, true
		}
	}
	return Field{}, false
}
