package adsql

// Style decorates generated SQL, for instance with terminal colours.
type Style interface {
	Keyword(s string) string
	Table(s string) string
	Field(s string) string
	ColType(s string) string
}

// PlainStyle leaves SQL undecorated.
type PlainStyle struct{}

func (PlainStyle) Keyword(s string) string { return s }
func (PlainStyle) Table(s string) string   { return s }
func (PlainStyle) Field(s string) string   { return s }
func (PlainStyle) ColType(s string) string { return s }
