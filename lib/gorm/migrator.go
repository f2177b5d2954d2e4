package gormads

import (
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/migrator"
)

// Migrator answers catalog questions from the Advantage system tables.
type Migrator struct {
	migrator.Migrator
	Dialector
}

func (m Migrator) CurrentDatabase() (name string) {
	m.DB.Raw("SELECT DATABASE() FROM system.iota").Row().Scan(&name)
	return
}

func (m Migrator) GetTables() (tableList []string, err error) {
	err = m.DB.Raw("SELECT name FROM system.tables").Scan(&tableList).Error
	return
}

func (m Migrator) HasTable(value interface{}) bool {
	var count int64
	m.RunWithValue(value, func(stmt *gorm.Statement) error {
		return m.DB.Raw("SELECT COUNT(*) FROM system.tables WHERE name = ?", stmt.Table).Row().Scan(&count)
	})
	return count > 0
}

func (m Migrator) HasColumn(value interface{}, field string) bool {
	var count int64
	m.RunWithValue(value, func(stmt *gorm.Statement) error {
		name := field
		if stmt.Schema != nil {
			if f := stmt.Schema.LookUpField(field); f != nil {
				name = f.DBName
			}
		}
		return m.DB.Raw("SELECT COUNT(*) FROM system.columns WHERE parent = ? AND name = ?", stmt.Table, name).Row().Scan(&count)
	})
	return count > 0
}

func (m Migrator) HasIndex(value interface{}, name string) bool {
	var count int64
	m.RunWithValue(value, func(stmt *gorm.Statement) error {
		if stmt.Schema != nil {
			if idx := stmt.Schema.LookIndex(name); idx != nil {
				name = idx.Name
			}
		}
		return m.DB.Raw("SELECT COUNT(*) FROM system.indexes WHERE parent = ? AND name = ?", stmt.Table, name).Row().Scan(&count)
	})
	return count > 0
}

// DropIndex uses the Advantage form, which names the table.
func (m Migrator) DropIndex(value interface{}, name string) error {
	return m.RunWithValue(value, func(stmt *gorm.Statement) error {
		if stmt.Schema != nil {
			if idx := stmt.Schema.LookIndex(name); idx != nil {
				name = idx.Name
			}
		}
		ops := m.Dialector.adapter().Ops
		return m.DB.Exec(fmt.Sprintf("DROP INDEX %s.%s", ops.QuoteName(stmt.Table), ops.QuoteName(name))).Error
	})
}
