package adsql

import (
	"sort"
	"strings"
)

// Table types understood by Advantage.
const (
	TableTypeADT = "ADT"
	TableTypeCDX = "CDX"
	TableTypeVFP = "VFP"
)

// DefaultTestName is the data dictionary created for test runs.
const DefaultTestName = "test_ads.add"

// Settings describe how to reach one Advantage database.
type Settings struct {
	// Driver is the sql.Register name of a wrapped native driver.
	Driver string `yaml:"driver" validate:"nonzero"`
	// Name is the data source: a data dictionary (.add) or a directory of
	// free tables.
	Name     string `yaml:"name" validate:"nonzero"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	TestName string `yaml:"test_name"`

	TableType  string `yaml:"table_type"`
	ServerType string `yaml:"server_type"`

	// DSN, when set, is handed to the driver verbatim.
	DSN     string            `yaml:"dsn"`
	Options map[string]string `yaml:"options"`
}

func (s Settings) DataSourceName() string {
	if s.DSN != "" {
		return s.DSN
	}

	var parts []string
	add := func(k, v string) {
		if v != "" {
			parts = append(parts, k+"="+v)
		}
	}
	add("DataSource", s.Name)
	add("UserID", s.User)
	add("Password", s.Password)
	add("TableType", s.TableType)
	add("ServerType", s.ServerType)

	keys := make([]string, 0, len(s.Options))
	for k := range s.Options {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		add(k, s.Options[k])
	}
	return strings.Join(parts, ";")
}

func (s Settings) IsADT() bool {
	return strings.EqualFold(s.TableType, TableTypeADT)
}
