package config

import (
	"os"
	"path/filepath"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakoblorz/adsql"
)

func writeFile(t *testing.T, name, content string) string {
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParseMergesFiles(t *testing.T) {
	base := writeFile(t, "base.yaml", `
database:
  driver: adsql-sqlite3
  name: /data/app.add
  table_type: ADT
logging:
  level: info
models:
  - table: person
    fields:
      - name: id
        type: AutoField
        primary_key: true
      - name: first
        type: CharField
        max_length: 20
    unique_together:
      - [id, first]
`)
	override := writeFile(t, "override.yaml", `
database:
  driver: adsql-sqlite3
  name: /data/test.add
logging:
  level: debug
`)

	var cfg Config
	require.NoError(t, Parse(&cfg, base, override))

	assert.Equal(t, "/data/test.add", cfg.Database.Name)
	assert.Equal(t, "debug", cfg.Logging.Level)
	require.Len(t, cfg.Models, 1)
	m := cfg.Models[0]
	assert.Equal(t, "person", m.Table)
	require.Len(t, m.Fields, 2)
	assert.Equal(t, adsql.AutoField, m.Fields[0].Type)
	assert.True(t, m.Fields[0].PrimaryKey)
	assert.Equal(t, 20, m.Fields[1].MaxLength)
	assert.Equal(t, [][]string{{"id", "first"}}, m.UniqueTogether)
}

func TestParseValidates(t *testing.T) {
	path := writeFile(t, "bad.yaml", `
database:
  name: /data/app.add
`)
	var cfg Config
	err := Parse(&cfg, path)
	require.Error(t, err)
	verr, ok := err.(ValidationError)
	require.True(t, ok, "got %T", err)
	assert.Error(t, verr.ErrForField("Database.Driver"))
	assert.Contains(t, verr.Error(), "Database.Driver")
}

func TestParseErrors(t *testing.T) {
	var cfg Config
	assert.Error(t, Parse(&cfg))
	assert.Error(t, Parse(&cfg, filepath.Join(t.TempDir(), "missing.yaml")))
	assert.Error(t, Parse(&cfg, writeFile(t, "broken.yaml", "database: [")))
}

func TestLoggingApply(t *testing.T) {
	defer log.SetLevel(log.GetLevel())

	require.NoError(t, Logging{Level: "warn"}.Apply())
	assert.Equal(t, log.WarnLevel, log.GetLevel())
	assert.Error(t, Logging{Level: "chatty"}.Apply())
}
