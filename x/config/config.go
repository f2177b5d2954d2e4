// Package config loads the YAML configuration of the adsql tools.
package config

import (
	log "github.com/sirupsen/logrus"

	"github.com/jakoblorz/adsql"
)

// Config is the configuration of the adsql command.
type Config struct {
	Database adsql.Settings `yaml:"database"`
	Logging  Logging        `yaml:"logging"`
	// Models are the model definitions DDL is generated for.
	Models []adsql.Model `yaml:"models"`
}

// Logging configures logrus.
type Logging struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// Apply configures the standard logrus logger.
func (l Logging) Apply() error {
	if l.JSON {
		log.SetFormatter(&log.JSONFormatter{})
	}
	if l.Level == "" {
		return nil
	}
	lvl, err := log.ParseLevel(l.Level)
	if err != nil {
		return err
	}
	log.SetLevel(lvl)
	return nil
}
