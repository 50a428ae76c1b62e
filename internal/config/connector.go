// Copyright 2026 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config defines the connector configuration file and its defaults.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jbclaudio/magento2-connector-community/internal/appstate"
	"github.com/jbclaudio/magento2-connector-community/internal/yaml"
	"github.com/pelletier/go-toml/v2"
)

const (
	// DriverSQLite selects the embedded SQLite job store.
	DriverSQLite = "sqlite"
	// DriverMySQL selects a MySQL job store, usually the platform database.
	DriverMySQL = "mysql"

	// DefaultDatabasePath is where the SQLite job store lives when no path is
	// configured.
	DefaultDatabasePath = "var/akeneo_connector.db"

	// DefaultStaleAfter is how long a job may stay processing before another
	// invocation treats its run as interrupted.
	DefaultStaleAfter = "12h"

	defaultMySQLPort = 3306
)

var (
	errUnsupportedFormat = errors.New("unsupported config format")
	errUnknownDriver     = errors.New("unknown database driver")
	errMissingField      = errors.New("missing required field")
	errInvalidDuration   = errors.New("invalid duration")
)

// Config is the contract for the connector configuration file.
type Config struct {
	// Database is where job definitions, status and run history are kept.
	Database Database `yaml:"database" toml:"database"`

	// Catalog is an optional YAML or TOML file listing the import jobs. When
	// empty the built-in jobs are used.
	Catalog string `yaml:"catalog,omitempty" toml:"catalog,omitempty"`

	// Area is the run context commands switch into. Defaults to adminhtml.
	Area string `yaml:"area,omitempty" toml:"area,omitempty"`

	// StaleAfter is a Go duration after which a processing job may be
	// started again, its open run being recorded as failed. "0" disables
	// the takeover.
	StaleAfter string `yaml:"stale_after,omitempty" toml:"stale_after,omitempty"`
}

// Database configures the job store connection.
type Database struct {
	Driver   string `yaml:"driver,omitempty" toml:"driver,omitempty"`
	Path     string `yaml:"path,omitempty" toml:"path,omitempty"`
	Host     string `yaml:"host,omitempty" toml:"host,omitempty"`
	Port     int    `yaml:"port,omitempty" toml:"port,omitempty"`
	User     string `yaml:"user,omitempty" toml:"user,omitempty"`
	Password string `yaml:"password,omitempty" toml:"password,omitempty"`
	Name     string `yaml:"name,omitempty" toml:"name,omitempty"`
}

// String hides the password.
func (d Database) String() string {
	if d.Driver == DriverMySQL {
		return fmt.Sprintf("mysql://%s@%s:%d/%s", d.User, d.Host, d.Port, d.Name)
	}
	return fmt.Sprintf("%s://%s", d.Driver, d.Path)
}

// Default returns a configuration using SQLite and the built-in catalog.
func Default() *Config {
	c := &Config{}
	c.SetDefaults()
	return c
}

// Read loads the configuration file at path. YAML (.yaml, .yml) and TOML
// (.toml) are supported. Missing fields are filled with defaults.
func Read(path string) (*Config, error) {
	var (
		c   *Config
		err error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		c, err = yaml.Read[Config](path)
	case ".toml":
		c, err = readTOML(path)
	default:
		return nil, fmt.Errorf("%w: %q", errUnsupportedFormat, path)
	}
	if err != nil {
		return nil, err
	}
	if c.Catalog != "" && !filepath.IsAbs(c.Catalog) {
		c.Catalog = filepath.Join(filepath.Dir(path), c.Catalog)
	}
	c.SetDefaults()
	return c, nil
}

func readTOML(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &c, nil
}

// SetDefaults fills every unset field that has a default.
func (c *Config) SetDefaults() {
	if c.Area == "" {
		c.Area = string(appstate.AreaAdminhtml)
	}
	if c.StaleAfter == "" {
		c.StaleAfter = DefaultStaleAfter
	}
	if c.Database.Driver == "" {
		c.Database.Driver = DriverSQLite
	}
	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Path == "" {
			c.Database.Path = DefaultDatabasePath
		}
	case DriverMySQL:
		if c.Database.Port == 0 {
			c.Database.Port = defaultMySQLPort
		}
	}
}

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	if _, err := appstate.ParseArea(c.Area); err != nil {
		return err
	}
	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Path == "" {
			return fmt.Errorf("%w: database.path", errMissingField)
		}
	case DriverMySQL:
		if c.Database.Host == "" {
			return fmt.Errorf("%w: database.host", errMissingField)
		}
		if c.Database.Name == "" {
			return fmt.Errorf("%w: database.name", errMissingField)
		}
	default:
		return fmt.Errorf("%w: %q", errUnknownDriver, c.Database.Driver)
	}
	if _, err := c.StaleAfterDuration(); err != nil {
		return err
	}
	return nil
}

// StaleAfterDuration parses StaleAfter. Negative durations are rejected.
func (c *Config) StaleAfterDuration() (time.Duration, error) {
	d, err := time.ParseDuration(c.StaleAfter)
	if err != nil {
		return 0, fmt.Errorf("%w: stale_after %q: %v", errInvalidDuration, c.StaleAfter, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%w: stale_after %q is negative", errInvalidDuration, c.StaleAfter)
	}
	return d, nil
}
