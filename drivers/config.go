package drivers

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gandaldf/sqlio"
)

// DBConfig defines how to connect to a database. The connect string may be
// stored in a file separate from the config, because it can contain a
// password, which we want to keep out of configs.
type DBConfig struct {
	// Driver is the database/sql driver name: mysql, postgres or sqlite3
	// (registered by this package), or any other driver registered by the
	// caller.
	Driver    string `yaml:"driver"`
	DBConnect string `yaml:"dbConnect"`
	// A file containing a connect URL for the DB.
	DBConnectFile string `yaml:"dbConnectFile"`

	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`

	// Capabilities overrides the dialect defaults when set.
	Capabilities *sqlio.Capabilities `yaml:"capabilities"`
	Executor     sqlio.Config        `yaml:"executor"`
}

// URL returns the connect URL, either loading it from DBConnectFile or
// returning DBConnect. Leading and trailing whitespace is stripped.
func (c DBConfig) URL() (string, error) {
	if c.DBConnectFile != "" {
		url, err := os.ReadFile(c.DBConnectFile)
		if err != nil {
			return "", fmt.Errorf("reading connect file: %w", err)
		}
		return strings.TrimSpace(string(url)), nil
	}
	return c.DBConnect, nil
}

// LoadConfig reads a DBConfig from a YAML file. Keys that don't correspond
// to a DBConfig field are an error.
func LoadConfig(path string) (DBConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return DBConfig{}, err
	}
	return ParseConfig(b)
}

// ParseConfig decodes a YAML DBConfig, rejecting unknown keys.
func ParseConfig(b []byte) (DBConfig, error) {
	var c DBConfig
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return DBConfig{}, fmt.Errorf("parsing db config: %w", err)
	}
	if c.Driver == "" {
		return DBConfig{}, errors.New("parsing db config: driver is required")
	}
	return c, nil
}
