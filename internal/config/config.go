// SPDX-FileCopyrightText: 2024 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pelletier/go-toml/v2"
	"github.com/xmidt-org/httpcapture/internal/logging"
)

const (
	DefaultPort            = "8080"
	DefaultShutdownTimeout = 5 * time.Second
	DefaultCapturePath     = "/api/values"
)

// ConfigFile is the raw contents of a TOML configuration file.
type ConfigFile struct {
	Port               string     `toml:"port"`
	Certfile           string     `toml:"certfile"`
	Keyfile            string     `toml:"keyfile"`
	ShutdownTimeoutStr string     `toml:"shutdown_timeout"`
	Log                Log        `toml:"log"`
	Capture            Capture    `toml:"capture"`
	Endpoints          []Endpoint `toml:"endpoints"`
}

type Log struct {
	Output string `toml:"output"`
	Format string `toml:"format"`
	Level  string `toml:"level"`
	File   File   `toml:"file"`
}

type File struct {
	Path string `toml:"path"`
}

// Capture selects the requests whose response bodies are logged.
type Capture struct {
	Paths               []string `toml:"paths"`
	Prefixes            []string `toml:"prefixes"`
	MaxBodyStr          string   `toml:"max_body"`
	TransactionCategory string   `toml:"transaction_category"`
	TransactionName     string   `toml:"transaction_name"`
}

// Endpoint is a constant response served by the demo server.
type Endpoint struct {
	Path        string            `toml:"path"`
	Status      int               `toml:"status"`
	ContentType string            `toml:"content_type"`
	Body        string            `toml:"body"`
	Headers     map[string]string `toml:"headers"`
}

// Config is the parsed configuration, with defaults applied.
type Config struct {
	ConfigFile
	ShutdownTimeout time.Duration
	MaxBody         uint64
	Logging         *logging.Logging
}

// Default returns the configuration used when no file is given:  a server on
// DefaultPort that serves and captures DefaultCapturePath.
func Default() ConfigFile {
	return ConfigFile{
		Port: DefaultPort,
		Capture: Capture{
			Paths:               []string{DefaultCapturePath},
			TransactionCategory: "Api",
			TransactionName:     "Values",
		},
		Endpoints: []Endpoint{
			{
				Path:        DefaultCapturePath,
				ContentType: "application/json; charset=utf-8",
				Body:        `["value1","value2"]`,
			},
		},
	}
}

// ParseConfigfile loads a TOML configuration file.  An empty filename yields Default().
// Otherwise, the file is used as is, apart from the port and shutdown timeout which
// have defaults of their own.
func ParseConfigfile(filename string) (*Config, error) {
	cfg := &Config{ConfigFile: Default()}

	if len(filename) > 0 {
		f, err := os.Open(filepath.Clean(filename))
		if err != nil {
			return nil, err
		}

		defer f.Close()
		cfg.ConfigFile = ConfigFile{}
		d := toml.NewDecoder(f)
		d.DisallowUnknownFields()
		if err := d.Decode(&cfg.ConfigFile); err != nil {
			var derr *toml.DecodeError
			if errors.As(err, &derr) {
				row, col := derr.Position()
				return nil, fmt.Errorf("%s:%d:%d: %w", filename, row, col, err)
			}

			return nil, fmt.Errorf("%s: %w", filename, err)
		}
	}

	if err := cfg.build(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// build validates the raw file and computes the derived fields
func (cfg *Config) build() (err error) {
	if len(cfg.Port) == 0 {
		cfg.Port = DefaultPort
	}

	cfg.ShutdownTimeout = DefaultShutdownTimeout
	if len(cfg.ShutdownTimeoutStr) > 0 {
		if cfg.ShutdownTimeout, err = time.ParseDuration(cfg.ShutdownTimeoutStr); err != nil {
			return fmt.Errorf("shutdown_timeout: %w", err)
		}
	}

	if len(cfg.Capture.MaxBodyStr) > 0 {
		if cfg.MaxBody, err = humanize.ParseBytes(cfg.Capture.MaxBodyStr); err != nil {
			return fmt.Errorf("capture.max_body: %w", err)
		}

		if cfg.MaxBody > math.MaxInt {
			return fmt.Errorf("capture.max_body: %s exceeds %s", cfg.Capture.MaxBodyStr, humanize.IBytes(math.MaxInt))
		}
	}

	paths := make(map[string]int, len(cfg.Endpoints))
	for i, e := range cfg.Endpoints {
		if len(e.Path) == 0 || e.Path[0] != '/' {
			return fmt.Errorf("endpoints[%d]: path must begin with '/': %q", i, e.Path)
		}

		if j, dup := paths[e.Path]; dup {
			return fmt.Errorf("endpoints[%d]: path %q duplicates endpoints[%d]", i, e.Path, j)
		}

		paths[e.Path] = i

		if e.Status != 0 && (e.Status < 100 || e.Status > 999) {
			return fmt.Errorf("endpoints[%d]: invalid status %d", i, e.Status)
		}
	}

	cfg.Logging, err = logging.New(logging.Config{
		Output:   cfg.Log.Output,
		Format:   cfg.Log.Format,
		Level:    cfg.Log.Level,
		FilePath: cfg.Log.File.Path,
	})

	return
}
