// Package config holds the gateway settings loaded from YAML.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Server  Server  `yaml:"server"`
	GraphQL GraphQL `yaml:"graphql"`
	Store   Store   `yaml:"store"`
	Log     Log     `yaml:"log"`
	Otel    Otel    `yaml:"otel"`
}

type Server struct {
	Addr         string        `yaml:"addr"`
	Timeout      time.Duration `yaml:"timeout"`
	Pretty       bool          `yaml:"pretty"`
	MaxBodyBytes int64         `yaml:"max_body_bytes"`
	MaxBatch     int           `yaml:"max_batch"`
	CORSOrigins  []string      `yaml:"cors_origins"`
}

type GraphQL struct {
	MaxDepth     int `yaml:"max_depth"`
	MaxBatchSize int `yaml:"max_batch_size"`
}

type Store struct {
	Driver  string `yaml:"driver"`
	DSN     string `yaml:"dsn"`
	Migrate bool   `yaml:"migrate"`
	Seed    bool   `yaml:"seed"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type Otel struct {
	Endpoint string `yaml:"endpoint"`
	Service  string `yaml:"service"`
}

func Default() Config {
	return Config{
		Server: Server{
			Addr:         ":8080",
			Timeout:      10 * time.Second,
			MaxBodyBytes: 1 << 20,
			MaxBatch:     10,
		},
		GraphQL: GraphQL{MaxDepth: 5},
		Store:   Store{Driver: DriverMemory, Migrate: true, Seed: true},
		Log:     Log{Level: "info", Format: "text"},
		Otel:    Otel{Service: "usergraph"},
	}
}

// Load reads path over the defaults. Unknown keys are rejected.
func Load(path string) (Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Decode(b); err != nil {
		return cfg, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Decode overlays the YAML document b onto c.
func (c *Config) Decode(b []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (c Config) Validate() error {
	var errs []error
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	if c.Server.Timeout < 0 {
		errs = append(errs, errors.New("server.timeout must not be negative"))
	}
	if c.Server.MaxBodyBytes < 0 {
		errs = append(errs, errors.New("server.max_body_bytes must not be negative"))
	}
	if c.Server.MaxBatch < 0 {
		errs = append(errs, errors.New("server.max_batch must not be negative"))
	}
	if c.GraphQL.MaxDepth < 1 {
		errs = append(errs, fmt.Errorf("graphql.max_depth must be at least 1, got %d", c.GraphQL.MaxDepth))
	}
	if c.GraphQL.MaxBatchSize < 0 {
		errs = append(errs, errors.New("graphql.max_batch_size must not be negative"))
	}
	switch c.Store.Driver {
	case DriverMemory:
	case DriverPostgres, DriverSQLite:
		if c.Store.DSN == "" {
			errs = append(errs, fmt.Errorf("store.dsn is required for driver %q", c.Store.Driver))
		}
	default:
		errs = append(errs, fmt.Errorf("store.driver %q is not one of memory, postgres, sqlite", c.Store.Driver))
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	if f := c.Log.Format; f != "text" && f != "json" {
		errs = append(errs, fmt.Errorf("log.format %q is not one of text, json", f))
	}
	return errors.Join(errs...)
}

// SlogLevel parses Level as a slog level name.
func (l Log) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(l.Level))); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return lvl, nil
}
