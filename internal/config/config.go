// Package config loads the tool's configuration: server connection settings
// and tool binary overrides, from an optional YAML file with environment
// variable fallbacks.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/cadornel/binback/internal/tool"
)

// Config is the resolved configuration of one run.
type Config struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`

	// Family selects the snapshot/load tool family ("dump" or "mydumper").
	Family string `yaml:"tool_family"`

	// Tools overrides individual binary paths; empty fields use the family
	// defaults resolved via PATH.
	Tools ToolPaths `yaml:"tools"`

	// ScanLimit overrides the snapshot header scan bound; zero keeps the
	// built-in default.
	ScanLimit int `yaml:"scan_limit"`
}

// ToolPaths names the external binaries.
type ToolPaths struct {
	Snapshot string `yaml:"snapshot"`
	Binlog   string `yaml:"binlog"`
	Client   string `yaml:"client"`
	Loader   string `yaml:"loader"`
}

// Default returns the configuration used when no file and no environment
// overrides are present.
func Default() Config {
	return Config{
		Host:   "localhost",
		Port:   3306,
		User:   "root",
		Family: string(tool.FamilyDump),
	}
}

// Load builds the configuration: defaults, then the YAML file at path (when
// path is non-empty), then environment overrides, then verification.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	if err := cfg.Verify(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyEnv overlays environment variables. MYSQL_PWD is honored because the
// external tools read it too, so one variable covers both paths.
func (c *Config) applyEnv() {
	if v := os.Getenv("BINBACK_HOST"); v != "" {
		c.Host = v
	}
	if v := os.Getenv("BINBACK_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Port = port
		}
	}
	if v := os.Getenv("BINBACK_USER"); v != "" {
		c.User = v
	}
	if v := os.Getenv("MYSQL_PWD"); v != "" {
		c.Password = v
	}
}

// Verify checks the configuration is usable.
func (c Config) Verify() error {
	if c.Host == "" {
		return fmt.Errorf("config: host must not be empty")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: port %d out of range", c.Port)
	}
	if c.User == "" {
		return fmt.Errorf("config: user must not be empty")
	}
	if _, err := tool.ParseFamily(c.Family); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.ScanLimit < 0 {
		return fmt.Errorf("config: scan_limit must not be negative")
	}
	return nil
}

// DSN returns the go-sql-driver connection string for the server.
func (c Config) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/", c.User, c.Password, c.Host, c.Port)
}

// Conn returns the connection parameters handed to external tools.
func (c Config) Conn() tool.Conn {
	return tool.Conn{Host: c.Host, Port: c.Port, User: c.User, Password: c.Password}
}

// Toolset resolves the tool family with any binary path overrides applied.
func (c Config) Toolset() tool.Toolset {
	family, _ := tool.ParseFamily(c.Family)
	ts := tool.DefaultToolset(family)
	if c.Tools.Snapshot != "" {
		ts.Snapshot = c.Tools.Snapshot
	}
	if c.Tools.Binlog != "" {
		ts.Binlog = c.Tools.Binlog
	}
	if c.Tools.Client != "" {
		ts.Client = c.Tools.Client
	}
	if c.Tools.Loader != "" {
		ts.Loader = c.Tools.Loader
	}
	return ts
}
