// Package config loads the per-root settings file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/amirbrooks/todo-vault/internal/fsutil"
)

const (
	EnvRoot     = "TODO_ROOT"
	EnvBackend  = "TODO_BACKEND"
	EnvLogLevel = "TODO_LOG_LEVEL"

	YAMLFile = "config.yaml"
	TOMLFile = "config.toml"
)

type Config struct {
	Schema   int          `yaml:"schema" toml:"schema"`
	Backend  string       `yaml:"backend" toml:"backend"` // memory|dir|sqlite
	Key      string       `yaml:"key" toml:"key"`
	IDScheme string       `yaml:"id_scheme" toml:"id_scheme"` // ulid|uuid
	Log      LogConfig    `yaml:"log" toml:"log"`
	Export   ExportConfig `yaml:"export" toml:"export"`

	// Root is resolved at load time and never read from the file.
	Root string `yaml:"-" toml:"-"`
}

type LogConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"` // text|logfmt|json
}

type ExportConfig struct {
	Format     string `yaml:"format" toml:"format"` // age|openssl
	WorkFactor int    `yaml:"work_factor" toml:"work_factor"`
}

func Default() Config {
	return Config{
		Schema:   1,
		Backend:  "dir",
		Key:      "todo_app_data",
		IDScheme: "ulid",
		Log:      LogConfig{Level: "warn", Format: "text"},
		Export:   ExportConfig{Format: "age", WorkFactor: 18},
	}
}

// ResolveRoot picks the store root: flag value, then TODO_ROOT, then ~/.todo.
func ResolveRoot(flagRoot string) string {
	root := strings.TrimSpace(flagRoot)
	if root == "" {
		root = strings.TrimSpace(os.Getenv(EnvRoot))
	}
	if root == "" {
		root = filepath.Join("~", ".todo")
	}
	return expandHome(root)
}

// Load reads config.yaml (or config.toml) from root. A missing file yields
// the defaults; fields left out of the file keep their default values.
func Load(root string) (Config, error) {
	cfg := Default()
	cfg.Root = root

	yamlPath := filepath.Join(root, YAMLFile)
	tomlPath := filepath.Join(root, TOMLFile)
	if b, err := os.ReadFile(yamlPath); err == nil {
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", yamlPath, err)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return Config{}, err
	} else if _, err := toml.DecodeFile(tomlPath, &cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("parse %s: %w", tomlPath, err)
	}

	if v := strings.TrimSpace(os.Getenv(EnvBackend)); v != "" {
		cfg.Backend = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Log.Level = v
	}
	cfg.fillDefaults()
	return cfg, nil
}

func (c *Config) fillDefaults() {
	d := Default()
	if c.Schema == 0 {
		c.Schema = d.Schema
	}
	if strings.TrimSpace(c.Backend) == "" {
		c.Backend = d.Backend
	}
	if strings.TrimSpace(c.Key) == "" {
		c.Key = d.Key
	}
	if strings.TrimSpace(c.IDScheme) == "" {
		c.IDScheme = d.IDScheme
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = d.Log.Format
	}
	if c.Export.Format == "" {
		c.Export.Format = d.Export.Format
	}
	if c.Export.WorkFactor == 0 {
		c.Export.WorkFactor = d.Export.WorkFactor
	}
}

// StorePath is the directory or database file the backend lives in.
func (c Config) StorePath() string {
	switch strings.ToLower(c.Backend) {
	case "sqlite", "sqlite3":
		return filepath.Join(c.Root, "todo.db")
	default:
		return filepath.Join(c.Root, "data")
	}
}

// Save writes c as config.yaml under c.Root.
func (c Config) Save() error {
	c.fillDefaults()
	b, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return fsutil.WriteFileAtomic(filepath.Join(c.Root, YAMLFile), b, 0o644)
}

func expandHome(path string) string {
	if strings.HasPrefix(path, "~"+string(os.PathSeparator)) || path == "~" {
		home, _ := os.UserHomeDir()
		if home != "" {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
