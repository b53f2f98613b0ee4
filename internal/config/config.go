package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default config file path.
const DefaultConfigPath = "~/.config/stepr/config.yaml"

// Config holds all stepr configuration.
type Config struct {
	Storage     StorageConfig     `yaml:"storage"`
	Aggregation AggregationConfig `yaml:"aggregation"`
	Export      ExportConfig      `yaml:"export"`
	Credentials CredentialsConfig `yaml:"credentials"`
	Logging     LoggingConfig     `yaml:"logging"`
}

type StorageConfig struct {
	Path   string `yaml:"path"`
	DBFile string `yaml:"db_file"`
}

type AggregationConfig struct {
	WindowDays  int    `yaml:"window_days"`
	Concurrency int    `yaml:"concurrency"`
	Retries     int    `yaml:"retries"`
	Timezone    string `yaml:"timezone"`
}

type ExportConfig struct {
	Dir    string `yaml:"dir"`
	Format string `yaml:"format"`
}

type CredentialsConfig struct {
	Encrypted bool   `yaml:"encrypted"`
	KeyFile   string `yaml:"key_file"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

// Load reads a YAML config file at path and merges it with defaults.
// Returns an error if the file cannot be read, contains invalid YAML or
// fails validation.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks value ranges that yaml decoding cannot express.
func (c *Config) Validate() error {
	var errs []error
	if c.Aggregation.WindowDays < 1 {
		errs = append(errs, fmt.Errorf("aggregation.window_days must be at least 1, got %d", c.Aggregation.WindowDays))
	}
	if c.Aggregation.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("aggregation.concurrency must be at least 1, got %d", c.Aggregation.Concurrency))
	}
	if c.Aggregation.Retries < 0 {
		errs = append(errs, fmt.Errorf("aggregation.retries must not be negative, got %d", c.Aggregation.Retries))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(c.Export.Format) {
	case "csv", "json":
	default:
		errs = append(errs, fmt.Errorf("export.format must be csv or json, got %q", c.Export.Format))
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format))
	}
	return errors.Join(errs...)
}

// Location returns the configured timezone, or time.Local when unset.
func (c *Config) Location() (*time.Location, error) {
	if c.Aggregation.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Aggregation.Timezone)
	if err != nil {
		return nil, fmt.Errorf("aggregation.timezone: %w", err)
	}
	return loc, nil
}

// DBPath returns the expanded database file path.
func (c *Config) DBPath() (string, error) {
	return c.storagePath(c.Storage.DBFile)
}

// KeyPath returns the expanded master key path. Relative key files live in
// the storage directory.
func (c *Config) KeyPath() (string, error) {
	return c.storagePath(c.Credentials.KeyFile)
}

// ExportDir returns the expanded export directory, defaulting to the
// storage directory.
func (c *Config) ExportDir() (string, error) {
	if c.Export.Dir == "" {
		return expandPath(c.Storage.Path)
	}
	return expandPath(c.Export.Dir)
}

// LogPath returns the expanded log file path, or "" when file logging is off.
func (c *Config) LogPath() (string, error) {
	if c.Logging.File == "" {
		return "", nil
	}
	return c.storagePath(c.Logging.File)
}

func (c *Config) storagePath(name string) (string, error) {
	p, err := expandPath(name)
	if err != nil {
		return "", err
	}
	if filepath.IsAbs(p) {
		return p, nil
	}
	dir, err := expandPath(c.Storage.Path)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, p), nil
}

// expandPath replaces a leading ~ with the user's home directory.
func expandPath(path string) (string, error) {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolving home directory: %w", err)
		}
		return filepath.Join(home, path[1:]), nil
	}
	return path, nil
}

// LoadOrCreate loads the config from the default path. If the file does
// not exist, it creates the directory structure and writes defaults.
func LoadOrCreate() (*Config, error) {
	path, err := expandPath(DefaultConfigPath)
	if err != nil {
		return nil, err
	}
	return LoadOrCreateAt(path)
}

// LoadOrCreateAt loads the config from the given path. If the file does
// not exist, it creates the directory structure and writes defaults.
func LoadOrCreateAt(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := DefaultConfig()

		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating config directory: %w", err)
		}

		data, err := yaml.Marshal(cfg)
		if err != nil {
			return nil, fmt.Errorf("marshaling default config: %w", err)
		}

		if err := os.WriteFile(path, data, 0644); err != nil {
			return nil, fmt.Errorf("writing default config: %w", err)
		}

		return cfg, nil
	}

	return Load(path)
}
