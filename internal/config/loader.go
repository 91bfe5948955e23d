// Package config provides configuration management for sqlbundle.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	sberrors "github.com/dbforge/sqlbundle/internal/errors"
)

// DefaultConfigName is the config file base name searched for when no
// explicit path is given.
const DefaultConfigName = "sqlbundle"

// Loader handles configuration loading and merging.
type Loader struct {
	v           *viper.Viper
	configPath  string
	searchPaths []string
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	v := viper.New()
	v.SetEnvPrefix("SQLBUNDLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	return &Loader{
		v:           v,
		searchPaths: []string{"."},
	}
}

// WithConfigPath sets an explicit config file path.
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithSearchPaths adds directories to search for config files.
func (l *Loader) WithSearchPaths(paths ...string) *Loader {
	l.searchPaths = append(l.searchPaths, paths...)
	return l
}

// Load loads the configuration.
func (l *Loader) Load() (*Config, error) {
	const op = "config.Load"

	l.setDefaults()

	if err := l.loadConfigFile(); err != nil {
		return nil, sberrors.ConfigWrap(err, op, "failed to load config file")
	}

	cfg := &Config{}
	if err := l.v.Unmarshal(cfg); err != nil {
		return nil, sberrors.ConfigWrap(err, op, "failed to unmarshal config")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setDefaults sets default values using Viper.
func (l *Loader) setDefaults() {
	defaults := DefaultConfig()

	l.v.SetDefault("repo.path", defaults.Repo.Path)

	l.v.SetDefault("bundle.pattern", defaults.Bundle.Pattern)
	l.v.SetDefault("bundle.releases_dir", defaults.Bundle.ReleasesDir)
	l.v.SetDefault("bundle.release_type", defaults.Bundle.ReleaseType)

	l.v.SetDefault("output.log_level", defaults.Output.LogLevel)
	l.v.SetDefault("output.color", defaults.Output.Color)
}

// loadConfigFile reads the config file if one exists. A missing file is
// not an error; defaults and environment variables then apply.
func (l *Loader) loadConfigFile() error {
	if l.configPath != "" {
		l.v.SetConfigFile(l.configPath)
		return l.v.ReadInConfig()
	}

	l.v.SetConfigName(DefaultConfigName)
	l.v.SetConfigType("yaml")
	for _, path := range l.searchPaths {
		l.v.AddConfigPath(path)
	}

	err := l.v.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) {
		return nil
	}
	return err
}

// Validate checks the configuration for inconsistencies.
func (c *Config) Validate() error {
	const op = "config.Validate"

	if c.Bundle.Pattern == "" {
		return sberrors.Validation(op, "bundle.pattern must not be empty")
	}
	if c.Bundle.ReleasesDir == "" {
		return sberrors.Validation(op, "bundle.releases_dir must not be empty")
	}
	if c.Bundle.ReleaseType == "" {
		return sberrors.Validation(op, "bundle.release_type must not be empty")
	}
	if c.Ledger.DBURI != "" && c.Ledger.File != "" {
		return sberrors.Validation(op, "ledger.dburi and ledger.file are mutually exclusive")
	}

	switch c.Output.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return sberrors.Validation(op, "output.log_level must be one of debug, info, warn, error")
	}

	return nil
}

// WriteConfig writes a configuration to a file.
func WriteConfig(cfg *Config, path string) error {
	const op = "config.WriteConfig"

	v := viper.New()
	v.Set("repo", cfg.Repo)
	v.Set("bundle", cfg.Bundle)
	v.Set("ledger", cfg.Ledger)
	v.Set("output", cfg.Output)

	if err := v.WriteConfigAs(path); err != nil {
		return sberrors.ConfigWrap(err, op, "failed to write config file")
	}
	return nil
}

// WriteDefaultConfig writes the default configuration to a file.
func WriteDefaultConfig(path string) error {
	return WriteConfig(DefaultConfig(), path)
}

// FindConfigFile locates the config file in the given search paths.
func FindConfigFile(searchPaths ...string) (string, error) {
	if len(searchPaths) == 0 {
		searchPaths = []string{"."}
	}

	for _, searchPath := range searchPaths {
		for _, ext := range []string{"yaml", "yml"} {
			configFile := filepath.Join(searchPath, DefaultConfigName+"."+ext)
			if _, err := os.Stat(configFile); err == nil {
				return configFile, nil
			}
		}
	}

	return "", sberrors.NotFound("config.FindConfigFile", "no config file found")
}
