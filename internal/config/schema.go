// Package config provides configuration management for sqlbundle.
package config

// Config is the root configuration for sqlbundle.
type Config struct {
	// Repo configures repository access.
	Repo RepoConfig `mapstructure:"repo" yaml:"repo" json:"repo"`
	// Bundle configures bundle assembly.
	Bundle BundleConfig `mapstructure:"bundle" yaml:"bundle" json:"bundle"`
	// Ledger configures where the last-applied bundle is looked up.
	Ledger LedgerConfig `mapstructure:"ledger" yaml:"ledger" json:"ledger"`
	// Output configures output settings.
	Output OutputConfig `mapstructure:"output" yaml:"output" json:"output"`
}

// RepoConfig configures repository access.
type RepoConfig struct {
	// Path is the root of a working copy of the repository.
	Path string `mapstructure:"path" yaml:"path" json:"path"`
}

// BundleConfig configures bundle assembly.
type BundleConfig struct {
	// Pattern is the shell-style glob selecting files from the commit
	// diff (default: "*.sql").
	Pattern string `mapstructure:"pattern" yaml:"pattern" json:"pattern"`
	// ReleasesDir is the directory, relative to the repository root,
	// where bundles are written. It must already exist.
	ReleasesDir string `mapstructure:"releases_dir" yaml:"releases_dir" json:"releases_dir"`
	// ReleaseType is the ledger namespace this release stream is tracked
	// under, allowing several independent streams against one target.
	ReleaseType string `mapstructure:"release_type" yaml:"release_type" json:"release_type"`
	// Database overrides the USE directive target when no database
	// connection string supplies one.
	Database string `mapstructure:"database" yaml:"database,omitempty" json:"database,omitempty"`
}

// LedgerConfig configures release-ledger access. When DBURI is set the
// ledger is read from the target SQL Server; otherwise File names a
// local YAML ledger; with neither, every run ranges from the history root.
type LedgerConfig struct {
	// DBURI is a URI-style connection string, eg mssql://svr-db1/TDI or
	// tim:secret@svr-db1/TDI.
	DBURI string `mapstructure:"dburi" yaml:"dburi,omitempty" json:"dburi,omitempty"`
	// File is the path of a YAML file ledger.
	File string `mapstructure:"file" yaml:"file,omitempty" json:"file,omitempty"`
}

// OutputConfig configures output settings.
type OutputConfig struct {
	// LogLevel is the minimum level logged (debug, info, warn, error).
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	// Color enables styled terminal output.
	Color bool `mapstructure:"color" yaml:"color" json:"color"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Repo: RepoConfig{
			Path: ".",
		},
		Bundle: BundleConfig{
			Pattern:     "*.sql",
			ReleasesDir: "releases",
			ReleaseType: "default",
		},
		Output: OutputConfig{
			LogLevel: "info",
			Color:    true,
		},
	}
}
