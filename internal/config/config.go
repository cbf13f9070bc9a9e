// Package config handles loading minifier configuration from files.
//
// Configuration can be specified in a JSON file named glslmin.json or
// .glslminrc. Load searches a given start directory and then its parent
// directories; the CLI starts from the first input file's directory, or
// from the working directory when reading stdin.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/hugodaniel/glslmin/internal/rewrite"
)

// Config represents the configuration file structure. All fields are
// optional and fall back to rewrite's defaults when unset.
type Config struct {
	// Mode is "none" or "full" (see rewrite.Options.Mode).
	Mode *string `json:"mode,omitempty"`

	// MaxInlines, MaxRenames, MaxSimplifys cap their respective passes;
	// negative (or unset, defaulting to -1) means unbounded.
	MaxInlines   *int `json:"maxInlines,omitempty"`
	MaxRenames   *int `json:"maxRenames,omitempty"`
	MaxSimplifys *int `json:"maxSimplifys,omitempty"`

	// Verbose turns on the processing summary line.
	Verbose *bool `json:"verbose,omitempty"`

	// Stages maps an input file name (as given on the CLI) to its shader
	// stage, for inputs whose stage can't be inferred from extension.
	Stages map[string]string `json:"stages,omitempty"`
}

// ConfigFileNames are the names searched for config files, in order of
// preference.
var ConfigFileNames = []string{
	"glslmin.json",
	".glslminrc",
	".glslminrc.json",
}

// Load searches for a config file starting from the given directory and
// walking up to parent directories. Returns nil, "", nil if no config
// file is found.
func Load(startDir string) (*Config, string, error) {
	dir := startDir
	for {
		for _, name := range ConfigFileNames {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				cfg, err := LoadFile(path)
				return cfg, path, err
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, "", nil
		}
		dir = parent
	}
}

// LoadFile loads configuration from a specific file path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// DefaultOptions returns the full-pipeline, unbounded rewrite.Options
// used when neither a config file nor CLI flags narrow it.
func DefaultOptions() rewrite.Options {
	return rewrite.Options{
		Mode:         "full",
		MaxInlines:   -1,
		MaxRenames:   -1,
		MaxSimplifys: -1,
	}
}

// ToOptions converts a Config to rewrite.Options, using defaults for
// unset fields.
func (c *Config) ToOptions() rewrite.Options {
	opts := DefaultOptions()
	if c == nil {
		return opts
	}
	if c.Mode != nil {
		opts.Mode = *c.Mode
	}
	if c.MaxInlines != nil {
		opts.MaxInlines = *c.MaxInlines
	}
	if c.MaxRenames != nil {
		opts.MaxRenames = *c.MaxRenames
	}
	if c.MaxSimplifys != nil {
		opts.MaxSimplifys = *c.MaxSimplifys
	}
	if c.Verbose != nil {
		opts.Verbose = *c.Verbose
	}
	return opts
}

// MergeOptions carries CLI-flag overrides; nil pointer fields mean "not
// specified on the CLI" and leave the config-file (or default) value in
// place.
type MergeOptions struct {
	Mode         *string
	MaxInlines   *int
	MaxRenames   *int
	MaxSimplifys *int
	Verbose      *bool
}

// Merge combines config-file options with CLI options, CLI taking
// precedence whenever it was actually specified.
func (c *Config) Merge(cli MergeOptions) rewrite.Options {
	opts := c.ToOptions()
	if cli.Mode != nil {
		opts.Mode = *cli.Mode
	}
	if cli.MaxInlines != nil {
		opts.MaxInlines = *cli.MaxInlines
	}
	if cli.MaxRenames != nil {
		opts.MaxRenames = *cli.MaxRenames
	}
	if cli.MaxSimplifys != nil {
		opts.MaxSimplifys = *cli.MaxSimplifys
	}
	if cli.Verbose != nil {
		opts.Verbose = *cli.Verbose
	}
	return opts
}

// StageFor resolves the configured stage name for a source file, or ""
// if none is configured (the caller then falls back to extension-based
// inference).
func (c *Config) StageFor(filename string) string {
	if c == nil || c.Stages == nil {
		return ""
	}
	return c.Stages[filename]
}
