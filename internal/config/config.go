// Package config resolves where the toolchain lives and what it builds.
//
// Resolution is layered: built-in defaults, then an optional YAML config
// file, then environment variables, then command-line flags (applied by the
// CLI layer). Later layers override earlier ones only when set.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// Environment variables honored during resolution.
const (
	EnvHome = "ZOKRATES_HOME"
	EnvBin  = "ZOKRATES_BIN"
)

// Built-in defaults. The relative paths match a sibling checkout of the
// toolchain: its standard library and its release binary.
const (
	DefaultHome    = "../ZoKrates/zokrates_stdlib/stdlib"
	DefaultBin     = "../ZoKrates/target/release/zokrates"
	DefaultCircuit = "legalage.zok"
	DefaultLogFile = "log"

	// DefaultFile is the config file looked up when none is given.
	DefaultFile = "zokbuild.yaml"
)

// Config holds everything needed to drive a toolchain run.
type Config struct {
	// Bin is the path to the toolchain binary.
	Bin string `yaml:"bin"`

	// Home is the toolchain's standard-library directory, exported to the
	// child process as ZOKRATES_HOME.
	Home string `yaml:"home"`

	// Circuit is the source file passed to check and compile.
	Circuit string `yaml:"circuit"`

	// Dir is the working directory for the run; artifacts and the log
	// file live here.
	Dir string `yaml:"dir"`

	// LogFile is the shared append-only log, relative to Dir.
	LogFile string `yaml:"log"`

	// Database is an optional run-history database path. Empty disables
	// history recording.
	Database string `yaml:"db"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Bin:     DefaultBin,
		Home:    DefaultHome,
		Circuit: DefaultCircuit,
		Dir:     ".",
		LogFile: DefaultLogFile,
	}
}

// LoadFile reads a YAML config file. A missing file yields a zero Config
// and no error only when explicit is false (the default lookup path).
func LoadFile(path string, explicit bool) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !explicit {
			return Config{}, nil
		}
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Resolve builds the effective configuration: defaults, overlaid with the
// config file (path may be empty to use the default lookup), overlaid with
// the environment.
func Resolve(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	fileCfg, err := LoadFile(path, explicit)
	if err != nil {
		return Config{}, err
	}
	cfg.Merge(fileCfg)

	cfg.applyEnv(os.LookupEnv)
	return cfg, nil
}

// Merge overlays non-empty fields of other onto c.
func (c *Config) Merge(other Config) {
	if other.Bin != "" {
		c.Bin = other.Bin
	}
	if other.Home != "" {
		c.Home = other.Home
	}
	if other.Circuit != "" {
		c.Circuit = other.Circuit
	}
	if other.Dir != "" {
		c.Dir = other.Dir
	}
	if other.LogFile != "" {
		c.LogFile = other.LogFile
	}
	if other.Database != "" {
		c.Database = other.Database
	}
}

// applyEnv overlays ZOKRATES_HOME / ZOKRATES_BIN when set and non-empty.
// An empty value behaves as unset, matching ${VAR:-default} shell
// semantics.
func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvHome); ok && v != "" {
		c.Home = v
	}
	if v, ok := lookup(EnvBin); ok && v != "" {
		c.Bin = v
	}
}
