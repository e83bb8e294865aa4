// Package config loads annobot's settings and posting permissions.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Environment variables that override the config file.
const (
	EnvDataDir = "ANNOBOT_DATA_DIR"
	EnvDryRun  = "ANNOBOT_DRY_RUN"
)

// Package-level vars to allow test injection.
var (
	lookupEnv = os.LookupEnv
	homeDir   = os.UserHomeDir
)

var validate = validator.New()

// Config is the contents of config.yaml.
type Config struct {
	// DataDir holds the annotation database.
	DataDir string `yaml:"data_dir" validate:"required"`
	// Tables lists the tables a post is tried against, in order. Empty means
	// every registered table in manifest order.
	Tables []string `yaml:"tables" validate:"omitempty,dive,required"`
	// DefaultTable is used when a request names no table. Empty means the
	// registry default.
	DefaultTable string `yaml:"default_table"`
	// DryRun reports what would be posted or deleted without writing.
	DryRun bool `yaml:"dry_run"`
	// RecursivePosts posts missing parent annotations along with the one
	// requested, instead of rejecting it.
	RecursivePosts bool   `yaml:"recursive_posts"`
	LogLevel       string `yaml:"log_level" validate:"omitempty,oneof=debug info warn error"`
	// MetricsAddr enables the Prometheus endpoint, e.g. "127.0.0.1:9464".
	MetricsAddr     string `yaml:"metrics_addr" validate:"omitempty,hostname_port"`
	PermissionsFile string `yaml:"permissions_file"`
}

// Dir returns ~/.annobot.
func Dir() string {
	home, _ := homeDir()
	return filepath.Join(home, ".annobot")
}

// DefaultPath returns the config file location used when none is given.
func DefaultPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		DataDir:  Dir(),
		LogLevel: "info",
	}
}

// Load reads the config at path, applies environment overrides and
// validates the result. An empty path means DefaultPath, which may be
// absent; an explicitly named file must exist.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
		// defaults
	default:
		return Config{}, fmt.Errorf("reading config: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	cfg.DataDir = expandHome(cfg.DataDir)
	cfg.PermissionsFile = expandHome(cfg.PermissionsFile)

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks field constraints.
func (c Config) Validate() error {
	return validate.Struct(c)
}

func (c *Config) applyEnv() error {
	if v, ok := lookupEnv(EnvDataDir); ok && v != "" {
		c.DataDir = v
	}
	if v, ok := lookupEnv(EnvDryRun); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvDryRun, err)
		}
		c.DryRun = b
	}
	return nil
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		home, err := homeDir()
		if err != nil {
			return p
		}
		return filepath.Join(home, strings.TrimPrefix(p, "~"))
	}
	return p
}
