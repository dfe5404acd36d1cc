package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. FILEMAP_BUDGET_LINES.
const EnvPrefix = "FILEMAP"

// Loader provides configuration loading capabilities.
type Loader interface {
	// Load loads configuration from file and environment variables.
	// Priority: defaults → config file → environment variables (env wins)
	Load() (*Config, error)
}

type loader struct {
	rootDir    string
	configFile string
}

// NewLoader creates a loader that looks for .filemap.yaml (or .yml) in
// rootDir.
func NewLoader(rootDir string) Loader {
	return &loader{rootDir: rootDir}
}

// NewFileLoader creates a loader for an explicit config file. Unlike the
// directory lookup, a missing file is an error.
func NewFileLoader(path string) Loader {
	return &loader{configFile: path}
}

var keys = []string{
	"budget.lines",
	"budget.chars",
	"format",
	"workers",
	"max_file_size",
	"syntax_check",
	"cache_size",
	"paths.include",
	"paths.exclude",
	"languages",
	"log.level",
}

// Load loads configuration with the following priority (highest to lowest):
// 1. Environment variables (FILEMAP_*)
// 2. Config file
// 3. Default values
func (l *loader) Load() (*Config, error) {
	v := viper.New()

	if l.configFile != "" {
		v.SetConfigFile(l.configFile)
	} else {
		v.SetConfigName(".filemap")
		v.SetConfigType("yaml")
		v.AddConfigPath(l.rootDir)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("binding %s: %w", key, err)
		}
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// Config file not found is acceptable - we'll use defaults + env vars
		var notFound viper.ConfigFileNotFoundError
		if l.configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("budget.lines", defaults.Budget.Lines)
	v.SetDefault("budget.chars", defaults.Budget.Chars)
	v.SetDefault("format", defaults.Format)
	v.SetDefault("workers", defaults.Workers)
	v.SetDefault("max_file_size", defaults.MaxFileSize)
	v.SetDefault("syntax_check", defaults.SyntaxCheck)
	v.SetDefault("cache_size", defaults.CacheSize)
	v.SetDefault("paths.include", defaults.Paths.Include)
	v.SetDefault("paths.exclude", defaults.Paths.Exclude)
	v.SetDefault("languages", defaults.Languages)
	v.SetDefault("log.level", defaults.Log.Level)
}

// LoadConfigFromDir loads configuration from a specific directory.
func LoadConfigFromDir(rootDir string) (*Config, error) {
	return NewLoader(rootDir).Load()
}
