// Package config loads filemap settings from defaults, an optional
// .filemap.yaml file and FILEMAP_* environment variables.
package config

import (
	"github.com/phobologic/filemap/internal/ranking"
)

// DefaultMaxFileSize is the per-file ceiling above which batch mapping
// emits a placeholder instead of a map.
const DefaultMaxFileSize = 1_000_000 // 1 MB

// Config is the complete filemap configuration.
type Config struct {
	Budget      BudgetConfig `yaml:"budget" mapstructure:"budget"`
	Format      string       `yaml:"format" mapstructure:"format"`
	Workers     int          `yaml:"workers" mapstructure:"workers"` // 0 means GOMAXPROCS
	MaxFileSize int          `yaml:"max_file_size" mapstructure:"max_file_size"`
	SyntaxCheck bool         `yaml:"syntax_check" mapstructure:"syntax_check"`
	CacheSize   int          `yaml:"cache_size" mapstructure:"cache_size"` // 0 disables the result cache
	Paths       PathsConfig  `yaml:"paths" mapstructure:"paths"`
	Languages   []string     `yaml:"languages" mapstructure:"languages"`
	Log         LogConfig    `yaml:"log" mapstructure:"log"`
}

// BudgetConfig caps each map. At most one of Lines and Chars may be set;
// zero means unlimited.
type BudgetConfig struct {
	Lines int `yaml:"lines" mapstructure:"lines"`
	Chars int `yaml:"chars" mapstructure:"chars"`
}

// PathsConfig narrows directory discovery.
type PathsConfig struct {
	Include []string `yaml:"include" mapstructure:"include"`
	Exclude []string `yaml:"exclude" mapstructure:"exclude"`
}

// LogConfig sets the log level: debug, info, warn or error.
type LogConfig struct {
	Level string `yaml:"level" mapstructure:"level"`
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Format:      "text",
		MaxFileSize: DefaultMaxFileSize,
		SyntaxCheck: true,
		CacheSize:   512,
		Paths: PathsConfig{
			Include: []string{},
			Exclude: []string{},
		},
		Languages: []string{},
		Log:       LogConfig{Level: "warn"},
	}
}

// MapBudget converts the budget settings to a trimming budget.
func (c *Config) MapBudget() ranking.Budget {
	switch {
	case c.Budget.Lines > 0:
		return ranking.LinesBudget(c.Budget.Lines)
	case c.Budget.Chars > 0:
		return ranking.CharsBudget(c.Budget.Chars)
	}
	return ranking.NoBudget
}
