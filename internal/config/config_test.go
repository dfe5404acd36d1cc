package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phobologic/filemap/internal/ranking"
)

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefault_IsValid(t *testing.T) {
	t.Parallel()

	cfg := Default()
	assert.Equal(t, "text", cfg.Format)
	assert.Equal(t, DefaultMaxFileSize, cfg.MaxFileSize)
	assert.True(t, cfg.SyntaxCheck)
	assert.Equal(t, 512, cfg.CacheSize)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, ranking.NoBudget, cfg.MapBudget())
	assert.NoError(t, Validate(cfg))
}

func TestLoad_UsesDefaultsWhenNoConfigFile(t *testing.T) {
	t.Parallel()

	cfg, err := NewLoader(t.TempDir()).Load()
	require.NoError(t, err)

	expected := Default()
	assert.Equal(t, expected.Format, cfg.Format)
	assert.Equal(t, expected.MaxFileSize, cfg.MaxFileSize)
	assert.Equal(t, expected.SyntaxCheck, cfg.SyntaxCheck)
	assert.Equal(t, expected.CacheSize, cfg.CacheSize)
	assert.Equal(t, expected.Log.Level, cfg.Log.Level)
	assert.Empty(t, cfg.Paths.Include)
	assert.Empty(t, cfg.Languages)
}

func TestLoad_ReadsConfigFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeConfig(t, dir, ".filemap.yaml", `
budget:
  lines: 80
format: toon
workers: 4
syntax_check: false
paths:
  include: ["src/**"]
  exclude: ["**/*_test.go"]
languages: [rust, go]
log:
  level: debug
`)

	cfg, err := NewLoader(dir).Load()
	require.NoError(t, err)

	assert.Equal(t, ranking.LinesBudget(80), cfg.MapBudget())
	assert.Equal(t, "toon", cfg.Format)
	assert.Equal(t, 4, cfg.Workers)
	assert.False(t, cfg.SyntaxCheck)
	assert.Equal(t, []string{"src/**"}, cfg.Paths.Include)
	assert.Equal(t, []string{"**/*_test.go"}, cfg.Paths.Exclude)
	assert.Equal(t, []string{"rust", "go"}, cfg.Languages)
	assert.Equal(t, "debug", cfg.Log.Level)

	// untouched keys keep their defaults
	assert.Equal(t, DefaultMaxFileSize, cfg.MaxFileSize)
	assert.Equal(t, 512, cfg.CacheSize)
}

func TestLoad_ExplicitFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeConfig(t, dir, "custom.yml", "budget:\n  chars: 2000\n")

	cfg, err := NewFileLoader(path).Load()
	require.NoError(t, err)
	assert.Equal(t, ranking.CharsBudget(2000), cfg.MapBudget())

	_, err = NewFileLoader(filepath.Join(dir, "missing.yaml")).Load()
	assert.Error(t, err)
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	// Note: Cannot use t.Parallel() with t.Setenv()
	dir := t.TempDir()
	writeConfig(t, dir, ".filemap.yaml", "format: json\nworkers: 2\n")

	t.Setenv("FILEMAP_FORMAT", "yaml")
	t.Setenv("FILEMAP_BUDGET_CHARS", "1500")
	t.Setenv("FILEMAP_SYNTAX_CHECK", "false")

	cfg, err := NewLoader(dir).Load()
	require.NoError(t, err)
	assert.Equal(t, "yaml", cfg.Format)
	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, ranking.CharsBudget(1500), cfg.MapBudget())
	assert.False(t, cfg.SyntaxCheck)
}

func TestLoad_MalformedYaml(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeConfig(t, dir, ".filemap.yaml", "budget: [unclosed\n")

	_, err := NewLoader(dir).Load()
	assert.ErrorContains(t, err, "failed to read config file")
}

func TestLoad_InvalidValues(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeConfig(t, dir, ".filemap.yaml", "format: xml\n")

	_, err := NewLoader(dir).Load()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidFormat)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		modify func(*Config)
		want   error
	}{
		{"negative budget", func(c *Config) { c.Budget.Lines = -1 }, ErrInvalidBudget},
		{"both budgets", func(c *Config) { c.Budget.Lines, c.Budget.Chars = 10, 100 }, ErrInvalidBudget},
		{"unknown format", func(c *Config) { c.Format = "xml" }, ErrInvalidFormat},
		{"negative workers", func(c *Config) { c.Workers = -2 }, ErrInvalidWorkers},
		{"zero file size", func(c *Config) { c.MaxFileSize = 0 }, ErrInvalidFileSize},
		{"negative cache", func(c *Config) { c.CacheSize = -1 }, ErrInvalidCacheSize},
		{"unknown language", func(c *Config) { c.Languages = []string{"rust", "cobol"} }, ErrUnknownLanguage},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }, ErrInvalidLogLevel},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := Default()
			tc.modify(cfg)
			assert.ErrorIs(t, Validate(cfg), tc.want)
		})
	}
}

func TestValidate_JoinsMultipleErrors(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Format = "xml"
	cfg.Workers = -1
	cfg.CacheSize = -1

	err := Validate(cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidFormat)
	assert.ErrorIs(t, err, ErrInvalidWorkers)
	assert.ErrorIs(t, err, ErrInvalidCacheSize)
	assert.Contains(t, err.Error(), "validation failed:\n  - invalid format")
}
