package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/phobologic/filemap/internal/lang"
	"github.com/phobologic/filemap/internal/render"
)

var (
	// ErrInvalidBudget indicates a negative or ambiguous budget
	ErrInvalidBudget = errors.New("invalid budget")

	// ErrInvalidFormat indicates an unknown output format
	ErrInvalidFormat = errors.New("invalid format")

	// ErrInvalidWorkers indicates a negative worker count
	ErrInvalidWorkers = errors.New("invalid workers")

	// ErrInvalidFileSize indicates a non-positive file size ceiling
	ErrInvalidFileSize = errors.New("invalid max_file_size")

	// ErrInvalidCacheSize indicates a negative cache size
	ErrInvalidCacheSize = errors.New("invalid cache_size")

	// ErrUnknownLanguage indicates a language with no registered adapter
	ErrUnknownLanguage = errors.New("unknown language")

	// ErrInvalidLogLevel indicates an unrecognized log level
	ErrInvalidLogLevel = errors.New("invalid log level")
)

var logLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "warning": true, "error": true, "silent": true, "off": true,
}

// Validate checks that the configuration is valid and complete.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Budget.Lines < 0 || cfg.Budget.Chars < 0 {
		errs = append(errs, fmt.Errorf("%w: limits cannot be negative (lines %d, chars %d)", ErrInvalidBudget, cfg.Budget.Lines, cfg.Budget.Chars))
	}
	if cfg.Budget.Lines > 0 && cfg.Budget.Chars > 0 {
		errs = append(errs, fmt.Errorf("%w: set either lines or chars, not both", ErrInvalidBudget))
	}

	if _, err := render.ParseFormat(cfg.Format); err != nil {
		errs = append(errs, fmt.Errorf("%w: %v", ErrInvalidFormat, err))
	}

	if cfg.Workers < 0 {
		errs = append(errs, fmt.Errorf("%w: cannot be negative, got %d", ErrInvalidWorkers, cfg.Workers))
	}

	if cfg.MaxFileSize <= 0 {
		errs = append(errs, fmt.Errorf("%w: must be positive, got %d", ErrInvalidFileSize, cfg.MaxFileSize))
	}

	if cfg.CacheSize < 0 {
		errs = append(errs, fmt.Errorf("%w: cannot be negative, got %d", ErrInvalidCacheSize, cfg.CacheSize))
	}

	for _, name := range cfg.Languages {
		if _, ok := lang.Lookup(name); !ok {
			errs = append(errs, fmt.Errorf("%w: %q (valid: %s)", ErrUnknownLanguage, name, strings.Join(lang.Default.Names(), ", ")))
		}
	}

	if level := strings.ToLower(cfg.Log.Level); level != "" && !logLevels[level] {
		errs = append(errs, fmt.Errorf("%w: %q (valid: debug, info, warn, error)", ErrInvalidLogLevel, cfg.Log.Level))
	}

	return joinErrors(errs)
}

// joinErrors combines multiple errors into a single error with clear
// formatting. Every input stays reachable through errors.Is.
func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}

	if len(errs) == 1 {
		return errs[0]
	}

	format := "validation failed:" + strings.Repeat("\n  - %w", len(errs))
	args := make([]any, len(errs))
	for i, err := range errs {
		args[i] = err
	}
	return fmt.Errorf(format, args...)
}
