package mcp

import (
	"fmt"

	"github.com/phobologic/filemap/internal/ranking"
	"github.com/phobologic/filemap/internal/render"
)

// parseStringArg extracts a string argument from an MCP arguments map.
// Returns an error if the argument is required but missing or invalid.
func parseStringArg(argsMap map[string]interface{}, key string, required bool) (string, error) {
	val, ok := argsMap[key]
	if !ok {
		if required {
			return "", fmt.Errorf("%s parameter is required", key)
		}
		return "", nil
	}

	str, ok := val.(string)
	if !ok {
		return "", fmt.Errorf("%s must be a string", key)
	}

	if required && str == "" {
		return "", fmt.Errorf("%s cannot be empty", key)
	}

	return str, nil
}

// parseIntArgPtr extracts an optional integer argument as a pointer.
// MCP sends numbers as float64.
func parseIntArgPtr(argsMap map[string]interface{}, key string) (*int, error) {
	val, ok := argsMap[key]
	if !ok {
		return nil, nil
	}

	f, ok := val.(float64)
	if !ok {
		return nil, fmt.Errorf("%s must be a number", key)
	}
	result := int(f)
	return &result, nil
}

// parseArrayArg extracts a string array argument, dropping non-string
// elements. Returns nil if the argument is missing.
func parseArrayArg(argsMap map[string]interface{}, key string) []string {
	val, ok := argsMap[key]
	if !ok {
		return nil
	}

	arr, ok := val.([]interface{})
	if !ok {
		return nil
	}

	result := make([]string, 0, len(arr))
	for _, item := range arr {
		if str, ok := item.(string); ok {
			result = append(result, str)
		}
	}
	return result
}

// parseBudget reads budget_lines or budget_chars. At most one may be set.
func parseBudget(argsMap map[string]interface{}) (ranking.Budget, error) {
	lines, err := parseIntArgPtr(argsMap, "budget_lines")
	if err != nil {
		return ranking.NoBudget, err
	}
	chars, err := parseIntArgPtr(argsMap, "budget_chars")
	if err != nil {
		return ranking.NoBudget, err
	}

	switch {
	case lines != nil && chars != nil:
		return ranking.NoBudget, fmt.Errorf("budget_lines and budget_chars are mutually exclusive")
	case lines != nil:
		if *lines < 0 {
			return ranking.NoBudget, fmt.Errorf("budget_lines must not be negative")
		}
		return ranking.LinesBudget(*lines), nil
	case chars != nil:
		if *chars < 0 {
			return ranking.NoBudget, fmt.Errorf("budget_chars must not be negative")
		}
		return ranking.CharsBudget(*chars), nil
	}
	return ranking.NoBudget, nil
}

// parseFormatArg reads the optional format argument, defaulting to text.
func parseFormatArg(argsMap map[string]interface{}) (render.Format, error) {
	s, err := parseStringArg(argsMap, "format", false)
	if err != nil {
		return "", err
	}
	if s == "" {
		return render.FormatText, nil
	}
	return render.ParseFormat(s)
}
