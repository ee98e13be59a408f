package tools

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"confluence-mcp/internal/confluence"
)

// args wraps the raw argument object of a tool call. Values arrive as JSON
// types from MCP hosts and as strings from the call command, so numeric and
// boolean accessors accept both.
type args map[string]any

func invalid(format string, a ...interface{}) error {
	return &confluence.Error{Kind: confluence.KindValidation, Message: fmt.Sprintf(format, a...)}
}

func (a args) lookup(name string) (any, bool) {
	v, ok := a[name]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

func (a args) optionalString(name, def string) (string, error) {
	v, ok := a.lookup(name)
	if !ok {
		return def, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", invalid("%s must be a string", name)
	}
	if strings.TrimSpace(s) == "" {
		return def, nil
	}
	return s, nil
}

func (a args) requiredString(name string) (string, error) {
	s, err := a.optionalString(name, "")
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(s) == "" {
		return "", invalid("%s is required", name)
	}
	return s, nil
}

// identifier is a required string that is used as a URL path segment.
func (a args) identifier(name string) (string, error) {
	s, err := a.requiredString(name)
	if err != nil {
		return "", err
	}
	s = strings.TrimSpace(s)
	if strings.ContainsAny(s, "/?#") || strings.Contains(s, "..") {
		return "", invalid("%s has an invalid format", name)
	}
	return s, nil
}

func (a args) optionalIdentifier(name string) (string, error) {
	s, err := a.optionalString(name, "")
	if err != nil || s == "" {
		return "", err
	}
	return a.identifier(name)
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) || math.IsNaN(n) {
			return 0, false
		}
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		return int(i), err == nil
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		return i, err == nil
	}
	return 0, false
}

func (a args) integer(name string, def, lo, hi int) (int, error) {
	v, ok := a.lookup(name)
	if !ok {
		return def, nil
	}
	n, ok := toInt(v)
	if !ok {
		return 0, invalid("%s must be an integer", name)
	}
	if n < lo || n > hi {
		return 0, invalid("%s must be between %d and %d, got %d", name, lo, hi, n)
	}
	return n, nil
}

func (a args) requiredInteger(name string, lo, hi int) (int, error) {
	if _, ok := a.lookup(name); !ok {
		return 0, invalid("%s is required", name)
	}
	return a.integer(name, 0, lo, hi)
}

func (a args) boolean(name string, def bool) (bool, error) {
	v, ok := a.lookup(name)
	if !ok {
		return def, nil
	}
	switch b := v.(type) {
	case bool:
		return b, nil
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(b))
		if err == nil {
			return parsed, nil
		}
	}
	return false, invalid("%s must be a boolean", name)
}

func (a args) enum(name, def string, allowed ...string) (string, error) {
	s, err := a.optionalString(name, def)
	if err != nil {
		return "", err
	}
	s = strings.ToLower(strings.TrimSpace(s))
	for _, candidate := range allowed {
		if s == candidate {
			return s, nil
		}
	}
	return "", invalid("%s must be one of %s, got '%s'", name, strings.Join(allowed, ", "), s)
}
