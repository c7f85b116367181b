package config

import (
	"math"

	"github.com/dshills/lintbridge/internal/config/layer"
)

// Scope is an immutable snapshot of the settings that apply to one
// workspace folder and language. Readers never see later changes.
type Scope struct {
	data     map[string]any
	folder   string
	language string
}

// NewScope wraps a settings map. The map must not be modified afterwards.
func NewScope(data map[string]any) *Scope {
	if data == nil {
		data = make(map[string]any)
	}
	return &Scope{data: data}
}

// Folder returns the workspace folder the scope was resolved for.
func (s *Scope) Folder() string {
	return s.folder
}

// Language returns the language id the scope was resolved for.
func (s *Scope) Language() string {
	return s.language
}

// Value returns the raw value at path.
func (s *Scope) Value(path string) (any, bool) {
	return layer.GetByPath(s.data, path)
}

// GetBool returns the boolean at path.
func (s *Scope) GetBool(path string) (bool, error) {
	v, ok := s.Value(path)
	if !ok {
		return false, ErrSettingNotFound
	}
	b, ok := v.(bool)
	if !ok {
		return false, &TypeError{Path: path, Want: "bool", Got: v}
	}
	return b, nil
}

// GetString returns the string at path.
func (s *Scope) GetString(path string) (string, error) {
	v, ok := s.Value(path)
	if !ok {
		return "", ErrSettingNotFound
	}
	str, ok := v.(string)
	if !ok {
		return "", &TypeError{Path: path, Want: "string", Got: v}
	}
	return str, nil
}

// GetInt returns the integer at path. Floats are truncated.
func (s *Scope) GetInt(path string) (int64, error) {
	v, ok := s.Value(path)
	if !ok {
		return 0, ErrSettingNotFound
	}
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int64:
		return n, nil
	case uint64:
		if n > math.MaxInt64 {
			return math.MaxInt64, nil
		}
		return int64(n), nil
	case float64:
		return int64(n), nil
	default:
		return 0, &TypeError{Path: path, Want: "int", Got: v}
	}
}

// Bool returns the boolean at path, or def when absent or mistyped.
func (s *Scope) Bool(path string, def bool) bool {
	b, err := s.GetBool(path)
	if err != nil {
		return def
	}
	return b
}

// String returns the string at path, or def when absent or mistyped.
func (s *Scope) String(path string, def string) string {
	str, err := s.GetString(path)
	if err != nil {
		return def
	}
	return str
}

// Int returns the integer at path, or def when absent or mistyped.
func (s *Scope) Int(path string, def int64) int64 {
	n, err := s.GetInt(path)
	if err != nil {
		return def
	}
	return n
}

// Strings returns the string elements of the array at path. Non-string
// elements are skipped.
func (s *Scope) Strings(path string) []string {
	v, ok := s.Value(path)
	if !ok {
		return nil
	}
	switch list := v.(type) {
	case []string:
		return append([]string(nil), list...)
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if str, ok := item.(string); ok {
				out = append(out, str)
			}
		}
		return out
	default:
		return nil
	}
}

// List returns the array at path, or nil when absent or not an array.
func (s *Scope) List(path string) []any {
	v, ok := s.Value(path)
	if !ok {
		return nil
	}
	switch list := v.(type) {
	case []any:
		return list
	case []string:
		out := make([]any, len(list))
		for i, str := range list {
			out[i] = str
		}
		return out
	default:
		return nil
	}
}

// Map returns the object at path, or nil when absent or not an object.
func (s *Scope) Map(path string) map[string]any {
	v, ok := s.Value(path)
	if !ok {
		return nil
	}
	m, _ := v.(map[string]any)
	return m
}
