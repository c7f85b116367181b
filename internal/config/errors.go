package config

import (
	"errors"
	"fmt"

	"github.com/dshills/lintbridge/internal/config/layer"
)

var (
	// ErrSettingNotFound is returned by the strict Scope getters when no
	// layer sets the path.
	ErrSettingNotFound = errors.New("setting not found")

	// ErrTypeMismatch matches every *TypeError.
	ErrTypeMismatch = errors.New("type mismatch")

	ErrLayerNotFound = layer.ErrLayerNotFound
	ErrReadOnly      = layer.ErrReadOnly

	// ErrNotPersistent is returned by Save for layers without a settings
	// file, such as the builtin defaults and the environment.
	ErrNotPersistent = errors.New("layer has no settings file")
)

// TypeError reports a setting whose value has the wrong shape.
type TypeError struct {
	Path string
	Want string
	Got  any
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("setting %s: want %s, got %s", e.Path, e.Want, kindOf(e.Got))
}

func (e *TypeError) Is(target error) bool {
	return target == ErrTypeMismatch
}

// kindOf names the shape of a decoded settings value.
func kindOf(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "bool"
	case int, int64, uint64, float64:
		return "number"
	case []any, []string:
		return "list"
	case map[string]any:
		return "table"
	}
	return fmt.Sprintf("%T", v)
}
