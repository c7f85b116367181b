package loader

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

func parseYAML(source string, data []byte) (map[string]any, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		perr := &ParseError{Path: source, Message: err.Error(), Err: err}
		if terr, ok := err.(*yaml.TypeError); ok && len(terr.Errors) > 0 {
			perr.Message = terr.Errors[0]
		}
		return nil, perr
	}
	if raw == nil {
		return make(map[string]any), nil
	}

	config, ok := normalizeYAML(raw).(map[string]any)
	if !ok {
		return nil, &ParseError{Path: source, Message: fmt.Sprintf("top level must be a mapping, got %T", raw)}
	}
	return config, nil
}

// normalizeYAML converts map[any]any nodes produced for non-string keys so
// that every mapping is a map[string]any, like the TOML decoder yields.
func normalizeYAML(v any) any {
	switch val := v.(type) {
	case map[string]any:
		for k, item := range val {
			val[k] = normalizeYAML(item)
		}
		return val
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[fmt.Sprint(k)] = normalizeYAML(item)
		}
		return out
	case []any:
		for i, item := range val {
			val[i] = normalizeYAML(item)
		}
		return val
	default:
		return v
	}
}

func encodeYAML(data map[string]any) ([]byte, error) {
	return yaml.Marshal(data)
}
