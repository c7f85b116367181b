package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Validator validates configuration maps against a compiled schema.
type Validator struct {
	schema *jsonschema.Schema
}

// NewValidator creates a validator for the embedded settings schema.
func NewValidator() (*Validator, error) {
	sch, err := LoadEmbedded()
	if err != nil {
		return nil, err
	}
	return &Validator{schema: sch}, nil
}

// Validate checks configuration data. It returns nil, Violations listing
// every failing location, or an error when data cannot be checked at all.
func (v *Validator) Validate(data map[string]any) error {
	if v == nil || v.schema == nil {
		return nil
	}

	// Round-trip through JSON so decoder-specific Go types (int64, time
	// values from TOML) are presented in the form the validator expects.
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encoding settings for validation: %w", err)
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("decoding settings for validation: %w", err)
	}

	err = v.schema.Validate(inst)
	if err == nil {
		return nil
	}

	var verr *jsonschema.ValidationError
	if !errors.As(err, &verr) {
		return err
	}

	vs := leafViolations(verr.BasicOutput(), nil)
	if len(vs) == 0 {
		vs = Violations{{Reason: verr.Error()}}
	}
	return vs
}

// leafViolations appends the innermost failures of unit to vs.
func leafViolations(unit *jsonschema.OutputUnit, vs Violations) Violations {
	if unit == nil {
		return vs
	}
	if unit.Error != nil && len(unit.Errors) == 0 {
		vs = append(vs, Violation{Path: pointerToPath(unit.InstanceLocation), Reason: unit.Error.String()})
	}
	for i := range unit.Errors {
		vs = leafViolations(&unit.Errors[i], vs)
	}
	return vs
}

// pointerToPath converts a JSON pointer such as /eslint/enable to the
// dotted form used by the configuration store.
func pointerToPath(ptr string) string {
	ptr = strings.TrimPrefix(ptr, "/")
	if ptr == "" {
		return ""
	}
	parts := strings.Split(ptr, "/")
	for i, p := range parts {
		p = strings.ReplaceAll(p, "~1", "/")
		parts[i] = strings.ReplaceAll(p, "~0", "~")
	}
	return strings.Join(parts, ".")
}
