// Package schema validates lintbridge settings against the embedded JSON
// schema.
//
// Validation is advisory: the configuration store logs violations and keeps
// the offending values, since every reader already falls back to defaults
// for values of the wrong shape.
package schema

import (
	"bytes"
	"embed"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

//go:embed lintbridge.schema.json
var schemaFS embed.FS

const schemaURL = "lintbridge.schema.json"

// schemaCache caches the compiled schema.
var (
	schemaCache     *jsonschema.Schema
	schemaCacheOnce sync.Once
	schemaCacheErr  error
)

// LoadEmbedded compiles the embedded settings schema once.
func LoadEmbedded() (*jsonschema.Schema, error) {
	schemaCacheOnce.Do(func() {
		data, err := schemaFS.ReadFile(schemaURL)
		if err != nil {
			schemaCacheErr = fmt.Errorf("failed to read embedded schema: %w", err)
			return
		}
		schemaCache, schemaCacheErr = Compile(data)
	})

	return schemaCache, schemaCacheErr
}

// Compile compiles a JSON schema document.
func Compile(data []byte) (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse schema: %w", err)
	}

	c := jsonschema.NewCompiler()
	if err := c.AddResource(schemaURL, doc); err != nil {
		return nil, fmt.Errorf("failed to add schema resource: %w", err)
	}
	sch, err := c.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}
	return sch, nil
}
