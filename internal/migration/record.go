package migration

import (
	"errors"
	"fmt"
	"maps"

	"github.com/google/uuid"

	"github.com/dshills/lintbridge/internal/config"
	"github.com/dshills/lintbridge/internal/lsp"
)

// Store is the configuration store a migration reads and rewrites.
type Store interface {
	Scope(folder, languageID string) *config.Scope
	WritableLayers(folder string) []string
	LayerValue(layerName, path string) (any, bool)
	Set(layerName, path string, value any) error
	Delete(layerName, path string) error
	Save(layerName string) error
}

// fixAllAction is the code action key written by a migration.
const fixAllAction = "source.fixAll.eslint"

// layerSettings holds the legacy settings found in one layer.
type layerSettings struct {
	name string

	autoFix        bool
	hasAutoFix     bool
	validate       []any
	codeActionsRaw any
}

// needsUpdate reports whether the layer carries settings in the old shape.
func (s *layerSettings) needsUpdate() bool {
	if s.hasAutoFix {
		return true
	}
	for _, item := range s.validate {
		if _, ok := item.(map[string]any); ok {
			return true
		}
	}
	return false
}

// Record captures the legacy settings of one resource across all writable
// layers and rewrites them into the current shape.
type Record struct {
	ID       uuid.UUID
	Resource lsp.DocumentURI
	Folder   string

	store  Store
	layers []*layerSettings

	// effectiveAutoFix is the autoFixOnSave value of the highest layer
	// that sets it.
	effectiveAutoFix bool
}

// NewRecord creates a record for resource inside folder.
func NewRecord(store Store, resource lsp.DocumentURI, folder string) *Record {
	return &Record{
		ID:       uuid.New(),
		Resource: resource,
		Folder:   folder,
		store:    store,
	}
}

// Capture reads the legacy settings from every writable layer.
func (r *Record) Capture() {
	r.layers = r.layers[:0]
	r.effectiveAutoFix = false

	for _, name := range r.store.WritableLayers(r.Folder) {
		s := &layerSettings{name: name}
		if v, ok := r.store.LayerValue(name, config.KeyAutoFixOnSave); ok {
			if b, ok := v.(bool); ok {
				s.autoFix = b
				s.hasAutoFix = true
				r.effectiveAutoFix = b
			}
		}
		if v, ok := r.store.LayerValue(name, config.KeyValidate); ok {
			if list, ok := v.([]any); ok {
				s.validate = list
			}
		}
		if v, ok := r.store.LayerValue(name, config.KeyEditorCodeActionsOnSave); ok {
			s.codeActionsRaw = v
		}
		r.layers = append(r.layers, s)
	}
}

// NeedsUpdate reports whether any layer holds settings to migrate.
func (r *Record) NeedsUpdate() bool {
	for _, s := range r.layers {
		if s.needsUpdate() {
			return true
		}
	}
	return false
}

// Update rewrites every layer that needs it and saves the changed layers.
// Errors from individual layers are joined; other layers still migrate.
func (r *Record) Update() error {
	var errs []error
	for _, s := range r.layers {
		if !s.needsUpdate() {
			continue
		}
		if err := r.updateLayer(s); err != nil {
			errs = append(errs, fmt.Errorf("migrate %s: %w", s.name, err))
			continue
		}
		if err := r.store.Save(s.name); err != nil && !errors.Is(err, config.ErrNotPersistent) {
			errs = append(errs, fmt.Errorf("save %s: %w", s.name, err))
		}
	}
	return errors.Join(errs...)
}

func (r *Record) updateLayer(s *layerSettings) error {
	autoFix := r.effectiveAutoFix
	if s.hasAutoFix {
		autoFix = s.autoFix
	}

	if s.hasAutoFix {
		if s.autoFix {
			actions := toObjectForm(s.codeActionsRaw)
			actions[fixAllAction] = true
			if err := r.store.Set(s.name, config.KeyEditorCodeActionsOnSave, actions); err != nil {
				return err
			}
		}
		if err := r.store.Delete(s.name, config.KeyAutoFixOnSave); err != nil {
			return err
		}
	}

	if s.validate == nil {
		return nil
	}

	var (
		collapsed = make([]any, 0, len(s.validate))
		changed   bool
		disabled  []string
	)
	for _, item := range s.validate {
		entry, ok := item.(map[string]any)
		if !ok {
			collapsed = append(collapsed, item)
			continue
		}
		changed = true
		lang, ok := entry["language"].(string)
		if !ok {
			continue
		}
		collapsed = append(collapsed, lang)
		if fix, ok := entry["autoFix"].(bool); ok && !fix && autoFix {
			disabled = append(disabled, lang)
		}
	}
	if !changed {
		return nil
	}
	if err := r.store.Set(s.name, config.KeyValidate, collapsed); err != nil {
		return err
	}

	for _, lang := range disabled {
		path := languageOverridePath(lang)
		existing, _ := r.store.LayerValue(s.name, path)
		actions := toObjectForm(existing)
		actions[fixAllAction] = false
		if err := r.store.Set(s.name, path, actions); err != nil {
			return err
		}
	}
	return nil
}

// languageOverridePath is where a language-specific codeActionsOnSave lives.
func languageOverridePath(lang string) string {
	return "languages." + lang + "." + config.KeyEditorCodeActionsOnSave
}

// toObjectForm converts editor.codeActionsOnSave to its object form. Array
// entries become enabled keys.
func toObjectForm(raw any) map[string]any {
	switch v := raw.(type) {
	case map[string]any:
		return maps.Clone(v)
	case []any:
		out := make(map[string]any, len(v))
		for _, item := range v {
			if action, ok := item.(string); ok {
				out[action] = true
			}
		}
		return out
	case []string:
		out := make(map[string]any, len(v))
		for _, action := range v {
			out[action] = true
		}
		return out
	default:
		return make(map[string]any)
	}
}
