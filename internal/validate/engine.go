// Package validate decides whether an open document is handed to the lint
// server.
package validate

import (
	"sync"

	"github.com/dshills/lintbridge/internal/config"
	"github.com/dshills/lintbridge/internal/lsp"
)

// Decision is the validation decision for a document.
type Decision int

const (
	// Off means the document is not synchronized with the server.
	Off Decision = iota
	// On means the document is validated.
	On
	// Probe means the document is validated tentatively; the server may
	// revoke it with eslint/probeFailed.
	Probe
)

// String returns the decision name.
func (d Decision) String() string {
	switch d {
	case On:
		return "on"
	case Probe:
		return "probe"
	default:
		return "off"
	}
}

// Engine computes validation decisions. It owns the set of documents the
// server reported as failed probes.
type Engine struct {
	mu     sync.RWMutex
	failed map[lsp.DocumentURI]struct{}
}

// NewEngine creates an engine with an empty probe failure set.
func NewEngine() *Engine {
	return &Engine{failed: make(map[lsp.DocumentURI]struct{})}
}

// Decide returns the decision for doc under the settings in scope. It does
// not modify any state.
func (e *Engine) Decide(doc lsp.TextDocument, scope *config.Scope) Decision {
	if !scope.Bool(config.KeyEnable, true) {
		return Off
	}
	if doc.Scheme() == lsp.SchemeUntitled && scope.Bool(config.KeyIgnoreUntitled, false) {
		return Off
	}

	// A configured validate list is authoritative; probing never applies.
	if languages := ValidateLanguages(scope.List(config.KeyValidate)); len(languages) > 0 {
		for _, lang := range languages {
			if lang == doc.LanguageID {
				return On
			}
		}
		return Off
	}

	if e.HasFailed(doc.URI) {
		return Off
	}

	for _, lang := range scope.Strings(config.KeyProbe) {
		if lang == doc.LanguageID {
			return Probe
		}
	}
	return Off
}

// ProbeFailed records that the server could not validate uri.
func (e *Engine) ProbeFailed(uri lsp.DocumentURI) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failed[uri] = struct{}{}
}

// HasFailed reports whether uri is in the probe failure set.
func (e *Engine) HasFailed(uri lsp.DocumentURI) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.failed[uri]
	return ok
}

// Clear empties the probe failure set. It runs on every configuration
// change, so failed probes get a second chance.
func (e *Engine) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	clear(e.failed)
}

// ValidateLanguages extracts language ids from an eslint.validate list.
// Entries are either a language id or a legacy {language, autoFix} object.
// Anything else is skipped.
func ValidateLanguages(items []any) []string {
	var out []string
	for _, item := range items {
		switch v := item.(type) {
		case string:
			out = append(out, v)
		case map[string]any:
			if lang, ok := v["language"].(string); ok {
				out = append(out, lang)
			}
		}
	}
	return out
}
