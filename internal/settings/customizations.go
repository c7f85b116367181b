package settings

import (
	"github.com/dshills/lintbridge/internal/config"
	"github.com/dshills/lintbridge/internal/lsp"
)

// RuleCustomization overrides the severity of rules matching Rule.
type RuleCustomization struct {
	Rule     string `json:"rule"`
	Severity string `json:"severity"`
	Fixable  *bool  `json:"fixable,omitempty"`
}

// ResolveRuleCustomizations returns the customizations for the document at
// uri. Notebook cells use the notebook list when it has entries and fall
// back to the global list. Malformed entries are dropped; order is kept.
func ResolveRuleCustomizations(scope *config.Scope, uri lsp.DocumentURI) []RuleCustomization {
	var raw []any
	if uri.Scheme() == lsp.SchemeNotebookCell {
		raw = scope.List(config.KeyNotebookCustomizations)
	}
	if len(raw) == 0 {
		raw = scope.List(config.KeyRuleCustomizations)
	}
	return parseCustomizations(raw)
}

func parseCustomizations(raw []any) []RuleCustomization {
	out := make([]RuleCustomization, 0, len(raw))
	for _, entry := range raw {
		m, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		rule, ok := m["rule"].(string)
		if !ok {
			continue
		}
		severity, ok := m["severity"].(string)
		if !ok {
			continue
		}
		c := RuleCustomization{Rule: rule, Severity: severity}
		if fixable, ok := m["fixable"].(bool); ok {
			c.Fixable = &fixable
		}
		out = append(out, c)
	}
	return out
}
