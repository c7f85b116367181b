package schema

import (
	"fmt"
	"strings"
)

// Violation is one place where settings do not match the schema.
type Violation struct {
	// Path is the dotted settings path, empty for the document root.
	Path   string
	Reason string
}

func (v Violation) String() string {
	if v.Path == "" {
		return v.Reason
	}
	return v.Path + ": " + v.Reason
}

// Violations is returned by Validator.Validate when settings do not match.
type Violations []Violation

func (vs Violations) Error() string {
	switch len(vs) {
	case 0:
		return "settings match the schema"
	case 1:
		return vs[0].String()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d schema violations", len(vs))
	for _, v := range vs {
		b.WriteString("\n  ")
		b.WriteString(v.String())
	}
	return b.String()
}

// Paths returns each failing path once, in report order.
func (vs Violations) Paths() []string {
	seen := make(map[string]struct{}, len(vs))
	paths := make([]string, 0, len(vs))
	for _, v := range vs {
		if _, dup := seen[v.Path]; dup {
			continue
		}
		seen[v.Path] = struct{}{}
		paths = append(paths, v.Path)
	}
	return paths
}
