package settings

import (
	"encoding/json"
	"path"
	"path/filepath"
	"runtime"
	"strings"
)

// Mode selects how the server derives the working directory itself.
type Mode string

// Working directory modes.
const (
	ModeAuto     Mode = "auto"
	ModeLocation Mode = "location"
)

// RuleKind identifies the kind of a working directory rule.
type RuleKind int

// Rule kinds.
const (
	KindDirectory RuleKind = iota
	KindPattern
	KindMode
)

// Rule is one entry of eslint.workingDirectories.
type Rule struct {
	Kind      RuleKind
	Directory string
	Pattern   string
	Mode      Mode

	// NoCWD keeps the server from changing its process directory.
	NoCWD bool
}

// WorkingDirectory is the resolved working directory sent to the server.
// Either Mode is set or Directory is.
type WorkingDirectory struct {
	Directory string
	NoCWD     bool
	Mode      Mode
}

// MarshalJSON encodes {mode} or {directory, "!cwd"}.
func (w WorkingDirectory) MarshalJSON() ([]byte, error) {
	if w.Mode != "" {
		return json.Marshal(map[string]any{"mode": w.Mode})
	}
	return json.Marshal(map[string]any{"directory": w.Directory, "!cwd": w.NoCWD})
}

// ParseRules reads the raw eslint.workingDirectories value. It accepts a
// list of entries or a single {mode} object. Malformed entries are dropped.
func ParseRules(raw any) []Rule {
	switch v := raw.(type) {
	case map[string]any:
		if r, ok := parseRule(v); ok && r.Kind == KindMode {
			return []Rule{r}
		}
		return nil
	case []any:
		rules := make([]Rule, 0, len(v))
		for _, entry := range v {
			if r, ok := parseRule(entry); ok {
				rules = append(rules, r)
			}
		}
		return rules
	case []string:
		rules := make([]Rule, 0, len(v))
		for _, dir := range v {
			rules = append(rules, Rule{Kind: KindDirectory, Directory: dir})
		}
		return rules
	default:
		return nil
	}
}

func parseRule(entry any) (Rule, bool) {
	switch v := entry.(type) {
	case string:
		return Rule{Kind: KindDirectory, Directory: v}, true
	case map[string]any:
		noCWD, _ := v["!cwd"].(bool)
		if dir, ok := v["directory"].(string); ok {
			if change, ok := v["changeProcessCWD"].(bool); ok {
				return Rule{Kind: KindDirectory, Directory: dir, NoCWD: !change}, true
			}
			return Rule{Kind: KindDirectory, Directory: dir, NoCWD: noCWD}, true
		}
		if pattern, ok := v["pattern"].(string); ok {
			return Rule{Kind: KindPattern, Pattern: pattern, NoCWD: noCWD}, true
		}
		if mode, ok := v["mode"].(string); ok && (Mode(mode) == ModeAuto || Mode(mode) == ModeLocation) {
			return Rule{Kind: KindMode, Mode: Mode(mode)}, true
		}
	}
	return Rule{}, false
}

// ResolveWorkingDirectory picks the working directory for the document at
// documentPath. Among matching directory and pattern rules the longest
// matched prefix wins and ties go to the later rule. A mode rule is only a
// fallback. An empty documentPath (no file on disk) yields nil.
func ResolveWorkingDirectory(documentPath, folderPath string, rules []Rule) *WorkingDirectory {
	if documentPath == "" {
		return nil
	}

	var (
		best     *WorkingDirectory
		bestLen  = -1
		fallback *WorkingDirectory
	)

	for _, r := range rules {
		var matched string
		switch r.Kind {
		case KindMode:
			fallback = &WorkingDirectory{Mode: r.Mode}
			continue
		case KindDirectory:
			dir, ok := matchDirectory(documentPath, folderPath, r.Directory)
			if !ok {
				continue
			}
			matched = dir
		case KindPattern:
			dir, ok := matchPattern(documentPath, folderPath, r.Pattern)
			if !ok {
				continue
			}
			matched = dir
		}

		if len(matched) >= bestLen {
			bestLen = len(matched)
			best = &WorkingDirectory{Directory: matched, NoCWD: r.NoCWD}
		}
	}

	if best != nil {
		return best
	}
	return fallback
}

func matchDirectory(documentPath, folderPath, dir string) (string, bool) {
	if dir == "" {
		return "", false
	}
	if !filepath.IsAbs(dir) {
		if folderPath == "" {
			return "", false
		}
		dir = filepath.Join(folderPath, dir)
	}
	dir = filepath.Clean(dir)
	if !strings.HasSuffix(dir, string(filepath.Separator)) {
		dir += string(filepath.Separator)
	}

	if caseInsensitiveFS() {
		if !strings.HasPrefix(strings.ToLower(documentPath), strings.ToLower(dir)) {
			return "", false
		}
	} else if !strings.HasPrefix(documentPath, dir) {
		return "", false
	}
	return dir, true
}

func matchPattern(documentPath, folderPath, pattern string) (string, bool) {
	if pattern == "" {
		return "", false
	}
	pattern = filepath.ToSlash(pattern)
	if !isAbsSlash(pattern) {
		if folderPath == "" {
			return "", false
		}
		pattern = path.Join(filepath.ToSlash(folderPath), pattern)
	}
	if !strings.HasSuffix(pattern, "/") {
		pattern += "/"
	}

	re, err := compileGlob(pattern)
	if err != nil {
		return "", false
	}
	matched := re.FindString(filepath.ToSlash(documentPath))
	if matched == "" {
		return "", false
	}
	return matched, true
}

// isAbsSlash reports whether a forward-slash path is absolute, including
// drive-letter paths.
func isAbsSlash(p string) bool {
	if strings.HasPrefix(p, "/") {
		return true
	}
	return len(p) >= 3 && p[1] == ':' && p[2] == '/'
}

func caseInsensitiveFS() bool {
	return runtime.GOOS == "darwin" || runtime.GOOS == "windows"
}
