package settings

import (
	"encoding/json"
	"runtime"
	"testing"
)

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("uses posix paths")
	}
}

func TestParseRules(t *testing.T) {
	raw := []any{
		"packages/a",
		map[string]any{"directory": "packages/b", "changeProcessCWD": true},
		map[string]any{"directory": "packages/c", "changeProcessCWD": false},
		map[string]any{"directory": "packages/d", "!cwd": true},
		map[string]any{"pattern": "apps/*/", "!cwd": true},
		map[string]any{"mode": "location"},
		map[string]any{"mode": "bogus"},
		map[string]any{"unrelated": 1},
		17,
	}

	got := ParseRules(raw)
	want := []Rule{
		{Kind: KindDirectory, Directory: "packages/a"},
		{Kind: KindDirectory, Directory: "packages/b", NoCWD: false},
		{Kind: KindDirectory, Directory: "packages/c", NoCWD: true},
		{Kind: KindDirectory, Directory: "packages/d", NoCWD: true},
		{Kind: KindPattern, Pattern: "apps/*/", NoCWD: true},
		{Kind: KindMode, Mode: ModeLocation},
	}
	if len(got) != len(want) {
		t.Fatalf("ParseRules() returned %d rules, want %d: %+v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("rule %d = %+v, want %+v", i, got[i], want[i])
		}
	}

	single := ParseRules(map[string]any{"mode": "auto"})
	if len(single) != 1 || single[0].Mode != ModeAuto {
		t.Errorf("single mode object = %+v", single)
	}
	if ParseRules("nonsense") != nil {
		t.Error("scalar input should yield no rules")
	}
}

func TestResolveWorkingDirectory(t *testing.T) {
	skipOnWindows(t)

	tests := []struct {
		name  string
		doc   string
		rules []Rule
		want  *WorkingDirectory
	}{
		{
			name: "longest match wins",
			doc:  "/ws/a/b/file.ts",
			rules: []Rule{
				{Kind: KindDirectory, Directory: "/ws/a/"},
				{Kind: KindDirectory, Directory: "/ws/a/b/"},
			},
			want: &WorkingDirectory{Directory: "/ws/a/b/"},
		},
		{
			name: "longest match wins regardless of order",
			doc:  "/ws/a/b/file.ts",
			rules: []Rule{
				{Kind: KindDirectory, Directory: "/ws/a/b"},
				{Kind: KindDirectory, Directory: "/ws/a"},
			},
			want: &WorkingDirectory{Directory: "/ws/a/b/"},
		},
		{
			name: "equal length later rule wins",
			doc:  "/ws/a/file.ts",
			rules: []Rule{
				{Kind: KindDirectory, Directory: "/ws/a/"},
				{Kind: KindPattern, Pattern: "/ws/?/", NoCWD: true},
			},
			want: &WorkingDirectory{Directory: "/ws/a/", NoCWD: true},
		},
		{
			name:  "relative directory joins folder",
			doc:   "/ws/packages/app/src/index.js",
			rules: []Rule{{Kind: KindDirectory, Directory: "packages/app"}},
			want:  &WorkingDirectory{Directory: "/ws/packages/app/"},
		},
		{
			name:  "pattern match yields matched span",
			doc:   "/ws/packages/app/src/index.js",
			rules: []Rule{{Kind: KindPattern, Pattern: "packages/*"}},
			want:  &WorkingDirectory{Directory: "/ws/packages/app/"},
		},
		{
			name:  "pattern alternation",
			doc:   "/ws/libs/core/x.js",
			rules: []Rule{{Kind: KindPattern, Pattern: "{apps,libs}/*/"}},
			want:  &WorkingDirectory{Directory: "/ws/libs/core/"},
		},
		{
			name:  "directory prefix must end at a separator",
			doc:   "/ws/abc/file.ts",
			rules: []Rule{{Kind: KindDirectory, Directory: "/ws/a"}},
			want:  nil,
		},
		{
			name: "mode is only a fallback",
			doc:  "/ws/a/file.ts",
			rules: []Rule{
				{Kind: KindMode, Mode: ModeLocation},
				{Kind: KindDirectory, Directory: "/ws/a/"},
			},
			want: &WorkingDirectory{Directory: "/ws/a/"},
		},
		{
			name: "mode used when nothing matches",
			doc:  "/other/file.ts",
			rules: []Rule{
				{Kind: KindDirectory, Directory: "/ws/a/"},
				{Kind: KindMode, Mode: ModeAuto},
			},
			want: &WorkingDirectory{Mode: ModeAuto},
		},
		{
			name: "malformed pattern is skipped",
			doc:  "/ws/a/file.ts",
			rules: []Rule{
				{Kind: KindDirectory, Directory: "/ws/"},
				{Kind: KindPattern, Pattern: "/ws/{a/"},
			},
			want: &WorkingDirectory{Directory: "/ws/"},
		},
		{
			name:  "no file path",
			doc:   "",
			rules: []Rule{{Kind: KindMode, Mode: ModeAuto}},
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveWorkingDirectory(tt.doc, "/ws", tt.rules)
			switch {
			case tt.want == nil && got != nil:
				t.Errorf("got %+v, want nil", got)
			case tt.want != nil && got == nil:
				t.Errorf("got nil, want %+v", tt.want)
			case tt.want != nil && *got != *tt.want:
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestWorkingDirectory_MarshalJSON(t *testing.T) {
	tests := []struct {
		in   WorkingDirectory
		want string
	}{
		{WorkingDirectory{Mode: ModeLocation}, `{"mode":"location"}`},
		{WorkingDirectory{Directory: "/ws/a/", NoCWD: true}, `{"!cwd":true,"directory":"/ws/a/"}`},
	}
	for _, tt := range tests {
		data, err := json.Marshal(tt.in)
		if err != nil {
			t.Fatalf("Marshal() error = %v", err)
		}
		if string(data) != tt.want {
			t.Errorf("Marshal(%+v) = %s, want %s", tt.in, data, tt.want)
		}
	}
}

func TestCompileGlob(t *testing.T) {
	skipOnWindows(t)
	if runtime.GOOS == "darwin" {
		t.Skip("case-insensitive matching")
	}

	tests := []struct {
		pattern string
		input   string
		want    string
	}{
		{"/ws/*/", "/ws/a/b/c.js", "/ws/a/"},
		{"/ws/**/", "/ws/a/b/c.js", "/ws/a/b/"},
		{"/ws/?x/", "/ws/ax/c.js", "/ws/ax/"},
		{"/ws/[ab]/", "/ws/b/c.js", "/ws/b/"},
		{"/ws/[!ab]/", "/ws/b/c.js", ""},
		{"/ws/a.b/", "/ws/axb/c.js", ""},
		{"/ws/A/", "/ws/a/c.js", ""},
	}
	for _, tt := range tests {
		re, err := compileGlob(tt.pattern)
		if err != nil {
			t.Fatalf("compileGlob(%q) error = %v", tt.pattern, err)
		}
		if got := re.FindString(tt.input); got != tt.want {
			t.Errorf("compileGlob(%q).FindString(%q) = %q, want %q", tt.pattern, tt.input, got, tt.want)
		}
	}

	for _, bad := range []string{"/ws/{a", "/ws/a}", "/ws/[ab"} {
		if _, err := compileGlob(bad); err == nil {
			t.Errorf("compileGlob(%q) succeeded, want error", bad)
		}
	}
}
