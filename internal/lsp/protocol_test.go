package lsp

import (
	"encoding/json"
	"path/filepath"
	"runtime"
	"testing"
)

func TestDocumentURI_Scheme(t *testing.T) {
	tests := []struct {
		uri  DocumentURI
		want string
	}{
		{"file:///home/u/a.js", SchemeFile},
		{"untitled:Untitled-1", SchemeUntitled},
		{"vscode-notebook-cell:/nb.ipynb#W0sZmlsZQ", SchemeNotebookCell},
		{"FILE:///x", "file"},
		{"no-scheme", ""},
		{"/abs/path", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := tt.uri.Scheme(); got != tt.want {
			t.Errorf("DocumentURI(%q).Scheme() = %q, want %q", tt.uri, got, tt.want)
		}
	}
}

func TestDetectLanguageID(t *testing.T) {
	tests := map[string]string{
		"a.js":         "javascript",
		"a.MJS":        "javascript",
		"b.jsx":        "javascriptreact",
		"c.ts":         "typescript",
		"d.tsx":        "typescriptreact",
		"e.vue":        "vue",
		"README.md":    "markdown",
		"index.html":   "html",
		"Makefile":     "plaintext",
		"dir/x.svelte": "svelte",
	}
	for path, want := range tests {
		if got := DetectLanguageID(path); got != want {
			t.Errorf("DetectLanguageID(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestTextDocument_Path(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("posix paths")
	}
	doc := TextDocument{URI: "file:///work/src/a.js"}
	if got := doc.Path(); got != "/work/src/a.js" {
		t.Errorf("Path() = %q", got)
	}
	untitled := TextDocument{URI: "untitled:Untitled-1"}
	if got := untitled.Path(); got != "" {
		t.Errorf("untitled Path() = %q, want empty", got)
	}
}

func TestFilePathURIRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "with space", "a.ts")

	uri := FilePathToURI(path)
	if uri.Scheme() != SchemeFile {
		t.Fatalf("FilePathToURI(%q) = %q", path, uri)
	}
	if got := URIToFilePath(uri); got != path {
		t.Errorf("round trip = %q, want %q", got, path)
	}
	if FilePathToURI("") != "" || URIToFilePath("") != "" {
		t.Error("empty input should map to empty output")
	}
	if got := URIToFilePath("untitled:x"); got != "untitled:x" {
		t.Errorf("non-file URI = %q", got)
	}
}

func TestExitCalledParams_Tuple(t *testing.T) {
	var p ExitCalledParams
	if err := json.Unmarshal([]byte(`[2, "Error: exit\n    at lint.js:1"]`), &p); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if p.Code != 2 || p.Stack != "Error: exit\n    at lint.js:1" {
		t.Errorf("decoded %+v", p)
	}

	data, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(data) != `[2,"Error: exit\n    at lint.js:1"]` {
		t.Errorf("encoded %s", data)
	}

	for _, bad := range []string{`[1]`, `{"code":1}`, `["x","y"]`} {
		if err := json.Unmarshal([]byte(bad), &p); err == nil {
			t.Errorf("Unmarshal(%s) succeeded, want error", bad)
		}
	}
}

func TestStatus_String(t *testing.T) {
	tests := map[Status]string{
		StatusOK:    "ok",
		StatusWarn:  "warn",
		StatusError: "error",
		Status(9):   "unknown",
	}
	for s, want := range tests {
		if got := s.String(); got != want {
			t.Errorf("Status(%d).String() = %q, want %q", s, got, want)
		}
	}
}

func TestStatusParams_OptionalTime(t *testing.T) {
	var sp StatusParams
	if err := json.Unmarshal([]byte(`{"uri":"file:///a.js","state":2}`), &sp); err != nil {
		t.Fatal(err)
	}
	if sp.State != StatusWarn || sp.ValidationTime != nil {
		t.Errorf("decoded %+v", sp)
	}
}
