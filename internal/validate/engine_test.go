package validate

import (
	"testing"

	"github.com/dshills/lintbridge/internal/config"
	"github.com/dshills/lintbridge/internal/lsp"
)

func scopeWith(eslint map[string]any) *config.Scope {
	return config.NewScope(map[string]any{"eslint": eslint})
}

func TestEngine_Decide(t *testing.T) {
	jsFile := lsp.TextDocument{URI: "file:///ws/a.js", LanguageID: "javascript"}
	pyFile := lsp.TextDocument{URI: "file:///ws/a.py", LanguageID: "python"}
	untitled := lsp.TextDocument{URI: "untitled:Untitled-1", LanguageID: "javascript"}
	probe := []any{"javascript", "typescript"}

	tests := []struct {
		name   string
		doc    lsp.TextDocument
		eslint map[string]any
		want   Decision
	}{
		{
			name:   "disabled",
			doc:    jsFile,
			eslint: map[string]any{"enable": false, "validate": []any{"javascript"}},
			want:   Off,
		},
		{
			name:   "untitled ignored",
			doc:    untitled,
			eslint: map[string]any{"ignoreUntitled": true, "validate": []any{"javascript"}},
			want:   Off,
		},
		{
			name:   "untitled allowed",
			doc:    untitled,
			eslint: map[string]any{"validate": []any{"javascript"}},
			want:   On,
		},
		{
			name:   "listed in validate",
			doc:    jsFile,
			eslint: map[string]any{"validate": []any{"typescript", "javascript"}, "probe": probe},
			want:   On,
		},
		{
			name:   "legacy validate object",
			doc:    jsFile,
			eslint: map[string]any{"validate": []any{map[string]any{"language": "javascript", "autoFix": true}}},
			want:   On,
		},
		{
			name:   "validate is authoritative over probe",
			doc:    jsFile,
			eslint: map[string]any{"validate": []any{"typescript"}, "probe": probe},
			want:   Off,
		},
		{
			name:   "probe",
			doc:    jsFile,
			eslint: map[string]any{"validate": []any{}, "probe": probe},
			want:   Probe,
		},
		{
			name:   "not probed",
			doc:    pyFile,
			eslint: map[string]any{"probe": probe},
			want:   Off,
		},
		{
			name:   "defaults with nothing configured",
			doc:    jsFile,
			eslint: map[string]any{},
			want:   Off,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEngine()
			if got := e.Decide(tt.doc, scopeWith(tt.eslint)); got != tt.want {
				t.Errorf("Decide() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEngine_ProbeFailed(t *testing.T) {
	e := NewEngine()
	doc := lsp.TextDocument{URI: "file:///ws/a.js", LanguageID: "javascript"}
	probing := scopeWith(map[string]any{"probe": []any{"javascript"}})
	listed := scopeWith(map[string]any{"validate": []any{"javascript"}, "probe": []any{"javascript"}})

	e.ProbeFailed(doc.URI)
	if !e.HasFailed(doc.URI) {
		t.Fatal("HasFailed() = false after ProbeFailed")
	}
	if got := e.Decide(doc, probing); got != Off {
		t.Errorf("failed probe Decide() = %v, want off", got)
	}
	// An explicit validate entry wins over a failed probe.
	if got := e.Decide(doc, listed); got != On {
		t.Errorf("validate-listed Decide() = %v, want on", got)
	}

	e.Clear()
	if got := e.Decide(doc, probing); got != Probe {
		t.Errorf("after Clear Decide() = %v, want probe", got)
	}
}

func TestValidateLanguages(t *testing.T) {
	got := ValidateLanguages([]any{
		"javascript",
		map[string]any{"language": "vue", "autoFix": false},
		map[string]any{"autoFix": true},
		42,
	})
	want := []string{"javascript", "vue"}
	if len(got) != len(want) {
		t.Fatalf("ValidateLanguages() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestDecision_String(t *testing.T) {
	if On.String() != "on" || Off.String() != "off" || Probe.String() != "probe" {
		t.Error("unexpected decision names")
	}
}
