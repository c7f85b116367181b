package status

import (
	"strings"
	"testing"

	"github.com/dshills/lintbridge/internal/config"
	"github.com/dshills/lintbridge/internal/lsp"
)

var jsDoc = lsp.TextDocument{URI: "file:///ws/a.js", LanguageID: "javascript"}

func defaultScope() *config.Scope {
	return config.NewScope(nil)
}

func collect() (*[]Report, Reporter) {
	var reports []Report
	return &reports, func(r Report) { reports = append(reports, r) }
}

func TestAggregator_Escalation(t *testing.T) {
	tests := []struct {
		name       string
		state      lsp.Status
		validation int64
		fix        int64
		want       Severity
	}{
		{"fast", lsp.StatusOK, 100, 0, Information},
		{"validation warn", lsp.StatusOK, 5000, 0, Warning},
		{"validation error", lsp.StatusOK, 9000, 0, Error},
		{"at warn threshold", lsp.StatusOK, 4000, 0, Information},
		{"fix budget", lsp.StatusOK, 0, 3500, Warning},
		{"fix error", lsp.StatusOK, 0, 6500, Error},
		{"server warn stays", lsp.StatusWarn, 100, 0, Warning},
		{"server warn escalates", lsp.StatusWarn, 8500, 0, Error},
		{"server error", lsp.StatusError, 0, 0, Error},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAggregator(nil)
			a.SetDocumentStatus(jsDoc.URI, tt.state)
			a.RecordValidation(jsDoc.LanguageID, tt.validation)
			a.RecordFix(jsDoc.LanguageID, tt.fix)
			if got := a.CurrentSeverity(jsDoc, defaultScope()); got != tt.want {
				t.Errorf("CurrentSeverity() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAggregator_NoReReportForFasterRun(t *testing.T) {
	reports, reporter := collect()
	a := NewAggregator(reporter)

	a.RecordValidation("javascript", 5000)
	a.Evaluate(jsDoc, defaultScope())
	a.RecordValidation("javascript", 3000)
	sig := a.Evaluate(jsDoc, defaultScope())

	if len(*reports) != 1 {
		t.Fatalf("reports = %d, want 1", len(*reports))
	}
	first := (*reports)[0]
	if !first.First || first.Severity != Warning || first.TimeTaken != 5000 {
		t.Errorf("first report = %+v", first)
	}
	// The reported maximum still drives the severity.
	if sig.Severity != Warning {
		t.Errorf("severity after faster run = %v, want warning", sig.Severity)
	}
	st, _ := a.Performance("javascript")
	if st.Reported != 5000 || st.FirstReport {
		t.Errorf("performance = %+v", st)
	}
}

func TestAggregator_SlowerRunReportsError(t *testing.T) {
	reports, reporter := collect()
	a := NewAggregator(reporter)

	a.RecordValidation("javascript", 5000)
	a.Evaluate(jsDoc, defaultScope())
	a.RecordValidation("javascript", 9000)
	a.Evaluate(jsDoc, defaultScope())
	a.Evaluate(jsDoc, defaultScope())

	errorReports := 0
	for _, r := range *reports {
		if r.Severity == Error {
			errorReports++
			if r.First {
				t.Error("second report flagged as first")
			}
		}
	}
	if errorReports != 1 {
		t.Errorf("error reports = %d, want 1 (all: %+v)", errorReports, *reports)
	}
}

func TestAggregator_ReportedNeverDecreases(t *testing.T) {
	a := NewAggregator(nil)
	for _, ms := range []int64{100, 7000, 200, 5000, 10} {
		a.RecordValidation("javascript", ms)
		a.Evaluate(jsDoc, defaultScope())
	}
	st, _ := a.Performance("javascript")
	if st.Reported != 7000 {
		t.Errorf("Reported = %d, want 7000", st.Reported)
	}
}

func TestAggregator_Acknowledge(t *testing.T) {
	a := NewAggregator(nil)
	a.RecordValidation("javascript", 5000)
	if sig := a.Evaluate(jsDoc, defaultScope()); sig.Detail == "" {
		t.Fatal("expected detail for a slow run")
	}

	a.Acknowledge("javascript")
	sig := a.Evaluate(jsDoc, defaultScope())
	if sig.Detail != "" {
		t.Errorf("Detail = %q after acknowledge", sig.Detail)
	}
	if sig.Severity != Warning {
		t.Errorf("acknowledge must not change severity, got %v", sig.Severity)
	}

	a.RecordValidation("javascript", 4000)
	if sig := a.Evaluate(jsDoc, defaultScope()); sig.Detail != "" {
		t.Errorf("Detail = %q after a faster run, want it still hidden", sig.Detail)
	}

	// A slower run is news again.
	a.RecordValidation("javascript", 6000)
	if sig := a.Evaluate(jsDoc, defaultScope()); !strings.Contains(sig.Detail, "6000") {
		t.Errorf("Detail = %q, want the new time", sig.Detail)
	}
}

func TestAggregator_Visibility(t *testing.T) {
	always := config.NewScope(map[string]any{
		"eslint": map[string]any{"alwaysShowStatus": true},
	})

	a := NewAggregator(nil)
	if sig := a.Evaluate(jsDoc, defaultScope()); sig.Visible {
		t.Error("information signal visible without alwaysShowStatus")
	}
	if sig := a.Evaluate(jsDoc, always); !sig.Visible {
		t.Error("alwaysShowStatus should show the signal")
	}
	a.SetDocumentStatus(jsDoc.URI, lsp.StatusWarn)
	if sig := a.Evaluate(jsDoc, defaultScope()); !sig.Visible {
		t.Error("warning signal should be visible")
	}
}

func TestAggregator_CustomBudget(t *testing.T) {
	scope := config.NewScope(map[string]any{
		"eslint": map[string]any{
			"timeBudget": map[string]any{
				"onValidation": map[string]any{"warn": int64(100), "error": int64(-1)},
			},
		},
	})
	a := NewAggregator(nil)
	a.RecordValidation("javascript", 1_000_000)
	if got := a.CurrentSeverity(jsDoc, scope); got != Warning {
		t.Errorf("CurrentSeverity() = %v, want warning with a disabled error budget", got)
	}
}

func TestAggregator_LanguagesAreIndependent(t *testing.T) {
	reports, reporter := collect()
	a := NewAggregator(reporter)
	ts := lsp.TextDocument{URI: "file:///ws/a.ts", LanguageID: "typescript"}

	a.RecordValidation("javascript", 5000)
	a.Evaluate(jsDoc, defaultScope())
	if got := a.CurrentSeverity(ts, defaultScope()); got != Information {
		t.Errorf("typescript severity = %v", got)
	}
	a.RecordValidation("typescript", 5000)
	a.Evaluate(ts, defaultScope())
	if len(*reports) != 2 || !(*reports)[1].First {
		t.Errorf("reports = %+v, want a first report per language", *reports)
	}
}

func TestAggregator_ForgetDocument(t *testing.T) {
	a := NewAggregator(nil)
	a.SetDocumentStatus(jsDoc.URI, lsp.StatusError)
	a.ForgetDocument(jsDoc.URI)
	if got := a.CurrentSeverity(jsDoc, defaultScope()); got != Information {
		t.Errorf("CurrentSeverity() = %v after forget", got)
	}
}

func TestReport_Message(t *testing.T) {
	r := Report{URI: jsDoc.URI, Kind: KindFix, TimeTaken: 7000, Budget: config.DefaultFixesBudget}
	if msg := r.Message(); !strings.HasPrefix(msg, "Computing fixes") || !strings.Contains(msg, "7000ms") {
		t.Errorf("Message() = %q", msg)
	}
	r.Kind = KindValidation
	if msg := r.Message(); !strings.HasPrefix(msg, "Linting file") {
		t.Errorf("Message() = %q", msg)
	}
}

func TestSeverity_String(t *testing.T) {
	for s, want := range map[Severity]string{Information: "information", Warning: "warning", Error: "error"} {
		if s.String() != want {
			t.Errorf("%d.String() = %q", s, s.String())
		}
	}
}
