// Package status turns per-document server status and timing reports into
// the status signal shown to the user.
package status

import (
	"fmt"
	"sync"

	"github.com/dshills/lintbridge/internal/config"
	"github.com/dshills/lintbridge/internal/lsp"
)

// Severity of the status signal.
type Severity int

// Severities in escalation order.
const (
	Information Severity = iota
	Warning
	Error
)

// String returns the severity name.
func (s Severity) String() string {
	switch s {
	case Warning:
		return "warning"
	case Error:
		return "error"
	default:
		return "information"
	}
}

// Kind tells which budget a report was measured against.
type Kind string

// Report kinds.
const (
	KindValidation Kind = "validation"
	KindFix        Kind = "fix"
)

// PerformanceStatus is the timing state of one language.
type PerformanceStatus struct {
	// FirstReport is true until the first slow run was reported.
	FirstReport    bool
	ValidationTime int64
	FixTime        int64
	// Reported is the largest time reported so far. It never decreases.
	Reported     int64
	Acknowledged bool
}

// Report describes a run that took longer than its budget.
type Report struct {
	Language  string
	URI       lsp.DocumentURI
	Kind      Kind
	Severity  Severity
	TimeTaken int64
	Budget    config.TimeBudget
	// First is set on the first report for Language.
	First bool
}

// Message returns the text written to the output channel.
func (r Report) Message() string {
	if r.Kind == KindFix {
		return fmt.Sprintf("Computing fixes for file %s took %dms (warn %dms, error %dms)", r.URI, r.TimeTaken, r.Budget.Warn, r.Budget.Error)
	}
	return fmt.Sprintf("Linting file %s took %dms (warn %dms, error %dms)", r.URI, r.TimeTaken, r.Budget.Warn, r.Budget.Error)
}

// Reporter receives reports. It is called without locks held.
type Reporter func(Report)

// Signal is the status shown for the active document.
type Signal struct {
	Severity Severity
	Visible  bool
	// Detail explains a slow run; empty once acknowledged.
	Detail string
}

// Aggregator tracks per-language timing and per-document server status.
type Aggregator struct {
	mu       sync.Mutex
	perf     map[string]*PerformanceStatus
	docs     map[lsp.DocumentURI]lsp.Status
	reporter Reporter
}

// NewAggregator creates an aggregator that sends reports to reporter.
func NewAggregator(reporter Reporter) *Aggregator {
	return &Aggregator{
		perf:     make(map[string]*PerformanceStatus),
		docs:     make(map[lsp.DocumentURI]lsp.Status),
		reporter: reporter,
	}
}

// statusLocked returns the status for lang, creating it on first use.
func (a *Aggregator) statusLocked(lang string) *PerformanceStatus {
	st, ok := a.perf[lang]
	if !ok {
		st = &PerformanceStatus{FirstReport: true}
		a.perf[lang] = st
	}
	return st
}

// RecordValidation stores the duration of the last validation run.
func (a *Aggregator) RecordValidation(lang string, ms int64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.statusLocked(lang).ValidationTime = ms
}

// RecordFix stores the duration of the last fix run.
func (a *Aggregator) RecordFix(lang string, ms int64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.statusLocked(lang).FixTime = ms
}

// SetDocumentStatus stores the server status for uri.
func (a *Aggregator) SetDocumentStatus(uri lsp.DocumentURI, state lsp.Status) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.docs[uri] = state
}

// ForgetDocument drops the server status for uri.
func (a *Aggregator) ForgetDocument(uri lsp.DocumentURI) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.docs, uri)
}

// Acknowledge hides the slow-run detail for lang until a slower run is
// reported.
func (a *Aggregator) Acknowledge(lang string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.statusLocked(lang).Acknowledged = true
}

// Performance returns a copy of the timing state for lang.
func (a *Aggregator) Performance(lang string) (PerformanceStatus, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	st, ok := a.perf[lang]
	if !ok {
		return PerformanceStatus{}, false
	}
	return *st, true
}

// CurrentSeverity computes the severity for doc without reporting.
func (a *Aggregator) CurrentSeverity(doc lsp.TextDocument, scope *config.Scope) Severity {
	a.mu.Lock()
	defer a.mu.Unlock()
	ev := a.evaluateLocked(doc, scope)
	return ev.severity
}

// Evaluate computes the signal for doc, reports a run that is slower than
// anything reported before for its language and records it as reported.
func (a *Aggregator) Evaluate(doc lsp.TextDocument, scope *config.Scope) Signal {
	a.mu.Lock()
	ev := a.evaluateLocked(doc, scope)
	st := a.statusLocked(doc.LanguageID)

	var report *Report
	if ev.observed > st.Reported && ev.timeTaken > ev.budget.Warn {
		report = &Report{
			Language:  doc.LanguageID,
			URI:       doc.URI,
			Kind:      ev.kind,
			Severity:  ev.severity,
			TimeTaken: ev.timeTaken,
			Budget:    ev.budget,
			First:     st.FirstReport,
		}
		st.FirstReport = false
		// Only a slower report supersedes an acknowledgement.
		st.Acknowledged = false
	}
	if ev.timeTaken > st.Reported {
		st.Reported = ev.timeTaken
	}

	sig := Signal{
		Severity: ev.severity,
		Visible:  scope.Bool(config.KeyAlwaysShowStatus, false) || ev.severity > Information,
	}
	if ev.timeTaken > ev.budget.Warn && !st.Acknowledged {
		sig.Detail = fmt.Sprintf("%s of %s files took %dms", ev.kind, doc.LanguageID, ev.timeTaken)
	}
	reporter := a.reporter
	a.mu.Unlock()

	if report != nil && reporter != nil {
		reporter(*report)
	}
	return sig
}

type evaluation struct {
	severity  Severity
	observed  int64
	timeTaken int64
	kind      Kind
	budget    config.TimeBudget
}

func (a *Aggregator) evaluateLocked(doc lsp.TextDocument, scope *config.Scope) evaluation {
	st := a.statusLocked(doc.LanguageID)

	ev := evaluation{severity: fromStatus(a.docs[doc.URI])}
	ev.observed = max(st.ValidationTime, st.FixTime)
	ev.timeTaken = max(ev.observed, st.Reported)

	if st.FixTime >= st.ValidationTime {
		ev.kind = KindFix
		ev.budget = scope.TimeBudget(config.KeyTimeBudgetFixes, config.DefaultFixesBudget)
	} else {
		ev.kind = KindValidation
		ev.budget = scope.TimeBudget(config.KeyTimeBudgetValidation, config.DefaultValidationBudget)
	}

	if ev.timeTaken > ev.budget.Warn && ev.severity == Information {
		ev.severity = Warning
	}
	if ev.timeTaken > ev.budget.Error && ev.severity >= Warning {
		ev.severity = Error
	}
	return ev
}

func fromStatus(s lsp.Status) Severity {
	switch s {
	case lsp.StatusWarn:
		return Warning
	case lsp.StatusError:
		return Error
	default:
		return Information
	}
}
