package app

import (
	"sync/atomic"
	"time"
)

// Metrics counts client traffic. All methods are safe for concurrent use.
type Metrics struct {
	configRequests atomic.Uint64
	configItems    atomic.Uint64
	configTotalNs  atomic.Int64

	notifications atomic.Uint64
	sendFailures  atomic.Uint64

	fixRuns    atomic.Uint64
	fixTotalNs atomic.Int64

	startTime time.Time
}

// NewMetrics creates a new metrics tracker.
func NewMetrics() *Metrics {
	return &Metrics{startTime: time.Now()}
}

// RecordConfiguration records a workspace/configuration request.
func (m *Metrics) RecordConfiguration(items int, duration time.Duration) {
	m.configRequests.Add(1)
	m.configItems.Add(uint64(items))
	m.configTotalNs.Add(duration.Nanoseconds())
}

// RecordNotification records an inbound notification.
func (m *Metrics) RecordNotification() {
	m.notifications.Add(1)
}

// RecordSendFailure records an outbound message that could not be sent.
func (m *Metrics) RecordSendFailure() {
	m.sendFailures.Add(1)
}

// RecordFix records a fix run.
func (m *Metrics) RecordFix(duration time.Duration) {
	m.fixRuns.Add(1)
	m.fixTotalNs.Add(duration.Nanoseconds())
}

// MetricsSnapshot is a point-in-time copy of Metrics.
type MetricsSnapshot struct {
	ConfigRequests uint64
	ConfigItems    uint64
	AvgConfigMs    float64
	Notifications  uint64
	SendFailures   uint64
	FixRuns        uint64
	AvgFixMs       float64
	Uptime         time.Duration
}

// Snapshot returns the current metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	s := MetricsSnapshot{
		ConfigRequests: m.configRequests.Load(),
		ConfigItems:    m.configItems.Load(),
		Notifications:  m.notifications.Load(),
		SendFailures:   m.sendFailures.Load(),
		FixRuns:        m.fixRuns.Load(),
		Uptime:         time.Since(m.startTime),
	}
	if s.ConfigRequests > 0 {
		s.AvgConfigMs = float64(m.configTotalNs.Load()) / float64(s.ConfigRequests) / 1e6
	}
	if s.FixRuns > 0 {
		s.AvgFixMs = float64(m.fixTotalNs.Load()) / float64(s.FixRuns) / 1e6
	}
	return s
}

// Timer measures an operation.
type Timer struct {
	start time.Time
}

// StartTimer starts a new timer.
func StartTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Elapsed returns the time since the timer started.
func (t *Timer) Elapsed() time.Duration {
	return time.Since(t.start)
}

// ElapsedMs returns the elapsed time in whole milliseconds.
func (t *Timer) ElapsedMs() int64 {
	return t.Elapsed().Milliseconds()
}
