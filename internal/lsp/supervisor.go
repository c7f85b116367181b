package lsp

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dshills/lintbridge/internal/logging"
)

// SupervisorState represents the state of a supervised server.
type SupervisorState int

const (
	// SupervisorStateIdle means the supervisor is not monitoring.
	SupervisorStateIdle SupervisorState = iota
	// SupervisorStateRunning means the server is running normally.
	SupervisorStateRunning
	// SupervisorStateRestarting means the server crashed and is being restarted.
	SupervisorStateRestarting
	// SupervisorStateFailed means the server has exceeded max restart attempts.
	SupervisorStateFailed
	// SupervisorStateStopped means the supervisor was explicitly stopped.
	SupervisorStateStopped
)

// String returns a human-readable state name.
func (s SupervisorState) String() string {
	switch s {
	case SupervisorStateIdle:
		return "idle"
	case SupervisorStateRunning:
		return "running"
	case SupervisorStateRestarting:
		return "restarting"
	case SupervisorStateFailed:
		return "failed"
	case SupervisorStateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// SupervisorConfig configures the server supervisor.
type SupervisorConfig struct {
	// MaxRestarts is the maximum number of restart attempts before giving up.
	// Default: 5
	MaxRestarts int

	// InitialBackoff is the initial backoff duration after a crash.
	// Default: 1 second
	InitialBackoff time.Duration

	// MaxBackoff is the maximum backoff duration.
	// Default: 60 seconds
	MaxBackoff time.Duration

	// BackoffMultiplier is the multiplier applied to backoff after each failure.
	// Default: 2.0
	BackoffMultiplier float64

	// ResetWindow is the time after which the restart count resets if the
	// server has been running successfully.
	// Default: 5 minutes
	ResetWindow time.Duration
}

// DefaultSupervisorConfig returns the default supervisor configuration.
func DefaultSupervisorConfig() SupervisorConfig {
	return SupervisorConfig{
		MaxRestarts:       5,
		InitialBackoff:    1 * time.Second,
		MaxBackoff:        60 * time.Second,
		BackoffMultiplier: 2.0,
		ResetWindow:       5 * time.Minute,
	}
}

// SupervisorEventType identifies the type of supervisor event.
type SupervisorEventType int

const (
	// SupervisorEventCrash indicates the server crashed.
	SupervisorEventCrash SupervisorEventType = iota
	// SupervisorEventRestarting indicates a restart attempt is starting.
	SupervisorEventRestarting
	// SupervisorEventRecovered indicates the server has recovered.
	SupervisorEventRecovered
	// SupervisorEventFailed indicates the server has permanently failed.
	SupervisorEventFailed
)

// String returns a human-readable event type name.
func (t SupervisorEventType) String() string {
	switch t {
	case SupervisorEventCrash:
		return "crash"
	case SupervisorEventRestarting:
		return "restarting"
	case SupervisorEventRecovered:
		return "recovered"
	case SupervisorEventFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// SupervisorEvent represents an event from the supervisor.
type SupervisorEvent struct {
	Type      SupervisorEventType
	Error     error
	Attempt   int
	NextRetry time.Duration
}

// StartFunc (re)establishes the connection to the server.
type StartFunc func(ctx context.Context) error

// Supervisor restarts the lint server with exponential backoff when it
// goes away. After every successful restart OnRecovered runs so the
// caller can replay open documents.
type Supervisor struct {
	mu sync.Mutex

	config SupervisorConfig
	server *Server
	start  StartFunc
	log    *logging.Logger

	state        atomic.Int32
	restartCount int
	lastStart    time.Time

	onEvent     func(SupervisorEvent)
	onRecovered func(ctx context.Context)

	cancel context.CancelFunc
	done   chan struct{}
}

// SupervisorOption configures a Supervisor.
type SupervisorOption func(*Supervisor)

// WithStartFunc replaces the default process start.
func WithStartFunc(fn StartFunc) SupervisorOption {
	return func(s *Supervisor) { s.start = fn }
}

// WithEventHandler registers a callback for supervisor events.
func WithEventHandler(fn func(SupervisorEvent)) SupervisorOption {
	return func(s *Supervisor) { s.onEvent = fn }
}

// WithRecoveredHandler registers a callback run after each restart.
func WithRecoveredHandler(fn func(ctx context.Context)) SupervisorOption {
	return func(s *Supervisor) { s.onRecovered = fn }
}

// WithSupervisorLogger sets the logger.
func WithSupervisorLogger(log *logging.Logger) SupervisorOption {
	return func(s *Supervisor) { s.log = log }
}

// NewSupervisor creates a supervisor for server. Without WithStartFunc the
// server process is started with the given folders.
func NewSupervisor(server *Server, folders []WorkspaceFolder, config SupervisorConfig, opts ...SupervisorOption) *Supervisor {
	if config.MaxRestarts <= 0 {
		config.MaxRestarts = DefaultSupervisorConfig().MaxRestarts
	}
	if config.InitialBackoff <= 0 {
		config.InitialBackoff = DefaultSupervisorConfig().InitialBackoff
	}
	if config.MaxBackoff <= 0 {
		config.MaxBackoff = DefaultSupervisorConfig().MaxBackoff
	}
	if config.BackoffMultiplier <= 1 {
		config.BackoffMultiplier = DefaultSupervisorConfig().BackoffMultiplier
	}
	if config.ResetWindow <= 0 {
		config.ResetWindow = DefaultSupervisorConfig().ResetWindow
	}

	s := &Supervisor{
		config: config,
		server: server,
		log:    logging.Nop(),
	}
	s.start = func(ctx context.Context) error {
		return server.Start(ctx, folders)
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.WithComponent("supervisor")
	return s
}

// Start starts the server and begins monitoring it.
func (s *Supervisor) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.State() == SupervisorStateRunning || s.State() == SupervisorStateRestarting {
		return ErrAlreadyStarted
	}

	if err := s.start(ctx); err != nil {
		return err
	}

	monitorCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.lastStart = time.Now()
	s.restartCount = 0
	s.state.Store(int32(SupervisorStateRunning))

	go s.monitor(monitorCtx, s.done)
	return nil
}

// Stop stops monitoring and shuts the server down.
func (s *Supervisor) Stop(ctx context.Context) error {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel = nil
	s.state.Store(int32(SupervisorStateStopped))
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	return s.server.Shutdown(ctx)
}

// State returns the supervisor state.
func (s *Supervisor) State() SupervisorState {
	return SupervisorState(s.state.Load())
}

// RestartCount returns the number of restarts since the last reset.
func (s *Supervisor) RestartCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.restartCount
}

func (s *Supervisor) monitor(ctx context.Context, done chan struct{}) {
	defer close(done)

	for {
		select {
		case <-ctx.Done():
			return
		case err := <-s.server.ExitChannel():
			if ctx.Err() != nil {
				return
			}
			if !s.handleCrash(ctx, err) {
				return
			}
		}
	}
}

// handleCrash restarts the server until it succeeds or the restart budget
// runs out. It reports whether monitoring should continue.
func (s *Supervisor) handleCrash(ctx context.Context, crashErr error) bool {
	s.mu.Lock()
	if time.Since(s.lastStart) > s.config.ResetWindow {
		s.restartCount = 0
	}
	s.mu.Unlock()

	s.emit(SupervisorEvent{Type: SupervisorEventCrash, Error: crashErr})
	s.state.Store(int32(SupervisorStateRestarting))

	lastErr := crashErr
	for {
		s.mu.Lock()
		if s.restartCount >= s.config.MaxRestarts {
			s.mu.Unlock()
			s.state.Store(int32(SupervisorStateFailed))
			s.log.Error("server failed permanently after %d restarts: %v", s.config.MaxRestarts, lastErr)
			s.emit(SupervisorEvent{Type: SupervisorEventFailed, Error: lastErr, Attempt: s.config.MaxRestarts})
			return false
		}
		s.restartCount++
		attempt := s.restartCount
		s.mu.Unlock()

		backoff := CalculateBackoff(attempt, s.config.InitialBackoff, s.config.MaxBackoff, s.config.BackoffMultiplier)
		s.emit(SupervisorEvent{Type: SupervisorEventRestarting, Attempt: attempt, NextRetry: backoff})

		select {
		case <-ctx.Done():
			return false
		case <-time.After(backoff):
		}

		_ = s.server.Shutdown(ctx)
		if err := s.start(ctx); err != nil {
			lastErr = err
			s.log.Warn("restart attempt %d failed: %v", attempt, err)
			continue
		}

		s.mu.Lock()
		s.lastStart = time.Now()
		s.mu.Unlock()
		s.state.Store(int32(SupervisorStateRunning))
		s.log.Info("server recovered after %d attempt(s)", attempt)

		if s.onRecovered != nil {
			s.onRecovered(ctx)
		}
		s.emit(SupervisorEvent{Type: SupervisorEventRecovered, Attempt: attempt})
		return true
	}
}

func (s *Supervisor) emit(ev SupervisorEvent) {
	if s.onEvent != nil {
		s.onEvent(ev)
	}
}

// CalculateBackoff calculates the backoff duration for a given attempt.
func CalculateBackoff(attempt int, initial, maxBackoff time.Duration, multiplier float64) time.Duration {
	if attempt <= 0 {
		return initial
	}
	backoff := float64(initial) * math.Pow(multiplier, float64(attempt-1))
	if backoff > float64(maxBackoff) {
		return maxBackoff
	}
	return time.Duration(backoff)
}
