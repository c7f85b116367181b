package lsp

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dshills/lintbridge/internal/logging"
)

// ServerStatus indicates the current state of a server.
type ServerStatus int

const (
	ServerStatusStopped ServerStatus = iota
	ServerStatusStarting
	ServerStatusInitializing
	ServerStatusReady
	ServerStatusShuttingDown
	ServerStatusError
)

// String returns a human-readable status name.
func (s ServerStatus) String() string {
	switch s {
	case ServerStatusStopped:
		return "stopped"
	case ServerStatusStarting:
		return "starting"
	case ServerStatusInitializing:
		return "initializing"
	case ServerStatusReady:
		return "ready"
	case ServerStatusShuttingDown:
		return "shutting down"
	case ServerStatusError:
		return "error"
	default:
		return "unknown"
	}
}

// ServerConfig defines how to start the lint server.
type ServerConfig struct {
	// Command is the executable to run.
	Command string

	// Args are command-line arguments.
	Args []string

	// Env are additional environment variables.
	Env map[string]string

	// WorkDir is the working directory (defaults to the first workspace folder).
	WorkDir string

	// InitializationOptions are sent during initialize.
	InitializationOptions any

	// Timeout for the initialize and shutdown requests (default: 30s).
	Timeout time.Duration
}

// Server represents a connection to the lint server.
type Server struct {
	mu sync.Mutex

	config ServerConfig
	log    *logging.Logger

	// Process management
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser
	stderr io.ReadCloser

	transport *Transport

	// Handlers are kept here so every new transport gets them.
	notifications map[string]NotificationHandler
	requests      map[string]RequestHandler

	status     atomic.Int32
	serverInfo *InitializeServerInfo
	lastError  error

	cancel context.CancelFunc
	exitCh chan error
}

// NewServer creates a new server instance (not yet started).
func NewServer(config ServerConfig, log *logging.Logger) *Server {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if log == nil {
		log = logging.Nop()
	}

	s := &Server{
		config:        config,
		log:           log.WithComponent("lsp"),
		notifications: make(map[string]NotificationHandler),
		requests:      make(map[string]RequestHandler),
		exitCh:        make(chan error, 1),
	}
	s.status.Store(int32(ServerStatusStopped))
	return s
}

// OnNotification registers a handler for a server notification.
func (s *Server) OnNotification(method string, handler NotificationHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications[method] = handler
	if s.transport != nil {
		s.transport.OnNotification(method, handler)
	}
}

// OnRequest registers a handler for a server request.
func (s *Server) OnRequest(method string, handler RequestHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests[method] = handler
	if s.transport != nil {
		s.transport.OnRequest(method, handler)
	}
}

// Start starts the server process and initializes it.
func (s *Server) Start(ctx context.Context, folders []WorkspaceFolder) error {
	s.mu.Lock()
	if s.Status() != ServerStatusStopped && s.Status() != ServerStatusError {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.status.Store(int32(ServerStatusStarting))

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	if err := s.startProcess(runCtx, folders); err != nil {
		cancel()
		s.failLocked(err)
		s.mu.Unlock()
		return &ServerError{Command: s.config.Command, Err: err}
	}
	go s.monitorProcess(s.cmd)
	go s.pumpStderr(s.stderr)
	s.mu.Unlock()

	return s.connect(runCtx, s.stdout, s.stdin, nil, folders)
}

// Connect runs the protocol over existing streams instead of a child
// process. The exit channel fires when the connection drops.
func (s *Server) Connect(ctx context.Context, r io.Reader, w io.Writer, c io.Closer, folders []WorkspaceFolder) error {
	s.mu.Lock()
	if s.Status() != ServerStatusStopped && s.Status() != ServerStatusError {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.status.Store(int32(ServerStatusStarting))
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()

	if err := s.connect(runCtx, r, w, c, folders); err != nil {
		return err
	}

	s.mu.Lock()
	tr := s.transport
	s.mu.Unlock()
	go func() {
		<-tr.Done()
		s.mu.Lock()
		current := s.transport == tr
		s.mu.Unlock()
		if current {
			s.signalExit(ErrShutdown)
		}
	}()
	return nil
}

func (s *Server) connect(ctx context.Context, r io.Reader, w io.Writer, c io.Closer, folders []WorkspaceFolder) error {
	s.mu.Lock()
	tr := NewTransport(r, w, c, s.log)
	for method, h := range s.notifications {
		tr.OnNotification(method, h)
	}
	for method, h := range s.requests {
		tr.OnRequest(method, h)
	}
	s.transport = tr
	tr.Start(ctx)
	s.status.Store(int32(ServerStatusInitializing))
	s.mu.Unlock()

	info, err := s.initialize(ctx, tr, folders)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.failLocked(err)
		s.stopLocked()
		return fmt.Errorf("initialize: %w", err)
	}
	s.serverInfo = info
	s.status.Store(int32(ServerStatusReady))
	if info != nil {
		s.log.Info("connected to %s %s", info.Name, info.Version)
	}
	return nil
}

// startProcess starts the server executable. Must hold mu.
func (s *Server) startProcess(ctx context.Context, folders []WorkspaceFolder) error {
	cmd := exec.CommandContext(ctx, s.config.Command, s.config.Args...)

	cmd.Env = os.Environ()
	for k, v := range s.config.Env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}

	if s.config.WorkDir != "" {
		cmd.Dir = s.config.WorkDir
	} else if len(folders) > 0 {
		cmd.Dir = URIToFilePath(folders[0].URI)
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		stdin.Close()
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		stdin.Close()
		stdout.Close()
		return fmt.Errorf("stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		stdin.Close()
		stdout.Close()
		stderr.Close()
		return fmt.Errorf("start process: %w", err)
	}

	s.cmd = cmd
	s.stdin = stdin
	s.stdout = stdout
	s.stderr = stderr
	return nil
}

// monitorProcess watches the process and signals when it exits.
func (s *Server) monitorProcess(cmd *exec.Cmd) {
	err := cmd.Wait()
	if err == nil {
		err = ErrServerCrashed
	}
	s.mu.Lock()
	current := s.cmd == cmd
	s.mu.Unlock()
	if current {
		s.signalExit(err)
	}
}

// pumpStderr forwards the server's stderr to the output channel verbatim.
func (s *Server) pumpStderr(r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		s.log.AppendLine(scanner.Text())
	}
}

func (s *Server) signalExit(err error) {
	if s.Status() == ServerStatusShuttingDown || s.Status() == ServerStatusStopped {
		return
	}
	s.log.Warn("server exited: %v", err)
	select {
	case s.exitCh <- err:
	default:
	}
}

// initialize performs the LSP initialize handshake.
func (s *Server) initialize(ctx context.Context, tr *Transport, folders []WorkspaceFolder) (*InitializeServerInfo, error) {
	var rootURI DocumentURI
	if len(folders) > 0 {
		rootURI = folders[0].URI
	}

	params := InitializeParams{
		ProcessID:             os.Getpid(),
		RootURI:               rootURI,
		Capabilities:          DefaultClientCapabilities(),
		InitializationOptions: s.config.InitializationOptions,
		WorkspaceFolders:      folders,
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	var result InitializeResult
	if err := tr.Call(ctx, MethodInitialize, params, &result); err != nil {
		return nil, fmt.Errorf("initialize request: %w", err)
	}
	if err := tr.Notify(ctx, MethodInitialized, InitializedParams{}); err != nil {
		return nil, fmt.Errorf("initialized notification: %w", err)
	}
	return result.ServerInfo, nil
}

// Notify sends a notification to the server.
func (s *Server) Notify(ctx context.Context, method string, params any) error {
	tr, err := s.readyTransport()
	if err != nil {
		return err
	}
	return tr.Notify(ctx, method, params)
}

// Call sends a request to the server and waits for the result.
func (s *Server) Call(ctx context.Context, method string, params any, result any) error {
	tr, err := s.readyTransport()
	if err != nil {
		return err
	}
	return tr.Call(ctx, method, params, result)
}

func (s *Server) readyTransport() (*Transport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Status() != ServerStatusReady || s.transport == nil {
		return nil, ErrServerNotReady
	}
	return s.transport, nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := s.Status()
	if status == ServerStatusStopped || status == ServerStatusShuttingDown {
		return nil
	}
	s.status.Store(int32(ServerStatusShuttingDown))

	if s.transport != nil && !s.transport.IsClosed() && status == ServerStatusReady {
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		_ = s.transport.Call(shutdownCtx, MethodShutdown, nil, nil)
		_ = s.transport.Notify(shutdownCtx, MethodExit, nil)
	}

	s.stopLocked()
	s.status.Store(int32(ServerStatusStopped))
	return nil
}

// stopLocked tears down the transport and process. Must hold mu.
func (s *Server) stopLocked() {
	if s.transport != nil {
		s.transport.Close()
	}
	if s.cancel != nil {
		s.cancel()
	}
	if s.stdin != nil {
		s.stdin.Close()
	}
	if s.cmd != nil && s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}
	s.cmd = nil
	s.stdin, s.stdout, s.stderr = nil, nil, nil
}

func (s *Server) failLocked(err error) {
	s.status.Store(int32(ServerStatusError))
	s.lastError = err
}

// Status returns the current server status.
func (s *Server) Status() ServerStatus {
	return ServerStatus(s.status.Load())
}

// Info returns what the server reported about itself during initialize.
func (s *Server) Info() *InitializeServerInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.serverInfo
}

// LastError returns the last error that occurred.
func (s *Server) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastError
}

// ExitChannel returns a channel that receives when the server goes away
// without being shut down.
func (s *Server) ExitChannel() <-chan error {
	return s.exitCh
}
