// Package app wires the lint client together. It owns the connection to the
// lint server, answers the server's requests, keeps the set of open
// documents in sync with their validation decisions and turns the server's
// status reports into a status signal.
package app

import (
	"context"
	"io"
	"sync"
	"sync/atomic"

	"github.com/dshills/lintbridge/internal/config"
	"github.com/dshills/lintbridge/internal/config/notify"
	"github.com/dshills/lintbridge/internal/docsync"
	"github.com/dshills/lintbridge/internal/logging"
	"github.com/dshills/lintbridge/internal/lsp"
	"github.com/dshills/lintbridge/internal/migration"
	"github.com/dshills/lintbridge/internal/prompt"
	"github.com/dshills/lintbridge/internal/state"
	"github.com/dshills/lintbridge/internal/status"
	"github.com/dshills/lintbridge/internal/validate"
)

// Options configures the client.
type Options struct {
	// Config is the settings store. Required.
	Config *config.Config

	// Server describes how to launch the lint server.
	Server lsp.ServerConfig

	// Supervisor controls restarts of a launched server.
	Supervisor lsp.SupervisorConfig

	// Prompter asks the user questions. Defaults to a headless prompter
	// that dismisses every question.
	Prompter prompt.Prompter

	// Memento persists state across sessions. Defaults to memory.
	Memento state.Memento

	// Logger is the output channel.
	Logger *logging.Logger
}

// Client is the lint client.
type Client struct {
	cfg      *config.Config
	log      *logging.Logger
	prompter prompt.Prompter
	memento  state.Memento
	metrics  *Metrics

	server     *lsp.Server
	supervisor *lsp.Supervisor
	supCfg     lsp.SupervisorConfig

	engine    *validate.Engine
	registry  *docsync.Registry
	migration *migration.Coordinator
	status    *status.Aggregator

	mu      sync.RWMutex
	open    map[lsp.DocumentURI]lsp.TextDocument
	signals map[lsp.DocumentURI]status.Signal

	// noConfigShown holds the folders already warned about a missing
	// configuration in this session.
	noConfigMu    sync.Mutex
	noConfigShown map[string]bool
	noLibraryMu   sync.Mutex

	changeMu sync.Mutex
	changes  chan struct{}
	sub      *notify.Subscription
	cancel   context.CancelFunc
	running  atomic.Bool
}

// New creates a client. The server is not started.
func New(opts Options) (*Client, error) {
	if opts.Config == nil {
		return nil, &InitError{Component: "config", Err: ErrNoConfig}
	}
	log := opts.Logger
	if log == nil {
		log = logging.Nop()
	}
	if opts.Prompter == nil {
		opts.Prompter = prompt.NewHeadless(log)
	}
	if opts.Memento == nil {
		opts.Memento = state.NewMemory()
	}

	c := &Client{
		cfg:           opts.Config,
		log:           log.WithComponent("client"),
		prompter:      opts.Prompter,
		memento:       opts.Memento,
		metrics:       NewMetrics(),
		supCfg:        opts.Supervisor,
		engine:        validate.NewEngine(),
		open:          make(map[lsp.DocumentURI]lsp.TextDocument),
		signals:       make(map[lsp.DocumentURI]status.Signal),
		noConfigShown: make(map[string]bool),
		changes:       make(chan struct{}, 1),
	}
	c.server = lsp.NewServer(opts.Server, log)
	c.registry = docsync.NewRegistry(c.server, log)
	c.migration = migration.NewCoordinator(opts.Config, opts.Prompter, log)
	c.status = status.NewAggregator(c.report)
	c.registerHandlers()
	return c, nil
}

// Start launches the server process under supervision.
func (c *Client) Start(ctx context.Context) error {
	if !c.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	runCtx := c.begin(ctx)

	c.supervisor = lsp.NewSupervisor(c.server, c.folders(), c.supCfg,
		lsp.WithSupervisorLogger(c.log),
		lsp.WithRecoveredHandler(c.registry.Resync),
		lsp.WithEventHandler(c.onSupervisorEvent),
	)
	if err := c.supervisor.Start(runCtx); err != nil {
		c.end()
		return NewOperationError("start", c.server.Status().String(), err)
	}
	c.registry.Resync(runCtx)
	return nil
}

// Connect runs the client over existing streams, for example the stdio of
// a server started by someone else. Connections are not restarted.
func (c *Client) Connect(ctx context.Context, r io.Reader, w io.Writer, closer io.Closer) error {
	if !c.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	runCtx := c.begin(ctx)

	if err := c.server.Connect(runCtx, r, w, closer, c.folders()); err != nil {
		c.end()
		return NewOperationError("connect", "", err)
	}
	c.registry.Resync(runCtx)
	return nil
}

// begin subscribes to configuration changes and starts the change loop.
func (c *Client) begin(ctx context.Context) context.Context {
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.sub = c.cfg.Subscribe(c.onConfigChange)
	go c.changeLoop(runCtx)
	return runCtx
}

func (c *Client) end() {
	if c.sub != nil {
		c.sub.Unsubscribe()
		c.sub = nil
	}
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.running.Store(false)
}

// Stop shuts the server down and stops reacting to configuration changes.
func (c *Client) Stop(ctx context.Context) error {
	if !c.running.Load() {
		return ErrNotRunning
	}
	defer c.end()

	if c.supervisor != nil {
		return c.supervisor.Stop(ctx)
	}
	return c.server.Shutdown(ctx)
}

// Run starts the client and blocks until ctx is done.
func (c *Client) Run(ctx context.Context) error {
	if err := c.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	return c.Stop(context.WithoutCancel(ctx))
}

// Server returns the server connection.
func (c *Client) Server() *lsp.Server {
	return c.server
}

// Metrics returns the client's traffic counters.
func (c *Client) Metrics() *Metrics {
	return c.metrics
}

// Registry returns the synchronized-document registry.
func (c *Client) Registry() *docsync.Registry {
	return c.registry
}

// Engine returns the validation decision engine.
func (c *Client) Engine() *validate.Engine {
	return c.engine
}

func (c *Client) folders() []lsp.WorkspaceFolder {
	paths := c.cfg.Folders()
	folders := make([]lsp.WorkspaceFolder, 0, len(paths))
	for _, p := range paths {
		folders = append(folders, lsp.NewWorkspaceFolder(p))
	}
	return folders
}

func (c *Client) onSupervisorEvent(ev lsp.SupervisorEvent) {
	switch ev.Type {
	case lsp.SupervisorEventCrash:
		c.log.Warn("lint server exited: %v", ev.Error)
	case lsp.SupervisorEventFailed:
		c.log.Error("lint server failed %d times, giving up: %v", ev.Attempt, ev.Error)
		c.prompter.Notify(context.Background(), prompt.LevelError,
			"The ESLint server crashed too often and will not be restarted. Please see the output for details.")
	case lsp.SupervisorEventRecovered:
		c.log.Info("lint server restarted after %d attempt(s)", ev.Attempt)
	}
}
