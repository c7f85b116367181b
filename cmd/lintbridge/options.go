package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fatih/color"

	"github.com/dshills/lintbridge/internal/config"
	"github.com/dshills/lintbridge/internal/logging"
	"github.com/dshills/lintbridge/internal/lsp"
)

var (
	errorColor = color.New(color.FgRed, color.Bold)
	onColor    = color.New(color.FgGreen)
	probeColor = color.New(color.FgYellow)
	offColor   = color.New(color.Faint)
)

// globalOptions holds the persistent flags.
type globalOptions struct {
	workspace  string
	folders    []string
	userConfig string
	logLevel   string
	noColor    bool
}

// environment is what every subcommand starts from.
type environment struct {
	cfg *config.Config
	log *logging.Logger
}

// setup loads the settings store and creates the logger. The log level
// follows eslint.trace.server unless --log-level is given.
func (o *globalOptions) setup(ctx context.Context, logOut io.Writer) (*environment, error) {
	if o.noColor {
		color.NoColor = true
	}

	workspace := o.workspace
	if workspace == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		workspace = wd
	}
	workspace, err := filepath.Abs(workspace)
	if err != nil {
		return nil, err
	}

	folders := o.folders
	if len(folders) == 0 {
		folders = []string{workspace}
	}

	logCfg := logging.DefaultConfig()
	logCfg.Output = logOut
	log := logging.New(logCfg)
	cfgOpts := []config.Option{
		config.WithWorkspaceRoot(workspace),
		config.WithFolders(folders...),
		config.WithLogger(log),
	}
	if o.userConfig != "" {
		cfgOpts = append(cfgOpts, config.WithUserConfigDir(o.userConfig))
	}

	cfg := config.New(cfgOpts...)
	if err := cfg.Load(ctx); err != nil {
		cfg.Close()
		return nil, fmt.Errorf("load settings: %w", err)
	}

	log.SetLevel(o.level(cfg))
	return &environment{cfg: cfg, log: log}, nil
}

func (o *globalOptions) level(cfg *config.Config) logging.Level {
	if o.logLevel != "" {
		return logging.ParseLevel(o.logLevel)
	}
	switch trace := cfg.Scope("", "").String(config.KeyTraceServer, "off"); trace {
	case "messages", "verbose":
		return logging.ParseLevel(trace)
	default:
		return logging.LevelInfo
	}
}

func (e *environment) Close() {
	e.cfg.Close()
}

// document returns a bare document for path. Its content is not read.
func document(path, languageID string) (lsp.TextDocument, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return lsp.TextDocument{}, err
	}
	if languageID == "" {
		languageID = lsp.DetectLanguageID(abs)
	}
	return lsp.TextDocument{URI: lsp.FilePathToURI(abs), LanguageID: languageID}, nil
}

// defaultStatePath is where the client remembers state across sessions.
func defaultStatePath() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "lintbridge", "state.db")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "lintbridge", "state.db")
	}
	return filepath.Join(home, ".local", "state", "lintbridge", "state.db")
}
