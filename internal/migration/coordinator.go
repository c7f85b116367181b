// Package migration moves legacy lint settings into their current shape.
//
// A Coordinator runs the migration check in front of every configuration
// read. The check is serialized by a FIFO Gate so that only one migration
// prompt is ever open, no matter how many documents ask for settings at
// once.
package migration

import (
	"context"
	"fmt"
	"sync"

	"github.com/dshills/lintbridge/internal/config"
	"github.com/dshills/lintbridge/internal/logging"
	"github.com/dshills/lintbridge/internal/lsp"
	"github.com/dshills/lintbridge/internal/prompt"
)

// Prompt choices.
const (
	ChoiceYes    = "Yes"
	ChoiceNever  = "Never migrate Settings"
	ChoiceReadme = "Open Readme"
	ChoiceNotNow = "Not now"
)

// ReadmeURL documents the settings migration.
const ReadmeURL = "https://github.com/microsoft/vscode-eslint#settings-migration"

const (
	askMessage    = "The ESLint 'autoFixOnSave' setting needs to be migrated to the new 'editor.codeActionsOnSave' setting. Do you want to migrate the setting?"
	failedMessage = "ESLint settings migration failed. Please see the output for details."
)

// Coordinator serializes migrations and remembers the user's decision to
// stop asking for the rest of the session.
type Coordinator struct {
	gate     *Gate
	store    Store
	prompter prompt.Prompter
	log      *logging.Logger

	mu         sync.Mutex
	suppressed bool
	active     *Record
}

// NewCoordinator creates a coordinator over store.
func NewCoordinator(store Store, prompter prompt.Prompter, log *logging.Logger) *Coordinator {
	if log == nil {
		log = logging.Nop()
	}
	return &Coordinator{
		gate:     NewGate(),
		store:    store,
		prompter: prompter,
		log:      log.WithComponent("migration"),
	}
}

// WithMigrationGate runs the migration check for resource while holding the
// gate and then calls fn. fn is called exactly once. If the gate cannot be
// acquired because ctx is done, fn runs without the check.
func (c *Coordinator) WithMigrationGate(ctx context.Context, resource lsp.DocumentURI, folder string, fn func(context.Context) error) error {
	release, err := c.gate.Acquire(ctx)
	if err != nil {
		c.log.Debug("skipping migration check for %s: %v", resource, err)
		return fn(ctx)
	}
	defer release()

	c.check(ctx, resource, folder)
	return fn(ctx)
}

// check evaluates and possibly performs the migration for resource. The
// caller holds the gate.
func (c *Coordinator) check(ctx context.Context, resource lsp.DocumentURI, folder string) {
	if c.Suppressed() {
		return
	}
	if c.store.Scope(folder, "").String(config.KeyMigration2x, "on") == "off" {
		return
	}

	rec := NewRecord(c.store, resource, folder)
	c.setActive(rec)
	defer c.setActive(nil)

	rec.Capture()
	if !rec.NeedsUpdate() {
		return
	}

	choice, err := c.prompter.Ask(ctx, prompt.LevelInfo, askMessage, ChoiceYes, ChoiceNever, ChoiceReadme, ChoiceNotNow)
	if err != nil {
		c.log.Warn("migration prompt for %s: %v", resource, err)
		return
	}

	switch choice {
	case ChoiceYes:
		c.log.Info("migrating settings for %s (record %s)", resource, rec.ID)
		if err := rec.Update(); err != nil {
			c.log.Error("settings migration for %s failed: %v", resource, err)
			c.prompter.Notify(ctx, prompt.LevelError, failedMessage)
		}
	case ChoiceNever:
		c.suppress()
		if err := c.disablePermanently(); err != nil {
			c.log.Error("disabling settings migration: %v", err)
		}
	case ChoiceReadme:
		c.suppress()
		if err := c.prompter.Open(ctx, ReadmeURL); err != nil {
			c.log.Warn("open %s: %v", ReadmeURL, err)
		}
	default:
		// Not now or dismissed: ask again on the next read.
	}
}

// disablePermanently turns the migration off in the user settings.
func (c *Coordinator) disablePermanently() error {
	if err := c.store.Set(config.LayerUser, config.KeyMigration2x, "off"); err != nil {
		return err
	}
	return c.store.Save(config.LayerUser)
}

// MigrateFolder migrates the settings of folder without asking. It reports
// whether anything needed migrating.
func (c *Coordinator) MigrateFolder(ctx context.Context, folder string) (bool, error) {
	release, err := c.gate.Acquire(ctx)
	if err != nil {
		return false, err
	}
	defer release()

	rec := NewRecord(c.store, lsp.FilePathToURI(folder), folder)
	c.setActive(rec)
	defer c.setActive(nil)

	rec.Capture()
	if !rec.NeedsUpdate() {
		return false, nil
	}
	c.log.Info("migrating settings for folder %s (record %s)", folder, rec.ID)
	if err := rec.Update(); err != nil {
		return true, fmt.Errorf("migrate %s: %w", folder, err)
	}
	return true, nil
}

// Suppressed reports whether prompting has been turned off for the session.
func (c *Coordinator) Suppressed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.suppressed
}

// Active returns the record being evaluated, or nil.
func (c *Coordinator) Active() *Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

func (c *Coordinator) suppress() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.suppressed = true
}

func (c *Coordinator) setActive(r *Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.active = r
}
