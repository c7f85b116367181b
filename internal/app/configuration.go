package app

import (
	"context"
	"encoding/json"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/dshills/lintbridge/internal/config/notify"
	"github.com/dshills/lintbridge/internal/lsp"
	"github.com/dshills/lintbridge/internal/settings"
)

// Sections whose changes can alter a decision or a settings payload.
var watchedSections = []string{"eslint", "editor", "languages"}

// handleConfiguration answers workspace/configuration. Items are resolved
// concurrently; the migration gate keeps their prompts apart.
func (c *Client) handleConfiguration(ctx context.Context, raw json.RawMessage) (any, error) {
	var params lsp.ConfigurationParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, fmt.Errorf("decode configuration params: %w", err)
	}
	timer := StartTimer()

	results := make([]any, len(params.Items))
	g, gctx := errgroup.WithContext(ctx)
	for i, item := range params.Items {
		if item.Section != "" || item.ScopeURI == "" {
			continue
		}
		g.Go(func() error {
			payload, err := c.Settings(gctx, item.ScopeURI)
			if err != nil {
				return err
			}
			results[i] = payload
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	c.metrics.RecordConfiguration(len(params.Items), timer.Elapsed())
	return results, nil
}

// Settings resolves the settings payload for the document at uri. The
// migration check runs first and may prompt.
func (c *Client) Settings(ctx context.Context, uri lsp.DocumentURI) (settings.Settings, error) {
	doc := c.document(uri)
	folder := c.cfg.FolderFor(doc.Path())

	var payload settings.Settings
	err := c.migration.WithMigrationGate(ctx, uri, folder, func(context.Context) error {
		payload = c.buildSettings(doc, folder)
		return nil
	})
	return payload, err
}

// buildSettings reads the current configuration for doc.
func (c *Client) buildSettings(doc lsp.TextDocument, folder string) settings.Settings {
	scope := c.cfg.Scope(folder, doc.LanguageID)
	target := settings.Target{
		Document: doc,
		Decision: c.engine.Decide(doc, scope),
	}
	if folder != "" {
		wf := lsp.NewWorkspaceFolder(folder)
		target.Folder = &wf
	}
	return settings.Build(scope, target)
}

// document returns the open document for uri, or a bare document with a
// language guessed from the path.
func (c *Client) document(uri lsp.DocumentURI) lsp.TextDocument {
	c.mu.RLock()
	doc, ok := c.open[uri]
	c.mu.RUnlock()
	if ok {
		return doc
	}
	doc = lsp.TextDocument{URI: uri}
	if path := doc.Path(); path != "" {
		doc.LanguageID = lsp.DetectLanguageID(path)
	}
	return doc
}

// onConfigChange runs on the configuration store's notification path and
// only queues the work.
func (c *Client) onConfigChange(change notify.Change) {
	relevant := false
	for _, section := range watchedSections {
		if change.Affects(section) {
			relevant = true
			break
		}
	}
	if !relevant {
		return
	}
	select {
	case c.changes <- struct{}{}:
	default:
	}
}

func (c *Client) changeLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.changes:
			c.ConfigurationChanged(ctx)
		}
	}
}

// ConfigurationChanged clears the probe failures, recomputes the decision
// of every open document, syncs the registry and tells the server to pull
// its settings again.
func (c *Client) ConfigurationChanged(ctx context.Context) {
	c.changeMu.Lock()
	defer c.changeMu.Unlock()

	c.engine.Clear()
	for _, doc := range c.Documents() {
		c.registry.OnDecisionChange(ctx, doc, c.decide(doc))
	}

	params := lsp.DidChangeConfigurationParams{Settings: nil}
	if err := c.server.Notify(ctx, lsp.MethodDidChangeConfiguration, params); err != nil {
		c.metrics.RecordSendFailure()
		c.log.Warn("%s failed: %v", lsp.MethodDidChangeConfiguration, err)
	}
}
