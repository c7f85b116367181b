package app

import (
	"cmp"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/dshills/lintbridge/internal/lsp"
	"github.com/dshills/lintbridge/internal/status"
	"github.com/dshills/lintbridge/internal/validate"
)

// DidOpen tracks doc and registers it with the server when it is validated.
func (c *Client) DidOpen(ctx context.Context, doc lsp.TextDocument) validate.Decision {
	c.mu.Lock()
	c.open[doc.URI] = doc
	c.mu.Unlock()

	d := c.decide(doc)
	c.log.Debug("open %s (%s): %s", doc.URI, doc.LanguageID, d)
	c.registry.OnDecisionChange(ctx, doc, d)
	return d
}

// OpenFile reads the file at path and opens it.
func (c *Client) OpenFile(ctx context.Context, path string) (lsp.TextDocument, validate.Decision, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return lsp.TextDocument{}, validate.Off, NewOperationError("open", path, err)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return lsp.TextDocument{}, validate.Off, NewOperationError("open", path, err)
	}
	doc := lsp.TextDocument{
		URI:        lsp.FilePathToURI(abs),
		LanguageID: lsp.DetectLanguageID(abs),
		Version:    1,
		Text:       string(data),
	}
	return doc, c.DidOpen(ctx, doc), nil
}

// DidClose forgets the document at uri.
func (c *Client) DidClose(ctx context.Context, uri lsp.DocumentURI) {
	c.mu.Lock()
	delete(c.open, uri)
	delete(c.signals, uri)
	c.mu.Unlock()

	c.registry.Close(ctx, uri)
	c.status.ForgetDocument(uri)
}

// Documents returns the open documents ordered by URI.
func (c *Client) Documents() []lsp.TextDocument {
	c.mu.RLock()
	docs := make([]lsp.TextDocument, 0, len(c.open))
	for _, doc := range c.open {
		docs = append(docs, doc)
	}
	c.mu.RUnlock()

	slices.SortFunc(docs, func(a, b lsp.TextDocument) int {
		return cmp.Compare(a.URI, b.URI)
	})
	return docs
}

// Decide returns the validation decision for doc under the current
// configuration without changing any state.
func (c *Client) Decide(doc lsp.TextDocument) validate.Decision {
	return c.decide(doc)
}

func (c *Client) decide(doc lsp.TextDocument) validate.Decision {
	folder := c.cfg.FolderFor(doc.Path())
	return c.engine.Decide(doc, c.cfg.Scope(folder, doc.LanguageID))
}

// FixOnSave asks the server to apply all fixes to the document at uri and
// records how long it took.
func (c *Client) FixOnSave(ctx context.Context, uri lsp.DocumentURI) error {
	c.mu.RLock()
	doc, ok := c.open[uri]
	c.mu.RUnlock()
	if !ok {
		return NewOperationError("fix", string(uri), ErrDocumentNotFound)
	}

	params := lsp.ExecuteCommandParams{
		Command: lsp.CommandApplyAllFixes,
		Arguments: []any{lsp.VersionedTextDocumentIdentifier{
			URI:     doc.URI,
			Version: doc.Version,
		}},
	}
	timer := StartTimer()
	err := c.server.Call(ctx, lsp.MethodExecuteCommand, params, nil)
	elapsed := timer.Elapsed()
	if err != nil {
		return NewOperationError("fix", string(uri), err).WithContext(lsp.CommandApplyAllFixes)
	}

	c.metrics.RecordFix(elapsed)
	c.status.RecordFix(doc.LanguageID, elapsed.Milliseconds())
	c.refreshStatus(doc)
	return nil
}

// Signal returns the last status signal computed for uri.
func (c *Client) Signal(uri lsp.DocumentURI) (status.Signal, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	sig, ok := c.signals[uri]
	return sig, ok
}

// Acknowledge hides the slow-run detail for the language of uri.
func (c *Client) Acknowledge(uri lsp.DocumentURI) {
	doc := c.document(uri)
	c.status.Acknowledge(doc.LanguageID)
	c.refreshStatus(doc)
}

// MigrateFolder migrates the legacy settings of folder without asking.
func (c *Client) MigrateFolder(ctx context.Context, folder string) (bool, error) {
	abs, err := filepath.Abs(folder)
	if err != nil {
		return false, NewOperationError("migrate", folder, err)
	}
	if !slices.Contains(c.cfg.Folders(), abs) {
		return false, NewOperationError("migrate", folder, ErrNoFolder)
	}
	migrated, err := c.migration.MigrateFolder(ctx, abs)
	if err != nil {
		return migrated, NewOperationError("migrate", folder, err)
	}
	return migrated, nil
}

// refreshStatus evaluates the status of doc and stores the signal.
func (c *Client) refreshStatus(doc lsp.TextDocument) {
	folder := c.cfg.FolderFor(doc.Path())
	sig := c.status.Evaluate(doc, c.cfg.Scope(folder, doc.LanguageID))

	c.mu.Lock()
	c.signals[doc.URI] = sig
	c.mu.Unlock()
	c.log.Debug("status %s: %s visible=%v %s", doc.URI, sig.Severity, sig.Visible, sig.Detail)
}

// report receives slow-run reports from the status aggregator.
func (c *Client) report(r status.Report) {
	if r.Severity == status.Error {
		c.log.Error("%s", r.Message())
	} else {
		c.log.Warn("%s", r.Message())
	}
	if r.First {
		c.prompter.Notify(context.Background(), promptLevel(r.Severity),
			fmt.Sprintf("ESLint is slow on %s files. Please see the output for details.", r.Language))
	}
}
