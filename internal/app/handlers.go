package app

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dshills/lintbridge/internal/lsp"
	"github.com/dshills/lintbridge/internal/prompt"
	"github.com/dshills/lintbridge/internal/status"
)

// noLibraryKey is the memento key of the library-not-found flags.
const noLibraryKey = "noLibraryMessageShown"

// noLibraryShown records where the library-not-found message was shown.
// Workspaces is keyed by folder URI.
type noLibraryShown struct {
	Global     bool            `json:"global"`
	Workspaces map[string]bool `json:"workspaces"`
}

// empty is the {} result of the eslint/* requests.
type empty struct{}

func (c *Client) registerHandlers() {
	s := c.server

	s.OnRequest(lsp.MethodWorkspaceConfiguration, c.handleConfiguration)
	s.OnRequest(lsp.MethodWorkspaceFolders, func(context.Context, json.RawMessage) (any, error) {
		return c.folders(), nil
	})
	s.OnRequest(lsp.MethodNoConfig, c.handleNoConfig)
	s.OnRequest(lsp.MethodNoLibrary, c.handleNoLibrary)
	s.OnRequest(lsp.MethodProbeFailed, c.handleProbeFailed)
	s.OnRequest(lsp.MethodOpenDoc, c.handleOpenDoc)

	// Capability registration and progress are accepted and ignored.
	for _, method := range []string{
		lsp.MethodRegisterCapability,
		lsp.MethodUnregisterCapability,
		lsp.MethodWorkDoneProgressCreate,
	} {
		s.OnRequest(method, func(context.Context, json.RawMessage) (any, error) {
			return nil, nil
		})
	}

	s.OnNotification(lsp.MethodStatus, c.handleStatus)
	s.OnNotification(lsp.MethodExitCalled, c.handleExitCalled)
	s.OnNotification(lsp.MethodShowOutputChannel, func(string, json.RawMessage) {
		c.metrics.RecordNotification()
		c.log.Info("server asked to show the output channel")
	})
	s.OnNotification(lsp.MethodLogMessage, c.handleLogMessage)
	s.OnNotification("*", func(method string, _ json.RawMessage) {
		c.metrics.RecordNotification()
		c.log.Debug("ignoring notification %s", method)
	})
}

func (c *Client) handleStatus(_ string, raw json.RawMessage) {
	c.metrics.RecordNotification()
	var params lsp.StatusParams
	if err := json.Unmarshal(raw, &params); err != nil {
		c.log.Warn("bad %s params: %v", lsp.MethodStatus, err)
		return
	}

	doc := c.document(params.URI)
	c.status.SetDocumentStatus(params.URI, params.State)
	if params.ValidationTime != nil {
		c.status.RecordValidation(doc.LanguageID, *params.ValidationTime)
	}
	c.refreshStatus(doc)
}

func (c *Client) handleNoConfig(ctx context.Context, raw json.RawMessage) (any, error) {
	var params lsp.NoConfigParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, fmt.Errorf("decode %s params: %w", lsp.MethodNoConfig, err)
	}

	uri := params.Document.URI
	c.log.Warn("no ESLint configuration found for %s: %s", uri, params.Message)
	c.status.SetDocumentStatus(uri, lsp.StatusWarn)
	c.refreshStatus(c.document(uri))

	folder := c.cfg.FolderFor(lsp.URIToFilePath(uri))
	c.noConfigMu.Lock()
	shown := c.noConfigShown[folder]
	c.noConfigShown[folder] = true
	c.noConfigMu.Unlock()
	if !shown {
		c.prompter.Notify(ctx, prompt.LevelWarning,
			fmt.Sprintf("No ESLint configuration found for %s. Please see the output for details.", uri))
	}
	return empty{}, nil
}

func (c *Client) handleNoLibrary(ctx context.Context, raw json.RawMessage) (any, error) {
	var params lsp.NoLibraryParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, fmt.Errorf("decode %s params: %w", lsp.MethodNoLibrary, err)
	}

	uri := params.Source.URI
	c.log.Error("failed to load the ESLint library for %s", uri)
	c.status.SetDocumentStatus(uri, lsp.StatusError)
	c.refreshStatus(c.document(uri))

	if first, err := c.markNoLibraryShown(ctx, uri); err != nil {
		c.log.Warn("updating %s: %v", noLibraryKey, err)
	} else if first {
		c.prompter.Notify(ctx, prompt.LevelInfo,
			"Failed to load the ESLint library. To use ESLint please install it locally or globally. See the output for details.")
	}
	return empty{}, nil
}

// markNoLibraryShown records that the library-not-found message was shown
// for the scope of uri and reports whether this is the first time.
func (c *Client) markNoLibraryShown(ctx context.Context, uri lsp.DocumentURI) (bool, error) {
	c.noLibraryMu.Lock()
	defer c.noLibraryMu.Unlock()

	var shown noLibraryShown
	if _, err := c.memento.Get(ctx, noLibraryKey, &shown); err != nil {
		return false, err
	}
	if shown.Workspaces == nil {
		shown.Workspaces = make(map[string]bool)
	}

	folder := c.cfg.FolderFor(lsp.URIToFilePath(uri))
	if folder == "" {
		if shown.Global {
			return false, nil
		}
		shown.Global = true
	} else {
		key := string(lsp.FilePathToURI(folder))
		if shown.Workspaces[key] {
			return false, nil
		}
		shown.Workspaces[key] = true
	}
	return true, c.memento.Update(ctx, noLibraryKey, shown)
}

func (c *Client) handleProbeFailed(ctx context.Context, raw json.RawMessage) (any, error) {
	var params lsp.ProbeFailedParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, fmt.Errorf("decode %s params: %w", lsp.MethodProbeFailed, err)
	}

	uri := params.TextDocument.URI
	c.log.Info("probing failed for %s, validation turned off", uri)
	c.engine.ProbeFailed(uri)
	c.registry.Close(ctx, uri)
	return empty{}, nil
}

func (c *Client) handleOpenDoc(ctx context.Context, raw json.RawMessage) (any, error) {
	var params lsp.OpenDocParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, fmt.Errorf("decode %s params: %w", lsp.MethodOpenDoc, err)
	}
	if err := c.prompter.Open(ctx, params.URL); err != nil {
		c.log.Warn("open %s: %v", params.URL, err)
	}
	return empty{}, nil
}

func (c *Client) handleExitCalled(_ string, raw json.RawMessage) {
	c.metrics.RecordNotification()
	var params lsp.ExitCalledParams
	if err := json.Unmarshal(raw, &params); err != nil {
		c.log.Warn("bad %s params: %v", lsp.MethodExitCalled, err)
		return
	}

	c.log.Error("server process exited with code %d. This usually indicates a misconfigured ESLint setup.", params.Code)
	if params.Stack != "" {
		c.log.AppendLine(params.Stack)
	}
	for _, doc := range c.Documents() {
		c.status.SetDocumentStatus(doc.URI, lsp.StatusError)
		c.refreshStatus(doc)
	}
	c.prompter.Notify(context.Background(), prompt.LevelError,
		fmt.Sprintf("ESLint server process exited with code %d. Please see the output for details.", params.Code))
}

func (c *Client) handleLogMessage(_ string, raw json.RawMessage) {
	c.metrics.RecordNotification()
	var params lsp.LogMessageParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return
	}
	log := c.log.WithField("source", "server")
	switch params.Type {
	case lsp.MessageTypeError:
		log.Error("%s", params.Message)
	case lsp.MessageTypeWarning:
		log.Warn("%s", params.Message)
	case lsp.MessageTypeInfo:
		log.Info("%s", params.Message)
	default:
		log.Debug("%s", params.Message)
	}
}

func promptLevel(s status.Severity) prompt.Level {
	switch s {
	case status.Error:
		return prompt.LevelError
	case status.Warning:
		return prompt.LevelWarning
	default:
		return prompt.LevelInfo
	}
}
