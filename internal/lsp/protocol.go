package lsp

import (
	"encoding/json"
	"fmt"
	"net/url"
	"path/filepath"
	"runtime"
	"strings"
)

// Method names used by lintbridge.
const (
	MethodInitialize             = "initialize"
	MethodInitialized            = "initialized"
	MethodShutdown               = "shutdown"
	MethodExit                   = "exit"
	MethodDidOpen                = "textDocument/didOpen"
	MethodDidClose               = "textDocument/didClose"
	MethodDidChangeConfiguration = "workspace/didChangeConfiguration"
	MethodWorkspaceConfiguration = "workspace/configuration"
	MethodRegisterCapability     = "client/registerCapability"
	MethodUnregisterCapability   = "client/unregisterCapability"
	MethodWorkDoneProgressCreate = "window/workDoneProgress/create"
	MethodLogMessage             = "window/logMessage"
	MethodStatus                 = "eslint/status"
	MethodNoConfig               = "eslint/noConfig"
	MethodNoLibrary              = "eslint/noLibrary"
	MethodProbeFailed            = "eslint/probeFailed"
	MethodExitCalled             = "eslint/exitCalled"
	MethodOpenDoc                = "eslint/openDoc"
	MethodShowOutputChannel      = "eslint/showOutputChannel"
	MethodWorkspaceFolders       = "workspace/workspaceFolders"
	MethodExecuteCommand         = "workspace/executeCommand"
)

// URI schemes lintbridge distinguishes.
const (
	SchemeFile         = "file"
	SchemeUntitled     = "untitled"
	SchemeNotebookCell = "vscode-notebook-cell"
)

// DocumentURI represents a URI as used in LSP.
// It is typically a file:// URI.
type DocumentURI string

// Scheme returns the URI scheme, or "" when the URI has none.
func (u DocumentURI) Scheme() string {
	s := string(u)
	i := strings.Index(s, ":")
	if i <= 0 {
		return ""
	}
	for _, r := range s[:i] {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '+' || r == '-' || r == '.') {
			return ""
		}
	}
	return strings.ToLower(s[:i])
}

// TextDocument is a document the client may synchronize with the server.
type TextDocument struct {
	URI        DocumentURI
	LanguageID string
	Version    int
	Text       string
}

// Scheme returns the scheme of the document URI.
func (d TextDocument) Scheme() string {
	return d.URI.Scheme()
}

// Path returns the file system path of a file document, or "".
func (d TextDocument) Path() string {
	if d.Scheme() != SchemeFile {
		return ""
	}
	return URIToFilePath(d.URI)
}

// Item returns the document as sent in didOpen.
func (d TextDocument) Item() TextDocumentItem {
	return TextDocumentItem{
		URI:        d.URI,
		LanguageID: d.LanguageID,
		Version:    d.Version,
		Text:       d.Text,
	}
}

// TextDocumentIdentifier identifies a text document.
type TextDocumentIdentifier struct {
	URI DocumentURI `json:"uri"`
}

// TextDocumentItem is an item to transfer a text document from the client to the server.
type TextDocumentItem struct {
	URI        DocumentURI `json:"uri"`
	LanguageID string      `json:"languageId"`
	Version    int         `json:"version"`
	Text       string      `json:"text"`
}

// WorkspaceFolder represents a workspace folder.
type WorkspaceFolder struct {
	URI  DocumentURI `json:"uri"`
	Name string      `json:"name"`
}

// NewWorkspaceFolder builds a folder entry from a file system path.
func NewWorkspaceFolder(path string) WorkspaceFolder {
	return WorkspaceFolder{URI: FilePathToURI(path), Name: filepath.Base(path)}
}

// --- Initialize ---

// InitializeParams are the parameters sent in an initialize request.
type InitializeParams struct {
	ProcessID             int                `json:"processId"`
	RootURI               DocumentURI        `json:"rootUri,omitempty"`
	Capabilities          ClientCapabilities `json:"capabilities"`
	InitializationOptions any                `json:"initializationOptions,omitempty"`
	WorkspaceFolders      []WorkspaceFolder  `json:"workspaceFolders,omitempty"`
	Trace                 string             `json:"trace,omitempty"`
}

// InitializeResult is the result of the initialize request.
type InitializeResult struct {
	Capabilities json.RawMessage       `json:"capabilities"`
	ServerInfo   *InitializeServerInfo `json:"serverInfo,omitempty"`
}

// InitializeServerInfo contains information about the language server from initialization.
type InitializeServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
}

// InitializedParams are the parameters sent in an initialized notification.
type InitializedParams struct{}

// ClientCapabilities define capabilities the client provides.
type ClientCapabilities struct {
	Workspace    *WorkspaceClientCapabilities    `json:"workspace,omitempty"`
	TextDocument *TextDocumentClientCapabilities `json:"textDocument,omitempty"`
}

// WorkspaceClientCapabilities define capabilities the client provides on the workspace.
type WorkspaceClientCapabilities struct {
	Configuration          bool                                `json:"configuration"`
	WorkspaceFolders       bool                                `json:"workspaceFolders"`
	DidChangeConfiguration *DidChangeConfigurationCapabilities `json:"didChangeConfiguration,omitempty"`
}

// DidChangeConfigurationCapabilities describes didChangeConfiguration support.
type DidChangeConfigurationCapabilities struct {
	DynamicRegistration bool `json:"dynamicRegistration,omitempty"`
}

// TextDocumentClientCapabilities define capabilities for text documents.
type TextDocumentClientCapabilities struct {
	Synchronization *TextDocumentSyncClientCapabilities `json:"synchronization,omitempty"`
}

// TextDocumentSyncClientCapabilities describes document sync support.
type TextDocumentSyncClientCapabilities struct {
	DidSave bool `json:"didSave,omitempty"`
}

// DefaultClientCapabilities returns the capabilities lintbridge announces.
func DefaultClientCapabilities() ClientCapabilities {
	return ClientCapabilities{
		Workspace: &WorkspaceClientCapabilities{
			Configuration:          true,
			WorkspaceFolders:       true,
			DidChangeConfiguration: &DidChangeConfigurationCapabilities{},
		},
		TextDocument: &TextDocumentClientCapabilities{
			Synchronization: &TextDocumentSyncClientCapabilities{},
		},
	}
}

// --- Document synchronization ---

// DidOpenTextDocumentParams are sent when a document is opened.
type DidOpenTextDocumentParams struct {
	TextDocument TextDocumentItem `json:"textDocument"`
}

// DidCloseTextDocumentParams are sent when a document is closed.
type DidCloseTextDocumentParams struct {
	TextDocument TextDocumentIdentifier `json:"textDocument"`
}

// --- Configuration ---

// DidChangeConfigurationParams are sent when settings change. lintbridge
// sends null settings; the server pulls with workspace/configuration.
type DidChangeConfigurationParams struct {
	Settings any `json:"settings"`
}

// ConfigurationItem is one entry of a workspace/configuration request.
type ConfigurationItem struct {
	ScopeURI DocumentURI `json:"scopeUri,omitempty"`
	Section  string      `json:"section,omitempty"`
}

// ConfigurationParams are the parameters of workspace/configuration.
type ConfigurationParams struct {
	Items []ConfigurationItem `json:"items"`
}

// --- Window ---

// MessageType is the type of a log message.
type MessageType int

// Message types.
const (
	MessageTypeError   MessageType = 1
	MessageTypeWarning MessageType = 2
	MessageTypeInfo    MessageType = 3
	MessageTypeLog     MessageType = 4
)

// LogMessageParams are the parameters of window/logMessage.
type LogMessageParams struct {
	Type    MessageType `json:"type"`
	Message string      `json:"message"`
}

// --- ESLint extension ---

// Status is the validation state reported by eslint/status.
type Status int

// Status values.
const (
	StatusOK    Status = 1
	StatusWarn  Status = 2
	StatusError Status = 3
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusWarn:
		return "warn"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// StatusParams are the parameters of eslint/status.
type StatusParams struct {
	URI            DocumentURI `json:"uri"`
	State          Status      `json:"state"`
	ValidationTime *int64      `json:"validationTime,omitempty"`
}

// NoConfigParams are the parameters of eslint/noConfig.
type NoConfigParams struct {
	Message  string                 `json:"message"`
	Document TextDocumentIdentifier `json:"document"`
}

// NoLibraryParams are the parameters of eslint/noLibrary.
type NoLibraryParams struct {
	Source TextDocumentIdentifier `json:"source"`
}

// ProbeFailedParams are the parameters of eslint/probeFailed.
type ProbeFailedParams struct {
	TextDocument TextDocumentIdentifier `json:"textDocument"`
}

// OpenDocParams are the parameters of eslint/openDoc.
type OpenDocParams struct {
	URL string `json:"url"`
}

// ExitCalledParams are the parameters of eslint/exitCalled, sent as a
// [code, stack] tuple.
type ExitCalledParams struct {
	Code  int
	Stack string
}

// UnmarshalJSON decodes the [code, stack] tuple.
func (p *ExitCalledParams) UnmarshalJSON(data []byte) error {
	var tuple []json.RawMessage
	if err := json.Unmarshal(data, &tuple); err != nil {
		return err
	}
	if len(tuple) != 2 {
		return fmt.Errorf("exitCalled: want [code, stack], got %d elements", len(tuple))
	}
	if err := json.Unmarshal(tuple[0], &p.Code); err != nil {
		return fmt.Errorf("exitCalled code: %w", err)
	}
	if err := json.Unmarshal(tuple[1], &p.Stack); err != nil {
		return fmt.Errorf("exitCalled stack: %w", err)
	}
	return nil
}

// MarshalJSON encodes the [code, stack] tuple.
func (p ExitCalledParams) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{p.Code, p.Stack})
}

// --- Commands ---

// CommandApplyAllFixes asks the server to fix every problem in a document.
const CommandApplyAllFixes = "eslint.applyAllFixes"

// VersionedTextDocumentIdentifier identifies a specific document version.
type VersionedTextDocumentIdentifier struct {
	URI     DocumentURI `json:"uri"`
	Version int         `json:"version"`
}

// ExecuteCommandParams are the parameters of workspace/executeCommand.
type ExecuteCommandParams struct {
	Command   string `json:"command"`
	Arguments []any  `json:"arguments,omitempty"`
}

// DetectLanguageID returns the language identifier for a file path based on
// its extension, or "plaintext".
func DetectLanguageID(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".js", ".mjs", ".cjs":
		return "javascript"
	case ".jsx":
		return "javascriptreact"
	case ".ts", ".mts", ".cts":
		return "typescript"
	case ".tsx":
		return "typescriptreact"
	case ".vue":
		return "vue"
	case ".html", ".htm":
		return "html"
	case ".md", ".markdown":
		return "markdown"
	case ".json":
		return "json"
	case ".jsonc":
		return "jsonc"
	case ".svelte":
		return "svelte"
	case ".astro":
		return "astro"
	default:
		return "plaintext"
	}
}

// --- URIs ---

// FilePathToURI converts a file path to a DocumentURI.
func FilePathToURI(path string) DocumentURI {
	if path == "" {
		return ""
	}

	// Make path absolute
	if !filepath.IsAbs(path) {
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
	}

	// Convert to forward slashes
	path = filepath.ToSlash(path)

	// On Windows, add extra slash for drive letter
	if runtime.GOOS == "windows" && len(path) >= 2 && path[1] == ':' {
		path = "/" + path
	}

	u := &url.URL{
		Scheme: SchemeFile,
		Path:   path,
	}
	return DocumentURI(u.String())
}

// URIToFilePath converts a DocumentURI to a file path.
func URIToFilePath(uri DocumentURI) string {
	if uri == "" {
		return ""
	}

	u, err := url.Parse(string(uri))
	if err != nil || u.Scheme != SchemeFile {
		return string(uri)
	}

	path := u.Path

	// On Windows, remove leading slash before drive letter
	if runtime.GOOS == "windows" && len(path) >= 3 && path[0] == '/' && path[2] == ':' {
		path = path[1:]
	}

	return filepath.FromSlash(path)
}
