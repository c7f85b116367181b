package app

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrAlreadyRunning   = errors.New("client already running")
	ErrNotRunning       = errors.New("client not running")
	ErrNoConfig         = errors.New("configuration store required")
	ErrDocumentNotFound = errors.New("document not open")

	// ErrNoFolder is returned for paths outside every workspace folder.
	ErrNoFolder = errors.New("no workspace folder")
)

// OperationError wraps a failure of a client operation on a document or
// folder.
type OperationError struct {
	Op      string // "open", "fix", "migrate", ...
	Target  string // document URI or folder
	Context string
	Err     error
}

func NewOperationError(op, target string, err error) *OperationError {
	return &OperationError{Op: op, Target: target, Err: err}
}

// WithContext sets Context and returns e. A nil e stays nil.
func (e *OperationError) WithContext(ctx string) *OperationError {
	if e != nil {
		e.Context = ctx
	}
	return e
}

func (e *OperationError) Error() string {
	if e == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(e.Op)
	if e.Target != "" {
		b.WriteString(" " + e.Target)
	}
	if e.Context != "" {
		b.WriteString(" (" + e.Context + ")")
	}
	if e.Err != nil {
		b.WriteString(": " + e.Err.Error())
	}
	return b.String()
}

func (e *OperationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// InitError reports a component that failed to start.
type InitError struct {
	Component string
	Err       error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("initialize %s: %v", e.Component, e.Err)
}

func (e *InitError) Unwrap() error {
	return e.Err
}
