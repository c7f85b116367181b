package lsp

import (
	"errors"
	"fmt"
)

var (
	ErrAlreadyStarted = errors.New("lint server already started")
	ErrShutdown       = errors.New("connection to lint server closed")
	ErrServerNotReady = errors.New("lint server not initialized")

	// ErrServerCrashed is the exit cause when the process dies without
	// reporting an error of its own.
	ErrServerCrashed = errors.New("lint server exited unexpectedly")
)

// JSON-RPC error codes answered to the server.
const (
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// RPCError is the error member of a JSON-RPC response.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	if e.Data == nil {
		return fmt.Sprintf("jsonrpc %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("jsonrpc %d: %s: %v", e.Code, e.Message, e.Data)
}

// ServerError wraps a failure to launch the server executable.
type ServerError struct {
	Command string
	Err     error
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("launch %s: %v", e.Command, e.Err)
}

func (e *ServerError) Unwrap() error { return e.Err }
