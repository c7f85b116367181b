// Package lsp connects lintbridge to the ESLint language server.
//
// The package is organized around these core components:
//
//   - Transport: JSON-RPC 2.0 over Content-Length framed streams, including
//     requests initiated by the server
//   - Server: the server process, its initialize handshake and the handlers
//     registered for server messages
//   - Supervisor: restarts a crashed server with exponential backoff
//
// Protocol types cover the base methods lintbridge uses (didOpen, didClose,
// didChangeConfiguration, workspace/configuration) and the eslint/* extension
// messages.
//
// # Quick Start
//
//	srv := lsp.NewServer(lsp.ServerConfig{
//	    Command: "node",
//	    Args:    []string{"eslintServer.js", "--stdio"},
//	}, log)
//	srv.OnNotification(lsp.MethodStatus, handleStatus)
//	srv.OnRequest(lsp.MethodWorkspaceConfiguration, handleConfiguration)
//
//	if err := srv.Start(ctx, folders); err != nil {
//	    return err
//	}
//	defer srv.Shutdown(ctx)
package lsp
