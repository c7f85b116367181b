package lsp

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestServer_ConnectHandshake(t *testing.T) {
	r, w, c, p := newPeerPair(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	s := NewServer(ServerConfig{InitializationOptions: map[string]any{"x": 1}}, nil)
	folders := []WorkspaceFolder{{URI: "file:///work", Name: "work"}}

	initParams := make(chan *InitializeParams, 1)
	go func() { initParams <- p.handshake() }()

	if err := s.Connect(ctx, r, w, c, folders); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if s.Status() != ServerStatusReady {
		t.Errorf("Status() = %v, want ready", s.Status())
	}
	if info := s.Info(); info == nil || info.Name != "eslint" {
		t.Errorf("Info() = %+v", info)
	}

	params := <-initParams
	if params.RootURI != "file:///work" || len(params.WorkspaceFolders) != 1 {
		t.Errorf("initialize params = %+v", params)
	}
	if params.Capabilities.Workspace == nil || !params.Capabilities.Workspace.Configuration {
		t.Error("client must announce workspace/configuration support")
	}

	if err := s.Connect(ctx, r, w, c, folders); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("second Connect() error = %v, want ErrAlreadyStarted", err)
	}
}

func TestServer_HandlersSurviveReconnect(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	s := NewServer(ServerConfig{}, nil)
	var calls atomic.Int32
	s.OnRequest(MethodWorkspaceFolders, func(context.Context, json.RawMessage) (any, error) {
		calls.Add(1)
		return []WorkspaceFolder{}, nil
	})

	for round := 0; round < 2; round++ {
		r, w, c, p := newPeerPair(t)
		go p.handshake()
		if err := s.Connect(ctx, r, w, c, nil); err != nil {
			t.Fatalf("round %d Connect() error = %v", round, err)
		}

		p.request(10+round, MethodWorkspaceFolders, nil)
		if msg := p.mustRead(); msg.Error != nil {
			t.Fatalf("round %d error reply %v", round, msg.Error)
		}

		go func() {
			if msg, err := p.read(); err == nil {
				p.respond(msg.ID, nil)
				_, _ = p.read()
			}
		}()
		if err := s.Shutdown(ctx); err != nil {
			t.Fatalf("Shutdown() error = %v", err)
		}
	}

	if calls.Load() != 2 {
		t.Errorf("handler ran %d times, want 2", calls.Load())
	}
}

func TestServer_NotReady(t *testing.T) {
	s := NewServer(ServerConfig{}, nil)
	if err := s.Notify(context.Background(), MethodDidOpen, nil); !errors.Is(err, ErrServerNotReady) {
		t.Errorf("Notify() error = %v, want ErrServerNotReady", err)
	}
	if err := s.Call(context.Background(), "x", nil, nil); !errors.Is(err, ErrServerNotReady) {
		t.Errorf("Call() error = %v, want ErrServerNotReady", err)
	}
	if err := s.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() on stopped server = %v", err)
	}
}

func TestServer_ExitOnDisconnect(t *testing.T) {
	r, w, c, p := newPeerPair(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	s := NewServer(ServerConfig{}, nil)
	go p.handshake()
	if err := s.Connect(ctx, r, w, c, nil); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	c.Close()

	select {
	case err := <-s.ExitChannel():
		if err == nil {
			t.Error("exit error should not be nil")
		}
	case <-ctx.Done():
		t.Fatal("exit not signalled")
	}
}

func TestServer_StartMissingCommand(t *testing.T) {
	s := NewServer(ServerConfig{Command: "/nonexistent/lintbridge-test-server"}, nil)
	err := s.Start(context.Background(), nil)
	var serr *ServerError
	if !errors.As(err, &serr) {
		t.Fatalf("Start() error = %v, want *ServerError", err)
	}
	if s.Status() != ServerStatusError {
		t.Errorf("Status() = %v, want error", s.Status())
	}
	if s.LastError() == nil {
		t.Error("LastError() = nil")
	}
}
