package app

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dshills/lintbridge/internal/config"
	"github.com/dshills/lintbridge/internal/lsp"
	"github.com/dshills/lintbridge/internal/prompt"
	"github.com/dshills/lintbridge/internal/state"
)

// wireMessage is any JSON-RPC message seen by the peer.
type wireMessage struct {
	ID     json.RawMessage `json:"id,omitempty"`
	Method string          `json:"method,omitempty"`
	Params json.RawMessage `json:"params,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *lsp.RPCError   `json:"error,omitempty"`
}

// peer plays the lint server. Everything the client sends is read in the
// background so client writes never block. Only one goroutine may await at
// a time.
type peer struct {
	t       *testing.T
	writer  io.Writer
	wmu     sync.Mutex
	msgs    chan *wireMessage
	backlog []*wireMessage
}

func newPeer(t *testing.T) (io.Reader, io.Writer, io.Closer, *peer) {
	t.Helper()
	clientR, peerW := io.Pipe()
	peerR, clientW := io.Pipe()
	closer := closerFunc(func() error {
		clientR.Close()
		clientW.Close()
		peerR.Close()
		peerW.Close()
		return nil
	})
	t.Cleanup(func() { closer.Close() })

	p := &peer{t: t, writer: peerW, msgs: make(chan *wireMessage, 256)}
	go p.readLoop(bufio.NewReader(peerR))
	return clientR, clientW, closer, p
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func (p *peer) readLoop(r *bufio.Reader) {
	defer close(p.msgs)
	for {
		length := -1
		for {
			line, err := r.ReadString('\n')
			if err != nil {
				return
			}
			line = strings.TrimSpace(line)
			if line == "" {
				break
			}
			if name, value, ok := strings.Cut(line, ":"); ok && strings.EqualFold(name, "Content-Length") {
				length, _ = strconv.Atoi(strings.TrimSpace(value))
			}
		}
		body := make([]byte, length)
		if _, err := io.ReadFull(r, body); err != nil {
			return
		}
		var msg wireMessage
		if err := json.Unmarshal(body, &msg); err != nil {
			return
		}
		p.msgs <- &msg
	}
}

// await returns the first message satisfying match. Messages that do not
// match are kept for later awaits.
func (p *peer) await(match func(*wireMessage) bool) *wireMessage {
	p.t.Helper()
	for i, msg := range p.backlog {
		if match(msg) {
			p.backlog = append(p.backlog[:i], p.backlog[i+1:]...)
			return msg
		}
	}
	timeout := time.After(2 * time.Second)
	for {
		select {
		case msg, ok := <-p.msgs:
			if !ok {
				p.t.Fatal("connection closed")
			}
			if match(msg) {
				return msg
			}
			p.backlog = append(p.backlog, msg)
		case <-timeout:
			p.t.Fatal("timed out waiting for message")
		}
	}
}

func (p *peer) awaitMethod(method string) *wireMessage {
	p.t.Helper()
	return p.await(func(m *wireMessage) bool { return m.Method == method })
}

// quiet reports whether no message with method is pending or arrives
// within d.
func (p *peer) quiet(method string, d time.Duration) bool {
	for _, msg := range p.backlog {
		if msg.Method == method {
			return false
		}
	}
	timeout := time.After(d)
	for {
		select {
		case msg, ok := <-p.msgs:
			if !ok {
				return true
			}
			if msg.Method == method {
				return false
			}
			p.backlog = append(p.backlog, msg)
		case <-timeout:
			return true
		}
	}
}

func (p *peer) write(msg map[string]any) {
	msg["jsonrpc"] = "2.0"
	data, err := json.Marshal(msg)
	if err != nil {
		p.t.Errorf("peer marshal: %v", err)
		return
	}
	p.wmu.Lock()
	defer p.wmu.Unlock()
	if _, err := fmt.Fprintf(p.writer, "Content-Length: %d\r\n\r\n%s", len(data), data); err != nil {
		p.t.Errorf("peer write: %v", err)
	}
}

func (p *peer) notify(method string, params any) {
	p.write(map[string]any{"method": method, "params": params})
}

func (p *peer) respond(id json.RawMessage, result any) {
	p.write(map[string]any{"id": id, "result": result})
}

// call sends a request to the client and waits for the reply.
func (p *peer) call(id int, method string, params any) *wireMessage {
	p.t.Helper()
	p.write(map[string]any{"id": id, "method": method, "params": params})
	want := strconv.Itoa(id)
	return p.await(func(m *wireMessage) bool { return m.Method == "" && string(m.ID) == want })
}

func (p *peer) handshake() {
	msg := p.awaitMethod(lsp.MethodInitialize)
	p.respond(msg.ID, map[string]any{
		"capabilities": map[string]any{},
		"serverInfo":   map[string]any{"name": "eslint"},
	})
	p.awaitMethod(lsp.MethodInitialized)
}

// recordingPrompter answers every question with answer and records all
// interaction.
type recordingPrompter struct {
	mu       sync.Mutex
	answer   string
	asked    []string
	notified []string
	opened   []string
}

func (r *recordingPrompter) Ask(_ context.Context, _ prompt.Level, message string, _ ...string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.asked = append(r.asked, message)
	return r.answer, nil
}

func (r *recordingPrompter) Notify(_ context.Context, _ prompt.Level, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notified = append(r.notified, message)
}

func (r *recordingPrompter) Open(_ context.Context, url string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.opened = append(r.opened, url)
	return nil
}

func (r *recordingPrompter) counts() (asked, notified, opened int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.asked), len(r.notified), len(r.opened)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// harness is a client connected to a peer over pipes.
type harness struct {
	t        *testing.T
	ctx      context.Context
	root     string
	userDir  string
	cfg      *config.Config
	client   *Client
	prompter *recordingPrompter
	memento  *state.MemoryMemento
	peer     *peer
}

func newHarness(t *testing.T, user, workspace string) *harness {
	t.Helper()
	h := &harness{
		t:        t,
		root:     t.TempDir(),
		userDir:  t.TempDir(),
		prompter: &recordingPrompter{},
		memento:  state.NewMemory(),
	}
	if user != "" {
		writeFile(t, filepath.Join(h.userDir, "settings.toml"), user)
	}
	if workspace != "" {
		writeFile(t, filepath.Join(h.root, ".lintbridge", "settings.toml"), workspace)
	}
	h.cfg = config.New(
		config.WithUserConfigDir(h.userDir),
		config.WithWorkspaceRoot(h.root),
		config.WithFolders(h.root),
		config.WithWatcher(false),
		config.WithEnvironment(false),
		config.WithSchemaValidation(false),
	)
	t.Cleanup(h.cfg.Close)
	if err := h.cfg.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	client, err := New(Options{Config: h.cfg, Prompter: h.prompter, Memento: h.memento})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	h.client = client

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	h.ctx = ctx
	return h
}

// connect runs the handshake and returns once the client is ready.
func (h *harness) connect() {
	h.t.Helper()
	r, w, c, p := newPeer(h.t)
	h.peer = p
	done := make(chan struct{})
	go func() {
		defer close(done)
		p.handshake()
	}()
	if err := h.client.Connect(h.ctx, r, w, c); err != nil {
		h.t.Fatalf("Connect() error = %v", err)
	}
	<-done
}

func (h *harness) doc(rel, lang string) lsp.TextDocument {
	return lsp.TextDocument{
		URI:        lsp.FilePathToURI(filepath.Join(h.root, rel)),
		LanguageID: lang,
		Version:    1,
		Text:       "let a = 1\n",
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(time.Millisecond)
	}
}
