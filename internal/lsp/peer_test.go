package lsp

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"testing"
)

// peer plays the server side of a connection in tests.
type peer struct {
	t      *testing.T
	reader *bufio.Reader
	writer io.Writer
}

// wireMessage is any JSON-RPC message seen by the peer.
type wireMessage struct {
	ID     json.RawMessage `json:"id,omitempty"`
	Method string          `json:"method,omitempty"`
	Params json.RawMessage `json:"params,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *RPCError       `json:"error,omitempty"`
}

// newPeerPair connects a client-side reader/writer/closer to a peer.
func newPeerPair(t *testing.T) (io.Reader, io.Writer, io.Closer, *peer) {
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
	return clientR, clientW, closer, &peer{t: t, reader: bufio.NewReader(peerR), writer: peerW}
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func (p *peer) read() (*wireMessage, error) {
	length := -1
	for {
		line, err := p.reader.ReadString('\n')
		if err != nil {
			return nil, err
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
	if _, err := io.ReadFull(p.reader, body); err != nil {
		return nil, err
	}
	var msg wireMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (p *peer) mustRead() *wireMessage {
	p.t.Helper()
	msg, err := p.read()
	if err != nil {
		p.t.Fatalf("peer read: %v", err)
	}
	return msg
}

func (p *peer) write(msg map[string]any) {
	msg["jsonrpc"] = "2.0"
	data, err := json.Marshal(msg)
	if err != nil {
		p.t.Errorf("peer marshal: %v", err)
		return
	}
	if _, err := fmt.Fprintf(p.writer, "Content-Length: %d\r\n\r\n%s", len(data), data); err != nil {
		p.t.Errorf("peer write: %v", err)
	}
}

func (p *peer) notify(method string, params any) {
	p.write(map[string]any{"method": method, "params": params})
}

func (p *peer) request(id int, method string, params any) {
	p.write(map[string]any{"id": id, "method": method, "params": params})
}

func (p *peer) respond(id json.RawMessage, result any) {
	p.write(map[string]any{"id": id, "result": result})
}

// handshake answers initialize and consumes initialized.
func (p *peer) handshake() *InitializeParams {
	p.t.Helper()
	msg := p.mustRead()
	if msg.Method != MethodInitialize {
		p.t.Fatalf("first message = %q, want initialize", msg.Method)
	}
	var params InitializeParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		p.t.Fatalf("initialize params: %v", err)
	}
	p.respond(msg.ID, map[string]any{
		"capabilities": map[string]any{},
		"serverInfo":   map[string]any{"name": "eslint", "version": "3.0"},
	})
	if next := p.mustRead(); next.Method != MethodInitialized {
		p.t.Fatalf("second message = %q, want initialized", next.Method)
	}
	return &params
}
