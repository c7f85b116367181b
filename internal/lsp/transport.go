package lsp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/dshills/lintbridge/internal/logging"
)

// NotificationHandler handles a notification from the server.
type NotificationHandler func(method string, params json.RawMessage)

// RequestHandler answers a request from the server. The returned value is
// sent as the result; a returned *RPCError is sent as is, any other error
// as an internal error.
type RequestHandler func(ctx context.Context, params json.RawMessage) (any, error)

// message is any JSON-RPC 2.0 message in either direction. Which fields are
// set tells requests, notifications and responses apart.
type message struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

func (m *message) hasID() bool {
	return len(m.ID) > 0 && string(m.ID) != "null"
}

// Transport speaks JSON-RPC 2.0 with Content-Length framing over a pair of
// streams, usually the stdio of the server process.
//
// Server requests are answered concurrently, each on its own goroutine.
// Notifications are handed to their handlers one at a time in arrival
// order.
type Transport struct {
	r      *bufio.Reader
	w      io.Writer
	closer io.Closer
	log    *logging.Logger
	wmu    sync.Mutex

	lastID  atomic.Int64
	mu      sync.Mutex
	waiting map[int64]chan *message
	notify  map[string]NotificationHandler
	answer  map[string]RequestHandler

	inbox  chan *message
	cancel context.CancelFunc
	closed atomic.Bool
	done   chan struct{}
}

// NewTransport creates a transport reading from r and writing to w. c, if
// not nil, is closed with the transport.
func NewTransport(r io.Reader, w io.Writer, c io.Closer, log *logging.Logger) *Transport {
	if log == nil {
		log = logging.Nop()
	}
	return &Transport{
		r:       bufio.NewReaderSize(r, 64<<10),
		w:       w,
		closer:  c,
		log:     log,
		waiting: make(map[int64]chan *message),
		notify:  make(map[string]NotificationHandler),
		answer:  make(map[string]RequestHandler),
		inbox:   make(chan *message, 256),
		done:    make(chan struct{}),
	}
}

// Start begins reading. The transport closes itself when the input ends
// or ctx is cancelled.
func (t *Transport) Start(ctx context.Context) {
	ctx, t.cancel = context.WithCancel(ctx)
	go t.read(ctx)
	go t.deliver(ctx)
}

// Done is closed when the transport shuts down.
func (t *Transport) Done() <-chan struct{} {
	return t.done
}

// IsClosed reports whether Close has run.
func (t *Transport) IsClosed() bool {
	return t.closed.Load()
}

// Close stops the transport. Pending calls fail with ErrShutdown. Close is
// idempotent.
func (t *Transport) Close() error {
	if t.closed.Swap(true) {
		return nil
	}
	close(t.done)
	if t.cancel != nil {
		t.cancel()
	}
	if t.closer != nil {
		return t.closer.Close()
	}
	return nil
}

// OnNotification registers handler for method. The method "*" receives
// notifications no other handler claims.
func (t *Transport) OnNotification(method string, handler NotificationHandler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.notify[method] = handler
}

// OnRequest registers handler for requests of method.
func (t *Transport) OnRequest(method string, handler RequestHandler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.answer[method] = handler
}

// Call sends a request and decodes the response result into result, which
// may be nil.
func (t *Transport) Call(ctx context.Context, method string, params, result any) error {
	if t.closed.Load() {
		return ErrShutdown
	}

	id := t.lastID.Add(1)
	reply := make(chan *message, 1)
	t.mu.Lock()
	t.waiting[id] = reply
	t.mu.Unlock()
	defer func() {
		t.mu.Lock()
		delete(t.waiting, id)
		t.mu.Unlock()
	}()

	msg := &message{Method: method, ID: strconv.AppendInt(nil, id, 10)}
	if err := t.send(msg, params); err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.done:
		return ErrShutdown
	case resp := <-reply:
		if resp.Error != nil {
			return resp.Error
		}
		if result == nil || len(resp.Result) == 0 {
			return nil
		}
		if err := json.Unmarshal(resp.Result, result); err != nil {
			return fmt.Errorf("%s: decode result: %w", method, err)
		}
		return nil
	}
}

// Notify sends a notification.
func (t *Transport) Notify(_ context.Context, method string, params any) error {
	if t.closed.Load() {
		return ErrShutdown
	}
	return t.send(&message{Method: method}, params)
}

// send encodes params into msg and writes it.
func (t *Transport) send(msg *message, params any) error {
	msg.JSONRPC = "2.0"
	if params != nil {
		raw, err := json.Marshal(params)
		if err != nil {
			return fmt.Errorf("encode params: %w", err)
		}
		msg.Params = raw
	}
	return t.write(msg)
}

func (t *Transport) write(msg *message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	t.log.Trace("send %s", body)

	t.wmu.Lock()
	defer t.wmu.Unlock()
	return writeFrame(t.w, body)
}

func (t *Transport) read(ctx context.Context) {
	defer t.Close()

	for ctx.Err() == nil {
		body, err := readFrame(t.r)
		switch {
		case err == nil:
		case t.closed.Load() || endOfStream(err):
			return
		default:
			t.log.Warn("dropping malformed frame: %v", err)
			continue
		}
		t.log.Trace("recv %s", body)

		var msg message
		if err := json.Unmarshal(body, &msg); err != nil {
			t.log.Warn("dropping undecodable message: %v", err)
			continue
		}
		t.route(ctx, &msg)
	}
}

func (t *Transport) route(ctx context.Context, msg *message) {
	switch {
	case msg.Method != "" && msg.hasID():
		go t.serve(ctx, msg)
	case msg.Method != "":
		select {
		case t.inbox <- msg:
		case <-t.done:
		}
	case msg.hasID():
		id, err := strconv.ParseInt(string(msg.ID), 10, 64)
		if err != nil {
			return
		}
		t.mu.Lock()
		reply, ok := t.waiting[id]
		delete(t.waiting, id)
		t.mu.Unlock()
		if ok {
			reply <- msg
		}
	}
}

// serve answers one server request.
func (t *Transport) serve(ctx context.Context, req *message) {
	t.mu.Lock()
	handler, ok := t.answer[req.Method]
	t.mu.Unlock()

	var result any
	var err error
	if ok {
		result, err = handler(ctx, req.Params)
	} else {
		err = &RPCError{Code: CodeMethodNotFound, Message: "unhandled method " + req.Method}
	}

	reply := &message{JSONRPC: "2.0", ID: req.ID}
	if err == nil {
		reply.Result, err = json.Marshal(result)
	}
	if err != nil {
		var rpcErr *RPCError
		if !errors.As(err, &rpcErr) {
			rpcErr = &RPCError{Code: CodeInternalError, Message: err.Error()}
		}
		reply.Result, reply.Error = nil, rpcErr
	}
	if t.closed.Load() {
		return
	}
	if err := t.write(reply); err != nil {
		t.log.Warn("reply to %s: %v", req.Method, err)
	}
}

// deliver runs notification handlers in arrival order.
func (t *Transport) deliver(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.done:
			return
		case n := <-t.inbox:
			t.mu.Lock()
			handler, ok := t.notify[n.Method]
			if !ok {
				handler = t.notify["*"]
			}
			t.mu.Unlock()
			if handler != nil {
				handler(n.Method, n.Params)
			}
		}
	}
}
