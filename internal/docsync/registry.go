// Package docsync tracks which documents are mirrored to the lint server.
//
// A document is registered while its validation decision is not off. The
// registry sends textDocument/didOpen when a document becomes registered and
// textDocument/didClose when it stops being registered, and never sends
// either twice in a row for the same document.
package docsync

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/dshills/lintbridge/internal/logging"
	"github.com/dshills/lintbridge/internal/lsp"
	"github.com/dshills/lintbridge/internal/validate"
)

// Notifier sends a notification to the server. *lsp.Server satisfies it.
type Notifier interface {
	Notify(ctx context.Context, method string, params any) error
}

// Registry is the set of documents currently open on the server.
type Registry struct {
	notifier Notifier
	log      *logging.Logger

	// wire is held across a registration change and its send so the
	// server sees opens and closes in the order the map changed.
	wire sync.Mutex

	mu   sync.Mutex
	docs map[lsp.DocumentURI]lsp.TextDocument
}

// NewRegistry creates an empty registry that sends through n.
func NewRegistry(n Notifier, log *logging.Logger) *Registry {
	if log == nil {
		log = logging.Nop()
	}
	return &Registry{
		notifier: n,
		log:      log.WithComponent("docsync"),
		docs:     make(map[lsp.DocumentURI]lsp.TextDocument),
	}
}

// OnDecisionChange registers doc when decision is not off and unregisters
// it otherwise. It is a no-op when the registration does not change.
func (r *Registry) OnDecisionChange(ctx context.Context, doc lsp.TextDocument, decision validate.Decision) {
	r.wire.Lock()
	defer r.wire.Unlock()

	if decision == validate.Off {
		r.close(ctx, doc.URI)
		return
	}

	r.mu.Lock()
	_, ok := r.docs[doc.URI]
	r.docs[doc.URI] = doc
	r.mu.Unlock()
	if ok {
		return
	}

	r.send(ctx, lsp.MethodDidOpen, lsp.DidOpenTextDocumentParams{TextDocument: doc.Item()})
}

// Close unregisters uri and sends didClose if it was registered.
func (r *Registry) Close(ctx context.Context, uri lsp.DocumentURI) {
	r.wire.Lock()
	defer r.wire.Unlock()
	r.close(ctx, uri)
}

func (r *Registry) close(ctx context.Context, uri lsp.DocumentURI) {
	r.mu.Lock()
	_, ok := r.docs[uri]
	delete(r.docs, uri)
	r.mu.Unlock()
	if !ok {
		return
	}

	r.send(ctx, lsp.MethodDidClose, lsp.DidCloseTextDocumentParams{
		TextDocument: lsp.TextDocumentIdentifier{URI: uri},
	})
}

// Resync sends didOpen for every registered document. It is used after the
// server was restarted and has lost its document state.
func (r *Registry) Resync(ctx context.Context) {
	r.wire.Lock()
	defer r.wire.Unlock()
	for _, doc := range r.Docs() {
		r.send(ctx, lsp.MethodDidOpen, lsp.DidOpenTextDocumentParams{TextDocument: doc.Item()})
	}
}

// Has reports whether uri is registered.
func (r *Registry) Has(uri lsp.DocumentURI) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.docs[uri]
	return ok
}

// Docs returns the registered documents ordered by URI.
func (r *Registry) Docs() []lsp.TextDocument {
	r.mu.Lock()
	docs := make([]lsp.TextDocument, 0, len(r.docs))
	for _, doc := range r.docs {
		docs = append(docs, doc)
	}
	r.mu.Unlock()

	slices.SortFunc(docs, func(a, b lsp.TextDocument) int {
		return cmp.Compare(a.URI, b.URI)
	})
	return docs
}

// Len returns the number of registered documents.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.docs)
}

func (r *Registry) send(ctx context.Context, method string, params any) {
	if err := r.notifier.Notify(ctx, method, params); err != nil {
		r.log.Warn("%s failed: %v", method, err)
	}
}
