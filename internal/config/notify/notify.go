// Package notify fans configuration changes out to observers.
//
// Every mutation of the configuration store, whether from an API call or a
// file reload, produces one Change listing the setting paths it touched.
// Observers are called synchronously, in subscription order, on the
// goroutine that made the change.
package notify

import (
	"strings"
	"sync"
)

// ChangeType says how a layer changed.
type ChangeType int

const (
	ChangeSet ChangeType = iota
	ChangeDelete
	// ChangeReload means a layer was re-read from its file.
	ChangeReload
)

func (c ChangeType) String() string {
	switch c {
	case ChangeSet:
		return "set"
	case ChangeDelete:
		return "delete"
	case ChangeReload:
		return "reload"
	}
	return "unknown"
}

// Change describes one mutation of one layer.
type Change struct {
	Type  ChangeType
	Layer string

	// Paths lists the dotted settings that changed. A reload without paths
	// counts as a change to everything.
	Paths []string
}

// Affects reports whether the change touches section, one of its parents or
// anything below it.
func (c Change) Affects(section string) bool {
	if c.Type == ChangeReload && len(c.Paths) == 0 {
		return true
	}
	for _, p := range c.Paths {
		if within(p, section) || within(section, p) {
			return true
		}
	}
	return false
}

// within reports whether path equals prefix or lies below it.
func within(path, prefix string) bool {
	if prefix == "" || path == prefix {
		return true
	}
	return strings.HasPrefix(path, prefix) && path[len(prefix)] == '.'
}

// Observer receives changes.
type Observer func(change Change)

type observer struct {
	id      uint64
	section string
	fn      Observer
}

// Notifier holds the observers of one configuration store.
type Notifier struct {
	mu        sync.Mutex
	observers []observer
	nextID    uint64
	closed    bool
}

// New creates a notifier.
func New() *Notifier {
	return &Notifier{}
}

// Subscription is returned by Subscribe and SubscribeSection.
type Subscription struct {
	id uint64
	n  *Notifier
}

// Unsubscribe stops delivery to the observer. It may be called more than
// once.
func (s *Subscription) Unsubscribe() {
	if s == nil || s.n == nil {
		return
	}
	s.n.mu.Lock()
	defer s.n.mu.Unlock()
	for i, o := range s.n.observers {
		if o.id == s.id {
			s.n.observers = append(s.n.observers[:i], s.n.observers[i+1:]...)
			return
		}
	}
}

// Subscribe registers fn for every change.
func (n *Notifier) Subscribe(fn Observer) *Subscription {
	return n.SubscribeSection("", fn)
}

// SubscribeSection registers fn for changes that affect section, so a
// subscription to "eslint" sees changes to "eslint.enable".
func (n *Notifier) SubscribeSection(section string, fn Observer) *Subscription {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.nextID++
	n.observers = append(n.observers, observer{id: n.nextID, section: section, fn: fn})
	return &Subscription{id: n.nextID, n: n}
}

// Notify calls the matching observers. The notifier lock is not held while
// they run, so observers may subscribe or unsubscribe.
func (n *Notifier) Notify(change Change) {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return
	}
	var matched []Observer
	for _, o := range n.observers {
		if o.section == "" || change.Affects(o.section) {
			matched = append(matched, o.fn)
		}
	}
	n.mu.Unlock()

	for _, fn := range matched {
		fn(change)
	}
}

// Close drops every observer. Later changes are not delivered.
func (n *Notifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.closed = true
	n.observers = nil
}
