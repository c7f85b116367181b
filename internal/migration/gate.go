package migration

import (
	"container/list"
	"context"
	"sync"
)

// Gate admits one holder at a time. Waiters are admitted in arrival order.
type Gate struct {
	mu      sync.Mutex
	held    bool
	waiters *list.List // of chan struct{}
}

// NewGate creates an open gate.
func NewGate() *Gate {
	return &Gate{waiters: list.New()}
}

// Acquire blocks until the caller holds the gate or ctx is done. The
// returned release func must be called exactly once; extra calls are
// ignored.
func (g *Gate) Acquire(ctx context.Context) (release func(), err error) {
	g.mu.Lock()
	if !g.held && g.waiters.Len() == 0 {
		g.held = true
		g.mu.Unlock()
		return g.releaser(), nil
	}

	ready := make(chan struct{})
	elem := g.waiters.PushBack(ready)
	g.mu.Unlock()

	select {
	case <-ready:
		return g.releaser(), nil
	case <-ctx.Done():
		g.mu.Lock()
		select {
		case <-ready:
			// Handed over while giving up; pass it on.
			g.mu.Unlock()
			g.releaser()()
		default:
			g.waiters.Remove(elem)
			g.mu.Unlock()
		}
		return nil, ctx.Err()
	}
}

func (g *Gate) releaser() func() {
	var once sync.Once
	return func() {
		once.Do(g.release)
	}
}

// release hands the gate to the oldest waiter or opens it.
func (g *Gate) release() {
	g.mu.Lock()
	defer g.mu.Unlock()

	front := g.waiters.Front()
	if front == nil {
		g.held = false
		return
	}
	g.waiters.Remove(front)
	close(front.Value.(chan struct{}))
}

// Waiting returns the number of callers queued behind the holder.
func (g *Gate) Waiting() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.waiters.Len()
}

// Held reports whether somebody holds the gate.
func (g *Gate) Held() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.held
}
