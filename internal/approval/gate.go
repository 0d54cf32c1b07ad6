// Package approval mediates between tool execution and the user: risky tool
// calls park on the gate until the front end delivers a verdict.
package approval

import (
	"context"
	"errors"
	"sync"
)

var ErrNotPending = errors.New("no pending approval for id")

// Gate tracks pending approval requests keyed by tool call id. Each id gets
// a one-shot channel; responding or abandoning consumes it.
type Gate struct {
	mu      sync.Mutex
	pending map[string]chan bool
}

func NewGate() *Gate {
	return &Gate{pending: map[string]chan bool{}}
}

// Register creates a pending slot for the id and returns the channel the
// verdict arrives on. The caller passes that channel to Wait; holding it
// directly means a verdict stays deliverable even when Respond lands before
// the waiter parks. Registering an id twice replaces the earlier slot, which
// then never resolves; callers use unique tool call ids.
func (g *Gate) Register(id string) <-chan bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch := make(chan bool, 1)
	g.pending[id] = ch
	return ch
}

// Respond delivers the user's verdict. An unknown id returns ErrNotPending:
// the turn may already have been cancelled.
func (g *Gate) Respond(id string, approved bool) error {
	g.mu.Lock()
	ch, ok := g.pending[id]
	if ok {
		delete(g.pending, id)
	}
	g.mu.Unlock()
	if !ok {
		return ErrNotPending
	}
	ch <- approved
	return nil
}

// Wait blocks on the channel Register returned until the id is responded to,
// abandoned, or the context ends. Abandonment and context cancellation both
// read as denial.
func (g *Gate) Wait(ctx context.Context, id string, ch <-chan bool) (bool, error) {
	select {
	case approved, open := <-ch:
		g.mu.Lock()
		delete(g.pending, id)
		g.mu.Unlock()
		if !open {
			return false, nil
		}
		return approved, nil
	case <-ctx.Done():
		g.mu.Lock()
		delete(g.pending, id)
		g.mu.Unlock()
		return false, ctx.Err()
	}
}

// Abandon denies the given pending ids, or every pending id when none are
// given. Used when a turn is cancelled with approvals still outstanding.
func (g *Gate) Abandon(ids ...string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(ids) == 0 {
		for id, ch := range g.pending {
			close(ch)
			delete(g.pending, id)
		}
		return
	}
	for _, id := range ids {
		if ch, ok := g.pending[id]; ok {
			close(ch)
			delete(g.pending, id)
		}
	}
}

// Pending lists the ids still waiting for a verdict.
func (g *Gate) Pending() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]string, 0, len(g.pending))
	for id := range g.pending {
		out = append(out, id)
	}
	return out
}
