package stream

import "sync"

// Registry maps live stream ids to their one-shot cancel channels.
type Registry struct {
	mu     sync.Mutex
	nextID uint64
	active map[uint64]chan struct{}
}

func NewRegistry() *Registry {
	return &Registry{active: map[uint64]chan struct{}{}}
}

// Add allocates a stream id and its cancel channel. The caller passes the
// channel to Controller.Run and must call Remove when the run returns.
func (r *Registry) Add() (uint64, <-chan struct{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	id := r.nextID
	ch := make(chan struct{})
	r.active[id] = ch
	return id, ch
}

// Cancel fires the stream's cancel channel. Unknown ids report false; the
// stream may already have finished.
func (r *Registry) Cancel(id uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch, ok := r.active[id]
	if !ok {
		return false
	}
	close(ch)
	delete(r.active, id)
	return true
}

// Remove drops a finished stream without cancelling it.
func (r *Registry) Remove(id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.active[id]; ok {
		delete(r.active, id)
	}
}

// CancelAll fires every live stream's cancel channel.
func (r *Registry) CancelAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, ch := range r.active {
		close(ch)
		delete(r.active, id)
	}
}

// Active reports the number of live streams.
func (r *Registry) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.active)
}
