package bridge

import (
	"sync"
	"time"

	"github.com/dsarno/mcp-unity/internal/protocol"
)

// result is the single resolution of a pending request.
type result struct {
	resp *protocol.Response
	err  error
}

// pendingRequest tracks an outgoing request awaiting its reply.
type pendingRequest struct {
	id       string
	method   string
	params   any
	created  time.Time
	deadline time.Time

	once sync.Once
	done chan result
}

func newPendingRequest(id, method string, params any, now time.Time, timeout time.Duration) *pendingRequest {
	return &pendingRequest{
		id:       id,
		method:   method,
		params:   params,
		created:  now,
		deadline: now.Add(timeout),
		done:     make(chan result, 1),
	}
}

// resolve delivers r to the waiting caller. Only the first call has any effect.
func (p *pendingRequest) resolve(r result) bool {
	resolved := false

	p.once.Do(func() {
		p.done <- r
		resolved = true
	})

	return resolved
}

// correlationTable maps request ids to pending requests.
//
// Every entry is inserted once and removed once; whoever removes an entry
// owns its resolution.
type correlationTable struct {
	mu      sync.Mutex
	entries map[string]*pendingRequest
}

func newCorrelationTable() *correlationTable {
	return &correlationTable{
		entries: make(map[string]*pendingRequest, 16),
	}
}

// insert adds p. It reports false if the id is already live.
func (t *correlationTable) insert(p *pendingRequest) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.entries[p.id]; exists {
		return false
	}

	t.entries[p.id] = p

	return true
}

// claim removes and returns the entry for id, or nil if there is none.
func (t *correlationTable) claim(id string) *pendingRequest {
	t.mu.Lock()
	defer t.mu.Unlock()

	p, exists := t.entries[id]
	if !exists {
		return nil
	}

	delete(t.entries, id)

	return p
}

// pending reports whether id is still awaiting resolution.
func (t *correlationTable) pending(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	_, exists := t.entries[id]

	return exists
}

// expire removes and returns every entry whose deadline is before now.
func (t *correlationTable) expire(now time.Time) []*pendingRequest {
	t.mu.Lock()
	defer t.mu.Unlock()

	var expired []*pendingRequest

	for id, p := range t.entries {
		if now.After(p.deadline) {
			delete(t.entries, id)

			expired = append(expired, p)
		}
	}

	return expired
}

// drain removes and returns every entry.
func (t *correlationTable) drain() []*pendingRequest {
	t.mu.Lock()
	defer t.mu.Unlock()

	drained := make([]*pendingRequest, 0, len(t.entries))
	for _, p := range t.entries {
		drained = append(drained, p)
	}

	clear(t.entries)

	return drained
}

func (t *correlationTable) len() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.entries)
}
