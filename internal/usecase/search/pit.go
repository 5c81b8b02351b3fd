package search

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/textdex-cloud/textdex/internal/domain"
	"github.com/textdex-cloud/textdex/internal/index"
)

// pitContext pins one snapshot per shard of an index. Holding the snapshots
// keeps their segments reachable even across refreshes and index deletion.
type pitContext struct {
	indexName string
	schema    index.Schema
	snaps     []*index.Snapshot
	keepAlive time.Duration
	expires   time.Time
}

// PITStore tracks open point-in-time contexts. Expired contexts are pruned
// lazily on every access and by the periodic Sweep.
type PITStore struct {
	mu           sync.Mutex
	maxKeepAlive time.Duration
	contexts     map[string]*pitContext
	now          func() time.Time
}

// NewPITStore creates a store with the given keep-alive ceiling.
func NewPITStore(maxKeepAlive time.Duration) *PITStore {
	return &PITStore{
		maxKeepAlive: maxKeepAlive,
		contexts:     make(map[string]*pitContext),
		now:          time.Now,
	}
}

// Open pins the current snapshots of the index and returns the context id.
// A zero or too-large keepAlive is clamped to the store ceiling.
func (p *PITStore) Open(ix *index.Index, keepAlive time.Duration) string {
	if keepAlive <= 0 || keepAlive > p.maxKeepAlive {
		keepAlive = p.maxKeepAlive
	}

	shards := ix.Shards()
	snaps := make([]*index.Snapshot, len(shards))
	for i, sh := range shards {
		snaps[i] = sh.Snapshot()
	}

	id := uuid.NewString()
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prune()
	p.contexts[id] = &pitContext{
		indexName: ix.Name(),
		schema:    ix.Schema(),
		snaps:     snaps,
		keepAlive: keepAlive,
		expires:   p.now().Add(keepAlive),
	}
	return id
}

// Get resolves a context id and renews its keep-alive.
func (p *PITStore) Get(id string) (*pitContext, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prune()

	c, ok := p.contexts[id]
	if !ok {
		return nil, domain.ErrSearchContextMissing
	}
	c.expires = p.now().Add(c.keepAlive)
	return c, nil
}

// Close drops a context. Returns false if it was not open.
func (p *PITStore) Close(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.contexts[id]
	delete(p.contexts, id)
	return ok
}

// Len returns the number of open contexts.
func (p *PITStore) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prune()
	return len(p.contexts)
}

// Sweep prunes expired contexts every interval until stop is closed.
func (p *PITStore) Sweep(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			p.mu.Lock()
			p.prune()
			p.mu.Unlock()
		}
	}
}

// prune removes expired contexts. Caller holds the lock.
func (p *PITStore) prune() {
	now := p.now()
	for id, c := range p.contexts {
		if now.After(c.expires) {
			delete(p.contexts, id)
		}
	}
}
