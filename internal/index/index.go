package index

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/textdex-cloud/textdex/internal/analysis"
	"github.com/textdex-cloud/textdex/internal/domain"
)

// Settings are the per-index settings fixed at creation time.
type Settings struct {
	Shards    int    `json:"shards"`
	SortField string `json:"sort_field,omitempty"`
	SortDesc  bool   `json:"sort_desc,omitempty"`
}

// Index is a named, sharded collection of documents with a fixed schema.
type Index struct {
	name      string
	schema    Schema
	settings  Settings
	shards    []*Shard
	createdAt time.Time
}

// New validates the schema and settings and creates an empty index.
func New(name string, schema Schema, settings Settings, analyzers *analysis.Registry, maxShards int) (*Index, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: empty index name", domain.ErrInvalidSchema)
	}
	if err := schema.Validate(analyzers); err != nil {
		return nil, err
	}
	if settings.Shards < 1 || settings.Shards > maxShards {
		return nil, fmt.Errorf("%w: shards must be between 1 and %d", domain.ErrInvalidSchema, maxShards)
	}
	if settings.SortField != "" {
		f, ok := schema.Field(settings.SortField)
		if !ok {
			return nil, fmt.Errorf("%w: sort field %q not in schema", domain.ErrInvalidSchema, settings.SortField)
		}
		if f.Type != FieldTypeNumeric {
			return nil, fmt.Errorf("%w: sort field %q must be numeric", domain.ErrInvalidSchema, settings.SortField)
		}
	}

	shards := make([]*Shard, settings.Shards)
	for i := range shards {
		shards[i] = NewShard(i, schema, settings, NewBuffer(schema, analyzers))
	}
	return &Index{
		name:      name,
		schema:    schema,
		settings:  settings,
		shards:    shards,
		createdAt: time.Now().UTC(),
	}, nil
}

// Name returns the index name.
func (ix *Index) Name() string { return ix.name }

// Schema returns the index schema.
func (ix *Index) Schema() Schema { return ix.schema }

// Settings returns the index settings.
func (ix *Index) Settings() Settings { return ix.settings }

// CreatedAt returns the creation time of the index.
func (ix *Index) CreatedAt() time.Time { return ix.createdAt }

// Shards returns all shards of the index.
func (ix *Index) Shards() []*Shard { return ix.shards }

// Route returns the shard that owns a document ID.
func (ix *Index) Route(id string) *Shard {
	return ix.shards[xxhash.Sum64String(id)%uint64(len(ix.shards))]
}

// Refresh publishes buffered writes on every shard.
func (ix *Index) Refresh() {
	for _, sh := range ix.shards {
		sh.Refresh()
	}
}

// Stats summarizes the index across its shards.
type Stats struct {
	Docs     int          `json:"docs"`
	Deleted  int          `json:"deleted"`
	Segments int          `json:"segments"`
	Shards   []ShardStats `json:"shards"`
}

// Stats returns current statistics from each shard's published snapshot.
func (ix *Index) Stats() Stats {
	st := Stats{Shards: make([]ShardStats, len(ix.shards))}
	for i, sh := range ix.shards {
		s := sh.Stats()
		st.Shards[i] = s
		st.Docs += s.Docs
		st.Deleted += s.Deleted
		st.Segments += s.Segments
	}
	return st
}

// Registry holds the live indices by name.
type Registry struct {
	mu      sync.RWMutex
	indices map[string]*Index
}

// NewRegistry creates an empty index registry.
func NewRegistry() *Registry {
	return &Registry{indices: make(map[string]*Index)}
}

// Create adds a new index. Returns domain.ErrIndexExists when the name is
// taken.
func (r *Registry) Create(ix *Index) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.indices[ix.Name()]; ok {
		return fmt.Errorf("%w: %q", domain.ErrIndexExists, ix.Name())
	}
	r.indices[ix.Name()] = ix
	return nil
}

// Get returns an index by name. Returns domain.ErrIndexNotFound when
// missing.
func (r *Registry) Get(name string) (*Index, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ix, ok := r.indices[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrIndexNotFound, name)
	}
	return ix, nil
}

// Delete removes an index by name.
func (r *Registry) Delete(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.indices[name]; !ok {
		return fmt.Errorf("%w: %q", domain.ErrIndexNotFound, name)
	}
	delete(r.indices, name)
	return nil
}

// List returns the index names in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.indices))
	for name := range r.indices {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
