package stats

import (
	"context"
	"time"

	"github.com/textdex-cloud/textdex/internal/index"
)

// SearchStats reports search activity since node start.
type SearchStats struct {
	Total      int64
	TimeMillis int64
	TimedOut   int64
	Rejected   int64
}

// IndexingStats reports write activity since node start.
type IndexingStats struct {
	Indexed   int64
	Deleted   int64
	Refreshes int64
}

// NodeReport is the aggregate node stats snapshot.
type NodeReport struct {
	UptimeSeconds int64
	Indices       int
	Docs          int
	DeletedDocs   int
	Segments      int
	Search        SearchStats
	Indexing      IndexingStats
}

// IndexReport is the stats snapshot of a single index.
type IndexReport struct {
	Name   string
	Shards int
	Stats  index.Stats
}

// Service reads node and per-index statistics.
type Service struct {
	registry *index.Registry
	tracker  *Tracker
	started  time.Time
}

// New creates a stats Service.
func New(registry *index.Registry, tracker *Tracker) *Service {
	return &Service{registry: registry, tracker: tracker, started: time.Now()}
}

// Node aggregates stats across all indices plus the node counters.
func (s *Service) Node(ctx context.Context) NodeReport {
	report := NodeReport{
		UptimeSeconds: int64(time.Since(s.started).Seconds()),
	}
	for _, name := range s.registry.List() {
		ix, err := s.registry.Get(name)
		if err != nil {
			continue
		}
		st := ix.Stats()
		report.Indices++
		report.Docs += st.Docs
		report.DeletedDocs += st.Deleted
		report.Segments += st.Segments
	}
	if t := s.tracker; t != nil {
		report.Search = SearchStats{
			Total:      t.searches.Load(),
			TimeMillis: t.searchTimeNs.Load() / int64(time.Millisecond),
			TimedOut:   t.searchTimedOut.Load(),
			Rejected:   t.searchRejected.Load(),
		}
		report.Indexing = IndexingStats{
			Indexed:   t.indexed.Load(),
			Deleted:   t.deleted.Load(),
			Refreshes: t.refreshes.Load(),
		}
	}
	return report
}

// Index reports stats for a single index.
func (s *Service) Index(ctx context.Context, name string) (IndexReport, error) {
	ix, err := s.registry.Get(name)
	if err != nil {
		return IndexReport{}, err
	}
	return IndexReport{
		Name:   ix.Name(),
		Shards: len(ix.Shards()),
		Stats:  ix.Stats(),
	}, nil
}
