// Package indices implements index lifecycle management.
package indices

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/textdex-cloud/textdex/internal/analysis"
	"github.com/textdex-cloud/textdex/internal/domain"
	"github.com/textdex-cloud/textdex/internal/index"
	"github.com/textdex-cloud/textdex/internal/metrics"
	"github.com/textdex-cloud/textdex/internal/usecase/stats"
)

// MaxIndexNameLength bounds index names.
const MaxIndexNameLength = 128

var indexNameRe = regexp.MustCompile(`^[a-z0-9][a-z0-9_.-]*$`)

// CreateParams describes a new index.
type CreateParams struct {
	Name     string
	Fields   []index.Field
	Shards   int // 0 = node default
	SortArgs *SortArgs
}

// SortArgs configures the index sort applied at segment flush.
type SortArgs struct {
	Field string
	Desc  bool
}

// Info is a read-only index description.
type Info struct {
	Name      string
	Fields    []index.Field
	Settings  index.Settings
	CreatedAt time.Time
	Stats     index.Stats
}

// Service manages index lifecycle against the registry.
type Service struct {
	registry      *index.Registry
	analyzers     *analysis.Registry
	tracker       *stats.Tracker
	defaultShards int
	maxShards     int
}

// New creates an indices Service.
func New(registry *index.Registry, analyzers *analysis.Registry, defaultShards, maxShards int) *Service {
	return &Service{
		registry:      registry,
		analyzers:     analyzers,
		defaultShards: defaultShards,
		maxShards:     maxShards,
	}
}

// WithTracker attaches operation stats tracking.
func (s *Service) WithTracker(t *stats.Tracker) *Service {
	s.tracker = t
	return s
}

// Create validates the definition and registers a new index.
func (s *Service) Create(ctx context.Context, p CreateParams) (Info, error) {
	if err := validateName(p.Name); err != nil {
		return Info{}, err
	}

	schema := index.Schema{Fields: p.Fields}
	if err := schema.Validate(s.analyzers); err != nil {
		return Info{}, fmt.Errorf("create index %q: %w", p.Name, err)
	}

	shards := p.Shards
	if shards == 0 {
		shards = s.defaultShards
	}
	settings := index.Settings{Shards: shards}
	if p.SortArgs != nil {
		settings.SortField = p.SortArgs.Field
		settings.SortDesc = p.SortArgs.Desc
	}

	ix, err := index.New(p.Name, schema, settings, s.analyzers, s.maxShards)
	if err != nil {
		return Info{}, fmt.Errorf("create index %q: %w", p.Name, err)
	}
	if err := s.registry.Create(ix); err != nil {
		return Info{}, err
	}
	return info(ix), nil
}

// Get returns the index description and live stats.
func (s *Service) Get(ctx context.Context, name string) (Info, error) {
	ix, err := s.registry.Get(name)
	if err != nil {
		return Info{}, err
	}
	return info(ix), nil
}

// Delete removes an index. In-flight searches keep their snapshots.
func (s *Service) Delete(ctx context.Context, name string) error {
	return s.registry.Delete(name)
}

// List returns all indices sorted by name.
func (s *Service) List(ctx context.Context) []Info {
	names := s.registry.List()
	infos := make([]Info, 0, len(names))
	for _, name := range names {
		ix, err := s.registry.Get(name)
		if err != nil {
			continue
		}
		infos = append(infos, info(ix))
	}
	return infos
}

// Refresh publishes buffered writes of every shard as searchable segments.
func (s *Service) Refresh(ctx context.Context, name string) (index.Stats, error) {
	ix, err := s.registry.Get(name)
	if err != nil {
		return index.Stats{}, err
	}
	ix.Refresh()
	s.tracker.RecordRefresh()

	st := ix.Stats()
	metrics.RefreshesTotal.WithLabelValues(name).Inc()
	metrics.SegmentsGauge.WithLabelValues(name).Set(float64(st.Segments))
	return st, nil
}

func info(ix *index.Index) Info {
	return Info{
		Name:      ix.Name(),
		Fields:    ix.Schema().Fields,
		Settings:  ix.Settings(),
		CreatedAt: ix.CreatedAt(),
		Stats:     ix.Stats(),
	}
}

func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: index name is required", domain.ErrInvalidSchema)
	}
	if len(name) > MaxIndexNameLength {
		return fmt.Errorf("%w: index name exceeds %d characters", domain.ErrInvalidSchema, MaxIndexNameLength)
	}
	if !indexNameRe.MatchString(name) {
		return fmt.Errorf(
			"%w: index name %q must be lowercase alphanumeric with _ . - separators",
			domain.ErrInvalidSchema, name,
		)
	}
	return nil
}
