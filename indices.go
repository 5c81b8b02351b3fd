package textdex

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/textdex-cloud/textdex/internal/domain"
	"github.com/textdex-cloud/textdex/internal/index"
	indicesuc "github.com/textdex-cloud/textdex/internal/usecase/indices"
)

// IndexOption configures index creation.
type IndexOption func(*indexConfig)

type indexConfig struct {
	fields    []FieldInfo
	shards    int
	sortField string
	sortDesc  bool
}

// TextField adds an analyzed full-text field.
func TextField(name string) IndexOption {
	return func(c *indexConfig) {
		c.fields = append(c.fields, FieldInfo{Name: name, Type: FieldText})
	}
}

// AnalyzedField adds a full-text field with a named analyzer.
func AnalyzedField(name, analyzer string) IndexOption {
	return func(c *indexConfig) {
		c.fields = append(c.fields, FieldInfo{Name: name, Type: FieldText, Analyzer: analyzer})
	}
}

// KeywordField adds an exact-match string field.
func KeywordField(name string) IndexOption {
	return func(c *indexConfig) {
		c.fields = append(c.fields, FieldInfo{Name: name, Type: FieldKeyword})
	}
}

// NumericField adds a numeric field.
func NumericField(name string) IndexOption {
	return func(c *indexConfig) {
		c.fields = append(c.fields, FieldInfo{Name: name, Type: FieldNumeric})
	}
}

// Shards sets the shard count for the index.
func Shards(n int) IndexOption {
	return func(c *indexConfig) {
		c.shards = n
	}
}

// SortedBy pre-sorts segments by a numeric field, enabling early
// termination for searches sorted the same way.
func SortedBy(field string, desc bool) IndexOption {
	return func(c *indexConfig) {
		c.sortField = field
		c.sortDesc = desc
	}
}

// IndicesService manages index lifecycle.
type IndicesService struct {
	svc    *indicesuc.Service
	logger *zap.Logger
}

// Create creates a new index. Fails with ErrIndexExists if the name is taken.
func (s *IndicesService) Create(ctx context.Context, name string, opts ...IndexOption) error {
	var cfg indexConfig
	for _, o := range opts {
		o(&cfg)
	}

	fields := make([]index.Field, len(cfg.fields))
	for i, f := range cfg.fields {
		fields[i] = index.Field{Name: f.Name, Type: index.FieldType(f.Type), Analyzer: f.Analyzer}
	}
	p := indicesuc.CreateParams{Name: name, Fields: fields, Shards: cfg.shards}
	if cfg.sortField != "" {
		p.SortArgs = &indicesuc.SortArgs{Field: cfg.sortField, Desc: cfg.sortDesc}
	}

	if _, err := s.svc.Create(ctx, p); err != nil {
		return fmt.Errorf("create index %q: %w", name, err)
	}
	s.logger.Debug("index created", zap.String("index", name), zap.Int("fields", len(fields)))
	return nil
}

// Ensure creates the index if it does not exist (idempotent).
func (s *IndicesService) Ensure(ctx context.Context, name string, opts ...IndexOption) error {
	err := s.Create(ctx, name, opts...)
	if errors.Is(err, domain.ErrIndexExists) {
		return nil
	}
	return err
}

// Delete removes an index and all its documents.
func (s *IndicesService) Delete(ctx context.Context, name string) error {
	if err := s.svc.Delete(ctx, name); err != nil {
		return fmt.Errorf("delete index %q: %w", name, err)
	}
	s.logger.Debug("index deleted", zap.String("index", name))
	return nil
}

// List returns the names of all indices.
func (s *IndicesService) List(ctx context.Context) []string {
	infos := s.svc.List(ctx)
	names := make([]string, len(infos))
	for i, info := range infos {
		names[i] = info.Name
	}
	return names
}

// Refresh makes buffered writes visible to search.
func (s *IndicesService) Refresh(ctx context.Context, name string) error {
	if _, err := s.svc.Refresh(ctx, name); err != nil {
		return fmt.Errorf("refresh index %q: %w", name, err)
	}
	return nil
}
