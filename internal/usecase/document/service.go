// Package document implements single-document and bulk write operations.
package document

import (
	"context"
	"fmt"

	"github.com/textdex-cloud/textdex/internal/domain"
	"github.com/textdex-cloud/textdex/internal/index"
	"github.com/textdex-cloud/textdex/internal/metrics"
	"github.com/textdex-cloud/textdex/internal/usecase/stats"
)

// Action is a bulk operation kind.
type Action string

const (
	// ActionIndex adds or replaces a document.
	ActionIndex Action = "index"
	// ActionDelete removes a document.
	ActionDelete Action = "delete"
)

// Operation is one bulk action.
type Operation struct {
	Action Action
	ID     string
	Fields map[string]any
}

// OpResult is the per-item outcome of a bulk request.
type OpResult struct {
	Action Action
	ID     string
	OK     bool
	Error  string
}

// Service executes document writes and reads against the registry.
type Service struct {
	registry    *index.Registry
	tracker     *stats.Tracker
	maxBulkSize int
}

// New creates a document Service.
func New(registry *index.Registry, maxBulkSize int) *Service {
	return &Service{registry: registry, maxBulkSize: maxBulkSize}
}

// WithTracker attaches operation stats tracking.
func (s *Service) WithTracker(t *stats.Tracker) *Service {
	s.tracker = t
	return s
}

// Index adds or replaces a document. The write becomes searchable at the
// next refresh.
func (s *Service) Index(ctx context.Context, indexName, id string, fields map[string]any) error {
	if id == "" {
		return fmt.Errorf("%w: document id is required", domain.ErrInvalidSchema)
	}
	ix, err := s.registry.Get(indexName)
	if err != nil {
		return err
	}
	if err := ix.Route(id).Index(id, fields); err != nil {
		return fmt.Errorf("index document %q: %w", id, err)
	}
	s.tracker.RecordIndexed(1)
	metrics.DocsIndexedTotal.WithLabelValues(indexName).Inc()
	return nil
}

// Get retrieves a document's stored fields by id, including unrefreshed
// buffered writes.
func (s *Service) Get(ctx context.Context, indexName, id string) (map[string]any, error) {
	ix, err := s.registry.Get(indexName)
	if err != nil {
		return nil, err
	}
	doc, ok := ix.Route(id).Get(id)
	if !ok {
		return nil, domain.ErrDocumentNotFound
	}
	return doc, nil
}

// Delete removes a document by id.
func (s *Service) Delete(ctx context.Context, indexName, id string) error {
	ix, err := s.registry.Get(indexName)
	if err != nil {
		return err
	}
	if !ix.Route(id).Delete(id) {
		return domain.ErrDocumentNotFound
	}
	s.tracker.RecordDeleted(1)
	metrics.DocsDeletedTotal.WithLabelValues(indexName).Inc()
	return nil
}

// Bulk applies operations in order. Individual failures do not abort the
// batch; each item reports its own outcome.
func (s *Service) Bulk(ctx context.Context, indexName string, ops []Operation) ([]OpResult, error) {
	if len(ops) == 0 || len(ops) > s.maxBulkSize {
		return nil, fmt.Errorf(
			"%w: bulk actions count must be between 1 and %d",
			domain.ErrInvalidSchema, s.maxBulkSize,
		)
	}
	ix, err := s.registry.Get(indexName)
	if err != nil {
		return nil, err
	}

	results := make([]OpResult, len(ops))
	indexed, deleted := 0, 0
	for i, op := range ops {
		res := OpResult{Action: op.Action, ID: op.ID}
		switch {
		case op.ID == "":
			res.Error = "document id is required"
		case op.Action == ActionIndex:
			if err := ix.Route(op.ID).Index(op.ID, op.Fields); err != nil {
				res.Error = err.Error()
			} else {
				res.OK = true
				indexed++
			}
		case op.Action == ActionDelete:
			if ix.Route(op.ID).Delete(op.ID) {
				res.OK = true
				deleted++
			} else {
				res.Error = domain.ErrDocumentNotFound.Error()
			}
		default:
			res.Error = fmt.Sprintf("unknown action %q", op.Action)
		}
		results[i] = res
	}

	if indexed > 0 {
		s.tracker.RecordIndexed(indexed)
		metrics.DocsIndexedTotal.WithLabelValues(indexName).Add(float64(indexed))
	}
	if deleted > 0 {
		s.tracker.RecordDeleted(deleted)
		metrics.DocsDeletedTotal.WithLabelValues(indexName).Add(float64(deleted))
	}
	return results, nil
}
