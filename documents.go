package textdex

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	documentuc "github.com/textdex-cloud/textdex/internal/usecase/document"
)

// DocumentService reads and writes documents of a single index. Writes
// become searchable after the next refresh.
type DocumentService struct {
	index  string
	svc    *documentuc.Service
	logger *zap.Logger
}

// Index stores a document under the given ID, replacing any previous
// version.
func (s *DocumentService) Index(ctx context.Context, id string, fields map[string]any) error {
	if err := s.svc.Index(ctx, s.index, id, fields); err != nil {
		return fmt.Errorf("index document %q: %w", id, err)
	}
	return nil
}

// Get retrieves the stored fields of a document by ID.
func (s *DocumentService) Get(ctx context.Context, id string) (map[string]any, error) {
	doc, err := s.svc.Get(ctx, s.index, id)
	if err != nil {
		return nil, fmt.Errorf("get document %q: %w", id, err)
	}
	return doc, nil
}

// Delete removes a document by ID.
func (s *DocumentService) Delete(ctx context.Context, id string) error {
	if err := s.svc.Delete(ctx, s.index, id); err != nil {
		return fmt.Errorf("delete document %q: %w", id, err)
	}
	return nil
}

// Bulk applies a batch of index and delete actions. A failing action does
// not abort the rest; inspect the per-item results.
func (s *DocumentService) Bulk(ctx context.Context, ops []BulkOp) ([]BulkResult, error) {
	internal := make([]documentuc.Operation, len(ops))
	for i, op := range ops {
		internal[i] = documentuc.Operation{
			Action: documentuc.Action(op.Action),
			ID:     op.ID,
			Fields: op.Fields,
		}
	}

	results, err := s.svc.Bulk(ctx, s.index, internal)
	if err != nil {
		return nil, fmt.Errorf("bulk: %w", err)
	}

	out := make([]BulkResult, len(results))
	failed := 0
	for i, r := range results {
		out[i] = BulkResult{Action: string(r.Action), ID: r.ID, OK: r.OK, Error: r.Error}
		if !r.OK {
			failed++
		}
	}
	if failed > 0 {
		s.logger.Debug("bulk completed with failures",
			zap.String("index", s.index),
			zap.Int("total", len(out)),
			zap.Int("failed", failed),
		)
	}
	return out, nil
}
