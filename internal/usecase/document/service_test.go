package document

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/textdex-cloud/textdex/internal/analysis"
	"github.com/textdex-cloud/textdex/internal/domain"
	"github.com/textdex-cloud/textdex/internal/index"
)

func newTestService(t *testing.T) (*Service, *index.Index) {
	t.Helper()
	schema := index.Schema{Fields: []index.Field{
		{Name: "title", Type: index.FieldTypeText},
		{Name: "rank", Type: index.FieldTypeNumeric},
	}}
	ix, err := index.New("books", schema, index.Settings{Shards: 2}, analysis.NewRegistry(), 8)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	registry := index.NewRegistry()
	if err := registry.Create(ix); err != nil {
		t.Fatalf("Create: %v", err)
	}
	return New(registry, 4), ix
}

func TestIndexGetDelete(t *testing.T) {
	svc, ix := newTestService(t)
	ctx := context.Background()

	if err := svc.Index(ctx, "books", "doc-1", map[string]any{"title": "the fox", "rank": 1}); err != nil {
		t.Fatalf("Index: %v", err)
	}
	ix.Refresh()

	doc, err := svc.Get(ctx, "books", "doc-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if doc["title"] != "the fox" {
		t.Fatalf("doc = %v", doc)
	}

	if err := svc.Delete(ctx, "books", "doc-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := svc.Get(ctx, "books", "doc-1"); !errors.Is(err, domain.ErrDocumentNotFound) {
		t.Fatalf("Get after delete err = %v, want ErrDocumentNotFound", err)
	}
	if err := svc.Delete(ctx, "books", "doc-1"); !errors.Is(err, domain.ErrDocumentNotFound) {
		t.Fatalf("second delete err = %v, want ErrDocumentNotFound", err)
	}
}

func TestIndexValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if err := svc.Index(ctx, "books", "", map[string]any{"title": "x"}); !errors.Is(err, domain.ErrInvalidSchema) {
		t.Fatalf("empty id err = %v, want ErrInvalidSchema", err)
	}
	if err := svc.Index(ctx, "missing", "doc-1", nil); !errors.Is(err, domain.ErrIndexNotFound) {
		t.Fatalf("unknown index err = %v, want ErrIndexNotFound", err)
	}
	err := svc.Index(ctx, "books", "doc-1", map[string]any{"nope": "x"})
	if !errors.Is(err, domain.ErrInvalidSchema) {
		t.Fatalf("unknown field err = %v, want ErrInvalidSchema", err)
	}
}

func TestBulkMixedOutcomes(t *testing.T) {
	svc, ix := newTestService(t)
	ctx := context.Background()

	if err := svc.Index(ctx, "books", "old", map[string]any{"title": "old doc"}); err != nil {
		t.Fatalf("Index: %v", err)
	}
	ix.Refresh()

	results, err := svc.Bulk(ctx, "books", []Operation{
		{Action: ActionIndex, ID: "a", Fields: map[string]any{"title": "first"}},
		{Action: ActionIndex, ID: "b", Fields: map[string]any{"bad": true}},
		{Action: ActionDelete, ID: "old"},
		{Action: ActionDelete, ID: "ghost"},
	})
	if err != nil {
		t.Fatalf("Bulk: %v", err)
	}
	wantOK := []bool{true, false, true, false}
	for i, res := range results {
		if res.OK != wantOK[i] {
			t.Fatalf("item %d = %+v, want OK=%v", i, res, wantOK[i])
		}
	}
	if results[1].Error == "" || results[3].Error == "" {
		t.Fatalf("failed items missing error messages: %+v", results)
	}
}

func TestBulkSizeLimit(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Bulk(ctx, "books", nil); err == nil {
		t.Fatal("empty bulk: expected error")
	}

	ops := make([]Operation, 5)
	for i := range ops {
		ops[i] = Operation{Action: ActionIndex, ID: fmt.Sprintf("doc-%d", i)}
	}
	if _, err := svc.Bulk(ctx, "books", ops); err == nil {
		t.Fatal("oversized bulk: expected error")
	}
}
