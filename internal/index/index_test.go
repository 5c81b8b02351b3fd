package index

import (
	"errors"
	"testing"

	"github.com/textdex-cloud/textdex/internal/analysis"
	"github.com/textdex-cloud/textdex/internal/domain"
)

func testSchema() Schema {
	return Schema{Fields: []Field{
		{Name: "title", Type: FieldTypeText},
		{Name: "tag", Type: FieldTypeKeyword},
		{Name: "rank", Type: FieldTypeNumeric},
	}}
}

func TestSchemaValidate(t *testing.T) {
	reg := analysis.NewRegistry()

	tests := []struct {
		name   string
		schema Schema
		ok     bool
	}{
		{"valid", testSchema(), true},
		{"empty", Schema{}, false},
		{"reserved name", Schema{Fields: []Field{{Name: "_id", Type: FieldTypeKeyword}}}, false},
		{"duplicate", Schema{Fields: []Field{
			{Name: "a", Type: FieldTypeKeyword},
			{Name: "a", Type: FieldTypeText},
		}}, false},
		{"unknown type", Schema{Fields: []Field{{Name: "a", Type: "geo_point"}}}, false},
		{"unknown analyzer", Schema{Fields: []Field{{Name: "a", Type: FieldTypeText, Analyzer: "nope"}}}, false},
		{"analyzer on keyword", Schema{Fields: []Field{{Name: "a", Type: FieldTypeKeyword, Analyzer: "standard"}}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.schema.Validate(reg)
			if tt.ok && err != nil {
				t.Fatalf("Validate() = %v, want nil", err)
			}
			if !tt.ok {
				if err == nil {
					t.Fatal("Validate() = nil, want error")
				}
				if !errors.Is(err, domain.ErrInvalidSchema) {
					t.Fatalf("Validate() = %v, want ErrInvalidSchema", err)
				}
			}
		})
	}
}

func TestBufferAddReplaceDelete(t *testing.T) {
	buf := NewBuffer(testSchema(), analysis.NewRegistry())

	if err := buf.Add("1", map[string]any{"title": "red fox"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := buf.Add("1", map[string]any{"title": "blue fox"}); err != nil {
		t.Fatalf("Add replace: %v", err)
	}
	if err := buf.Add("2", map[string]any{"title": "gray wolf"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if got := buf.Len(); got != 2 {
		t.Fatalf("Len() = %d, want 2", got)
	}

	buf.Delete("2")
	seg := buf.Flush("", false)
	if seg == nil {
		t.Fatal("Flush returned nil")
	}
	if seg.DocCount() != 1 {
		t.Fatalf("DocCount() = %d, want 1", seg.DocCount())
	}
	if seg.DocFreq("title", "blue") != 1 {
		t.Fatal("replaced document content missing")
	}
	if seg.DocFreq("title", "red") != 0 {
		t.Fatal("stale content from replaced document survived flush")
	}
}

func TestBufferRejectsUnknownFieldAndBadTypes(t *testing.T) {
	buf := NewBuffer(testSchema(), analysis.NewRegistry())

	if err := buf.Add("1", map[string]any{"body": "x"}); !errors.Is(err, domain.ErrInvalidSchema) {
		t.Fatalf("unknown field: err = %v, want ErrInvalidSchema", err)
	}
	if err := buf.Add("1", map[string]any{"rank": "high"}); !errors.Is(err, domain.ErrInvalidSchema) {
		t.Fatalf("string in numeric field: err = %v, want ErrInvalidSchema", err)
	}
	if err := buf.Add("", map[string]any{"title": "x"}); !errors.Is(err, domain.ErrInvalidSchema) {
		t.Fatalf("empty ID: err = %v, want ErrInvalidSchema", err)
	}
}

func TestFlushSortedSegment(t *testing.T) {
	buf := NewBuffer(testSchema(), analysis.NewRegistry())
	for _, d := range []struct {
		id   string
		rank float64
	}{{"a", 3}, {"b", 1}, {"c", 2}} {
		if err := buf.Add(d.id, map[string]any{"rank": d.rank}); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}

	seg := buf.Flush("rank", false)
	values, exists := seg.NumericValues("rank")
	for doc := 1; doc < seg.DocCount(); doc++ {
		if !exists[doc-1] || !exists[doc] {
			t.Fatal("missing rank value in sorted segment")
		}
		if values[doc-1] > values[doc] {
			t.Fatalf("segment not sorted ascending: %v", values)
		}
	}
	if field, desc, ok := seg.SortedBy(); !ok || field != "rank" || desc {
		t.Fatalf("SortedBy() = %q, %v, %v", field, desc, ok)
	}
}

func TestTermsWithPrefix(t *testing.T) {
	buf := NewBuffer(testSchema(), analysis.NewRegistry())
	for id, title := range map[string]string{
		"1": "search searching seated",
		"2": "other words",
	} {
		if err := buf.Add(id, map[string]any{"title": title}); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	seg := buf.Flush("", false)

	var got []string
	err := seg.TermsWithPrefix("title", "sea", func(term string) error {
		got = append(got, term)
		return nil
	})
	if err != nil {
		t.Fatalf("TermsWithPrefix: %v", err)
	}
	want := []string{"search", "searching", "seated"}
	if len(got) != len(want) {
		t.Fatalf("terms = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("terms = %v, want %v", got, want)
		}
	}
}

func TestShardRefreshVisibility(t *testing.T) {
	reg := analysis.NewRegistry()
	schema := testSchema()
	sh := NewShard(0, schema, Settings{Shards: 1}, NewBuffer(schema, reg))

	if err := sh.Index("1", map[string]any{"title": "hello world"}); err != nil {
		t.Fatalf("Index: %v", err)
	}
	if sh.Snapshot().DocCount() != 0 {
		t.Fatal("write visible before refresh")
	}

	sn := sh.Refresh()
	if sn.DocCount() != 1 {
		t.Fatalf("DocCount() = %d, want 1 after refresh", sn.DocCount())
	}
	if sn.Generation != 1 {
		t.Fatalf("Generation = %d, want 1", sn.Generation)
	}

	// Deletes tombstone published segments without mutating them.
	if !sh.Delete("1") {
		t.Fatal("Delete returned false for existing document")
	}
	if sh.Snapshot().DocCount() != 1 {
		t.Fatal("delete visible before refresh")
	}
	sh.Refresh()
	if got := sh.Snapshot().DocCount(); got != 0 {
		t.Fatalf("DocCount() = %d, want 0 after deleting refresh", got)
	}
	if sn.DocCount() != 1 {
		t.Fatal("old snapshot mutated by later refresh")
	}
}

func TestShardGetIsRealtime(t *testing.T) {
	reg := analysis.NewRegistry()
	schema := testSchema()
	sh := NewShard(0, schema, Settings{Shards: 1}, NewBuffer(schema, reg))

	// A buffered write is readable by ID before any refresh.
	if err := sh.Index("1", map[string]any{"tag": "fresh"}); err != nil {
		t.Fatalf("Index: %v", err)
	}
	fields, ok := sh.Get("1")
	if !ok {
		t.Fatal("Get: buffered document not found")
	}
	if fields["tag"] != "fresh" {
		t.Fatalf("tag = %v, want fresh", fields["tag"])
	}

	// A buffered replace of a published document wins over the snapshot.
	sh.Refresh()
	if err := sh.Index("1", map[string]any{"tag": "newer"}); err != nil {
		t.Fatalf("Index: %v", err)
	}
	if fields, _ = sh.Get("1"); fields["tag"] != "newer" {
		t.Fatalf("tag = %v, want newer", fields["tag"])
	}

	// A pending delete hides the published copy before refresh.
	sh.Refresh()
	if !sh.Delete("1") {
		t.Fatal("Delete returned false for existing document")
	}
	if _, ok = sh.Get("1"); ok {
		t.Fatal("Get returned a document with a pending delete")
	}
	sh.Refresh()
	if _, ok = sh.Get("1"); ok {
		t.Fatal("Get returned a deleted document after refresh")
	}
}

func TestShardReplaceAcrossRefresh(t *testing.T) {
	reg := analysis.NewRegistry()
	schema := testSchema()
	sh := NewShard(0, schema, Settings{Shards: 1}, NewBuffer(schema, reg))

	if err := sh.Index("1", map[string]any{"tag": "old"}); err != nil {
		t.Fatalf("Index: %v", err)
	}
	sh.Refresh()
	if err := sh.Index("1", map[string]any{"tag": "new"}); err != nil {
		t.Fatalf("Index: %v", err)
	}
	sh.Refresh()

	sn := sh.Snapshot()
	if got := sn.DocCount(); got != 1 {
		t.Fatalf("DocCount() = %d, want 1 after replace", got)
	}
	fields, ok := sh.Get("1")
	if !ok {
		t.Fatal("Get: document not found")
	}
	if fields["tag"] != "new" {
		t.Fatalf("tag = %v, want new", fields["tag"])
	}
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	ix, err := New("docs", testSchema(), Settings{Shards: 2}, analysis.NewRegistry(), 32)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := reg.Create(ix); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := reg.Create(ix); !errors.Is(err, domain.ErrIndexExists) {
		t.Fatalf("duplicate Create: err = %v, want ErrIndexExists", err)
	}
	if _, err := reg.Get("docs"); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if _, err := reg.Get("other"); !errors.Is(err, domain.ErrIndexNotFound) {
		t.Fatalf("Get missing: err = %v, want ErrIndexNotFound", err)
	}
	if err := reg.Delete("docs"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := reg.Delete("docs"); !errors.Is(err, domain.ErrIndexNotFound) {
		t.Fatalf("Delete missing: err = %v, want ErrIndexNotFound", err)
	}
}

func TestRouteIsStable(t *testing.T) {
	ix, err := New("docs", testSchema(), Settings{Shards: 4}, analysis.NewRegistry(), 32)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for _, id := range []string{"a", "b", "c", "doc-42"} {
		first := ix.Route(id)
		for i := 0; i < 3; i++ {
			if ix.Route(id) != first {
				t.Fatalf("Route(%q) not stable", id)
			}
		}
	}
}

func TestIndexRejectsBadSettings(t *testing.T) {
	reg := analysis.NewRegistry()

	if _, err := New("docs", testSchema(), Settings{Shards: 0}, reg, 32); !errors.Is(err, domain.ErrInvalidSchema) {
		t.Fatalf("zero shards: err = %v", err)
	}
	if _, err := New("docs", testSchema(), Settings{Shards: 64}, reg, 32); !errors.Is(err, domain.ErrInvalidSchema) {
		t.Fatalf("too many shards: err = %v", err)
	}
	if _, err := New("docs", testSchema(), Settings{Shards: 1, SortField: "title"}, reg, 32); !errors.Is(err, domain.ErrInvalidSchema) {
		t.Fatalf("text sort field: err = %v", err)
	}
	if _, err := New("docs", testSchema(), Settings{Shards: 1, SortField: "missing"}, reg, 32); !errors.Is(err, domain.ErrInvalidSchema) {
		t.Fatalf("unknown sort field: err = %v", err)
	}
}
