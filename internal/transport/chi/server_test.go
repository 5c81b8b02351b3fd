package chi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/textdex-cloud/textdex/internal/analysis"
	"github.com/textdex-cloud/textdex/internal/index"
	documentuc "github.com/textdex-cloud/textdex/internal/usecase/document"
	healthuc "github.com/textdex-cloud/textdex/internal/usecase/health"
	indicesuc "github.com/textdex-cloud/textdex/internal/usecase/indices"
	searchuc "github.com/textdex-cloud/textdex/internal/usecase/search"
	statsuc "github.com/textdex-cloud/textdex/internal/usecase/stats"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	registry := index.NewRegistry()
	analyzers := analysis.NewRegistry()
	tracker := statsuc.NewTracker()

	srv := NewServer(
		indicesuc.New(registry, analyzers, 1, 8).WithTracker(tracker),
		documentuc.New(registry, 100).WithTracker(tracker),
		searchuc.New(registry, analyzers, searchuc.NewPITStore(time.Minute), 8, 10_000).WithTracker(tracker),
		statsuc.New(registry, tracker),
		healthuc.New(nil),
		zap.NewNop(),
	)

	r := chi.NewRouter()
	srv.Routes(r)
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, http.NoBody)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func mustStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Fatalf("status = %d, want %d; body: %s", rr.Code, want, rr.Body.String())
	}
}

const booksIndex = `{
	"name": "books",
	"fields": [
		{"name": "title", "type": "text"},
		{"name": "tag", "type": "keyword"},
		{"name": "rank", "type": "numeric"}
	]
}`

func seedBooks(t *testing.T, h http.Handler, n int) {
	t.Helper()
	mustStatus(t, do(t, h, "POST", "/indices", booksIndex), http.StatusCreated)
	for i := 0; i < n; i++ {
		body := fmt.Sprintf(`{"title": "the quick brown fox", "tag": "tag-%d", "rank": %d}`, i%2, i)
		mustStatus(t, do(t, h, "PUT", fmt.Sprintf("/indices/books/documents/doc-%d", i), body), http.StatusOK)
	}
	mustStatus(t, do(t, h, "POST", "/indices/books/refresh", ""), http.StatusOK)
}

func TestIndexLifecycle(t *testing.T) {
	h := newTestRouter(t)

	mustStatus(t, do(t, h, "POST", "/indices", booksIndex), http.StatusCreated)
	mustStatus(t, do(t, h, "POST", "/indices", booksIndex), http.StatusConflict)

	rr := do(t, h, "GET", "/indices/books", "")
	mustStatus(t, rr, http.StatusOK)
	var info indexResponse
	if err := json.NewDecoder(rr.Body).Decode(&info); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if info.Name != "books" || len(info.Fields) != 3 || info.Shards != 1 {
		t.Fatalf("info = %+v", info)
	}
	if info.Stats.Shards != 1 {
		t.Fatalf("stats shards = %d, want 1", info.Stats.Shards)
	}

	mustStatus(t, do(t, h, "DELETE", "/indices/books", ""), http.StatusNoContent)
	mustStatus(t, do(t, h, "GET", "/indices/books", ""), http.StatusNotFound)
}

func TestDocumentLifecycle(t *testing.T) {
	h := newTestRouter(t)
	seedBooks(t, h, 1)

	rr := do(t, h, "GET", "/indices/books/documents/doc-0", "")
	mustStatus(t, rr, http.StatusOK)
	var doc docGetResponse
	if err := json.NewDecoder(rr.Body).Decode(&doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if doc.ID != "doc-0" || doc.Source["title"] != "the quick brown fox" {
		t.Fatalf("doc = %+v", doc)
	}

	mustStatus(t, do(t, h, "DELETE", "/indices/books/documents/doc-0", ""), http.StatusOK)
	mustStatus(t, do(t, h, "GET", "/indices/books/documents/doc-0", ""), http.StatusNotFound)
}

func TestBulkEndpoint(t *testing.T) {
	h := newTestRouter(t)
	seedBooks(t, h, 1)

	rr := do(t, h, "POST", "/indices/books/bulk", `{
		"actions": [
			{"action": "index", "id": "a", "fields": {"title": "one"}},
			{"action": "delete", "id": "ghost"}
		]
	}`)
	mustStatus(t, rr, http.StatusOK)

	var resp bulkResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Succeeded != 1 || resp.Failed != 1 {
		t.Fatalf("resp = %+v", resp)
	}
}

func TestSearchEndpoint(t *testing.T) {
	h := newTestRouter(t)
	seedBooks(t, h, 10)

	rr := do(t, h, "POST", "/indices/books/search", `{
		"query": {"term": {"field": "title", "value": "fox"}},
		"size": 3,
		"sort": [{"field": "rank", "order": "desc"}],
		"aggs": {"tags": {"terms": {"field": "tag"}}}
	}`)
	mustStatus(t, rr, http.StatusOK)

	var resp searchResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Hits.Total.Value != 10 || string(resp.Hits.Total.Relation) != "eq" {
		t.Fatalf("total = %+v", resp.Hits.Total)
	}
	if len(resp.Hits.Hits) != 3 || resp.Hits.Hits[0].ID != "doc-9" {
		t.Fatalf("hits = %+v", resp.Hits.Hits)
	}
	if len(resp.Aggregations) != 1 {
		t.Fatalf("aggregations = %+v", resp.Aggregations)
	}
}

func TestSearchEmptyBodyIsMatchAll(t *testing.T) {
	h := newTestRouter(t)
	seedBooks(t, h, 5)

	rr := do(t, h, "POST", "/indices/books/search", "")
	mustStatus(t, rr, http.StatusOK)

	var resp searchResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Hits.Total.Value != 5 {
		t.Fatalf("total = %+v", resp.Hits.Total)
	}
}

func TestTrackTotalHitsBoolOrInt(t *testing.T) {
	h := newTestRouter(t)
	seedBooks(t, h, 5)

	tests := []struct {
		name         string
		body         string
		wantValue    int64
		wantRelation string
	}{
		{"bool true", `{"track_total_hits": true}`, 5, "eq"},
		{"bool false", `{"track_total_hits": false}`, 0, "eq"},
		{"threshold", `{"track_total_hits": 100}`, 5, "eq"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, h, "POST", "/indices/books/search", tt.body)
			mustStatus(t, rr, http.StatusOK)
			var resp searchResponse
			if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Hits.Total.Value != tt.wantValue || string(resp.Hits.Total.Relation) != tt.wantRelation {
				t.Fatalf("total = %+v", resp.Hits.Total)
			}
		})
	}

	rr := do(t, h, "POST", "/indices/books/search", `{"track_total_hits": "nope"}`)
	mustStatus(t, rr, http.StatusBadRequest)
}

func TestCountEndpoint(t *testing.T) {
	h := newTestRouter(t)
	seedBooks(t, h, 7)

	rr := do(t, h, "POST", "/indices/books/count", `{"query": {"term": {"field": "title", "value": "fox"}}}`)
	mustStatus(t, rr, http.StatusOK)

	var resp countResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Count != 7 || string(resp.Relation) != "eq" {
		t.Fatalf("resp = %+v", resp)
	}
}

func TestPITEndpoints(t *testing.T) {
	h := newTestRouter(t)
	seedBooks(t, h, 3)

	rr := do(t, h, "POST", "/pit?index=books&keep_alive=30s", "")
	mustStatus(t, rr, http.StatusCreated)
	var pit pitBody
	if err := json.NewDecoder(rr.Body).Decode(&pit); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if pit.ID == "" {
		t.Fatal("empty pit id")
	}

	body := fmt.Sprintf(`{"pit": {"id": %q}}`, pit.ID)
	mustStatus(t, do(t, h, "POST", "/indices/books/search", body), http.StatusOK)

	mustStatus(t, do(t, h, "DELETE", "/pit/"+pit.ID, ""), http.StatusNoContent)
	mustStatus(t, do(t, h, "DELETE", "/pit/"+pit.ID, ""), http.StatusNotFound)
	mustStatus(t, do(t, h, "POST", "/indices/books/search", body), http.StatusNotFound)
}

func TestErrorMapping(t *testing.T) {
	h := newTestRouter(t)
	seedBooks(t, h, 1)

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
		wantCode   string
	}{
		{"unknown index", "GET", "/indices/nope", "", http.StatusNotFound, codeIndexNotFound},
		{"unknown document", "GET", "/indices/books/documents/nope", "", http.StatusNotFound, codeDocumentNotFound},
		{
			"bad schema", "POST", "/indices",
			`{"name": "x", "fields": [{"name": "f", "type": "geo"}]}`,
			http.StatusBadRequest, codeValidationFailed,
		},
		{
			"bad query", "POST", "/indices/books/search",
			`{"query": {"term": {"field": "title"}}}`,
			http.StatusBadRequest, codeInvalidQuery,
		},
		{
			"bad json", "POST", "/indices/books/search",
			`{"query":`,
			http.StatusBadRequest, codeBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, h, tt.method, tt.path, tt.body)
			mustStatus(t, rr, tt.wantStatus)
			var errResp errorResponse
			if err := json.NewDecoder(rr.Body).Decode(&errResp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if errResp.Code != tt.wantCode {
				t.Fatalf("code = %q, want %q", errResp.Code, tt.wantCode)
			}
		})
	}
}

func TestStatsEndpoints(t *testing.T) {
	h := newTestRouter(t)
	seedBooks(t, h, 4)
	mustStatus(t, do(t, h, "POST", "/indices/books/search", ""), http.StatusOK)

	rr := do(t, h, "GET", "/stats", "")
	mustStatus(t, rr, http.StatusOK)
	var node nodeStatsResponse
	if err := json.NewDecoder(rr.Body).Decode(&node); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if node.Indices != 1 || node.Docs != 4 || node.Search.Total != 1 || node.Indexing.Indexed != 4 {
		t.Fatalf("node stats = %+v", node)
	}

	rr = do(t, h, "GET", "/indices/books/stats", "")
	mustStatus(t, rr, http.StatusOK)
	var ix indexStatsResponse
	if err := json.NewDecoder(rr.Body).Decode(&ix); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ix.Name != "books" || ix.Stats.Docs != 4 {
		t.Fatalf("index stats = %+v", ix)
	}
}

func TestHealthEndpoint(t *testing.T) {
	h := newTestRouter(t)

	rr := do(t, h, "GET", "/health", "")
	mustStatus(t, rr, http.StatusOK)
	if !strings.Contains(rr.Body.String(), `"status":"ok"`) {
		t.Fatalf("body = %s", rr.Body.String())
	}
}
