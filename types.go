package textdex

import (
	"github.com/textdex-cloud/textdex/internal/domain"
)

// FieldType is the type of an indexed field.
type FieldType string

const (
	// FieldText is analyzed full-text content, BM25 scored.
	FieldText FieldType = "text"
	// FieldKeyword is an exact-match string value.
	FieldKeyword FieldType = "keyword"
	// FieldNumeric is a float64 value for range queries and sorting.
	FieldNumeric FieldType = "numeric"
)

// FieldInfo describes one schema field.
type FieldInfo struct {
	Name     string
	Type     FieldType
	Analyzer string // text fields only, empty = standard
}

// Sentinel errors surfaced by the client. Match with errors.Is.
var (
	ErrIndexNotFound        = domain.ErrIndexNotFound
	ErrIndexExists          = domain.ErrIndexExists
	ErrDocumentNotFound     = domain.ErrDocumentNotFound
	ErrInvalidSchema        = domain.ErrInvalidSchema
	ErrInvalidQuery         = domain.ErrInvalidQuery
	ErrSearchRejected       = domain.ErrSearchRejected
	ErrSearchContextMissing = domain.ErrSearchContextMissing
)

// TotalHits is the (possibly approximate) number of matching documents.
// Exact is false when the value is a lower bound.
type TotalHits struct {
	Value int64
	Exact bool
}

// SearchResult is one matching document.
type SearchResult struct {
	ID         string
	Score      float64
	SortValues []float64
	Source     map[string]any
}

// SearchResponse is the outcome of one search.
type SearchResponse struct {
	Total    TotalHits
	Results  []SearchResult
	TimedOut bool
	TookMs   int64
	PITID    string

	// Aggregation results, keyed by the requested aggregation name.
	Buckets map[string][]AggBucket
	Stats   map[string]AggStats
	Values  map[string]int64
}

// AggBucket is one keyed bucket of a terms or filters aggregation.
type AggBucket struct {
	Key      string
	DocCount int64
}

// AggStats is the result of a stats aggregation.
type AggStats struct {
	Count int64
	Min   float64
	Max   float64
	Sum   float64
	Avg   float64
}

// NodeStats is a snapshot of node-wide counters.
type NodeStats struct {
	Indices  int
	Docs     int
	Searches int64
	Indexed  int64
}

// BulkOp is one action in a bulk request.
type BulkOp struct {
	// Action is "index" or "delete".
	Action string
	ID     string
	Fields map[string]any
}

// BulkResult is the per-item outcome of a bulk request.
type BulkResult struct {
	Action string
	ID     string
	OK     bool
	Error  string
}
