// Package result defines the shard-level and reduced search result types.
package result

import (
	"time"

	"github.com/textdex-cloud/textdex/internal/domain/search/agg"
)

// Relation qualifies a total hit count.
type Relation string

const (
	// RelationEq means the value is the exact total.
	RelationEq Relation = "eq"
	// RelationGte means the true total is at least the value.
	RelationGte Relation = "gte"
)

// TotalHits is the (possibly approximate) number of matching documents.
type TotalHits struct {
	Value    int64    `json:"value"`
	Relation Relation `json:"relation"`
}

// Hit is one matching document as seen by a shard. Ord and Doc locate the
// document inside the shard snapshot for the fetch phase.
type Hit struct {
	Shard      int
	Ord        int
	Doc        uint32
	ID         string
	Score      float64
	SortValues []float64
}

// TopDocs is the ranked hit window of one shard or of the reduced result.
type TopDocs struct {
	Total    TotalHits
	MaxScore float64
	Hits     []Hit
}

// ShardResult is what the query phase produces for a single shard.
type ShardResult struct {
	Shard           int
	TopDocs         TopDocs
	TerminatedEarly *bool
	TimedOut        bool
	Took            time.Duration
	Aggs            map[string]agg.Result
	Profile         *ShardProfile
}

// DocHit is a fully fetched hit in the final response.
type DocHit struct {
	ID         string         `json:"_id"`
	Score      float64        `json:"_score"`
	SortValues []float64      `json:"sort,omitempty"`
	Source     map[string]any `json:"_source,omitempty"`
}

// ShardCount reports shard fan-out health for a search.
type ShardCount struct {
	Total      int `json:"total"`
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
}

// Result is the reduced, fetch-completed search response.
type Result struct {
	Took            time.Duration
	TimedOut        bool
	TerminatedEarly *bool
	Shards          ShardCount
	Total           TotalHits
	MaxScore        float64
	Hits            []DocHit
	Aggs            map[string]agg.Result
	PITID           string
	Profile         []*ShardProfile
}
