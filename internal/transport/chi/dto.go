package chi

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/textdex-cloud/textdex/internal/domain"
	"github.com/textdex-cloud/textdex/internal/domain/query"
	"github.com/textdex-cloud/textdex/internal/domain/search/agg"
	"github.com/textdex-cloud/textdex/internal/domain/search/request"
	"github.com/textdex-cloud/textdex/internal/domain/search/result"
	"github.com/textdex-cloud/textdex/internal/index"
	"github.com/textdex-cloud/textdex/internal/usecase/document"
	"github.com/textdex-cloud/textdex/internal/usecase/indices"
	"github.com/textdex-cloud/textdex/internal/usecase/stats"
)

// Error codes in API responses.
const (
	codeBadRequest           = "bad_request"
	codeValidationFailed     = "validation_failed"
	codeIndexNotFound        = "index_not_found"
	codeIndexAlreadyExists   = "index_already_exists"
	codeDocumentNotFound     = "document_not_found"
	codeInvalidQuery         = "invalid_query"
	codeTooManyClauses       = "too_many_clauses"
	codeSearchContextMissing = "search_context_missing"
	codeSearchRejected       = "search_rejected"
	codeInternal             = "internal_error"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type fieldDef struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Analyzer string `json:"analyzer,omitempty"`
}

type sortSpec struct {
	Field string `json:"field"`
	Order string `json:"order,omitempty"` // "asc" (default) or "desc"
}

type createIndexRequest struct {
	Name   string     `json:"name"`
	Fields []fieldDef `json:"fields"`
	Shards int        `json:"shards,omitempty"`
	Sort   *sortSpec  `json:"sort,omitempty"`
}

type indexStatsBody struct {
	Docs     int `json:"docs"`
	Deleted  int `json:"deleted"`
	Segments int `json:"segments"`
	Shards   int `json:"shards"`
}

type indexResponse struct {
	Name      string         `json:"name"`
	Fields    []fieldDef     `json:"fields"`
	Shards    int            `json:"shards"`
	Sort      *sortSpec      `json:"sort,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	Stats     indexStatsBody `json:"stats"`
}

func indexToBody(info indices.Info) indexResponse {
	fields := make([]fieldDef, len(info.Fields))
	for i, f := range info.Fields {
		fields[i] = fieldDef{Name: f.Name, Type: string(f.Type), Analyzer: f.Analyzer}
	}
	resp := indexResponse{
		Name:      info.Name,
		Fields:    fields,
		Shards:    info.Settings.Shards,
		CreatedAt: info.CreatedAt,
		Stats:     statsToBody(info.Stats),
	}
	if info.Settings.SortField != "" {
		order := "asc"
		if info.Settings.SortDesc {
			order = "desc"
		}
		resp.Sort = &sortSpec{Field: info.Settings.SortField, Order: order}
	}
	return resp
}

func statsToBody(st index.Stats) indexStatsBody {
	return indexStatsBody{Docs: st.Docs, Deleted: st.Deleted, Segments: st.Segments, Shards: len(st.Shards)}
}

func createParamsFromBody(req createIndexRequest) indices.CreateParams {
	fields := make([]index.Field, len(req.Fields))
	for i, f := range req.Fields {
		fields[i] = index.Field{Name: f.Name, Type: index.FieldType(f.Type), Analyzer: f.Analyzer}
	}
	p := indices.CreateParams{Name: req.Name, Fields: fields, Shards: req.Shards}
	if req.Sort != nil {
		p.SortArgs = &indices.SortArgs{Field: req.Sort.Field, Desc: req.Sort.Order == "desc"}
	}
	return p
}

type docWriteResponse struct {
	ID     string `json:"_id"`
	Result string `json:"result"`
}

type docGetResponse struct {
	ID     string         `json:"_id"`
	Source map[string]any `json:"_source"`
}

type bulkAction struct {
	Action string         `json:"action"`
	ID     string         `json:"id"`
	Fields map[string]any `json:"fields,omitempty"`
}

type bulkRequest struct {
	Actions []bulkAction `json:"actions"`
}

type bulkItem struct {
	Action string `json:"action"`
	ID     string `json:"id"`
	OK     bool   `json:"ok"`
	Error  string `json:"error,omitempty"`
}

type bulkResponse struct {
	Items     []bulkItem `json:"items"`
	Succeeded int        `json:"succeeded"`
	Failed    int        `json:"failed"`
}

func bulkToBody(results []document.OpResult) bulkResponse {
	resp := bulkResponse{Items: make([]bulkItem, len(results))}
	for i, res := range results {
		resp.Items[i] = bulkItem{Action: string(res.Action), ID: res.ID, OK: res.OK, Error: res.Error}
		if res.OK {
			resp.Succeeded++
		} else {
			resp.Failed++
		}
	}
	return resp
}

type pitBody struct {
	ID string `json:"id"`
}

// searchRequest is the JSON body of search and count requests.
type searchRequest struct {
	Query          json.RawMessage            `json:"query,omitempty"`
	PostFilter     json.RawMessage            `json:"post_filter,omitempty"`
	Size           *int                       `json:"size,omitempty"`
	From           int                        `json:"from,omitempty"`
	MinScore       float64                    `json:"min_score,omitempty"`
	TerminateAfter int                        `json:"terminate_after,omitempty"`
	TrackTotalHits json.RawMessage            `json:"track_total_hits,omitempty"` // bool or int
	TimeoutMs      int                        `json:"timeout_ms,omitempty"`
	Sort           []sortSpec                 `json:"sort,omitempty"`
	SearchAfter    []float64                  `json:"search_after,omitempty"`
	Profile        bool                       `json:"profile,omitempty"`
	Aggs           map[string]json.RawMessage `json:"aggs,omitempty"`
	PIT            *pitBody                   `json:"pit,omitempty"`
	RequestCache   *bool                      `json:"request_cache,omitempty"`
}

func searchParamsFromBody(req searchRequest) (request.Params, error) {
	p := request.Params{
		Size:           req.Size,
		From:           req.From,
		MinScore:       req.MinScore,
		TerminateAfter: req.TerminateAfter,
		Timeout:        time.Duration(req.TimeoutMs) * time.Millisecond,
		SearchAfter:    req.SearchAfter,
		Profile:        req.Profile,
	}

	if len(req.Query) > 0 {
		q, err := query.Decode(req.Query)
		if err != nil {
			return request.Params{}, err
		}
		p.Query = q
	}
	if len(req.PostFilter) > 0 {
		pf, err := query.Decode(req.PostFilter)
		if err != nil {
			return request.Params{}, err
		}
		p.PostFilter = pf
	}

	if len(req.TrackTotalHits) > 0 {
		track, err := decodeTrackTotalHits(req.TrackTotalHits)
		if err != nil {
			return request.Params{}, err
		}
		p.TrackTotalHits = &track
	}

	for _, s := range req.Sort {
		switch s.Order {
		case "", "asc", "desc":
		default:
			return request.Params{}, fmt.Errorf(
				"%w: sort order must be \"asc\" or \"desc\", got %q", domain.ErrInvalidQuery, s.Order,
			)
		}
		p.Sort = append(p.Sort, request.Sort{Field: s.Field, Desc: s.Order == "desc"})
	}

	if len(req.Aggs) > 0 {
		aggs, err := agg.Decode(req.Aggs)
		if err != nil {
			return request.Params{}, err
		}
		p.Aggs = aggs
	}

	if req.PIT != nil {
		p.PITID = req.PIT.ID
	}
	if req.RequestCache != nil && !*req.RequestCache {
		p.RequestCacheOff = true
	}
	return p, nil
}

// decodeTrackTotalHits accepts the bool-or-int form: true means an exact
// count, false disables counting, a number sets the accuracy threshold.
func decodeTrackTotalHits(raw json.RawMessage) (int, error) {
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		if b {
			return request.TrackTotalHitsAccurate, nil
		}
		return request.TrackTotalHitsDisabled, nil
	}
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, nil
	}
	return 0, fmt.Errorf("%w: track_total_hits must be a boolean or an integer", domain.ErrInvalidQuery)
}

type hitsBody struct {
	Total    result.TotalHits `json:"total"`
	MaxScore *float64         `json:"max_score"`
	Hits     []result.DocHit  `json:"hits"`
}

type searchResponse struct {
	Took            int64                  `json:"took"`
	TimedOut        bool                   `json:"timed_out"`
	TerminatedEarly *bool                  `json:"terminated_early,omitempty"`
	Shards          result.ShardCount      `json:"_shards"`
	Hits            hitsBody               `json:"hits"`
	Aggregations    map[string]agg.Result  `json:"aggregations,omitempty"`
	PITID           string                 `json:"pit_id,omitempty"`
	Profile         []*result.ShardProfile `json:"profile,omitempty"`
}

func searchToBody(res result.Result) searchResponse {
	resp := searchResponse{
		Took:            res.Took.Milliseconds(),
		TimedOut:        res.TimedOut,
		TerminatedEarly: res.TerminatedEarly,
		Shards:          res.Shards,
		Hits:            hitsBody{Total: res.Total, Hits: res.Hits},
		Aggregations:    res.Aggs,
		PITID:           res.PITID,
		Profile:         res.Profile,
	}
	if len(res.Hits) > 0 && res.MaxScore > 0 {
		score := res.MaxScore
		resp.Hits.MaxScore = &score
	}
	if resp.Hits.Hits == nil {
		resp.Hits.Hits = []result.DocHit{}
	}
	return resp
}

type countResponse struct {
	Count    int64           `json:"count"`
	Relation result.Relation `json:"relation"`
}

type nodeStatsResponse struct {
	UptimeSeconds int64             `json:"uptime_seconds"`
	Indices       int               `json:"indices"`
	Docs          int               `json:"docs"`
	DeletedDocs   int               `json:"deleted_docs"`
	Segments      int               `json:"segments"`
	Search        searchStatsBody   `json:"search"`
	Indexing      indexingStatsBody `json:"indexing"`
}

type searchStatsBody struct {
	Total      int64 `json:"total"`
	TimeMillis int64 `json:"time_millis"`
	TimedOut   int64 `json:"timed_out"`
	Rejected   int64 `json:"rejected"`
}

type indexingStatsBody struct {
	Indexed   int64 `json:"indexed"`
	Deleted   int64 `json:"deleted"`
	Refreshes int64 `json:"refreshes"`
}

func nodeStatsToBody(report stats.NodeReport) nodeStatsResponse {
	return nodeStatsResponse{
		UptimeSeconds: report.UptimeSeconds,
		Indices:       report.Indices,
		Docs:          report.Docs,
		DeletedDocs:   report.DeletedDocs,
		Segments:      report.Segments,
		Search: searchStatsBody{
			Total:      report.Search.Total,
			TimeMillis: report.Search.TimeMillis,
			TimedOut:   report.Search.TimedOut,
			Rejected:   report.Search.Rejected,
		},
		Indexing: indexingStatsBody{
			Indexed:   report.Indexing.Indexed,
			Deleted:   report.Indexing.Deleted,
			Refreshes: report.Indexing.Refreshes,
		},
	}
}

type indexStatsResponse struct {
	Name   string         `json:"name"`
	Shards int            `json:"shards"`
	Stats  indexStatsBody `json:"stats"`
}

func indexStatsToBody(report stats.IndexReport) indexStatsResponse {
	return indexStatsResponse{
		Name:   report.Name,
		Shards: report.Shards,
		Stats:  statsToBody(report.Stats),
	}
}
