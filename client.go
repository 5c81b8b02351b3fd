package textdex

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/textdex-cloud/textdex/internal/analysis"
	"github.com/textdex-cloud/textdex/internal/index"
	documentuc "github.com/textdex-cloud/textdex/internal/usecase/document"
	indicesuc "github.com/textdex-cloud/textdex/internal/usecase/indices"
	searchuc "github.com/textdex-cloud/textdex/internal/usecase/search"
	statsuc "github.com/textdex-cloud/textdex/internal/usecase/stats"
)

const pitSweepInterval = 30 * time.Second

// Client is the embedded textdex entry point. It owns the full node: the
// index registry, the document and search services and the point-in-time
// store, all in-process.
type Client struct {
	registry *index.Registry
	pits     *searchuc.PITStore
	stop     chan struct{}

	indexSvc  *indicesuc.Service
	docSvc    *documentuc.Service
	searchSvc *searchuc.Service
	statsSvc  *statsuc.Service

	logger *zap.Logger
}

// New creates an embedded textdex Client.
func New(opts ...Option) *Client {
	cfg := &clientConfig{
		defaultShards:         1,
		maxShards:             32,
		maxBulkSize:           1000,
		maxConcurrentSearches: 64,
		trackTotalHitsUpTo:    10_000,
		pitKeepAliveMax:       5 * time.Minute,
	}
	for _, o := range opts {
		o.apply(cfg)
	}
	logger := cfg.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	registry := index.NewRegistry()
	analyzers := analysis.NewRegistry()
	tracker := statsuc.NewTracker()
	pits := searchuc.NewPITStore(cfg.pitKeepAliveMax)

	searchSvc := searchuc.New(registry, analyzers, pits, cfg.maxConcurrentSearches, cfg.trackTotalHitsUpTo).
		WithTracker(tracker).
		WithMaxClauses(cfg.maxClauses).
		WithDefaultTimeout(cfg.defaultSearchTimeout)

	c := &Client{
		registry: registry,
		pits:     pits,
		stop:     make(chan struct{}),
		indexSvc: indicesuc.New(registry, analyzers, cfg.defaultShards, cfg.maxShards).
			WithTracker(tracker),
		docSvc: documentuc.New(registry, cfg.maxBulkSize).
			WithTracker(tracker),
		searchSvc: searchSvc,
		statsSvc:  statsuc.New(registry, tracker),
		logger:    logger,
	}
	go pits.Sweep(pitSweepInterval, c.stop)
	return c
}

// Close stops background work. The client must not be used afterwards.
func (c *Client) Close() {
	close(c.stop)
}

// Indices returns the index management service.
func (c *Client) Indices() *IndicesService {
	return &IndicesService{svc: c.indexSvc, logger: c.logger}
}

// Documents returns the document service for a given index.
func (c *Client) Documents(indexName string) *DocumentService {
	return &DocumentService{index: indexName, svc: c.docSvc, logger: c.logger}
}

// Search returns the search service for a given index.
func (c *Client) Search(indexName string) *SearchService {
	return &SearchService{index: indexName, svc: c.searchSvc}
}

// Stats reports node-wide document and operation counters.
func (c *Client) Stats(ctx context.Context) NodeStats {
	report := c.statsSvc.Node(ctx)
	return NodeStats{
		Indices:  report.Indices,
		Docs:     report.Docs,
		Searches: report.Search.Total,
		Indexed:  report.Indexing.Indexed,
	}
}
