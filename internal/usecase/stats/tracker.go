// Package stats aggregates per-node operation counters and index statistics.
package stats

import (
	"sync/atomic"
	"time"
)

// Tracker accumulates operation counters. All methods are nil-safe so
// services can run without stats wired.
type Tracker struct {
	searches       atomic.Int64
	searchTimeNs   atomic.Int64
	searchRejected atomic.Int64
	searchTimedOut atomic.Int64
	indexed        atomic.Int64
	deleted        atomic.Int64
	refreshes      atomic.Int64
}

// NewTracker creates an empty Tracker.
func NewTracker() *Tracker { return &Tracker{} }

// RecordSearch records a completed search and its query phase duration.
func (t *Tracker) RecordSearch(took time.Duration, timedOut bool) {
	if t == nil {
		return
	}
	t.searches.Add(1)
	t.searchTimeNs.Add(int64(took))
	if timedOut {
		t.searchTimedOut.Add(1)
	}
}

// RecordRejection records a search rejected by the concurrency limit.
func (t *Tracker) RecordRejection() {
	if t == nil {
		return
	}
	t.searchRejected.Add(1)
}

// RecordIndexed records n indexed documents.
func (t *Tracker) RecordIndexed(n int) {
	if t == nil {
		return
	}
	t.indexed.Add(int64(n))
}

// RecordDeleted records n deleted documents.
func (t *Tracker) RecordDeleted(n int) {
	if t == nil {
		return
	}
	t.deleted.Add(int64(n))
}

// RecordRefresh records an index refresh.
func (t *Tracker) RecordRefresh() {
	if t == nil {
		return
	}
	t.refreshes.Add(1)
}
