package engine

import (
	"errors"

	"github.com/textdex-cloud/textdex/internal/index"
)

// Collection control flow. These never escape the query phase.
var (
	// errSegmentTerminated stops collection of the current segment and
	// moves on to the next one.
	errSegmentTerminated = errors.New("segment collection terminated")

	// errCollectionTerminated stops collection for the whole shard.
	errCollectionTerminated = errors.New("collection terminated")
)

// leafCollector consumes the matching documents of one segment.
type leafCollector interface {
	collect(doc uint32, score float64) error
}

// collector produces a leafCollector per segment. forSegment may return
// errSegmentTerminated to skip the segment entirely, for example when its
// hit count was answered from index statistics.
type collector interface {
	forSegment(view index.SegmentView, ord int) (leafCollector, error)
	needsScores() bool
}

// leafFunc adapts a function to leafCollector.
type leafFunc func(doc uint32, score float64) error

func (f leafFunc) collect(doc uint32, score float64) error { return f(doc, score) }
