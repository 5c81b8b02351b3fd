package engine

import (
	"errors"

	"github.com/textdex-cloud/textdex/internal/domain/query"
	"github.com/textdex-cloud/textdex/internal/domain/search/result"
	"github.com/textdex-cloud/textdex/internal/index"
)

// searcher drives a query's scorer through a collector chain, segment by
// segment, with amortized cancellation checks.
type searcher struct {
	snap    *index.Snapshot
	checker *cancelChecker
	profile *result.QueryProfile // nil unless profiling
}

func (s *searcher) search(q query.Query, coll collector) error {
	needScores := coll.needsScores()
	for ord, view := range s.snap.Segments {
		if err := s.checker.checkNow(); err != nil {
			return err
		}
		leaf, err := coll.forSegment(view, ord)
		if errors.Is(err, errSegmentTerminated) {
			continue
		}
		if err != nil {
			return err
		}

		sc, err := buildScorer(q, view.Seg, 1)
		if err != nil {
			return err
		}
		if s.profile != nil {
			sc = &profileScorer{inner: sc, node: s.profile}
		}

		for sc.Next() {
			if err := s.checker.check(); err != nil {
				return err
			}
			doc := sc.DocID()
			if !view.Live(doc) {
				continue
			}
			score := 0.0
			if needScores {
				score = sc.Score()
			}
			if err := leaf.collect(doc, score); err != nil {
				if errors.Is(err, errSegmentTerminated) {
					break
				}
				return err
			}
		}
	}
	return nil
}
