package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/textdex-cloud/textdex/internal/domain/query"
	"github.com/textdex-cloud/textdex/internal/domain/search/result"
	"github.com/textdex-cloud/textdex/internal/index"
)

// profileScorer times the iterator and scoring calls of the scorer it
// wraps, accumulating into a shared query profile node across segments.
type profileScorer struct {
	inner Scorer
	node  *result.QueryProfile
}

func newQueryProfile(q query.Query) *result.QueryProfile {
	return &result.QueryProfile{
		Type:        queryTypeName(q),
		Description: describeQuery(q),
		Breakdown:   make(map[string]int64),
	}
}

func (p *profileScorer) Next() bool {
	start := time.Now()
	ok := p.inner.Next()
	p.record("next_doc", start)
	return ok
}

func (p *profileScorer) DocID() uint32 { return p.inner.DocID() }

func (p *profileScorer) Advance(target uint32) bool {
	start := time.Now()
	ok := p.inner.Advance(target)
	p.record("advance", start)
	return ok
}

func (p *profileScorer) Cost() int64 { return p.inner.Cost() }

func (p *profileScorer) Score() float64 {
	start := time.Now()
	s := p.inner.Score()
	p.record("score", start)
	return s
}

func (p *profileScorer) record(op string, start time.Time) {
	d := time.Since(start).Nanoseconds()
	p.node.Breakdown[op] += d
	p.node.Breakdown[op+"_count"]++
	p.node.TimeNanos += d
}

// profileCollector times one layer of the collector chain.
type profileCollector struct {
	inner collector
	node  *result.CollectorProfile
}

func newProfileCollector(inner collector, name, reason string, child *result.CollectorProfile) *profileCollector {
	node := &result.CollectorProfile{Name: name, Reason: reason}
	if child != nil {
		node.Children = append(node.Children, child)
	}
	return &profileCollector{inner: inner, node: node}
}

func (p *profileCollector) needsScores() bool { return p.inner.needsScores() }

func (p *profileCollector) forSegment(view index.SegmentView, ord int) (leafCollector, error) {
	start := time.Now()
	leaf, err := p.inner.forSegment(view, ord)
	p.node.TimeNanos += time.Since(start).Nanoseconds()
	if err != nil {
		return nil, err
	}
	return leafFunc(func(doc uint32, score float64) error {
		s := time.Now()
		cerr := leaf.collect(doc, score)
		p.node.TimeNanos += time.Since(s).Nanoseconds()
		return cerr
	}), nil
}

func queryTypeName(q query.Query) string {
	switch q.(type) {
	case *query.Term:
		return "TermQuery"
	case *query.Match:
		return "MatchQuery"
	case *query.Bool:
		return "BooleanQuery"
	case *query.Phrase:
		return "PhraseQuery"
	case *query.Prefix:
		return "PrefixQuery"
	case *query.Range:
		return "RangeQuery"
	case *query.MatchAll:
		return "MatchAllDocsQuery"
	case *query.MatchNone:
		return "MatchNoDocsQuery"
	case *query.ConstantScore:
		return "ConstantScoreQuery"
	default:
		return "Query"
	}
}

func describeQuery(q query.Query) string {
	switch v := q.(type) {
	case *query.Term:
		return fmt.Sprintf("%s:%s", v.Field, v.Value)
	case *query.Phrase:
		return fmt.Sprintf("%s:%q", v.Field, strings.Join(v.Terms, " "))
	case *query.Prefix:
		return fmt.Sprintf("%s:%s*", v.Field, v.Value)
	case *query.Range:
		return fmt.Sprintf("%s:[range]", v.Field)
	case *query.MatchAll:
		return "*:*"
	case *query.MatchNone:
		return "-*:*"
	case *query.ConstantScore:
		return "ConstantScore(" + describeQuery(v.Filter) + ")"
	case *query.Bool:
		parts := make([]string, 0, len(v.Clauses))
		for _, cl := range v.Clauses {
			prefix := ""
			switch cl.Occur {
			case query.OccurMust:
				prefix = "+"
			case query.OccurMustNot:
				prefix = "-"
			case query.OccurFilter:
				prefix = "#"
			}
			parts = append(parts, prefix+describeQuery(cl.Query))
		}
		return "(" + strings.Join(parts, " ") + ")"
	default:
		return ""
	}
}
