// Package engine executes a rewritten query against one shard snapshot:
// it builds scorers over segment postings, drives them through a collector
// chain, and produces the shard's ranked results, counts and aggregations.
package engine

import "github.com/textdex-cloud/textdex/internal/index"

// PostingsIterator iterates documents in segment-local doc ID order.
type PostingsIterator interface {
	// Next advances to the next document. Returns false when exhausted.
	Next() bool

	// DocID returns the current document. Valid only after a successful
	// Next or Advance.
	DocID() uint32

	// Advance moves to the first document >= target. Returns false when no
	// such document exists.
	Advance(target uint32) bool

	// Cost estimates the number of documents remaining.
	Cost() int64
}

// Scorer is a PostingsIterator that can score its current document.
type Scorer interface {
	PostingsIterator

	// Score returns the score of the current document.
	Score() float64
}

// postingsCursor iterates one term's postings inside a segment.
type postingsCursor struct {
	p   *index.Postings
	pos int
}

func newPostingsCursor(p *index.Postings) *postingsCursor {
	return &postingsCursor{p: p, pos: -1}
}

func (c *postingsCursor) Next() bool {
	c.pos++
	return c.pos < len(c.p.Docs)
}

func (c *postingsCursor) DocID() uint32 { return c.p.Docs[c.pos] }

func (c *postingsCursor) Freq() uint32 { return c.p.Freqs[c.pos] }

func (c *postingsCursor) Positions() []uint32 { return c.p.Positions[c.pos] }

func (c *postingsCursor) Advance(target uint32) bool {
	if c.pos >= 0 && c.pos < len(c.p.Docs) && c.p.Docs[c.pos] >= target {
		return true
	}
	for c.pos+1 < len(c.p.Docs) {
		c.pos++
		if c.p.Docs[c.pos] >= target {
			return true
		}
	}
	c.pos = len(c.p.Docs)
	return false
}

func (c *postingsCursor) Cost() int64 {
	remaining := len(c.p.Docs) - c.pos - 1
	if remaining < 0 {
		return 0
	}
	return int64(remaining)
}

// emptyIterator matches nothing.
type emptyIterator struct{}

func (emptyIterator) Next() bool          { return false }
func (emptyIterator) DocID() uint32       { return 0 }
func (emptyIterator) Advance(uint32) bool { return false }
func (emptyIterator) Cost() int64         { return 0 }

// allDocsIterator matches every document in a segment.
type allDocsIterator struct {
	doc   int64
	count int64
}

func newAllDocsIterator(count int) *allDocsIterator {
	return &allDocsIterator{doc: -1, count: int64(count)}
}

func (it *allDocsIterator) Next() bool {
	it.doc++
	return it.doc < it.count
}

func (it *allDocsIterator) DocID() uint32 { return uint32(it.doc) }

func (it *allDocsIterator) Advance(target uint32) bool {
	if int64(target) > it.doc {
		it.doc = int64(target)
	}
	return it.doc < it.count
}

func (it *allDocsIterator) Cost() int64 {
	remaining := it.count - it.doc - 1
	if remaining < 0 {
		return 0
	}
	return remaining
}
