package engine

import (
	"math"

	"github.com/textdex-cloud/textdex/internal/index"
)

// BM25 parameters.
const (
	bm25K1 = 1.2
	bm25B  = 0.75
)

// bm25Stats holds the per-segment, per-field statistics BM25 needs.
type bm25Stats struct {
	docCount    int
	docFreq     int
	avgFieldLen float64
}

func segmentStats(seg *index.Segment, field, term string) bm25Stats {
	return bm25Stats{
		docCount:    seg.DocCount(),
		docFreq:     seg.DocFreq(field, term),
		avgFieldLen: seg.AvgFieldLen(field),
	}
}

// idf computes the BM25 inverse document frequency for the stats.
func (s bm25Stats) idf() float64 {
	n := float64(s.docFreq)
	total := float64(s.docCount)
	return math.Log(1 + (total-n+0.5)/(n+0.5))
}

// bm25Score computes the BM25 term score for a document.
func bm25Score(idf float64, freq uint32, docLen uint32, avgLen float64) float64 {
	tf := float64(freq)
	norm := 1 - bm25B
	if avgLen > 0 {
		norm = 1 - bm25B + bm25B*float64(docLen)/avgLen
	}
	return idf * (tf * (bm25K1 + 1)) / (tf + bm25K1*norm)
}
