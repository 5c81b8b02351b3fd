package engine

// exclusionScorer filters a required scorer by a prohibited iterator.
type exclusionScorer struct {
	required   Scorer
	prohibited PostingsIterator
	exhausted  bool
}

func newExclusionScorer(required Scorer, prohibited PostingsIterator) *exclusionScorer {
	return &exclusionScorer{required: required, prohibited: prohibited}
}

func (e *exclusionScorer) Next() bool {
	for e.required.Next() {
		if !e.excluded(e.required.DocID()) {
			return true
		}
	}
	return false
}

func (e *exclusionScorer) DocID() uint32 { return e.required.DocID() }

func (e *exclusionScorer) Advance(target uint32) bool {
	if !e.required.Advance(target) {
		return false
	}
	for e.excluded(e.required.DocID()) {
		if !e.required.Next() {
			return false
		}
	}
	return true
}

func (e *exclusionScorer) Cost() int64 { return e.required.Cost() }

func (e *exclusionScorer) Score() float64 { return e.required.Score() }

func (e *exclusionScorer) excluded(doc uint32) bool {
	if e.exhausted {
		return false
	}
	if !e.prohibited.Advance(doc) {
		e.exhausted = true
		return false
	}
	return e.prohibited.DocID() == doc
}
