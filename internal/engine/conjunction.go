package engine

import "sort"

// conjunctionScorer implements AND over child scorers. The cheapest child
// leads and the rest are advanced to alignment. The score of an aligned
// document is the sum of the children's scores; filter children are wrapped
// so they contribute zero.
type conjunctionScorer struct {
	children []Scorer
	lead     Scorer
	current  uint32
}

func newConjunctionScorer(children []Scorer) *conjunctionScorer {
	sorted := make([]Scorer, len(children))
	copy(sorted, children)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Cost() < sorted[j].Cost()
	})
	return &conjunctionScorer{children: sorted, lead: sorted[0]}
}

func (c *conjunctionScorer) Next() bool {
	if !c.lead.Next() {
		return false
	}
	return c.align(c.lead.DocID())
}

func (c *conjunctionScorer) DocID() uint32 { return c.current }

func (c *conjunctionScorer) Advance(target uint32) bool {
	if !c.lead.Advance(target) {
		return false
	}
	return c.align(c.lead.DocID())
}

func (c *conjunctionScorer) Cost() int64 { return c.lead.Cost() }

func (c *conjunctionScorer) Score() float64 {
	var sum float64
	for _, child := range c.children {
		sum += child.Score()
	}
	return sum
}

// align advances all children until they agree on a document.
func (c *conjunctionScorer) align(target uint32) bool {
	for {
		aligned := true
		for _, child := range c.children {
			if child == c.lead {
				continue
			}
			if !child.Advance(target) {
				return false
			}
			if child.DocID() > target {
				if !c.lead.Advance(child.DocID()) {
					return false
				}
				target = c.lead.DocID()
				aligned = false
				break
			}
		}
		if aligned {
			c.current = target
			return true
		}
	}
}
