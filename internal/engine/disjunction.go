package engine

// disjunctionScorer implements OR over child scorers with an optional
// minimum match count. Children stay positioned on the current document
// until the next call to Next or Advance, so Score can sum the matching
// children.
type disjunctionScorer struct {
	children []Scorer
	done     []bool
	started  bool
	current  uint32
	matches  int
	minMatch int
}

func newDisjunctionScorer(children []Scorer, minMatch int) *disjunctionScorer {
	if minMatch < 1 {
		minMatch = 1
	}
	return &disjunctionScorer{
		children: children,
		done:     make([]bool, len(children)),
		minMatch: minMatch,
	}
}

func (d *disjunctionScorer) Next() bool {
	if !d.started {
		d.started = true
		for i, child := range d.children {
			if !child.Next() {
				d.done[i] = true
			}
		}
		return d.settle()
	}
	// Move every child off the current document.
	for i, child := range d.children {
		if d.done[i] {
			continue
		}
		if child.DocID() == d.current && !child.Next() {
			d.done[i] = true
		}
	}
	return d.settle()
}

func (d *disjunctionScorer) DocID() uint32 { return d.current }

func (d *disjunctionScorer) Advance(target uint32) bool {
	if !d.started {
		d.started = true
		for i, child := range d.children {
			if !child.Advance(target) {
				d.done[i] = true
			}
		}
		return d.settle()
	}
	for i, child := range d.children {
		if d.done[i] {
			continue
		}
		if child.DocID() < target && !child.Advance(target) {
			d.done[i] = true
		}
	}
	return d.settle()
}

func (d *disjunctionScorer) Cost() int64 {
	var total int64
	for _, child := range d.children {
		total += child.Cost()
	}
	return total
}

func (d *disjunctionScorer) Score() float64 {
	var sum float64
	for i, child := range d.children {
		if !d.done[i] && child.DocID() == d.current {
			sum += child.Score()
		}
	}
	return sum
}

// settle positions the scorer on the smallest current document that has at
// least minMatch matching children, advancing past documents with too few.
func (d *disjunctionScorer) settle() bool {
	for {
		min, matches := uint32(0), 0
		first := true
		for i, child := range d.children {
			if d.done[i] {
				continue
			}
			doc := child.DocID()
			switch {
			case first || doc < min:
				min, matches, first = doc, 1, false
			case doc == min:
				matches++
			}
		}
		if first {
			return false
		}
		if matches >= d.minMatch {
			d.current = min
			d.matches = matches
			return true
		}
		// Too few matches; move the children at min forward.
		for i, child := range d.children {
			if d.done[i] {
				continue
			}
			if child.DocID() == min && !child.Next() {
				d.done[i] = true
			}
		}
	}
}
