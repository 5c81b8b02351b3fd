package index

import "sort"

// Postings is the per-term posting data inside one segment. Doc IDs are
// segment-local and sorted ascending. Positions are token positions, kept
// only for text fields.
type Postings struct {
	Docs      []uint32
	Freqs     []uint32
	Positions [][]uint32
}

// fieldIndex holds the inverted index and length statistics for one field.
type fieldIndex struct {
	terms       map[string]*Postings
	sortedTerms []string
	docLens     []uint32
	sumDocLen   int64
}

// numericColumn holds per-document numeric values for one field.
type numericColumn struct {
	values []float64
	exists []bool
}

// keywordColumn holds per-document keyword values for one field.
type keywordColumn struct {
	values []string
	exists []bool
}

// Segment is an immutable slice of a shard: an inverted index plus stored
// documents for a batch of writes. Deletions never mutate a segment; they
// live in the snapshot's tombstone bitmaps.
type Segment struct {
	docCount int
	ids      []string
	idToDoc  map[string]uint32
	stored   []map[string]any

	fields   map[string]*fieldIndex
	numerics map[string]*numericColumn
	keywords map[string]*keywordColumn

	sortField string
	sortDesc  bool
}

// DocCount returns the number of documents in the segment, including any
// that a snapshot may have tombstoned.
func (s *Segment) DocCount() int { return s.docCount }

// ExternalID returns the external ID of a segment-local document.
func (s *Segment) ExternalID(doc uint32) string { return s.ids[doc] }

// Lookup returns the segment-local doc for an external ID.
func (s *Segment) Lookup(id string) (uint32, bool) {
	doc, ok := s.idToDoc[id]
	return doc, ok
}

// Stored returns the stored fields of a document.
func (s *Segment) Stored(doc uint32) map[string]any { return s.stored[doc] }

// Postings returns the posting list for a term, or nil if the term does not
// occur in the field.
func (s *Segment) Postings(field, term string) *Postings {
	fi, ok := s.fields[field]
	if !ok {
		return nil
	}
	return fi.terms[term]
}

// DocFreq returns the number of documents containing the term.
func (s *Segment) DocFreq(field, term string) int {
	p := s.Postings(field, term)
	if p == nil {
		return 0
	}
	return len(p.Docs)
}

// TermsWithPrefix calls fn for each term in the field that starts with the
// given prefix, in term order. Iteration stops on the first non-nil error,
// which is returned.
func (s *Segment) TermsWithPrefix(field, prefix string, fn func(term string) error) error {
	fi, ok := s.fields[field]
	if !ok {
		return nil
	}
	start := sort.SearchStrings(fi.sortedTerms, prefix)
	for i := start; i < len(fi.sortedTerms); i++ {
		term := fi.sortedTerms[i]
		if len(term) < len(prefix) || term[:len(prefix)] != prefix {
			break
		}
		if err := fn(term); err != nil {
			return err
		}
	}
	return nil
}

// DocLen returns the token count of the field in a document.
func (s *Segment) DocLen(field string, doc uint32) uint32 {
	fi, ok := s.fields[field]
	if !ok || int(doc) >= len(fi.docLens) {
		return 0
	}
	return fi.docLens[doc]
}

// AvgFieldLen returns the mean token count of the field across the segment.
func (s *Segment) AvgFieldLen(field string) float64 {
	fi, ok := s.fields[field]
	if !ok || s.docCount == 0 {
		return 0
	}
	return float64(fi.sumDocLen) / float64(s.docCount)
}

// NumericValues returns the numeric doc values column for a field, or nil
// if the field has no numeric values in this segment.
func (s *Segment) NumericValues(field string) (values []float64, exists []bool) {
	col, ok := s.numerics[field]
	if !ok {
		return nil, nil
	}
	return col.values, col.exists
}

// KeywordValues returns the keyword doc values column for a field, or nil
// if the field has no keyword values in this segment.
func (s *Segment) KeywordValues(field string) (values []string, exists []bool) {
	col, ok := s.keywords[field]
	if !ok {
		return nil, nil
	}
	return col.values, col.exists
}

// SortedBy reports the index sort this segment was written with. ok is
// false when the segment is unsorted.
func (s *Segment) SortedBy() (field string, desc bool, ok bool) {
	return s.sortField, s.sortDesc, s.sortField != ""
}
