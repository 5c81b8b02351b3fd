package index

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/textdex-cloud/textdex/internal/analysis"
	"github.com/textdex-cloud/textdex/internal/domain"
)

// bufferedDoc is a document held in the write buffer before flush.
type bufferedDoc struct {
	id     string
	fields map[string]any
}

// Buffer accumulates writes for a shard. Analysis and inversion are
// deferred to Flush so that a buffered document can be cheaply replaced
// by a later write with the same ID.
type Buffer struct {
	schema    Schema
	analyzers *analysis.Registry

	docs    []bufferedDoc
	slots   map[string]int
	deleted map[string]bool
}

// NewBuffer creates an empty write buffer for the given schema.
func NewBuffer(schema Schema, analyzers *analysis.Registry) *Buffer {
	return &Buffer{
		schema:    schema,
		analyzers: analyzers,
		slots:     make(map[string]int),
		deleted:   make(map[string]bool),
	}
}

// Len returns the number of live documents in the buffer.
func (b *Buffer) Len() int { return len(b.slots) }

// Add validates a document against the schema and buffers it. A second Add
// with the same ID replaces the first.
func (b *Buffer) Add(id string, fields map[string]any) error {
	if id == "" {
		return fmt.Errorf("%w: empty document ID", domain.ErrInvalidSchema)
	}
	norm := make(map[string]any, len(fields))
	for name, value := range fields {
		f, ok := b.schema.Field(name)
		if !ok {
			return fmt.Errorf("%w: unknown field %q", domain.ErrInvalidSchema, name)
		}
		v, err := normalizeValue(f, value)
		if err != nil {
			return err
		}
		norm[name] = v
	}

	delete(b.deleted, id)
	if slot, ok := b.slots[id]; ok {
		b.docs[slot] = bufferedDoc{id: id, fields: norm}
		return nil
	}
	b.slots[id] = len(b.docs)
	b.docs = append(b.docs, bufferedDoc{id: id, fields: norm})
	return nil
}

// Delete drops a buffered document and records the ID so the shard can
// tombstone any published copy at the next refresh.
func (b *Buffer) Delete(id string) {
	if slot, ok := b.slots[id]; ok {
		b.docs[slot] = bufferedDoc{}
		delete(b.slots, id)
	}
	b.deleted[id] = true
}

// normalizeValue coerces a JSON value to the field's storage type.
func normalizeValue(f Field, value any) (any, error) {
	switch f.Type {
	case FieldTypeText, FieldTypeKeyword:
		s, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("%w: field %q expects a string", domain.ErrInvalidSchema, f.Name)
		}
		return s, nil
	case FieldTypeNumeric:
		switch v := value.(type) {
		case float64:
			return v, nil
		case int:
			return float64(v), nil
		case int64:
			return float64(v), nil
		case json.Number:
			n, err := v.Float64()
			if err != nil {
				return nil, fmt.Errorf("%w: field %q: %v", domain.ErrInvalidSchema, f.Name, err)
			}
			return n, nil
		default:
			return nil, fmt.Errorf("%w: field %q expects a number", domain.ErrInvalidSchema, f.Name)
		}
	}
	return nil, fmt.Errorf("%w: field %q: unknown type %q", domain.ErrInvalidSchema, f.Name, f.Type)
}

// Flush inverts the buffered documents into an immutable segment. When the
// index declares a sort, documents are ordered by that field so the query
// path can terminate sorted collection early. Returns nil when the buffer
// holds no live documents.
func (b *Buffer) Flush(sortField string, sortDesc bool) *Segment {
	live := make([]bufferedDoc, 0, len(b.slots))
	for _, d := range b.docs {
		if d.id == "" {
			continue
		}
		live = append(live, d)
	}
	if len(live) == 0 {
		return nil
	}

	if sortField != "" {
		sort.SliceStable(live, func(i, j int) bool {
			vi, oki := numericField(live[i].fields, sortField)
			vj, okj := numericField(live[j].fields, sortField)
			if oki != okj {
				return oki // documents missing the sort field go last
			}
			if sortDesc {
				return vi > vj
			}
			return vi < vj
		})
	}

	seg := &Segment{
		docCount:  len(live),
		ids:       make([]string, len(live)),
		idToDoc:   make(map[string]uint32, len(live)),
		stored:    make([]map[string]any, len(live)),
		fields:    make(map[string]*fieldIndex),
		numerics:  make(map[string]*numericColumn),
		keywords:  make(map[string]*keywordColumn),
		sortField: sortField,
		sortDesc:  sortDesc,
	}

	for i, d := range live {
		doc := uint32(i)
		seg.ids[doc] = d.id
		seg.idToDoc[d.id] = doc
		seg.stored[doc] = d.fields
		for name, value := range d.fields {
			f, _ := b.schema.Field(name)
			switch f.Type {
			case FieldTypeText:
				a := b.schema.AnalyzerFor(f, b.analyzers)
				b.invertText(seg, name, doc, a.Analyze(value.(string)))
			case FieldTypeKeyword:
				s := value.(string)
				b.invertKeyword(seg, name, doc, s)
				col := keywordColumnFor(seg, name, len(live))
				col.values[doc] = s
				col.exists[doc] = true
			case FieldTypeNumeric:
				col := numericColumnFor(seg, name, len(live))
				col.values[doc] = value.(float64)
				col.exists[doc] = true
			}
		}
	}

	for _, fi := range seg.fields {
		fi.sortedTerms = make([]string, 0, len(fi.terms))
		for term := range fi.terms {
			fi.sortedTerms = append(fi.sortedTerms, term)
		}
		sort.Strings(fi.sortedTerms)
		if len(fi.docLens) < seg.docCount {
			grown := make([]uint32, seg.docCount)
			copy(grown, fi.docLens)
			fi.docLens = grown
		}
	}
	return seg
}

func (b *Buffer) invertText(seg *Segment, field string, doc uint32, tokens []analysis.Token) {
	fi := fieldIndexFor(seg, field)
	byTerm := make(map[string][]uint32)
	for _, t := range tokens {
		byTerm[t.Term] = append(byTerm[t.Term], uint32(t.Position))
	}
	for term, positions := range byTerm {
		p := fi.terms[term]
		if p == nil {
			p = &Postings{}
			fi.terms[term] = p
		}
		p.Docs = append(p.Docs, doc)
		p.Freqs = append(p.Freqs, uint32(len(positions)))
		sort.Slice(positions, func(i, j int) bool { return positions[i] < positions[j] })
		p.Positions = append(p.Positions, positions)
	}
	setDocLen(fi, doc, uint32(len(tokens)))
}

func (b *Buffer) invertKeyword(seg *Segment, field string, doc uint32, value string) {
	fi := fieldIndexFor(seg, field)
	p := fi.terms[value]
	if p == nil {
		p = &Postings{}
		fi.terms[value] = p
	}
	p.Docs = append(p.Docs, doc)
	p.Freqs = append(p.Freqs, 1)
	p.Positions = append(p.Positions, nil)
	setDocLen(fi, doc, 1)
}

func fieldIndexFor(seg *Segment, field string) *fieldIndex {
	fi, ok := seg.fields[field]
	if !ok {
		fi = &fieldIndex{terms: make(map[string]*Postings)}
		seg.fields[field] = fi
	}
	return fi
}

func setDocLen(fi *fieldIndex, doc uint32, n uint32) {
	for len(fi.docLens) <= int(doc) {
		fi.docLens = append(fi.docLens, 0)
	}
	fi.docLens[doc] = n
	fi.sumDocLen += int64(n)
}

func numericColumnFor(seg *Segment, field string, docCount int) *numericColumn {
	col, ok := seg.numerics[field]
	if !ok {
		col = &numericColumn{values: make([]float64, docCount), exists: make([]bool, docCount)}
		seg.numerics[field] = col
	}
	return col
}

func keywordColumnFor(seg *Segment, field string, docCount int) *keywordColumn {
	col, ok := seg.keywords[field]
	if !ok {
		col = &keywordColumn{values: make([]string, docCount), exists: make([]bool, docCount)}
		seg.keywords[field] = col
	}
	return col
}

func numericField(fields map[string]any, name string) (float64, bool) {
	v, ok := fields[name].(float64)
	return v, ok
}
