package index

import "sync"

// SegmentView pairs an immutable segment with the tombstones that apply to
// it in one snapshot. Deleted is nil when nothing was deleted.
type SegmentView struct {
	Seg     *Segment
	Deleted *Bitmap
}

// Live reports whether a segment-local document is visible in this view.
func (v SegmentView) Live(doc uint32) bool {
	return v.Deleted == nil || !v.Deleted.Has(doc)
}

// LiveCount returns the number of visible documents in the view.
func (v SegmentView) LiveCount() int {
	if v.Deleted == nil {
		return v.Seg.DocCount()
	}
	return v.Seg.DocCount() - v.Deleted.Count()
}

// HasDeletions reports whether any document in the view is tombstoned.
func (v SegmentView) HasDeletions() bool {
	return v.Deleted != nil && v.Deleted.Count() > 0
}

// Snapshot is a point-in-time view of a shard. It is immutable; searches
// run entirely against one snapshot and never observe later writes.
type Snapshot struct {
	Generation uint64
	Segments   []SegmentView
}

// DocCount returns the number of visible documents in the snapshot.
func (sn *Snapshot) DocCount() int {
	n := 0
	for _, v := range sn.Segments {
		n += v.LiveCount()
	}
	return n
}

// DeletedCount returns the number of tombstoned documents.
func (sn *Snapshot) DeletedCount() int {
	n := 0
	for _, v := range sn.Segments {
		if v.Deleted != nil {
			n += v.Deleted.Count()
		}
	}
	return n
}

// ShardStats summarizes one shard for the stats API.
type ShardStats struct {
	Docs       int    `json:"docs"`
	Deleted    int    `json:"deleted"`
	Segments   int    `json:"segments"`
	Generation uint64 `json:"generation"`
}

// Shard owns a write buffer and a published snapshot. Writes accumulate in
// the buffer and become visible atomically at Refresh, the way a reader
// would expect from a refresh-based search engine.
type Shard struct {
	id       int
	schema   Schema
	settings Settings

	mu      sync.Mutex
	buf     *Buffer
	pending map[string]bool // IDs to tombstone in published segments at refresh
	snap    *Snapshot

	snapMu sync.RWMutex
}

// NewShard creates an empty shard with an empty published snapshot.
func NewShard(id int, schema Schema, settings Settings, buf *Buffer) *Shard {
	return &Shard{
		id:       id,
		schema:   schema,
		settings: settings,
		buf:      buf,
		pending:  make(map[string]bool),
		snap:     &Snapshot{},
	}
}

// ID returns the shard ordinal within its index.
func (sh *Shard) ID() int { return sh.id }

// Index buffers a document write. A document with an ID that already exists
// in a published segment replaces it at the next refresh.
func (sh *Shard) Index(id string, fields map[string]any) error {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if err := sh.buf.Add(id, fields); err != nil {
		return err
	}
	sh.pending[id] = true
	return nil
}

// Delete removes a document by ID. It reports whether the ID was found in
// the buffer or in the published snapshot.
func (sh *Shard) Delete(id string) bool {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	_, buffered := sh.buf.slots[id]
	sh.buf.Delete(id)
	sh.pending[id] = true
	if buffered {
		return true
	}
	for _, v := range sh.Snapshot().Segments {
		if doc, ok := v.Seg.Lookup(id); ok && v.Live(doc) {
			return true
		}
	}
	return false
}

// Get returns the stored fields of a live document. The write buffer is
// consulted first so unrefreshed writes and deletes are visible; otherwise
// the published snapshot answers, checking newer segments first.
func (sh *Shard) Get(id string) (map[string]any, bool) {
	sh.mu.Lock()
	slot, buffered := sh.buf.slots[id]
	var fields map[string]any
	if buffered {
		fields = sh.buf.docs[slot].fields
	}
	deleted := sh.buf.deleted[id]
	sh.mu.Unlock()

	if buffered {
		return fields, true
	}
	if deleted {
		return nil, false
	}

	sn := sh.Snapshot()
	for i := len(sn.Segments) - 1; i >= 0; i-- {
		v := sn.Segments[i]
		if doc, ok := v.Seg.Lookup(id); ok && v.Live(doc) {
			return v.Seg.Stored(doc), true
		}
	}
	return nil, false
}

// Refresh publishes buffered writes: pending deletes are tombstoned in the
// existing segments via copy-on-write bitmaps, the buffer is flushed into a
// new segment, and a new snapshot is installed atomically.
func (sh *Shard) Refresh() *Snapshot {
	sh.mu.Lock()
	defer sh.mu.Unlock()

	old := sh.Snapshot()
	if len(sh.pending) == 0 && sh.buf.Len() == 0 {
		return old
	}

	views := make([]SegmentView, 0, len(old.Segments)+1)
	for _, v := range old.Segments {
		nv := v
		for id := range sh.pending {
			if doc, ok := v.Seg.Lookup(id); ok && v.Live(doc) {
				if nv.Deleted == v.Deleted {
					if v.Deleted == nil {
						nv.Deleted = NewBitmap(v.Seg.DocCount())
					} else {
						nv.Deleted = v.Deleted.Clone()
					}
				}
				nv.Deleted.Set(doc)
			}
		}
		if nv.LiveCount() > 0 {
			views = append(views, nv)
		}
	}

	if seg := sh.buf.Flush(sh.settings.SortField, sh.settings.SortDesc); seg != nil {
		views = append(views, SegmentView{Seg: seg})
	}

	sh.buf = NewBuffer(sh.buf.schema, sh.buf.analyzers)
	sh.pending = make(map[string]bool)

	next := &Snapshot{Generation: old.Generation + 1, Segments: views}
	sh.snapMu.Lock()
	sh.snap = next
	sh.snapMu.Unlock()
	return next
}

// Snapshot returns the currently published snapshot.
func (sh *Shard) Snapshot() *Snapshot {
	sh.snapMu.RLock()
	defer sh.snapMu.RUnlock()
	return sh.snap
}

// Stats returns shard statistics from the published snapshot.
func (sh *Shard) Stats() ShardStats {
	sn := sh.Snapshot()
	return ShardStats{
		Docs:       sn.DocCount(),
		Deleted:    sn.DeletedCount(),
		Segments:   len(sn.Segments),
		Generation: sn.Generation,
	}
}
