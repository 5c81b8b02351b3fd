package index

// Bitmap is a fixed-capacity bitset used to track deleted documents
// within a single segment.
type Bitmap struct {
	words []uint64
	ones  int
}

// NewBitmap creates a bitmap that can hold n bits, all clear.
func NewBitmap(n int) *Bitmap {
	return &Bitmap{words: make([]uint64, (n+63)/64)}
}

// Set sets bit i. Setting an already-set bit is a no-op.
func (b *Bitmap) Set(i uint32) {
	w, mask := i/64, uint64(1)<<(i%64)
	if b.words[w]&mask == 0 {
		b.words[w] |= mask
		b.ones++
	}
}

// Has reports whether bit i is set.
func (b *Bitmap) Has(i uint32) bool {
	return b.words[i/64]&(uint64(1)<<(i%64)) != 0
}

// Count returns the number of set bits.
func (b *Bitmap) Count() int {
	return b.ones
}

// Clone returns an independent copy of the bitmap.
func (b *Bitmap) Clone() *Bitmap {
	words := make([]uint64, len(b.words))
	copy(words, b.words)
	return &Bitmap{words: words, ones: b.ones}
}
