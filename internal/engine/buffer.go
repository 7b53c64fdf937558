package engine

// Buffer is a byte region with a logical fill length no greater than its
// capacity. The reader fills it, the pipeline consumes Bytes().
type Buffer struct {
	data []byte
	n    int
}

// NewBuffer allocates a buffer of the given capacity.
func NewBuffer(size int) *Buffer {
	b := &Buffer{}
	b.EnsureCapacity(size)
	return b
}

// EnsureCapacity grows the buffer to at least size bytes, keeping the
// filled content. It never shrinks.
func (b *Buffer) EnsureCapacity(size int) {
	if size <= cap(b.data) {
		b.data = b.data[:cap(b.data)]
		return
	}
	grown := make([]byte, size)
	copy(grown, b.data[:b.n])
	b.data = grown
}

// Cap returns the capacity of the buffer.
func (b *Buffer) Cap() int { return len(b.data) }

// Len returns the fill length.
func (b *Buffer) Len() int { return b.n }

// Bytes returns the filled portion.
func (b *Buffer) Bytes() []byte { return b.data[:b.n] }

// Space returns up to size unfilled bytes following the fill length.
func (b *Buffer) Space(size int) []byte {
	end := min(b.n+size, len(b.data))
	return b.data[b.n:end]
}

// Grow extends the fill length by n bytes previously written into Space.
func (b *Buffer) Grow(n int) {
	b.n = min(b.n+n, len(b.data))
}

// Reset empties the buffer without releasing its storage.
func (b *Buffer) Reset() { b.n = 0 }

// Pad fills the buffer with c up to length to.
func (b *Buffer) Pad(to int, c byte) {
	to = min(to, len(b.data))
	for i := b.n; i < to; i++ {
		b.data[i] = c
	}
	if to > b.n {
		b.n = to
	}
}
