package telemetry

// RingBuffer keeps the most recent values written to it, dropping the oldest
// once capacity is reached.
type RingBuffer[T any] struct {
	buf    []T
	cursor int
	n      int
}

// NewRingBuffer creates a buffer holding up to size values (at least 1).
func NewRingBuffer[T any](size int) *RingBuffer[T] {
	if size < 1 {
		size = 1
	}
	return &RingBuffer[T]{buf: make([]T, size)}
}

// Write appends v, overwriting the oldest value when full.
func (r *RingBuffer[T]) Write(v T) {
	r.buf[r.cursor] = v
	r.cursor = (r.cursor + 1) % len(r.buf)
	if r.n < len(r.buf) {
		r.n++
	}
}

// Len returns the number of values held.
func (r *RingBuffer[T]) Len() int { return r.n }

// Cap returns the buffer capacity.
func (r *RingBuffer[T]) Cap() int { return len(r.buf) }

// Contents appends the held values to dst, oldest first.
func (r *RingBuffer[T]) Contents(dst []T) []T {
	if r.n < len(r.buf) {
		return append(dst, r.buf[:r.n]...)
	}
	dst = append(dst, r.buf[r.cursor:]...)
	return append(dst, r.buf[:r.cursor]...)
}

// Last returns the newest value.
func (r *RingBuffer[T]) Last() (T, bool) {
	var zero T
	if r.n == 0 {
		return zero, false
	}
	i := r.cursor - 1
	if i < 0 {
		i = len(r.buf) - 1
	}
	return r.buf[i], true
}

// Reset empties the buffer.
func (r *RingBuffer[T]) Reset() {
	r.cursor, r.n = 0, 0
}
