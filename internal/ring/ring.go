// Package ring holds the bounded sample window shared between the audio
// callback and visualization queries.
package ring

import "sync"

// DefaultCapacity is the resolution used when none is configured.
const DefaultCapacity = 1024

// Buffer is a fixed-capacity FIFO of mono samples. Appending past capacity
// drops the oldest samples. All methods are safe for concurrent use.
type Buffer struct {
	mu   sync.Mutex
	data []float32 // circular storage, len(data) == capacity
	head int       // index of the oldest sample
	n    int
}

// New creates a buffer holding at most capacity samples.
func New(capacity int) *Buffer {
	return &Buffer{data: make([]float32, max(capacity, 0))}
}

// Append adds frames in order, evicting the oldest samples on overflow. When
// frames alone exceed capacity only its last capacity samples are kept.
func (b *Buffer) Append(frames []float32) {
	b.mu.Lock()
	defer b.mu.Unlock()

	capacity := len(b.data)
	if capacity == 0 || len(frames) == 0 {
		return
	}

	// Skip the part of the batch that could never be observed.
	if skip := len(frames) - capacity; skip > 0 {
		frames = frames[skip:]
	}

	// Evict only what is needed, never more than is stored.
	if overflow := b.n + len(frames) - capacity; overflow > 0 {
		overflow = min(overflow, b.n)
		b.head = (b.head + overflow) % capacity
		b.n -= overflow
	}

	tail := (b.head + b.n) % capacity
	copied := copy(b.data[tail:], frames)
	copy(b.data, frames[copied:])
	b.n += len(frames)
}

// Snapshot returns a copy of the most recent min(n, Len()) samples, oldest first.
func (b *Buffer) Snapshot(n int) []float32 {
	b.mu.Lock()
	defer b.mu.Unlock()

	n = min(max(n, 0), b.n)
	out := make([]float32, n)
	b.copyNewest(out)
	return out
}

// copyNewest fills out with the newest len(out) samples. Caller holds mu.
func (b *Buffer) copyNewest(out []float32) {
	if len(out) == 0 {
		return
	}
	capacity := len(b.data)
	start := (b.head + b.n - len(out)) % capacity
	copied := copy(out, b.data[start:min(start+len(out), capacity)])
	copy(out[copied:], b.data)
}

// Resize changes the capacity. Shrinking trims the oldest samples immediately
// so Len never exceeds the new capacity.
func (b *Buffer) Resize(capacity int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	capacity = max(capacity, 0)
	if capacity == len(b.data) {
		return
	}

	keep := min(b.n, capacity)
	data := make([]float32, capacity)
	b.copyNewest(data[:keep])
	b.data = data
	b.head = 0
	b.n = keep
}

// Clear removes all samples.
func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.head = 0
	b.n = 0
}

// Len returns the number of stored samples.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.n
}

// Capacity returns the maximum number of stored samples.
func (b *Buffer) Capacity() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.data)
}
