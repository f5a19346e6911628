package ring

import (
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seq(from, to int) []float32 {
	out := make([]float32, 0, to-from)
	for i := from; i < to; i++ {
		out = append(out, float32(i))
	}
	return out
}

func TestAppendDropsOldest(t *testing.T) {
	b := New(4)
	b.Append([]float32{1, 2, 3})
	b.Append([]float32{4, 5})

	assert.Equal(t, []float32{2, 3, 4, 5}, b.Snapshot(4))
	assert.Equal(t, 4, b.Len())
}

func TestAppendBatchLargerThanCapacity(t *testing.T) {
	b := New(3)
	b.Append([]float32{1})
	b.Append(seq(10, 20))

	assert.Equal(t, []float32{17, 18, 19}, b.Snapshot(10))
}

func TestAppendMatchesStreamSuffix(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	for _, capacity := range []int{1, 2, 7, 64, 1024} {
		b := New(capacity)
		next := 0
		for range 500 {
			n := rng.Intn(capacity*2 + 3)
			b.Append(seq(next, next+n))
			next += n

			require.LessOrEqual(t, b.Len(), capacity)
			want := seq(max(0, next-capacity), next)
			require.Equal(t, want, b.Snapshot(capacity), "capacity %d", capacity)
		}
	}
}

func TestSnapshot(t *testing.T) {
	b := New(8)
	assert.Empty(t, b.Snapshot(4))

	b.Append(seq(0, 6))
	assert.Equal(t, []float32{3, 4, 5}, b.Snapshot(3))
	assert.Equal(t, seq(0, 6), b.Snapshot(100))
	assert.Empty(t, b.Snapshot(0))
	assert.Empty(t, b.Snapshot(-1))

	// Snapshot copies and leaves the buffer untouched.
	s := b.Snapshot(2)
	s[0] = -1
	assert.Equal(t, []float32{4, 5}, b.Snapshot(2))
	assert.Equal(t, 6, b.Len())
}

func TestResizeShrinkTrimsEagerly(t *testing.T) {
	b := New(8)
	b.Append(seq(0, 8))

	b.Resize(3)
	assert.Equal(t, 3, b.Capacity())
	assert.Equal(t, []float32{5, 6, 7}, b.Snapshot(8))

	b.Append([]float32{8, 9})
	assert.Equal(t, []float32{7, 8, 9}, b.Snapshot(8))
}

func TestResizeGrowKeepsContents(t *testing.T) {
	b := New(4)
	b.Append(seq(0, 6))

	b.Resize(6)
	assert.Equal(t, []float32{2, 3, 4, 5}, b.Snapshot(6))

	b.Append([]float32{6, 7, 8})
	assert.Equal(t, []float32{3, 4, 5, 6, 7, 8}, b.Snapshot(6))
}

func TestZeroCapacity(t *testing.T) {
	b := New(0)
	b.Append([]float32{1, 2})
	assert.Equal(t, 0, b.Len())
	assert.Empty(t, b.Snapshot(2))

	b.Resize(2)
	b.Append([]float32{1, 2, 3})
	assert.Equal(t, []float32{2, 3}, b.Snapshot(2))

	b.Resize(0)
	assert.Equal(t, 0, b.Len())
}

func TestClear(t *testing.T) {
	b := New(4)
	b.Append(seq(0, 3))
	b.Clear()

	assert.Equal(t, 0, b.Len())
	assert.Equal(t, 4, b.Capacity())

	b.Append([]float32{9})
	assert.Equal(t, []float32{9}, b.Snapshot(4))
}

func TestConcurrentAppendAndSnapshot(t *testing.T) {
	b := New(256)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		next := 0
		for range 2000 {
			b.Append(seq(next, next+37))
			next += 37
		}
	}()

	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 2000 {
				s := b.Snapshot(128)
				// Appends are atomic, so any snapshot is a contiguous run.
				for i := 1; i < len(s); i++ {
					if s[i] != s[i-1]+1 {
						t.Errorf("non-contiguous snapshot at %d: %v then %v", i, s[i-1], s[i])
						return
					}
				}
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := range 200 {
			b.Resize(128 + i%256)
		}
	}()

	wg.Wait()
	assert.LessOrEqual(t, b.Len(), b.Capacity())
}
