package sched

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPriorityQueueDescendingOrder(t *testing.T) {
	q := NewPriorityQueue[string]()
	q.Enqueue("low", 1)
	q.Enqueue("high", 10)
	q.Enqueue("mid", 5)

	assert.Equal(t, 3, q.Count())
	assert.Equal(t, "high", q.Dequeue())
	assert.Equal(t, "mid", q.Dequeue())
	assert.Equal(t, "low", q.Dequeue())
	assert.True(t, q.IsEmpty())
}

func TestPriorityQueueFIFOAmongEquals(t *testing.T) {
	q := NewPriorityQueue[string]()
	q.Enqueue("first", 5)
	q.Enqueue("second", 5)
	q.Enqueue("third", 5)

	assert.Equal(t, "first", q.Dequeue())
	assert.Equal(t, "second", q.Dequeue())
	assert.Equal(t, "third", q.Dequeue())
}

func TestPriorityQueueRemoveAllOccurrences(t *testing.T) {
	q := NewPriorityQueue[int]()
	q.Enqueue(1, 8)
	q.Enqueue(2, 6)
	q.Enqueue(1, 4)
	q.Enqueue(3, 2)

	q.Remove(1)

	assert.Equal(t, 2, q.Count())
	assert.Equal(t, 2, q.Dequeue())
	assert.Equal(t, 3, q.Dequeue())
}

func TestPriorityQueueRemoveHead(t *testing.T) {
	q := NewPriorityQueue[int]()
	q.Enqueue(9, 9)
	q.Enqueue(8, 8)

	q.Remove(9)

	assert.Equal(t, 8, q.Peek())
	assert.Equal(t, 1, q.Count())
}

func TestPriorityQueuePeekEmpty(t *testing.T) {
	q := NewPriorityQueue[int]()

	assert.Equal(t, 0, q.Peek())
	assert.True(t, q.IsEmpty())
}

// TestPriorityQueueOrderProperty checks that any dequeue sequence is
// non-increasing in priority and FIFO among equals.
func TestPriorityQueueOrderProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(11))

	for trial := 0; trial < 50; trial++ {
		q := NewPriorityQueue[int]()

		n := 1 + rng.Intn(30)
		priorities := make(map[int]int, n)

		for i := 0; i < n; i++ {
			p := 1 + rng.Intn(5)
			priorities[i] = p
			q.Enqueue(i, p)
		}

		lastPriority := 1 << 30
		seen := map[int][]int{}

		for !q.IsEmpty() {
			item := q.Dequeue()
			p := priorities[item]

			require.LessOrEqual(t, p, lastPriority)
			lastPriority = p

			seen[p] = append(seen[p], item)
		}

		// Equal priorities preserve insertion order; items were enqueued in
		// increasing id order.
		for _, items := range seen {
			for i := 1; i < len(items); i++ {
				require.Greater(t, items[i], items[i-1])
			}
		}
	}
}
