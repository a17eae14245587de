package sched

// deltaNode is a node in a DeltaList. The delta stored on a node is relative
// to the node before it firing, so only the head carries an absolute wait.
type deltaNode[T any] struct {
	next  *deltaNode[T]
	value T
	delta int
}

// DeltaList stores items sorted by a relative delay known as the delta value.
// The head's delta is the absolute time until it is due; every later node
// waits its own delta beyond its predecessor. Decrementing the head therefore
// advances time for the whole list at once.
//
// Given inserts A:0, B:1, C:3, E:7 the list holds (A,0) (B,1) (C,2) (E,4).
// Inserting D with an initial delta of 5 walks the list subtracting each delta
// from the remainder and splices D, with delta 2, in front of E, the first
// node it cannot pass, reducing E's delta to 2 so every absolute firing time
// is preserved.
type DeltaList[T any] struct {
	head  *deltaNode[T]
	count int
}

// NewDeltaList returns an empty DeltaList.
func NewDeltaList[T any]() *DeltaList[T] {
	return &DeltaList[T]{}
}

// Insert adds item using delta as its initial delay. Items due at the same
// instant keep insertion order. A negative delta is treated as zero.
func (l *DeltaList[T]) Insert(item T, delta int) {
	if delta < 0 {
		delta = 0
	}

	node := &deltaNode[T]{value: item}

	var prev *deltaNode[T]
	cur := l.head

	for cur != nil && cur.delta <= delta {
		delta -= cur.delta

		prev = cur
		cur = cur.next
	}

	node.delta = delta
	node.next = cur

	if prev == nil {
		l.head = node
	} else {
		prev.next = node
	}

	if cur != nil {
		// Keep the successor's absolute firing time unchanged.
		cur.delta -= delta
	}

	l.count++
}

// Decrement subtracts value from the head's delta only. Propagation to later
// nodes happens as due heads are removed.
func (l *DeltaList[T]) Decrement(value int) {
	if l.head != nil {
		l.head.delta -= value
	}
}

// Peek returns the head item and its current delta without removing it. An
// empty list reports the zero value and a delta of -1.
func (l *DeltaList[T]) Peek() (T, int) {
	if l.head == nil {
		var zero T
		return zero, -1
	}

	return l.head.value, l.head.delta
}

// Remove pops the head and returns its item. The successor becomes the new
// head with its delta unchanged. Callers draining chained wake-ups should
// keep removing while Peek reports a delta at or below zero.
func (l *DeltaList[T]) Remove() T {
	first := l.head
	l.head = first.next
	l.count--

	return first.value
}

// IsEmpty reports whether the list holds no items.
func (l *DeltaList[T]) IsEmpty() bool {
	return l.head == nil
}

// Count returns the number of items in the list.
func (l *DeltaList[T]) Count() int {
	return l.count
}
