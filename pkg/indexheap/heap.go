// Package indexheap is a binary min-heap whose entries can be deleted by
// identity in O(log n), not only through Poll.
package indexheap

// ID identifies an entry for the lifetime of the heap. IDs increase
// monotonically and are never reused.
type ID uint64

type item[T any] struct {
	id  ID
	val T
}

// Heap orders values by cmp: Poll returns a value v for which cmp(v, w) <= 0
// for every w held.
type Heap[T any] struct {
	cmp   func(a, b T) int
	items []item[T]
	pos   map[ID]int
	next  ID
}

func New[T any](cmp func(a, b T) int) *Heap[T] {
	return &Heap[T]{cmp: cmp, pos: make(map[ID]int)}
}

func (h *Heap[T]) Len() int { return len(h.items) }

// Offer inserts v and returns its identity.
func (h *Heap[T]) Offer(v T) ID {
	h.next++
	id := h.next
	h.items = append(h.items, item[T]{id: id, val: v})
	h.pos[id] = len(h.items) - 1
	h.up(len(h.items) - 1)
	return id
}

// Peek returns the minimum without removing it.
func (h *Heap[T]) Peek() (T, bool) {
	if len(h.items) == 0 {
		var zero T
		return zero, false
	}
	return h.items[0].val, true
}

// Poll removes and returns the minimum.
func (h *Heap[T]) Poll() (T, bool) {
	if len(h.items) == 0 {
		var zero T
		return zero, false
	}
	return h.Delete(h.items[0].id)
}

// Delete removes the entry with the given identity. The last entry moves into
// the freed position and is sifted whichever way restores the heap.
func (h *Heap[T]) Delete(id ID) (T, bool) {
	p, ok := h.pos[id]
	if !ok {
		var zero T
		return zero, false
	}
	out := h.items[p].val
	delete(h.pos, id)

	last := len(h.items) - 1
	if p == last {
		h.items[last] = item[T]{}
		h.items = h.items[:last]
		return out, true
	}

	h.items[p] = h.items[last]
	h.items[last] = item[T]{}
	h.items = h.items[:last]
	h.pos[h.items[p].id] = p

	if p > 0 && h.cmp(h.items[p].val, h.items[parent(p)].val) < 0 {
		h.up(p)
	} else {
		h.down(p)
	}
	return out, true
}

func parent(i int) int { return (i - 1) / 2 }

func (h *Heap[T]) swap(i, j int) {
	h.items[i], h.items[j] = h.items[j], h.items[i]
	h.pos[h.items[i].id] = i
	h.pos[h.items[j].id] = j
}

func (h *Heap[T]) up(i int) {
	for i > 0 {
		p := parent(i)
		if h.cmp(h.items[i].val, h.items[p].val) >= 0 {
			return
		}
		h.swap(i, p)
		i = p
	}
}

func (h *Heap[T]) down(i int) {
	n := len(h.items)
	for {
		small := i
		if l := 2*i + 1; l < n && h.cmp(h.items[l].val, h.items[small].val) < 0 {
			small = l
		}
		if r := 2*i + 2; r < n && h.cmp(h.items[r].val, h.items[small].val) < 0 {
			small = r
		}
		if small == i {
			return
		}
		h.swap(i, small)
		i = small
	}
}
