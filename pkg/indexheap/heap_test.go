package indexheap

import (
	"cmp"
	"math/rand"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"
)

// valid checks the min-heap property and the identity index.
func (h *Heap[T]) valid() bool {
	for i := 1; i < len(h.items); i++ {
		if h.cmp(h.items[i].val, h.items[parent(i)].val) < 0 {
			return false
		}
	}
	if len(h.pos) != len(h.items) {
		return false
	}
	for i, it := range h.items {
		if h.pos[it.id] != i {
			return false
		}
	}
	return true
}

func TestHeap_PollAscending(t *testing.T) {
	h := New(cmp.Compare[int])
	for _, v := range []int{5, 3, 8, 1, 9, 2, 2} {
		h.Offer(v)
	}
	v, ok := h.Peek()
	require.True(t, ok)
	require.Equal(t, 1, v)

	var got []int
	for h.Len() > 0 {
		v, ok := h.Poll()
		require.True(t, ok)
		got = append(got, v)
	}
	require.Equal(t, []int{1, 2, 2, 3, 5, 8, 9}, got)

	_, ok = h.Poll()
	require.False(t, ok)
}

func TestHeap_IdentitiesIncrease(t *testing.T) {
	h := New(cmp.Compare[int])
	a := h.Offer(1)
	b := h.Offer(1)
	_, _ = h.Poll()
	c := h.Offer(1)
	require.Less(t, a, b)
	require.Less(t, b, c)
}

func TestHeap_DeleteByIdentity(t *testing.T) {
	h := New(cmp.Compare[int])
	ids := map[int]ID{}
	for _, v := range []int{10, 4, 7, 1, 12, 3} {
		ids[v] = h.Offer(v)
	}

	v, ok := h.Delete(ids[7])
	require.True(t, ok)
	require.Equal(t, 7, v)
	_, held := h.pos[ids[7]]
	require.False(t, held)
	require.True(t, h.valid())

	_, ok = h.Delete(ids[7])
	require.False(t, ok, "double delete")

	v, _ = h.Delete(ids[3]) // last slot in the array
	require.Equal(t, 3, v)
	require.True(t, h.valid())

	got := []int{}
	for h.Len() > 0 {
		v, _ := h.Poll()
		got = append(got, v)
	}
	require.Equal(t, []int{1, 4, 10, 12}, got)
}

func TestHeap_DeleteSiftsUp(t *testing.T) {
	// Deleting in one subtree moves a small last element under a large parent.
	h := New(cmp.Compare[int])
	ids := make([]ID, 0)
	for _, v := range []int{1, 100, 2, 101, 102, 3, 4} {
		ids = append(ids, h.Offer(v))
	}
	_, ok := h.Delete(ids[3]) // 101, replaced by 4 which must rise above 100
	require.True(t, ok)
	require.True(t, h.valid())
}

func TestHeap_RandomOffersAndDeletesKeepMinimum(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	h := New(cmp.Compare[int])
	live := map[ID]int{}

	for step := 0; step < 5000; step++ {
		switch op := rng.Intn(3); {
		case op == 0 || len(live) == 0:
			v := rng.Intn(1000)
			live[h.Offer(v)] = v
		case op == 1:
			for id, v := range live {
				got, ok := h.Delete(id)
				require.True(t, ok)
				require.Equal(t, v, got)
				delete(live, id)
				break
			}
		default:
			vals := make([]int, 0, len(live))
			for _, v := range live {
				vals = append(vals, v)
			}
			got, ok := h.Poll()
			require.True(t, ok)
			require.Equal(t, slices.Min(vals), got)
			for id, v := range live {
				if _, held := h.pos[id]; v == got && !held {
					delete(live, id)
					break
				}
			}
		}
		require.Equal(t, len(live), h.Len())
	}
	require.True(t, h.valid())
}
