package extsort

import (
	"math/rand"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tuannm99/novaquery/internal/bufferpool"
	"github.com/tuannm99/novaquery/internal/heap"
	"github.com/tuannm99/novaquery/internal/record"
	"github.com/tuannm99/novaquery/internal/storage"
)

func newTestRelation(t *testing.T, memBlocks int) (*heap.Relation, *Sorter) {
	t.Helper()
	mem := bufferpool.NewPool(memBlocks)
	schema, err := record.NewSchema(
		record.Column{Name: "k", Type: record.TypeInt},
		record.Column{Name: "s", Type: record.TypeStr20},
	)
	require.NoError(t, err)
	return heap.NewRelation("r", schema, storage.NewDisk(), mem), New(mem, nil)
}

func fill(t *testing.T, rel *heap.Relation, seed int64, n int) {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	names := []string{"ant", "bee", "cat", "dog"}
	for i := 0; i < n; i++ {
		tp := record.NewTuple(record.Int(int32(rng.Intn(50))), record.Str(names[rng.Intn(len(names))]))
		require.NoError(t, rel.AppendTuple(0, tp))
	}
}

func contents(t *testing.T, rel *heap.Relation) []record.Tuple {
	t.Helper()
	var out []record.Tuple
	require.NoError(t, rel.Scan(0, func(_ heap.TID, tp record.Tuple) error {
		out = append(out, tp.Clone())
		return nil
	}))
	return out
}

func requireSorted(t *testing.T, rows []record.Tuple, keys []int) {
	t.Helper()
	for i := 1; i < len(rows); i++ {
		require.LessOrEqual(t, rows[i-1].CompareOn(rows[i], keys), 0, "rows %d,%d out of order", i-1, i)
	}
}

func multiset(rows []record.Tuple) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.String()
	}
	slices.Sort(out)
	return out
}

func TestKeys_AppendsRemainingColumns(t *testing.T) {
	rel, _ := newTestRelation(t, 2)
	keys, err := Keys(rel.Schema(), []string{"s"})
	require.NoError(t, err)
	require.Equal(t, []int{1, 0}, keys)

	keys, err = Keys(rel.Schema(), []string{"r.k", "k"})
	require.NoError(t, err)
	require.Equal(t, []int{0, 1}, keys)

	_, err = Keys(rel.Schema(), []string{"zzz"})
	require.Error(t, err)
}

func TestSorter_Choose(t *testing.T) {
	_, s := newTestRelation(t, 4)
	require.Equal(t, OnePass, s.Choose(4))
	require.Equal(t, TwoPass, s.Choose(5))
}

func TestSort_OnePass(t *testing.T) {
	rel, s := newTestRelation(t, 10)
	fill(t, rel, 1, 30) // 8 blocks
	before := contents(t, rel)

	require.Equal(t, OnePass, s.Choose(rel.BlockCount()))
	require.NoError(t, s.Sort(rel, []string{"k"}))

	after := contents(t, rel)
	requireSorted(t, after, []int{0})
	require.Equal(t, multiset(before), multiset(after))
	require.Equal(t, 8, rel.BlockCount())
}

func TestSort_TwoPass(t *testing.T) {
	rel, s := newTestRelation(t, 4)
	fill(t, rel, 2, 45) // 12 blocks, 3 runs
	before := contents(t, rel)

	require.Equal(t, TwoPass, s.Choose(rel.BlockCount()))
	require.NoError(t, s.Sort(rel, []string{"s", "k"}))

	after := contents(t, rel)
	requireSorted(t, after, []int{1, 0})
	require.Equal(t, multiset(before), multiset(after))
	require.Equal(t, 12, rel.BlockCount(), "staged runs are truncated away")
}

func TestSort_TwoPassMatchesOnePass(t *testing.T) {
	small, s1 := newTestRelation(t, 4)
	large, s2 := newTestRelation(t, 16)
	fill(t, small, 3, 45)
	fill(t, large, 3, 45)
	require.Equal(t, small.BlockCount(), large.BlockCount())

	require.NoError(t, s1.Sort(small, []string{"k"}))
	require.NoError(t, s2.Sort(large, []string{"k"}))

	require.Equal(t, contents(t, large), contents(t, small))
}

func TestSort_HolesAreDroppedInBothPasses(t *testing.T) {
	for _, mem := range []int{3, 16} {
		rel, s := newTestRelation(t, mem)
		fill(t, rel, 4, 24) // 6 blocks

		// Empty the whole second block and punch one more hole.
		require.NoError(t, rel.ReadBlocks(1, 0, 1))
		for i := 0; i < 4; i++ {
			require.NoError(t, rel.Memory().Slot(0).Invalidate(i))
		}
		require.NoError(t, rel.WriteBlocks(1, 0, 1))
		require.NoError(t, rel.ReadBlocks(4, 0, 1))
		require.NoError(t, rel.Memory().Slot(0).Invalidate(2))
		require.NoError(t, rel.WriteBlocks(4, 0, 1))

		before := contents(t, rel)
		require.Len(t, before, 19)

		require.NoError(t, s.Sort(rel, []string{"k"}))
		after := contents(t, rel)
		requireSorted(t, after, []int{0})
		require.Equal(t, multiset(before), multiset(after), "mem=%d", mem)
		require.Equal(t, 5, rel.BlockCount(), "mem=%d: 19 tuples pack into 5 blocks", mem)
		require.Equal(t, 19, rel.TupleCount())
	}
}

func TestSort_EmptyRelation(t *testing.T) {
	rel, s := newTestRelation(t, 3)
	require.NoError(t, s.Sort(rel, []string{"k"}))
	require.Equal(t, 0, rel.BlockCount())
}

func TestSort_ManyRunsMergeInExtraPasses(t *testing.T) {
	for _, n := range []int{28, 100} { // 7 and 25 blocks: 3 and 9 runs, 2 input slots
		small, s1 := newTestRelation(t, 3)
		large, s2 := newTestRelation(t, 32)
		fill(t, small, 5, n)
		fill(t, large, 5, n)
		blocks := small.BlockCount()
		before := contents(t, small)

		require.NoError(t, s1.Sort(small, []string{"s"}), "n=%d", n)
		require.NoError(t, s2.Sort(large, []string{"s"}))

		after := contents(t, small)
		requireSorted(t, after, []int{1, 0})
		require.Equal(t, multiset(before), multiset(after), "n=%d", n)
		require.Equal(t, contents(t, large), after, "n=%d", n)
		require.Equal(t, blocks, small.BlockCount(), "n=%d: staged runs are truncated away", n)
	}
}

func TestSort_TwoSlotsCannotMerge(t *testing.T) {
	rel, s := newTestRelation(t, 2)
	fill(t, rel, 6, 12) // 3 blocks -> 2 runs, 1 input slot
	require.ErrorIs(t, s.Sort(rel, []string{"k"}), ErrTooLarge)
}
