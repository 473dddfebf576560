// Package extsort orders a relation in place on disk using only the blocks of
// main memory. Relations that fit are sorted in one pass; larger ones are cut
// into sorted runs staged after the source blocks and merged k ways, in as
// many passes as the number of runs needs.
package extsort

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/tuannm99/novaquery/internal/bufferpool"
	"github.com/tuannm99/novaquery/internal/heap"
	"github.com/tuannm99/novaquery/internal/record"
	"github.com/tuannm99/novaquery/pkg/indexheap"
)

// ErrTooLarge is returned when memory is too small to merge runs at all.
var ErrTooLarge = errors.New("extsort: not enough memory blocks to merge runs")

type Pass int

const (
	OnePass Pass = iota + 1
	TwoPass
)

func (p Pass) String() string {
	if p == OnePass {
		return "one-pass"
	}
	return "two-pass"
}

type Sorter struct {
	mem *bufferpool.Pool
	log *slog.Logger
}

func New(mem *bufferpool.Pool, log *slog.Logger) *Sorter {
	if log == nil {
		log = slog.Default()
	}
	return &Sorter{mem: mem, log: log}
}

// Choose picks the pass for a relation of the given size.
func (s *Sorter) Choose(blocks int) Pass {
	if blocks <= s.mem.Capacity() {
		return OnePass
	}
	return TwoPass
}

// Keys resolves sort fields against schema and appends every remaining
// column, so equal keys still sort the same way in either pass.
func Keys(schema record.Schema, fields []string) ([]int, error) {
	used := make(map[int]bool, schema.NumCols())
	keys := make([]int, 0, schema.NumCols())
	for _, f := range fields {
		i := schema.Resolve(f)
		if i < 0 {
			return nil, fmt.Errorf("extsort: unknown sort field %q", f)
		}
		if used[i] {
			continue
		}
		used[i] = true
		keys = append(keys, i)
	}
	for i := 0; i < schema.NumCols(); i++ {
		if !used[i] {
			keys = append(keys, i)
		}
	}
	return keys, nil
}

// Sort orders rel by fields, primary first.
func (s *Sorter) Sort(rel *heap.Relation, fields []string) error {
	keys, err := Keys(rel.Schema(), fields)
	if err != nil {
		return err
	}
	pass := s.Choose(rel.BlockCount())
	s.log.Debug("extsort: sort", "relation", rel.Name(), "blocks", rel.BlockCount(), "pass", pass.String(), "fields", fields)
	if pass == OnePass {
		return s.OnePass(rel, keys)
	}
	return s.TwoPass(rel, keys)
}

func byKeys(keys []int) func(a, b record.Tuple) int {
	return func(a, b record.Tuple) int { return a.CompareOn(b, keys) }
}

// blockWriter appends tuples to one slot and writes it to consecutive disk
// blocks of rel as it fills.
type blockWriter struct {
	rel  *heap.Relation
	mem  *bufferpool.Pool
	slot int
	next int
}

func (w *blockWriter) add(t record.Tuple) error {
	b := w.mem.Slot(w.slot)
	if b.IsFull() {
		if err := w.flush(); err != nil {
			return err
		}
	}
	return b.Append(t)
}

func (w *blockWriter) flush() error {
	b := w.mem.Slot(w.slot)
	if b.IsEmpty() {
		return nil
	}
	if err := w.rel.WriteBlocks(w.next, w.slot, 1); err != nil {
		return err
	}
	w.next++
	b.Clear()
	return nil
}

// offerBlocks pushes copies of the valid tuples in slots [from, from+n).
func (s *Sorter) offerBlocks(h *indexheap.Heap[record.Tuple], from, n int) {
	for i := from; i < from+n; i++ {
		for _, t := range s.mem.Slot(i).Tuples() {
			if !t.Invalid {
				h.Offer(t.Clone())
			}
		}
	}
}

// OnePass loads the whole relation, heap-sorts it and rewrites it from block
// 0, dropping holes.
func (s *Sorter) OnePass(rel *heap.Relation, keys []int) error {
	n := rel.BlockCount()
	if n == 0 {
		return nil
	}
	if n > s.mem.Capacity() {
		return fmt.Errorf("extsort: one pass over %d blocks with %d in memory", n, s.mem.Capacity())
	}
	if err := rel.ReadBlocks(0, 0, n); err != nil {
		return err
	}
	h := indexheap.New(byKeys(keys))
	s.offerBlocks(h, 0, n)
	s.mem.ClearRange(0, n)

	w := &blockWriter{rel: rel, mem: s.mem, slot: 0}
	for h.Len() > 0 {
		t, _ := h.Poll()
		if err := w.add(t); err != nil {
			return err
		}
	}
	if err := w.flush(); err != nil {
		return err
	}
	return rel.Truncate(w.next)
}

type runEntry struct {
	t   record.Tuple
	run int // index of the run the tuple came from
}

// run is a sorted stretch of disk blocks.
type run struct {
	start, blocks int
}

// TwoPass sorts runs of Capacity blocks, stages them after the source blocks
// and merges them back into the front of the relation. When there are more
// runs than input slots, groups of Capacity-1 runs are first merged into
// longer runs further down the disk.
func (s *Sorter) TwoPass(rel *heap.Relation, keys []int) error {
	n := rel.BlockCount()
	m := s.mem.Capacity()
	count := (n + m - 1) / m
	if count > 1 && m < 3 {
		return fmt.Errorf("%w: %d runs, %d slots", ErrTooLarge, count, m)
	}

	// Phase 1: run creation.
	runs := make([]run, 0, count)
	for r := 0; r < count; r++ {
		start := r * m
		cnt := min(m, n-start)
		if err := rel.ReadBlocks(start, 0, cnt); err != nil {
			return err
		}
		h := indexheap.New(byKeys(keys))
		s.offerBlocks(h, 0, cnt)
		s.mem.ClearRange(0, cnt)

		slot := 0
		for h.Len() > 0 {
			t, _ := h.Poll()
			if s.mem.Slot(slot).IsFull() {
				slot++
			}
			if err := s.mem.Slot(slot).Append(t); err != nil {
				return err
			}
		}
		// Trailing slots stay empty and land on disk as holes of this run.
		if err := rel.WriteBlocks(n+start, 0, cnt); err != nil {
			return err
		}
		s.mem.ClearRange(0, cnt)
		runs = append(runs, run{start: n + start, blocks: cnt})
	}

	// Phase 2: merge down to Capacity-1 runs.
	passes := 1
	for len(runs) > m-1 {
		end := rel.BlockCount()
		merged := make([]run, 0, (len(runs)+m-2)/(m-1))
		for i := 0; i < len(runs); i += m - 1 {
			written, err := s.merge(rel, keys, runs[i:min(i+m-1, len(runs))], end)
			if err != nil {
				return err
			}
			merged = append(merged, run{start: end, blocks: written})
			end += written
		}
		runs = merged
		passes++
	}

	// Phase 3: final merge into the front, then drop the staged runs.
	written, err := s.merge(rel, keys, runs, 0)
	if err != nil {
		return err
	}
	s.log.Debug("extsort: merged", "relation", rel.Name(), "runs", count, "merge_passes", passes)
	return rel.Truncate(written)
}

// merge k-way merges runs, reading run i through slot i and writing through
// the last slot to consecutive blocks from dst. It returns the number of
// blocks written.
func (s *Sorter) merge(rel *heap.Relation, keys []int, runs []run, dst int) (int, error) {
	cmp := byKeys(keys)
	h := indexheap.New(func(a, b runEntry) int {
		if c := cmp(a.t, b.t); c != 0 {
			return c
		}
		return a.run - b.run
	})
	remaining := make([]int, len(runs))
	next := make([]int, len(runs))

	load := func(r int) error {
		for remaining[r] == 0 && next[r] < runs[r].blocks {
			if err := rel.ReadBlocks(runs[r].start+next[r], r, 1); err != nil {
				return err
			}
			for _, t := range s.mem.Slot(r).Tuples() {
				if t.Invalid {
					continue
				}
				h.Offer(runEntry{t: t.Clone(), run: r})
				remaining[r]++
			}
			next[r]++
		}
		return nil
	}
	for r := range runs {
		if err := load(r); err != nil {
			return 0, err
		}
	}

	last := s.mem.Capacity() - 1
	w := &blockWriter{rel: rel, mem: s.mem, slot: last, next: dst}
	s.mem.Slot(last).Clear()
	for h.Len() > 0 {
		e, _ := h.Poll()
		if err := w.add(e.t); err != nil {
			return 0, err
		}
		remaining[e.run]--
		if remaining[e.run] == 0 {
			if err := load(e.run); err != nil {
				return 0, err
			}
		}
	}
	if err := w.flush(); err != nil {
		return 0, err
	}
	s.mem.Clear()
	return w.next - dst, nil
}
