// Package join combines relations: sort-merge for natural joins, block nested
// loops for cross products, an in-memory fold when everything fits, and a
// permutation search for the order of multi-way joins.
package join

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/tuannm99/novaquery/internal/bufferpool"
	"github.com/tuannm99/novaquery/internal/catalog"
	"github.com/tuannm99/novaquery/internal/extsort"
	"github.com/tuannm99/novaquery/internal/heap"
	"github.com/tuannm99/novaquery/internal/record"
	"github.com/tuannm99/novaquery/internal/sqlerr"
	"github.com/tuannm99/novaquery/internal/storage"
)

// MinMemory is the smallest buffer the join algorithms run in: one slot per
// input cursor plus one output slot.
const MinMemory = 3

type Engine struct {
	cat    *catalog.Catalog
	mem    *bufferpool.Pool
	sorter *extsort.Sorter
	log    *slog.Logger
}

func New(cat *catalog.Catalog, mem *bufferpool.Pool, sorter *extsort.Sorter, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{cat: cat, mem: mem, sorter: sorter, log: log}
}

func (e *Engine) checkMemory() error {
	if e.mem.Capacity() < MinMemory {
		return fmt.Errorf("join: need %d memory blocks, have %d", MinMemory, e.mem.Capacity())
	}
	return nil
}

// output opens a temporary for the join of left and right.
func (e *Engine) output(left, right Input) (Input, *outWriter, error) {
	schema, err := JoinedSchema(left, right)
	if err != nil {
		return Input{}, nil, err
	}
	rel, err := e.cat.CreateTemp("join", schema)
	if err != nil {
		return Input{}, nil, err
	}
	tables := append(slices.Clone(left.Tables), right.Tables...)
	out := Input{Rel: rel, Tables: tables}
	return out, &outWriter{rel: rel, mem: e.mem, slot: e.mem.Capacity() - 1}, nil
}

// outWriter appends joined tuples through one slot.
type outWriter struct {
	rel  *heap.Relation
	mem  *bufferpool.Pool
	slot int
	next int
}

func (w *outWriter) emit(a, b record.Tuple) error {
	t, ok, err := Concat(a, b)
	if err != nil || !ok {
		return err
	}
	return w.append(t)
}

func (w *outWriter) append(t record.Tuple) error {
	blk := w.mem.Slot(w.slot)
	if blk.IsFull() {
		if err := w.flush(); err != nil {
			return err
		}
	}
	return blk.Append(t)
}

func (w *outWriter) flush() error {
	blk := w.mem.Slot(w.slot)
	if blk.IsEmpty() {
		return nil
	}
	if err := w.rel.WriteBlocks(w.next, w.slot, 1); err != nil {
		return err
	}
	w.next++
	blk.Clear()
	return nil
}

// cursor reads a relation one block at a time through a single slot,
// skipping holes and, when keys is set, tuples equal to the previous one.
type cursor struct {
	rel    *heap.Relation
	mem    *bufferpool.Pool
	slot   int
	blk    int
	pos    int
	loaded bool
	keys   []int
	prev   *record.Tuple
}

func (c *cursor) peek() (record.Tuple, bool, error) {
	for {
		b := c.mem.Slot(c.slot)
		if !c.loaded || c.pos >= b.TupleCount() {
			if c.blk >= c.rel.BlockCount() {
				return record.Tuple{}, false, nil
			}
			if err := c.rel.ReadBlocks(c.blk, c.slot, 1); err != nil {
				return record.Tuple{}, false, err
			}
			c.blk++
			c.pos = 0
			c.loaded = true
			continue
		}
		t := b.Tuples()[c.pos]
		if t.Invalid || (c.keys != nil && c.prev != nil && t.EqualOn(*c.prev, c.keys)) {
			c.pos++
			continue
		}
		return t, true, nil
	}
}

// advance moves past the tuple last returned by peek.
func (c *cursor) advance() {
	t := c.mem.Slot(c.slot).Tuples()[c.pos].Clone()
	c.prev = &t
	c.pos++
}

// Natural sort-merges left and right on cond.Field.
func (e *Engine) Natural(left, right Input, cond Cond) (Input, error) {
	if err := e.checkMemory(); err != nil {
		return Input{}, err
	}
	if left.covers(cond.Right) && right.covers(cond.Left) {
		cond.Left, cond.Right = cond.Right, cond.Left
	}
	if !left.covers(cond.Left) || !right.covers(cond.Right) {
		return Input{}, fmt.Errorf("join: condition %s does not link %v and %v", cond.Node, left.Tables, right.Tables)
	}
	out, w, err := e.output(left, right)
	if err != nil {
		return Input{}, err
	}
	if err := e.natural(left, right, cond, w); err != nil {
		e.cat.Release(out.Rel.Name())
		return Input{}, err
	}
	e.log.Debug("join: natural", "left", left.Rel.Name(), "right", right.Rel.Name(),
		"field", cond.Field, "out", out.Rel.Name(), "tuples", out.Rel.TupleCount())
	return out, nil
}

func (e *Engine) natural(left, right Input, cond Cond, w *outWriter) error {
	lref := cond.Left + "." + cond.Field
	rref := cond.Right + "." + cond.Field

	lk := left.Rel.Schema().Resolve(lref)
	rk := right.Rel.Schema().Resolve(rref)
	if lk < 0 || rk < 0 {
		return fmt.Errorf("join: key %s/%s not found", lref, rref)
	}

	// Sorting on the key first and the distinct attributes next keeps
	// duplicates adjacent inside each key group.
	if err := e.sorter.Sort(left.Rel, append([]string{lref}, left.Distinct...)); err != nil {
		return err
	}
	if err := e.sorter.Sort(right.Rel, append([]string{rref}, right.Distinct...)); err != nil {
		return err
	}

	lkeys, err := left.dedupKeys()
	if err != nil {
		return err
	}
	rkeys, err := right.dedupKeys()
	if err != nil {
		return err
	}
	lc := &cursor{rel: left.Rel, mem: e.mem, slot: 0, keys: lkeys}
	rc := &cursor{rel: right.Rel, mem: e.mem, slot: 1, keys: rkeys}
	e.mem.Slot(w.slot).Clear()

	group := func(c *cursor, k int, key record.Field) ([]record.Tuple, error) {
		var g []record.Tuple
		for {
			t, ok, err := c.peek()
			if err != nil {
				return nil, err
			}
			if !ok || !t.Fields[k].Equal(key) {
				return g, nil
			}
			g = append(g, t.Clone())
			c.advance()
		}
	}

	for {
		lt, lok, err := lc.peek()
		if err != nil {
			return err
		}
		rt, rok, err := rc.peek()
		if err != nil {
			return err
		}
		if !lok || !rok {
			break
		}
		switch c := lt.Fields[lk].Compare(rt.Fields[rk]); {
		case c < 0:
			lc.advance()
			continue
		case c > 0:
			rc.advance()
			continue
		}

		key := lt.Fields[lk]
		lg, err := group(lc, lk, key)
		if err != nil {
			return err
		}
		rg, err := group(rc, rk, key)
		if err != nil {
			return err
		}
		if !key.IsValid() {
			// absent values never match
			continue
		}
		for _, a := range lg {
			for _, b := range rg {
				if err := w.emit(a, b); err != nil {
					return err
				}
			}
		}
	}
	return w.flush()
}

// Cross is a block nested loop join. The smaller side is buffered in chunks
// of Capacity-2 blocks; the other side streams through one slot per chunk.
func (e *Engine) Cross(left, right Input) (Input, error) {
	if err := e.checkMemory(); err != nil {
		return Input{}, err
	}
	out, w, err := e.output(left, right)
	if err != nil {
		return Input{}, err
	}
	if err := e.cross(left, right, w); err != nil {
		e.cat.Release(out.Rel.Name())
		return Input{}, err
	}
	e.log.Debug("join: cross", "left", left.Rel.Name(), "right", right.Rel.Name(),
		"out", out.Rel.Name(), "tuples", out.Rel.TupleCount())
	return out, nil
}

func (e *Engine) cross(left, right Input, w *outWriter) error {
	build, probe := left, right
	buildIsLeft := true
	if right.Rel.BlockCount() < left.Rel.BlockCount() {
		build, probe = right, left
		buildIsLeft = false
	}
	bkeys, err := build.dedupKeys()
	if err != nil {
		return err
	}
	pkeys, err := probe.dedupKeys()
	if err != nil {
		return err
	}

	m := e.mem.Capacity()
	chunk := m - 2
	probeSlot := m - 2
	e.mem.Slot(w.slot).Clear()

	var prev *record.Tuple
	for start := 0; start < build.Rel.BlockCount(); start += chunk {
		n := min(chunk, build.Rel.BlockCount()-start)
		if err := build.Rel.ReadBlocks(start, 0, n); err != nil {
			return err
		}
		var buf []record.Tuple
		for i := 0; i < n; i++ {
			for _, t := range e.mem.Slot(i).Tuples() {
				if t.Invalid || (bkeys != nil && prev != nil && t.EqualOn(*prev, bkeys)) {
					continue
				}
				c := t.Clone()
				buf = append(buf, c)
				prev = &c
			}
		}
		if len(buf) == 0 {
			continue
		}

		p := &cursor{rel: probe.Rel, mem: e.mem, slot: probeSlot, keys: pkeys}
		for {
			pt, ok, err := p.peek()
			if err != nil {
				return err
			}
			if !ok {
				break
			}
			pt = pt.Clone()
			p.advance()
			for _, bt := range buf {
				if buildIsLeft {
					err = w.emit(bt, pt)
				} else {
					err = w.emit(pt, bt)
				}
				if err != nil {
					return err
				}
			}
		}
	}
	return w.flush()
}

// InMemory loads every input into memory and folds them left to right.
// The caller must check that the summed block count fits.
func (e *Engine) InMemory(inputs []Input) (Input, error) {
	total := 0
	for _, in := range inputs {
		total += in.Rel.BlockCount()
	}
	if total > e.mem.Capacity() {
		return Input{}, fmt.Errorf("join: %d blocks do not fit in %d", total, e.mem.Capacity())
	}

	lists := make([][]record.Tuple, len(inputs))
	slot := 0
	for i, in := range inputs {
		keys, err := in.dedupKeys()
		if err != nil {
			return Input{}, err
		}
		n := in.Rel.BlockCount()
		if err := in.Rel.ReadBlocks(0, slot, n); err != nil {
			return Input{}, err
		}
		var prev *record.Tuple
		for s := slot; s < slot+n; s++ {
			for _, t := range e.mem.Slot(s).Tuples() {
				if t.Invalid || (keys != nil && prev != nil && t.EqualOn(*prev, keys)) {
					continue
				}
				c := t.Clone()
				lists[i] = append(lists[i], c)
				prev = &c
			}
		}
		slot += n
	}
	e.mem.Clear()

	schema := inputs[0].qualified()
	tables := slices.Clone(inputs[0].Tables)
	rows := lists[0]
	for i := 1; i < len(inputs); i++ {
		schema = schema.Concat(inputs[i].qualified())
		if w := schema.NumCols(); w > storage.FieldsPerBlock {
			return Input{}, sqlerr.RowTooWide(w, storage.FieldsPerBlock)
		}
		tables = append(tables, inputs[i].Tables...)

		next := make([]record.Tuple, 0, len(rows)*len(lists[i]))
		for _, a := range rows {
			for _, b := range lists[i] {
				t, ok, err := Concat(a, b)
				if err != nil {
					return Input{}, err
				}
				if ok {
					next = append(next, t)
				}
			}
		}
		rows = next
	}

	rel, err := e.cat.CreateTemp("join", schema)
	if err != nil {
		return Input{}, err
	}
	w := &outWriter{rel: rel, mem: e.mem, slot: 0}
	for _, t := range rows {
		if err := w.append(t); err != nil {
			e.cat.Release(rel.Name())
			return Input{}, err
		}
	}
	if err := w.flush(); err != nil {
		e.cat.Release(rel.Name())
		return Input{}, err
	}
	e.log.Debug("join: in memory", "inputs", len(inputs), "out", rel.Name(), "tuples", len(rows))
	return Input{Rel: rel, Tables: tables}, nil
}
