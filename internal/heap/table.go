package heap

import (
	"fmt"

	"github.com/tuannm99/novaquery/internal/bufferpool"
	"github.com/tuannm99/novaquery/internal/record"
	"github.com/tuannm99/novaquery/internal/storage"
)

// Relation is a named sequence of blocks on disk with a fixed schema.
// Every transfer goes through a main-memory slot chosen by the caller.
type Relation struct {
	name   string
	schema record.Schema
	disk   *storage.Disk
	mem    *bufferpool.Pool
}

func NewRelation(name string, schema record.Schema, disk *storage.Disk, mem *bufferpool.Pool) *Relation {
	disk.Create(name)
	return &Relation{name: name, schema: schema, disk: disk, mem: mem}
}

func (r *Relation) Name() string             { return r.name }
func (r *Relation) Schema() record.Schema    { return r.schema }
func (r *Relation) Memory() *bufferpool.Pool { return r.mem }
func (r *Relation) BlockCount() int          { return r.disk.BlockCount(r.name) }
func (r *Relation) TupleCount() int          { return r.disk.TupleCount(r.name) }

// TuplesPerBlock is the block capacity for this relation's width.
func (r *Relation) TuplesPerBlock() int { return storage.TuplesPerBlock(r.schema.NumCols()) }

// ReadBlocks loads count blocks starting at disk block start into slots
// [slot, slot+count).
func (r *Relation) ReadBlocks(start, slot, count int) error {
	if err := r.mem.CheckRange(slot, count); err != nil {
		return err
	}
	for i := 0; i < count; i++ {
		if err := r.disk.ReadBlock(r.name, start+i, r.mem.Slot(slot+i)); err != nil {
			return fmt.Errorf("heap: read %s block %d: %w", r.name, start+i, err)
		}
	}
	return nil
}

// WriteBlocks stores slots [slot, slot+count) at disk blocks starting at start.
func (r *Relation) WriteBlocks(start, slot, count int) error {
	if err := r.mem.CheckRange(slot, count); err != nil {
		return err
	}
	for i := 0; i < count; i++ {
		if err := r.disk.WriteBlock(r.name, start+i, r.mem.Slot(slot+i)); err != nil {
			return fmt.Errorf("heap: write %s block %d: %w", r.name, start+i, err)
		}
	}
	return nil
}

func (r *Relation) Truncate(blocks int) error {
	return r.disk.Truncate(r.name, blocks)
}

// AppendTuple adds t after the last tuple, reusing the last block when it has
// room. slot is the scratch slot used for the transfer.
func (r *Relation) AppendTuple(slot int, t record.Tuple) error {
	if t.Width() != r.schema.NumCols() {
		return fmt.Errorf("heap: %s expects %d fields, got %d", r.name, r.schema.NumCols(), t.Width())
	}
	if err := r.mem.CheckRange(slot, 1); err != nil {
		return err
	}
	b := r.mem.Slot(slot)
	n := r.BlockCount()
	target := n
	if n > 0 {
		if err := r.ReadBlocks(n-1, slot, 1); err != nil {
			return err
		}
		if b.IsFull() {
			b.Clear()
		} else {
			target = n - 1
		}
	} else {
		b.Clear()
	}
	if err := b.Append(t); err != nil {
		return err
	}
	return r.WriteBlocks(target, slot, 1)
}

// Scan calls fn for every valid tuple, one block at a time through slot.
// The tuple passed to fn is only valid for the duration of the call.
func (r *Relation) Scan(slot int, fn func(id TID, t record.Tuple) error) error {
	for blk := 0; blk < r.BlockCount(); blk++ {
		if err := r.ReadBlocks(blk, slot, 1); err != nil {
			return err
		}
		for i, t := range r.mem.Slot(slot).Tuples() {
			if t.Invalid {
				continue
			}
			if err := fn(TID{Block: blk, Slot: i}, t); err != nil {
				return err
			}
		}
	}
	return nil
}

// DeleteWhere invalidates every valid tuple for which match returns true and
// writes back only the blocks it touched. Holes stay in place.
func (r *Relation) DeleteWhere(slot int, match func(t record.Tuple) (bool, error)) (int, error) {
	deleted := 0
	for blk := 0; blk < r.BlockCount(); blk++ {
		if err := r.ReadBlocks(blk, slot, 1); err != nil {
			return deleted, err
		}
		b := r.mem.Slot(slot)
		dirty := false
		for i, t := range b.Tuples() {
			if t.Invalid {
				continue
			}
			ok, err := match(t)
			if err != nil {
				return deleted, err
			}
			if !ok {
				continue
			}
			if err := b.Invalidate(i); err != nil {
				return deleted, err
			}
			dirty = true
			deleted++
		}
		if dirty {
			if err := r.WriteBlocks(blk, slot, 1); err != nil {
				return deleted, err
			}
		}
	}
	return deleted, nil
}

// Drop removes the relation's blocks from disk.
func (r *Relation) Drop() { r.disk.Drop(r.name) }
