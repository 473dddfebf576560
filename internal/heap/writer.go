package heap

import "github.com/tuannm99/novaquery/internal/record"

// Writer appends tuples after the current end of a relation, filling one
// slot and writing each block once. Close writes the last partial block.
type Writer struct {
	rel  *Relation
	slot int
	next int
	n    int
}

func (r *Relation) NewWriter(slot int) *Writer {
	r.mem.Slot(slot).Clear()
	return &Writer{rel: r, slot: slot, next: r.BlockCount()}
}

func (w *Writer) Append(t record.Tuple) error {
	b := w.rel.mem.Slot(w.slot)
	if b.IsFull() {
		if err := w.flush(); err != nil {
			return err
		}
	}
	if err := b.Append(t); err != nil {
		return err
	}
	w.n++
	return nil
}

// Count is the number of tuples appended so far.
func (w *Writer) Count() int { return w.n }

func (w *Writer) Close() error { return w.flush() }

func (w *Writer) flush() error {
	b := w.rel.mem.Slot(w.slot)
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
