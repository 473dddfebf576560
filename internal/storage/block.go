package storage

import (
	"fmt"

	"github.com/tuannm99/novaquery/internal/record"
	"github.com/tuannm99/novaquery/internal/sqlerr"
)

// Block is the unit of disk transfer. Holes left by Invalidate keep their slot
// until the block is rewritten by a sort or a truncate.
type Block struct {
	width  int
	tuples []record.Tuple
}

func NewBlock() *Block { return &Block{} }

// Width is the field count of the tuples currently held, 0 when empty.
func (b *Block) Width() int { return b.width }

func (b *Block) IsEmpty() bool { return len(b.tuples) == 0 }

func (b *Block) IsFull() bool {
	return b.width > 0 && len(b.tuples) >= TuplesPerBlock(b.width)
}

// TupleCount counts slots, holes included.
func (b *Block) TupleCount() int { return len(b.tuples) }

// ValidCount counts slots that are not holes.
func (b *Block) ValidCount() int {
	n := 0
	for i := range b.tuples {
		if !b.tuples[i].Invalid {
			n++
		}
	}
	return n
}

// Append copies t into the block.
func (b *Block) Append(t record.Tuple) error {
	w := t.Width()
	if w > FieldsPerBlock {
		return sqlerr.RowTooWide(w, FieldsPerBlock)
	}
	if w == 0 {
		return fmt.Errorf("storage: cannot append a tuple without fields")
	}
	if b.width != 0 && b.width != w {
		return ErrWidthMismatch
	}
	if b.IsFull() {
		return ErrBlockFull
	}
	b.width = w
	b.tuples = append(b.tuples, t.Clone())
	return nil
}

func (b *Block) Clear() {
	b.width = 0
	b.tuples = b.tuples[:0]
}

// Tuples exposes the held slots. Callers must Clone before keeping one past
// the next Clear or load of this block.
func (b *Block) Tuples() []record.Tuple { return b.tuples }

func (b *Block) Invalidate(i int) error {
	if i < 0 || i >= len(b.tuples) {
		return ErrBlockOutOfRange
	}
	b.tuples[i].Invalid = true
	return nil
}

// encode layout: [count u8] [valid u8] then count encoded tuples.
func (b *Block) encode() ([]byte, error) {
	out := []byte{byte(len(b.tuples)), byte(b.ValidCount())}
	var err error
	for _, t := range b.tuples {
		if out, err = record.AppendTuple(out, t); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (b *Block) decode(buf []byte) error {
	b.Clear()
	if len(buf) < 2 {
		return record.ErrBadBuffer
	}
	n := int(buf[0])
	off := 2
	for i := 0; i < n; i++ {
		t, used, err := record.DecodeTuple(buf[off:])
		if err != nil {
			return err
		}
		off += used
		b.width = t.Width()
		b.tuples = append(b.tuples, t)
	}
	return nil
}
