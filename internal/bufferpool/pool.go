package bufferpool

import (
	"errors"
	"fmt"

	"github.com/tuannm99/novaquery/internal/storage"
)

var (
	DefaultCapacity = 10

	ErrSlotOutOfRange = errors.New("bufferpool: slot out of range")
)

// Pool is main memory: a fixed number of block-sized slots addressed by index.
// There is no replacement policy. Algorithms decide which slots they use and
// clear them between phases.
type Pool struct {
	slots []*storage.Block
}

func NewPool(capacity int) *Pool {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	slots := make([]*storage.Block, capacity)
	for i := range slots {
		slots[i] = storage.NewBlock()
	}
	return &Pool{slots: slots}
}

func (p *Pool) Capacity() int { return len(p.slots) }

// Slot returns the block in slot i. It panics on a bad index, like a slice.
func (p *Pool) Slot(i int) *storage.Block { return p.slots[i] }

// CheckRange validates that [from, from+n) are addressable slots.
func (p *Pool) CheckRange(from, n int) error {
	if from < 0 || n < 0 || from+n > len(p.slots) {
		return fmt.Errorf("%w: [%d,%d) of %d", ErrSlotOutOfRange, from, from+n, len(p.slots))
	}
	return nil
}

// Clear empties every slot.
func (p *Pool) Clear() {
	for _, b := range p.slots {
		b.Clear()
	}
}

// ClearRange empties slots [from, from+n).
func (p *Pool) ClearRange(from, n int) {
	for i := from; i < from+n && i < len(p.slots); i++ {
		p.slots[i].Clear()
	}
}
