package storage

import "errors"

// FieldsPerBlock is the number of field slots in one block. A block of a
// relation whose tuples have w fields holds FieldsPerBlock / w tuples.
const FieldsPerBlock = 8

var (
	ErrBlockFull       = errors.New("storage: block is full")
	ErrWidthMismatch   = errors.New("storage: tuple width differs from block")
	ErrBlockOutOfRange = errors.New("storage: block index out of range")
	ErrNoRelation      = errors.New("storage: relation has no blocks on disk")
)

// TuplesPerBlock returns how many tuples of the given width fit in a block.
func TuplesPerBlock(width int) int {
	if width <= 0 || width > FieldsPerBlock {
		return 0
	}
	return FieldsPerBlock / width
}
