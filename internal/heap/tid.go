package heap

// TID (Tuple ID) locates a tuple on disk:
// Block: block index inside the relation
// Slot : tuple slot inside the block
type TID struct {
	Block int
	Slot  int
}
