package storage

// Stats counts block transfers between Disk and memory.
type Stats struct {
	Reads      int64
	Writes     int64
	ReadBytes  int64
	WriteBytes int64
}

func (s Stats) IOs() int64   { return s.Reads + s.Writes }
func (s Stats) Bytes() int64 { return s.ReadBytes + s.WriteBytes }

// Sub returns the transfers made since prev.
func (s Stats) Sub(prev Stats) Stats {
	return Stats{
		Reads:      s.Reads - prev.Reads,
		Writes:     s.Writes - prev.Writes,
		ReadBytes:  s.ReadBytes - prev.ReadBytes,
		WriteBytes: s.WriteBytes - prev.WriteBytes,
	}
}

// Disk is the simulated block store. Each relation owns an ordered sequence
// of encoded blocks; every ReadBlock and WriteBlock is one counted transfer.
//
// Disk is not safe for concurrent use; statements run one at a time.
type Disk struct {
	files map[string][][]byte
	stats Stats
}

func NewDisk() *Disk {
	return &Disk{files: make(map[string][][]byte)}
}

func (d *Disk) Stats() Stats { return d.stats }

// Create registers an empty block sequence under name.
func (d *Disk) Create(name string) {
	if _, ok := d.files[name]; !ok {
		d.files[name] = nil
	}
}

func (d *Disk) Drop(name string) { delete(d.files, name) }

func (d *Disk) Exists(name string) bool {
	_, ok := d.files[name]
	return ok
}

func (d *Disk) BlockCount(name string) int { return len(d.files[name]) }

// TupleCount sums the valid-tuple header of every block without charging I/O.
func (d *Disk) TupleCount(name string) int {
	n := 0
	for _, raw := range d.files[name] {
		if len(raw) >= 2 {
			n += int(raw[1])
		}
	}
	return n
}

// ReadBlock decodes block idx of name into dst.
func (d *Disk) ReadBlock(name string, idx int, dst *Block) error {
	blocks, ok := d.files[name]
	if !ok {
		return ErrNoRelation
	}
	if idx < 0 || idx >= len(blocks) {
		return ErrBlockOutOfRange
	}
	raw := blocks[idx]
	if err := dst.decode(raw); err != nil {
		return err
	}
	d.stats.Reads++
	d.stats.ReadBytes += int64(len(raw))
	return nil
}

// WriteBlock encodes src at position idx. Writing past the end pads the gap
// with empty blocks.
func (d *Disk) WriteBlock(name string, idx int, src *Block) error {
	blocks, ok := d.files[name]
	if !ok {
		return ErrNoRelation
	}
	if idx < 0 {
		return ErrBlockOutOfRange
	}
	raw, err := src.encode()
	if err != nil {
		return err
	}
	for len(blocks) <= idx {
		blocks = append(blocks, []byte{0, 0})
	}
	blocks[idx] = raw
	d.files[name] = blocks
	d.stats.Writes++
	d.stats.WriteBytes += int64(len(raw))
	return nil
}

// Truncate keeps the first n blocks of name.
func (d *Disk) Truncate(name string, n int) error {
	blocks, ok := d.files[name]
	if !ok {
		return ErrNoRelation
	}
	if n < 0 {
		n = 0
	}
	if n < len(blocks) {
		clear(blocks[n:])
		d.files[name] = blocks[:n]
	}
	return nil
}
