package catalog

import (
	"fmt"
	"log/slog"

	"github.com/google/btree"

	"github.com/tuannm99/novaquery/internal/bufferpool"
	"github.com/tuannm99/novaquery/internal/heap"
	locking "github.com/tuannm99/novaquery/internal/lock"
	"github.com/tuannm99/novaquery/internal/record"
	"github.com/tuannm99/novaquery/internal/sqlerr"
	"github.com/tuannm99/novaquery/internal/storage"
)

// tempMark starts every temporary name. It cannot appear in an identifier,
// so temporaries never collide with user tables.
const tempMark = "~"

type entry struct {
	name string
	rel  *heap.Relation
	temp bool
	refs *locking.RefCount
}

func byName(a, b *entry) bool { return a.name < b.name }

// TableMeta describes a user relation for listings.
type TableMeta struct {
	Name    string          `json:"name"`
	Columns []record.Column `json:"columns"`
	Blocks  int             `json:"blocks"`
	Tuples  int             `json:"tuples"`
}

// Catalog maps relation names to relations, ordered by name.
type Catalog struct {
	disk *storage.Disk
	mem  *bufferpool.Pool
	tree *btree.BTreeG[*entry]
	seq  int
	log  *slog.Logger
}

func New(disk *storage.Disk, mem *bufferpool.Pool, log *slog.Logger) *Catalog {
	if log == nil {
		log = slog.Default()
	}
	return &Catalog{
		disk: disk,
		mem:  mem,
		tree: btree.NewG(8, byName),
		log:  log,
	}
}

func (c *Catalog) lookup(name string) (*entry, bool) {
	return c.tree.Get(&entry{name: name})
}

// Create registers a user relation.
func (c *Catalog) Create(name string, schema record.Schema) (*heap.Relation, error) {
	if _, ok := c.lookup(name); ok {
		return nil, sqlerr.DuplicateRelation(name)
	}
	if w := schema.NumCols(); w > storage.FieldsPerBlock {
		return nil, sqlerr.RowTooWide(w, storage.FieldsPerBlock)
	}
	rel := heap.NewRelation(name, schema, c.disk, c.mem)
	c.tree.ReplaceOrInsert(&entry{name: name, rel: rel})
	return rel, nil
}

// CreateTemp registers a refcounted temporary. The caller holds one reference
// and must Release it.
func (c *Catalog) CreateTemp(label string, schema record.Schema) (*heap.Relation, error) {
	if w := schema.NumCols(); w > storage.FieldsPerBlock {
		return nil, sqlerr.RowTooWide(w, storage.FieldsPerBlock)
	}
	var name string
	for {
		c.seq++
		name = fmt.Sprintf("%s%d_%s", tempMark, c.seq, label)
		if _, taken := c.lookup(name); !taken {
			break
		}
	}
	rel := heap.NewRelation(name, schema, c.disk, c.mem)
	c.tree.ReplaceOrInsert(&entry{name: name, rel: rel, temp: true, refs: locking.NewRefCount()})
	c.log.Debug("catalog: temp created", "name", name, "schema", schema.String())
	return rel, nil
}

// Retain adds a reference to a temporary. It is a no-op for user relations.
func (c *Catalog) Retain(name string) {
	if e, ok := c.lookup(name); ok && e.temp {
		e.refs.Retain()
	}
}

// Release drops a reference to a temporary and deletes it at zero.
// User relations are never released.
func (c *Catalog) Release(name string) {
	e, ok := c.lookup(name)
	if !ok || !e.temp {
		return
	}
	if e.refs.Release() {
		c.remove(e)
		c.log.Debug("catalog: temp released", "name", name)
	}
}

// Drop deletes a relation regardless of references.
func (c *Catalog) Drop(name string) error {
	e, ok := c.lookup(name)
	if !ok {
		return sqlerr.UnknownRelation(name)
	}
	c.remove(e)
	return nil
}

func (c *Catalog) remove(e *entry) {
	c.tree.Delete(e)
	e.rel.Drop()
}

func (c *Catalog) Get(name string) (*heap.Relation, bool) {
	e, ok := c.lookup(name)
	if !ok {
		return nil, false
	}
	return e.rel, true
}

// MustGet is Get with an UnknownRelation error.
func (c *Catalog) MustGet(name string) (*heap.Relation, error) {
	rel, ok := c.Get(name)
	if !ok {
		return nil, sqlerr.UnknownRelation(name)
	}
	return rel, nil
}

func (c *Catalog) Exists(name string) bool {
	_, ok := c.lookup(name)
	return ok
}

func IsTemp(name string) bool { return len(name) > 0 && name[:1] == tempMark }

// Names lists user relations in order.
func (c *Catalog) Names() []string {
	var out []string
	c.tree.Ascend(func(e *entry) bool {
		if !e.temp {
			out = append(out, e.name)
		}
		return true
	})
	return out
}

// Tables describes every user relation.
func (c *Catalog) Tables() []TableMeta {
	var out []TableMeta
	c.tree.Ascend(func(e *entry) bool {
		if e.temp {
			return true
		}
		out = append(out, TableMeta{
			Name:    e.name,
			Columns: e.rel.Schema().Cols,
			Blocks:  e.rel.BlockCount(),
			Tuples:  e.rel.TupleCount(),
		})
		return true
	})
	return out
}

// Temps counts live temporaries.
func (c *Catalog) Temps() int {
	n := 0
	c.tree.Ascend(func(e *entry) bool {
		if e.temp {
			n++
		}
		return true
	})
	return n
}
