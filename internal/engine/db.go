package engine

import (
	"errors"
	"log/slog"

	"github.com/tuannm99/novaquery/internal/bufferpool"
	"github.com/tuannm99/novaquery/internal/catalog"
	"github.com/tuannm99/novaquery/internal/extsort"
	"github.com/tuannm99/novaquery/internal/heap"
	"github.com/tuannm99/novaquery/internal/join"
	"github.com/tuannm99/novaquery/internal/record"
	"github.com/tuannm99/novaquery/internal/sqlerr"
	"github.com/tuannm99/novaquery/internal/storage"
)

var ErrDatabaseClosed = errors.New("novaquery: database is closed")

type DatabaseOperation interface {
	CreateTable(name string, schema record.Schema) (*heap.Relation, error)
	OpenTable(name string) (*heap.Relation, error)
	DropTable(name string) error
	Close() error
}

var _ DatabaseOperation = (*Database)(nil)

type Options struct {
	// MemoryBlocks is the number of buffer slots; DefaultCapacity when zero.
	MemoryBlocks int
	Logger       *slog.Logger
}

// Database is one simulated disk, its buffer and its catalog. It is not safe
// for concurrent use; callers serialize statements.
type Database struct {
	disk   *storage.Disk
	mem    *bufferpool.Pool
	cat    *catalog.Catalog
	sorter *extsort.Sorter
	joins  *join.Engine
	log    *slog.Logger
	closed bool
}

// NewDatabase creates an empty database.
func NewDatabase(opts Options) *Database {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	blocks := opts.MemoryBlocks
	if blocks <= 0 {
		blocks = bufferpool.DefaultCapacity
	}
	if blocks < join.MinMemory {
		log.Warn("memory too small, raising", "requested", blocks, "blocks", join.MinMemory)
		blocks = join.MinMemory
	}
	disk := storage.NewDisk()
	mem := bufferpool.NewPool(blocks)
	cat := catalog.New(disk, mem, log)
	sorter := extsort.New(mem, log)
	return &Database{
		disk:   disk,
		mem:    mem,
		cat:    cat,
		sorter: sorter,
		joins:  join.New(cat, mem, sorter, log),
		log:    log,
	}
}

func (db *Database) CreateTable(name string, schema record.Schema) (*heap.Relation, error) {
	if db.closed {
		return nil, ErrDatabaseClosed
	}
	rel, err := db.cat.Create(name, schema)
	if err != nil {
		return nil, err
	}
	db.log.Info("create table", "name", name, "schema", schema.String())
	return rel, nil
}

// OpenTable returns a user relation. Temporaries are not visible here.
func (db *Database) OpenTable(name string) (*heap.Relation, error) {
	if db.closed {
		return nil, ErrDatabaseClosed
	}
	if catalog.IsTemp(name) {
		return nil, sqlerr.UnknownRelation(name)
	}
	return db.cat.MustGet(name)
}

func (db *Database) DropTable(name string) error {
	if db.closed {
		return ErrDatabaseClosed
	}
	if catalog.IsTemp(name) {
		return sqlerr.UnknownRelation(name)
	}
	if err := db.cat.Drop(name); err != nil {
		return err
	}
	db.log.Info("drop table", "name", name)
	return nil
}

// Schema implements planner.Catalog.
func (db *Database) Schema(name string) (record.Schema, bool) {
	rel, err := db.OpenTable(name)
	if err != nil {
		return record.Schema{}, false
	}
	return rel.Schema(), true
}

func (db *Database) ListTables() ([]catalog.TableMeta, error) {
	if db.closed {
		return nil, ErrDatabaseClosed
	}
	return db.cat.Tables(), nil
}

func (db *Database) Catalog() *catalog.Catalog { return db.cat }
func (db *Database) Memory() *bufferpool.Pool  { return db.mem }
func (db *Database) Sorter() *extsort.Sorter   { return db.sorter }
func (db *Database) Joins() *join.Engine       { return db.joins }
func (db *Database) DiskStats() storage.Stats  { return db.disk.Stats() }
func (db *Database) Logger() *slog.Logger      { return db.log }

// Close drops every relation. Later calls fail with ErrDatabaseClosed.
func (db *Database) Close() error {
	if db.closed {
		return ErrDatabaseClosed
	}
	for _, name := range db.cat.Names() {
		_ = db.cat.Drop(name)
	}
	db.closed = true
	return nil
}
