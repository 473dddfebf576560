package novaquery

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/tuannm99/novaquery/internal/engine"
	"github.com/tuannm99/novaquery/internal/metrics"
	"github.com/tuannm99/novaquery/internal/sql/executor"
	"github.com/tuannm99/novaquery/internal/sql/parser"
	"github.com/tuannm99/novaquery/internal/sqlerr"
)

// Options configures Open.
type Options struct {
	// MemoryBlocks is the buffer capacity in blocks. Zero means the default.
	MemoryBlocks int
	Logger       *slog.Logger
}

// DB is a database safe for concurrent use. Statements run one at a time.
type DB struct {
	mu  sync.Mutex
	db  *engine.Database
	ex  *executor.Executor
	log *slog.Logger
}

func Open(opts Options) *DB {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	db := engine.NewDatabase(engine.Options{MemoryBlocks: opts.MemoryBlocks, Logger: opts.Logger})
	return &DB{db: db, ex: executor.NewExecutor(db), log: opts.Logger}
}

// MemoryBlocks reports the buffer capacity actually in use.
func (d *DB) MemoryBlocks() int { return d.db.Memory().Capacity() }

// Exec runs one statement terminated by ';'.
func (d *DB) Exec(ctx context.Context, sql string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	kind := parser.Kind(sql)
	start := time.Now()
	before := d.db.DiskStats()
	res, err := d.ex.ExecSQL(sql)
	elapsed := time.Since(start)
	cost := d.db.DiskStats().Sub(before)

	code := "ok"
	if err != nil {
		code = sqlerr.Code(err)
	}
	metrics.StatementsTotal.WithLabelValues(kind, code).Inc()
	metrics.StatementDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
	metrics.DiskIOBlocks.WithLabelValues("read").Add(float64(cost.Reads))
	metrics.DiskIOBlocks.WithLabelValues("write").Add(float64(cost.Writes))
	metrics.TempRelations.Set(float64(d.db.Catalog().Temps()))

	if err != nil {
		d.log.Warn("statement failed", "kind", kind, "code", code, "err", err, "elapsed", elapsed)
		return nil, err
	}
	d.log.Debug("statement", "kind", kind, "disk_ios", res.DiskIOs, "rows", res.AffectedRows, "elapsed", elapsed)
	return res, nil
}

// StatementFunc observes each statement of a script. Returning an error
// stops the script.
type StatementFunc func(stmt string, res *Result, err error) error

// ExecScript runs every statement in r. A failing statement is reported to
// fn and execution continues with the next one.
func (d *DB) ExecScript(ctx context.Context, r io.Reader, fn StatementFunc) error {
	b, err := io.ReadAll(r)
	if err != nil {
		return errors.Wrap(err, "read script")
	}
	for _, stmt := range parser.SplitStatements(string(b)) {
		if err := ctx.Err(); err != nil {
			return err
		}
		res, err := d.Exec(ctx, stmt)
		if fn == nil {
			continue
		}
		if err := fn(stmt, res, err); err != nil {
			return err
		}
	}
	return nil
}

// Tables lists user tables in name order.
func (d *DB) Tables() ([]TableMeta, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.db.ListTables()
}

func (d *DB) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.db.Close()
}
