package executor

import (
	"fmt"
	"log/slog"

	"github.com/tuannm99/novaquery/internal/bufferpool"
	"github.com/tuannm99/novaquery/internal/catalog"
	"github.com/tuannm99/novaquery/internal/engine"
	"github.com/tuannm99/novaquery/internal/extsort"
	"github.com/tuannm99/novaquery/internal/heap"
	"github.com/tuannm99/novaquery/internal/join"
	"github.com/tuannm99/novaquery/internal/record"
	"github.com/tuannm99/novaquery/internal/sql/expr"
	"github.com/tuannm99/novaquery/internal/sql/parser"
	"github.com/tuannm99/novaquery/internal/sql/planner"
	"github.com/tuannm99/novaquery/internal/storage"
)

// executorDB is a small seam for unit-testing Executor without a real DB.
type executorDB interface {
	planner.Catalog

	CreateTable(table string, schema record.Schema) (*heap.Relation, error)
	DropTable(table string) error
	OpenTable(table string) (*heap.Relation, error)

	Catalog() *catalog.Catalog
	Memory() *bufferpool.Pool
	Sorter() *extsort.Sorter
	Joins() *join.Engine
	DiskStats() storage.Stats
}

var _ executorDB = (*engine.Database)(nil)

// Executor executes a plan against a Database.
type Executor struct {
	DB  executorDB
	log *slog.Logger
}

func NewExecutor(db *engine.Database) *Executor {
	return &Executor{DB: db, log: db.Logger()}
}

// NewExecutorForTest allows injecting a fake executorDB.
func NewExecutorForTest(db executorDB) *Executor {
	return &Executor{DB: db, log: slog.Default()}
}

// ExecSQL is the top-level entry: SQL string -> Result.
func (e *Executor) ExecSQL(sql string) (*Result, error) {
	stmt, err := parser.Parse(sql)
	if err != nil {
		return nil, err
	}
	plan, err := planner.BuildPlan(stmt, e.DB)
	if err != nil {
		return nil, err
	}

	before := e.DB.DiskStats()
	res, err := e.execPlan(plan)
	if err != nil {
		return nil, err
	}
	io := e.DB.DiskStats().Sub(before)
	res.DiskIOs = io.IOs()
	res.DiskBytes = io.Bytes()
	return res, nil
}

func (e *Executor) execPlan(p planner.Plan) (*Result, error) {
	switch plan := p.(type) {
	case *planner.CreateTablePlan:
		return e.execCreateTable(plan)
	case *planner.DropTablePlan:
		return e.execDropTable(plan)
	case *planner.InsertPlan:
		return e.execInsert(plan)
	case *planner.InsertSelectPlan:
		return e.execInsertSelect(plan)
	case *planner.DeletePlan:
		return e.execDelete(plan)
	case *planner.SelectPlan:
		return e.execSelect(plan)
	default:
		return nil, fmt.Errorf("executor: unsupported plan type %T", p)
	}
}

func (e *Executor) execCreateTable(p *planner.CreateTablePlan) (*Result, error) {
	if _, err := e.DB.CreateTable(p.TableName, p.Schema); err != nil {
		return nil, err
	}
	return &Result{Tag: TagCreate}, nil
}

func (e *Executor) execDropTable(p *planner.DropTablePlan) (*Result, error) {
	if err := e.DB.DropTable(p.TableName); err != nil {
		return nil, err
	}
	return &Result{Tag: TagDrop}, nil
}

func (e *Executor) execInsert(p *planner.InsertPlan) (*Result, error) {
	rel, err := e.DB.OpenTable(p.TableName)
	if err != nil {
		return nil, err
	}
	for _, t := range p.Rows {
		if err := rel.AppendTuple(0, t); err != nil {
			return nil, err
		}
	}
	return &Result{Tag: TagInsert, AffectedRows: int64(len(p.Rows))}, nil
}

// execInsertSelect runs the select to completion before touching the
// target, so a table may be inserted into from itself.
func (e *Executor) execInsertSelect(p *planner.InsertSelectPlan) (*Result, error) {
	rel, err := e.DB.OpenTable(p.TableName)
	if err != nil {
		return nil, err
	}
	var rows []record.Tuple
	err = e.runSelect(p.Select, func(fields []record.Field) error {
		out := make([]record.Field, p.Schema.NumCols())
		for i, f := range fields {
			out[p.Targets[i]] = f
		}
		rows = append(rows, record.NewTuple(out...))
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, t := range rows {
		if err := rel.AppendTuple(0, t); err != nil {
			return nil, err
		}
	}
	return &Result{Tag: TagInsert, AffectedRows: int64(len(rows))}, nil
}

func (e *Executor) execDelete(p *planner.DeletePlan) (*Result, error) {
	rel, err := e.DB.OpenTable(p.TableName)
	if err != nil {
		return nil, err
	}
	ctx := expr.Context{Relation: rel.Name(), Base: true, Schema: rel.Schema()}
	n, err := rel.DeleteWhere(0, func(t record.Tuple) (bool, error) {
		return expr.Check(ctx, t, p.Where)
	})
	if err != nil {
		return nil, err
	}
	return &Result{Tag: TagDelete, AffectedRows: int64(n)}, nil
}

func (e *Executor) execSelect(p *planner.SelectPlan) (*Result, error) {
	res := &Result{Tag: TagSelect, Columns: append([]string(nil), p.Output...)}
	err := e.runSelect(p, func(fields []record.Field) error {
		row := make([]any, len(fields))
		for i, f := range fields {
			row[i] = f.Value()
		}
		res.Rows = append(res.Rows, row)
		return nil
	})
	if err != nil {
		return nil, err
	}
	res.AffectedRows = int64(len(res.Rows))
	return res, nil
}
