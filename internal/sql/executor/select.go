package executor

import (
	"fmt"

	"github.com/tuannm99/novaquery/internal/heap"
	"github.com/tuannm99/novaquery/internal/join"
	"github.com/tuannm99/novaquery/internal/record"
	"github.com/tuannm99/novaquery/internal/sql/expr"
	"github.com/tuannm99/novaquery/internal/sql/planner"
)

// rowSink receives projected rows in output order. The slice is not reused.
type rowSink func(fields []record.Field) error

func (e *Executor) runSelect(p *planner.SelectPlan, emit rowSink) error {
	scope := &tempScope{cat: e.DB.Catalog()}
	defer scope.release()

	if p.Single() {
		return e.selectSingle(p, scope, emit)
	}
	return e.selectJoin(p, scope, emit)
}

// output is the final stage shared by both select shapes: an optional
// filter, an optional sort and the projection.
type output struct {
	src      *heap.Relation
	ctx      expr.Context
	filter   *expr.Node
	sort     bool
	distinct bool
	orderBy  string
	fields   []string
}

func (e *Executor) selectSingle(p *planner.SelectPlan, scope *tempScope, emit rowSink) error {
	rel, err := e.DB.OpenTable(p.Tables[0])
	if err != nil {
		return err
	}
	return e.finish(output{
		src:      rel,
		ctx:      expr.Context{Relation: rel.Name(), Base: true, Schema: rel.Schema()},
		filter:   p.Where,
		sort:     p.Distinct || p.OrderBy != "",
		distinct: p.Distinct,
		orderBy:  p.OrderBy,
		fields:   p.Output,
	}, scope, emit)
}

// selectJoin pushes single-table filters into temporaries, pre-sorts the
// inputs for DISTINCT, joins them and applies what is left of the WHERE
// clause to the joined relation.
func (e *Executor) selectJoin(p *planner.SelectPlan, scope *tempScope, emit rowSink) error {
	js := p.Rewrite
	sorter := e.DB.Sorter()

	inputs := make([]join.Input, 0, len(p.Tables))
	blocks := make(map[string]int, len(p.Tables))
	for _, t := range p.Tables {
		rel, err := e.DB.OpenTable(t)
		if err != nil {
			return err
		}
		in := join.Input{Rel: rel, Tables: []string{t}}

		if f := js.Filters[t]; f != nil {
			tmp, err := scope.create("push_"+t, rel.Schema().Qualify(t))
			if err != nil {
				return err
			}
			ctx := expr.Context{Relation: rel.Name(), Base: true, Schema: rel.Schema()}
			n, err := e.filterInto(rel, ctx, f, tmp)
			if err != nil {
				return err
			}
			e.log.Debug("executor: pushdown", "table", t, "filter", f.String(), "temp", tmp.Name(), "tuples", n)
			in.Rel = tmp
		}

		if attrs := js.Distinct[t]; attrs != nil {
			if err := sorter.Sort(in.Rel, attrs); err != nil {
				return err
			}
			in.Distinct = attrs
		}
		blocks[t] = in.Rel.BlockCount()
		inputs = append(inputs, in)
	}

	joined, unused, err := e.DB.Joins().JoinAll(inputs, js.Natural)
	if err != nil {
		return err
	}
	scope.adopt(joined.Rel.Name())

	post := make([]*expr.Node, 0, len(unused)+1)
	for _, c := range unused {
		post = append(post, c.Node)
	}
	post = append(post, expr.Conjuncts(js.Residual)...)

	final := js.FinalPass(blocks, e.DB.Memory().Capacity())
	e.log.Debug("executor: join done", "relation", joined.Rel.Name(), "tuples", joined.Rel.TupleCount(),
		"post_filters", len(post), "final_pass", final)

	return e.finish(output{
		src:      joined.Rel,
		ctx:      expr.Context{Relation: joined.Rel.Name(), Schema: joined.Rel.Schema()},
		filter:   expr.And(post),
		sort:     final || p.OrderBy != "",
		distinct: p.Distinct,
		orderBy:  p.OrderBy,
		fields:   p.Output,
	}, scope, emit)
}

func (e *Executor) finish(o output, scope *tempScope, emit rowSink) error {
	schema := o.src.Schema()
	proj := make([]int, len(o.fields))
	for i, f := range o.fields {
		proj[i] = o.ctx.Lookup(f)
		if proj[i] < 0 {
			return fmt.Errorf("executor: output field %q not in %s", f, schema)
		}
	}

	src, filter := o.src, o.filter
	if o.sort {
		if filter != nil {
			tmp, err := scope.create("select", schema)
			if err != nil {
				return err
			}
			if _, err := e.filterInto(src, o.ctx, filter, tmp); err != nil {
				return err
			}
			src, filter = tmp, nil
		}
		keys := o.fields
		if o.orderBy != "" {
			keys = append([]string{o.orderBy}, o.fields...)
		}
		if err := e.DB.Sorter().Sort(src, keys); err != nil {
			return err
		}
	}

	var prev []record.Field
	return src.Scan(0, func(_ heap.TID, t record.Tuple) error {
		if filter != nil {
			ok, err := expr.Check(o.ctx, t, filter)
			if err != nil || !ok {
				return err
			}
		}
		row := t.Project(proj)
		if o.distinct && prev != nil && sameFields(prev, row) {
			return nil
		}
		prev = row
		return emit(row)
	})
}

// filterInto appends the tuples of src matching filter to dst through slot 1.
func (e *Executor) filterInto(src *heap.Relation, ctx expr.Context, filter *expr.Node, dst *heap.Relation) (int, error) {
	w := dst.NewWriter(1)
	err := src.Scan(0, func(_ heap.TID, t record.Tuple) error {
		ok, err := expr.Check(ctx, t, filter)
		if err != nil || !ok {
			return err
		}
		return w.Append(t)
	})
	if err != nil {
		return 0, err
	}
	return w.Count(), w.Close()
}

func sameFields(a, b []record.Field) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}
