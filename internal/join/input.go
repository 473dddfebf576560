package join

import (
	"fmt"
	"slices"

	"github.com/tuannm99/novaquery/internal/heap"
	"github.com/tuannm99/novaquery/internal/record"
	"github.com/tuannm99/novaquery/internal/sql/expr"
)

// Input is one side of a join.
type Input struct {
	Rel *heap.Relation
	// Tables lists the source tables the relation covers. A stored table or a
	// pushdown temporary covers exactly one.
	Tables []string
	// Distinct, when set, names the attributes the side is sorted on so that
	// adjacent duplicates can be dropped while it is read.
	Distinct []string
}

// Base reports whether the side comes from a single table rather than an
// earlier join.
func (in Input) Base() bool { return len(in.Tables) == 1 }

func (in Input) covers(table string) bool { return slices.Contains(in.Tables, table) }

func (in Input) qualified() record.Schema {
	if in.Base() {
		return in.Rel.Schema().Qualify(in.Tables[0])
	}
	return in.Rel.Schema()
}

// dedupKeys returns the column positions used for adjacent-duplicate
// suppression, or nil when the side must be read as is.
func (in Input) dedupKeys() ([]int, error) {
	if len(in.Distinct) == 0 || !in.Base() {
		return nil, nil
	}
	sch := in.Rel.Schema()
	out := make([]int, 0, len(in.Distinct))
	for _, a := range in.Distinct {
		i := sch.Resolve(a)
		if i < 0 {
			return nil, fmt.Errorf("join: distinct attribute %q not in %s", a, in.Rel.Name())
		}
		out = append(out, i)
	}
	return out, nil
}

// Cond is a natural-join candidate: Left.Field = Right.Field.
type Cond struct {
	Left, Right string
	Field       string
	Node        *expr.Node
}

// RefResolver maps a field reference to its table and bare field name.
type RefResolver func(ref string) (table, field string, ok bool)

// DetectNatural reports whether n is an equality between the same field of
// two different tables.
func DetectNatural(n *expr.Node, resolve RefResolver) (Cond, bool) {
	if n == nil || n.IsLeaf() || n.Value != "=" {
		return Cond{}, false
	}
	l, r := n.Left, n.Right
	if !l.IsLeaf() || !r.IsLeaf() || l.Quoted || r.Quoted {
		return Cond{}, false
	}
	lt, lf, ok := resolve(l.Value)
	if !ok {
		return Cond{}, false
	}
	rt, rf, ok := resolve(r.Value)
	if !ok {
		return Cond{}, false
	}
	if lt == rt || lf != rf {
		return Cond{}, false
	}
	return Cond{Left: lt, Right: rt, Field: lf, Node: n}, true
}
