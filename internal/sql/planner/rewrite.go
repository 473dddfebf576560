package planner

import (
	"github.com/tuannm99/novaquery/internal/join"
	"github.com/tuannm99/novaquery/internal/record"
	"github.com/tuannm99/novaquery/internal/sql/expr"
)

// JoinShape is a multi-table select after its predicate has been taken apart.
type JoinShape struct {
	// Filters holds, per table, the conjunction of conjuncts that read only
	// that table. They are evaluated before the join.
	Filters map[string]*expr.Node
	// Natural lists equality conjuncts between same-named fields of two
	// tables.
	Natural []join.Cond
	// Residual is everything else, applied to the joined relation.
	Residual *expr.Node
	// Distinct is set for SELECT DISTINCT: per table, the fields to sort and
	// deduplicate that input on. Projected fields come first.
	Distinct map[string][]string
	// Covered reports whether the projection keeps every field of every
	// table.
	Covered bool
}

// Rewrite classifies the WHERE conjuncts of a multi-table select.
// Conjuncts that reference no column at all stay residual.
func Rewrite(p *SelectPlan, resolve join.RefResolver) *JoinShape {
	js := &JoinShape{Filters: make(map[string]*expr.Node)}

	filters := make(map[string][]*expr.Node)
	var residual []*expr.Node
	for _, c := range expr.Conjuncts(p.Where) {
		tables := tablesOf(c, resolve)
		if len(tables) == 1 {
			filters[tables[0]] = append(filters[tables[0]], c)
			continue
		}
		if cond, ok := join.DetectNatural(c, resolve); ok {
			js.Natural = append(js.Natural, cond)
			continue
		}
		residual = append(residual, c)
	}
	for t, fs := range filters {
		js.Filters[t] = expr.And(fs)
	}
	js.Residual = expr.And(residual)

	js.Covered = true
	projected := make(map[string][]string)
	for _, ref := range p.Output {
		table, field, _ := record.SplitQualified(ref)
		projected[table] = append(projected[table], field)
	}
	if p.Distinct {
		js.Distinct = make(map[string][]string, len(p.Tables))
	}
	for _, t := range p.Tables {
		fields := projected[t]
		all := p.Inputs[t].Names()
		if len(uniq(fields)) < len(all) {
			js.Covered = false
		}
		if p.Distinct {
			js.Distinct[t] = appendMissing(uniq(fields), all)
		}
	}
	return js
}

// FinalPass reports whether the joined result still needs a sort and
// adjacent-duplicate pass for DISTINCT. Deduplication during the join drops
// whole duplicate input rows only, so a projection that drops fields can
// still yield duplicates. An input larger than memory is re-checked too.
func (js *JoinShape) FinalPass(inputBlocks map[string]int, memory int) bool {
	if js.Distinct == nil {
		return false
	}
	if !js.Covered {
		return true
	}
	for _, b := range inputBlocks {
		if b > memory {
			return true
		}
	}
	return false
}

// tablesOf lists the distinct tables c reads, in first-seen order.
func tablesOf(c *expr.Node, resolve join.RefResolver) []string {
	var out []string
	seen := make(map[string]bool)
	for _, ref := range expr.Refs(c) {
		t, _, ok := resolve(ref)
		if !ok || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

func uniq(s []string) []string {
	var out []string
	seen := make(map[string]bool, len(s))
	for _, v := range s {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

func appendMissing(dst, all []string) []string {
	have := make(map[string]bool, len(dst))
	for _, v := range dst {
		have[v] = true
	}
	for _, v := range all {
		if !have[v] {
			dst = append(dst, v)
		}
	}
	return dst
}
