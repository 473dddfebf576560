package join

import "slices"

// JoinAll joins every input into one relation. Conditions linking the two
// sides of a step turn that step into a natural join; conditions left unused
// are returned for the caller to apply as filters. Once only cross products
// remain and their inputs fit in memory, they are folded in memory.
//
// The returned relation is always a temporary owned by the caller, unless a
// single input was passed in, which is returned unchanged.
func (e *Engine) JoinAll(inputs []Input, conds []Cond) (Input, []Cond, error) {
	if len(inputs) == 0 {
		return Input{}, conds, nil
	}
	if len(inputs) == 1 {
		return inputs[0], conds, nil
	}

	total := 0
	cards := make([]int, len(inputs))
	for i, in := range inputs {
		total += in.Rel.BlockCount()
		cards[i] = in.Rel.TupleCount()
	}
	if len(conds) == 0 && total <= e.mem.Capacity() {
		out, err := e.InMemory(inputs)
		return out, nil, err
	}

	order, cost := BestOrder(cards)
	e.log.Debug("join: order", "cards", cards, "order", order, "cost", cost)

	remaining := slices.Clone(conds)
	acc := inputs[order[0]]
	owned := false
	release := func() {
		if owned {
			e.cat.Release(acc.Rel.Name())
		}
	}

	for k := 1; k < len(order); k++ {
		next := inputs[order[k]]
		group := []Input{acc}
		for _, idx := range order[k:] {
			group = append(group, inputs[idx])
		}

		var (
			out Input
			err error
		)
		if ci := linking(remaining, acc, next); ci >= 0 {
			c := remaining[ci]
			remaining = slices.Delete(remaining, ci, ci+1)
			out, err = e.Natural(acc, next, c)
		} else if !anyLinking(remaining, group) && blocks(group) <= e.mem.Capacity() {
			// Only cross products are left and they fit.
			out, err = e.InMemory(group)
			release()
			if err != nil {
				return Input{}, nil, err
			}
			return out, remaining, nil
		} else {
			out, err = e.Cross(acc, next)
		}
		release()
		if err != nil {
			return Input{}, nil, err
		}
		acc, owned = out, true
	}
	return acc, remaining, nil
}

func anyLinking(conds []Cond, ins []Input) bool {
	for i := range ins {
		for j := i + 1; j < len(ins); j++ {
			if linking(conds, ins[i], ins[j]) >= 0 {
				return true
			}
		}
	}
	return false
}

func blocks(ins []Input) int {
	n := 0
	for _, in := range ins {
		n += in.Rel.BlockCount()
	}
	return n
}

// linking finds a condition with one table on each side.
func linking(conds []Cond, a, b Input) int {
	for i, c := range conds {
		if (a.covers(c.Left) && b.covers(c.Right)) || (a.covers(c.Right) && b.covers(c.Left)) {
			return i
		}
	}
	return -1
}
