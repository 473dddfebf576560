package join

// Cost of joining relations in the given order: the sum of the running
// cardinality products after each join except the last, whose size is the
// result and is the same for every order.
func Cost(cards []int, order []int) int64 {
	var cost int64
	prod := int64(1)
	for i, idx := range order {
		prod *= int64(cards[idx])
		if i >= 1 && i <= len(order)-2 {
			cost += prod
		}
	}
	return cost
}

// BestOrder tries every permutation and returns the cheapest. Ties keep the
// lexicographically first order. The search is O(n!) and only meant for the
// handful of tables a query names.
func BestOrder(cards []int) ([]int, int64) {
	n := len(cards)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	if n <= 2 {
		return order, Cost(cards, order)
	}

	best := append([]int(nil), order...)
	bestCost := Cost(cards, order)

	used := make([]bool, n)
	cur := make([]int, 0, n)
	var walk func()
	walk = func() {
		if len(cur) == n {
			if c := Cost(cards, cur); c < bestCost {
				bestCost = c
				copy(best, cur)
			}
			return
		}
		for i := 0; i < n; i++ {
			if used[i] {
				continue
			}
			used[i] = true
			cur = append(cur, i)
			walk()
			cur = cur[:len(cur)-1]
			used[i] = false
		}
	}
	walk()
	return best, bestCost
}
