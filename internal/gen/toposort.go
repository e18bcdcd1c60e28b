package gen

import (
	"errors"
	"fmt"
)

var errCycle = errors.New("cycle detected")

// topoSort returns node indices so that every node comes after the nodes
// it depends on. deps(i) yields the indices that must precede i.
//
// Among nodes that are ready at the same time the smallest index goes
// first, so an acyclic input without dependencies keeps its order.
func topoSort(n int, deps func(i int) []int) ([]int, error) {
	if n <= 0 {
		return nil, nil
	}

	pending := make([][]int, n)

	for i := range n {
		for _, d := range deps(i) {
			if d < 0 || d >= n {
				return nil, fmt.Errorf("dependency index out of range: %d depends on %d", i, d)
			}

			// A node referring to itself is not a cycle.
			if d != i {
				pending[i] = append(pending[i], d)
			}
		}
	}

	placed := make([]bool, n)
	order := make([]int, 0, n)

	ready := func(i int) bool {
		for _, d := range pending[i] {
			if !placed[d] {
				return false
			}
		}

		return true
	}

	for len(order) < n {
		picked := -1

		for i := range n {
			if !placed[i] && ready(i) {
				picked = i
				break
			}
		}

		if picked < 0 {
			return nil, errCycle
		}

		placed[picked] = true
		order = append(order, picked)
	}

	return order, nil
}
