// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package screening

import "sort"

// KeepTop returns the positions of the n highest-scoring entries, in
// descending score order. Ties keep insertion order, so selection is
// deterministic for a fixed input. The evolution engine reuses this policy
// for its population cap.
func KeepTop(scores []float64, n int) []int {
	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})
	if n < len(order) {
		order = order[:n]
	}
	return order
}
