// Package nakamoto implements the Nakamoto-coefficient kernel and the
// NakamotoScore value object built on top of it.
package nakamoto

import "sort"

// Coefficient computes the Nakamoto coefficient for one decentralization
// feature, given the node count controlled by each distinct actor.
//
// The Nakamoto coefficient is the minimum number of top actors whose
// combined node count first exceeds the Byzantine-fault threshold
// (floor(total/3) — more than a third of nodes controlled is a break).
// It returns (coefficient, controlledNodes): controlledNodes is the node
// count accumulated by that minimal breaking coalition.
func Coefficient(values []int) (coefficient, controlledNodes int) {
	total := 0
	for _, v := range values {
		total += v
	}
	if total == 0 {
		return 0, 0
	}

	threshold := total / 3

	sorted := make([]int, len(values))
	copy(sorted, values)
	sort.Sort(sort.Reverse(sort.IntSlice(sorted)))

	var sumActors, sumNodes int
	for _, actorNodes := range sorted {
		sumActors++
		sumNodes = saturatingAdd(sumNodes, actorNodes)
		if sumNodes > threshold {
			break
		}
	}
	return sumActors, sumNodes
}

// saturatingAdd adds b to a, clamping at MaxInt instead of wrapping on
// overflow. Adversarial per-actor counts must never wrap the accumulator.
func saturatingAdd(a, b int) int {
	const maxInt = int(^uint(0) >> 1)
	if b > 0 && a > maxInt-b {
		return maxInt
	}
	return a + b
}
