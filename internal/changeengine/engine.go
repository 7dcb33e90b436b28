// Package changeengine implements the greedy membership-optimization
// search of spec §4.5: extend, optimize, and replace.
package changeengine

import (
	"time"

	"github.com/icnetwork/decentralization/internal/domain"
	"github.com/icnetwork/decentralization/internal/metrics"
	"github.com/icnetwork/decentralization/internal/nakamoto"
	"github.com/icnetwork/decentralization/internal/rules"
)

// Result wraps a SubnetChange together with the business-rule outcome for
// its After subnet, so a caller can tell a fully-compliant change from one
// that had to ship as "the best we found" (spec §4.5 step 4).
type Result struct {
	Change    domain.SubnetChange
	Violation rules.Violation // nil if Change.After satisfies every rule
}

// Extend produces a new subnet of size n+k by greedily picking k nodes
// from pool, each iteration choosing the candidate whose insertion yields
// the lexicographically greatest score (spec §4.5).
func Extend(subnet domain.Subnet, k int, pool []domain.Node) (domain.SubnetChange, error) {
	if len(pool) < k {
		return domain.SubnetChange{}, &domain.InsufficientCandidatesError{Needed: k, Have: len(pool)}
	}

	remaining := append([]domain.Node(nil), pool...)
	current := subnet
	added := make([]domain.NodeID, 0, k)

	for i := 0; i < k; i++ {
		bestIdx := -1
		var bestScore nakamoto.Score

		for idx, cand := range remaining {
			trial := appendNode(current.Nodes, cand)
			s := nakamoto.NewScore(domain.Subnet{Nodes: trial}.FeatureSlice())
			if bestIdx == -1 || preferCandidate(s, cand, bestScore, remaining[bestIdx]) {
				bestIdx = idx
				bestScore = s
			}
		}

		chosen := remaining[bestIdx]
		current = current.WithNodes(appendNode(current.Nodes, chosen))
		added = append(added, chosen.ID)
		remaining = removeIndex(remaining, bestIdx)
	}

	metrics.MembershipChanges.WithLabelValues(string(domain.ReasonExtend)).Inc()
	return domain.NewSubnetChange(subnet, current, nil, added, domain.ReasonExtend), nil
}

// OptimizeRequest bundles the inputs to Optimize. Pins must remain in the
// subnet; Exclusions may never be added; MinCoefficients, if set, is
// enforced as an extra business rule when judging the final result.
type OptimizeRequest struct {
	Subnet          domain.Subnet
	Budget          int
	Pool            []domain.Node
	Pins            []domain.NodeID
	Exclusions      []domain.NodeID
	MinCoefficients *rules.MinCoefficients
}

// Optimize replaces up to Budget nodes using the greedy one-at-a-time
// schedule of spec §4.5 step 3: at each step, remove the single node whose
// removal (paired with the best single add) maximises the resulting
// score, then commit, repeating Budget times.
func Optimize(req OptimizeRequest) (Result, error) {
	start := time.Now()
	steps := 0
	defer func() {
		metrics.OptimizeDuration.Observe(time.Since(start).Seconds())
		metrics.OptimizeSteps.Observe(float64(steps))
	}()

	current := req.Subnet
	baseline := nakamoto.NewScore(current.FeatureSlice())

	pinned := toSet(req.Pins)
	for _, p := range req.Pins {
		if !current.Contains(p) {
			return Result{}, &domain.UnknownNodeError{ID: p}
		}
	}

	excluded := toSet(req.Exclusions)
	available := filterExcluded(req.Pool, excluded)

	var removed, added []domain.NodeID

	for step := 0; step < req.Budget; step++ {
		bestRemoveIdx := -1
		var bestAdd domain.Node
		var bestScore nakamoto.Score
		haveBest := false

		for idx, victim := range current.Nodes {
			if pinned[victim.ID] {
				continue
			}
			without := removeIndex(current.Nodes, idx)

			for _, cand := range available {
				if current.Contains(cand.ID) {
					continue
				}
				trial := appendNode(without, cand)
				s := nakamoto.NewScore(domain.Subnet{Nodes: trial}.FeatureSlice())
				if !haveBest || preferCandidate(s, cand, bestScore, bestAdd) {
					bestRemoveIdx = idx
					bestAdd = cand
					bestScore = s
					haveBest = true
				}
			}
		}

		if !haveBest {
			break
		}

		victim := current.Nodes[bestRemoveIdx]
		newNodes := appendNode(removeIndex(current.Nodes, bestRemoveIdx), bestAdd)
		current = current.WithNodes(newNodes)
		removed = append(removed, victim.ID)
		added = append(added, bestAdd.ID)
		available = removeByID(available, bestAdd.ID)
		steps++
	}

	final := nakamoto.NewScore(current.FeatureSlice())
	if final.Compare(baseline) <= 0 {
		metrics.MembershipChanges.WithLabelValues(string(domain.ReasonNoOp)).Inc()
		check := rules.Check(req.Subnet, req.MinCoefficients)
		return Result{Change: domain.NewSubnetChange(req.Subnet, req.Subnet, nil, nil, domain.ReasonNoOp), Violation: check.Violation}, nil
	}

	metrics.MembershipChanges.WithLabelValues(string(domain.ReasonOptimize)).Inc()
	change := domain.NewSubnetChange(req.Subnet, current, removed, added, domain.ReasonOptimize)
	check := rules.Check(current, req.MinCoefficients)
	return Result{Change: change, Violation: check.Violation}, nil
}

// ReplaceRequest bundles the inputs to Replace.
type ReplaceRequest struct {
	Subnet       domain.Subnet
	VictimIDs    []domain.NodeID
	Heal         bool
	UnhealthyIDs []domain.NodeID // consulted only when Heal is set
	Pins         []domain.NodeID
	Pool         []domain.Node
}

// Replace removes the listed victim ids, plus (if Heal is set) any
// caller-flagged unhealthy node ids, then extends by the same count of
// nodes from Pool (spec §4.5).
func Replace(req ReplaceRequest) (domain.SubnetChange, error) {
	pinned := toSet(req.Pins)

	removalSet := map[domain.NodeID]bool{}
	var removalOrder []domain.NodeID
	addRemoval := func(id domain.NodeID) error {
		if removalSet[id] {
			return nil
		}
		if !req.Subnet.Contains(id) {
			return &domain.UnknownNodeError{ID: id}
		}
		if pinned[id] {
			return &domain.PinnedAndRemovedError{ID: id}
		}
		removalSet[id] = true
		removalOrder = append(removalOrder, id)
		return nil
	}

	for _, id := range req.VictimIDs {
		if err := addRemoval(id); err != nil {
			return domain.SubnetChange{}, err
		}
	}
	if req.Heal {
		for _, id := range req.UnhealthyIDs {
			if !req.Subnet.Contains(id) {
				continue // unhealthy ids outside the subnet are simply irrelevant
			}
			if err := addRemoval(id); err != nil {
				return domain.SubnetChange{}, err
			}
		}
	}

	remaining := make([]domain.Node, 0, len(req.Subnet.Nodes))
	for _, n := range req.Subnet.Nodes {
		if !removalSet[n.ID] {
			remaining = append(remaining, n)
		}
	}
	shrunk := req.Subnet.WithNodes(remaining)

	extended, err := Extend(shrunk, len(removalOrder), req.Pool)
	if err != nil {
		return domain.SubnetChange{}, err
	}

	metrics.MembershipChanges.WithLabelValues(string(domain.ReasonReplace)).Inc()
	return domain.NewSubnetChange(req.Subnet, extended.After, removalOrder, extended.Added, domain.ReasonReplace), nil
}

// preferCandidate reports whether (sNew, candNew) should replace
// (sBest, candBest) as the running-best choice: strictly higher score
// wins outright; a tie is broken by preferring a non-DFINITY-owned
// candidate, then by stable (first-seen) order (spec §4.5).
func preferCandidate(sNew nakamoto.Score, candNew domain.Node, sBest nakamoto.Score, candBest domain.Node) bool {
	if cmp := sNew.Compare(sBest); cmp != 0 {
		return cmp > 0
	}
	if candNew.DfinityOwned != candBest.DfinityOwned {
		return !candNew.DfinityOwned
	}
	return false
}

func appendNode(nodes []domain.Node, n domain.Node) []domain.Node {
	out := make([]domain.Node, len(nodes)+1)
	copy(out, nodes)
	out[len(nodes)] = n
	return out
}

func removeIndex(nodes []domain.Node, idx int) []domain.Node {
	out := make([]domain.Node, 0, len(nodes)-1)
	out = append(out, nodes[:idx]...)
	out = append(out, nodes[idx+1:]...)
	return out
}

func removeByID(nodes []domain.Node, id domain.NodeID) []domain.Node {
	out := make([]domain.Node, 0, len(nodes))
	for _, n := range nodes {
		if n.ID != id {
			out = append(out, n)
		}
	}
	return out
}

func filterExcluded(nodes []domain.Node, excluded map[domain.NodeID]bool) []domain.Node {
	out := make([]domain.Node, 0, len(nodes))
	for _, n := range nodes {
		if !excluded[n.ID] {
			out = append(out, n)
		}
	}
	return out
}

func toSet(ids []domain.NodeID) map[domain.NodeID]bool {
	out := make(map[domain.NodeID]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out
}
