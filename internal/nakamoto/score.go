package nakamoto

import (
	"fmt"
	"math"
	"strings"

	"github.com/icnetwork/decentralization/internal/domain"
)

// Score is the immutable NakamotoScore value object: a multi-dimensional
// decentralization score with a total order (Compare) that expresses
// lexicographic preferences between candidate subnet compositions.
//
// A Score is a pure function of the multiset of (feature, value) pairs
// across a set of nodes — node identity, order, and DfinityOwned never
// enter (spec §3 invariant d).
type Score struct {
	Coefficients    map[domain.Feature]float64 `json:"coefficients"`
	ControlledNodes map[domain.Feature]int     `json:"controlled_nodes"`
	AvgLinear       float64                    `json:"avg_linear"`
	AvgLog2         float64                    `json:"avg_log2"`
	Min             float64                    `json:"min"`
}

// unknownToken mints a value distinct from every real feature value and
// from every other node's unknown token, so that two nodes both missing a
// feature are never coalesced into a single actor.
func unknownToken(index int) string {
	return fmt.Sprintf("\x00unknown#%d", index)
}

// NewScore builds a Score from the NodeFeatures of every node in a subnet.
func NewScore(features []domain.NodeFeatures) Score {
	feats := domain.Features()
	coefficients := make(map[domain.Feature]float64, len(feats))
	controlled := make(map[domain.Feature]int, len(feats))

	if len(features) == 0 {
		for _, f := range feats {
			coefficients[f] = 0
			controlled[f] = 0
		}
		return Score{
			Coefficients:    coefficients,
			ControlledNodes: controlled,
			AvgLinear:       0,
			AvgLog2:         0,
			Min:             math.Inf(1),
		}
	}

	for _, f := range feats {
		counts := make(map[string]int, len(features))
		for i, nf := range features {
			v, ok := nf.Get(f)
			if !ok {
				v = unknownToken(i)
			}
			counts[v]++
		}
		values := make([]int, 0, len(counts))
		for _, c := range counts {
			values = append(values, c)
		}
		coef, ctrl := Coefficient(values)
		coefficients[f] = float64(coef)
		controlled[f] = ctrl
	}

	var sumLinear, sumLog2 float64
	var linearCount, logCount int
	min := math.Inf(1)
	for _, f := range feats {
		c := coefficients[f]
		if !isFinite(c) {
			continue
		}
		if c < min {
			min = c
		}
		sumLinear += c
		linearCount++
		if c > 0 {
			sumLog2 += math.Log2(c)
			logCount++
		}
	}

	avgLinear := 0.0
	if linearCount > 0 {
		avgLinear = sumLinear / float64(linearCount)
	}
	avgLog2 := 0.0
	if logCount > 0 {
		avgLog2 = sumLog2 / float64(logCount)
	}

	return Score{
		Coefficients:    coefficients,
		ControlledNodes: controlled,
		AvgLinear:       avgLinear,
		AvgLog2:         avgLog2,
		Min:             min,
	}
}

func isFinite(f float64) bool {
	return !math.IsInf(f, 0) && !math.IsNaN(f)
}

// Feature returns the coefficient for a single feature.
func (s Score) Feature(f domain.Feature) float64 {
	return s.Coefficients[f]
}

// ControlPowerCriticalFeatures sums ControlledNodes over every feature
// whose coefficient equals the score's own minimum — the "most attacked"
// features. Smaller is better: it's the upper bound on nodes a single
// coalition controls across the critical axes.
func (s Score) ControlPowerCriticalFeatures() int {
	sum := 0
	for _, f := range domain.Features() {
		if s.Coefficients[f] <= s.Min {
			sum += s.ControlledNodes[f]
		}
	}
	return sum
}

// Equal reports whether two scores have identical coefficients and
// controlled-node counts — the aggregates are derivable from those.
func (s Score) Equal(other Score) bool {
	for _, f := range domain.Features() {
		if s.Coefficients[f] != other.Coefficients[f] {
			return false
		}
		if s.ControlledNodes[f] != other.ControlledNodes[f] {
			return false
		}
	}
	return true
}

// Compare implements the total order of spec §4.3: earlier keys dominate,
// and "higher is better" throughout. It returns a negative number if s is
// worse than other, 0 if equal, and positive if s is better — the reverse
// of the usual sort convention is intentionally avoided: Compare(s,other)>0
// means s should be preferred over other, matching Rust's Ord::cmp(self,
// other) = Greater meaning self wins.
//
// Key 2 (below-average count) and key 3 (per-feature dominance) both use
// s.AvgLinear — the receiver's own linear mean — as the threshold for
// *both* sides of the comparison. This is an intentional asymmetry
// inherited from the reference implementation (see DESIGN.md); a
// clean-room derivation might use each side's own mean, but we reproduce
// the existing behavior faithfully rather than "fixing" it.
//
// Compare panics if a NaN coefficient reaches it: NaN propagating into the
// comparator is a precondition violation per spec §4.3/§7, not a case to
// silently tolerate.
func (s Score) Compare(other Score) int {
	for _, f := range domain.Features() {
		if math.IsNaN(s.Coefficients[f]) || math.IsNaN(other.Coefficients[f]) {
			panic(domain.ErrNaNCoefficient)
		}
	}

	// Key 1: worst-feature floor.
	if c := cmpFloat(s.Min, other.Min); c != 0 {
		return c
	}

	// Key 2: below-average count, fewer is better. Both sides are counted
	// against s.AvgLinear (the asymmetry documented above).
	c1 := belowAverageCount(s.Coefficients, s.AvgLinear)
	c2 := belowAverageCount(other.Coefficients, s.AvgLinear)
	if c := cmpInt(c2, c1); c != 0 { // fewer weak axes is better
		return c
	}

	// Key 3: per-feature below-average dominance, iterate in fixed order.
	for _, f := range domain.Features() {
		sv := s.Coefficients[f]
		ov := other.Coefficients[f]
		if sv < s.AvgLinear || ov < s.AvgLinear {
			if c := cmpFloat(sv, ov); c != 0 {
				return c
			}
		}
	}

	// Key 4: critical control power, smaller is better.
	if c := cmpInt(other.ControlPowerCriticalFeatures(), s.ControlPowerCriticalFeatures()); c != 0 {
		return c
	}

	// Key 5: log-mean, higher wins.
	if c := cmpFloat(s.AvgLog2, other.AvgLog2); c != 0 {
		return c
	}

	// Key 6: linear mean, higher wins.
	return cmpFloat(s.AvgLinear, other.AvgLinear)
}

// Less reports whether s is strictly worse than other under Compare.
func (s Score) Less(other Score) bool { return s.Compare(other) < 0 }

func belowAverageCount(coefficients map[domain.Feature]float64, threshold float64) int {
	n := 0
	for _, f := range domain.Features() {
		if coefficients[f] < threshold {
			n++
		}
	}
	return n
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// String implements the human display form from spec §6. It is intended
// for logs and is not a parseable format.
func (s Score) String() string {
	var coeffs []string
	for i, f := range domain.Features() {
		coeffs = append(coeffs, fmt.Sprintf("%d: %.2f", i, s.Coefficients[f]))
	}
	return fmt.Sprintf(
		"NakamotoScore: min %.2f crit feat %d crit nodes %d avg log2 %.2f avg linear %.2f all coeff [%s]",
		s.Min,
		belowAverageCount(s.Coefficients, s.AvgLinear),
		s.ControlPowerCriticalFeatures(),
		s.AvgLog2,
		s.AvgLinear,
		strings.Join(coeffs, ", "),
	)
}
