// Package rules validates a subnet's composition against the hard
// constraints of spec §4.4.
package rules

import (
	"github.com/icnetwork/decentralization/internal/domain"
	"github.com/icnetwork/decentralization/internal/metrics"
	"github.com/icnetwork/decentralization/internal/nakamoto"
)

// dfinityPresenceMinSize is K in spec §4.4 rule 1: any subnet of at least
// this size must contain at least one DFINITY-owned node.
const dfinityPresenceMinSize = 1

// Feature super-majority: no single value may control >= floor(2n/3) nodes.
const (
	superMajorityNumerator   = 2
	superMajorityDenominator = 3
)

// singleProviderHaltMinSize is the smallest subnet size at which a
// node_provider coefficient of 1 is reported as a single provider that can
// halt consensus.
const singleProviderHaltMinSize = 1

// MinCoefficients expresses an optional caller-supplied floor per feature,
// the min_nakamoto_coefficients request field from spec §6.
type MinCoefficients struct {
	Coefficients map[domain.Feature]float64 `json:"coefficients"`
	Average      float64                    `json:"average"`
}

// Violation is any structured rule failure; implementations carry their
// own fields (spec §7).
type Violation interface {
	error
}

// Result is the outcome of Check: either OK, or the first violation along
// with the score it was computed against (so callers can log/display it
// without recomputing).
type Result struct {
	Score     nakamoto.Score
	Violation Violation
}

// OK reports whether the subnet passed every rule.
func (r Result) OK() bool { return r.Violation == nil }

// Check validates subnet against the business rules in order, stopping at
// the first violation. min may be nil to skip the optional floor check.
func Check(subnet domain.Subnet, min *MinCoefficients) Result {
	score := nakamoto.NewScore(subnet.FeatureSlice())
	metrics.ScoresComputed.WithLabelValues("rules.Check").Inc()
	if subnet.ID != "" {
		metrics.SubnetMinCoefficient.WithLabelValues(subnet.ID).Set(score.Min)
	}
	n := len(subnet.Nodes)

	result := func(v Violation) Result {
		outcome := "pass"
		if v != nil {
			outcome = violationOutcome(v)
		}
		metrics.RuleChecks.WithLabelValues(outcome).Inc()
		return Result{Score: score, Violation: v}
	}

	if v := checkDfinityPresence(subnet, n); v != nil {
		return result(v)
	}
	if v := checkFeatureSuperMajority(subnet, n); v != nil {
		return result(v)
	}
	if v := checkSingleProviderHalt(score, n); v != nil {
		return result(v)
	}
	if min != nil {
		if v := checkMinimumCoefficients(score, *min); v != nil {
			return result(v)
		}
	}
	return result(nil)
}

func violationOutcome(v Violation) string {
	switch v.(type) {
	case *domain.DfinityOwnedNodeMissingError:
		return "dfinity_owned_node_missing"
	case *domain.FeatureSuperMajorityError:
		return "feature_super_majority"
	case *domain.SingleNodeProviderCanHaltError:
		return "single_node_provider_can_halt"
	case *domain.BelowMinimumCoefficientError:
		return "below_minimum_coefficient"
	default:
		return "unknown"
	}
}

func checkDfinityPresence(subnet domain.Subnet, n int) Violation {
	if n < dfinityPresenceMinSize {
		return nil
	}
	for _, node := range subnet.Nodes {
		if node.DfinityOwned {
			return nil
		}
	}
	return &domain.DfinityOwnedNodeMissingError{}
}

func checkFeatureSuperMajority(subnet domain.Subnet, n int) Violation {
	if n == 0 {
		return nil
	}
	// spec §8's worked example (13 nodes, country super-majority) pins the
	// limit at floor(2n/3) = 8, not ceil(2n/3) = 9, so truncating integer
	// division is used despite the ceiling notation in spec §4.4's prose.
	limit := (superMajorityNumerator * n) / superMajorityDenominator

	for _, f := range domain.Features() {
		counts := make(map[string]int, n)
		for i, node := range subnet.Nodes {
			v, ok := node.Features.Get(f)
			if !ok {
				v = unknownNodeToken(i)
			}
			counts[v]++
		}
		for _, c := range counts {
			if c >= limit {
				return &domain.FeatureSuperMajorityError{Feature: f, Count: c, Limit: limit}
			}
		}
	}
	return nil
}

func unknownNodeToken(index int) string {
	// Mirrors nakamoto.unknownToken's uniqueness guarantee without
	// depending on that unexported helper.
	return "\x00unknown#" + itoa(index)
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	neg := i < 0
	if neg {
		i = -i
	}
	var buf [20]byte
	pos := len(buf)
	for i > 0 {
		pos--
		buf[pos] = byte('0' + i%10)
		i /= 10
	}
	if neg {
		pos--
		buf[pos] = '-'
	}
	return string(buf[pos:])
}

func checkSingleProviderHalt(score nakamoto.Score, n int) Violation {
	if n < singleProviderHaltMinSize {
		return nil
	}
	if score.Coefficients[domain.NodeProvider] == 1 {
		return &domain.SingleNodeProviderCanHaltError{}
	}
	return nil
}

// checkMinimumCoefficients enforces the caller-supplied per-feature floors
// from spec §4.4 rule 4. MinCoefficients.Average is part of the
// min_nakamoto_coefficients request shape (spec §6) but is informational —
// spec §4.4 only names a per-feature floor check here, so Average is
// surfaced to callers (e.g. for their own filtering) rather than enforced
// as a second rule.
func checkMinimumCoefficients(score nakamoto.Score, min MinCoefficients) Violation {
	for _, f := range domain.Features() {
		want, ok := min.Coefficients[f]
		if !ok {
			continue
		}
		have := score.Coefficients[f]
		if have < want {
			return &domain.BelowMinimumCoefficientError{Feature: f, Have: have, Want: want}
		}
	}
	return nil
}
