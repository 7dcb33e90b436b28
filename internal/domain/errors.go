package domain

import "fmt"

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Precondition violations. These are programmer/caller errors and are never
// retried — they fail loudly, per spec §7.

var (
	// ErrNaNCoefficient is the value the score comparator panics with when a
	// NaN coefficient reaches it. The comparator never tolerates NaN.
	ErrNaNCoefficient = fmt.Errorf("domain: NaN coefficient in score comparison")
)

// ─── Structured Violations & Failures ──────────────────────────────────────
// Typed, field-carrying errors for the taxonomy in spec §7. Each implements
// error so callers that only want a message can use it directly, and each
// exposes its fields for callers (CLI/API) that want to branch on them
// without parsing strings.

// UnknownFeatureError is returned when decoding an unrecognized feature name.
type UnknownFeatureError struct {
	Name string
}

func (e *UnknownFeatureError) Error() string {
	return fmt.Sprintf("domain: unknown feature %q", e.Name)
}

// DfinityOwnedNodeMissingError is returned when a subnet of non-trivial size
// contains no dfinity_owned node.
type DfinityOwnedNodeMissingError struct{}

func (e *DfinityOwnedNodeMissingError) Error() string {
	return "domain: subnet has no dfinity-owned node"
}

// FeatureSuperMajorityError is returned when a single feature value controls
// at least Limit = floor(2n/3) of a subnet's n nodes.
type FeatureSuperMajorityError struct {
	Feature Feature
	Count   int
	Limit   int
}

func (e *FeatureSuperMajorityError) Error() string {
	return fmt.Sprintf("Feature '%s' controls %d of nodes, which is >= %d (2/3 of all) nodes", e.Feature, e.Count, e.Limit)
}

// SingleNodeProviderCanHaltError is returned when a single node provider
// could halt the subnet (node_provider coefficient == 1 on a large enough
// subnet).
type SingleNodeProviderCanHaltError struct{}

func (e *SingleNodeProviderCanHaltError) Error() string {
	return "domain: a single node provider can halt this subnet"
}

// BelowMinimumCoefficientError is returned when a feature's coefficient is
// below a caller-supplied floor.
type BelowMinimumCoefficientError struct {
	Feature Feature
	Have    float64
	Want    float64
}

func (e *BelowMinimumCoefficientError) Error() string {
	return fmt.Sprintf("domain: feature %s coefficient %.2f is below requested minimum %.2f", e.Feature, e.Have, e.Want)
}

// InsufficientCandidatesError is returned when a candidate pool is smaller
// than the number of nodes requested.
type InsufficientCandidatesError struct {
	Needed int
	Have   int
}

func (e *InsufficientCandidatesError) Error() string {
	return fmt.Sprintf("domain: insufficient candidates: needed %d, have %d", e.Needed, e.Have)
}

// PinnedAndRemovedError is returned when a caller asks to remove a node id
// that was also pinned.
type PinnedAndRemovedError struct {
	ID NodeID
}

func (e *PinnedAndRemovedError) Error() string {
	return fmt.Sprintf("domain: node %s is both pinned and requested for removal", e.ID)
}

// UnknownNodeError is returned when a referenced node id is not present in
// the subnet or pool it was expected in.
type UnknownNodeError struct {
	ID NodeID
}

func (e *UnknownNodeError) Error() string {
	return fmt.Sprintf("domain: unknown node %s", e.ID)
}
