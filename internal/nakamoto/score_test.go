package nakamoto

import (
	"math"
	"testing"

	"github.com/icnetwork/decentralization/internal/domain"
)

func uniformFeatures(value string) domain.NodeFeatures {
	nf := make(domain.NodeFeatures)
	for _, f := range domain.Features() {
		nf[f] = value
	}
	return nf
}

func TestNewScore_SingleUniformNode(t *testing.T) {
	score := NewScore([]domain.NodeFeatures{uniformFeatures("foo")})

	for _, f := range domain.Features() {
		if score.Coefficients[f] != 1 {
			t.Errorf("coefficient[%s] = %v, want 1", f, score.Coefficients[f])
		}
	}
	if score.Min != 1 {
		t.Errorf("Min = %v, want 1", score.Min)
	}
	if score.AvgLinear != 1 {
		t.Errorf("AvgLinear = %v, want 1", score.AvgLinear)
	}
	if score.AvgLog2 != 0 {
		t.Errorf("AvgLog2 = %v, want 0", score.AvgLog2)
	}
}

func TestNewScore_Empty(t *testing.T) {
	score := NewScore(nil)
	for _, f := range domain.Features() {
		if score.Coefficients[f] != 0 {
			t.Errorf("coefficient[%s] = %v, want 0", f, score.Coefficients[f])
		}
	}
	if !math.IsInf(score.Min, 1) {
		t.Errorf("Min = %v, want +Inf", score.Min)
	}
	if score.AvgLinear != 0 || score.AvgLog2 != 0 {
		t.Errorf("averages = (%v, %v), want (0, 0)", score.AvgLinear, score.AvgLog2)
	}
}

func TestNewScore_UnknownsDoNotCoalesce(t *testing.T) {
	// Two nodes each missing Country must count as two distinct actors,
	// not one "unknown" actor, or the coefficient would be inflated.
	a := domain.NodeFeatures{domain.NodeProvider: "np1"}
	b := domain.NodeFeatures{domain.NodeProvider: "np2"}
	score := NewScore([]domain.NodeFeatures{a, b})

	// total=2, threshold=0; each actor has 1 node: first actor already
	// exceeds threshold(0), so coefficient should be 1 regardless of
	// whether unknowns coalesce. Use a 3rd node to make the distinction
	// observable: 3 nodes all missing Country should need 2 actors to
	// exceed threshold(1) if properly distinct, not 1 if wrongly coalesced.
	c := domain.NodeFeatures{domain.NodeProvider: "np3"}
	score = NewScore([]domain.NodeFeatures{a, b, c})
	if score.Coefficients[domain.Country] != 2 {
		t.Errorf("Country coefficient = %v, want 2 (unknowns must not coalesce)", score.Coefficients[domain.Country])
	}
}

func TestNewScore_Determinism(t *testing.T) {
	build := func() []domain.NodeFeatures {
		return []domain.NodeFeatures{
			{domain.NodeProvider: "a", domain.Country: "US"},
			{domain.NodeProvider: "b", domain.Country: "US"},
			{domain.NodeProvider: "c", domain.Country: "CH"},
		}
	}
	s1 := NewScore(build())
	s2 := NewScore(build())
	if !s1.Equal(s2) {
		t.Errorf("same multiset of features produced different scores: %v vs %v", s1, s2)
	}
}

func TestScore_CompareTotalAndAntisymmetric(t *testing.T) {
	better := NewScore([]domain.NodeFeatures{
		uniformFeatures("a"), uniformFeatures("b"), uniformFeatures("c"),
	})
	worse := NewScore([]domain.NodeFeatures{
		uniformFeatures("a"), uniformFeatures("a"), uniformFeatures("a"),
	})

	cmp := better.Compare(worse)
	rev := worse.Compare(better)

	trueCount := 0
	if cmp < 0 {
		trueCount++
	}
	if cmp == 0 {
		trueCount++
	}
	if cmp > 0 {
		trueCount++
	}
	if trueCount != 1 {
		t.Fatalf("Compare must yield exactly one of <,=,> ; got cmp=%d", cmp)
	}
	if (cmp < 0) != (rev > 0) || (cmp > 0) != (rev < 0) || (cmp == 0) != (rev == 0) {
		t.Errorf("Compare is not antisymmetric: cmp=%d rev=%d", cmp, rev)
	}
}

func TestScore_CompareReflexive(t *testing.T) {
	s := NewScore([]domain.NodeFeatures{uniformFeatures("x"), uniformFeatures("y")})
	if s.Compare(s) != 0 {
		t.Errorf("Compare(s,s) = %d, want 0", s.Compare(s))
	}
}

func TestScore_String(t *testing.T) {
	s := NewScore([]domain.NodeFeatures{uniformFeatures("foo")})
	out := s.String()
	if out == "" {
		t.Fatal("String() returned empty")
	}
	if !contains(out, "NakamotoScore: min") {
		t.Errorf("String() = %q, missing expected prefix", out)
	}
}

func contains(haystack, needle string) bool {
	return len(haystack) >= len(needle) && (func() bool {
		for i := 0; i+len(needle) <= len(haystack); i++ {
			if haystack[i:i+len(needle)] == needle {
				return true
			}
		}
		return false
	})()
}

func TestScore_ControlPowerCriticalFeatures(t *testing.T) {
	// Country and Continent both tied for the minimum coefficient; their
	// controlled node counts should sum.
	features := []domain.NodeFeatures{
		{domain.Country: "US", domain.Continent: "NA", domain.NodeProvider: "np1"},
		{domain.Country: "US", domain.Continent: "NA", domain.NodeProvider: "np2"},
		{domain.Country: "CH", domain.Continent: "EU", domain.NodeProvider: "np3"},
	}
	s := NewScore(features)
	if s.ControlPowerCriticalFeatures() != 4 {
		t.Errorf("ControlPowerCriticalFeatures() = %d, want 4 (2 country + 2 continent)", s.ControlPowerCriticalFeatures())
	}
}
