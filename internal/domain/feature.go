// Package domain contains pure business types. This is the innermost ring —
// it depends on nothing but the standard library and github.com/google/uuid
// (for SubnetChange ids).
package domain

import "fmt"

// Feature is one of the six decentralization axes tracked per node. The
// enumeration is closed: adding a value is a breaking change, since the
// fixed iteration order is part of the scoring contract (spec §3).
type Feature int

const (
	NodeProvider Feature = iota
	DataCenter
	DataCenterOwner
	City
	Country
	Continent
)

// featureNames is indexed by Feature and also defines the fixed iteration
// order used throughout scoring and display.
var featureNames = [...]string{
	NodeProvider:    "node_provider",
	DataCenter:      "data_center",
	DataCenterOwner: "data_center_owner",
	City:            "city",
	Country:         "country",
	Continent:       "continent",
}

// Features returns the six features in their fixed, contractual order.
func Features() []Feature {
	out := make([]Feature, len(featureNames))
	for i := range featureNames {
		out[i] = Feature(i)
	}
	return out
}

// String returns the lower-snake-case name used for serialization.
func (f Feature) String() string {
	if int(f) < 0 || int(f) >= len(featureNames) {
		return fmt.Sprintf("feature(%d)", int(f))
	}
	return featureNames[f]
}

// MarshalText implements encoding.TextMarshaler.
func (f Feature) MarshalText() ([]byte, error) {
	if int(f) < 0 || int(f) >= len(featureNames) {
		return nil, &UnknownFeatureError{Name: f.String()}
	}
	return []byte(f.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. An unrecognized token
// fails loudly with UnknownFeatureError, per spec §6/§7.
func (f *Feature) UnmarshalText(text []byte) error {
	name := string(text)
	for i, n := range featureNames {
		if n == name {
			*f = Feature(i)
			return nil
		}
	}
	return &UnknownFeatureError{Name: name}
}

// ParseFeature parses the lower-snake-case wire form of a Feature.
func ParseFeature(name string) (Feature, error) {
	var f Feature
	if err := f.UnmarshalText([]byte(name)); err != nil {
		return 0, err
	}
	return f, nil
}
