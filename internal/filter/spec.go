package filter

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"inspector.onebusaway.org/internal/memo"
)

// Kind selects the identifier a filter matches on.
type Kind string

const (
	KindVehicle Kind = "vehicle"
	KindTrip    Kind = "trip"
	KindRoute   Kind = "route"
)

// ParseKind accepts the lowercase kind names and the selection box labels
// ("Vehicle ID", "Trip ID", "Route ID").
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "vehicle", "vehicle id", "vehicle_id":
		return KindVehicle, nil
	case "trip", "trip id", "trip_id":
		return KindTrip, nil
	case "route", "route id", "route_id":
		return KindRoute, nil
	}
	return "", fmt.Errorf("unknown filter kind %q", s)
}

// Spec describes one filter request. A spec without values passes both
// record sets through. A single-select spec uses Values[0] only.
type Spec struct {
	Kind   Kind
	Values []string
	Multi  bool
}

// IsZero reports whether the spec selects nothing.
func (s Spec) IsZero() bool {
	for _, v := range s.Values {
		if v != "" {
			return false
		}
	}
	return true
}

// values returns the non-empty values the spec matches, deduplicated. For a
// single-select spec that is at most the first non-empty value.
func (s Spec) values() []string {
	var out []string
	for _, v := range s.Values {
		if v == "" || slices.Contains(out, v) {
			continue
		}
		out = append(out, v)
		if !s.Multi {
			break
		}
	}
	return out
}

// Key identifies the spec for memoization. Value order does not matter.
func (s Spec) Key() string {
	vals := s.values()
	slices.Sort(vals)
	parts := append([]string{string(s.Kind), strconv.FormatBool(s.Multi)}, vals...)
	return memo.Key("spec", parts...)
}
