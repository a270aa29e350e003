package feed

import (
	"cmp"
	"slices"
	"strings"
)

// SortIdentifiers orders identifiers for display: digit-only strings first
// by integer value, then everything else in byte order. Empty strings are
// dropped. Input is expected to be free of duplicates.
func SortIdentifiers(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	slices.SortFunc(out, compareIdentifiers)
	return out
}

// IsNumericIdentifier reports whether s is non-empty and all ASCII digits.
func IsNumericIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func compareIdentifiers(a, b string) int {
	an, bn := IsNumericIdentifier(a), IsNumericIdentifier(b)
	switch {
	case an && !bn:
		return -1
	case !an && bn:
		return 1
	case an && bn:
		if c := compareDigits(a, b); c != 0 {
			return c
		}
	}
	return strings.Compare(a, b)
}

// compareDigits compares digit strings by value without overflowing.
func compareDigits(a, b string) int {
	ta, tb := strings.TrimLeft(a, "0"), strings.TrimLeft(b, "0")
	if c := cmp.Compare(len(ta), len(tb)); c != 0 {
		return c
	}
	return strings.Compare(ta, tb)
}

// DistinctValues collects the distinct non-empty values found in any of
// cols, in first-seen order. Absent columns contribute nothing.
func DistinctValues(rs *RecordSet, cols ...string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, col := range cols {
		if !rs.HasColumn(col) {
			continue
		}
		for _, r := range rs.records {
			v, ok := r.String(col)
			if !ok || v == "" {
				continue
			}
			if _, dup := seen[v]; dup {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	return out
}
