package feed

import (
	"strconv"
	"strings"
)

// Separator joins path components into flat column names.
const Separator = "_"

var (
	keyEscaper   = strings.NewReplacer("~", "~0", "_", "~1")
	keyUnescaper = strings.NewReplacer("~1", "_", "~0", "~")
)

// Cell is one flattened column of a record.
type Cell struct {
	Key   string
	Value Scalar
}

// EscapeKey makes a mapping key safe to use as a path component: the
// separator never appears in an escaped key, so distinct paths always yield
// distinct flat keys.
func EscapeKey(key string) string {
	if !strings.ContainsAny(key, "~_") {
		return key
	}
	return keyEscaper.Replace(key)
}

// SplitKey recovers the unescaped path components of a flat key.
func SplitKey(flat string) []string {
	parts := strings.Split(flat, Separator)
	for i, p := range parts {
		if strings.Contains(p, "~") {
			parts[i] = keyUnescaper.Replace(p)
		}
	}
	return parts
}

// Flatten emits one cell per leaf scalar, in document order. Mapping keys
// and sequence indexes become path components. Empty mappings and sequences
// have no leaves and produce no cells.
func Flatten(v Value) []Cell {
	var cells []Cell
	flattenInto(&cells, "", true, v)
	return cells
}

func flattenInto(cells *[]Cell, prefix string, root bool, v Value) {
	join := func(component string) string {
		if root {
			return component
		}
		return prefix + Separator + component
	}

	switch {
	case v.isScalar():
		*cells = append(*cells, Cell{Key: prefix, Value: v.scalar})
	case v.kind == KindMapping:
		for _, f := range v.fields {
			flattenInto(cells, join(EscapeKey(f.Key)), false, f.Value)
		}
	case v.kind == KindSequence:
		for i, item := range v.items {
			flattenInto(cells, join(strconv.Itoa(i)), false, item)
		}
	}
}
