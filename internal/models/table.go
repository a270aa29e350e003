package models

import (
	geojson "github.com/paulmach/go.geojson"

	"inspector.onebusaway.org/internal/feed"
	"inspector.onebusaway.org/internal/render"
)

// Table is a record set laid out as rows. Missing cells are null.
type Table struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

func NewTable(rs *feed.RecordSet) Table {
	cols := rs.Columns()
	if cols == nil {
		cols = []string{}
	}
	rows := make([][]any, 0, rs.Len())
	for _, r := range rs.Records() {
		row := make([]any, len(cols))
		for i, c := range cols {
			if s, ok := r.Get(c); ok {
				row[i] = s
			}
		}
		rows = append(rows, row)
	}
	return Table{Columns: cols, Rows: rows}
}

// FilterEcho repeats the filter a response was computed with.
type FilterEcho struct {
	Kind   string   `json:"kind,omitempty"`
	Values []string `json:"values,omitempty"`
	Multi  bool     `json:"multi"`
}

type RecordsResponse struct {
	Snapshot string     `json:"snapshot"`
	Filter   FilterEcho `json:"filter"`
	Vehicles Table      `json:"vehicles"`
	Trips    Table      `json:"trips"`
}

type IdentifiersResponse struct {
	Snapshot string   `json:"snapshot"`
	Kind     string   `json:"kind"`
	List     []string `json:"list"`
}

// MapResponse carries markers as GeoJSON together with the map view.
type MapResponse struct {
	Snapshot string                     `json:"snapshot"`
	Filter   FilterEcho                 `json:"filter"`
	View     render.View                `json:"view"`
	Markers  int                        `json:"markers"`
	Stale    int                        `json:"stale"`
	GeoJSON  *geojson.FeatureCollection `json:"geojson"`
}
