// Package render turns vehicle position records into map markers.
package render

import (
	"strings"
	"time"

	"inspector.onebusaway.org/internal/feed"
)

// StaleAfter is the age past which a position is flagged stale.
const StaleAfter = 15 * time.Minute

// TimestampLayout formats popup timestamps, always in UTC.
const TimestampLayout = "2006-01-02 15:04:05"

// Columns names the record columns markers are built from.
type Columns struct {
	Latitude  string
	Longitude string
	Timestamp string
	VehicleID string
	EntityID  string
}

func DefaultColumns() Columns {
	return Columns{
		Latitude:  "vehicle_position_latitude",
		Longitude: "vehicle_position_longitude",
		Timestamp: "vehicle_timestamp",
		VehicleID: "vehicle_vehicle_id",
		EntityID:  "id",
	}
}

// PopupField is one labelled value shown in a marker popup.
type PopupField struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Marker is one vehicle on the map.
type Marker struct {
	EntityID  string       `json:"entityId,omitempty"`
	VehicleID string       `json:"vehicleId,omitempty"`
	Lat       float64      `json:"lat"`
	Lon       float64      `json:"lon"`
	Timestamp *time.Time   `json:"timestamp,omitempty"`
	Stale     bool         `json:"stale"`
	Popup     []PopupField `json:"popup"`
}

// Markers uses the default columns.
func Markers(rs *feed.RecordSet, now time.Time) []Marker {
	return DefaultColumns().Markers(rs, now)
}

// Markers builds one marker per record carrying both coordinates; other
// records are skipped. A marker is stale when its timestamp is missing or
// older than StaleAfter relative to now.
func (c Columns) Markers(rs *feed.RecordSet, now time.Time) []Marker {
	markers := []Marker{}
	if !rs.HasColumn(c.Latitude) || !rs.HasColumn(c.Longitude) {
		return markers
	}
	columns := rs.Columns()
	for _, r := range rs.Records() {
		lat, okLat := r.Float(c.Latitude)
		lon, okLon := r.Float(c.Longitude)
		if !okLat || !okLon {
			continue
		}
		m := Marker{Lat: lat, Lon: lon, Stale: true}
		m.EntityID, _ = r.String(c.EntityID)
		m.VehicleID, _ = r.String(c.VehicleID)
		if ts, ok := r.Int(c.Timestamp); ok && ts > 0 {
			t := time.Unix(ts, 0).UTC()
			m.Timestamp = &t
			m.Stale = now.Sub(t) > StaleAfter
		}
		m.Popup = c.popup(r, columns, m.Timestamp)
		markers = append(markers, m)
	}
	return markers
}

func (c Columns) popup(r feed.Record, columns []string, ts *time.Time) []PopupField {
	fields := make([]PopupField, 0, len(columns))
	for _, col := range columns {
		v, ok := r.String(col)
		if !ok {
			continue
		}
		if col == c.Timestamp && ts != nil {
			v = ts.Format(TimestampLayout)
		}
		fields = append(fields, PopupField{Name: strings.ReplaceAll(col, "vehicle_", ""), Value: v})
	}
	return fields
}
