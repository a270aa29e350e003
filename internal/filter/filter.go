// Package filter cross-references vehicle position and trip update records
// by vehicle, trip or route id.
//
// Filtering is pure: inputs are never modified and equal inputs always give
// equal outputs. Missing columns and empty matches are not errors; they
// produce empty or unchanged record sets as described on each function.
package filter

import (
	"inspector.onebusaway.org/internal/feed"
)

// Engine applies filter specs using a fixed set of identifier columns.
type Engine struct {
	cols Columns
}

// New returns an engine for cols.
func New(cols Columns) *Engine {
	return &Engine{cols: cols}
}

var defaultEngine = New(DefaultColumns())

// Apply filters with the default columns.
func Apply(vehicles, trips *feed.RecordSet, spec Spec) (*feed.RecordSet, *feed.RecordSet) {
	return defaultEngine.Apply(vehicles, trips, spec)
}

// Columns returns the identifier columns used by e.
func (e *Engine) Columns() Columns { return e.cols }

// Apply returns filtered copies of vehicles and trips.
//
// Single-select:
//   - vehicle and route ids match each side on its own column;
//   - a trip id matches trip records first, then vehicle records whose
//     vehicle id appears in the matched trips. When the matched trips name no
//     vehicle, vehicle records are matched on their own trip id instead.
//
// A single-select step whose column is absent from a side leaves that side
// unchanged.
//
// Multi-select matches set membership with the same per-kind rules and then
// narrows both sides to what the other side still references. A side whose
// column is absent is derived from the other side's matches when the two
// share an identifier column, and is empty otherwise. See closure.
func (e *Engine) Apply(vehicles, trips *feed.RecordSet, spec Spec) (*feed.RecordSet, *feed.RecordSet) {
	values := spec.values()
	if len(values) == 0 {
		return vehicles.Clone(), trips.Clone()
	}
	if spec.Multi {
		return e.multi(vehicles, trips, spec.Kind, toSet(values))
	}
	return e.single(vehicles, trips, spec.Kind, values[0])
}

func (e *Engine) single(vehicles, trips *feed.RecordSet, kind Kind, value string) (*feed.RecordSet, *feed.RecordSet) {
	vc, tc := e.cols.Vehicles, e.cols.Trips
	match := toSet([]string{value})

	switch kind {
	case KindVehicle, KindRoute:
		return whereInOrKeep(vehicles, vc.forKind(kind), match), whereInOrKeep(trips, tc.forKind(kind), match)
	case KindTrip:
		var derived []string
		matched := trips.Clone()
		if trips.HasColumn(tc.TripID) {
			matched = whereIn(trips, tc.TripID, match)
			derived = feed.DistinctValues(matched, tc.VehicleID)
		}
		if len(derived) > 0 && vehicles.HasColumn(vc.VehicleID) {
			return whereIn(vehicles, vc.VehicleID, toSet(derived)), matched
		}
		return whereInOrKeep(vehicles, vc.TripID, match), matched
	}
	return vehicles.Clone(), trips.Clone()
}

func (e *Engine) multi(vehicles, trips *feed.RecordSet, kind Kind, match map[string]struct{}) (*feed.RecordSet, *feed.RecordSet) {
	vc, tc := e.cols.Vehicles, e.cols.Trips

	var v, t *feed.RecordSet
	var vCol, tCol string
	switch kind {
	case KindVehicle, KindRoute:
		vCol, tCol = vc.forKind(kind), tc.forKind(kind)
		v = whereIn(vehicles, vCol, match)
		t = whereIn(trips, tCol, match)
	case KindTrip:
		tCol = tc.TripID
		t = whereIn(trips, tCol, match)
		derived := feed.DistinctValues(t, tc.VehicleID)
		if len(derived) > 0 && vehicles.HasColumn(vc.VehicleID) {
			vCol = vc.VehicleID
			v = whereIn(vehicles, vCol, toSet(derived))
		} else {
			vCol = vc.TripID
			v = whereIn(vehicles, vCol, match)
		}
	default:
		return vehicles.Clone(), trips.Clone()
	}
	return e.closure(vehicles, trips, v, t, !vehicles.HasColumn(vCol), !trips.HasColumn(tCol))
}

// closure narrows the filtered sets v and t against each other. Both
// directions are computed from the sets as they were before closure.
//
// Vehicles are kept when a surviving trip names their vehicle id or their
// trip id. Trips are kept when a surviving vehicle names their vehicle id or
// their trip id. A direction is skipped, keeping its side as filtered, when
// the other side's source set was empty or shares no identifier column with
// it: that is no constraint rather than no match.
//
// vOpen and tOpen mark a side whose source lacks the filtered column. Such a
// side places no constraint on the other one. It is instead taken from its
// whole source set and narrowed by the other side, and stays empty when no
// narrowing is possible.
func (e *Engine) closure(vehicles, trips, v, t *feed.RecordSet, vOpen, tOpen bool) (*feed.RecordSet, *feed.RecordSet) {
	vc, tc := e.cols.Vehicles, e.cols.Trips
	byVehicle := vehicles.HasColumn(vc.VehicleID) && trips.HasColumn(tc.VehicleID)
	byTrip := vehicles.HasColumn(vc.TripID) && trips.HasColumn(tc.TripID)
	if !byVehicle && !byTrip {
		return v, t
	}

	outV, outT := v, t
	if !trips.IsEmpty() && !tOpen {
		base := v
		if vOpen {
			base = vehicles
		}
		vehicleIDs := toSet(feed.DistinctValues(t, tc.VehicleID))
		tripIDs := toSet(feed.DistinctValues(t, tc.TripID))
		outV = base.Where(func(r feed.Record) bool {
			return (byVehicle && contains(vehicleIDs, r, vc.VehicleID)) ||
				(byTrip && contains(tripIDs, r, vc.TripID))
		})
	}
	if !vehicles.IsEmpty() && !vOpen {
		base := t
		if tOpen {
			base = trips
		}
		vehicleIDs := toSet(feed.DistinctValues(v, vc.VehicleID))
		tripIDs := toSet(feed.DistinctValues(v, vc.TripID))
		outT = base.Where(func(r feed.Record) bool {
			return (byVehicle && contains(vehicleIDs, r, tc.VehicleID)) ||
				(byTrip && contains(tripIDs, r, tc.TripID))
		})
	}
	return outV, outT
}

// AvailableIdentifiers lists the sorted identifiers a user can pick for
// kind: vehicle ids from vehicle records, trip and route ids from both.
func (e *Engine) AvailableIdentifiers(kind Kind, vehicles, trips *feed.RecordSet) []string {
	var values []string
	switch kind {
	case KindVehicle:
		values = feed.DistinctValues(vehicles, e.cols.Vehicles.VehicleID)
	case KindTrip, KindRoute:
		values = feed.DistinctValues(vehicles, e.cols.Vehicles.forKind(kind))
		seen := toSet(values)
		for _, id := range feed.DistinctValues(trips, e.cols.Trips.forKind(kind)) {
			if _, dup := seen[id]; !dup {
				values = append(values, id)
			}
		}
	}
	return feed.SortIdentifiers(values)
}

// AvailableIdentifiers uses the default columns.
func AvailableIdentifiers(kind Kind, vehicles, trips *feed.RecordSet) []string {
	return defaultEngine.AvailableIdentifiers(kind, vehicles, trips)
}

// whereIn keeps records whose col is in match. An absent column matches
// nothing.
func whereIn(rs *feed.RecordSet, col string, match map[string]struct{}) *feed.RecordSet {
	return rs.Where(func(r feed.Record) bool { return contains(match, r, col) })
}

// whereInOrKeep is whereIn, except that an absent column keeps rs as is.
func whereInOrKeep(rs *feed.RecordSet, col string, match map[string]struct{}) *feed.RecordSet {
	if !rs.HasColumn(col) {
		return rs.Clone()
	}
	return whereIn(rs, col, match)
}

func contains(set map[string]struct{}, r feed.Record, col string) bool {
	v, ok := r.String(col)
	if !ok {
		return false
	}
	_, hit := set[v]
	return hit
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}
