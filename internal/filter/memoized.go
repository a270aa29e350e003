package filter

import (
	"strconv"

	"inspector.onebusaway.org/internal/feed"
	"inspector.onebusaway.org/internal/memo"
)

type result struct {
	vehicles, trips *feed.RecordSet
}

// Memo caches Apply results in an injected store, keyed by the content of
// both inputs and the spec.
type Memo struct {
	engine *Engine
	store  memo.Store
}

// Memoized wraps the default engine.
func Memoized(store memo.Store) *Memo {
	return defaultEngine.Memoized(store)
}

func (e *Engine) Memoized(store memo.Store) *Memo {
	if store == nil {
		store = memo.Nop{}
	}
	return &Memo{engine: e, store: store}
}

// Apply returns the cached result for equal inputs, computing it on a miss.
// Record sets are immutable, so cached sets are returned as they are.
func (m *Memo) Apply(vehicles, trips *feed.RecordSet, spec Spec) (*feed.RecordSet, *feed.RecordSet) {
	c := m.engine.cols
	key := memo.Key("filter",
		c.Vehicles.VehicleID, c.Vehicles.TripID, c.Vehicles.RouteID,
		c.Trips.VehicleID, c.Trips.TripID, c.Trips.RouteID,
		strconv.FormatUint(vehicles.Fingerprint(), 16),
		strconv.FormatUint(trips.Fingerprint(), 16),
		spec.Key(),
	)
	if cached, ok := m.store.Get(key); ok {
		if r, ok := cached.(result); ok {
			return r.vehicles, r.trips
		}
	}
	v, t := m.engine.Apply(vehicles, trips, spec)
	m.store.Set(key, result{vehicles: v, trips: t})
	return v, t
}

// AvailableIdentifiers is not cached; it is linear in the input.
func (m *Memo) AvailableIdentifiers(kind Kind, vehicles, trips *feed.RecordSet) []string {
	return m.engine.AvailableIdentifiers(kind, vehicles, trips)
}
