package filter

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inspector.onebusaway.org/internal/feed"
	"inspector.onebusaway.org/internal/feed/feedtest"
)

// record builds a flat record from key/value pairs. Values that parse as
// JSON numbers are stored as numbers.
func record(t *testing.T, kv ...string) feed.Record {
	t.Helper()
	require.Zero(t, len(kv)%2)

	cells := make([]feed.Cell, 0, len(kv)/2)
	original := map[string]string{}
	for i := 0; i < len(kv); i += 2 {
		s := feed.StringScalar(kv[i+1])
		if json.Valid([]byte(kv[i+1])) && kv[i+1][0] != '"' && kv[i+1] != "true" && kv[i+1] != "false" && kv[i+1] != "null" {
			s = feed.NumberScalar(kv[i+1])
		}
		cells = append(cells, feed.Cell{Key: kv[i], Value: s})
		original[kv[i]] = kv[i+1]
	}
	b, err := json.Marshal(original)
	require.NoError(t, err)
	return feed.NewRecord(cells, b)
}

func set(records ...feed.Record) *feed.RecordSet {
	return feed.NewRecordSet(records)
}

func column(rs *feed.RecordSet, col string) []string {
	out := []string{}
	for _, r := range rs.Records() {
		v, _ := r.String(col)
		out = append(out, v)
	}
	return out
}

func TestVehicleIDSingleSelect(t *testing.T) {
	v101 := record(t, "vehicle_vehicle_id", "101", "vehicle_position_latitude", "1.0")
	v202 := record(t, "vehicle_vehicle_id", "202", "vehicle_position_latitude", "2.0")
	t1 := record(t, "tripUpdate_vehicle_id", "101", "tripUpdate_trip_tripId", "T1")

	vehicles, trips := set(v101, v202), set(t1)
	gotV, gotT := Apply(vehicles, trips, Spec{Kind: KindVehicle, Values: []string{"101"}})

	assert.True(t, gotV.Equal(set(v101)))
	assert.True(t, gotT.Equal(set(t1)))
	lat, ok := gotV.At(0).Float("vehicle_position_latitude")
	require.True(t, ok)
	assert.Equal(t, 1.0, lat)
}

func TestTripIDFallsBackToVehicleTripColumn(t *testing.T) {
	v101 := record(t, "vehicle_vehicle_id", "101", "vehicle_trip_tripId", "T1")

	gotV, gotT := Apply(set(v101), feed.Empty(), Spec{Kind: KindTrip, Values: []string{"T1"}})

	assert.True(t, gotT.IsEmpty())
	assert.True(t, gotV.Equal(set(v101)))
}

func TestTripIDResolvesVehiclesThroughTripUpdates(t *testing.T) {
	// The vehicle's own trip id disagrees with the trip updates, which win.
	vehicles := set(
		record(t, "vehicle_vehicle_id", "101", "vehicle_trip_tripId", "OLD"),
		record(t, "vehicle_vehicle_id", "202", "vehicle_trip_tripId", "T1"),
	)
	trips := set(
		record(t, "tripUpdate_vehicle_id", "101", "tripUpdate_trip_tripId", "T1"),
		record(t, "tripUpdate_vehicle_id", "303", "tripUpdate_trip_tripId", "T2"),
	)

	gotV, gotT := Apply(vehicles, trips, Spec{Kind: KindTrip, Values: []string{"T1"}})
	assert.Equal(t, []string{"101"}, column(gotV, "vehicle_vehicle_id"))
	assert.Equal(t, []string{"T1"}, column(gotT, "tripUpdate_trip_tripId"))
}

func TestTripIDFallsBackWhenTripsNameNoVehicle(t *testing.T) {
	vehicles := set(
		record(t, "vehicle_vehicle_id", "101", "vehicle_trip_tripId", "T1"),
		record(t, "vehicle_vehicle_id", "202", "vehicle_trip_tripId", "T2"),
	)
	trips := set(record(t, "tripUpdate_trip_tripId", "T1"))

	gotV, gotT := Apply(vehicles, trips, Spec{Kind: KindTrip, Values: []string{"T1"}})
	assert.Equal(t, []string{"101"}, column(gotV, "vehicle_vehicle_id"))
	assert.Equal(t, 1, gotT.Len())
}

func TestRouteIDSingleSelect(t *testing.T) {
	vehicles := set(
		record(t, "vehicle_vehicle_id", "1", "vehicle_trip_routeId", "R1"),
		record(t, "vehicle_vehicle_id", "2", "vehicle_trip_routeId", "R2"),
	)
	trips := set(
		record(t, "tripUpdate_trip_tripId", "T1", "tripUpdate_trip_routeId", "R2"),
		record(t, "tripUpdate_trip_tripId", "T2", "tripUpdate_trip_routeId", "R1"),
	)

	gotV, gotT := Apply(vehicles, trips, Spec{Kind: KindRoute, Values: []string{"R1"}})
	assert.Equal(t, []string{"1"}, column(gotV, "vehicle_vehicle_id"))
	assert.Equal(t, []string{"T2"}, column(gotT, "tripUpdate_trip_tripId"))
}

func TestSingleSelectAbsentColumnLeavesSideUnchanged(t *testing.T) {
	vehicles := set(record(t, "vehicle_vehicle_id", "101"), record(t, "vehicle_vehicle_id", "202"))
	trips := set(record(t, "tripUpdate_trip_tripId", "T1"))

	gotV, gotT := Apply(vehicles, trips, Spec{Kind: KindVehicle, Values: []string{"101"}})
	assert.Equal(t, []string{"101"}, column(gotV, "vehicle_vehicle_id"))
	assert.True(t, gotT.Equal(trips))

	gotV, gotT = Apply(vehicles, trips, Spec{Kind: KindRoute, Values: []string{"R1"}})
	assert.True(t, gotV.Equal(vehicles))
	assert.True(t, gotT.Equal(trips))
}

func TestNoMatchYieldsEmptySetWithColumns(t *testing.T) {
	vehicles := set(record(t, "vehicle_vehicle_id", "101"))

	gotV, _ := Apply(vehicles, feed.Empty(), Spec{Kind: KindVehicle, Values: []string{"999"}})
	assert.True(t, gotV.IsEmpty())
	assert.Equal(t, vehicles.Columns(), gotV.Columns())
}

func TestEmptySpecIsIdentity(t *testing.T) {
	vehicles := set(record(t, "vehicle_vehicle_id", "101"), record(t, "vehicle_vehicle_id", "202"))
	trips := set(record(t, "tripUpdate_vehicle_id", "101"))

	for _, spec := range []Spec{
		{},
		{Kind: KindVehicle},
		{Kind: KindTrip, Values: []string{""}},
		{Kind: KindRoute, Values: []string{}, Multi: true},
	} {
		gotV, gotT := Apply(vehicles, trips, spec)
		assert.True(t, gotV.Equal(vehicles))
		assert.True(t, gotT.Equal(trips))
		assert.NotSame(t, vehicles, gotV)
		assert.NotSame(t, trips, gotT)
	}

	gotV, gotT := Apply(nil, nil, Spec{})
	assert.True(t, gotV.IsEmpty())
	assert.True(t, gotT.IsEmpty())
}

func TestApplyIsPure(t *testing.T) {
	raw := feedtest.VehicleFeed(t,
		feedtest.Vehicle{EntityID: "1", VehicleID: "101", TripID: "T1", RouteID: "R1"},
		feedtest.Vehicle{EntityID: "2", VehicleID: "202", TripID: "T2", RouteID: "R1"},
	)
	vehicles, err := feed.Decode(raw)
	require.NoError(t, err)
	trips, err := feed.Decode(feedtest.TripFeed(t,
		feedtest.TripUpdate{EntityID: "a", TripID: "T1", RouteID: "R1", VehicleID: "101"},
	))
	require.NoError(t, err)

	before := [2]uint64{vehicles.Fingerprint(), trips.Fingerprint()}
	for _, spec := range []Spec{
		{Kind: KindVehicle, Values: []string{"101"}},
		{Kind: KindTrip, Values: []string{"T1"}},
		{Kind: KindRoute, Values: []string{"R1", "R2"}, Multi: true},
	} {
		v1, t1 := Apply(vehicles, trips, spec)
		v2, t2 := Apply(vehicles, trips, spec)
		assert.True(t, v1.Equal(v2))
		assert.True(t, t1.Equal(t2))
		assert.Equal(t, v1.Fingerprint(), v2.Fingerprint())
	}
	assert.Equal(t, before, [2]uint64{vehicles.Fingerprint(), trips.Fingerprint()})
	assert.Equal(t, 2, vehicles.Len())
}

func TestMultiSelectClosure(t *testing.T) {
	vehicles := set(
		record(t, "vehicle_vehicle_id", "101", "vehicle_trip_tripId", "T1", "vehicle_trip_routeId", "R1"),
		record(t, "vehicle_vehicle_id", "202", "vehicle_trip_tripId", "T2", "vehicle_trip_routeId", "R1"),
		record(t, "vehicle_vehicle_id", "303", "vehicle_trip_tripId", "T3", "vehicle_trip_routeId", "R2"),
	)
	trips := set(
		record(t, "tripUpdate_vehicle_id", "101", "tripUpdate_trip_tripId", "T1", "tripUpdate_trip_routeId", "R1"),
		record(t, "tripUpdate_vehicle_id", "303", "tripUpdate_trip_tripId", "T3", "tripUpdate_trip_routeId", "R1"),
		record(t, "tripUpdate_vehicle_id", "404", "tripUpdate_trip_tripId", "T4", "tripUpdate_trip_routeId", "R2"),
	)

	t.Run("vehicle ids", func(t *testing.T) {
		gotV, gotT := Apply(vehicles, trips, Spec{Kind: KindVehicle, Values: []string{"101", "202"}, Multi: true})
		// 202 has no trip update left, so closure drops it.
		assert.Equal(t, []string{"101"}, column(gotV, "vehicle_vehicle_id"))
		assert.Equal(t, []string{"T1"}, column(gotT, "tripUpdate_trip_tripId"))
	})

	t.Run("route ids", func(t *testing.T) {
		gotV, gotT := Apply(vehicles, trips, Spec{Kind: KindRoute, Values: []string{"R1"}, Multi: true})
		// Vehicle 303 is on R2 per its position but R1 per trip T3; it only
		// survives on one side, so closure removes T3 as well.
		assert.Equal(t, []string{"101"}, column(gotV, "vehicle_vehicle_id"))
		assert.Equal(t, []string{"T1"}, column(gotT, "tripUpdate_trip_tripId"))
	})

	t.Run("trip ids", func(t *testing.T) {
		gotV, gotT := Apply(vehicles, trips, Spec{Kind: KindTrip, Values: []string{"T1", "T3", "T4"}, Multi: true})
		assert.Equal(t, []string{"101", "303"}, column(gotV, "vehicle_vehicle_id"))
		assert.Equal(t, []string{"T1", "T3"}, column(gotT, "tripUpdate_trip_tripId"))
	})
}

func TestMultiSelectSkipsClosureWithoutCounterpart(t *testing.T) {
	vehicleIDs := set(
		record(t, "vehicle_vehicle_id", "101"),
		record(t, "vehicle_vehicle_id", "202"),
		record(t, "vehicle_vehicle_id", "303"),
	)
	vehiclesWithTrips := set(
		record(t, "vehicle_vehicle_id", "101", "vehicle_trip_tripId", "T1"),
		record(t, "vehicle_vehicle_id", "202", "vehicle_trip_tripId", "T2"),
	)

	tests := []struct {
		name         string
		vehicles     *feed.RecordSet
		trips        *feed.RecordSet
		spec         Spec
		wantVehicles []string
		wantTrips    []string
	}{
		{
			name:         "empty trips",
			vehicles:     vehicleIDs,
			trips:        feed.Empty(),
			spec:         Spec{Kind: KindVehicle, Values: []string{"101", "303"}, Multi: true},
			wantVehicles: []string{"101", "303"},
			wantTrips:    []string{},
		},
		{
			// The trips side has nothing linking it to vehicles, so it stays empty.
			name:         "no shared column",
			vehicles:     vehicleIDs,
			trips:        set(record(t, "tripUpdate_trip_routeId", "R1")),
			spec:         Spec{Kind: KindVehicle, Values: []string{"101", "303"}, Multi: true},
			wantVehicles: []string{"101", "303"},
			wantTrips:    []string{},
		},
		{
			name:     "trips without vehicle column",
			vehicles: vehiclesWithTrips,
			trips: set(
				record(t, "tripUpdate_trip_tripId", "T1"),
				record(t, "tripUpdate_trip_tripId", "T2"),
			),
			spec:         Spec{Kind: KindVehicle, Values: []string{"101"}, Multi: true},
			wantVehicles: []string{"101"},
			wantTrips:    []string{"T1"},
		},
		{
			name:         "vehicles without route column",
			vehicles:     vehiclesWithTrips,
			trips:        set(record(t, "tripUpdate_vehicle_id", "101", "tripUpdate_trip_tripId", "T1", "tripUpdate_trip_routeId", "R1")),
			spec:         Spec{Kind: KindRoute, Values: []string{"R1"}, Multi: true},
			wantVehicles: []string{"101"},
			wantTrips:    []string{"T1"},
		},
		{
			name:         "neither side has the column",
			vehicles:     vehiclesWithTrips,
			trips:        set(record(t, "tripUpdate_vehicle_id", "101", "tripUpdate_trip_tripId", "T1")),
			spec:         Spec{Kind: KindRoute, Values: []string{"R1"}, Multi: true},
			wantVehicles: []string{},
			wantTrips:    []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotV, gotT := Apply(tt.vehicles, tt.trips, tt.spec)
			assert.Equal(t, tt.wantVehicles, column(gotV, "vehicle_vehicle_id"))
			assert.Equal(t, tt.wantTrips, column(gotT, "tripUpdate_trip_tripId"))
		})
	}
}

// Multi-select with one value agrees with single-select when a side lacks
// the filtered column.
func TestMultiSelectMatchesSingleSelectOnMissingColumn(t *testing.T) {
	vehicles := set(record(t, "vehicle_vehicle_id", "101", "vehicle_trip_tripId", "T1"))
	trips := set(record(t, "tripUpdate_vehicle_id", "101", "tripUpdate_trip_tripId", "T1", "tripUpdate_trip_routeId", "R1"))

	singleV, singleT := Apply(vehicles, trips, Spec{Kind: KindRoute, Values: []string{"R1"}})
	multiV, multiT := Apply(vehicles, trips, Spec{Kind: KindRoute, Values: []string{"R1"}, Multi: true})

	assert.Equal(t, column(singleV, "vehicle_vehicle_id"), column(multiV, "vehicle_vehicle_id"))
	assert.Equal(t, column(singleT, "tripUpdate_trip_tripId"), column(multiT, "tripUpdate_trip_tripId"))
	assert.Equal(t, []string{"101"}, column(multiV, "vehicle_vehicle_id"))
}

func TestAvailableIdentifiers(t *testing.T) {
	vehicles := set(
		record(t, "vehicle_vehicle_id", "10", "vehicle_trip_tripId", "T1", "vehicle_trip_routeId", "9"),
		record(t, "vehicle_vehicle_id", "9", "vehicle_trip_tripId", "abc"),
		record(t, "vehicle_vehicle_id", "abc"),
	)
	trips := set(
		record(t, "tripUpdate_vehicle_id", "2", "tripUpdate_trip_tripId", "T1", "tripUpdate_trip_routeId", "10"),
		record(t, "tripUpdate_trip_tripId", "2"),
	)

	assert.Equal(t, []string{"9", "10", "abc"}, AvailableIdentifiers(KindVehicle, vehicles, trips))
	assert.Equal(t, []string{"2", "T1", "abc"}, AvailableIdentifiers(KindTrip, vehicles, trips))
	assert.Equal(t, []string{"9", "10"}, AvailableIdentifiers(KindRoute, vehicles, trips))
	assert.Empty(t, AvailableIdentifiers(KindRoute, feed.Empty(), feed.Empty()))
}

func TestCustomColumns(t *testing.T) {
	cols := DefaultColumns()
	cols.Vehicles.VehicleID = "vehicle_vehicle_label"
	e := New(cols)

	vehicles := set(
		record(t, "vehicle_vehicle_label", "Bus 1"),
		record(t, "vehicle_vehicle_label", "Bus 2"),
	)
	gotV, _ := e.Apply(vehicles, feed.Empty(), Spec{Kind: KindVehicle, Values: []string{"Bus 2"}})
	assert.Equal(t, []string{"Bus 2"}, column(gotV, "vehicle_vehicle_label"))
	assert.Equal(t, cols, e.Columns())
}

func TestParseKind(t *testing.T) {
	for in, want := range map[string]Kind{
		"vehicle":  KindVehicle,
		"Trip ID":  KindTrip,
		" route ":  KindRoute,
		"route_id": KindRoute,
	} {
		got, err := ParseKind(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParseKind("stop")
	assert.Error(t, err)
}

func TestSpecKey(t *testing.T) {
	a := Spec{Kind: KindTrip, Values: []string{"T2", "T1"}, Multi: true}
	b := Spec{Kind: KindTrip, Values: []string{"T1", "T2", "T1"}, Multi: true}
	assert.Equal(t, a.Key(), b.Key())
	assert.NotEqual(t, a.Key(), Spec{Kind: KindTrip, Values: []string{"T1", "T2"}}.Key())
	assert.True(t, Spec{Values: []string{"", ""}}.IsZero())
}
