package filter

// SideColumns names the identifier columns of one record kind.
type SideColumns struct {
	VehicleID string
	TripID    string
	RouteID   string
}

func (c SideColumns) forKind(k Kind) string {
	switch k {
	case KindVehicle:
		return c.VehicleID
	case KindTrip:
		return c.TripID
	case KindRoute:
		return c.RouteID
	}
	return ""
}

// Columns names the identifier columns of both record kinds.
type Columns struct {
	Vehicles SideColumns
	Trips    SideColumns
}

// DefaultColumns returns the flat keys produced by decoding canonical
// GTFS-realtime vehicle positions and trip updates.
func DefaultColumns() Columns {
	return Columns{
		Vehicles: SideColumns{
			VehicleID: "vehicle_vehicle_id",
			TripID:    "vehicle_trip_tripId",
			RouteID:   "vehicle_trip_routeId",
		},
		Trips: SideColumns{
			VehicleID: "tripUpdate_vehicle_id",
			TripID:    "tripUpdate_trip_tripId",
			RouteID:   "tripUpdate_trip_routeId",
		},
	}
}
