// Package feedtest builds GTFS-realtime fixtures for tests.
package feedtest

import (
	"testing"

	gtfsrt "github.com/OneBusAway/go-gtfs/proto"
	"google.golang.org/protobuf/proto"
)

// HeaderTimestamp is the header timestamp of every fixture message.
const HeaderTimestamp = 1700000000

// Vehicle describes a vehicle position entity. Zero fields are left unset.
type Vehicle struct {
	EntityID  string
	VehicleID string
	TripID    string
	RouteID   string
	Lat, Lon  float32
	NoPos     bool
	Timestamp uint64
}

// TripUpdate describes a trip update entity. Zero fields are left unset.
type TripUpdate struct {
	EntityID  string
	TripID    string
	RouteID   string
	VehicleID string
	StopIDs   []string
	Timestamp uint64
}

func (v Vehicle) Entity() *gtfsrt.FeedEntity {
	vp := &gtfsrt.VehiclePosition{}
	if v.TripID != "" || v.RouteID != "" {
		vp.Trip = &gtfsrt.TripDescriptor{}
		if v.TripID != "" {
			vp.Trip.TripId = proto.String(v.TripID)
		}
		if v.RouteID != "" {
			vp.Trip.RouteId = proto.String(v.RouteID)
		}
	}
	if v.VehicleID != "" {
		vp.Vehicle = &gtfsrt.VehicleDescriptor{Id: proto.String(v.VehicleID)}
	}
	if !v.NoPos {
		vp.Position = &gtfsrt.Position{
			Latitude:  proto.Float32(v.Lat),
			Longitude: proto.Float32(v.Lon),
		}
	}
	if v.Timestamp != 0 {
		vp.Timestamp = proto.Uint64(v.Timestamp)
	}
	return &gtfsrt.FeedEntity{Id: proto.String(v.EntityID), Vehicle: vp}
}

func (u TripUpdate) Entity() *gtfsrt.FeedEntity {
	trip := &gtfsrt.TripDescriptor{}
	if u.TripID != "" {
		trip.TripId = proto.String(u.TripID)
	}
	if u.RouteID != "" {
		trip.RouteId = proto.String(u.RouteID)
	}
	tu := &gtfsrt.TripUpdate{Trip: trip}
	if u.VehicleID != "" {
		tu.Vehicle = &gtfsrt.VehicleDescriptor{Id: proto.String(u.VehicleID)}
	}
	for i, stopID := range u.StopIDs {
		tu.StopTimeUpdate = append(tu.StopTimeUpdate, &gtfsrt.TripUpdate_StopTimeUpdate{
			StopSequence: proto.Uint32(uint32(i + 1)),
			StopId:       proto.String(stopID),
			Arrival: &gtfsrt.TripUpdate_StopTimeEvent{
				Time: proto.Int64(int64(HeaderTimestamp + 60*(i+1))),
			},
		})
	}
	if u.Timestamp != 0 {
		tu.Timestamp = proto.Uint64(u.Timestamp)
	}
	return &gtfsrt.FeedEntity{Id: proto.String(u.EntityID), TripUpdate: tu}
}

// Message wraps entities in a FeedMessage with a valid header.
func Message(entities ...*gtfsrt.FeedEntity) *gtfsrt.FeedMessage {
	return &gtfsrt.FeedMessage{
		Header: &gtfsrt.FeedHeader{
			GtfsRealtimeVersion: proto.String("2.0"),
			Incrementality:      gtfsrt.FeedHeader_FULL_DATASET.Enum(),
			Timestamp:           proto.Uint64(HeaderTimestamp),
		},
		Entity: entities,
	}
}

// VehicleFeed returns the encoded vehicle positions feed.
func VehicleFeed(t testing.TB, vehicles ...Vehicle) []byte {
	t.Helper()
	entities := make([]*gtfsrt.FeedEntity, 0, len(vehicles))
	for _, v := range vehicles {
		entities = append(entities, v.Entity())
	}
	return Marshal(t, Message(entities...))
}

// TripFeed returns the encoded trip updates feed.
func TripFeed(t testing.TB, updates ...TripUpdate) []byte {
	t.Helper()
	entities := make([]*gtfsrt.FeedEntity, 0, len(updates))
	for _, u := range updates {
		entities = append(entities, u.Entity())
	}
	return Marshal(t, Message(entities...))
}

func Marshal(t testing.TB, msg *gtfsrt.FeedMessage) []byte {
	t.Helper()
	b, err := proto.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal feed message: %v", err)
	}
	return b
}
