package feed

import (
	"fmt"
	"time"

	"github.com/OneBusAway/go-gtfs"
)

// Summary counts what a feed carries, by entity type.
type Summary struct {
	CreatedAt   time.Time `json:"createdAt"`
	Vehicles    int       `json:"vehicles"`
	TripUpdates int       `json:"tripUpdates"`
	Alerts      int       `json:"alerts"`
}

// Summarize parses raw with go-gtfs' realtime model. It is informational
// only and independent of Decode.
func Summarize(raw []byte) (Summary, error) {
	rt, err := gtfs.ParseRealtime(raw, &gtfs.ParseRealtimeOptions{})
	if err != nil {
		return Summary{}, fmt.Errorf("summarize feed: %w", err)
	}
	return Summary{
		CreatedAt:   rt.CreatedAt,
		Vehicles:    len(rt.Vehicles),
		TripUpdates: len(rt.Trips),
		Alerts:      len(rt.Alerts),
	}, nil
}
