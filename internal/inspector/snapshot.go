package inspector

import (
	"time"

	"github.com/google/uuid"

	"inspector.onebusaway.org/internal/feed"
	"inspector.onebusaway.org/internal/registry"
)

// FeedKind names one of the two feeds of a source.
type FeedKind string

const (
	FeedVehicles FeedKind = "vehicles"
	FeedTrips    FeedKind = "trips"
)

// ParseFeedKind accepts "vehicles" and "trips".
func ParseFeedKind(s string) (FeedKind, bool) {
	switch FeedKind(s) {
	case FeedVehicles, FeedTrips:
		return FeedKind(s), true
	}
	return "", false
}

// Status is the outcome of loading one feed.
type Status string

const (
	StatusNotRequested Status = "not_requested"
	StatusOK           Status = "ok"
	StatusEmpty        Status = "empty"
	StatusFailed       Status = "failed"
)

// FeedResult is the outcome of loading one feed. Records is never nil; it
// is empty unless Status is StatusOK.
type FeedResult struct {
	URL     string
	Status  Status
	Error   string
	Records *feed.RecordSet
	Summary *feed.Summary
}

// Snapshot is one load of a source: both feeds, decoded, at one time.
type Snapshot struct {
	ID         uuid.UUID
	Source     string
	Definition registry.Source
	FetchedAt  time.Time
	Vehicles   FeedResult
	Trips      FeedResult
}

// TitleLayout formats the fetch time in titles.
const TitleLayout = "2006-01-02 15:04:05"

// Title is "<source> - <fetch time>".
func (s *Snapshot) Title() string {
	return s.Source + " - " + s.FetchedAt.Format(TitleLayout)
}

// Feed returns the result for kind.
func (s *Snapshot) Feed(kind FeedKind) *FeedResult {
	if kind == FeedTrips {
		return &s.Trips
	}
	return &s.Vehicles
}

// HasData reports whether either feed produced records.
func (s *Snapshot) HasData() bool {
	return !s.Vehicles.Records.IsEmpty() || !s.Trips.Records.IsEmpty()
}
