package models

import (
	"inspector.onebusaway.org/internal/feed"
	"inspector.onebusaway.org/internal/inspector"
)

// FeedReport describes how one feed of a snapshot loaded.
type FeedReport struct {
	URL     string        `json:"url,omitempty"`
	Status  string        `json:"status"`
	Error   string        `json:"error,omitempty"`
	Records int           `json:"records"`
	Columns int           `json:"columns"`
	Summary *feed.Summary `json:"summary,omitempty"`
}

// SnapshotReport is the outcome of a load.
type SnapshotReport struct {
	ID        string     `json:"id"`
	Source    string     `json:"source"`
	Title     string     `json:"title"`
	FetchedAt int64      `json:"fetchedAt"`
	HasData   bool       `json:"hasData"`
	Vehicles  FeedReport `json:"vehicles"`
	Trips     FeedReport `json:"trips"`
}

func NewSnapshotReport(snap *inspector.Snapshot) SnapshotReport {
	return SnapshotReport{
		ID:        snap.ID.String(),
		Source:    snap.Source,
		Title:     snap.Title(),
		FetchedAt: snap.FetchedAt.UnixMilli(),
		HasData:   snap.HasData(),
		Vehicles:  newFeedReport(snap.Vehicles),
		Trips:     newFeedReport(snap.Trips),
	}
}

func newFeedReport(res inspector.FeedResult) FeedReport {
	return FeedReport{
		URL:     res.URL,
		Status:  string(res.Status),
		Error:   res.Error,
		Records: res.Records.Len(),
		Columns: len(res.Records.Columns()),
		Summary: res.Summary,
	}
}
