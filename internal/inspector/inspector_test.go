package inspector

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocloud.dev/blob/memblob"

	"inspector.onebusaway.org/internal/clock"
	"inspector.onebusaway.org/internal/feed/feedtest"
	"inspector.onebusaway.org/internal/fetch"
	"inspector.onebusaway.org/internal/filter"
	"inspector.onebusaway.org/internal/memo"
	"inspector.onebusaway.org/internal/metrics"
	"inspector.onebusaway.org/internal/registry"
)

const slowFeedDelay = 20 * time.Millisecond

type fixture struct {
	inspector *Inspector
	registry  registry.Store
	server    *httptest.Server
	metrics   *metrics.Metrics
	clock     *clock.MockClock
	hits      map[string]*atomic.Int32
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	bodies := map[string][]byte{
		"/vp": feedtest.VehicleFeed(t,
			feedtest.Vehicle{EntityID: "1", VehicleID: "101", TripID: "T1", RouteID: "R1", Lat: 48.85, Lon: 2.35},
			feedtest.Vehicle{EntityID: "2", VehicleID: "202", TripID: "T2", RouteID: "R2", Lat: 48.86, Lon: 2.36},
		),
		"/tu": feedtest.TripFeed(t,
			feedtest.TripUpdate{EntityID: "a", TripID: "T1", RouteID: "R1", VehicleID: "101"},
		),
		"/slow": feedtest.VehicleFeed(t,
			feedtest.Vehicle{EntityID: "1", VehicleID: "101", Lat: 48.85, Lon: 2.35},
		),
		"/empty":   feedtest.Marshal(t, feedtest.Message()),
		"/garbage": []byte("this is not a protobuf feed"),
	}
	hits := map[string]*atomic.Int32{}
	for path := range bodies {
		hits[path] = &atomic.Int32{}
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := bodies[r.URL.Path]
		if !ok {
			http.Error(w, "unavailable", http.StatusInternalServerError)
			return
		}
		hits[r.URL.Path].Add(1)
		if r.URL.Path == "/slow" {
			time.Sleep(slowFeedDelay)
		}
		_, _ = w.Write(body)
	}))
	t.Cleanup(server.Close)

	store := registry.NewBlobStore(memblob.OpenBucket(nil), nil)
	t.Cleanup(func() { _ = store.Close() })

	m := metrics.New()
	mc := clock.NewMockClock(time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC))
	in := New(Config{
		Registry:    store,
		Fetcher:     fetch.New(fetch.Options{Timeout: 2 * time.Second}, nil),
		DecodeCache: memo.NewLRU(16, 0),
		FilterCache: memo.NewLRU(16, 0),
		Clock:       mc,
		Metrics:     m,
	})
	return &fixture{inspector: in, registry: store, server: server, metrics: m, clock: mc, hits: hits}
}

func (f *fixture) put(t *testing.T, name, vp, tu string) {
	t.Helper()
	src := registry.Source{}
	if vp != "" {
		src.VehiclePositionsURL = f.server.URL + vp
	}
	if tu != "" {
		src.TripUpdatesURL = f.server.URL + tu
	}
	require.NoError(t, f.registry.Put(context.Background(), name, src))
}

func TestLoadBothFeeds(t *testing.T) {
	f := newFixture(t)
	f.put(t, "Paris", "/vp", "/tu")

	snap, err := f.inspector.Load(context.Background(), "Paris")
	require.NoError(t, err)

	assert.Equal(t, "Paris", snap.Source)
	assert.Equal(t, "Paris - 2024-05-01 09:30:00", snap.Title())
	assert.Equal(t, StatusOK, snap.Vehicles.Status)
	assert.Equal(t, 2, snap.Vehicles.Records.Len())
	assert.Equal(t, StatusOK, snap.Trips.Status)
	assert.Equal(t, 1, snap.Trips.Records.Len())
	require.NotNil(t, snap.Trips.Summary)
	assert.Equal(t, 1, snap.Trips.Summary.TripUpdates)
	assert.True(t, snap.HasData())

	got, err := f.inspector.Snapshot(snap.ID.String())
	require.NoError(t, err)
	assert.Same(t, snap, got)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.SnapshotsCached))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.FeedLoadsTotal.WithLabelValues("vehicles", "ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.FeedRecords.WithLabelValues("Paris", "vehicles")))
}

func TestFetchDurationUsesWallClock(t *testing.T) {
	f := newFixture(t)
	f.put(t, "Slow", "/slow", "")

	// The mock clock never moves during the load.
	snap, err := f.inspector.Load(context.Background(), "Slow")
	require.NoError(t, err)
	assert.Equal(t, f.clock.Now(), snap.FetchedAt)

	families, err := f.metrics.Registry.Gather()
	require.NoError(t, err)
	var sum float64
	var count uint64
	for _, mf := range families {
		if mf.GetName() != "inspector_feed_fetch_duration_seconds" {
			continue
		}
		for _, m := range mf.GetMetric() {
			sum += m.GetHistogram().GetSampleSum()
			count += m.GetHistogram().GetSampleCount()
		}
	}
	assert.Equal(t, uint64(1), count)
	assert.GreaterOrEqual(t, sum, slowFeedDelay.Seconds())
}

func TestLoadOneFailingFeedKeepsTheOther(t *testing.T) {
	f := newFixture(t)
	f.put(t, "Broken trips", "/vp", "/missing")
	f.put(t, "Garbage vehicles", "/garbage", "/tu")

	snap, err := f.inspector.Load(context.Background(), "Broken trips")
	require.NoError(t, err)
	assert.Equal(t, StatusOK, snap.Vehicles.Status)
	assert.Equal(t, StatusFailed, snap.Trips.Status)
	assert.Contains(t, snap.Trips.Error, "500")
	assert.True(t, snap.Trips.Records.IsEmpty())
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.FeedLoadsTotal.WithLabelValues("trips", "http_status")))

	snap, err = f.inspector.Load(context.Background(), "Garbage vehicles")
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, snap.Vehicles.Status)
	assert.Contains(t, snap.Vehicles.Error, "malformed")
	assert.Equal(t, StatusOK, snap.Trips.Status)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.FeedLoadsTotal.WithLabelValues("vehicles", "decode_error")))
}

func TestLoadNotRequestedAndEmptyFeeds(t *testing.T) {
	f := newFixture(t)
	f.put(t, "Trips only", "", "/empty")

	snap, err := f.inspector.Load(context.Background(), "Trips only")
	require.NoError(t, err)
	assert.Equal(t, StatusNotRequested, snap.Vehicles.Status)
	assert.NotNil(t, snap.Vehicles.Records)
	assert.Equal(t, StatusEmpty, snap.Trips.Status)
	assert.False(t, snap.HasData())
}

func TestLoadUnknownSource(t *testing.T) {
	f := newFixture(t)
	_, err := f.inspector.Load(context.Background(), "Nowhere")
	assert.ErrorIs(t, err, registry.ErrNotFound)
}

func TestLoadDecodesIdenticalBodiesOnce(t *testing.T) {
	f := newFixture(t)
	f.put(t, "Paris", "/vp", "")

	first, err := f.inspector.Load(context.Background(), "Paris")
	require.NoError(t, err)
	second, err := f.inspector.Load(context.Background(), "Paris")
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Same(t, first.Vehicles.Records, second.Vehicles.Records)
	assert.Equal(t, int32(2), f.hits["/vp"].Load())
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.DecodeCacheLookups.WithLabelValues("hit")))
}

func TestSnapshotLookupErrors(t *testing.T) {
	f := newFixture(t)
	_, err := f.inspector.Snapshot("not-a-uuid")
	assert.ErrorIs(t, err, ErrSnapshotNotFound)
	_, err = f.inspector.Snapshot("7f0c1c9e-2f43-4a7c-9a55-1b5d0c3f1a2b")
	assert.ErrorIs(t, err, ErrSnapshotNotFound)
}

func TestFilterAndIdentifiers(t *testing.T) {
	f := newFixture(t)
	f.put(t, "Paris", "/vp", "/tu")
	snap, err := f.inspector.Load(context.Background(), "Paris")
	require.NoError(t, err)

	assert.Equal(t, []string{"101", "202"}, f.inspector.Identifiers(snap, filter.KindVehicle))
	assert.Equal(t, []string{"T1", "T2"}, f.inspector.Identifiers(snap, filter.KindTrip))

	v, tr := f.inspector.Filter(snap, filter.Spec{Kind: filter.KindTrip, Values: []string{"T1"}})
	require.Equal(t, 1, v.Len())
	id, _ := v.At(0).String("vehicle_vehicle_id")
	assert.Equal(t, "101", id)
	assert.Equal(t, 1, tr.Len())
}

func TestParseFeedKind(t *testing.T) {
	k, ok := ParseFeedKind("trips")
	assert.True(t, ok)
	assert.Equal(t, FeedTrips, k)
	_, ok = ParseFeedKind("alerts")
	assert.False(t, ok)
}
