package restapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gocloud.dev/blob/memblob"

	"inspector.onebusaway.org/internal/app"
	"inspector.onebusaway.org/internal/appconf"
	"inspector.onebusaway.org/internal/clock"
	"inspector.onebusaway.org/internal/feed/feedtest"
	"inspector.onebusaway.org/internal/fetch"
	"inspector.onebusaway.org/internal/inspector"
	"inspector.onebusaway.org/internal/memo"
	"inspector.onebusaway.org/internal/metrics"
	"inspector.onebusaway.org/internal/models"
	"inspector.onebusaway.org/internal/registry"
)

// testNow is two minutes after the fixture feeds were produced.
var testNow = time.Unix(feedtest.HeaderTimestamp+120, 0).UTC()

// testEnv is a fully wired API in front of a fake feed server.
type testEnv struct {
	api     *RestAPI
	handler http.Handler
	feeds   *httptest.Server
	clock   *clock.MockClock
}

func fixtureFeeds(t *testing.T) map[string][]byte {
	ts := uint64(feedtest.HeaderTimestamp)
	return map[string][]byte{
		"/vp": feedtest.VehicleFeed(t,
			feedtest.Vehicle{EntityID: "1", VehicleID: "101", TripID: "T1", RouteID: "R1", Lat: 48.85, Lon: 2.35, Timestamp: ts},
			feedtest.Vehicle{EntityID: "2", VehicleID: "202", TripID: "T2", RouteID: "R2", Lat: 48.86, Lon: 2.36},
			feedtest.Vehicle{EntityID: "3", VehicleID: "303", TripID: "T3", RouteID: "R1", Lat: 45.76, Lon: 4.83, Timestamp: ts},
		),
		"/tu": feedtest.TripFeed(t,
			feedtest.TripUpdate{EntityID: "a", TripID: "T1", RouteID: "R1", VehicleID: "101", StopIDs: []string{"S1", "S2"}},
			feedtest.TripUpdate{EntityID: "b", TripID: "T3", RouteID: "R1", VehicleID: "303"},
			feedtest.TripUpdate{EntityID: "c", TripID: "T9", RouteID: "R9"},
		),
		"/garbage": []byte("not a feed"),
	}
}

func newTestEnv(t *testing.T, configure ...func(*appconf.Config)) *testEnv {
	t.Helper()

	bodies := fixtureFeeds(t)
	feeds := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := bodies[r.URL.Path]
		if !ok {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write(body)
	}))
	t.Cleanup(feeds.Close)

	cfg := appconf.Default()
	cfg.Env = appconf.Test
	cfg.RateLimit = 1000
	for _, fn := range configure {
		fn(&cfg)
	}

	store := registry.NewBlobStore(memblob.OpenBucket(nil), nil)
	t.Cleanup(func() { _ = store.Close() })

	mc := clock.NewMockClock(testNow)
	m := metrics.New()
	in := inspector.New(inspector.Config{
		Registry:    store,
		Fetcher:     fetch.New(fetch.Options{Timeout: 2 * time.Second}, nil),
		DecodeCache: memo.NewLRU(8, 0),
		FilterCache: memo.NewLRU(8, 0),
		Clock:       mc,
		Metrics:     m,
	})

	api := NewRestAPI(&app.Application{
		Config:    cfg,
		Logger:    nil,
		Inspector: in,
		Registry:  store,
		Clock:     mc,
		Metrics:   m,
	})
	t.Cleanup(api.Shutdown)

	mux := http.NewServeMux()
	api.SetRoutes(mux)

	return &testEnv{api: api, handler: api.Middleware(mux), feeds: feeds, clock: mc}
}

func createTestApi(t *testing.T) *RestAPI {
	return newTestEnv(t).api
}

func (e *testEnv) putSource(t *testing.T, name, vp, tu string) {
	t.Helper()
	src := registry.Source{}
	if vp != "" {
		src.VehiclePositionsURL = e.feeds.URL + vp
	}
	if tu != "" {
		src.TripUpdatesURL = e.feeds.URL + tu
	}
	require.NoError(t, e.api.Registry.Put(context.Background(), name, src))
}

// do serves one request through the full middleware chain.
func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

// serveAndRetrieveEndpoint decodes the envelope of a response.
func (e *testEnv) serveAndRetrieveEndpoint(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, models.ResponseModel) {
	t.Helper()
	rec := e.do(t, method, path, body)
	var model models.ResponseModel
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &model), rec.Body.String())
	return rec, model
}

// load loads a source and returns the new snapshot's id.
func (e *testEnv) load(t *testing.T, name string) string {
	t.Helper()
	rec, model := e.serveAndRetrieveEndpoint(t, http.MethodPost, "/api/sources/"+name+"/load", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	data := model.Data.(map[string]any)
	return data["id"].(string)
}

func dataMap(t *testing.T, model models.ResponseModel) map[string]any {
	t.Helper()
	data, ok := model.Data.(map[string]any)
	require.True(t, ok, "data is %T", model.Data)
	return data
}
