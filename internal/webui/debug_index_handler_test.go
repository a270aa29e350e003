package webui

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocloud.dev/blob/memblob"

	"inspector.onebusaway.org/internal/app"
	"inspector.onebusaway.org/internal/appconf"
	"inspector.onebusaway.org/internal/feed/feedtest"
	"inspector.onebusaway.org/internal/fetch"
	"inspector.onebusaway.org/internal/inspector"
	"inspector.onebusaway.org/internal/registry"
)

func newTestWebUI(t *testing.T, env appconf.Environment) (*WebUI, string) {
	t.Helper()

	body := feedtest.VehicleFeed(t, feedtest.Vehicle{EntityID: "1", VehicleID: "4242", TripID: "T1", RouteID: "R1", Lat: 1, Lon: 2})
	feeds := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(body)
	}))
	t.Cleanup(feeds.Close)

	store := registry.NewBlobStore(memblob.OpenBucket(nil), nil)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Put(context.Background(), "demo", registry.Source{VehiclePositionsURL: feeds.URL}))

	in := inspector.New(inspector.Config{Registry: store, Fetcher: fetch.New(fetch.Options{}, nil)})
	snap, err := in.Load(context.Background(), "demo")
	require.NoError(t, err)

	cfg := appconf.Default()
	cfg.Env = env
	return &WebUI{Application: &app.Application{Config: cfg, Inspector: in, Registry: store}}, snap.ID.String()
}

func serveDebug(webUI *WebUI, query string) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	webUI.SetWebUIRoutes(mux)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest("GET", "/debug"+query, nil))
	return rr
}

func TestDebugIndexHandler_ProductionReturns404(t *testing.T) {
	webUI, id := newTestWebUI(t, appconf.Production)

	rr := serveDebug(webUI, "?snapshot="+id)

	assert.Equal(t, http.StatusNotFound, rr.Code, "Should return 404 in Production")
}

func TestDebugIndexHandler_DumpsVehicles(t *testing.T) {
	webUI, id := newTestWebUI(t, appconf.Development)

	rr := serveDebug(webUI, "?snapshot="+id+"&dataType=vehicles")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rr.Body.String(), "Vehicle Positions")
	assert.Contains(t, rr.Body.String(), "4242")
}

func TestDebugIndexHandler_DefaultsToReport(t *testing.T) {
	webUI, id := newTestWebUI(t, appconf.Development)

	rr := serveDebug(webUI, "?snapshot="+id)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "demo - ")
	assert.Contains(t, rr.Body.String(), "Report")
}

func TestDebugIndexHandler_UnknownInputs(t *testing.T) {
	webUI, id := newTestWebUI(t, appconf.Development)

	rr := serveDebug(webUI, "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Choose a snapshot")

	rr = serveDebug(webUI, "?snapshot="+id+"&dataType=stops")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Choose a data type")

	rr = serveDebug(webUI, "?snapshot=nope")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestDebugIndexHandler_RequiresKeyWhenConfigured(t *testing.T) {
	webUI, id := newTestWebUI(t, appconf.Development)
	webUI.Config.ApiKeys = []string{"secret"}

	rr := serveDebug(webUI, "?snapshot="+id)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = serveDebug(webUI, "?snapshot="+id+"&key=secret")
	assert.Equal(t, http.StatusOK, rr.Code)
}
