package webui

import (
	"embed"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/davecgh/go-spew/spew"

	"inspector.onebusaway.org/internal/appconf"
	"inspector.onebusaway.org/internal/inspector"
	"inspector.onebusaway.org/internal/logging"
	"inspector.onebusaway.org/internal/models"
)

//go:embed debug_index.html
var templateFS embed.FS

var debugTemplate = template.Must(template.ParseFS(templateFS, "debug_index.html"))

type debugData struct {
	Title    string
	Snapshot string
	Pre      string
}

var dumper = spew.ConfigState{Indent: "  ", SortKeys: true, DisablePointerAddresses: true}

func (webUI *WebUI) writeDebugData(w http.ResponseWriter, r *http.Request, status int, title, snapshot string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	err := debugTemplate.Execute(w, debugData{
		Title:    title,
		Snapshot: snapshot,
		Pre:      dumper.Sdump(data),
	})
	if err != nil {
		logging.LogError(logging.FromContext(r.Context()), "failed to execute debug template", err,
			slog.String("component", "webui"))
	}
}

// debugIndexHandler dumps one snapshot: ?snapshot=<id>&dataType=report|vehicles|trips.
func (webUI *WebUI) debugIndexHandler(w http.ResponseWriter, r *http.Request) {
	if webUI.Config.Env == appconf.Production {
		http.NotFound(w, r)
		return
	}
	if webUI.RequestHasInvalidAPIKey(r) {
		http.Error(w, "permission denied", http.StatusUnauthorized)
		return
	}

	q := r.URL.Query()
	id := q.Get("snapshot")
	if id == "" {
		webUI.writeDebugData(w, r, http.StatusOK, "Choose a snapshot", "", map[string]string{
			"error": "Load a source with POST /api/sources/{name}/load, then pass its id as ?snapshot=<id>.",
		})
		return
	}

	snap, err := webUI.Inspector.Snapshot(id)
	if err != nil {
		webUI.writeDebugData(w, r, http.StatusNotFound, "Snapshot not found", id, map[string]string{"error": err.Error()})
		return
	}

	var data any
	var title string
	switch q.Get("dataType") {
	case "", "report":
		data = models.NewSnapshotReport(snap)
		title = snap.Title() + " - Report"
	case "vehicles":
		data = models.NewTable(snap.Feed(inspector.FeedVehicles).Records)
		title = snap.Title() + " - Vehicle Positions"
	case "trips":
		data = models.NewTable(snap.Feed(inspector.FeedTrips).Records)
		title = snap.Title() + " - Trip Updates"
	default:
		data = map[string]string{
			"error": "Please use one of the following: report, vehicles, trips.",
		}
		title = "Choose a data type"
	}

	webUI.writeDebugData(w, r, http.StatusOK, title, snap.ID.String(), data)
}
