package restapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"inspector.onebusaway.org/internal/inspector"
	"inspector.onebusaway.org/internal/logging"
	"inspector.onebusaway.org/internal/models"
)

const maxSourceBody = 64 << 10

func (api *RestAPI) listSourcesHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	names, err := api.Registry.List(ctx)
	if err != nil {
		api.serverErrorResponse(w, r, err)
		return
	}

	entries := make([]models.SourceEntry, 0, len(names))
	for _, name := range names {
		src, err := api.Registry.Get(ctx, name)
		if err != nil {
			api.sendErrorFor(w, r, err)
			return
		}
		entries = append(entries, models.NewSourceEntry(name, src))
	}
	api.sendResponse(w, r, models.NewListResponse(entries, api.clock()))
}

func (api *RestAPI) getSourceHandler(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	src, err := api.Registry.Get(r.Context(), name)
	if err != nil {
		api.sendErrorFor(w, r, err)
		return
	}
	api.sendOK(w, r, models.NewSourceEntry(name, src))
}

func (api *RestAPI) putSourceHandler(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	var def models.SourceDefinition
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSourceBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&def); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			api.sendError(w, r, http.StatusRequestEntityTooLarge, "source definition too large")
		case errors.Is(err, io.EOF):
			api.sendError(w, r, http.StatusBadRequest, "empty source definition")
		default:
			api.sendError(w, r, http.StatusBadRequest, fmt.Sprintf("invalid source definition: %v", err))
		}
		return
	}
	if err := api.validate.Struct(def); err != nil {
		api.sendError(w, r, http.StatusBadRequest, fmt.Sprintf("invalid source definition: %v", err))
		return
	}

	if err := api.Registry.Put(r.Context(), name, def.Source()); err != nil {
		api.sendErrorFor(w, r, err)
		return
	}
	logging.FromContext(r.Context()).Info("source saved", slog.String("source", name))
	api.sendOK(w, r, models.NewSourceEntry(name, def.Source()))
}

func (api *RestAPI) deleteSourceHandler(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	deleted, err := api.Registry.Delete(r.Context(), name)
	if err != nil {
		api.sendErrorFor(w, r, err)
		return
	}
	if !deleted {
		api.sendNotFound(w, r)
		return
	}
	logging.FromContext(r.Context()).Info("source deleted", slog.String("source", name))
	api.sendOK(w, r, map[string]string{"name": name})
}

// loadSourceHandler fetches the source's feeds into a new snapshot. When
// every requested feed failed the report comes back with 502.
func (api *RestAPI) loadSourceHandler(w http.ResponseWriter, r *http.Request) {
	snap, err := api.Inspector.Load(r.Context(), r.PathValue("name"))
	if err != nil {
		api.sendErrorFor(w, r, err)
		return
	}

	report := models.NewSnapshotReport(snap)
	if allRequestedFailed(snap) {
		response := models.NewOKResponse(report, api.clock())
		response.Code = http.StatusBadGateway
		response.Text = "no feed of the source could be loaded"
		api.sendResponseWithStatus(w, r, http.StatusBadGateway, response)
		return
	}
	api.sendOK(w, r, report)
}

func allRequestedFailed(snap *inspector.Snapshot) bool {
	requested := 0
	for _, res := range []inspector.FeedResult{snap.Vehicles, snap.Trips} {
		switch res.Status {
		case inspector.StatusNotRequested:
			continue
		case inspector.StatusFailed:
			requested++
		default:
			return false
		}
	}
	return requested > 0
}
