package restapi

import (
	"errors"
	"net/http"

	"inspector.onebusaway.org/internal/feed"
	"inspector.onebusaway.org/internal/filter"
	"inspector.onebusaway.org/internal/inspector"
	"inspector.onebusaway.org/internal/models"
)

// snapshotFromPath resolves {id}, answering the request itself on failure.
func (api *RestAPI) snapshotFromPath(w http.ResponseWriter, r *http.Request) (*inspector.Snapshot, bool) {
	snap, err := api.Inspector.Snapshot(r.PathValue("id"))
	if err != nil {
		api.sendErrorFor(w, r, err)
		return nil, false
	}
	return snap, true
}

// filtered applies the request's filter parameters to the snapshot.
func (api *RestAPI) filtered(w http.ResponseWriter, r *http.Request, snap *inspector.Snapshot) (filter.Spec, *feed.RecordSet, *feed.RecordSet, bool) {
	spec, err := parseFilterSpec(r.URL.Query())
	if err != nil {
		api.sendBadRequest(w, r, err)
		return filter.Spec{}, nil, nil, false
	}
	vehicles, trips := api.Inspector.Filter(snap, spec)
	return spec, vehicles, trips, true
}

func (api *RestAPI) sendBadRequest(w http.ResponseWriter, r *http.Request, err error) {
	if !errors.Is(err, errBadRequest) {
		api.serverErrorResponse(w, r, err)
		return
	}
	api.sendError(w, r, http.StatusBadRequest, err.Error())
}

func (api *RestAPI) snapshotHandler(w http.ResponseWriter, r *http.Request) {
	snap, ok := api.snapshotFromPath(w, r)
	if !ok {
		return
	}
	api.sendOK(w, r, models.NewSnapshotReport(snap))
}

func (api *RestAPI) identifiersHandler(w http.ResponseWriter, r *http.Request) {
	snap, ok := api.snapshotFromPath(w, r)
	if !ok {
		return
	}
	kind, err := filter.ParseKind(r.URL.Query().Get("kind"))
	if err != nil {
		api.sendError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	ids := api.Inspector.Identifiers(snap, kind)
	if ids == nil {
		ids = []string{}
	}
	api.sendOK(w, r, models.IdentifiersResponse{
		Snapshot: snap.ID.String(),
		Kind:     string(kind),
		List:     ids,
	})
}

func (api *RestAPI) recordsHandler(w http.ResponseWriter, r *http.Request) {
	snap, ok := api.snapshotFromPath(w, r)
	if !ok {
		return
	}
	spec, vehicles, trips, ok := api.filtered(w, r, snap)
	if !ok {
		return
	}
	api.sendOK(w, r, models.RecordsResponse{
		Snapshot: snap.ID.String(),
		Filter:   filterEcho(spec),
		Vehicles: models.NewTable(vehicles),
		Trips:    models.NewTable(trips),
	})
}
