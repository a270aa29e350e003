package restapi

import (
	"net/http"

	"inspector.onebusaway.org/internal/models"
	"inspector.onebusaway.org/internal/render"
)

// mapHandler returns the filtered vehicle positions as GeoJSON. bbox and
// near narrow the markers further; the view is fitted to what remains.
func (api *RestAPI) mapHandler(w http.ResponseWriter, r *http.Request) {
	snap, ok := api.snapshotFromPath(w, r)
	if !ok {
		return
	}
	spec, vehicles, _, ok := api.filtered(w, r, snap)
	if !ok {
		return
	}

	markers := render.Markers(vehicles, api.clock().Now())

	q := r.URL.Query()
	if raw := q.Get("bbox"); raw != "" {
		bounds, err := parseBBox(raw)
		if err != nil {
			api.sendBadRequest(w, r, err)
			return
		}
		markers = render.NewIndex(markers).Search(bounds)
	}
	if raw := q.Get("near"); raw != "" {
		near, err := parseNear(raw)
		if err != nil {
			api.sendBadRequest(w, r, err)
			return
		}
		markers = render.NewIndex(markers).Near(near.lat, near.lon, near.radius)
	}

	stale := 0
	for _, m := range markers {
		if m.Stale {
			stale++
		}
	}

	api.sendOK(w, r, models.MapResponse{
		Snapshot: snap.ID.String(),
		Filter:   filterEcho(spec),
		View:     render.NewView(markers),
		Markers:  len(markers),
		Stale:    stale,
		GeoJSON:  render.GeoJSON(markers),
	})
}
