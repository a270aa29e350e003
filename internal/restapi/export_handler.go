package restapi

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"inspector.onebusaway.org/internal/export"
	"inspector.onebusaway.org/internal/inspector"
	"inspector.onebusaway.org/internal/logging"
)

// exportHandler serves one feed of a snapshot as a file attachment, filtered
// by the same parameters as the records endpoint.
func (api *RestAPI) exportHandler(w http.ResponseWriter, r *http.Request) {
	kind, ok := inspector.ParseFeedKind(r.PathValue("feed"))
	if !ok {
		api.sendError(w, r, http.StatusBadRequest, fmt.Sprintf("unknown feed %q, use vehicles or trips", r.PathValue("feed")))
		return
	}
	format, ok := export.ParseFormat(r.PathValue("format"))
	if !ok {
		api.sendError(w, r, http.StatusBadRequest, fmt.Sprintf("unknown format %q, use json, xlsx or csv", r.PathValue("format")))
		return
	}

	snap, ok := api.snapshotFromPath(w, r)
	if !ok {
		return
	}
	spec, vehicles, trips, ok := api.filtered(w, r, snap)
	if !ok {
		return
	}

	rs := vehicles
	if kind == inspector.FeedTrips {
		rs = trips
	}

	body, err := export.Write(format, rs, snap.Title())
	if err != nil {
		api.serverErrorResponse(w, r, err)
		return
	}

	name := export.FileBase(snap.Source, kind == inspector.FeedTrips, !spec.IsZero(), snap.FetchedAt) + "." + string(format)
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		logging.LogError(logging.FromContext(r.Context()), "export write failed", err,
			slog.String("file", name))
	}
}
