// Package restapi serves the inspector over HTTP: source management,
// loads, filtered tables, map data and exports.
package restapi

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"inspector.onebusaway.org/internal/app"
	"inspector.onebusaway.org/internal/fetch"
	"inspector.onebusaway.org/internal/inspector"
	"inspector.onebusaway.org/internal/logging"
	"inspector.onebusaway.org/internal/registry"
)

type RestAPI struct {
	*app.Application
	rateLimiter *RateLimitMiddleware
	validate    *validator.Validate
}

func NewRestAPI(app *app.Application) *RestAPI {
	return &RestAPI{
		Application: app,
		rateLimiter: NewRateLimitMiddleware(app.Config.RateLimit, time.Second, app.Config.ExemptApiKeys, app.Clock),
		validate:    validator.New(),
	}
}

// Shutdown stops background work owned by the API.
func (api *RestAPI) Shutdown() {
	if api.rateLimiter != nil {
		api.rateLimiter.Stop()
	}
}

func (api *RestAPI) logger() *slog.Logger {
	if api.Application != nil && api.Logger != nil {
		return api.Logger
	}
	return slog.Default()
}

func (api *RestAPI) serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	logging.LogError(api.logger(), "request failed", err,
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("request_id", GetRequestID(r.Context())))
	api.sendError(w, r, http.StatusInternalServerError, "internal server error")
}

// sendErrorFor maps domain errors to status codes.
func (api *RestAPI) sendErrorFor(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, registry.ErrNotFound), errors.Is(err, inspector.ErrSnapshotNotFound):
		api.sendError(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, registry.ErrInvalidName):
		api.sendError(w, r, http.StatusBadRequest, err.Error())
	default:
		if _, ok := fetch.KindOf(err); ok {
			api.sendError(w, r, http.StatusBadGateway, err.Error())
			return
		}
		api.serverErrorResponse(w, r, err)
	}
}
