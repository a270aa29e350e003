package restapi

import (
	"net/http"

	"github.com/go-chi/cors"
	"github.com/klauspost/compress/gzhttp"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"inspector.onebusaway.org/internal/app"
)

// SetRoutes registers every endpoint on mux.
func (api *RestAPI) SetRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", api.healthHandler)

	api.handle(mux, "GET /api/sources", api.listSourcesHandler)
	api.handle(mux, "GET /api/sources/{name}", api.getSourceHandler)
	api.handle(mux, "PUT /api/sources/{name}", api.putSourceHandler)
	api.handle(mux, "DELETE /api/sources/{name}", api.deleteSourceHandler)
	api.handle(mux, "POST /api/sources/{name}/load", api.loadSourceHandler)

	api.handle(mux, "GET /api/snapshots/{id}", api.snapshotHandler)
	api.handle(mux, "GET /api/snapshots/{id}/identifiers", api.identifiersHandler)
	api.handle(mux, "GET /api/snapshots/{id}/records", api.recordsHandler)
	api.handle(mux, "GET /api/snapshots/{id}/map", api.mapHandler)
	api.handle(mux, "GET /api/snapshots/{id}/export/{feed}/{format}", api.exportHandler)

	if api.Application != nil && api.Metrics != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(api.Metrics.Registry, promhttp.HandlerOpts{
			Registry: api.Metrics.Registry,
		}))
	}
}

// handle wraps an API endpoint with the key check, the rate limiter and
// Cache-Control. Registry and snapshot data change between requests, so
// nothing under /api is cacheable.
func (api *RestAPI) handle(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	var handler http.Handler = api.requireAPIKey(h)
	handler = CacheControlMiddleware(0, handler)
	if api.rateLimiter != nil {
		handler = api.rateLimiter.Handler()(handler)
	}
	mux.Handle(pattern, handler)
}

// requireAPIKey rejects requests without a valid key when keys are
// configured.
func (api *RestAPI) requireAPIKey(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if api.RequestHasInvalidAPIKey(r) {
			api.sendUnauthorized(w, r)
			return
		}
		next(w, r)
	})
}

// Middleware wraps the routed mux with the server-wide middleware. From the
// outside in: request id, request logging, CORS, gzip, metrics.
func (api *RestAPI) Middleware(mux http.Handler) http.Handler {
	handler := MetricsHandler(api.Metrics)(mux)
	handler = gzhttp.GzipHandler(handler)
	if origins := api.Config.CORSOrigins; len(origins) > 0 {
		handler = cors.Handler(cors.Options{
			AllowedOrigins: origins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type", app.APIKeyHeader, requestIDHeader},
			ExposedHeaders: []string{requestIDHeader, "Content-Disposition", "Retry-After"},
			MaxAge:         300,
		})(handler)
	}
	handler = NewRequestLoggingMiddleware(api.Logger)(handler)
	return RequestIDMiddleware(handler)
}
