package app

import (
	"log/slog"

	"inspector.onebusaway.org/internal/appconf"
	"inspector.onebusaway.org/internal/clock"
	"inspector.onebusaway.org/internal/inspector"
	"inspector.onebusaway.org/internal/metrics"
	"inspector.onebusaway.org/internal/registry"
)

// Application holds the dependencies shared by the HTTP handlers, helpers
// and middleware.
type Application struct {
	Config    appconf.Config
	Logger    *slog.Logger
	Inspector *inspector.Inspector
	Registry  registry.Store
	Clock     clock.Clock
	Metrics   *metrics.Metrics
}
