// Package webui serves the HTML debug page.
package webui

import (
	"net/http"

	"inspector.onebusaway.org/internal/app"
)

type WebUI struct {
	*app.Application
}

func (webUI *WebUI) SetWebUIRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /debug", webUI.debugIndexHandler)
}
