package app

import (
	"crypto/subtle"
	"net/http"
)

// APIKeyHeader is read when the "key" query parameter is absent.
const APIKeyHeader = "X-API-Key"

// RequestAPIKey returns the key a request presents, from the "key" query
// parameter or the X-API-Key header.
func RequestAPIKey(r *http.Request) string {
	if key := r.URL.Query().Get("key"); key != "" {
		return key
	}
	return r.Header.Get(APIKeyHeader)
}

// RequestHasInvalidAPIKey checks the key a request presents. When no keys
// are configured every request is accepted.
func (app *Application) RequestHasInvalidAPIKey(r *http.Request) bool {
	if len(app.Config.ApiKeys) == 0 {
		return false
	}
	return app.IsInvalidAPIKey(RequestAPIKey(r))
}

func (app *Application) IsInvalidAPIKey(key string) bool {
	if key == "" {
		return true
	}

	for _, validKey := range app.Config.ApiKeys {
		// constant time to avoid leaking key prefixes
		if subtle.ConstantTimeCompare([]byte(key), []byte(validKey)) == 1 {
			return false
		}
	}

	return true
}
