package restapi

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"inspector.onebusaway.org/internal/export"
)

func expectedFileName(t *testing.T, env *testEnv, id string, trips, filtered bool, ext string) string {
	t.Helper()
	snap, err := env.api.Inspector.Snapshot(id)
	require.NoError(t, err)
	return export.FileBase(snap.Source, trips, filtered, snap.FetchedAt) + "." + ext
}

func TestExportVehiclesCSV(t *testing.T) {
	env, id := loadedEnv(t)

	rec := env.do(t, http.MethodGet, "/api/snapshots/"+id+"/export/vehicles/csv", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t,
		fmt.Sprintf("attachment; filename=%q", expectedFileName(t, env, id, false, false, "csv")),
		rec.Header().Get("Content-Disposition"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "paris_Vehicle_Positions_")

	rows, err := csv.NewReader(bytes.NewReader(rec.Body.Bytes())).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Contains(t, rows[0], "vehicle_vehicle_id")
	assert.NotContains(t, rows[0], "original_json")
}

func TestExportFilteredTripsJSON(t *testing.T) {
	env, id := loadedEnv(t)

	rec := env.do(t, http.MethodGet, "/api/snapshots/"+id+"/export/trips/json?kind=route&value=R1", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"),
		expectedFileName(t, env, id, true, true, "json"))

	var entities []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entities))
	require.Len(t, entities, 2)
	assert.Equal(t, "a", entities[0]["id"])
	assert.Equal(t, "b", entities[1]["id"])
}

func TestExportXLSX(t *testing.T) {
	env, id := loadedEnv(t)

	rec := env.do(t, http.MethodGet, "/api/snapshots/"+id+"/export/vehicles/xlsx", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, export.FormatXLSX.ContentType(), rec.Header().Get("Content-Type"))
	assert.Equal(t, fmt.Sprint(rec.Body.Len()), rec.Header().Get("Content-Length"))

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	assert.NotEmpty(t, f.GetSheetList())
}

func TestExportRejectsUnknownFeedAndFormat(t *testing.T) {
	env, id := loadedEnv(t)

	for _, path := range []string{
		"/api/snapshots/" + id + "/export/stops/csv",
		"/api/snapshots/" + id + "/export/vehicles/pdf",
		// validated before the snapshot lookup
		"/api/snapshots/unknown/export/vehicles/pdf",
	} {
		rec := env.do(t, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
	}

	rec := env.do(t, http.MethodGet, "/api/snapshots/unknown/export/vehicles/csv", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
