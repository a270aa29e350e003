package restapi

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"inspector.onebusaway.org/internal/filter"
	"inspector.onebusaway.org/internal/models"
	"inspector.onebusaway.org/internal/render"
)

// errBadRequest marks errors caused by malformed request parameters.
var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

// parseFilterSpec reads kind, value (repeatable) and multi. Identifiers are
// opaque, so values are taken verbatim. No values means no filtering.
func parseFilterSpec(q url.Values) (filter.Spec, error) {
	var values []string
	for _, v := range q["value"] {
		if v != "" {
			values = append(values, v)
		}
	}

	var spec filter.Spec
	if raw := q.Get("multi"); raw != "" {
		multi, err := strconv.ParseBool(raw)
		if err != nil {
			return filter.Spec{}, badRequest("multi must be a boolean, got %q", raw)
		}
		spec.Multi = multi
	}

	rawKind := q.Get("kind")
	if rawKind == "" {
		if len(values) > 0 {
			return filter.Spec{}, badRequest("kind is required when values are given")
		}
		return spec, nil
	}
	kind, err := filter.ParseKind(rawKind)
	if err != nil {
		return filter.Spec{}, badRequest("%v", err)
	}
	spec.Kind = kind
	spec.Values = values
	return spec, nil
}

func filterEcho(spec filter.Spec) models.FilterEcho {
	return models.FilterEcho{Kind: string(spec.Kind), Values: spec.Values, Multi: spec.Multi}
}

func parseFloats(raw, name string, n int) ([]float64, error) {
	parts := strings.Split(raw, ",")
	if len(parts) != n {
		return nil, badRequest("%s needs %d comma separated numbers", name, n)
	}
	out := make([]float64, n)
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, badRequest("%s: %q is not a number", name, p)
		}
		out[i] = f
	}
	return out, nil
}

// parseBBox reads bbox=minLon,minLat,maxLon,maxLat, the GeoJSON order.
func parseBBox(raw string) (render.Bounds, error) {
	f, err := parseFloats(raw, "bbox", 4)
	if err != nil {
		return render.Bounds{}, err
	}
	b := render.Bounds{MinLon: f[0], MinLat: f[1], MaxLon: f[2], MaxLat: f[3]}
	if !b.Valid() {
		return render.Bounds{}, badRequest("bbox %q is not a valid box", raw)
	}
	return b, nil
}

type nearQuery struct {
	lat, lon, radius float64
}

// parseNear reads near=lat,lon,radiusMeters.
func parseNear(raw string) (nearQuery, error) {
	f, err := parseFloats(raw, "near", 3)
	if err != nil {
		return nearQuery{}, err
	}
	q := nearQuery{lat: f[0], lon: f[1], radius: f[2]}
	if q.lat < -90 || q.lat > 90 || q.lon < -180 || q.lon > 180 || q.radius <= 0 {
		return nearQuery{}, badRequest("near %q is out of range", raw)
	}
	return q, nil
}
