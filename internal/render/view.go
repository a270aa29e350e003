package render

import (
	geojson "github.com/paulmach/go.geojson"
	"github.com/tidwall/rtree"
)

// DefaultCenter is used when there is nothing to show: Paris.
var DefaultCenter = [2]float64{48.8566, 2.3522}

// DefaultZoom is the initial zoom level.
const DefaultZoom = 12

// View positions a map over a set of markers.
type View struct {
	Center [2]float64 `json:"center"` // lat, lon
	Zoom   int        `json:"zoom"`
	Bounds *Bounds    `json:"bounds,omitempty"`
}

// NewView centers on the mean position of markers and fits their bounds.
func NewView(markers []Marker) View {
	if len(markers) == 0 {
		return View{Center: DefaultCenter, Zoom: DefaultZoom}
	}
	var sumLat, sumLon float64
	b := Bounds{MinLat: markers[0].Lat, MaxLat: markers[0].Lat, MinLon: markers[0].Lon, MaxLon: markers[0].Lon}
	for _, m := range markers {
		sumLat += m.Lat
		sumLon += m.Lon
		b = b.extend(m.Lat, m.Lon)
	}
	n := float64(len(markers))
	return View{Center: [2]float64{sumLat / n, sumLon / n}, Zoom: DefaultZoom, Bounds: &b}
}

// GeoJSON returns markers as a FeatureCollection of points.
func GeoJSON(markers []Marker) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, m := range markers {
		f := geojson.NewPointFeature([]float64{m.Lon, m.Lat})
		if m.EntityID != "" {
			f.ID = m.EntityID
		}
		f.SetProperty("vehicleId", m.VehicleID)
		f.SetProperty("stale", m.Stale)
		if m.Timestamp != nil {
			f.SetProperty("timestamp", m.Timestamp.Format(TimestampLayout))
		}
		// Labels may repeat, so the popup stays an ordered list.
		f.SetProperty("popup", m.Popup)
		fc.AddFeature(f)
	}
	if v := NewView(markers); v.Bounds != nil {
		fc.BoundingBox = []float64{v.Bounds.MinLon, v.Bounds.MinLat, v.Bounds.MaxLon, v.Bounds.MaxLat}
	}
	return fc
}

// MarshalGeoJSON encodes GeoJSON(markers).
func MarshalGeoJSON(markers []Marker) ([]byte, error) {
	return GeoJSON(markers).MarshalJSON()
}

// Index answers box and radius queries over markers.
type Index struct {
	markers []Marker
	tree    rtree.RTreeG[int]
}

func NewIndex(markers []Marker) *Index {
	idx := &Index{markers: markers}
	for i, m := range markers {
		p := [2]float64{m.Lon, m.Lat}
		idx.tree.Insert(p, p, i)
	}
	return idx
}

// Search returns the markers inside b, in their original order.
func (idx *Index) Search(b Bounds) []Marker {
	var hits []int
	idx.tree.Search([2]float64{b.MinLon, b.MinLat}, [2]float64{b.MaxLon, b.MaxLat},
		func(_, _ [2]float64, i int) bool {
			hits = append(hits, i)
			return true
		})
	return idx.collect(hits, nil)
}

// Near returns the markers within radius meters of a point.
func (idx *Index) Near(lat, lon, radius float64) []Marker {
	var hits []int
	b := BoundsAround(lat, lon, radius)
	idx.tree.Search([2]float64{b.MinLon, b.MinLat}, [2]float64{b.MaxLon, b.MaxLat},
		func(_, _ [2]float64, i int) bool {
			hits = append(hits, i)
			return true
		})
	return idx.collect(hits, func(m Marker) bool {
		return Distance(lat, lon, m.Lat, m.Lon) <= radius
	})
}

func (idx *Index) collect(hits []int, keep func(Marker) bool) []Marker {
	selected := make([]bool, len(idx.markers))
	for _, i := range hits {
		selected[i] = true
	}
	out := []Marker{}
	for i, m := range idx.markers {
		if selected[i] && (keep == nil || keep(m)) {
			out = append(out, m)
		}
	}
	return out
}
