package host

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/plat-viewer/internal/geo"
)

// LatLng is a geographic click position.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Pixel is a click position in viewport pixels.
type Pixel struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// FilterValue is the geometry of a geometric filter in a given projection.
type FilterValue struct {
	Geometry   *geojson.Geometry `json:"geometry"`
	Projection string            `json:"projection"`
}

// GeometricFilter restricts an identify query to a geometry.
type GeometricFilter struct {
	Type  string      `json:"type"`
	Value FilterValue `json:"value"`
}

// ClickPoint is a map click.
type ClickPoint struct {
	LatLng          LatLng           `json:"latlng"`
	Pixel           Pixel            `json:"pixel"`
	Modifiers       map[string]bool  `json:"modifiers,omitempty"`
	GeometricFilter *GeometricFilter `json:"geometricFilter,omitempty"`
}

// WithGeometricFilter returns p with a point filter expressed in projection.
func (p ClickPoint) WithGeometricFilter(projection string) (ClickPoint, error) {
	xy, err := geo.Reproject(orb.Point{p.LatLng.Lng, p.LatLng.Lat}, geo.EPSG4326, projection)
	if err != nil {
		return p, fmt.Errorf("click point filter: %w", err)
	}
	p.GeometricFilter = &GeometricFilter{
		Type: "geometry",
		Value: FilterValue{
			Geometry:   geojson.NewGeometry(xy.Point()),
			Projection: projection,
		},
	}
	return p, nil
}
