// Package geo provides the pure geometry helpers used by the pipelines:
// bounding boxes and reprojection between geographic and web mercator CRS.
//
// Uses paulmach/orb for geometry and orb/project for the mercator math.
package geo

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
)

// CRS identifiers used across the viewer.
const (
	EPSG4326   = "EPSG:4326"
	EPSG4269   = "EPSG:4269"
	EPSG3857   = "EPSG:3857"
	EPSG900913 = "EPSG:900913"
	CRS84      = "CRS:84"
)

// ErrUnsupportedCRS is returned for a CRS the reprojection cannot handle.
var ErrUnsupportedCRS = errors.New("unsupported CRS")

// Extent is a bounding box: minx, miny, maxx, maxy.
type Extent [4]float64

// String renders e the way OGC services expect a bbox parameter.
func (e Extent) String() string {
	parts := make([]string, len(e))
	for i, v := range e {
		parts[i] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	return strings.Join(parts, ",")
}

// Bound converts e to an orb.Bound.
func (e Extent) Bound() orb.Bound {
	return orb.Bound{Min: orb.Point{e[0], e[1]}, Max: orb.Point{e[2], e[3]}}
}

// Polygon returns the closed outline of e.
func (e Extent) Polygon() orb.Polygon {
	return orb.Polygon{orb.Ring{
		{e[0], e[1]},
		{e[0], e[3]},
		{e[2], e[3]},
		{e[2], e[1]},
		{e[0], e[1]},
	}}
}

// ExtentOf converts an orb.Bound to an Extent.
func ExtentOf(b orb.Bound) Extent {
	return Extent{b.Min[0], b.Min[1], b.Max[0], b.Max[1]}
}

// XY is a reprojected coordinate.
type XY struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Point converts c back to an orb.Point.
func (c XY) Point() orb.Point { return orb.Point{c.X, c.Y} }

// Extentable is anything carrying an extent, e.g. a configured region.
type Extentable interface {
	GetExtent() Extent
}

// ExtractRegionsBbox returns the union bbox of every region extent.
// ok is false for an empty list.
func ExtractRegionsBbox[R Extentable](regions []R) (bbox Extent, ok bool) {
	if len(regions) == 0 {
		return Extent{}, false
	}
	bbox = Extent{math.Inf(1), math.Inf(1), math.Inf(-1), math.Inf(-1)}
	for _, r := range regions {
		e := r.GetExtent()
		bbox[0] = math.Min(bbox[0], e[0])
		bbox[1] = math.Min(bbox[1], e[1])
		bbox[2] = math.Max(bbox[2], e[2])
		bbox[3] = math.Max(bbox[3], e[3])
	}
	return bbox, true
}

// ExtractBboxFromGeometry returns the bbox of a list of reprojected points.
// ok is false for an empty list.
func ExtractBboxFromGeometry(points []XY) (bbox Extent, ok bool) {
	if len(points) == 0 {
		return Extent{}, false
	}
	bbox = Extent{points[0].X, points[0].Y, points[0].X, points[0].Y}
	for _, p := range points[1:] {
		bbox[0] = math.Min(bbox[0], p.X)
		bbox[1] = math.Min(bbox[1], p.Y)
		bbox[2] = math.Max(bbox[2], p.X)
		bbox[3] = math.Max(bbox[3], p.Y)
	}
	return bbox, true
}

// GeometryExtent is the bbox of any geometry.
func GeometryExtent(g orb.Geometry) Extent {
	return ExtentOf(g.Bound())
}

type crsKind int

const (
	geographic crsKind = iota + 1
	mercator
)

// NormalizeCRS maps the common spellings of a CRS code to EPSG:nnnn form.
func NormalizeCRS(code string) string {
	c := strings.ToUpper(strings.TrimSpace(code))
	switch {
	case strings.HasSuffix(c, "CRS84"), c == CRS84:
		return CRS84
	case strings.HasPrefix(c, "URN:OGC:DEF:CRS:EPSG:"):
		parts := strings.Split(c, ":")
		return "EPSG:" + parts[len(parts)-1]
	}
	return c
}

func kindOf(code string) (crsKind, error) {
	switch NormalizeCRS(code) {
	case EPSG4326, EPSG4269, CRS84:
		return geographic, nil
	case EPSG3857, EPSG900913, "EPSG:102100", "EPSG:102113":
		return mercator, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedCRS, code)
}

// Projection returns the point transform from one CRS to another.
// Geographic CRS (WGS84, NAD83, CRS84) are treated as equivalent.
func Projection(from, to string) (orb.Projection, error) {
	src, err := kindOf(from)
	if err != nil {
		return nil, err
	}
	dst, err := kindOf(to)
	if err != nil {
		return nil, err
	}
	switch {
	case src == dst:
		return func(p orb.Point) orb.Point { return p }, nil
	case src == mercator:
		return project.Mercator.ToWGS84, nil
	default:
		return project.WGS84.ToMercator, nil
	}
}

// Reproject transforms a single coordinate.
func Reproject(p orb.Point, from, to string) (XY, error) {
	proj, err := Projection(from, to)
	if err != nil {
		return XY{}, err
	}
	q := proj(p)
	return XY{X: q[0], Y: q[1]}, nil
}

// ReprojectAll transforms a list of coordinates.
func ReprojectAll(points []orb.Point, from, to string) ([]XY, error) {
	proj, err := Projection(from, to)
	if err != nil {
		return nil, err
	}
	out := make([]XY, len(points))
	for i, p := range points {
		q := proj(p)
		out[i] = XY{X: q[0], Y: q[1]}
	}
	return out, nil
}

// ReprojectGeometry returns a transformed copy of g; g is left untouched.
func ReprojectGeometry(g orb.Geometry, from, to string) (orb.Geometry, error) {
	proj, err := Projection(from, to)
	if err != nil {
		return nil, err
	}
	return project.Geometry(orb.Clone(g), proj), nil
}
