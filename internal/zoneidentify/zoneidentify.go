// Package zoneidentify holds the Zone Identify vocabulary: the drawn-zone
// query selection, the per-layer result tree and the highlight geometry.
package zoneidentify

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/plat-viewer/internal/maplayer"
)

// Identities owned by Zone Identify.
const (
	ControlName = "zoneIdentify"
	Owner       = "ZoneIdentify"
	// DrawOwner tags the drawing sessions started by the panel.
	DrawOwner = "zoneIdentify"
	// DrawerControl is the left drawer whose width shifts the map.
	DrawerControl = "drawer"

	HighlightLayerID  = "zone-identify-selected-feature"
	ExtentLayerPrefix = "zoneidentify:"
	ExtentLayerTitle  = "Query Extent"

	// VisibleLayers selects every queryable layer currently on the map.
	VisibleLayers = "visible_layers"
	// HighlightZoom is the zoom level used for a selected tree feature.
	HighlightZoom = 17
)

// LayerSelection is either VisibleLayers or an explicit list of layer names.
type LayerSelection struct {
	Visible bool
	Names   []string
}

// AllVisible selects every visible queryable layer.
func AllVisible() *LayerSelection { return &LayerSelection{Visible: true} }

// Named selects the given layers.
func Named(names ...string) *LayerSelection { return &LayerSelection{Names: names} }

// String joins the selected names the way WFS typeName expects.
func (l LayerSelection) String() string {
	if l.Visible {
		return VisibleLayers
	}
	return strings.Join(l.Names, ",")
}

func (l LayerSelection) MarshalJSON() ([]byte, error) {
	if l.Visible {
		return json.Marshal(VisibleLayers)
	}
	if l.Names == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(l.Names)
}

func (l *LayerSelection) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s == VisibleLayers {
			*l = LayerSelection{Visible: true}
		} else {
			*l = LayerSelection{Names: []string{s}}
		}
		return nil
	}
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return fmt.Errorf("layer selection: %w", err)
	}
	*l = LayerSelection{Names: names}
	return nil
}

// RawGeometry is a geometry as sent by the tree view. Its type name is not
// always a GeoJSON one (POINT, LINE, POLYGON).
type RawGeometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// NewRawGeometry encodes g.
func NewRawGeometry(g orb.Geometry) (*RawGeometry, error) {
	coords, err := json.Marshal(g)
	if err != nil {
		return nil, err
	}
	return &RawGeometry{Type: g.GeoJSONType(), Coordinates: coords}, nil
}

var geoJSONTypes = map[string]string{
	"Point":           "Point",
	"POINT":           "Point",
	"MultiPoint":      "MultiPoint",
	"LINE":            "LineString",
	"Line":            "LineString",
	"LineString":      "LineString",
	"MultiLineString": "MultiLineString",
	"POLYGON":         "Polygon",
	"Polygon":         "Polygon",
	"MultiPolygon":    "MultiPolygon",
}

// GeoJSONType maps the type name onto a GeoJSON geometry type.
func (g RawGeometry) GeoJSONType() (string, bool) {
	t, ok := geoJSONTypes[g.Type]
	return t, ok
}

// Geometry decodes the coordinates under the normalized type.
func (g RawGeometry) Geometry() (orb.Geometry, error) {
	t, ok := g.GeoJSONType()
	if !ok {
		return nil, fmt.Errorf("geometry type %q: %w", g.Type, ErrUnsupportedGeometry)
	}
	data, err := json.Marshal(struct {
		Type        string          `json:"type"`
		Coordinates json.RawMessage `json:"coordinates"`
	}{t, g.Coordinates})
	if err != nil {
		return nil, err
	}
	geom, err := geojson.UnmarshalGeometry(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", t, err)
	}
	return geom.Coordinates, nil
}

// StyleFor returns the highlight preset for a type name.
func StyleFor(typeName string) (maplayer.Style, bool) {
	switch typeName {
	case "Point", "POINT", "MultiPoint":
		return maplayer.HighlightPointStyle, true
	case "LINE", "Line", "LineString", "MultiLineString":
		return maplayer.HighlightLineStyle, true
	case "POLYGON", "Polygon", "MultiPolygon":
		return maplayer.HighlightPolygonStyle, true
	}
	return maplayer.Style{}, false
}

// TreeNode is a node of the result tree. Parents group the features of one
// layer; children carry the feature with its localized title.
type TreeNode struct {
	ID         string            `json:"id"`
	Name       string            `json:"name,omitempty"`
	Title      string            `json:"title"`
	Geometry   *geojson.Geometry `json:"geometry,omitempty"`
	Properties map[string]any    `json:"properties,omitempty"`
	Children   []TreeNode        `json:"children,omitempty"`
}

// State is the Zone Identify slice of a session store.
type State struct {
	SelectedLayer     *LayerSelection    `json:"selectedLayer"`
	SelectedFeatures  []*geojson.Feature `json:"selectedFeatures"`
	FormattedFeatures []TreeNode         `json:"formattedFeatures"`
	SelectedFeature   *RawGeometry       `json:"selectedFeature"`
	Layer             *RawGeometry       `json:"layer"`
	Loading           bool               `json:"loading"`
}
