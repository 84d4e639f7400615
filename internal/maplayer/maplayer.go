// Package maplayer holds the layer schemas exchanged with the host map:
// owner-tagged overlay layers, persistent layers and their vector styles.
package maplayer

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Layer types understood by the host map.
const (
	TypeVector = "vector"
	TypeWMS    = "wms"
)

// GroupBackground marks base map layers.
const GroupBackground = "background"

// LoadingErrorFailed is the loadingError value of a layer that failed to load.
const LoadingErrorFailed = "Error"

// Style is the vector style attached to an overlay feature.
type Style struct {
	Radius      float64 `json:"radius,omitempty"`
	Weight      float64 `json:"weight"`
	Color       string  `json:"color"`
	Opacity     float64 `json:"opacity"`
	FillColor   string  `json:"fillColor"`
	FillOpacity float64 `json:"fillOpacity"`
}

// Feature is a GeoJSON feature carrying its own style.
type Feature struct {
	Type       string            `json:"type"`
	ID         string            `json:"id,omitempty"`
	Properties map[string]any    `json:"properties"`
	Geometry   *geojson.Geometry `json:"geometry"`
	Style      *Style            `json:"style,omitempty"`
}

// NewFeature wraps g as a styled feature with empty properties.
func NewFeature(g orb.Geometry, style *Style) Feature {
	return Feature{
		Type:       "Feature",
		Properties: map[string]any{},
		Geometry:   geojson.NewGeometry(g),
		Style:      style,
	}
}

// Overlay is the options object of an additional (overlay) layer:
// {id, name, type, features|url, style}.
type Overlay struct {
	ID       string            `json:"id,omitempty"`
	LayerID  string            `json:"layerId,omitempty"`
	Name     string            `json:"name"`
	Type     string            `json:"type"`
	Features []Feature         `json:"features,omitempty"`
	URL      string            `json:"url,omitempty"`
	Format   string            `json:"format,omitempty"`
	Params   map[string]string `json:"params,omitempty"`
	Style    *Style            `json:"style,omitempty"`
}

// Layer is an entry of the persistent layer list.
type Layer struct {
	ID             string         `json:"id"`
	Name           string         `json:"name,omitempty"`
	Title          string         `json:"title,omitempty"`
	Type           string         `json:"type"`
	URL            string         `json:"url,omitempty"`
	Group          string         `json:"group,omitempty"`
	Visibility     bool           `json:"visibility"`
	LoadingError   string         `json:"loadingError,omitempty"`
	Features       []Feature      `json:"features,omitempty"`
	Style          *LayerStyle    `json:"style,omitempty"`
	ExtendedParams map[string]any `json:"extendedParams,omitempty"`
}

// IsQueryableWMS reports whether l is a visible, non-background WMS layer.
func (l Layer) IsQueryableWMS() bool {
	return l.Visibility && l.Type == TypeWMS && l.Group != GroupBackground
}

// ResourcePK returns the catalog resource key of l, if any.
func (l Layer) ResourcePK() (any, bool) {
	pk, ok := l.ExtendedParams["pk"]
	return pk, ok && pk != nil
}

// LayerStyle is a format-tagged style document (geostyler).
type LayerStyle struct {
	Format string    `json:"format"`
	Body   StyleBody `json:"body"`
}

// StyleBody is the geostyler style body.
type StyleBody struct {
	Rules []StyleRule `json:"rules"`
}

// StyleRule is one geostyler rule.
type StyleRule struct {
	Name        string       `json:"name"`
	Symbolizers []Symbolizer `json:"symbolizers"`
}

// Symbolizer is a geostyler fill symbolizer.
type Symbolizer struct {
	SymbolizerID         string  `json:"symbolizerId"`
	Kind                 string  `json:"kind"`
	Color                string  `json:"color"`
	FillOpacity          float64 `json:"fillOpacity"`
	OutlineColor         string  `json:"outlineColor"`
	OutlineWidth         float64 `json:"outlineWidth"`
	MsClassificationType string  `json:"msClassificationType,omitempty"`
}
