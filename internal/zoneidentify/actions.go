package zoneidentify

import (
	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/plat-viewer/internal/action"
)

// Zone Identify action tags.
const (
	SelectFeaturesType           = "ZONEIDENTIFY:SELECT_FEATURES"
	SelectLayerType              = "ZONEIDENTIFY:SELECT_LAYER"
	FormatSelectionType          = "ZONEIDENTIFY:FORMAT_SELECTION"
	HighlightSelectedFeatureType = "ZONEIDENTIFY:HIGHLIGHT_SELECTED_FEATURE"
	ZoomToSelectedFeatureType    = "ZONEIDENTIFY:ZOOM_TO_SELECTED_FEATURE"
	AddLayerToMapType            = "ZONEIDENTIFY:ADD_LAYER_TO_MAP"
	SetLoadingType               = "ZONEIDENTIFY:SET_ZONE_IDENTIFY_LOADING"
)

// SelectFeatures stores the raw result of a zone query. A nil slice clears
// the selection; an empty one is a query that matched nothing.
type SelectFeatures struct {
	SelectedFeatures []*geojson.Feature `json:"selectedFeatures"`
}

func (SelectFeatures) Type() string { return SelectFeaturesType }

// SelectLayer chooses the layers queried by the next drawing.
type SelectLayer struct {
	SelectedLayer *LayerSelection `json:"selectedLayer"`
}

func (SelectLayer) Type() string { return SelectLayerType }

// FormatSelection replaces the result tree.
type FormatSelection struct {
	FormattedFeatures []TreeNode `json:"formattedFeatures"`
}

func (FormatSelection) Type() string { return FormatSelectionType }

// HighlightSelectedFeature outlines one tree feature on the map.
type HighlightSelectedFeature struct {
	SelectedFeature *RawGeometry `json:"selectedFeature"`
}

func (HighlightSelectedFeature) Type() string { return HighlightSelectedFeatureType }

// ZoomToSelectedFeature zooms the map onto one tree feature.
type ZoomToSelectedFeature struct {
	SelectedFeature *RawGeometry `json:"selectedFeature"`
}

func (ZoomToSelectedFeature) Type() string { return ZoomToSelectedFeatureType }

// AddLayerToMap keeps the drawn query polygon as a layer.
type AddLayerToMap struct {
	Layer *RawGeometry `json:"layer"`
}

func (AddLayerToMap) Type() string { return AddLayerToMapType }

// SetLoading toggles the panel spinner.
type SetLoading struct {
	Loading bool `json:"loading"`
}

func (SetLoading) Type() string { return SetLoadingType }

func init() {
	action.Register[SelectFeatures](SelectFeaturesType)
	action.Register[SelectLayer](SelectLayerType)
	action.Register[FormatSelection](FormatSelectionType)
	action.Register[HighlightSelectedFeature](HighlightSelectedFeatureType)
	action.Register[ZoomToSelectedFeature](ZoomToSelectedFeatureType)
	action.Register[AddLayerToMap](AddLayerToMapType)
	action.Register[SetLoading](SetLoadingType)
}
