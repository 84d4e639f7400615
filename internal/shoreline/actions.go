package shoreline

import (
	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/plat-viewer/internal/action"
	"github.com/joeblew999/plat-viewer/internal/host"
)

// Shoreline action tags.
const (
	SetRegionType                  = "SHORELINE:SET_SHORELINE_REGION"
	UpdateSelectedMediaTypeType    = "SHORELINE:UPDATE_SHORELINE_SELECTED_MEDIA_TYPE"
	FeatureInfoClickType           = "SHORELINE:SHORELINE_FEATURE_INFO_CLICK"
	SelectedFeatureType            = "SHORELINE:SHORELINE_SELECTED_FEATURE"
	LoadMediaDatasetFeaturesType   = "SHORELINE:LOAD_SELECTED_MEDIA_DATASET_FEATURES"
	SelectFirstMediaFeatureType    = "SHORELINE:SELECT_FIRST_MEDIA_FEATURE"
	SelectPreviousMediaFeatureType = "SHORELINE:SELECT_PREVIOUS_MEDIA_FEATURE"
	SelectNextMediaFeatureType     = "SHORELINE:SELECT_NEXT_MEDIA_FEATURE"
	SelectLastMediaFeatureType     = "SHORELINE:SELECT_LAST_MEDIA_FEATURE"
	SetLoadingType                 = "SHORELINE:SET_SHORELINE_LOADING"
)

// SetRegion selects the region shown by the viewer.
type SetRegion struct {
	SelectedRegion *Region `json:"selectedRegion"`
}

func (SetRegion) Type() string { return SetRegionType }

// UpdateSelectedMediaType selects photos or videos.
type UpdateSelectedMediaType struct {
	SelectedMediaType *MediaType `json:"selectedMediaType"`
}

func (UpdateSelectedMediaType) Type() string { return UpdateSelectedMediaTypeType }

// FeatureInfoClick carries what a GetFeatureInfo request needs.
type FeatureInfoClick struct {
	Point  *host.ClickPoint `json:"point"`
	Layers []string         `json:"layers"`
}

func (FeatureInfoClick) Type() string { return FeatureInfoClickType }

// SelectedFeature sets the selected feature together with its projection.
type SelectedFeature struct {
	SelectedFeature           *geojson.Feature `json:"selectedFeature"`
	SelectedFeatureProjection string           `json:"selectedFeatureProjection,omitempty"`
}

func (SelectedFeature) Type() string { return SelectedFeatureType }

// SelectFeature builds a SelectedFeature; a nil feature never carries a projection.
func SelectFeature(f *geojson.Feature, projection string) SelectedFeature {
	if f == nil {
		return SelectedFeature{}
	}
	return SelectedFeature{SelectedFeature: f, SelectedFeatureProjection: projection}
}

// LoadMediaDatasetFeatures stores the features of the media dataset.
type LoadMediaDatasetFeatures struct {
	SelectedMediaDatasetFeatures *geojson.FeatureCollection `json:"selectedMediaDatasetFeatures"`
}

func (LoadMediaDatasetFeatures) Type() string { return LoadMediaDatasetFeaturesType }

// SelectFirstMediaFeature moves to the first media feature.
type SelectFirstMediaFeature struct {
	SelectedFeature *geojson.Feature `json:"selectedFeature"`
}

func (SelectFirstMediaFeature) Type() string { return SelectFirstMediaFeatureType }

// SelectPreviousMediaFeature moves to the media feature before SelectedFeature.
type SelectPreviousMediaFeature struct {
	SelectedFeature *geojson.Feature `json:"selectedFeature"`
}

func (SelectPreviousMediaFeature) Type() string { return SelectPreviousMediaFeatureType }

// SelectNextMediaFeature moves to the media feature after SelectedFeature.
type SelectNextMediaFeature struct {
	SelectedFeature *geojson.Feature `json:"selectedFeature"`
}

func (SelectNextMediaFeature) Type() string { return SelectNextMediaFeatureType }

// SelectLastMediaFeature moves to the last media feature.
type SelectLastMediaFeature struct {
	SelectedFeature *geojson.Feature `json:"selectedFeature"`
}

func (SelectLastMediaFeature) Type() string { return SelectLastMediaFeatureType }

// SetLoading toggles the viewer spinner.
type SetLoading struct {
	Loading bool `json:"loading"`
}

func (SetLoading) Type() string { return SetLoadingType }

func init() {
	action.Register[SetRegion](SetRegionType)
	action.Register[UpdateSelectedMediaType](UpdateSelectedMediaTypeType)
	action.Register[FeatureInfoClick](FeatureInfoClickType)
	action.Register[SelectedFeature](SelectedFeatureType)
	action.Register[LoadMediaDatasetFeatures](LoadMediaDatasetFeaturesType)
	action.Register[SelectFirstMediaFeature](SelectFirstMediaFeatureType)
	action.Register[SelectPreviousMediaFeature](SelectPreviousMediaFeatureType)
	action.Register[SelectNextMediaFeature](SelectNextMediaFeatureType)
	action.Register[SelectLastMediaFeature](SelectLastMediaFeatureType)
	action.Register[SetLoading](SetLoadingType)
}
