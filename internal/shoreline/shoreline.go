// Package shoreline holds the Shoreline Viewer vocabulary: regions, media
// types, actions, the state slice and its reducer.
package shoreline

import (
	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/plat-viewer/internal/geo"
	"github.com/joeblew999/plat-viewer/internal/host"
)

// Identities owned by the Shoreline Viewer.
const (
	ControlName = "shorelineViewer"
	Owner       = "ShorelineViewer"

	ExtentsLayerID         = "shoreline-viewer-extents"
	ClassificationLayerID  = "shoreline-classification-layer"
	MediaLayerID           = "shoreline-media-layer"
	SelectedFeatureLayerID = "shoreline-viewer-selected-feature"

	// NavigationProjection is the CRS of media dataset features.
	NavigationProjection = geo.EPSG4269
	// SelectedPointZoom is the zoom level used for a selected point.
	SelectedPointZoom = 14
)

// Media type names.
const (
	MediaPhotos = "Photos"
	MediaVideos = "Videos"
)

// Region is a configured shoreline survey region.
type Region struct {
	ID                             string     `json:"id" koanf:"id"`
	LabelID                        string     `json:"labelId" koanf:"label_id"`
	Extent                         geo.Extent `json:"extent" koanf:"extent"`
	ShorelineClassificationDataset string     `json:"shorelineClassificationDataset" koanf:"classification_dataset"`
	PhotoDataset                   string     `json:"photoDataset,omitempty" koanf:"photo_dataset"`
	VideoLayerName                 string     `json:"videoLayerName,omitempty" koanf:"video_layer_name"`
}

// GetExtent returns the region extent.
func (r Region) GetExtent() geo.Extent { return r.Extent }

// MediaLayerName resolves the layer holding the region's media of the given type.
func (r Region) MediaLayerName(mt MediaType) string {
	if mt.Name == MediaPhotos {
		return r.PhotoDataset
	}
	return r.VideoLayerName
}

// Supports reports whether the region has media of the given type.
func (r Region) Supports(mt MediaType) bool {
	return r.MediaLayerName(mt) != ""
}

// MediaType is a selectable kind of shoreline media.
type MediaType struct {
	Name        string `json:"name" koanf:"name"`
	Icon        string `json:"icon" koanf:"icon"`
	Tooltip     string `json:"tooltip" koanf:"tooltip"`
	DatasetName string `json:"datasetName" koanf:"dataset_name"`
}

// DefaultMediaTypes lists the photo and video media types.
func DefaultMediaTypes() []MediaType {
	return []MediaType{
		{Name: MediaPhotos, Icon: "camera", Tooltip: "shorelineviewer.displayPhotoTracklogsTooltip", DatasetName: "photoDataset"},
		{Name: MediaVideos, Icon: "video-camera", Tooltip: "shorelineviewer.displayVideoTracklogsTooltip", DatasetName: "videoDataset"},
	}
}

// State is the Shoreline Viewer slice of a session store.
type State struct {
	SelectedRegion               *Region                    `json:"selectedRegion"`
	SelectedMediaType            *MediaType                 `json:"selectedMediaType"`
	SelectedFeature              *geojson.Feature           `json:"selectedFeature"`
	SelectedFeatureProjection    string                     `json:"selectedFeatureProjection,omitempty"`
	SelectedMediaDatasetFeatures *geojson.FeatureCollection `json:"selectedMediaDatasetFeatures"`
	ClickPoint                   *host.ClickPoint           `json:"clickPoint,omitempty"`
	ClickLayers                  []string                   `json:"clickLayers,omitempty"`
	Loading                      bool                       `json:"loading"`
}

// MediaTypeIs reports whether the selected media type has the given name.
func (s State) MediaTypeIs(name string) bool {
	return s.SelectedMediaType != nil && s.SelectedMediaType.Name == name
}
