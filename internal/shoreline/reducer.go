package shoreline

import (
	"fmt"
	"slices"

	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/plat-viewer/internal/action"
)

// Reduce folds a into s. Unknown actions return s unchanged.
func Reduce(s State, a action.Action) State {
	switch a := a.(type) {
	case SetRegion:
		s.SelectedRegion = a.SelectedRegion
	case UpdateSelectedMediaType:
		s.SelectedMediaType = a.SelectedMediaType
	case FeatureInfoClick:
		s.ClickPoint = a.Point
		s.ClickLayers = slices.Clone(a.Layers)
	case SelectedFeature:
		// feature and projection travel as a pair
		if a.SelectedFeature != nil && a.SelectedFeatureProjection == "" {
			return s
		}
		s.SelectedFeature = a.SelectedFeature
		s.SelectedFeatureProjection = a.SelectedFeatureProjection
		if a.SelectedFeature == nil {
			s.SelectedFeatureProjection = ""
		}
	case LoadMediaDatasetFeatures:
		s.SelectedMediaDatasetFeatures = a.SelectedMediaDatasetFeatures
	case SetLoading:
		s.Loading = a.Loading
	}
	return s
}

// Step is a media navigation move.
type Step int

const (
	First Step = iota
	Previous
	Next
	Last
)

func (s Step) String() string {
	switch s {
	case First:
		return "first"
	case Previous:
		return "previous"
	case Next:
		return "next"
	case Last:
		return "last"
	}
	return fmt.Sprintf("Step(%d)", int(s))
}

// FeatureName returns the name property used to match media features.
func FeatureName(f *geojson.Feature) (string, bool) {
	if f == nil {
		return "", false
	}
	v, ok := f.Properties["name"]
	if !ok || v == nil {
		return "", false
	}
	if s, ok := v.(string); ok {
		return s, true
	}
	return fmt.Sprint(v), true
}

// IndexOf returns the position of the feature named like f, or -1.
func IndexOf(fc *geojson.FeatureCollection, f *geojson.Feature) int {
	name, ok := FeatureName(f)
	if fc == nil || !ok {
		return -1
	}
	return slices.IndexFunc(fc.Features, func(c *geojson.Feature) bool {
		n, ok := FeatureName(c)
		return ok && n == name
	})
}

// Navigate resolves the media feature reached from current by step.
// Previous and Next clamp at the ends of the list instead of wrapping.
// ok is false when there is no dataset, the dataset is empty, or current is
// not part of it for a relative move.
func Navigate(fc *geojson.FeatureCollection, current *geojson.Feature, step Step) (*geojson.Feature, bool) {
	if fc == nil || len(fc.Features) == 0 {
		return nil, false
	}
	last := len(fc.Features) - 1
	switch step {
	case First:
		return fc.Features[0], true
	case Last:
		return fc.Features[last], true
	}
	i := IndexOf(fc, current)
	if i < 0 {
		return nil, false
	}
	if step == Previous {
		i = max(i-1, 0)
	} else {
		i = min(i+1, last)
	}
	return fc.Features[i], true
}

// Position reports where the selected feature sits in the media dataset.
// The photo navigation buttons use it to disable first/previous on the
// first photo and next/last on the last one.
func (s State) Position() (index, total int, ok bool) {
	if s.SelectedMediaDatasetFeatures == nil {
		return -1, 0, false
	}
	total = len(s.SelectedMediaDatasetFeatures.Features)
	index = IndexOf(s.SelectedMediaDatasetFeatures, s.SelectedFeature)
	return index, total, index >= 0
}

// IsFirst reports whether the selected media feature is the first one.
func (s State) IsFirst() bool {
	i, _, ok := s.Position()
	return ok && i == 0
}

// IsLast reports whether the selected media feature is the last one.
func (s State) IsLast() bool {
	i, total, ok := s.Position()
	return ok && i == total-1
}
