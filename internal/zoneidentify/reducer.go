package zoneidentify

import "github.com/joeblew999/plat-viewer/internal/action"

// Reduce folds a into s. Unknown actions return s unchanged.
func Reduce(s State, a action.Action) State {
	switch a := a.(type) {
	case SelectFeatures:
		s.SelectedFeatures = a.SelectedFeatures
	case SelectLayer:
		s.SelectedLayer = a.SelectedLayer
	case FormatSelection:
		s.FormattedFeatures = a.FormattedFeatures
	case HighlightSelectedFeature:
		s.SelectedFeature = a.SelectedFeature
	case ZoomToSelectedFeature:
		s.SelectedFeature = a.SelectedFeature
	case AddLayerToMap:
		s.Layer = a.Layer
	case SetLoading:
		s.Loading = a.Loading
	}
	return s
}
