package store

import (
	"github.com/joeblew999/plat-viewer/internal/host"
	"github.com/joeblew999/plat-viewer/internal/shoreline"
)

// View is what a client derives from a state to enable its controls.
type View struct {
	CanUndo         bool     `json:"canUndo" doc:"Map history has a previous view"`
	CanRedo         bool     `json:"canRedo" doc:"Map history has a next view"`
	MediaIndex      int      `json:"mediaIndex" doc:"Index of the selected photo, -1 when none"`
	MediaTotal      int      `json:"mediaTotal" doc:"Photos in the loaded dataset"`
	MediaFirst      bool     `json:"mediaFirst" doc:"The selected photo is the first one"`
	MediaLast       bool     `json:"mediaLast" doc:"The selected photo is the last one"`
	MediaTypes      []string `json:"mediaTypes" doc:"Media types the selected region has data for"`
	LayerDetailOpen bool     `json:"layerDetailOpen" doc:"The right overlay shows the layer detail panel"`
	DetailLayers    []string `json:"detailLayers" doc:"Layers the detail panel applies to"`
}

// ViewOf derives the view of s. mediaTypes are the selectable media types.
func ViewOf(s State, mediaTypes []shoreline.MediaType) View {
	v := View{
		CanUndo:         s.Host.CanUndo(),
		CanRedo:         s.Host.CanRedo(),
		MediaFirst:      s.Shoreline.IsFirst(),
		MediaLast:       s.Shoreline.IsLast(),
		MediaTypes:      []string{},
		LayerDetailOpen: s.Host.LayerDetailOpen(),
		DetailLayers:    []string{},
	}
	v.MediaIndex, v.MediaTotal, _ = s.Shoreline.Position()

	if r := s.Shoreline.SelectedRegion; r != nil {
		for _, mt := range mediaTypes {
			if r.Supports(mt) {
				v.MediaTypes = append(v.MediaTypes, mt.Name)
			}
		}
	}
	for _, l := range s.Host.Layers {
		if host.CanShowLayerDetail(l) {
			v.DetailLayers = append(v.DetailLayers, l.ID)
		}
	}
	return v
}
