package host

import (
	"github.com/joeblew999/plat-viewer/internal/action"
	"github.com/joeblew999/plat-viewer/internal/geo"
	"github.com/joeblew999/plat-viewer/internal/maplayer"
)

// historyLimit caps the undo stack.
const historyLimit = 20

// State is the host framework part of a session store.
type State struct {
	Controls         map[string]Control     `json:"controls"`
	Map              MapState               `json:"map"`
	Layers           []maplayer.Layer       `json:"layers"`
	AdditionalLayers []AdditionalLayer      `json:"additionalLayers"`
	Layout           MapLayout              `json:"mapLayout"`
	Draw             DrawState              `json:"draw"`
	MapInfo          MapInfoState           `json:"mapInfo"`
	EventListeners   map[string][]string    `json:"eventListeners"`
	Locale           string                 `json:"locale"`
	Security         Security               `json:"security"`
	Settings         Settings               `json:"settings"`
	LastError        *action.PipelineFailed `json:"lastError,omitempty"`
}

// Control holds the properties of one UI control.
type Control map[string]any

// Security holds the user credential.
type Security struct {
	AccessToken string `json:"accessToken,omitempty"`
}

// Settings holds service endpoints.
type Settings struct {
	GeoServerURL string `json:"geoserverUrl"`
}

// Bounds is a projected rectangle.
type Bounds struct {
	MinX float64 `json:"minx"`
	MinY float64 `json:"miny"`
	MaxX float64 `json:"maxx"`
	MaxY float64 `json:"maxy"`
}

// Extent converts b to a geo.Extent.
func (b Bounds) Extent() geo.Extent {
	return geo.Extent{b.MinX, b.MinY, b.MaxX, b.MaxY}
}

// MapBBox is the visible extent with its CRS.
type MapBBox struct {
	Bounds Bounds `json:"bounds"`
	CRS    string `json:"crs"`
}

// MapSize is the map viewport in pixels.
type MapSize struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// MapView is one entry of the navigation history.
type MapView struct {
	Center     geo.XY  `json:"center"`
	Zoom       float64 `json:"zoom"`
	BBox       MapBBox `json:"bbox"`
	Size       MapSize `json:"size"`
	Projection string  `json:"projection,omitempty"`
}

// MapState is the map view plus its navigation history.
type MapState struct {
	Projection string        `json:"projection"`
	Present    MapView       `json:"present"`
	Past       []MapView     `json:"past,omitempty"`
	Future     []MapView     `json:"future,omitempty"`
	LastZoom   *ZoomToExtent `json:"lastZoom,omitempty"`
}

// Rect is a bounding rectangle in pixels.
type Rect struct {
	Left   float64 `json:"left,omitempty"`
	Right  float64 `json:"right,omitempty"`
	Top    float64 `json:"top,omitempty"`
	Bottom float64 `json:"bottom,omitempty"`
}

// MapLayout is the map area left free by the panels.
type MapLayout struct {
	Left                float64 `json:"left,omitempty"`
	Right               float64 `json:"right,omitempty"`
	Top                 float64 `json:"top,omitempty"`
	Bottom              float64 `json:"bottom,omitempty"`
	Height              string  `json:"height,omitempty"`
	BoundingMapRect     Rect    `json:"boundingMapRect"`
	BoundingSidebarRect Rect    `json:"boundingSidebarRect"`
}

// AdditionalLayer is an owner-tagged overlay.
type AdditionalLayer struct {
	ID         string           `json:"id"`
	Owner      string           `json:"owner"`
	ActionType string           `json:"actionType"`
	Options    maplayer.Overlay `json:"options"`
}

// DrawState is the draw tool status.
type DrawState struct {
	Status   string         `json:"drawStatus,omitempty"`
	Method   string         `json:"drawMethod,omitempty"`
	Owner    string         `json:"drawOwner,omitempty"`
	Features []DrawnFeature `json:"features,omitempty"`
}

// MapInfoState is the identify tool status.
type MapInfoState struct {
	Enabled    bool `json:"enabled"`
	ShowMarker bool `json:"showMarker"`
	Purged     bool `json:"purged"`
}

// Options seed a new host state.
type Options struct {
	Projection   string
	Locale       string
	AccessToken  string
	GeoServerURL string
	Layers       []maplayer.Layer
}

// NewState builds the initial host state of a session.
func NewState(opts Options) State {
	projection := opts.Projection
	if projection == "" {
		projection = geo.EPSG3857
	}
	layers := make([]maplayer.Layer, len(opts.Layers))
	copy(layers, opts.Layers)
	return State{
		Controls:       map[string]Control{},
		Map:            MapState{Projection: projection, Present: MapView{Projection: projection}},
		Layers:         layers,
		EventListeners: map[string][]string{},
		Locale:         opts.Locale,
		Security:       Security{AccessToken: opts.AccessToken},
		Settings:       Settings{GeoServerURL: opts.GeoServerURL},
	}
}

// ControlEnabled reports whether control has enabled == true.
func (s State) ControlEnabled(control string) bool {
	return s.Controls[control]["enabled"] == true
}

// ControlValue returns a control property.
func (s State) ControlValue(control, property string) any {
	return s.Controls[control][property]
}

// AdditionalLayer finds an overlay by id.
func (s State) AdditionalLayer(id string) (AdditionalLayer, bool) {
	for _, l := range s.AdditionalLayers {
		if l.ID == id {
			return l, true
		}
	}
	return AdditionalLayer{}, false
}

// AdditionalLayerByName finds the first overlay whose options name matches.
func (s State) AdditionalLayerByName(name string) (AdditionalLayer, bool) {
	for _, l := range s.AdditionalLayers {
		if l.Options.Name == name {
			return l, true
		}
	}
	return AdditionalLayer{}, false
}

// Layer finds a persistent layer by id.
func (s State) Layer(id string) (maplayer.Layer, bool) {
	for _, l := range s.Layers {
		if l.ID == id {
			return l, true
		}
	}
	return maplayer.Layer{}, false
}

// CanUndo reports whether the navigation history has a previous view.
func (s State) CanUndo() bool { return len(s.Map.Past) > 0 }

// CanRedo reports whether the navigation history has a next view.
func (s State) CanRedo() bool { return len(s.Map.Future) > 0 }

// LayerDetailViewerControl is the control value that opens the layer detail panel.
const LayerDetailViewerControl = "LayerDetailViewer"

// CanShowLayerDetail reports whether the layer detail panel applies to l:
// only layers backed by a catalog resource have details.
func CanShowLayerDetail(l maplayer.Layer) bool {
	_, ok := l.ResourcePK()
	return ok
}

// LayerDetailOpen reports whether the right overlay shows the layer detail panel.
func (s State) LayerDetailOpen() bool {
	return s.ControlValue("rightOverlay", "enabled") == LayerDetailViewerControl
}
