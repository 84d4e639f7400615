// Package host models the state slices and actions owned by the host map
// framework: controls, map view, layers, overlays, layout, drawing, map-info,
// locale and security. The viewer plugins consume and produce these actions
// but never own the state behind them.
package host

import (
	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/plat-viewer/internal/action"
	"github.com/joeblew999/plat-viewer/internal/geo"
	"github.com/joeblew999/plat-viewer/internal/maplayer"
)

// Host action tags.
const (
	SetControlPropertyType      = "SET_CONTROL_PROPERTY"
	UpdateMapLayoutType         = "UPDATE_MAP_LAYOUT"
	ClickOnMapType              = "CLICK_ON_MAP"
	LayerLoadingType            = "LAYER_LOADING"
	LayerLoadType               = "LAYER_LOAD"
	LayerErrorType              = "LAYER_ERROR"
	UpdateAdditionalLayerType   = "UPDATE_ADDITIONAL_LAYER"
	RemoveAdditionalLayerType   = "REMOVE_ADDITIONAL_LAYER"
	ZoomToExtentType            = "ZOOM_TO_EXTENT"
	AddLayerType                = "ADD_LAYER"
	RemoveLayerType             = "REMOVE_NODE"
	ChangeLayerPropertiesType   = "CHANGE_LAYER_PROPERTIES"
	ChangeDrawingStatusType     = "CHANGE_DRAWING_STATUS"
	ToggleMapInfoStateType      = "TOGGLE_MAPINFO_STATE"
	PurgeMapInfoResultsType     = "PURGE_MAPINFO_RESULTS"
	HideMapInfoMarkerType       = "HIDE_MAPINFO_MARKER"
	RegisterEventListenerType   = "REGISTER_EVENT_LISTENER"
	UnRegisterEventListenerType = "UNREGISTER_EVENT_LISTENER"
	ChangeMapViewType           = "CHANGE_MAP_VIEW"
	UndoType                    = "@@redux-undo/UNDO"
	RedoType                    = "@@redux-undo/REDO"
	ChangeLocaleType            = "CHANGE_LOCALE"
	LoginSuccessType            = "LOGIN_SUCCESS"
	LogoutType                  = "LOGOUT"
)

// Drawing statuses.
const (
	DrawStatusStart = "start"
	DrawStatusStop  = "stop"
	DrawStatusClean = "clean"
)

// LayoutSourcePanel marks a layout already adjusted by a viewer panel.
const LayoutSourcePanel = "PANEL"

// SetControlProperty sets a property of a named UI control.
type SetControlProperty struct {
	Control  string `json:"control"`
	Property string `json:"property"`
	Value    any    `json:"value"`
}

func (SetControlProperty) Type() string { return SetControlPropertyType }

// Enables reports whether a sets the enabled property of control to true.
func (a SetControlProperty) Enables(control string) bool {
	return a.Control == control && a.Property == "enabled" && a.Value == true
}

// Disables reports whether a sets the enabled property of control to false.
func (a SetControlProperty) Disables(control string) bool {
	return a.Control == control && a.Property == "enabled" && a.Value == false
}

// UpdateMapLayout replaces the map layout.
type UpdateMapLayout struct {
	Layout MapLayout `json:"layout"`
	Source string    `json:"source,omitempty"`
}

func (UpdateMapLayout) Type() string { return UpdateMapLayoutType }

// ClickOnMap reports a map click.
type ClickOnMap struct {
	Point ClickPoint `json:"point"`
}

func (ClickOnMap) Type() string { return ClickOnMapType }

// LayerLoading reports that a layer started loading. An empty LayerID is a
// whole-layer event; a set LayerID comes from tile level loading.
type LayerLoading struct {
	LayerID string `json:"layerId,omitempty"`
}

func (LayerLoading) Type() string { return LayerLoadingType }

// LayerLoad reports that a layer finished loading.
type LayerLoad struct {
	LayerID string `json:"layerId,omitempty"`
	Error   bool   `json:"error,omitempty"`
}

func (LayerLoad) Type() string { return LayerLoadType }

// LayerError marks a layer as failed.
type LayerError struct {
	LayerID string `json:"layerId"`
}

func (LayerError) Type() string { return LayerErrorType }

// UpdateAdditionalLayer creates or replaces the overlay with the given id.
type UpdateAdditionalLayer struct {
	ID         string           `json:"id"`
	Owner      string           `json:"owner"`
	ActionType string           `json:"actionType"`
	Options    maplayer.Overlay `json:"options"`
}

func (UpdateAdditionalLayer) Type() string { return UpdateAdditionalLayerType }

// RemoveAdditionalLayer removes overlays by id, or every overlay of an owner.
type RemoveAdditionalLayer struct {
	ID    string `json:"id,omitempty"`
	Owner string `json:"owner,omitempty"`
}

func (RemoveAdditionalLayer) Type() string { return RemoveAdditionalLayerType }

// ZoomToExtent asks the map to fit an extent. MaxZoom zero means fit only.
type ZoomToExtent struct {
	Extent  geo.Extent `json:"extent"`
	CRS     string     `json:"crs"`
	MaxZoom int        `json:"maxZoom,omitempty"`
}

func (ZoomToExtent) Type() string { return ZoomToExtentType }

// AddLayer appends a persistent layer.
type AddLayer struct {
	Layer maplayer.Layer `json:"layer"`
}

func (AddLayer) Type() string { return AddLayerType }

// RemoveLayer removes a persistent layer.
type RemoveLayer struct {
	ID string `json:"node"`
}

func (RemoveLayer) Type() string { return RemoveLayerType }

// LayerProperties lists the changeable properties of a layer.
type LayerProperties struct {
	Visibility *bool  `json:"visibility,omitempty"`
	Title      string `json:"title,omitempty"`
}

// ChangeLayerProperties updates a persistent layer.
type ChangeLayerProperties struct {
	LayerID    string          `json:"layer"`
	Properties LayerProperties `json:"newProperties"`
}

func (ChangeLayerProperties) Type() string { return ChangeLayerPropertiesType }

// DrawnFeature is a feature produced by the draw tool.
type DrawnFeature struct {
	Extent   geo.Extent        `json:"extent"`
	Geometry *geojson.Geometry `json:"geometry,omitempty"`
}

// ChangeDrawingStatus drives the draw tool.
type ChangeDrawingStatus struct {
	Status   string         `json:"status"`
	Method   string         `json:"method"`
	Owner    string         `json:"owner"`
	Features []DrawnFeature `json:"features"`
	Options  map[string]any `json:"options,omitempty"`
}

func (ChangeDrawingStatus) Type() string { return ChangeDrawingStatusType }

// ToggleMapInfoState flips the identify tool.
type ToggleMapInfoState struct{}

func (ToggleMapInfoState) Type() string { return ToggleMapInfoStateType }

// PurgeMapInfoResults clears identify responses.
type PurgeMapInfoResults struct{}

func (PurgeMapInfoResults) Type() string { return PurgeMapInfoResultsType }

// HideMapInfoMarker hides the identify marker.
type HideMapInfoMarker struct{}

func (HideMapInfoMarker) Type() string { return HideMapInfoMarkerType }

// RegisterEventListener routes a map event to a tool.
type RegisterEventListener struct {
	EventName string `json:"eventName"`
	Toc       string `json:"toc"`
}

func (RegisterEventListener) Type() string { return RegisterEventListenerType }

// UnRegisterEventListener stops routing a map event to a tool.
type UnRegisterEventListener struct {
	EventName string `json:"eventName"`
	Toc       string `json:"toc"`
}

func (UnRegisterEventListener) Type() string { return UnRegisterEventListenerType }

// ChangeMapView reports the new view after a pan or zoom.
type ChangeMapView struct {
	View MapView `json:"view"`
}

func (ChangeMapView) Type() string { return ChangeMapViewType }

// Undo steps back in the map navigation history.
type Undo struct{}

func (Undo) Type() string { return UndoType }

// Redo steps forward in the map navigation history.
type Redo struct{}

func (Redo) Type() string { return RedoType }

// ChangeLocale switches the UI locale.
type ChangeLocale struct {
	Locale string `json:"locale"`
}

func (ChangeLocale) Type() string { return ChangeLocaleType }

// LoginSuccess stores the access credential used for OGC requests.
type LoginSuccess struct {
	AccessToken string `json:"accessToken"`
}

func (LoginSuccess) Type() string { return LoginSuccessType }

// Logout drops the access credential.
type Logout struct{}

func (Logout) Type() string { return LogoutType }

func init() {
	action.Register[SetControlProperty](SetControlPropertyType)
	action.Register[UpdateMapLayout](UpdateMapLayoutType)
	action.Register[ClickOnMap](ClickOnMapType)
	action.Register[LayerLoading](LayerLoadingType)
	action.Register[LayerLoad](LayerLoadType)
	action.Register[LayerError](LayerErrorType)
	action.Register[UpdateAdditionalLayer](UpdateAdditionalLayerType)
	action.Register[RemoveAdditionalLayer](RemoveAdditionalLayerType)
	action.Register[ZoomToExtent](ZoomToExtentType)
	action.Register[AddLayer](AddLayerType)
	action.Register[RemoveLayer](RemoveLayerType)
	action.Register[ChangeLayerProperties](ChangeLayerPropertiesType)
	action.Register[ChangeDrawingStatus](ChangeDrawingStatusType)
	action.Register[ToggleMapInfoState](ToggleMapInfoStateType)
	action.Register[PurgeMapInfoResults](PurgeMapInfoResultsType)
	action.Register[HideMapInfoMarker](HideMapInfoMarkerType)
	action.Register[RegisterEventListener](RegisterEventListenerType)
	action.Register[UnRegisterEventListener](UnRegisterEventListenerType)
	action.Register[ChangeMapView](ChangeMapViewType)
	action.Register[Undo](UndoType)
	action.Register[Redo](RedoType)
	action.Register[ChangeLocale](ChangeLocaleType)
	action.Register[LoginSuccess](LoginSuccessType)
	action.Register[Logout](LogoutType)
}
