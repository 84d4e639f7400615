package host

import (
	"maps"
	"slices"

	"github.com/joeblew999/plat-viewer/internal/action"
	"github.com/joeblew999/plat-viewer/internal/maplayer"
)

// Reduce folds a into s. Slices and maps of s are never mutated; changed
// collections are copied first so earlier snapshots stay valid.
func Reduce(s State, a action.Action) State {
	switch a := a.(type) {
	case SetControlProperty:
		controls := maps.Clone(s.Controls)
		if controls == nil {
			controls = map[string]Control{}
		}
		control := maps.Clone(controls[a.Control])
		if control == nil {
			control = Control{}
		}
		control[a.Property] = a.Value
		controls[a.Control] = control
		s.Controls = controls

	case UpdateMapLayout:
		s.Layout = a.Layout

	case LayerError:
		s.Layers = updateLayer(s.Layers, a.LayerID, func(l *maplayer.Layer) {
			l.LoadingError = maplayer.LoadingErrorFailed
		})

	case LayerLoad:
		if a.LayerID != "" {
			s.Layers = updateLayer(s.Layers, a.LayerID, func(l *maplayer.Layer) {
				if a.Error {
					l.LoadingError = maplayer.LoadingErrorFailed
				} else {
					l.LoadingError = ""
				}
			})
		}

	case UpdateAdditionalLayer:
		next := AdditionalLayer{ID: a.ID, Owner: a.Owner, ActionType: a.ActionType, Options: a.Options}
		i := slices.IndexFunc(s.AdditionalLayers, func(l AdditionalLayer) bool { return l.ID == a.ID })
		layers := slices.Clone(s.AdditionalLayers)
		if i >= 0 {
			layers[i] = next
		} else {
			layers = append(layers, next)
		}
		s.AdditionalLayers = layers

	case RemoveAdditionalLayer:
		s.AdditionalLayers = slices.DeleteFunc(slices.Clone(s.AdditionalLayers), func(l AdditionalLayer) bool {
			if a.ID != "" {
				return l.ID == a.ID
			}
			return a.Owner != "" && l.Owner == a.Owner
		})

	case ZoomToExtent:
		zoom := a
		s.Map.LastZoom = &zoom

	case AddLayer:
		s.Layers = append(slices.Clone(s.Layers), a.Layer)

	case RemoveLayer:
		s.Layers = slices.DeleteFunc(slices.Clone(s.Layers), func(l maplayer.Layer) bool { return l.ID == a.ID })

	case ChangeLayerProperties:
		s.Layers = updateLayer(s.Layers, a.LayerID, func(l *maplayer.Layer) {
			if a.Properties.Visibility != nil {
				l.Visibility = *a.Properties.Visibility
			}
			if a.Properties.Title != "" {
				l.Title = a.Properties.Title
			}
		})

	case ChangeDrawingStatus:
		s.Draw = DrawState{Status: a.Status, Method: a.Method, Owner: a.Owner, Features: slices.Clone(a.Features)}

	case ToggleMapInfoState:
		s.MapInfo.Enabled = !s.MapInfo.Enabled

	case PurgeMapInfoResults:
		s.MapInfo.Purged = true

	case HideMapInfoMarker:
		s.MapInfo.ShowMarker = false

	case RegisterEventListener:
		listeners := maps.Clone(s.EventListeners)
		if listeners == nil {
			listeners = map[string][]string{}
		}
		if !slices.Contains(listeners[a.EventName], a.Toc) {
			listeners[a.EventName] = append(slices.Clone(listeners[a.EventName]), a.Toc)
		}
		s.EventListeners = listeners

	case UnRegisterEventListener:
		listeners := maps.Clone(s.EventListeners)
		remaining := slices.DeleteFunc(slices.Clone(listeners[a.EventName]), func(t string) bool { return t == a.Toc })
		if len(remaining) == 0 {
			delete(listeners, a.EventName)
		} else {
			listeners[a.EventName] = remaining
		}
		s.EventListeners = listeners

	case ChangeMapView:
		s.Map = pushView(s.Map, a.View)

	case Undo:
		if n := len(s.Map.Past); n > 0 {
			m := s.Map
			m.Future = append([]MapView{m.Present}, m.Future...)
			m.Present = m.Past[n-1]
			m.Past = slices.Clone(m.Past[:n-1])
			s.Map = m
		}

	case Redo:
		if len(s.Map.Future) > 0 {
			m := s.Map
			m.Past = append(slices.Clone(m.Past), m.Present)
			m.Present = m.Future[0]
			m.Future = slices.Clone(m.Future[1:])
			s.Map = m
		}

	case ChangeLocale:
		s.Locale = a.Locale

	case LoginSuccess:
		s.Security.AccessToken = a.AccessToken

	case Logout:
		s.Security = Security{}

	case action.PipelineFailed:
		failed := a
		s.LastError = &failed
	}
	return s
}

func pushView(m MapState, view MapView) MapState {
	if view.Projection == "" {
		view.Projection = m.Projection
	}
	if m.Present != (MapView{Projection: m.Projection}) {
		past := append(slices.Clone(m.Past), m.Present)
		if len(past) > historyLimit {
			past = past[len(past)-historyLimit:]
		}
		m.Past = past
	}
	m.Present = view
	m.Future = nil
	m.Projection = view.Projection
	return m
}

func updateLayer(layers []maplayer.Layer, id string, fn func(*maplayer.Layer)) []maplayer.Layer {
	i := slices.IndexFunc(layers, func(l maplayer.Layer) bool { return l.ID == id })
	if i < 0 {
		return layers
	}
	out := slices.Clone(layers)
	fn(&out[i])
	return out
}
