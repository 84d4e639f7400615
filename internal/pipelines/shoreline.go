package pipelines

import (
	"context"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/plat-viewer/internal/action"
	"github.com/joeblew999/plat-viewer/internal/epic"
	"github.com/joeblew999/plat-viewer/internal/geo"
	"github.com/joeblew999/plat-viewer/internal/host"
	"github.com/joeblew999/plat-viewer/internal/maplayer"
	"github.com/joeblew999/plat-viewer/internal/ows"
	"github.com/joeblew999/plat-viewer/internal/shoreline"
	"github.com/joeblew999/plat-viewer/internal/store"
)

// Shoreline Viewer pipeline names.
const (
	ShorelineLayout          = "shoreline/layout"
	ShorelineOpen            = "shoreline/open"
	ShorelineClose           = "shoreline/close"
	ShorelineRegion          = "shoreline/region"
	ShorelineMapClick        = "shoreline/map-click"
	ShorelineFeatureInfo     = "shoreline/feature-info"
	ShorelineSelectedOverlay = "shoreline/selected-overlay"
	ShorelineMediaLayer      = "shoreline/media-layer"
	ShorelineMediaDataset    = "shoreline/media-dataset"
	ShorelineNavigate        = "shoreline/navigate-"
	ShorelineStartLoading    = "shoreline/start-loading"
	ShorelineStopLoading     = "shoreline/stop-loading"
)

type shorelinePipelines struct {
	cfg Config
}

// Shoreline returns the Shoreline Viewer pipelines.
func Shoreline(cfg Config) []epic.Epic {
	p := shorelinePipelines{cfg: cfg.withDefaults()}
	isEnabled := enabled(shoreline.ControlName)

	return []epic.Epic{
		{
			Name:  ShorelineLayout,
			Types: []string{host.UpdateMapLayoutType, host.SetControlPropertyType},
			Filter: func(a action.Action, s store.State) bool {
				if l, ok := a.(host.UpdateMapLayout); ok && !notFromPanel(l) {
					return false
				}
				return isEnabled(s)
			},
			Run: p.layout,
		},
		on(ShorelineOpen,
			func(a host.SetControlProperty, s store.State) bool {
				return a.Control == shoreline.ControlName && isEnabled(s)
			},
			p.open),
		on(ShorelineClose,
			func(a host.SetControlProperty, _ store.State) bool { return a.Disables(shoreline.ControlName) },
			p.close),
		on(ShorelineRegion,
			func(a shoreline.SetRegion, s store.State) bool { return a.SelectedRegion != nil && isEnabled(s) },
			p.region),
		on(ShorelineMapClick,
			func(_ host.ClickOnMap, s store.State) bool { return isEnabled(s) },
			p.mapClick),
		async(on(ShorelineFeatureInfo,
			func(a shoreline.FeatureInfoClick, _ store.State) bool { return a.Point != nil && len(a.Layers) > 0 },
			p.featureInfo)),
		on(ShorelineSelectedOverlay,
			func(a shoreline.SelectedFeature, s store.State) bool {
				return a.SelectedFeature != nil && s.Shoreline.SelectedFeature != nil
			},
			p.selectedOverlay),
		on(ShorelineMediaLayer,
			func(a shoreline.UpdateSelectedMediaType, s store.State) bool {
				return a.SelectedMediaType != nil && s.Shoreline.SelectedRegion != nil
			},
			p.mediaLayer),
		async(on(ShorelineMediaDataset,
			func(a host.UpdateAdditionalLayer, s store.State) bool {
				return a.ID == shoreline.MediaLayerID && isEnabled(s) && s.Shoreline.MediaTypeIs(shoreline.MediaPhotos)
			},
			p.mediaDataset)),
		navigate[shoreline.SelectFirstMediaFeature](p, shoreline.First),
		navigate[shoreline.SelectPreviousMediaFeature](p, shoreline.Previous),
		navigate[shoreline.SelectNextMediaFeature](p, shoreline.Next),
		navigate[shoreline.SelectLastMediaFeature](p, shoreline.Last),
		on(ShorelineStartLoading,
			func(a host.LayerLoading, s store.State) bool { return a.LayerID == "" && isEnabled(s) },
			func(context.Context, host.LayerLoading, store.State) ([]action.Action, error) {
				return actions(shoreline.SetLoading{Loading: true})
			}),
		on(ShorelineStopLoading,
			func(a host.LayerLoad, s store.State) bool { return a.LayerID == "" && isEnabled(s) },
			func(context.Context, host.LayerLoad, store.State) ([]action.Action, error) {
				return actions(shoreline.SetLoading{Loading: false})
			}),
	}
}

// layout keeps the map clear of the viewer panel on the right.
func (p shorelinePipelines) layout(_ context.Context, a action.Action, s store.State) ([]action.Action, error) {
	layout := s.Host.Layout
	var mapRect host.Rect
	if l, ok := a.(host.UpdateMapLayout); ok {
		mapRect = l.Layout.BoundingMapRect
	}
	layout.Right = p.cfg.Layout.RightMD
	mapRect.Right = p.cfg.Layout.RightMD
	layout.BoundingMapRect = mapRect
	return actions(host.UpdateMapLayout{Layout: layout, Source: host.LayoutSourcePanel})
}

func (p shorelinePipelines) open(context.Context, host.SetControlProperty, store.State) ([]action.Action, error) {
	out := []action.Action{
		host.PurgeMapInfoResults{},
		host.HideMapInfoMarker{},
		host.ToggleMapInfoState{},
		host.RegisterEventListener{EventName: "click", Toc: shoreline.ControlName},
	}

	features := make([]maplayer.Feature, 0, len(p.cfg.Regions))
	for _, r := range p.cfg.Regions {
		style := maplayer.RegionExtentStyle
		features = append(features, maplayer.NewFeature(r.Extent.Polygon(), &style))
	}
	out = append(out, host.UpdateAdditionalLayer{
		ID:         shoreline.ExtentsLayerID,
		Owner:      shoreline.Owner,
		ActionType: overlayAction,
		Options: maplayer.Overlay{
			ID:       shoreline.ExtentsLayerID,
			Name:     shoreline.ExtentsLayerID,
			Type:     maplayer.TypeVector,
			Features: features,
		},
	})

	if bbox, ok := geo.ExtractRegionsBbox(p.cfg.Regions); ok {
		out = append(out, host.ZoomToExtent{Extent: bbox, CRS: geo.EPSG4326})
	} else {
		p.cfg.Logger.Debug("no shoreline regions configured", "pipeline", ShorelineOpen)
	}
	return out, nil
}

func (p shorelinePipelines) close(context.Context, host.SetControlProperty, store.State) ([]action.Action, error) {
	return actions(
		host.RemoveAdditionalLayer{Owner: shoreline.Owner},
		shoreline.SetRegion{},
		shoreline.UpdateSelectedMediaType{},
		shoreline.SelectFeature(nil, ""),
		shoreline.LoadMediaDatasetFeatures{},
		shoreline.FeatureInfoClick{},
		shoreline.SetLoading{Loading: false},
		host.ToggleMapInfoState{},
		host.UnRegisterEventListener{EventName: "click", Toc: shoreline.ControlName},
	)
}

// region shows the classification layer of the selected region and zooms to it.
func (p shorelinePipelines) region(_ context.Context, a shoreline.SetRegion, s store.State) ([]action.Action, error) {
	r := a.SelectedRegion
	return actions(
		shoreline.SelectFeature(nil, ""),
		shoreline.UpdateSelectedMediaType{},
		host.RemoveAdditionalLayer{ID: shoreline.SelectedFeatureLayerID},
		host.RemoveAdditionalLayer{ID: shoreline.ClassificationLayerID},
		host.UpdateAdditionalLayer{
			ID:         shoreline.ClassificationLayerID,
			Owner:      shoreline.Owner,
			ActionType: overlayAction,
			Options: maplayer.Overlay{
				Type:   maplayer.TypeWMS,
				URL:    endpoint(s.Host.Settings.GeoServerURL, "wms"),
				Name:   r.ShorelineClassificationDataset,
				Format: wmsFormat,
				Params: tokenParams(s),
			},
		},
		host.ZoomToExtent{Extent: r.Extent, CRS: geo.EPSG4326},
	)
}

// mapClick turns a map click into a feature info click on the viewer layers.
func (p shorelinePipelines) mapClick(_ context.Context, a host.ClickOnMap, s store.State) ([]action.Action, error) {
	var layers []string
	for _, l := range s.Host.AdditionalLayers {
		if l.ID == shoreline.ClassificationLayerID || l.ID == shoreline.MediaLayerID {
			layers = append(layers, l.Options.Name)
		}
	}
	point, err := a.Point.WithGeometricFilter(s.Host.Map.Projection)
	if err != nil {
		p.cfg.Logger.Debug("click not reprojected", "pipeline", ShorelineMapClick, "err", err)
		return nil, nil
	}
	return actions(shoreline.FeatureInfoClick{Point: &point, Layers: layers})
}

// featureInfo selects the first feature under the click.
func (p shorelinePipelines) featureInfo(ctx context.Context, a shoreline.FeatureInfoClick, s store.State) ([]action.Action, error) {
	layer, ok := s.Host.AdditionalLayerByName(a.Layers[0])
	if !ok || layer.Options.URL == "" {
		p.cfg.Logger.Debug("no url for queried layer", "pipeline", ShorelineFeatureInfo, "layer", a.Layers[0])
		return nil, nil
	}
	view := s.Host.Map.Present
	fc, err := p.cfg.Fetcher.GetFeatureInfo(ctx, layer.Options.URL, ows.FeatureInfoRequest{
		Layers:      a.Layers,
		AccessToken: s.Host.Security.AccessToken,
		BBox:        view.BBox.Bounds.Extent(),
		SRS:         view.BBox.CRS,
		X:           int(a.Point.Pixel.X),
		Y:           int(a.Point.Pixel.Y),
		Width:       view.Size.Width,
		Height:      view.Size.Height,
	})
	if err != nil {
		return nil, err
	}
	f, ok := ows.First(fc)
	if !ok {
		return actions(shoreline.SelectFeature(nil, ""))
	}
	return actions(shoreline.SelectFeature(f, s.Host.Map.Projection))
}

// selectedOverlay draws the selected feature and zooms onto it.
func (p shorelinePipelines) selectedOverlay(_ context.Context, a shoreline.SelectedFeature, _ store.State) ([]action.Action, error) {
	from := a.SelectedFeatureProjection
	var (
		geometry orb.Geometry
		style    maplayer.Style
		extent   geo.Extent
		maxZoom  int
	)
	switch g := a.SelectedFeature.Geometry.(type) {
	case orb.MultiLineString:
		if len(g) == 0 || len(g[0]) == 0 {
			p.cfg.Logger.Debug("empty line selected", "pipeline", ShorelineSelectedOverlay)
			return nil, nil
		}
		points, err := geo.ReprojectAll(g[0], from, geo.EPSG4326)
		if err != nil {
			p.cfg.Logger.Debug("selected feature not reprojected", "pipeline", ShorelineSelectedOverlay, "err", err)
			return nil, nil
		}
		line := make(orb.LineString, len(points))
		for i, xy := range points {
			line[i] = xy.Point()
		}
		extent, _ = geo.ExtractBboxFromGeometry(points)
		geometry = orb.MultiLineString{line}
		style = maplayer.ShorelineLineStyle
	case orb.Point:
		xy, err := geo.Reproject(g, from, geo.EPSG4326)
		if err != nil {
			p.cfg.Logger.Debug("selected feature not reprojected", "pipeline", ShorelineSelectedOverlay, "err", err)
			return nil, nil
		}
		extent = geo.Extent{xy.X, xy.Y, xy.X, xy.Y}
		geometry = xy.Point()
		style = maplayer.ShorelinePointStyle
		maxZoom = shoreline.SelectedPointZoom
	default:
		p.cfg.Logger.Debug("unsupported selected geometry", "pipeline", ShorelineSelectedOverlay,
			"type", geometryType(a.SelectedFeature.Geometry))
		return nil, nil
	}

	return actions(
		host.UpdateAdditionalLayer{
			ID:         shoreline.SelectedFeatureLayerID,
			Owner:      shoreline.Owner,
			ActionType: overlayAction,
			Options: maplayer.Overlay{
				ID:       shoreline.SelectedFeatureLayerID,
				Name:     shoreline.SelectedFeatureLayerID,
				Type:     maplayer.TypeVector,
				Features: []maplayer.Feature{maplayer.NewFeature(geometry, &style)},
			},
		},
		host.ZoomToExtent{Extent: extent, CRS: geo.EPSG4326, MaxZoom: maxZoom},
	)
}

// mediaLayer shows the photo or video track layer of the selected region.
func (p shorelinePipelines) mediaLayer(_ context.Context, a shoreline.UpdateSelectedMediaType, s store.State) ([]action.Action, error) {
	out := []action.Action{
		host.RemoveAdditionalLayer{ID: shoreline.SelectedFeatureLayerID},
		shoreline.SelectFeature(nil, ""),
	}
	region := s.Shoreline.SelectedRegion
	if !region.Supports(*a.SelectedMediaType) {
		p.cfg.Logger.Debug("region has no media layer", "pipeline", ShorelineMediaLayer,
			"region", region.ID, "media", a.SelectedMediaType.Name)
		return out, nil
	}
	name := region.MediaLayerName(*a.SelectedMediaType)
	return append(out, host.UpdateAdditionalLayer{
		ID:         shoreline.MediaLayerID,
		Owner:      shoreline.Owner,
		ActionType: overlayAction,
		Options: maplayer.Overlay{
			LayerID: shoreline.SelectedFeatureLayerID,
			Type:    maplayer.TypeWMS,
			URL:     endpoint(s.Host.Settings.GeoServerURL, "wms"),
			Name:    name,
			Format:  wmsFormat,
			Params:  tokenParams(s),
		},
	}), nil
}

// mediaDataset loads the photo features, sorted by name, for navigation.
func (p shorelinePipelines) mediaDataset(ctx context.Context, _ host.UpdateAdditionalLayer, s store.State) ([]action.Action, error) {
	layer, ok := s.Host.AdditionalLayer(shoreline.MediaLayerID)
	wfs := endpoint(s.Host.Settings.GeoServerURL, "wfs")
	if !ok || layer.Options.Name == "" || wfs == "" {
		p.cfg.Logger.Debug("no media layer to load", "pipeline", ShorelineMediaDataset)
		return nil, nil
	}
	fc, err := p.cfg.Fetcher.GetFeature(ctx, wfs, ows.FeatureRequest{
		TypeName:    layer.Options.Name,
		SortBy:      "name",
		AccessToken: s.Host.Security.AccessToken,
	})
	if err != nil {
		return nil, err
	}
	return actions(shoreline.LoadMediaDatasetFeatures{SelectedMediaDatasetFeatures: fc})
}

// navigate selects the media feature reached by step from the action's feature.
func navigate[T action.Action](p shorelinePipelines, step shoreline.Step) epic.Epic {
	name := ShorelineNavigate + step.String()
	return on(name, nil,
		func(_ context.Context, a T, s store.State) ([]action.Action, error) {
			f, ok := shoreline.Navigate(s.Shoreline.SelectedMediaDatasetFeatures, mediaFeature(a), step)
			if !ok {
				p.cfg.Logger.Debug("media navigation unavailable", "pipeline", name)
				return nil, nil
			}
			return actions(shoreline.SelectFeature(f, shoreline.NavigationProjection))
		})
}

func mediaFeature(a action.Action) *geojson.Feature {
	switch a := a.(type) {
	case shoreline.SelectFirstMediaFeature:
		return a.SelectedFeature
	case shoreline.SelectPreviousMediaFeature:
		return a.SelectedFeature
	case shoreline.SelectNextMediaFeature:
		return a.SelectedFeature
	case shoreline.SelectLastMediaFeature:
		return a.SelectedFeature
	}
	return nil
}

func geometryType(g orb.Geometry) string {
	if g == nil {
		return "none"
	}
	return g.GeoJSONType()
}
