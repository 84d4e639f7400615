package pipelines

import (
	"context"
	"slices"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/plat-viewer/internal/action"
	"github.com/joeblew999/plat-viewer/internal/epic"
	"github.com/joeblew999/plat-viewer/internal/geo"
	"github.com/joeblew999/plat-viewer/internal/host"
	"github.com/joeblew999/plat-viewer/internal/maplayer"
	"github.com/joeblew999/plat-viewer/internal/ows"
	"github.com/joeblew999/plat-viewer/internal/store"
	"github.com/joeblew999/plat-viewer/internal/zoneidentify"
)

// Zone Identify pipeline names.
const (
	ZoneLayout       = "zoneidentify/layout"
	ZoneOpen         = "zoneidentify/open"
	ZoneClose        = "zoneidentify/close"
	ZoneStartLoading = "zoneidentify/start-loading"
	ZoneQuery        = "zoneidentify/query"
	ZoneClean        = "zoneidentify/clean"
	ZoneTree         = "zoneidentify/tree"
	ZoneHighlight    = "zoneidentify/highlight"
	ZoneZoom         = "zoneidentify/zoom"
	ZoneAddExtent    = "zoneidentify/add-extent"
	ZoneStopLoading  = "zoneidentify/stop-loading"
)

type zonePipelines struct {
	cfg Config
}

// ZoneIdentify returns the Zone Identify pipelines.
func ZoneIdentify(cfg Config) []epic.Epic {
	p := zonePipelines{cfg: cfg.withDefaults()}
	isEnabled := enabled(zoneidentify.ControlName)
	drawn := func(status string) func(host.ChangeDrawingStatus, store.State) bool {
		return func(a host.ChangeDrawingStatus, _ store.State) bool {
			return a.Owner == zoneidentify.DrawOwner && a.Status == status
		}
	}

	return []epic.Epic{
		on(ZoneLayout,
			func(a host.UpdateMapLayout, s store.State) bool { return notFromPanel(a) && isEnabled(s) },
			p.layout),
		on(ZoneOpen,
			func(a host.SetControlProperty, s store.State) bool {
				return a.Control == zoneidentify.ControlName && isEnabled(s)
			},
			p.open),
		on(ZoneClose,
			func(a host.SetControlProperty, _ store.State) bool { return a.Disables(zoneidentify.ControlName) },
			p.close),
		// registered before the query so the spinner starts first
		on(ZoneStartLoading, drawn(host.DrawStatusStop),
			func(context.Context, host.ChangeDrawingStatus, store.State) ([]action.Action, error) {
				return actions(zoneidentify.SetLoading{Loading: true})
			}),
		async(on(ZoneQuery, drawn(host.DrawStatusStop), p.query),
			zoneidentify.SelectFeatures{SelectedFeatures: []*geojson.Feature{}}),
		on(ZoneClean, drawn(host.DrawStatusClean), p.clean),
		{
			Name: ZoneTree,
			Types: []string{
				zoneidentify.SelectFeaturesType,
				host.AddLayerType,
				host.RemoveLayerType,
				host.ChangeLayerPropertiesType,
				host.ChangeLocaleType,
			},
			Filter: func(a action.Action, s store.State) bool {
				if sf, ok := a.(zoneidentify.SelectFeatures); ok {
					return sf.SelectedFeatures != nil
				}
				return s.ZoneIdentify.SelectedFeatures != nil
			},
			Run: p.tree,
		},
		on(ZoneHighlight,
			func(a zoneidentify.HighlightSelectedFeature, _ store.State) bool { return a.SelectedFeature != nil },
			p.highlight),
		on(ZoneZoom,
			func(a zoneidentify.ZoomToSelectedFeature, _ store.State) bool { return a.SelectedFeature != nil },
			p.zoom),
		on(ZoneAddExtent,
			func(a zoneidentify.AddLayerToMap, _ store.State) bool { return a.Layer != nil },
			p.addExtent),
		on(ZoneStopLoading,
			func(_ zoneidentify.FormatSelection, s store.State) bool { return isEnabled(s) },
			func(context.Context, zoneidentify.FormatSelection, store.State) ([]action.Action, error) {
				return actions(zoneidentify.SetLoading{Loading: false})
			}),
	}
}

// layout keeps the map clear of the result panel, and of the drawer when open.
func (p zonePipelines) layout(_ context.Context, a host.UpdateMapLayout, s store.State) ([]action.Action, error) {
	layout := a.Layout
	layout.Right = p.cfg.Layout.RightMD
	layout.BoundingMapRect.Right = p.cfg.Layout.RightMD
	if s.Host.ControlEnabled(zoneidentify.DrawerControl) {
		layout.Left = p.cfg.Layout.LeftSM
		layout.BoundingMapRect.Left = p.cfg.Layout.LeftSM
	}
	layout.BoundingSidebarRect = mergeRect(s.Host.Layout.BoundingSidebarRect, a.Layout.BoundingSidebarRect)
	return actions(host.UpdateMapLayout{Layout: layout, Source: host.LayoutSourcePanel})
}

// mergeRect overrides the sides of base that over sets.
func mergeRect(base, over host.Rect) host.Rect {
	if over.Left != 0 {
		base.Left = over.Left
	}
	if over.Right != 0 {
		base.Right = over.Right
	}
	if over.Top != 0 {
		base.Top = over.Top
	}
	if over.Bottom != 0 {
		base.Bottom = over.Bottom
	}
	return base
}

func (p zonePipelines) open(context.Context, host.SetControlProperty, store.State) ([]action.Action, error) {
	return actions(
		host.PurgeMapInfoResults{},
		host.HideMapInfoMarker{},
		host.ToggleMapInfoState{},
		zoneidentify.SelectFeatures{},
		zoneidentify.SelectLayer{SelectedLayer: zoneidentify.AllVisible()},
		zoneidentify.FormatSelection{},
	)
}

func (p zonePipelines) close(context.Context, host.SetControlProperty, store.State) ([]action.Action, error) {
	return actions(
		host.ToggleMapInfoState{},
		zoneidentify.SelectFeatures{},
		zoneidentify.SelectLayer{},
		zoneidentify.FormatSelection{},
		zoneidentify.HighlightSelectedFeature{},
		zoneidentify.SetLoading{Loading: false},
		host.RemoveAdditionalLayer{Owner: zoneidentify.Owner},
		host.ChangeDrawingStatus{
			Status:   host.DrawStatusClean,
			Owner:    zoneidentify.DrawOwner,
			Features: []host.DrawnFeature{},
			Options:  map[string]any{},
		},
	)
}

// QueryLayers resolves the layers a zone query targets: every visible
// queryable layer following the naming pattern and not in error, or the
// explicitly chosen ones.
func QueryLayers(sel *zoneidentify.LayerSelection, layers []maplayer.Layer, pattern string) []string {
	if sel == nil {
		return nil
	}
	if !sel.Visible {
		return slices.Clone(sel.Names)
	}
	var names []string
	for _, l := range layers {
		if l.IsQueryableWMS() && strings.Contains(l.Name, pattern) && l.LoadingError != maplayer.LoadingErrorFailed {
			names = append(names, l.Name)
		}
	}
	return names
}

// query runs the WFS GetFeature request for the drawn zone.
func (p zonePipelines) query(ctx context.Context, a host.ChangeDrawingStatus, s store.State) ([]action.Action, error) {
	none := zoneidentify.SelectFeatures{SelectedFeatures: []*geojson.Feature{}}
	layers := QueryLayers(s.ZoneIdentify.SelectedLayer, s.Host.Layers, p.cfg.ZoneLayerPattern)
	wfs := endpoint(s.Host.Settings.GeoServerURL, "wfs")
	switch {
	case len(a.Features) == 0:
		p.cfg.Logger.Debug("no drawn zone", "pipeline", ZoneQuery)
		return actions(none)
	case len(layers) == 0:
		p.cfg.Logger.Debug("no layer to query", "pipeline", ZoneQuery)
		return actions(none)
	case wfs == "":
		p.cfg.Logger.Debug("no geoserver configured", "pipeline", ZoneQuery)
		return actions(none)
	}

	fc, err := p.cfg.Fetcher.GetFeature(ctx, wfs, ows.FeatureRequest{
		TypeName:    strings.Join(layers, ","),
		BBox:        ows.BBoxParam(a.Features[0].Extent, s.Host.Map.Projection),
		AccessToken: s.Host.Security.AccessToken,
	})
	if err != nil {
		return nil, err
	}
	features := []*geojson.Feature{}
	if fc != nil {
		features = append(features, fc.Features...)
	}
	return actions(zoneidentify.SelectFeatures{SelectedFeatures: features})
}

func (p zonePipelines) clean(context.Context, host.ChangeDrawingStatus, store.State) ([]action.Action, error) {
	return actions(
		zoneidentify.SelectFeatures{},
		zoneidentify.FormatSelection{},
		host.RemoveAdditionalLayer{Owner: zoneidentify.Owner},
	)
}

// tree rebuilds the result tree from the stored selection.
func (p zonePipelines) tree(_ context.Context, _ action.Action, s store.State) ([]action.Action, error) {
	tree := zoneidentify.FormatFeatures(s.ZoneIdentify.SelectedFeatures, s.Host.Layers, s.Host.Locale)
	return actions(zoneidentify.FormatSelection{FormattedFeatures: tree})
}

func (p zonePipelines) highlight(_ context.Context, a zoneidentify.HighlightSelectedFeature, _ store.State) ([]action.Action, error) {
	style, ok := zoneidentify.StyleFor(a.SelectedFeature.Type)
	if !ok {
		p.cfg.Logger.Debug("unsupported highlight geometry", "pipeline", ZoneHighlight, "type", a.SelectedFeature.Type)
		return nil, nil
	}
	g, err := a.SelectedFeature.Geometry()
	if err != nil {
		p.cfg.Logger.Debug("highlight geometry not decoded", "pipeline", ZoneHighlight, "err", err)
		return nil, nil
	}
	return actions(host.UpdateAdditionalLayer{
		ID:         zoneidentify.HighlightLayerID,
		Owner:      zoneidentify.Owner,
		ActionType: overlayAction,
		Options: maplayer.Overlay{
			ID:       zoneidentify.HighlightLayerID,
			Name:     zoneidentify.HighlightLayerID,
			Type:     maplayer.TypeVector,
			Features: []maplayer.Feature{maplayer.NewFeature(g, &style)},
		},
	})
}

func (p zonePipelines) zoom(_ context.Context, a zoneidentify.ZoomToSelectedFeature, _ store.State) ([]action.Action, error) {
	g, err := a.SelectedFeature.Geometry()
	if err != nil {
		p.cfg.Logger.Debug("zoom geometry not decoded", "pipeline", ZoneZoom, "err", err)
		return nil, nil
	}
	return actions(host.ZoomToExtent{
		Extent:  geo.GeometryExtent(g),
		CRS:     geo.EPSG4326,
		MaxZoom: zoneidentify.HighlightZoom,
	})
}

// addExtent keeps the drawn zone as a persistent vector layer.
func (p zonePipelines) addExtent(_ context.Context, a zoneidentify.AddLayerToMap, s store.State) ([]action.Action, error) {
	g, err := a.Layer.Geometry()
	if err != nil {
		p.cfg.Logger.Debug("extent geometry not decoded", "pipeline", ZoneAddExtent, "err", err)
		return nil, nil
	}
	poly, ok := g.(orb.Polygon)
	if !ok || len(poly) == 0 {
		p.cfg.Logger.Debug("extent is not a polygon", "pipeline", ZoneAddExtent, "type", geometryType(g))
		return nil, nil
	}
	// only the outer ring is kept
	extent, err := geo.ReprojectGeometry(orb.Polygon{poly[0]}, s.Host.Map.Projection, geo.EPSG4326)
	if err != nil {
		p.cfg.Logger.Debug("extent not reprojected", "pipeline", ZoneAddExtent, "err", err)
		return nil, nil
	}

	feature := maplayer.NewFeature(extent, nil)
	feature.ID = p.cfg.NewID()
	feature.Properties["name"] = zoneidentify.ExtentLayerTitle
	return actions(host.AddLayer{Layer: maplayer.Layer{
		ID:         zoneidentify.ExtentLayerPrefix + p.cfg.NewID(),
		Title:      zoneidentify.ExtentLayerTitle,
		Type:       maplayer.TypeVector,
		Visibility: true,
		Features:   []maplayer.Feature{feature},
		Style:      maplayer.QueryExtentStyle(p.cfg.NewID()),
	}})
}
