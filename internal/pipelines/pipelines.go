// Package pipelines wires the Shoreline Viewer and Zone Identify reactions
// onto the epic engine.
package pipelines

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/joeblew999/plat-viewer/internal/action"
	"github.com/joeblew999/plat-viewer/internal/epic"
	"github.com/joeblew999/plat-viewer/internal/host"
	"github.com/joeblew999/plat-viewer/internal/ows"
	"github.com/joeblew999/plat-viewer/internal/shoreline"
	"github.com/joeblew999/plat-viewer/internal/store"
)

// DefaultZoneLayerPattern selects the layers Zone Identify queries when
// every visible layer is selected.
const DefaultZoneLayerPattern = "neec_geodb"

// overlayAction is the action type recorded on viewer overlays.
const overlayAction = "overlay"

// wmsFormat is the image format of the viewer WMS overlays.
const wmsFormat = "image/png8"

// LayoutConfig holds the panel sizes, in pixels, used to shift the map.
type LayoutConfig struct {
	LeftSM   float64 `koanf:"left_sm"`
	LeftMD   float64 `koanf:"left_md"`
	LeftLG   float64 `koanf:"left_lg"`
	RightMD  float64 `koanf:"right_md"`
	BottomSM float64 `koanf:"bottom_sm"`
}

// DefaultLayout matches the host map layout defaults.
func DefaultLayout() LayoutConfig {
	return LayoutConfig{LeftSM: 300, LeftMD: 500, LeftLG: 600, RightMD: 658, BottomSM: 30}
}

// Config holds what the pipelines need besides the session state.
type Config struct {
	Regions          []shoreline.Region
	Layout           LayoutConfig
	ZoneLayerPattern string
	Fetcher          ows.Fetcher
	// NewID generates overlay and layer ids. Defaults to random UUIDs.
	NewID  func() string
	Logger *slog.Logger
}

func (c Config) withDefaults() Config {
	if c.Layout == (LayoutConfig{}) {
		c.Layout = DefaultLayout()
	}
	if c.ZoneLayerPattern == "" {
		c.ZoneLayerPattern = DefaultZoneLayerPattern
	}
	if c.NewID == nil {
		c.NewID = uuid.NewString
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// All returns every pipeline of a session.
func All(cfg Config) []epic.Epic {
	cfg = cfg.withDefaults()
	return append(Shoreline(cfg), ZoneIdentify(cfg)...)
}

// endpoint appends an OGC service path to the GeoServer base URL.
func endpoint(base, service string) string {
	if base == "" {
		return ""
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return base + service
}

func tokenParams(s store.State) map[string]string {
	if s.Host.Security.AccessToken == "" {
		return nil
	}
	return map[string]string{"access_token": s.Host.Security.AccessToken}
}

func enabled(control string) func(store.State) bool {
	return func(s store.State) bool { return s.Host.ControlEnabled(control) }
}

// notFromPanel skips layouts a viewer already adjusted.
func notFromPanel(a host.UpdateMapLayout) bool {
	return a.Source != host.LayoutSourcePanel
}

// on builds a pipeline reacting to the tag of T.
func on[T action.Action](name string, filter func(T, store.State) bool, run func(context.Context, T, store.State) ([]action.Action, error)) epic.Epic {
	var zero T
	e := epic.Epic{
		Name:  name,
		Types: []string{zero.Type()},
		Run: func(ctx context.Context, a action.Action, s store.State) ([]action.Action, error) {
			return run(ctx, a.(T), s)
		},
	}
	if filter != nil {
		e.Filter = func(a action.Action, s store.State) bool {
			t, ok := a.(T)
			return ok && filter(t, s)
		}
	}
	return e
}

// async marks e as a switch-latest pipeline.
func async(e epic.Epic, fallback ...action.Action) epic.Epic {
	e.Async = true
	e.Recover = fallback
	return e
}

func actions(a ...action.Action) ([]action.Action, error) { return a, nil }
