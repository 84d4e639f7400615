package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-viewer/internal/geo"
	"github.com/joeblew999/plat-viewer/internal/pipelines"
	"github.com/joeblew999/plat-viewer/internal/shoreline"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "viewer.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, DefaultGeoServerURL, cfg.GeoServerURL)
	assert.Equal(t, DefaultLocale, cfg.Locale)
	assert.Equal(t, geo.EPSG3857, cfg.Projection)
	assert.Equal(t, DefaultFetchTimeout, cfg.FetchTimeout)
	assert.Equal(t, pipelines.DefaultLayout(), cfg.Layout)
	assert.Equal(t, pipelines.DefaultZoneLayerPattern, cfg.ZoneLayerPattern)
	assert.Equal(t, shoreline.DefaultMediaTypes(), cfg.MediaTypes)
	assert.Empty(t, cfg.Regions)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
geoserver_url = "https://maps.example.org/geoserver/"
locale = "fr-CA"
fetch_timeout = "10s"
zone_layer_pattern = "zoning"

[layout]
right_md = 700.0

[[regions]]
id = "north"
label_id = "shorelineviewer.regions.north"
extent = [-70.5, 45.0, -60.0, 50.25]
classification_dataset = "geonode:north_classification"
photo_dataset = "geonode:north_photos"
video_layer_name = "geonode:north_videos"

[[regions]]
id = "south"
extent = [-75.0, 40.0, -70.0, 45.0]
classification_dataset = "geonode:south_classification"

[[layers]]
name = "geonode:neec_geodb_zones"
title = "Zones"
type = "wms"
default_visible = true
resource_pk = "42"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://maps.example.org/geoserver/", cfg.GeoServerURL)
	assert.Equal(t, "fr-CA", cfg.Locale)
	assert.Equal(t, geo.EPSG3857, cfg.Projection)
	assert.Equal(t, 10*time.Second, cfg.FetchTimeout)
	assert.Equal(t, "zoning", cfg.ZoneLayerPattern)

	want := pipelines.DefaultLayout()
	want.RightMD = 700
	assert.Equal(t, want, cfg.Layout)

	require.Len(t, cfg.Regions, 2)
	north := cfg.Regions[0]
	assert.Equal(t, "north", north.ID)
	assert.Equal(t, geo.Extent{-70.5, 45, -60, 50.25}, north.Extent)
	assert.Equal(t, "geonode:north_photos", north.PhotoDataset)
	assert.Equal(t, "geonode:north_videos", north.VideoLayerName)
	assert.Empty(t, cfg.Regions[1].PhotoDataset)

	require.Len(t, cfg.Layers, 1)
	assert.Equal(t, "Zones", cfg.Layers[0].Title)
	assert.True(t, cfg.Layers[0].Visible())
	assert.Equal(t, "42", cfg.Layers[0].ResourcePK)

	assert.Equal(t, shoreline.DefaultMediaTypes(), cfg.MediaTypes)

	p := cfg.Pipelines()
	assert.Equal(t, cfg.Regions, p.Regions)
	assert.Equal(t, "zoning", p.ZoneLayerPattern)
	assert.Nil(t, p.Fetcher)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad toml", `locale = `},
		{"relative geoserver url", `geoserver_url = "geoserver/"`},
		{"unsupported projection", `projection = "EPSG:2154"`},
		{"zero timeout", `fetch_timeout = "0s"`},
		{"region without id", "[[regions]]\nextent = [0.0, 0.0, 1.0, 1.0]"},
		{"duplicate region", "[[regions]]\nid = \"a\"\n[[regions]]\nid = \"a\""},
		{"inverted extent", "[[regions]]\nid = \"a\"\nextent = [10.0, 0.0, 1.0, 1.0]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
