// Package config loads the viewer configuration file.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/joeblew999/plat-viewer/internal/geo"
	"github.com/joeblew999/plat-viewer/internal/pipelines"
	"github.com/joeblew999/plat-viewer/internal/service"
	"github.com/joeblew999/plat-viewer/internal/shoreline"
)

// Defaults applied when the file leaves a key out.
const (
	DefaultGeoServerURL = "http://localhost:8080/geoserver/"
	DefaultLocale       = "en-US"
	DefaultProjection   = geo.EPSG3857
	DefaultFetchTimeout = 30 * time.Second
)

type Config struct {
	GeoServerURL string        `koanf:"geoserver_url"`
	Locale       string        `koanf:"locale"`
	Projection   string        `koanf:"projection"`
	FetchTimeout time.Duration `koanf:"fetch_timeout"` // e.g. "10s"

	Layout           pipelines.LayoutConfig `koanf:"layout"`
	ZoneLayerPattern string                 `koanf:"zone_layer_pattern"` // substring of the layers Zone Identify queries

	Regions    []shoreline.Region    `koanf:"regions"`
	MediaTypes []shoreline.MediaType `koanf:"media_types"`

	// Layers seed the layer catalog when it is empty.
	Layers []service.LayerConfig `koanf:"layers"`
}

// Default returns the configuration used without a file.
func Default() *Config {
	cfg := base()
	cfg.applySliceDefaults()
	return cfg
}

func base() *Config {
	return &Config{
		GeoServerURL:     DefaultGeoServerURL,
		Locale:           DefaultLocale,
		Projection:       DefaultProjection,
		FetchTimeout:     DefaultFetchTimeout,
		Layout:           pipelines.DefaultLayout(),
		ZoneLayerPattern: pipelines.DefaultZoneLayerPattern,
	}
}

// Load reads the TOML file at path over the defaults. An empty path returns
// the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file: %w", err)
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}

	cfg := base()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	cfg.applySliceDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// slices are decoded in place, so their defaults go in after unmarshalling
func (c *Config) applySliceDefaults() {
	if len(c.MediaTypes) == 0 {
		c.MediaTypes = shoreline.DefaultMediaTypes()
	}
}

// Validate checks the values a session cannot run without.
func (c *Config) Validate() error {
	if c.GeoServerURL != "" {
		u, err := url.Parse(c.GeoServerURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("geoserver_url %q is not an absolute URL", c.GeoServerURL)
		}
	}
	if _, err := geo.Projection(c.Projection, geo.EPSG4326); err != nil {
		return fmt.Errorf("projection: %w", err)
	}
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("fetch_timeout must be positive, got %s", c.FetchTimeout)
	}

	seen := make(map[string]bool, len(c.Regions))
	for i, r := range c.Regions {
		if strings.TrimSpace(r.ID) == "" {
			return fmt.Errorf("regions[%d]: missing id", i)
		}
		if seen[r.ID] {
			return fmt.Errorf("regions[%d]: duplicate id %q", i, r.ID)
		}
		seen[r.ID] = true
		if r.Extent[0] > r.Extent[2] || r.Extent[1] > r.Extent[3] {
			return fmt.Errorf("region %q: extent %s is inverted", r.ID, r.Extent)
		}
	}
	return nil
}

// Pipelines returns the pipeline settings of the file. Fetcher, ids and
// logger are left to the caller.
func (c *Config) Pipelines() pipelines.Config {
	return pipelines.Config{
		Regions:          c.Regions,
		Layout:           c.Layout,
		ZoneLayerPattern: c.ZoneLayerPattern,
	}
}
