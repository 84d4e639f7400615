// Package service contains the persistent map-layer catalog that seeds every
// viewer session.
package service

import "github.com/joeblew999/plat-viewer/internal/maplayer"

// LayerConfig is a catalog entry of the persistent layer list.
// Huma reads the tags for OpenAPI and request validation, koanf for the
// layers seeded from the viewer configuration file.
type LayerConfig struct {
	ID             string `json:"id,omitempty" koanf:"id" doc:"Unique layer identifier" example:"neec_geodb_zones"`
	Name           string `json:"name" koanf:"name" required:"true" minLength:"1" maxLength:"200" doc:"Service layer name" example:"geonode:neec_geodb_zones"`
	Title          string `json:"title,omitempty" koanf:"title" maxLength:"200" doc:"Display title" example:"Zones"`
	Type           string `json:"type,omitempty" koanf:"type" required:"false" enum:"wms,vector" default:"wms" doc:"Layer type" example:"wms"`
	URL            string `json:"url,omitempty" koanf:"url" doc:"Service URL, empty for the default GeoServer" example:"https://geoserver.example.org/geoserver/wms"`
	Group          string `json:"group,omitempty" koanf:"group" doc:"Layer group, background layers are never queried" example:"Zoning"`
	DefaultVisible *bool  `json:"defaultVisible,omitempty" koanf:"default_visible" required:"false" default:"true" doc:"Whether the layer starts visible"`
	ResourcePK     string `json:"resourcePk,omitempty" koanf:"resource_pk" doc:"Catalog resource key, enables the layer detail viewer" example:"42"`
	Order          int    `json:"order,omitempty" koanf:"order" minimum:"0" doc:"Position in the layer list, lowest first"`
}

// MapLayer converts c to the layer form seeded into a session.
func (c LayerConfig) MapLayer() maplayer.Layer {
	l := maplayer.Layer{
		ID:         c.ID,
		Name:       c.Name,
		Title:      c.Title,
		Type:       c.Type,
		URL:        c.URL,
		Group:      c.Group,
		Visibility: c.Visible(),
	}
	if l.Type == "" {
		l.Type = maplayer.TypeWMS
	}
	if c.ResourcePK != "" {
		l.ExtendedParams = map[string]any{"pk": c.ResourcePK}
	}
	return l
}

// Visible reports whether the layer starts visible. Unset means visible.
func (c LayerConfig) Visible() bool {
	return c.DefaultVisible == nil || *c.DefaultVisible
}
