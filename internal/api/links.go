package api

import (
	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-viewer/internal/humastar"
)

// links maps operation paths to their RFC 8288 Link header values.
// Enables restish hypermedia navigation via `restish links <url>`.
var links = map[string][]string{
	"/health": {
		`</api/v1/info>; rel="info"`,
		`</api/v1/sessions>; rel="sessions"`,
		`</api/v1/layers>; rel="layers"`,
		`</api/v1/regions>; rel="regions"`,
		`</openapi.json>; rel="service-desc"`,
		`</docs>; rel="service-doc"`,
	},
	"/api/v1/info": {
		`</health>; rel="health"`,
		`</api/v1/actions>; rel="actions"`,
		`</metrics>; rel="metrics"`,
	},
	"/api/v1/sessions": {
		`</api/v1/layers>; rel="layers"`,
		`</api/v1/regions>; rel="regions"`,
		`</api/v1/actions>; rel="actions"`,
	},
	"/api/v1/sessions/{id}": {
		`</api/v1/sessions>; rel="collection"`,
	},
	"/api/v1/sessions/{id}/journal": {
		`</api/v1/journal>; rel="collection"`,
	},
	"/api/v1/journal": {
		`</api/v1/sessions>; rel="sessions"`,
	},
	"/api/v1/layers": {
		`</api/v1/catalog/events>; rel="events"`,
		`</api/v1/sessions>; rel="sessions"`,
		`</api/v1/regions>; rel="regions"`,
	},
	"/api/v1/layers/{id}": {
		`</api/v1/layers>; rel="collection"`,
	},
	"/api/v1/regions": {
		`</api/v1/layers>; rel="layers"`,
	},
}

// LinkTransformer returns a Huma Transformer that injects RFC 8288 Link headers.
func LinkTransformer() huma.Transformer {
	return humastar.LinkTransformer(links)
}
