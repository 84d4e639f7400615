// Package api defines the Huma API routes and handlers.
package api

import (
	"context"
	"errors"
	"path"
	"reflect"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-viewer/internal/action"
	"github.com/joeblew999/plat-viewer/internal/epic"
	"github.com/joeblew999/plat-viewer/internal/geo"
	"github.com/joeblew999/plat-viewer/internal/journal"
	"github.com/joeblew999/plat-viewer/internal/metric"
	"github.com/joeblew999/plat-viewer/internal/service"
	"github.com/joeblew999/plat-viewer/internal/session"
	"github.com/joeblew999/plat-viewer/internal/shoreline"
)

// DefaultWaitTimeout bounds a dispatch that waits for the pipelines.
const DefaultWaitTimeout = 30 * time.Second

// Services holds the service dependencies for API handlers.
type Services struct {
	Sessions   *session.Manager
	Layers     *service.LayerService
	Journal    *journal.Journal // nil disables the journal routes
	Regions    []shoreline.Region
	MediaTypes []shoreline.MediaType
	Metrics    *metric.Metrics

	WaitTimeout time.Duration
}

// Types

type LayerIDInput struct {
	ID string `path:"id" doc:"Layer ID" example:"neec_geodb_zones"`
}

type LayerOutput struct {
	Body service.LayerConfig
}

type LayersOutput struct {
	Body []service.LayerConfig
}

type MessageBody struct {
	Message string `json:"message" doc:"Result message"`
}

type HealthBody struct {
	Status  string `json:"status" doc:"Health status" example:"ok"`
	Version string `json:"version" doc:"API version" example:"1.0.0"`
}

type RegionsBody struct {
	Regions    []shoreline.Region    `json:"regions" doc:"Configured shoreline regions"`
	MediaTypes []shoreline.MediaType `json:"mediaTypes" doc:"Selectable media types"`
	BBox       *geo.Extent           `json:"bbox,omitempty" doc:"Union extent of the regions, EPSG:4326"`
}

// APIHandler holds the REST API handlers.
type APIHandler struct {
	svc *Services
}

func NewAPIHandler(svc *Services) *APIHandler {
	if svc.WaitTimeout <= 0 {
		svc.WaitTimeout = DefaultWaitTimeout
	}
	return &APIHandler{svc: svc}
}

// NewConfig returns the Huma configuration of the viewer API: Link headers on
// every operation and schema names qualified by their package, since several
// packages export a State.
func NewConfig(title, version string) huma.Config {
	cfg := huma.DefaultConfig(title, version)
	cfg.Components.Schemas = huma.NewMapRegistry("#/components/schemas/", schemaNamer)
	// Disable $schema property in responses (cleaner JSON)
	cfg.CreateHooks = []func(huma.Config) huma.Config{}
	cfg.Transformers = append(cfg.Transformers, LinkTransformer())
	return cfg
}

func schemaNamer(t reflect.Type, hint string) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	name := huma.DefaultSchemaNamer(t, hint)
	if t.Name() == "" || t.PkgPath() == "" {
		return name
	}
	pkg := path.Base(t.PkgPath())
	return strings.ToUpper(pkg[:1]) + pkg[1:] + name
}

// RegisterRoutes registers every API route.
func RegisterRoutes(api huma.API, svc *Services) {
	h := NewAPIHandler(svc)
	h.RegisterHealth(api)
	h.RegisterLayers(api)
	h.RegisterRegions(api)
	h.RegisterSessions(api)
	h.RegisterEvents(api)
	h.RegisterJournal(api)
}

// RegisterHealth registers health check routes.
func (h *APIHandler) RegisterHealth(api huma.API) {
	huma.Get(api, "/health", h.GetHealth, huma.OperationTags("health"))
}

// RegisterLayers registers the layer catalog routes.
func (h *APIHandler) RegisterLayers(api huma.API) {
	huma.Get(api, "/api/v1/layers", h.GetLayers, huma.OperationTags("layers"))
	huma.Post(api, "/api/v1/layers", h.CreateLayer, huma.OperationTags("layers"), created)
	huma.Get(api, "/api/v1/layers/{id}", h.GetLayer, huma.OperationTags("layers"))
	huma.Put(api, "/api/v1/layers/{id}", h.PutLayer, huma.OperationTags("layers"))
	huma.Delete(api, "/api/v1/layers/{id}", h.DeleteLayer, huma.OperationTags("layers"))
}

// RegisterRegions registers the shoreline configuration route.
func (h *APIHandler) RegisterRegions(api huma.API) {
	huma.Get(api, "/api/v1/regions", h.GetRegions, huma.OperationTags("shoreline"))
}

func created(o *huma.Operation) { o.DefaultStatus = 201 }

// Handlers

func (h *APIHandler) GetHealth(ctx context.Context, input *struct{}) (*struct{ Body HealthBody }, error) {
	return &struct{ Body HealthBody }{Body: HealthBody{Status: "ok", Version: "1.0.0"}}, nil
}

func (h *APIHandler) GetLayers(ctx context.Context, input *struct{}) (*LayersOutput, error) {
	if h.svc.Layers == nil {
		return &LayersOutput{Body: []service.LayerConfig{}}, nil
	}
	return &LayersOutput{Body: h.svc.Layers.List()}, nil
}

func (h *APIHandler) CreateLayer(ctx context.Context, input *struct{ Body service.LayerConfig }) (*LayerOutput, error) {
	if h.svc.Layers == nil {
		return nil, huma.Error503ServiceUnavailable("layer catalog not available")
	}
	layer, err := h.svc.Layers.Create(input.Body)
	if err != nil {
		return nil, humaError(err)
	}
	return &LayerOutput{Body: layer}, nil
}

func (h *APIHandler) GetLayer(ctx context.Context, input *LayerIDInput) (*LayerOutput, error) {
	if h.svc.Layers == nil {
		return nil, huma.Error503ServiceUnavailable("layer catalog not available")
	}
	layer, err := h.svc.Layers.Get(input.ID)
	if err != nil {
		return nil, humaError(err)
	}
	return &LayerOutput{Body: layer}, nil
}

func (h *APIHandler) PutLayer(ctx context.Context, input *struct {
	LayerIDInput
	Body service.LayerConfig
}) (*LayerOutput, error) {
	if h.svc.Layers == nil {
		return nil, huma.Error503ServiceUnavailable("layer catalog not available")
	}
	layer, err := h.svc.Layers.Update(input.ID, input.Body)
	if err != nil {
		return nil, humaError(err)
	}
	return &LayerOutput{Body: layer}, nil
}

func (h *APIHandler) DeleteLayer(ctx context.Context, input *LayerIDInput) (*struct{ Body MessageBody }, error) {
	if h.svc.Layers == nil {
		return nil, huma.Error503ServiceUnavailable("layer catalog not available")
	}
	if err := h.svc.Layers.Delete(input.ID); err != nil {
		return nil, humaError(err)
	}
	return &struct{ Body MessageBody }{Body: MessageBody{Message: "Layer deleted"}}, nil
}

func (h *APIHandler) GetRegions(ctx context.Context, input *struct{}) (*struct{ Body RegionsBody }, error) {
	body := RegionsBody{
		Regions:    h.svc.Regions,
		MediaTypes: h.mediaTypes(),
	}
	if body.Regions == nil {
		body.Regions = []shoreline.Region{}
	}
	if bbox, ok := geo.ExtractRegionsBbox(body.Regions); ok {
		body.BBox = &bbox
	}
	return &struct{ Body RegionsBody }{Body: body}, nil
}

func (h *APIHandler) mediaTypes() []shoreline.MediaType {
	if len(h.svc.MediaTypes) == 0 {
		return shoreline.DefaultMediaTypes()
	}
	return h.svc.MediaTypes
}

// humaError maps domain errors to HTTP errors.
func humaError(err error) error {
	switch {
	case errors.Is(err, session.ErrSessionNotFound), errors.Is(err, service.ErrLayerNotFound):
		return huma.Error404NotFound(err.Error())
	case errors.Is(err, service.ErrLayerExists):
		return huma.Error409Conflict(err.Error())
	case errors.Is(err, action.ErrUnknownType), errors.Is(err, service.ErrInvalidLayer):
		return huma.Error400BadRequest(err.Error())
	case errors.Is(err, epic.ErrClosed):
		return huma.Error410Gone(err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return huma.Error504GatewayTimeout("pipelines did not settle in time")
	default:
		return huma.Error500InternalServerError("internal error", err)
	}
}
