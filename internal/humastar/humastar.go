// Package humastar bridges Huma (REST/OpenAPI) with Datastar (SSE/hypermedia).
//
// It provides:
//   - SSE: Huma streaming → Datastar SSE protocol via [SSE] and [Stream]
//   - Links: RFC 8288 Link headers from a static map, response bodies that
//     implement [Pager] or [Actor], via [LinkTransformer]
//
// Usage:
//
//	func (h *Handler) Events(ctx context.Context, in *Input) (*huma.StreamResponse, error) {
//	    return humastar.Stream(func(ctx context.Context, sse humastar.SSE) {
//	        sse.Signals(map[string]any{"ready": true})
//	    }), nil
//	}
package humastar

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/starfederation/datastar-go/datastar"
)

// EmptyInput is a shared input struct for handlers with no parameters.
type EmptyInput struct{}

// SSE wraps a Datastar SSE generator.
type SSE struct {
	*datastar.ServerSentEventGenerator
}

// NewSSE creates a Datastar SSE helper from a Huma streaming context.
func NewSSE(ctx huma.Context) SSE {
	r, w := humago.Unwrap(ctx)
	return SSE{datastar.NewSSE(w, r)}
}

// Stream returns a Huma StreamResponse that calls fn with the request context
// and a ready SSE helper.
func Stream(fn func(ctx context.Context, sse SSE)) *huma.StreamResponse {
	return &huma.StreamResponse{
		Body: func(humaCtx huma.Context) {
			fn(humaCtx.Context(), NewSSE(humaCtx))
		},
	}
}

// Signals patches the client signals with v marshalled as JSON.
func (s SSE) Signals(v any) error {
	return s.MarshalAndPatchSignals(v)
}

// Event dispatches a DOM custom event carrying detail.
func (s SSE) Event(name string, detail any) error {
	return s.DispatchCustomEvent(name, detail)
}

// Error sends an error signal to the client.
func (s SSE) Error(msg string) error {
	return s.MarshalAndPatchSignals(map[string]any{"error": msg})
}
