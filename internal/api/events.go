package api

import (
	"context"
	"log/slog"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-viewer/internal/action"
	"github.com/joeblew999/plat-viewer/internal/humastar"
	"github.com/joeblew999/plat-viewer/internal/service"
	"github.com/joeblew999/plat-viewer/internal/session"
	"github.com/joeblew999/plat-viewer/internal/shoreline"
	"github.com/joeblew999/plat-viewer/internal/store"
	"github.com/joeblew999/plat-viewer/internal/zoneidentify"
)

// DOM events of the streams.
const (
	ActionEvent  = "viewer-action"
	CatalogEvent = "catalog-changed"
)

// stateSignals are the Datastar signals patched after every action.
type stateSignals struct {
	Seq          uint64                 `json:"seq"`
	Shoreline    shoreline.State        `json:"shoreline"`
	ZoneIdentify zoneidentify.State     `json:"zoneIdentify"`
	MapInfo      bool                   `json:"mapInfoEnabled"`
	LastError    *action.PipelineFailed `json:"lastError"`
	View         store.View             `json:"view"`
}

func (h *APIHandler) signalsOf(seq uint64, st store.State) stateSignals {
	return stateSignals{
		Seq:          seq,
		Shoreline:    st.Shoreline,
		ZoneIdentify: st.ZoneIdentify,
		MapInfo:      st.Host.MapInfo.Enabled,
		LastError:    st.Host.LastError,
		View:         store.ViewOf(st, h.mediaTypes()),
	}
}

type actionDetail struct {
	Seq uint64 `json:"seq"`
	action.Envelope
}

// RegisterEvents registers the session event stream.
func (h *APIHandler) RegisterEvents(api huma.API) {
	huma.Get(api, "/api/v1/sessions/{id}/events", h.Events,
		huma.OperationTags("sessions"),
	)
	huma.Get(api, "/api/v1/catalog/events", h.CatalogEvents,
		huma.OperationTags("layers"),
	)
}

// Events streams the session to a Datastar client: the current signals first,
// then every reduced action as a viewer-action event followed by the patched
// signals. The stream ends with the request or the session.
func (h *APIHandler) Events(ctx context.Context, input *SessionIDInput) (*huma.StreamResponse, error) {
	s, err := h.svc.Sessions.Get(input.ID)
	if err != nil {
		return nil, humaError(err)
	}

	return humastar.Stream(func(ctx context.Context, sse humastar.SSE) {
		ch := s.Subscribe()
		defer s.Unsubscribe(ch)
		h.svc.Metrics.StreamOpened()
		defer h.svc.Metrics.StreamClosed()

		if err := sse.Signals(h.signalsOf(s.Seq(), s.Snapshot())); err != nil {
			return
		}
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-ch:
				if !ok {
					return
				}
				if err := h.send(sse, ev); err != nil {
					slog.Debug("event stream closed", "session", s.ID, "err", err)
					return
				}
			}
		}
	}), nil
}

func (h *APIHandler) send(sse humastar.SSE, ev session.Event) error {
	env, err := action.Encode(ev.Action)
	if err != nil {
		return err
	}
	if err := sse.Event(ActionEvent, actionDetail{Seq: ev.Seq, Envelope: env}); err != nil {
		return err
	}
	return sse.Signals(h.signalsOf(ev.Seq, ev.State))
}

type catalogSignals struct {
	Layers []service.LayerConfig `json:"layers"`
}

// CatalogEvents streams layer catalog changes: a catalog-changed event per
// mutation followed by the patched layer list.
func (h *APIHandler) CatalogEvents(ctx context.Context, input *humastar.EmptyInput) (*huma.StreamResponse, error) {
	if h.svc.Layers == nil {
		return nil, huma.Error503ServiceUnavailable("layer catalog not available")
	}
	layers := h.svc.Layers

	return humastar.Stream(func(ctx context.Context, sse humastar.SSE) {
		ch := layers.Changes().Subscribe()
		defer layers.Changes().Unsubscribe(ch)

		if err := sse.Signals(catalogSignals{Layers: layers.List()}); err != nil {
			return
		}
		for {
			select {
			case <-ctx.Done():
				return
			case c, ok := <-ch:
				if !ok {
					return
				}
				if err := sse.Event(CatalogEvent, c); err != nil {
					return
				}
				if err := sse.Signals(catalogSignals{Layers: layers.List()}); err != nil {
					return
				}
			}
		}
	}), nil
}
