package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-viewer/internal/action"
	"github.com/joeblew999/plat-viewer/internal/humastar"
	"github.com/joeblew999/plat-viewer/internal/journal"
	"github.com/joeblew999/plat-viewer/internal/session"
	"github.com/joeblew999/plat-viewer/internal/store"
)

type SessionIDInput struct {
	ID string `path:"id" doc:"Session ID" example:"3f2b8c1e-0d7a-4d59-9a51-2c7c1f0e5b11"`
}

// SessionBody is a session with its current state.
type SessionBody struct {
	ID      string      `json:"id" doc:"Session ID"`
	Created time.Time   `json:"created" doc:"Creation time"`
	Seq     uint64      `json:"seq" doc:"Number of reduced actions"`
	State   store.State `json:"state" doc:"Current session state"`
	View    store.View  `json:"view" doc:"Control states derived from the session state"`
}

var sessionActions = []humastar.ActionDef{
	{Rel: "dispatch", Pattern: "/api/v1/sessions/%s/actions", Method: http.MethodPost, Title: "Dispatch an action"},
	{Rel: "events", Pattern: "/api/v1/sessions/%s/events", Method: http.MethodGet, Title: "Stream reduced actions"},
	{Rel: "journal", Pattern: "/api/v1/sessions/%s/journal", Method: http.MethodGet, Title: "Journaled actions"},
	{Rel: "replay", Pattern: "/api/v1/sessions/%s/replay", Method: http.MethodPost, Title: "Rebuild state from a journal"},
	{Rel: "close", Pattern: "/api/v1/sessions/%s", Method: http.MethodDelete, Title: "Close the session"},
}

func (b SessionBody) Actions() []humastar.Action {
	return humastar.ActionsFor(b.ID, sessionActions)
}

func (h *APIHandler) sessionBody(s *session.Session, st store.State) SessionBody {
	return SessionBody{
		ID:      s.ID,
		Created: s.Created,
		Seq:     s.Seq(),
		State:   st,
		View:    store.ViewOf(st, h.mediaTypes()),
	}
}

type SessionOutput struct {
	Body SessionBody
}

type DispatchInput struct {
	SessionIDInput
	Wait bool `query:"wait" doc:"Wait until every pipeline settled before answering"`
	Body action.Envelope
}

type DispatchOutput struct {
	Status int
	Body   SessionBody
}

// RegisterSessions registers the session routes.
func (h *APIHandler) RegisterSessions(api huma.API) {
	huma.Get(api, "/api/v1/sessions", h.ListSessions, huma.OperationTags("sessions"))
	huma.Post(api, "/api/v1/sessions", h.CreateSession, huma.OperationTags("sessions"), created)
	huma.Get(api, "/api/v1/sessions/{id}", h.GetSession, huma.OperationTags("sessions"))
	huma.Delete(api, "/api/v1/sessions/{id}", h.CloseSession, huma.OperationTags("sessions"))
	huma.Post(api, "/api/v1/sessions/{id}/actions", h.Dispatch, huma.OperationTags("sessions"))
	huma.Get(api, "/api/v1/actions", h.ListActionTypes, huma.OperationTags("sessions"))
}

func (h *APIHandler) ListSessions(ctx context.Context, input *struct{}) (*struct{ Body []session.Info }, error) {
	return &struct{ Body []session.Info }{Body: h.svc.Sessions.List()}, nil
}

func (h *APIHandler) CreateSession(ctx context.Context, input *struct{ Body session.Options }) (*SessionOutput, error) {
	s := h.svc.Sessions.Create(input.Body)
	return &SessionOutput{Body: h.sessionBody(s, s.Snapshot())}, nil
}

func (h *APIHandler) GetSession(ctx context.Context, input *SessionIDInput) (*SessionOutput, error) {
	s, err := h.svc.Sessions.Get(input.ID)
	if err != nil {
		return nil, humaError(err)
	}
	return &SessionOutput{Body: h.sessionBody(s, s.Snapshot())}, nil
}

func (h *APIHandler) CloseSession(ctx context.Context, input *SessionIDInput) (*struct{ Body MessageBody }, error) {
	if err := h.svc.Sessions.Close(input.ID); err != nil {
		return nil, humaError(err)
	}
	return &struct{ Body MessageBody }{Body: MessageBody{Message: "Session closed"}}, nil
}

// Dispatch decodes one envelope and queues it. Without wait the state in the
// answer may not include the derived actions yet.
func (h *APIHandler) Dispatch(ctx context.Context, input *DispatchInput) (*DispatchOutput, error) {
	s, err := h.svc.Sessions.Get(input.ID)
	if err != nil {
		return nil, humaError(err)
	}
	a, err := action.Decode(input.Body)
	if err != nil {
		return nil, huma.Error400BadRequest(err.Error())
	}

	status := http.StatusAccepted
	if input.Wait {
		status = http.StatusOK
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.svc.WaitTimeout)
		defer cancel()
	}
	st, err := s.Dispatch(ctx, input.Wait, a)
	if err != nil {
		return nil, humaError(err)
	}
	return &DispatchOutput{Status: status, Body: h.sessionBody(s, st)}, nil
}

func (h *APIHandler) ListActionTypes(ctx context.Context, input *struct{}) (*struct{ Body []string }, error) {
	return &struct{ Body []string }{Body: action.Types()}, nil
}

// Journal

type JournalInput struct {
	SessionIDInput
	Offset int `query:"offset" minimum:"0" default:"0" doc:"Entries to skip"`
	Limit  int `query:"limit" minimum:"1" maximum:"1000" default:"100" doc:"Page size"`
}

type JournalOutput struct {
	Body humastar.PageBody[journal.Entry]
}

type ReplayRequest struct {
	Source string `json:"source,omitempty" doc:"Session whose journal is replayed, defaults to the target session"`
}

type ReplayBody struct {
	SessionBody
	Replayed int `json:"replayed" doc:"Actions folded into the state"`
	Skipped  int `json:"skipped" doc:"Journal entries whose tag is no longer known"`
}

// RegisterJournal registers the journal routes.
func (h *APIHandler) RegisterJournal(api huma.API) {
	huma.Get(api, "/api/v1/journal", h.ListJournaled, huma.OperationTags("journal"))
	huma.Get(api, "/api/v1/sessions/{id}/journal", h.GetJournal, huma.OperationTags("journal"))
	huma.Post(api, "/api/v1/sessions/{id}/replay", h.Replay, huma.OperationTags("journal"))
}

func (h *APIHandler) ListJournaled(ctx context.Context, input *struct{}) (*struct{ Body []string }, error) {
	if h.svc.Journal == nil {
		return nil, huma.Error503ServiceUnavailable("journal not available")
	}
	ids, err := h.svc.Journal.Sessions(ctx)
	if err != nil {
		return nil, humaError(err)
	}
	if ids == nil {
		ids = []string{}
	}
	return &struct{ Body []string }{Body: ids}, nil
}

// GetJournal pages through the journal of a session. Closed sessions keep
// their journal.
func (h *APIHandler) GetJournal(ctx context.Context, input *JournalInput) (*JournalOutput, error) {
	if h.svc.Journal == nil {
		return nil, huma.Error503ServiceUnavailable("journal not available")
	}
	entries, err := h.svc.Journal.Entries(ctx, input.ID, 0)
	if err != nil {
		return nil, humaError(err)
	}
	return &JournalOutput{Body: humastar.Page(entries, input.Offset, input.Limit)}, nil
}

func (h *APIHandler) Replay(ctx context.Context, input *struct {
	SessionIDInput
	Body *ReplayRequest `required:"false"`
}) (*struct{ Body ReplayBody }, error) {
	if h.svc.Journal == nil {
		return nil, huma.Error503ServiceUnavailable("journal not available")
	}
	s, err := h.svc.Sessions.Get(input.ID)
	if err != nil {
		return nil, humaError(err)
	}
	source := s.ID
	if input.Body != nil && input.Body.Source != "" {
		source = input.Body.Source
	}

	actions, skipped, err := h.svc.Journal.Actions(ctx, source)
	if err != nil {
		return nil, humaError(err)
	}
	ctx, cancel := context.WithTimeout(ctx, h.svc.WaitTimeout)
	defer cancel()
	st, err := s.Replay(ctx, source, actions)
	if err != nil {
		return nil, humaError(err)
	}
	return &struct{ Body ReplayBody }{Body: ReplayBody{
		SessionBody: h.sessionBody(s, st),
		Replayed:    len(actions),
		Skipped:     skipped,
	}}, nil
}
