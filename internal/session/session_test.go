package session

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-viewer/internal/action"
	"github.com/joeblew999/plat-viewer/internal/epic"
	"github.com/joeblew999/plat-viewer/internal/geo"
	"github.com/joeblew999/plat-viewer/internal/host"
	"github.com/joeblew999/plat-viewer/internal/maplayer"
	"github.com/joeblew999/plat-viewer/internal/zoneidentify"
)

type memJournal struct {
	mu       sync.Mutex
	sessions map[string][]action.Action
	seqs     map[string][]uint64
}

func newMemJournal() *memJournal {
	return &memJournal{sessions: map[string][]action.Action{}, seqs: map[string][]uint64{}}
}

func (j *memJournal) Append(_ context.Context, session string, seq uint64, a action.Action) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.seqs[session] = append(j.seqs[session], seq)
	j.sessions[session] = append(j.sessions[session], a)
	return nil
}

func (j *memJournal) Delete(_ context.Context, session string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	delete(j.seqs, session)
	delete(j.sessions, session)
	return nil
}

func (j *memJournal) all(session string) []action.Action {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]action.Action(nil), j.sessions[session]...)
}

func (j *memJournal) seqsOf(session string) []uint64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]uint64(nil), j.seqs[session]...)
}

type staticLayers []maplayer.Layer

func (l staticLayers) MapLayers() []maplayer.Layer { return l }

func newManager(t *testing.T, journal Recorder) *Manager {
	t.Helper()
	m := NewManager(Config{
		GeoServerURL: "http://gs.test/geoserver/",
		Locale:       "fr-CA",
		Layers:       staticLayers{{ID: "zones", Name: "geonode:neec_geodb_zones", Type: maplayer.TypeWMS, Visibility: true}},
		Journal:      journal,
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	t.Cleanup(m.Shutdown)
	return m
}

func ctx(t *testing.T) context.Context {
	t.Helper()
	c, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return c
}

func highlightPoint() zoneidentify.HighlightSelectedFeature {
	return zoneidentify.HighlightSelectedFeature{SelectedFeature: &zoneidentify.RawGeometry{
		Type:        "Point",
		Coordinates: json.RawMessage(`[1,2]`),
	}}
}

func TestCreateSeedsState(t *testing.T) {
	m := newManager(t, nil)

	s := m.Create(Options{AccessToken: "tok", Projection: geo.EPSG4326})
	st := s.Snapshot()

	assert.Equal(t, "fr-CA", st.Host.Locale)
	assert.Equal(t, geo.EPSG4326, st.Host.Map.Projection)
	assert.Equal(t, "tok", st.Host.Security.AccessToken)
	assert.Equal(t, "http://gs.test/geoserver/", st.Host.Settings.GeoServerURL)
	require.Len(t, st.Host.Layers, 1)

	got, err := m.Get(s.ID)
	require.NoError(t, err)
	assert.Same(t, s, got)
}

func TestDispatchWaitReturnsSettledState(t *testing.T) {
	m := newManager(t, nil)
	s := m.Create(Options{})

	st, err := s.Dispatch(ctx(t), true, host.SetControlProperty{Control: zoneidentify.ControlName, Property: "enabled", Value: true})
	require.NoError(t, err)

	assert.Equal(t, zoneidentify.AllVisible(), st.ZoneIdentify.SelectedLayer)
	assert.True(t, st.Host.MapInfo.Enabled)
	assert.Greater(t, s.Seq(), uint64(1))
}

func TestSubscribersSeeEveryReducedAction(t *testing.T) {
	m := newManager(t, nil)
	s := m.Create(Options{})
	events := s.Subscribe()

	_, err := s.Dispatch(ctx(t), true, highlightPoint())
	require.NoError(t, err)

	var got []string
	for len(got) < 2 {
		select {
		case e := <-events:
			assert.Equal(t, s.ID, e.Session)
			assert.Equal(t, uint64(len(got)+1), e.Seq)
			got = append(got, e.Action.Type())
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for events")
		}
	}
	assert.Equal(t, []string{zoneidentify.HighlightSelectedFeatureType, host.UpdateAdditionalLayerType}, got)

	s.Unsubscribe(events)
	_, open := <-events
	assert.False(t, open)
}

func TestJournalReplayReproducesState(t *testing.T) {
	journal := newMemJournal()
	m := newManager(t, journal)
	s := m.Create(Options{})

	live, err := s.Dispatch(ctx(t), true,
		host.SetControlProperty{Control: zoneidentify.ControlName, Property: "enabled", Value: true},
		highlightPoint(),
		host.ChangeLocale{Locale: "en-US"},
	)
	require.NoError(t, err)
	assert.Len(t, journal.all(s.ID), int(s.Seq()))

	replayed, err := s.Replay(ctx(t), s.ID, journal.all(s.ID))
	require.NoError(t, err)
	assert.Equal(t, live, replayed)
	assert.Len(t, journal.all(s.ID), int(s.Seq()))

	empty, err := s.Replay(ctx(t), s.ID, nil)
	require.NoError(t, err)
	assert.Empty(t, empty.Host.AdditionalLayers)
	assert.Equal(t, empty, s.Snapshot())
	assert.Empty(t, journal.all(s.ID))
	assert.Zero(t, s.Seq())
}

func TestReplayFromAnotherSession(t *testing.T) {
	journal := newMemJournal()
	m := newManager(t, journal)
	src := m.Create(Options{})
	dst := m.Create(Options{})

	live, err := src.Dispatch(ctx(t), true,
		host.SetControlProperty{Control: zoneidentify.ControlName, Property: "enabled", Value: true},
		highlightPoint(),
	)
	require.NoError(t, err)
	_, err = dst.Dispatch(ctx(t), true, host.ChangeLocale{Locale: "en-US"})
	require.NoError(t, err)

	events := dst.Subscribe()
	imported, err := dst.Replay(ctx(t), src.ID, journal.all(src.ID))
	require.NoError(t, err)
	assert.Equal(t, live.Host.AdditionalLayers, imported.Host.AdditionalLayers)
	assert.Equal(t, "fr-CA", imported.Host.Locale, "actions dispatched before the import are dropped")

	select {
	case ev := <-events:
		assert.Equal(t, action.Replayed{Source: src.ID, Actions: len(journal.all(src.ID))}, ev.Action)
		assert.Equal(t, src.Seq(), ev.Seq)
		assert.Equal(t, imported, ev.State)
	case <-time.After(time.Second):
		t.Fatal("no replay event")
	}

	// the rewritten journal of dst reproduces its state on its own
	assert.Equal(t, journal.all(src.ID), journal.all(dst.ID))
	assert.Equal(t, journal.seqsOf(src.ID), journal.seqsOf(dst.ID))
	again, err := dst.Replay(ctx(t), dst.ID, journal.all(dst.ID))
	require.NoError(t, err)
	assert.Equal(t, imported, again)
}

func TestCloseStopsSession(t *testing.T) {
	m := newManager(t, nil)
	s := m.Create(Options{})
	events := s.Subscribe()

	require.NoError(t, m.Close(s.ID))

	_, err := m.Get(s.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, m.Close(s.ID), ErrSessionNotFound)

	_, err = s.Dispatch(ctx(t), false, highlightPoint())
	assert.ErrorIs(t, err, epic.ErrClosed)

	_, open := <-events
	assert.False(t, open)
	assert.Empty(t, m.List())
}

func TestListIsOrderedByCreation(t *testing.T) {
	m := newManager(t, nil)
	a := m.Create(Options{})
	b := m.Create(Options{})

	list := m.List()
	require.Len(t, list, 2)
	ids := []string{list[0].ID, list[1].ID}
	assert.ElementsMatch(t, []string{a.ID, b.ID}, ids)
	assert.False(t, list[0].Created.After(list[1].Created))
}
