package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-viewer/internal/geo"
	"github.com/joeblew999/plat-viewer/internal/host"
	"github.com/joeblew999/plat-viewer/internal/journal"
	"github.com/joeblew999/plat-viewer/internal/maplayer"
	"github.com/joeblew999/plat-viewer/internal/service"
	"github.com/joeblew999/plat-viewer/internal/session"
	"github.com/joeblew999/plat-viewer/internal/shoreline"
	"github.com/joeblew999/plat-viewer/internal/store"
	"github.com/joeblew999/plat-viewer/internal/zoneidentify"
)

type testAPI struct {
	humatest.TestAPI
	svc *Services
}

func newTestAPI(t *testing.T) testAPI {
	t.Helper()
	j, err := journal.Open(journal.Config{})
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })

	layers := service.NewLayerService("")
	_, err = layers.Create(service.LayerConfig{Name: "geonode:neec_geodb_zones", Type: maplayer.TypeWMS})
	require.NoError(t, err)

	sessions := session.NewManager(session.Config{
		GeoServerURL: "http://gs.test/geoserver/",
		Locale:       "en-US",
		Layers:       layers,
		Journal:      j,
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	t.Cleanup(sessions.Shutdown)

	svc := &Services{
		Sessions: sessions,
		Layers:   layers,
		Journal:  j,
		Regions: []shoreline.Region{
			{ID: "a", Extent: geo.Extent{0, 0, 10, 10}},
			{ID: "b", Extent: geo.Extent{5, -5, 20, 8}},
		},
	}

	mux := http.NewServeMux()
	api := humago.New(mux, NewConfig("test", "1.0.0"))
	RegisterRoutes(api, svc)
	NewInfoHandler("", true).RegisterRoutes(api)

	return testAPI{TestAPI: humatest.Wrap(t, api), svc: svc}
}

func decode[T any](t *testing.T, body io.Reader) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(body).Decode(&v))
	return v
}

type sessionResponse struct {
	ID    string `json:"id"`
	Seq   uint64 `json:"seq"`
	State struct {
		Host struct {
			Locale           string                       `json:"locale"`
			Layers           []maplayer.Layer             `json:"layers"`
			AdditionalLayers []host.AdditionalLayer       `json:"additionalLayers"`
			MapInfo          struct{ Enabled bool }       `json:"mapInfo"`
			Security         struct{ AccessToken string } `json:"security"`
		} `json:"host"`
		ZoneIdentify struct {
			SelectedLayer json.RawMessage `json:"selectedLayer"`
		} `json:"zoneIdentify"`
	} `json:"state"`
}

func (a testAPI) createSession(t *testing.T, opts map[string]any) sessionResponse {
	t.Helper()
	resp := a.Post("/api/v1/sessions", opts)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	return decode[sessionResponse](t, resp.Body)
}

func envelope(tag string, payload any) map[string]any {
	return map[string]any{"type": tag, "payload": payload}
}

func openZoneIdentify() map[string]any {
	return envelope(host.SetControlPropertyType, map[string]any{
		"control": zoneidentify.ControlName, "property": "enabled", "value": true,
	})
}

func highlightPoint() map[string]any {
	return envelope(zoneidentify.HighlightSelectedFeatureType, map[string]any{
		"selectedFeature": map[string]any{"type": "Point", "coordinates": []float64{1, 2}},
	})
}

func TestHealthLinks(t *testing.T) {
	a := newTestAPI(t)

	resp := a.Get("/health")
	require.Equal(t, http.StatusOK, resp.Code)
	links := strings.Join(resp.Header().Values("Link"), ",")
	assert.Contains(t, links, `</api/v1/sessions>; rel="sessions"`)
	assert.Contains(t, links, `</api/v1/regions>; rel="regions"`)

	info := decode[InfoBody](t, a.Get("/api/v1/info").Body)
	assert.Equal(t, "plat-viewer", info.Name)
	assert.True(t, info.Journal)
	assert.Positive(t, info.Actions)
}

func TestCreateAndGetSession(t *testing.T) {
	a := newTestAPI(t)

	created := a.createSession(t, map[string]any{"locale": "fr-CA", "accessToken": "tok"})
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "fr-CA", created.State.Host.Locale)
	assert.Equal(t, "tok", created.State.Host.Security.AccessToken)
	require.Len(t, created.State.Host.Layers, 1)
	assert.Equal(t, "geonode:neec_geodb_zones", created.State.Host.Layers[0].Name)

	resp := a.Get("/api/v1/sessions/" + created.ID)
	require.Equal(t, http.StatusOK, resp.Code)
	links := strings.Join(resp.Header().Values("Link"), ",")
	assert.Contains(t, links, `rel="self"`)
	assert.Contains(t, links, `</api/v1/sessions/`+created.ID+`/actions>; rel="dispatch"; method="POST"`)
	assert.Contains(t, links, `rel="close"; method="DELETE"`)

	list := decode[[]session.Info](t, a.Get("/api/v1/sessions").Body)
	require.Len(t, list, 1)
	assert.Equal(t, created.ID, list[0].ID)

	assert.Equal(t, http.StatusNotFound, a.Get("/api/v1/sessions/missing").Code)
}

func TestDispatchWait(t *testing.T) {
	a := newTestAPI(t)
	s := a.createSession(t, map[string]any{})

	resp := a.Post("/api/v1/sessions/"+s.ID+"/actions?wait=true", openZoneIdentify())
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	got := decode[sessionResponse](t, resp.Body)
	assert.JSONEq(t, `"visible_layers"`, string(got.State.ZoneIdentify.SelectedLayer))
	assert.True(t, got.State.Host.MapInfo.Enabled)
	assert.Greater(t, got.Seq, uint64(1))

	resp = a.Post("/api/v1/sessions/"+s.ID+"/actions?wait=true", highlightPoint())
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	got = decode[sessionResponse](t, resp.Body)
	require.Len(t, got.State.Host.AdditionalLayers, 1)
	assert.Equal(t, zoneidentify.Owner, got.State.Host.AdditionalLayers[0].Owner)
}

func TestDispatchWithoutWaitIsAccepted(t *testing.T) {
	a := newTestAPI(t)
	s := a.createSession(t, map[string]any{})

	resp := a.Post("/api/v1/sessions/"+s.ID+"/actions", envelope(host.ChangeLocaleType, map[string]any{"locale": "fr-CA"}))
	assert.Equal(t, http.StatusAccepted, resp.Code, resp.Body.String())
}

func TestDispatchErrors(t *testing.T) {
	a := newTestAPI(t)
	s := a.createSession(t, map[string]any{})

	resp := a.Post("/api/v1/sessions/"+s.ID+"/actions", envelope("NOT:AN_ACTION", map[string]any{}))
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = a.Post("/api/v1/sessions/"+s.ID+"/actions", envelope(host.ChangeLocaleType, []int{1}))
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = a.Post("/api/v1/sessions/missing/actions", openZoneIdentify())
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestCloseSession(t *testing.T) {
	a := newTestAPI(t)
	s := a.createSession(t, map[string]any{})

	assert.Equal(t, http.StatusOK, a.Delete("/api/v1/sessions/"+s.ID).Code)
	assert.Equal(t, http.StatusNotFound, a.Delete("/api/v1/sessions/"+s.ID).Code)
	assert.Equal(t, http.StatusNotFound, a.Post("/api/v1/sessions/"+s.ID+"/actions", openZoneIdentify()).Code)
}

func TestJournalAndReplay(t *testing.T) {
	a := newTestAPI(t)
	s := a.createSession(t, map[string]any{})

	resp := a.Post("/api/v1/sessions/"+s.ID+"/actions?wait=true", openZoneIdentify())
	require.Equal(t, http.StatusOK, resp.Code)
	resp = a.Post("/api/v1/sessions/"+s.ID+"/actions?wait=true", highlightPoint())
	require.Equal(t, http.StatusOK, resp.Code)
	live := decode[sessionResponse](t, resp.Body)

	resp = a.Get("/api/v1/sessions/" + s.ID + "/journal?limit=2")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	page := decode[struct {
		Total int             `json:"total"`
		Data  []journal.Entry `json:"data"`
	}](t, resp.Body)
	assert.Equal(t, int(live.Seq), page.Total)
	require.Len(t, page.Data, 2)
	assert.Equal(t, host.SetControlPropertyType, page.Data[0].Type)
	assert.Equal(t, uint64(2), page.Data[1].Seq)
	assert.Contains(t, strings.Join(resp.Header().Values("Link"), ","), `rel="next"`)

	// a fresh session rebuilt from the first one's journal
	other := a.createSession(t, map[string]any{})
	resp = a.Post("/api/v1/sessions/"+other.ID+"/replay", map[string]any{"source": s.ID})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	replayed := decode[struct {
		sessionResponse
		Replayed int `json:"replayed"`
		Skipped  int `json:"skipped"`
	}](t, resp.Body)
	assert.Equal(t, int(live.Seq), replayed.Replayed)
	assert.Zero(t, replayed.Skipped)
	assert.Equal(t, live.State.Host.AdditionalLayers, replayed.State.Host.AdditionalLayers)
	assert.Equal(t, live.State.ZoneIdentify.SelectedLayer, replayed.State.ZoneIdentify.SelectedLayer)
	assert.Equal(t, live.Seq, replayed.Seq)

	// the imported actions now form the journal of the target session
	resp = a.Get("/api/v1/sessions/" + other.ID + "/journal")
	require.Equal(t, http.StatusOK, resp.Code)
	otherPage := decode[struct {
		Total int `json:"total"`
	}](t, resp.Body)
	assert.Equal(t, int(live.Seq), otherPage.Total)

	resp = a.Post("/api/v1/sessions/"+other.ID+"/replay", map[string]any{})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	again := decode[sessionResponse](t, resp.Body)
	assert.Equal(t, replayed.State.Host.AdditionalLayers, again.State.Host.AdditionalLayers)

	ids := decode[[]string](t, a.Get("/api/v1/journal").Body)
	assert.Contains(t, ids, s.ID)
}

func TestLayerCatalog(t *testing.T) {
	a := newTestAPI(t)

	resp := a.Post("/api/v1/layers", map[string]any{"name": "geonode:neec_geodb_roads", "type": "wms", "title": "Roads"})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	layer := decode[service.LayerConfig](t, resp.Body)
	assert.Equal(t, "neec_geodb_roads", layer.ID)

	assert.Equal(t, http.StatusConflict, a.Post("/api/v1/layers", map[string]any{"name": "geonode:neec_geodb_roads", "type": "wms"}).Code)
	assert.Equal(t, http.StatusBadRequest, a.Post("/api/v1/layers", map[string]any{"name": "!!!", "type": "wms"}).Code)
	assert.Equal(t, http.StatusUnprocessableEntity, a.Post("/api/v1/layers", map[string]any{"name": "x", "type": "tiles"}).Code)

	list := decode[[]service.LayerConfig](t, a.Get("/api/v1/layers").Body)
	assert.Len(t, list, 2)

	resp = a.Put("/api/v1/layers/neec_geodb_roads", map[string]any{"name": "geonode:neec_geodb_roads", "type": "wms", "title": "Road network"})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, "Road network", decode[service.LayerConfig](t, resp.Body).Title)

	assert.Equal(t, http.StatusOK, a.Delete("/api/v1/layers/neec_geodb_roads").Code)
	assert.Equal(t, http.StatusNotFound, a.Get("/api/v1/layers/neec_geodb_roads").Code)

	// new sessions start from the catalog
	s := a.createSession(t, map[string]any{})
	assert.Len(t, s.State.Host.Layers, 1)
}

func TestCreateLayerWithOnlyName(t *testing.T) {
	a := newTestAPI(t)

	resp := a.Post("/api/v1/layers", map[string]any{"name": "geonode:neec_geodb_roads"})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	assert.Equal(t, "neec_geodb_roads", decode[service.LayerConfig](t, resp.Body).ID)

	resp = a.Post("/api/v1/layers", map[string]any{"name": "geonode:neec_geodb_wrecks", "defaultVisible": false})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	s := a.createSession(t, map[string]any{})
	visible := map[string]bool{}
	for _, l := range s.State.Host.Layers {
		visible[l.ID] = l.Visibility
	}
	assert.Equal(t, map[string]bool{
		"neec_geodb_zones":  true,
		"neec_geodb_roads":  true,
		"neec_geodb_wrecks": false,
	}, visible)
}

func TestSessionView(t *testing.T) {
	a := newTestAPI(t)
	resp := a.Post("/api/v1/layers", map[string]any{"name": "geonode:neec_geodb_wrecks", "resourcePk": "42"})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	s := a.createSession(t, map[string]any{})
	view := func(resp *httptest.ResponseRecorder) store.View {
		t.Helper()
		require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
		return decode[struct {
			View store.View `json:"view"`
		}](t, resp.Body).View
	}
	dispatch := func(env map[string]any) store.View {
		t.Helper()
		return view(a.Post("/api/v1/sessions/"+s.ID+"/actions?wait=true", env))
	}

	v := view(a.Get("/api/v1/sessions/" + s.ID))
	assert.False(t, v.CanUndo)
	assert.Equal(t, []string{"neec_geodb_wrecks"}, v.DetailLayers)

	v = dispatch(envelope(host.ChangeMapViewType, map[string]any{"view": map[string]any{"zoom": 5}}))
	assert.False(t, v.CanUndo, "the initial blank view is not kept in history")
	v = dispatch(envelope(host.ChangeMapViewType, map[string]any{"view": map[string]any{"zoom": 6}}))
	assert.True(t, v.CanUndo)
	assert.False(t, v.CanRedo)

	v = dispatch(envelope(host.UndoType, map[string]any{}))
	assert.False(t, v.CanUndo)
	assert.True(t, v.CanRedo)

	v = dispatch(envelope(host.SetControlPropertyType, map[string]any{
		"control": "rightOverlay", "property": "enabled", "value": host.LayerDetailViewerControl,
	}))
	assert.True(t, v.LayerDetailOpen)
}

func TestRegions(t *testing.T) {
	a := newTestAPI(t)

	resp := a.Get("/api/v1/regions")
	require.Equal(t, http.StatusOK, resp.Code)
	body := decode[RegionsBody](t, resp.Body)
	require.Len(t, body.Regions, 2)
	require.NotNil(t, body.BBox)
	assert.Equal(t, geo.Extent{0, -5, 20, 10}, *body.BBox)
	assert.Equal(t, shoreline.DefaultMediaTypes(), body.MediaTypes)
}

func TestActionTypes(t *testing.T) {
	a := newTestAPI(t)

	tags := decode[[]string](t, a.Get("/api/v1/actions").Body)
	assert.Contains(t, tags, shoreline.SetRegionType)
	assert.Contains(t, tags, zoneidentify.SelectFeaturesType)
}
