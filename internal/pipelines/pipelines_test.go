package pipelines

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-viewer/internal/action"
	"github.com/joeblew999/plat-viewer/internal/epic"
	"github.com/joeblew999/plat-viewer/internal/geo"
	"github.com/joeblew999/plat-viewer/internal/host"
	"github.com/joeblew999/plat-viewer/internal/ows"
	"github.com/joeblew999/plat-viewer/internal/shoreline"
	"github.com/joeblew999/plat-viewer/internal/store"
)

const geoserver = "http://gs.test/geoserver/"

type fakeFetcher struct {
	mu          sync.Mutex
	infoURLs    []string
	infoReqs    []ows.FeatureInfoRequest
	featureURLs []string
	featureReqs []ows.FeatureRequest

	info    func(ctx context.Context, req ows.FeatureInfoRequest) (*geojson.FeatureCollection, error)
	feature func(ctx context.Context, req ows.FeatureRequest) (*geojson.FeatureCollection, error)
}

func (f *fakeFetcher) GetFeatureInfo(ctx context.Context, endpoint string, req ows.FeatureInfoRequest) (*geojson.FeatureCollection, error) {
	f.mu.Lock()
	f.infoURLs = append(f.infoURLs, endpoint)
	f.infoReqs = append(f.infoReqs, req)
	fn := f.info
	f.mu.Unlock()
	if fn == nil {
		return geojson.NewFeatureCollection(), nil
	}
	return fn(ctx, req)
}

func (f *fakeFetcher) GetFeature(ctx context.Context, endpoint string, req ows.FeatureRequest) (*geojson.FeatureCollection, error) {
	f.mu.Lock()
	f.featureURLs = append(f.featureURLs, endpoint)
	f.featureReqs = append(f.featureReqs, req)
	fn := f.feature
	f.mu.Unlock()
	if fn == nil {
		return geojson.NewFeatureCollection(), nil
	}
	return fn(ctx, req)
}

func (f *fakeFetcher) featureRequests() []ows.FeatureRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ows.FeatureRequest(nil), f.featureReqs...)
}

type recorder struct {
	mu    sync.Mutex
	types []string
}

func (r *recorder) observe(a action.Action, _ store.State) {
	r.mu.Lock()
	r.types = append(r.types, a.Type())
	r.mu.Unlock()
}

func (r *recorder) count(tag string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, t := range r.types {
		if t == tag {
			n++
		}
	}
	return n
}

type session struct {
	t      *testing.T
	engine *epic.Engine
	rec    *recorder
}

func sequentialIDs() func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func newSession(t *testing.T, fetcher ows.Fetcher, opts host.Options, regions ...shoreline.Region) *session {
	t.Helper()
	if opts.GeoServerURL == "" {
		opts.GeoServerURL = geoserver
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := Config{
		Regions: regions,
		Fetcher: fetcher,
		NewID:   sequentialIDs(),
		Logger:  logger,
	}
	rec := &recorder{}
	e := epic.New(store.NewStore(store.New(opts)), All(cfg),
		epic.WithLogger(logger), epic.WithObserver(rec.observe))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = e.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return &session{t: t, engine: e, rec: rec}
}

// dispatch queues actions and waits until every pipeline settled.
func (s *session) dispatch(actions ...action.Action) store.State {
	s.t.Helper()
	require.NoError(s.t, s.engine.Dispatch(actions...))
	return s.idle()
}

func (s *session) idle() store.State {
	s.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(s.t, s.engine.WaitIdle(ctx))
	return s.engine.Store().Snapshot()
}

func enable(control string) host.SetControlProperty {
	return host.SetControlProperty{Control: control, Property: "enabled", Value: true}
}

func disable(control string) host.SetControlProperty {
	return host.SetControlProperty{Control: control, Property: "enabled", Value: false}
}

func feature(g orb.Geometry, props map[string]any) *geojson.Feature {
	f := geojson.NewFeature(g)
	for k, v := range props {
		f.Properties[k] = v
	}
	return f
}

func collection(features ...*geojson.Feature) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, f := range features {
		fc.Append(f)
	}
	return fc
}

func projection4326() host.Options {
	return host.Options{Projection: geo.EPSG4326}
}
