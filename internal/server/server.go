package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/joeblew999/plat-viewer/internal/api"
	"github.com/joeblew999/plat-viewer/internal/config"
	"github.com/joeblew999/plat-viewer/internal/journal"
	"github.com/joeblew999/plat-viewer/internal/metric"
	"github.com/joeblew999/plat-viewer/internal/ows"
	"github.com/joeblew999/plat-viewer/internal/service"
	"github.com/joeblew999/plat-viewer/internal/session"
)

// Config holds the server configuration.
type Config struct {
	Host    string
	Port    string
	DataDir string // empty keeps the catalog and the journal in memory
	Viewer  *config.Config
	Logger  *slog.Logger

	// Fetcher overrides the OGC client, for tests.
	Fetcher ows.Fetcher
}

// Server is the viewer HTTP server.
type Server struct {
	config   Config
	log      *slog.Logger
	mux      *http.ServeMux
	humaAPI  huma.API
	journal  *journal.Journal
	sessions *session.Manager
	services *api.Services
	registry *prometheus.Registry
}

// New creates a new viewer server.
func New(cfg Config) (*Server, error) {
	if cfg.Viewer == nil {
		cfg.Viewer = config.Default()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	log := cfg.Logger.With("component", "server")

	mux := http.NewServeMux()

	humaConfig := api.NewConfig("plat-viewer API", "1.0.0")
	humaConfig.Info.Description = "Map-client coordination service: viewer sessions, their pipelines and the action stream."
	humaConfig.Servers = []*huma.Server{
		{URL: fmt.Sprintf("http://%s:%s", cfg.Host, cfg.Port), Description: "Local server"},
	}

	humaAPI := humago.New(mux, humaConfig)

	metrics := metric.New()
	registry, err := metric.NewRegistry(metrics)
	if err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	layers := service.NewLayerService(cfg.DataDir)
	if err := layers.Seed(cfg.Viewer.Layers); err != nil {
		return nil, fmt.Errorf("seed layer catalog: %w", err)
	}

	s := &Server{
		config:   cfg,
		log:      log,
		mux:      mux,
		humaAPI:  humaAPI,
		registry: registry,
	}

	// The journal is optional: sessions run without it.
	var recorder session.Recorder
	j, err := journal.Open(journal.Config{DataDir: cfg.DataDir, DBName: "viewer"})
	if err != nil {
		log.Warn("journal unavailable", "err", err)
	} else {
		s.journal = j
		recorder = j
	}

	fetcher := cfg.Fetcher
	if fetcher == nil {
		fetcher = ows.New(cfg.Viewer.FetchTimeout, metrics)
	}
	pipelines := cfg.Viewer.Pipelines()
	pipelines.Fetcher = fetcher

	s.sessions = session.NewManager(session.Config{
		GeoServerURL: cfg.Viewer.GeoServerURL,
		Locale:       cfg.Viewer.Locale,
		Projection:   cfg.Viewer.Projection,
		Pipelines:    pipelines,
		Layers:       layers,
		Journal:      recorder,
		Metrics:      metrics,
		Logger:       cfg.Logger,
	})

	s.services = &api.Services{
		Sessions:   s.sessions,
		Layers:     layers,
		Journal:    s.journal,
		Regions:    cfg.Viewer.Regions,
		MediaTypes: cfg.Viewer.MediaTypes,
		Metrics:    metrics,
	}

	s.routes()
	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// OpenAPI returns the OpenAPI document of the API.
func (s *Server) OpenAPI() *huma.OpenAPI {
	return s.humaAPI.OpenAPI()
}

// Sessions returns the session manager.
func (s *Server) Sessions() *session.Manager { return s.sessions }

// Close stops every session and closes the journal.
func (s *Server) Close() error {
	s.sessions.Shutdown()
	if s.journal != nil {
		return s.journal.Close()
	}
	return nil
}

func (s *Server) routes() {
	// Huma REST API routes (OpenAPI-documented JSON endpoints) plus the
	// Datastar session stream
	api.RegisterRoutes(s.humaAPI, s.services)
	api.NewInfoHandler(s.config.DataDir, s.journal != nil).RegisterRoutes(s.humaAPI)

	s.mux.Handle("/metrics", metric.Handler(s.registry))
	s.mux.HandleFunc("/", s.handleRoot)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Add("Link", `</health>; rel="health"`)
	w.Header().Add("Link", `</docs>; rel="service-doc"`)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"service": "plat-viewer",
		"status":  "running",
	})
}
