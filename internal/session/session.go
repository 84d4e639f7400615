// Package session keeps the live viewer sessions of the server. Each session
// owns a store and an epic engine running the viewer pipelines, and fans its
// reduced actions out to subscribers and to the journal.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/joeblew999/plat-viewer/internal/action"
	"github.com/joeblew999/plat-viewer/internal/epic"
	"github.com/joeblew999/plat-viewer/internal/host"
	"github.com/joeblew999/plat-viewer/internal/maplayer"
	"github.com/joeblew999/plat-viewer/internal/metric"
	"github.com/joeblew999/plat-viewer/internal/pipelines"
	"github.com/joeblew999/plat-viewer/internal/store"
)

// ErrSessionNotFound is returned for an unknown or closed session id.
var ErrSessionNotFound = errors.New("session not found")

// Recorder persists the reduced actions of a session.
type Recorder interface {
	Append(ctx context.Context, session string, seq uint64, a action.Action) error
	Delete(ctx context.Context, session string) error
}

// LayerSource provides the persistent layers a new session starts with.
type LayerSource interface {
	MapLayers() []maplayer.Layer
}

// Config holds what every session of a manager shares.
type Config struct {
	GeoServerURL string
	Locale       string
	Projection   string
	Pipelines    pipelines.Config
	Layers       LayerSource
	Journal      Recorder
	Metrics      *metric.Metrics
	Logger       *slog.Logger
}

// Options seed a new session. Empty fields fall back to the manager config.
type Options struct {
	Locale      string `json:"locale,omitempty" doc:"UI locale" example:"fr-CA"`
	AccessToken string `json:"accessToken,omitempty" doc:"Credential forwarded to GeoServer"`
	Projection  string `json:"projection,omitempty" doc:"Map projection" example:"EPSG:3857"`
}

// Session is one live viewer session.
type Session struct {
	ID      string
	Created time.Time

	engine  *epic.Engine
	initial store.State
	journal Recorder
	bus     *Bus
	seq     atomic.Uint64
	cancel  context.CancelFunc
	done    chan struct{}
}

// Snapshot returns the current state.
func (s *Session) Snapshot() store.State { return s.engine.Store().Snapshot() }

// Dispatch queues actions. With wait it blocks until every pipeline settled
// and returns the resulting state.
func (s *Session) Dispatch(ctx context.Context, wait bool, actions ...action.Action) (store.State, error) {
	if err := s.engine.Dispatch(actions...); err != nil {
		return store.State{}, fmt.Errorf("session %s: %w", s.ID, err)
	}
	if wait {
		if err := s.engine.WaitIdle(ctx); err != nil {
			return store.State{}, err
		}
	}
	return s.Snapshot(), nil
}

// Replay folds actions over the initial state of the session and makes the
// result current. Pipelines do not run: a journal already holds their output.
// The session journal is rewritten to exactly these actions, so replaying it
// again reproduces the state. Subscribers receive an action.Replayed event
// carrying the new state.
func (s *Session) Replay(ctx context.Context, source string, actions []action.Action) (store.State, error) {
	if err := s.engine.WaitIdle(ctx); err != nil {
		return store.State{}, err
	}
	st := s.initial
	for _, a := range actions {
		st = store.Reduce(st, a)
	}
	if s.journal != nil {
		if err := s.rewriteJournal(ctx, actions); err != nil {
			return store.State{}, fmt.Errorf("session %s: rewrite journal: %w", s.ID, err)
		}
	}
	s.engine.Store().Reset(st)

	seq := uint64(len(actions))
	s.seq.Store(seq)
	s.bus.Publish(Event{
		Session: s.ID,
		Seq:     seq,
		Action:  action.Replayed{Source: source, Actions: len(actions)},
		State:   st,
	})
	return st, nil
}

func (s *Session) rewriteJournal(ctx context.Context, actions []action.Action) error {
	if err := s.journal.Delete(ctx, s.ID); err != nil {
		return err
	}
	for i, a := range actions {
		if err := s.journal.Append(ctx, s.ID, uint64(i+1), a); err != nil {
			return err
		}
	}
	return nil
}

// Subscribe returns a channel of the session events.
func (s *Session) Subscribe() chan Event { return s.bus.Subscribe() }

// Unsubscribe stops the delivery to ch.
func (s *Session) Unsubscribe(ch chan Event) { s.bus.Unsubscribe(ch) }

// Seq returns the sequence number of the last reduced action.
func (s *Session) Seq() uint64 { return s.seq.Load() }

// Done is closed once the session engine stopped.
func (s *Session) Done() <-chan struct{} { return s.done }

func (s *Session) close() {
	s.cancel()
	<-s.done
	s.bus.closeAll()
}

// Info summarizes a session for listings.
type Info struct {
	ID      string    `json:"id" doc:"Session id"`
	Created time.Time `json:"created" doc:"Creation time"`
	Seq     uint64    `json:"seq" doc:"Number of reduced actions"`
}

// Manager creates, finds and closes sessions.
type Manager struct {
	cfg Config
	log *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates a manager.
func NewManager(cfg Config) *Manager {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Manager{
		cfg:      cfg,
		log:      cfg.Logger.With("component", "session"),
		sessions: make(map[string]*Session),
	}
}

// Create starts a new session.
func (m *Manager) Create(opts Options) *Session {
	id := uuid.NewString()
	log := m.log.With("session", id)

	hostOpts := host.Options{
		Projection:   firstOf(opts.Projection, m.cfg.Projection),
		Locale:       firstOf(opts.Locale, m.cfg.Locale),
		AccessToken:  opts.AccessToken,
		GeoServerURL: m.cfg.GeoServerURL,
	}
	if m.cfg.Layers != nil {
		hostOpts.Layers = m.cfg.Layers.MapLayers()
	}
	initial := store.New(hostOpts)

	pcfg := m.cfg.Pipelines
	pcfg.Logger = m.cfg.Logger.With("component", "pipelines", "session", id)

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		ID:      id,
		Created: time.Now().UTC(),
		initial: initial,
		journal: m.cfg.Journal,
		bus:     NewBus(),
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	s.engine = epic.New(store.NewStore(initial), pipelines.All(pcfg),
		epic.WithLogger(log),
		epic.WithMetrics(m.cfg.Metrics),
		epic.WithObserver(m.observer(s, log)),
	)

	go func() {
		defer close(s.done)
		if err := s.engine.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("engine stopped", "err", err)
		}
	}()

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()

	m.cfg.Metrics.SessionOpened()
	log.Info("session opened", "locale", hostOpts.Locale, "projection", initial.Host.Map.Projection)
	return s
}

func (m *Manager) observer(s *Session, log *slog.Logger) epic.Observer {
	return func(a action.Action, st store.State) {
		seq := s.seq.Add(1)
		s.bus.Publish(Event{Session: s.ID, Seq: seq, Action: a, State: st})
		if m.cfg.Journal == nil {
			return
		}
		if err := m.cfg.Journal.Append(context.Background(), s.ID, seq, a); err != nil {
			log.Warn("journal append failed", "seq", seq, "type", a.Type(), "err", err)
		}
	}
}

// Get finds a live session.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return s, nil
}

// List returns the live sessions, oldest first.
func (m *Manager) List() []Info {
	m.mu.RLock()
	out := make([]Info, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, Info{ID: s.ID, Created: s.Created, Seq: s.Seq()})
	}
	m.mu.RUnlock()
	slices.SortFunc(out, func(a, b Info) int {
		if c := a.Created.Compare(b.Created); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out
}

// Close stops a session and closes its subscribers.
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	s.close()
	m.cfg.Metrics.SessionClosed()
	m.log.Info("session closed", "session", id, "seq", s.Seq())
	return nil
}

// Shutdown closes every session.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()
	for _, s := range sessions {
		s.close()
		m.cfg.Metrics.SessionClosed()
	}
}

func firstOf(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
