// Package epic runs the reactive pipelines of a session.
//
// An Engine owns one ordered action queue. A single loop goroutine pops an
// action, folds it into the store, publishes it to observers and hands it to
// every matching pipeline. Synchronous pipelines run inline; their output is
// appended to the queue in emission order. Asynchronous pipelines run in their
// own goroutine under a context that the next activation of the same pipeline
// cancels, and only the result of the latest activation is queued.
package epic

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/joeblew999/plat-viewer/internal/action"
	"github.com/joeblew999/plat-viewer/internal/metric"
	"github.com/joeblew999/plat-viewer/internal/store"
)

var (
	// ErrClosed is returned when dispatching into a stopped engine.
	ErrClosed = errors.New("engine closed")
	// ErrRunning is returned when Run is called twice.
	ErrRunning = errors.New("engine already running")
	// ErrPanic wraps a panic recovered from a pipeline.
	ErrPanic = errors.New("pipeline panicked")
)

// RunFunc derives follow-up actions from a triggering action and the state
// right after that action was reduced.
type RunFunc func(ctx context.Context, a action.Action, s store.State) ([]action.Action, error)

// Epic is one pipeline.
type Epic struct {
	Name string
	// Types lists the tags the pipeline listens to. Empty means every tag.
	Types []string
	// Filter further restricts activation on the action and the snapshot.
	Filter func(a action.Action, s store.State) bool
	Run    RunFunc
	// Async pipelines run outside the loop with switch-latest semantics.
	Async bool
	// Recover is emitted, before PipelineFailed, when Run fails.
	Recover []action.Action
}

func (e *Epic) matches(a action.Action, s store.State) (ok bool, err error) {
	if len(e.Types) > 0 && !action.Is(a, e.Types...) {
		return false, nil
	}
	if e.Filter == nil {
		return true, nil
	}
	defer func() {
		if r := recover(); r != nil {
			ok, err = false, fmt.Errorf("%w in filter: %v", ErrPanic, r)
		}
	}()
	return e.Filter(a, s), nil
}

func (e *Epic) invoke(ctx context.Context, a action.Action, s store.State) (out []action.Action, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()
	out, err = e.Run(ctx, a, s)
	return slices.DeleteFunc(out, func(a action.Action) bool { return a == nil }), err
}

// Observer receives every reduced action with the resulting state. It runs
// on the engine loop and must not block.
type Observer func(a action.Action, s store.State)

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithMetrics records pipeline activity.
func WithMetrics(m *metric.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithObserver registers an observer before the engine starts.
func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observers = append(e.observers, o) }
}

type activation struct {
	gen    uint64
	cancel context.CancelFunc
}

// Engine dispatches actions through the pipelines of one session.
type Engine struct {
	store   *store.Store
	epics   []Epic
	log     *slog.Logger
	metrics *metric.Metrics
	wake    chan struct{}

	mu        sync.Mutex
	base      context.Context
	queue     []action.Action
	busy      bool
	inflight  int
	running   []activation
	waiters   []chan struct{}
	observers []Observer
	started   bool
	closed    bool
}

// New creates an engine over st. The pipelines are tried in the given order.
func New(st *store.Store, epics []Epic, opts ...Option) *Engine {
	e := &Engine{
		store:   st,
		epics:   slices.Clone(epics),
		log:     slog.Default(),
		wake:    make(chan struct{}, 1),
		base:    context.Background(),
		running: make([]activation, len(epics)),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.log = e.log.With("component", "epic")
	return e
}

// Store returns the store the engine folds actions into.
func (e *Engine) Store() *store.Store { return e.store }

// Observe registers an observer.
func (e *Engine) Observe(o Observer) {
	e.mu.Lock()
	e.observers = append(e.observers, o)
	e.mu.Unlock()
}

// Dispatch appends actions to the queue.
func (e *Engine) Dispatch(actions ...action.Action) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	for _, a := range actions {
		if a != nil {
			e.queue = append(e.queue, a)
		}
	}
	e.signal()
	return nil
}

// Run processes the queue until ctx is done. Pipelines in flight are
// cancelled on return.
func (e *Engine) Run(ctx context.Context) error {
	e.mu.Lock()
	if e.started {
		e.mu.Unlock()
		return ErrRunning
	}
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	e.started = true
	e.base = ctx
	e.mu.Unlock()
	defer e.stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-e.wake:
		}
		e.drain()
	}
}

// WaitIdle blocks until the queue is empty and no pipeline is in flight.
func (e *Engine) WaitIdle(ctx context.Context) error {
	e.mu.Lock()
	if e.idleLocked() || e.closed {
		e.mu.Unlock()
		return nil
	}
	ch := make(chan struct{})
	e.waiters = append(e.waiters, ch)
	e.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Engine) drain() {
	for {
		e.mu.Lock()
		if len(e.queue) == 0 {
			e.busy = false
			e.notifyIdleLocked()
			e.mu.Unlock()
			return
		}
		a := e.queue[0]
		e.queue[0] = nil
		e.queue = e.queue[1:]
		e.busy = true
		observers := e.observers
		e.mu.Unlock()

		e.process(a, observers)
	}
}

func (e *Engine) process(a action.Action, observers []Observer) {
	s := e.store.Apply(a)
	e.metrics.Reduced(a.Type())
	for _, o := range observers {
		o(a, s)
	}

	for i := range e.epics {
		ep := &e.epics[i]
		ok, err := ep.matches(a, s)
		if err != nil {
			e.enqueue(e.failure(ep, a, err)...)
			continue
		}
		if !ok {
			continue
		}
		e.metrics.PipelineRun(ep.Name)
		if ep.Async {
			e.start(i, a, s)
			continue
		}
		out, err := ep.invoke(e.base, a, s)
		if err != nil {
			out = e.failure(ep, a, err)
		}
		e.enqueue(out...)
	}
}

// start launches an async activation, cancelling the previous one.
func (e *Engine) start(i int, a action.Action, s store.State) {
	ep := &e.epics[i]

	e.mu.Lock()
	prev := e.running[i]
	if prev.cancel != nil {
		prev.cancel()
	}
	ctx, cancel := context.WithCancel(e.base)
	gen := prev.gen + 1
	e.running[i] = activation{gen: gen, cancel: cancel}
	e.inflight++
	e.mu.Unlock()

	go func() {
		out, err := ep.invoke(ctx, a, s)
		cancel()
		e.finish(i, gen, a, out, err)
	}()
}

func (e *Engine) finish(i int, gen uint64, a action.Action, out []action.Action, err error) {
	ep := &e.epics[i]

	e.mu.Lock()
	defer e.mu.Unlock()
	e.inflight--
	defer e.notifyIdleLocked()

	if e.closed || e.base.Err() != nil {
		return
	}
	if e.running[i].gen != gen {
		e.metrics.PipelineSuperseded(ep.Name)
		e.log.Debug("discarding superseded result", "pipeline", ep.Name, "trigger", a.Type())
		return
	}
	e.running[i].cancel = nil
	if err != nil {
		out = e.failure(ep, a, err)
	}
	e.queue = append(e.queue, out...)
	e.signal()
}

func (e *Engine) failure(ep *Epic, trigger action.Action, err error) []action.Action {
	e.log.Warn("pipeline failed", "pipeline", ep.Name, "trigger", trigger.Type(), "err", err)
	e.metrics.PipelineFailed(ep.Name)
	out := slices.Clone(ep.Recover)
	return append(out, action.PipelineFailed{Pipeline: ep.Name, Error: err.Error()})
}

func (e *Engine) enqueue(actions ...action.Action) {
	if len(actions) == 0 {
		return
	}
	e.mu.Lock()
	e.queue = append(e.queue, actions...)
	e.mu.Unlock()
}

// signal wakes the loop. Callers hold mu.
func (e *Engine) signal() {
	select {
	case e.wake <- struct{}{}:
	default:
	}
}

func (e *Engine) idleLocked() bool {
	return len(e.queue) == 0 && e.inflight == 0 && !e.busy
}

func (e *Engine) notifyIdleLocked() {
	if !e.idleLocked() && !e.closed {
		return
	}
	for _, ch := range e.waiters {
		close(ch)
	}
	e.waiters = nil
}

func (e *Engine) stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	for i := range e.running {
		if c := e.running[i].cancel; c != nil {
			c()
		}
	}
	e.queue = nil
	e.notifyIdleLocked()
}
