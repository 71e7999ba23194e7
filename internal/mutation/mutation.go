package mutation

import (
	"context"
	"errors"
	"sync"

	"ragdash/internal/logging"
	"ragdash/internal/query"
)

var ErrNoVariables = errors.New("mutation has not run")

type Status int

const (
	StatusIdle Status = iota
	StatusPending
	StatusSuccess
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return "idle"
	}
}

// State is the observable outcome of the current run.
type State[V, R any] struct {
	Status       Status
	Variables    V
	HasVariables bool
	Result       R
	Err          error
}

func (s State[V, R]) Pending() bool {
	return s.Status == StatusPending
}

type Func[V, R any] func(ctx context.Context, vars V) (R, error)

// Invalidator is the part of the query cache a mutation needs.
type Invalidator interface {
	Invalidate(ctx context.Context, prefix query.Key) error
}

type Options[V, R any] struct {
	Name string
	// OnSuccess runs for the current run only, before any invalidation.
	OnSuccess func(vars V, result R)
	// OnError runs for the current run only.
	OnError func(vars V, err error)
	// Invalidates lists the key prefixes a successful write makes stale. It
	// runs for every successful run, superseded or not.
	Invalidates func(vars V, result R) []query.Key
	Cache       Invalidator
	Logger      logging.Logger
}

// Mutation wraps one write operation. Runs are numbered; only the newest run
// updates State. Writes are never retried automatically.
type Mutation[V, R any] struct {
	fn     Func[V, R]
	opts   Options[V, R]
	logger logging.Logger

	mu        sync.Mutex
	run       uint64
	version   uint64
	state     State[V, R]
	listeners map[int]*listener[V, R]
	nextID    int
}

// listener receives states in version order. queued holds the newest
// version not yet handed to fn; one goroutine at a time drains it.
type listener[V, R any] struct {
	fn       func(State[V, R])
	next     State[V, R]
	queued   uint64
	sent     uint64
	draining bool
	removed  bool
}

func New[V, R any](fn Func[V, R], opts Options[V, R]) *Mutation[V, R] {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	logger = logging.Component(logger, "mutation")
	if opts.Name != "" {
		logger = logger.With(logging.F("mutation", opts.Name))
	}
	return &Mutation[V, R]{
		fn:        fn,
		opts:      opts,
		logger:    logger,
		listeners: map[int]*listener[V, R]{},
	}
}

// Run issues the write. The returned values always belong to this call even
// when a newer run has since replaced the observable state.
func (m *Mutation[V, R]) Run(ctx context.Context, vars V) (R, error) {
	m.mu.Lock()
	m.run++
	run := m.run
	m.setLocked(State[V, R]{Status: StatusPending, Variables: vars, HasVariables: true})
	m.mu.Unlock()
	m.notify()

	result, err := m.fn(ctx, vars)

	m.mu.Lock()
	current := run == m.run
	if current {
		if err != nil {
			m.setLocked(State[V, R]{Status: StatusError, Variables: vars, HasVariables: true, Err: err})
		} else {
			m.setLocked(State[V, R]{Status: StatusSuccess, Variables: vars, HasVariables: true, Result: result})
		}
	}
	m.mu.Unlock()

	if current {
		m.notify()
	}
	if err != nil {
		m.logger.Warn("mutation_failed",
			logging.F("run", run),
			logging.F("current", current),
			logging.F("error", err),
		)
		if current && m.opts.OnError != nil {
			m.opts.OnError(vars, err)
		}
		var zero R
		return zero, err
	}
	m.logger.Debug("mutation_succeeded", logging.F("run", run), logging.F("current", current))
	if current && m.opts.OnSuccess != nil {
		m.opts.OnSuccess(vars, result)
	}
	m.invalidate(ctx, vars, result)
	return result, nil
}

// Retry replays the variables of the most recent run.
func (m *Mutation[V, R]) Retry(ctx context.Context) (R, error) {
	m.mu.Lock()
	vars, ok := m.state.Variables, m.state.HasVariables
	m.mu.Unlock()
	if !ok {
		var zero R
		return zero, ErrNoVariables
	}
	return m.Run(ctx, vars)
}

// Reset returns the observable state to idle. A run still in flight keeps
// going but its result is no longer applied. The cache is untouched.
func (m *Mutation[V, R]) Reset() {
	m.mu.Lock()
	m.run++
	m.setLocked(State[V, R]{})
	m.mu.Unlock()
	m.notify()
}

func (m *Mutation[V, R]) State() State[V, R] {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Subscribe registers fn for state changes and returns a function that
// removes it. Calls to fn never overlap and never go back to an older
// state; a listener that falls behind skips straight to the latest one.
func (m *Mutation[V, R]) Subscribe(fn func(State[V, R])) func() {
	m.mu.Lock()
	m.nextID++
	id := m.nextID
	l := &listener[V, R]{fn: fn, queued: m.version, sent: m.version}
	m.listeners[id] = l
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		l.removed = true
		delete(m.listeners, id)
		m.mu.Unlock()
	}
}

func (m *Mutation[V, R]) setLocked(state State[V, R]) {
	m.version++
	m.state = state
}

// notify queues the current state for every listener and drains the ones
// no other goroutine is already delivering to.
func (m *Mutation[V, R]) notify() {
	m.mu.Lock()
	var drain []*listener[V, R]
	for _, l := range m.listeners {
		if m.version <= l.queued {
			continue
		}
		l.queued = m.version
		l.next = m.state
		if !l.draining {
			l.draining = true
			drain = append(drain, l)
		}
	}
	m.mu.Unlock()
	for _, l := range drain {
		m.drain(l)
	}
}

func (m *Mutation[V, R]) drain(l *listener[V, R]) {
	for {
		m.mu.Lock()
		if l.removed || l.sent >= l.queued {
			l.draining = false
			m.mu.Unlock()
			return
		}
		state := l.next
		l.sent = l.queued
		m.mu.Unlock()
		l.fn(state)
	}
}

func (m *Mutation[V, R]) invalidate(ctx context.Context, vars V, result R) {
	if m.opts.Invalidates == nil || m.opts.Cache == nil {
		return
	}
	for _, key := range m.opts.Invalidates(vars, result) {
		if len(key) == 0 {
			continue
		}
		if err := m.opts.Cache.Invalidate(ctx, key); err != nil {
			m.logger.Warn("invalidate_failed",
				logging.F("key", key.String()),
				logging.F("error", err),
			)
		}
	}
}
