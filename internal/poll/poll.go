package poll

import (
	"context"
	"errors"
	"sync"
	"time"

	"ragdash/internal/clock"
	"ragdash/internal/logging"
)

type State int

const (
	StateIdle State = iota
	StatePolling
	StateTerminal
	StateStopped
)

func (s State) String() string {
	switch s {
	case StatePolling:
		return "polling"
	case StateTerminal:
		return "terminal"
	case StateStopped:
		return "stopped"
	default:
		return "idle"
	}
}

// Config describes one polled resource. Fetch is expected to read through
// the query cache so polled results land in the shared entry.
type Config[T any] struct {
	Name     string
	Interval time.Duration
	Fetch    func(ctx context.Context) (T, error)
	// Terminal reports whether no further reads are needed. A nil Terminal
	// polls until Stop.
	Terminal func(T) bool
	// OnUpdate runs after every successful read.
	OnUpdate func(T)
	// OnTerminal runs once, when a read turns terminal after an earlier read
	// of the same session was not.
	OnTerminal func(T)
	OnError    func(error)
	Logger     logging.Logger
}

// Session re-reads one resource on a fixed interval until it turns terminal
// or is stopped.
type Session[T any] struct {
	sched  clock.Scheduler
	cfg    Config[T]
	logger logging.Logger

	mu        sync.Mutex
	state     State
	gen       int
	ctx       context.Context
	cancel    context.CancelFunc
	timer     clock.CancelFunc
	reads     int
	sawActive bool
	last      T
	hasLast   bool
	done      chan struct{}
	closed    bool
}

func New[T any](sched clock.Scheduler, cfg Config[T]) (*Session[T], error) {
	if cfg.Fetch == nil {
		return nil, errors.New("poll: fetch is required")
	}
	if cfg.Interval <= 0 {
		return nil, errors.New("poll: interval must be positive")
	}
	if sched == nil {
		sched = clock.Real()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	logger = logging.Component(logger, "poll")
	if cfg.Name != "" {
		logger = logger.With(logging.F("poll", cfg.Name))
	}
	return &Session[T]{
		sched:  sched,
		cfg:    cfg,
		logger: logger,
		done:   make(chan struct{}),
	}, nil
}

// Start schedules the first read with no delay. Later reads are scheduled
// Interval after the previous one finishes.
// Start is a no-op unless the session is idle.
func (s *Session[T]) Start(ctx context.Context) {
	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		return
	}
	s.beginLocked(ctx)
	s.mu.Unlock()
	s.logger.Debug("poll_start", logging.F("interval_ms", s.cfg.Interval.Milliseconds()))
}

// Restart abandons the current cycle and polls again from scratch. A
// restarted session can notify again.
func (s *Session[T]) Restart(ctx context.Context) {
	s.mu.Lock()
	s.haltLocked()
	s.closeLocked()
	s.done = make(chan struct{})
	s.closed = false
	s.reads = 0
	s.sawActive = false
	s.beginLocked(ctx)
	s.mu.Unlock()
	s.logger.Debug("poll_restart")
}

func (s *Session[T]) beginLocked(ctx context.Context) {
	s.gen++
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.state = StatePolling
	s.scheduleLocked(0)
}

func (s *Session[T]) haltLocked() {
	if s.timer != nil {
		s.timer()
		s.timer = nil
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// Stop cancels the pending timer and any read in flight. Results that land
// after Stop are dropped.
func (s *Session[T]) Stop() {
	s.mu.Lock()
	if s.state == StateTerminal || s.state == StateStopped {
		s.mu.Unlock()
		return
	}
	wasPolling := s.state == StatePolling
	s.state = StateStopped
	s.haltLocked()
	s.closeLocked()
	reads := s.reads
	s.mu.Unlock()
	if wasPolling {
		s.logger.Debug("poll_stop", logging.F("reads", reads))
	}
}

func (s *Session[T]) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Reads reports how many reads have completed.
func (s *Session[T]) Reads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads
}

// Last returns the most recent successful read.
func (s *Session[T]) Last() (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last, s.hasLast
}

// Done is closed once the session turns terminal or is stopped.
func (s *Session[T]) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

func (s *Session[T]) read(gen int) {
	s.mu.Lock()
	if s.state != StatePolling || s.gen != gen {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	ctx := s.ctx
	s.mu.Unlock()

	value, err := s.cfg.Fetch(ctx)

	s.mu.Lock()
	if s.state != StatePolling || s.gen != gen {
		s.mu.Unlock()
		return
	}
	s.reads++
	if err != nil {
		s.scheduleLocked(s.cfg.Interval)
		s.mu.Unlock()
		s.logger.Warn("poll_read_failed", logging.F("error", err))
		if s.cfg.OnError != nil {
			s.cfg.OnError(err)
		}
		return
	}
	s.last = value
	s.hasLast = true
	terminal := s.cfg.Terminal != nil && s.cfg.Terminal(value)
	notify := terminal && s.sawActive
	if terminal {
		s.state = StateTerminal
		s.haltLocked()
	} else {
		s.sawActive = true
		s.scheduleLocked(s.cfg.Interval)
	}
	reads := s.reads
	s.mu.Unlock()

	if s.cfg.OnUpdate != nil {
		s.cfg.OnUpdate(value)
	}
	if terminal {
		s.logger.Debug("poll_terminal", logging.F("reads", reads), logging.F("notify", notify))
		if notify && s.cfg.OnTerminal != nil {
			s.cfg.OnTerminal(value)
		}
		s.mu.Lock()
		if s.gen == gen {
			s.closeLocked()
		}
		s.mu.Unlock()
	}
}

func (s *Session[T]) scheduleLocked(d time.Duration) {
	gen := s.gen
	s.timer = s.sched.AfterFunc(d, func() {
		s.read(gen)
	})
}

func (s *Session[T]) closeLocked() {
	if !s.closed {
		s.closed = true
		close(s.done)
	}
}
