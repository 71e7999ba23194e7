package query

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"ragdash/internal/clock"
	"ragdash/internal/logging"
)

// A read that races an invalidation reloads at most this many times before
// returning whatever it has.
const maxStaleReloads = 3

var ErrClosed = errors.New("query cache closed")

// Fetcher loads the value for one key. The context is detached from the
// caller that started the fetch so a shared request survives any single
// reader giving up.
type Fetcher func(ctx context.Context) (any, error)

type Status int

const (
	StatusEmpty Status = iota
	StatusFetching
	StatusFresh
	StatusStale
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusFetching:
		return "fetching"
	case StatusFresh:
		return "fresh"
	case StatusStale:
		return "stale"
	case StatusError:
		return "error"
	default:
		return "empty"
	}
}

// Snapshot is a point-in-time view of one entry. Data keeps the last good
// value even when Err reports a later failure.
type Snapshot struct {
	Key       Key
	Data      any
	HasData   bool
	Err       error
	Status    Status
	FetchedAt time.Time
}

type Stats struct {
	Hits          uint64
	Misses        uint64
	Fetches       uint64
	Deduplicated  uint64
	Retries       uint64
	Invalidations uint64
	Evictions     uint64
	Entries       int
}

type counters struct {
	hits          atomic.Uint64
	misses        atomic.Uint64
	fetches       atomic.Uint64
	deduplicated  atomic.Uint64
	retries       atomic.Uint64
	invalidations atomic.Uint64
	evictions     atomic.Uint64
}

type entry struct {
	key         Key
	data        any
	hasData     bool
	err         error
	fetchedAt   time.Time
	invalidated bool
	generation  int
	fetching    bool
	policy      readPolicy
	fetcher     Fetcher
	subs        map[int]*Subscription
	gcCancel    clock.CancelFunc
}

// Cache stores server reads by Key with per-key freshness, single-flight
// fetching, prefix invalidation and idle eviction.
type Cache struct {
	sched  clock.Scheduler
	cfg    Config
	logger logging.Logger
	group  singleflight.Group
	stats  counters

	baseCtx    context.Context
	cancelBase context.CancelFunc
	background sync.WaitGroup

	mu      sync.Mutex
	entries map[string]*entry
	nextSub int
	closed  bool
}

func New(sched clock.Scheduler, cfg Config) *Cache {
	if sched == nil {
		sched = clock.Real()
	}
	cfg = cfg.normalized()
	ctx, cancel := context.WithCancel(context.Background())
	return &Cache{
		sched:      sched,
		cfg:        cfg,
		logger:     logging.Component(cfg.Logger, "query"),
		baseCtx:    ctx,
		cancelBase: cancel,
		entries:    map[string]*entry{},
	}
}

// Fetch returns the cached value when it is fresh and otherwise loads it,
// joining any fetch already in flight for the same key.
func (c *Cache) Fetch(ctx context.Context, key Key, fetcher Fetcher, opts ...ReadOption) (any, error) {
	if fetcher == nil {
		return nil, errors.New("query: fetcher is required")
	}
	policy := c.policy(opts)
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	e := c.entryLocked(key)
	e.policy = policy
	e.fetcher = fetcher
	if e.freshLocked(c.sched.Now()) {
		data := e.data
		c.mu.Unlock()
		c.stats.hits.Add(1)
		return data, nil
	}
	c.mu.Unlock()
	c.stats.misses.Add(1)
	return c.load(ctx, key, fetcher, policy)
}

// Refetch loads the key regardless of freshness. Concurrent callers still
// share one request.
func (c *Cache) Refetch(ctx context.Context, key Key, fetcher Fetcher, opts ...ReadOption) (any, error) {
	if fetcher == nil {
		return nil, errors.New("query: fetcher is required")
	}
	policy := c.policy(opts)
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	e := c.entryLocked(key)
	e.policy = policy
	e.fetcher = fetcher
	c.mu.Unlock()
	return c.load(ctx, key, fetcher, policy)
}

// Invalidate marks every entry whose key starts with prefix as stale and
// refetches the ones that have subscribers. It returns after those refetches
// finish, with the first error any of them hit.
func (c *Cache) Invalidate(ctx context.Context, prefix Key) error {
	c.stats.invalidations.Add(1)
	type target struct {
		key     Key
		fetcher Fetcher
		policy  readPolicy
	}
	var targets []target
	var notices []notice
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	now := c.sched.Now()
	for _, e := range c.entries {
		if !e.key.HasPrefix(prefix) {
			continue
		}
		e.invalidated = true
		e.generation++
		if len(e.subs) == 0 || e.fetcher == nil {
			continue
		}
		targets = append(targets, target{key: e.key, fetcher: e.fetcher, policy: e.policy})
		notices = append(notices, e.noticeLocked(now))
	}
	c.mu.Unlock()
	deliver(notices)

	if len(targets) > 0 {
		c.logger.Debug("invalidate_refetch",
			logging.F("prefix", prefix.String()),
			logging.F("active", len(targets)),
		)
	}
	var g errgroup.Group
	g.SetLimit(c.cfg.RefetchConcurrency)
	for _, t := range targets {
		g.Go(func() error {
			_, err := c.load(ctx, t.key, t.fetcher, t.policy)
			return err
		})
	}
	return g.Wait()
}

// Peek reports the current entry for key without fetching.
func (c *Cache) Peek(key Key) (Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key.id()]
	if !ok {
		return Snapshot{Key: key.clone()}, false
	}
	return e.snapshotLocked(c.sched.Now()), true
}

func (c *Cache) Stats() Stats {
	c.mu.Lock()
	entries := len(c.entries)
	c.mu.Unlock()
	return Stats{
		Hits:          c.stats.hits.Load(),
		Misses:        c.stats.misses.Load(),
		Fetches:       c.stats.fetches.Load(),
		Deduplicated:  c.stats.deduplicated.Load(),
		Retries:       c.stats.retries.Load(),
		Invalidations: c.stats.invalidations.Load(),
		Evictions:     c.stats.evictions.Load(),
		Entries:       entries,
	}
}

// Wait blocks until background loads started by Subscribe have finished.
func (c *Cache) Wait() {
	c.background.Wait()
}

// Close cancels in-flight fetches and pending eviction timers. Reads after
// Close fail with ErrClosed.
func (c *Cache) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	for _, e := range c.entries {
		if e.gcCancel != nil {
			e.gcCancel()
			e.gcCancel = nil
		}
	}
	c.mu.Unlock()
	c.cancelBase()
	c.background.Wait()
}

func (c *Cache) policy(opts []ReadOption) readPolicy {
	p := readPolicy{
		staleTime:  c.cfg.StaleTime,
		gcTime:     c.cfg.GCTime,
		retry:      c.cfg.Retry,
		retryDelay: c.cfg.RetryDelay,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&p)
		}
	}
	return p
}

func (c *Cache) entryLocked(key Key) *entry {
	id := key.id()
	e, ok := c.entries[id]
	if !ok {
		e = &entry{key: key.clone(), subs: map[int]*Subscription{}}
		c.entries[id] = e
	}
	return e
}

// load runs a shared fetch and reloads when an invalidation landed while the
// shared request was in flight.
func (c *Cache) load(ctx context.Context, key Key, fetcher Fetcher, policy readPolicy) (any, error) {
	var data any
	var err error
	for range maxStaleReloads {
		data, err = c.shared(ctx, key, fetcher, policy)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		e, ok := c.entries[key.id()]
		stale := ok && e.invalidated
		c.mu.Unlock()
		if !stale {
			break
		}
	}
	return data, nil
}

func (c *Cache) shared(ctx context.Context, key Key, fetcher Fetcher, policy readPolicy) (any, error) {
	id := key.id()
	c.mu.Lock()
	if e, ok := c.entries[id]; ok && e.fetching {
		c.stats.deduplicated.Add(1)
	}
	c.mu.Unlock()

	ch := c.group.DoChan(id, func() (any, error) {
		fetchCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		defer cancel()
		stop := context.AfterFunc(c.baseCtx, cancel)
		defer stop()
		return c.run(fetchCtx, key, fetcher, policy)
	})
	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Cache) run(ctx context.Context, key Key, fetcher Fetcher, policy readPolicy) (any, error) {
	generation, ok := c.beginFetch(key)
	if !ok {
		return nil, ErrClosed
	}
	c.stats.fetches.Add(1)
	started := c.sched.Now()

	var data any
	var err error
	for attempt := 0; ; attempt++ {
		data, err = fetcher(ctx)
		if err == nil || attempt >= policy.retry || !shouldRetry(err) {
			break
		}
		c.stats.retries.Add(1)
		c.logger.Debug("fetch_retry",
			logging.F("key", key.String()),
			logging.F("attempt", attempt+1),
			logging.F("error", err),
		)
		if !clock.Sleep(c.sched, policy.retryDelay, ctx.Done()) {
			break
		}
	}
	if err != nil {
		c.logger.Warn("fetch_failed",
			logging.F("key", key.String()),
			logging.F("error", err),
		)
	} else {
		c.logger.Debug("fetch_done",
			logging.F("key", key.String()),
			logging.F("duration_ms", c.sched.Now().Sub(started).Milliseconds()),
		)
	}
	c.settle(key, generation, data, err)
	return data, err
}

func (c *Cache) beginFetch(key Key) (int, bool) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return 0, false
	}
	e := c.entryLocked(key)
	e.fetching = true
	if e.gcCancel != nil {
		e.gcCancel()
		e.gcCancel = nil
	}
	generation := e.generation
	n := e.noticeLocked(c.sched.Now())
	c.mu.Unlock()
	deliver([]notice{n})
	return generation, true
}

// settle records a finished fetch. The last response to land wins; data from
// a fetch that started before an invalidation stays marked stale.
func (c *Cache) settle(key Key, generation int, data any, err error) {
	c.mu.Lock()
	e, ok := c.entries[key.id()]
	if !ok || c.closed {
		c.mu.Unlock()
		return
	}
	now := c.sched.Now()
	e.fetching = false
	if err != nil {
		e.err = err
	} else {
		e.data = data
		e.hasData = true
		e.err = nil
		e.fetchedAt = now
		e.invalidated = generation != e.generation
	}
	if len(e.subs) == 0 {
		c.scheduleGCLocked(e)
	}
	n := e.noticeLocked(now)
	c.mu.Unlock()
	deliver([]notice{n})
}

func (c *Cache) scheduleGCLocked(e *entry) {
	if e.gcCancel != nil || c.closed {
		return
	}
	id := e.key.id()
	e.gcCancel = c.sched.AfterFunc(e.policy.gcTime, func() {
		c.evict(id)
	})
}

func (c *Cache) evict(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[id]
	if !ok {
		return
	}
	e.gcCancel = nil
	if len(e.subs) > 0 || e.fetching {
		return
	}
	delete(c.entries, id)
	c.stats.evictions.Add(1)
	c.logger.Debug("evict", logging.F("key", e.key.String()))
}

func (e *entry) freshLocked(now time.Time) bool {
	if !e.hasData || e.invalidated {
		return false
	}
	return now.Sub(e.fetchedAt) < e.policy.staleTime
}

func (e *entry) statusLocked(now time.Time) Status {
	switch {
	case e.fetching:
		return StatusFetching
	case e.err != nil:
		return StatusError
	case !e.hasData:
		return StatusEmpty
	case e.freshLocked(now):
		return StatusFresh
	default:
		return StatusStale
	}
}

func (e *entry) snapshotLocked(now time.Time) Snapshot {
	return Snapshot{
		Key:       e.key.clone(),
		Data:      e.data,
		HasData:   e.hasData,
		Err:       e.err,
		Status:    e.statusLocked(now),
		FetchedAt: e.fetchedAt,
	}
}

type notice struct {
	snapshot Snapshot
	subs     []*Subscription
}

func (e *entry) noticeLocked(now time.Time) notice {
	n := notice{snapshot: e.snapshotLocked(now)}
	for _, sub := range e.subs {
		n.subs = append(n.subs, sub)
	}
	return n
}

func deliver(notices []notice) {
	for _, n := range notices {
		for _, sub := range n.subs {
			sub.deliver(n.snapshot)
		}
	}
}

type retryable interface {
	IsRetryable() bool
}

func shouldRetry(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var r retryable
	if errors.As(err, &r) {
		return r.IsRetryable()
	}
	return true
}
