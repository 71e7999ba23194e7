package query

import (
	"context"
	"sync"
)

// Listener receives a snapshot whenever the observed entry changes. It runs
// on the goroutine that changed the entry and must not call Unsubscribe on
// its own subscription.
type Listener func(Snapshot)

// Subscription keeps an entry alive and refreshed while a view shows it.
type Subscription struct {
	cache    *Cache
	key      Key
	id       int
	listener Listener

	mu     sync.Mutex
	active bool
}

// Subscribe registers listener for key. The current snapshot is delivered
// immediately when one exists, and a background load starts unless the
// entry is fresh or already loading.
func (c *Cache) Subscribe(key Key, fetcher Fetcher, listener Listener, opts ...ReadOption) *Subscription {
	policy := c.policy(opts)
	sub := &Subscription{cache: c, key: key.clone(), listener: listener, active: true}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		sub.active = false
		return sub
	}
	e := c.entryLocked(key)
	e.policy = policy
	if fetcher != nil {
		e.fetcher = fetcher
	}
	if e.gcCancel != nil {
		e.gcCancel()
		e.gcCancel = nil
	}
	c.nextSub++
	sub.id = c.nextSub
	e.subs[sub.id] = sub
	now := c.sched.Now()
	snapshot := e.snapshotLocked(now)
	needLoad := e.fetcher != nil && !e.fetching && !e.freshLocked(now)
	fetch := e.fetcher
	if needLoad {
		c.background.Add(1)
	}
	c.mu.Unlock()

	if snapshot.HasData || snapshot.Err != nil || snapshot.Status == StatusFetching {
		sub.deliver(snapshot)
	}
	if needLoad {
		c.stats.misses.Add(1)
		go func() {
			defer c.background.Done()
			_, _ = c.load(c.baseCtx, key, fetch, policy)
		}()
	} else if snapshot.Status == StatusFresh {
		c.stats.hits.Add(1)
	}
	return sub
}

func (s *Subscription) Key() Key {
	return s.key.clone()
}

// Refetch forces a reload of the subscribed key using its last fetcher.
func (s *Subscription) Refetch(ctx context.Context) (any, error) {
	c := s.cache
	c.mu.Lock()
	e, ok := c.entries[s.key.id()]
	if !ok || e.fetcher == nil {
		c.mu.Unlock()
		return nil, nil
	}
	fetch, policy := e.fetcher, e.policy
	c.mu.Unlock()
	return c.Refetch(ctx, s.key, fetch, withPolicy(policy))
}

// Unsubscribe detaches the listener. Once it returns the listener is never
// called again. The entry becomes eligible for eviction after its GC time
// when no other subscribers remain.
func (s *Subscription) Unsubscribe() {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return
	}
	s.active = false
	s.mu.Unlock()

	c := s.cache
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[s.key.id()]
	if !ok {
		return
	}
	delete(e.subs, s.id)
	if len(e.subs) == 0 && !e.fetching {
		c.scheduleGCLocked(e)
	}
}

func (s *Subscription) deliver(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active || s.listener == nil {
		return
	}
	s.listener(snapshot)
}

func withPolicy(p readPolicy) ReadOption {
	return func(dst *readPolicy) {
		*dst = p
	}
}
