// Package cachestore provides a generic expiring key/value store.
//
// Entries are spread over independently locked shards so that reads and
// writes for unrelated keys do not contend on a store-wide lock. Each entry
// may have an absolute expiration, a sliding expiration, or both. Expired
// entries are treated as missing when read, whether or not the periodic
// sweep has already removed them.
//
// When a capacity is configured, exceeding it triggers a compaction that
// evicts the least recently accessed entries. Every entry that leaves the
// store, for any reason, is reported to the configured eviction handler.
package cachestore

import (
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/cespare/xxhash/v2"
	logging "github.com/ipfs/go-log/v2"
)

var log = logging.Logger("cachestore")

var ErrClosed = errors.New("cache store closed")

// EvictionReason tells why an entry left the store.
type EvictionReason int

const (
	Expired EvictionReason = iota
	Removed
	Capacity
	Replaced
)

func (r EvictionReason) String() string {
	switch r {
	case Expired:
		return "expired"
	case Removed:
		return "removed"
	case Capacity:
		return "capacity"
	case Replaced:
		return "replaced"
	}
	return "unknown"
}

// EvictionFunc is called, outside of any store lock, for each entry that
// leaves the store.
type EvictionFunc[V any] func(key string, value V, reason EvictionReason)

type entry[V any] struct {
	value      V
	absolute   time.Time
	sliding    time.Duration
	lastAccess atomic.Int64
}

func (e *entry[V]) expired(now time.Time) bool {
	if !e.absolute.IsZero() && !now.Before(e.absolute) {
		return true
	}
	if e.sliding > 0 && now.UnixNano()-e.lastAccess.Load() >= int64(e.sliding) {
		return true
	}
	return false
}

type shard[V any] struct {
	mu      sync.RWMutex
	entries map[string]*entry[V]
}

type keyValue[V any] struct {
	key   string
	value V
}

type candidate[V any] struct {
	key        string
	e          *entry[V]
	lastAccess int64
}

type eviction[V any] struct {
	key    string
	value  V
	reason EvictionReason
}

// Store is a concurrent expiring key/value store.
type Store[V any] struct {
	cfg    config[V]
	shards []*shard[V]
	size   atomic.Int64

	compactMutex sync.Mutex
	closed       atomic.Bool
	closeOnce    sync.Once
	closing      chan struct{}
	sweepDone    chan struct{}
}

// New creates a new Store and starts its sweep goroutine if a sweep interval
// is configured.
func New[V any](options ...Option[V]) (*Store[V], error) {
	opts, err := getOpts(options)
	if err != nil {
		return nil, err
	}

	s := &Store[V]{
		cfg:     opts,
		shards:  make([]*shard[V], opts.shards),
		closing: make(chan struct{}),
	}
	for i := range s.shards {
		s.shards[i] = &shard[V]{entries: make(map[string]*entry[V])}
	}

	if opts.sweepInterval > 0 {
		s.sweepDone = make(chan struct{})
		go s.sweeper(opts.clock.Ticker(opts.sweepInterval))
	}
	return s, nil
}

func (s *Store[V]) shardFor(key string) *shard[V] {
	return s.shards[xxhash.Sum64String(key)%uint64(len(s.shards))]
}

// Get returns the value stored for key. The boolean is false if there is no
// live entry for key. Reading an entry resets its sliding expiration.
func (s *Store[V]) Get(key string) (V, bool) {
	var zero V
	if s.closed.Load() {
		return zero, false
	}
	now := s.cfg.clock.Now()
	sh := s.shardFor(key)

	sh.mu.RLock()
	e, ok := sh.entries[key]
	if ok && !e.expired(now) {
		e.lastAccess.Store(now.UnixNano())
		sh.mu.RUnlock()
		return e.value, true
	}
	sh.mu.RUnlock()

	if ok {
		s.removeIfExpired(sh, key, e, now)
	}
	return zero, false
}

// Put inserts or replaces the value for key and resets its expiration clocks.
func (s *Store[V]) Put(key string, value V, options ...PutOption) error {
	if s.closed.Load() {
		return ErrClosed
	}
	now := s.cfg.clock.Now()
	e := s.newEntry(value, now, options)
	sh := s.shardFor(key)

	sh.mu.Lock()
	old, replaced := sh.entries[key]
	sh.entries[key] = e
	sh.mu.Unlock()

	if replaced {
		reason := Replaced
		if old.expired(now) {
			reason = Expired
		}
		s.notify(eviction[V]{key: key, value: old.value, reason: reason})
	} else {
		s.size.Add(1)
	}
	s.compactIfNeeded()
	return nil
}

// GetOrAdd returns the live value for key, or stores and returns the value
// created by create. The boolean is true if the value was already present.
// create is called while the key's shard is locked and must not call back
// into the store.
func (s *Store[V]) GetOrAdd(key string, create func() (V, error), options ...PutOption) (V, bool, error) {
	var zero V
	if s.closed.Load() {
		return zero, false, ErrClosed
	}
	now := s.cfg.clock.Now()
	sh := s.shardFor(key)

	sh.mu.Lock()
	old, ok := sh.entries[key]
	if ok && !old.expired(now) {
		old.lastAccess.Store(now.UnixNano())
		sh.mu.Unlock()
		return old.value, true, nil
	}
	value, err := create()
	if err != nil {
		sh.mu.Unlock()
		return zero, false, err
	}
	sh.entries[key] = s.newEntry(value, now, options)
	sh.mu.Unlock()

	if ok {
		s.notify(eviction[V]{key: key, value: old.value, reason: Expired})
	} else {
		s.size.Add(1)
	}
	s.compactIfNeeded()
	return value, false, nil
}

// Delete removes the entry for key. It reports whether a live entry was
// removed.
func (s *Store[V]) Delete(key string) (bool, error) {
	if s.closed.Load() {
		return false, ErrClosed
	}
	now := s.cfg.clock.Now()
	sh := s.shardFor(key)

	sh.mu.Lock()
	e, ok := sh.entries[key]
	if ok {
		delete(sh.entries, key)
	}
	sh.mu.Unlock()

	if !ok {
		return false, nil
	}
	s.size.Add(-1)
	live := !e.expired(now)
	reason := Removed
	if !live {
		reason = Expired
	}
	s.notify(eviction[V]{key: key, value: e.value, reason: reason})
	return live, nil
}

// DeleteAll removes every entry for which match returns true, and returns
// the number of entries removed.
func (s *Store[V]) DeleteAll(match func(key string, value V) bool) (int, error) {
	if s.closed.Load() {
		return 0, ErrClosed
	}
	var evicted []eviction[V]
	for _, sh := range s.shards {
		sh.mu.Lock()
		for key, e := range sh.entries {
			if match == nil || match(key, e.value) {
				delete(sh.entries, key)
				evicted = append(evicted, eviction[V]{key: key, value: e.value, reason: Removed})
			}
		}
		sh.mu.Unlock()
	}
	s.size.Add(-int64(len(evicted)))
	s.notify(evicted...)
	return len(evicted), nil
}

// Range calls fn for each live entry until fn returns false. Each shard is
// copied before fn is called, so fn may call back into the store.
func (s *Store[V]) Range(fn func(key string, value V) bool) {
	now := s.cfg.clock.Now()
	for _, sh := range s.shards {
		sh.mu.RLock()
		live := make([]keyValue[V], 0, len(sh.entries))
		for key, e := range sh.entries {
			if !e.expired(now) {
				live = append(live, keyValue[V]{key, e.value})
			}
		}
		sh.mu.RUnlock()
		for _, item := range live {
			if !fn(item.key, item.value) {
				return
			}
		}
	}
}

// Keys returns the keys of all live entries.
func (s *Store[V]) Keys() []string {
	var keys []string
	s.Range(func(key string, _ V) bool {
		keys = append(keys, key)
		return true
	})
	return keys
}

// Len returns the number of entries held, including expired entries that
// have not yet been swept.
func (s *Store[V]) Len() int {
	return int(s.size.Load())
}

// Sweep removes all expired entries now.
func (s *Store[V]) Sweep() int {
	now := s.cfg.clock.Now()
	var evicted []eviction[V]
	for _, sh := range s.shards {
		sh.mu.Lock()
		for key, e := range sh.entries {
			if e.expired(now) {
				delete(sh.entries, key)
				evicted = append(evicted, eviction[V]{key: key, value: e.value, reason: Expired})
			}
		}
		sh.mu.Unlock()
	}
	if len(evicted) != 0 {
		s.size.Add(-int64(len(evicted)))
		log.Debugw("Swept expired entries", "cache", s.cfg.name, "count", len(evicted))
		s.notify(evicted...)
	}
	return len(evicted)
}

// Close stops the sweep goroutine. Further writes return ErrClosed and reads
// report every key as missing.
func (s *Store[V]) Close() error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		close(s.closing)
		if s.sweepDone != nil {
			<-s.sweepDone
		}
	})
	return nil
}

func (s *Store[V]) newEntry(value V, now time.Time, options []PutOption) *entry[V] {
	pc := putConfig{
		absolute: s.cfg.absolute,
		sliding:  s.cfg.sliding,
	}
	for _, opt := range options {
		opt(&pc)
	}
	e := &entry[V]{
		value:   value,
		sliding: pc.sliding,
	}
	if pc.absolute > 0 {
		e.absolute = now.Add(pc.absolute)
	}
	e.lastAccess.Store(now.UnixNano())
	return e
}

func (s *Store[V]) removeIfExpired(sh *shard[V], key string, e *entry[V], now time.Time) {
	sh.mu.Lock()
	cur, ok := sh.entries[key]
	// Only remove the exact entry seen expired; it may have been replaced.
	if !ok || cur != e || !cur.expired(now) {
		sh.mu.Unlock()
		return
	}
	delete(sh.entries, key)
	sh.mu.Unlock()

	s.size.Add(-1)
	s.notify(eviction[V]{key: key, value: e.value, reason: Expired})
}

func (s *Store[V]) compactIfNeeded() {
	if s.cfg.capacity == 0 || s.Len() <= s.cfg.capacity {
		return
	}
	if !s.compactMutex.TryLock() {
		// Compaction already in progress.
		return
	}
	defer s.compactMutex.Unlock()

	var candidates []candidate[V]
	for _, sh := range s.shards {
		sh.mu.RLock()
		for key, e := range sh.entries {
			candidates = append(candidates, candidate[V]{key, e, e.lastAccess.Load()})
		}
		sh.mu.RUnlock()
	}

	target := int(float64(s.cfg.capacity) * (1 - s.cfg.compaction))
	excess := len(candidates) - target
	if excess <= 0 {
		return
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].lastAccess < candidates[j].lastAccess
	})

	var evicted []eviction[V]
	for _, c := range candidates[:excess] {
		sh := s.shardFor(c.key)
		sh.mu.Lock()
		if cur, ok := sh.entries[c.key]; ok && cur == c.e {
			delete(sh.entries, c.key)
			evicted = append(evicted, eviction[V]{key: c.key, value: c.e.value, reason: Capacity})
		}
		sh.mu.Unlock()
	}
	s.size.Add(-int64(len(evicted)))
	log.Infow("Compacted cache", "cache", s.cfg.name, "evicted", len(evicted), "capacity", s.cfg.capacity)
	s.notify(evicted...)
}

func (s *Store[V]) notify(evicted ...eviction[V]) {
	if s.cfg.onEvict == nil {
		return
	}
	for _, ev := range evicted {
		s.cfg.onEvict(ev.key, ev.value, ev.reason)
	}
}

// sweeper periodically removes expired entries until the store is closed.
func (s *Store[V]) sweeper(ticker *clock.Ticker) {
	defer close(s.sweepDone)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Sweep()
		case <-s.closing:
			return
		}
	}
}
