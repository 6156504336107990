// Package cache holds values that expire after a period without access.
package cache

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"k8s.io/utils/clock"
)

// DefaultTTL is the idle period after which an entry expires.
const DefaultTTL = 10 * time.Minute

// Observer receives cache events. *metrics.Collector satisfies it.
type Observer interface {
	Hit()
	Miss()
	Evicted(n int)
}

type nopObserver struct{}

func (nopObserver) Hit()        {}
func (nopObserver) Miss()       {}
func (nopObserver) Evicted(int) {}

type settings struct {
	ttl      time.Duration
	clock    clock.WithTicker
	observer Observer
	logger   *zap.Logger
}

// Option configures a Cache.
type Option func(*settings)

// WithTTL sets the idle expiry. Non-positive values keep the default.
func WithTTL(ttl time.Duration) Option {
	return func(s *settings) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithClock sets the time source.
func WithClock(c clock.WithTicker) Option {
	return func(s *settings) {
		s.clock = c
	}
}

// WithObserver reports hits, misses and evictions to o.
func WithObserver(o Observer) Option {
	return func(s *settings) {
		if o != nil {
			s.observer = o
		}
	}
}

// WithLogger sets the logger used for eviction messages.
func WithLogger(l *zap.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}

type entry[V any] struct {
	value V
	// accessed is the last access time in unix nanoseconds.
	accessed atomic.Int64
}

// Cache maps keys to values and forgets entries that were not accessed for
// the configured TTL. Reads never block on writers; concurrent creations of
// the same key run the build function once.
type Cache[K comparable, V any] struct {
	settings

	entries sync.Map
	group   singleflight.Group
	keyFunc func(K) string
}

// New returns an empty cache. keyFunc renders a key as the string that
// identifies concurrent creations; when nil, keys are formatted with %v.
func New[K comparable, V any](keyFunc func(K) string, opts ...Option) *Cache[K, V] {
	s := settings{
		ttl:      DefaultTTL,
		clock:    clock.RealClock{},
		observer: nopObserver{},
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&s)
	}

	if keyFunc == nil {
		keyFunc = func(k K) string { return fmt.Sprintf("%v", k) }
	}

	return &Cache[K, V]{settings: s, keyFunc: keyFunc}
}

// TTL returns the idle expiry.
func (c *Cache[K, V]) TTL() time.Duration {
	return c.ttl
}

// Get returns the value for key and refreshes its access time.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	v, ok := c.lookup(key)
	if ok {
		c.observer.Hit()
	} else {
		c.observer.Miss()
	}

	return v, ok
}

// GetOrCreate returns the value for key, calling build when it is missing
// or expired. Failed builds are not cached.
func (c *Cache[K, V]) GetOrCreate(key K, build func() (V, error)) (V, error) {
	if v, ok := c.lookup(key); ok {
		c.observer.Hit()
		return v, nil
	}

	c.observer.Miss()

	res, err, _ := c.group.Do(c.keyFunc(key), func() (any, error) {
		if v, ok := c.lookup(key); ok {
			return v, nil
		}

		v, err := build()
		if err != nil {
			return nil, err
		}

		e := &entry[V]{value: v}
		e.accessed.Store(c.clock.Now().UnixNano())
		c.entries.Store(key, e)

		return v, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}

	return res.(V), nil
}

func (c *Cache[K, V]) lookup(key K) (V, bool) {
	var zero V

	raw, ok := c.entries.Load(key)
	if !ok {
		return zero, false
	}

	e := raw.(*entry[V])
	now := c.clock.Now()

	if c.expired(e, now) {
		if c.entries.CompareAndDelete(key, e) {
			c.observer.Evicted(1)
		}

		return zero, false
	}

	e.accessed.Store(now.UnixNano())

	return e.value, true
}

func (c *Cache[K, V]) expired(e *entry[V], now time.Time) bool {
	return now.Sub(time.Unix(0, e.accessed.Load())) >= c.ttl
}

// Sweep evicts every idle entry and returns how many were removed.
func (c *Cache[K, V]) Sweep() int {
	now := c.clock.Now()
	evicted := 0

	c.entries.Range(func(key, raw any) bool {
		if e := raw.(*entry[V]); c.expired(e, now) && c.entries.CompareAndDelete(key, e) {
			evicted++
		}

		return true
	})

	if evicted > 0 {
		c.observer.Evicted(evicted)
		c.logger.Debug("evicted idle cache entries", zap.Int("count", evicted), zap.Duration("ttl", c.ttl))
	}

	return evicted
}

// Run sweeps the cache every interval until ctx is done.
func (c *Cache[K, V]) Run(ctx context.Context, interval time.Duration) {
	ticker := c.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			c.Sweep()
		}
	}
}

// Len returns the number of entries, expired or not.
func (c *Cache[K, V]) Len() int {
	n := 0
	c.entries.Range(func(_, _ any) bool {
		n++
		return true
	})

	return n
}
