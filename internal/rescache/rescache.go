// Package rescache is the console's shared cache of remote resources, keyed
// by (resource kind, canonical serialized params). It guarantees that
// identical concurrent reads collapse into one in-flight fetch, and that
// invalidation after a mutation is visible to the next read of the same key.
package rescache

import (
	"context"
	"strconv"
	"sync"

	"github.com/linnemanlabs/go-core/log"
	"golang.org/x/sync/singleflight"
)

// Key addresses one cached resource. Params must be a canonical serialization
// (e.g. url.Values.Encode, which sorts keys) so identical requests always
// produce identical keys.
type Key struct {
	Kind   string
	Params string
}

// String renders the key in kind?params form.
func (k Key) String() string {
	return k.Kind + "?" + k.Params
}

// flightKey scopes singleflight grouping to one generation of a key, so a
// fetch started after an invalidation never joins one started before it.
func flightKey(key Key, gen uint64) string {
	return key.String() + "#" + strconv.FormatUint(gen, 10)
}

// FetchFunc retrieves the resource from the backend.
type FetchFunc func(ctx context.Context) (any, error)

// Subscriber is notified when a fresh value lands for a key it watches.
type Subscriber func(key Key, value any)

type entry struct {
	value any
	ok    bool
	stale bool
	gen   uint64 // bumped on every invalidation
	fetch FetchFunc
	subs  map[int64]Subscriber
}

// Cache is the process-wide resource cache. Safe for concurrent use.
type Cache struct {
	mu      sync.Mutex
	entries map[Key]*entry
	nextSub int64
	group   singleflight.Group
	logger  log.Logger
	metrics *Metrics
}

// New creates an empty cache. logger and metrics may be nil.
func New(logger log.Logger, metrics *Metrics) *Cache {
	if logger == nil {
		logger = log.Nop()
	}
	return &Cache{
		entries: make(map[Key]*entry),
		logger:  logger,
		metrics: metrics,
	}
}

func (c *Cache) ensure(key Key) *entry {
	e, ok := c.entries[key]
	if !ok {
		e = &entry{subs: make(map[int64]Subscriber)}
		c.entries[key] = e
	}
	return e
}

// Get returns the cached value for key, fetching it if absent or stale.
// Concurrent calls for the same key share a single in-flight fetch; every
// caller receives the same resolved value or the same error. The fetch
// function is retained so invalidation can refresh subscribed keys.
func (c *Cache) Get(ctx context.Context, key Key, fetch FetchFunc) (any, error) {
	c.mu.Lock()
	e := c.ensure(key)
	e.fetch = fetch
	if e.ok && !e.stale {
		v := e.value
		c.mu.Unlock()
		if c.metrics != nil {
			c.metrics.Hits.WithLabelValues(key.Kind).Inc()
		}
		return v, nil
	}
	gen := e.gen
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.Misses.WithLabelValues(key.Kind).Inc()
	}

	v, err, shared := c.group.Do(flightKey(key, gen), func() (any, error) {
		v, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		c.store(key, gen, v)
		return v, nil
	})
	if shared && c.metrics != nil {
		c.metrics.SharedFetches.WithLabelValues(key.Kind).Inc()
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

// store saves a fetch result and notifies subscribers. A result from a
// generation that was invalidated while the fetch was in flight is discarded:
// it predates the mutation, and the entry must stay stale until a fetch
// started after the invalidation lands.
func (c *Cache) store(key Key, gen uint64, v any) {
	c.mu.Lock()
	e := c.ensure(key)
	if e.gen != gen {
		c.mu.Unlock()
		return
	}
	e.value = v
	e.ok = true
	e.stale = false
	subs := make([]Subscriber, 0, len(e.subs))
	for _, fn := range e.subs {
		subs = append(subs, fn)
	}
	c.mu.Unlock()

	for _, fn := range subs {
		fn(key, v)
	}
}

// Subscribe registers a callback for fresh values of key and returns a token
// for Unsubscribe. Unmounting a view unsubscribes; in-flight fetches still
// complete and update the cache harmlessly.
func (c *Cache) Subscribe(key Key, fn Subscriber) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextSub++
	id := c.nextSub
	c.ensure(key).subs[id] = fn
	return id
}

// Unsubscribe removes a subscription token.
func (c *Cache) Unsubscribe(key Key, id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		delete(e.subs, id)
	}
}

// Invalidate marks every entry of the given kind stale. Entries with active
// subscribers are refetched asynchronously; idle entries are simply refetched
// on their next Get.
func (c *Cache) Invalidate(ctx context.Context, kind string) {
	c.mu.Lock()
	var refresh []Key
	for key, e := range c.entries {
		if key.Kind != kind {
			continue
		}
		e.stale = true
		e.gen++
		if len(e.subs) > 0 && e.fetch != nil {
			refresh = append(refresh, key)
		}
	}
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.Invalidations.WithLabelValues(kind).Inc()
	}

	for _, key := range refresh {
		go c.refresh(context.WithoutCancel(ctx), key)
	}
}

// InvalidateKey marks a single entry stale without touching its siblings.
func (c *Cache) InvalidateKey(ctx context.Context, key Key) {
	c.mu.Lock()
	e, ok := c.entries[key]
	var refresh bool
	if ok {
		e.stale = true
		e.gen++
		refresh = len(e.subs) > 0 && e.fetch != nil
	}
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.Invalidations.WithLabelValues(key.Kind).Inc()
	}
	if refresh {
		go c.refresh(context.WithoutCancel(ctx), key)
	}
}

func (c *Cache) refresh(ctx context.Context, key Key) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok || e.fetch == nil {
		c.mu.Unlock()
		return
	}
	fetch := e.fetch
	gen := e.gen
	c.mu.Unlock()

	_, err, _ := c.group.Do(flightKey(key, gen), func() (any, error) {
		v, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		c.store(key, gen, v)
		return v, nil
	})
	if err != nil {
		// the entry stays stale; the next Get retries
		c.logger.Error(ctx, err, "cache refresh failed", "kind", key.Kind, "params", key.Params)
	}
}

// Peek returns the cached value without fetching, along with whether a fresh
// value is present.
func (c *Cache) Peek(key Key) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || !e.ok || e.stale {
		return nil, false
	}
	return e.value, true
}
