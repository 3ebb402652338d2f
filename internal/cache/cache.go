// Copyright 2025 SirSeer, LLC
//
// Licensed under the Business Source License 1.1 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://mariadb.com/bsl11
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package cache provides the short-lived read-through response cache that
// sits between the fetch pipeline and the remote problem service.
//
// Entries are keyed by the logical identity of a request (endpoint plus its
// canonical query string) and live for a fixed TTL after insertion. There is
// no size bound: the key space is one entry per handle-scoped endpoint plus
// one per distinct filter combination the user has looked at.
//
// Failed fetches are never stored, so the next call for the same key goes
// back to the service. Concurrent misses for one key share a single fetch.
// The shared fetch is detached from any one caller's cancellation; each
// caller stops waiting when its own context ends.
package cache

import (
	"context"
	"net/url"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/sirseerhq/cf-tracker/internal/observability"
)

// DefaultTTL is how long an entry is served after insertion.
const DefaultTTL = 5 * time.Minute

// FetchFunc produces the payload for a key on a miss.
type FetchFunc func(ctx context.Context) (any, error)

type entry struct {
	payload    any
	insertedAt time.Time
}

// Cache is a TTL read-through cache safe for concurrent use.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry
	flight  singleflight.Group

	ttl          time.Duration
	fetchTimeout time.Duration
	now          func() time.Time
	metrics *observability.CacheMetrics

	hits   int64
	misses int64
}

// Option configures a Cache.
type Option func(*Cache)

// WithTTL overrides DefaultTTL. Non-positive values are ignored.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithFetchTimeout bounds a shared fetch, which no longer stops when the
// caller that started it goes away. Zero leaves it unbounded.
func WithFetchTimeout(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.fetchTimeout = d
		}
	}
}

// WithClock replaces time.Now, which lets tests step time deterministically.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// WithMetrics reports hits and misses to Prometheus collectors.
func WithMetrics(m *observability.CacheMetrics) Option {
	return func(c *Cache) {
		c.metrics = m
	}
}

// New creates an empty cache.
func New(opts ...Option) *Cache {
	c := &Cache{
		entries: make(map[string]entry),
		ttl:     DefaultTTL,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TTL returns the configured entry lifetime.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// Get returns the live payload for key, if any.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || c.expired(e) {
		return nil, false
	}
	return e.payload, true
}

// GetOrFetch returns the cached payload for key or calls fetch, stores its
// result and returns it. An error from fetch is returned as is and leaves the
// cache untouched. If ctx ends first, GetOrFetch returns ctx.Err() while the
// fetch carries on for the other callers and fills the cache.
func (c *Cache) GetOrFetch(ctx context.Context, key string, fetch FetchFunc) (any, error) {
	if payload, ok := c.Get(key); ok {
		c.recordHit()
		return payload, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.recordMiss()

	ch := c.flight.DoChan(key, func() (any, error) {
		// A caller that lost the race to the lock may find the entry filled.
		if payload, ok := c.Get(key); ok {
			return payload, nil
		}
		fctx, cancel := c.fetchContext(ctx)
		defer cancel()
		payload, err := fetch(fctx)
		if err != nil {
			return nil, err
		}
		c.Set(key, payload)
		return payload, nil
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if res.Shared && c.metrics != nil {
		c.metrics.Shared.Inc()
	}
	if res.Err != nil {
		return nil, res.Err
	}
	return res.Val, nil
}

// fetchContext keeps the values of the starting caller's ctx but not its
// cancellation.
func (c *Cache) fetchContext(ctx context.Context) (context.Context, context.CancelFunc) {
	fctx := context.WithoutCancel(ctx)
	if c.fetchTimeout > 0 {
		return context.WithTimeout(fctx, c.fetchTimeout)
	}
	return fctx, func() {}
}

// Set stores payload under key with the current clock time.
func (c *Cache) Set(key string, payload any) {
	c.mu.Lock()
	c.entries[key] = entry{payload: payload, insertedAt: c.now()}
	c.mu.Unlock()
}

// Invalidate drops key regardless of its age.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Purge drops every expired entry and returns how many were removed.
func (c *Cache) Purge() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, e := range c.entries {
		if c.expired(e) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Clear drops every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	clear(c.entries)
	c.mu.Unlock()
}

// Len returns the number of stored entries, expired ones included.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats holds lookup counters.
type Stats struct {
	Hits   int64
	Misses int64
}

// Stats returns the hit and miss counters.
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Stats{Hits: c.hits, Misses: c.misses}
}

func (c *Cache) expired(e entry) bool {
	return c.now().Sub(e.insertedAt) >= c.ttl
}

func (c *Cache) recordHit() {
	c.mu.Lock()
	c.hits++
	c.mu.Unlock()
	if c.metrics != nil {
		c.metrics.Hits.Inc()
	}
}

func (c *Cache) recordMiss() {
	c.mu.Lock()
	c.misses++
	c.mu.Unlock()
	if c.metrics != nil {
		c.metrics.Misses.Inc()
	}
}

// Fetch is the typed form of GetOrFetch. A payload of another type stored
// under key is treated as a miss and replaced.
func Fetch[T any](ctx context.Context, c *Cache, key string, fetch func(ctx context.Context) (T, error)) (T, error) {
	payload, err := c.GetOrFetch(ctx, key, func(ctx context.Context) (any, error) {
		return fetch(ctx)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	if typed, ok := payload.(T); ok {
		return typed, nil
	}

	c.Invalidate(key)
	value, err := fetch(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	c.Set(key, value)
	return value, nil
}

// Key builds the logical cache key for a request: the endpoint followed by
// its query parameters in sorted order. Empty values are dropped so that an
// unset filter and an absent one map to the same key.
func Key(endpoint string, params url.Values) string {
	clean := url.Values{}
	for name, values := range params {
		for _, v := range values {
			if v != "" {
				clean.Add(name, v)
			}
		}
	}
	if len(clean) == 0 {
		return endpoint
	}
	return endpoint + "?" + clean.Encode()
}
