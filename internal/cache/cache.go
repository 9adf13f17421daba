// Package cache provides the time-boxed response cache used for
// slow-changing reference data. Entries are keyed by endpoint plus
// normalized query parameters and expire a fixed TTL after they were
// stored. Only endpoints on an explicit allow-list participate; every
// other endpoint always misses.
package cache

import (
	"encoding/json"
	"net/url"
	"path"
	"time"

	"github.com/maypok86/otter/v2"
	"github.com/maypok86/otter/v2/stats"
	"github.com/rs/zerolog/log"
)

type entry struct {
	payload  json.RawMessage
	storedAt time.Time
}

// ResponseCache is an in-memory cache of successful GET payloads, backed
// by otter. Expiry is checked against the cache's clock on lookup, so a
// stale entry is treated as a miss even before otter evicts it.
type ResponseCache struct {
	entries  *otter.Cache[string, entry]
	ttl      time.Duration
	patterns []string
	now      func() time.Time
	counter  *stats.Counter
}

// Option configures a ResponseCache.
type Option func(*ResponseCache)

// WithClock overrides the cache's time source. Tests use this to cross
// TTL boundaries without sleeping.
func WithClock(now func() time.Time) Option {
	return func(c *ResponseCache) {
		c.now = now
	}
}

// New creates a response cache with the given TTL, maximum entry count
// and cacheable endpoint patterns (path.Match syntax).
func New(ttl time.Duration, maxEntries int, patterns []string, opts ...Option) *ResponseCache {
	counter := stats.NewCounter()
	entries := otter.Must(&otter.Options[string, entry]{
		MaximumSize:      maxEntries,
		StatsRecorder:    counter,
		ExpiryCalculator: otter.ExpiryCreating[string, entry](ttl),
	})

	c := &ResponseCache{
		entries:  entries,
		ttl:      ttl,
		patterns: patterns,
		now:      time.Now,
		counter:  counter,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Cacheable reports whether the endpoint is on the allow-list. The list
// is deliberately explicit: reference-data endpoints opt in, nothing
// else is ever cached.
func (c *ResponseCache) Cacheable(endpoint string) bool {
	for _, pattern := range c.patterns {
		if ok, err := path.Match(pattern, endpoint); err == nil && ok {
			return true
		}
	}
	return false
}

// Key normalizes an endpoint and its query parameters into a cache key.
// url.Values.Encode sorts by parameter name, so parameter order never
// affects the key.
func Key(endpoint string, params url.Values) string {
	if len(params) == 0 {
		return endpoint
	}
	return endpoint + "?" + params.Encode()
}

// Lookup returns the cached payload for the endpoint and parameters, or
// a miss when there is no entry, the entry has aged past the TTL, or the
// endpoint is not cacheable.
func (c *ResponseCache) Lookup(endpoint string, params url.Values) (json.RawMessage, bool) {
	if !c.Cacheable(endpoint) {
		return nil, false
	}

	key := Key(endpoint, params)
	stored, ok := c.entries.GetEntry(key)
	if !ok {
		return nil, false
	}

	e := stored.Value
	if c.now().Sub(e.storedAt) >= c.ttl {
		// stale: evict so the next write starts fresh
		c.entries.Invalidate(key)
		return nil, false
	}

	log.Debug().Str("key", key).Time("storedAt", e.storedAt).Msg("response cache hit")
	return e.payload, true
}

// Store records the payload for the endpoint and parameters,
// unconditionally replacing any prior entry. Non-cacheable endpoints are
// ignored. Concurrent writes for the same key are last-write-wins.
func (c *ResponseCache) Store(endpoint string, params url.Values, payload json.RawMessage) {
	if !c.Cacheable(endpoint) {
		return
	}

	c.entries.Set(Key(endpoint, params), entry{
		payload:  payload,
		storedAt: c.now(),
	})
}

// InvalidateAll clears every entry. Called on logout so reference data
// never leaks across sessions.
func (c *ResponseCache) InvalidateAll() {
	c.entries.InvalidateAll()
}
