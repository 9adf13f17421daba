package cache

import (
	"encoding/json"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var defaultPatterns = []string{"/filter-options/*"}

// fakeClock is a settable time source crossing TTL boundaries without
// sleeping.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func newTestCache(clock *fakeClock) *ResponseCache {
	return New(5*time.Minute, 100, defaultPatterns, WithClock(clock.Now))
}

func TestLookup_MissWhenEmpty(t *testing.T) {
	c := newTestCache(&fakeClock{now: time.Now()})

	_, ok := c.Lookup("/filter-options/campuses", nil)
	assert.False(t, ok)
}

func TestStoreAndLookup_Hit(t *testing.T) {
	c := newTestCache(&fakeClock{now: time.Now()})
	payload := json.RawMessage(`[{"value":"north"}]`)

	c.Store("/filter-options/campuses", nil, payload)

	got, ok := c.Lookup("/filter-options/campuses", nil)
	assert.True(t, ok)
	assert.Equal(t, payload, got)
}

func TestLookup_TTLBoundaries(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)}
	c := newTestCache(clock)

	c.Store("/filter-options/campuses", nil, json.RawMessage(`"v"`))

	clock.Advance(4*time.Minute + 59*time.Second)
	_, ok := c.Lookup("/filter-options/campuses", nil)
	assert.True(t, ok, "entry must still be valid just inside the TTL")

	clock.Advance(2 * time.Second) // now 5m01s after store
	_, ok = c.Lookup("/filter-options/campuses", nil)
	assert.False(t, ok, "entry must be treated as absent past the TTL")
}

func TestLookup_ExactTTLIsAMiss(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	c := newTestCache(clock)

	c.Store("/filter-options/terms", nil, json.RawMessage(`"v"`))

	clock.Advance(5 * time.Minute)
	_, ok := c.Lookup("/filter-options/terms", nil)
	assert.False(t, ok)
}

func TestLookup_ParameterSensitiveKeying(t *testing.T) {
	c := newTestCache(&fakeClock{now: time.Now()})

	c.Store("/filter-options/departments", url.Values{"campus": {"north"}}, json.RawMessage(`"v1"`))

	_, ok := c.Lookup("/filter-options/departments", url.Values{"campus": {"south"}})
	assert.False(t, ok, "different parameter values must not share an entry")

	got, ok := c.Lookup("/filter-options/departments", url.Values{"campus": {"north"}})
	assert.True(t, ok)
	assert.Equal(t, json.RawMessage(`"v1"`), got)
}

func TestKey_ParameterOrderIndependent(t *testing.T) {
	a := url.Values{"campus": {"north"}, "term": {"2026-1"}}
	b := url.Values{"term": {"2026-1"}, "campus": {"north"}}

	assert.Equal(t, Key("/filter-options/departments", a), Key("/filter-options/departments", b))
}

func TestStore_NonCacheableEndpointIgnored(t *testing.T) {
	c := newTestCache(&fakeClock{now: time.Now()})

	c.Store("/dashboards/admin", nil, json.RawMessage(`"v"`))

	_, ok := c.Lookup("/dashboards/admin", nil)
	assert.False(t, ok)
}

func TestCacheable_AllowListIsExplicit(t *testing.T) {
	c := newTestCache(&fakeClock{now: time.Now()})

	cases := []struct {
		endpoint string
		want     bool
	}{
		{"/filter-options/campuses", true},
		{"/filter-options/terms", true},
		{"/dashboards/admin", false},
		{"/courses", false},
		// a path merely containing the text must not match the pattern
		{"/reports/filter-options-export", false},
	}

	for _, tc := range cases {
		t.Run(tc.endpoint, func(t *testing.T) {
			assert.Equal(t, tc.want, c.Cacheable(tc.endpoint))
		})
	}
}

func TestStore_OverwritesPriorEntry(t *testing.T) {
	c := newTestCache(&fakeClock{now: time.Now()})

	c.Store("/filter-options/campuses", nil, json.RawMessage(`"old"`))
	c.Store("/filter-options/campuses", nil, json.RawMessage(`"new"`))

	got, ok := c.Lookup("/filter-options/campuses", nil)
	assert.True(t, ok)
	assert.Equal(t, json.RawMessage(`"new"`), got)
}

func TestInvalidateAll_ClearsEveryEntry(t *testing.T) {
	c := newTestCache(&fakeClock{now: time.Now()})

	c.Store("/filter-options/campuses", nil, json.RawMessage(`"a"`))
	c.Store("/filter-options/terms", nil, json.RawMessage(`"b"`))

	c.InvalidateAll()

	_, ok := c.Lookup("/filter-options/campuses", nil)
	assert.False(t, ok)
	_, ok = c.Lookup("/filter-options/terms", nil)
	assert.False(t, ok)
}

func TestStore_StaleEntryReplacedOnNextWrite(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	c := newTestCache(clock)

	c.Store("/filter-options/campuses", nil, json.RawMessage(`"old"`))
	clock.Advance(6 * time.Minute)

	// stale entry reads as a miss, then a fresh write replaces it
	_, ok := c.Lookup("/filter-options/campuses", nil)
	assert.False(t, ok)

	c.Store("/filter-options/campuses", nil, json.RawMessage(`"new"`))
	got, ok := c.Lookup("/filter-options/campuses", nil)
	assert.True(t, ok)
	assert.Equal(t, json.RawMessage(`"new"`), got)
}
