package abac

import (
	"fmt"
	"strconv"
	"time"

	"github.com/dgraph-io/ristretto"
)

// CachedAuthorizer decorates an AuthEngine with a decision cache. It
// never lives inside AuthEngine itself: the evaluator stays pure and
// stateless, and caching is strictly an outer concern applied to
// repeated (subject, resource, action) triples.
type CachedAuthorizer struct {
	engine *AuthEngine
	cache  *ristretto.Cache
	ttl    time.Duration
}

// CachedAuthorizerOption configures cache sizing.
type CachedAuthorizerOption func(*ristretto.Config)

// WithCacheCounters overrides ristretto's NumCounters (tracked-key
// estimate); default is 1e7, tuned for small policy sets.
func WithCacheCounters(n int64) CachedAuthorizerOption {
	return func(c *ristretto.Config) { c.NumCounters = n }
}

// WithCacheMaxCost overrides ristretto's MaxCost, the cache's total
// admitted-item budget (one cost unit per cached decision here).
func WithCacheMaxCost(n int64) CachedAuthorizerOption {
	return func(c *ristretto.Config) { c.MaxCost = n }
}

// NewCachedAuthorizer wraps e with a TTL-bounded decision cache.
func NewCachedAuthorizer(e *AuthEngine, ttl time.Duration, opts ...CachedAuthorizerOption) (*CachedAuthorizer, error) {
	if e == nil {
		return nil, fmt.Errorf("abac: auth engine is required")
	}
	cfg := &ristretto.Config{
		NumCounters: 1e7,
		MaxCost:     1 << 20,
		BufferItems: 64,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	cache, err := ristretto.NewCache(cfg)
	if err != nil {
		return nil, fmt.Errorf("abac: constructing decision cache: %w", err)
	}
	return &CachedAuthorizer{engine: e, cache: cache, ttl: ttl}, nil
}

// cacheKey is the memoization key for one authorization decision:
// subject ID, resource type, resource ID, and action. Resource type is
// included because two resources can share an ID across distinct
// types, which are distinct PolicyKeys and must not collide in the
// cache.
type cacheKey struct {
	subjectID    string
	resourceType string
	resourceID   string
	action       Action
}

// hash renders the key as a string ristretto can hash. Ristretto's
// non-generic KeyToHash panics on key types it doesn't special-case
// (string, []byte, and the integer kinds only — not structs), so the
// key is never passed to the cache directly. Each field is quoted so
// the field boundaries can't be confused by a separator appearing
// inside an ID.
func (k cacheKey) hash() string {
	return strconv.Quote(k.subjectID) + strconv.Quote(k.resourceType) + strconv.Quote(k.resourceID) + strconv.Quote(string(k.action))
}

func newCacheKey(subject, resource *Resource, action Action) cacheKey {
	return cacheKey{subjectID: subject.ID, resourceType: resource.Type, resourceID: resource.ID, action: action}
}

// IsAuthorized returns the cached decision for (subject, resource,
// action) if present and unexpired, otherwise evaluates via the
// wrapped engine and caches the result. Errors are never cached.
func (c *CachedAuthorizer) IsAuthorized(subject, resource *Resource, action Action, opts ...EvalOption) (bool, error) {
	key := newCacheKey(subject, resource, action).hash()
	if v, ok := c.cache.Get(key); ok {
		return v.(bool), nil
	}
	ok, err := c.engine.IsAuthorized(subject, resource, action, opts...)
	if err != nil {
		return false, err
	}
	c.cache.SetWithTTL(key, ok, 1, c.ttl)
	return ok, nil
}

// Invalidate drops a cached decision for one triple, needed whenever
// the underlying policy set or either entity's attributes change.
func (c *CachedAuthorizer) Invalidate(subject, resource *Resource, action Action) {
	c.cache.Del(newCacheKey(subject, resource, action).hash())
}

// InvalidateAll clears the entire decision cache, used after a policy
// bundle reload.
func (c *CachedAuthorizer) InvalidateAll() {
	c.cache.Clear()
}
