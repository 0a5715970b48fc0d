// Package query wraps namespace calls with a read cache, bounded retries and
// in-flight deduplication. Mutations never share the read cache; callers
// invalidate affected entries explicitly after a successful mutation.
package query

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"shopfront/internal/gateway"
	"shopfront/internal/logger"
)

// DefaultTTL is the staleness window: a fetched result is reusable without
// re-fetching for this long.
const DefaultTTL = 5 * time.Minute

// DefaultMaxAttempts caps transport calls per fetch, first try included.
const DefaultMaxAttempts = 3

// ErrDisabled is returned when a fetch is requested with the Disabled option;
// no network call is issued.
var ErrDisabled = errors.New("query: fetch disabled")

// FetchFunc performs the underlying namespace call.
type FetchFunc func(ctx context.Context) (any, error)

// Options tune a single fetch.
type Options struct {
	TTL          time.Duration // Staleness override; zero means the orchestrator default
	Refetch      bool          // Bypass staleness and hit the network
	Disabled     bool          // Issue no call at all
	RetryOnParse bool          // Also retry parse failures (off by default)
}

// Config holds orchestrator construction parameters.
type Config struct {
	TTL         time.Duration
	MaxAttempts int
	RetryDelay  time.Duration    // Linear backoff unit between attempts
	Now         func() time.Time // Injectable clock for tests
}

// Orchestrator is the caching/retry layer over the typed namespaces.
type Orchestrator struct {
	mu          sync.Mutex
	entries     map[string]cacheEntry
	group       singleflight.Group
	ttl         time.Duration
	maxAttempts int
	retryDelay  time.Duration
	now         func() time.Time
}

type cacheEntry struct {
	value     any
	fetchedAt time.Time
}

// New creates an orchestrator with the given configuration; zero values fall
// back to defaults.
func New(cfg Config) *Orchestrator {
	ttl := cfg.TTL
	if ttl == 0 {
		ttl = DefaultTTL
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts == 0 {
		maxAttempts = DefaultMaxAttempts
	}
	retryDelay := cfg.RetryDelay
	if retryDelay == 0 {
		retryDelay = 200 * time.Millisecond
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Orchestrator{
		entries:     make(map[string]cacheEntry),
		ttl:         ttl,
		maxAttempts: maxAttempts,
		retryDelay:  retryDelay,
		now:         now,
	}
}

// Key derives the cache key from the operation name and a stable serialization
// of its parameters. Map keys are sorted by encoding/json, so parameter order
// never splits the cache.
func Key(operation string, params any) string {
	if params == nil {
		return operation
	}
	raw, err := json.Marshal(params)
	if err != nil {
		// Unserializable params fall back to a per-call representation.
		return fmt.Sprintf("%s:%v", operation, params)
	}
	return operation + ":" + string(raw)
}

// Fetch returns the cached result for (operation, params) when fresh,
// otherwise issues the call with retry policy applied. Concurrent fetches for
// the same key are deduplicated into a single network call; all waiters
// receive the same settled result.
func (o *Orchestrator) Fetch(ctx context.Context, operation string, params any, fn FetchFunc, opts Options) (any, error) {
	if opts.Disabled {
		return nil, ErrDisabled
	}

	key := Key(operation, params)
	ttl := opts.TTL
	if ttl == 0 {
		ttl = o.ttl
	}

	if !opts.Refetch {
		if value, ok := o.lookup(key, ttl); ok {
			logger.Debug("Query cache hit", "operation", operation)
			return value, nil
		}
	}

	value, err, _ := o.group.Do(key, func() (any, error) {
		// A waiter that piled up behind a refetch may find the entry fresh now.
		if !opts.Refetch {
			if value, ok := o.lookup(key, ttl); ok {
				return value, nil
			}
		}
		value, err := o.fetchWithRetry(ctx, operation, fn, opts)
		if err != nil {
			return nil, err
		}
		o.storeResult(key, value)
		return value, nil
	})
	return value, err
}

// Invalidate drops the cached entry for one (operation, params) pair.
func (o *Orchestrator) Invalidate(operation string, params any) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.entries, Key(operation, params))
}

// InvalidateOperation drops every cached entry of the given operation,
// regardless of parameters.
func (o *Orchestrator) InvalidateOperation(operation string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for key := range o.entries {
		if key == operation || strings.HasPrefix(key, operation+":") {
			delete(o.entries, key)
		}
	}
}

// Clear drops the whole read cache.
func (o *Orchestrator) Clear() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.entries = make(map[string]cacheEntry)
}

// lookup returns a cached value when present and inside the staleness window.
func (o *Orchestrator) lookup(key string, ttl time.Duration) (any, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	entry, ok := o.entries[key]
	if !ok {
		return nil, false
	}
	if o.now().Sub(entry.fetchedAt) >= ttl {
		return nil, false
	}
	return entry.value, true
}

// storeResult records a settled fetch in the cache.
func (o *Orchestrator) storeResult(key string, value any) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.entries[key] = cacheEntry{value: value, fetchedAt: o.now()}
}

// fetchWithRetry applies the retry policy: transient failures are retried up
// to the attempt cap, deterministic client errors are surfaced immediately,
// and parse failures are retried only when opted in. The last failure is
// re-raised after exhaustion.
func (o *Orchestrator) fetchWithRetry(ctx context.Context, operation string, fn FetchFunc, opts Options) (any, error) {
	var lastErr error
	for attempt := 1; attempt <= o.maxAttempts; attempt++ {
		value, err := fn(ctx)
		if err == nil {
			return value, nil
		}
		lastErr = err

		if !o.shouldRetry(err, opts) {
			return nil, err
		}
		if attempt == o.maxAttempts {
			break
		}

		logger.Debug("Query retrying after transient failure",
			"operation", operation, "attempt", attempt, "error", err)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(o.retryDelay * time.Duration(attempt)):
		}
	}
	return nil, lastErr
}

// shouldRetry decides whether a failure is worth another round trip.
func (o *Orchestrator) shouldRetry(err error, opts Options) bool {
	gerr, ok := gateway.AsError(err)
	if !ok {
		return false
	}
	if gerr.Kind == gateway.KindParse {
		return opts.RetryOnParse
	}
	return gerr.Retryable()
}
