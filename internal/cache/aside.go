package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/xiaot623/gogo/searchstream/internal/domain"
	"github.com/xiaot623/gogo/searchstream/internal/observability"
)

const (
	// DefaultWriteTimeout bounds a detached cache write.
	DefaultWriteTimeout = 5 * time.Second
	// DefaultFetchTimeout bounds a shared fetch.
	DefaultFetchTimeout = 30 * time.Second
)

// FetchFunc loads the source of truth for a missed key.
type FetchFunc func(ctx context.Context) (domain.CacheEntry, error)

// Aside is a read-through/write-behind wrapper around a Store.
// Concurrent misses on the same key share one fetch.
type Aside struct {
	store        Store
	group        singleflight.Group
	writes       sync.WaitGroup
	writeTimeout time.Duration
	fetchTimeout time.Duration
}

// NewAside wraps store. A non-positive writeTimeout uses DefaultWriteTimeout.
func NewAside(store Store, writeTimeout time.Duration) *Aside {
	if writeTimeout <= 0 {
		writeTimeout = DefaultWriteTimeout
	}
	return &Aside{store: store, writeTimeout: writeTimeout, fetchTimeout: DefaultFetchTimeout}
}

// Lookup returns the cached entry for key. Read errors count as a miss.
func (a *Aside) Lookup(ctx context.Context, key string) (domain.CacheEntry, bool) {
	entry, ok, err := a.store.Get(ctx, key)
	if err != nil {
		observability.LoggerFromContext(ctx).Warn("cache lookup failed", "key", key, "error", err)
		return domain.CacheEntry{}, false
	}
	return entry, ok
}

// Store writes entry in the background. The caller never waits and never
// sees a failure; the write outlives ctx cancellation.
func (a *Aside) Store(ctx context.Context, key string, entry domain.CacheEntry) {
	logger := observability.LoggerFromContext(ctx)
	writeCtx := context.WithoutCancel(ctx)

	a.writes.Add(1)
	go func() {
		defer a.writes.Done()
		ctx, cancel := context.WithTimeout(writeCtx, a.writeTimeout)
		defer cancel()
		if err := a.store.Set(ctx, key, entry); err != nil {
			logger.Warn("cache write failed", "key", key, "error", err)
		}
	}()
}

// Resolve returns the cached entry for key, or fetches and stores it.
// hit reports whether the entry came from the cache.
//
// The fetch is shared by every concurrent caller of key, so it runs detached
// from any single caller. Each caller stops waiting when its own ctx is done.
func (a *Aside) Resolve(ctx context.Context, key string, fetch FetchFunc) (entry domain.CacheEntry, hit bool, err error) {
	if entry, ok := a.Lookup(ctx, key); ok {
		return entry, true, nil
	}

	detached := context.WithoutCancel(ctx)
	ch := a.group.DoChan(key, func() (v interface{}, err error) {
		defer func() {
			if rec := recover(); rec != nil {
				err = fmt.Errorf("fetch panicked: %v", rec)
			}
		}()

		fetchCtx, cancel := context.WithTimeout(detached, a.fetchTimeout)
		defer cancel()
		fetched, err := fetch(fetchCtx)
		if err != nil {
			return nil, err
		}
		a.Store(detached, key, fetched)
		return fetched, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return domain.CacheEntry{}, false, fmt.Errorf("fetch %q: %w", key, res.Err)
		}
		return copyEntry(res.Val.(domain.CacheEntry)), false, nil
	case <-ctx.Done():
		return domain.CacheEntry{}, false, fmt.Errorf("fetch %q: %w", key, ctx.Err())
	}
}

// Wait blocks until pending background writes finish.
func (a *Aside) Wait() {
	a.writes.Wait()
}
