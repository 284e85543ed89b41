package listcache

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/singleflight"
)

// DefaultPageSize is the page size the loader requests.
const DefaultPageSize = 20

// ErrLoadInFlight is returned by LoadMore when the entry is already loading.
var ErrLoadInFlight = errors.New("listcache: load already in flight")

// Fetcher retrieves one page of a listing from the server.
type Fetcher interface {
	FetchPage(ctx context.Context, key Key, offset, limit int) (Page, error)
}

// Loader fills cache entries from a Fetcher.
type Loader struct {
	cache    *Cache
	fetcher  Fetcher
	pageSize int
	group    singleflight.Group
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithPageSize sets the limit sent with every fetch.
func WithPageSize(n int) LoaderOption {
	return func(l *Loader) {
		if n > 0 {
			l.pageSize = n
		}
	}
}

// NewLoader creates a loader writing into cache.
func NewLoader(cache *Cache, fetcher Fetcher, opts ...LoaderOption) *Loader {
	l := &Loader{cache: cache, fetcher: fetcher, pageSize: DefaultPageSize}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Cache returns the cache the loader writes into.
func (l *Loader) Cache() *Cache {
	return l.cache
}

// Load returns key's entry, fetching the first page if nothing is cached.
// Concurrent first loads of the same key share one fetch.
func (l *Loader) Load(ctx context.Context, key Key) (*Entry, error) {
	e := l.cache.GetOrCreate(key)
	if e.Loaded() {
		return e, nil
	}

	v, err, _ := l.group.Do(key.Signature(), func() (any, error) {
		e := l.cache.GetOrCreate(key)
		if e.Loaded() {
			return e, nil
		}
		if !e.TryBeginLoad() {
			return nil, ErrLoadInFlight
		}
		defer e.EndLoad()

		page, err := l.fetcher.FetchPage(ctx, key, 0, l.pageSize)
		if err != nil {
			return nil, fmt.Errorf("load first page: %w", err)
		}
		l.cache.appendIfCurrent(e, page)
		return e, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Entry), nil
}

// LoadMore fetches the page after the cached records and appends it. It
// does nothing when the last page reported no more records. A call made
// while another load of the entry is in flight returns ErrLoadInFlight
// without fetching.
func (l *Loader) LoadMore(ctx context.Context, key Key) (*Entry, error) {
	e, ok := l.cache.Get(key)
	if !ok || !e.Loaded() {
		return l.Load(ctx, key)
	}
	if !e.HasMore() {
		return e, nil
	}
	if !e.TryBeginLoad() {
		return e, ErrLoadInFlight
	}
	defer e.EndLoad()

	page, err := l.fetcher.FetchPage(ctx, key, e.NextOffset(), l.pageSize)
	if err != nil {
		return e, fmt.Errorf("load more: %w", err)
	}
	l.cache.appendIfCurrent(e, page)
	return e, nil
}

// LoadAll keeps calling LoadMore until the listing is exhausted.
func (l *Loader) LoadAll(ctx context.Context, key Key) (*Entry, error) {
	e, err := l.Load(ctx, key)
	if err != nil {
		return nil, err
	}
	for e.HasMore() {
		before := e.NextOffset()
		if e, err = l.LoadMore(ctx, key); err != nil {
			return e, err
		}
		if e.NextOffset() == before {
			break
		}
	}
	return e, nil
}

// Refresh drops key's entry and loads it again from offset zero.
func (l *Loader) Refresh(ctx context.Context, key Key) (*Entry, error) {
	sig := key.Signature()
	l.cache.Invalidate(func(k Key) bool { return k.Signature() == sig })
	return l.Load(ctx, key)
}
