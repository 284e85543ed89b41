package listcache

import (
	"slices"
	"sync"
	"time"

	"github.com/snipstash/snipstash-server/internal/domain"
)

// Page is one server response for a listing.
type Page struct {
	Records []*domain.Snippet
	Offset  int
	Limit   int
	Total   int
	HasMore bool
}

func (p Page) clone() Page {
	records := make([]*domain.Snippet, len(p.Records))
	for i, r := range p.Records {
		records[i] = r.Clone()
	}
	p.Records = records
	return p
}

func clonePages(pages []Page) []Page {
	if pages == nil {
		return nil
	}
	out := make([]Page, len(pages))
	for i, p := range pages {
		out[i] = p.clone()
	}
	return out
}

// Entry is the cached state of one listing: the pages fetched so far, in
// order, plus the running total.
//
// Every exported method takes the owning cache's lock. Inside a Cache.Update
// callback, use the Tx instead.
type Entry struct {
	key Key
	mu  *sync.Mutex

	pages     []Page
	total     int
	loading   bool
	fetchedAt time.Time
}

// Key returns the entry's key.
func (e *Entry) Key() Key {
	return e.key
}

// Pages returns a deep copy of the cached pages.
func (e *Entry) Pages() []Page {
	e.mu.Lock()
	defer e.mu.Unlock()
	return clonePages(e.pages)
}

// Loaded reports whether at least one page has been fetched.
func (e *Entry) Loaded() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.pages) > 0
}

// NextOffset is the offset for the next page: the number of records cached.
func (e *Entry) NextOffset() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.nextOffsetLocked()
}

func (e *Entry) nextOffsetLocked() int {
	n := 0
	for _, p := range e.pages {
		n += len(p.Records)
	}
	return n
}

// HasMore reports whether the last fetched page said more records exist.
// An entry with no pages reports false.
func (e *Entry) HasMore() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.pages) == 0 {
		return false
	}
	return e.pages[len(e.pages)-1].HasMore
}

// Records returns copies of every cached record in display order.
func (e *Entry) Records() []*domain.Snippet {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*domain.Snippet, 0, e.nextOffsetLocked())
	for _, p := range e.pages {
		for _, r := range p.Records {
			out = append(out, r.Clone())
		}
	}
	return out
}

// Total returns the total count, including local adjustments.
func (e *Entry) Total() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.total
}

// FetchedAt returns when the last page arrived.
func (e *Entry) FetchedAt() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.fetchedAt
}

// TryBeginLoad marks the entry as loading. It returns false if a load is
// already in flight.
func (e *Entry) TryBeginLoad() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.loading {
		return false
	}
	e.loading = true
	return true
}

// EndLoad clears the loading mark.
func (e *Entry) EndLoad() {
	e.mu.Lock()
	e.loading = false
	e.mu.Unlock()
}

// Loading reports whether a load is in flight.
func (e *Entry) Loading() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loading
}

// Tx is a view of one entry inside a Cache.Update callback. The cache lock
// is already held, so Tx methods must not be retained past the callback.
type Tx struct {
	e *Entry
}

// Key returns the entry's key.
func (t Tx) Key() Key {
	return t.e.key
}

// Loaded reports whether the entry has any pages.
func (t Tx) Loaded() bool {
	return len(t.e.pages) > 0
}

// Total returns the entry's running total.
func (t Tx) Total() int {
	return t.e.total
}

// Find returns a copy of the record with id.
func (t Tx) Find(id string) (*domain.Snippet, bool) {
	for _, p := range t.e.pages {
		for _, r := range p.Records {
			if r.ID == id {
				return r.Clone(), true
			}
		}
	}
	return nil, false
}

// Contains reports whether any page holds a record with id.
func (t Tx) Contains(id string) bool {
	_, ok := t.Find(id)
	return ok
}

// InsertHead puts sn first on page 0 and bumps the total. Entries with no
// pages are left alone.
func (t Tx) InsertHead(sn *domain.Snippet) bool {
	if len(t.e.pages) == 0 {
		return false
	}
	p := &t.e.pages[0]
	p.Records = slices.Insert(p.Records, 0, sn.Clone())
	t.e.total++
	return true
}

// Remove drops every record with id from every page and lowers the total,
// never below zero.
func (t Tx) Remove(id string) bool {
	removed := false
	for i := range t.e.pages {
		p := &t.e.pages[i]
		n := len(p.Records)
		p.Records = slices.DeleteFunc(p.Records, func(r *domain.Snippet) bool { return r.ID == id })
		if len(p.Records) != n {
			removed = true
		}
	}
	if removed {
		t.e.total = max(t.e.total-1, 0)
	}
	return removed
}

// Replace swaps the record with id for sn, keeping its position.
func (t Tx) Replace(id string, sn *domain.Snippet) bool {
	replaced := false
	for i := range t.e.pages {
		p := &t.e.pages[i]
		for j, r := range p.Records {
			if r.ID == id {
				p.Records[j] = sn.Clone()
				replaced = true
			}
		}
	}
	return replaced
}

// Modify applies fn to a copy of the record with id and stores the result
// in place.
func (t Tx) Modify(id string, fn func(*domain.Snippet)) bool {
	sn, ok := t.Find(id)
	if !ok {
		return false
	}
	fn(sn)
	return t.Replace(id, sn)
}
