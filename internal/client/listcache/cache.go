package listcache

import (
	"sync"
	"time"

	"github.com/snipstash/snipstash-server/internal/domain"
)

// Cache maps listing keys to entries. It is safe for concurrent use; one
// mutex guards every entry.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*Entry
	now     func() time.Time
}

// New creates an empty cache.
func New() *Cache {
	return &Cache{
		entries: make(map[string]*Entry),
		now:     time.Now,
	}
}

// GetOrCreate returns the entry for key, creating an empty one if needed.
func (c *Cache) GetOrCreate(key Key) *Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.getOrCreateLocked(key)
}

func (c *Cache) getOrCreateLocked(key Key) *Entry {
	sig := key.Signature()
	if e, ok := c.entries[sig]; ok {
		return e
	}
	e := &Entry{key: key, mu: &c.mu}
	c.entries[sig] = e
	return e
}

// Get returns the entry for key if one exists.
func (c *Cache) Get(key Key) (*Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key.Signature()]
	return e, ok
}

// AppendPage adds page to the end of key's entry and takes its total.
func (c *Cache) AppendPage(key Key, page Page) *Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.getOrCreateLocked(key)
	c.appendLocked(e, page)
	return e
}

// appendIfCurrent appends page to e unless e was invalidated after the
// fetch began. Pages for a dropped entry are discarded.
func (c *Cache) appendIfCurrent(e *Entry, page Page) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entries[e.key.Signature()] != e {
		return false
	}
	c.appendLocked(e, page)
	return true
}

func (c *Cache) appendLocked(e *Entry, page Page) {
	e.pages = append(e.pages, page.clone())
	e.total = page.Total
	e.fetchedAt = c.now()
}

// Invalidate drops every entry whose key satisfies match and returns how
// many were removed. The next Load refetches from offset zero.
func (c *Cache) Invalidate(match func(Key) bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for sig, e := range c.entries {
		if match == nil || match(e.key) {
			delete(c.entries, sig)
			n++
		}
	}
	return n
}

// Entries returns every entry whose key satisfies match. A nil match
// returns all entries.
func (c *Cache) Entries(match func(Key) bool) []*Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*Entry, 0, len(c.entries))
	for _, e := range c.entries {
		if match == nil || match(e.key) {
			out = append(out, e)
		}
	}
	return out
}

// Len returns the number of entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Update calls fn for every entry whose key satisfies match, holding the
// cache lock throughout.
func (c *Cache) Update(match func(Key) bool, fn func(Tx)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.updateLocked(match, fn)
}

func (c *Cache) updateLocked(match func(Key) bool, fn func(Tx)) {
	for _, e := range c.entries {
		if match == nil || match(e.key) {
			fn(Tx{e: e})
		}
	}
}

// InScope returns a key predicate selecting entries of scope.
func InScope(scope domain.Scope) func(Key) bool {
	return func(k Key) bool { return k.Scope == scope }
}

// Snapshot is a deep copy of every entry in one scope at a point in time.
type Snapshot struct {
	scope   domain.Scope
	entries map[string]entryState
}

type entryState struct {
	key       Key
	pages     []Page
	total     int
	fetchedAt time.Time
}

// Len returns the number of entries captured.
func (s Snapshot) Len() int {
	return len(s.entries)
}

// Holding returns the signatures of the snapshotted entries whose pages
// held the record id.
func (s Snapshot) Holding(id string) []string {
	var sigs []string
	for sig, st := range s.entries {
	pages:
		for _, p := range st.pages {
			for _, rec := range p.Records {
				if rec.ID == id {
					sigs = append(sigs, sig)
					break pages
				}
			}
		}
	}
	return sigs
}

// Snapshot captures every entry in scope.
func (c *Cache) Snapshot(scope domain.Scope) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked(scope)
}

func (c *Cache) snapshotLocked(scope domain.Scope) Snapshot {
	s := Snapshot{scope: scope, entries: make(map[string]entryState)}
	for sig, e := range c.entries {
		if e.key.Scope != scope {
			continue
		}
		s.entries[sig] = entryState{
			key:       e.key,
			pages:     clonePages(e.pages),
			total:     e.total,
			fetchedAt: e.fetchedAt,
		}
	}
	return s
}

// Mutate snapshots scope and then applies fn to every entry in it, all
// under one lock hold. The snapshot reflects the state before fn ran.
func (c *Cache) Mutate(scope domain.Scope, fn func(Tx)) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.snapshotLocked(scope)
	c.updateLocked(InScope(scope), fn)
	return s
}

// Restore puts every captured entry back exactly as it was. Entries that
// were invalidated since are recreated. Entries created after the snapshot
// are kept.
func (c *Cache) Restore(s Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for sig, st := range s.entries {
		e, ok := c.entries[sig]
		if !ok {
			e = &Entry{key: st.key, mu: &c.mu}
			c.entries[sig] = e
		}
		e.pages = clonePages(st.pages)
		e.total = st.total
		e.fetchedAt = st.fetchedAt
	}
}
