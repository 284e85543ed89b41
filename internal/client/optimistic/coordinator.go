package optimistic

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/snipstash/snipstash-server/internal/client/listcache"
	"github.com/snipstash/snipstash-server/internal/domain"
	domainerrors "github.com/snipstash/snipstash-server/internal/errors"
	"github.com/snipstash/snipstash-server/internal/id"
	"github.com/snipstash/snipstash-server/internal/normalize"
)

// Coordinator runs mutations against one owner's cached listings.
//
// Each Mutate snapshots the owner's entries, applies the change locally,
// calls the server, then either reconciles with the server's answer or
// restores the snapshot. A restore is followed by a replay of every
// mutation that settled while this one was in flight, so confirmed changes
// to other records survive it. Two overlapping mutations of the same
// record still race unless per-record serialization is enabled.
type Coordinator struct {
	cache  *listcache.Cache
	api    API
	scope  domain.Scope
	now    func() time.Time
	logger *slog.Logger

	onSessionReset func()

	serialize bool
	locks     recordLocks
	journal   *journal
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithPerRecordSerialization makes mutations of the same snippet wait for
// each other.
func WithPerRecordSerialization() Option {
	return func(c *Coordinator) { c.serialize = true }
}

// OnSessionReset registers fn to run when the server rejects a mutation
// because the session is no longer valid.
func OnSessionReset(fn func()) Option {
	return func(c *Coordinator) { c.onSessionReset = fn }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) { c.logger = logger }
}

// WithClock overrides the time source used for placeholder timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

// New creates a coordinator for ownerID's listings in cache.
func New(cache *listcache.Cache, api API, ownerID string, opts ...Option) *Coordinator {
	c := &Coordinator{
		cache:   cache,
		api:     api,
		scope:   domain.OwnerScope(ownerID),
		now:     time.Now,
		logger:  slog.New(slog.DiscardHandler),
		locks:   recordLocks{m: make(map[string]*recordLock)},
		journal: newJournal(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Scope returns the owner scope the coordinator edits.
func (c *Coordinator) Scope() domain.Scope {
	return c.scope
}

// Mutate applies m optimistically and returns once the server has answered.
func (c *Coordinator) Mutate(ctx context.Context, m Mutation) Outcome {
	if m.Kind != KindCreate && strings.TrimSpace(m.ID) == "" {
		return Failure{Err: domainerrors.Validation("snippet id is required")}
	}
	if c.serialize && m.Kind != KindCreate {
		unlock := c.locks.lock(m.ID)
		defer unlock()
	}

	var placeholder *domain.Snippet
	if m.Kind == KindCreate {
		placeholder = c.placeholder(m.Input)
	}

	start := c.journal.begin()
	snap := c.cache.Mutate(c.scope, func(tx listcache.Tx) {
		c.speculate(tx, m, placeholder)
	})

	rec, err := c.call(ctx, m)
	if err != nil {
		target := m.ID
		if placeholder != nil {
			target = placeholder.ID
		}
		held := snap.Holding(target)
		c.journal.settle(start, true,
			func() { c.cache.Restore(snap) },
			func() { c.discard(target, held) })

		c.logger.Info("mutation rolled back",
			slog.String("kind", m.Kind.String()),
			slog.String("snippet_id", m.ID),
			slog.String("error", err.Error()))
		if domainerrors.CodeOf(err) == domainerrors.CodeUnauthorized && c.onSessionReset != nil {
			c.onSessionReset()
		}
		return Failure{Err: err}
	}

	snippetID := m.ID
	if rec != nil {
		snippetID = rec.ID
	}
	settle := func() { c.reconcile(m, placeholder, rec) }
	c.journal.settle(start, false, settle, settle)
	return Success{ID: snippetID, Record: rec}
}

func (c *Coordinator) call(ctx context.Context, m Mutation) (*domain.Snippet, error) {
	switch m.Kind {
	case KindCreate:
		return c.api.Create(ctx, m.Input)
	case KindEdit:
		return c.api.Update(ctx, m.ID, m.Input)
	case KindDelete:
		return nil, c.api.Delete(ctx, m.ID)
	case KindRecycle:
		return nil, c.api.Recycle(ctx, m.ID)
	case KindRestore:
		return nil, c.api.Restore(ctx, m.ID)
	case KindSetPinned:
		return c.api.SetPinned(ctx, m.ID, m.Flag)
	case KindSetFavorite:
		return c.api.SetFavorite(ctx, m.ID, m.Flag)
	default:
		return nil, domainerrors.Validationf("unknown mutation kind %d", m.Kind)
	}
}

// speculate applies m to one entry with the cache lock held.
func (c *Coordinator) speculate(tx listcache.Tx, m Mutation, placeholder *domain.Snippet) {
	switch m.Kind {
	case KindCreate:
		if tx.Key().Matches(placeholder) {
			tx.InsertHead(placeholder)
		}
	case KindDelete, KindRecycle, KindRestore:
		tx.Remove(m.ID)
	case KindEdit:
		now := c.now().UTC()
		tx.Modify(m.ID, func(sn *domain.Snippet) {
			applyInput(sn, m.Input)
			sn.UpdatedAt = now
		})
	case KindSetPinned:
		tx.Modify(m.ID, func(sn *domain.Snippet) { sn.IsPinned = m.Flag })
	case KindSetFavorite:
		tx.Modify(m.ID, func(sn *domain.Snippet) { sn.IsFavorite = m.Flag })
	}
}

// reconcile folds the server's answer into the cache. Entries that should
// now show the record but never held it are invalidated, since the record's
// position in them is unknown.
func (c *Coordinator) reconcile(m Mutation, placeholder *domain.Snippet, rec *domain.Snippet) {
	var stale []string

	switch m.Kind {
	case KindCreate:
		c.cache.Update(listcache.InScope(c.scope), func(tx listcache.Tx) {
			if !tx.Replace(placeholder.ID, rec) && !tx.Replace(rec.ID, rec) {
				if tx.Loaded() && tx.Key().Matches(rec) {
					stale = append(stale, tx.Key().Signature())
				}
				return
			}
			if !tx.Key().Matches(rec) {
				tx.Remove(rec.ID)
			}
		})

	case KindEdit, KindSetPinned, KindSetFavorite:
		c.cache.Update(listcache.InScope(c.scope), func(tx listcache.Tx) {
			stale = append(stale, mergeRecord(tx, rec)...)
		})

	case KindDelete:
		c.removeEverywhere(m.ID)
	case KindRecycle:
		c.removeEverywhere(m.ID)
		c.invalidate(func(k listcache.Key) bool { return k.IsRecycledView() })
	case KindRestore:
		c.removeEverywhere(m.ID)
		c.invalidate(func(k listcache.Key) bool { return !k.IsRecycledView() })
	}

	if len(stale) > 0 {
		c.invalidateSignatures(stale)
	}
}

// mergeRecord replaces or removes rec in one entry and returns the entry's
// signature if it needs a refetch.
func mergeRecord(tx listcache.Tx, rec *domain.Snippet) []string {
	matches := tx.Key().Matches(rec)
	if !tx.Contains(rec.ID) {
		if tx.Loaded() && matches {
			return []string{tx.Key().Signature()}
		}
		return nil
	}
	if matches {
		tx.Replace(rec.ID, rec)
	} else {
		tx.Remove(rec.ID)
	}
	return nil
}

func (c *Coordinator) invalidate(match func(listcache.Key) bool) {
	scope := c.scope
	c.cache.Invalidate(func(k listcache.Key) bool {
		return k.Scope == scope && match(k)
	})
}

// discard invalidates every entry that holds target now or held it in
// sigs, so they refetch without a rejected speculative change.
func (c *Coordinator) discard(target string, sigs []string) {
	sigs = slices.Clone(sigs)
	c.cache.Update(listcache.InScope(c.scope), func(tx listcache.Tx) {
		if tx.Contains(target) {
			sigs = append(sigs, tx.Key().Signature())
		}
	})
	if len(sigs) > 0 {
		c.invalidateSignatures(sigs)
	}
}

func (c *Coordinator) invalidateSignatures(sigs []string) {
	set := make(map[string]struct{}, len(sigs))
	for _, s := range sigs {
		set[s] = struct{}{}
	}
	c.cache.Invalidate(func(k listcache.Key) bool {
		_, ok := set[k.Signature()]
		return ok
	})
}

// placeholder builds the local stand-in for a snippet being created.
func (c *Coordinator) placeholder(in domain.SnippetInput) *domain.Snippet {
	now := c.now().UTC()
	sn := &domain.Snippet{
		ID:        id.MustGenerate(id.PrefixPlaceholder),
		OwnerID:   c.scope.OwnerID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	applyInput(sn, in)
	return sn
}

// applyInput copies the writable fields of in onto sn. Existing fragment IDs
// are kept by position; new fragments get placeholder IDs.
func applyInput(sn *domain.Snippet, in domain.SnippetInput) {
	sn.Title = normalize.Title(in.Title)
	sn.Description = in.Description
	sn.IsPublic = in.IsPublic
	sn.Categories = normalize.Categories(in.Categories)

	frags := make([]domain.Fragment, len(in.Fragments))
	for i, f := range in.Fragments {
		fragID := ""
		if i < len(sn.Fragments) {
			fragID = sn.Fragments[i].ID
		}
		if fragID == "" {
			fragID = id.MustGenerate(id.PrefixPlaceholder)
		}
		frags[i] = domain.Fragment{
			ID:       fragID,
			FileName: normalize.FileName(f.FileName),
			Language: normalize.Language(f.Language),
			Code:     normalize.LineEndings(f.Code),
			Position: i,
		}
	}
	sn.Fragments = frags
}

// recordLocks hands out one mutex per snippet ID, dropping it once no
// mutation holds or waits for it.
type recordLocks struct {
	mu sync.Mutex
	m  map[string]*recordLock
}

type recordLock struct {
	mu   sync.Mutex
	refs int
}

func (l *recordLocks) lock(id string) func() {
	l.mu.Lock()
	rl, ok := l.m[id]
	if !ok {
		rl = &recordLock{}
		l.m[id] = rl
	}
	rl.refs++
	l.mu.Unlock()

	rl.mu.Lock()
	return func() {
		rl.mu.Unlock()
		l.mu.Lock()
		rl.refs--
		if rl.refs == 0 {
			delete(l.m, id)
		}
		l.mu.Unlock()
	}
}
