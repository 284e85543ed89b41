package optimistic

import (
	"log/slog"

	"github.com/snipstash/snipstash-server/internal/client"
	"github.com/snipstash/snipstash-server/internal/client/listcache"
	"github.com/snipstash/snipstash-server/internal/sse"
)

var _ API = (*client.Client)(nil)

// ApplyRemote folds a change made by another client into the cache.
// Updates reconcile in place; anything that changes which listings hold
// a record invalidates the affected views so they refetch. The change is
// replayed if an in-flight mutation later rolls back.
func (c *Coordinator) ApplyRemote(ev client.Event) {
	c.logger.Debug("applying remote event",
		slog.String("type", string(ev.Type)),
		slog.String("snippet_id", ev.SnippetID))

	c.journal.record(func() { c.applyRemote(ev) })
}

func (c *Coordinator) applyRemote(ev client.Event) {
	switch ev.Type {
	case sse.EventSnippetCreated:
		if ev.Snippet == nil {
			return
		}
		rec := ev.Snippet
		c.invalidate(func(k listcache.Key) bool { return k.Matches(rec) })

	case sse.EventSnippetUpdated:
		if ev.Snippet == nil {
			return
		}
		var stale []string
		c.cache.Update(listcache.InScope(c.scope), func(tx listcache.Tx) {
			stale = append(stale, mergeRecord(tx, ev.Snippet)...)
		})
		if len(stale) > 0 {
			c.invalidateSignatures(stale)
		}

	case sse.EventSnippetRecycled:
		c.removeEverywhere(ev.SnippetID)
		c.invalidate(func(k listcache.Key) bool { return k.IsRecycledView() })

	case sse.EventSnippetRestored:
		c.removeEverywhere(ev.SnippetID)
		c.invalidate(func(k listcache.Key) bool { return !k.IsRecycledView() })

	case sse.EventSnippetPurged:
		c.removeEverywhere(ev.SnippetID)
	}
}

func (c *Coordinator) removeEverywhere(snippetID string) {
	if snippetID == "" {
		return
	}
	c.cache.Update(listcache.InScope(c.scope), func(tx listcache.Tx) {
		tx.Remove(snippetID)
	})
}
