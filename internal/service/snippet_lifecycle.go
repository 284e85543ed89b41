package service

import (
	"context"
	"time"

	"github.com/snipstash/snipstash-server/internal/metrics"
	"github.com/snipstash/snipstash-server/internal/sse"
	"github.com/snipstash/snipstash-server/internal/store"
)

// MoveToRecycle moves an active snippet to the recycle bin. It stays
// restorable until now + the retention window.
func (s *SnippetService) MoveToRecycle(ctx context.Context, ownerID, snippetID string) (err error) {
	defer func() { record("recycle", err) }()

	expiry := s.now().Add(s.retention).UTC()
	if err = s.store.RecycleSnippet(ctx, ownerID, snippetID, expiry); err != nil {
		return mapStoreError(err, "snippet")
	}

	s.logger.Info("snippet recycled", "snippet_id", snippetID, "user_id", ownerID, "expires_at", expiry)
	s.changed(ctx, ownerID)
	s.events.Emit(sse.NewSnippetRecycledEvent(ownerID, snippetID, expiry, OriginFrom(ctx)))
	return nil
}

// Restore takes a snippet out of the recycle bin.
func (s *SnippetService) Restore(ctx context.Context, ownerID, snippetID string) (err error) {
	defer func() { record("restore", err) }()

	if err = s.store.RestoreSnippet(ctx, ownerID, snippetID); err != nil {
		return mapStoreError(err, "snippet")
	}

	s.logger.Info("snippet restored", "snippet_id", snippetID, "user_id", ownerID)
	s.changed(ctx, ownerID)
	s.events.Emit(sse.NewSnippetRestoredEvent(ownerID, snippetID, OriginFrom(ctx)))
	return nil
}

// Purge permanently deletes one of the owner's recycled snippets.
// Active snippets must be recycled first.
func (s *SnippetService) Purge(ctx context.Context, ownerID, snippetID string) (err error) {
	defer func() { record("purge", err) }()

	if err = s.store.PurgeSnippet(ctx, ownerID, snippetID); err != nil {
		return mapStoreError(err, "snippet")
	}

	metrics.SnippetsPurged.WithLabelValues(metrics.PurgeOwner).Inc()
	s.logger.Info("snippet purged", "snippet_id", snippetID, "user_id", ownerID)
	s.changed(ctx, ownerID)
	s.events.Emit(sse.NewSnippetPurgedEvent(ownerID, snippetID, OriginFrom(ctx)))
	return nil
}

// AdminPurge deletes any snippet in any state. The caller has already
// checked that the principal is an admin.
func (s *SnippetService) AdminPurge(ctx context.Context, snippetID string) (err error) {
	defer func() { record("admin_purge", err) }()

	ownerID, err := s.store.ForcePurgeSnippet(ctx, snippetID)
	if err != nil {
		return mapStoreError(err, "snippet")
	}

	metrics.SnippetsPurged.WithLabelValues(metrics.PurgeAdmin).Inc()
	s.logger.Warn("snippet purged by admin", "snippet_id", snippetID, "owner_id", ownerID)
	s.changed(ctx, ownerID)
	s.events.Emit(sse.NewSnippetPurgedEvent(ownerID, snippetID, OriginFrom(ctx)))
	return nil
}

// PurgeExpired deletes every recycled snippet whose expiry is at or before
// now and returns what it removed.
func (s *SnippetService) PurgeExpired(ctx context.Context, now time.Time) ([]store.PurgedSnippet, error) {
	purged, err := s.store.PurgeExpired(ctx, now)
	if err != nil {
		return nil, err
	}
	if len(purged) == 0 {
		return purged, nil
	}

	metrics.SnippetsPurged.WithLabelValues(metrics.PurgeExpired).Add(float64(len(purged)))

	owners := make(map[string]struct{})
	for _, p := range purged {
		owners[p.OwnerID] = struct{}{}
		s.events.Emit(sse.NewSnippetPurgedEvent(p.OwnerID, p.ID, ""))
	}
	for owner := range owners {
		s.changed(ctx, owner)
	}
	return purged, nil
}
