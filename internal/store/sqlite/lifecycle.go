package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/snipstash/snipstash-server/internal/store"
)

// RecycleSnippet moves an active snippet to the recycle bin with the given
// expiry. updated_at is left alone.
// Returns store.ErrNotFound if the owner has no such snippet and
// store.ErrInvalidState if it is already recycled.
func (s *Store) RecycleSnippet(ctx context.Context, ownerID, snippetID string, expiry time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE snippets SET expiry_date = ?
		WHERE id = ? AND user_id = ? AND expiry_date IS NULL`,
		formatTime(expiry), snippetID, ownerID,
	)
	if err != nil {
		return fmt.Errorf("recycle snippet: %w", err)
	}
	return s.checkTransition(ctx, res, ownerID, snippetID)
}

// RestoreSnippet takes a recycled snippet out of the recycle bin.
// Returns store.ErrNotFound if the owner has no such snippet and
// store.ErrInvalidState if it is not recycled.
func (s *Store) RestoreSnippet(ctx context.Context, ownerID, snippetID string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE snippets SET expiry_date = NULL
		WHERE id = ? AND user_id = ? AND expiry_date IS NOT NULL`,
		snippetID, ownerID,
	)
	if err != nil {
		return fmt.Errorf("restore snippet: %w", err)
	}
	return s.checkTransition(ctx, res, ownerID, snippetID)
}

// PurgeSnippet permanently deletes a recycled snippet. Fragments and
// categories go with it through ON DELETE CASCADE.
// Returns store.ErrNotFound if the owner has no such snippet and
// store.ErrInvalidState if it is still active.
func (s *Store) PurgeSnippet(ctx context.Context, ownerID, snippetID string) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM snippets
		WHERE id = ? AND user_id = ? AND expiry_date IS NOT NULL`,
		snippetID, ownerID,
	)
	if err != nil {
		return fmt.Errorf("purge snippet: %w", err)
	}
	return s.checkTransition(ctx, res, ownerID, snippetID)
}

// ForcePurgeSnippet deletes a snippet regardless of owner or state and
// returns the owner it belonged to.
func (s *Store) ForcePurgeSnippet(ctx context.Context, snippetID string) (string, error) {
	var ownerID string
	err := s.db.QueryRowContext(ctx,
		`DELETE FROM snippets WHERE id = ? RETURNING user_id`, snippetID,
	).Scan(&ownerID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", store.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("force purge snippet: %w", err)
	}
	return ownerID, nil
}

// PurgeExpired deletes every recycled snippet whose expiry is at or before now.
func (s *Store) PurgeExpired(ctx context.Context, now time.Time) ([]store.PurgedSnippet, error) {
	rows, err := s.db.QueryContext(ctx, `
		DELETE FROM snippets
		WHERE expiry_date IS NOT NULL AND expiry_date <= ?
		RETURNING id, user_id`,
		formatTime(now),
	)
	if err != nil {
		return nil, fmt.Errorf("purge expired: %w", err)
	}
	defer rows.Close()

	purged := []store.PurgedSnippet{}
	for rows.Next() {
		var p store.PurgedSnippet
		if err := rows.Scan(&p.ID, &p.OwnerID); err != nil {
			return nil, fmt.Errorf("scan purged: %w", err)
		}
		purged = append(purged, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(purged) > 0 {
		s.logger.Info("purged expired snippets", "count", len(purged))
	}
	return purged, nil
}

// checkTransition interprets a conditional lifecycle write. Zero affected
// rows means either the snippet is missing or its state did not match the
// WHERE clause; a follow-up probe tells them apart.
func (s *Store) checkTransition(ctx context.Context, res sql.Result, ownerID, snippetID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n > 0 {
		return nil
	}

	var exists int
	err = s.db.QueryRowContext(ctx,
		`SELECT 1 FROM snippets WHERE id = ? AND user_id = ?`, snippetID, ownerID,
	).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("probe snippet: %w", err)
	}
	return store.ErrInvalidState
}
