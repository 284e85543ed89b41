package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/snipstash/snipstash-server/internal/domain"
	"github.com/snipstash/snipstash-server/internal/store"
)

// snippetColumns is the ordered list of columns selected in snippet queries.
// Must match the scan order in scanSnippet.
const snippetColumns = `s.id, s.user_id, s.title, s.description, s.is_public, s.is_pinned,
	s.is_favorite, s.created_at, s.updated_at, s.expiry_date`

// scanSnippet scans a sql.Row (or sql.Rows via its Scan method) into a domain.Snippet.
// Fragments and categories are loaded separately.
func scanSnippet(scanner interface{ Scan(dest ...any) error }) (*domain.Snippet, error) {
	var sn domain.Snippet

	var (
		isPublic   int
		isPinned   int
		isFavorite int
		createdAt  string
		updatedAt  string
		expiryDate sql.NullString
	)

	err := scanner.Scan(
		&sn.ID,
		&sn.OwnerID,
		&sn.Title,
		&sn.Description,
		&isPublic,
		&isPinned,
		&isFavorite,
		&createdAt,
		&updatedAt,
		&expiryDate,
	)
	if err != nil {
		return nil, err
	}

	sn.IsPublic = isPublic != 0
	sn.IsPinned = isPinned != 0
	sn.IsFavorite = isFavorite != 0

	if sn.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if sn.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	if sn.ExpiryDate, err = parseNullableTime(expiryDate); err != nil {
		return nil, fmt.Errorf("parse expiry_date: %w", err)
	}

	sn.Fragments = []domain.Fragment{}
	sn.Categories = []string{}
	return &sn, nil
}

// CreateSnippet inserts a snippet with its fragments and categories.
// Returns store.ErrAlreadyExists on duplicate ID.
func (s *Store) CreateSnippet(ctx context.Context, sn *domain.Snippet) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO snippets (id, user_id, title, description, is_public, is_pinned,
				is_favorite, created_at, updated_at, expiry_date)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			sn.ID,
			sn.OwnerID,
			sn.Title,
			sn.Description,
			boolToInt(sn.IsPublic),
			boolToInt(sn.IsPinned),
			boolToInt(sn.IsFavorite),
			formatTime(sn.CreatedAt),
			formatTime(sn.UpdatedAt),
			nullTimeString(sn.ExpiryDate),
		)
		if err != nil {
			if strings.Contains(err.Error(), "UNIQUE constraint failed") {
				return store.ErrAlreadyExists
			}
			return fmt.Errorf("insert snippet: %w", err)
		}
		return insertChildren(ctx, tx, sn)
	})
}

// UpdateSnippet replaces the editable fields, fragments and categories of an
// existing snippet. Lifecycle fields (expiry, pin, favorite) are untouched.
// Returns store.ErrNotFound if the owner has no such snippet.
func (s *Store) UpdateSnippet(ctx context.Context, sn *domain.Snippet) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE snippets
			SET title = ?, description = ?, is_public = ?, updated_at = ?
			WHERE id = ? AND user_id = ?`,
			sn.Title,
			sn.Description,
			boolToInt(sn.IsPublic),
			formatTime(sn.UpdatedAt),
			sn.ID,
			sn.OwnerID,
		)
		if err != nil {
			return fmt.Errorf("update snippet: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return store.ErrNotFound
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM fragments WHERE snippet_id = ?`, sn.ID); err != nil {
			return fmt.Errorf("clear fragments: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM categories WHERE snippet_id = ?`, sn.ID); err != nil {
			return fmt.Errorf("clear categories: %w", err)
		}
		return insertChildren(ctx, tx, sn)
	})
}

func insertChildren(ctx context.Context, tx *sql.Tx, sn *domain.Snippet) error {
	for i, f := range sn.Fragments {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO fragments (id, snippet_id, file_name, language, code, position)
			VALUES (?, ?, ?, ?, ?, ?)`,
			f.ID, sn.ID, f.FileName, f.Language, f.Code, i,
		)
		if err != nil {
			return fmt.Errorf("insert fragment %d: %w", i, err)
		}
	}
	for i, c := range sn.Categories {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO categories (snippet_id, name, position) VALUES (?, ?, ?)`,
			sn.ID, c, i,
		)
		if err != nil {
			return fmt.Errorf("insert category %q: %w", c, err)
		}
	}
	return nil
}

// GetSnippet retrieves a snippet visible in scope.
// Returns store.ErrNotFound if it does not exist or is not visible.
func (s *Store) GetSnippet(ctx context.Context, scope domain.Scope, snippetID string) (*domain.Snippet, error) {
	var b clauseBuilder
	b.scope(scope)
	b.add("s.id = ?", snippetID)
	where, args := b.build()

	row := s.db.QueryRowContext(ctx,
		`SELECT `+snippetColumns+` FROM snippets s`+where, args...)

	sn, err := scanSnippet(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := s.loadChildren(ctx, []*domain.Snippet{sn}); err != nil {
		return nil, err
	}
	return sn, nil
}

// SetPinned sets the pinned flag without touching updated_at.
func (s *Store) SetPinned(ctx context.Context, ownerID, snippetID string, pinned bool) (*domain.Snippet, error) {
	return s.setFlag(ctx, "is_pinned", ownerID, snippetID, pinned)
}

// SetFavorite sets the favorite flag without touching updated_at.
func (s *Store) SetFavorite(ctx context.Context, ownerID, snippetID string, favorite bool) (*domain.Snippet, error) {
	return s.setFlag(ctx, "is_favorite", ownerID, snippetID, favorite)
}

// setFlag updates one boolean column. column is always a constant from
// this file, never caller input.
func (s *Store) setFlag(ctx context.Context, column, ownerID, snippetID string, value bool) (*domain.Snippet, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE snippets SET `+column+` = ? WHERE id = ? AND user_id = ?`,
		boolToInt(value), snippetID, ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("set %s: %w", column, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, store.ErrNotFound
	}
	return s.GetSnippet(ctx, domain.OwnerScope(ownerID), snippetID)
}

// loadChildren fills Fragments and Categories for the given snippets with
// one query per child table.
func (s *Store) loadChildren(ctx context.Context, snippets []*domain.Snippet) error {
	if len(snippets) == 0 {
		return nil
	}

	byID := make(map[string]*domain.Snippet, len(snippets))
	ids := make([]any, 0, len(snippets))
	for _, sn := range snippets {
		byID[sn.ID] = sn
		ids = append(ids, sn.ID)
	}
	in := placeholders(len(ids))

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, snippet_id, file_name, language, code, position
		FROM fragments WHERE snippet_id IN (`+in+`)
		ORDER BY snippet_id, position`, ids...)
	if err != nil {
		return fmt.Errorf("query fragments: %w", err)
	}
	for rows.Next() {
		var (
			f         domain.Fragment
			snippetID string
		)
		if err := rows.Scan(&f.ID, &snippetID, &f.FileName, &f.Language, &f.Code, &f.Position); err != nil {
			rows.Close()
			return fmt.Errorf("scan fragment: %w", err)
		}
		if sn, ok := byID[snippetID]; ok {
			sn.Fragments = append(sn.Fragments, f)
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	rows, err = s.db.QueryContext(ctx, `
		SELECT snippet_id, name FROM categories WHERE snippet_id IN (`+in+`)
		ORDER BY snippet_id, position`, ids...)
	if err != nil {
		return fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var snippetID, name string
		if err := rows.Scan(&snippetID, &name); err != nil {
			return fmt.Errorf("scan category: %w", err)
		}
		if sn, ok := byID[snippetID]; ok {
			sn.Categories = append(sn.Categories, name)
		}
	}
	return rows.Err()
}

// placeholders returns "?, ?, ?" for n parameters.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}
