package sqlite

import (
	"context"
	"fmt"

	"github.com/snipstash/snipstash-server/internal/domain"
)

// GetMetadata returns the distinct categories and fragment languages across
// the active snippets visible in scope, each sorted ascending.
func (s *Store) GetMetadata(ctx context.Context, scope domain.Scope) (*domain.Metadata, error) {
	var b clauseBuilder
	b.scope(scope)
	b.add("s.expiry_date IS NULL")
	where, args := b.build()

	categories, err := s.distinct(ctx, `
		SELECT DISTINCT c.name FROM categories c
		JOIN snippets s ON s.id = c.snippet_id`+where+`
		ORDER BY c.name`, args)
	if err != nil {
		return nil, fmt.Errorf("distinct categories: %w", err)
	}

	languages, err := s.distinct(ctx, `
		SELECT DISTINCT f.language FROM fragments f
		JOIN snippets s ON s.id = f.snippet_id`+where+` AND f.language <> ''
		ORDER BY f.language`, args)
	if err != nil {
		return nil, fmt.Errorf("distinct languages: %w", err)
	}

	return &domain.Metadata{Categories: categories, Languages: languages}, nil
}

func (s *Store) distinct(ctx context.Context, query string, args []any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
