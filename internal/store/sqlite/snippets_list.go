package sqlite

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/snipstash/snipstash-server/internal/domain"
	"github.com/snipstash/snipstash-server/internal/store"
)

// ListSnippets returns one page of snippets matching filter in scope, plus
// the total match count.
//
// The page and the count are separate reads and may observe different
// snapshots under concurrent writes. Either failing fails the call.
func (s *Store) ListSnippets(ctx context.Context, scope domain.Scope, filter domain.Filter, page store.PageRequest) (*store.Page[*domain.Snippet], error) {
	page = page.Normalize()
	q := compileQuery(scope, filter)

	var (
		items []*domain.Snippet
		total int
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		args := append(append([]any{}, q.args...), page.Limit, page.Offset)
		rows, err := s.db.QueryContext(gctx,
			`SELECT `+snippetColumns+` FROM snippets s`+q.where+q.orderBy+` LIMIT ? OFFSET ?`,
			args...)
		if err != nil {
			return fmt.Errorf("query snippets: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			sn, err := scanSnippet(rows)
			if err != nil {
				return fmt.Errorf("scan snippet: %w", err)
			}
			items = append(items, sn)
		}
		return rows.Err()
	})

	g.Go(func() error {
		row := s.db.QueryRowContext(gctx, `SELECT COUNT(*) FROM snippets s`+q.where, q.args...)
		if err := row.Scan(&total); err != nil {
			return fmt.Errorf("count snippets: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	if err := s.loadChildren(ctx, items); err != nil {
		return nil, err
	}

	if items == nil {
		items = []*domain.Snippet{}
	}

	return &store.Page[*domain.Snippet]{
		Items:  items,
		Offset: page.Offset,
		Limit:  page.Limit,
		Total:  total,
	}, nil
}
