package sqlite

import (
	"strings"

	"github.com/snipstash/snipstash-server/internal/domain"
	"github.com/snipstash/snipstash-server/internal/normalize"
)

// clauseBuilder accumulates WHERE predicates with their bound parameters.
// Every value reaches SQLite as a parameter; clause text is always a
// constant from this package.
type clauseBuilder struct {
	clauses []string
	args    []any
}

func (b *clauseBuilder) add(clause string, args ...any) {
	b.clauses = append(b.clauses, clause)
	b.args = append(b.args, args...)
}

// scope restricts rows to what scope may read.
func (b *clauseBuilder) scope(scope domain.Scope) {
	if scope.Public {
		b.add("s.is_public = 1")
		b.add("s.expiry_date IS NULL")
		return
	}
	b.add("s.user_id = ?", scope.OwnerID)
}

// build returns " WHERE a AND b" (or "" with no clauses) and the args in order.
func (b *clauseBuilder) build() (string, []any) {
	if len(b.clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(b.clauses, " AND "), b.args
}

// compiledQuery is a filter translated into SQL fragments for ListSnippets.
type compiledQuery struct {
	where   string
	args    []any
	orderBy string
}

// compileQuery translates a filter in scope into a WHERE clause and ORDER BY.
// The filter is normalized first, so callers may pass raw user input.
func compileQuery(scope domain.Scope, filter domain.Filter) compiledQuery {
	f := filter.Normalized().InScope(scope)

	var b clauseBuilder
	b.scope(scope)

	if !scope.Public {
		if f.Recycled {
			b.add("s.expiry_date IS NOT NULL")
		} else {
			b.add("s.expiry_date IS NULL")
		}
	}

	if f.Search != "" {
		// Matched as a literal substring of the folded text.
		term := normalize.Fold(f.Search)
		fragmentMatch := "instr(snip_fold(f.file_name), ?) > 0"
		fragmentArgs := []any{term}
		if f.SearchCode {
			fragmentMatch += " OR instr(snip_fold(f.code), ?) > 0"
			fragmentArgs = append(fragmentArgs, term)
		}
		args := append([]any{term, term}, fragmentArgs...)
		b.add(`(instr(snip_fold(s.title), ?) > 0 OR instr(snip_fold(s.description), ?) > 0
			OR EXISTS (SELECT 1 FROM fragments f WHERE f.snippet_id = s.id AND (`+fragmentMatch+`)))`,
			args...)
	}

	if f.Language != "" {
		b.add("EXISTS (SELECT 1 FROM fragments f WHERE f.snippet_id = s.id AND f.language = ?)", f.Language)
	}

	// One EXISTS per tag: a snippet must carry every requested category.
	for _, c := range f.Categories {
		b.add("EXISTS (SELECT 1 FROM categories c WHERE c.snippet_id = s.id AND c.name = ?)", c)
	}

	if f.Favorites {
		b.add("s.is_favorite = 1")
	}
	if f.Pinned {
		b.add("s.is_pinned = 1")
	}

	where, args := b.build()
	return compiledQuery{where: where, args: args, orderBy: orderBy(f.Sort)}
}

// orderBy returns the ORDER BY clause for s. Every order ends with s.id so
// offset pagination sees a total order.
func orderBy(s domain.Sort) string {
	switch domain.ParseSort(string(s)) {
	case domain.SortOldest:
		return " ORDER BY s.updated_at ASC, s.id ASC"
	case domain.SortAlphaAsc:
		return " ORDER BY snip_fold(s.title) ASC, s.id ASC"
	case domain.SortAlphaDesc:
		return " ORDER BY snip_fold(s.title) DESC, s.id ASC"
	default:
		return " ORDER BY s.updated_at DESC, s.id ASC"
	}
}
