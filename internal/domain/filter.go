package domain

import (
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/snipstash/snipstash-server/internal/normalize"
)

// Sort is a listing order.
type Sort string

// Supported sort orders. Every order breaks ties on snippet ID ascending.
const (
	SortNewest    Sort = "newest"
	SortOldest    Sort = "oldest"
	SortAlphaAsc  Sort = "alpha-asc"
	SortAlphaDesc Sort = "alpha-desc"
)

// ParseSort returns the sort named by raw, falling back to SortNewest for
// empty or unknown values.
func ParseSort(raw string) Sort {
	switch s := Sort(strings.ToLower(strings.TrimSpace(raw))); s {
	case SortNewest, SortOldest, SortAlphaAsc, SortAlphaDesc:
		return s
	default:
		return SortNewest
	}
}

// Query parameter names shared by the HTTP API and the client.
const (
	ParamSearch     = "search"
	ParamSearchCode = "searchCode"
	ParamLanguage   = "language"
	ParamCategory   = "category"
	ParamFavorites  = "favorites"
	ParamPinned     = "pinned"
	ParamRecycled   = "recycled"
	ParamSort       = "sort"
)

// Filter describes which snippets a listing returns and in what order.
//
// Filter is a value: the With* methods return modified copies and never
// touch the receiver, so a Filter can be shared freely and used as the
// basis of a cache key.
type Filter struct {
	Search     string
	SearchCode bool
	Language   string
	Categories []string
	Favorites  bool
	Pinned     bool
	Recycled   bool
	Sort       Sort
}

// NewFilter returns an empty filter sorted newest first.
func NewFilter() Filter {
	return Filter{Sort: SortNewest}
}

// Normalized returns a copy with canonical text fields and a valid sort.
func (f Filter) Normalized() Filter {
	f.Search = strings.TrimSpace(f.Search)
	f.Language = normalize.Language(f.Language)
	f.Categories = normalize.Categories(f.Categories)
	f.Sort = ParseSort(string(f.Sort))
	return f
}

// InScope returns the filter as it applies in scope. The public scope has
// no recycle bin, favorites or pins, so those toggles are cleared.
func (f Filter) InScope(scope Scope) Filter {
	if scope.Public {
		f.Favorites = false
		f.Pinned = false
		f.Recycled = false
	}
	return f
}

// WithSearch returns a copy searching for term.
func (f Filter) WithSearch(term string) Filter {
	f.Search = term
	return f
}

// WithSearchCode returns a copy that does or does not match fragment code.
func (f Filter) WithSearchCode(on bool) Filter {
	f.SearchCode = on
	return f
}

// WithLanguage returns a copy restricted to lang; empty clears it.
func (f Filter) WithLanguage(lang string) Filter {
	f.Language = lang
	return f
}

// WithCategories returns a copy requiring all of tags.
func (f Filter) WithCategories(tags ...string) Filter {
	f.Categories = slices.Clone(tags)
	return f
}

// ToggleCategory returns a copy with tag added if absent or removed if present.
func (f Filter) ToggleCategory(tag string) Filter {
	tag = normalize.Category(tag)
	if tag == "" {
		return f
	}
	cats := normalize.Categories(f.Categories)
	if i := slices.Index(cats, tag); i >= 0 {
		f.Categories = slices.Delete(cats, i, i+1)
		return f
	}
	f.Categories = append(cats, tag)
	return f
}

// WithFavorites returns a copy toggling the favorites-only restriction.
func (f Filter) WithFavorites(on bool) Filter {
	f.Favorites = on
	return f
}

// WithPinned returns a copy toggling the pinned-only restriction.
func (f Filter) WithPinned(on bool) Filter {
	f.Pinned = on
	return f
}

// WithRecycled returns a copy listing the recycle bin instead of active snippets.
func (f Filter) WithRecycled(on bool) Filter {
	f.Recycled = on
	return f
}

// WithSort returns a copy using sort s.
func (f Filter) WithSort(s Sort) Filter {
	f.Sort = s
	return f
}

// Cleared returns an empty filter that keeps the sort and recycle-bin view.
func (f Filter) Cleared() Filter {
	return Filter{Sort: f.Sort, Recycled: f.Recycled}
}

// IsZero reports whether the filter restricts nothing beyond the default view.
func (f Filter) IsZero() bool {
	n := f.Normalized()
	return n.Search == "" && n.Language == "" && len(n.Categories) == 0 &&
		!n.Favorites && !n.Pinned && !n.Recycled
}

// Values encodes the filter as URL query parameters. Unset fields are
// omitted, as is the default sort.
func (f Filter) Values() url.Values {
	n := f.Normalized()
	v := url.Values{}
	if n.Search != "" {
		v.Set(ParamSearch, n.Search)
	}
	if n.SearchCode {
		v.Set(ParamSearchCode, "true")
	}
	if n.Language != "" {
		v.Set(ParamLanguage, n.Language)
	}
	if len(n.Categories) > 0 {
		v.Set(ParamCategory, strings.Join(n.Categories, ","))
	}
	if n.Favorites {
		v.Set(ParamFavorites, "true")
	}
	if n.Pinned {
		v.Set(ParamPinned, "true")
	}
	if n.Recycled {
		v.Set(ParamRecycled, "true")
	}
	if n.Sort != SortNewest {
		v.Set(ParamSort, string(n.Sort))
	}
	return v
}

// FilterFromValues decodes a filter from URL query parameters. Malformed
// values fall back to their defaults rather than failing.
func FilterFromValues(v url.Values) Filter {
	return Filter{
		Search:     v.Get(ParamSearch),
		SearchCode: parseFlag(v.Get(ParamSearchCode)),
		Language:   v.Get(ParamLanguage),
		Categories: normalize.SplitCategories(v.Get(ParamCategory)),
		Favorites:  parseFlag(v.Get(ParamFavorites)),
		Pinned:     parseFlag(v.Get(ParamPinned)),
		Recycled:   parseFlag(v.Get(ParamRecycled)),
		Sort:       ParseSort(v.Get(ParamSort)),
	}.Normalized()
}

func parseFlag(raw string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(raw))
	return err == nil && b
}

// Matches reports whether sn would be returned by this filter in scope.
// It mirrors the SQL predicate built by the store; both sides compare
// text folded by normalize.Fold.
func (f Filter) Matches(sn *Snippet, scope Scope) bool {
	if sn == nil || !scope.Contains(sn) {
		return false
	}
	n := f.Normalized().InScope(scope)

	if sn.IsRecycled() != n.Recycled {
		return false
	}
	if n.Favorites && !sn.IsFavorite {
		return false
	}
	if n.Pinned && !sn.IsPinned {
		return false
	}
	if n.Language != "" && !sn.HasLanguage(n.Language) {
		return false
	}
	for _, c := range n.Categories {
		if !sn.HasCategory(c) {
			return false
		}
	}
	if n.Search != "" && !matchesText(sn, normalize.Fold(n.Search), n.SearchCode) {
		return false
	}
	return true
}

func matchesText(sn *Snippet, term string, includeCode bool) bool {
	if strings.Contains(normalize.Fold(sn.Title), term) ||
		strings.Contains(normalize.Fold(sn.Description), term) {
		return true
	}
	for _, fr := range sn.Fragments {
		if strings.Contains(normalize.Fold(fr.FileName), term) {
			return true
		}
		if includeCode && strings.Contains(normalize.Fold(fr.Code), term) {
			return true
		}
	}
	return false
}

// Less reports whether a sorts before b under s. Used to keep locally
// edited cache pages in server order.
func (s Sort) Less(a, b *Snippet) bool {
	switch ParseSort(string(s)) {
	case SortOldest:
		if !a.UpdatedAt.Equal(b.UpdatedAt) {
			return a.UpdatedAt.Before(b.UpdatedAt)
		}
	case SortAlphaAsc:
		if c := strings.Compare(normalize.Fold(a.Title), normalize.Fold(b.Title)); c != 0 {
			return c < 0
		}
	case SortAlphaDesc:
		if c := strings.Compare(normalize.Fold(a.Title), normalize.Fold(b.Title)); c != 0 {
			return c > 0
		}
	default:
		if !a.UpdatedAt.Equal(b.UpdatedAt) {
			return a.UpdatedAt.After(b.UpdatedAt)
		}
	}
	return a.ID < b.ID
}
