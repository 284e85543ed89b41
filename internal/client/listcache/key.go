// Package listcache holds the client-side copy of paginated snippet
// listings, one entry per (scope, filter) pair.
package listcache

import (
	"net/url"
	"slices"
	"strings"

	"github.com/snipstash/snipstash-server/internal/domain"
)

// Key identifies one cached listing.
type Key struct {
	Scope  domain.Scope
	Filter domain.Filter
}

// NewKey returns the key for filter in scope. The filter is normalized and
// reduced to what the scope supports, so equivalent filters share an entry.
func NewKey(scope domain.Scope, filter domain.Filter) Key {
	f := filter.Normalized().InScope(scope)
	f.Categories = slices.Sorted(slices.Values(f.Categories))
	return Key{Scope: scope, Filter: f}
}

// Signature is the canonical string form of the key. Two keys with the
// same signature describe the same server query.
//
// Parameters are emitted in sorted order with booleans as "true"/"false"
// and categories sorted, so construction order never matters.
func (k Key) Signature() string {
	f := k.Filter.Normalized().InScope(k.Scope)
	cats := slices.Sorted(slices.Values(f.Categories))

	v := url.Values{}
	v.Set("scope", k.Scope.String())
	v.Set(domain.ParamSearch, f.Search)
	v.Set(domain.ParamSearchCode, boolString(f.SearchCode))
	v.Set(domain.ParamLanguage, f.Language)
	v.Set(domain.ParamCategory, strings.Join(cats, ","))
	v.Set(domain.ParamFavorites, boolString(f.Favorites))
	v.Set(domain.ParamPinned, boolString(f.Pinned))
	v.Set(domain.ParamRecycled, boolString(f.Recycled))
	v.Set(domain.ParamSort, string(f.Sort))
	return v.Encode()
}

// Matches reports whether sn belongs in this listing.
func (k Key) Matches(sn *domain.Snippet) bool {
	return k.Filter.Matches(sn, k.Scope)
}

// IsRecycledView reports whether the key lists the recycle bin.
func (k Key) IsRecycledView() bool {
	return k.Filter.Recycled
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
