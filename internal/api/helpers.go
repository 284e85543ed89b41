package api

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/snipstash/snipstash-server/internal/domain"
	"github.com/snipstash/snipstash-server/internal/store"
)

// ListQuery holds the listing query parameters shared by the owner and
// public list endpoints. Every field is a string so malformed values fall
// back to defaults instead of failing the request.
type ListQuery struct {
	Search     string `query:"search" doc:"Substring matched against title, description and file names"`
	SearchCode string `query:"searchCode" doc:"Also match fragment code when true"`
	Language   string `query:"language" doc:"Only snippets with a fragment in this language"`
	Category   string `query:"category" doc:"Comma-separated categories; all must match"`
	Favorites  string `query:"favorites" doc:"Only favorites when true"`
	Pinned     string `query:"pinned" doc:"Only pinned snippets when true"`
	Recycled   string `query:"recycled" doc:"List the recycle bin when true"`
	Sort       string `query:"sort" doc:"newest, oldest, alpha-asc or alpha-desc (default newest)"`
	Offset     string `query:"offset" doc:"Number of records to skip"`
	Limit      string `query:"limit" doc:"Page size, 1-100 (default 50)"`
}

// Filter decodes the filter part of the query.
func (q *ListQuery) Filter() domain.Filter {
	v := url.Values{}
	set := func(key, value string) {
		if value != "" {
			v.Set(key, value)
		}
	}
	set(domain.ParamSearch, q.Search)
	set(domain.ParamSearchCode, q.SearchCode)
	set(domain.ParamLanguage, q.Language)
	set(domain.ParamCategory, q.Category)
	set(domain.ParamFavorites, q.Favorites)
	set(domain.ParamPinned, q.Pinned)
	set(domain.ParamRecycled, q.Recycled)
	set(domain.ParamSort, q.Sort)
	return domain.FilterFromValues(v)
}

// Page decodes the offset and limit. The store clamps the result.
func (q *ListQuery) Page() store.PageRequest {
	return store.PageRequest{
		Offset: parseIntOr(q.Offset, 0),
		Limit:  parseIntOr(q.Limit, store.DefaultPageLimit),
	}
}

func parseIntOr(raw string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fallback
	}
	return n
}

// Pagination describes the window returned by a list endpoint.
type Pagination struct {
	Total   int  `json:"total" doc:"Number of records matching the filter"`
	Offset  int  `json:"offset" doc:"Offset of this page"`
	Limit   int  `json:"limit" doc:"Page size used"`
	HasMore bool `json:"hasMore" doc:"Whether records exist past this page"`
}

// SnippetListResponse is one page of snippets.
type SnippetListResponse struct {
	Data       []*domain.Snippet `json:"data"`
	Pagination Pagination        `json:"pagination"`
}

func newSnippetListResponse(page *store.Page[*domain.Snippet]) SnippetListResponse {
	items := page.Items
	if items == nil {
		items = []*domain.Snippet{}
	}
	return SnippetListResponse{
		Data: items,
		Pagination: Pagination{
			Total:   page.Total,
			Offset:  page.Offset,
			Limit:   page.Limit,
			HasMore: page.HasMore(),
		},
	}
}

// MetadataResponse lists the filter vocabularies of a scope.
type MetadataResponse struct {
	Categories []string `json:"categories" doc:"Distinct categories, sorted"`
	Languages  []string `json:"languages" doc:"Distinct fragment languages, sorted"`
}

func newMetadataResponse(md *domain.Metadata) MetadataResponse {
	resp := MetadataResponse{Categories: []string{}, Languages: []string{}}
	if md == nil {
		return resp
	}
	if md.Categories != nil {
		resp.Categories = md.Categories
	}
	if md.Languages != nil {
		resp.Languages = md.Languages
	}
	return resp
}

// rawContentType is served for raw fragment downloads.
const rawContentType = "text/plain; charset=utf-8"
