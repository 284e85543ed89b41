package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snipstash/snipstash-server/internal/domain"
)

func snippetBody(title string, public bool, categories ...string) map[string]any {
	return map[string]any{
		"title":       title,
		"description": "about " + title,
		"is_public":   public,
		"categories":  categories,
		"fragments": []map[string]any{
			{"file_name": "main.go", "language": "go", "code": "package main\r\n\r\nfunc main() {}\r\n"},
		},
	}
}

func (ts *testServer) createSnippet(t *testing.T, authHeader string, body map[string]any) *domain.Snippet {
	t.Helper()
	resp := ts.api.Post("/snippets", authHeader, body)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	return decodeJSON[*domain.Snippet](t, resp)
}

func TestCreateAndGetSnippet(t *testing.T) {
	ts := setupTestServer(t)
	authHeader, userID := ts.createUser(t, "dev@example.com", false)

	created := ts.createSnippet(t, authHeader, snippetBody("Hello", false, "CLI", "Go"))
	assert.Equal(t, userID, created.OwnerID)
	assert.Equal(t, []string{"cli", "go"}, created.Categories)
	require.Len(t, created.Fragments, 1)
	assert.NotEmpty(t, created.Fragments[0].ID)
	assert.Nil(t, created.ExpiryDate)

	resp := ts.api.Get("/snippets/"+created.ID, authHeader)
	require.Equal(t, http.StatusOK, resp.Code)
	got := decodeJSON[*domain.Snippet](t, resp)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "Hello", got.Title)
}

func TestCreateSnippet_Validation(t *testing.T) {
	ts := setupTestServer(t)
	authHeader, _ := ts.createUser(t, "dev@example.com", false)

	body := snippetBody("", false)
	resp := ts.api.Post("/snippets", authHeader, body)
	require.Equal(t, http.StatusBadRequest, resp.Code, resp.Body.String())
	assert.Equal(t, "VALIDATION", decodeJSON[APIError](t, resp).Code)

	resp = ts.api.Post("/snippets", authHeader, map[string]any{"title": "no fragments"})
	require.Equal(t, http.StatusBadRequest, resp.Code, resp.Body.String())
	assert.Equal(t, "VALIDATION", decodeJSON[APIError](t, resp).Code)
}

func TestGetSnippet_OtherOwnerIsNotFound(t *testing.T) {
	ts := setupTestServer(t)
	alice, _ := ts.createUser(t, "alice@example.com", false)
	bob, _ := ts.createUser(t, "bob@example.com", false)

	sn := ts.createSnippet(t, alice, snippetBody("Private", false))

	resp := ts.api.Get("/snippets/"+sn.ID, bob)
	require.Equal(t, http.StatusNotFound, resp.Code)
	assert.Equal(t, "NOT_FOUND", decodeJSON[APIError](t, resp).Code)
}

func TestListSnippets_Pagination(t *testing.T) {
	ts := setupTestServer(t)
	authHeader, _ := ts.createUser(t, "dev@example.com", false)

	for _, title := range []string{"a", "b", "c", "d", "e"} {
		ts.createSnippet(t, authHeader, snippetBody(title, false))
	}

	resp := ts.api.Get("/snippets?limit=2&offset=0&sort=alpha-asc", authHeader)
	require.Equal(t, http.StatusOK, resp.Code)
	page := decodeJSON[SnippetListResponse](t, resp)
	require.Len(t, page.Data, 2)
	assert.Equal(t, "a", page.Data[0].Title)
	assert.Equal(t, Pagination{Total: 5, Offset: 0, Limit: 2, HasMore: true}, page.Pagination)

	resp = ts.api.Get("/snippets?limit=2&offset=4&sort=alpha-asc", authHeader)
	page = decodeJSON[SnippetListResponse](t, resp)
	require.Len(t, page.Data, 1)
	assert.Equal(t, "e", page.Data[0].Title)
	assert.False(t, page.Pagination.HasMore)
}

func TestListSnippets_BadParamsFallBack(t *testing.T) {
	ts := setupTestServer(t)
	authHeader, _ := ts.createUser(t, "dev@example.com", false)
	ts.createSnippet(t, authHeader, snippetBody("only", false))

	resp := ts.api.Get("/snippets?limit=abc&offset=-3&sort=sideways&favorites=maybe", authHeader)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	page := decodeJSON[SnippetListResponse](t, resp)
	assert.Len(t, page.Data, 1)
	assert.Equal(t, 50, page.Pagination.Limit)
	assert.Equal(t, 0, page.Pagination.Offset)
}

func TestListSnippets_Filters(t *testing.T) {
	ts := setupTestServer(t)
	authHeader, _ := ts.createUser(t, "dev@example.com", false)

	ts.createSnippet(t, authHeader, snippetBody("one", false, "cli", "go"))
	ts.createSnippet(t, authHeader, snippetBody("two", false, "cli"))

	page := decodeJSON[SnippetListResponse](t, ts.api.Get("/snippets?category=CLI,go", authHeader))
	require.Len(t, page.Data, 1)
	assert.Equal(t, "one", page.Data[0].Title)

	page = decodeJSON[SnippetListResponse](t, ts.api.Get("/snippets?search=TWO", authHeader))
	require.Len(t, page.Data, 1)
	assert.Equal(t, "two", page.Data[0].Title)

	page = decodeJSON[SnippetListResponse](t, ts.api.Get("/snippets?search=func+main", authHeader))
	assert.Empty(t, page.Data)
	assert.NotNil(t, page.Data)

	page = decodeJSON[SnippetListResponse](t, ts.api.Get("/snippets?search=func+main&searchCode=true", authHeader))
	assert.Len(t, page.Data, 2)
}

func TestRecycleLifecycle(t *testing.T) {
	ts := setupTestServer(t)
	authHeader, _ := ts.createUser(t, "dev@example.com", false)
	sn := ts.createSnippet(t, authHeader, snippetBody("doomed", false))

	// Purging an active snippet is not allowed.
	resp := ts.api.Delete("/snippets/"+sn.ID, authHeader)
	require.Equal(t, http.StatusNotFound, resp.Code)
	assert.Equal(t, "INVALID_STATE", decodeJSON[APIError](t, resp).Code)

	resp = ts.api.Patch("/snippets/"+sn.ID+"/recycle", authHeader)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, sn.ID, decodeJSON[SnippetIDResponse](t, resp).ID)

	resp = ts.api.Patch("/snippets/"+sn.ID+"/recycle", authHeader)
	require.Equal(t, http.StatusNotFound, resp.Code)
	assert.Equal(t, "INVALID_STATE", decodeJSON[APIError](t, resp).Code)

	active := decodeJSON[SnippetListResponse](t, ts.api.Get("/snippets", authHeader))
	assert.Empty(t, active.Data)
	recycled := decodeJSON[SnippetListResponse](t, ts.api.Get("/snippets?recycled=true", authHeader))
	require.Len(t, recycled.Data, 1)
	assert.NotNil(t, recycled.Data[0].ExpiryDate)

	resp = ts.api.Patch("/snippets/"+sn.ID+"/restore", authHeader)
	require.Equal(t, http.StatusOK, resp.Code)
	active = decodeJSON[SnippetListResponse](t, ts.api.Get("/snippets", authHeader))
	require.Len(t, active.Data, 1)
	assert.Nil(t, active.Data[0].ExpiryDate)

	resp = ts.api.Patch("/snippets/"+sn.ID+"/restore", authHeader)
	assert.Equal(t, http.StatusNotFound, resp.Code)

	ts.api.Patch("/snippets/"+sn.ID+"/recycle", authHeader)
	resp = ts.api.Delete("/snippets/"+sn.ID, authHeader)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, http.StatusNotFound, ts.api.Get("/snippets/"+sn.ID, authHeader).Code)
	assert.Equal(t, "NOT_FOUND", decodeJSON[APIError](t, ts.api.Delete("/snippets/"+sn.ID, authHeader)).Code)
}

func TestPinAndFavorite(t *testing.T) {
	ts := setupTestServer(t)
	authHeader, _ := ts.createUser(t, "dev@example.com", false)
	sn := ts.createSnippet(t, authHeader, snippetBody("star", false))

	resp := ts.api.Patch("/snippets/"+sn.ID+"/favorite", authHeader, map[string]any{"is_favorite": true})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	updated := decodeJSON[*domain.Snippet](t, resp)
	assert.True(t, updated.IsFavorite)
	assert.Equal(t, sn.UpdatedAt, updated.UpdatedAt)

	resp = ts.api.Patch("/snippets/"+sn.ID+"/pin", authHeader, map[string]any{"is_pinned": true})
	require.Equal(t, http.StatusOK, resp.Code)
	assert.True(t, decodeJSON[*domain.Snippet](t, resp).IsPinned)

	page := decodeJSON[SnippetListResponse](t, ts.api.Get("/snippets?favorites=true&pinned=true", authHeader))
	assert.Len(t, page.Data, 1)
}

func TestUpdateSnippet(t *testing.T) {
	ts := setupTestServer(t)
	authHeader, _ := ts.createUser(t, "dev@example.com", false)
	sn := ts.createSnippet(t, authHeader, snippetBody("before", false))

	resp := ts.api.Put("/snippets/"+sn.ID, authHeader, snippetBody("after", true, "edited"))
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	got := decodeJSON[*domain.Snippet](t, resp)
	assert.Equal(t, "after", got.Title)
	assert.True(t, got.IsPublic)
	assert.Equal(t, []string{"edited"}, got.Categories)
	assert.Equal(t, sn.CreatedAt, got.CreatedAt)

	resp = ts.api.Put("/snippets/snp-missing", authHeader, snippetBody("x", false))
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestRawFragment(t *testing.T) {
	ts := setupTestServer(t)
	authHeader, _ := ts.createUser(t, "dev@example.com", false)
	sn := ts.createSnippet(t, authHeader, snippetBody("raw", false))

	resp := ts.api.Get("/snippets/"+sn.ID+"/"+sn.Fragments[0].ID+"/raw", authHeader)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "text/plain; charset=utf-8", resp.Header().Get("Content-Type"))
	assert.Equal(t, "package main\n\nfunc main() {}\n", resp.Body.String())

	resp = ts.api.Get("/snippets/"+sn.ID+"/frg-missing/raw", authHeader)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestSnippetMetadata(t *testing.T) {
	ts := setupTestServer(t)
	authHeader, _ := ts.createUser(t, "dev@example.com", false)
	ts.createSnippet(t, authHeader, snippetBody("one", false, "zsh", "cli"))
	gone := ts.createSnippet(t, authHeader, snippetBody("two", false, "recycled-only"))
	ts.api.Patch("/snippets/"+gone.ID+"/recycle", authHeader)

	resp := ts.api.Get("/snippets/metadata", authHeader)
	require.Equal(t, http.StatusOK, resp.Code)
	md := decodeJSON[MetadataResponse](t, resp)
	assert.Equal(t, []string{"cli", "zsh"}, md.Categories)
	assert.Equal(t, []string{"go"}, md.Languages)
}

func TestPublicSnippets(t *testing.T) {
	ts := setupTestServer(t)
	authHeader, _ := ts.createUser(t, "dev@example.com", false)
	public := ts.createSnippet(t, authHeader, snippetBody("shared", true, "demo"))
	private := ts.createSnippet(t, authHeader, snippetBody("secret", false))

	page := decodeJSON[SnippetListResponse](t, ts.api.Get("/public/snippets"))
	require.Len(t, page.Data, 1)
	assert.Equal(t, public.ID, page.Data[0].ID)

	// Owner-only toggles are ignored on the public path.
	page = decodeJSON[SnippetListResponse](t, ts.api.Get("/public/snippets?favorites=true&recycled=true"))
	assert.Len(t, page.Data, 1)

	assert.Equal(t, http.StatusOK, ts.api.Get("/public/snippets/"+public.ID).Code)
	assert.Equal(t, http.StatusNotFound, ts.api.Get("/public/snippets/"+private.ID).Code)

	raw := ts.api.Get("/public/snippets/" + public.ID + "/" + public.Fragments[0].ID + "/raw")
	require.Equal(t, http.StatusOK, raw.Code)
	assert.NotContains(t, raw.Body.String(), "\r")

	md := decodeJSON[MetadataResponse](t, ts.api.Get("/public/snippets/metadata"))
	assert.Equal(t, []string{"demo"}, md.Categories)

	ts.api.Patch("/snippets/"+public.ID+"/recycle", authHeader)
	assert.Equal(t, http.StatusNotFound, ts.api.Get("/public/snippets/"+public.ID).Code)
}

func TestAdminPurge(t *testing.T) {
	ts := setupTestServer(t)
	owner, _ := ts.createUser(t, "dev@example.com", false)
	admin, _ := ts.createUser(t, "root@example.com", true)
	sn := ts.createSnippet(t, owner, snippetBody("active", false))

	resp := ts.api.Delete("/admin/snippets/"+sn.ID, owner)
	require.Equal(t, http.StatusForbidden, resp.Code)
	assert.Equal(t, "FORBIDDEN", decodeJSON[APIError](t, resp).Code)

	resp = ts.api.Delete("/admin/snippets/"+sn.ID, admin)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, http.StatusNotFound, ts.api.Get("/snippets/"+sn.ID, owner).Code)

	assert.Equal(t, http.StatusNotFound, ts.api.Delete("/admin/snippets/"+sn.ID, admin).Code)
}
