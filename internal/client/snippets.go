package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/snipstash/snipstash-server/internal/client/listcache"
	"github.com/snipstash/snipstash-server/internal/domain"
)

// Pagination mirrors the pagination block of a list response.
type Pagination struct {
	Total   int  `json:"total"`
	Offset  int  `json:"offset"`
	Limit   int  `json:"limit"`
	HasMore bool `json:"hasMore"`
}

// ListResult is one page of snippets.
type ListResult struct {
	Data       []*domain.Snippet `json:"data"`
	Pagination Pagination        `json:"pagination"`
}

// Session is the result of a successful login.
type Session struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresAt   time.Time    `json:"expires_at"`
	User        *domain.User `json:"user"`
}

type idResponse struct {
	ID string `json:"id"`
}

func scopePath(scope domain.Scope) string {
	if scope.Public {
		return "/public/snippets"
	}
	return "/snippets"
}

// Login exchanges credentials for an access token and starts using it.
func (c *Client) Login(ctx context.Context, email, password string) (*Session, error) {
	var s Session
	body := map[string]string{"email": email, "password": password}
	if err := c.send(ctx, http.MethodPost, "/auth/login", body, &s); err != nil {
		return nil, err
	}
	c.SetToken(s.AccessToken)
	return &s, nil
}

// Me returns the authenticated user.
func (c *Client) Me(ctx context.Context) (*domain.User, error) {
	var u domain.User
	if err := c.get(ctx, "/auth/me", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// ListSnippets fetches one page of snippets visible in scope.
func (c *Client) ListSnippets(ctx context.Context, scope domain.Scope, filter domain.Filter, offset, limit int) (*ListResult, error) {
	q := filter.InScope(scope).Values()
	q.Set("offset", strconv.Itoa(offset))
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var res ListResult
	if err := c.get(ctx, scopePath(scope), q, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// FetchPage implements listcache.Fetcher.
func (c *Client) FetchPage(ctx context.Context, key listcache.Key, offset, limit int) (listcache.Page, error) {
	res, err := c.ListSnippets(ctx, key.Scope, key.Filter, offset, limit)
	if err != nil {
		return listcache.Page{}, err
	}
	return listcache.Page{
		Records: res.Data,
		Offset:  res.Pagination.Offset,
		Limit:   res.Pagination.Limit,
		Total:   res.Pagination.Total,
		HasMore: res.Pagination.HasMore,
	}, nil
}

// Metadata returns the categories and languages visible in scope.
func (c *Client) Metadata(ctx context.Context, scope domain.Scope) (*domain.Metadata, error) {
	var m domain.Metadata
	if err := c.get(ctx, scopePath(scope)+"/metadata", nil, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// GetSnippet fetches one snippet.
func (c *Client) GetSnippet(ctx context.Context, scope domain.Scope, id string) (*domain.Snippet, error) {
	var sn domain.Snippet
	if err := c.get(ctx, scopePath(scope)+"/"+url.PathEscape(id), nil, &sn); err != nil {
		return nil, err
	}
	return &sn, nil
}

// RawFragment returns a fragment's code with LF line endings.
func (c *Client) RawFragment(ctx context.Context, scope domain.Scope, id, fragmentID string) (string, error) {
	var raw []byte
	req := request{
		method: http.MethodGet,
		path:   scopePath(scope) + "/" + url.PathEscape(id) + "/" + url.PathEscape(fragmentID) + "/raw",
		out:    &raw,
		accept: "text/plain",
	}
	err := c.retry.retry(ctx, func() error { return c.do(ctx, req) })
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// Create creates a snippet.
func (c *Client) Create(ctx context.Context, in domain.SnippetInput) (*domain.Snippet, error) {
	var sn domain.Snippet
	if err := c.send(ctx, http.MethodPost, "/snippets", in, &sn); err != nil {
		return nil, err
	}
	return &sn, nil
}

// Update replaces a snippet's content.
func (c *Client) Update(ctx context.Context, id string, in domain.SnippetInput) (*domain.Snippet, error) {
	var sn domain.Snippet
	if err := c.send(ctx, http.MethodPut, "/snippets/"+url.PathEscape(id), in, &sn); err != nil {
		return nil, err
	}
	return &sn, nil
}

// Recycle moves a snippet to the recycle bin.
func (c *Client) Recycle(ctx context.Context, id string) error {
	return c.send(ctx, http.MethodPatch, "/snippets/"+url.PathEscape(id)+"/recycle", nil, &idResponse{})
}

// Restore returns a recycled snippet to the active collection.
func (c *Client) Restore(ctx context.Context, id string) error {
	return c.send(ctx, http.MethodPatch, "/snippets/"+url.PathEscape(id)+"/restore", nil, &idResponse{})
}

// Delete permanently removes a recycled snippet.
func (c *Client) Delete(ctx context.Context, id string) error {
	return c.send(ctx, http.MethodDelete, "/snippets/"+url.PathEscape(id), nil, &idResponse{})
}

// SetPinned sets the pinned flag.
func (c *Client) SetPinned(ctx context.Context, id string, pinned bool) (*domain.Snippet, error) {
	var sn domain.Snippet
	body := map[string]bool{"is_pinned": pinned}
	if err := c.send(ctx, http.MethodPatch, "/snippets/"+url.PathEscape(id)+"/pin", body, &sn); err != nil {
		return nil, err
	}
	return &sn, nil
}

// SetFavorite sets the favorite flag.
func (c *Client) SetFavorite(ctx context.Context, id string, favorite bool) (*domain.Snippet, error) {
	var sn domain.Snippet
	body := map[string]bool{"is_favorite": favorite}
	if err := c.send(ctx, http.MethodPatch, "/snippets/"+url.PathEscape(id)+"/favorite", body, &sn); err != nil {
		return nil, err
	}
	return &sn, nil
}
