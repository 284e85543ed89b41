package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/snipstash/snipstash-server/internal/domain"
)

func (s *Server) registerSnippetRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listSnippets",
		Method:      http.MethodGet,
		Path:        "/snippets",
		Summary:     "List snippets",
		Description: "Returns one page of the caller's snippets matching the filter",
		Tags:        []string{tagSnippets},
		Security:    ownerSecurity,
	}, s.handleListSnippets)

	huma.Register(s.api, huma.Operation{
		OperationID: "getSnippetMetadata",
		Method:      http.MethodGet,
		Path:        "/snippets/metadata",
		Summary:     "Get snippet metadata",
		Description: "Returns the categories and languages used by the caller's active snippets",
		Tags:        []string{tagSnippets},
		Security:    ownerSecurity,
	}, s.handleGetSnippetMetadata)

	huma.Register(s.api, huma.Operation{
		OperationID: "getSnippet",
		Method:      http.MethodGet,
		Path:        "/snippets/{id}",
		Summary:     "Get snippet",
		Description: "Returns one of the caller's snippets, recycled or not",
		Tags:        []string{tagSnippets},
		Security:    ownerSecurity,
	}, s.handleGetSnippet)

	huma.Register(s.api, huma.Operation{
		OperationID: "getRawFragment",
		Method:      http.MethodGet,
		Path:        "/snippets/{id}/{fragmentId}/raw",
		Summary:     "Get raw fragment",
		Description: "Returns a fragment's code as plain text with LF line endings",
		Tags:        []string{tagSnippets},
		Security:    ownerSecurity,
	}, s.handleGetRawFragment)

	huma.Register(s.api, huma.Operation{
		OperationID:   "createSnippet",
		Method:        http.MethodPost,
		Path:          "/snippets",
		Summary:       "Create snippet",
		Description:   "Creates a new active snippet",
		Tags:          []string{tagSnippets},
		Security:      ownerSecurity,
		DefaultStatus: http.StatusCreated,
	}, s.handleCreateSnippet)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateSnippet",
		Method:      http.MethodPut,
		Path:        "/snippets/{id}",
		Summary:     "Update snippet",
		Description: "Replaces a snippet's content, categories and fragments",
		Tags:        []string{tagSnippets},
		Security:    ownerSecurity,
	}, s.handleUpdateSnippet)

	huma.Register(s.api, huma.Operation{
		OperationID: "recycleSnippet",
		Method:      http.MethodPatch,
		Path:        "/snippets/{id}/recycle",
		Summary:     "Move snippet to recycle bin",
		Description: "Marks an active snippet as recycled; it expires after the retention window",
		Tags:        []string{tagSnippets},
		Security:    ownerSecurity,
	}, s.handleRecycleSnippet)

	huma.Register(s.api, huma.Operation{
		OperationID: "restoreSnippet",
		Method:      http.MethodPatch,
		Path:        "/snippets/{id}/restore",
		Summary:     "Restore snippet",
		Description: "Takes a snippet out of the recycle bin",
		Tags:        []string{tagSnippets},
		Security:    ownerSecurity,
	}, s.handleRestoreSnippet)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteSnippet",
		Method:      http.MethodDelete,
		Path:        "/snippets/{id}",
		Summary:     "Delete snippet permanently",
		Description: "Purges a recycled snippet. Active snippets must be recycled first.",
		Tags:        []string{tagSnippets},
		Security:    ownerSecurity,
	}, s.handleDeleteSnippet)

	huma.Register(s.api, huma.Operation{
		OperationID: "pinSnippet",
		Method:      http.MethodPatch,
		Path:        "/snippets/{id}/pin",
		Summary:     "Pin or unpin snippet",
		Tags:        []string{tagSnippets},
		Security:    ownerSecurity,
	}, s.handlePinSnippet)

	huma.Register(s.api, huma.Operation{
		OperationID: "favoriteSnippet",
		Method:      http.MethodPatch,
		Path:        "/snippets/{id}/favorite",
		Summary:     "Favorite or unfavorite snippet",
		Tags:        []string{tagSnippets},
		Security:    ownerSecurity,
	}, s.handleFavoriteSnippet)
}

// === DTOs ===

// ListSnippetsInput contains parameters for listing snippets.
type ListSnippetsInput struct {
	ListQuery
}

// ListSnippetsOutput contains one page of snippets.
type ListSnippetsOutput struct {
	Body SnippetListResponse
}

// GetSnippetMetadataOutput contains the metadata aggregate.
type GetSnippetMetadataOutput struct {
	Body MetadataResponse
}

// SnippetIDInput identifies a snippet by path.
type SnippetIDInput struct {
	ID string `path:"id" doc:"Snippet ID"`
}

// SnippetOutput contains a single snippet.
type SnippetOutput struct {
	Body *domain.Snippet
}

// RawFragmentInput identifies a fragment of a snippet.
type RawFragmentInput struct {
	ID         string `path:"id" doc:"Snippet ID"`
	FragmentID string `path:"fragmentId" doc:"Fragment ID"`
}

// RawFragmentOutput is a fragment's code as plain text.
type RawFragmentOutput struct {
	ContentType string `header:"Content-Type"`
	Body        []byte
}

// FragmentRequest is one file of a create or update body.
type FragmentRequest struct {
	FileName string `json:"file_name" doc:"File name shown for the fragment"`
	Language string `json:"language,omitempty" doc:"Language tag, e.g. go or python"`
	Code     string `json:"code,omitempty" doc:"Source code"`
}

// SnippetRequest is the body of create and update.
type SnippetRequest struct {
	Title       string            `json:"title" doc:"Snippet title"`
	Description string            `json:"description,omitempty" doc:"Longer description"`
	IsPublic    bool              `json:"is_public,omitempty" doc:"Visible on the public listing"`
	Categories  []string          `json:"categories,omitempty" doc:"Category tags"`
	Fragments   []FragmentRequest `json:"fragments" doc:"Files in display order"`
}

func (r *SnippetRequest) toInput() domain.SnippetInput {
	fragments := make([]domain.FragmentInput, len(r.Fragments))
	for i, f := range r.Fragments {
		fragments[i] = domain.FragmentInput{FileName: f.FileName, Language: f.Language, Code: f.Code}
	}
	return domain.SnippetInput{
		Title:       r.Title,
		Description: r.Description,
		IsPublic:    r.IsPublic,
		Categories:  r.Categories,
		Fragments:   fragments,
	}
}

// CreateSnippetInput contains the new snippet.
type CreateSnippetInput struct {
	Body SnippetRequest
}

// UpdateSnippetInput contains the replacement content.
type UpdateSnippetInput struct {
	ID   string `path:"id" doc:"Snippet ID"`
	Body SnippetRequest
}

// SnippetIDResponse echoes the ID of the snippet a lifecycle call acted on.
type SnippetIDResponse struct {
	ID string `json:"id" doc:"Snippet ID"`
}

// SnippetIDOutput wraps SnippetIDResponse.
type SnippetIDOutput struct {
	Body SnippetIDResponse
}

// PinSnippetInput sets the pinned flag.
type PinSnippetInput struct {
	ID   string `path:"id" doc:"Snippet ID"`
	Body struct {
		IsPinned bool `json:"is_pinned" doc:"New pinned state"`
	}
}

// FavoriteSnippetInput sets the favorite flag.
type FavoriteSnippetInput struct {
	ID   string `path:"id" doc:"Snippet ID"`
	Body struct {
		IsFavorite bool `json:"is_favorite" doc:"New favorite state"`
	}
}

// === Handlers ===

func (s *Server) handleListSnippets(ctx context.Context, input *ListSnippetsInput) (*ListSnippetsOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	page, err := s.services.Snippets.List(ctx, domain.OwnerScope(userID), input.Filter(), input.Page())
	if err != nil {
		return nil, err
	}

	return &ListSnippetsOutput{Body: newSnippetListResponse(page)}, nil
}

func (s *Server) handleGetSnippetMetadata(ctx context.Context, _ *struct{}) (*GetSnippetMetadataOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	md, err := s.services.Snippets.Metadata(ctx, domain.OwnerScope(userID))
	if err != nil {
		return nil, err
	}

	return &GetSnippetMetadataOutput{Body: newMetadataResponse(md)}, nil
}

func (s *Server) handleGetSnippet(ctx context.Context, input *SnippetIDInput) (*SnippetOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	sn, err := s.services.Snippets.Get(ctx, userID, input.ID)
	if err != nil {
		return nil, err
	}

	return &SnippetOutput{Body: sn}, nil
}

func (s *Server) handleGetRawFragment(ctx context.Context, input *RawFragmentInput) (*RawFragmentOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	code, err := s.services.Snippets.RawFragment(ctx, domain.OwnerScope(userID), input.ID, input.FragmentID)
	if err != nil {
		return nil, err
	}

	return &RawFragmentOutput{ContentType: rawContentType, Body: []byte(code)}, nil
}

func (s *Server) handleCreateSnippet(ctx context.Context, input *CreateSnippetInput) (*SnippetOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	sn, err := s.services.Snippets.Create(ctx, userID, input.Body.toInput())
	if err != nil {
		return nil, err
	}

	return &SnippetOutput{Body: sn}, nil
}

func (s *Server) handleUpdateSnippet(ctx context.Context, input *UpdateSnippetInput) (*SnippetOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	sn, err := s.services.Snippets.Update(ctx, userID, input.ID, input.Body.toInput())
	if err != nil {
		return nil, err
	}

	return &SnippetOutput{Body: sn}, nil
}

func (s *Server) handleRecycleSnippet(ctx context.Context, input *SnippetIDInput) (*SnippetIDOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.services.Snippets.MoveToRecycle(ctx, userID, input.ID); err != nil {
		return nil, err
	}

	return &SnippetIDOutput{Body: SnippetIDResponse{ID: input.ID}}, nil
}

func (s *Server) handleRestoreSnippet(ctx context.Context, input *SnippetIDInput) (*SnippetIDOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.services.Snippets.Restore(ctx, userID, input.ID); err != nil {
		return nil, err
	}

	return &SnippetIDOutput{Body: SnippetIDResponse{ID: input.ID}}, nil
}

func (s *Server) handleDeleteSnippet(ctx context.Context, input *SnippetIDInput) (*SnippetIDOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.services.Snippets.Purge(ctx, userID, input.ID); err != nil {
		return nil, err
	}

	return &SnippetIDOutput{Body: SnippetIDResponse{ID: input.ID}}, nil
}

func (s *Server) handlePinSnippet(ctx context.Context, input *PinSnippetInput) (*SnippetOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	sn, err := s.services.Snippets.SetPinned(ctx, userID, input.ID, input.Body.IsPinned)
	if err != nil {
		return nil, err
	}

	return &SnippetOutput{Body: sn}, nil
}

func (s *Server) handleFavoriteSnippet(ctx context.Context, input *FavoriteSnippetInput) (*SnippetOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	sn, err := s.services.Snippets.SetFavorite(ctx, userID, input.ID, input.Body.IsFavorite)
	if err != nil {
		return nil, err
	}

	return &SnippetOutput{Body: sn}, nil
}
