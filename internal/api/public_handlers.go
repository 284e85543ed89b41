package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/snipstash/snipstash-server/internal/domain"
)

// Public routes read active, public snippets from every owner and need no
// credentials. Favorite, pinned and recycled filters are ignored here.
func (s *Server) registerPublicRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listPublicSnippets",
		Method:      http.MethodGet,
		Path:        "/public/snippets",
		Summary:     "List public snippets",
		Description: "Returns one page of public snippets matching the filter",
		Tags:        []string{tagPublic},
	}, s.handleListPublicSnippets)

	huma.Register(s.api, huma.Operation{
		OperationID: "getPublicSnippetMetadata",
		Method:      http.MethodGet,
		Path:        "/public/snippets/metadata",
		Summary:     "Get public snippet metadata",
		Description: "Returns the categories and languages used by public snippets",
		Tags:        []string{tagPublic},
	}, s.handleGetPublicSnippetMetadata)

	huma.Register(s.api, huma.Operation{
		OperationID: "getPublicSnippet",
		Method:      http.MethodGet,
		Path:        "/public/snippets/{id}",
		Summary:     "Get public snippet",
		Tags:        []string{tagPublic},
	}, s.handleGetPublicSnippet)

	huma.Register(s.api, huma.Operation{
		OperationID: "getPublicRawFragment",
		Method:      http.MethodGet,
		Path:        "/public/snippets/{id}/{fragmentId}/raw",
		Summary:     "Get public raw fragment",
		Description: "Returns a public fragment's code as plain text with LF line endings",
		Tags:        []string{tagPublic},
	}, s.handleGetPublicRawFragment)
}

func (s *Server) handleListPublicSnippets(ctx context.Context, input *ListSnippetsInput) (*ListSnippetsOutput, error) {
	page, err := s.services.Snippets.List(ctx, domain.PublicScope(), input.Filter(), input.Page())
	if err != nil {
		return nil, err
	}
	return &ListSnippetsOutput{Body: newSnippetListResponse(page)}, nil
}

func (s *Server) handleGetPublicSnippetMetadata(ctx context.Context, _ *struct{}) (*GetSnippetMetadataOutput, error) {
	md, err := s.services.Snippets.Metadata(ctx, domain.PublicScope())
	if err != nil {
		return nil, err
	}
	return &GetSnippetMetadataOutput{Body: newMetadataResponse(md)}, nil
}

func (s *Server) handleGetPublicSnippet(ctx context.Context, input *SnippetIDInput) (*SnippetOutput, error) {
	sn, err := s.services.Snippets.GetPublic(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &SnippetOutput{Body: sn}, nil
}

func (s *Server) handleGetPublicRawFragment(ctx context.Context, input *RawFragmentInput) (*RawFragmentOutput, error) {
	code, err := s.services.Snippets.RawFragment(ctx, domain.PublicScope(), input.ID, input.FragmentID)
	if err != nil {
		return nil, err
	}
	return &RawFragmentOutput{ContentType: rawContentType, Body: []byte(code)}, nil
}
