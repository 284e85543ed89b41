package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (s *Server) registerAdminRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "adminPurgeSnippet",
		Method:      http.MethodDelete,
		Path:        "/admin/snippets/{id}",
		Summary:     "Purge any snippet",
		Description: "Permanently deletes a snippet regardless of owner or lifecycle state. Admin only.",
		Tags:        []string{tagAdmin},
		Security:    ownerSecurity,
	}, s.handleAdminPurgeSnippet)
}

func (s *Server) handleAdminPurgeSnippet(ctx context.Context, input *SnippetIDInput) (*SnippetIDOutput, error) {
	admin, err := RequireAdmin(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.services.Snippets.AdminPurge(ctx, input.ID); err != nil {
		return nil, err
	}

	s.logger.Info("Admin purged snippet", "snippet_id", input.ID, "admin_id", admin.UserID)
	return &SnippetIDOutput{Body: SnippetIDResponse{ID: input.ID}}, nil
}
