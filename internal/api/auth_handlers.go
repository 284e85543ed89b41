package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/snipstash/snipstash-server/internal/domain"
	"github.com/snipstash/snipstash-server/internal/service"
)

func (s *Server) registerAuthRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "login",
		Method:      http.MethodPost,
		Path:        "/auth/login",
		Summary:     "User login",
		Description: "Authenticates a user and returns an access token",
		Tags:        []string{tagAuth},
	}, s.handleLogin)

	huma.Register(s.api, huma.Operation{
		OperationID: "getCurrentUser",
		Method:      http.MethodGet,
		Path:        "/auth/me",
		Summary:     "Current user",
		Description: "Returns the account the request authenticated as",
		Tags:        []string{tagAuth},
		Security:    ownerSecurity,
	}, s.handleGetCurrentUser)

	huma.Register(s.api, huma.Operation{
		OperationID:   "createAPIKey",
		Method:        http.MethodPost,
		Path:          "/api-keys",
		Summary:       "Create API key",
		Description:   "Mints a long-lived key. The plaintext key is only returned once.",
		Tags:          []string{tagAuth},
		Security:      ownerSecurity,
		DefaultStatus: http.StatusCreated,
	}, s.handleCreateAPIKey)

	huma.Register(s.api, huma.Operation{
		OperationID: "listAPIKeys",
		Method:      http.MethodGet,
		Path:        "/api-keys",
		Summary:     "List API keys",
		Tags:        []string{tagAuth},
		Security:    ownerSecurity,
	}, s.handleListAPIKeys)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteAPIKey",
		Method:      http.MethodDelete,
		Path:        "/api-keys/{id}",
		Summary:     "Revoke API key",
		Tags:        []string{tagAuth},
		Security:    ownerSecurity,
	}, s.handleDeleteAPIKey)
}

// === DTOs ===

// LoginRequest is the request body for login.
type LoginRequest struct {
	Email    string `json:"email" doc:"Account email"`
	Password string `json:"password" doc:"Account password"`
}

// LoginInput wraps the login request for Huma.
type LoginInput struct {
	Body LoginRequest
}

// LoginOutput wraps the issued token for Huma.
type LoginOutput struct {
	Body *service.LoginResponse
}

// CurrentUserOutput wraps the authenticated user.
type CurrentUserOutput struct {
	Body *domain.User
}

// CreateAPIKeyRequest names a new key.
type CreateAPIKeyRequest struct {
	Name string `json:"name" doc:"Label shown when listing keys"`
}

// CreateAPIKeyInput wraps the create request for Huma.
type CreateAPIKeyInput struct {
	Body CreateAPIKeyRequest
}

// APIKeyResponse describes a key without its secret.
type APIKeyResponse struct {
	ID         string     `json:"id" doc:"Key ID"`
	Name       string     `json:"name" doc:"Key label"`
	CreatedAt  time.Time  `json:"created_at" doc:"Creation time"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty" doc:"Last time the key authenticated a request"`
}

func newAPIKeyResponse(k *domain.APIKey) APIKeyResponse {
	return APIKeyResponse{ID: k.ID, Name: k.Name, CreatedAt: k.CreatedAt, LastUsedAt: k.LastUsedAt}
}

// CreatedAPIKeyResponse carries the plaintext key exactly once.
type CreatedAPIKeyResponse struct {
	APIKeyResponse
	Key string `json:"key" doc:"Plaintext key; store it now, it cannot be shown again"`
}

// CreateAPIKeyOutput wraps the created key for Huma.
type CreateAPIKeyOutput struct {
	Body CreatedAPIKeyResponse
}

// ListAPIKeysOutput lists the caller's keys.
type ListAPIKeysOutput struct {
	Body struct {
		Keys []APIKeyResponse `json:"keys" doc:"API keys"`
	}
}

// DeleteAPIKeyInput identifies a key to revoke.
type DeleteAPIKeyInput struct {
	ID string `path:"id" doc:"Key ID"`
}

// === Handlers ===

func (s *Server) handleLogin(ctx context.Context, input *LoginInput) (*LoginOutput, error) {
	resp, err := s.services.Auth.Login(ctx, service.LoginRequest{
		Email:    input.Body.Email,
		Password: input.Body.Password,
	})
	if err != nil {
		return nil, err
	}
	return &LoginOutput{Body: resp}, nil
}

func (s *Server) handleGetCurrentUser(ctx context.Context, _ *struct{}) (*CurrentUserOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	user, err := s.services.Auth.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &CurrentUserOutput{Body: user}, nil
}

func (s *Server) handleCreateAPIKey(ctx context.Context, input *CreateAPIKeyInput) (*CreateAPIKeyOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	key, token, err := s.services.Auth.CreateAPIKey(ctx, userID, service.CreateAPIKeyRequest{Name: input.Body.Name})
	if err != nil {
		return nil, err
	}

	return &CreateAPIKeyOutput{Body: CreatedAPIKeyResponse{
		APIKeyResponse: newAPIKeyResponse(key),
		Key:            token,
	}}, nil
}

func (s *Server) handleListAPIKeys(ctx context.Context, _ *struct{}) (*ListAPIKeysOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	keys, err := s.services.Auth.ListAPIKeys(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := &ListAPIKeysOutput{}
	out.Body.Keys = make([]APIKeyResponse, 0, len(keys))
	for _, k := range keys {
		out.Body.Keys = append(out.Body.Keys, newAPIKeyResponse(k))
	}
	return out, nil
}

func (s *Server) handleDeleteAPIKey(ctx context.Context, input *DeleteAPIKeyInput) (*struct{}, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.services.Auth.DeleteAPIKey(ctx, userID, input.ID); err != nil {
		return nil, err
	}
	return nil, nil
}
