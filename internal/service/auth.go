package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/snipstash/snipstash-server/internal/auth"
	"github.com/snipstash/snipstash-server/internal/domain"
	domainerrors "github.com/snipstash/snipstash-server/internal/errors"
	"github.com/snipstash/snipstash-server/internal/id"
	"github.com/snipstash/snipstash-server/internal/store"
	"github.com/snipstash/snipstash-server/internal/validation"
)

// apiKeyTouchInterval limits last_used_at writes to one per key per interval.
const apiKeyTouchInterval = time.Minute

// AuthService handles login, token verification and API keys.
type AuthService struct {
	store        store.Store
	tokenService *auth.TokenService
	validator    *validation.Validator
	now          func() time.Time
	logger       *slog.Logger
}

// NewAuthService creates a new authentication service.
func NewAuthService(st store.Store, tokenService *auth.TokenService, logger *slog.Logger) *AuthService {
	return &AuthService{
		store:        st,
		tokenService: tokenService,
		validator:    validation.New(),
		now:          time.Now,
		logger:       logger,
	}
}

// CreateUserRequest contains the data for a new account.
type CreateUserRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8,max=1024"`
	DisplayName string `json:"display_name" validate:"max=255"`
	IsAdmin     bool   `json:"is_admin"`
}

// LoginRequest contains user credentials.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse contains an access token and the user it was issued to.
type LoginResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresAt   time.Time    `json:"expires_at"`
	User        *domain.User `json:"user"`
}

// CreateUser registers a new account.
func (s *AuthService) CreateUser(ctx context.Context, req CreateUserRequest) (*domain.User, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	userID, err := id.Generate(id.PrefixUser)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	user := &domain.User{
		ID:           userID,
		Email:        strings.TrimSpace(req.Email),
		PasswordHash: hash,
		DisplayName:  strings.TrimSpace(req.DisplayName),
		IsAdmin:      req.IsAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, mapStoreError(err, "user")
	}

	s.logger.Info("user created", "user_id", user.ID, "is_admin", user.IsAdmin)
	return user, nil
}

// Login verifies credentials and issues an access token.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	user, err := s.store.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Don't leak whether the email exists.
			return nil, domainerrors.Unauthorized("invalid email or password")
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	valid, err := auth.VerifyPassword(user.PasswordHash, req.Password)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !valid {
		return nil, domainerrors.Unauthorized("invalid email or password")
	}

	resp, err := s.IssueToken(user)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user logged in", "user_id", user.ID)
	return resp, nil
}

// IssueToken mints an access token for user without checking credentials.
func (s *AuthService) IssueToken(user *domain.User) (*LoginResponse, error) {
	token, err := s.tokenService.GenerateAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}
	return &LoginResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   s.now().Add(s.tokenService.AccessTokenDuration()).UTC(),
		User:        user,
	}, nil
}

// VerifyAccessToken validates a bearer token and returns its principal.
// The user must still exist.
func (s *AuthService) VerifyAccessToken(ctx context.Context, token string) (*auth.Principal, error) {
	claims, err := s.tokenService.VerifyAccessToken(token)
	if err != nil {
		return nil, domainerrors.Unauthorized("invalid or expired token").WithCause(err)
	}

	user, err := s.store.GetUser(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.Unauthorized("user not found")
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	return &auth.Principal{UserID: user.ID, IsAdmin: user.IsAdmin}, nil
}

// VerifyAPIKey validates an sk_ key and returns its principal.
func (s *AuthService) VerifyAPIKey(ctx context.Context, token string) (*auth.Principal, error) {
	keyID, secret, err := auth.ParseAPIKey(token)
	if err != nil {
		return nil, domainerrors.Unauthorized("invalid api key")
	}

	key, err := s.store.GetAPIKey(ctx, keyID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.Unauthorized("invalid api key")
		}
		return nil, fmt.Errorf("get api key: %w", err)
	}
	if !auth.VerifyAPIKeySecret(key.KeyHash, secret) {
		return nil, domainerrors.Unauthorized("invalid api key")
	}

	user, err := s.store.GetUser(ctx, key.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.Unauthorized("user not found")
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	now := s.now().UTC()
	if key.LastUsedAt == nil || now.Sub(*key.LastUsedAt) >= apiKeyTouchInterval {
		if err := s.store.TouchAPIKey(ctx, key.ID, now); err != nil {
			s.logger.Warn("failed to record api key use", "key_id", key.ID, "error", err)
		}
	}

	return &auth.Principal{UserID: user.ID, IsAdmin: user.IsAdmin, KeyID: key.ID}, nil
}

// GetUser returns the account behind a principal.
func (s *AuthService) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, mapStoreError(err, "user")
	}
	return user, nil
}

// CreateAPIKeyRequest names a new key.
type CreateAPIKeyRequest struct {
	Name string `json:"name" validate:"notblank,max=100"`
}

// CreateAPIKey mints a key for userID. The returned token is the only time
// the plaintext secret is available.
func (s *AuthService) CreateAPIKey(ctx context.Context, userID string, req CreateAPIKeyRequest) (*domain.APIKey, string, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, "", err
	}

	generated, err := auth.GenerateAPIKey()
	if err != nil {
		return nil, "", fmt.Errorf("generate api key: %w", err)
	}

	key := &domain.APIKey{
		ID:        generated.ID,
		UserID:    userID,
		Name:      strings.TrimSpace(req.Name),
		KeyHash:   generated.Hash,
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.CreateAPIKey(ctx, key); err != nil {
		return nil, "", mapStoreError(err, "api key")
	}

	s.logger.Info("api key created", "key_id", key.ID, "user_id", userID)
	return key, generated.Token, nil
}

// ListAPIKeys returns userID's keys without secrets.
func (s *AuthService) ListAPIKeys(ctx context.Context, userID string) ([]*domain.APIKey, error) {
	return s.store.ListAPIKeys(ctx, userID)
}

// DeleteAPIKey revokes one of userID's keys.
func (s *AuthService) DeleteAPIKey(ctx context.Context, userID, keyID string) error {
	if err := s.store.DeleteAPIKey(ctx, userID, keyID); err != nil {
		return mapStoreError(err, "api key")
	}
	s.logger.Info("api key revoked", "key_id", keyID, "user_id", userID)
	return nil
}
