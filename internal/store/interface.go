// Package store defines the persistence interface for the SnipStash server.
package store

import (
	"context"
	"time"

	"github.com/snipstash/snipstash-server/internal/domain"
)

// Store defines the interface for all persistence operations.
type Store interface {
	// Lifecycle
	Close() error
	Ping(ctx context.Context) error

	// Users
	CreateUser(ctx context.Context, user *domain.User) error
	GetUser(ctx context.Context, id string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)

	// API keys
	CreateAPIKey(ctx context.Context, key *domain.APIKey) error
	GetAPIKey(ctx context.Context, id string) (*domain.APIKey, error)
	ListAPIKeys(ctx context.Context, userID string) ([]*domain.APIKey, error)
	TouchAPIKey(ctx context.Context, id string, at time.Time) error
	DeleteAPIKey(ctx context.Context, userID, id string) error

	// Snippets
	CreateSnippet(ctx context.Context, s *domain.Snippet) error
	GetSnippet(ctx context.Context, scope domain.Scope, id string) (*domain.Snippet, error)
	UpdateSnippet(ctx context.Context, s *domain.Snippet) error
	SetPinned(ctx context.Context, ownerID, id string, pinned bool) (*domain.Snippet, error)
	SetFavorite(ctx context.Context, ownerID, id string, favorite bool) (*domain.Snippet, error)
	ListSnippets(ctx context.Context, scope domain.Scope, filter domain.Filter, page PageRequest) (*Page[*domain.Snippet], error)

	// Recycle lifecycle
	RecycleSnippet(ctx context.Context, ownerID, id string, expiry time.Time) error
	RestoreSnippet(ctx context.Context, ownerID, id string) error
	PurgeSnippet(ctx context.Context, ownerID, id string) error
	ForcePurgeSnippet(ctx context.Context, id string) (ownerID string, err error)
	PurgeExpired(ctx context.Context, now time.Time) ([]PurgedSnippet, error)

	// Metadata
	GetMetadata(ctx context.Context, scope domain.Scope) (*domain.Metadata, error)
}

// PurgedSnippet identifies a snippet removed by a batch purge.
type PurgedSnippet struct {
	ID      string
	OwnerID string
}
