package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/snipstash/snipstash-server/internal/cache"
	"github.com/snipstash/snipstash-server/internal/domain"
	domainerrors "github.com/snipstash/snipstash-server/internal/errors"
	"github.com/snipstash/snipstash-server/internal/id"
	"github.com/snipstash/snipstash-server/internal/metrics"
	"github.com/snipstash/snipstash-server/internal/normalize"
	"github.com/snipstash/snipstash-server/internal/sse"
	"github.com/snipstash/snipstash-server/internal/store"
	"github.com/snipstash/snipstash-server/internal/validation"
)

// SnippetService orchestrates snippet reads, writes and the recycle
// lifecycle. Every successful write emits an SSE event to the owner and
// drops the owner's cached metadata.
type SnippetService struct {
	store     store.Store
	events    sse.Emitter
	metadata  *cache.MetadataCache
	validator *validation.Validator
	retention time.Duration
	now       func() time.Time
	logger    *slog.Logger
}

// SnippetServiceConfig holds the optional collaborators of SnippetService.
type SnippetServiceConfig struct {
	// Events receives change events. Nil discards them.
	Events sse.Emitter
	// MetadataCache caches aggregates. Nil disables caching.
	MetadataCache *cache.MetadataCache
	// RetentionWindow is how long recycled snippets stay restorable.
	// Zero means domain.DefaultRetentionWindow.
	RetentionWindow time.Duration
}

// NewSnippetService creates a new snippet service.
func NewSnippetService(st store.Store, cfg SnippetServiceConfig, logger *slog.Logger) *SnippetService {
	events := cfg.Events
	if events == nil {
		events = sse.NopEmitter{}
	}
	retention := cfg.RetentionWindow
	if retention <= 0 {
		retention = domain.DefaultRetentionWindow
	}
	return &SnippetService{
		store:     st,
		events:    events,
		metadata:  cfg.MetadataCache,
		validator: validation.New(),
		retention: retention,
		now:       time.Now,
		logger:    logger,
	}
}

// buildContent validates input and returns the normalized title,
// description, categories and fragments.
func (s *SnippetService) buildContent(input domain.SnippetInput) (*domain.Snippet, error) {
	if err := s.validator.Validate(input); err != nil {
		return nil, err
	}

	categories := normalize.Categories(input.Categories)
	if len(categories) > normalize.MaxCategories {
		return nil, domainerrors.ValidationWithDetails("validation failed", map[string]string{
			"categories": fmt.Sprintf("must not exceed %d items", normalize.MaxCategories),
		})
	}

	fragments := make([]domain.Fragment, len(input.Fragments))
	for i, f := range input.Fragments {
		fragID, err := id.Generate(id.PrefixFragment)
		if err != nil {
			return nil, err
		}
		fragments[i] = domain.Fragment{
			ID:       fragID,
			FileName: normalize.FileName(f.FileName),
			Language: normalize.Language(f.Language),
			Code:     f.Code,
			Position: i,
		}
	}

	return &domain.Snippet{
		Title:       normalize.Title(input.Title),
		Description: input.Description,
		Fragments:   fragments,
		Categories:  categories,
		IsPublic:    input.IsPublic,
	}, nil
}

// Create stores a new active snippet owned by ownerID.
func (s *SnippetService) Create(ctx context.Context, ownerID string, input domain.SnippetInput) (sn *domain.Snippet, err error) {
	defer func() { record("create", err) }()

	sn, err = s.buildContent(input)
	if err != nil {
		return nil, err
	}

	if sn.ID, err = id.Generate(id.PrefixSnippet); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	sn.OwnerID = ownerID
	sn.CreatedAt = now
	sn.UpdatedAt = now

	if err = s.store.CreateSnippet(ctx, sn); err != nil {
		return nil, mapStoreError(err, "snippet")
	}

	s.logger.Info("snippet created", "snippet_id", sn.ID, "user_id", ownerID, "fragments", len(sn.Fragments))
	s.changed(ctx, ownerID)
	s.events.Emit(sse.NewSnippetCreatedEvent(sn, OriginFrom(ctx)))
	return sn, nil
}

// Update replaces the content of an owner's snippet, active or recycled.
// Flags, the lifecycle state and CreatedAt are kept; UpdatedAt moves to now.
func (s *SnippetService) Update(ctx context.Context, ownerID, snippetID string, input domain.SnippetInput) (sn *domain.Snippet, err error) {
	defer func() { record("update", err) }()

	content, err := s.buildContent(input)
	if err != nil {
		return nil, err
	}

	existing, err := s.store.GetSnippet(ctx, domain.OwnerScope(ownerID), snippetID)
	if err != nil {
		return nil, mapStoreError(err, "snippet")
	}

	sn = existing.Clone()
	sn.Title = content.Title
	sn.Description = content.Description
	sn.Fragments = content.Fragments
	sn.Categories = content.Categories
	sn.IsPublic = content.IsPublic
	sn.UpdatedAt = s.now().UTC()

	if err = s.store.UpdateSnippet(ctx, sn); err != nil {
		return nil, mapStoreError(err, "snippet")
	}

	s.changed(ctx, ownerID)
	s.events.Emit(sse.NewSnippetUpdatedEvent(sn, OriginFrom(ctx)))
	return sn, nil
}

// Get returns one of the owner's snippets in either state.
func (s *SnippetService) Get(ctx context.Context, ownerID, snippetID string) (*domain.Snippet, error) {
	sn, err := s.store.GetSnippet(ctx, domain.OwnerScope(ownerID), snippetID)
	return sn, mapStoreError(err, "snippet")
}

// GetPublic returns a public, active snippet.
func (s *SnippetService) GetPublic(ctx context.Context, snippetID string) (*domain.Snippet, error) {
	sn, err := s.store.GetSnippet(ctx, domain.PublicScope(), snippetID)
	return sn, mapStoreError(err, "snippet")
}

// RawFragment returns one fragment's code with line endings normalized to LF.
func (s *SnippetService) RawFragment(ctx context.Context, scope domain.Scope, snippetID, fragmentID string) (string, error) {
	sn, err := s.store.GetSnippet(ctx, scope, snippetID)
	if err != nil {
		return "", mapStoreError(err, "snippet")
	}
	frag, ok := sn.Fragment(fragmentID)
	if !ok {
		return "", domainerrors.NotFound("fragment not found")
	}
	return normalize.LineEndings(frag.Code), nil
}

// List returns one page of the snippets in scope matching filter.
// Filter and page values are normalized rather than rejected.
func (s *SnippetService) List(ctx context.Context, scope domain.Scope, filter domain.Filter, page store.PageRequest) (*store.Page[*domain.Snippet], error) {
	filter = filter.Normalized().InScope(scope)
	result, err := s.store.ListSnippets(ctx, scope, filter, page.Normalize())
	if err != nil {
		s.logger.Error("list snippets failed", "scope", scope.String(), "error", err)
		return nil, err
	}
	metrics.ListPageSize.Observe(float64(len(result.Items)))
	return result, nil
}

// SetPinned sets or clears the pin flag. Allowed in either state and does
// not move UpdatedAt.
func (s *SnippetService) SetPinned(ctx context.Context, ownerID, snippetID string, pinned bool) (sn *domain.Snippet, err error) {
	defer func() { record("pin", err) }()

	sn, err = s.store.SetPinned(ctx, ownerID, snippetID, pinned)
	if err != nil {
		return nil, mapStoreError(err, "snippet")
	}
	s.events.Emit(sse.NewSnippetUpdatedEvent(sn, OriginFrom(ctx)))
	return sn, nil
}

// SetFavorite sets or clears the favorite flag. Allowed in either state and
// does not move UpdatedAt.
func (s *SnippetService) SetFavorite(ctx context.Context, ownerID, snippetID string, favorite bool) (sn *domain.Snippet, err error) {
	defer func() { record("favorite", err) }()

	sn, err = s.store.SetFavorite(ctx, ownerID, snippetID, favorite)
	if err != nil {
		return nil, mapStoreError(err, "snippet")
	}
	s.events.Emit(sse.NewSnippetUpdatedEvent(sn, OriginFrom(ctx)))
	return sn, nil
}

// changed drops the cached aggregates a write to ownerID's snippets affects.
func (s *SnippetService) changed(ctx context.Context, ownerID string) {
	if s.metadata != nil {
		s.metadata.Invalidate(ctx, ownerID)
	}
}
