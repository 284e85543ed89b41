package service

import (
	"context"

	"github.com/snipstash/snipstash-server/internal/domain"
	"github.com/snipstash/snipstash-server/internal/metrics"
)

// Metadata returns the sorted distinct categories and languages of the
// active snippets visible in scope. Results are served from the metadata
// cache when one is configured.
func (s *SnippetService) Metadata(ctx context.Context, scope domain.Scope) (*domain.Metadata, error) {
	if s.metadata != nil {
		if md, ok := s.metadata.Get(ctx, scope); ok {
			metrics.MetadataCacheLookups.WithLabelValues("hit").Inc()
			return md, nil
		}
		metrics.MetadataCacheLookups.WithLabelValues("miss").Inc()
	}

	md, err := s.store.GetMetadata(ctx, scope)
	if err != nil {
		return nil, err
	}

	if s.metadata != nil {
		s.metadata.Set(ctx, scope, md)
	}
	return md, nil
}
