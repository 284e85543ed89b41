package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snipstash/snipstash-server/internal/domain"
	domainerrors "github.com/snipstash/snipstash-server/internal/errors"
	"github.com/snipstash/snipstash-server/internal/sse"
	"github.com/snipstash/snipstash-server/internal/store"
)

func TestCreate_NormalizesAndEmits(t *testing.T) {
	svc, events := newTestSnippetService(t)
	ctx := WithOrigin(context.Background(), "cli-1")

	sn, err := svc.Create(ctx, "usr-1", sampleInput("  Hello  ", "Web", "web ", "API"))
	require.NoError(t, err)

	assert.True(t, len(sn.ID) > 4 && sn.ID[:4] == "snp-")
	assert.Equal(t, "Hello", sn.Title)
	assert.Equal(t, []string{"web", "api"}, sn.Categories)
	require.Len(t, sn.Fragments, 1)
	assert.Equal(t, "go", sn.Fragments[0].Language)
	assert.Equal(t, fixedNow, sn.CreatedAt)
	assert.Nil(t, sn.ExpiryDate)

	got := events.last()
	assert.Equal(t, sse.EventSnippetCreated, got.Type)
	assert.Equal(t, "usr-1", got.UserID)
	assert.Equal(t, "cli-1", got.Origin)
}

func TestCreate_Validation(t *testing.T) {
	svc, events := newTestSnippetService(t)
	ctx := context.Background()

	noFragments := sampleInput("t")
	noFragments.Fragments = nil
	_, err := svc.Create(ctx, "usr-1", noFragments)
	assert.Equal(t, domainerrors.CodeValidation, domainerrors.CodeOf(err))

	tags := make([]string, 21)
	for i := range tags {
		tags[i] = fmt.Sprintf("tag-%d", i)
	}
	_, err = svc.Create(ctx, "usr-1", sampleInput("t", tags...))
	assert.Equal(t, domainerrors.CodeValidation, domainerrors.CodeOf(err))

	// Duplicates collapse before the limit is checked.
	dupes := make([]string, 30)
	for i := range dupes {
		dupes[i] = "Same"
	}
	_, err = svc.Create(ctx, "usr-1", sampleInput("t", dupes...))
	require.NoError(t, err)

	assert.Len(t, events.types(), 1)
}

func TestUpdate_KeepsFlagsAndState(t *testing.T) {
	svc, events := newTestSnippetService(t)
	ctx := context.Background()

	sn, err := svc.Create(ctx, "usr-1", sampleInput("before"))
	require.NoError(t, err)
	_, err = svc.SetFavorite(ctx, "usr-1", sn.ID, true)
	require.NoError(t, err)
	require.NoError(t, svc.MoveToRecycle(ctx, "usr-1", sn.ID))

	later := fixedNow.Add(time.Hour)
	svc.now = func() time.Time { return later }

	updated, err := svc.Update(ctx, "usr-1", sn.ID, sampleInput("after", "new"))
	require.NoError(t, err)
	assert.Equal(t, "after", updated.Title)
	assert.Equal(t, []string{"new"}, updated.Categories)
	assert.True(t, updated.IsFavorite)
	assert.True(t, updated.IsRecycled())
	assert.Equal(t, fixedNow, updated.CreatedAt)
	assert.Equal(t, later, updated.UpdatedAt)
	assert.Equal(t, sse.EventSnippetUpdated, events.last().Type)

	_, err = svc.Update(ctx, "usr-2", sn.ID, sampleInput("x"))
	assert.Equal(t, domainerrors.CodeNotFound, domainerrors.CodeOf(err))
}

func TestGet_Scopes(t *testing.T) {
	svc, _ := newTestSnippetService(t)
	ctx := context.Background()

	in := sampleInput("shared")
	in.IsPublic = true
	sn, err := svc.Create(ctx, "usr-1", in)
	require.NoError(t, err)

	_, err = svc.Get(ctx, "usr-2", sn.ID)
	assert.Equal(t, domainerrors.CodeNotFound, domainerrors.CodeOf(err))

	pub, err := svc.GetPublic(ctx, sn.ID)
	require.NoError(t, err)
	assert.Equal(t, sn.ID, pub.ID)

	require.NoError(t, svc.MoveToRecycle(ctx, "usr-1", sn.ID))
	_, err = svc.GetPublic(ctx, sn.ID)
	assert.Equal(t, domainerrors.CodeNotFound, domainerrors.CodeOf(err))

	own, err := svc.Get(ctx, "usr-1", sn.ID)
	require.NoError(t, err)
	assert.True(t, own.IsRecycled())
}

func TestRawFragment_NormalizesLineEndings(t *testing.T) {
	svc, _ := newTestSnippetService(t)
	ctx := context.Background()

	sn, err := svc.Create(ctx, "usr-1", sampleInput("raw"))
	require.NoError(t, err)

	code, err := svc.RawFragment(ctx, domain.OwnerScope("usr-1"), sn.ID, sn.Fragments[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "package main\n", code)

	_, err = svc.RawFragment(ctx, domain.OwnerScope("usr-1"), sn.ID, "frg-missing")
	assert.Equal(t, domainerrors.CodeNotFound, domainerrors.CodeOf(err))
}

func TestList_NormalizesRequest(t *testing.T) {
	svc, _ := newTestSnippetService(t)
	ctx := context.Background()

	for i := range 3 {
		_, err := svc.Create(ctx, "usr-1", sampleInput(fmt.Sprintf("s%d", i), "Go"))
		require.NoError(t, err)
	}

	page, err := svc.List(ctx, domain.OwnerScope("usr-1"),
		domain.NewFilter().WithCategories("GO").WithSort("bogus"),
		store.PageRequest{Offset: -5, Limit: 0})
	require.NoError(t, err)
	assert.Equal(t, 0, page.Offset)
	assert.Equal(t, store.DefaultPageLimit, page.Limit)
	assert.Equal(t, 3, page.Total)
	assert.Len(t, page.Items, 3)
	assert.False(t, page.HasMore())
}

func TestSetPinned_DoesNotTouchUpdatedAt(t *testing.T) {
	svc, _ := newTestSnippetService(t)
	ctx := context.Background()

	sn, err := svc.Create(ctx, "usr-1", sampleInput("pin me"))
	require.NoError(t, err)

	svc.now = func() time.Time { return fixedNow.Add(time.Hour) }
	pinned, err := svc.SetPinned(ctx, "usr-1", sn.ID, true)
	require.NoError(t, err)
	assert.True(t, pinned.IsPinned)
	assert.Equal(t, sn.UpdatedAt, pinned.UpdatedAt)

	_, err = svc.SetPinned(ctx, "usr-1", "snp-missing", true)
	assert.Equal(t, domainerrors.CodeNotFound, domainerrors.CodeOf(err))
}

func TestMetadata_InvalidatedByWrites(t *testing.T) {
	svc, _ := newTestSnippetService(t)
	ctx := context.Background()
	scope := domain.OwnerScope("usr-1")

	first, err := svc.Create(ctx, "usr-1", sampleInput("a", "alpha"))
	require.NoError(t, err)

	md, err := svc.Metadata(ctx, scope)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha"}, md.Categories)
	assert.Equal(t, []string{"go"}, md.Languages)

	_, err = svc.Create(ctx, "usr-1", sampleInput("b", "beta"))
	require.NoError(t, err)

	md, err = svc.Metadata(ctx, scope)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "beta"}, md.Categories)

	// Recycled snippets drop out of the aggregate.
	require.NoError(t, svc.MoveToRecycle(ctx, "usr-1", first.ID))
	md, err = svc.Metadata(ctx, scope)
	require.NoError(t, err)
	assert.Equal(t, []string{"beta"}, md.Categories)
}
