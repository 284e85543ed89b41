package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/snipstash/snipstash-server/internal/domain"
	"github.com/snipstash/snipstash-server/internal/store"
)

func TestCreateAndGetSnippet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	sn := makeTestSnippet("usr-1", 1)
	sn.Description = "desc"
	sn.Categories = []string{"web", "api"}
	sn.Fragments = append(sn.Fragments, domain.Fragment{ID: "frg-b", FileName: "q.sql", Language: "sql", Code: "SELECT 1"})
	sn.IsPublic = true
	mustCreate(t, s, sn)

	got, err := s.GetSnippet(ctx, domain.OwnerScope("usr-1"), sn.ID)
	if err != nil {
		t.Fatalf("GetSnippet: %v", err)
	}
	if got.Title != sn.Title || got.Description != "desc" || !got.IsPublic {
		t.Errorf("fields: got %+v", got)
	}
	if len(got.Fragments) != 2 || got.Fragments[1].Language != "sql" || got.Fragments[1].Position != 1 {
		t.Errorf("fragments: got %+v", got.Fragments)
	}
	if len(got.Categories) != 2 || got.Categories[0] != "web" || got.Categories[1] != "api" {
		t.Errorf("categories: got %v", got.Categories)
	}
	if !got.UpdatedAt.Equal(sn.UpdatedAt) {
		t.Errorf("UpdatedAt: got %v, want %v", got.UpdatedAt, sn.UpdatedAt)
	}
	if got.ExpiryDate != nil {
		t.Errorf("ExpiryDate: got %v, want nil", got.ExpiryDate)
	}
}

func TestCreateSnippet_Duplicate(t *testing.T) {
	s := newTestStore(t)
	sn := makeTestSnippet("usr-1", 1)
	mustCreate(t, s, sn)

	dup := makeTestSnippet("usr-1", 1)
	dup.Fragments[0].ID = "frg-other"
	if err := s.CreateSnippet(context.Background(), dup); !errors.Is(err, store.ErrAlreadyExists) {
		t.Errorf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestGetSnippet_Scopes(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	private := makeTestSnippet("usr-1", 1)
	public := makeTestSnippet("usr-1", 2)
	public.IsPublic = true
	mustCreate(t, s, private)
	mustCreate(t, s, public)

	if _, err := s.GetSnippet(ctx, domain.OwnerScope("usr-2"), private.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("other owner: expected ErrNotFound, got %v", err)
	}
	if _, err := s.GetSnippet(ctx, domain.PublicScope(), private.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("public private: expected ErrNotFound, got %v", err)
	}
	if _, err := s.GetSnippet(ctx, domain.PublicScope(), public.ID); err != nil {
		t.Errorf("public public: %v", err)
	}

	if err := s.RecycleSnippet(ctx, "usr-1", public.ID, baseTime.Add(time.Hour)); err != nil {
		t.Fatalf("RecycleSnippet: %v", err)
	}
	if _, err := s.GetSnippet(ctx, domain.PublicScope(), public.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("recycled public: expected ErrNotFound, got %v", err)
	}
}

func TestUpdateSnippet_ReplacesChildren(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	sn := makeTestSnippet("usr-1", 1)
	sn.Categories = []string{"old"}
	mustCreate(t, s, sn)

	sn.Title = "Renamed"
	sn.UpdatedAt = baseTime.Add(24 * time.Hour)
	sn.Categories = []string{"new", "fresh"}
	sn.Fragments = []domain.Fragment{{ID: "frg-new", FileName: "x.py", Language: "python", Code: "pass"}}
	if err := s.UpdateSnippet(ctx, sn); err != nil {
		t.Fatalf("UpdateSnippet: %v", err)
	}

	got, err := s.GetSnippet(ctx, domain.OwnerScope("usr-1"), sn.ID)
	if err != nil {
		t.Fatalf("GetSnippet: %v", err)
	}
	if got.Title != "Renamed" || !got.UpdatedAt.Equal(sn.UpdatedAt) {
		t.Errorf("fields: got %q %v", got.Title, got.UpdatedAt)
	}
	if len(got.Fragments) != 1 || got.Fragments[0].ID != "frg-new" {
		t.Errorf("fragments: got %+v", got.Fragments)
	}
	if len(got.Categories) != 2 || got.Categories[0] != "new" {
		t.Errorf("categories: got %v", got.Categories)
	}

	var orphans int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM fragments WHERE id = 'frg-001'`).Scan(&orphans); err != nil {
		t.Fatalf("count: %v", err)
	}
	if orphans != 0 {
		t.Errorf("old fragment still present")
	}
}

func TestUpdateSnippet_WrongOwner(t *testing.T) {
	s := newTestStore(t)
	sn := makeTestSnippet("usr-1", 1)
	mustCreate(t, s, sn)

	sn.OwnerID = "usr-2"
	if err := s.UpdateSnippet(context.Background(), sn); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSetPinnedAndFavorite_KeepUpdatedAt(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	sn := makeTestSnippet("usr-1", 1)
	mustCreate(t, s, sn)

	got, err := s.SetPinned(ctx, "usr-1", sn.ID, true)
	if err != nil {
		t.Fatalf("SetPinned: %v", err)
	}
	if !got.IsPinned || !got.UpdatedAt.Equal(sn.UpdatedAt) {
		t.Errorf("pinned: got pinned=%v updated=%v", got.IsPinned, got.UpdatedAt)
	}

	got, err = s.SetFavorite(ctx, "usr-1", sn.ID, true)
	if err != nil {
		t.Fatalf("SetFavorite: %v", err)
	}
	if !got.IsFavorite || !got.IsPinned {
		t.Errorf("favorite: got %+v", got)
	}

	if _, err := s.SetFavorite(ctx, "usr-2", sn.ID, false); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("other owner: expected ErrNotFound, got %v", err)
	}
}
