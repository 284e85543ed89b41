package domain

import (
	"time"

	domainerrors "github.com/snipstash/snipstash-server/internal/errors"
)

// DefaultRetentionWindow is how long a recycled snippet stays restorable.
const DefaultRetentionWindow = 30 * 24 * time.Hour

// State is the lifecycle state of a snippet. A purged snippet has no state;
// its row is gone.
type State string

const (
	// StateActive snippets have no expiry date and show up in normal listings.
	StateActive State = "active"
	// StateRecycled snippets carry an expiry date and only show up in the recycle bin.
	StateRecycled State = "recycled"
)

// Fragment is one file of code inside a snippet.
type Fragment struct {
	ID       string `json:"id"`
	FileName string `json:"file_name"`
	Language string `json:"language"`
	Code     string `json:"code"`
	Position int    `json:"position"`
}

// Snippet is a user-owned collection of code fragments.
type Snippet struct {
	ID          string     `json:"id"`
	OwnerID     string     `json:"user_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Fragments   []Fragment `json:"fragments"`
	Categories  []string   `json:"categories"`
	IsPublic    bool       `json:"is_public"`
	IsPinned    bool       `json:"is_pinned"`
	IsFavorite  bool       `json:"is_favorite"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	ExpiryDate  *time.Time `json:"expiry_date"`
}

// State derives the lifecycle state from the expiry date.
func (s *Snippet) State() State {
	if s.ExpiryDate != nil {
		return StateRecycled
	}
	return StateActive
}

// IsRecycled reports whether the snippet is in the recycle bin.
func (s *Snippet) IsRecycled() bool {
	return s.ExpiryDate != nil
}

// MoveToRecycle puts an active snippet into the recycle bin, expiring at
// now+window. UpdatedAt is left alone so the snippet keeps its place in
// newest/oldest ordering.
func (s *Snippet) MoveToRecycle(now time.Time, window time.Duration) error {
	if s.IsRecycled() {
		return domainerrors.InvalidState("snippet is already in the recycle bin")
	}
	expiry := now.Add(window).UTC()
	s.ExpiryDate = &expiry
	return nil
}

// Restore takes a snippet out of the recycle bin.
func (s *Snippet) Restore() error {
	if !s.IsRecycled() {
		return domainerrors.InvalidState("snippet is not in the recycle bin")
	}
	s.ExpiryDate = nil
	return nil
}

// CanPurge reports whether the snippet may be permanently deleted.
// Ordinary callers may only purge recycled snippets; admin overrides that.
func (s *Snippet) CanPurge(admin bool) bool {
	return admin || s.IsRecycled()
}

// IsExpired reports whether a recycled snippet has outlived its retention window.
func (s *Snippet) IsExpired(now time.Time) bool {
	return s.ExpiryDate != nil && !now.Before(*s.ExpiryDate)
}

// HasCategory reports whether the snippet carries the (normalized) tag.
func (s *Snippet) HasCategory(tag string) bool {
	for _, c := range s.Categories {
		if c == tag {
			return true
		}
	}
	return false
}

// HasLanguage reports whether any fragment is written in lang.
func (s *Snippet) HasLanguage(lang string) bool {
	for _, f := range s.Fragments {
		if f.Language == lang {
			return true
		}
	}
	return false
}

// Languages returns the distinct fragment languages in fragment order.
func (s *Snippet) Languages() []string {
	seen := make(map[string]struct{}, len(s.Fragments))
	out := make([]string, 0, len(s.Fragments))
	for _, f := range s.Fragments {
		if f.Language == "" {
			continue
		}
		if _, ok := seen[f.Language]; ok {
			continue
		}
		seen[f.Language] = struct{}{}
		out = append(out, f.Language)
	}
	return out
}

// Fragment returns the fragment with the given ID, if present.
func (s *Snippet) Fragment(id string) (Fragment, bool) {
	for _, f := range s.Fragments {
		if f.ID == id {
			return f, true
		}
	}
	return Fragment{}, false
}

// Clone returns a deep copy. Cached snapshots rely on clones never sharing
// slices or the expiry pointer with the original.
func (s *Snippet) Clone() *Snippet {
	if s == nil {
		return nil
	}
	c := *s
	if s.Fragments != nil {
		c.Fragments = make([]Fragment, len(s.Fragments))
		copy(c.Fragments, s.Fragments)
	}
	if s.Categories != nil {
		c.Categories = make([]string, len(s.Categories))
		copy(c.Categories, s.Categories)
	}
	if s.ExpiryDate != nil {
		e := *s.ExpiryDate
		c.ExpiryDate = &e
	}
	return &c
}

// FragmentInput is the writable part of a fragment.
type FragmentInput struct {
	FileName string `json:"file_name" validate:"notblank,max=255"`
	Language string `json:"language" validate:"max=64"`
	Code     string `json:"code" validate:"max=1048576"`
}

// SnippetInput is the writable part of a snippet, used for create and full update.
type SnippetInput struct {
	Title       string          `json:"title" validate:"notblank,max=255"`
	Description string          `json:"description" validate:"max=10000"`
	IsPublic    bool            `json:"is_public"`
	Categories  []string        `json:"categories" validate:"dive,max=64"`
	Fragments   []FragmentInput `json:"fragments" validate:"min=1,max=50,dive"`
}

// Metadata holds the filter vocabularies visible in a scope.
type Metadata struct {
	Categories []string `json:"categories"`
	Languages  []string `json:"languages"`
}
