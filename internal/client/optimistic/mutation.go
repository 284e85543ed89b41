// Package optimistic applies snippet mutations to the client list cache
// before the server confirms them, and reconciles or rolls back once it
// answers.
package optimistic

import (
	"context"

	"github.com/snipstash/snipstash-server/internal/domain"
)

// API is the part of the SnipStash client the coordinator calls.
type API interface {
	Create(ctx context.Context, in domain.SnippetInput) (*domain.Snippet, error)
	Update(ctx context.Context, id string, in domain.SnippetInput) (*domain.Snippet, error)
	Delete(ctx context.Context, id string) error
	Recycle(ctx context.Context, id string) error
	Restore(ctx context.Context, id string) error
	SetPinned(ctx context.Context, id string, pinned bool) (*domain.Snippet, error)
	SetFavorite(ctx context.Context, id string, favorite bool) (*domain.Snippet, error)
}

// Kind names a mutation.
type Kind int

// Mutation kinds.
const (
	KindCreate Kind = iota + 1
	KindEdit
	KindDelete
	KindRecycle
	KindRestore
	KindSetPinned
	KindSetFavorite
)

func (k Kind) String() string {
	switch k {
	case KindCreate:
		return "create"
	case KindEdit:
		return "edit"
	case KindDelete:
		return "delete"
	case KindRecycle:
		return "recycle"
	case KindRestore:
		return "restore"
	case KindSetPinned:
		return "set_pinned"
	case KindSetFavorite:
		return "set_favorite"
	default:
		return "unknown"
	}
}

// Mutation is one change requested by the user.
type Mutation struct {
	Kind Kind
	// ID is the target snippet. Unused for creates.
	ID string
	// Input carries the content for creates and edits.
	Input domain.SnippetInput
	// Flag is the new value for SetPinned and SetFavorite.
	Flag bool
}

// Create returns a create mutation.
func Create(in domain.SnippetInput) Mutation {
	return Mutation{Kind: KindCreate, Input: in}
}

// Edit returns a full-update mutation.
func Edit(id string, in domain.SnippetInput) Mutation {
	return Mutation{Kind: KindEdit, ID: id, Input: in}
}

// Delete returns a purge mutation.
func Delete(id string) Mutation {
	return Mutation{Kind: KindDelete, ID: id}
}

// Recycle returns a move-to-recycle-bin mutation.
func Recycle(id string) Mutation {
	return Mutation{Kind: KindRecycle, ID: id}
}

// Restore returns a restore-from-recycle-bin mutation.
func Restore(id string) Mutation {
	return Mutation{Kind: KindRestore, ID: id}
}

// SetPinned returns a pin or unpin mutation.
func SetPinned(id string, pinned bool) Mutation {
	return Mutation{Kind: KindSetPinned, ID: id, Flag: pinned}
}

// SetFavorite returns a favorite or unfavorite mutation.
func SetFavorite(id string, favorite bool) Mutation {
	return Mutation{Kind: KindSetFavorite, ID: id, Flag: favorite}
}

// Outcome is the result of Mutate: either Success or Failure.
type Outcome interface {
	isOutcome()
}

// Success reports a confirmed mutation. Record is the server's copy for
// creates, edits and flag changes, and nil for lifecycle changes.
type Success struct {
	ID     string
	Record *domain.Snippet
}

// Failure reports a rejected mutation. The cache has been rolled back.
type Failure struct {
	Err error
}

func (Success) isOutcome() {}
func (Failure) isOutcome() {}
