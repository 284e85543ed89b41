// Package sse implements Server-Sent Events so clients can follow changes
// to their snippets made elsewhere.
package sse

import (
	"time"

	"github.com/snipstash/snipstash-server/internal/domain"
)

// EventType represents the type of SSE Event.
type EventType string

const (
	// EventSnippetCreated is sent after a snippet is created.
	EventSnippetCreated EventType = "snippet.created"
	// EventSnippetUpdated is sent after an edit, pin or favorite change.
	EventSnippetUpdated EventType = "snippet.updated"
	// EventSnippetRecycled is sent when a snippet moves to the recycle bin.
	EventSnippetRecycled EventType = "snippet.recycled"
	// EventSnippetRestored is sent when a snippet leaves the recycle bin.
	EventSnippetRestored EventType = "snippet.restored"
	// EventSnippetPurged is sent when a snippet is permanently removed,
	// by its owner, an admin, or the expiry sweeper.
	EventSnippetPurged EventType = "snippet.purged"

	// EventHeartbeat represents a connection keepalive event.
	EventHeartbeat EventType = "heartbeat"
)

// Event represents an SSE event to be sent to clients.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
	Type      EventType `json:"type"`
	// Origin is the X-Client-ID of the client whose request caused the
	// event, so that client can skip changes it already applied.
	Origin string `json:"origin,omitempty"`

	// UserID restricts delivery to one user's connections. Empty means
	// every connection.
	UserID string `json:"-"`
}

// SnippetEventData is the payload of every snippet event. Snippet is set
// for created and updated events; the lifecycle events carry only the ID.
type SnippetEventData struct {
	ID      string          `json:"id"`
	Snippet *domain.Snippet `json:"snippet,omitempty"`
	// ExpiryDate is set on recycled events.
	ExpiryDate *time.Time `json:"expiry_date,omitempty"`
}

// HeartbeatEventData is the data payload for heartbeat events.
type HeartbeatEventData struct {
	ServerTime time.Time `json:"server_time"`
}

// IsSnippetEvent reports whether t is one of the snippet change events.
func (t EventType) IsSnippetEvent() bool {
	switch t {
	case EventSnippetCreated, EventSnippetUpdated, EventSnippetRecycled, EventSnippetRestored, EventSnippetPurged:
		return true
	default:
		return false
	}
}

func newSnippetEvent(t EventType, ownerID, origin string, data SnippetEventData) Event {
	return Event{
		Type:      t,
		Data:      data,
		Timestamp: time.Now(),
		UserID:    ownerID,
		Origin:    origin,
	}
}

// NewSnippetCreatedEvent creates a created event for sn's owner.
func NewSnippetCreatedEvent(sn *domain.Snippet, origin string) Event {
	return newSnippetEvent(EventSnippetCreated, sn.OwnerID, origin, SnippetEventData{ID: sn.ID, Snippet: sn})
}

// NewSnippetUpdatedEvent creates an updated event for sn's owner.
func NewSnippetUpdatedEvent(sn *domain.Snippet, origin string) Event {
	return newSnippetEvent(EventSnippetUpdated, sn.OwnerID, origin, SnippetEventData{ID: sn.ID, Snippet: sn})
}

// NewSnippetRecycledEvent creates a recycled event.
func NewSnippetRecycledEvent(ownerID, snippetID string, expiry time.Time, origin string) Event {
	return newSnippetEvent(EventSnippetRecycled, ownerID, origin, SnippetEventData{ID: snippetID, ExpiryDate: &expiry})
}

// NewSnippetRestoredEvent creates a restored event.
func NewSnippetRestoredEvent(ownerID, snippetID, origin string) Event {
	return newSnippetEvent(EventSnippetRestored, ownerID, origin, SnippetEventData{ID: snippetID})
}

// NewSnippetPurgedEvent creates a purged event.
func NewSnippetPurgedEvent(ownerID, snippetID, origin string) Event {
	return newSnippetEvent(EventSnippetPurged, ownerID, origin, SnippetEventData{ID: snippetID})
}

// NewHeartbeatEvent creates a heartbeat event for every connection.
func NewHeartbeatEvent() Event {
	now := time.Now()
	return Event{
		Type:      EventHeartbeat,
		Data:      HeartbeatEventData{ServerTime: now},
		Timestamp: now,
	}
}
