package client

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/snipstash/snipstash-server/internal/domain"
	domainerrors "github.com/snipstash/snipstash-server/internal/errors"
	"github.com/snipstash/snipstash-server/internal/sse"
)

// Event is a snippet change pushed by the server.
type Event struct {
	Type      sse.EventType
	Origin    string
	Timestamp time.Time
	SnippetID string
	// Snippet is set for created and updated events.
	Snippet *domain.Snippet
	// ExpiryDate is set for recycled events.
	ExpiryDate *time.Time
}

type wireEvent struct {
	Timestamp time.Time       `json:"timestamp"`
	Type      sse.EventType   `json:"type"`
	Origin    string          `json:"origin"`
	Data      json.RawMessage `json:"data"`
}

// Watch streams snippet events for the authenticated user to fn until ctx
// is canceled or the stream fails. Events caused by this client and
// keepalives are not delivered.
func (c *Client) Watch(ctx context.Context, fn func(Event)) error {
	req, err := c.newRequest(ctx, request{method: http.MethodGet, path: "/events", accept: "text/event-stream"})
	if err != nil {
		return err
	}
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.stream.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return domainerrors.Wrap(err, domainerrors.CodeUnavailable, "open event stream")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return decodeError(resp)
	}

	err = c.readEvents(resp.Body, fn)
	if ctx.Err() != nil {
		return nil
	}
	return err
}

func (c *Client) readEvents(r io.Reader, fn func(Event)) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4<<20)

	var name string
	var data strings.Builder
	for sc.Scan() {
		line := sc.Text()
		switch {
		case line == "":
			if data.Len() > 0 {
				c.dispatch(name, data.String(), fn)
			}
			name = ""
			data.Reset()
		case strings.HasPrefix(line, ":"):
			// comment
		case strings.HasPrefix(line, "event:"):
			name = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}
	if err := sc.Err(); err != nil && !errors.Is(err, context.Canceled) {
		return domainerrors.Wrap(err, domainerrors.CodeUnavailable, "read event stream")
	}
	return domainerrors.Unavailable("event stream closed")
}

func (c *Client) dispatch(name, data string, fn func(Event)) {
	if !sse.EventType(name).IsSnippetEvent() {
		return
	}
	var w wireEvent
	if err := json.Unmarshal([]byte(data), &w); err != nil {
		c.logger.Warn("malformed event", slog.String("event", name), slog.String("error", err.Error()))
		return
	}
	if w.Origin != "" && w.Origin == c.id {
		return
	}
	var payload sse.SnippetEventData
	if err := json.Unmarshal(w.Data, &payload); err != nil {
		c.logger.Warn("malformed event payload", slog.String("event", name), slog.String("error", err.Error()))
		return
	}
	fn(Event{
		Type:       w.Type,
		Origin:     w.Origin,
		Timestamp:  w.Timestamp,
		SnippetID:  payload.ID,
		Snippet:    payload.Snippet,
		ExpiryDate: payload.ExpiryDate,
	})
}
