package sse

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

const (
	writeDeadline = 60 * time.Second
	// reconnectHintMillis is sent as the stream's retry field.
	reconnectHintMillis = 3000
)

// Handler streams a user's events over an HTTP response.
type Handler struct {
	manager *Manager
	logger  *slog.Logger
}

// NewHandler creates a Handler bound to manager.
func NewHandler(manager *Manager, logger *slog.Logger) *Handler {
	return &Handler{manager: manager, logger: logger}
}

// Serve streams events for userID until the client goes away or the
// manager shuts down. The caller authenticates the request.
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request, userID string) {
	ctx := r.Context()
	if ctx.Err() != nil {
		return
	}

	hdr := w.Header()
	hdr.Set("Content-Type", "text/event-stream")
	hdr.Set("Cache-Control", "no-cache")
	hdr.Set("Connection", "keep-alive")
	hdr.Set("X-Accel-Buffering", "no")

	client, err := h.manager.Connect(userID)
	if err != nil {
		h.logger.Error("failed to register SSE client", slog.String("error", err.Error()))
		http.Error(w, "failed to open event stream", http.StatusInternalServerError)
		return
	}
	defer h.manager.Disconnect(client.ID)

	fw := &frameWriter{w: w, rc: http.NewResponseController(w), logger: h.logger}
	log := h.logger.With(slog.String("client_id", client.ID))

	if err := fw.hello(client.ID); err != nil {
		log.Warn("failed to send stream preamble", slog.String("error", err.Error()))
		return
	}

	for {
		select {
		case event, ok := <-client.EventChan:
			if !ok {
				log.Debug("stream closed by manager")
				return
			}
			if err := fw.write(string(event.Type), event); err != nil {
				log.Debug("stream write failed", slog.String("error", err.Error()))
				return
			}
		case <-client.Done:
			log.Debug("stream closed by manager")
			return
		case <-ctx.Done():
			log.Debug("stream client went away")
			return
		}
	}
}

// frameWriter writes text/event-stream frames and flushes each one.
type frameWriter struct {
	w      http.ResponseWriter
	rc     *http.ResponseController
	logger *slog.Logger
}

func (f *frameWriter) hello(clientID string) error {
	if _, err := fmt.Fprintf(f.w, "retry: %d\n\n", reconnectHintMillis); err != nil {
		return err
	}
	return f.write("connected", map[string]string{"client_id": clientID})
}

func (f *frameWriter) write(name string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", name, err)
	}
	if _, err := fmt.Fprintf(f.w, "event: %s\ndata: %s\n\n", name, body); err != nil {
		return err
	}
	if err := f.rc.Flush(); err != nil {
		return err
	}
	// Not every ResponseWriter supports deadlines.
	if err := f.rc.SetWriteDeadline(time.Now().Add(writeDeadline)); err != nil {
		f.logger.Debug("failed to set write deadline", slog.String("error", err.Error()))
	}
	return nil
}
