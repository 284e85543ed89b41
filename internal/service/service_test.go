package service

import (
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/snipstash/snipstash-server/internal/cache"
	"github.com/snipstash/snipstash-server/internal/domain"
	"github.com/snipstash/snipstash-server/internal/sse"
	"github.com/snipstash/snipstash-server/internal/store/sqlite"
)

type recordingEmitter struct {
	mu     sync.Mutex
	events []sse.Event
}

func (r *recordingEmitter) Emit(e sse.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingEmitter) types() []sse.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]sse.EventType, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

func (r *recordingEmitter) last() sse.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[len(r.events)-1]
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	st, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"), testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

// fixedNow is the service clock in tests.
var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestSnippetService(t *testing.T) (*SnippetService, *recordingEmitter) {
	t.Helper()
	events := &recordingEmitter{}
	svc := NewSnippetService(newTestStore(t), SnippetServiceConfig{
		Events:          events,
		MetadataCache:   cache.NewMetadataCache(cache.NewMemory(cache.Options{}), time.Minute, testLogger()),
		RetentionWindow: 48 * time.Hour,
	}, testLogger())
	svc.now = func() time.Time { return fixedNow }
	return svc, events
}

func sampleInput(title string, categories ...string) domain.SnippetInput {
	return domain.SnippetInput{
		Title:      title,
		Categories: categories,
		Fragments: []domain.FragmentInput{
			{FileName: "main.go", Language: "golang", Code: "package main\r\n"},
		},
	}
}
