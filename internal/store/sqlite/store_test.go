package sqlite

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/snipstash/snipstash-server/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	s, err := Open(dbPath, logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// baseTime anchors test timestamps so ordering assertions are exact.
var baseTime = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

// makeTestSnippet creates a snippet with one Go fragment, updated i minutes
// after baseTime.
func makeTestSnippet(owner string, i int) *domain.Snippet {
	ts := baseTime.Add(time.Duration(i) * time.Minute)
	return &domain.Snippet{
		ID:          fmt.Sprintf("snp-%03d", i),
		OwnerID:     owner,
		Title:       fmt.Sprintf("Snippet %03d", i),
		Description: "",
		Fragments: []domain.Fragment{
			{ID: fmt.Sprintf("frg-%03d", i), FileName: "main.go", Language: "go", Code: "package main"},
		},
		Categories: []string{},
		CreatedAt:  ts,
		UpdatedAt:  ts,
	}
}

func mustCreate(t *testing.T, s *Store, sn *domain.Snippet) {
	t.Helper()
	if err := s.CreateSnippet(context.Background(), sn); err != nil {
		t.Fatalf("CreateSnippet(%s): %v", sn.ID, err)
	}
}

func TestOpen(t *testing.T) {
	s := newTestStore(t)

	var journalMode string
	if err := s.db.QueryRow("PRAGMA journal_mode").Scan(&journalMode); err != nil {
		t.Fatalf("query journal_mode: %v", err)
	}
	if journalMode != "wal" {
		t.Errorf("expected wal, got %s", journalMode)
	}

	var fk int
	if err := s.db.QueryRow("PRAGMA foreign_keys").Scan(&fk); err != nil {
		t.Fatalf("query foreign_keys: %v", err)
	}
	if fk != 1 {
		t.Errorf("expected foreign_keys=1, got %d", fk)
	}

	for _, table := range []string{"users", "api_keys", "snippets", "fragments", "categories"} {
		var name string
		err := s.db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("table %s not found: %v", table, err)
		}
	}
}

func TestOpenClose(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	s, err := Open(dbPath, logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close store: %v", err)
	}

	// Re-open should work (schema is idempotent).
	s2, err := Open(dbPath, logger)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	if err := s2.Ping(context.Background()); err != nil {
		t.Errorf("ping: %v", err)
	}
	s2.Close()
}

func TestFormatTime_LexicalOrder(t *testing.T) {
	a := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	b := a.Add(100 * time.Millisecond)
	c := a.Add(time.Second)

	fa, fb, fc := formatTime(a), formatTime(b), formatTime(c)
	if !(fa < fb && fb < fc) {
		t.Errorf("formatted times out of order: %s %s %s", fa, fb, fc)
	}

	got, err := parseTime(fb)
	if err != nil {
		t.Fatalf("parseTime: %v", err)
	}
	if !got.Equal(b) {
		t.Errorf("round trip: got %v, want %v", got, b)
	}
}
