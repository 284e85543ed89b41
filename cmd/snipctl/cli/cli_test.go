package cli

import (
	"bytes"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snipstash/snipstash-server/internal/domain"
	domainerrors "github.com/snipstash/snipstash-server/internal/errors"
)

func TestLanguageFor(t *testing.T) {
	assert.Equal(t, "go", languageFor("cmd/main.go"))
	assert.Equal(t, "typescript", languageFor("App.TSX"))
	assert.Equal(t, "", languageFor("Makefile"))
}

func TestFilterFlags(t *testing.T) {
	var ff filterFlags
	cmd := &cobra.Command{Use: "list"}
	ff.register(cmd)
	require.NoError(t, cmd.ParseFlags([]string{"-s", "retry", "--code", "-c", "Go", "-c", "http", "--pinned", "--sort", "alpha-desc"}))

	f := ff.filter().Normalized()
	assert.Equal(t, "retry", f.Search)
	assert.True(t, f.SearchCode)
	assert.Equal(t, []string{"go", "http"}, f.Categories)
	assert.True(t, f.Pinned)
	assert.False(t, f.Recycled)
	assert.Equal(t, domain.SortAlphaDesc, f.Sort)
}

func TestPrintList(t *testing.T) {
	var buf bytes.Buffer
	sn := &domain.Snippet{
		ID:         "snp-1",
		Title:      "retry helper",
		Categories: []string{"go"},
		Fragments:  []domain.Fragment{{Language: "go"}},
		IsPinned:   true,
		UpdatedAt:  time.Date(2026, 1, 2, 3, 4, 0, 0, time.UTC),
	}
	printList(&buf, []*domain.Snippet{sn}, 3, true)

	out := buf.String()
	assert.Contains(t, out, "snp-1")
	assert.Contains(t, out, "retry helper")
	assert.Contains(t, out, "pinned")
	assert.Contains(t, out, "1 of 3 (more available, use --all)")
}

func TestInputFromKeepsContent(t *testing.T) {
	sn := &domain.Snippet{
		Title:      "t",
		IsPublic:   true,
		Categories: []string{"a"},
		Fragments:  []domain.Fragment{{ID: "frg-1", FileName: "a.go", Language: "go", Code: "x"}},
	}
	in := inputFrom(sn)
	assert.Equal(t, "t", in.Title)
	assert.True(t, in.IsPublic)
	assert.Equal(t, []domain.FragmentInput{{FileName: "a.go", Language: "go", Code: "x"}}, in.Fragments)
}

func TestExplain(t *testing.T) {
	err := explain(domainerrors.Unauthorized("invalid or expired token"))
	assert.Contains(t, err.Error(), "snipctl login")
	assert.ErrorIs(t, err, domainerrors.ErrUnauthorized)

	plain := domainerrors.NotFound("snippet not found")
	assert.Equal(t, error(plain), explain(plain))
}
