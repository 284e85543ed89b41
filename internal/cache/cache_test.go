package cache

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snipstash/snipstash-server/internal/domain"
)

func TestMemory_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(Options{})

	_, err := m.Get(ctx, "k")
	require.ErrorIs(t, err, ErrMiss)

	require.NoError(t, m.Set(ctx, "k", []byte("v"), 0))
	got, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	// Returned slices are copies.
	got[0] = 'x'
	again, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), again)

	require.NoError(t, m.Delete(ctx, "k", "missing"))
	_, err = m.Get(ctx, "k")
	require.ErrorIs(t, err, ErrMiss)
}

func TestMemory_Expiry(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(Options{DefaultTTL: time.Minute})
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	require.NoError(t, m.Set(ctx, "short", []byte("1"), time.Second))
	require.NoError(t, m.Set(ctx, "default", []byte("2"), 0))

	now = now.Add(2 * time.Second)
	_, err := m.Get(ctx, "short")
	require.ErrorIs(t, err, ErrMiss)
	_, err = m.Get(ctx, "default")
	require.NoError(t, err)

	now = now.Add(time.Minute)
	_, err = m.Get(ctx, "default")
	require.ErrorIs(t, err, ErrMiss)
}

func TestMemory_SweepOnGrowth(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(Options{})
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	for i := range 64 {
		require.NoError(t, m.Set(ctx, string(rune('a'+i)), []byte("x"), time.Second))
	}
	now = now.Add(time.Hour)
	require.NoError(t, m.Set(ctx, "trigger", []byte("x"), time.Minute))

	assert.Equal(t, 1, m.Len())
}

func TestMetadataCache_InvalidateOwnerAndPublic(t *testing.T) {
	ctx := context.Background()
	mc := NewMetadataCache(NewMemory(Options{}), time.Minute, slog.New(slog.NewTextHandler(io.Discard, nil)))

	alice := domain.OwnerScope("usr-alice")
	bob := domain.OwnerScope("usr-bob")
	md := &domain.Metadata{Categories: []string{"go"}, Languages: []string{"go"}}

	mc.Set(ctx, alice, md)
	mc.Set(ctx, bob, md)
	mc.Set(ctx, domain.PublicScope(), md)

	got, ok := mc.Get(ctx, alice)
	require.True(t, ok)
	assert.Equal(t, md, got)

	mc.Invalidate(ctx, "usr-alice")

	_, ok = mc.Get(ctx, alice)
	assert.False(t, ok)
	_, ok = mc.Get(ctx, domain.PublicScope())
	assert.False(t, ok)
	_, ok = mc.Get(ctx, bob)
	assert.True(t, ok)
}

func TestMetadataCache_CorruptEntryIsMiss(t *testing.T) {
	ctx := context.Background()
	backend := NewMemory(Options{})
	mc := NewMetadataCache(backend, time.Minute, slog.New(slog.NewTextHandler(io.Discard, nil)))

	require.NoError(t, backend.Set(ctx, metadataKey(domain.PublicScope()), []byte("{"), 0))
	_, ok := mc.Get(ctx, domain.PublicScope())
	assert.False(t, ok)
}

// The Redis backend runs only against a real server.
func TestRedis(t *testing.T) {
	url := os.Getenv("SNIPSTASH_TEST_REDIS_URL")
	if url == "" {
		t.Skip("SNIPSTASH_TEST_REDIS_URL not set")
	}
	ctx := context.Background()

	r, err := NewRedis(ctx, url, Options{KeyPrefix: "snipstash-test"})
	require.NoError(t, err)
	defer r.Close()

	require.NoError(t, r.Set(ctx, "k", []byte("v"), time.Minute))
	got, err := r.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	require.NoError(t, r.Delete(ctx, "k"))
	_, err = r.Get(ctx, "k")
	require.ErrorIs(t, err, ErrMiss)
}

func TestNewRedis_BadURL(t *testing.T) {
	_, err := NewRedis(context.Background(), "not a url", Options{})
	require.Error(t, err)
}
