package optimistic

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snipstash/snipstash-server/internal/client"
	"github.com/snipstash/snipstash-server/internal/client/listcache"
	"github.com/snipstash/snipstash-server/internal/domain"
	domainerrors "github.com/snipstash/snipstash-server/internal/errors"
	"github.com/snipstash/snipstash-server/internal/sse"
)

const ownerID = "usr-1"

var (
	owner   = domain.OwnerScope(ownerID)
	baseDay = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
)

func record(id, title string, cats ...string) *domain.Snippet {
	return &domain.Snippet{
		ID:         id,
		OwnerID:    ownerID,
		Title:      title,
		Categories: cats,
		Fragments:  []domain.Fragment{{ID: "frg-" + id, FileName: "main.go", Language: "go", Code: "package main"}},
		CreatedAt:  baseDay,
		UpdatedAt:  baseDay,
	}
}

// fakeAPI is an in-memory server. Setting err makes every call fail;
// setting gate blocks calls until it is closed.
type fakeAPI struct {
	mu      sync.Mutex
	records map[string]*domain.Snippet
	err     error
	gate    chan struct{}
	entered chan struct{}
	calls   atomic.Int32

	inflight    atomic.Int32
	maxInflight atomic.Int32
}

func newFakeAPI(recs ...*domain.Snippet) *fakeAPI {
	f := &fakeAPI{records: make(map[string]*domain.Snippet)}
	for _, r := range recs {
		f.records[r.ID] = r.Clone()
	}
	return f
}

func (f *fakeAPI) enter() error {
	f.calls.Add(1)
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.gate != nil {
		<-f.gate
	}
	return f.err
}

func (f *fakeAPI) get(id string) (*domain.Snippet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sn, ok := f.records[id]
	if !ok {
		return nil, domainerrors.NotFound("snippet not found")
	}
	return sn, nil
}

func (f *fakeAPI) Create(_ context.Context, in domain.SnippetInput) (*domain.Snippet, error) {
	if err := f.enter(); err != nil {
		return nil, err
	}
	sn := &domain.Snippet{ID: "snp-new", OwnerID: ownerID, CreatedAt: baseDay, UpdatedAt: baseDay}
	applyInput(sn, in)
	for i := range sn.Fragments {
		sn.Fragments[i].ID = fmt.Sprintf("frg-new-%d", i)
	}
	f.mu.Lock()
	f.records[sn.ID] = sn
	f.mu.Unlock()
	return sn.Clone(), nil
}

func (f *fakeAPI) Update(_ context.Context, id string, in domain.SnippetInput) (*domain.Snippet, error) {
	if err := f.enter(); err != nil {
		return nil, err
	}
	sn, err := f.get(id)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	applyInput(sn, in)
	sn.UpdatedAt = baseDay.Add(time.Hour)
	return sn.Clone(), nil
}

func (f *fakeAPI) lifecycle(id string) error {
	if err := f.enter(); err != nil {
		return err
	}
	_, err := f.get(id)
	return err
}

func (f *fakeAPI) Delete(_ context.Context, id string) error  { return f.lifecycle(id) }
func (f *fakeAPI) Recycle(_ context.Context, id string) error { return f.lifecycle(id) }
func (f *fakeAPI) Restore(_ context.Context, id string) error { return f.lifecycle(id) }

func (f *fakeAPI) setFlag(id string, fn func(*domain.Snippet)) (*domain.Snippet, error) {
	if err := f.enter(); err != nil {
		return nil, err
	}
	sn, err := f.get(id)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(sn)
	return sn.Clone(), nil
}

func (f *fakeAPI) SetPinned(_ context.Context, id string, pinned bool) (*domain.Snippet, error) {
	return f.setFlag(id, func(sn *domain.Snippet) { sn.IsPinned = pinned })
}

func (f *fakeAPI) SetFavorite(_ context.Context, id string, favorite bool) (*domain.Snippet, error) {
	return f.setFlag(id, func(sn *domain.Snippet) { sn.IsFavorite = favorite })
}

// seed loads one page per filter into a fresh cache.
func seed(t *testing.T, recs []*domain.Snippet, filters ...domain.Filter) *listcache.Cache {
	t.Helper()
	c := listcache.New()
	for _, f := range filters {
		key := listcache.NewKey(owner, f)
		var page []*domain.Snippet
		for _, r := range recs {
			if key.Matches(r) {
				page = append(page, r.Clone())
			}
		}
		c.AppendPage(key, listcache.Page{Records: page, Limit: 20, Total: len(page)})
	}
	return c
}

func entry(t *testing.T, c *listcache.Cache, f domain.Filter) *listcache.Entry {
	t.Helper()
	e, ok := c.Get(listcache.NewKey(owner, f))
	require.True(t, ok, "entry missing")
	return e
}

func ids(e *listcache.Entry) []string {
	out := []string{}
	for _, r := range e.Records() {
		out = append(out, r.ID)
	}
	return out
}

func allPages(c *listcache.Cache) map[string][]listcache.Page {
	out := map[string][]listcache.Page{}
	for _, e := range c.Entries(nil) {
		out[e.Key().Signature()] = e.Pages()
	}
	return out
}

func TestFavorite_FailureRestoresExactState(t *testing.T) {
	recs := []*domain.Snippet{record("snp-a", "alpha", "go"), record("snp-b", "beta")}
	all := domain.NewFilter()
	favs := domain.NewFilter().WithFavorites(true)
	cache := seed(t, recs, all, favs)
	before := allPages(cache)

	api := newFakeAPI(recs...)
	api.err = domainerrors.Unavailable("server down")
	co := New(cache, api, ownerID)

	out := co.Mutate(context.Background(), SetFavorite("snp-a", true))

	fail, ok := out.(Failure)
	require.True(t, ok)
	assert.Equal(t, domainerrors.CodeUnavailable, domainerrors.CodeOf(fail.Err))
	assert.Equal(t, before, allPages(cache))
}

func TestFavorite_SpeculativeThenReconciled(t *testing.T) {
	recs := []*domain.Snippet{record("snp-a", "alpha"), record("snp-b", "beta")}
	all := domain.NewFilter()
	favs := domain.NewFilter().WithFavorites(true)
	cache := seed(t, recs, all, favs)

	api := newFakeAPI(recs...)
	api.gate = make(chan struct{})
	api.entered = make(chan struct{}, 1)
	co := New(cache, api, ownerID)

	done := make(chan Outcome, 1)
	go func() { done <- co.Mutate(context.Background(), SetFavorite("snp-a", true)) }()
	<-api.entered

	// Applied locally before the server answers.
	r := entry(t, cache, all).Records()
	assert.True(t, r[0].IsFavorite)

	close(api.gate)
	out := <-done
	succ, ok := out.(Success)
	require.True(t, ok)
	assert.Equal(t, "snp-a", succ.ID)
	assert.True(t, succ.Record.IsFavorite)

	assert.Equal(t, []string{"snp-a", "snp-b"}, ids(entry(t, cache, all)))

	// The favorites view never held the record, so it refetches.
	_, ok = cache.Get(listcache.NewKey(owner, favs))
	assert.False(t, ok)
}

func TestUnfavorite_RemovesFromFavoritesView(t *testing.T) {
	a := record("snp-a", "alpha")
	a.IsFavorite = true
	b := record("snp-b", "beta")
	b.IsFavorite = true
	favs := domain.NewFilter().WithFavorites(true)
	cache := seed(t, []*domain.Snippet{a, b}, favs)

	co := New(cache, newFakeAPI(a, b), ownerID)
	out := co.Mutate(context.Background(), SetFavorite("snp-a", false))
	require.IsType(t, Success{}, out)

	e := entry(t, cache, favs)
	assert.Equal(t, []string{"snp-b"}, ids(e))
	assert.Equal(t, 1, e.Total())
}

func TestCreate_PlaceholderAtHeadThenReplaced(t *testing.T) {
	recs := []*domain.Snippet{record("snp-a", "alpha", "go"), record("snp-b", "beta", "go")}
	all := domain.NewFilter()
	goOnly := domain.NewFilter().WithCategories("go")
	rustOnly := domain.NewFilter().WithCategories("rust")
	cache := seed(t, recs, all, goOnly, rustOnly)

	api := newFakeAPI(recs...)
	api.gate = make(chan struct{})
	api.entered = make(chan struct{}, 1)
	co := New(cache, api, ownerID)

	in := domain.SnippetInput{
		Title:      "gamma",
		Categories: []string{"Go"},
		Fragments:  []domain.FragmentInput{{FileName: "x.go", Language: "go", Code: "package x"}},
	}
	done := make(chan Outcome, 1)
	go func() { done <- co.Mutate(context.Background(), Create(in)) }()
	<-api.entered

	for _, f := range []domain.Filter{all, goOnly} {
		e := entry(t, cache, f)
		got := ids(e)
		require.Len(t, got, 3)
		assert.True(t, strings.HasPrefix(got[0], "tmp-"), got[0])
		assert.Equal(t, 3, e.Total())
	}
	assert.Empty(t, ids(entry(t, cache, rustOnly)))
	assert.Equal(t, 0, entry(t, cache, rustOnly).Total())

	close(api.gate)
	out := <-done
	succ, ok := out.(Success)
	require.True(t, ok)
	assert.Equal(t, "snp-new", succ.ID)

	for _, f := range []domain.Filter{all, goOnly} {
		e := entry(t, cache, f)
		assert.Equal(t, []string{"snp-new", "snp-a", "snp-b"}, ids(e))
		assert.Equal(t, 3, e.Total())
	}
}

func TestCreate_FailureRemovesPlaceholder(t *testing.T) {
	recs := []*domain.Snippet{record("snp-a", "alpha")}
	all := domain.NewFilter()
	cache := seed(t, recs, all)

	api := newFakeAPI(recs...)
	api.err = domainerrors.Validation("title is required")
	co := New(cache, api, ownerID)

	out := co.Mutate(context.Background(), Create(domain.SnippetInput{Title: "x"}))
	require.IsType(t, Failure{}, out)

	e := entry(t, cache, all)
	assert.Equal(t, []string{"snp-a"}, ids(e))
	assert.Equal(t, 1, e.Total())
}

func TestRecycle_RemovesAndInvalidatesBin(t *testing.T) {
	recs := []*domain.Snippet{record("snp-a", "alpha"), record("snp-b", "beta")}
	all := domain.NewFilter()
	bin := domain.NewFilter().WithRecycled(true)
	cache := seed(t, recs, all, bin)

	co := New(cache, newFakeAPI(recs...), ownerID)
	out := co.Mutate(context.Background(), Recycle("snp-a"))
	require.Equal(t, Success{ID: "snp-a"}, out)

	e := entry(t, cache, all)
	assert.Equal(t, []string{"snp-b"}, ids(e))
	assert.Equal(t, 1, e.Total())

	_, ok := cache.Get(listcache.NewKey(owner, bin))
	assert.False(t, ok)
}

func TestRestore_InvalidatesActiveViews(t *testing.T) {
	a := record("snp-a", "alpha")
	exp := baseDay.Add(24 * time.Hour)
	a.ExpiryDate = &exp
	all := domain.NewFilter()
	bin := domain.NewFilter().WithRecycled(true)
	cache := seed(t, []*domain.Snippet{a}, all, bin)

	co := New(cache, newFakeAPI(a), ownerID)
	out := co.Mutate(context.Background(), Restore("snp-a"))
	require.IsType(t, Success{}, out)

	e := entry(t, cache, bin)
	assert.Empty(t, ids(e))
	assert.Equal(t, 0, e.Total())

	_, ok := cache.Get(listcache.NewKey(owner, all))
	assert.False(t, ok)
}

func TestDelete_TotalNeverNegative(t *testing.T) {
	a := record("snp-a", "alpha")
	exp := baseDay.Add(time.Hour)
	a.ExpiryDate = &exp
	bin := domain.NewFilter().WithRecycled(true)
	cache := listcache.New()
	cache.AppendPage(listcache.NewKey(owner, bin), listcache.Page{Records: []*domain.Snippet{a}, Total: 0})

	co := New(cache, newFakeAPI(a), ownerID)
	require.IsType(t, Success{}, co.Mutate(context.Background(), Delete("snp-a")))
	assert.Equal(t, 0, entry(t, cache, bin).Total())
}

func TestEdit_RemovesFromViewsItNoLongerMatches(t *testing.T) {
	recs := []*domain.Snippet{record("snp-a", "alpha", "go"), record("snp-b", "beta", "go")}
	all := domain.NewFilter()
	goOnly := domain.NewFilter().WithCategories("go")
	cache := seed(t, recs, all, goOnly)

	co := New(cache, newFakeAPI(recs...), ownerID)
	in := domain.SnippetInput{
		Title:      "alpha renamed",
		Categories: []string{"sql"},
		Fragments:  []domain.FragmentInput{{FileName: "q.sql", Language: "sql", Code: "select 1"}},
	}
	out := co.Mutate(context.Background(), Edit("snp-a", in))
	succ, ok := out.(Success)
	require.True(t, ok)
	assert.Equal(t, "alpha renamed", succ.Record.Title)

	assert.Equal(t, []string{"snp-a", "snp-b"}, ids(entry(t, cache, all)))
	assert.Equal(t, "alpha renamed", entry(t, cache, all).Records()[0].Title)

	e := entry(t, cache, goOnly)
	assert.Equal(t, []string{"snp-b"}, ids(e))
	assert.Equal(t, 1, e.Total())
}

func TestUnauthorized_FiresSessionReset(t *testing.T) {
	recs := []*domain.Snippet{record("snp-a", "alpha")}
	all := domain.NewFilter()
	cache := seed(t, recs, all)
	before := allPages(cache)

	api := newFakeAPI(recs...)
	api.err = domainerrors.Unauthorized("invalid or expired token")

	var resets atomic.Int32
	co := New(cache, api, ownerID, OnSessionReset(func() { resets.Add(1) }))

	out := co.Mutate(context.Background(), SetPinned("snp-a", true))
	fail, ok := out.(Failure)
	require.True(t, ok)
	assert.ErrorIs(t, fail.Err, domainerrors.ErrUnauthorized)
	assert.Equal(t, int32(1), resets.Load())
	assert.Equal(t, before, allPages(cache))

	// Other failures do not reset the session.
	api.err = domainerrors.NotFound("snippet not found")
	co.Mutate(context.Background(), SetPinned("snp-a", true))
	assert.Equal(t, int32(1), resets.Load())
}

func TestMissingID_FailsWithoutCalling(t *testing.T) {
	api := newFakeAPI()
	co := New(listcache.New(), api, ownerID)

	out := co.Mutate(context.Background(), Recycle(" "))
	fail, ok := out.(Failure)
	require.True(t, ok)
	assert.Equal(t, domainerrors.CodeValidation, domainerrors.CodeOf(fail.Err))
	assert.Equal(t, int32(0), api.calls.Load())
}

func TestPerRecordSerialization(t *testing.T) {
	recs := []*domain.Snippet{record("snp-a", "alpha")}
	cache := seed(t, recs, domain.NewFilter())
	api := newFakeAPI(recs...)
	co := New(cache, api, ownerID, WithPerRecordSerialization())

	slow := &slowAPI{fakeAPI: api, delay: 10 * time.Millisecond}
	co.api = slow

	var wg sync.WaitGroup
	for i := range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			co.Mutate(context.Background(), SetFavorite("snp-a", i%2 == 0))
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(4), api.calls.Load())
	assert.Equal(t, int32(1), api.maxInflight.Load())
	assert.Empty(t, co.locks.m)
}

// slowAPI holds each call open long enough for overlapping callers to
// collide if they are not serialized.
type slowAPI struct {
	*fakeAPI
	delay time.Duration
}

func (s *slowAPI) SetFavorite(ctx context.Context, id string, favorite bool) (*domain.Snippet, error) {
	n := s.inflight.Add(1)
	for {
		m := s.maxInflight.Load()
		if n <= m || s.maxInflight.CompareAndSwap(m, n) {
			break
		}
	}
	time.Sleep(s.delay)
	s.inflight.Add(-1)
	return s.fakeAPI.SetFavorite(ctx, id, favorite)
}

func TestApplyRemote(t *testing.T) {
	a := record("snp-a", "alpha")
	b := record("snp-b", "beta")
	all := domain.NewFilter()
	bin := domain.NewFilter().WithRecycled(true)
	pinned := domain.NewFilter().WithPinned(true)

	t.Run("purged removes everywhere", func(t *testing.T) {
		cache := seed(t, []*domain.Snippet{a, b}, all)
		co := New(cache, newFakeAPI(), ownerID)

		co.ApplyRemote(client.Event{Type: sse.EventSnippetPurged, SnippetID: "snp-a"})
		assert.Equal(t, []string{"snp-b"}, ids(entry(t, cache, all)))
	})

	t.Run("recycled invalidates the bin", func(t *testing.T) {
		cache := seed(t, []*domain.Snippet{a, b}, all, bin)
		co := New(cache, newFakeAPI(), ownerID)

		co.ApplyRemote(client.Event{Type: sse.EventSnippetRecycled, SnippetID: "snp-b"})
		assert.Equal(t, []string{"snp-a"}, ids(entry(t, cache, all)))
		_, ok := cache.Get(listcache.NewKey(owner, bin))
		assert.False(t, ok)
	})

	t.Run("updated merges and invalidates new homes", func(t *testing.T) {
		cache := seed(t, []*domain.Snippet{a, b}, all, pinned)
		co := New(cache, newFakeAPI(), ownerID)

		upd := a.Clone()
		upd.IsPinned = true
		upd.Title = "alpha pinned"
		co.ApplyRemote(client.Event{Type: sse.EventSnippetUpdated, SnippetID: "snp-a", Snippet: upd})

		assert.Equal(t, "alpha pinned", entry(t, cache, all).Records()[0].Title)
		_, ok := cache.Get(listcache.NewKey(owner, pinned))
		assert.False(t, ok)
	})

	t.Run("created invalidates matching views", func(t *testing.T) {
		cache := seed(t, []*domain.Snippet{a}, all, bin)
		co := New(cache, newFakeAPI(), ownerID)

		co.ApplyRemote(client.Event{Type: sse.EventSnippetCreated, SnippetID: "snp-c", Snippet: record("snp-c", "gamma")})
		_, ok := cache.Get(listcache.NewKey(owner, all))
		assert.False(t, ok)
		_, ok = cache.Get(listcache.NewKey(owner, bin))
		assert.True(t, ok)
	})
}

// steppedAPI holds calls on chosen records until released, then fails them
// with the step's error. Calls on other records go straight through.
type steppedAPI struct {
	*fakeAPI
	steps map[string]*step
}

type step struct {
	entered chan struct{}
	release chan struct{}
	err     error
}

func newStep(err error) *step {
	return &step{entered: make(chan struct{}, 1), release: make(chan struct{}), err: err}
}

func (s *steppedAPI) wait(id string) error {
	st, ok := s.steps[id]
	if !ok {
		return nil
	}
	st.entered <- struct{}{}
	<-st.release
	return st.err
}

func (s *steppedAPI) SetFavorite(ctx context.Context, id string, favorite bool) (*domain.Snippet, error) {
	if err := s.wait(id); err != nil {
		return nil, err
	}
	return s.fakeAPI.SetFavorite(ctx, id, favorite)
}

func (s *steppedAPI) SetPinned(ctx context.Context, id string, pinned bool) (*domain.Snippet, error) {
	if err := s.wait(id); err != nil {
		return nil, err
	}
	return s.fakeAPI.SetPinned(ctx, id, pinned)
}

func (s *steppedAPI) Recycle(ctx context.Context, id string) error {
	if err := s.wait(id); err != nil {
		return err
	}
	return s.fakeAPI.Recycle(ctx, id)
}

func (s *steppedAPI) Delete(ctx context.Context, id string) error {
	if err := s.wait(id); err != nil {
		return err
	}
	return s.fakeAPI.Delete(ctx, id)
}

func TestRollback_KeepsConfirmedRemovalOfOtherRecord(t *testing.T) {
	for _, tc := range []struct {
		name string
		m    Mutation
	}{
		{"recycle", Recycle("snp-b")},
		{"delete", Delete("snp-b")},
	} {
		t.Run(tc.name, func(t *testing.T) {
			recs := []*domain.Snippet{record("snp-a", "alpha"), record("snp-b", "beta")}
			all := domain.NewFilter()
			bin := domain.NewFilter().WithRecycled(true)
			cache := seed(t, recs, all, bin)

			failA := newStep(domainerrors.Unavailable("server down"))
			api := &steppedAPI{fakeAPI: newFakeAPI(recs...), steps: map[string]*step{"snp-a": failA}}
			co := New(cache, api, ownerID)

			done := make(chan Outcome, 1)
			go func() { done <- co.Mutate(context.Background(), SetFavorite("snp-a", true)) }()
			<-failA.entered

			require.IsType(t, Success{}, co.Mutate(context.Background(), tc.m))

			close(failA.release)
			require.IsType(t, Failure{}, <-done)

			e := entry(t, cache, all)
			require.Equal(t, []string{"snp-a"}, ids(e))
			assert.Equal(t, 1, e.Total())
			assert.False(t, e.Records()[0].IsFavorite)
			if tc.name == "recycle" {
				_, ok := cache.Get(listcache.NewKey(owner, bin))
				assert.False(t, ok, "bin should refetch after the confirmed recycle")
			}
			assert.Zero(t, co.journal.pending())
		})
	}
}

func TestRollback_KeepsConfirmedFlagOfOtherRecord(t *testing.T) {
	recs := []*domain.Snippet{record("snp-a", "alpha"), record("snp-b", "beta")}
	all := domain.NewFilter()
	cache := seed(t, recs, all)

	failA := newStep(domainerrors.Unavailable("server down"))
	api := &steppedAPI{fakeAPI: newFakeAPI(recs...), steps: map[string]*step{"snp-a": failA}}
	co := New(cache, api, ownerID)

	done := make(chan Outcome, 1)
	go func() { done <- co.Mutate(context.Background(), SetPinned("snp-a", true)) }()
	<-failA.entered

	require.IsType(t, Success{}, co.Mutate(context.Background(), SetFavorite("snp-b", true)))

	close(failA.release)
	require.IsType(t, Failure{}, <-done)

	r := entry(t, cache, all).Records()
	require.Len(t, r, 2)
	assert.False(t, r[0].IsPinned)
	assert.True(t, r[1].IsFavorite)
}

func TestRollback_DoesNotResurrectRejectedChange(t *testing.T) {
	recs := []*domain.Snippet{record("snp-a", "alpha"), record("snp-b", "beta")}
	all := domain.NewFilter()
	cache := seed(t, recs, all)

	failA := newStep(domainerrors.Unavailable("server down"))
	failB := newStep(domainerrors.Unavailable("server down"))
	api := &steppedAPI{fakeAPI: newFakeAPI(recs...), steps: map[string]*step{"snp-a": failA, "snp-b": failB}}
	co := New(cache, api, ownerID)

	doneA := make(chan Outcome, 1)
	go func() { doneA <- co.Mutate(context.Background(), SetFavorite("snp-a", true)) }()
	<-failA.entered

	// B's snapshot holds A's speculative favorite.
	doneB := make(chan Outcome, 1)
	go func() { doneB <- co.Mutate(context.Background(), SetPinned("snp-b", true)) }()
	<-failB.entered

	close(failA.release)
	require.IsType(t, Failure{}, <-doneA)
	close(failB.release)
	require.IsType(t, Failure{}, <-doneB)

	if e, ok := cache.Get(listcache.NewKey(owner, all)); ok {
		for _, r := range e.Records() {
			assert.False(t, r.IsFavorite, "%s kept a rejected favorite", r.ID)
			assert.False(t, r.IsPinned, "%s kept a rejected pin", r.ID)
		}
	}
	assert.Zero(t, co.journal.pending())
}
