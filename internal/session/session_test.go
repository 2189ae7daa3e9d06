package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salesdash/internal/ingest"
)

func part(name string) ingest.Part {
	return ingest.Part{Name: name, Data: []byte("a\n1\n")}
}

func TestSessionUploadSet(t *testing.T) {
	s := newSession("s1", time.Now())

	assert.Equal(t, uint64(1), s.Add(part("a.csv"), part("b.csv")))
	assert.Equal(t, uint64(2), s.Add(part("c.csv")))
	assert.Equal(t, 3, s.Count())

	rev, err := s.Remove(1)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), rev)
	assert.Equal(t, []FileInfo{{Index: 0, Name: "a.csv", Size: 4}, {Index: 1, Name: "c.csv", Size: 4}}, s.Files())

	_, err = s.Remove(5)
	assert.True(t, errors.Is(err, ErrNoSuchPart))

	assert.Equal(t, uint64(4), s.Clear())
	assert.Empty(t, s.Files())
}

func TestSessionMergeCachedPerRevision(t *testing.T) {
	s := newSession("s1", time.Now())
	var calls atomic.Int32
	merge := func(ctx context.Context, parts []ingest.Part) (ingest.Result, error) {
		calls.Add(1)
		return ingest.Merge(ctx, parts)
	}

	s.Add(part("a.csv"))
	_, fresh, err := s.Merge(context.Background(), merge)
	assert.True(t, fresh)
	var ice *ingest.InputCountError
	assert.True(t, errors.As(err, &ice))

	_, fresh, _ = s.Merge(context.Background(), merge)
	assert.False(t, fresh)
	assert.Equal(t, int32(1), calls.Load())

	s.Add(part("b.csv"))
	res, fresh, err := s.Merge(context.Background(), merge)
	require.NoError(t, err)
	assert.True(t, fresh)
	assert.Equal(t, ingest.Ready, res.State)
	assert.Equal(t, 2, res.Table.NumRows())
	assert.Equal(t, int32(2), calls.Load())
}

func TestSessionMergeConcurrent(t *testing.T) {
	s := newSession("s1", time.Now())
	s.Add(part("a.csv"), part("b.csv"))

	var calls atomic.Int32
	merge := func(ctx context.Context, parts []ingest.Part) (ingest.Result, error) {
		calls.Add(1)
		return ingest.Merge(ctx, parts)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, _, err := s.Merge(context.Background(), merge)
			assert.NoError(t, err)
			assert.Equal(t, 2, res.Table.NumRows())
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), calls.Load())
}

func TestSessionMergeCanceledIsNotCached(t *testing.T) {
	s := newSession("s1", time.Now())
	s.Add(part("a.csv"), part("b.csv"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := s.Merge(ctx, ingest.Merge)
	require.ErrorIs(t, err, context.Canceled)

	res, fresh, err := s.Merge(context.Background(), ingest.Merge)
	require.NoError(t, err)
	assert.True(t, fresh)
	assert.Equal(t, ingest.Ready, res.State)
}

func TestStoreResolve(t *testing.T) {
	store := NewStore(Config{MaxSessions: 4, TTL: time.Hour}, nil)

	rec := httptest.NewRecorder()
	first := store.Resolve(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, CookieName, cookies[0].Name)
	assert.Equal(t, first.ID, cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	again := store.Resolve(rec, req)
	assert.Same(t, first, again)
	assert.Empty(t, rec.Result().Cookies(), "known session keeps its cookie")

	bad := httptest.NewRequest(http.MethodGet, "/", nil)
	bad.AddCookie(&http.Cookie{Name: CookieName, Value: "not-a-uuid"})
	rec = httptest.NewRecorder()
	fresh := store.Resolve(rec, bad)
	assert.NotEqual(t, first.ID, fresh.ID)
	assert.Len(t, rec.Result().Cookies(), 1)
	assert.Equal(t, 2, store.Len())
}

func TestStoreCapacity(t *testing.T) {
	store := NewStore(Config{MaxSessions: 2, TTL: time.Hour}, nil)
	a := store.Create()
	store.Create()
	store.Create()

	_, ok := store.Get(a.ID)
	assert.False(t, ok, "oldest session is evicted")
	assert.Equal(t, 2, store.Len())
}
