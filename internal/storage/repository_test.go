package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salesdash/internal/history"
)

func newRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "salesdash.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestRecordAndRecent(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	first, err := repo.Record(ctx, history.Event{
		SessionID: "s1", Files: []string{"a.csv", "b.csv"}, Rows: 2, Columns: 11,
		Status: history.StatusReady, At: at,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.ID)

	_, err = repo.Record(ctx, history.Event{
		SessionID: "s1", Files: []string{"a.csv", "bad.csv"},
		Status: history.StatusParseError, Error: `parse "bad.csv" line 3`, At: at.Add(time.Minute),
	})
	require.NoError(t, err)

	events, err := repo.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, history.StatusParseError, events[0].Status)
	if diff := cmp.Diff(first, events[1]); diff != "" {
		t.Errorf("stored event mismatch (-want +got):\n%s", diff)
	}

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestRecentLimit(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	for i := 0; i < 15; i++ {
		_, err := repo.Record(ctx, history.Event{SessionID: "s", Status: history.StatusReady})
		require.NoError(t, err)
	}

	events, err := repo.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, events, history.DefaultLimit)
	assert.Equal(t, int64(15), events[0].ID)
	assert.Empty(t, events[0].Files)
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "salesdash.db")
	repo, err := NewSQLiteRepository(path, nil)
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	repo, err = NewSQLiteRepository(path, nil)
	require.NoError(t, err)
	defer repo.Close()
	require.NoError(t, repo.Ping(context.Background()))
}

func TestReopenKeepsSchema(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "h.db")

	repo, err := NewSQLiteRepository(path, nil)
	require.NoError(t, err)
	_, err = repo.Record(ctx, history.Event{SessionID: "s1", Status: history.StatusReady, At: time.Now()})
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	repo, err = NewSQLiteRepository(path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
