package worker

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salesdash/internal/amqp"
	"salesdash/internal/sheets"
)

type fakeLog struct {
	mu      sync.Mutex
	rows    []sheets.LoadRow
	headers int
	err     error
}

func (f *fakeLog) AppendLoad(_ context.Context, row sheets.LoadRow) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.rows = append(f.rows, row)
	return "Loads!A2:I2", nil
}

func (f *fakeLog) EnsureHeader(context.Context) error {
	f.headers++
	return nil
}

func TestHandleDatasetMerged(t *testing.T) {
	fake := &fakeLog{}
	w := NewLoadWorker(fake, nil)
	msg := amqp.NewDatasetMerged("s1", []string{"a.csv", "b.csv"}, 2, 11, "A", 150)

	require.NoError(t, w.HandleDatasetMerged(context.Background(), msg))
	require.Len(t, fake.rows, 1)
	row := fake.rows[0]
	assert.Equal(t, msg.EventID, row.EventID)
	assert.Equal(t, "A", row.TopCategory)
	assert.Equal(t, 150.0, row.TotalSales)
	assert.Equal(t, msg.Timestamp, row.MergedAt)
}

func TestHandleDatasetMergedDropsRedelivery(t *testing.T) {
	fake := &fakeLog{}
	w := NewLoadWorker(fake, nil)
	msg := amqp.NewDatasetMerged("s1", []string{"a.csv", "b.csv"}, 2, 11, "A", 150)

	require.NoError(t, w.HandleDatasetMerged(context.Background(), msg))
	require.NoError(t, w.HandleDatasetMerged(context.Background(), msg))
	assert.Len(t, fake.rows, 1)
}

func TestHandleDatasetMergedError(t *testing.T) {
	fake := &fakeLog{err: errors.New("quota exceeded")}
	w := NewLoadWorker(fake, nil)
	msg := amqp.NewDatasetMerged("s1", nil, 2, 11, "", 0)

	err := w.HandleDatasetMerged(context.Background(), msg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")

	fake.err = nil
	require.NoError(t, w.HandleDatasetMerged(context.Background(), msg), "failed events are retried")
	assert.Len(t, fake.rows, 1)
}

func TestHandleWithoutWriter(t *testing.T) {
	w := NewLoadWorker(nil, nil)
	msg := amqp.NewDatasetMerged("s1", nil, 2, 11, "", 0)
	assert.NoError(t, w.HandleDatasetMerged(context.Background(), msg))
	assert.NoError(t, w.Startup(context.Background()))
}

func TestStartupWritesHeader(t *testing.T) {
	fake := &fakeLog{}
	w := NewLoadWorker(fake, nil)
	require.NoError(t, w.Startup(context.Background()))
	assert.Equal(t, 1, fake.headers)
}
