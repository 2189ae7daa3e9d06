// Package history records every merge attempt for the ingest log.
package history

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Status of a recorded merge.
type Status string

const (
	StatusReady      Status = "ready"
	StatusParseError Status = "parse_error"
)

// DefaultLimit is the number of events shown in the sidebar.
const DefaultLimit = 10

// ErrClosed is returned by a recorder after Close.
var ErrClosed = errors.New("history recorder closed")

// Event is one merge attempt.
type Event struct {
	ID        int64
	SessionID string
	Files     []string
	Rows      int
	Columns   int
	Status    Status
	Error     string
	At        time.Time
}

// Recorder stores ingest events.
type Recorder interface {
	Record(ctx context.Context, e Event) (Event, error)
	// Recent returns the newest events first.
	Recent(ctx context.Context, limit int) ([]Event, error)
	Count(ctx context.Context) (int64, error)
	Close() error
}

// Memory is a fixed-size ring of events.
type Memory struct {
	mu     sync.Mutex
	ring   []Event
	next   int
	total  int64
	closed bool
	now    func() time.Time
}

// NewMemory creates a ring holding the last capacity events.
func NewMemory(capacity int) *Memory {
	if capacity <= 0 {
		capacity = 100
	}
	return &Memory{ring: make([]Event, 0, capacity), now: time.Now}
}

func (m *Memory) Record(ctx context.Context, e Event) (Event, error) {
	if err := ctx.Err(); err != nil {
		return Event{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return Event{}, ErrClosed
	}

	m.total++
	e.ID = m.total
	if e.At.IsZero() {
		e.At = m.now()
	}
	e.Files = append([]string(nil), e.Files...)

	if len(m.ring) < cap(m.ring) {
		m.ring = append(m.ring, e)
	} else {
		m.ring[m.next] = e
	}
	m.next = (m.next + 1) % cap(m.ring)
	return e, nil
}

func (m *Memory) Recent(ctx context.Context, limit int) ([]Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}

	n := len(m.ring)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]Event, 0, limit)
	for i := 1; i <= limit; i++ {
		idx := (m.next - i + cap(m.ring)) % cap(m.ring)
		out = append(out, m.ring[idx])
	}
	return out, nil
}

func (m *Memory) Count(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.total, nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}
