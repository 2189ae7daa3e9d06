// Package session keeps each browser's upload set and its merged table.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"salesdash/internal/ingest"
)

// ErrNoSuchPart is returned when removing an index outside the upload set.
var ErrNoSuchPart = errors.New("no such part")

// MergeFunc runs the ingestion gate over an upload set.
type MergeFunc func(ctx context.Context, parts []ingest.Part) (ingest.Result, error)

// FileInfo describes one uploaded part for the sidebar.
type FileInfo struct {
	Index int
	Name  string
	Size  int
}

type merged struct {
	revision uint64
	result   ingest.Result
	err      error
}

// Session is one browser's upload set. All methods are safe for concurrent use.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu       sync.Mutex
	parts    []ingest.Part
	revision uint64
	cached   *merged
}

func newSession(id string, now time.Time) *Session {
	return &Session{ID: id, CreatedAt: now}
}

// Add appends parts in upload order and returns the new revision.
func (s *Session) Add(parts ...ingest.Part) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.parts = append(s.parts, parts...)
	return s.bump()
}

// Remove drops the part at index.
func (s *Session) Remove(index int) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.parts) {
		return s.revision, fmt.Errorf("remove part %d of %d: %w", index, len(s.parts), ErrNoSuchPart)
	}
	s.parts = append(s.parts[:index:index], s.parts[index+1:]...)
	return s.bump(), nil
}

// Clear empties the upload set.
func (s *Session) Clear() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.parts = nil
	return s.bump()
}

func (s *Session) bump() uint64 {
	s.revision++
	s.cached = nil
	return s.revision
}

// Revision returns the upload set revision.
func (s *Session) Revision() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revision
}

// Count returns the number of uploaded parts.
func (s *Session) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.parts)
}

// Files lists the uploaded parts in order.
func (s *Session) Files() []FileInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]FileInfo, len(s.parts))
	for i, p := range s.parts {
		out[i] = FileInfo{Index: i, Name: p.Name, Size: len(p.Data)}
	}
	return out
}

// Merge returns the gate result for the current revision, running merge at
// most once per revision. fresh is true for the call that ran it. Concurrent
// callers of the same session wait for that run.
func (s *Session) Merge(ctx context.Context, merge MergeFunc) (res ingest.Result, fresh bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c := s.cached; c != nil && c.revision == s.revision {
		return c.result, false, c.err
	}

	res, err = merge(ctx, s.parts)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return res, false, err
	}
	s.cached = &merged{revision: s.revision, result: res, err: err}
	return res, true, err
}
