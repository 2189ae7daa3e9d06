// Package ingest implements the upload gate: exactly two CSV parts are merged
// into one table, any other count halts the dashboard with a notice.
package ingest

import (
	"bytes"
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"salesdash/internal/dataset"
)

// RequiredParts is the number of parts that make a complete dataset.
const RequiredParts = 2

// State is the gate state derived from the number of uploaded parts.
type State int

const (
	NoFile State = iota
	OneFile
	Ready
	TooManyFiles
)

func (s State) String() string {
	switch s {
	case NoFile:
		return "no_file"
	case OneFile:
		return "one_file"
	case Ready:
		return "ready"
	case TooManyFiles:
		return "too_many_files"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// StateFor maps a part count to its gate state.
func StateFor(count int) State {
	switch {
	case count <= 0:
		return NoFile
	case count == 1:
		return OneFile
	case count == RequiredParts:
		return Ready
	default:
		return TooManyFiles
	}
}

// Part is one uploaded file held in memory.
type Part struct {
	Name string
	Data []byte
}

// InputCountError is returned when the upload set does not hold exactly two parts.
type InputCountError struct {
	Count int
}

func (e *InputCountError) Error() string {
	return fmt.Sprintf("need exactly %d csv parts, got %d", RequiredParts, e.Count)
}

// State returns the gate state for the offending count.
func (e *InputCountError) State() State { return StateFor(e.Count) }

// PartInfo describes a parsed part.
type PartInfo struct {
	Name string
	Rows int
}

// Result is the outcome of a gate run. Table is nil unless State is Ready.
type Result struct {
	State State
	Table *dataset.Table
	Parts []PartInfo
}

// Merge runs the gate over parts. Both parts are parsed concurrently and
// concatenated in upload order. Count violations return an *InputCountError
// together with the matching state; parse failures return a *dataset.ParseError.
func Merge(ctx context.Context, parts []Part) (Result, error) {
	state := StateFor(len(parts))
	if state != Ready {
		return Result{State: state}, &InputCountError{Count: len(parts)}
	}

	tables := make([]*dataset.Table, len(parts))
	g, ctx := errgroup.WithContext(ctx)
	for i, p := range parts {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			t, err := dataset.ReadCSV(p.Name, bytes.NewReader(p.Data))
			if err != nil {
				return err
			}
			tables[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{State: state}, fmt.Errorf("merge parts: %w", err)
	}

	info := make([]PartInfo, len(tables))
	for i, t := range tables {
		info[i] = PartInfo{Name: parts[i].Name, Rows: t.NumRows()}
	}
	return Result{
		State: Ready,
		Table: dataset.Concat(tables...),
		Parts: info,
	}, nil
}
