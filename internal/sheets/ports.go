// Package sheets defines the outbound ports for the spreadsheet load log.
package sheets

import (
	"context"
	"time"
)

// LoadRow is one merged dataset as written to the load log.
type LoadRow struct {
	EventID     string
	SessionID   string
	Files       []string
	Rows        int
	Columns     int
	TopCategory string
	TotalSales  float64
	MergedAt    time.Time
}

// Ports for outbound adapters.
type (
	LoadLogWriter interface {
		AppendLoad(ctx context.Context, row LoadRow) (rowRef string, err error)
	}

	// HeaderWriter prepares the load log sheet before the first append.
	HeaderWriter interface {
		EnsureHeader(ctx context.Context) error
	}
)
