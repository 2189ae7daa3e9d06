// Package worker turns dataset events into load log rows.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"salesdash/internal/amqp"
	"salesdash/internal/cache"
	"salesdash/internal/log"
	"salesdash/internal/sheets"
)

const (
	seenCapacity = 1024
	seenTTL      = 24 * time.Hour
)

// LoadWorker appends one load log row per dataset event. Without a writer it
// only logs the events.
type LoadWorker struct {
	writer sheets.LoadLogWriter
	logger *log.Logger
	// seen drops redelivered events that were already appended.
	seen *cache.LRUCache[string]
}

func NewLoadWorker(writer sheets.LoadLogWriter, logger *log.Logger) *LoadWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &LoadWorker{
		writer: writer,
		logger: logger.WithComponent(log.ComponentWorker),
		seen:   cache.NewLRUCache[string](seenCapacity, seenTTL),
	}
}

// Cleaner exposes the dedupe cache to a cache.Manager.
func (w *LoadWorker) Cleaner() cache.Cleaner { return w.seen }

// Startup prepares the sheet header when the writer supports it.
func (w *LoadWorker) Startup(ctx context.Context) error {
	hw, ok := w.writer.(sheets.HeaderWriter)
	if !ok {
		return nil
	}
	if err := hw.EnsureHeader(ctx); err != nil {
		return fmt.Errorf("prepare load log: %w", err)
	}
	return nil
}

// HandleDatasetMerged is an amqp.Handler.
func (w *LoadWorker) HandleDatasetMerged(ctx context.Context, msg *amqp.DatasetMerged) error {
	fields := log.NewFields().
		WithOperation(log.OpAppend).
		WithSession(msg.SessionID).
		WithDataset(msg.Files, msg.Rows, msg.Columns).
		WithEventID(msg.EventID)

	if ref, ok := w.seen.Get(msg.EventID); ok {
		w.logger.LogWith(ctx, slog.LevelDebug, "Dataset event already appended", fields.With(log.FieldSheetsRef, ref))
		return nil
	}

	if w.writer == nil {
		w.logger.LogWith(ctx, slog.LevelInfo, "Dataset event received, load log disabled", fields)
		return nil
	}

	ref, err := w.writer.AppendLoad(ctx, sheets.LoadRow{
		EventID:     msg.EventID,
		SessionID:   msg.SessionID,
		Files:       msg.Files,
		Rows:        msg.Rows,
		Columns:     msg.Columns,
		TopCategory: msg.TopCategory,
		TotalSales:  msg.TotalSales,
		MergedAt:    msg.Timestamp,
	})
	if err != nil {
		return fmt.Errorf("append load row: %w", err)
	}
	w.seen.Set(msg.EventID, ref)

	w.logger.LogWith(ctx, slog.LevelInfo, "Dataset event appended", fields.With(log.FieldSheetsRef, ref))
	return nil
}
