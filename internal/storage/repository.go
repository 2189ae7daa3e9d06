package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"salesdash/internal/history"
	"salesdash/internal/log"

	_ "modernc.org/sqlite"
)

const timeLayout = time.RFC3339Nano

// SQLiteRepository persists ingest events. It implements history.Recorder.
type SQLiteRepository struct {
	db        *sql.DB
	logger    *log.Logger
	now       func() time.Time
	closeOnce sync.Once
}

var _ history.Recorder = (*SQLiteRepository)(nil)

// NewSQLiteRepository opens dbPath, creating its directory, and applies migrations.
func NewSQLiteRepository(dbPath string, logger *log.Logger) (*SQLiteRepository, error) {
	if logger == nil {
		logger = log.Discard()
	}
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// modernc sqlite serializes writers; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := migrateSchema(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	repo := &SQLiteRepository{
		db:     db,
		logger: logger.WithComponent(log.ComponentStorage),
		now:    time.Now,
	}
	repo.logger.Info("History database ready", "path", dbPath, "schema_version", version)
	return repo, nil
}

// Close closes the database once.
func (r *SQLiteRepository) Close() error {
	var err error
	r.closeOnce.Do(func() {
		if r.db != nil {
			err = r.db.Close()
		}
	})
	return err
}

// Record inserts an event and returns it with its id.
func (r *SQLiteRepository) Record(ctx context.Context, e history.Event) (history.Event, error) {
	if e.At.IsZero() {
		e.At = r.now()
	}
	e.At = e.At.UTC()
	if e.Files == nil {
		e.Files = []string{}
	}
	files, err := json.Marshal(e.Files)
	if err != nil {
		return history.Event{}, fmt.Errorf("encode files: %w", err)
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO ingest_events (session_id, files, rows_count, columns_count, status, error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.SessionID, string(files), e.Rows, e.Columns, string(e.Status), e.Error, e.At.Format(timeLayout))
	if err != nil {
		return history.Event{}, fmt.Errorf("insert ingest event: %w", err)
	}
	if e.ID, err = res.LastInsertId(); err != nil {
		return history.Event{}, fmt.Errorf("ingest event id: %w", err)
	}

	r.logger.DebugContext(ctx, "Ingest event saved",
		"id", e.ID,
		log.FieldSession, e.SessionID,
		"status", string(e.Status),
		log.FieldRows, e.Rows)
	return e, nil
}

// Recent returns the newest events first; limit <= 0 means DefaultLimit.
func (r *SQLiteRepository) Recent(ctx context.Context, limit int) ([]history.Event, error) {
	if limit <= 0 {
		limit = history.DefaultLimit
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, session_id, files, rows_count, columns_count, status, error, created_at
		 FROM ingest_events ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query ingest events: %w", err)
	}
	defer rows.Close()

	var events []history.Event
	for rows.Next() {
		var (
			e             history.Event
			files, at, st string
		)
		if err := rows.Scan(&e.ID, &e.SessionID, &files, &e.Rows, &e.Columns, &st, &e.Error, &at); err != nil {
			return nil, fmt.Errorf("scan ingest event: %w", err)
		}
		if err := json.Unmarshal([]byte(files), &e.Files); err != nil {
			return nil, fmt.Errorf("decode files of event %d: %w", e.ID, err)
		}
		if e.At, err = time.Parse(timeLayout, at); err != nil {
			return nil, fmt.Errorf("decode time of event %d: %w", e.ID, err)
		}
		e.Status = history.Status(st)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ingest events: %w", err)
	}
	return events, nil
}

// Count returns the number of stored events.
func (r *SQLiteRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM ingest_events`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count ingest events: %w", err)
	}
	return n, nil
}

// Ping checks the database connection.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
