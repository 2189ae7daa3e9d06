package backend

import (
	"context"
	"slices"

	"salesdash/internal/amqp"
	"salesdash/internal/history"
)

// Publisher announces merged datasets.
type Publisher interface {
	PublishDatasetMerged(ctx context.Context, msg *amqp.DatasetMerged) error
}

// Factory builds the stores behind one server process.
type Factory interface {
	Create(ctx context.Context, config Config) (*Result, error)
}

// Result holds what the server needs from its backends. Publisher is nil
// when dataset events are disabled. Cleanup releases everything Create opened.
type Result struct {
	History   history.Recorder
	Publisher Publisher
	Cleanup   func() error
}

// Config selects the history store and the optional event broker.
type Config struct {
	HistoryType  HistoryType
	HistorySize  int
	SQLiteDBPath string

	// Dataset events, disabled when AMQPURL is empty.
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// EventsEnabled reports whether a broker is configured.
func (c Config) EventsEnabled() bool { return c.AMQPURL != "" }

// HistoryType names an ingest history store.
type HistoryType string

const (
	MemoryBackend HistoryType = "memory"
	SQLiteBackend HistoryType = "sqlite"
)

var historyTypes = []HistoryType{MemoryBackend, SQLiteBackend}

func (t HistoryType) String() string { return string(t) }

// IsValid reports whether t names a known store.
func (t HistoryType) IsValid() bool { return slices.Contains(historyTypes, t) }
