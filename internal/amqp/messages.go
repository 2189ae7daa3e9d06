package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DatasetMergedType is the AMQP message type of DatasetMerged.
const DatasetMergedType = "dataset.merged"

// DatasetMerged announces a successful two-part merge.
type DatasetMerged struct {
	EventID     string    `json:"event_id"`
	SessionID   string    `json:"session_id"`
	Files       []string  `json:"files"`
	Rows        int       `json:"rows"`
	Columns     int       `json:"columns"`
	TopCategory string    `json:"top_category,omitempty"`
	TotalSales  float64   `json:"total_sales"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewDatasetMerged creates a message with a fresh event id.
func NewDatasetMerged(sessionID string, files []string, rows, columns int, topCategory string, totalSales float64) *DatasetMerged {
	return &DatasetMerged{
		EventID:     uuid.NewString(),
		SessionID:   sessionID,
		Files:       append([]string(nil), files...),
		Rows:        rows,
		Columns:     columns,
		TopCategory: topCategory,
		TotalSales:  totalSales,
		Timestamp:   time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *DatasetMerged) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// DatasetMergedFromJSON decodes a message, rejecting ones without session or event id.
func DatasetMergedFromJSON(data []byte) (*DatasetMerged, error) {
	var msg DatasetMerged
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.EventID == "" || msg.SessionID == "" {
		return nil, fmt.Errorf("dataset event missing event_id or session_id")
	}
	return &msg, nil
}
