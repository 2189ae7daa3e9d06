package google

import (
	"errors"
	"strings"
	"time"

	ports "salesdash/internal/sheets"
)

// Column layout of the load log, A through I.
var loadColumns = []string{
	"Merged At", "Event ID", "Session", "Files", "Rows", "Columns", "Top Category", "Total Sales", "Part Count",
}

const lastColumn = "I"

func headerRow() []any {
	out := make([]any, len(loadColumns))
	for i, c := range loadColumns {
		out[i] = c
	}
	return out
}

func rowValues(r ports.LoadRow) []any {
	return []any{
		r.MergedAt.UTC().Format(time.DateTime),
		r.EventID,
		r.SessionID,
		strings.Join(r.Files, ", "),
		r.Rows,
		r.Columns,
		r.TopCategory,
		r.TotalSales,
		len(r.Files),
	}
}

func validateRow(r ports.LoadRow) error {
	var problems []string
	if r.EventID == "" {
		problems = append(problems, "event id is required")
	}
	if r.MergedAt.IsZero() {
		problems = append(problems, "merge time is required")
	}
	if r.Rows < 0 || r.Columns < 0 {
		problems = append(problems, "row and column counts must be non-negative")
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

// sheetRange builds an A1 range, quoting names that need it.
func sheetRange(sheet, cells string) string {
	if strings.ContainsAny(sheet, " '!:") {
		sheet = "'" + strings.ReplaceAll(sheet, "'", "''") + "'"
	}
	return sheet + "!" + cells
}
