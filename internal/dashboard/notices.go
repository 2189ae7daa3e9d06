package dashboard

import (
	"errors"
	"fmt"

	"salesdash/internal/dataset"
	"salesdash/internal/ingest"
	"salesdash/internal/metrics"
)

// Notice levels map to panel styles.
const (
	LevelInfo    = "info"
	LevelSuccess = "success"
	LevelWarning = "warning"
	LevelError   = "error"
)

// Notice is a message panel shown instead of, or above, dashboard content.
type Notice struct {
	Level   string
	Title   string
	Message string
}

// GateNotice returns the panel for a gate state that halts the dashboard.
func GateNotice(state ingest.State, count int) Notice {
	switch state {
	case ingest.NoFile:
		return Notice{
			Level:   LevelInfo,
			Title:   "Welcome",
			Message: "Upload both parts of the dataset in the sidebar to start the analysis.",
		}
	case ingest.OneFile:
		return Notice{
			Level:   LevelWarning,
			Title:   "Only one file detected",
			Message: "Upload both parts to complete the dataset.",
		}
	case ingest.TooManyFiles:
		return Notice{
			Level:   LevelWarning,
			Title:   "Too many files",
			Message: fmt.Sprintf("%d files uploaded. Keep exactly %d parts of the dataset to start the analysis.", count, ingest.RequiredParts),
		}
	default:
		return Notice{Level: LevelSuccess, Title: "Data merged", Message: "Both parts were combined successfully."}
	}
}

// ErrorNotice turns a build failure into a panel. The message is rendered escaped.
func ErrorNotice(err error) Notice {
	var (
		pe *dataset.ParseError
		mc *dataset.MissingColumnError
	)
	switch {
	case errors.As(err, &pe):
		return Notice{Level: LevelError, Title: "The uploaded files could not be read", Message: pe.Error()}
	case errors.As(err, &mc):
		return Notice{Level: LevelError, Title: "The dataset is missing a required column", Message: fmt.Sprintf("Column %q is required by this view.", mc.Column)}
	case errors.Is(err, metrics.ErrEmptyGroup):
		return Notice{Level: LevelError, Title: "Nothing to aggregate", Message: err.Error()}
	default:
		return Notice{Level: LevelError, Title: "The dashboard could not be rendered", Message: err.Error()}
	}
}

// IsInputError reports whether err comes from the uploaded data rather than the server.
func IsInputError(err error) bool {
	return errors.Is(err, dataset.ErrParse) ||
		errors.Is(err, dataset.ErrMissingColumn) ||
		errors.Is(err, metrics.ErrEmptyGroup)
}

// Header is the welcome block shown above the tabs once the dataset is ready.
type Header struct {
	Title    string
	Subtitle string
	Audience string
	Summary  string
	Hint     string
}

// WelcomeHeader returns the fixed dashboard header.
func WelcomeHeader() Header {
	return Header{
		Title:    "Corporate Performance Dashboard: Year-End Review",
		Subtitle: "Strategic Report for Senior Management",
		Audience: "Attention: CEO and Sales Leadership.",
		Summary:  "This dashboard consolidates the key performance indicators of the food retail area to evaluate yearly performance and support critical decisions.",
		Hint:     "Use the tabs to explore the global, regional and business unit levels of analysis.",
	}
}
