package http

import (
	"html/template"
	"time"

	"github.com/dustin/go-humanize"

	"salesdash/internal/dashboard"
	"salesdash/internal/history"
	"salesdash/internal/ingest"
	"salesdash/internal/session"
	appweb "salesdash/web"
)

var templateFuncs = template.FuncMap{
	"bytes": func(n int) string { return humanize.Bytes(uint64(max(n, 0))) },
	"ago":   func(t time.Time) string { return humanize.Time(t) },
	"count": dashboard.FormatCount,
	"noticeClass": func(level string) string {
		return "notice notice-" + level
	},
}

func parseTemplates() (*template.Template, error) {
	return template.New("salesdash").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
}

type indexData struct {
	Files   filesData
	Title   string
	History historyData
}

type filesData struct {
	Files    []session.FileInfo
	Required int
	State    string
	Error    string
}

type dashboardData struct {
	Notice *dashboard.Notice
	Header dashboard.Header
	Parts  []ingest.PartInfo
	Rows   string
}

type historyData struct {
	Events []history.Event
	Error  string
}

func newFilesData(sess *session.Session) filesData {
	files := sess.Files()
	return filesData{
		Files:    files,
		Required: ingest.RequiredParts,
		State:    ingest.StateFor(len(files)).String(),
	}
}
