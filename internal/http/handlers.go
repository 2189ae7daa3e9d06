package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"

	"salesdash/internal/amqp"
	"salesdash/internal/dashboard"
	"salesdash/internal/dataset"
	"salesdash/internal/export"
	"salesdash/internal/history"
	"salesdash/internal/ingest"
	"salesdash/internal/log"
	"salesdash/internal/metrics"
	"salesdash/internal/session"
)

const uploadField = "files"

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.Resolve(w, r)
	data := indexData{
		Files:   newFilesData(sess),
		Title:   dashboard.WelcomeHeader().Title,
		History: s.recentHistory(r.Context()),
	}
	s.render(w, r, NewHTMXResponse(), "index.html", data)
}

func (s *Server) handleFiles(w http.ResponseWriter, r *http.Request) {
	s.renderFiles(w, r, s.sessions.Resolve(w, r), http.StatusOK, "")
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.FromContext(ctx)
	sess := s.sessions.Resolve(w, r)

	// the body holds several parts, each bounded by maxUpload
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload*ingest.RequiredParts+multipartMemory)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.rejectTooLarge(w, r, sess)
			return
		}
		s.metrics.ObserveUpload(UploadRejected)
		logger.WarnContext(ctx, "Upload form parse error", log.FieldError, err)
		s.renderFiles(w, r, sess, http.StatusBadRequest, "Invalid upload request.")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	for _, fh := range r.MultipartForm.File[uploadField] {
		if fh.Size > s.maxUpload {
			s.rejectTooLarge(w, r, sess)
			return
		}
	}

	parts, err := s.parser.ReadUploads(r.MultipartForm, uploadField)
	if err != nil {
		s.metrics.ObserveUpload(UploadRejected)
		logger.WarnContext(ctx, "Upload rejected", log.FieldError, err, log.FieldSession, sess.ID)
		s.renderFiles(w, r, sess, http.StatusUnprocessableEntity, uploadMessage(err))
		return
	}

	revision := sess.Add(parts...)
	names := make([]string, len(parts))
	for i, p := range parts {
		names[i] = p.Name
		s.metrics.ObserveUpload(UploadAccepted)
	}
	logger.InfoContext(ctx, "Files uploaded",
		log.NewFields().
			WithSession(sess.ID).
			With(log.FieldFiles, names).
			With(log.FieldRevision, revision).
			ToSlice()...)
	s.renderFilesChanged(w, r, sess, revision)
}

func (s *Server) rejectTooLarge(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	s.metrics.ObserveUpload(UploadTooLarge)
	limit := humanize.Bytes(uint64(s.maxUpload))
	log.FromContext(r.Context()).WarnContext(r.Context(), "Upload too large", "limit", limit, log.FieldSession, sess.ID)
	s.renderFiles(w, r, sess, http.StatusRequestEntityTooLarge, fmt.Sprintf("Each file must be at most %s.", limit))
}

func uploadMessage(err error) string {
	switch {
	case errors.Is(err, ErrNotCSV):
		return "Only .csv files are accepted."
	case errors.Is(err, ErrNoFiles):
		return "Choose at least one .csv file."
	default:
		return "The upload could not be read."
	}
}

func (s *Server) handleRemove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := s.sessions.Resolve(w, r)
	if err := r.ParseForm(); err != nil {
		s.renderFiles(w, r, sess, http.StatusBadRequest, "Invalid request.")
		return
	}
	params, err := s.parser.ParseRemove(r.PostForm)
	if err != nil {
		s.renderFiles(w, r, sess, http.StatusUnprocessableEntity, err.Error())
		return
	}
	revision, err := sess.Remove(params.Index)
	if errors.Is(err, session.ErrNoSuchPart) {
		log.FromContext(ctx).WarnContext(ctx, "Remove of unknown part", log.FieldError, err, log.FieldSession, sess.ID)
		s.renderFiles(w, r, sess, http.StatusUnprocessableEntity, "That file is no longer in the list.")
		return
	}
	log.FromContext(ctx).InfoContext(ctx, "File removed", log.FieldSession, sess.ID, "index", params.Index, log.FieldRevision, revision)
	s.renderFilesChanged(w, r, sess, revision)
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := s.sessions.Resolve(w, r)
	revision := sess.Clear()
	log.FromContext(ctx).InfoContext(ctx, "Files cleared", log.FieldSession, sess.ID, log.FieldRevision, revision)
	s.renderFilesChanged(w, r, sess, revision)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.Resolve(w, r)
	res, ok := s.gate(w, r, sess)
	if !ok {
		return
	}
	notice := dashboard.GateNotice(res.State, len(res.Parts))
	s.render(w, r, NewHTMXResponse(), "dashboard.html", dashboardData{
		Notice: &notice,
		Header: dashboard.WelcomeHeader(),
		Parts:  res.Parts,
		Rows:   dashboard.FormatCount(res.Table.NumRows()),
	})
}

func (s *Server) handleGlobal(w http.ResponseWriter, r *http.Request) {
	t, sel, ok := s.readyTable(w, r)
	if !ok {
		return
	}
	view, err := dashboard.BuildGlobal(t, sel.View)
	if err == nil && view.Seasonality.FellBack {
		s.warnFallback(r, "global", sel.View, view.Seasonality.View)
	}
	s.renderTab(w, r, "tab_global.html", view, err)
}

func (s *Server) handleSeasonality(w http.ResponseWriter, r *http.Request) {
	t, sel, ok := s.readyTable(w, r)
	if !ok {
		return
	}
	view, err := dashboard.BuildSeasonality(t, sel.View)
	if err == nil && view.FellBack {
		s.warnFallback(r, "seasonality", sel.View, view.View)
	}
	s.renderTab(w, r, "seasonality.html", view, err)
}

func (s *Server) handleStore(w http.ResponseWriter, r *http.Request) {
	t, sel, ok := s.readyTable(w, r)
	if !ok {
		return
	}
	view, err := dashboard.BuildStore(t, sel.Store)
	if err == nil && view.FellBack {
		s.warnFallback(r, "store", sel.Store, fmt.Sprint(view.Selected))
	}
	s.renderTab(w, r, "tab_store.html", view, err)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	t, sel, ok := s.readyTable(w, r)
	if !ok {
		return
	}
	view, err := dashboard.BuildState(t, sel.State)
	if err == nil && view.FellBack {
		s.warnFallback(r, "state", sel.State, view.Selected)
	}
	s.renderTab(w, r, "tab_state.html", view, err)
}

func (s *Server) handleAdvanced(w http.ResponseWriter, r *http.Request) {
	t, _, ok := s.readyTable(w, r)
	if !ok {
		return
	}
	view, err := dashboard.BuildAdvanced(t)
	s.renderTab(w, r, "tab_advanced.html", view, err)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := s.sessions.Resolve(w, r)
	res, err := s.mergeSession(ctx, sess)
	if err != nil || res.State != ingest.Ready {
		ConflictError("Upload both parts of the dataset before exporting.").Write(w)
		return
	}

	var buf bytes.Buffer
	if err := export.Write(&buf, res.Table); err != nil {
		s.renderBuildError(w, r, err)
		return
	}
	log.FromContext(ctx).InfoContext(ctx, "Workbook exported", log.FieldSession, sess.ID, "bytes", buf.Len())
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="salesdash.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, NewHTMXResponse(), "history.html", s.recentHistory(r.Context()))
}

func (s *Server) recentHistory(ctx context.Context) historyData {
	events, err := s.history.Recent(ctx, history.DefaultLimit)
	if err != nil {
		log.FromContext(ctx).ErrorContext(ctx, "History read failed", log.FieldError, err)
		return historyData{Error: "History is unavailable."}
	}
	return historyData{Events: events}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	n, err := s.history.Count(ctx)
	if err != nil {
		log.FromContext(ctx).ErrorContext(ctx, "Readiness check failed", log.FieldError, err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "unavailable", "error": "history store"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ready",
		"history_events": n,
		"sessions":       s.sessions.Len(),
		"events_enabled": s.publisher != nil,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// gate merges the session's upload set. It renders the gate notice or the
// error panel and returns false unless the dataset is Ready.
func (s *Server) gate(w http.ResponseWriter, r *http.Request, sess *session.Session) (ingest.Result, bool) {
	res, err := s.mergeSession(r.Context(), sess)
	var countErr *ingest.InputCountError
	switch {
	case errors.As(err, &countErr):
		notice := dashboard.GateNotice(countErr.State(), countErr.Count)
		s.render(w, r, NewHTMXResponse(), "notice.html", notice)
		return res, false
	case err != nil:
		s.renderBuildError(w, r, err)
		return res, false
	}
	return res, true
}

// readyTable resolves the session's merged table and the tab selection.
func (s *Server) readyTable(w http.ResponseWriter, r *http.Request) (*dataset.Table, SelectionParams, bool) {
	sess := s.sessions.Resolve(w, r)
	res, ok := s.gate(w, r, sess)
	if !ok {
		return nil, SelectionParams{}, false
	}
	sel, rejected := s.parser.ParseSelection(r.URL.Query())
	for _, msg := range rejected {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Invalid selection ignored", log.FieldError, msg, log.FieldSession, sess.ID)
	}
	return res.Table, sel, true
}

// mergeSession runs the gate once per upload revision and records the outcome
// of the run that did the work.
func (s *Server) mergeSession(ctx context.Context, sess *session.Session) (ingest.Result, error) {
	res, fresh, err := sess.Merge(ctx, s.merge)
	if fresh {
		s.afterMerge(ctx, sess, res, err)
	}
	return res, err
}

func (s *Server) afterMerge(ctx context.Context, sess *session.Session, res ingest.Result, err error) {
	logger := log.FromContext(ctx)

	var countErr *ingest.InputCountError
	if errors.As(err, &countErr) {
		s.metrics.ObserveMerge(res.State, false, 0)
		logger.DebugContext(ctx, "Gate halted", log.FieldSession, sess.ID, log.FieldGateState, res.State.String())
		return
	}

	files := make([]string, 0, len(res.Parts))
	for _, f := range sess.Files() {
		files = append(files, f.Name)
	}
	event := history.Event{
		SessionID: sess.ID,
		Files:     files,
		Status:    history.StatusReady,
		At:        time.Now().UTC(),
	}
	if err != nil {
		event.Status = history.StatusParseError
		event.Error = err.Error()
		s.metrics.ObserveMerge(res.State, true, 0)
		logger.WarnContext(ctx, "Merge failed",
			log.NewFields().WithSession(sess.ID).With(log.FieldFiles, files).WithError(err).ToSlice()...)
	} else {
		event.Rows = res.Table.NumRows()
		event.Columns = len(res.Table.Columns())
		s.metrics.ObserveMerge(res.State, false, event.Rows)
		logger.InfoContext(ctx, "Dataset merged",
			log.NewFields().WithSession(sess.ID).WithDataset(files, event.Rows, event.Columns).ToSlice()...)
	}

	if _, recErr := s.history.Record(ctx, event); recErr != nil {
		logger.ErrorContext(ctx, "History record failed", log.FieldError, recErr)
	}
	if err == nil && s.publisher != nil {
		s.publishMerged(ctx, sess.ID, files, res.Table)
	}
}

func (s *Server) publishMerged(ctx context.Context, sessionID string, files []string, t *dataset.Table) {
	logger := log.FromContext(ctx)

	var topCategory string
	if top, err := metrics.TopCategories(t, 1); err == nil && len(top) > 0 {
		topCategory = top[0].Key
	}
	total, _ := metrics.TotalSales(t)

	msg := amqp.NewDatasetMerged(sessionID, files, t.NumRows(), len(t.Columns()), topCategory, total)
	// the event outlives a client that disconnects mid-request
	if err := s.publisher.PublishDatasetMerged(context.WithoutCancel(ctx), msg); err != nil {
		logger.WarnContext(ctx, "Dataset event not published", log.FieldError, err, log.FieldEventID, msg.EventID)
		return
	}
	logger.DebugContext(ctx, "Dataset event published", log.FieldEventID, msg.EventID)
}

func (s *Server) warnFallback(r *http.Request, tab, requested, chosen string) {
	log.FromContext(r.Context()).WarnContext(r.Context(), "Unknown selection, using first option",
		log.FieldTab, tab, log.FieldSelection, requested, "fallback", chosen)
}

func (s *Server) renderTab(w http.ResponseWriter, r *http.Request, name string, view any, err error) {
	if err != nil {
		s.renderBuildError(w, r, err)
		return
	}
	s.render(w, r, NewHTMXResponse(), name, view)
}

// renderBuildError answers 422 for problems in the uploaded data and 500 otherwise.
func (s *Server) renderBuildError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	if dashboard.IsInputError(err) {
		status = http.StatusUnprocessableEntity
		log.FromContext(r.Context()).WarnContext(r.Context(), "Dataset rejected", log.FieldError, err)
	} else {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Dashboard build failed", log.FieldError, err)
	}
	s.render(w, r, NewHTMXResponse().Status(status), "notice.html", dashboard.ErrorNotice(err))
}

func (s *Server) renderFiles(w http.ResponseWriter, r *http.Request, sess *session.Session, status int, message string) {
	data := newFilesData(sess)
	data.Error = message
	s.render(w, r, NewHTMXResponse().Status(status), "files.html", data)
}

func (s *Server) renderFilesChanged(w http.ResponseWriter, r *http.Request, sess *session.Session, revision uint64) {
	data := newFilesData(sess)
	s.render(w, r, NewHTMXResponse().TriggerDatasetChanged(revision, len(data.Files)), "files.html", data)
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, b *HTMXResponseBuilder, name string, data any) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Template execution failed",
			log.FieldError, err, "template", name)
		InternalServerError("The page could not be rendered.").Write(w)
		return
	}
	b.BodyHTML(buf.Bytes()).Write(w)
}
