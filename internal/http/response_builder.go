// Package http serves the sales dashboard: uploads, the ingestion gate, tab
// partials, the workbook export and operational probes.
//
// This file holds the builder used for every HTMX response. It collects
// HX-* headers and triggers and writes them in one place.
package http

import (
	"encoding/json"
	"html/template"
	"net/http"
)

// EventDatasetChanged tells the page that the upload set changed.
const EventDatasetChanged = "dataset:changed"

// alertsTarget is the page region that receives out-of-band error panels.
const alertsTarget = "#alerts"

// HTMXResponseBuilder provides a fluent API for building HTMX responses.
type HTMXResponseBuilder struct {
	status   int
	header   http.Header
	triggers map[string]any
	body     []byte
}

// NewHTMXResponse creates a new response builder with default 200 status.
func NewHTMXResponse() *HTMXResponseBuilder {
	return &HTMXResponseBuilder{
		status:   http.StatusOK,
		header:   make(http.Header),
		triggers: make(map[string]any),
	}
}

func (b *HTMXResponseBuilder) Status(code int) *HTMXResponseBuilder {
	b.status = code
	return b
}

// Trigger adds a client event to HX-Trigger. data is sent as the event detail.
func (b *HTMXResponseBuilder) Trigger(name string, data any) *HTMXResponseBuilder {
	b.triggers[name] = data
	return b
}

// TriggerDatasetChanged announces a new upload revision.
func (b *HTMXResponseBuilder) TriggerDatasetChanged(revision uint64, files int) *HTMXResponseBuilder {
	return b.Trigger(EventDatasetChanged, map[string]any{"revision": revision, "files": files})
}

// Retarget swaps the body into selector instead of the requesting element's target.
func (b *HTMXResponseBuilder) Retarget(selector string) *HTMXResponseBuilder {
	return b.Header("HX-Retarget", selector)
}

// Reswap overrides the hx-swap mode of the request.
func (b *HTMXResponseBuilder) Reswap(mode string) *HTMXResponseBuilder {
	return b.Header("HX-Reswap", mode)
}

func (b *HTMXResponseBuilder) Header(name, value string) *HTMXResponseBuilder {
	b.header.Set(name, value)
	return b
}

// BodyHTML sets an HTML fragment as the body.
func (b *HTMXResponseBuilder) BodyHTML(html []byte) *HTMXResponseBuilder {
	b.header.Set("Content-Type", "text/html; charset=utf-8")
	b.body = html
	return b
}

// Write sends headers, status and body. Triggers that fail to encode are dropped.
func (b *HTMXResponseBuilder) Write(w http.ResponseWriter) {
	dst := w.Header()
	for name, values := range b.header {
		dst[name] = values
	}
	if len(b.triggers) > 0 {
		if encoded, err := json.Marshal(b.triggers); err == nil {
			dst.Set("HX-Trigger", string(encoded))
		}
	}
	w.WriteHeader(b.status)
	if len(b.body) > 0 {
		_, _ = w.Write(b.body)
	}
}

// ErrorResponse renders message as an escaped error panel in the alerts region,
// leaving the element that issued the request untouched.
func ErrorResponse(status int, message string) *HTMXResponseBuilder {
	panel := `<div class="notice notice-error" role="alert">` + template.HTMLEscapeString(message) + `</div>`
	return NewHTMXResponse().
		Status(status).
		Retarget(alertsTarget).
		Reswap("innerHTML").
		BodyHTML([]byte(panel))
}

func InternalServerError(message string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, message)
}

func ConflictError(message string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusConflict, message)
}

func TooManyRequestsError(message string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusTooManyRequests, message)
}
