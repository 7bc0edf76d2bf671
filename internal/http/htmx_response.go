package http

import (
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"strings"
	"unicode/utf16"
)

// Client-side events raised through HX-Trigger. app.js and the templates
// listen for these names.
const (
	eventCollectionSaved = "collection:saved"
	eventSadaqatChanged  = "sadaqat:changed"
	eventRegistryChanged = "registry:changed"
	eventFormReset       = "form:reset"
	eventNotification    = "show-notification"
)

// HTMXResponse is a fluent reply to an HTMX request: status, headers,
// an HTML fragment and the events to raise in the browser.
type HTMXResponse struct {
	status int
	header http.Header
	events map[string]any
	body   string
}

func NewHTMXResponse() *HTMXResponse {
	return &HTMXResponse{
		status: http.StatusOK,
		header: make(http.Header),
		events: make(map[string]any),
	}
}

func (b *HTMXResponse) Status(code int) *HTMXResponse {
	b.status = code
	return b
}

func (b *HTMXResponse) Header(name, value string) *HTMXResponse {
	b.header.Set(name, value)
	return b
}

// Event raises name in the browser with data as the event detail.
func (b *HTMXResponse) Event(name string, data any) *HTMXResponse {
	if data == nil {
		data = struct{}{}
	}
	b.events[name] = data
	return b
}

func (b *HTMXResponse) CollectionSaved(month string) *HTMXResponse {
	return b.Event(eventCollectionSaved, map[string]string{"month": month})
}

func (b *HTMXResponse) SadaqatChanged(month string) *HTMXResponse {
	return b.Event(eventSadaqatChanged, map[string]string{"month": month})
}

func (b *HTMXResponse) RegistryChanged() *HTMXResponse {
	return b.Event(eventRegistryChanged, nil)
}

func (b *HTMXResponse) ResetForm() *HTMXResponse {
	return b.Event(eventFormReset, nil)
}

// Notify shows a success toast for three seconds.
func (b *HTMXResponse) Notify(message string) *HTMXResponse {
	return b.toast("success", message, 3000)
}

// NotifyError shows an error toast for five seconds.
func (b *HTMXResponse) NotifyError(message string) *HTMXResponse {
	return b.toast("error", message, 5000)
}

func (b *HTMXResponse) toast(kind, message string, ms int) *HTMXResponse {
	return b.Event(eventNotification, map[string]any{"type": kind, "message": message, "duration": ms})
}

// Redirect makes HTMX load url as a full page.
func (b *HTMXResponse) Redirect(url string) *HTMXResponse {
	return b.Header("HX-Redirect", url)
}

func (b *HTMXResponse) HTML(fragment string) *HTMXResponse {
	b.header.Set("Content-Type", "text/html; charset=utf-8")
	b.body = fragment
	return b
}

func (b *HTMXResponse) Write(w http.ResponseWriter) {
	h := w.Header()
	for name, values := range b.header {
		h[name] = values
	}
	if len(b.events) > 0 {
		if raw, err := json.Marshal(b.events); err == nil {
			h.Set("HX-Trigger", asciiJSON(raw))
		}
	}
	w.WriteHeader(b.status)
	if b.body != "" {
		_, _ = io.WriteString(w, b.body)
	}
}

// ErrorResponse renders message, escaped, as an error alert.
func ErrorResponse(status int, message string) *HTMXResponse {
	return NewHTMXResponse().
		Status(status).
		HTML(`<div class="alert error">` + template.HTMLEscapeString(message) + `</div>`)
}

func BadRequestError(message string) *HTMXResponse {
	return ErrorResponse(http.StatusBadRequest, message)
}

func NotFoundError(message string) *HTMXResponse {
	return ErrorResponse(http.StatusNotFound, message)
}

func UnprocessableEntityError(message string) *HTMXResponse {
	return ErrorResponse(http.StatusUnprocessableEntity, message)
}

func InternalServerError(message string) *HTMXResponse {
	return ErrorResponse(http.StatusInternalServerError, message)
}

// asciiJSON rewrites non-ASCII runes as \uXXXX escapes. Browsers read
// header values as Latin-1, which would garble Arabic toasts.
func asciiJSON(b []byte) string {
	var sb strings.Builder
	sb.Grow(len(b))
	for _, r := range string(b) {
		switch {
		case r < 0x80:
			sb.WriteRune(r)
		case r > 0xFFFF:
			hi, lo := utf16.EncodeRune(r)
			fmt.Fprintf(&sb, `\u%04x\u%04x`, hi, lo)
		default:
			fmt.Fprintf(&sb, `\u%04x`, r)
		}
	}
	return sb.String()
}
