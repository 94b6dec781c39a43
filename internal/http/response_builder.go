package http

import (
	"encoding/json"
	"html/template"
	"net/http"
)

// Client-side events. The templates refresh on the transaction and couple
// events; app.js handles the rest.
const (
	EventTransactionCreated = "transaction:created"
	EventTransactionDeleted = "transaction:deleted"
	EventCoupleUpdated      = "couple:updated"
	EventFormReset          = "form:reset"
	EventNotification       = "show-notification"
)

// notification is the payload app.js turns into a toast.
type notification struct {
	Type     string `json:"type"`
	Message  string `json:"message"`
	Duration int    `json:"duration"`
}

// HTMXResponseBuilder collects the status, headers and HX-Trigger events of
// one fragment response.
type HTMXResponseBuilder struct {
	status int
	header http.Header
	events map[string]any
	body   []byte
}

func NewHTMXResponse() *HTMXResponseBuilder {
	return &HTMXResponseBuilder{
		status: http.StatusOK,
		header: make(http.Header),
		events: make(map[string]any),
	}
}

func (b *HTMXResponseBuilder) Status(code int) *HTMXResponseBuilder {
	b.status = code
	return b
}

func (b *HTMXResponseBuilder) Header(name, value string) *HTMXResponseBuilder {
	b.header.Set(name, value)
	return b
}

// Redirect makes htmx leave the page instead of swapping.
func (b *HTMXResponseBuilder) Redirect(url string) *HTMXResponseBuilder {
	return b.Header("HX-Redirect", url)
}

func (b *HTMXResponseBuilder) BodyHTML(html []byte) *HTMXResponseBuilder {
	b.body = html
	return b.Header("Content-Type", "text/html; charset=utf-8")
}

// event registers name in HX-Trigger. A nil payload is sent as {} so
// listeners can always read event.detail.
func (b *HTMXResponseBuilder) event(name string, payload any) *HTMXResponseBuilder {
	if payload == nil {
		payload = struct{}{}
	}
	b.events[name] = payload
	return b
}

func (b *HTMXResponseBuilder) TriggerTransactionCreated(id, scope string) *HTMXResponseBuilder {
	return b.event(EventTransactionCreated, map[string]string{"id": id, "scope": scope})
}

func (b *HTMXResponseBuilder) TriggerTransactionDeleted(id string) *HTMXResponseBuilder {
	return b.event(EventTransactionDeleted, map[string]string{"id": id})
}

func (b *HTMXResponseBuilder) TriggerCoupleUpdated() *HTMXResponseBuilder {
	return b.event(EventCoupleUpdated, nil)
}

func (b *HTMXResponseBuilder) TriggerFormReset() *HTMXResponseBuilder {
	return b.event(EventFormReset, nil)
}

func (b *HTMXResponseBuilder) TriggerSuccessNotification(message string) *HTMXResponseBuilder {
	return b.event(EventNotification, notification{Type: "success", Message: message, Duration: 3000})
}

// TriggerErrorNotification stays on screen longer than a success toast.
func (b *HTMXResponseBuilder) TriggerErrorNotification(message string) *HTMXResponseBuilder {
	return b.event(EventNotification, notification{Type: "error", Message: message, Duration: 5000})
}

func (b *HTMXResponseBuilder) Write(w http.ResponseWriter) {
	h := w.Header()
	for name, values := range b.header {
		h[name] = values
	}
	if len(b.events) > 0 {
		if raw, err := json.Marshal(b.events); err == nil {
			h.Set("HX-Trigger", string(raw))
		}
	}
	w.WriteHeader(b.status)
	if len(b.body) > 0 {
		_, _ = w.Write(b.body)
	}
}

// ErrorResponse renders message, escaped, as an alert fragment.
func ErrorResponse(status int, message string) *HTMXResponseBuilder {
	html := `<div class="error" role="alert">` + template.HTMLEscapeString(message) + `</div>`
	return NewHTMXResponse().Status(status).BodyHTML([]byte(html))
}

func BadRequestError(message string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

func InternalServerError(message string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, message)
}
