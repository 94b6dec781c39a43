// Package http serves the gastos web shell.
//
// This file implements utilities for parsing request data into the drafts
// the view controllers consume.

package http

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"gastos/internal/core"
	"gastos/internal/view"
)

// maxBodyBytes bounds every form and JSON body the shell accepts.
const maxBodyBytes = 64 << 10

// RequestBodyParser handles form-encoded bodies, as htmx sends them, and
// JSON bodies from scripted clients.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]any
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser reads the body once, bounded by maxBodyBytes.
func NewRequestBodyParser(w http.ResponseWriter, r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}
	p.body, p.err = io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	if len(p.body) == 0 {
		p.formData = url.Values{}
		return nil
	}

	if strings.HasPrefix(p.contentType, "application/json") || p.body[0] == '{' {
		p.jsonData = make(map[string]any)
		if err := json.Unmarshal(p.body, &p.jsonData); err != nil {
			p.err = err
			return err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(string(p.body))
	return p.err
}

// Get returns a sanitized value from the parsed data.
func (p *RequestBodyParser) Get(key string) string {
	return sanitizeInput(p.Raw(key))
}

// Raw returns a value untouched, for secrets that must not be trimmed.
func (p *RequestBodyParser) Raw(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return stringValue(val)
		}
		return ""
	}
	if p.formData != nil {
		return p.formData.Get(key)
	}
	return ""
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// sanitizeInput strips control characters and surrounding whitespace.
func sanitizeInput(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s))
}

func parseTransactionDraft(p *RequestBodyParser) view.TransactionDraft {
	return view.TransactionDraft{
		Amount:      p.Get("amount"),
		Type:        p.Get("type"),
		Scope:       p.Get("scope"),
		CategoryID:  p.Get("category_id"),
		Description: p.Get("description"),
		Date:        p.Get("date"),
	}
}

func parseRegistrationDraft(p *RequestBodyParser) view.RegistrationDraft {
	return view.RegistrationDraft{
		FullName: p.Get("full_name"),
		Email:    p.Get("email"),
		Password: p.Raw("password"),
	}
}

// parseScopeFilter reads ?scope=, falling back to all.
func parseScopeFilter(query url.Values) core.ScopeFilter {
	return core.ParseScopeFilter(query.Get("scope"))
}

// confirmed reports an explicit yes on a confirmation form.
func confirmed(p *RequestBodyParser) bool {
	switch strings.ToLower(p.Get("confirm")) {
	case "yes", "true", "1", "si", "sí":
		return true
	}
	return false
}

// isHTMX reports a request issued by htmx rather than a full navigation.
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}
