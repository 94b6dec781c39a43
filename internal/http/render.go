package http

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"gastos/internal/core"
	"gastos/internal/log"
)

// Templates shared by every page. Each page file defines "content" and any
// fragments htmx swaps in.
var (
	baseTemplates = []string{"templates/layout.html", "templates/partials.html"}
	pageTemplates = []string{
		"login",
		"register",
		"dashboard",
		"transactions",
		"transaction_new",
		"transaction_delete",
		"couple",
	}
)

// pageData is the root every template renders from.
type pageData struct {
	Title  string
	Active string
	User   *core.User
	Flash  string
	Error  string
	Field  string
	View   any
}

func (d pageData) withError(err error) pageData {
	d.Error = userMessage(err)
	d.Field = errorField(err)
	return d
}

var monthNames = [...]string{
	"enero", "febrero", "marzo", "abril", "mayo", "junio",
	"julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre",
}

var hexColor = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

var templateFuncs = template.FuncMap{
	"money":       func(m core.Money) string { return m.Format() },
	"scopeBadge":  core.ScopeBadge,
	"typeBadge":   core.TypeBadge,
	"filterLabel": core.FilterLabel,
	"filters": func() []core.ScopeFilter {
		return []core.ScopeFilter{core.FilterAll, core.FilterIndividual, core.FilterCouple}
	},
	"pct": func(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) },
	"day": func(tx core.Transaction) string {
		d, ok := tx.Day()
		if !ok {
			return tx.Date
		}
		return fmt.Sprintf("%d de %s", d.Day(), monthNames[d.Month()-1])
	},
	// tint renders a category color at low opacity for icon backgrounds.
	"tint": func(color string) template.CSS {
		if !hexColor.MatchString(color) {
			color = "#cbd5e1"
		}
		return template.CSS("background-color: " + color + "20; color: " + color)
	},
	"errText": userMessage,
	"since": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format("15:04")
	},
}

func parseTemplates(fsys fs.FS) (map[string]*template.Template, error) {
	base, err := template.New("base").Funcs(templateFuncs).ParseFS(fsys, baseTemplates...)
	if err != nil {
		return nil, fmt.Errorf("parse base templates: %w", err)
	}
	pages := make(map[string]*template.Template, len(pageTemplates))
	for _, name := range pageTemplates {
		t, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("clone base for %s: %w", name, err)
		}
		if _, err := t.ParseFS(fsys, "templates/"+name+".html"); err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		pages[name] = t
	}
	return pages, nil
}

// execute renders one named template of page into memory so a failure
// never leaves a half-written response.
func (s *Server) execute(page, name string, data pageData) ([]byte, error) {
	t, ok := s.pages[page]
	if !ok {
		return nil, fmt.Errorf("template %q not loaded", page)
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// renderPage writes a full page through the layout.
func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, page string, status int, data pageData) {
	body, err := s.execute(page, "layout", data)
	if err != nil {
		s.templateFailed(w, r, page, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// renderFragment writes one fragment through b, carrying b's status and
// triggers.
func (s *Server) renderFragment(w http.ResponseWriter, r *http.Request, page, name string, data pageData, b *HTMXResponseBuilder) {
	body, err := s.execute(page, name, data)
	if err != nil {
		s.templateFailed(w, r, page, err)
		return
	}
	b.BodyHTML(body).Write(w)
}

func (s *Server) templateFailed(w http.ResponseWriter, r *http.Request, page string, err error) {
	log.FromContext(r.Context()).ErrorContext(r.Context(), "Template render failed",
		log.NewFields().
			WithComponent(log.ComponentTemplate).
			WithOperation(log.OpRender).
			WithErrorType(log.ErrorTypeInternal).
			WithError(err).
			With("page", page).ToSlice()...)
	InternalServerError(msgUnexpected).Write(w)
}
