package http

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"strings"

	"finanze/internal/auth"
	"finanze/internal/core"
	"finanze/internal/log"
)

// layoutFiles are parsed into every page; partial templates live there too.
var layoutFiles = []string{"templates/layout.html", "templates/partials.html"}

// pageData is what every full page template receives.
type pageData struct {
	Title    string
	Active   string
	AppName  string
	Currency string
	Identity *auth.Identity
	Flash    *Flash
	Data     any
}

// templateSet holds one clone of the layout per page plus the bare layout for partials.
type templateSet struct {
	base  *template.Template
	pages map[string]*template.Template
}

func (s *Server) funcs() template.FuncMap {
	return template.FuncMap{
		"money": func(m core.Money) string {
			return s.opts.Currency + " " + m.String()
		},
		"pct": func(p float64) string {
			return fmt.Sprintf("%.1f%%", p)
		},
		"date": func(d core.Date) string {
			return d.String()
		},
		"datetime": func(d interface{ Format(string) string }) string {
			return d.Format("2006-01-02 15:04")
		},
		"kindLabel": func(k core.Kind) string {
			if k == core.KindIncome {
				return "Income"
			}
			return "Expense"
		},
		"add": func(a, b int) int { return a + b },
		"sub": func(a, b int) int { return a - b },
		"title": func(s string) string {
			if s == "" {
				return s
			}
			return strings.ToUpper(s[:1]) + s[1:]
		},
		"ownedBy": func(c core.Category, userID int64) bool {
			return c.OwnedBy(userID)
		},
	}
}

// parseTemplates builds the page set from fsys.
func parseTemplates(fsys fs.FS, funcs template.FuncMap) (*templateSet, error) {
	base, err := template.New("").Funcs(funcs).ParseFS(fsys, layoutFiles...)
	if err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}
	files, err := fs.Glob(fsys, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}

	set := &templateSet{base: base, pages: make(map[string]*template.Template)}
	for _, file := range files {
		if isLayoutFile(file) {
			continue
		}
		page, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("clone layout for %s: %w", file, err)
		}
		if _, err := page.ParseFS(fsys, file); err != nil {
			return nil, fmt.Errorf("parse %s: %w", file, err)
		}
		set.pages[path.Base(file)] = page
	}
	return set, nil
}

func isLayoutFile(file string) bool {
	for _, f := range layoutFiles {
		if f == file {
			return true
		}
	}
	return false
}

// render executes a full page into a buffer and writes it with status.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, page, title, active string, data any) {
	t, ok := s.templates.pages[page]
	if !ok {
		s.templateFailure(w, r, page, fmt.Errorf("unknown page %q", page))
		return
	}
	pd := pageData{
		Title:    title,
		Active:   active,
		AppName:  s.opts.AppName,
		Currency: s.opts.Currency,
		Flash:    s.popFlash(w, r),
		Data:     data,
	}
	if id, ok := identity(r); ok {
		pd.Identity = &id
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", pd); err != nil {
		s.templateFailure(w, r, page, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// renderPartial executes one template defined in the shared partials.
func (s *Server) renderPartial(w http.ResponseWriter, r *http.Request, name string, data any) {
	var buf bytes.Buffer
	if err := s.templates.base.ExecuteTemplate(&buf, name, data); err != nil {
		s.templateFailure(w, r, name, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

func (s *Server) templateFailure(w http.ResponseWriter, r *http.Request, name string, err error) {
	fields := log.NewFields().WithErrorType(log.ErrorTypeInternal)
	fields["template"] = name
	s.events.LogError(r.Context(), "Template execution failed", err, log.ComponentTemplate, log.OpRender, fields)
	InternalServerError(msgInternal).Write(w)
}

func identity(r *http.Request) (auth.Identity, bool) {
	return auth.FromContext(r.Context())
}
