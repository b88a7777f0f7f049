// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package render provides HTML template rendering for the public site and
// the member portal. It supports full-page and HTMX partial rendering,
// automatically detecting the request type via the HX-Request header.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"

	"taxportal/internal/menu"
	"taxportal/internal/middleware"
	"taxportal/internal/models"
	"taxportal/internal/navigation"
	"taxportal/internal/session"
)

//go:embed templates/site/*.html
var siteFS embed.FS

// PageData holds all data passed to site templates.
type PageData struct {
	Title     string         // Page title for <title> tag
	Section   string         // Active menu section path (e.g., "/insights")
	SiteName  string         // Set by the renderer
	Path      string         // Request URI, refreshed on auth events
	Session   *session.Data  // Visitor session (anonymous visitors included)
	CSRFToken string         // CSRF token for forms and HTMX headers
	Menu      []menu.Entry   // Menu as the visitor sees it
	Data      map[string]any // Page-specific data
	Flashes   []Flash        // One-time notification messages
}

// Flash represents a one-time notification message displayed to the user.
type Flash struct {
	Type    string // "success", "error", "warning", "info"
	Message string
}

// Renderer handles template parsing and execution for site pages.
type Renderer struct {
	templates map[string]*template.Template
	funcMap   template.FuncMap
	siteName  string
}

// standaloneTemplates lists templates that render as full HTML pages
// without the base layout (they have their own <html>, <head>, etc.).
var standaloneTemplates = map[string]bool{
	"login":      true,
	"2fa_setup":  true,
	"2fa_verify": true,
}

// New creates a Renderer by parsing all site templates from the embedded
// filesystem. Each page template is paired with the base layout.
// devMode shows a development banner in the footer.
func New(devMode bool, siteName string) (*Renderer, error) {
	r := &Renderer{
		templates: make(map[string]*template.Template),
		siteName:  siteName,
		funcMap: template.FuncMap{
			"activeClass": func(current, target string) string {
				if current == target {
					return "nav-link active"
				}
				return "nav-link"
			},
			"isDev": func() bool {
				return devMode
			},
			// Navigation links. Every helper goes through the Selection
			// transitions so filter changes always land on page 1.
			"categoryHref": func(base string, sel models.Selection, id int) string {
				return navigation.Href(base, sel.WithCategory(id))
			},
			"subHref": func(base string, sel models.Selection, sub int) string {
				return navigation.Href(base, sel.WithSubcategory(sub))
			},
			"newsletterHref": func(base string, sel models.Selection) string {
				return navigation.Href(base, sel.WithNewsletter())
			},
			"pageHref": func(base string, sel models.Selection, page int) string {
				return navigation.Href(base, sel.WithPage(page))
			},
			"pages":           pageNumbers,
			"add":             func(a, b int) int { return a + b },
			"date":            func(t time.Time) string { return t.Format("2 Jan 2006") },
			"memberTypeLabel": func(m models.MemberType) string { return m.Label() },
		},
	}

	pages, err := fs.Glob(siteFS, "templates/site/*.html")
	if err != nil {
		return nil, fmt.Errorf("glob templates: %w", err)
	}

	for _, page := range pages {
		name := path.Base(page)
		if name == "base.html" {
			continue
		}
		tmplName := strings.TrimSuffix(name, ".html")

		var tmpl *template.Template
		var parseErr error
		if standaloneTemplates[tmplName] {
			tmpl, parseErr = template.New(name).Funcs(r.funcMap).ParseFS(siteFS, page)
		} else {
			tmpl, parseErr = template.New("base.html").Funcs(r.funcMap).ParseFS(
				siteFS, "templates/site/base.html", page,
			)
		}
		if parseErr != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, parseErr)
		}

		r.templates[tmplName] = tmpl
	}

	return r, nil
}

// Page renders a full page or an HTMX partial with status 200.
func (rn *Renderer) Page(w http.ResponseWriter, r *http.Request, name string, data *PageData) {
	rn.PageStatus(w, r, http.StatusOK, name, data)
}

// PageStatus renders a full page or an HTMX partial, depending on the
// request headers. For HTMX requests, only the "content" block is sent.
// The output is buffered so a template error never leaves a half-written
// page behind.
func (rn *Renderer) PageStatus(w http.ResponseWriter, r *http.Request, status int, name string, data *PageData) {
	tmpl, ok := rn.templates[name]
	if !ok {
		http.Error(w, fmt.Sprintf("template %q not found", name), http.StatusInternalServerError)
		return
	}

	data.CSRFToken = middleware.CSRFTokenFromCtx(r.Context())
	if data.Session == nil {
		data.Session = middleware.SessionFromCtx(r.Context())
	}
	data.SiteName = rn.siteName
	data.Path = r.URL.RequestURI()

	execName := "base.html"
	switch {
	case IsHTMX(r):
		execName = "content"
	case standaloneTemplates[name]:
		execName = name + ".html"
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, execName, data); err != nil {
		slog.Error("template execute failed", "template", name, "error", err)
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

// IsHTMX returns true if the request was made by HTMX (has HX-Request header).
func IsHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// pageWindow is how many pages are listed on each side of the current one.
const pageWindow = 5

// pageNumbers returns the page links for pagination controls: the first
// and last page plus a window around current. A 0 marks a gap.
func pageNumbers(current, total int) []int {
	total = max(total, 1)
	current = min(max(current, 1), total)

	lo := max(current-pageWindow, 1)
	hi := current + min(pageWindow, total-current)

	out := make([]int, 0, hi-lo+5)
	if lo > 1 {
		out = append(out, 1)
		if lo > 2 {
			out = append(out, 0)
		}
	}
	for p := lo; p <= hi; p++ {
		out = append(out, p)
	}
	if hi < total {
		if hi < total-1 {
			out = append(out, 0)
		}
		out = append(out, total)
	}
	return out
}
