// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"taxportal/internal/backend"
	"taxportal/internal/markdown"
	"taxportal/internal/middleware"
	"taxportal/internal/models"
	"taxportal/internal/navigation"
	"taxportal/internal/render"
)

// ItemSource loads a single listing item from the CMS.
type ItemSource interface {
	Item(ctx context.Context, resource string, id int) (models.Item, error)
}

// Site groups the handlers of the category-driven public pages.
type Site struct {
	Base
	insights *navigation.Navigator
	services *navigation.Navigator
	items    ItemSource
}

// NewSite creates the public site handler group.
func NewSite(base Base, insights, services *navigation.Navigator, items ItemSource) *Site {
	return &Site{Base: base, insights: insights, services: services, items: items}
}

// Home renders the home page.
func (s *Site) Home(w http.ResponseWriter, r *http.Request) {
	s.renderer.Page(w, r, "home", s.page(r, "Home", "/", nil))
}

// Insights renders the Insights listing.
func (s *Site) Insights(w http.ResponseWriter, r *http.Request) {
	s.listing(w, r, s.insights, "Insights", "/insights")
}

// Services renders the Service Areas tabs.
func (s *Site) Services(w http.ResponseWriter, r *http.Request) {
	s.listing(w, r, s.services, "Service Areas", "/services")
}

// listing resolves the visitor's selection for n and renders it. A
// request URL that does not match the selection is replaced: with a
// redirect for full page loads and HX-Replace-Url for HTMX requests.
func (s *Site) listing(w http.ResponseWriter, r *http.Request, n *navigation.Navigator, title, base string) {
	ctx := r.Context()
	nav := middleware.NavFromCtx(ctx)
	if nav == nil {
		s.errorPage(w, r, http.StatusInternalServerError, "Error", "Something went wrong.")
		return
	}

	v := n.Resolve(ctx, nav, r.URL)
	if v.NeedsSync() {
		if !render.IsHTMX(r) {
			http.Redirect(w, r, v.ReplaceURL, http.StatusFound)
			return
		}
		w.Header().Set("HX-Replace-Url", v.ReplaceURL)
	}

	v, err := n.Load(ctx, nav, v)
	if errors.Is(err, navigation.ErrSuperseded) {
		// A newer request of the same visitor owns the page.
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if v.ListingErr != nil {
		slog.Warn("listing fetch failed",
			"surface", v.Surface.Name,
			"error", v.ListingErr,
			"request_id", middleware.RequestIDFromCtx(ctx),
		)
	}

	s.renderer.Page(w, r, "listing", s.page(r, title, base, map[string]any{
		"View":    v,
		"Display": displayOf(v),
	}))
}

// InsightDetail renders one insight.
func (s *Site) InsightDetail(w http.ResponseWriter, r *http.Request) {
	s.detail(w, r, s.insights, "/insights", false)
}

// NewsletterDetail renders one newsletter issue.
func (s *Site) NewsletterDetail(w http.ResponseWriter, r *http.Request) {
	s.detail(w, r, s.insights, "/insights", true)
}

// ServiceDetail renders one service area item.
func (s *Site) ServiceDetail(w http.ResponseWriter, r *http.Request) {
	s.detail(w, r, s.services, "/services", false)
}

// detail fetches and renders one item. Items of categories the visitor
// cannot see answer 404, like missing ones.
func (s *Site) detail(w http.ResponseWriter, r *http.Request, n *navigation.Navigator, base string, newsletter bool) {
	ctx := r.Context()
	sf := n.Surface()

	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		s.errorPage(w, r, http.StatusNotFound, "Not found", "This page does not exist.")
		return
	}

	resource := sf.ListingResource
	if resource == "" {
		resource = sf.Resource
	}
	if newsletter {
		if !sf.NewsletterEnabled || sf.NewsletterResource == "" {
			s.errorPage(w, r, http.StatusNotFound, "Not found", "This page does not exist.")
			return
		}
		resource = sf.NewsletterResource
	}

	item, err := s.items.Item(ctx, resource, id)
	if errors.Is(err, backend.ErrNotFound) {
		s.errorPage(w, r, http.StatusNotFound, "Not found", "This page does not exist.")
		return
	}
	if err != nil {
		slog.Error("item fetch failed", "resource", resource, "id", id, "error", err,
			"request_id", middleware.RequestIDFromCtx(ctx))
		s.errorPage(w, r, http.StatusBadGateway, "Unavailable", "This content is unavailable right now. Please try again later.")
		return
	}

	var back models.Selection
	if newsletter {
		back = back.WithNewsletter()
	} else if nav := middleware.NavFromCtx(ctx); nav != nil && item.CategoryID != 0 {
		visible := nav.Visible(ctx, sf.Name, sf.Resource)
		if _, ok := visible.Find(item.CategoryID); !ok {
			s.errorPage(w, r, http.StatusNotFound, "Not found", "This page does not exist.")
			return
		}
		back = back.WithCategory(item.CategoryID).WithSubcategory(item.SubcategoryID)
	}

	body, err := markdown.ToHTML(item.Body)
	if err != nil {
		slog.Error("markdown render failed", "id", id, "error", err)
		body = ""
	}

	s.renderer.Page(w, r, "insight", s.page(r, item.Title, base, map[string]any{
		"Item": item,
		"Body": template.HTML(body), // sanitized by markdown.ToHTML
		"Back": navigation.Href(base, back),
	}))
}

// displayOf returns the listing layout of a view.
func displayOf(v navigation.View) string {
	if v.Selection.IsNewsletter() {
		return string(models.DisplaySnippet)
	}
	return string(v.Category.DisplayType.Normalize())
}

// Health reports that the process is serving.
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
