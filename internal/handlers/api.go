// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"taxportal/internal/menu"
	"taxportal/internal/middleware"
	"taxportal/internal/models"
	"taxportal/internal/navigation"
)

// listingResponse is the JSON form of a resolved listing.
type listingResponse struct {
	Selection  models.Selection `json:"selection"`
	Corrected  bool             `json:"corrected"`
	ReplaceURL string           `json:"replace_url,omitempty"`
	Categories models.Hierarchy `json:"categories"`
	Items      []models.Item    `json:"items"`
	Total      int              `json:"total"`
	PageSize   int              `json:"page_size"`
	TotalPages int              `json:"total_pages"`
	Error      string           `json:"error,omitempty"`
}

// APIMenu returns the visitor's menu as JSON.
func (s *Site) APIMenu(w http.ResponseWriter, r *http.Request) {
	nav := middleware.NavFromCtx(r.Context())
	if nav == nil || s.menu == nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "navigation unavailable"})
		return
	}
	entries, err := s.menu.Build(r.Context(), nav)
	if err != nil {
		slog.Warn("menu build failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "menu unavailable"})
		return
	}
	if entries == nil {
		entries = []menu.Entry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"sections": entries})
}

// APIInsights returns the Insights listing as JSON. The URL the client
// should show is reported in replace_url instead of redirecting.
func (s *Site) APIInsights(w http.ResponseWriter, r *http.Request) {
	s.apiListing(w, r, s.insights, "/insights")
}

// APIServices returns the Service Areas listing as JSON.
func (s *Site) APIServices(w http.ResponseWriter, r *http.Request) {
	s.apiListing(w, r, s.services, "/services")
}

func (s *Site) apiListing(w http.ResponseWriter, r *http.Request, n *navigation.Navigator, base string) {
	ctx := r.Context()
	nav := middleware.NavFromCtx(ctx)
	if nav == nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "navigation unavailable"})
		return
	}

	v := n.Resolve(ctx, nav, r.URL)
	v, err := n.Load(ctx, nav, v)
	if errors.Is(err, navigation.ErrSuperseded) {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	resp := listingResponse{
		Selection:  v.Selection,
		Corrected:  v.Corrected,
		Categories: v.Categories,
		Items:      v.Listing.Items,
		Total:      v.Listing.Total,
		PageSize:   v.PageSize,
		TotalPages: v.TotalPages(),
	}
	if v.NeedsSync() {
		// The JSON API lives under /api; point the client at the page URL.
		resp.ReplaceURL = base + strings.TrimPrefix(v.ReplaceURL, r.URL.EscapedPath())
	}
	if resp.Categories == nil {
		resp.Categories = models.Hierarchy{}
	}
	if resp.Items == nil {
		resp.Items = []models.Item{}
	}
	if v.ListingErr != nil {
		slog.Warn("listing fetch failed", "surface", v.Surface.Name, "error", v.ListingErr)
		resp.Error = "listing unavailable"
	}
	writeJSON(w, http.StatusOK, resp)
}
