// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package handlers implements the HTTP handlers of the public site, the
// JSON API and the member portal.
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"taxportal/internal/menu"
	"taxportal/internal/middleware"
	"taxportal/internal/render"
)

// Base carries what every page handler needs to render the site layout.
type Base struct {
	renderer *render.Renderer
	menu     *menu.Menu
}

// NewBase creates the shared page helpers.
func NewBase(renderer *render.Renderer, m *menu.Menu) Base {
	return Base{renderer: renderer, menu: m}
}

// page builds page data with the visitor's menu. A menu that cannot be
// built leaves the layout without it; the page itself still renders.
func (b Base) page(r *http.Request, title, section string, data map[string]any) *render.PageData {
	pd := &render.PageData{Title: title, Section: section, Data: data}
	if pd.Data == nil {
		pd.Data = map[string]any{}
	}
	if nav := middleware.NavFromCtx(r.Context()); nav != nil && b.menu != nil {
		entries, err := b.menu.Build(r.Context(), nav)
		if err != nil {
			slog.Warn("menu build failed", "error", err, "request_id", middleware.RequestIDFromCtx(r.Context()))
		}
		pd.Menu = entries
	}
	return pd
}

// errorPage renders the error template with status.
func (b Base) errorPage(w http.ResponseWriter, r *http.Request, status int, title, message string) {
	b.renderer.PageStatus(w, r, status, "error", b.page(r, title, "", map[string]any{"Message": message}))
}

// writeJSON writes data as a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("json encode failed", "error", err)
	}
}
