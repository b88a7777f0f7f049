// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"taxportal/internal/markdown"
	"taxportal/internal/middleware"
	"taxportal/internal/models"
	"taxportal/internal/store"
)

// Consultation handles the consultation request form.
type Consultation struct {
	Base
	store *store.ConsultationStore
}

// NewConsultation creates the consultation handler group.
func NewConsultation(base Base, s *store.ConsultationStore) *Consultation {
	return &Consultation{Base: base, store: s}
}

// Form renders the empty form, prefilled for logged-in members.
func (c *Consultation) Form(w http.ResponseWriter, r *http.Request) {
	var f consultationForm
	if data := middleware.SessionFromCtx(r.Context()); data != nil && data.LoggedIn {
		f.Name = data.DisplayName
		f.Email = data.Email
	}
	c.render(w, r, http.StatusOK, f, "")
}

// Submit validates and stores a consultation request.
func (c *Consultation) Submit(w http.ResponseWriter, r *http.Request) {
	f := consultationForm{
		Name:         strings.TrimSpace(r.FormValue("name")),
		Email:        strings.TrimSpace(r.FormValue("email")),
		Phone:        strings.TrimSpace(r.FormValue("phone")),
		Company:      strings.TrimSpace(r.FormValue("company")),
		BusinessArea: r.FormValue("business_area"),
		Message:      strings.TrimSpace(r.FormValue("message")),
		Consent:      r.FormValue("consent") == "yes",
	}

	if msg := validateConsultation(f); msg != "" {
		c.render(w, r, http.StatusUnprocessableEntity, f, msg)
		return
	}

	req := &models.Consultation{
		Name:         markdown.PlainText(f.Name),
		Email:        f.Email,
		Phone:        f.Phone,
		Company:      markdown.PlainText(f.Company),
		BusinessArea: f.BusinessArea,
		Message:      markdown.PlainText(f.Message),
		Consent:      f.Consent,
	}
	if data := middleware.SessionFromCtx(r.Context()); data != nil && data.LoggedIn && !data.Pending2FA {
		id := data.MemberID
		req.MemberID = &id
	}

	saved, err := c.store.Create(req)
	if err != nil {
		slog.Error("consultation create failed", "error", err,
			"request_id", middleware.RequestIDFromCtx(r.Context()))
		c.render(w, r, http.StatusInternalServerError, f, "An unexpected error occurred. Please try again.")
		return
	}

	slog.Info("consultation requested", "id", saved.ID, "area", saved.BusinessArea)
	c.renderer.Page(w, r, "consultation_thanks", c.page(r, "Thank you", "/consultation", nil))
}

func (c *Consultation) render(w http.ResponseWriter, r *http.Request, status int, f consultationForm, errMsg string) {
	c.renderer.PageStatus(w, r, status, "consultation", c.page(r, "Consultation", "/consultation", map[string]any{
		"Form":  f,
		"Areas": businessAreas,
		"Error": errMsg,
	}))
}
