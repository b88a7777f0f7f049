// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"encoding/base64"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	qrcode "github.com/skip2/go-qrcode"

	"taxportal/internal/authbus"
	"taxportal/internal/middleware"
	"taxportal/internal/models"
	"taxportal/internal/render"
	"taxportal/internal/session"
	"taxportal/internal/store"
)

// Member groups the member portal handlers: login, the optional second
// factor and the multi-step profile flow. Every change of what the
// visitor may see is published on the auth bus.
type Member struct {
	Base
	sessions  *session.Store
	members   *store.MemberStore
	publisher authbus.Publisher
	issuer    string
}

// NewMember creates the member portal handler group. issuer names the
// site in authenticator apps.
func NewMember(base Base, sessions *session.Store, members *store.MemberStore, publisher authbus.Publisher, issuer string) *Member {
	return &Member{
		Base:      base,
		sessions:  sessions,
		members:   members,
		publisher: publisher,
		issuer:    issuer,
	}
}

// LoginPage renders the login form.
func (m *Member) LoginPage(w http.ResponseWriter, r *http.Request) {
	data := middleware.SessionFromCtx(r.Context())
	if data != nil && data.LoggedIn && !data.Pending2FA {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	m.renderer.Page(w, r, "login", &render.PageData{Title: "Member login", Data: map[string]any{}})
}

// LoginSubmit checks the credentials and signs the visitor in. The
// session id is rotated; members with a second factor continue to its
// verification before they count as logged in.
func (m *Member) LoginSubmit(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.FormValue("email"))
	password := r.FormValue("password")

	loginError := func(status int, msg string) {
		m.renderer.PageStatus(w, r, status, "login", &render.PageData{
			Title: "Member login",
			Data:  map[string]any{"Error": msg, "Email": email},
		})
	}

	data := middleware.SessionFromCtx(r.Context())
	if data == nil {
		loginError(http.StatusInternalServerError, "An unexpected error occurred.")
		return
	}

	if email == "" || password == "" {
		loginError(http.StatusUnauthorized, "Invalid email or password.")
		return
	}

	member, err := m.members.FindByEmail(email)
	if err != nil {
		slog.Error("login lookup failed", "error", err)
		loginError(http.StatusInternalServerError, "An unexpected error occurred.")
		return
	}
	if member == nil || !m.members.CheckPassword(member, password) {
		loginError(http.StatusUnauthorized, "Invalid email or password.")
		return
	}

	data.SignIn(member)
	if !m.rotate(w, r, data) {
		return
	}

	if data.Pending2FA {
		http.Redirect(w, r, "/member/2fa/verify", http.StatusSeeOther)
		return
	}
	if !member.ProfileCompleted {
		http.Redirect(w, r, "/member/profile/1", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Logout signs the member out, keeping an anonymous visitor session.
func (m *Member) Logout(w http.ResponseWriter, r *http.Request) {
	data := middleware.SessionFromCtx(r.Context())
	if data != nil && data.LoggedIn {
		data.SignOut()
		if !m.rotate(w, r, data) {
			return
		}
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// TwoFASetupPage generates a TOTP secret and displays the QR code.
func (m *Member) TwoFASetupPage(w http.ResponseWriter, r *http.Request) {
	data := middleware.SessionFromCtx(r.Context())

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      m.issuer,
		AccountName: data.Email,
	})
	if err != nil {
		slog.Error("totp generate failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	// The secret is stored but stays inactive until a code is verified.
	if err := m.members.SetTOTPSecret(data.MemberID, key.Secret()); err != nil {
		slog.Error("save totp secret failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	m.renderSetup(w, r, http.StatusOK, key, "")
}

// TwoFAVerifyPage renders the code entry form for members with a
// pending second factor.
func (m *Member) TwoFAVerifyPage(w http.ResponseWriter, r *http.Request) {
	data := middleware.SessionFromCtx(r.Context())
	if data == nil || !data.LoggedIn {
		http.Redirect(w, r, "/member/login", http.StatusSeeOther)
		return
	}
	m.renderer.Page(w, r, "2fa_verify", &render.PageData{Title: "Two-factor authentication", Data: map[string]any{}})
}

// TwoFAVerifySubmit checks a TOTP code. It completes a pending login, or
// enables the second factor when the member is setting it up.
func (m *Member) TwoFAVerifySubmit(w http.ResponseWriter, r *http.Request) {
	data := middleware.SessionFromCtx(r.Context())
	if data == nil || !data.LoggedIn {
		http.Redirect(w, r, "/member/login", http.StatusSeeOther)
		return
	}

	member, err := m.members.FindByID(data.MemberID)
	if err != nil || member == nil {
		slog.Error("member lookup for 2fa failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if member.TOTPSecret == nil {
		http.Redirect(w, r, "/member/2fa/setup", http.StatusSeeOther)
		return
	}

	if !totp.Validate(strings.TrimSpace(r.FormValue("code")), *member.TOTPSecret) {
		if !member.TOTPEnabled {
			key, err := m.setupKey(member)
			if err != nil {
				slog.Error("totp key rebuild failed", "error", err)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}
			m.renderSetup(w, r, http.StatusUnprocessableEntity, key, "Invalid code. Please try again.")
			return
		}
		m.renderer.PageStatus(w, r, http.StatusUnprocessableEntity, "2fa_verify", &render.PageData{
			Title: "Two-factor authentication",
			Data:  map[string]any{"Error": "Invalid code. Please try again."},
		})
		return
	}

	if !member.TOTPEnabled {
		if err := m.members.EnableTOTP(member.ID); err != nil {
			slog.Error("enable totp failed", "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		slog.Info("member enabled 2fa", "member_id", member.ID)
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	if data.Pending2FA {
		data.Pending2FA = false
		if !m.rotate(w, r, data) {
			return
		}
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// ProfilePage renders one step of the profile flow. Steps cannot be
// skipped: asking for a later step shows the first unfinished one.
func (m *Member) ProfilePage(w http.ResponseWriter, r *http.Request) {
	data := middleware.SessionFromCtx(r.Context())
	step, ok := profileStep(r)
	if !ok {
		m.errorPage(w, r, http.StatusNotFound, "Not found", "This page does not exist.")
		return
	}

	draft, err := m.draft(data)
	if err != nil {
		slog.Error("profile draft failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if step > draft.Step+1 {
		http.Redirect(w, r, "/member/profile/"+strconv.Itoa(draft.Step+1), http.StatusSeeOther)
		return
	}
	m.renderProfile(w, r, http.StatusOK, step, draft, "")
}

// ProfileSubmit stores the answers of one step in the session draft. The
// last step writes the profile to the database; a changed member type
// changes what the member can see and is published.
func (m *Member) ProfileSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	data := middleware.SessionFromCtx(ctx)
	step, ok := profileStep(r)
	if !ok {
		m.errorPage(w, r, http.StatusNotFound, "Not found", "This page does not exist.")
		return
	}

	draft, err := m.draft(data)
	if err != nil {
		slog.Error("profile draft failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if step > draft.Step+1 {
		http.Redirect(w, r, "/member/profile/"+strconv.Itoa(draft.Step+1), http.StatusSeeOther)
		return
	}

	switch step {
	case 1:
		name := strings.TrimSpace(r.FormValue("display_name"))
		phone := strings.TrimSpace(r.FormValue("phone"))
		if msg := validateProfileContact(name, phone); msg != "" {
			draft.DisplayName, draft.Phone = name, phone
			m.renderProfile(w, r, http.StatusUnprocessableEntity, step, draft, msg)
			return
		}
		draft.DisplayName, draft.Phone = name, phone
	case 2:
		mt := models.MemberType(r.FormValue("member_type"))
		company := strings.TrimSpace(r.FormValue("company"))
		if msg := validateProfileMembership(mt, company); msg != "" {
			m.renderProfile(w, r, http.StatusUnprocessableEntity, step, draft, msg)
			return
		}
		draft.MemberType, draft.Company = mt, company
	case models.ProfileSteps:
		m.confirmProfile(w, r, data, draft)
		return
	}

	draft.Step = max(draft.Step, step)
	data.Draft = draft
	if err := m.sessions.Update(ctx, data); err != nil {
		slog.Error("session update failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/member/profile/"+strconv.Itoa(step+1), http.StatusSeeOther)
}

func (m *Member) confirmProfile(w http.ResponseWriter, r *http.Request, data *session.Data, draft *models.ProfileDraft) {
	ctx := r.Context()

	updated, err := m.members.UpdateProfile(data.MemberID, *draft)
	if err != nil || updated == nil {
		slog.Error("profile update failed", "error", err, "member_id", data.MemberID)
		m.renderProfile(w, r, http.StatusInternalServerError, models.ProfileSteps, draft, "An unexpected error occurred. Please try again.")
		return
	}

	typeChanged := data.MemberType != updated.MemberType
	data.DisplayName = updated.DisplayName
	data.MemberType = updated.MemberType
	data.Draft = nil
	if err := m.sessions.Update(ctx, data); err != nil {
		slog.Error("session update failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	if typeChanged {
		m.publish(ctx, data.ID, data.Auth())
	}
	slog.Info("member profile completed", "member_id", updated.ID, "member_type", updated.MemberType)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// draft returns the profile draft of the session, starting one from the
// stored member when there is none.
func (m *Member) draft(data *session.Data) (*models.ProfileDraft, error) {
	if data.Draft != nil {
		d := *data.Draft
		return &d, nil
	}
	member, err := m.members.FindByID(data.MemberID)
	if err != nil {
		return nil, err
	}
	d := &models.ProfileDraft{}
	if member != nil {
		d.DisplayName = member.DisplayName
		d.Phone = member.Phone
		d.MemberType = member.MemberType
		d.Company = member.Company
	}
	return d, nil
}

// rotate moves the session to a new id and announces the auth change of
// the old one. It writes the error response itself and reports success.
func (m *Member) rotate(w http.ResponseWriter, r *http.Request, data *session.Data) bool {
	oldID, err := m.sessions.Rotate(r.Context(), w, data)
	if err != nil && oldID == "" {
		slog.Error("session rotate failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return false
	}
	if err != nil {
		slog.Warn("old session not removed", "error", err)
	}
	if oldID != "" {
		m.publish(r.Context(), oldID, data.Auth())
	}
	return true
}

func (m *Member) publish(ctx context.Context, sessionID string, state models.AuthState) {
	if m.publisher == nil {
		return
	}
	err := m.publisher.Publish(ctx, authbus.Event{SessionID: sessionID, State: state, At: time.Now()})
	if err != nil {
		slog.Warn("auth event publish failed", "error", err)
	}
}

// setupKey rebuilds the key of a stored, not yet enabled secret.
func (m *Member) setupKey(member *models.Member) (*otp.Key, error) {
	q := url.Values{}
	q.Set("secret", *member.TOTPSecret)
	q.Set("issuer", m.issuer)
	u := url.URL{
		Scheme:   "otpauth",
		Host:     "totp",
		Path:     "/" + m.issuer + ":" + member.Email,
		RawQuery: q.Encode(),
	}
	return otp.NewKeyFromURL(u.String())
}

func (m *Member) renderSetup(w http.ResponseWriter, r *http.Request, status int, key *otp.Key, errMsg string) {
	png, err := qrcode.Encode(key.URL(), qrcode.Medium, 256)
	if err != nil {
		slog.Error("qr code generation failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	m.renderer.PageStatus(w, r, status, "2fa_setup", &render.PageData{
		Title: "Set up two-factor authentication",
		Data: map[string]any{
			"QRCode": base64.StdEncoding.EncodeToString(png),
			"Secret": key.Secret(),
			"Error":  errMsg,
		},
	})
}

func (m *Member) renderProfile(w http.ResponseWriter, r *http.Request, status, step int, draft *models.ProfileDraft, errMsg string) {
	m.renderer.PageStatus(w, r, status, "profile", m.page(r, "Your profile", "", map[string]any{
		"Step":        step,
		"Draft":       draft,
		"MemberTypes": models.MemberTypes,
		"Error":       errMsg,
	}))
}

// profileStep parses the {step} URL parameter.
func profileStep(r *http.Request) (int, bool) {
	step, err := strconv.Atoi(chi.URLParam(r, "step"))
	if err != nil || step < 1 || step > models.ProfileSteps {
		return 0, false
	}
	return step, true
}
