// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"taxportal/internal/navigation"
	"taxportal/internal/session"
)

// contextKey is an unexported type for context keys to prevent collisions.
type contextKey string

const (
	sessionKey   contextKey = "session"
	navKey       contextKey = "navigation"
	csrfKey      contextKey = "csrf"
	requestIDKey contextKey = "request_id"
)

// Visitor loads the visitor session and creates one when the request has
// none, so every request carries a session id. When Valkey is down the
// request continues with a throwaway session that is never stored.
func Visitor(store *session.Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			data, err := store.Get(r.Context(), r)
			if err != nil {
				slog.Warn("session load failed", "error", err)
			}
			if data == nil {
				data = &session.Data{}
				if _, err := store.Create(r.Context(), w, data); err != nil {
					slog.Warn("session create failed, using a throwaway session", "error", err)
					data.ID = "ephemeral-" + uuid.NewString()
				}
			}

			ctx := context.WithValue(r.Context(), sessionKey, data)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Navigation attaches the visitor's navigation context, built from the
// session id and the session's current auth state. Must be applied after
// Visitor.
func Navigation(h *navigation.Hierarchies) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			data := SessionFromCtx(r.Context())
			if data == nil {
				next.ServeHTTP(w, r)
				return
			}
			nav := h.Session(data.ID, data.Auth())
			ctx := context.WithValue(r.Context(), navKey, nav)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireMember redirects visitors who are not logged in to the login
// page, and members with a pending second factor to its verification.
// Must be applied after Visitor.
func RequireMember(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data := SessionFromCtx(r.Context())
		switch {
		case data == nil || !data.LoggedIn:
			http.Redirect(w, r, "/member/login", http.StatusSeeOther)
			return
		case data.Pending2FA:
			http.Redirect(w, r, "/member/2fa/verify", http.StatusSeeOther)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// SessionFromCtx extracts the session data from the request context.
// Returns nil if Visitor did not run.
func SessionFromCtx(ctx context.Context) *session.Data {
	data, _ := ctx.Value(sessionKey).(*session.Data)
	return data
}

// NavFromCtx extracts the navigation session from the request context.
func NavFromCtx(ctx context.Context) *navigation.Session {
	nav, _ := ctx.Value(navKey).(*navigation.Session)
	return nav
}

// WithSession returns a copy of ctx carrying data. Handlers use it after
// rotating a session so later code in the request sees the new one.
func WithSession(ctx context.Context, data *session.Data) context.Context {
	return context.WithValue(ctx, sessionKey, data)
}
