// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"
)

// WebhookSecretHeader carries the shared secret of CMS webhooks.
const WebhookSecretHeader = "X-Webhook-Secret"

// SnapshotFlusher drops every cached hierarchy snapshot.
type SnapshotFlusher interface {
	Flush(ctx context.Context) (int, error)
}

// Hooks handles webhooks sent by the CMS.
type Hooks struct {
	secret  string
	flusher SnapshotFlusher
}

// NewHooks creates the webhook handlers. An empty secret disables them.
func NewHooks(secret string, flusher SnapshotFlusher) *Hooks {
	return &Hooks{secret: secret, flusher: flusher}
}

// ContentChanged flushes cached hierarchies after the CMS published a
// change, so every visitor refetches on their next request.
func (h *Hooks) ContentChanged(w http.ResponseWriter, r *http.Request) {
	if h.secret == "" {
		http.NotFound(w, r)
		return
	}
	got := r.Header.Get(WebhookSecretHeader)
	if subtle.ConstantTimeCompare([]byte(got), []byte(h.secret)) != 1 {
		slog.Warn("cms webhook rejected", "remote", r.RemoteAddr)
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid secret"})
		return
	}

	n, err := h.flusher.Flush(r.Context())
	if err != nil {
		slog.Error("snapshot flush failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "flush failed"})
		return
	}
	slog.Info("cms content change handled", "flushed", n)
	writeJSON(w, http.StatusOK, map[string]int{"flushed": n})
}
