// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"taxportal/internal/authbus"
	"taxportal/internal/middleware"
)

// KeepAlive is the interval of SSE comment lines that keep proxies from
// closing an idle stream.
const KeepAlive = 25 * time.Second

// Events streams auth changes of the visitor's session to open tabs.
type Events struct {
	bus       *authbus.Bus
	keepAlive time.Duration
}

// NewEvents creates the Server-Sent Events handler.
func NewEvents(bus *authbus.Bus) *Events {
	return &Events{bus: bus, keepAlive: KeepAlive}
}

// Auth streams "auth" events for the visitor's session. After delivering
// one event the stream ends: the session id usually rotates with an auth
// change, and the client reconnects with its new cookie.
func (e *Events) Auth(w http.ResponseWriter, r *http.Request) {
	data := middleware.SessionFromCtx(r.Context())
	if data == nil || data.ID == "" {
		http.Error(w, "no session", http.StatusBadRequest)
		return
	}

	rc := http.NewResponseController(w)
	// Streams outlive the server's write timeout.
	if err := rc.SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		slog.Debug("sse write deadline", "error", err)
	}

	events, unsubscribe := e.bus.Subscribe(authbus.DefaultBuffer)
	defer unsubscribe()

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, ": connected\n\n")
	if err := rc.Flush(); err != nil {
		slog.Warn("sse flush failed", "error", err)
		return
	}

	ticker := time.NewTicker(e.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			fmt.Fprint(w, ": keep-alive\n\n")
			if err := rc.Flush(); err != nil {
				return
			}
		case ev, ok := <-events:
			if !ok {
				return
			}
			if ev.SessionID != data.ID {
				continue
			}
			payload, err := json.Marshal(ev.State)
			if err != nil {
				slog.Error("sse marshal failed", "error", err)
				return
			}
			fmt.Fprintf(w, "event: auth\ndata: %s\n\n", payload)
			rc.Flush()
			return
		}
	}
}
