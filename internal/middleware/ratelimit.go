// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// KeyFunc picks the bucket a request is counted in.
type KeyFunc func(r *http.Request) string

// ByIP counts requests per client address.
func ByIP(r *http.Request) string {
	return "ip:" + clientIP(r)
}

// ByVisitor counts requests per visitor session and falls back to the
// client address before Visitor ran. Offices behind one NAT address then
// do not share a budget.
func ByVisitor(r *http.Request) string {
	if data := SessionFromCtx(r.Context()); data != nil && data.ID != "" {
		return "visitor:" + data.ID
	}
	return ByIP(r)
}

// RateLimiter allows limit requests per sliding window and key.
type RateLimiter struct {
	name   string
	limit  int
	window time.Duration
	key    KeyFunc

	mu   sync.Mutex
	hits map[string][]time.Time

	stop chan struct{}
	done chan struct{}
}

// NewRateLimiter creates a limiter named name for log lines. A nil key
// counts per client address. A background goroutine drops idle keys
// until Stop is called.
func NewRateLimiter(name string, limit int, window time.Duration, key KeyFunc) *RateLimiter {
	if key == nil {
		key = ByIP
	}
	rl := &RateLimiter{
		name:   name,
		limit:  limit,
		window: window,
		key:    key,
		hits:   make(map[string][]time.Time),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go rl.sweepLoop(max(window, time.Minute))
	return rl
}

// Stop ends the sweeper and waits for it.
func (rl *RateLimiter) Stop() {
	close(rl.stop)
	<-rl.done
}

// Middleware rejects requests over the limit with 429 and Retry-After.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := rl.key(r)
		if !rl.allow(key, time.Now()) {
			slog.Warn("rate limit exceeded", "limiter", rl.name, "key", key, "path", r.URL.Path)
			w.Header().Set("Retry-After", strconv.Itoa(max(1, int(rl.window.Seconds()))))
			http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// allow records a hit for key at now unless the window is full.
func (rl *RateLimiter) allow(key string, now time.Time) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	recent := prune(rl.hits[key], now.Add(-rl.window))
	if len(recent) >= rl.limit {
		rl.hits[key] = recent
		return false
	}
	rl.hits[key] = append(recent, now)
	return true
}

func (rl *RateLimiter) sweepLoop(every time.Duration) {
	defer close(rl.done)
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case now := <-t.C:
			rl.sweep(now)
		case <-rl.stop:
			return
		}
	}
}

// sweep forgets keys without hits inside the window.
func (rl *RateLimiter) sweep(now time.Time) {
	cutoff := now.Add(-rl.window)
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for key, ts := range rl.hits {
		if recent := prune(ts, cutoff); len(recent) > 0 {
			rl.hits[key] = recent
		} else {
			delete(rl.hits, key)
		}
	}
}

// prune drops hits at or before cutoff. Hits are in ascending order.
func prune(ts []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(ts) && !ts[i].After(cutoff) {
		i++
	}
	return ts[i:]
}

// clientIP returns the original client address, trusting the leftmost
// X-Forwarded-For entry and then X-Real-IP set by the reverse proxy.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
