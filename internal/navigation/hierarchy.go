// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package navigation

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"taxportal/internal/authbus"
	"taxportal/internal/models"
)

// Source fetches a category hierarchy from the CMS.
type Source interface {
	Hierarchy(ctx context.Context, resource string) (models.Hierarchy, error)
}

// Snapshot is the cached result of one hierarchy fetch. Attempted is set
// even when the fetch failed, so a failing CMS is asked only once per
// visitor session and the surface degrades to "no categories".
type Snapshot struct {
	Categories models.Hierarchy `json:"categories"`
	Attempted  bool             `json:"attempted"`
	Failed     bool             `json:"failed,omitempty"`
	FetchedAt  time.Time        `json:"fetched_at"`
}

// SnapshotStore persists snapshots between requests of a visitor session.
// Every key carries an invalidation generation: SaveIfCurrent refuses to
// store a snapshot whose fetch started before the latest Invalidate.
type SnapshotStore interface {
	// Load returns the snapshot for key (nil on miss) and the current
	// generation of key.
	Load(ctx context.Context, key string) (*Snapshot, uint64, error)
	// SaveIfCurrent stores snap when key is still at generation gen.
	SaveIfCurrent(ctx context.Context, key string, gen uint64, snap *Snapshot) (bool, error)
	// Invalidate drops the snapshots and bumps the generations of keys.
	Invalidate(ctx context.Context, keys ...string) error
}

// Scope identifies one cached copy of a hierarchy. Each surface keeps its
// own copy, so two surfaces can briefly disagree until both re-fetch.
type Scope struct {
	Surface  string
	Resource string
}

// Hierarchies hands out Sessions and owns what they share: the CMS
// source, the snapshot store and in-flight fetch deduplication.
type Hierarchies struct {
	source Source
	store  SnapshotStore
	group  singleflight.Group

	mu     sync.RWMutex
	scopes []Scope
}

// NewHierarchies creates a Hierarchies backed by source and store.
func NewHierarchies(source Source, store SnapshotStore) *Hierarchies {
	return &Hierarchies{source: source, store: store}
}

// Register records a scope so InvalidateSession knows every key a visitor
// may own. Registering the same scope twice is a no-op.
func (h *Hierarchies) Register(surface, resource string) {
	sc := Scope{Surface: surface, Resource: resource}
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, s := range h.scopes {
		if s == sc {
			return
		}
	}
	h.scopes = append(h.scopes, sc)
}

// Scopes returns the registered scopes.
func (h *Hierarchies) Scopes() []Scope {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]Scope, len(h.scopes))
	copy(out, h.scopes)
	return out
}

// Session returns the navigation context of one visitor session.
func (h *Hierarchies) Session(id string, auth models.AuthState) *Session {
	return &Session{
		id:   id,
		h:    h,
		auth: auth,
		memo: make(map[string]models.Hierarchy),
	}
}

// InvalidateSession drops every snapshot owned by a visitor session.
func (h *Hierarchies) InvalidateSession(ctx context.Context, sessionID string) error {
	scopes := h.Scopes()
	if len(scopes) == 0 {
		return nil
	}
	keys := make([]string, 0, len(scopes))
	for _, sc := range scopes {
		keys = append(keys, snapshotKey(sessionID, sc))
	}
	return h.store.Invalidate(ctx, keys...)
}

// Follow invalidates the snapshots of every session named in an auth
// event until ctx is done or events is closed.
func (h *Hierarchies) Follow(ctx context.Context, events <-chan authbus.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			if err := h.InvalidateSession(ctx, e.SessionID); err != nil {
				slog.Warn("hierarchy invalidation failed", "session", shortID(e.SessionID), "error", err)
				continue
			}
			slog.Debug("hierarchy snapshots invalidated", "session", shortID(e.SessionID))
		}
	}
}

// fetch pulls a fresh hierarchy and stores it unless key was invalidated
// while the request was in flight.
func (h *Hierarchies) fetch(ctx context.Context, key, resource string, gen uint64) models.Hierarchy {
	snap := &Snapshot{Attempted: true, FetchedAt: time.Now()}

	cats, err := h.source.Hierarchy(ctx, resource)
	if err != nil {
		slog.Warn("hierarchy fetch failed, showing no categories", "resource", resource, "error", err)
		snap.Failed = true
	} else {
		snap.Categories = cats
	}

	saved, err := h.store.SaveIfCurrent(ctx, key, gen, snap)
	if err != nil {
		slog.Warn("hierarchy snapshot save failed", "resource", resource, "error", err)
		return snap.Categories
	}
	if !saved {
		// Superseded: never cache it, and prefer whatever a newer fetch stored.
		if newer, _, err := h.store.Load(ctx, key); err == nil && newer != nil && newer.Attempted {
			return newer.Categories
		}
		slog.Debug("hierarchy fetch superseded by invalidation", "resource", resource)
	}
	return snap.Categories
}

func snapshotKey(sessionID string, sc Scope) string {
	return sessionID + "/" + sc.Surface + "/" + sc.Resource
}

// shortID keeps session identifiers out of logs.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// Session is the navigation context of one visitor session: the auth
// snapshot plus, per scope, the hierarchy snapshot and whether a fetch
// was attempted. A Session is cheap and is built once per request; the
// snapshots outlive it in the SnapshotStore.
type Session struct {
	id string
	h  *Hierarchies

	mu   sync.Mutex
	auth models.AuthState
	memo map[string]models.Hierarchy
}

// ID returns the visitor session id.
func (s *Session) ID() string { return s.id }

// Auth returns the current auth snapshot.
func (s *Session) Auth() models.AuthState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.auth
}

// SetAuth replaces the auth snapshot and reports whether it changed.
func (s *Session) SetAuth(a models.AuthState) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.auth == a {
		return false
	}
	s.auth = a
	return true
}

// Hierarchy returns the unfiltered hierarchy of a scope, fetching it on
// first need. It never fails: a CMS error yields an empty hierarchy.
func (s *Session) Hierarchy(ctx context.Context, surface, resource string) models.Hierarchy {
	key := snapshotKey(s.id, Scope{Surface: surface, Resource: resource})

	s.mu.Lock()
	if cats, ok := s.memo[key]; ok {
		s.mu.Unlock()
		return cats
	}
	s.mu.Unlock()

	snap, gen, err := s.h.store.Load(ctx, key)
	if err != nil {
		slog.Warn("hierarchy snapshot load failed", "resource", resource, "error", err)
	}

	var cats models.Hierarchy
	if snap != nil && snap.Attempted {
		cats = snap.Categories
	} else {
		// The first caller's cancellation must not fail everyone sharing the fetch.
		fetchCtx := context.WithoutCancel(ctx)
		v, _, _ := s.h.group.Do(key, func() (any, error) {
			return s.h.fetch(fetchCtx, key, resource, gen), nil
		})
		cats, _ = v.(models.Hierarchy)
	}

	s.mu.Lock()
	s.memo[key] = cats
	s.mu.Unlock()
	return cats
}

// Visible returns the hierarchy of a scope filtered for the current auth
// snapshot. The filter runs on every call so it always sees the latest
// auth state.
func (s *Session) Visible(ctx context.Context, surface, resource string) models.Hierarchy {
	return Filter(s.Hierarchy(ctx, surface, resource), s.Auth())
}

// Invalidate drops the snapshot of one scope so the next call re-fetches.
func (s *Session) Invalidate(ctx context.Context, surface, resource string) error {
	key := snapshotKey(s.id, Scope{Surface: surface, Resource: resource})
	s.mu.Lock()
	delete(s.memo, key)
	s.mu.Unlock()
	return s.h.store.Invalidate(ctx, key)
}

// InvalidateAll drops every snapshot of the session.
func (s *Session) InvalidateAll(ctx context.Context) error {
	s.mu.Lock()
	clear(s.memo)
	s.mu.Unlock()
	return s.h.InvalidateSession(ctx, s.id)
}

// MemoryStore is an in-process SnapshotStore used in tests and when
// Valkey is not configured.
type MemoryStore struct {
	mu    sync.Mutex
	snaps map[string]*Snapshot
	gens  map[string]uint64
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		snaps: make(map[string]*Snapshot),
		gens:  make(map[string]uint64),
	}
}

// Load implements SnapshotStore.
func (m *MemoryStore) Load(_ context.Context, key string) (*Snapshot, uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snaps[key], m.gens[key], nil
}

// SaveIfCurrent implements SnapshotStore.
func (m *MemoryStore) SaveIfCurrent(_ context.Context, key string, gen uint64, snap *Snapshot) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gens[key] != gen {
		return false, nil
	}
	m.snaps[key] = snap
	return true, nil
}

// Invalidate implements SnapshotStore.
func (m *MemoryStore) Invalidate(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.snaps, k)
		m.gens[k]++
	}
	return nil
}
