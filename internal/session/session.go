// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package session provides Valkey-backed visitor sessions. Every visitor,
// anonymous or not, gets one; it scopes the cached category hierarchies
// and carries the member's login state and profile draft.
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"taxportal/internal/models"
)

const (
	// CookieName is the name of the session cookie sent to the browser.
	CookieName = "tp_session"

	// DefaultTTL is how long a session lives in Valkey before automatic expiry.
	DefaultTTL = 24 * time.Hour

	// keyPrefix namespaces session keys in Valkey to avoid collisions.
	keyPrefix = "session:"

	// idLength is the byte length of the random session ID (32 bytes = 64 hex chars).
	idLength = 32
)

// ErrNoSession is returned when an operation needs a stored session.
var ErrNoSession = errors.New("session: no session")

// Data holds the session payload stored in Valkey.
type Data struct {
	ID string `json:"-"`

	MemberID    uuid.UUID         `json:"member_id"`
	Email       string            `json:"email,omitempty"`
	DisplayName string            `json:"display_name,omitempty"`
	MemberType  models.MemberType `json:"member_type,omitempty"`
	LoggedIn    bool              `json:"logged_in"`
	Pending2FA  bool              `json:"pending_2fa,omitempty"`

	// Draft is the multi-step profile form in progress.
	Draft *models.ProfileDraft `json:"draft,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Auth derives the auth state navigation filters on. A member whose
// second factor is still pending counts as anonymous.
func (d *Data) Auth() models.AuthState {
	if d == nil || !d.LoggedIn || d.Pending2FA {
		return models.Anonymous()
	}
	return models.AuthState{LoggedIn: true, MemberType: d.MemberType}
}

// SignIn records a successful password check for m.
func (d *Data) SignIn(m *models.Member) {
	d.MemberID = m.ID
	d.Email = m.Email
	d.DisplayName = m.DisplayName
	d.MemberType = m.MemberType
	d.LoggedIn = true
	d.Pending2FA = m.Needs2FA()
	d.Draft = nil
}

// SignOut clears the member identity, keeping the visitor session.
func (d *Data) SignOut() {
	d.MemberID = uuid.Nil
	d.Email = ""
	d.DisplayName = ""
	d.MemberType = ""
	d.LoggedIn = false
	d.Pending2FA = false
	d.Draft = nil
}

// Store manages session lifecycle in Valkey.
type Store struct {
	client *redis.Client
	ttl    time.Duration
	secure bool
}

// NewStore creates a session store backed by the given Valkey client.
// secure marks the cookie Secure and should be set behind TLS.
func NewStore(client *redis.Client, secure bool) *Store {
	return &Store{
		client: client,
		ttl:    DefaultTTL,
		secure: secure,
	}
}

// Create generates a new session, stores it in Valkey, and sets the
// session cookie on the response. data.ID is set to the new ID.
func (s *Store) Create(ctx context.Context, w http.ResponseWriter, data *Data) (string, error) {
	id, err := generateID()
	if err != nil {
		return "", fmt.Errorf("session create: %w", err)
	}

	data.ID = id
	if data.CreatedAt.IsZero() {
		data.CreatedAt = time.Now()
	}
	if err := s.save(ctx, data); err != nil {
		return "", fmt.Errorf("session create: %w", err)
	}

	s.setCookie(w, id, int(s.ttl.Seconds()))
	return id, nil
}

// Get retrieves session data from Valkey using the session ID from the
// request cookie. Returns nil if no valid session exists.
func (s *Store) Get(ctx context.Context, r *http.Request) (*Data, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return nil, nil // No cookie = no session (not an error)
	}
	return s.Load(ctx, cookie.Value)
}

// Load retrieves session data by ID. Returns nil if it does not exist.
func (s *Store) Load(ctx context.Context, id string) (*Data, error) {
	payload, err := s.client.Get(ctx, keyPrefix+id).Bytes()
	if err == redis.Nil {
		return nil, nil // Session expired or doesn't exist
	}
	if err != nil {
		return nil, fmt.Errorf("session get: %w", err)
	}

	var data Data
	if err := json.Unmarshal(payload, &data); err != nil {
		return nil, fmt.Errorf("session unmarshal: %w", err)
	}
	data.ID = id
	return &data, nil
}

// Update replaces the session data in Valkey without changing the
// session ID or cookie. Resets the TTL.
func (s *Store) Update(ctx context.Context, data *Data) error {
	if data == nil || data.ID == "" {
		return fmt.Errorf("session update: %w", ErrNoSession)
	}
	if err := s.save(ctx, data); err != nil {
		return fmt.Errorf("session update: %w", err)
	}
	return nil
}

// Rotate moves data to a fresh session ID, deletes the old entry and
// reissues the cookie. It returns the previous ID. Called on every
// privilege change to prevent session fixation.
func (s *Store) Rotate(ctx context.Context, w http.ResponseWriter, data *Data) (string, error) {
	old := data.ID
	if _, err := s.Create(ctx, w, data); err != nil {
		return "", fmt.Errorf("session rotate: %w", err)
	}
	if old != "" {
		if err := s.client.Del(ctx, keyPrefix+old).Err(); err != nil {
			return old, fmt.Errorf("session rotate: delete old: %w", err)
		}
	}
	return old, nil
}

// Destroy removes the session from Valkey and clears the cookie.
func (s *Store) Destroy(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return nil // No cookie, nothing to destroy
	}

	if err := s.client.Del(ctx, keyPrefix+cookie.Value).Err(); err != nil {
		return fmt.Errorf("session destroy: %w", err)
	}

	// Expire the cookie immediately.
	s.setCookie(w, "", -1)
	return nil
}

func (s *Store) save(ctx context.Context, data *Data) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	return s.client.Set(ctx, keyPrefix+data.ID, payload, s.ttl).Err()
}

func (s *Store) setCookie(w http.ResponseWriter, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	})
}

// generateID creates a cryptographically random session identifier.
func generateID() (string, error) {
	b := make([]byte, idLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
