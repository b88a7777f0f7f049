// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package models defines the data structures that map to database tables
// and CMS payloads, plus the navigation types shared across packages.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Member is a member-portal account. MemberType decides which restricted
// categories the member can see once logged in.
type Member struct {
	ID               uuid.UUID  `json:"id"`
	Email            string     `json:"email"`
	PasswordHash     string     `json:"-"` // Never serialize the hash
	DisplayName      string     `json:"display_name"`
	Phone            string     `json:"phone"`
	Company          string     `json:"company"`
	MemberType       MemberType `json:"member_type"`
	TOTPSecret       *string    `json:"-"` // Nullable; set during 2FA setup
	TOTPEnabled      bool       `json:"totp_enabled"`
	ProfileCompleted bool       `json:"profile_completed"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// Needs2FA reports whether logging in requires a TOTP code.
// Unlike staff accounts, members opt in to the second factor.
func (m *Member) Needs2FA() bool {
	return m.TOTPEnabled && m.TOTPSecret != nil
}

// Auth returns the auth state the member gets once fully logged in.
func (m *Member) Auth() AuthState {
	return AuthState{LoggedIn: true, MemberType: m.MemberType}
}

// ProfileDraft accumulates the answers of the multi-step profile flow
// until the member confirms them on the last step.
type ProfileDraft struct {
	DisplayName string     `json:"display_name"`
	Phone       string     `json:"phone"`
	MemberType  MemberType `json:"member_type"`
	Company     string     `json:"company"`
	Step        int        `json:"step"` // highest completed step
}

// ProfileSteps is the number of steps in the profile flow.
const ProfileSteps = 3

// Consultation status values.
const (
	ConsultationNew       = "new"
	ConsultationContacted = "contacted"
	ConsultationClosed    = "closed"
)

// Consultation is a consultation request submitted through the public form.
type Consultation struct {
	ID           uuid.UUID  `json:"id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	Phone        string     `json:"phone"`
	Company      string     `json:"company"`
	BusinessArea string     `json:"business_area"`
	Message      string     `json:"message"`
	Consent      bool       `json:"consent"`
	Status       string     `json:"status"`
	MemberID     *uuid.UUID `json:"member_id,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}
