// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package store provides database access methods for members and
// consultation requests. Each store struct wraps a *sql.DB and exposes
// typed query methods.
package store

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"taxportal/internal/models"
)

const memberColumns = `id, email, password_hash, display_name, phone, company, member_type,
	totp_secret, totp_enabled, profile_completed, created_at, updated_at`

// MemberStore handles all member-related database operations.
type MemberStore struct {
	db *sql.DB
}

// NewMemberStore creates a new MemberStore with the given database connection.
func NewMemberStore(db *sql.DB) *MemberStore {
	return &MemberStore{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMember(row scanner) (*models.Member, error) {
	m := &models.Member{}
	err := row.Scan(
		&m.ID, &m.Email, &m.PasswordHash, &m.DisplayName, &m.Phone, &m.Company, &m.MemberType,
		&m.TOTPSecret, &m.TOTPEnabled, &m.ProfileCompleted, &m.CreatedAt, &m.UpdatedAt,
	)
	return m, err
}

// FindByEmail retrieves a member by e-mail, case-insensitively. Returns
// nil if not found.
func (s *MemberStore) FindByEmail(email string) (*models.Member, error) {
	m, err := scanMember(s.db.QueryRow(
		`SELECT `+memberColumns+` FROM members WHERE email = $1`,
		strings.ToLower(strings.TrimSpace(email)),
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find member by email: %w", err)
	}
	return m, nil
}

// FindByID retrieves a member by UUID. Returns nil if not found.
func (s *MemberStore) FindByID(id uuid.UUID) (*models.Member, error) {
	m, err := scanMember(s.db.QueryRow(`SELECT `+memberColumns+` FROM members WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find member by id: %w", err)
	}
	return m, nil
}

// Create inserts a new member with a bcrypt-hashed password.
func (s *MemberStore) Create(email, password, displayName string, memberType models.MemberType) (*models.Member, error) {
	if !memberType.Valid() {
		return nil, fmt.Errorf("create member: invalid member type %q", memberType)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	m, err := scanMember(s.db.QueryRow(`
		INSERT INTO members (email, password_hash, display_name, member_type)
		VALUES ($1, $2, $3, $4)
		RETURNING `+memberColumns,
		strings.ToLower(strings.TrimSpace(email)), string(hash), displayName, string(memberType),
	))
	if err != nil {
		return nil, fmt.Errorf("create member: %w", err)
	}
	return m, nil
}

// UpdateProfile stores a confirmed profile draft and marks the profile
// completed. A changed member type changes which categories the member
// sees.
func (s *MemberStore) UpdateProfile(id uuid.UUID, d models.ProfileDraft) (*models.Member, error) {
	if !d.MemberType.Valid() {
		return nil, fmt.Errorf("update profile: invalid member type %q", d.MemberType)
	}
	m, err := scanMember(s.db.QueryRow(`
		UPDATE members
		SET display_name = $1, phone = $2, company = $3, member_type = $4,
		    profile_completed = TRUE, updated_at = NOW()
		WHERE id = $5
		RETURNING `+memberColumns,
		d.DisplayName, d.Phone, d.Company, string(d.MemberType), id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return m, nil
}

// SetTOTPSecret saves the TOTP secret for a member (during 2FA setup).
func (s *MemberStore) SetTOTPSecret(id uuid.UUID, secret string) error {
	_, err := s.db.Exec(`
		UPDATE members SET totp_secret = $1, updated_at = NOW() WHERE id = $2
	`, secret, id)
	if err != nil {
		return fmt.Errorf("set totp secret: %w", err)
	}
	return nil
}

// EnableTOTP marks 2FA as active for a member (after successful code verification).
func (s *MemberStore) EnableTOTP(id uuid.UUID) error {
	_, err := s.db.Exec(`
		UPDATE members SET totp_enabled = TRUE, updated_at = NOW() WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("enable totp: %w", err)
	}
	return nil
}

// Delete removes a member by ID.
func (s *MemberStore) Delete(id uuid.UUID) error {
	if _, err := s.db.Exec(`DELETE FROM members WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete member: %w", err)
	}
	return nil
}

// CheckPassword verifies a plaintext password against the member's stored hash.
func (s *MemberStore) CheckPassword(m *models.Member, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(m.PasswordHash), []byte(password)) == nil
}
