// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package database

import (
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"taxportal/internal/models"
)

// SeedPassword is the password of every development member.
const SeedPassword = "member"

// SeedEmail returns the e-mail of the development member of type t.
func SeedEmail(t models.MemberType) string {
	return strings.ToLower(string(t)) + "@taxportal.local"
}

// Seed populates the database with one member of each member type so
// every visibility tier can be exercised locally. Existing members are
// left alone.
func Seed(db *sql.DB) error {
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM members").Scan(&count); err != nil {
		return fmt.Errorf("seed check members: %w", err)
	}

	if count > 0 {
		slog.Info("database already seeded, skipping")
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(SeedPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("seed bcrypt: %w", err)
	}

	for _, t := range models.MemberTypes {
		_, err = db.Exec(`
			INSERT INTO members (email, password_hash, display_name, member_type, profile_completed)
			VALUES ($1, $2, $3, $4, TRUE)
			ON CONFLICT (email) DO NOTHING
		`, SeedEmail(t), string(hash), t.Label()+" Member", string(t))
		if err != nil {
			return fmt.Errorf("seed insert %s member: %w", t, err)
		}
		slog.Info("seeded member", "email", SeedEmail(t), "member_type", t)
	}

	slog.Info("database seeded", "password", SeedPassword)
	return nil
}
