// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"taxportal/internal/models"
)

const consultationColumns = `id, name, email, phone, company, business_area, message,
	consent, status, member_id, created_at`

// ConsultationStore handles consultation request persistence.
type ConsultationStore struct {
	db *sql.DB
}

// NewConsultationStore creates a new ConsultationStore.
func NewConsultationStore(db *sql.DB) *ConsultationStore {
	return &ConsultationStore{db: db}
}

func scanConsultation(row scanner) (*models.Consultation, error) {
	c := &models.Consultation{}
	err := row.Scan(
		&c.ID, &c.Name, &c.Email, &c.Phone, &c.Company, &c.BusinessArea, &c.Message,
		&c.Consent, &c.Status, &c.MemberID, &c.CreatedAt,
	)
	return c, err
}

// Create stores a new consultation request with status "new".
func (s *ConsultationStore) Create(c *models.Consultation) (*models.Consultation, error) {
	out, err := scanConsultation(s.db.QueryRow(`
		INSERT INTO consultations (name, email, phone, company, business_area, message, consent, status, member_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+consultationColumns,
		c.Name, c.Email, c.Phone, c.Company, c.BusinessArea, c.Message, c.Consent,
		models.ConsultationNew, c.MemberID,
	))
	if err != nil {
		return nil, fmt.Errorf("create consultation: %w", err)
	}
	return out, nil
}

// FindByID retrieves a consultation by UUID. Returns nil if not found.
func (s *ConsultationStore) FindByID(id uuid.UUID) (*models.Consultation, error) {
	c, err := scanConsultation(s.db.QueryRow(
		`SELECT `+consultationColumns+` FROM consultations WHERE id = $1`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find consultation: %w", err)
	}
	return c, nil
}

// ListRecent returns the newest consultations, at most limit of them.
func (s *ConsultationStore) ListRecent(limit int) ([]models.Consultation, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(
		`SELECT `+consultationColumns+` FROM consultations ORDER BY created_at DESC LIMIT $1`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list consultations: %w", err)
	}
	defer rows.Close()

	var out []models.Consultation
	for rows.Next() {
		c, err := scanConsultation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan consultation: %w", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}
