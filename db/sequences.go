// ABOUTME: Outreach sequence and enrollment database operations
// ABOUTME: A contact can be enrolled in a given sequence at most once
package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/pipeboard/models"
)

func CreateSequence(ctx context.Context, db *sql.DB, seq *models.Sequence) error {
	seq.ID = uuid.New()
	seq.CreatedAt = time.Now().UTC()
	if seq.Status == "" {
		seq.Status = models.SequenceStatusDraft
	}

	_, err := db.ExecContext(ctx, `
		INSERT INTO sequences (id, name, status, step_count, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, seq.ID.String(), seq.Name, seq.Status, seq.StepCount, seq.CreatedAt)
	return translate(err)
}

// GetSequence returns nil when the sequence does not exist.
func GetSequence(ctx context.Context, db *sql.DB, id uuid.UUID) (*models.Sequence, error) {
	s := &models.Sequence{}
	err := db.QueryRowContext(ctx, `
		SELECT id, name, status, step_count, created_at FROM sequences WHERE id = ?
	`, id.String()).Scan(&s.ID, &s.Name, &s.Status, &s.StepCount, &s.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// ListSequences returns all sequences, or only those with the given status.
func ListSequences(ctx context.Context, db *sql.DB, status string) ([]models.Sequence, error) {
	var rows *sql.Rows
	var err error

	if status != "" {
		rows, err = db.QueryContext(ctx, `
			SELECT id, name, status, step_count, created_at FROM sequences
			WHERE status = ? ORDER BY name ASC
		`, status)
	} else {
		rows, err = db.QueryContext(ctx, `
			SELECT id, name, status, step_count, created_at FROM sequences
			ORDER BY name ASC
		`)
	}
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	sequences := []models.Sequence{}
	for rows.Next() {
		var s models.Sequence
		if err := rows.Scan(&s.ID, &s.Name, &s.Status, &s.StepCount, &s.CreatedAt); err != nil {
			return nil, err
		}
		sequences = append(sequences, s)
	}
	return sequences, rows.Err()
}

// EnrollContact enrolls a contact into an active sequence on behalf of a deal.
func EnrollContact(ctx context.Context, db *sql.DB, sequenceID, contactID, dealID uuid.UUID) (*models.Enrollment, error) {
	seq, err := GetSequence(ctx, db, sequenceID)
	if err != nil {
		return nil, err
	}
	if seq == nil {
		return nil, fmt.Errorf("sequence %s: %w", sequenceID, ErrNotFound)
	}
	if seq.Status != models.SequenceStatusActive {
		return nil, fmt.Errorf("sequence %q is %s: %w", seq.Name, seq.Status, ErrInvalid)
	}

	e := &models.Enrollment{
		ID:         uuid.New(),
		SequenceID: sequenceID,
		ContactID:  contactID,
		DealID:     dealID,
		EnrolledAt: time.Now().UTC(),
	}

	var deal *string
	if dealID != uuid.Nil {
		s := dealID.String()
		deal = &s
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO enrollments (id, sequence_id, contact_id, deal_id, enrolled_at)
		VALUES (?, ?, ?, ?, ?)
	`, e.ID.String(), e.SequenceID.String(), e.ContactID.String(), deal, e.EnrolledAt)
	if err != nil {
		return nil, translate(err)
	}
	return e, nil
}
