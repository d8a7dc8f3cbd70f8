// ABOUTME: Deal database operations
// ABOUTME: Handles deal lifecycle and stage changes, embedding the deal's contact for display
package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/pipeboard/models"
)

const dealSelect = `
	SELECT d.id, d.title, d.value, d.currency, d.priority, d.pipeline_id, d.stage_id, d.contact_id,
		d.created_at, d.updated_at,
		c.name, c.email, c.company, c.phone, c.status
	FROM deals d
	LEFT JOIN contacts c ON c.id = d.contact_id
`

func scanDeal(row interface{ Scan(...any) error }) (*models.Deal, error) {
	deal := &models.Deal{}
	var contactID, name, email, company, phone, status sql.NullString

	err := row.Scan(
		&deal.ID,
		&deal.Title,
		&deal.Value,
		&deal.Currency,
		&deal.Priority,
		&deal.PipelineID,
		&deal.StageID,
		&contactID,
		&deal.CreatedAt,
		&deal.UpdatedAt,
		&name, &email, &company, &phone, &status,
	)
	if err != nil {
		return nil, err
	}

	if contactID.Valid {
		cid, err := uuid.Parse(contactID.String)
		if err == nil {
			deal.ContactID = &cid
			deal.Contact = &models.Contact{
				ID:      cid,
				Name:    name.String,
				Email:   email.String,
				Company: company.String,
				Phone:   phone.String,
				Status:  status.String,
			}
		}
	}
	return deal, nil
}

// CreateDeal places the new deal in the lowest-position stage of its pipeline.
func CreateDeal(ctx context.Context, db *sql.DB, input models.DealInput) (*models.Deal, error) {
	stages, err := ListStages(ctx, db, input.PipelineID)
	if err != nil {
		return nil, err
	}
	if len(stages) == 0 {
		p, err := GetPipeline(ctx, db, input.PipelineID)
		if err != nil {
			return nil, err
		}
		if p == nil {
			return nil, fmt.Errorf("pipeline %s: %w", input.PipelineID, ErrNotFound)
		}
		return nil, fmt.Errorf("pipeline %s has no stages: %w", input.PipelineID, ErrInvalid)
	}

	priority := input.Priority
	if priority == 0 {
		priority = models.PriorityMedium
	}
	currency := input.Currency
	if currency == "" {
		currency = "USD"
	}

	var contactID *string
	if input.ContactID != uuid.Nil {
		s := input.ContactID.String()
		contactID = &s
	}

	id := uuid.New()
	now := time.Now().UTC()
	_, err = db.ExecContext(ctx, `
		INSERT INTO deals (id, title, value, currency, priority, pipeline_id, stage_id, contact_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, id.String(), input.Title, input.Value, currency, int(priority), input.PipelineID.String(),
		stages[0].ID.String(), contactID, now, now)
	if err != nil {
		return nil, translate(err)
	}

	return GetDeal(ctx, db, id)
}

// GetDeal returns nil when the deal does not exist.
func GetDeal(ctx context.Context, db *sql.DB, id uuid.UUID) (*models.Deal, error) {
	deal, err := scanDeal(db.QueryRowContext(ctx, dealSelect+` WHERE d.id = ?`, id.String()))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if deal.Contact != nil {
		tags, err := contactTags(ctx, db)
		if err != nil {
			return nil, err
		}
		deal.Contact.Tags = tags[deal.Contact.ID]
	}
	return deal, nil
}

func ListDeals(ctx context.Context, db *sql.DB, pipelineID uuid.UUID) ([]models.Deal, error) {
	rows, err := db.QueryContext(ctx, dealSelect+`
		WHERE d.pipeline_id = ?
		ORDER BY d.created_at ASC, d.id ASC
	`, pipelineID.String())
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	deals := []models.Deal{}
	for rows.Next() {
		deal, err := scanDeal(rows)
		if err != nil {
			return nil, err
		}
		deals = append(deals, *deal)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	tags, err := contactTags(ctx, db)
	if err != nil {
		return nil, err
	}
	for i := range deals {
		if deals[i].Contact != nil {
			deals[i].Contact.Tags = tags[deals[i].Contact.ID]
		}
	}
	return deals, nil
}

// UpdateDealFields changes the scalar fields only; the stage is left untouched.
func UpdateDealFields(ctx context.Context, db *sql.DB, id uuid.UUID, fields models.DealFields) (*models.Deal, error) {
	priority := fields.Priority
	if priority == 0 {
		priority = models.PriorityMedium
	}

	result, err := db.ExecContext(ctx, `
		UPDATE deals SET title = ?, value = ?, currency = ?, priority = ?, updated_at = ?
		WHERE id = ?
	`, fields.Title, fields.Value, fields.Currency, int(priority), time.Now().UTC(), id.String())
	if err != nil {
		return nil, translate(err)
	}
	if err := affected(result); err != nil {
		return nil, err
	}
	return GetDeal(ctx, db, id)
}

// UpdateDealStage moves a deal to another stage of the same pipeline and
// returns the updated deal along with the stage it left.
func UpdateDealStage(ctx context.Context, db *sql.DB, id, stageID uuid.UUID) (*models.Deal, uuid.UUID, error) {
	deal, err := GetDeal(ctx, db, id)
	if err != nil {
		return nil, uuid.Nil, err
	}
	if deal == nil {
		return nil, uuid.Nil, fmt.Errorf("deal %s: %w", id, ErrNotFound)
	}

	stage, err := GetStage(ctx, db, stageID)
	if err != nil {
		return nil, uuid.Nil, err
	}
	if stage == nil {
		return nil, uuid.Nil, fmt.Errorf("stage %s: %w", stageID, ErrNotFound)
	}
	if stage.PipelineID != deal.PipelineID {
		return nil, uuid.Nil, fmt.Errorf("stage %s is not in pipeline %s: %w", stageID, deal.PipelineID, ErrInvalid)
	}

	from := deal.StageID
	_, err = db.ExecContext(ctx, `UPDATE deals SET stage_id = ?, updated_at = ? WHERE id = ?`,
		stageID.String(), time.Now().UTC(), id.String())
	if err != nil {
		return nil, uuid.Nil, translate(err)
	}

	deal, err = GetDeal(ctx, db, id)
	if err != nil {
		return nil, uuid.Nil, err
	}
	return deal, from, nil
}

func DeleteDeal(ctx context.Context, db *sql.DB, id uuid.UUID) error {
	result, err := db.ExecContext(ctx, `DELETE FROM deals WHERE id = ?`, id.String())
	if err != nil {
		return err
	}
	return affected(result)
}
