// ABOUTME: Pipeline database operations
// ABOUTME: Handles pipeline CRUD and keeps at most one default pipeline
package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/pipeboard/models"
)

func CreatePipeline(ctx context.Context, db *sql.DB, form models.PipelineForm) (*models.Pipeline, error) {
	now := time.Now().UTC()
	p := &models.Pipeline{
		ID:          uuid.New(),
		Name:        form.Name,
		Description: form.Description,
		IsDefault:   form.IsDefault,
		Active:      form.Active,
		Stages:      []models.Stage{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	if p.IsDefault {
		if _, err := tx.ExecContext(ctx, `UPDATE pipelines SET is_default = 0 WHERE is_default = 1`); err != nil {
			return nil, fmt.Errorf("failed to clear default pipeline: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO pipelines (id, name, description, is_default, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, p.ID.String(), p.Name, p.Description, p.IsDefault, p.Active, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return nil, translate(err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return p, nil
}

// GetPipeline returns the pipeline with its stages, or nil when it does not exist.
func GetPipeline(ctx context.Context, db *sql.DB, id uuid.UUID) (*models.Pipeline, error) {
	p := &models.Pipeline{}
	err := db.QueryRowContext(ctx, `
		SELECT id, name, description, is_default, active, created_at, updated_at
		FROM pipelines WHERE id = ?
	`, id.String()).Scan(&p.ID, &p.Name, &p.Description, &p.IsDefault, &p.Active, &p.CreatedAt, &p.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	stages, err := ListStages(ctx, db, p.ID)
	if err != nil {
		return nil, err
	}
	p.Stages = stages
	return p, nil
}

func ListPipelines(ctx context.Context, db *sql.DB) ([]models.Pipeline, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, name, description, is_default, active, created_at, updated_at
		FROM pipelines
		ORDER BY is_default DESC, created_at ASC
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	pipelines := []models.Pipeline{}
	for rows.Next() {
		var p models.Pipeline
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.IsDefault, &p.Active, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		pipelines = append(pipelines, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	byPipeline, err := stagesByPipeline(ctx, db)
	if err != nil {
		return nil, err
	}
	for i := range pipelines {
		pipelines[i].Stages = byPipeline[pipelines[i].ID]
		if pipelines[i].Stages == nil {
			pipelines[i].Stages = []models.Stage{}
		}
	}
	return pipelines, nil
}

func UpdatePipeline(ctx context.Context, db *sql.DB, id uuid.UUID, form models.PipelineForm) (*models.Pipeline, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	if form.IsDefault {
		if _, err := tx.ExecContext(ctx, `UPDATE pipelines SET is_default = 0 WHERE is_default = 1 AND id != ?`, id.String()); err != nil {
			return nil, fmt.Errorf("failed to clear default pipeline: %w", err)
		}
	}

	result, err := tx.ExecContext(ctx, `
		UPDATE pipelines
		SET name = ?, description = ?, is_default = ?, active = ?, updated_at = ?
		WHERE id = ?
	`, form.Name, form.Description, form.IsDefault, form.Active, time.Now().UTC(), id.String())
	if err != nil {
		return nil, translate(err)
	}
	if err := affected(result); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return GetPipeline(ctx, db, id)
}

// DeletePipeline removes the pipeline; its stages and deals cascade.
func DeletePipeline(ctx context.Context, db *sql.DB, id uuid.UUID) error {
	result, err := db.ExecContext(ctx, `DELETE FROM pipelines WHERE id = ?`, id.String())
	if err != nil {
		return err
	}
	return affected(result)
}
