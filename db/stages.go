// ABOUTME: Stage database operations
// ABOUTME: Stages are ordered by position within their pipeline
package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/harperreed/pipeboard/models"
)

const stageColumns = `id, pipeline_id, name, color, position, probability`

func scanStage(row interface{ Scan(...any) error }, s *models.Stage) error {
	return row.Scan(&s.ID, &s.PipelineID, &s.Name, &s.Color, &s.Position, &s.Probability)
}

func ListStages(ctx context.Context, db *sql.DB, pipelineID uuid.UUID) ([]models.Stage, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT `+stageColumns+`
		FROM stages WHERE pipeline_id = ?
		ORDER BY position ASC, id ASC
	`, pipelineID.String())
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	stages := []models.Stage{}
	for rows.Next() {
		var s models.Stage
		if err := scanStage(rows, &s); err != nil {
			return nil, err
		}
		stages = append(stages, s)
	}
	return stages, rows.Err()
}

func stagesByPipeline(ctx context.Context, db *sql.DB) (map[uuid.UUID][]models.Stage, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT `+stageColumns+`
		FROM stages
		ORDER BY pipeline_id, position ASC, id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := make(map[uuid.UUID][]models.Stage)
	for rows.Next() {
		var s models.Stage
		if err := scanStage(rows, &s); err != nil {
			return nil, err
		}
		out[s.PipelineID] = append(out[s.PipelineID], s)
	}
	return out, rows.Err()
}

// GetStage returns nil when the stage does not exist.
func GetStage(ctx context.Context, db *sql.DB, id uuid.UUID) (*models.Stage, error) {
	s := &models.Stage{}
	err := scanStage(db.QueryRowContext(ctx, `SELECT `+stageColumns+` FROM stages WHERE id = ?`, id.String()), s)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// CreateStage adds a stage to an existing pipeline. A position already taken
// in the pipeline yields ErrConflict.
func CreateStage(ctx context.Context, db *sql.DB, pipelineID uuid.UUID, form models.StageForm) (*models.Stage, error) {
	p, err := GetPipeline(ctx, db, pipelineID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("pipeline %s: %w", pipelineID, ErrNotFound)
	}

	s := &models.Stage{
		ID:          uuid.New(),
		PipelineID:  pipelineID,
		Name:        form.Name,
		Color:       form.Color,
		Position:    form.Position,
		Probability: form.Probability,
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO stages (`+stageColumns+`)
		VALUES (?, ?, ?, ?, ?, ?)
	`, s.ID.String(), s.PipelineID.String(), s.Name, s.Color, s.Position, s.Probability)
	if err != nil {
		return nil, translate(err)
	}
	return s, nil
}

func UpdateStage(ctx context.Context, db *sql.DB, id uuid.UUID, form models.StageForm) (*models.Stage, error) {
	result, err := db.ExecContext(ctx, `
		UPDATE stages SET name = ?, color = ?, position = ?, probability = ?
		WHERE id = ?
	`, form.Name, form.Color, form.Position, form.Probability, id.String())
	if err != nil {
		return nil, translate(err)
	}
	if err := affected(result); err != nil {
		return nil, err
	}
	return GetStage(ctx, db, id)
}

// DeleteStage removes the stage and the deals in it.
func DeleteStage(ctx context.Context, db *sql.DB, id uuid.UUID) error {
	result, err := db.ExecContext(ctx, `DELETE FROM stages WHERE id = ?`, id.String())
	if err != nil {
		return err
	}
	return affected(result)
}
