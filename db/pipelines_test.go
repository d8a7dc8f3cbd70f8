// ABOUTME: Tests for pipeline and stage database operations
// ABOUTME: Covers default uniqueness, position conflicts and cascading deletes
package db

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/harperreed/pipeboard/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedPipeline creates a pipeline with one stage per name, in order.
func seedPipeline(t *testing.T, db *sql.DB, name string, stageNames ...string) *models.Pipeline {
	t.Helper()
	ctx := context.Background()

	p, err := CreatePipeline(ctx, db, models.PipelineForm{Name: name, Active: true})
	require.NoError(t, err)

	for i, sn := range stageNames {
		_, err := CreateStage(ctx, db, p.ID, models.StageForm{Name: sn, Position: i, Probability: i * 10})
		require.NoError(t, err)
	}

	p, err = GetPipeline(ctx, db, p.ID)
	require.NoError(t, err)
	return p
}

func TestCreateAndGetPipeline(t *testing.T) {
	db := setupTestDB(t)
	p := seedPipeline(t, db, "Sales", "Lead", "Qualified", "Won")

	assert.Equal(t, "Sales", p.Name)
	require.Len(t, p.Stages, 3)
	assert.Equal(t, "Lead", p.Stages[0].Name)
	assert.Equal(t, "Won", p.Stages[2].Name)

	missing, err := GetPipeline(context.Background(), db, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestOnlyOneDefaultPipeline(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	first, err := CreatePipeline(ctx, db, models.PipelineForm{Name: "First", IsDefault: true})
	require.NoError(t, err)
	second, err := CreatePipeline(ctx, db, models.PipelineForm{Name: "Second", IsDefault: true})
	require.NoError(t, err)

	got, err := GetPipeline(ctx, db, first.ID)
	require.NoError(t, err)
	assert.False(t, got.IsDefault)

	_, err = UpdatePipeline(ctx, db, first.ID, models.PipelineForm{Name: "First", IsDefault: true})
	require.NoError(t, err)

	got, err = GetPipeline(ctx, db, second.ID)
	require.NoError(t, err)
	assert.False(t, got.IsDefault)

	all, err := ListPipelines(ctx, db)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, first.ID, all[0].ID, "default pipeline is listed first")
}

func TestUpdatePipelineNotFound(t *testing.T) {
	db := setupTestDB(t)
	_, err := UpdatePipeline(context.Background(), db, uuid.New(), models.PipelineForm{Name: "x"})
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestStagePositionConflict(t *testing.T) {
	db := setupTestDB(t)
	p := seedPipeline(t, db, "Sales", "Lead")

	_, err := CreateStage(context.Background(), db, p.ID, models.StageForm{Name: "Dup", Position: 0})
	assert.True(t, errors.Is(err, ErrConflict), "got %v", err)
}

func TestStageValidation(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	p := seedPipeline(t, db, "Sales")

	_, err := CreateStage(ctx, db, p.ID, models.StageForm{Name: "Bad", Position: 0, Probability: 150})
	assert.True(t, errors.Is(err, ErrInvalid), "got %v", err)

	_, err = CreateStage(ctx, db, uuid.New(), models.StageForm{Name: "Orphan"})
	assert.True(t, errors.Is(err, ErrNotFound), "got %v", err)
}

func TestUpdateStage(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	p := seedPipeline(t, db, "Sales", "Lead")

	s, err := UpdateStage(ctx, db, p.Stages[0].ID, models.StageForm{Name: "Inbound", Color: "#00f", Position: 0, Probability: 5})
	require.NoError(t, err)
	assert.Equal(t, "Inbound", s.Name)
	assert.Equal(t, 5, s.Probability)

	_, err = UpdateStage(ctx, db, uuid.New(), models.StageForm{Name: "x"})
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestDeletePipelineCascades(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	p := seedPipeline(t, db, "Sales", "Lead", "Won")
	contact := seedContact(t, db, "Ada", "ada@example.com", "Acme")

	deal, err := CreateDeal(ctx, db, models.DealInput{Title: "Big", PipelineID: p.ID, ContactID: contact.ID})
	require.NoError(t, err)

	require.NoError(t, DeletePipeline(ctx, db, p.ID))

	stages, err := ListStages(ctx, db, p.ID)
	require.NoError(t, err)
	assert.Empty(t, stages)

	got, err := GetDeal(ctx, db, deal.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	assert.True(t, errors.Is(DeletePipeline(ctx, db, p.ID), ErrNotFound))
}

func TestDeleteStageCascadesDeals(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	p := seedPipeline(t, db, "Sales", "Lead", "Won")

	deal, err := CreateDeal(ctx, db, models.DealInput{Title: "Small", PipelineID: p.ID})
	require.NoError(t, err)
	require.Equal(t, p.Stages[0].ID, deal.StageID)

	require.NoError(t, DeleteStage(ctx, db, p.Stages[0].ID))

	got, err := GetDeal(ctx, db, deal.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}
