// ABOUTME: Tests for deal database operations
// ABOUTME: Covers placement, stage changes across pipelines, and contact embedding
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

func seedContact(t *testing.T, db *sql.DB, name, email, company string) *models.Contact {
	t.Helper()
	c := &models.Contact{Name: name, Email: email, Company: company}
	require.NoError(t, CreateContact(context.Background(), db, c))
	return c
}

func TestCreateDealPlacesInFirstStage(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	p := seedPipeline(t, db, "Sales", "Lead", "Qualified")
	contact := seedContact(t, db, "Ada", "ada@example.com", "Acme")

	deal, err := CreateDeal(ctx, db, models.DealInput{
		Title:      "Website redesign",
		Value:      500000,
		PipelineID: p.ID,
		ContactID:  contact.ID,
		Priority:   models.PriorityHigh,
	})
	require.NoError(t, err)

	assert.Equal(t, p.Stages[0].ID, deal.StageID)
	assert.Equal(t, "USD", deal.Currency)
	assert.Equal(t, int64(500000), deal.Value)
	assert.Equal(t, models.PriorityHigh, deal.Priority)
	require.NotNil(t, deal.Contact)
	assert.Equal(t, "Acme", deal.Contact.Company)
	assert.Equal(t, models.ContactStatusLead, deal.Contact.Status)
}

func TestCreateDealNeedsStages(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	p := seedPipeline(t, db, "Empty")

	_, err := CreateDeal(ctx, db, models.DealInput{Title: "x", PipelineID: p.ID})
	assert.True(t, errors.Is(err, ErrInvalid))

	_, err = CreateDeal(ctx, db, models.DealInput{Title: "x", PipelineID: uuid.New()})
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestCreateDealRejectsNegativeValue(t *testing.T) {
	db := setupTestDB(t)
	p := seedPipeline(t, db, "Sales", "Lead")

	_, err := CreateDeal(context.Background(), db, models.DealInput{Title: "x", Value: -1, PipelineID: p.ID})
	assert.True(t, errors.Is(err, ErrInvalid), "got %v", err)
}

func TestUpdateDealStage(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	p := seedPipeline(t, db, "Sales", "Lead", "Qualified")
	other := seedPipeline(t, db, "Hiring", "Applied")

	deal, err := CreateDeal(ctx, db, models.DealInput{Title: "Move me", PipelineID: p.ID})
	require.NoError(t, err)

	moved, from, err := UpdateDealStage(ctx, db, deal.ID, p.Stages[1].ID)
	require.NoError(t, err)
	assert.Equal(t, p.Stages[0].ID, from)
	assert.Equal(t, p.Stages[1].ID, moved.StageID)

	_, _, err = UpdateDealStage(ctx, db, deal.ID, other.Stages[0].ID)
	assert.True(t, errors.Is(err, ErrInvalid), "stage from another pipeline must be rejected")

	_, _, err = UpdateDealStage(ctx, db, deal.ID, uuid.New())
	assert.True(t, errors.Is(err, ErrNotFound))

	_, _, err = UpdateDealStage(ctx, db, uuid.New(), p.Stages[0].ID)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestUpdateDealFieldsKeepsStage(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	p := seedPipeline(t, db, "Sales", "Lead", "Qualified")

	deal, err := CreateDeal(ctx, db, models.DealInput{Title: "Old", PipelineID: p.ID})
	require.NoError(t, err)

	updated, err := UpdateDealFields(ctx, db, deal.ID, models.DealFields{Title: "New", Value: 42, Currency: "EUR", Priority: models.PriorityLow})
	require.NoError(t, err)
	assert.Equal(t, "New", updated.Title)
	assert.Equal(t, "EUR", updated.Currency)
	assert.Equal(t, models.PriorityLow, updated.Priority)
	assert.Equal(t, deal.StageID, updated.StageID)

	_, err = UpdateDealFields(ctx, db, uuid.New(), models.DealFields{Title: "x"})
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestListDealsEmbedsContactTags(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	p := seedPipeline(t, db, "Sales", "Lead")
	contact := seedContact(t, db, "Ada", "ada@example.com", "Acme")

	tag := &models.Tag{Name: "vip"}
	require.NoError(t, CreateTag(ctx, db, tag))
	require.NoError(t, TagContact(ctx, db, contact.ID, tag.ID))

	_, err := CreateDeal(ctx, db, models.DealInput{Title: "With contact", PipelineID: p.ID, ContactID: contact.ID})
	require.NoError(t, err)
	_, err = CreateDeal(ctx, db, models.DealInput{Title: "No contact", PipelineID: p.ID})
	require.NoError(t, err)

	deals, err := ListDeals(ctx, db, p.ID)
	require.NoError(t, err)
	require.Len(t, deals, 2)

	var withContact, without *models.Deal
	for i := range deals {
		if deals[i].Contact != nil {
			withContact = &deals[i]
		} else {
			without = &deals[i]
		}
	}
	require.NotNil(t, withContact)
	require.NotNil(t, without)
	assert.True(t, withContact.Contact.HasTag(tag.ID))
	assert.Nil(t, without.ContactID)
}

func TestDeleteContactClearsDealContact(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	p := seedPipeline(t, db, "Sales", "Lead")
	contact := seedContact(t, db, "Ada", "", "")

	deal, err := CreateDeal(ctx, db, models.DealInput{Title: "x", PipelineID: p.ID, ContactID: contact.ID})
	require.NoError(t, err)

	_, err = db.Exec(`DELETE FROM contacts WHERE id = ?`, contact.ID.String())
	require.NoError(t, err)

	got, err := GetDeal(ctx, db, deal.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Contact)
}

func TestDeleteDeal(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	p := seedPipeline(t, db, "Sales", "Lead")

	deal, err := CreateDeal(ctx, db, models.DealInput{Title: "x", PipelineID: p.ID})
	require.NoError(t, err)

	require.NoError(t, DeleteDeal(ctx, db, deal.ID))
	assert.True(t, errors.Is(DeleteDeal(ctx, db, deal.ID), ErrNotFound))
}
