// ABOUTME: Tests for deal timeline activity objects
// ABOUTME: Validates verb and metadata handling across JSON encoding
package objects

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/harperreed/pipeboard/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStageChangeActivity(t *testing.T) {
	dealID := uuid.New()
	from := models.Stage{ID: uuid.New(), Name: "Lead"}
	to := models.Stage{ID: uuid.New(), Name: "Qualified"}

	a := StageChangeActivity(dealID, "bob", from, to)

	assert.Equal(t, KindActivity, a.Kind)
	assert.Equal(t, VerbStageChanged, a.Verb())
	meta := a.Metadata()
	assert.Equal(t, "Lead", meta["from_stage"])
	assert.Equal(t, to.ID.String(), meta["to_stage_id"])
}

func TestActivityMetadataSurvivesJSON(t *testing.T) {
	a := NewActivityObject(uuid.New(), "", VerbEmailSent, map[string]string{"subject": "Hello"})

	data, err := json.Marshal(a.BaseObject)
	require.NoError(t, err)

	var base BaseObject
	require.NoError(t, json.Unmarshal(data, &base))

	decoded, err := AsActivity(&base)
	require.NoError(t, err)

	m := decoded.Model()
	assert.Equal(t, string(VerbEmailSent), m.Verb)
	assert.Equal(t, "Hello", m.Metadata["subject"])
	assert.Equal(t, a.OwnerID, m.DealID)
}
