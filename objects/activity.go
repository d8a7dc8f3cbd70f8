// ABOUTME: Activity object implementation for deal timeline tracking
// ABOUTME: Records stage changes, enrollments, emails and tasks against a deal
package objects

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/pipeboard/models"
)

// ActivityVerb represents the action performed on a deal.
type ActivityVerb string

const (
	VerbCreated      ActivityVerb = "created"
	VerbUpdated      ActivityVerb = "updated"
	VerbStageChanged ActivityVerb = "stage_changed"
	VerbEnrolled     ActivityVerb = "enrolled"
	VerbEmailSent    ActivityVerb = "email_sent"
	VerbTaskCreated  ActivityVerb = "task_created"
	VerbTaskStatus   ActivityVerb = "task_status_changed"
)

const (
	activityFieldVerb     = "verb"
	activityFieldMetadata = "metadata"
)

// ActivityObject is one entry in a deal's timeline.
type ActivityObject struct {
	BaseObject
}

// NewActivityObject creates an activity for the deal.
func NewActivityObject(dealID uuid.UUID, actor string, verb ActivityVerb, metadata map[string]string) *ActivityObject {
	meta := make(map[string]interface{}, len(metadata))
	for k, v := range metadata {
		meta[k] = v
	}

	return &ActivityObject{BaseObject: newBase(KindActivity, dealID, actor, map[string]interface{}{
		activityFieldVerb:     string(verb),
		activityFieldMetadata: meta,
	})}
}

// AsActivity wraps a stored object; it fails when the object is not an activity.
func AsActivity(obj *BaseObject) (*ActivityObject, error) {
	if obj == nil || obj.Kind != KindActivity {
		return nil, fmt.Errorf("object is not an activity")
	}
	return &ActivityObject{BaseObject: *obj}, nil
}

func (a *ActivityObject) Verb() ActivityVerb {
	return ActivityVerb(a.stringField(activityFieldVerb))
}

// Metadata returns the string-valued metadata; other values are dropped.
func (a *ActivityObject) Metadata() map[string]string {
	out := make(map[string]string)
	raw, ok := a.Fields[activityFieldMetadata].(map[string]interface{})
	if !ok {
		return out
	}
	for k, v := range raw {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out
}

// Model converts the activity into its API representation.
func (a *ActivityObject) Model() models.Activity {
	return models.Activity{
		ID:         a.ID,
		DealID:     a.OwnerID,
		Verb:       string(a.Verb()),
		Metadata:   a.Metadata(),
		OccurredAt: a.CreatedAt,
	}
}

// StageChangeActivity is the timeline entry for a deal moving between stages.
func StageChangeActivity(dealID uuid.UUID, actor string, from, to models.Stage) *ActivityObject {
	return NewActivityObject(dealID, actor, VerbStageChanged, map[string]string{
		"from_stage_id": from.ID.String(),
		"from_stage":    from.Name,
		"to_stage_id":   to.ID.String(),
		"to_stage":      to.Name,
		"timestamp":     time.Now().UTC().Format(time.RFC3339),
	})
}
