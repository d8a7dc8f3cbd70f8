// ABOUTME: Core object types for records that hang off a deal
// ABOUTME: Defines BaseObject, the generic shape stored in the objects table
package objects

import (
	"time"

	"github.com/google/uuid"
)

// BaseObject is a loosely-typed record attached to an owner (usually a deal).
// Kind-specific data lives in Fields.
type BaseObject struct {
	ID        uuid.UUID              `json:"id"`
	Kind      string                 `json:"kind"`
	OwnerID   uuid.UUID              `json:"owner_id"`
	CreatedAt time.Time              `json:"created_at"`
	UpdatedAt time.Time              `json:"updated_at"`
	CreatedBy string                 `json:"created_by,omitempty"`
	Fields    map[string]interface{} `json:"fields"`
}

// Object kinds.
const (
	KindTask     = "task"
	KindActivity = "activity"
)

func newBase(kind string, ownerID uuid.UUID, createdBy string, fields map[string]interface{}) BaseObject {
	now := time.Now().UTC()
	return BaseObject{
		ID:        uuid.New(),
		Kind:      kind,
		OwnerID:   ownerID,
		CreatedAt: now,
		UpdatedAt: now,
		CreatedBy: createdBy,
		Fields:    fields,
	}
}

// stringField reads a string field, tolerating values decoded from JSON.
func (b *BaseObject) stringField(key string) string {
	if s, ok := b.Fields[key].(string); ok {
		return s
	}
	return ""
}
