// ABOUTME: TaskObject implementation for deal follow-up tasks
// ABOUTME: Provides task creation, status transitions, and due date tracking
package objects

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/pipeboard/models"
)

// TaskObject is a follow-up task linked to a deal.
type TaskObject struct {
	BaseObject
}

// Task field keys.
const (
	TaskFieldTitle       = "title"
	TaskFieldStatus      = "status"
	TaskFieldDueAt       = "dueAt"
	TaskFieldCompletedAt = "completedAt"
)

// Task statuses.
const (
	TaskStatusTodo       = "todo"
	TaskStatusInProgress = "in_progress"
	TaskStatusDone       = "done"
	TaskStatusCancelled  = "cancelled"
)

// NewTaskObject creates a todo task for the deal.
func NewTaskObject(dealID uuid.UUID, createdBy, title string, dueAt *time.Time) *TaskObject {
	fields := map[string]interface{}{
		TaskFieldTitle:  title,
		TaskFieldStatus: TaskStatusTodo,
	}
	if dueAt != nil {
		fields[TaskFieldDueAt] = dueAt.UTC().Format(time.RFC3339)
	}

	return &TaskObject{BaseObject: newBase(KindTask, dealID, createdBy, fields)}
}

// AsTask wraps a stored object; it fails when the object is not a task.
func AsTask(obj *BaseObject) (*TaskObject, error) {
	if obj == nil || obj.Kind != KindTask {
		return nil, fmt.Errorf("object is not a task")
	}
	return &TaskObject{BaseObject: *obj}, nil
}

func (t *TaskObject) GetTitle() string {
	return t.stringField(TaskFieldTitle)
}

func (t *TaskObject) GetStatus() string {
	if s := t.stringField(TaskFieldStatus); s != "" {
		return s
	}
	return TaskStatusTodo
}

// TransitionStatus validates and transitions the task status.
func (t *TaskObject) TransitionStatus(newStatus string) error {
	switch newStatus {
	case TaskStatusTodo, TaskStatusInProgress, TaskStatusDone, TaskStatusCancelled:
	default:
		return fmt.Errorf("invalid task status: %s", newStatus)
	}

	oldStatus := t.GetStatus()
	t.Fields[TaskFieldStatus] = newStatus
	t.UpdatedAt = time.Now().UTC()

	// Track completion
	if newStatus == TaskStatusDone && oldStatus != TaskStatusDone {
		t.Fields[TaskFieldCompletedAt] = t.UpdatedAt.Format(time.RFC3339)
	} else if newStatus != TaskStatusDone {
		delete(t.Fields, TaskFieldCompletedAt)
	}
	return nil
}

// GetDueAt returns the due date, or nil if none is set.
func (t *TaskObject) GetDueAt() *time.Time {
	if dueAt, err := time.Parse(time.RFC3339, t.stringField(TaskFieldDueAt)); err == nil {
		return &dueAt
	}
	return nil
}

// GetCompletedAt returns when the task was last marked done.
func (t *TaskObject) GetCompletedAt() *time.Time {
	if at, err := time.Parse(time.RFC3339, t.stringField(TaskFieldCompletedAt)); err == nil {
		return &at
	}
	return nil
}

// IsOverdue returns true if the task is past its due date and still open.
func (t *TaskObject) IsOverdue() bool {
	status := t.GetStatus()
	if status == TaskStatusDone || status == TaskStatusCancelled {
		return false
	}

	dueAt := t.GetDueAt()
	if dueAt == nil {
		return false
	}
	return time.Now().UTC().After(*dueAt)
}

// Model converts the task into its API representation.
func (t *TaskObject) Model() models.Task {
	return models.Task{
		ID:          t.ID,
		Title:       t.GetTitle(),
		Status:      t.GetStatus(),
		DealID:      t.OwnerID,
		DueAt:       t.GetDueAt(),
		Overdue:     t.IsOverdue(),
		CompletedAt: t.GetCompletedAt(),
		CreatedAt:   t.CreatedAt,
	}
}
