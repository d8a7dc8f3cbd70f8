// ABOUTME: Data models for pipeline board entities
// ABOUTME: Defines Pipeline, Stage, Deal, Contact, Tag, Sequence and the forms sent to the remote API
package models

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Pipeline struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	IsDefault   bool      `json:"is_default"`
	Active      bool      `json:"active"`
	Stages      []Stage   `json:"stages"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// OrderedStages returns a copy of the pipeline's stages sorted by position.
func (p *Pipeline) OrderedStages() []Stage {
	return SortStages(p.Stages)
}

// HasStage reports whether the stage id belongs to this pipeline.
func (p *Pipeline) HasStage(id uuid.UUID) bool {
	for _, s := range p.Stages {
		if s.ID == id {
			return true
		}
	}
	return false
}

// FindStage returns the stage with the given id, or nil.
func (p *Pipeline) FindStage(id uuid.UUID) *Stage {
	for i := range p.Stages {
		if p.Stages[i].ID == id {
			return &p.Stages[i]
		}
	}
	return nil
}

type Stage struct {
	ID          uuid.UUID `json:"id"`
	PipelineID  uuid.UUID `json:"pipeline_id"`
	Name        string    `json:"name"`
	Color       string    `json:"color,omitempty"`
	Position    int       `json:"position"`
	Probability int       `json:"probability"`
}

// SortStages returns a copy of stages ordered by position, ties broken by id.
func SortStages(stages []Stage) []Stage {
	out := make([]Stage, len(stages))
	copy(out, stages)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

// Priority of a deal. Lower is more urgent.
type Priority int

const (
	PriorityHigh   Priority = 1
	PriorityMedium Priority = 2
	PriorityLow    Priority = 3
)

func (p Priority) Valid() bool {
	return p >= PriorityHigh && p <= PriorityLow
}

func (p Priority) String() string {
	switch p {
	case PriorityHigh:
		return "high"
	case PriorityMedium:
		return "medium"
	case PriorityLow:
		return "low"
	}
	return "unknown"
}

// ParsePriority accepts "high", "medium", "low" or the numeric form.
func ParsePriority(s string) (Priority, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "high":
		return PriorityHigh, true
	case "2", "medium", "":
		return PriorityMedium, true
	case "3", "low":
		return PriorityLow, true
	}
	return 0, false
}

type Deal struct {
	ID         uuid.UUID  `json:"id"`
	Title      string     `json:"title"`
	Value      int64      `json:"value"` // in minor units (cents)
	Currency   string     `json:"currency"`
	Priority   Priority   `json:"priority"`
	StageID    uuid.UUID  `json:"stage_id"`
	PipelineID uuid.UUID  `json:"pipeline_id"`
	ContactID  *uuid.UUID `json:"contact_id,omitempty"`
	Contact    *Contact   `json:"contact,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Lifecycle statuses for contacts.
const (
	ContactStatusLead     = "lead"
	ContactStatusProspect = "prospect"
	ContactStatusCustomer = "customer"
	ContactStatusChurned  = "churned"
)

type Contact struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	Email   string    `json:"email,omitempty"`
	Company string    `json:"company,omitempty"`
	Phone   string    `json:"phone,omitempty"`
	Status  string    `json:"status,omitempty"`
	Tags    []Tag     `json:"tags,omitempty"`
}

// HasTag reports whether the contact carries the tag.
func (c *Contact) HasTag(id uuid.UUID) bool {
	for _, t := range c.Tags {
		if t.ID == id {
			return true
		}
	}
	return false
}

type Tag struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Color string    `json:"color,omitempty"`
}

// Sequence statuses.
const (
	SequenceStatusDraft    = "draft"
	SequenceStatusActive   = "active"
	SequenceStatusPaused   = "paused"
	SequenceStatusArchived = "archived"
)

type Sequence struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	StepCount int       `json:"step_count"`
	CreatedAt time.Time `json:"created_at"`
}

type Enrollment struct {
	ID         uuid.UUID `json:"id"`
	SequenceID uuid.UUID `json:"sequence_id"`
	ContactID  uuid.UUID `json:"contact_id"`
	DealID     uuid.UUID `json:"deal_id"`
	EnrolledAt time.Time `json:"enrolled_at"`
}

// EnrollmentIntent is built and consumed within a single user action.
type EnrollmentIntent struct {
	DealID     uuid.UUID `json:"deal_id"`
	ContactID  uuid.UUID `json:"contact_id"`
	SequenceID uuid.UUID `json:"sequence_id"`
}

// FilterCriteria narrows the visible deals on the board.
type FilterCriteria struct {
	Search  string    `json:"search,omitempty"`
	Company string    `json:"company,omitempty"`
	Status  string    `json:"status,omitempty"`
	TagID   uuid.UUID `json:"tag_id,omitempty"`
}

func (c FilterCriteria) HasFilters() bool {
	return strings.TrimSpace(c.Search) != "" ||
		strings.TrimSpace(c.Company) != "" ||
		strings.TrimSpace(c.Status) != "" ||
		c.TagID != uuid.Nil
}

// DealInput is the create-deal request body.
type DealInput struct {
	Title      string    `json:"title"`
	Value      int64     `json:"value"`
	Currency   string    `json:"currency"`
	ContactID  uuid.UUID `json:"contact_id"`
	PipelineID uuid.UUID `json:"pipeline_id"`
	Priority   Priority  `json:"priority"`
}

// DealFields is the scalar update body; the stage is changed through its own endpoint.
type DealFields struct {
	Title    string   `json:"title"`
	Value    int64    `json:"value"`
	Currency string   `json:"currency"`
	Priority Priority `json:"priority"`
}

// DealPatch is what an edit form submits: scalar fields plus the selected stage.
type DealPatch struct {
	DealFields
	StageID uuid.UUID `json:"stage_id"`
}

type StageChange struct {
	StageID uuid.UUID `json:"stage_id"`
}

type PipelineForm struct {
	ID          uuid.UUID `json:"-"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	IsDefault   bool      `json:"is_default"`
	Active      bool      `json:"active"`
}

type StageForm struct {
	ID          uuid.UUID `json:"-"`
	Name        string    `json:"name"`
	Color       string    `json:"color"`
	Position    int       `json:"position"`
	Probability int       `json:"probability"`
}

type EmailAccount struct {
	ID          uuid.UUID  `json:"id"`
	Address     string     `json:"address"`
	DisplayName string     `json:"display_name,omitempty"`
	Provider    string     `json:"provider"`
	LastUsedAt  *time.Time `json:"last_used_at,omitempty"` // last correspondence with the queried contact
}

type EmailMessage struct {
	AccountID uuid.UUID `json:"account_id"`
	ContactID uuid.UUID `json:"contact_id"`
	DealID    uuid.UUID `json:"deal_id"`
	To        string    `json:"to"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
}

type TaskInput struct {
	Title  string     `json:"title"`
	DealID uuid.UUID  `json:"deal_id"`
	DueAt  *time.Time `json:"due_at,omitempty"`
}

type Task struct {
	ID          uuid.UUID  `json:"id"`
	Title       string     `json:"title"`
	Status      string     `json:"status"`
	DealID      uuid.UUID  `json:"deal_id"`
	DueAt       *time.Time `json:"due_at,omitempty"`
	Overdue     bool       `json:"overdue"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// ValidTaskStatus reports whether status is one a task can move to.
func ValidTaskStatus(status string) bool {
	switch status {
	case "todo", "in_progress", "done", "cancelled":
		return true
	}
	return false
}

// TaskStatusInput changes a task's status: todo, in_progress, done or cancelled.
type TaskStatusInput struct {
	Status string `json:"status"`
}

// Activity is one entry of a deal's timeline.
type Activity struct {
	ID         uuid.UUID         `json:"id"`
	DealID     uuid.UUID         `json:"deal_id"`
	Verb       string            `json:"verb"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}
