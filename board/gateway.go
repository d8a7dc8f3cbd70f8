// ABOUTME: Remote collaborators the board engine depends on
// ABOUTME: Narrow interfaces so the engine can run against HTTP or test fakes
package board

import (
	"context"

	"github.com/google/uuid"
	"github.com/harperreed/pipeboard/models"
)

// Gateway is the authoritative store of pipelines, stages and deals.
type Gateway interface {
	ListPipelines(ctx context.Context) ([]models.Pipeline, error)
	CreatePipeline(ctx context.Context, form models.PipelineForm) (*models.Pipeline, error)
	UpdatePipeline(ctx context.Context, id uuid.UUID, form models.PipelineForm) (*models.Pipeline, error)
	DeletePipeline(ctx context.Context, id uuid.UUID) error

	CreateStage(ctx context.Context, pipelineID uuid.UUID, form models.StageForm) (*models.Stage, error)
	UpdateStage(ctx context.Context, id uuid.UUID, form models.StageForm) (*models.Stage, error)
	DeleteStage(ctx context.Context, id uuid.UUID) error

	ListDeals(ctx context.Context, pipelineID uuid.UUID) ([]models.Deal, error)
	CreateDeal(ctx context.Context, input models.DealInput) (*models.Deal, error)
	UpdateDealFields(ctx context.Context, id uuid.UUID, fields models.DealFields) (*models.Deal, error)
	UpdateDealStage(ctx context.Context, id, stageID uuid.UUID) (*models.Deal, error)
	DeleteDeal(ctx context.Context, id uuid.UUID) error
}

// SequenceGateway lists outreach sequences and enrolls contacts.
type SequenceGateway interface {
	ListActiveSequences(ctx context.Context) ([]models.Sequence, error)
	EnrollContact(ctx context.Context, sequenceID, contactID, dealID uuid.UUID) (*models.Enrollment, error)
}

// OutreachGateway sends email and manages follow-up tasks.
type OutreachGateway interface {
	ListEmailAccounts(ctx context.Context, contactID uuid.UUID) ([]models.EmailAccount, error)
	SendEmail(ctx context.Context, msg models.EmailMessage) error
	CreateTask(ctx context.Context, input models.TaskInput) (*models.Task, error)
	UpdateTaskStatus(ctx context.Context, id uuid.UUID, status string) (*models.Task, error)
}
