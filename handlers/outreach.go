// ABOUTME: Outreach MCP tools for a deal's contact
// ABOUTME: Implements enroll_deal, send_email, create_task and update_task
package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/pipeboard/board"
	"github.com/harperreed/pipeboard/models"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type EnrollDealInput struct {
	DealID     string `json:"deal_id" jsonschema:"UUID of the deal whose contact is enrolled (required)"`
	SequenceID string `json:"sequence_id,omitempty" jsonschema:"UUID of an active sequence; omit to list the choices"`
}

type SequenceOutput struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	StepCount int    `json:"step_count"`
}

type EnrollDealOutput struct {
	// Status is one of choose, create_sequence, enrolled or partial.
	Status    string           `json:"status"`
	Sequences []SequenceOutput `json:"sequences,omitempty"`
	NextStage string           `json:"next_stage,omitempty"`
	Contact   string           `json:"contact,omitempty"`
	Deal      *DealOutput      `json:"deal,omitempty"`
	Notice    *NoticeOutput    `json:"notice,omitempty"`
}

func (h *BoardHandlers) EnrollDeal(ctx context.Context, request *mcp.CallToolRequest, input EnrollDealInput) (*mcp.CallToolResult, EnrollDealOutput, error) {
	dealID, err := parseID("deal_id", input.DealID)
	if err != nil {
		return nil, EnrollDealOutput{}, err
	}
	sequenceID, err := parseOptionalID("sequence_id", input.SequenceID)
	if err != nil {
		return nil, EnrollDealOutput{}, err
	}

	prompt, err := h.seqs.Prepare(ctx, dealID)
	if err != nil {
		return nil, EnrollDealOutput{}, h.failure(err)
	}

	if prompt.Kind == board.PromptRedirect {
		r := prompt.Redirect
		return nil, EnrollDealOutput{
			Status:  "create_sequence",
			Contact: fmt.Sprintf("%s <%s>", r.ContactName, r.ContactEmail),
			Notice:  noticeToOutput(h.store.Snapshot().Notice),
		}, nil
	}

	if sequenceID == uuid.Nil {
		out := EnrollDealOutput{Status: "choose"}
		for _, s := range prompt.Sequences {
			out.Sequences = append(out.Sequences, SequenceOutput{ID: s.ID.String(), Name: s.Name, StepCount: s.StepCount})
		}
		if prompt.NextStage != nil {
			out.NextStage = prompt.NextStage.Name
		}
		return nil, out, nil
	}

	outcome, err := h.seqs.Enroll(ctx, models.EnrollmentIntent{
		DealID:     prompt.DealID,
		ContactID:  prompt.ContactID,
		SequenceID: sequenceID,
	})
	if err != nil {
		return nil, EnrollDealOutput{}, h.failure(err)
	}

	r := h.dealResult(dealID)
	out := EnrollDealOutput{Status: "enrolled", Deal: &r.Deal, Notice: r.Notice}
	if outcome.Partial() {
		out.Status = "partial"
	}
	if outcome.Stage != nil {
		out.NextStage = outcome.Stage.Name
	}
	return nil, out, nil
}

type SendEmailInput struct {
	DealID  string `json:"deal_id" jsonschema:"UUID of the deal whose contact is emailed (required)"`
	Subject string `json:"subject" jsonschema:"Email subject (required)"`
	Body    string `json:"body,omitempty" jsonschema:"Plain text body"`
}

type OutreachOutput struct {
	Notice     *NoticeOutput `json:"notice,omitempty"`
	TaskID     string        `json:"task_id,omitempty"`
	TaskStatus string        `json:"task_status,omitempty"`
	Overdue    bool          `json:"overdue,omitempty"`
}

func (h *BoardHandlers) SendEmail(ctx context.Context, request *mcp.CallToolRequest, input SendEmailInput) (*mcp.CallToolResult, OutreachOutput, error) {
	dealID, err := parseID("deal_id", input.DealID)
	if err != nil {
		return nil, OutreachOutput{}, err
	}
	if err := h.outreach.SendEmail(ctx, dealID, input.Subject, input.Body); err != nil {
		return nil, OutreachOutput{}, h.failure(err)
	}
	return nil, OutreachOutput{Notice: noticeToOutput(h.store.Snapshot().Notice)}, nil
}

type CreateTaskInput struct {
	DealID string `json:"deal_id" jsonschema:"UUID of the deal (required)"`
	Title  string `json:"title" jsonschema:"Task title (required)"`
	DueAt  string `json:"due_at,omitempty" jsonschema:"Due time in ISO 8601 format"`
}

func (h *BoardHandlers) CreateTask(ctx context.Context, request *mcp.CallToolRequest, input CreateTaskInput) (*mcp.CallToolResult, OutreachOutput, error) {
	dealID, err := parseID("deal_id", input.DealID)
	if err != nil {
		return nil, OutreachOutput{}, err
	}
	var due *time.Time
	if input.DueAt != "" {
		t, err := time.Parse(time.RFC3339, input.DueAt)
		if err != nil {
			return nil, OutreachOutput{}, fmt.Errorf("invalid due_at format (use ISO 8601/RFC3339): %w", err)
		}
		due = &t
	}

	task, err := h.outreach.CreateTask(ctx, dealID, input.Title, due)
	if err != nil {
		return nil, OutreachOutput{}, h.failure(err)
	}
	return nil, OutreachOutput{TaskID: task.ID.String(), Notice: noticeToOutput(h.store.Snapshot().Notice)}, nil
}

type UpdateTaskInput struct {
	TaskID string `json:"task_id" jsonschema:"UUID of the task (required)"`
	Status string `json:"status" jsonschema:"New status: todo, in_progress, done or cancelled (required)"`
}

func (h *BoardHandlers) UpdateTask(ctx context.Context, request *mcp.CallToolRequest, input UpdateTaskInput) (*mcp.CallToolResult, OutreachOutput, error) {
	taskID, err := parseID("task_id", input.TaskID)
	if err != nil {
		return nil, OutreachOutput{}, err
	}
	task, err := h.outreach.SetTaskStatus(ctx, taskID, input.Status)
	if err != nil {
		return nil, OutreachOutput{}, h.failure(err)
	}
	return nil, OutreachOutput{
		TaskID:     task.ID.String(),
		TaskStatus: task.Status,
		Overdue:    task.Overdue,
		Notice:     noticeToOutput(h.store.Snapshot().Notice),
	}, nil
}
