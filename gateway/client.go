// ABOUTME: HTTP/JSON client for the pipeboard remote API
// ABOUTME: Implements the board gateways with bearer auth and per-request ids
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/pipeboard/board"
	"github.com/harperreed/pipeboard/models"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

const RequestIDHeader = "X-Request-ID"

var (
	_ board.Gateway         = (*Client)(nil)
	_ board.SequenceGateway = (*Client)(nil)
	_ board.OutreachGateway = (*Client)(nil)
)

// RemoteError is a non-2xx answer from the API.
type RemoteError struct {
	Op      string
	Status  int
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s: remote returned %d: %s", e.Op, e.Status, e.Message)
}

// NotFound reports whether the remote answered 404.
func (e *RemoteError) NotFound() bool { return e.Status == http.StatusNotFound }

// Conflict reports whether the remote answered 409.
func (e *RemoteError) Conflict() bool { return e.Status == http.StatusConflict }

type Client struct {
	baseURL string
	http    *http.Client
	log     zerolog.Logger
}

type Option func(*Client)

func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) { c.log = logger }
}

// New builds a client for baseURL. A non-empty token is sent as a bearer
// token on every request.
func New(baseURL, token string, timeout time.Duration, opts ...Option) *Client {
	hc := &http.Client{Timeout: timeout}
	if token != "" {
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, hc)
		hc = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}))
		hc.Timeout = timeout
	}

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    hc,
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) do(ctx context.Context, op, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: failed to encode request: %w", op, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%s: failed to build request: %w", op, err)
	}
	requestID := ulid.Make().String()
	req.Header.Set(RequestIDHeader, requestID)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn().Err(err).Str("request_id", requestID).Str("method", method).Str("path", path).Msg("request failed")
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	c.log.Debug().
		Str("request_id", requestID).
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("took", time.Since(start)).
		Msg("remote call")

	if resp.StatusCode >= 400 {
		return decodeError(op, resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: failed to decode response: %w", op, err)
	}
	return nil
}

func decodeError(op string, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var payload struct {
		Error string `json:"error"`
	}
	msg := strings.TrimSpace(string(raw))
	if json.Unmarshal(raw, &payload) == nil && payload.Error != "" {
		msg = payload.Error
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &RemoteError{Op: op, Status: resp.StatusCode, Message: msg}
}

// Health checks the unauthenticated liveness endpoint.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, "health", http.MethodGet, "/healthz", nil, nil)
}

func (c *Client) ListPipelines(ctx context.Context) ([]models.Pipeline, error) {
	var out []models.Pipeline
	if err := c.do(ctx, "list pipelines", http.MethodGet, "/api/pipelines", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreatePipeline(ctx context.Context, form models.PipelineForm) (*models.Pipeline, error) {
	var out models.Pipeline
	if err := c.do(ctx, "create pipeline", http.MethodPost, "/api/pipelines", form, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdatePipeline(ctx context.Context, id uuid.UUID, form models.PipelineForm) (*models.Pipeline, error) {
	var out models.Pipeline
	if err := c.do(ctx, "update pipeline", http.MethodPut, "/api/pipelines/"+id.String(), form, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeletePipeline(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, "delete pipeline", http.MethodDelete, "/api/pipelines/"+id.String(), nil, nil)
}

func (c *Client) ListStages(ctx context.Context, pipelineID uuid.UUID) ([]models.Stage, error) {
	var out []models.Stage
	if err := c.do(ctx, "list stages", http.MethodGet, "/api/pipelines/"+pipelineID.String()+"/stages", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateStage(ctx context.Context, pipelineID uuid.UUID, form models.StageForm) (*models.Stage, error) {
	var out models.Stage
	if err := c.do(ctx, "create stage", http.MethodPost, "/api/pipelines/"+pipelineID.String()+"/stages", form, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateStage(ctx context.Context, id uuid.UUID, form models.StageForm) (*models.Stage, error) {
	var out models.Stage
	if err := c.do(ctx, "update stage", http.MethodPut, "/api/stages/"+id.String(), form, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteStage(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, "delete stage", http.MethodDelete, "/api/stages/"+id.String(), nil, nil)
}

func (c *Client) ListDeals(ctx context.Context, pipelineID uuid.UUID) ([]models.Deal, error) {
	var out []models.Deal
	if err := c.do(ctx, "list deals", http.MethodGet, "/api/pipelines/"+pipelineID.String()+"/deals", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateDeal(ctx context.Context, input models.DealInput) (*models.Deal, error) {
	var out models.Deal
	if err := c.do(ctx, "create deal", http.MethodPost, "/api/deals", input, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateDealFields(ctx context.Context, id uuid.UUID, fields models.DealFields) (*models.Deal, error) {
	var out models.Deal
	if err := c.do(ctx, "update deal", http.MethodPatch, "/api/deals/"+id.String(), fields, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateDealStage(ctx context.Context, id, stageID uuid.UUID) (*models.Deal, error) {
	var out models.Deal
	body := models.StageChange{StageID: stageID}
	if err := c.do(ctx, "update deal stage", http.MethodPut, "/api/deals/"+id.String()+"/stage", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteDeal(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, "delete deal", http.MethodDelete, "/api/deals/"+id.String(), nil, nil)
}

func (c *Client) DealActivity(ctx context.Context, id uuid.UUID) ([]models.Activity, error) {
	var out []models.Activity
	if err := c.do(ctx, "deal activity", http.MethodGet, "/api/deals/"+id.String()+"/activity", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListContacts(ctx context.Context, query string) ([]models.Contact, error) {
	path := "/api/contacts"
	if query != "" {
		path += "?q=" + url.QueryEscape(query)
	}
	var out []models.Contact
	if err := c.do(ctx, "list contacts", http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateContact(ctx context.Context, contact models.Contact) (*models.Contact, error) {
	var out models.Contact
	if err := c.do(ctx, "create contact", http.MethodPost, "/api/contacts", contact, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListTags(ctx context.Context) ([]models.Tag, error) {
	var out []models.Tag
	if err := c.do(ctx, "list tags", http.MethodGet, "/api/tags", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateTag(ctx context.Context, tag models.Tag) (*models.Tag, error) {
	var out models.Tag
	if err := c.do(ctx, "create tag", http.MethodPost, "/api/tags", tag, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListSequences lists sequences, optionally only those with the given status.
func (c *Client) ListSequences(ctx context.Context, status string) ([]models.Sequence, error) {
	path := "/api/sequences"
	if status != "" {
		path += "?status=" + url.QueryEscape(status)
	}
	var out []models.Sequence
	if err := c.do(ctx, "list sequences", http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListActiveSequences(ctx context.Context) ([]models.Sequence, error) {
	return c.ListSequences(ctx, models.SequenceStatusActive)
}

func (c *Client) CreateSequence(ctx context.Context, seq models.Sequence) (*models.Sequence, error) {
	var out models.Sequence
	if err := c.do(ctx, "create sequence", http.MethodPost, "/api/sequences", seq, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) EnrollContact(ctx context.Context, sequenceID, contactID, dealID uuid.UUID) (*models.Enrollment, error) {
	body := models.EnrollmentIntent{ContactID: contactID, DealID: dealID}
	var out models.Enrollment
	if err := c.do(ctx, "enroll contact", http.MethodPost, "/api/sequences/"+sequenceID.String()+"/enrollments", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListEmailAccounts(ctx context.Context, contactID uuid.UUID) ([]models.EmailAccount, error) {
	var out []models.EmailAccount
	if err := c.do(ctx, "list email accounts", http.MethodGet, "/api/contacts/"+contactID.String()+"/email-accounts", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) SendEmail(ctx context.Context, msg models.EmailMessage) error {
	return c.do(ctx, "send email", http.MethodPost, "/api/emails", msg, nil)
}

func (c *Client) CreateTask(ctx context.Context, input models.TaskInput) (*models.Task, error) {
	var out models.Task
	if err := c.do(ctx, "create task", http.MethodPost, "/api/tasks", input, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateTaskStatus moves a task to todo, in_progress, done or cancelled.
func (c *Client) UpdateTaskStatus(ctx context.Context, id uuid.UUID, status string) (*models.Task, error) {
	var out models.Task
	if err := c.do(ctx, "update task", http.MethodPatch, "/api/tasks/"+id.String(), models.TaskStatusInput{Status: status}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
