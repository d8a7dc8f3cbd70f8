package board

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/pipeboard/models"
	"github.com/stretchr/testify/require"
)

var errRemote = errors.New("remote said no")

// fakeGateway is an in-memory remote with call counting and failure hooks.
type fakeGateway struct {
	mu        sync.Mutex
	pipelines []models.Pipeline
	deals     []models.Deal
	sequences []models.Sequence
	accounts  []models.EmailAccount
	sent      []models.EmailMessage
	enrolled  []models.EnrollmentIntent
	tasks     []models.Task

	calls map[string]int
	fail  map[string]error

	// stageHook runs before a stage change is applied; an error rejects it.
	stageHook func(dealID, stageID uuid.UUID) error
	// listDealsHook runs before deals are returned.
	listDealsHook func(pipelineID uuid.UUID)
	// listedHook runs after the list is read and before it is returned.
	listedHook func(pipelineID uuid.UUID)
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{calls: make(map[string]int), fail: make(map[string]error)}
}

func (f *fakeGateway) record(op string) error {
	f.calls[op]++
	return f.fail[op]
}

func (f *fakeGateway) called(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeGateway) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *fakeGateway) failOn(op string, err error) {
	f.mu.Lock()
	f.fail[op] = err
	f.mu.Unlock()
}

func (f *fakeGateway) serverDeal(id uuid.UUID) (models.Deal, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, d := range f.deals {
		if d.ID == id {
			return d, true
		}
	}
	return models.Deal{}, false
}

// setServerStage moves a deal remotely, as another session would.
func (f *fakeGateway) setServerStage(id, stageID uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.deals {
		if f.deals[i].ID == id {
			f.deals[i].StageID = stageID
		}
	}
}

func (f *fakeGateway) ListPipelines(ctx context.Context) ([]models.Pipeline, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("ListPipelines"); err != nil {
		return nil, err
	}
	out := make([]models.Pipeline, len(f.pipelines))
	for i, p := range f.pipelines {
		out[i] = clonePipeline(p)
	}
	return out, nil
}

func (f *fakeGateway) CreatePipeline(ctx context.Context, form models.PipelineForm) (*models.Pipeline, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("CreatePipeline"); err != nil {
		return nil, err
	}
	p := models.Pipeline{ID: uuid.New(), Name: form.Name, Active: form.Active, IsDefault: form.IsDefault}
	f.pipelines = append(f.pipelines, p)
	return &p, nil
}

func (f *fakeGateway) UpdatePipeline(ctx context.Context, id uuid.UUID, form models.PipelineForm) (*models.Pipeline, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("UpdatePipeline"); err != nil {
		return nil, err
	}
	for i := range f.pipelines {
		if f.pipelines[i].ID == id {
			f.pipelines[i].Name = form.Name
			p := clonePipeline(f.pipelines[i])
			return &p, nil
		}
	}
	return nil, errRemote
}

func (f *fakeGateway) DeletePipeline(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("DeletePipeline"); err != nil {
		return err
	}
	kept := f.pipelines[:0]
	for _, p := range f.pipelines {
		if p.ID != id {
			kept = append(kept, p)
		}
	}
	f.pipelines = kept
	return nil
}

func (f *fakeGateway) CreateStage(ctx context.Context, pipelineID uuid.UUID, form models.StageForm) (*models.Stage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("CreateStage"); err != nil {
		return nil, err
	}
	s := models.Stage{ID: uuid.New(), PipelineID: pipelineID, Name: form.Name, Position: form.Position, Probability: form.Probability}
	for i := range f.pipelines {
		if f.pipelines[i].ID == pipelineID {
			f.pipelines[i].Stages = append(f.pipelines[i].Stages, s)
		}
	}
	return &s, nil
}

func (f *fakeGateway) UpdateStage(ctx context.Context, id uuid.UUID, form models.StageForm) (*models.Stage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("UpdateStage"); err != nil {
		return nil, err
	}
	for i := range f.pipelines {
		for j := range f.pipelines[i].Stages {
			if f.pipelines[i].Stages[j].ID == id {
				f.pipelines[i].Stages[j].Name = form.Name
				s := f.pipelines[i].Stages[j]
				return &s, nil
			}
		}
	}
	return nil, errRemote
}

func (f *fakeGateway) DeleteStage(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("DeleteStage"); err != nil {
		return err
	}
	for i := range f.pipelines {
		var kept []models.Stage
		for _, s := range f.pipelines[i].Stages {
			if s.ID != id {
				kept = append(kept, s)
			}
		}
		f.pipelines[i].Stages = kept
	}
	var deals []models.Deal
	for _, d := range f.deals {
		if d.StageID != id {
			deals = append(deals, d)
		}
	}
	f.deals = deals
	return nil
}

func (f *fakeGateway) ListDeals(ctx context.Context, pipelineID uuid.UUID) ([]models.Deal, error) {
	f.mu.Lock()
	hook := f.listDealsHook
	f.mu.Unlock()
	if hook != nil {
		hook(pipelineID)
	}

	f.mu.Lock()
	if err := f.record("ListDeals"); err != nil {
		f.mu.Unlock()
		return nil, err
	}
	out := []models.Deal{}
	for _, d := range f.deals {
		if d.PipelineID == pipelineID {
			out = append(out, d)
		}
	}
	listed := f.listedHook
	f.mu.Unlock()
	if listed != nil {
		listed(pipelineID)
	}
	return out, nil
}

func (f *fakeGateway) CreateDeal(ctx context.Context, in models.DealInput) (*models.Deal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("CreateDeal"); err != nil {
		return nil, err
	}
	var first uuid.UUID
	for _, p := range f.pipelines {
		if p.ID == in.PipelineID && len(p.Stages) > 0 {
			first = models.SortStages(p.Stages)[0].ID
		}
	}
	cid := in.ContactID
	d := models.Deal{ID: uuid.New(), Title: in.Title, Value: in.Value, Priority: in.Priority,
		PipelineID: in.PipelineID, StageID: first, ContactID: &cid}
	f.deals = append(f.deals, d)
	return &d, nil
}

func (f *fakeGateway) UpdateDealFields(ctx context.Context, id uuid.UUID, fields models.DealFields) (*models.Deal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("UpdateDealFields"); err != nil {
		return nil, err
	}
	for i := range f.deals {
		if f.deals[i].ID == id {
			f.deals[i].Title = fields.Title
			f.deals[i].Value = fields.Value
			f.deals[i].Currency = fields.Currency
			f.deals[i].Priority = fields.Priority
			d := f.deals[i]
			return &d, nil
		}
	}
	return nil, errRemote
}

func (f *fakeGateway) UpdateDealStage(ctx context.Context, id, stageID uuid.UUID) (*models.Deal, error) {
	f.mu.Lock()
	hook := f.stageHook
	f.calls["UpdateDealStage"]++
	failErr := f.fail["UpdateDealStage"]
	f.mu.Unlock()

	if failErr != nil {
		return nil, failErr
	}
	if hook != nil {
		if err := hook(id, stageID); err != nil {
			return nil, err
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.deals {
		if f.deals[i].ID == id {
			f.deals[i].StageID = stageID
			d := f.deals[i]
			return &d, nil
		}
	}
	return nil, errRemote
}

func (f *fakeGateway) DeleteDeal(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("DeleteDeal"); err != nil {
		return err
	}
	var kept []models.Deal
	for _, d := range f.deals {
		if d.ID != id {
			kept = append(kept, d)
		}
	}
	f.deals = kept
	return nil
}

func (f *fakeGateway) ListActiveSequences(ctx context.Context) ([]models.Sequence, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("ListActiveSequences"); err != nil {
		return nil, err
	}
	return append([]models.Sequence(nil), f.sequences...), nil
}

func (f *fakeGateway) EnrollContact(ctx context.Context, sequenceID, contactID, dealID uuid.UUID) (*models.Enrollment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("EnrollContact"); err != nil {
		return nil, err
	}
	f.enrolled = append(f.enrolled, models.EnrollmentIntent{DealID: dealID, ContactID: contactID, SequenceID: sequenceID})
	return &models.Enrollment{ID: uuid.New(), SequenceID: sequenceID, ContactID: contactID, DealID: dealID, EnrolledAt: time.Now()}, nil
}

func (f *fakeGateway) ListEmailAccounts(ctx context.Context, contactID uuid.UUID) ([]models.EmailAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("ListEmailAccounts"); err != nil {
		return nil, err
	}
	return append([]models.EmailAccount(nil), f.accounts...), nil
}

func (f *fakeGateway) SendEmail(ctx context.Context, msg models.EmailMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("SendEmail"); err != nil {
		return err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeGateway) CreateTask(ctx context.Context, in models.TaskInput) (*models.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("CreateTask"); err != nil {
		return nil, err
	}
	t := models.Task{ID: uuid.New(), Title: in.Title, Status: "todo", DealID: in.DealID, DueAt: in.DueAt, CreatedAt: time.Now()}
	f.tasks = append(f.tasks, t)
	return &t, nil
}

func (f *fakeGateway) UpdateTaskStatus(ctx context.Context, id uuid.UUID, status string) (*models.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("UpdateTaskStatus"); err != nil {
		return nil, err
	}
	for i := range f.tasks {
		if f.tasks[i].ID == id {
			f.tasks[i].Status = status
			f.tasks[i].Overdue = status != "done" && status != "cancelled" &&
				f.tasks[i].DueAt != nil && time.Now().After(*f.tasks[i].DueAt)
			t := f.tasks[i]
			return &t, nil
		}
	}
	return nil, errRemote
}

// fixture is a loaded board over one "Sales" pipeline:
// Lead(0) -> Qualified(1) -> Won(2), with three deals.
type fixture struct {
	gw    *fakeGateway
	store *Store

	pipeline             models.Pipeline
	lead, qualified, won models.Stage
	vip                  models.Tag

	acme, beta, solo models.Deal
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{gw: newFakeGateway()}

	pid := uuid.New()
	// Stored out of position order on purpose.
	f.won = models.Stage{ID: uuid.New(), PipelineID: pid, Name: "Won", Position: 2, Probability: 100}
	f.lead = models.Stage{ID: uuid.New(), PipelineID: pid, Name: "Lead", Position: 0, Probability: 10}
	f.qualified = models.Stage{ID: uuid.New(), PipelineID: pid, Name: "Qualified", Position: 1, Probability: 50}
	f.pipeline = models.Pipeline{ID: pid, Name: "Sales", Active: true, IsDefault: true,
		Stages: []models.Stage{f.won, f.lead, f.qualified}}
	f.vip = models.Tag{ID: uuid.New(), Name: "vip"}

	ada := &models.Contact{ID: uuid.New(), Name: "Ada Lovelace", Email: "ada@acme.test", Company: "Acme", Status: "customer", Tags: []models.Tag{f.vip}}
	bob := &models.Contact{ID: uuid.New(), Name: "Bob Stone", Company: "Beta Corp", Status: "lead"}

	f.acme = models.Deal{ID: uuid.New(), Title: "Acme rollout", Value: 100000, Currency: "USD", Priority: models.PriorityHigh,
		PipelineID: pid, StageID: f.lead.ID, ContactID: &ada.ID, Contact: ada}
	f.beta = models.Deal{ID: uuid.New(), Title: "Beta pilot", Value: 5000, Currency: "USD", Priority: models.PriorityMedium,
		PipelineID: pid, StageID: f.lead.ID, ContactID: &bob.ID, Contact: bob}
	f.solo = models.Deal{ID: uuid.New(), Title: "Walk-in order", Value: 700, Currency: "USD", Priority: models.PriorityLow,
		PipelineID: pid, StageID: f.qualified.ID}

	f.gw.pipelines = []models.Pipeline{f.pipeline}
	f.gw.deals = []models.Deal{f.acme, f.beta, f.solo}

	f.store = NewStore(f.gw, append([]Option{WithSearchDebounce(0)}, opts...)...)
	require.NoError(t, f.store.LoadPipelines(context.Background()))
	return f
}

func dealIDs(deals []models.Deal) []uuid.UUID {
	ids := make([]uuid.UUID, len(deals))
	for i, d := range deals {
		ids[i] = d.ID
	}
	return ids
}
