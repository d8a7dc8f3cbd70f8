package board

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/pipeboard/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadPipelinesBuildsColumns(t *testing.T) {
	f := newFixture(t)
	snap := f.store.Snapshot()

	require.NotNil(t, snap.Pipeline)
	assert.Equal(t, "Sales", snap.Pipeline.Name)

	var names []string
	for _, s := range snap.Stages {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"Lead", "Qualified", "Won"}, names)

	assert.ElementsMatch(t, []uuid.UUID{f.acme.ID, f.beta.ID}, dealIDs(snap.Column(f.lead.ID)))
	assert.Equal(t, []uuid.UUID{f.solo.ID}, dealIDs(snap.Column(f.qualified.ID)))
	assert.NotNil(t, snap.Column(f.won.ID))
	assert.Empty(t, snap.Column(f.won.ID))
	assert.Empty(t, snap.Unplaced)
	assert.Equal(t, NoticeSuccess, snap.Notice.Kind)
}

func TestLoadPipelinesEmpty(t *testing.T) {
	gw := newFakeGateway()
	store := NewStore(gw)

	require.NoError(t, store.LoadPipelines(context.Background()))

	snap := store.Snapshot()
	assert.Nil(t, snap.Pipeline)
	assert.Empty(t, snap.Deals)
	assert.Equal(t, uuid.Nil, store.ActivePipelineID())
	assert.Equal(t, 0, gw.called("ListDeals"))
}

func TestLoadPipelinesFailure(t *testing.T) {
	gw := newFakeGateway()
	gw.failOn("ListPipelines", errRemote)
	store := NewStore(gw)

	err := store.LoadPipelines(context.Background())
	require.ErrorIs(t, err, errRemote)
	assert.Equal(t, NoticeRemoteFailure, store.Snapshot().Notice.Kind)
}

func addPartners(f *fixture) (models.Pipeline, models.Deal) {
	pid := uuid.New()
	stage := models.Stage{ID: uuid.New(), PipelineID: pid, Name: "Intro", Position: 0}
	p := models.Pipeline{ID: pid, Name: "Partners", Active: true, Stages: []models.Stage{stage}}
	d := models.Deal{ID: uuid.New(), Title: "Reseller deal", PipelineID: pid, StageID: stage.ID, Priority: models.PriorityMedium}

	f.gw.mu.Lock()
	f.gw.pipelines = append(f.gw.pipelines, p)
	f.gw.deals = append(f.gw.deals, d)
	f.gw.mu.Unlock()
	return p, d
}

func TestSelectPipeline(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	partners, reseller := addPartners(f)
	require.NoError(t, f.store.LoadPipelines(ctx))
	assert.Equal(t, f.pipeline.ID, f.store.ActivePipelineID())

	require.NoError(t, f.store.SelectPipeline(ctx, partners.ID))
	snap := f.store.Snapshot()
	assert.Equal(t, "Partners", snap.Pipeline.Name)
	assert.Equal(t, []uuid.UUID{reseller.ID}, dealIDs(snap.Deals))

	// A reload keeps the selection.
	require.NoError(t, f.store.LoadPipelines(ctx))
	assert.Equal(t, partners.ID, f.store.ActivePipelineID())

	err := f.store.SelectPipeline(ctx, uuid.New())
	require.ErrorIs(t, err, ErrPipelineNotFound)
	assert.Equal(t, partners.ID, f.store.ActivePipelineID())
}

func TestLateDealsForInactivePipelineAreDiscarded(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	partners, reseller := addPartners(f)
	require.NoError(t, f.store.LoadPipelines(ctx))

	entered := make(chan struct{})
	release := make(chan struct{})
	f.gw.mu.Lock()
	f.gw.listDealsHook = func(pipelineID uuid.UUID) {
		if pipelineID == f.pipeline.ID {
			entered <- struct{}{}
			<-release
		}
	}
	f.gw.mu.Unlock()

	done := make(chan error, 1)
	go func() { done <- f.store.LoadDeals(ctx, f.pipeline.ID) }()
	<-entered

	require.NoError(t, f.store.SelectPipeline(ctx, partners.ID))
	close(release)
	require.NoError(t, <-done)

	snap := f.store.Snapshot()
	assert.Equal(t, partners.ID, snap.Pipeline.ID)
	assert.Equal(t, []uuid.UUID{reseller.ID}, dealIDs(snap.Deals))
}

func TestLoadDealsWithUnknownStage(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	stray := models.Deal{ID: uuid.New(), Title: "Stray", PipelineID: f.pipeline.ID, StageID: uuid.New()}
	f.gw.mu.Lock()
	f.gw.deals = append(f.gw.deals, stray)
	f.gw.mu.Unlock()

	before := f.gw.called("ListPipelines")
	err := f.store.LoadDeals(ctx, f.pipeline.ID)
	require.ErrorIs(t, err, ErrStageNotFound)

	assert.Equal(t, before+1, f.gw.called("ListPipelines"), "stage list refreshed once")
	snap := f.store.Snapshot()
	assert.Equal(t, NoticeIntegrity, snap.Notice.Kind)
	assert.Equal(t, []uuid.UUID{stray.ID}, dealIDs(snap.Unplaced))
}

func TestLoadDealsHealsStaleStageList(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	lost := models.Stage{ID: uuid.New(), PipelineID: f.pipeline.ID, Name: "Lost", Position: 3}
	late := models.Deal{ID: uuid.New(), Title: "Late", PipelineID: f.pipeline.ID, StageID: lost.ID}
	f.gw.mu.Lock()
	f.gw.pipelines[0].Stages = append(f.gw.pipelines[0].Stages, lost)
	f.gw.deals = append(f.gw.deals, late)
	f.gw.mu.Unlock()

	require.NoError(t, f.store.LoadDeals(ctx, f.pipeline.ID))
	snap := f.store.Snapshot()
	assert.Len(t, snap.Stages, 4)
	assert.Equal(t, []uuid.UUID{late.ID}, dealIDs(snap.Column(lost.ID)))
	assert.Empty(t, snap.Unplaced)
}

func TestCreateDealValidation(t *testing.T) {
	f := newFixture(t)
	before := f.gw.totalCalls()

	tests := []struct {
		name  string
		in    models.DealInput
		field string
	}{
		{"empty title", models.DealInput{Title: "   ", ContactID: uuid.New()}, "title"},
		{"no contact", models.DealInput{Title: "New"}, "contact_id"},
		{"negative value", models.DealInput{Title: "New", ContactID: uuid.New(), Value: -1}, "value"},
		{"bad priority", models.DealInput{Title: "New", ContactID: uuid.New(), Priority: 9}, "priority"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.store.CreateDeal(context.Background(), tt.in)
			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.field, verr.Field)
			assert.Equal(t, NoticeValidation, f.store.Snapshot().Notice.Kind)
		})
	}

	assert.Equal(t, before, f.gw.totalCalls(), "no remote calls for invalid input")
}

func TestCreateDeal(t *testing.T) {
	f := newFixture(t)

	deal, err := f.store.CreateDeal(context.Background(), models.DealInput{Title: " Gamma ", ContactID: uuid.New()})
	require.NoError(t, err)
	assert.Equal(t, "Gamma", deal.Title)
	assert.Equal(t, models.PriorityMedium, deal.Priority)
	assert.Equal(t, f.lead.ID, deal.StageID)

	snap := f.store.Snapshot()
	assert.Len(t, snap.Deals, 4)
	assert.Contains(t, dealIDs(snap.Column(f.lead.ID)), deal.ID)
	assert.Equal(t, NoticeSuccess, snap.Notice.Kind)
}

func TestCreateDealRemoteFailure(t *testing.T) {
	f := newFixture(t)
	f.gw.failOn("CreateDeal", errRemote)

	_, err := f.store.CreateDeal(context.Background(), models.DealInput{Title: "Gamma", ContactID: uuid.New()})
	require.ErrorIs(t, err, errRemote)
	snap := f.store.Snapshot()
	assert.Len(t, snap.Deals, 3)
	assert.Equal(t, NoticeRemoteFailure, snap.Notice.Kind)
}

func TestEditDealFieldsOnly(t *testing.T) {
	f := newFixture(t)

	err := f.store.EditDeal(context.Background(), f.acme.ID, models.DealPatch{
		DealFields: models.DealFields{Title: "Acme rollout v2", Value: 120000},
		StageID:    f.lead.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, f.gw.called("UpdateDealStage"))

	deal, ok := f.store.Snapshot().Deal(f.acme.ID)
	require.True(t, ok)
	assert.Equal(t, "Acme rollout v2", deal.Title)
	assert.Equal(t, int64(120000), deal.Value)
	assert.Equal(t, models.PriorityHigh, deal.Priority, "priority kept when not given")
}

func TestEditDealWithStageChange(t *testing.T) {
	f := newFixture(t)

	err := f.store.EditDeal(context.Background(), f.acme.ID, models.DealPatch{
		DealFields: models.DealFields{Title: "Acme rollout"},
		StageID:    f.qualified.ID,
	})
	require.NoError(t, err)

	deal, _ := f.store.Snapshot().Deal(f.acme.ID)
	assert.Equal(t, f.qualified.ID, deal.StageID)
	assert.Equal(t, 1, f.gw.called("UpdateDealFields"))
	assert.Equal(t, 1, f.gw.called("UpdateDealStage"))
}

func TestEditDealStageFailureIsPartial(t *testing.T) {
	f := newFixture(t)
	f.gw.failOn("UpdateDealStage", errRemote)

	err := f.store.EditDeal(context.Background(), f.acme.ID, models.DealPatch{
		DealFields: models.DealFields{Title: "Acme rollout v2"},
		StageID:    f.qualified.ID,
	})
	require.ErrorIs(t, err, errRemote)

	snap := f.store.Snapshot()
	assert.Equal(t, NoticePartial, snap.Notice.Kind)
	deal, _ := snap.Deal(f.acme.ID)
	assert.Equal(t, "Acme rollout v2", deal.Title, "field update is kept")
	assert.Equal(t, f.lead.ID, deal.StageID)

	server, _ := f.gw.serverDeal(f.acme.ID)
	assert.Equal(t, "Acme rollout v2", server.Title)
}

func TestEditDealFieldFailureSkipsStage(t *testing.T) {
	f := newFixture(t)
	f.gw.failOn("UpdateDealFields", errRemote)

	err := f.store.EditDeal(context.Background(), f.acme.ID, models.DealPatch{
		DealFields: models.DealFields{Title: "Acme rollout v2"},
		StageID:    f.qualified.ID,
	})
	require.ErrorIs(t, err, errRemote)
	assert.Equal(t, 0, f.gw.called("UpdateDealStage"))
	assert.Equal(t, NoticeRemoteFailure, f.store.Snapshot().Notice.Kind)
}

func TestEditDealValidation(t *testing.T) {
	f := newFixture(t)
	before := f.gw.totalCalls()

	err := f.store.EditDeal(context.Background(), f.acme.ID, models.DealPatch{DealFields: models.DealFields{Title: ""}})
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "title", verr.Field)
	assert.Equal(t, before, f.gw.totalCalls())
}

func TestPatchDealStage(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	require.NoError(t, f.store.PatchDealStage(ctx, f.beta.ID, f.won.ID))
	deal, _ := f.store.Snapshot().Deal(f.beta.ID)
	assert.Equal(t, f.won.ID, deal.StageID)

	listed := f.gw.called("ListDeals")
	err := f.store.PatchDealStage(ctx, f.beta.ID, uuid.New())
	require.ErrorIs(t, err, ErrStageNotFound)
	assert.Equal(t, NoticeIntegrity, f.store.Snapshot().Notice.Kind)
	assert.Equal(t, listed+1, f.gw.called("ListDeals"), "integrity error refetches deals")
}

func TestDeleteDealCancelled(t *testing.T) {
	f := newFixture(t)

	for _, confirm := range []ConfirmFunc{nil, func(string) bool { return false }} {
		require.NoError(t, f.store.DeleteDeal(context.Background(), f.beta.ID, confirm))
		assert.Equal(t, NoticeCancelled, f.store.Snapshot().Notice.Kind)
	}
	assert.Equal(t, 0, f.gw.called("DeleteDeal"))
	_, ok := f.store.Snapshot().Deal(f.beta.ID)
	assert.True(t, ok)
}

func TestDeleteDealConfirmed(t *testing.T) {
	f := newFixture(t)
	listed := f.gw.called("ListDeals")

	var prompt string
	err := f.store.DeleteDeal(context.Background(), f.beta.ID, func(p string) bool {
		prompt = p
		return true
	})
	require.NoError(t, err)
	assert.Contains(t, prompt, "Beta pilot")

	_, ok := f.store.Snapshot().Deal(f.beta.ID)
	assert.False(t, ok)
	assert.Equal(t, listed+1, f.gw.called("ListDeals"), "deals refetched after delete")
}

func TestSavePipelineAndStages(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.store.SavePipeline(ctx, models.PipelineForm{Name: " "})
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))

	p, err := f.store.SavePipeline(ctx, models.PipelineForm{Name: "Partners", Active: true})
	require.NoError(t, err)
	assert.Len(t, f.store.Snapshot().Pipelines, 2)
	assert.Equal(t, f.pipeline.ID, f.store.ActivePipelineID(), "saving does not change the selection")

	stage, err := f.store.SaveStage(ctx, f.pipeline.ID, models.StageForm{Name: "Lost", Probability: 0})
	require.NoError(t, err)
	assert.Equal(t, 3, stage.Position, "new stages go after the last one")
	snap := f.store.Snapshot()
	require.Len(t, snap.Stages, 4)
	assert.Equal(t, "Lost", snap.Stages[3].Name)

	_, err = f.store.SaveStage(ctx, f.pipeline.ID, models.StageForm{Name: "Odd", Probability: 150})
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "probability", verr.Field)

	_, err = f.store.SaveStage(ctx, p.ID, models.StageForm{ID: f.lead.ID, Name: "Lead"})
	require.ErrorIs(t, err, ErrStageNotFound)
}

func TestDeleteStageRefreshes(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.store.DeleteStage(context.Background(), f.qualified.ID, Confirmed))

	snap := f.store.Snapshot()
	assert.Len(t, snap.Stages, 2)
	_, ok := snap.Deal(f.solo.ID)
	assert.False(t, ok)
	assert.Equal(t, NoticeSuccess, snap.Notice.Kind)
}

func TestDeleteActivePipelineSelectsAnother(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	partners, _ := addPartners(f)
	require.NoError(t, f.store.LoadPipelines(ctx))

	require.NoError(t, f.store.DeletePipeline(ctx, f.pipeline.ID, Confirmed))

	snap := f.store.Snapshot()
	require.NotNil(t, snap.Pipeline)
	assert.Equal(t, partners.ID, snap.Pipeline.ID)
	assert.Len(t, snap.Deals, 1)
}

func TestSetCriteriaFiltersView(t *testing.T) {
	f := newFixture(t)

	f.store.SetCriteria(models.FilterCriteria{Company: "acme"})
	snap := f.store.Snapshot()
	assert.True(t, snap.HasFilters)
	assert.Equal(t, []uuid.UUID{f.acme.ID}, dealIDs(snap.Deals))
	assert.Equal(t, []uuid.UUID{f.acme.ID}, dealIDs(snap.Column(f.lead.ID)))
	assert.Empty(t, snap.Column(f.qualified.ID))

	f.store.SetCriteria(models.FilterCriteria{TagID: f.vip.ID, Status: "customer"})
	assert.Equal(t, []uuid.UUID{f.acme.ID}, dealIDs(f.store.Snapshot().Deals))

	f.store.SetCriteria(models.FilterCriteria{})
	snap = f.store.Snapshot()
	assert.False(t, snap.HasFilters)
	assert.Len(t, snap.Deals, 3)
}

func TestSetSearchCoalesces(t *testing.T) {
	f := newFixture(t, WithSearchDebounce(20*time.Millisecond))

	var mu sync.Mutex
	var searches []string
	cancel := f.store.Subscribe(func(s Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		if n := len(searches); n == 0 || searches[n-1] != s.Criteria.Search {
			searches = append(searches, s.Criteria.Search)
		}
	})
	defer cancel()

	for _, text := range []string{"a", "ac", "acm", "acme"} {
		f.store.SetSearch(text)
	}

	require.Eventually(t, func() bool { return f.store.Criteria().Search == "acme" }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	assert.Equal(t, []string{"acme"}, searches)
	mu.Unlock()
	assert.Equal(t, []uuid.UUID{f.acme.ID}, dealIDs(f.store.Snapshot().Deals))
}

func TestFlushSearch(t *testing.T) {
	f := newFixture(t, WithSearchDebounce(time.Hour))

	f.store.SetSearch("beta")
	assert.Equal(t, "", f.store.Criteria().Search)
	f.store.FlushSearch()
	assert.Equal(t, "beta", f.store.Criteria().Search)

	// Explicit criteria drop a pending search.
	f.store.SetSearch("walk")
	f.store.SetCriteria(models.FilterCriteria{Company: "Acme"})
	f.store.FlushSearch()
	assert.Equal(t, models.FilterCriteria{Company: "Acme"}, f.store.Criteria())
}

func TestSubscribeCancel(t *testing.T) {
	f := newFixture(t)

	var mu sync.Mutex
	var revisions []uint64
	cancel := f.store.Subscribe(func(s Snapshot) {
		mu.Lock()
		revisions = append(revisions, s.Revision)
		mu.Unlock()
	})

	f.store.SetCriteria(models.FilterCriteria{Search: "acme"})
	cancel()
	f.store.SetCriteria(models.FilterCriteria{})

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, revisions, 1)
	assert.Less(t, revisions[0], f.store.Snapshot().Revision)
}

func TestSnapshotIsACopy(t *testing.T) {
	f := newFixture(t)

	snap := f.store.Snapshot()
	snap.Deals[0].Title = "scribbled"
	snap.Pipeline.Stages[0].Name = "scribbled"

	fresh := f.store.Snapshot()
	for _, d := range fresh.Deals {
		assert.NotEqual(t, "scribbled", d.Title)
	}
	for _, s := range fresh.Pipeline.Stages {
		assert.NotEqual(t, "scribbled", s.Name)
	}
}
