// ABOUTME: Board state store owning pipelines, the active pipeline's deals and filters
// ABOUTME: Serialises state changes, reconciles with the remote and notifies observers
package board

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/pipeboard/models"
	"github.com/rs/zerolog"
)

// DefaultSearchDebounce is how long SetSearch waits for typing to settle.
const DefaultSearchDebounce = 275 * time.Millisecond

// ConfirmFunc asks the user to approve a destructive action.
type ConfirmFunc func(prompt string) bool

// Confirmed approves every prompt. Use it when the caller already asked.
func Confirmed(string) bool { return true }

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for remote failures and reconciliation.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Store) { s.log = logger }
}

// WithSearchDebounce sets the search settle delay. Zero applies searches immediately.
func WithSearchDebounce(d time.Duration) Option {
	return func(s *Store) { s.search = newDebouncer(d) }
}

// Snapshot is an immutable copy of board state for presentation.
// Contacts embedded in deals are shared and must not be modified.
type Snapshot struct {
	Revision   uint64
	Pipelines  []models.Pipeline
	Pipeline   *models.Pipeline
	Stages     []models.Stage
	Deals      []models.Deal
	Columns    map[uuid.UUID][]models.Deal
	Unplaced   []models.Deal
	Criteria   models.FilterCriteria
	HasFilters bool
	Notice     Notice
	// Stale is set while the cached deals are known to disagree with the
	// remote and a reload has not yet succeeded.
	Stale bool
}

// Column returns the visible deals of a stage in cache order.
func (s Snapshot) Column(stageID uuid.UUID) []models.Deal {
	return s.Columns[stageID]
}

// Deal finds a visible deal by id.
func (s Snapshot) Deal(id uuid.UUID) (models.Deal, bool) {
	for _, d := range s.Deals {
		if d.ID == id {
			return d, true
		}
	}
	return models.Deal{}, false
}

// Store holds the board's client-side model. Remote calls are never made
// while the lock is held.
type Store struct {
	gw     Gateway
	log    zerolog.Logger
	search *debouncer

	mu           sync.Mutex
	pipelines    []models.Pipeline
	activeID     uuid.UUID
	dealsFor     uuid.UUID
	deals        []models.Deal
	pending      map[uuid.UUID]uuid.UUID // deal id -> optimistic stage id
	committed    map[uuid.UUID]committedStage
	commitSeq    uint64
	stale        bool
	criteria     models.FilterCriteria
	filtered     []models.Deal
	notice       Notice
	revision     uint64
	observers    map[int]func(Snapshot)
	nextObserver int
}

// committedStage is a confirmed move that deal lists issued before it do
// not know about yet.
type committedStage struct {
	pipelineID uuid.UUID
	stageID    uuid.UUID
	seq        uint64
}

// NewStore returns an empty store over gw. Call LoadPipelines to fill it.
func NewStore(gw Gateway, opts ...Option) *Store {
	s := &Store{
		gw:        gw,
		log:       zerolog.Nop(),
		search:    newDebouncer(DefaultSearchDebounce),
		pending:   make(map[uuid.UUID]uuid.UUID),
		committed: make(map[uuid.UUID]committedStage),
		observers: make(map[int]func(Snapshot)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscribe registers fn for every state change. Observers may be called
// from different goroutines; compare Revision to drop stale snapshots.
func (s *Store) Subscribe(fn func(Snapshot)) (cancel func()) {
	s.mu.Lock()
	id := s.nextObserver
	s.nextObserver++
	s.observers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.observers, id)
		s.mu.Unlock()
	}
}

func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) ActivePipelineID() uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeID
}

// Deal returns a cached deal of the active pipeline, whether or not the
// current filters hide it.
func (s *Store) Deal(id uuid.UUID) (models.Deal, bool) {
	return s.cachedDeal(id)
}

func (s *Store) Criteria() models.FilterCriteria {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.criteria
}

// LoadPipelines fetches every pipeline, keeps the active one if it still
// exists (else selects the first) and loads its deals.
func (s *Store) LoadPipelines(ctx context.Context) error {
	const op = "load pipelines"

	pipelines, err := s.gw.ListPipelines(ctx)
	if err != nil {
		return s.fail(op, "Could not load pipelines", err)
	}

	active := s.replacePipelines(pipelines)
	if active == uuid.Nil {
		s.announce(NoticeSuccess, op, "No pipelines yet")
		return nil
	}
	return s.loadDeals(ctx, active, true)
}

// SelectPipeline switches the board to another pipeline. The remote default
// flag is left alone.
func (s *Store) SelectPipeline(ctx context.Context, id uuid.UUID) error {
	const op = "select pipeline"

	found := false
	s.mutate(func() bool {
		if s.findPipelineLocked(id) == nil {
			return false
		}
		found = true
		if s.activeID == id {
			return false
		}
		s.activeID = id
		s.deals, s.dealsFor, s.stale = nil, uuid.Nil, false
		return true
	})
	if !found {
		s.announce(NoticeValidation, op, "That pipeline no longer exists")
		return fmt.Errorf("%s %s: %w", op, id, ErrPipelineNotFound)
	}
	return s.loadDeals(ctx, id, true)
}

// LoadDeals replaces the cached deals of pipelineID. Results for a pipeline
// that is no longer active are discarded.
func (s *Store) LoadDeals(ctx context.Context, pipelineID uuid.UUID) error {
	return s.loadDeals(ctx, pipelineID, true)
}

func (s *Store) loadDeals(ctx context.Context, pipelineID uuid.UUID, announce bool) error {
	const op = "load deals"

	s.mu.Lock()
	issued := s.commitSeq
	s.mu.Unlock()

	deals, err := s.gw.ListDeals(ctx, pipelineID)
	if err != nil {
		if !s.isActive(pipelineID) {
			s.log.Debug().Str("pipeline", pipelineID.String()).Err(err).Msg("ignoring deal load failure for inactive pipeline")
			return nil
		}
		return s.fail(op, "Could not load deals", err)
	}

	// Our stage list may be stale; refresh it once before calling it an integrity problem.
	if s.orphanCount(pipelineID, deals) > 0 {
		s.log.Warn().Str("pipeline", pipelineID.String()).Msg("deals reference unknown stages, refreshing pipelines")
		if pipelines, err := s.gw.ListPipelines(ctx); err == nil {
			s.replacePipelines(pipelines)
		}
	}

	var orphans int
	applied := s.mutate(func() bool {
		if s.activeID != pipelineID {
			return false
		}
		for i := range deals {
			if stageID, ok := s.pending[deals[i].ID]; ok {
				deals[i].StageID = stageID
			} else if c, ok := s.committed[deals[i].ID]; ok && c.seq > issued {
				deals[i].StageID = c.stageID
			}
		}
		for id, c := range s.committed {
			if c.pipelineID == pipelineID && c.seq <= issued {
				delete(s.committed, id)
			}
		}
		s.deals, s.dealsFor, s.stale = deals, pipelineID, false

		orphans = s.orphanCountLocked(pipelineID, deals)
		switch {
		case orphans > 0:
			s.notice = newNotice(NoticeIntegrity, op,
				fmt.Sprintf("%d deal(s) are in stages that do not belong to this pipeline", orphans))
		case announce:
			s.notice = newNotice(NoticeSuccess, op, fmt.Sprintf("Loaded %d deal(s)", len(deals)))
		}
		return true
	})
	if !applied {
		s.log.Debug().Str("pipeline", pipelineID.String()).Msg("discarding deals for inactive pipeline")
		return nil
	}
	if orphans > 0 {
		return fmt.Errorf("%s: %d deal(s) outside pipeline stages: %w", op, orphans, ErrStageNotFound)
	}
	return nil
}

// CreateDeal validates the input locally, then creates the deal remotely in
// the active pipeline unless another is given.
func (s *Store) CreateDeal(ctx context.Context, in models.DealInput) (*models.Deal, error) {
	const op = "create deal"

	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return nil, s.reject(op, invalid("title", "Title is required"))
	}
	if in.ContactID == uuid.Nil {
		return nil, s.reject(op, invalid("contact_id", "Choose a contact for the deal"))
	}
	if in.Value < 0 {
		return nil, s.reject(op, invalid("value", "Value cannot be negative"))
	}
	if in.Priority == 0 {
		in.Priority = models.PriorityMedium
	} else if !in.Priority.Valid() {
		return nil, s.reject(op, invalid("priority", "Priority must be high, medium or low"))
	}
	if in.PipelineID == uuid.Nil {
		in.PipelineID = s.ActivePipelineID()
		if in.PipelineID == uuid.Nil {
			s.announce(NoticeValidation, op, "Select a pipeline first")
			return nil, fmt.Errorf("%s: %w", op, ErrNoActivePipeline)
		}
	}

	deal, err := s.gw.CreateDeal(ctx, in)
	if err != nil {
		return nil, s.fail(op, fmt.Sprintf("Could not create deal %q", in.Title), err)
	}

	s.mutate(func() bool {
		if deal.PipelineID == s.activeID && s.dealsFor == s.activeID {
			s.deals = append(cloneDeals(s.deals), *deal)
		}
		s.notice = newNotice(NoticeSuccess, op, fmt.Sprintf("Deal %q created", deal.Title))
		return true
	})
	return deal, nil
}

// EditDeal saves scalar fields first and, only if that worked and the stage
// differs, changes the stage in a second request. A failed second step
// leaves the first in place and is reported as partial.
func (s *Store) EditDeal(ctx context.Context, id uuid.UUID, patch models.DealPatch) error {
	const op = "edit deal"

	current, ok := s.cachedDeal(id)
	if !ok {
		return s.integrity(ctx, op, "This deal is no longer on the board", ErrDealNotFound)
	}

	fields := patch.DealFields
	fields.Title = strings.TrimSpace(fields.Title)
	if fields.Title == "" {
		return s.reject(op, invalid("title", "Title is required"))
	}
	if fields.Value < 0 {
		return s.reject(op, invalid("value", "Value cannot be negative"))
	}
	if fields.Priority == 0 {
		fields.Priority = current.Priority
	} else if !fields.Priority.Valid() {
		return s.reject(op, invalid("priority", "Priority must be high, medium or low"))
	}
	if fields.Currency == "" {
		fields.Currency = current.Currency
	}

	updated, err := s.gw.UpdateDealFields(ctx, id, fields)
	if err != nil {
		return s.fail(op, fmt.Sprintf("Could not save deal %q", fields.Title), err)
	}

	if patch.StageID == uuid.Nil || patch.StageID == current.StageID {
		notice := newNotice(NoticeSuccess, op, fmt.Sprintf("Deal %q saved", updated.Title))
		s.replaceDeal(*updated, &notice)
		return nil
	}
	s.replaceDeal(*updated, nil)

	moved, err := s.patchDealStage(ctx, id, patch.StageID)
	if err != nil {
		s.log.Warn().Err(err).Str("deal", id.String()).Msg("deal saved but stage change failed")
		s.announce(NoticePartial, op, fmt.Sprintf("Saved %q, but could not move it to the selected stage", updated.Title))
		return fmt.Errorf("%s: stage change: %w", op, err)
	}
	s.announce(NoticeSuccess, op, fmt.Sprintf("Deal %q saved and moved to %s", moved.Title, s.stageName(moved.StageID)))
	return nil
}

// PatchDealStage moves a deal through a plain request, without an
// optimistic update.
func (s *Store) PatchDealStage(ctx context.Context, id, stageID uuid.UUID) error {
	const op = "change stage"

	moved, err := s.patchDealStage(ctx, id, stageID)
	switch {
	case errors.Is(err, ErrDealNotFound):
		return s.integrity(ctx, op, "This deal is no longer on the board", err)
	case errors.Is(err, ErrStageNotFound):
		return s.integrity(ctx, op, "That stage is not part of this pipeline", err)
	case err != nil:
		return s.fail(op, "Could not change the deal's stage", err)
	}

	s.announce(NoticeSuccess, op, fmt.Sprintf("Moved %q to %s", moved.Title, s.stageName(moved.StageID)))
	return nil
}

func (s *Store) patchDealStage(ctx context.Context, id, stageID uuid.UUID) (*models.Deal, error) {
	if _, ok := s.cachedDeal(id); !ok {
		return nil, fmt.Errorf("deal %s: %w", id, ErrDealNotFound)
	}
	if _, ok := s.activeStage(stageID); !ok {
		return nil, fmt.Errorf("stage %s: %w", stageID, ErrStageNotFound)
	}

	updated, err := s.gw.UpdateDealStage(ctx, id, stageID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.noteCommitLocked(updated.ID, updated.PipelineID, updated.StageID)
	s.mu.Unlock()
	s.replaceDeal(*updated, nil)
	return updated, nil
}

// DeleteDeal removes a deal after confirmation, then refetches the
// pipeline's deals.
func (s *Store) DeleteDeal(ctx context.Context, id uuid.UUID, confirm ConfirmFunc) error {
	const op = "delete deal"

	deal, ok := s.cachedDeal(id)
	if !ok {
		return s.integrity(ctx, op, "This deal is no longer on the board", ErrDealNotFound)
	}
	if !ask(confirm, fmt.Sprintf("Delete deal %q?", deal.Title)) {
		s.announce(NoticeCancelled, op, "Delete cancelled")
		return nil
	}

	if err := s.gw.DeleteDeal(ctx, id); err != nil {
		return s.fail(op, fmt.Sprintf("Could not delete deal %q", deal.Title), err)
	}

	s.mutate(func() bool {
		kept := make([]models.Deal, 0, len(s.deals))
		for _, d := range s.deals {
			if d.ID != id {
				kept = append(kept, d)
			}
		}
		s.deals = kept
		s.notice = newNotice(NoticeSuccess, op, fmt.Sprintf("Deal %q deleted", deal.Title))
		return true
	})
	return s.loadDeals(ctx, deal.PipelineID, false)
}

// SavePipeline creates the pipeline when form.ID is nil, else updates it.
func (s *Store) SavePipeline(ctx context.Context, form models.PipelineForm) (*models.Pipeline, error) {
	const op = "save pipeline"

	form.Name = strings.TrimSpace(form.Name)
	if form.Name == "" {
		return nil, s.reject(op, invalid("name", "Pipeline name is required"))
	}

	var saved *models.Pipeline
	var err error
	if form.ID == uuid.Nil {
		saved, err = s.gw.CreatePipeline(ctx, form)
	} else {
		saved, err = s.gw.UpdatePipeline(ctx, form.ID, form)
	}
	if err != nil {
		return nil, s.fail(op, fmt.Sprintf("Could not save pipeline %q", form.Name), err)
	}

	if err := s.refreshPipelines(ctx); err != nil {
		return saved, err
	}
	s.announce(NoticeSuccess, op, fmt.Sprintf("Pipeline %q saved", saved.Name))
	return saved, nil
}

func (s *Store) DeletePipeline(ctx context.Context, id uuid.UUID, confirm ConfirmFunc) error {
	const op = "delete pipeline"

	p, ok := s.pipeline(id)
	if !ok {
		s.announce(NoticeValidation, op, "That pipeline no longer exists")
		return fmt.Errorf("%s %s: %w", op, id, ErrPipelineNotFound)
	}
	if !ask(confirm, fmt.Sprintf("Delete pipeline %q with all of its stages and deals?", p.Name)) {
		s.announce(NoticeCancelled, op, "Delete cancelled")
		return nil
	}

	if err := s.gw.DeletePipeline(ctx, id); err != nil {
		return s.fail(op, fmt.Sprintf("Could not delete pipeline %q", p.Name), err)
	}
	if err := s.refreshPipelines(ctx); err != nil {
		return err
	}
	s.announce(NoticeSuccess, op, fmt.Sprintf("Pipeline %q deleted", p.Name))
	return nil
}

// SaveStage creates a stage (appended after the last one) when form.ID is
// nil, else updates its name, color and probability.
func (s *Store) SaveStage(ctx context.Context, pipelineID uuid.UUID, form models.StageForm) (*models.Stage, error) {
	const op = "save stage"

	form.Name = strings.TrimSpace(form.Name)
	if form.Name == "" {
		return nil, s.reject(op, invalid("name", "Stage name is required"))
	}
	if form.Probability < 0 || form.Probability > 100 {
		return nil, s.reject(op, invalid("probability", "Probability must be between 0 and 100"))
	}

	p, ok := s.pipeline(pipelineID)
	if !ok {
		s.announce(NoticeValidation, op, "That pipeline no longer exists")
		return nil, fmt.Errorf("%s: %w", op, ErrPipelineNotFound)
	}

	var saved *models.Stage
	var err error
	if form.ID == uuid.Nil {
		form.Position = len(p.Stages)
		saved, err = s.gw.CreateStage(ctx, pipelineID, form)
	} else {
		current := p.FindStage(form.ID)
		if current == nil {
			return nil, s.integrity(ctx, op, "That stage is not part of this pipeline", ErrStageNotFound)
		}
		// Editing never reorders.
		form.Position = current.Position
		saved, err = s.gw.UpdateStage(ctx, form.ID, form)
	}
	if err != nil {
		return nil, s.fail(op, fmt.Sprintf("Could not save stage %q", form.Name), err)
	}

	if err := s.refreshPipelines(ctx); err != nil {
		return saved, err
	}
	s.announce(NoticeSuccess, op, fmt.Sprintf("Stage %q saved", saved.Name))
	return saved, nil
}

// DeleteStage removes a stage and, remotely, the deals in it.
func (s *Store) DeleteStage(ctx context.Context, id uuid.UUID, confirm ConfirmFunc) error {
	const op = "delete stage"

	stage, pipelineID, ok := s.findStage(id)
	if !ok {
		return s.integrity(ctx, op, "That stage no longer exists", ErrStageNotFound)
	}
	if !ask(confirm, fmt.Sprintf("Delete stage %q and every deal in it?", stage.Name)) {
		s.announce(NoticeCancelled, op, "Delete cancelled")
		return nil
	}

	if err := s.gw.DeleteStage(ctx, id); err != nil {
		return s.fail(op, fmt.Sprintf("Could not delete stage %q", stage.Name), err)
	}
	if err := s.refreshPipelines(ctx); err != nil {
		return err
	}
	if s.isActive(pipelineID) {
		if err := s.loadDeals(ctx, pipelineID, false); err != nil {
			return err
		}
	}
	s.announce(NoticeSuccess, op, fmt.Sprintf("Stage %q deleted", stage.Name))
	return nil
}

// SetCriteria replaces the filter criteria and refilters immediately.
func (s *Store) SetCriteria(c models.FilterCriteria) {
	s.search.Cancel()
	s.mutate(func() bool {
		s.criteria = c
		return true
	})
}

// SetSearch updates the search text once typing settles.
func (s *Store) SetSearch(text string) {
	s.search.Trigger(func() {
		s.mutate(func() bool {
			if s.criteria.Search == text {
				return false
			}
			s.criteria.Search = text
			return true
		})
	})
}

// FlushSearch applies a pending search immediately.
func (s *Store) FlushSearch() {
	s.search.Flush()
}

// refreshPipelines refetches the pipeline list, keeping the active id if it
// still exists, and reloads deals when the selection changed.
func (s *Store) refreshPipelines(ctx context.Context) error {
	pipelines, err := s.gw.ListPipelines(ctx)
	if err != nil {
		return s.fail("refresh pipelines", "Could not refresh pipelines", err)
	}

	s.mu.Lock()
	loadedFor := s.dealsFor
	s.mu.Unlock()

	active := s.replacePipelines(pipelines)
	if active != uuid.Nil && active != loadedFor {
		return s.loadDeals(ctx, active, false)
	}
	return nil
}

func (s *Store) refetchActive(ctx context.Context) error {
	active := s.ActivePipelineID()
	if active == uuid.Nil {
		return nil
	}
	return s.loadDeals(ctx, active, false)
}

func (s *Store) replacePipelines(pipelines []models.Pipeline) uuid.UUID {
	var active uuid.UUID
	s.mutate(func() bool {
		s.pipelines = pipelines
		if s.findPipelineLocked(s.activeID) == nil {
			s.activeID = uuid.Nil
			if len(pipelines) > 0 {
				s.activeID = pipelines[0].ID
			}
		}
		if s.dealsFor != s.activeID {
			s.deals, s.dealsFor, s.stale = nil, uuid.Nil, false
		}
		active = s.activeID
		return true
	})
	return active
}

// replaceDeal swaps in the server's copy of a cached deal, keeping any
// optimistic stage still in flight. A nil notice leaves the current one.
func (s *Store) replaceDeal(deal models.Deal, notice *Notice) {
	s.mutate(func() bool {
		if stageID, ok := s.pending[deal.ID]; ok {
			deal.StageID = stageID
		}
		deals := cloneDeals(s.deals)
		for i := range deals {
			if deals[i].ID == deal.ID {
				deals[i] = deal
			}
		}
		s.deals = deals
		if notice != nil {
			s.notice = *notice
		}
		return true
	})
}

// move is an optimistic stage change awaiting the remote's answer.
type move struct {
	DealID     uuid.UUID
	Title      string
	PipelineID uuid.UUID
	From       uuid.UUID
	To         models.Stage
}

var errSameStage = errors.New("deal already in stage")

// beginMove checks the deal and destination and rewrites the cached stage.
func (s *Store) beginMove(dealID, stageID uuid.UUID) (move, error) {
	var m move
	var err error

	s.mutate(func() bool {
		p := s.findPipelineLocked(s.activeID)
		if p == nil || s.dealsFor != s.activeID {
			err = ErrNoActivePipeline
			return false
		}
		idx := -1
		for i := range s.deals {
			if s.deals[i].ID == dealID {
				idx = i
				break
			}
		}
		if idx < 0 {
			err = fmt.Errorf("deal %s: %w", dealID, ErrDealNotFound)
			return false
		}
		to := p.FindStage(stageID)
		if to == nil {
			err = fmt.Errorf("stage %s: %w", stageID, ErrStageNotFound)
			return false
		}
		if s.deals[idx].StageID == stageID {
			err = errSameStage
			return false
		}

		m = move{DealID: dealID, Title: s.deals[idx].Title, PipelineID: p.ID, From: s.deals[idx].StageID, To: *to}
		deals := cloneDeals(s.deals)
		deals[idx].StageID = stageID
		s.deals = deals
		s.pending[dealID] = stageID
		return true
	})
	return m, err
}

func (s *Store) commitMove(m move, deal *models.Deal) {
	s.mutate(func() bool {
		delete(s.pending, m.DealID)
		stageID := m.To.ID
		if deal != nil {
			stageID = deal.StageID
		}
		s.noteCommitLocked(m.DealID, m.PipelineID, stageID)
		if deal != nil && s.dealsFor == m.PipelineID {
			deals := cloneDeals(s.deals)
			for i := range deals {
				if deals[i].ID == deal.ID {
					deals[i] = *deal
				}
			}
			s.deals = deals
		}
		s.notice = newNotice(NoticeSuccess, "move deal", fmt.Sprintf("Moved %q to %s", m.Title, m.To.Name))
		return true
	})
}

// noteCommitLocked remembers a confirmed stage so deal lists fetched before
// it cannot undo it.
func (s *Store) noteCommitLocked(dealID, pipelineID, stageID uuid.UUID) {
	s.commitSeq++
	s.committed[dealID] = committedStage{pipelineID: pipelineID, stageID: stageID, seq: s.commitSeq}
}

// rollbackMove drops the optimistic stage and flags the cache stale. The
// caller reloads deals; the cached stage is only corrected by that reload.
func (s *Store) rollbackMove(m move) {
	s.mutate(func() bool {
		delete(s.pending, m.DealID)
		if s.dealsFor == m.PipelineID {
			s.stale = true
		}
		s.notice = newNotice(NoticeRemoteFailure, "move deal",
			fmt.Sprintf("Could not move %q to %s; reloading the board", m.Title, m.To.Name))
		return true
	})
}

// mutate applies fn under the lock. When fn reports a change, the revision
// is bumped, the view refiltered and observers notified outside the lock.
func (s *Store) mutate(fn func() bool) bool {
	s.mu.Lock()
	if !fn() {
		s.mu.Unlock()
		return false
	}
	s.revision++
	s.filtered = Filter(s.deals, s.criteria)
	snap := s.snapshotLocked()
	observers := make([]func(Snapshot), 0, len(s.observers))
	for _, o := range s.observers {
		observers = append(observers, o)
	}
	s.mu.Unlock()

	for _, o := range observers {
		o(snap)
	}
	return true
}

func (s *Store) snapshotLocked() Snapshot {
	snap := Snapshot{
		Revision:   s.revision,
		Pipelines:  make([]models.Pipeline, len(s.pipelines)),
		Deals:      cloneDeals(s.filtered),
		Columns:    make(map[uuid.UUID][]models.Deal),
		Criteria:   s.criteria,
		HasFilters: s.criteria.HasFilters(),
		Notice:     s.notice,
		Stale:      s.stale,
	}
	for i, p := range s.pipelines {
		snap.Pipelines[i] = clonePipeline(p)
	}

	if p := s.findPipelineLocked(s.activeID); p != nil {
		active := clonePipeline(*p)
		snap.Pipeline = &active
		snap.Stages = models.SortStages(p.Stages)
	}
	for _, st := range snap.Stages {
		snap.Columns[st.ID] = []models.Deal{}
	}
	for _, d := range snap.Deals {
		if _, ok := snap.Columns[d.StageID]; ok {
			snap.Columns[d.StageID] = append(snap.Columns[d.StageID], d)
		} else {
			snap.Unplaced = append(snap.Unplaced, d)
		}
	}
	return snap
}

func (s *Store) announce(kind NoticeKind, op, message string) {
	if kind == NoticeSuccess || kind == NoticeCancelled || kind == NoticeRedirect {
		s.log.Debug().Str("op", op).Str("kind", kind.String()).Msg(message)
	} else {
		s.log.Warn().Str("op", op).Str("kind", kind.String()).Msg(message)
	}
	s.mutate(func() bool {
		s.notice = newNotice(kind, op, message)
		return true
	})
}

func (s *Store) fail(op, message string, err error) error {
	s.log.Error().Err(err).Str("op", op).Msg(message)
	s.mutate(func() bool {
		s.notice = newNotice(NoticeRemoteFailure, op, message)
		return true
	})
	return fmt.Errorf("%s: %w", op, err)
}

func (s *Store) reject(op string, verr *ValidationError) error {
	s.announce(NoticeValidation, op, verr.Message)
	return verr
}

// integrity reports a cache/remote mismatch and refetches the active deals.
func (s *Store) integrity(ctx context.Context, op, message string, err error) error {
	s.announce(NoticeIntegrity, op, message+"; refreshing")
	if rerr := s.refetchActive(ctx); rerr != nil {
		s.log.Error().Err(rerr).Str("op", op).Msg("refetch after integrity error failed")
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (s *Store) isActive(pipelineID uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeID == pipelineID
}

func (s *Store) cachedDeal(id uuid.UUID) (models.Deal, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.deals {
		if d.ID == id {
			return d, true
		}
	}
	return models.Deal{}, false
}

func (s *Store) pipeline(id uuid.UUID) (models.Pipeline, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p := s.findPipelineLocked(id); p != nil {
		return clonePipeline(*p), true
	}
	return models.Pipeline{}, false
}

// activeStages returns the active pipeline's stages in board order.
func (s *Store) activeStages() []models.Stage {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p := s.findPipelineLocked(s.activeID); p != nil {
		return models.SortStages(p.Stages)
	}
	return nil
}

func (s *Store) activeStage(id uuid.UUID) (models.Stage, bool) {
	for _, st := range s.activeStages() {
		if st.ID == id {
			return st, true
		}
	}
	return models.Stage{}, false
}

func (s *Store) stageName(id uuid.UUID) string {
	if st, ok := s.activeStage(id); ok {
		return st.Name
	}
	return "another stage"
}

func (s *Store) findStage(id uuid.UUID) (models.Stage, uuid.UUID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.pipelines {
		if st := p.FindStage(id); st != nil {
			return *st, p.ID, true
		}
	}
	return models.Stage{}, uuid.Nil, false
}

func (s *Store) findPipelineLocked(id uuid.UUID) *models.Pipeline {
	if id == uuid.Nil {
		return nil
	}
	for i := range s.pipelines {
		if s.pipelines[i].ID == id {
			return &s.pipelines[i]
		}
	}
	return nil
}

func (s *Store) orphanCount(pipelineID uuid.UUID, deals []models.Deal) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orphanCountLocked(pipelineID, deals)
}

func (s *Store) orphanCountLocked(pipelineID uuid.UUID, deals []models.Deal) int {
	p := s.findPipelineLocked(pipelineID)
	n := 0
	for _, d := range deals {
		if p == nil || !p.HasStage(d.StageID) {
			n++
		}
	}
	return n
}

func newNotice(kind NoticeKind, op, message string) Notice {
	return Notice{Kind: kind, Op: op, Message: message, At: time.Now()}
}

func ask(confirm ConfirmFunc, prompt string) bool {
	return confirm != nil && confirm(prompt)
}

func cloneDeals(deals []models.Deal) []models.Deal {
	if deals == nil {
		return nil
	}
	out := make([]models.Deal, len(deals))
	copy(out, deals)
	return out
}

func clonePipeline(p models.Pipeline) models.Pipeline {
	p.Stages = append([]models.Stage(nil), p.Stages...)
	return p
}
