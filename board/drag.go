// ABOUTME: Drag-and-drop stage changes with optimistic update and reconciliation
// ABOUTME: Pure drag transitions plus the controller that executes their effects
package board

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DragPhase is where a single card move currently stands.
type DragPhase int

const (
	PhaseIdle DragPhase = iota
	PhaseDragging
	PhaseDroppedSame
	PhaseDroppedDifferent
	PhaseReconciling
	PhaseCommitted
	PhaseRolledBack
)

func (p DragPhase) String() string {
	switch p {
	case PhaseDragging:
		return "dragging"
	case PhaseDroppedSame:
		return "dropped_same"
	case PhaseDroppedDifferent:
		return "dropped_different"
	case PhaseReconciling:
		return "reconciling"
	case PhaseCommitted:
		return "committed"
	case PhaseRolledBack:
		return "rolled_back"
	}
	return "idle"
}

// Location is a slot on the board: a stage column and an index within it.
type Location struct {
	StageID uuid.UUID
	Index   int
}

// EffectKind tells the executor what a transition requires.
type EffectKind int

const (
	EffectNone EffectKind = iota
	// EffectMove: rewrite the deal's stage locally, then issue one stage-change request.
	EffectMove
	// EffectRollback: report the failure and reload the captured pipeline's deals.
	EffectRollback
)

// Effect is the side effect a transition asks the controller to perform.
type Effect struct {
	Kind       EffectKind
	DealID     uuid.UUID
	From       uuid.UUID
	To         uuid.UUID
	PipelineID uuid.UUID
}

// Drag is the state of one card move. Transitions return a new value.
type Drag struct {
	Phase      DragPhase
	DealID     uuid.UUID
	Source     Location
	Dest       Location
	PipelineID uuid.UUID
}

// StartDrag picks up a card.
func StartDrag(dealID uuid.UUID, source Location) Drag {
	return Drag{Phase: PhaseDragging, DealID: dealID, Source: source}
}

// Drop releases the card over dest; nil means outside any target. Drops in
// the source stage do not change anything, whatever the index.
func (d Drag) Drop(dest *Location) (Drag, Effect) {
	if d.Phase != PhaseDragging || dest == nil {
		return Drag{Phase: PhaseIdle}, Effect{}
	}
	if dest.StageID == d.Source.StageID {
		return Drag{Phase: PhaseIdle}, Effect{}
	}

	next := d
	next.Phase = PhaseDroppedDifferent
	next.Dest = *dest
	return next, Effect{Kind: EffectMove, DealID: d.DealID, From: d.Source.StageID, To: dest.StageID}
}

// Issue records the pipeline the move belongs to as the request goes out.
func (d Drag) Issue(pipelineID uuid.UUID) Drag {
	if d.Phase != PhaseDroppedDifferent {
		return d
	}
	d.Phase = PhaseReconciling
	d.PipelineID = pipelineID
	return d
}

// Resolve applies the remote's answer to a reconciling move.
func (d Drag) Resolve(err error) (Drag, Effect) {
	if d.Phase != PhaseReconciling {
		return d, Effect{}
	}
	if err == nil {
		d.Phase = PhaseCommitted
		return d, Effect{}
	}
	d.Phase = PhaseRolledBack
	return d, Effect{
		Kind:       EffectRollback,
		DealID:     d.DealID,
		From:       d.Source.StageID,
		To:         d.Dest.StageID,
		PipelineID: d.PipelineID,
	}
}

// DropEvent is what the presentation layer reports when a card is released.
type DropEvent struct {
	DealID uuid.UUID
	Source Location
	Dest   *Location
}

// Result reports where a drop left the card.
type Result struct {
	Phase DragPhase
}

// DragController executes drops against the store. At most one move per
// deal is in flight; moves of different deals are independent.
type DragController struct {
	store *Store
	log   zerolog.Logger

	mu       sync.Mutex
	inflight map[uuid.UUID]Drag
	settled  map[uuid.UUID]DragPhase
}

func NewDragController(store *Store) *DragController {
	return &DragController{
		store:    store,
		log:      store.log,
		inflight: make(map[uuid.UUID]Drag),
		settled:  make(map[uuid.UUID]DragPhase),
	}
}

// Phase reports the deal's current or last settled move phase.
func (c *DragController) Phase(dealID uuid.UUID) DragPhase {
	c.mu.Lock()
	defer c.mu.Unlock()
	if d, ok := c.inflight[dealID]; ok {
		return d.Phase
	}
	if p, ok := c.settled[dealID]; ok {
		return p
	}
	return PhaseIdle
}

// OnDrop runs a drop to completion in the caller's goroutine. The
// optimistic update is visible to observers before the request is sent.
func (c *DragController) OnDrop(ctx context.Context, ev DropEvent) (Result, error) {
	const op = "move deal"

	drag, effect := StartDrag(ev.DealID, ev.Source).Drop(ev.Dest)
	if effect.Kind == EffectNone {
		return Result{Phase: drag.Phase}, nil
	}

	if !c.reserve(drag) {
		c.store.announce(NoticeValidation, op, "That deal is still being moved")
		return Result{Phase: PhaseIdle}, fmt.Errorf("%s %s: %w", op, ev.DealID, ErrMoveInFlight)
	}

	m, err := c.store.beginMove(effect.DealID, effect.To)
	switch {
	case errors.Is(err, errSameStage):
		c.settle(ev.DealID, PhaseIdle)
		return Result{Phase: PhaseIdle}, nil
	case errors.Is(err, ErrNoActivePipeline):
		c.settle(ev.DealID, PhaseIdle)
		c.store.announce(NoticeValidation, op, "Select a pipeline first")
		return Result{Phase: PhaseIdle}, fmt.Errorf("%s: %w", op, err)
	case err != nil:
		c.settle(ev.DealID, PhaseIdle)
		return Result{Phase: PhaseIdle}, c.store.integrity(ctx, op, "That card or column is out of date", err)
	}

	drag.Source.StageID = m.From
	drag = drag.Issue(m.PipelineID)
	c.track(drag)

	c.log.Debug().
		Str("deal", m.DealID.String()).
		Str("from", m.From.String()).
		Str("to", m.To.ID.String()).
		Msg("moving deal")

	updated, reqErr := c.store.gw.UpdateDealStage(ctx, m.DealID, m.To.ID)
	drag, effect = drag.Resolve(reqErr)

	if effect.Kind == EffectRollback {
		c.log.Warn().Err(reqErr).Str("deal", m.DealID.String()).Msg("stage change rejected, rolling back")
		c.store.rollbackMove(m)
		c.settle(ev.DealID, drag.Phase)
		if c.store.isActive(effect.PipelineID) {
			if err := c.store.loadDeals(ctx, effect.PipelineID, false); err != nil {
				c.log.Error().Err(err).Msg("reload after rollback failed")
			}
		}
		return Result{Phase: drag.Phase}, fmt.Errorf("%s: %w", op, reqErr)
	}

	c.store.commitMove(m, updated)
	c.settle(ev.DealID, drag.Phase)
	return Result{Phase: drag.Phase}, nil
}

func (c *DragController) reserve(d Drag) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, busy := c.inflight[d.DealID]; busy {
		return false
	}
	c.inflight[d.DealID] = d
	return true
}

func (c *DragController) track(d Drag) {
	c.mu.Lock()
	c.inflight[d.DealID] = d
	c.mu.Unlock()
}

func (c *DragController) settle(dealID uuid.UUID, phase DragPhase) {
	c.mu.Lock()
	delete(c.inflight, dealID)
	c.settled[dealID] = phase
	c.mu.Unlock()
}
