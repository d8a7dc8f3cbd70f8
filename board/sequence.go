// ABOUTME: Enrolls a deal's contact into an outreach sequence and advances the deal
// ABOUTME: Guards the contact, caches active sequences and reports partial success
package board

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/harperreed/pipeboard/models"
)

type PromptKind int

const (
	// PromptSelect offers the active sequences to choose from.
	PromptSelect PromptKind = iota
	// PromptRedirect means there is nothing to choose; send the user to create a sequence.
	PromptRedirect
)

// RedirectContext carries what a sequence-creation screen needs to come back
// to this deal.
type RedirectContext struct {
	DealID       uuid.UUID
	DealTitle    string
	ContactID    uuid.UUID
	ContactName  string
	ContactEmail string
}

type EnrollmentPrompt struct {
	Kind      PromptKind
	DealID    uuid.UUID
	ContactID uuid.UUID
	Sequences []models.Sequence
	NextStage *models.Stage
	Redirect  *RedirectContext
}

type EnrollmentOutcome struct {
	Enrollment *models.Enrollment
	// Advanced is false when there is no next stage or advancing failed.
	Advanced   bool
	Stage      *models.Stage
	AdvanceErr error
}

// Partial reports an enrollment whose stage advancement failed.
func (o *EnrollmentOutcome) Partial() bool {
	return o != nil && o.AdvanceErr != nil
}

type SequenceCoordinator struct {
	store *Store
	gw    SequenceGateway

	mu        sync.Mutex
	sequences []models.Sequence
	loaded    bool
}

func NewSequenceCoordinator(store *Store, gw SequenceGateway) *SequenceCoordinator {
	return &SequenceCoordinator{store: store, gw: gw}
}

// Invalidate drops the cached sequence list.
func (c *SequenceCoordinator) Invalidate() {
	c.mu.Lock()
	c.sequences, c.loaded = nil, false
	c.mu.Unlock()
}

// Prepare checks the deal can be enrolled and builds the prompt to show.
func (c *SequenceCoordinator) Prepare(ctx context.Context, dealID uuid.UUID) (*EnrollmentPrompt, error) {
	const op = "enroll"

	deal, contact, err := contactFor(ctx, c.store, op, dealID)
	if err != nil {
		return nil, err
	}

	sequences, err := c.activeSequences(ctx)
	if err != nil {
		return nil, c.store.fail(op, "Could not load sequences", err)
	}

	if len(sequences) == 0 {
		c.store.announce(NoticeRedirect, op, "There are no active sequences yet; create one first")
		return &EnrollmentPrompt{
			Kind:      PromptRedirect,
			DealID:    deal.ID,
			ContactID: contact.ID,
			Redirect: &RedirectContext{
				DealID:       deal.ID,
				DealTitle:    deal.Title,
				ContactID:    contact.ID,
				ContactName:  contact.Name,
				ContactEmail: contact.Email,
			},
		}, nil
	}

	prompt := &EnrollmentPrompt{
		Kind:      PromptSelect,
		DealID:    deal.ID,
		ContactID: contact.ID,
		Sequences: sequences,
	}
	if next, ok := NextStage(c.store.activeStages(), deal.StageID); ok {
		prompt.NextStage = &next
	}
	return prompt, nil
}

// Enroll sends one enrollment request and, on success, advances the deal to
// the next stage. A failed advance never undoes the enrollment.
func (c *SequenceCoordinator) Enroll(ctx context.Context, intent models.EnrollmentIntent) (*EnrollmentOutcome, error) {
	const op = "enroll"

	switch {
	case intent.DealID == uuid.Nil:
		return nil, c.store.reject(op, invalid("deal_id", "Choose a deal"))
	case intent.ContactID == uuid.Nil:
		return nil, c.store.reject(op, invalid("contact_id", "The deal has no contact"))
	case intent.SequenceID == uuid.Nil:
		return nil, c.store.reject(op, invalid("sequence_id", "Choose a sequence"))
	}

	enrollment, err := c.gw.EnrollContact(ctx, intent.SequenceID, intent.ContactID, intent.DealID)
	if err != nil {
		return nil, c.store.fail(op, "Could not enroll the contact", err)
	}

	outcome := &EnrollmentOutcome{Enrollment: enrollment}
	seqName := c.sequenceName(intent.SequenceID)

	deal, ok := c.store.cachedDeal(intent.DealID)
	if !ok {
		c.store.announce(NoticeSuccess, op, fmt.Sprintf("Enrolled in %s", seqName))
		return outcome, nil
	}
	next, ok := NextStage(c.store.activeStages(), deal.StageID)
	if !ok {
		c.store.announce(NoticeSuccess, op, fmt.Sprintf("Enrolled in %s", seqName))
		return outcome, nil
	}

	if _, err := c.store.patchDealStage(ctx, deal.ID, next.ID); err != nil {
		outcome.AdvanceErr = err
		c.store.log.Warn().Err(err).Str("deal", deal.ID.String()).Msg("enrolled but stage advance failed")
		c.store.announce(NoticePartial, op,
			fmt.Sprintf("Enrolled in %s, but could not move %q to %s", seqName, deal.Title, next.Name))
		return outcome, nil
	}

	outcome.Advanced = true
	outcome.Stage = &next
	c.store.announce(NoticeSuccess, op, fmt.Sprintf("Enrolled in %s and moved %q to %s", seqName, deal.Title, next.Name))
	return outcome, nil
}

func (c *SequenceCoordinator) activeSequences(ctx context.Context) ([]models.Sequence, error) {
	c.mu.Lock()
	// An empty cache is refetched; a sequence may have been created since.
	if c.loaded && len(c.sequences) > 0 {
		out := append([]models.Sequence(nil), c.sequences...)
		c.mu.Unlock()
		return out, nil
	}
	c.mu.Unlock()

	sequences, err := c.gw.ListActiveSequences(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.sequences, c.loaded = sequences, true
	c.mu.Unlock()
	return append([]models.Sequence(nil), sequences...), nil
}

func (c *SequenceCoordinator) sequenceName(id uuid.UUID) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range c.sequences {
		if s.ID == id {
			return s.Name
		}
	}
	return "the sequence"
}

// NextStage returns the stage after currentID in board order. There is no
// next stage for the last stage or an unknown id.
func NextStage(stages []models.Stage, currentID uuid.UUID) (models.Stage, bool) {
	ordered := models.SortStages(stages)
	for i, s := range ordered {
		if s.ID == currentID {
			if i+1 < len(ordered) {
				return ordered[i+1], true
			}
			return models.Stage{}, false
		}
	}
	return models.Stage{}, false
}

// contactFor resolves the deal's contact, publishing a notice for whichever
// guard fails first.
func contactFor(ctx context.Context, store *Store, op string, dealID uuid.UUID) (models.Deal, *models.Contact, error) {
	deal, ok := store.cachedDeal(dealID)
	if !ok {
		return deal, nil, store.integrity(ctx, op, "This deal is no longer on the board", ErrDealNotFound)
	}
	if deal.Contact == nil {
		store.announce(NoticeValidation, op, fmt.Sprintf("%q has no contact", deal.Title))
		return deal, nil, fmt.Errorf("%s: %w", op, ErrNoContact)
	}
	if deal.Contact.Email == "" {
		store.announce(NoticeValidation, op, fmt.Sprintf("%s has no email address", deal.Contact.Name))
		return deal, nil, fmt.Errorf("%s: %w", op, ErrNoContactEmail)
	}
	return deal, deal.Contact, nil
}
