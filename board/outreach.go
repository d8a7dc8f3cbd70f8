// ABOUTME: Email and follow-up task side effects triggered from a deal
// ABOUTME: Picks the sending account through a pluggable selector
package board

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/pipeboard/models"
)

// AccountSelector chooses which of the user's accounts sends to a contact.
type AccountSelector interface {
	Select(accounts []models.EmailAccount) (models.EmailAccount, bool)
}

type AccountSelectorFunc func(accounts []models.EmailAccount) (models.EmailAccount, bool)

func (f AccountSelectorFunc) Select(accounts []models.EmailAccount) (models.EmailAccount, bool) {
	return f(accounts)
}

// RecentCorrespondence prefers the account that most recently wrote to the
// contact, falling back to the first account.
var RecentCorrespondence AccountSelector = AccountSelectorFunc(func(accounts []models.EmailAccount) (models.EmailAccount, bool) {
	if len(accounts) == 0 {
		return models.EmailAccount{}, false
	}
	best := -1
	for i, a := range accounts {
		if a.LastUsedAt == nil {
			continue
		}
		if best < 0 || a.LastUsedAt.After(*accounts[best].LastUsedAt) {
			best = i
		}
	}
	if best < 0 {
		best = 0
	}
	return accounts[best], true
})

type Outreach struct {
	store    *Store
	gw       OutreachGateway
	selector AccountSelector
}

func NewOutreach(store *Store, gw OutreachGateway, selector AccountSelector) *Outreach {
	if selector == nil {
		selector = RecentCorrespondence
	}
	return &Outreach{store: store, gw: gw, selector: selector}
}

// SendEmail emails the deal's contact. Delivery happens remotely; success
// means the message was accepted.
func (o *Outreach) SendEmail(ctx context.Context, dealID uuid.UUID, subject, body string) error {
	const op = "send email"

	subject = strings.TrimSpace(subject)
	if subject == "" {
		return o.store.reject(op, invalid("subject", "Subject is required"))
	}

	deal, contact, err := contactFor(ctx, o.store, op, dealID)
	if err != nil {
		return err
	}

	accounts, err := o.gw.ListEmailAccounts(ctx, contact.ID)
	if err != nil {
		return o.store.fail(op, "Could not load your email accounts", err)
	}
	account, ok := o.selector.Select(accounts)
	if !ok {
		o.store.announce(NoticeValidation, op, "Connect an email account first")
		return fmt.Errorf("%s: %w", op, ErrNoEmailAccount)
	}

	msg := models.EmailMessage{
		AccountID: account.ID,
		ContactID: contact.ID,
		DealID:    deal.ID,
		To:        contact.Email,
		Subject:   subject,
		Body:      body,
	}
	if err := o.gw.SendEmail(ctx, msg); err != nil {
		return o.store.fail(op, fmt.Sprintf("Could not send email to %s", contact.Email), err)
	}

	o.store.announce(NoticeSuccess, op, fmt.Sprintf("Email to %s queued from %s", contact.Email, account.Address))
	return nil
}

// CreateTask adds a follow-up task linked to the deal.
func (o *Outreach) CreateTask(ctx context.Context, dealID uuid.UUID, title string, dueAt *time.Time) (*models.Task, error) {
	const op = "create task"

	title = strings.TrimSpace(title)
	if title == "" {
		return nil, o.store.reject(op, invalid("title", "Task title is required"))
	}
	deal, ok := o.store.cachedDeal(dealID)
	if !ok {
		return nil, o.store.integrity(ctx, op, "This deal is no longer on the board", ErrDealNotFound)
	}

	task, err := o.gw.CreateTask(ctx, models.TaskInput{Title: title, DealID: deal.ID, DueAt: dueAt})
	if err != nil {
		return nil, o.store.fail(op, "Could not create the task", err)
	}

	o.store.announce(NoticeSuccess, op, fmt.Sprintf("Task %q added to %q", task.Title, deal.Title))
	return task, nil
}

// SetTaskStatus moves a follow-up task to todo, in_progress, done or cancelled.
func (o *Outreach) SetTaskStatus(ctx context.Context, taskID uuid.UUID, status string) (*models.Task, error) {
	const op = "update task"

	status = strings.TrimSpace(status)
	if !models.ValidTaskStatus(status) {
		return nil, o.store.reject(op, invalid("status", "Status must be todo, in_progress, done or cancelled"))
	}

	task, err := o.gw.UpdateTaskStatus(ctx, taskID, status)
	if err != nil {
		return nil, o.store.fail(op, "Could not update the task", err)
	}

	msg := fmt.Sprintf("Task %q is now %s", task.Title, task.Status)
	if task.Overdue {
		msg += " (overdue)"
	}
	o.store.announce(NoticeSuccess, op, msg)
	return task, nil
}
