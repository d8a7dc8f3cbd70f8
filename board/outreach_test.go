package board

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/pipeboard/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecentCorrespondence(t *testing.T) {
	older := time.Now().Add(-48 * time.Hour)
	newer := time.Now().Add(-time.Hour)

	work := models.EmailAccount{ID: uuid.New(), Address: "me@work.test", LastUsedAt: &older}
	personal := models.EmailAccount{ID: uuid.New(), Address: "me@home.test", LastUsedAt: &newer}
	fresh := models.EmailAccount{ID: uuid.New(), Address: "me@new.test"}

	got, ok := RecentCorrespondence.Select([]models.EmailAccount{fresh, work, personal})
	require.True(t, ok)
	assert.Equal(t, personal.ID, got.ID)

	got, ok = RecentCorrespondence.Select([]models.EmailAccount{fresh, {ID: uuid.New()}})
	require.True(t, ok)
	assert.Equal(t, fresh.ID, got.ID)

	_, ok = RecentCorrespondence.Select(nil)
	assert.False(t, ok)
}

func TestSendEmail(t *testing.T) {
	f := newFixture(t)
	used := time.Now().Add(-time.Hour)
	work := models.EmailAccount{ID: uuid.New(), Address: "me@work.test"}
	sales := models.EmailAccount{ID: uuid.New(), Address: "sales@work.test", LastUsedAt: &used}
	f.gw.accounts = []models.EmailAccount{work, sales}
	o := NewOutreach(f.store, f.gw, nil)

	require.NoError(t, o.SendEmail(context.Background(), f.acme.ID, "Kickoff", "See you Monday"))

	require.Len(t, f.gw.sent, 1)
	msg := f.gw.sent[0]
	assert.Equal(t, sales.ID, msg.AccountID)
	assert.Equal(t, "ada@acme.test", msg.To)
	assert.Equal(t, f.acme.ID, msg.DealID)
	assert.Equal(t, "Kickoff", msg.Subject)
	assert.Equal(t, NoticeSuccess, f.store.Snapshot().Notice.Kind)
}

func TestSendEmailCustomSelector(t *testing.T) {
	f := newFixture(t)
	first := models.EmailAccount{ID: uuid.New(), Address: "a@work.test"}
	last := models.EmailAccount{ID: uuid.New(), Address: "z@work.test"}
	f.gw.accounts = []models.EmailAccount{first, last}

	o := NewOutreach(f.store, f.gw, AccountSelectorFunc(func(accounts []models.EmailAccount) (models.EmailAccount, bool) {
		return accounts[len(accounts)-1], true
	}))
	require.NoError(t, o.SendEmail(context.Background(), f.acme.ID, "Hi", ""))
	assert.Equal(t, last.ID, f.gw.sent[0].AccountID)
}

func TestSendEmailGuards(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	o := NewOutreach(f.store, f.gw, nil)

	var verr *ValidationError
	require.ErrorAs(t, o.SendEmail(ctx, f.acme.ID, "  ", "body"), &verr)
	assert.Equal(t, "subject", verr.Field)

	require.ErrorIs(t, o.SendEmail(ctx, f.beta.ID, "Hi", ""), ErrNoContactEmail)
	require.ErrorIs(t, o.SendEmail(ctx, f.solo.ID, "Hi", ""), ErrNoContact)

	require.ErrorIs(t, o.SendEmail(ctx, f.acme.ID, "Hi", ""), ErrNoEmailAccount)
	assert.Equal(t, NoticeValidation, f.store.Snapshot().Notice.Kind)
	assert.Equal(t, 0, f.gw.called("SendEmail"))
}

func TestSendEmailRemoteFailure(t *testing.T) {
	f := newFixture(t)
	f.gw.accounts = []models.EmailAccount{{ID: uuid.New(), Address: "me@work.test"}}
	f.gw.failOn("SendEmail", errRemote)
	o := NewOutreach(f.store, f.gw, nil)

	require.ErrorIs(t, o.SendEmail(context.Background(), f.acme.ID, "Hi", ""), errRemote)
	assert.Equal(t, NoticeRemoteFailure, f.store.Snapshot().Notice.Kind)
}

func TestCreateTask(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	o := NewOutreach(f.store, f.gw, nil)
	due := time.Now().Add(24 * time.Hour)

	task, err := o.CreateTask(ctx, f.solo.ID, " Call back ", &due)
	require.NoError(t, err)
	assert.Equal(t, "Call back", task.Title)
	assert.Equal(t, f.solo.ID, task.DealID)
	require.NotNil(t, task.DueAt)

	_, err = o.CreateTask(ctx, f.solo.ID, "", nil)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	_, err = o.CreateTask(ctx, uuid.New(), "Ghost", nil)
	require.ErrorIs(t, err, ErrDealNotFound)
	assert.Equal(t, 1, f.gw.called("CreateTask"))
}

func TestSetTaskStatus(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	o := NewOutreach(f.store, f.gw, nil)
	past := time.Now().Add(-time.Hour)

	task, err := o.CreateTask(ctx, f.acme.ID, "Chase invoice", &past)
	require.NoError(t, err)

	updated, err := o.SetTaskStatus(ctx, task.ID, "in_progress")
	require.NoError(t, err)
	assert.Equal(t, "in_progress", updated.Status)
	assert.True(t, updated.Overdue)
	snap := f.store.Snapshot()
	assert.Equal(t, NoticeSuccess, snap.Notice.Kind)
	assert.Contains(t, snap.Notice.Message, "overdue")

	updated, err = o.SetTaskStatus(ctx, task.ID, " done ")
	require.NoError(t, err)
	assert.False(t, updated.Overdue)

	_, err = o.SetTaskStatus(ctx, task.ID, "later")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "status", verr.Field)
	assert.Equal(t, 2, f.gw.called("UpdateTaskStatus"))

	_, err = o.SetTaskStatus(ctx, uuid.New(), "done")
	require.ErrorIs(t, err, errRemote)
	assert.Equal(t, NoticeRemoteFailure, f.store.Snapshot().Notice.Kind)
}
