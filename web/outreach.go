package web

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/harperreed/pipeboard/db"
	"github.com/harperreed/pipeboard/mailer"
	"github.com/harperreed/pipeboard/models"
	"github.com/harperreed/pipeboard/objects"
)

func (s *Server) listContacts(c *gin.Context) {
	contacts, err := db.ListContacts(c.Request.Context(), s.db, c.Query("q"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, contacts)
}

func (s *Server) createContact(c *gin.Context) {
	var contact models.Contact
	if !bindJSON(c, &contact) {
		return
	}
	contact.Name = strings.TrimSpace(contact.Name)
	if contact.Name == "" {
		badRequest(c, "name is required")
		return
	}
	if err := db.CreateContact(c.Request.Context(), s.db, &contact); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, contact)
}

func (s *Server) listEmailAccounts(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	contact, err := db.GetContact(ctx, s.db, id)
	if err != nil {
		s.fail(c, err)
		return
	}
	if contact == nil {
		notFound(c, "contact")
		return
	}

	accounts, err := db.ListEmailAccounts(ctx, s.db, id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, accounts)
}

func (s *Server) listTags(c *gin.Context) {
	tags, err := db.ListTags(c.Request.Context(), s.db)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, tags)
}

func (s *Server) createTag(c *gin.Context) {
	var tag models.Tag
	if !bindJSON(c, &tag) {
		return
	}
	tag.Name = strings.TrimSpace(tag.Name)
	if tag.Name == "" {
		badRequest(c, "name is required")
		return
	}
	if err := db.CreateTag(c.Request.Context(), s.db, &tag); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, tag)
}

func (s *Server) listSequences(c *gin.Context) {
	sequences, err := db.ListSequences(c.Request.Context(), s.db, c.Query("status"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sequences)
}

func (s *Server) createSequence(c *gin.Context) {
	var seq models.Sequence
	if !bindJSON(c, &seq) {
		return
	}
	seq.Name = strings.TrimSpace(seq.Name)
	if seq.Name == "" {
		badRequest(c, "name is required")
		return
	}
	if err := db.CreateSequence(c.Request.Context(), s.db, &seq); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, seq)
}

func (s *Server) enroll(c *gin.Context) {
	seqID, ok := pathID(c)
	if !ok {
		return
	}
	var req struct {
		ContactID uuid.UUID `json:"contact_id"`
		DealID    uuid.UUID `json:"deal_id"`
	}
	if !bindJSON(c, &req) {
		return
	}
	if req.ContactID == uuid.Nil {
		badRequest(c, "contact_id is required")
		return
	}

	ctx := c.Request.Context()
	enrollment, err := db.EnrollContact(ctx, s.db, seqID, req.ContactID, req.DealID)
	if err != nil {
		s.fail(c, err)
		return
	}

	if req.DealID != uuid.Nil {
		meta := map[string]string{"sequence_id": seqID.String(), "contact_id": req.ContactID.String()}
		if seq, err := db.GetSequence(ctx, s.db, seqID); err == nil && seq != nil {
			meta["sequence"] = seq.Name
		}
		s.record(c, objects.NewActivityObject(req.DealID, subject(c), objects.VerbEnrolled, meta))
	}
	c.JSON(http.StatusCreated, enrollment)
}

func (s *Server) sendEmail(c *gin.Context) {
	var msg models.EmailMessage
	if !bindJSON(c, &msg) {
		return
	}
	msg.To = strings.TrimSpace(msg.To)
	msg.Subject = strings.TrimSpace(msg.Subject)
	switch {
	case msg.AccountID == uuid.Nil:
		badRequest(c, "account_id is required")
		return
	case msg.To == "":
		badRequest(c, "to is required")
		return
	case msg.Subject == "":
		badRequest(c, "subject is required")
		return
	}

	ctx := c.Request.Context()
	account, err := db.GetEmailAccount(ctx, s.db, msg.AccountID)
	if err != nil {
		s.fail(c, err)
		return
	}
	if account == nil {
		notFound(c, "email account")
		return
	}

	from := account.Address
	if account.DisplayName != "" {
		from = account.DisplayName + " <" + account.Address + ">"
	}
	if err := s.mailer.Send(ctx, mailer.Message{From: from, To: msg.To, Subject: msg.Subject, Body: msg.Body}); err != nil {
		s.fail(c, err)
		return
	}

	if err := db.LogEmail(ctx, s.db, msg, time.Now()); err != nil {
		s.log.Warn().Err(err).Str("account", account.Address).Msg("email sent but not logged")
	}
	if msg.DealID != uuid.Nil {
		s.record(c, objects.NewActivityObject(msg.DealID, subject(c), objects.VerbEmailSent, map[string]string{
			"to":      msg.To,
			"from":    account.Address,
			"subject": msg.Subject,
		}))
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}

func (s *Server) createTask(c *gin.Context) {
	var in models.TaskInput
	if !bindJSON(c, &in) {
		return
	}
	in.Title = strings.TrimSpace(in.Title)
	switch {
	case in.Title == "":
		badRequest(c, "title is required")
		return
	case in.DealID == uuid.Nil:
		badRequest(c, "deal_id is required")
		return
	}

	ctx := c.Request.Context()
	deal, err := db.GetDeal(ctx, s.db, in.DealID)
	if err != nil {
		s.fail(c, err)
		return
	}
	if deal == nil {
		notFound(c, "deal")
		return
	}

	task := objects.NewTaskObject(deal.ID, subject(c), in.Title, in.DueAt)
	if err := s.objects.Create(ctx, &task.BaseObject); err != nil {
		s.fail(c, err)
		return
	}

	s.record(c, objects.NewActivityObject(deal.ID, subject(c), objects.VerbTaskCreated, map[string]string{
		"task_id": task.ID.String(),
		"title":   in.Title,
	}))
	c.JSON(http.StatusCreated, task.Model())
}

func (s *Server) updateTaskStatus(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var in models.TaskStatusInput
	if !bindJSON(c, &in) {
		return
	}

	ctx := c.Request.Context()
	obj, err := s.objects.Get(ctx, id)
	if err != nil {
		s.fail(c, err)
		return
	}
	task, err := objects.AsTask(obj)
	if err != nil {
		notFound(c, "task")
		return
	}
	from := task.GetStatus()
	if err := task.TransitionStatus(strings.TrimSpace(in.Status)); err != nil {
		badRequest(c, err.Error())
		return
	}
	if err := s.objects.Update(ctx, &task.BaseObject); err != nil {
		s.fail(c, err)
		return
	}

	s.record(c, objects.NewActivityObject(task.OwnerID, subject(c), objects.VerbTaskStatus, map[string]string{
		"task_id": task.ID.String(),
		"from":    from,
		"to":      task.GetStatus(),
	}))
	c.JSON(http.StatusOK, task.Model())
}
