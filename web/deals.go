package web

import (
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/harperreed/pipeboard/db"
	"github.com/harperreed/pipeboard/models"
	"github.com/harperreed/pipeboard/objects"
)

func (s *Server) createDeal(c *gin.Context) {
	var in models.DealInput
	if !bindJSON(c, &in) {
		return
	}
	in.Title = strings.TrimSpace(in.Title)
	switch {
	case in.Title == "":
		badRequest(c, "title is required")
		return
	case in.ContactID == uuid.Nil:
		badRequest(c, "contact_id is required")
		return
	case in.PipelineID == uuid.Nil:
		badRequest(c, "pipeline_id is required")
		return
	case in.Priority != 0 && !in.Priority.Valid():
		badRequest(c, "priority must be 1, 2 or 3")
		return
	}

	deal, err := db.CreateDeal(c.Request.Context(), s.db, in)
	if err != nil {
		s.fail(c, err)
		return
	}

	s.record(c, objects.NewActivityObject(deal.ID, subject(c), objects.VerbCreated, map[string]string{
		"title":    deal.Title,
		"stage_id": deal.StageID.String(),
	}))
	c.JSON(http.StatusCreated, deal)
}

func (s *Server) updateDealFields(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var fields models.DealFields
	if !bindJSON(c, &fields) {
		return
	}
	fields.Title = strings.TrimSpace(fields.Title)
	switch {
	case fields.Title == "":
		badRequest(c, "title is required")
		return
	case fields.Priority != 0 && !fields.Priority.Valid():
		badRequest(c, "priority must be 1, 2 or 3")
		return
	}

	ctx := c.Request.Context()
	current, err := db.GetDeal(ctx, s.db, id)
	if err != nil {
		s.fail(c, err)
		return
	}
	if current == nil {
		notFound(c, "deal")
		return
	}
	if fields.Currency == "" {
		fields.Currency = current.Currency
	}
	if fields.Priority == 0 {
		fields.Priority = current.Priority
	}

	deal, err := db.UpdateDealFields(ctx, s.db, id, fields)
	if err != nil {
		s.fail(c, err)
		return
	}

	s.record(c, objects.NewActivityObject(deal.ID, subject(c), objects.VerbUpdated, map[string]string{
		"title": deal.Title,
		"value": strconv.FormatInt(deal.Value, 10),
	}))
	c.JSON(http.StatusOK, deal)
}

func (s *Server) updateDealStage(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var change models.StageChange
	if !bindJSON(c, &change) {
		return
	}
	if change.StageID == uuid.Nil {
		badRequest(c, "stage_id is required")
		return
	}

	ctx := c.Request.Context()
	deal, from, err := db.UpdateDealStage(ctx, s.db, id, change.StageID)
	if err != nil {
		s.fail(c, err)
		return
	}
	stageChanges.Inc()

	if from != deal.StageID {
		fromStage, _ := db.GetStage(ctx, s.db, from)
		toStage, _ := db.GetStage(ctx, s.db, deal.StageID)
		if fromStage != nil && toStage != nil {
			s.record(c, objects.StageChangeActivity(deal.ID, subject(c), *fromStage, *toStage))
		}
	}
	c.JSON(http.StatusOK, deal)
}

func (s *Server) deleteDeal(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := db.DeleteDeal(c.Request.Context(), s.db, id); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) dealActivity(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	deal, err := db.GetDeal(ctx, s.db, id)
	if err != nil {
		s.fail(c, err)
		return
	}
	if deal == nil {
		notFound(c, "deal")
		return
	}

	objs, err := s.objects.ListByOwner(ctx, objects.KindActivity, id)
	if err != nil {
		s.fail(c, err)
		return
	}
	out := make([]models.Activity, 0, len(objs))
	for _, obj := range objs {
		act, err := objects.AsActivity(obj)
		if err != nil {
			continue
		}
		out = append(out, act.Model())
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].OccurredAt.Before(out[j].OccurredAt) })
	c.JSON(http.StatusOK, out)
}

// record stores a timeline entry. Failures are logged, never surfaced.
func (s *Server) record(c *gin.Context, act *objects.ActivityObject) {
	if err := s.objects.Create(c.Request.Context(), &act.BaseObject); err != nil {
		s.log.Warn().Err(err).Str("deal", act.OwnerID.String()).Str("verb", string(act.Verb())).Msg("failed to record activity")
	}
}
