package web

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/harperreed/pipeboard/db"
	"github.com/harperreed/pipeboard/models"
)

func (s *Server) listPipelines(c *gin.Context) {
	pipelines, err := db.ListPipelines(c.Request.Context(), s.db)
	if err != nil {
		s.fail(c, err)
		return
	}
	if pipelines == nil {
		pipelines = []models.Pipeline{}
	}
	c.JSON(http.StatusOK, pipelines)
}

func (s *Server) createPipeline(c *gin.Context) {
	var form models.PipelineForm
	if !bindJSON(c, &form) {
		return
	}
	form.Name = strings.TrimSpace(form.Name)
	if form.Name == "" {
		badRequest(c, "name is required")
		return
	}

	p, err := db.CreatePipeline(c.Request.Context(), s.db, form)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (s *Server) updatePipeline(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var form models.PipelineForm
	if !bindJSON(c, &form) {
		return
	}
	form.Name = strings.TrimSpace(form.Name)
	if form.Name == "" {
		badRequest(c, "name is required")
		return
	}

	p, err := db.UpdatePipeline(c.Request.Context(), s.db, id, form)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) deletePipeline(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := db.DeletePipeline(c.Request.Context(), s.db, id); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) listStages(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	p, err := db.GetPipeline(c.Request.Context(), s.db, id)
	if err != nil {
		s.fail(c, err)
		return
	}
	if p == nil {
		notFound(c, "pipeline")
		return
	}
	stages := models.SortStages(p.Stages)
	c.JSON(http.StatusOK, stages)
}

func validStageForm(c *gin.Context, form *models.StageForm) bool {
	form.Name = strings.TrimSpace(form.Name)
	switch {
	case form.Name == "":
		badRequest(c, "name is required")
		return false
	case form.Probability < 0 || form.Probability > 100:
		badRequest(c, "probability must be between 0 and 100")
		return false
	case form.Position < 0:
		badRequest(c, "position cannot be negative")
		return false
	}
	return true
}

func (s *Server) createStage(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var form models.StageForm
	if !bindJSON(c, &form) || !validStageForm(c, &form) {
		return
	}

	stage, err := db.CreateStage(c.Request.Context(), s.db, id, form)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, stage)
}

func (s *Server) updateStage(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var form models.StageForm
	if !bindJSON(c, &form) || !validStageForm(c, &form) {
		return
	}

	stage, err := db.UpdateStage(c.Request.Context(), s.db, id, form)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stage)
}

func (s *Server) deleteStage(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := db.DeleteStage(c.Request.Context(), s.db, id); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) listDeals(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	p, err := db.GetPipeline(c.Request.Context(), s.db, id)
	if err != nil {
		s.fail(c, err)
		return
	}
	if p == nil {
		notFound(c, "pipeline")
		return
	}

	deals, err := db.ListDeals(c.Request.Context(), s.db, id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, deals)
}
