// ABOUTME: Reference HTTP API serving pipelines, deals and outreach over SQLite
// ABOUTME: gin router with JWT auth, request logging and Prometheus metrics
package web

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/harperreed/pipeboard/db"
	"github.com/harperreed/pipeboard/mailer"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

type Server struct {
	db      *sql.DB
	objects *db.ObjectsRepository
	mailer  mailer.Mailer
	secret  []byte
	log     zerolog.Logger
	router  *gin.Engine
}

// NewServer wires the routes. An empty secret is rejected.
func NewServer(database *sql.DB, m mailer.Mailer, secret []byte, logger zerolog.Logger) (*Server, error) {
	if len(secret) == 0 {
		return nil, errors.New("jwt secret is required")
	}
	s := &Server{
		db:      database,
		objects: db.NewObjectsRepository(database),
		mailer:  m,
		secret:  secret,
		log:     logger,
	}
	s.router = s.routes()
	return s, nil
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestID(), RequestLogger(s.log), RequestMetrics(), AuthMiddleware(s.secret))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		api.GET("/pipelines", s.listPipelines)
		api.POST("/pipelines", s.createPipeline)
		api.PUT("/pipelines/:id", s.updatePipeline)
		api.DELETE("/pipelines/:id", s.deletePipeline)
		api.GET("/pipelines/:id/stages", s.listStages)
		api.POST("/pipelines/:id/stages", s.createStage)
		api.GET("/pipelines/:id/deals", s.listDeals)

		api.PUT("/stages/:id", s.updateStage)
		api.DELETE("/stages/:id", s.deleteStage)

		api.POST("/deals", s.createDeal)
		api.PATCH("/deals/:id", s.updateDealFields)
		api.PUT("/deals/:id/stage", s.updateDealStage)
		api.DELETE("/deals/:id", s.deleteDeal)
		api.GET("/deals/:id/activity", s.dealActivity)

		api.GET("/contacts", s.listContacts)
		api.POST("/contacts", s.createContact)
		api.GET("/contacts/:id/email-accounts", s.listEmailAccounts)
		api.GET("/tags", s.listTags)
		api.POST("/tags", s.createTag)

		api.GET("/sequences", s.listSequences)
		api.POST("/sequences", s.createSequence)
		api.POST("/sequences/:id/enrollments", s.enroll)

		api.POST("/emails", s.sendEmail)
		api.POST("/tasks", s.createTask)
		api.PATCH("/tasks/:id", s.updateTaskStatus)
	}
	return r
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("api listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.log.Info().Msg("shutting down api")
		return srv.Shutdown(shutdownCtx)
	}
}

// fail maps store errors onto status codes with an {"error": ...} body.
func (s *Server) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, db.ErrNotFound), errors.Is(err, db.ErrObjectNotFound):
		status = http.StatusNotFound
	case errors.Is(err, db.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, db.ErrInvalid), errors.Is(err, db.ErrInvalidObject):
		status = http.StatusBadRequest
	}

	if status == http.StatusInternalServerError {
		s.log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

func notFound(c *gin.Context, what string) {
	c.JSON(http.StatusNotFound, gin.H{"error": what + " not found"})
}

func pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, "invalid id: "+c.Param("id"))
		return uuid.Nil, false
	}
	return id, true
}

func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return false
	}
	return true
}
