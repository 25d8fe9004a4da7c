// Package server exposes the assessment engine to the browser editor:
// a JSON API for the session protocol and a websocket channel the
// editor registers on to receive hide/show rendering commands.
package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/arjunm/recallmap/internal/assess"
	"github.com/arjunm/recallmap/internal/config"
	"github.com/arjunm/recallmap/internal/diagram"
	"github.com/arjunm/recallmap/internal/grading"
	"github.com/arjunm/recallmap/internal/sampler"
	"github.com/arjunm/recallmap/internal/store"
)

// Server wires the HTTP surface to the session engine.
type Server struct {
	cfg       config.Config
	grader    grading.Client
	events    store.EventRepo
	log       *zap.Logger
	renderers *rendererRegistry

	mu       sync.Mutex
	sessions map[string]*assess.Controller
}

// New creates the server. events may be nil to disable persistence.
func New(cfg config.Config, grader grading.Client, events store.EventRepo, log *zap.Logger) *Server {
	if events == nil {
		events = store.NopRepo{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		cfg:       cfg,
		grader:    grader,
		events:    events,
		log:       log,
		renderers: newRendererRegistry(log),
		sessions:  make(map[string]*assess.Controller),
	}
}

// Router builds the gin engine with all routes mounted.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ws", func(c *gin.Context) {
		s.handleWS(c.Writer, c.Request)
	})

	api := r.Group("/api")
	{
		api.POST("/assessments", s.handleStart)
		api.GET("/assessments/:id", s.handleGet)
		api.DELETE("/assessments/:id", s.handleExit)
		api.POST("/assessments/:id/answer", s.handleAnswer)
		api.POST("/assessments/:id/hint", s.handleHint)
		api.POST("/assessments/:id/verify", s.handleVerify)
		api.POST("/assessments/:id/skip", s.handleSkip)
	}
	return r
}

// Run serves until ctx is cancelled, then drains with a grace period.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * time.Minute, // grading calls ride on the response
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	// Restore every diagram before letting go of the connections.
	s.mu.Lock()
	for _, ctrl := range s.sessions {
		ctrl.Exit(context.Background())
	}
	s.mu.Unlock()

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutCtx)
}

type startRequest struct {
	ClientID string           `json:"client_id"`
	Language string           `json:"language"`
	Diagram  diagram.Snapshot `json:"diagram"`
}

type answerRequest struct {
	Answer string `json:"answer"`
}

func (s *Server) handleStart(c *gin.Context) {
	var req startRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.Language == "" {
		req.Language = s.cfg.Assessment.Language
	}

	ctrl := assess.New(s.grader, s.renderers.lookup(req.ClientID), assess.Options{
		Ratio:  s.cfg.Assessment.Ratio,
		Events: s.events,
		Log:    s.log,
	})

	info, err := ctrl.Start(c.Request.Context(), req.Diagram, req.Language)
	if err != nil {
		s.writeError(c, err)
		return
	}

	s.mu.Lock()
	s.sessions[info.SessionID] = ctrl
	s.mu.Unlock()

	c.JSON(http.StatusCreated, gin.H{
		"session_id": info.SessionID,
		"node_count": info.NodeCount,
		"question":   info.FirstQuestion,
	})
}

func (s *Server) session(c *gin.Context) (*assess.Controller, bool) {
	s.mu.Lock()
	ctrl, ok := s.sessions[c.Param("id")]
	s.mu.Unlock()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown session"})
	}
	return ctrl, ok
}

func (s *Server) handleGet(c *gin.Context) {
	ctrl, ok := s.session(c)
	if !ok {
		return
	}

	resp := gin.H{
		"session_id": ctrl.SessionID(),
		"status":     ctrl.Status().String(),
		"progress":   ctrl.Progress(),
	}
	if q, ok := ctrl.CurrentQuestion(); ok {
		resp["question"] = q
	}
	if score, ok := ctrl.Score(); ok {
		resp["score"] = score
		resp["misconceptions"] = ctrl.Misconceptions()
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleAnswer(c *gin.Context) {
	ctrl, ok := s.session(c)
	if !ok {
		return
	}
	var req answerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	out, err := ctrl.SubmitAnswer(c.Request.Context(), req.Answer)
	if err != nil {
		s.writeError(c, err)
		return
	}

	resp := gin.H{
		"kind":      out.Kind.String(),
		"correct":   out.Correct,
		"message":   out.Message,
		"completed": out.Completed,
	}
	if out.Revealed {
		resp["revealed_answer"] = out.RevealedAnswer
	}
	if out.Remediation != nil {
		resp["remediation"] = out.Remediation
		resp["verification_question"] = out.VerificationQuestion
	}
	if out.NextQuestion != nil {
		resp["question"] = out.NextQuestion
	}
	if out.Completed {
		if score, ok := ctrl.Score(); ok {
			resp["score"] = score
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleHint(c *gin.Context) {
	ctrl, ok := s.session(c)
	if !ok {
		return
	}

	hint, err := ctrl.RequestHint(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"hint": hint, "level": ctrl.HintLevel()})
}

func (s *Server) handleVerify(c *gin.Context) {
	ctrl, ok := s.session(c)
	if !ok {
		return
	}
	var req answerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	out, err := ctrl.SubmitVerification(c.Request.Context(), req.Answer)
	if err != nil {
		s.writeError(c, err)
		return
	}

	resp := gin.H{
		"kind":      out.Kind.String(),
		"message":   out.Message,
		"completed": out.Completed,
	}
	if out.Remediation != nil {
		resp["remediation"] = out.Remediation
		resp["verification_question"] = out.VerificationQuestion
	}
	if out.NextQuestion != nil {
		resp["question"] = out.NextQuestion
	}
	if out.Completed {
		if score, ok := ctrl.Score(); ok {
			resp["score"] = score
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleSkip(c *gin.Context) {
	ctrl, ok := s.session(c)
	if !ok {
		return
	}

	out, err := ctrl.Skip(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}

	resp := gin.H{
		"revealed_answer": out.RevealedAnswer,
		"completed":       out.Completed,
	}
	if out.NextQuestion != nil {
		resp["question"] = out.NextQuestion
	}
	if out.Completed {
		if score, ok := ctrl.Score(); ok {
			resp["score"] = score
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleExit(c *gin.Context) {
	s.mu.Lock()
	ctrl, ok := s.sessions[c.Param("id")]
	delete(s.sessions, c.Param("id"))
	s.mu.Unlock()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown session"})
		return
	}

	ctrl.Exit(c.Request.Context())
	c.Status(http.StatusNoContent)
}

// writeError maps engine errors onto HTTP statuses. Conflicts are
// retryable protocol violations; 502 marks remote grading failures
// where the session state is intact.
func (s *Server) writeError(c *gin.Context, err error) {
	var (
		startErr     *assess.StartError
		transportErr *grading.TransportError
	)
	switch {
	case errors.Is(err, sampler.ErrEmptySelection):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, assess.ErrBusy):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "retryable": true})
	case errors.Is(err, assess.ErrHintExhausted),
		errors.Is(err, assess.ErrAwaitingVerification),
		errors.Is(err, assess.ErrNoVerificationPending),
		errors.Is(err, assess.ErrSkipUnavailable),
		errors.Is(err, assess.ErrNotActive),
		errors.Is(err, assess.ErrSessionOver):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.As(err, &startErr), errors.As(err, &transportErr):
		s.log.Warn("grading service failure", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "retryable": true})
	default:
		s.log.Error("internal error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
