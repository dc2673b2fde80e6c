// Package server exposes a running batch over HTTP so that glossary
// reviews can be answered from a browser or another tool.
package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/valpere/glossator/internal"
	"github.com/valpere/glossator/internal/orchestrator"
	"github.com/valpere/glossator/internal/review"
)

type Reviewer interface {
	Pending() (review.Pending, bool)
	Submit(accepted []internal.TermCandidate) error
	SubmitIndices(indices []int) error
	Pause() error
	Resume() error
}

type StateSource interface {
	State() orchestrator.State
}

type Server struct {
	gate    Reviewer
	state   StateSource
	metrics http.Handler
	engine  *gin.Engine

	mu     sync.Mutex
	http   *http.Server
	closed bool
}

// New builds the router. metrics may be nil, in which case /metrics is not
// served.
func New(gate Reviewer, state StateSource, metrics http.Handler) *Server {
	s := &Server{gate: gate, state: state, metrics: metrics}

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	r.GET("/healthz", s.health)
	if metrics != nil {
		r.GET("/metrics", gin.WrapH(metrics))
	}

	api := r.Group("/api")
	{
		api.GET("/state", s.getState)
		api.GET("/review", s.getReview)
		api.POST("/review", s.submitReview)
		api.POST("/review/pause", s.pause)
		api.POST("/review/resume", s.resume)
	}

	s.engine = r
	return s
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

// ListenAndServe blocks until the server stops. It returns nil after
// Shutdown, also when Shutdown came first.
func (s *Server) ListenAndServe(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.http = srv
	s.mu.Unlock()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	srv := s.http
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) getState(c *gin.Context) {
	if s.state == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no batch run"})
		return
	}
	c.JSON(http.StatusOK, s.state.State())
}

type pendingResponse struct {
	Terms            []internal.TermCandidate `json:"terms"`
	RemainingSeconds int                      `json:"remainingSeconds"`
	Paused           bool                     `json:"paused"`
}

func (s *Server) getReview(c *gin.Context) {
	p, ok := s.gate.Pending()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": review.ErrNoPendingReview.Error()})
		return
	}
	c.JSON(http.StatusOK, pendingResponse{
		Terms:            p.Terms,
		RemainingSeconds: int(p.Remaining.Round(time.Second) / time.Second),
		Paused:           p.Paused,
	})
}

// submitRequest selects terms by position, all at once, or as edited terms.
// Terms takes precedence over All, which takes precedence over Accept.
type submitRequest struct {
	Accept []int                    `json:"accept"`
	All    bool                     `json:"all"`
	Terms  []internal.TermCandidate `json:"terms"`
}

func (s *Server) submitReview(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var err error
	switch {
	case req.Terms != nil:
		err = s.gate.Submit(req.Terms)
	case req.All:
		p, ok := s.gate.Pending()
		if !ok {
			err = review.ErrNoPendingReview
			break
		}
		err = s.gate.Submit(p.Terms)
	default:
		err = s.gate.SubmitIndices(req.Accept)
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) pause(c *gin.Context) {
	if err := s.gate.Pause(); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) resume(c *gin.Context) {
	if err := s.gate.Resume(); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, review.ErrNoPendingReview):
		status = http.StatusConflict
	case errors.Is(err, review.ErrInvalidSelection):
		status = http.StatusBadRequest
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
