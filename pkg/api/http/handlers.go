package http

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aescanero/wfdiag/pkg/domain"
)

// APIResponse wraps every /api/v1 body.
type APIResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func ok(c *gin.Context, data any) {
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: data})
}

func fail(c *gin.Context, status int, message string) {
	c.JSON(status, APIResponse{Success: false, Error: message})
}

// statusFor maps orchestrator errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrOutputUnavailable):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) sessionID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		fail(c, http.StatusBadRequest, "invalid session id")
		return uuid.Nil, false
	}
	return id, true
}

// handleHealth handles health check requests
func (s *Server) handleHealth(c *gin.Context) {
	status := "healthy"
	checks := gin.H{
		"orchestrator": "ok",
		"sessions":     s.orchestrator.SessionCounts(),
	}
	if s.health != nil {
		h := s.health.GetStatus()
		checks["workers"] = h
		if !h.Healthy {
			status = "degraded"
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    status,
		"timestamp": time.Now().UTC(),
		"checks":    checks,
	})
}

func (s *Server) handleSystemInfo(c *gin.Context) {
	ok(c, s.orchestrator.SystemInfo(c.Request.Context()))
}

func (s *Server) handleListTasks(c *gin.Context) {
	ok(c, s.orchestrator.ListTasks())
}

// handleStartDiagnostics handles session submission
func (s *Server) handleStartDiagnostics(c *gin.Context) {
	var req domain.SessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.logger.Warn("invalid request", zap.Error(err))
		fail(c, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	session, err := s.orchestrator.StartSession(c.Request.Context(), req)
	if err != nil {
		s.logger.Error("failed to start session", zap.Error(err))
		fail(c, statusFor(err), err.Error())
		return
	}

	ok(c, session)
}

func (s *Server) handleGetSession(c *gin.Context) {
	id, valid := s.sessionID(c)
	if !valid {
		return
	}

	session, err := s.orchestrator.GetSession(c.Request.Context(), id)
	if err != nil {
		fail(c, statusFor(err), "Session not found")
		return
	}

	ok(c, session)
}

// handleCancelSession handles session cancellation
func (s *Server) handleCancelSession(c *gin.Context) {
	id, valid := s.sessionID(c)
	if !valid {
		return
	}

	if err := s.orchestrator.CancelSession(c.Request.Context(), id); err != nil {
		fail(c, statusFor(err), err.Error())
		return
	}

	ok(c, "Session cancelled")
}

// handleDownload serves the artifact of a completed session.
func (s *Server) handleDownload(c *gin.Context) {
	id, valid := s.sessionID(c)
	if !valid {
		return
	}

	path, err := s.orchestrator.OutputPath(c.Request.Context(), id)
	if err != nil {
		fail(c, statusFor(err), "Results file not found")
		return
	}

	name := fmt.Sprintf("WF-Diag_%s%s", id, filepath.Ext(path))
	c.FileAttachment(path, name)
}
