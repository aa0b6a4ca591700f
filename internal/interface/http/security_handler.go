package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/vowline/internal/application"
	"github.com/oksasatya/vowline/pkg/response"
	"github.com/oksasatya/vowline/pkg/validation"
)

// SuiteRunner is the part of the self-check suite the HTTP layer drives.
type SuiteRunner interface {
	Catalogue() []application.Check
	State(ctx context.Context, callerID string) (*application.SuiteState, error)
	RunCheck(ctx context.Context, callerID, key string) (application.CheckState, error)
	RunAll(ctx context.Context, callerID string) (*application.SuiteState, error)
}

type RunSearcher interface {
	SearchRuns(ctx context.Context, callerID, q string, size int) ([]application.RunDoc, error)
}

type SecurityHandler struct {
	Suite  SuiteRunner
	Runs   RunSearcher
	Pub    application.JobPublisher
	Queue  string
	Logger *logrus.Logger
}

func NewSecurityHandler(suite SuiteRunner, runs RunSearcher, pub application.JobPublisher, queue string, logger *logrus.Logger) *SecurityHandler {
	return &SecurityHandler{Suite: suite, Runs: runs, Pub: pub, Queue: queue, Logger: logger}
}

type checkURI struct {
	Key string `uri:"key" binding:"required,checkkey"`
}

// suiteError maps suite errors to HTTP responses.
func (h *SecurityHandler) suiteError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, application.ErrUnknownCheck):
		response.Error[any](c, http.StatusNotFound, "unknown check", nil)
	case errors.Is(err, application.ErrSuiteBusy):
		response.Error[any](c, http.StatusConflict, "a security run is already in progress", nil)
	default:
		if h.Logger != nil {
			h.Logger.WithError(err).WithField("caller_id", c.GetString("userID")).Error("security suite error")
		}
		response.Error[any](c, http.StatusInternalServerError, "security suite unavailable", nil)
	}
}

// Checks GET /api/security/checks
func (h *SecurityHandler) Checks(c *gin.Context) {
	st, err := h.Suite.State(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		h.suiteError(c, err)
		return
	}
	response.Success(c, http.StatusOK, st, "security checks", map[string]any{"total": len(h.Suite.Catalogue())})
}

// RunCheck POST /api/security/checks/:key/run
func (h *SecurityHandler) RunCheck(c *gin.Context) {
	var uri checkURI
	if err := c.ShouldBindUri(&uri); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid check key", validation.ToDetails(err))
		return
	}
	res, err := h.Suite.RunCheck(c.Request.Context(), c.GetString("userID"), uri.Key)
	if err != nil {
		h.suiteError(c, err)
		return
	}
	response.Success(c, http.StatusOK, res, "check finished", nil)
}

// RunAll POST /api/security/checks/run
func (h *SecurityHandler) RunAll(c *gin.Context) {
	st, err := h.Suite.RunAll(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		h.suiteError(c, err)
		return
	}
	response.Success(c, http.StatusOK, st, "security suite finished", map[string]any{"passed": st.Passed, "failed": st.Failed})
}

// RunAsync POST /api/security/checks/run-async
func (h *SecurityHandler) RunAsync(c *gin.Context) {
	job, err := application.EnqueueRun(c.Request.Context(), h.Pub, h.Queue, c.GetString("userID"))
	if err != nil {
		if h.Logger != nil {
			h.Logger.WithError(err).Warn("failed to publish suite run job")
		}
		response.Error[any](c, http.StatusServiceUnavailable, "failed to enqueue", nil)
		return
	}
	response.Success(c, http.StatusAccepted, job, "security suite enqueued", nil)
}

// SearchRuns GET /api/security/runs/search?q=&size=
func (h *SecurityHandler) SearchRuns(c *gin.Context) {
	size, _ := strconv.Atoi(c.DefaultQuery("size", "10"))
	runs, err := h.Runs.SearchRuns(c.Request.Context(), c.GetString("userID"), c.Query("q"), size)
	if err != nil {
		if h.Logger != nil {
			h.Logger.WithError(err).Warn("run search failed")
		}
		response.Error[any](c, http.StatusBadGateway, "run search unavailable", nil)
		return
	}
	response.Success(c, http.StatusOK, runs, "runs", map[string]any{"count": len(runs)})
}
