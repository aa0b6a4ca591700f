package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/vowline/internal/application"
	"github.com/oksasatya/vowline/pkg/response"
)

type DashboardViewer interface {
	View(ctx context.Context) application.DashboardView
}

type DashboardHandler struct {
	Dashboard DashboardViewer
}

func NewDashboardHandler(d DashboardViewer) *DashboardHandler {
	return &DashboardHandler{Dashboard: d}
}

// Get GET /api/security/dashboard
func (h *DashboardHandler) Get(c *gin.Context) {
	v := h.Dashboard.View(c.Request.Context())
	events := make([]gin.H, 0, len(v.Events))
	for _, e := range v.Events {
		events = append(events, gin.H{
			"id":         e.ID,
			"user_id":    e.UserID,
			"action":     e.Action,
			"severity":   e.Severity,
			"ip":         e.IP,
			"metadata":   e.Metadata,
			"created_at": e.CreatedAt,
		})
	}
	response.Success(c, http.StatusOK, gin.H{
		"metrics": v.Metrics,
		"events":  events,
	}, "security dashboard", map[string]any{"sample_events": v.SampleEvents})
}
