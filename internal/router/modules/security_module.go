package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/vowline/internal/container"
	handlers "github.com/oksasatya/vowline/internal/interface/http"
	"github.com/oksasatya/vowline/internal/interface/middleware"
	"github.com/oksasatya/vowline/pkg/helpers"
)

// SecurityModule exposes the self-check suite and the security dashboard
// under /api/security. Every route needs a session.
type SecurityModule struct {
	Handler   *handlers.SecurityHandler
	Dashboard *handlers.DashboardHandler
	JWT       *helpers.JWTManager
}

func NewSecurityModule(h *handlers.SecurityHandler, d *handlers.DashboardHandler, jwt *helpers.JWTManager) *SecurityModule {
	return &SecurityModule{Handler: h, Dashboard: d, JWT: jwt}
}

func (m *SecurityModule) Register(rg *gin.RouterGroup) {
	rdb := container.GetRedis()

	sec := rg.Group("/security")
	sec.Use(middleware.Auth(rdb, m.JWT))
	sec.Use(middleware.RateLimit(rdb, 120, time.Minute, middleware.KeyByUserID(), nil))

	// a full run takes several seconds; keep callers from hammering it
	runLimiter := middleware.RateLimit(rdb, 6, time.Minute, middleware.KeyByUserAndPath(), nil)
	{
		sec.GET("/checks", m.Handler.Checks)
		sec.POST("/checks/run", runLimiter, m.Handler.RunAll)
		sec.POST("/checks/run-async", runLimiter, m.Handler.RunAsync)
		sec.POST("/checks/:key/run", middleware.RateLimit(rdb, 30, time.Minute, middleware.KeyByUserAndPath(), nil), m.Handler.RunCheck)
		sec.GET("/dashboard", m.Dashboard.Get)
		sec.GET("/runs/search", m.Handler.SearchRuns)
	}
}
